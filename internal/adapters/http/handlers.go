package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/pkg/metrics"
)

// NextMetroHandler answers GET /next-metro?station=<name>&n=<1..5>.
func NextMetroHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		station := strings.TrimSpace(c.Query("station"))
		n := parseCount(c.Query("n"))

		board, err := deps.Boards.Board(c.UserContext(), station, n)
		if err != nil {
			return writeDomainError(c, err)
		}

		service := string(domain.ServiceOpen)
		if board.Closed() {
			service = string(domain.ServiceClosed)
		}
		metrics.BoardQueries.WithLabelValues(service).Inc()

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(board)
	}
}

// parseCount reads the n parameter. A missing value means one arrival; an
// unparsable one maps to 0 so that range validation rejects it.
func parseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// StationsHandler lists the line's stations. With q it returns autocomplete
// suggestions; without it, the full catalog paginated by offset/limit.
func StationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if q, ok := queryPresent(c, "q"); ok {
			if len(q) > 100 {
				return errBadRequest(c, "query too long (max 100 characters)")
			}
			limit := c.QueryInt("limit", 10)
			return c.JSON(fiber.Map{
				"query":       q,
				"suggestions": deps.Boards.SuggestStations(q, limit),
			})
		}

		stations := deps.Boards.Stations()

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		total := len(stations)
		if offset >= total {
			stations = []domain.Station{}
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			stations = stations[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: stations, Pagination: pg})
	}
}

// ScheduleHandler exposes the timetable parameters the service runs on.
func ScheduleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg := deps.Boards.Schedule()
		return c.JSON(fiber.Map{
			"line":            cfg.Line,
			"headwayMin":      cfg.HeadwayMinutes,
			"lastWindowStart": cfg.LastWindowStart.String(),
			"serviceEnd":      cfg.ServiceEnd.String(),
			"serviceResume":   cfg.ServiceResume.String(),
			"tz":              cfg.Timezone,
		})
	}
}

// NotFoundHandler is the catch-all for unmatched routes.
func NotFoundHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		LoggerFromCtx(c.UserContext()).Info("URL not found", "url", c.OriginalURL())
		return errNotFound(c, msgURLNotFound)
	}
}

func queryPresent(c *fiber.Ctx, key string) (string, bool) {
	if !c.Context().QueryArgs().Has(key) {
		return "", false
	}
	return strings.TrimSpace(c.Query(key)), true
}
