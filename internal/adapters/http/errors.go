package http

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/core/usecases"
	"github.com/samirrijal/nextmetro/internal/pkg/metrics"
)

const (
	msgStationRequired = "Station parameter is required"
	msgUnknownStation  = "unknown station"
	msgURLNotFound     = "URL not found"
)

// msgCountRange is the message for an out-of-range n.
var msgCountRange = "Parameter n must be between 1 and " + strconv.Itoa(usecases.MaxArrivals)

// APIError is a structured error response.
type APIError struct {
	Error     string `json:"error"` // Human-readable message
	Code      string `json:"code"`  // bad_request, not_found, unknown_station, internal_error
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// UnknownStationResponse is the 404 body for a station that is not on the line.
type UnknownStationResponse struct {
	APIError
	Suggestions []string `json:"suggestions"`
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(APIError{
		Error:     message,
		Code:      code,
		Status:    status,
		RequestID: requestID(c),
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

func errUnknownStation(c *fiber.Ctx, suggestions []string) error {
	if suggestions == nil {
		suggestions = []string{}
	}
	return c.Status(fiber.StatusNotFound).JSON(UnknownStationResponse{
		APIError: APIError{
			Error:     msgUnknownStation,
			Code:      "unknown_station",
			Status:    fiber.StatusNotFound,
			RequestID: requestID(c),
		},
		Suggestions: suggestions,
	})
}

// writeDomainError maps a use-case error to its HTTP response.
func writeDomainError(c *fiber.Ctx, err error) error {
	var unknown *domain.UnknownStationError
	switch {
	case errors.As(err, &unknown):
		metrics.UnknownStations.Inc()
		return errUnknownStation(c, unknown.Suggestions)
	case errors.Is(err, domain.ErrMissingParameter):
		return errBadRequest(c, msgStationRequired)
	case errors.Is(err, domain.ErrInvalidRange), errors.Is(err, domain.ErrInvalidArgument):
		return errBadRequest(c, msgCountRange)
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("error", err.Error()))
		return errInternal(c, "internal error")
	}
}
