package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/core/ports"
	"github.com/samirrijal/nextmetro/internal/pkg/clock"
)

const (
	// MaxArrivals bounds how many trains a single board may project.
	MaxArrivals = 5

	maxSuggestions = 5
	boardCacheTTL  = 60 // seconds; boards change every minute
)

var tracer = otel.Tracer("github.com/samirrijal/nextmetro/internal/core/usecases")

// BoardService answers station board queries: it validates the request,
// reads the clock and runs the schedule engine.
type BoardService struct {
	engine    *ScheduleEngine
	stations  ports.StationDirectory
	clock     clock.Clock
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewBoardService creates a new BoardService. cache and publisher may be nil.
func NewBoardService(
	engine *ScheduleEngine,
	stations ports.StationDirectory,
	clk clock.Clock,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *BoardService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &BoardService{
		engine:    engine,
		stations:  stations,
		clock:     clk,
		cache:     cache,
		publisher: publisher,
	}
}

// Board returns the next n arrivals at the named station and records the
// request as a rider query.
func (s *BoardService) Board(ctx context.Context, stationName string, n int) (*domain.Board, error) {
	return s.board(ctx, stationName, n, true)
}

// RefreshBoard is Board for server-initiated pushes: the answer is the same
// but no query event is published.
func (s *BoardService) RefreshBoard(ctx context.Context, stationName string, n int) (*domain.Board, error) {
	return s.board(ctx, stationName, n, false)
}

func (s *BoardService) board(ctx context.Context, stationName string, n int, publish bool) (*domain.Board, error) {
	if stationName == "" {
		return nil, fmt.Errorf("%w: station", domain.ErrMissingParameter)
	}
	if n < 1 || n > MaxArrivals {
		return nil, fmt.Errorf("%w: n must be between 1 and %d, got %d", domain.ErrInvalidRange, MaxArrivals, n)
	}
	station, ok := s.stations.Lookup(stationName)
	if !ok {
		return nil, &domain.UnknownStationError{
			Query:       stationName,
			Suggestions: s.stations.Suggest(stationName, maxSuggestions),
		}
	}

	ctx, span := tracer.Start(ctx, "BoardService.Board",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("station", station.Name),
			attribute.Int("n", n),
			attribute.Bool("refresh", !publish),
		),
	)
	defer span.End()

	now := s.clock.Now()

	board, hit := s.cached(ctx, station, n, now)
	span.SetAttributes(attribute.Bool("cache_hit", hit))
	if !hit {
		var err error
		board, err = s.build(now, station, n)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "build board")
			return nil, err
		}
		s.store(ctx, station, n, now, board)
	}
	span.SetAttributes(attribute.Bool("closed", board.Closed()))

	if publish {
		s.publishQuery(ctx, station, n, now, board)
	}
	return board, nil
}

func boardCacheKey(station domain.Station, n int, now time.Time) string {
	return fmt.Sprintf("board:%s:%s:%d:%s",
		station.Line, domain.NormalizeStationName(station.Name), n, now.Format("200601021504"))
}

func (s *BoardService) cached(ctx context.Context, station domain.Station, n int, now time.Time) (*domain.Board, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, boardCacheKey(station, n, now))
	if err != nil {
		return nil, false
	}
	var b domain.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, false
	}
	return &b, true
}

func (s *BoardService) store(ctx context.Context, station domain.Station, n int, now time.Time, board *domain.Board) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(board); err == nil {
		_ = s.cache.Set(ctx, boardCacheKey(station, n, now), data, boardCacheTTL)
	}
}

// publishQuery emits one event per answered query, cached or not.
func (s *BoardService) publishQuery(ctx context.Context, station domain.Station, n int, now time.Time, board *domain.Board) {
	if s.publisher == nil {
		return
	}
	service := string(domain.ServiceOpen)
	if board.Closed() {
		service = string(domain.ServiceClosed)
	}
	event := &domain.BoardQueryEvent{
		Time:    now,
		Station: station.Name,
		Line:    station.Line,
		Count:   n,
		Service: service,
	}
	if err := s.publisher.PublishBoardQuery(ctx, event); err != nil {
		slog.DebugContext(ctx, "publish board query failed", "error", err)
	}
}

func (s *BoardService) build(now time.Time, station domain.Station, n int) (*domain.Board, error) {
	next := s.engine.NextArrival(now)
	if next.Closed() {
		b := domain.ClosedBoard(next.Timezone)
		return &b, nil
	}

	b := &domain.Board{
		Station:    station.Name,
		Line:       station.Line,
		HeadwayMin: next.HeadwayMinutes,
		Timezone:   next.Timezone,
	}
	if n == 1 {
		isLast := next.IsLast
		b.NextArrival = next.NextArrival
		b.IsLast = &isLast
		return b, nil
	}

	arrivals, err := s.engine.ProjectArrivals(now, n)
	if err != nil {
		return nil, fmt.Errorf("project arrivals: %w", err)
	}
	b.Arrivals = arrivals
	return b, nil
}

// Stations lists every station on the line.
func (s *BoardService) Stations() []domain.Station {
	return s.stations.All()
}

// SuggestStations returns catalog names resembling query, for autocomplete.
func (s *BoardService) SuggestStations(query string, limit int) []string {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.stations.Suggest(query, limit)
}

// Schedule returns the timetable the service runs on.
func (s *BoardService) Schedule() domain.ScheduleConfig {
	return s.engine.Config()
}
