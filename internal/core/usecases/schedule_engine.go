package usecases

import (
	"fmt"
	"time"

	"github.com/samirrijal/nextmetro/internal/core/domain"
)

const (
	// From this hour on, the next closure tail belongs to tomorrow's date.
	rolloverHour = 5
	// Between closureHour and rolloverHour the line is always closed.
	closureHour = 2
)

// ScheduleEngine answers arrival questions against a fixed headway timetable
// with a nightly closure. It holds no mutable state and is safe for
// concurrent use.
type ScheduleEngine struct {
	cfg domain.ScheduleConfig
}

// NewScheduleEngine validates cfg and returns an engine bound to it.
func NewScheduleEngine(cfg domain.ScheduleConfig) (*ScheduleEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("schedule config: %w", err)
	}
	return &ScheduleEngine{cfg: cfg}, nil
}

// Config returns the schedule the engine was built with.
func (e *ScheduleEngine) Config() domain.ScheduleConfig {
	return e.cfg
}

// window is the last-train window [lastWindow, closureEnd] relevant to now.
type window struct {
	lastWindow time.Time
	closureEnd time.Time
	closed     bool // now falls in the unconditional closure hours
}

func (e *ScheduleEngine) windowAt(now time.Time) window {
	w := window{
		lastWindow: atTimeOfDay(now, e.cfg.LastWindowStart, 0),
		closureEnd: atTimeOfDay(now, e.cfg.ServiceEnd, 0),
	}
	switch h := now.Hour(); {
	case h >= rolloverHour:
		w.lastWindow = atTimeOfDay(now, e.cfg.LastWindowStart, 1)
		w.closureEnd = atTimeOfDay(now, e.cfg.ServiceEnd, 1)
	case h >= closureHour:
		w.closed = true
	}
	return w
}

// contains reports whether t is inside the last-train window, bounds included.
func (w window) contains(t time.Time) bool {
	return !t.Before(w.lastWindow) && !t.After(w.closureEnd)
}

// NextArrival reports whether the line is running at now and, if so, when
// the next train arrives and whether it is the last one of the night.
func (e *ScheduleEngine) NextArrival(now time.Time) domain.ArrivalResult {
	w := e.windowAt(now)
	if w.closed {
		return domain.ArrivalResult{Status: domain.ServiceClosed, Timezone: e.cfg.Timezone}
	}

	resume := atTimeOfDay(now, e.cfg.ServiceResume, 0)
	if now.After(w.closureEnd) && now.Before(resume) {
		return domain.ArrivalResult{Status: domain.ServiceClosed, Timezone: e.cfg.Timezone}
	}

	return domain.ArrivalResult{
		Status:         domain.ServiceOpen,
		NextArrival:    formatHM(now.Add(e.headway())),
		IsLast:         w.contains(now),
		HeadwayMinutes: e.cfg.HeadwayMinutes,
		Timezone:       e.cfg.Timezone,
	}
}

// ProjectArrivals lists the next count trains after now, one headway apart.
// Entry i is flagged last when the instant it is the next train for,
// now + (i-1) headways, lies in the last-train window; entry 1 therefore
// always agrees with NextArrival. The window is anchored once, on now.
// Projection ignores whether the line is closed at now.
func (e *ScheduleEngine) ProjectArrivals(now time.Time, count int) ([]domain.Arrival, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: arrival count must be at least 1, got %d", domain.ErrInvalidArgument, count)
	}

	w := e.windowAt(now)
	step := e.headway()
	out := make([]domain.Arrival, 0, count)
	from := now
	for i := 0; i < count; i++ {
		at := from.Add(step)
		out = append(out, domain.Arrival{
			Time:   formatHM(at),
			IsLast: w.contains(from),
		})
		from = at
	}
	return out, nil
}

func (e *ScheduleEngine) headway() time.Duration {
	return time.Duration(e.cfg.HeadwayMinutes) * time.Minute
}

// atTimeOfDay returns the instant at tod on now's calendar day plus addDays,
// in now's location.
func atTimeOfDay(now time.Time, tod domain.TimeOfDay, addDays int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+addDays, tod.Hour, tod.Minute, 0, 0, now.Location())
}

func formatHM(t time.Time) string {
	return t.Format("15:04")
}
