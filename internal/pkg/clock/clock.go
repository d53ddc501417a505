// Package clock supplies "now" to request handlers so that the schedule can be
// pinned to a fixed time of day for demos and tests.
package clock

import (
	"fmt"
	"time"

	"github.com/samirrijal/nextmetro/internal/core/domain"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// Real reads the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always reports today's date at a pinned hour and minute. The date
// comes from the wall clock so that day-rollover logic still sees a real
// calendar day.
type Fixed struct {
	At  domain.TimeOfDay
	Loc *time.Location
	// today returns the current date; defaults to time.Now.
	today func() time.Time
}

// NewFixed pins the clock to at in loc (time.Local when nil).
func NewFixed(at domain.TimeOfDay, loc *time.Location) *Fixed {
	if loc == nil {
		loc = time.Local
	}
	return &Fixed{At: at, Loc: loc, today: time.Now}
}

func (f *Fixed) Now() time.Time {
	today := f.today
	if today == nil {
		today = time.Now
	}
	d := today().In(f.Loc)
	return time.Date(d.Year(), d.Month(), d.Day(), f.At.Hour, f.At.Minute, 0, 0, f.Loc)
}

// FromOverride returns a Fixed clock for a non-empty "HH:MM" override and the
// real clock otherwise. A malformed override is an error so that it surfaces
// at startup.
func FromOverride(override string) (Clock, error) {
	if override == "" {
		return Real{}, nil
	}
	at, err := domain.ParseTimeOfDay(override)
	if err != nil {
		return nil, fmt.Errorf("mock time: %w", err)
	}
	return NewFixed(at, nil), nil
}
