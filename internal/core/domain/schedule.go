package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultServiceResume is when the first train of the morning runs. It is not
// configurable.
var DefaultServiceResume = TimeOfDay{Hour: 5, Minute: 30}

// TimeOfDay is a wall-clock hour and minute, independent of any date.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseTimeOfDay parses "HH:MM" (24-hour). Single-digit hours are accepted.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	if !digits(hh, 1, 2) {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad hour", s)
	}
	if !digits(mm, 2, 2) {
		return TimeOfDay{}, fmt.Errorf("time of day %q: bad minute", s)
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q: out of range", s)
	}
	return t, nil
}

// digits reports whether s is lo to hi ASCII digits long.
func digits(s string, lo, hi int) bool {
	if len(s) < lo || len(s) > hi {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Valid reports whether the hour is 0-23 and the minute 0-59.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ScheduleConfig is the synthetic timetable every station shares.
// It is built once at startup and never mutated.
type ScheduleConfig struct {
	HeadwayMinutes  int       `json:"headway_minutes"`
	LastWindowStart TimeOfDay `json:"last_window_start"`
	ServiceEnd      TimeOfDay `json:"service_end"`
	ServiceResume   TimeOfDay `json:"service_resume"`
	Timezone        string    `json:"timezone"` // label only, no conversion
	Line            string    `json:"line"`
}

// Validate checks the invariants the schedule engine relies on.
func (c ScheduleConfig) Validate() error {
	var errs []string
	if c.HeadwayMinutes < 1 {
		errs = append(errs, fmt.Sprintf("headway must be at least 1 minute, got %d", c.HeadwayMinutes))
	}
	if !c.LastWindowStart.Valid() {
		errs = append(errs, "last window start is not a valid time of day")
	}
	if !c.ServiceEnd.Valid() {
		errs = append(errs, "service end is not a valid time of day")
	}
	if !c.ServiceResume.Valid() {
		errs = append(errs, "service resume is not a valid time of day")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(errs, "; "))
	}
	return nil
}

// ServiceStatus tags an ArrivalResult.
type ServiceStatus string

const (
	ServiceOpen   ServiceStatus = "open"
	ServiceClosed ServiceStatus = "closed"
)

// ArrivalResult is the answer to "when is the next train" at one instant.
// NextArrival, IsLast and HeadwayMinutes are only meaningful when Status is
// ServiceOpen.
type ArrivalResult struct {
	Status         ServiceStatus `json:"status"`
	NextArrival    string        `json:"next_arrival,omitempty"` // HH:MM
	IsLast         bool          `json:"is_last"`
	HeadwayMinutes int           `json:"headway_minutes,omitempty"`
	Timezone       string        `json:"timezone"`
}

// Closed reports whether the result is the closed variant.
func (r ArrivalResult) Closed() bool {
	return r.Status == ServiceClosed
}

// Arrival is one projected train.
type Arrival struct {
	Time   string `json:"time"` // HH:MM
	IsLast bool   `json:"isLast"`
}
