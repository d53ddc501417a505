package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/nextmetro/internal/core/domain"
)

// StationCount is the number of board queries for one station.
type StationCount struct {
	Station string `json:"station"`
	Queries int    `json:"queries"`
}

// QuerySnapshot summarizes the board queries seen since Since.
type QuerySnapshot struct {
	Since    time.Time      `json:"since"`
	Total    int            `json:"total"`
	Closed   int            `json:"closed"`
	Stations []StationCount `json:"stations"` // busiest first, ties by name
}

// QueryStats aggregates board query events. Safe for concurrent use.
type QueryStats struct {
	mu        sync.Mutex
	since     time.Time
	total     int
	closed    int
	byStation map[string]int
}

func NewQueryStats(now time.Time) *QueryStats {
	return &QueryStats{since: now, byStation: make(map[string]int)}
}

// Record counts one event. Its signature matches the NATS subscriber handler.
func (s *QueryStats) Record(_ context.Context, e *domain.BoardQueryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if e.Service == string(domain.ServiceClosed) {
		s.closed++
	}
	s.byStation[e.Station]++
	return nil
}

// Snapshot returns the current counts, keeping at most top stations
// (all of them when top <= 0).
func (s *QueryStats) Snapshot(top int) QuerySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(top)
}

// Rotate returns the snapshot and starts a new period at now.
func (s *QueryStats) Rotate(now time.Time, top int) QuerySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked(top)
	s.since = now
	s.total = 0
	s.closed = 0
	s.byStation = make(map[string]int)
	return snap
}

func (s *QueryStats) snapshotLocked(top int) QuerySnapshot {
	counts := make([]StationCount, 0, len(s.byStation))
	for name, n := range s.byStation {
		counts = append(counts, StationCount{Station: name, Queries: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Queries != counts[j].Queries {
			return counts[i].Queries > counts[j].Queries
		}
		return counts[i].Station < counts[j].Station
	})
	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}
	return QuerySnapshot{
		Since:    s.since,
		Total:    s.total,
		Closed:   s.closed,
		Stations: counts,
	}
}
