package ports

import "github.com/samirrijal/nextmetro/internal/core/domain"

// StationDirectory resolves and suggests station names.
type StationDirectory interface {
	Line() string
	All() []domain.Station
	Lookup(name string) (domain.Station, bool)
	Suggest(query string, limit int) []string
}
