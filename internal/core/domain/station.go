package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Station is a stop on the served line.
type Station struct {
	Name string `json:"name"`
	Line string `json:"line"`
}

// M7Stations lists the stations of Paris metro line 7, north to south,
// Villejuif branch before the Ivry branch.
var M7Stations = []string{
	"La Courneuve–8 Mai 1945",
	"Fort d'Aubervilliers",
	"Aubervilliers–Pantin–Quatre Chemins",
	"Porte de la Villette",
	"Corentin Cariou",
	"Crimée",
	"Riquet",
	"Stalingrad",
	"Louis Blanc",
	"Château-Landon",
	"Gare de l'Est",
	"Poissonnière",
	"Cadet",
	"Le Peletier",
	"Chaussée d'Antin–La Fayette",
	"Opéra",
	"Pyramides",
	"Palais Royal–Musée du Louvre",
	"Pont Neuf",
	"Châtelet",
	"Pont Marie",
	"Sully–Morland",
	"Jussieu",
	"Place Monge",
	"Censier–Daubenton",
	"Les Gobelins",
	"Place d'Italie",
	"Tolbiac",
	"Maison Blanche",
	"Le Kremlin-Bicêtre",
	"Villejuif–Léo Lagrange",
	"Villejuif–Paul Vaillant-Couturier",
	"Villejuif–Louis Aragon",
	"Porte d'Italie",
	"Porte de Choisy",
	"Porte d'Ivry",
	"Pierre et Marie Curie",
	"Mairie d'Ivry",
}

// StationCatalog is a fixed, read-only set of station names matched without
// regard to case, accents or punctuation.
type StationCatalog struct {
	line     string
	stations []Station
	keys     []string // normalized, parallel to stations
	byKey    map[string]int
}

// NewStationCatalog builds a catalog for one line. Duplicate names (after
// normalization) keep their first occurrence.
func NewStationCatalog(line string, names []string) *StationCatalog {
	c := &StationCatalog{
		line:  line,
		byKey: make(map[string]int, len(names)),
	}
	for _, n := range names {
		key := NormalizeStationName(n)
		if key == "" {
			continue
		}
		if _, dup := c.byKey[key]; dup {
			continue
		}
		c.byKey[key] = len(c.stations)
		c.stations = append(c.stations, Station{Name: n, Line: line})
		c.keys = append(c.keys, key)
	}
	return c
}

// Line returns the line every station in the catalog belongs to.
func (c *StationCatalog) Line() string { return c.line }

// Len returns the number of stations.
func (c *StationCatalog) Len() int { return len(c.stations) }

// All returns a copy of the catalog in declaration order.
func (c *StationCatalog) All() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Lookup resolves a user-supplied name to its canonical station.
func (c *StationCatalog) Lookup(name string) (Station, bool) {
	i, ok := c.byKey[NormalizeStationName(name)]
	if !ok {
		return Station{}, false
	}
	return c.stations[i], true
}

// Suggest returns up to limit canonical names resembling query: names starting
// with it first, then names containing it, then names it contains. An empty
// query returns the head of the catalog. The result is never nil.
func (c *StationCatalog) Suggest(query string, limit int) []string {
	out := make([]string, 0, limit)
	if limit <= 0 {
		return out
	}
	q := NormalizeStationName(query)

	seen := make(map[int]bool)
	pass := func(match func(key string) bool) {
		for i, key := range c.keys {
			if len(out) >= limit {
				return
			}
			if seen[i] || !match(key) {
				continue
			}
			seen[i] = true
			out = append(out, c.stations[i].Name)
		}
	}

	if q == "" {
		pass(func(string) bool { return true })
		return out
	}
	pass(func(key string) bool { return strings.HasPrefix(key, q) })
	pass(func(key string) bool { return strings.Contains(key, q) })
	pass(func(key string) bool { return strings.Contains(q, key) })
	return out
}

// NormalizeStationName folds case and accents and collapses every run of
// non-alphanumeric characters into a single space.
func NormalizeStationName(s string) string {
	// transform.Chain keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
