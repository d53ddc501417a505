package domain

// Board is what a rider sees for one station query. A closed board carries
// only Service and Timezone; an open board carries either NextArrival/IsLast
// (single arrival) or Arrivals (several).
type Board struct {
	Service     string    `json:"service,omitempty"`
	Station     string    `json:"station,omitempty"`
	Line        string    `json:"line,omitempty"`
	HeadwayMin  int       `json:"headwayMin,omitempty"`
	NextArrival string    `json:"nextArrival,omitempty"`
	IsLast      *bool     `json:"isLast,omitempty"`
	Timezone    string    `json:"tz"`
	Arrivals    []Arrival `json:"arrivals,omitempty"`
}

// ClosedBoard is the board shown while no trains run.
func ClosedBoard(tz string) Board {
	return Board{Service: string(ServiceClosed), Timezone: tz}
}

// Closed reports whether the board is the closed variant.
func (b Board) Closed() bool {
	return b.Service == string(ServiceClosed)
}
