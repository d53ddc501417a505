package domain

import "time"

// BoardQueryEvent is emitted each time a rider asks for a station board.
type BoardQueryEvent struct {
	Time    time.Time `json:"time"`
	Station string    `json:"station"`
	Line    string    `json:"line"`
	Count   int       `json:"count"`
	Service string    `json:"service"` // "open" | "closed"
}
