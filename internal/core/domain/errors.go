package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrUnknownStation   = errors.New("unknown station")
	ErrInvalidRange     = errors.New("value out of range")
	ErrRouteNotFound    = errors.New("route not found")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// UnknownStationError carries the catalog names closest to what was asked for.
type UnknownStationError struct {
	Query       string
	Suggestions []string
}

func (e *UnknownStationError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownStation, e.Query)
}

func (e *UnknownStationError) Unwrap() error {
	return ErrUnknownStation
}
