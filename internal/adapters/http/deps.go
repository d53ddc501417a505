package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nextmetro/internal/adapters/valkey"
	"github.com/samirrijal/nextmetro/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Boards      *usecases.BoardService
	NATS        *nats.Conn    // optional, readiness only
	Cache       *valkey.Cache // optional, readiness only
	WSInterval  time.Duration // board push period for /ws; defaults to 30s
	OpenAPIPath string        // defaults to api/openapi.yaml
}
