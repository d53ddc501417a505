package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nextmetro/internal/core/domain"
)

// SubjectPrefix is prepended to the normalized station name of every board
// query event, e.g. "metro.queries.M7.chatelet".
const SubjectPrefix = "metro.queries"

// Publisher implements ports.EventPublisher on core NATS. Board queries are
// fire-and-forget analytics, so no JetStream persistence is requested.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// NewPublisherWithConn wraps an existing connection.
func NewPublisherWithConn(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Subject returns the subject a board query for station on line is sent to.
func Subject(line, station string) string {
	key := domain.NormalizeStationName(station)
	if key == "" {
		key = "unknown"
	}
	// normalized names are lowercase alphanumerics separated by single spaces
	token := strings.ReplaceAll(key, " ", "_")
	return SubjectPrefix + "." + line + "." + token
}

func (p *Publisher) PublishBoardQuery(ctx context.Context, event *domain.BoardQueryEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(Subject(event.Line, event.Station), data); err != nil {
		return fmt.Errorf("publish board query: %w", err)
	}
	return nil
}

// Conn exposes the underlying connection, e.g. for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("nextmetro"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
