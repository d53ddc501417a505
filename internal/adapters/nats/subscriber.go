package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/nextmetro/internal/core/domain"
)

// Subscriber consumes board query events published by Publisher.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeBoardQueries delivers every board query on line ("*" for all
// lines) to handler. Subscribers sharing queue split the stream between them;
// an empty queue gives each subscriber every event.
func (s *Subscriber) SubscribeBoardQueries(ctx context.Context, line, queue string, handler func(ctx context.Context, e *domain.BoardQueryEvent) error) error {
	if line == "" {
		line = "*"
	}
	subject := SubjectPrefix + "." + line + ".>"

	cb := func(msg *nats.Msg) {
		e, err := DecodeBoardQuery(msg.Data)
		if err != nil {
			slog.Warn("drop malformed board query", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, e); err != nil {
			slog.Warn("board query handler failed", "subject", msg.Subject, "error", err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if queue != "" {
		sub, err = s.conn.QueueSubscribe(subject, queue, cb)
	} else {
		sub, err = s.conn.Subscribe(subject, cb)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// DecodeBoardQuery parses one event payload.
func DecodeBoardQuery(data []byte) (*domain.BoardQueryEvent, error) {
	var e domain.BoardQueryEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode board query: %w", err)
	}
	if e.Station == "" {
		return nil, fmt.Errorf("decode board query: missing station")
	}
	return &e, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
