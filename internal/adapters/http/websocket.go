package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/pkg/metrics"
)

const defaultWSInterval = 30 * time.Second

// wsMessage is sent from client to subscribe/unsubscribe to a station board.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Station string `json:"station"` // required for subscribe
	N       int    `json:"n"`       // arrivals per push, default 1
}

// wsBoard is one pushed frame.
type wsBoard struct {
	Type  string        `json:"type"` // always "board"
	Board *domain.Board `json:"board"`
}

// WebSocketHandler returns a handler that streams a station board to the
// client. Clients send JSON: {"action":"subscribe","station":"Pont Marie","n":3}
// and receive the board immediately and then every WSInterval until they
// unsubscribe or disconnect. A new subscribe replaces the previous one.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	interval := deps.WSInterval
	if interval <= 0 {
		interval = defaultWSInterval
	}

	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var (
			writeMu sync.Mutex
			subMu   sync.Mutex
			current *wsMessage
		)

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			writeMu.Lock()
			defer writeMu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// push re-sends the board for sub, or the error body if the query is bad.
		// Periodic pushes are not rider queries, so they publish no event.
		push := func(sub wsMessage) error {
			board, err := deps.Boards.RefreshBoard(ctx, sub.Station, sub.N)
			if err != nil {
				return writeJSON(wsErrorBody(err))
			}
			return writeJSON(wsBoard{Type: "board", Board: board})
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					subMu.Lock()
					sub := current
					subMu.Unlock()

					if sub == nil {
						writeMu.Lock()
						err := c.WriteMessage(websocket.PingMessage, nil)
						writeMu.Unlock()
						if err != nil {
							return
						}
						continue
					}
					if err := push(*sub); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				m.Station = strings.TrimSpace(m.Station)
				if m.N == 0 {
					m.N = 1
				}
				// validate before replacing the active subscription
				board, err := deps.Boards.Board(ctx, m.Station, m.N)
				if err != nil {
					_ = writeJSON(wsErrorBody(err))
					continue
				}
				sub := m
				subMu.Lock()
				current = &sub
				subMu.Unlock()
				_ = writeJSON(map[string]string{"status": "subscribed", "station": board.Station})
				_ = writeJSON(wsBoard{Type: "board", Board: board})

			case "unsubscribe":
				subMu.Lock()
				had := current != nil
				current = nil
				subMu.Unlock()
				if had {
					_ = writeJSON(map[string]string{"status": "unsubscribed"})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed"})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}

func wsErrorBody(err error) interface{} {
	var unknown *domain.UnknownStationError
	switch {
	case errors.As(err, &unknown):
		suggestions := unknown.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		return map[string]interface{}{"error": msgUnknownStation, "suggestions": suggestions}
	case errors.Is(err, domain.ErrMissingParameter):
		return map[string]string{"error": msgStationRequired}
	case errors.Is(err, domain.ErrInvalidRange):
		return map[string]string{"error": msgCountRange}
	default:
		return map[string]string{"error": "internal error"}
	}
}
