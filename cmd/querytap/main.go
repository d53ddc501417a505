package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/nextmetro/internal/adapters/nats"
	"github.com/samirrijal/nextmetro/internal/core/usecases"
	"github.com/samirrijal/nextmetro/internal/pkg/config"
	"github.com/samirrijal/nextmetro/internal/pkg/logging"
)

// querytap follows the board queries the API publishes on NATS and logs the
// busiest stations once per querytap.period (NEXTMETRO_QUERYTAP_PERIOD).
func main() {
	cfg, err := config.Load("nextmetro-querytap")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.NATS.URL == "" {
		log.Fatalf("nats.url (NEXTMETRO_NATS_URL) is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	stats := usecases.NewQueryStats(time.Now())
	if err := sub.SubscribeBoardQueries(ctx, cfg.Schedule.Line, "querytap", stats.Record); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	period := cfg.QueryTap.Period
	slog.Info("querytap started", "line", cfg.Schedule.Line, "period", period.String())

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case now := <-ticker.C:
			snap := stats.Rotate(now, cfg.QueryTap.Top)
			slog.Info("board queries",
				"since", snap.Since.Format(time.RFC3339),
				"total", snap.Total,
				"closed", snap.Closed,
				"top", snap.Stations,
			)
		case sig := <-quit:
			slog.Info("shutting down querytap", "signal", sig.String())
			return
		}
	}
}
