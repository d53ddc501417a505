package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/nextmetro/internal/adapters/http"
	natsadapter "github.com/samirrijal/nextmetro/internal/adapters/nats"
	"github.com/samirrijal/nextmetro/internal/adapters/valkey"
	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/core/ports"
	"github.com/samirrijal/nextmetro/internal/core/usecases"
	"github.com/samirrijal/nextmetro/internal/pkg/config"
	"github.com/samirrijal/nextmetro/internal/pkg/logging"
	"github.com/samirrijal/nextmetro/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("nextmetro-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Schedule
	schedule, err := cfg.ScheduleConfig()
	if err != nil {
		log.Fatalf("schedule: %v", err)
	}
	engine, err := usecases.NewScheduleEngine(schedule)
	if err != nil {
		log.Fatalf("schedule: %v", err)
	}
	clk, err := cfg.Clock()
	if err != nil {
		log.Fatalf("clock: %v", err)
	}
	if cfg.Schedule.MockTime != "" {
		slog.Warn("clock pinned", "mock_time", cfg.Schedule.MockTime)
	}
	catalog := domain.NewStationCatalog(cfg.Schedule.Line, domain.M7Stations)

	deps := &http.Dependencies{
		WSInterval: time.Duration(cfg.Server.WSInterval) * time.Second,
	}

	// Optional backends. Interfaces stay untyped nil when a backend is off.
	var (
		cachePort ports.CacheService
		pubPort   ports.EventPublisher
	)

	if cfg.Valkey.Addr != "" {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer cache.Close()
			cachePort = cache
			deps.Cache = cache
		}
	}

	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			pubPort = pub
			deps.NATS = pub.Conn()
		}
	}

	deps.Boards = usecases.NewBoardService(engine, catalog, clk, cachePort, pubPort)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "nextmetro",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting",
			"addr", addr,
			"line", schedule.Line,
			"headway_min", schedule.HeadwayMinutes,
			"last_window_start", schedule.LastWindowStart.String(),
			"service_end", schedule.ServiceEnd.String(),
			"tz", schedule.Timezone,
		)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
