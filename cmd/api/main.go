package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/samirrijal/detour/internal/adapters/googlemaps"
	"github.com/samirrijal/detour/internal/adapters/http"
	natsadapter "github.com/samirrijal/detour/internal/adapters/nats"
	"github.com/samirrijal/detour/internal/adapters/postgres"
	"github.com/samirrijal/detour/internal/adapters/valkey"
	"github.com/samirrijal/detour/internal/core/ports"
	"github.com/samirrijal/detour/internal/core/usecases"
	"github.com/samirrijal/detour/internal/pkg/config"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/internal/pkg/metrics"
	"github.com/samirrijal/detour/internal/pkg/telemetry"
	"github.com/samirrijal/detour/internal/workflows"
)

func main() {
	cfg, err := config.Load("detour-api")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Server.SyncPlanning {
		if err := cfg.RequireMapsKey(); err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	deps := &http.Dependencies{DB: db}

	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, places results will not be cached", "error", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
	}

	var events ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer publisher.Close()
		events = publisher
		deps.NATS = publisher.Conn()
	}

	maps, err := googlemaps.New(googlemaps.Options{
		APIKey:  cfg.Maps.APIKey,
		BaseURL: cfg.Maps.BaseURL,
		Timeout: cfg.Maps.Timeout(),
	})
	if err != nil {
		slog.Error("maps client", "error", err)
		os.Exit(1)
	}
	var places ports.PlaceSearcher = maps
	if cache != nil {
		places = googlemaps.NewCachedPlaces(maps, cache, cfg.Valkey.NearbyTTL)
	}

	sampler := usecases.NewSampler(places, usecases.NewRanker(maps), nil, usecases.SamplerConfig{
		SponsorProbability: cfg.Sampler.SponsorProbability,
		SponsorRadiusMiles: cfg.Sampler.SponsorRadiusMiles,
		Damping:            cfg.Sampler.Damping,
	})

	users := usecases.NewUserService(postgres.NewUserRepo(db), postgres.NewSessionRepo(db), cfg.Auth.TokenTTL())
	tagRepo := postgres.NewTagRepo(db)
	sponsorRepo := postgres.NewSponsorRepo(db)

	deps.Users = users
	deps.Tags = usecases.NewTagService(tagRepo)
	deps.Sponsors = usecases.NewSponsorService(sponsorRepo)
	deps.Queries = usecases.NewQueryService(usecases.QueryServiceDeps{
		Queries:    postgres.NewQueryRepo(db),
		Stopovers:  postgres.NewStopoverRepo(db),
		Sponsors:   sponsorRepo,
		Tags:       tagRepo,
		Directions: maps,
		Events:     events,
		Sampler:    sampler,
	}, usecases.QueryDefaults{
		ThresholdMiles: cfg.Sampler.DefaultThresholdMiles,
		Categories:     cfg.Sampler.DefaultCategories,
	})

	if !cfg.Server.SyncPlanning {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    tlog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			slog.Error("temporal client", "error", err)
			os.Exit(1)
		}
		defer tc.Close()
		deps.Planner = workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	}

	go sweepSessions(ctx, users, 10*time.Minute)
	go recordPoolStats(ctx, db, 15*time.Second)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024,
		AppName:      "Detour API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.AllowOrigins, ", "),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "sync_planning", cfg.Server.SyncPlanning)
		if err := app.Listen(addr); err != nil {
			slog.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// sweepSessions drops expired bearer tokens until ctx is done.
func sweepSessions(ctx context.Context, users *usecases.UserService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := users.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions purged", "count", n)
			}
		}
	}
}

func recordPoolStats(ctx context.Context, db *postgres.DB, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		}
	}
}
