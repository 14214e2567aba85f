package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/detour/internal/adapters/googlemaps"
	natsadapter "github.com/samirrijal/detour/internal/adapters/nats"
	"github.com/samirrijal/detour/internal/adapters/postgres"
	"github.com/samirrijal/detour/internal/adapters/valkey"
	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/ports"
	"github.com/samirrijal/detour/internal/core/usecases"
	"github.com/samirrijal/detour/internal/pkg/config"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/internal/pkg/telemetry"
	"github.com/samirrijal/detour/internal/workflows"
)

func main() {
	cfg, err := config.Load("detour-planner")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.RequireMapsKey(); err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Error("nats publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

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
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, places results will not be cached", "error", err)
	} else {
		defer cache.Close()
		places = googlemaps.NewCachedPlaces(maps, cache, cfg.Valkey.NearbyTTL)
	}

	sampler := usecases.NewSampler(places, usecases.NewRanker(maps), nil, usecases.SamplerConfig{
		SponsorProbability: cfg.Sampler.SponsorProbability,
		SponsorRadiusMiles: cfg.Sampler.SponsorRadiusMiles,
		Damping:            cfg.Sampler.Damping,
	})
	queries := usecases.NewQueryService(usecases.QueryServiceDeps{
		Queries:    postgres.NewQueryRepo(db),
		Stopovers:  postgres.NewStopoverRepo(db),
		Sponsors:   postgres.NewSponsorRepo(db),
		Tags:       postgres.NewTagRepo(db),
		Directions: maps,
		Events:     publisher,
		Sampler:    sampler,
	}, usecases.QueryDefaults{
		ThresholdMiles: cfg.Sampler.DefaultThresholdMiles,
		Categories:     cfg.Sampler.DefaultCategories,
	})

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

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.PlanStopoversWorkflow)
	w.RegisterActivity(&workflows.PlanActivities{Planner: queries})

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Error("nats subscriber", "error", err)
		os.Exit(1)
	}
	defer subscriber.Close()

	starter := workflows.NewStarter(tc, cfg.Temporal.TaskQueue)
	err = subscriber.SubscribeQueryCreated(ctx, func(ctx context.Context, q *domain.Query) error {
		return starter.StartPlan(ctx, q.ID)
	})
	if err != nil {
		slog.Error("subscribe query created", "error", err)
		os.Exit(1)
	}

	if err := w.Start(); err != nil {
		slog.Error("worker start", "error", err)
		os.Exit(1)
	}
	slog.Info("planner worker started", "task_queue", cfg.Temporal.TaskQueue)

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping worker")
	w.Stop()
}
