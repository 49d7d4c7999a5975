package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/tournevent/reconciler/internal/config"
	"github.com/tournevent/reconciler/internal/recon"
	"github.com/tournevent/reconciler/internal/store"
	"github.com/tournevent/reconciler/internal/telemetry"
	"github.com/tournevent/reconciler/pkg/courier"
	"github.com/tournevent/reconciler/pkg/courier/canadapost"
	"github.com/tournevent/reconciler/pkg/courier/freightcom"
	"github.com/tournevent/reconciler/pkg/courier/purolator"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// dependencies holds the wired service graph shared by the serve and run
// commands.
type dependencies struct {
	cfg            *config.Config
	logger         *otelzap.Logger
	store          *store.Store
	registry       *courier.Registry
	orchestrator   *recon.Orchestrator
	redisClient    *redis.Client
	tracerShutdown func(context.Context) error
}

func initDependencies(ctx context.Context) (*dependencies, error) {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var tracer trace.Tracer
	tracerShutdown := func(context.Context) error { return nil }
	if cfg.OTELEnabled {
		t, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
		} else {
			tracer = t
			tracerShutdown = shutdown
		}
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, notifications will not be published", zap.Error(err))
		}
	}

	registry := initCourierRegistry(cfg, logger, tracer)
	metrics := telemetry.NewMetrics()
	emitter := recon.NewEmitter(st, redisClient, logger)
	reconciler := recon.NewReconciler(st, registry, emitter, logger, metrics, cfg.CarrierTimeout)
	orchestrator := recon.NewOrchestrator(st, reconciler, logger, metrics, cfg.Concurrency)

	return &dependencies{
		cfg:            cfg,
		logger:         logger,
		store:          st,
		registry:       registry,
		orchestrator:   orchestrator,
		redisClient:    redisClient,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Close flushes the logger and shuts down the tracer and Redis connection.
func (d *dependencies) Close(ctx context.Context) {
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			d.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.tracerShutdown(shutdownCtx); err != nil {
		d.logger.Warn("Failed to shut down tracer", zap.Error(err))
	}
	d.logger.Sync()
}

// initCourierRegistry registers a factory per enabled carrier. Factories
// close over process configuration; credentials arrive per tenant at
// reconcile time.
func initCourierRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *courier.Registry {
	registry := courier.NewRegistry()

	if cfg.FreightcomEnabled {
		registry.Register("freightcom", func(creds courier.Credentials) (courier.Tracker, error) {
			return freightcom.New(freightcom.Config{
				APIKey:  creds.Key,
				BaseURL: cfg.FreightcomBaseURL,
				Timeout: cfg.CarrierTimeout,
				UseMock: cfg.FreightcomUseMock,
			}, logger, tracer)
		})
	}

	if cfg.CanadaPostEnabled {
		registry.Register("canadapost", func(creds courier.Credentials) (courier.Tracker, error) {
			return canadapost.New(canadapost.Config{
				APIKey:  creds.Key,
				BaseURL: cfg.CanadaPostBaseURL,
				Timeout: cfg.CarrierTimeout,
				UseMock: cfg.CanadaPostUseMock,
			}, logger, tracer)
		})
	}

	if cfg.PurolatorEnabled {
		registry.Register("purolator", func(creds courier.Credentials) (courier.Tracker, error) {
			return purolator.New(purolator.Config{
				APIKey:  creds.Key,
				BaseURL: cfg.PurolatorBaseURL,
				Timeout: cfg.CarrierTimeout,
				UseMock: cfg.PurolatorUseMock,
			}, logger, tracer)
		})
	}

	return registry
}
