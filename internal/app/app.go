// Package app assembles the gateway: config, storage, routing, billing,
// and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"routerx/config"
	"routerx/internal/observability"
	"routerx/internal/providers"
	"routerx/internal/server"
	"routerx/internal/store"
	"routerx/internal/usage"
	"routerx/internal/webhook"

	// Provider adapters register themselves with the factory.
	_ "routerx/internal/providers/anthropic"
	_ "routerx/internal/providers/gemini"
	_ "routerx/internal/providers/openai"
)

// App holds the assembled gateway and its resources.
type App struct {
	Server *server.Server
	Config *config.Config

	store         *store.Store
	redis         *redis.Client
	traceShutdown func(context.Context) error
	logger        *slog.Logger
}

// New builds the gateway from configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Warn("invalid redis url, provider health snapshots disabled", "error", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, provider health snapshots disabled", "error", err)
			redisClient = nil
		}
	}

	traceShutdown, err := observability.InitTracer(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		traceShutdown = nil
	}

	catalog := providers.Catalog(st.CatalogSource())
	if cfg.Routing.CatalogFile != "" {
		seed, err := providers.LoadCatalogFile(cfg.Routing.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load model catalog: %w", err)
		}
		// Database entries win; the file only covers gaps.
		catalog = providers.ChainCatalog{catalog, seed}
	}

	router := providers.NewRouter(catalog, st.RoutingSource(), providers.Options{
		EnableRealCalls:  cfg.Routing.EnableRealCalls,
		Health:           providers.NewHealthTracker(redisClient),
		FailureThreshold: cfg.Routing.BreakerFailureThreshold,
		SuccessThreshold: cfg.Routing.BreakerSuccessThreshold,
		Cooldown:         cfg.Routing.BreakerCooldown,
	})

	hooks := webhook.New(st, logger)
	recorder := usage.NewRecorder(st, hooks, logger)
	handler := server.NewHandler(router, st, st, recorder, logger)
	srv := server.New(handler, st, nil)

	return &App{
		Server:        srv,
		Config:        cfg,
		store:         st,
		redis:         redisClient,
		traceShutdown: traceShutdown,
		logger:        logger,
	}, nil
}

// Start runs the HTTP server. Blocks until the server stops.
func (a *App) Start() error {
	return a.Server.Start(":" + a.Config.Server.Port)
}

// Shutdown stops the server and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Server.Shutdown(ctx)
	if a.traceShutdown != nil {
		if terr := a.traceShutdown(ctx); terr != nil && err == nil {
			err = terr
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.store.Close()
	return err
}
