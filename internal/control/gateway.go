// Package control assembles the gateway from its parts and manages their
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/SammyTourani/Pulse-sub001/internal/bricks"
	"github.com/SammyTourani/Pulse-sub001/internal/core/config"
	"github.com/SammyTourani/Pulse-sub001/internal/core/worker"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/auth"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/health"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/ingress"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/pipeline"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/budget"
	redisclient "github.com/SammyTourani/Pulse-sub001/internal/infra/redis"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/resilience"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/storage"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/storage/memory"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/storage/postgres"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

// Gateway is the main application struct that manages the gateway lifecycle.
type Gateway struct {
	cfg       Config
	server    *ingress.Server
	recorder  *storage.AsyncRecorder
	pruner    *worker.Pruner
	executor  *resilience.Executor
	endpoints []*upstream.Endpoint
	db        *postgres.DB
	redis     *redisclient.Client
	cancel    context.CancelFunc
	log       *slog.Logger
}

// Config holds the application configuration.
type Config struct {
	Port       int
	Secret     string
	Bricks     []config.BrickConfig
	Resilience resilience.Config
	Redis      redisclient.Config
	Database   postgres.Config
	Retention  config.RetentionConfig

	// MigrationsDir is where goose looks for migration files. Empty means
	// "migrations" relative to the working directory.
	MigrationsDir string
}

// NewGateway creates a Gateway instance with all dependencies initialized.
func NewGateway(cfg Config) (*Gateway, error) {
	log := slog.Default()

	// 1. Initialize Storage
	var repo storage.ExecutionRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		migrations := cfg.MigrationsDir
		if migrations == "" {
			migrations = "migrations"
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, migrations); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		repo = postgres.NewExecutionRepo(db)
		slog.Info("Using PostgreSQL execution log")
	} else {
		repo = memory.NewExecutionRepo()
		slog.Info("Using in-memory execution log")
	}
	recorder := storage.NewAsyncRecorder(repo, log)

	// 2. Initialize Redis and the usage budget
	limits := make(map[string]budget.Limits, len(cfg.Bricks))
	for _, b := range cfg.Bricks {
		limits[b.Dependency] = budget.Limits{
			DailyCalls:  b.DailyQuota,
			DailyTokens: b.DailyTokens,
		}
	}

	var redisClient *redisclient.Client
	var tracker budget.Tracker
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using in-process budget", "error", err)
		}
	}
	if redisClient != nil {
		tracker = budget.NewRedisTracker(redisClient, limits, log)
		slog.Info("Using Redis usage budget")
	} else {
		tracker = budget.NewMemoryTracker(limits)
	}

	// 3. Initialize the resilience executor shared by all bricks
	executor := resilience.NewExecutor(cfg.Resilience, tracker, log)

	// 4. Register bricks
	dispatcher := dispatch.NewDispatcher(log)
	endpoints := make([]*upstream.Endpoint, 0, len(cfg.Bricks))
	for _, b := range cfg.Bricks {
		endpoint := upstream.NewEndpoint(b.Dependency, b.URL, b.Timeout)
		endpoints = append(endpoints, endpoint)

		var unit dispatch.Unit
		switch b.Name {
		case "send-email":
			unit = bricks.NewMail(executor, endpoint, b.Dependency)
		case "create-event":
			unit = bricks.NewCalendar(executor, endpoint, b.Dependency)
		case "generate-text":
			unit = bricks.NewText(executor, endpoint, b.Dependency, tracker)
		case "send-sms":
			unit = bricks.NewSms(executor, endpoint, b.Dependency)
		default:
			return nil, fmt.Errorf("no implementation for brick %q", b.Name)
		}
		dispatcher.Register(unit, b.Timeout)
		slog.Info("Registered brick", "brick", b.Name, "dependency", b.Dependency, "timeout", b.Timeout)
	}

	// 5. Pipeline and HTTP surface
	verifier := auth.NewVerifier(cfg.Secret)
	pipe := pipeline.New(verifier, dispatcher, log)
	handler := ingress.NewHandler(pipe, recorder, log)

	// 6. Health monitor
	monitor := health.NewMonitor()
	if db != nil {
		monitor.AddCheck("database", db.Health)
	}
	if redisClient != nil {
		monitor.AddCheck("redis", redisClient.Ping)
	}
	monitor.SetCircuits(executor.States)

	server := ingress.NewServer(cfg.Port, handler, monitor)
	pruner := worker.NewPruner(cfg.Retention.Period, cfg.Retention.Interval, repo, log)

	return &Gateway{
		cfg:       cfg,
		server:    server,
		recorder:  recorder,
		pruner:    pruner,
		executor:  executor,
		endpoints: endpoints,
		db:        db,
		redis:     redisClient,
		log:       log,
	}, nil
}

// Start starts the gateway and all its components.
func (g *Gateway) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel

	go func() {
		if err := g.server.Start(); err != nil {
			g.log.Error("HTTP server failed", "error", err)
		}
	}()

	g.recorder.Start(runCtx)
	go g.pruner.Start(runCtx)

	if g.db != nil {
		g.db.StartMetricsCollector(runCtx)
	}

	g.log.Info("Gateway started", "port", g.cfg.Port, "bricks", len(g.cfg.Bricks))
	return nil
}

// Addr returns the address the HTTP listener is bound to. It blocks until
// Start has opened the listener.
func (g *Gateway) Addr() string {
	return g.server.Addr()
}

// Stop stops the gateway: the listener drains first so no new work arrives,
// then the background writers flush.
func (g *Gateway) Stop(ctx context.Context) error {
	g.log.Info("Stopping Gateway...")

	err := g.server.Stop(ctx)

	if g.cancel != nil {
		g.cancel()
		g.recorder.Wait()
	}

	for _, e := range g.endpoints {
		_ = e.Close()
	}
	if g.redis != nil {
		if cerr := g.redis.Close(); cerr != nil {
			g.log.Warn("Failed to close Redis", "error", cerr)
		}
	}
	if g.db != nil {
		if cerr := g.db.Close(); cerr != nil {
			g.log.Warn("Failed to close database", "error", cerr)
		}
	}

	return err
}
