package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/generation"
	"github.com/phrazzld/sprint-insights/internal/insight"
	"github.com/phrazzld/sprint-insights/internal/platform/gemini"
	"github.com/phrazzld/sprint-insights/internal/platform/postgres"
	"github.com/phrazzld/sprint-insights/internal/platform/redis"
	"github.com/phrazzld/sprint-insights/internal/redact"
	"github.com/phrazzld/sprint-insights/internal/store"
	"github.com/phrazzld/sprint-insights/internal/worker"
)

// workerProcess holds the dependencies of the worker process.
type workerProcess struct {
	config *config.Config
	logger *slog.Logger

	db        *sql.DB
	cmdClient *goredis.Client
	subClient *goredis.Client

	pool *worker.Pool
}

func newWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*workerProcess, error) {
	w := &workerProcess{config: cfg, logger: logger}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %s", redact.Error(err))
	}
	w.db = db

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			w.cleanup()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	generator, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		w.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)

	w.cmdClient, err = redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		w.cleanup()
		return nil, fmt.Errorf("failed to connect command client: %w", err)
	}
	w.subClient, err = redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		w.cleanup()
		return nil, fmt.Errorf("failed to connect subscriber client: %w", err)
	}

	w.pool, err = newPool(cfg, w.cmdClient, w.subClient, generator, postgres.NewPostgresInsightStore(db), logger)
	if err != nil {
		w.cleanup()
		return nil, err
	}

	return w, nil
}

// newPool assembles the consumer pool from its collaborators. cmdClient and
// subClient must be distinct connections.
func newPool(
	cfg *config.Config,
	cmdClient, subClient goredis.UniversalClient,
	generator generation.TextGenerator,
	insights store.InsightStore,
	logger *slog.Logger,
) (*worker.Pool, error) {
	engine, err := insight.NewEngine(generator, insights, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create insight engine: %w", err)
	}

	channels := coord.ChannelsFromConfig(cfg.Coordination)
	deps := worker.Dependencies{
		Queue:      redis.NewQueue(cmdClient, channels.Queue, logger),
		Claims:     redis.NewClaimRegistry(cmdClient, channels.ClaimSet, channels.LeasePrefix, logger),
		Publisher:  redis.NewPublisher(cmdClient),
		Subscriber: redis.NewSubscriber(subClient),
		Engine:     engine,
		Channels:   channels,
	}

	pool, err := worker.NewPool(deps, cfg.Worker, worker.NewHolderID(cfg.Worker.InstanceName), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return pool, nil
}

// run starts the pool and blocks until ctx is cancelled, then waits for
// in-flight tasks to wind down.
func (w *workerProcess) run(ctx context.Context) error {
	if err := w.pool.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("worker started",
		"consumers", w.pool.Size(),
		"poll_interval", w.config.Worker.PollInterval.String(),
		"duplicate_policy", w.config.Worker.DuplicatePolicy)

	<-ctx.Done()
	w.logger.Info("shutdown signal received, stopping worker")
	w.pool.Stop()
	return nil
}

func (w *workerProcess) cleanup() {
	for name, client := range map[string]*goredis.Client{
		"command":    w.cmdClient,
		"subscriber": w.subClient,
	} {
		if client == nil {
			continue
		}
		if err := client.Close(); err != nil {
			w.logger.Error("failed to close redis client", "client", name, "error", err)
		}
	}
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			w.logger.Error("failed to close database connection", "error", err)
		}
	}
}
