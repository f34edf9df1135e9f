package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/events"
	"github.com/phrazzld/sprint-insights/internal/notifier"
	"github.com/phrazzld/sprint-insights/internal/platform/postgres"
	"github.com/phrazzld/sprint-insights/internal/platform/redis"
	"github.com/phrazzld/sprint-insights/internal/publisher"
	"github.com/phrazzld/sprint-insights/internal/push"
	"github.com/phrazzld/sprint-insights/internal/redact"
	"github.com/phrazzld/sprint-insights/internal/store"
)

// application holds the dependencies of the server process and releases
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	db        *sql.DB
	cmdClient *goredis.Client
	subClient *goredis.Client

	publisher *publisher.Publisher
	insights  store.InsightStore
	hub       *push.Hub
	notifier  *notifier.Notifier
}

// newApplication connects to Postgres and opens two Redis connections, one
// for commands and one reserved for the completion subscription.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %s", redact.Error(err))
	}
	app.db = db
	logger.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app.cmdClient, err = redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to connect command client: %w", err)
	}

	app.subClient, err = redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to connect subscriber client: %w", err)
	}
	logger.Info("coordination store connected", "addr", cfg.Redis.Addr)

	channels := coord.ChannelsFromConfig(cfg.Coordination)

	app.publisher = publisher.New(
		redis.NewQueue(app.cmdClient, channels.Queue, logger),
		redis.NewClaimRegistry(app.cmdClient, channels.ClaimSet, channels.LeasePrefix, logger),
		redis.NewPublisher(app.cmdClient),
		channels,
		logger,
	)
	app.insights = postgres.NewPostgresInsightStore(db)
	app.hub = push.NewHub(logger, nil)

	app.notifier, err = newEventPipeline(app.hub, redis.NewSubscriber(app.subClient), channels, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}

	return app, nil
}

// newEventPipeline connects completion notifications to the push hub.
func newEventPipeline(
	hub *push.Hub,
	subscriber coord.Subscriber,
	channels coord.Channels,
	logger *slog.Logger,
) (*notifier.Notifier, error) {
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(push.NewBroadcaster(hub, logger))

	n, err := notifier.New(subscriber, emitter, channels, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion notifier: %w", err)
	}
	return n, nil
}

// cleanup closes every connection that was opened. It is safe to call on a
// partially constructed application.
func (app *application) cleanup() {
	if app.hub != nil {
		app.hub.Close()
	}
	for name, client := range map[string]*goredis.Client{
		"command":    app.cmdClient,
		"subscriber": app.subClient,
	} {
		if client == nil {
			continue
		}
		if err := client.Close(); err != nil {
			app.logger.Error("failed to close redis client", "client", name, "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
