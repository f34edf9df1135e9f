package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
)

// cleanupTimeout bounds release and announcement calls made after the
// processing context may already be cancelled.
const cleanupTimeout = 5 * time.Second

// Engine generates and persists the insights of one task.
type Engine interface {
	Generate(ctx context.Context, task domain.Task) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, task domain.Task) error

// Generate calls f(ctx, task).
func (f EngineFunc) Generate(ctx context.Context, task domain.Task) error {
	return f(ctx, task)
}

// Dependencies are the collaborators of a Consumer. Publisher and
// Subscriber must use different connections to the coordination store.
type Dependencies struct {
	Queue      coord.Queue
	Claims     coord.ClaimRegistry
	Publisher  coord.Publisher
	Subscriber coord.Subscriber
	Engine     Engine
	Channels   coord.Channels
}

func (d Dependencies) validate() error {
	switch {
	case d.Queue == nil:
		return errors.New("queue cannot be nil")
	case d.Claims == nil:
		return errors.New("claim registry cannot be nil")
	case d.Publisher == nil:
		return errors.New("publisher cannot be nil")
	case d.Subscriber == nil:
		return errors.New("subscriber cannot be nil")
	case d.Engine == nil:
		return errors.New("engine cannot be nil")
	}
	return nil
}

// Consumer runs the Idle → Popped → Claimed → Processing → Released cycle.
type Consumer struct {
	deps   Dependencies
	cfg    config.WorkerConfig
	holder string
	logger *slog.Logger

	// wait blocks for d or until ctx is done; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewConsumer creates a Consumer identified by holder in the claim registry.
func NewConsumer(deps Dependencies, cfg config.WorkerConfig, holder string, logger *slog.Logger) (*Consumer, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if holder == "" {
		return nil, errors.New("holder cannot be empty")
	}
	if cfg.LeaseTTL <= 0 {
		return nil, fmt.Errorf("lease TTL must be positive, got %s", cfg.LeaseTTL)
	}
	if cfg.GenerationTimeout <= 0 {
		return nil, fmt.Errorf("generation timeout must be positive, got %s", cfg.GenerationTimeout)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	switch cfg.DuplicatePolicy {
	case "":
		cfg.DuplicatePolicy = config.DuplicatePolicyDiscard
	case config.DuplicatePolicyDiscard, config.DuplicatePolicyRequeue:
	default:
		return nil, fmt.Errorf("unknown duplicate policy %q", cfg.DuplicatePolicy)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		deps:   deps,
		cfg:    cfg,
		holder: holder,
		logger: logger.With("component", "worker_consumer", "holder", holder),
		wait:   sleepContext,
	}, nil
}

// Holder returns the claim holder token of the consumer.
func (c *Consumer) Holder() string {
	return c.holder
}

// Run subscribes to wake-up notifications and runs one cycle per message
// until ctx is cancelled. Every PollInterval it reaps expired claims and
// drains whatever is queued. Run returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	sub, err := c.deps.Subscriber.Subscribe(ctx, c.deps.Channels.Notification)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.deps.Channels.Notification, err)
	}
	defer func() {
		if err := sub.Close(); err != nil {
			c.logger.Warn("failed to close wake-up subscription", "error", err)
		}
	}()

	c.logger.Info("worker consumer started",
		"channel", c.deps.Channels.Notification,
		"poll_interval", c.cfg.PollInterval.String(),
		"duplicate_policy", c.cfg.DuplicatePolicy)

	// Tasks queued while no worker was subscribed are only found by polling.
	c.backstop(ctx)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	messages := sub.Messages()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("worker consumer stopped")
			return nil

		case _, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			c.runCycle(ctx)

		case <-ticker.C:
			c.backstop(ctx)
		}
	}
}

func (c *Consumer) runCycle(ctx context.Context) {
	outcome, err := c.Cycle(ctx)
	if err != nil && ctx.Err() == nil {
		c.logger.Error("worker cycle failed",
			"outcome", outcome.String(),
			"error", err)
	}
}

// backstop reaps expired claims, then runs cycles until the queue is empty.
// At most as many cycles run as entries were queued when it started, so a
// requeued duplicate cannot keep it spinning.
func (c *Consumer) backstop(ctx context.Context) {
	if _, err := c.deps.Claims.ReapExpired(ctx); err != nil && ctx.Err() == nil {
		c.logger.Warn("failed to reap expired claims", "error", err)
	}

	pending, err := c.deps.Queue.Len(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("failed to read queue length", "error", err)
		}
		return
	}
	if pending == 0 {
		return
	}

	c.logger.Debug("draining queue", "pending", pending)
	for i := int64(0); i < pending && ctx.Err() == nil; i++ {
		outcome, err := c.Cycle(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("backstop cycle failed", "outcome", outcome.String(), "error", err)
			}
			if errors.Is(err, coord.ErrStore) {
				return
			}
		}
		if outcome == OutcomeEmpty {
			return
		}
	}
}

// Cycle performs one pass: pop at most one task, claim its key and process
// it. An empty queue yields OutcomeEmpty without error and without blocking.
func (c *Consumer) Cycle(ctx context.Context) (Outcome, error) {
	task, ok, err := c.deps.Queue.Pop(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedTask) {
			c.logger.Warn("dropped malformed queue entry", "error", err)
			return OutcomeMalformed, nil
		}
		return OutcomeEmpty, fmt.Errorf("failed to pop task: %w", err)
	}
	if !ok {
		return OutcomeEmpty, nil
	}

	log := c.logger.With("task", task.String(), "task_key", task.Key().String())
	log.Info("task popped from queue")

	claim, acquired, err := c.deps.Claims.TryClaim(ctx, task.Key(), c.holder, c.cfg.LeaseTTL)
	if err != nil {
		c.restore(ctx, task, log)
		return OutcomeFailed, fmt.Errorf("failed to claim %s: %w", task.Key(), err)
	}

	if !acquired {
		return c.handleDuplicate(ctx, task, log)
	}

	log.Info("task claimed", "lease_expires_at", claim.ExpiresAt)
	return c.process(ctx, task, claim, log)
}

func (c *Consumer) handleDuplicate(ctx context.Context, task domain.Task, log *slog.Logger) (Outcome, error) {
	if c.cfg.DuplicatePolicy != config.DuplicatePolicyRequeue {
		log.Info("task already being processed, discarding")
		return OutcomeDiscarded, nil
	}

	log.Info("task already being processed, requeueing",
		"backoff", c.cfg.RequeueBackoff.String())

	if err := c.wait(ctx, c.cfg.RequeueBackoff); err != nil {
		c.restore(ctx, task, log)
		return OutcomeRequeued, nil
	}

	if err := c.deps.Queue.Push(ctx, task); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to requeue %s: %w", task, err)
	}
	if err := c.deps.Publisher.Publish(ctx, c.deps.Channels.Notification, coord.WakeupMessage); err != nil {
		// The requeued task is still picked up by the next backstop drain.
		log.Warn("failed to publish wake-up for requeued task", "error", err)
	}
	return OutcomeRequeued, nil
}

// process runs the engine under the claim. The claim is released on every
// path out of here before the result is announced.
func (c *Consumer) process(ctx context.Context, task domain.Task, claim coord.Claim, log *slog.Logger) (Outcome, error) {
	leaseCtx, cancelLease := context.WithCancelCause(ctx)
	defer cancelLease(nil)

	genCtx, cancelGen := context.WithTimeout(leaseCtx, c.cfg.GenerationTimeout)
	defer cancelGen()

	hb := startHeartbeat(genCtx, cancelLease, c.deps.Claims, claim, c.cfg.LeaseTTL, log)

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		hb.stop()
		c.release(ctx, claim, log)
	}
	defer release()

	start := time.Now()
	genErr := c.generate(genCtx, task)
	if genErr == nil && hb.Lost() {
		log.Warn("generation finished after the claim lease was lost")
	}
	if genErr != nil && errors.Is(context.Cause(leaseCtx), coord.ErrClaimLost) {
		genErr = fmt.Errorf("%w: %v", coord.ErrClaimLost, genErr)
	}

	release()

	if genErr != nil && ctx.Err() != nil {
		log.Warn("shutdown interrupted insight generation", "error", genErr)
		c.restore(ctx, task, log)
		return OutcomeRequeued, nil
	}

	if genErr != nil {
		log.Error("insight generation failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"error", genErr)
		if !errors.Is(genErr, coord.ErrClaimLost) {
			_ = c.announce(ctx, c.deps.Channels.Failed, task, log)
		}
		return OutcomeFailed, fmt.Errorf("failed to generate insights for %s: %w", task, genErr)
	}

	log.Info("insight generation completed", "duration_ms", time.Since(start).Milliseconds())
	return OutcomeCompleted, c.announce(ctx, c.deps.Channels.Completed, task, log)
}

// generate calls the engine, converting a panic into ErrEnginePanic.
func (c *Consumer) generate(ctx context.Context, task domain.Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrEnginePanic, p)
		}
	}()
	return c.deps.Engine.Generate(ctx, task)
}

// release uses a context detached from ctx so that shutdown still frees the key.
func (c *Consumer) release(ctx context.Context, claim coord.Claim, log *slog.Logger) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := c.deps.Claims.Release(relCtx, claim); err != nil {
		log.Error("failed to release claim", "error", err)
		return
	}
	log.Debug("claim released")
}

func (c *Consumer) announce(ctx context.Context, channel string, task domain.Task, log *slog.Logger) error {
	payload, err := domain.EncodeTask(task)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := c.deps.Publisher.Publish(pubCtx, channel, string(payload)); err != nil {
		log.Error("failed to announce task result", "channel", channel, "error", err)
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	log.Debug("task result announced", "channel", channel)
	return nil
}

// restore puts a popped task back at the front of the queue after a store
// error or shutdown interrupted its handling.
func (c *Consumer) restore(ctx context.Context, task domain.Task, log *slog.Logger) {
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := c.deps.Queue.Restore(pushCtx, task); err != nil {
		log.Error("failed to restore task, task is lost", "error", err)
		return
	}
	log.Info("task restored to queue")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
