package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/sprint-insights/internal/config"
)

const (
	minRestartDelay = time.Second
	maxRestartDelay = 30 * time.Second
)

// Pool runs several consumers in one process. Each consumer has its own
// wake-up subscription and claim holder token.
type Pool struct {
	consumers []*Consumer
	logger    *slog.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
}

// NewPool creates cfg.Concurrency consumers sharing deps. Holder tokens are
// holderPrefix-0, holderPrefix-1, and so on.
func NewPool(deps Dependencies, cfg config.WorkerConfig, holderPrefix string, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	count := cfg.Concurrency
	if count <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.Concurrency,
			"default_count", 1)
		count = 1
	}

	consumers := make([]*Consumer, 0, count)
	for i := 0; i < count; i++ {
		c, err := NewConsumer(deps, cfg, fmt.Sprintf("%s-%d", holderPrefix, i), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer %d: %w", i, err)
		}
		consumers = append(consumers, c)
	}

	return &Pool{
		consumers: consumers,
		logger:    logger.With("component", "worker_pool"),
	}, nil
}

// Size returns the number of consumers.
func (p *Pool) Size() int {
	return len(p.consumers)
}

// Start launches every consumer. A consumer whose Run fails is restarted
// with exponential backoff until the pool stops.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return errors.New("worker pool already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	for _, c := range p.consumers {
		p.wg.Add(1)
		go p.supervise(runCtx, c)
	}

	p.logger.Info("worker pool started", "consumers", len(p.consumers))
	return nil
}

// Stop cancels every consumer and waits for in-flight cycles to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	p.logger.Info("stopping worker pool")
	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) supervise(ctx context.Context, c *Consumer) {
	defer p.wg.Done()

	delay := minRestartDelay
	for {
		err := c.Run(ctx)
		if ctx.Err() != nil {
			return
		}

		p.logger.Error("worker consumer exited, restarting",
			"holder", c.Holder(),
			"delay", delay.String(),
			"error", err)

		if sleepContext(ctx, delay) != nil {
			return
		}
		delay *= 2
		if delay > maxRestartDelay {
			delay = maxRestartDelay
		}
	}
}
