package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/sprint-insights/internal/coord"
)

// heartbeat renews a claim until stopped. When the registry reports the
// claim lost, or renewal keeps failing until the lease would expire before
// the next attempt, it cancels the processing context with coord.ErrClaimLost.
type heartbeat struct {
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
	lost   atomic.Bool
}

func startHeartbeat(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	claims coord.ClaimRegistry,
	claim coord.Claim,
	ttl time.Duration,
	logger *slog.Logger,
) *heartbeat {
	hb := &heartbeat{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	interval := ttl / 3
	if interval <= 0 {
		interval = time.Millisecond
	}

	expiresAt := claim.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(ttl)
	}

	go func() {
		defer close(hb.doneCh)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-hb.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				renewCtx, cancelRenew := context.WithTimeout(ctx, interval)
				renewed, err := claims.Renew(renewCtx, claim, ttl)
				cancelRenew()
				if err == nil {
					claim = renewed
					expiresAt = renewed.ExpiresAt
					if expiresAt.IsZero() {
						expiresAt = time.Now().Add(ttl)
					}
					continue
				}

				if errors.Is(err, coord.ErrClaimLost) {
					logger.Error("claim lease lost, cancelling generation",
						"task_key", claim.Key.String(),
						"holder", claim.Holder)
					hb.lost.Store(true)
					cancel(coord.ErrClaimLost)
					return
				}

				if ctx.Err() != nil {
					return
				}

				// The next attempt would come too late to keep the lease.
				if !time.Now().Add(interval).Before(expiresAt) {
					logger.Error("claim lease could not be renewed before expiry, cancelling generation",
						"task_key", claim.Key.String(),
						"holder", claim.Holder,
						"error", err)
					hb.lost.Store(true)
					cancel(fmt.Errorf("%w: lease of %s expired after failed renewals", coord.ErrClaimLost, claim.Key))
					return
				}

				logger.Warn("failed to renew claim lease",
					"task_key", claim.Key.String(),
					"error", err)
			}
		}
	}()

	return hb
}

// stop ends renewal and waits for the renewal goroutine to exit.
func (hb *heartbeat) stop() {
	hb.once.Do(func() { close(hb.stopCh) })
	<-hb.doneCh
}

// Lost reports whether the claim was lost while renewing.
func (hb *heartbeat) Lost() bool {
	return hb.lost.Load()
}
