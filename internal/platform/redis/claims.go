package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/sprint-insights/internal/coord"
	"github.com/phrazzld/sprint-insights/internal/domain"
)

// A claim is live while its lease key exists. The registry set mirrors the
// claimed keys so that readers can list them; a member without a lease key
// belongs to a holder that stopped renewing and may be reclaimed.
var (
	// KEYS[1] registry set, KEYS[2] lease key; ARGV[1] member, ARGV[2] holder, ARGV[3] ttl ms
	claimScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

	// KEYS[1] registry set, KEYS[2] lease key; ARGV[1] member, ARGV[2] holder, ARGV[3] ttl ms
	renewScript = goredis.NewScript(`
if redis.call('GET', KEYS[2]) == ARGV[2] then
	redis.call('PEXPIRE', KEYS[2], ARGV[3])
	redis.call('SADD', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

	// KEYS[1] registry set, KEYS[2] lease key; ARGV[1] member, ARGV[2] holder
	releaseScript = goredis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current == ARGV[2] or not current then
	redis.call('SREM', KEYS[1], ARGV[1])
	redis.call('DEL', KEYS[2])
	return 1
end
return 0
`)

	// KEYS[1] registry set, KEYS[2] lease key; ARGV[1] member
	isClaimedScript = goredis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 and redis.call('EXISTS', KEYS[2]) == 1 then
	return 1
end
return 0
`)

	// KEYS[1] registry set; ARGV[1] lease key prefix
	reapScript = goredis.NewScript(`
local removed = {}
for _, member in ipairs(redis.call('SMEMBERS', KEYS[1])) do
	if redis.call('EXISTS', ARGV[1] .. member) == 0 then
		redis.call('SREM', KEYS[1], member)
		table.insert(removed, member)
	end
end
return removed
`)
)

// ClaimRegistry implements coord.ClaimRegistry with leased claims.
type ClaimRegistry struct {
	client      goredis.UniversalClient
	setKey      string
	leasePrefix string
	logger      *slog.Logger
	now         func() time.Time
}

var _ coord.ClaimRegistry = (*ClaimRegistry)(nil)

// NewClaimRegistry creates a registry whose members live in setKey and whose
// leases live under leasePrefix+key.
func NewClaimRegistry(client goredis.UniversalClient, setKey, leasePrefix string, logger *slog.Logger) *ClaimRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimRegistry{
		client:      client,
		setKey:      setKey,
		leasePrefix: leasePrefix,
		logger:      logger.With("component", "redis_claim_registry"),
		now:         time.Now,
	}
}

func (r *ClaimRegistry) leaseKey(key domain.TaskKey) string {
	return r.leasePrefix + key.String()
}

// TryClaim acquires key for holder when no live lease exists.
func (r *ClaimRegistry) TryClaim(
	ctx context.Context,
	key domain.TaskKey,
	holder string,
	ttl time.Duration,
) (coord.Claim, bool, error) {
	if ttl < time.Millisecond {
		return coord.Claim{}, false, fmt.Errorf("claim ttl must be at least 1ms, got %s", ttl)
	}

	acquired, err := claimScript.Run(ctx, r.client,
		[]string{r.setKey, r.leaseKey(key)},
		key.String(), holder, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return coord.Claim{}, false, fmt.Errorf("%w: claim %s: %v", coord.ErrStore, key, err)
	}

	if acquired == 0 {
		return coord.Claim{}, false, nil
	}

	return coord.Claim{
		Key:       key,
		Holder:    holder,
		ExpiresAt: r.now().Add(ttl),
	}, true, nil
}

// Renew extends the lease if claim.Holder still owns it.
func (r *ClaimRegistry) Renew(ctx context.Context, claim coord.Claim, ttl time.Duration) (coord.Claim, error) {
	renewed, err := renewScript.Run(ctx, r.client,
		[]string{r.setKey, r.leaseKey(claim.Key)},
		claim.Key.String(), claim.Holder, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return claim, fmt.Errorf("%w: renew %s: %v", coord.ErrStore, claim.Key, err)
	}

	if renewed == 0 {
		return claim, fmt.Errorf("%w: %s is no longer held by %s", coord.ErrClaimLost, claim.Key, claim.Holder)
	}

	claim.ExpiresAt = r.now().Add(ttl)
	return claim, nil
}

// Release removes the claim unless another holder has taken the key over.
func (r *ClaimRegistry) Release(ctx context.Context, claim coord.Claim) error {
	released, err := releaseScript.Run(ctx, r.client,
		[]string{r.setKey, r.leaseKey(claim.Key)},
		claim.Key.String(), claim.Holder,
	).Int()
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", coord.ErrStore, claim.Key, err)
	}

	if released == 0 {
		r.logger.Warn("claim was taken over before release",
			"task_key", claim.Key.String(),
			"holder", claim.Holder)
	}
	return nil
}

// IsClaimed reports whether key is in the registry with a live lease.
func (r *ClaimRegistry) IsClaimed(ctx context.Context, key domain.TaskKey) (bool, error) {
	claimed, err := isClaimedScript.Run(ctx, r.client,
		[]string{r.setKey, r.leaseKey(key)},
		key.String(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: check claim %s: %v", coord.ErrStore, key, err)
	}
	return claimed == 1, nil
}

// ReapExpired drops registry members whose lease is gone.
func (r *ClaimRegistry) ReapExpired(ctx context.Context) ([]domain.TaskKey, error) {
	members, err := reapScript.Run(ctx, r.client, []string{r.setKey}, r.leasePrefix).StringSlice()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: reap %s: %v", coord.ErrStore, r.setKey, err)
	}

	keys := make([]domain.TaskKey, 0, len(members))
	for _, m := range members {
		keys = append(keys, domain.TaskKey(m))
	}

	if len(keys) > 0 {
		r.logger.Info("reaped expired claims", "count", len(keys))
	}
	return keys, nil
}
