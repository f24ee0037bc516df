package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"todoapp/internal/config"
)

var ErrUnavailable = errors.New("lockout backend unavailable")

// recordFailure increments the counter and (re)arms its expiry on the first
// failure and again when the threshold is crossed, so a lockout always lasts
// the full cooldown.
var recordFailure = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or n == tonumber(ARGV[2]) then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// reserve refuses with -1 when the key is locked, otherwise counts the
// attempt as a failure up front. Reset gives the slot back on success.
var reserve = redis.NewScript(`
local n = tonumber(redis.call("GET", KEYS[1]) or "0")
if n >= tonumber(ARGV[2]) then
	return -1
end
n = redis.call("INCR", KEYS[1])
if n == 1 or n == tonumber(ARGV[2]) then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Guard counts failed logins per (username, ip) in Redis so every server
// instance sees the same counters.
type Guard struct {
	redis     redis.UniversalClient
	threshold int64
	cooldown  time.Duration
}

func NewGuard(client redis.UniversalClient, settings config.AuthSettings) *Guard {
	return &Guard{
		redis:     client,
		threshold: int64(settings.LockoutThreshold),
		cooldown:  settings.LockoutCooldown,
	}
}

func (g *Guard) key(username, ip string) string {
	return "lockout:" + username + "|" + ip
}

func (g *Guard) Failures(ctx context.Context, username, ip string) (int64, error) {
	n, err := g.redis.Get(ctx, g.key(username, ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (g *Guard) IsLocked(ctx context.Context, username, ip string) (bool, error) {
	n, err := g.Failures(ctx, username, ip)
	if err != nil {
		return false, err
	}
	return n >= g.threshold, nil
}

// RecordFailure returns the failure count after this attempt.
func (g *Guard) RecordFailure(ctx context.Context, username, ip string) (int64, error) {
	n, err := recordFailure.Run(ctx, g.redis, []string{g.key(username, ip)}, g.cooldown.Milliseconds(), g.threshold).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Reserve is IsLocked and RecordFailure as one script. It admits one attempt
// for (username, ip) and counts it as a failure until Reset is called, or
// returns false without counting once the pair is locked.
func (g *Guard) Reserve(ctx context.Context, username, ip string) (bool, error) {
	n, err := reserve.Run(ctx, g.redis, []string{g.key(username, ip)}, g.cooldown.Milliseconds(), g.threshold).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n >= 0, nil
}

func (g *Guard) Reset(ctx context.Context, username, ip string) error {
	if err := g.redis.Del(ctx, g.key(username, ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (g *Guard) Cooldown() time.Duration {
	return g.cooldown
}
