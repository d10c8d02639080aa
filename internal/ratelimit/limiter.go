// Package ratelimit decides whether a user may issue another request in the
// current window. Counters live in a Store so that several instances can share them.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store counts hits for a key within a fixed window.
type Store interface {
	// Increment adds one hit to key for the window starting at windowStart and
	// returns the hit count including this one. The counter expires after ttl.
	Increment(ctx context.Context, key string, windowStart time.Time, ttl time.Duration) (int64, error)
}

type Policy struct {
	Requests int
	Window   time.Duration
}

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

type Limiter struct {
	store  Store
	policy Policy
	logger *slog.Logger
}

func NewLimiter(store Store, policy Policy, logger *slog.Logger) (*Limiter, error) {
	if policy.Requests <= 0 {
		return nil, fmt.Errorf("rate limit requests must be positive, got %d", policy.Requests)
	}
	if policy.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", policy.Window)
	}
	return &Limiter{store: store, policy: policy, logger: logger}, nil
}

// Allow records a request by userID at now and reports whether it fits the policy.
// A failing store lets the request through.
func (l *Limiter) Allow(ctx context.Context, userID uint, now time.Time) (Decision, error) {
	windowStart := now.Truncate(l.policy.Window)
	resetAt := windowStart.Add(l.policy.Window)

	count, err := l.store.Increment(ctx, windowKey(userID, windowStart), windowStart, l.policy.Window)
	if err != nil {
		l.logger.Warn("Rate limit store unavailable, allowing request",
			"user_id", userID,
			"error", err)
		return Decision{Allowed: true, Limit: l.policy.Requests, Remaining: l.policy.Requests, ResetAt: resetAt}, err
	}

	remaining := l.policy.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}
	decision := Decision{
		Allowed:   count <= int64(l.policy.Requests),
		Limit:     l.policy.Requests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	if !decision.Allowed {
		decision.RetryAfter = resetAt.Sub(now)
	}
	return decision, nil
}

func windowKey(userID uint, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%d:%d", userID, windowStart.Unix())
}
