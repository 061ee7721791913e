// internal/quota/gate.go
// Package quota enforces the per-user daily buy allowance. The window
// is the calendar day in the engine's local time zone, not a rolling
// 24 hours.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultDailyLimit is the standard-tier buy allowance per calendar day.
const DefaultDailyLimit = 3

// Identity names the caller whose allowance is being consulted. An
// unlimited-tier identity is never capped.
type Identity struct {
	UserID    string
	Unlimited bool
}

// Decision is the gate's answer for one prospective trade.
type Decision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// CountStore tracks per-user per-day trade counts. Keys combine the
// user and calendar day; counts for past days may be discarded at any
// time.
type CountStore interface {
	// Increment adds one to the key's count and returns the new value.
	Increment(ctx context.Context, key string) (int, error)

	// Get returns the key's count, zero when absent.
	Get(ctx context.Context, key string) (int, error)
}

// Gate decides whether a user's buy may proceed under the daily
// allowance.
type Gate struct {
	store     CountStore
	limit     int
	unlimited bool
	now       func() time.Time
	logger    *zap.Logger
}

// Config configures the quota gate.
type Config struct {
	Store CountStore
	// Limit of zero falls back to DefaultDailyLimit.
	Limit int
	// Unlimited disables the gate for every identity, for deployments
	// that own their wallet outright.
	Unlimited bool
	Logger    *zap.Logger
}

// NewGate creates a quota gate.
func NewGate(cfg *Config) *Gate {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Gate{
		store:     cfg.Store,
		limit:     limit,
		unlimited: cfg.Unlimited,
		now:       time.Now,
		logger:    cfg.Logger.Named("quota"),
	}
}

// key scopes a count to one user and the current local calendar day.
func (g *Gate) key(id Identity) string {
	user := id.UserID
	if user == "" {
		user = "default"
	}
	return user + ":" + g.now().Format("2006-01-02")
}

func (g *Gate) isUnlimited(id Identity) bool {
	return g.unlimited || id.Unlimited
}

// Check reports whether another trade fits the identity's allowance
// today. It does not consume the allowance; callers record after the
// trade settles.
func (g *Gate) Check(ctx context.Context, id Identity) Decision {
	if g.isUnlimited(id) {
		return Decision{Allowed: true, Unlimited: true}
	}

	count, err := g.store.Get(ctx, g.key(id))
	if err != nil {
		// An unreachable store must not freeze trading.
		g.logger.Warn("quota store read failed, allowing trade",
			zap.String("user", id.UserID), zap.Error(err))
		return Decision{Allowed: true, Remaining: g.limit}
	}

	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: remaining > 0, Remaining: remaining}
}

// Record consumes one unit of the identity's allowance for today.
// Failures are logged and swallowed: the trade already happened.
func (g *Gate) Record(ctx context.Context, id Identity) {
	if g.isUnlimited(id) {
		return
	}
	if _, err := g.store.Increment(ctx, g.key(id)); err != nil {
		g.logger.Warn("quota store write failed",
			zap.String("user", id.UserID), zap.Error(err))
	}
}
