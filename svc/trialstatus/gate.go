package trialstatus

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/pkg/subscription"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// Policy decides whether feature may be used given server-resolved state.
type Policy func(view trial.StatusView, feature string, usage int64) bool

// RequireActive allows any feature while the account is in trial or paid.
func RequireActive(view trial.StatusView, _ string, _ int64) bool {
	return view.IsActive
}

// TrialLimits applies RequireActive and, during the trial only, caps usage
// of the listed features. Features without a limit are unrestricted.
func TrialLimits(limits map[string]int64) Policy {
	return func(view trial.StatusView, feature string, usage int64) bool {
		if !view.IsActive {
			return false
		}
		if view.Status != subscription.StatusTrial {
			return true
		}
		limit, ok := limits[feature]
		return !ok || usage < limit
	}
}

// Gate answers access questions from server-resolved state only.
// Any failure to obtain that state denies access.
type Gate struct {
	fetcher Fetcher
	policy  Policy
	cache   *Cache
	logger  *slog.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateCache refreshes c with every state the gate fetches.
func WithGateCache(c *Cache) GateOption {
	return func(g *Gate) {
		g.cache = c
	}
}

func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

func NewGate(fetcher Fetcher, policy Policy, opts ...GateOption) *Gate {
	if fetcher == nil || policy == nil {
		panic("trialstatus: fetcher and policy are required")
	}
	g := &Gate{fetcher: fetcher, policy: policy, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow fetches the account state and applies the policy.
func (g *Gate) Allow(ctx context.Context, accountID uuid.UUID, feature string, usage int64) bool {
	log := g.logger.With(logger.AccountID(accountID), logger.Feature(feature))

	view, err := g.fetcher.Fetch(ctx, accountID)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "trial status unavailable, denying access", logger.Error(err))
		return false
	}

	if g.cache != nil {
		if _, err := g.cache.SetAuthoritative(ctx, view); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "failed to persist trial status snapshot", logger.Error(err))
		}
	}

	allowed := g.policy(view, feature, usage)
	if !allowed {
		log.LogAttrs(ctx, slog.LevelInfo, "access denied by trial policy", logger.Status(string(view.Status)))
	}
	return allowed
}
