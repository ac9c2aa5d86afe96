package trialstatus

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/async"
	"github.com/dmitrymomot/trialcycle/pkg/logger"
	"github.com/dmitrymomot/trialcycle/svc/trial"
)

// Update is delivered to the publisher each time a session's displayed
// snapshot changes.
type Update struct {
	Snapshot      Snapshot
	Authoritative bool
}

// Reconciler starts sessions that render cached trial state immediately and
// then replace it with the server-resolved state.
type Reconciler struct {
	cache    *Cache
	roles    RoleResolver
	fetcher  Fetcher
	governed []string
	publish  func(Update)
	logger   *slog.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithGovernedRoles replaces DefaultGovernedRoles.
func WithGovernedRoles(roles ...string) ReconcilerOption {
	return func(r *Reconciler) {
		r.governed = roles
	}
}

// WithPublisher receives every snapshot a session displays.
// It is called from the session's goroutines and must not block.
func WithPublisher(fn func(Update)) ReconcilerOption {
	return func(r *Reconciler) {
		r.publish = fn
	}
}

func WithReconcilerLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = l
	}
}

func NewReconciler(c *Cache, roles RoleResolver, fetcher Fetcher, opts ...ReconcilerOption) *Reconciler {
	if c == nil || roles == nil || fetcher == nil {
		panic("trialstatus: cache, role resolver and fetcher are required")
	}
	r := &Reconciler{
		cache:    c,
		roles:    roles,
		fetcher:  fetcher,
		governed: DefaultGovernedRoles,
		publish:  func(Update) {},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) governs(role string) bool {
	return slices.Contains(r.governed, role)
}

// Start publishes the cached snapshot for accountID, if any, before
// returning, then reconciles in the background. Errors in the background
// chain are logged and never returned. Cancelling ctx aborts the fetch.
func (r *Reconciler) Start(ctx context.Context, accountID uuid.UUID) *Session {
	s := &Session{accountID: accountID, publish: r.publish}

	if snap, ok := r.cache.Optimistic(ctx, accountID); ok {
		s.show(snap, false, false)
	}

	roleF := async.Async(ctx, accountID, r.roles.Role)
	viewF := async.Then(ctx, roleF, func(ctx context.Context, role string) (trial.StatusView, error) {
		if !r.governs(role) {
			r.logger.LogAttrs(ctx, slog.LevelDebug, "account role not governed by trial, skipping reconcile",
				logger.AccountID(accountID), logger.Role(role))
			return trial.StatusView{}, ErrNotGoverned
		}
		return r.fetcher.Fetch(ctx, accountID)
	})
	s.future = async.Async(ctx, viewF, func(ctx context.Context, f *async.Future[trial.StatusView]) (struct{}, error) {
		view, err := f.Await(ctx)
		r.settle(ctx, s, view, err)
		return struct{}{}, nil
	})
	return s
}

func (r *Reconciler) settle(ctx context.Context, s *Session, view trial.StatusView, err error) {
	log := r.logger.With(logger.AccountID(s.accountID))

	switch {
	case errors.Is(err, ErrNotGoverned):
		return
	case errors.Is(err, ErrNoSubscription):
		log.LogAttrs(ctx, slog.LevelInfo, "no subscription found for account")
		return
	case err != nil:
		log.LogAttrs(ctx, slog.LevelWarn, "failed to reconcile trial status, keeping cached state", logger.Error(err))
		return
	}

	s.settling.Lock()
	if s.Ended() {
		s.settling.Unlock()
		log.LogAttrs(ctx, slog.LevelDebug, "session ended before trial status resolved, discarding")
		return
	}
	snap, err := r.cache.SetAuthoritative(ctx, view)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "failed to persist trial status snapshot", logger.Error(err))
	}
	publish := s.apply(snap, true, !view.OnboardingCompleted)
	s.settling.Unlock()

	if publish {
		s.publish(Update{Snapshot: snap, Authoritative: true})
	}
}

// Session is the trial view of one account for the lifetime of a UI session.
type Session struct {
	accountID uuid.UUID
	publish   func(Update)
	future    *async.Future[struct{}]

	// settling covers the ended check, the cache write and the state
	// update of the server result.
	settling sync.Mutex

	mu            sync.Mutex
	current       Snapshot
	hasSnapshot   bool
	authoritative bool
	onboarding    bool
	ended         bool
}

func (s *Session) AccountID() uuid.UUID {
	return s.accountID
}

// Snapshot returns the displayed state and whether there is one.
// Use Authoritative to tell a server-confirmed value from a cached one.
func (s *Session) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasSnapshot
}

// Authoritative reports whether the displayed snapshot came from the server
// during this session.
func (s *Session) Authoritative() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authoritative
}

// Done is closed when background reconciliation has finished,
// successfully or not.
func (s *Session) Done() <-chan struct{} {
	return s.future.Done()
}

// Wait blocks until reconciliation finishes or ctx ends.
func (s *Session) Wait(ctx context.Context) error {
	_, err := s.future.Await(ctx)
	return err
}

// TakeOnboarding reports once whether the onboarding UI should be shown.
func (s *Session) TakeOnboarding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.onboarding
	s.onboarding = false
	return v
}

// End detaches the session. A server result that has not started settling
// is discarded: the cache is left as it was and nothing is published. A
// result already being written when End is called completes first, and End
// waits for that write.
func (s *Session) End() {
	s.settling.Lock()
	defer s.settling.Unlock()
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *Session) show(snap Snapshot, authoritative, onboarding bool) {
	if s.apply(snap, authoritative, onboarding) {
		s.publish(Update{Snapshot: snap, Authoritative: authoritative})
	}
}

// apply records snap as the displayed state and reports whether it should
// be published. Nothing changes once the session has ended.
func (s *Session) apply(snap Snapshot, authoritative, onboarding bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.current = snap
	s.hasSnapshot = true
	s.authoritative = authoritative
	s.onboarding = s.onboarding || onboarding
	return true
}
