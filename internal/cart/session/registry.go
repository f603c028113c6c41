package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	"github.com/dwikikusuma/tenant-cart/internal/observability"
)

var ErrSessionRequired = errors.New("session id is required")

// StoreFactory returns the persistence slot for one shopper session.
type StoreFactory func(sessionID string) app.CollectionStore

// ListenerFactory builds an extra listener attached to every opened store.
type ListenerFactory func(sessionID string) app.Listener

type entry struct {
	store    *app.Store
	lastUsed time.Time
	pins     int
}

// Registry keeps one cart store per shopper session, opening it from
// storage on first use.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*entry
	slots     StoreFactory
	listeners []ListenerFactory
	log       *slog.Logger
	now       func() time.Time
	flushers  int
}

type Option func(*Registry)

func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

func WithListener(f ListenerFactory) Option {
	return func(r *Registry) {
		if f != nil {
			r.listeners = append(r.listeners, f)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithFlushConcurrency bounds how many sessions are flushed at once.
func WithFlushConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.flushers = n
		}
	}
}

func NewRegistry(slots StoreFactory, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		slots:    slots,
		log:      slog.Default(),
		now:      time.Now,
		flushers: 8,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "session_registry")
	return r
}

func (r *Registry) Open(ctx context.Context, sessionID string) (*app.Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(ctx, sessionID).store, nil
}

// Acquire opens the session and pins it against eviction until release is
// called. Long-lived watchers use it so they never observe a stale store.
func (r *Registry) Acquire(ctx context.Context, sessionID string) (store *app.Store, release func(), err error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, nil, ErrSessionRequired
	}

	r.mu.Lock()
	e := r.openLocked(ctx, sessionID)
	e.pins++
	r.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			r.mu.Lock()
			e.pins--
			e.lastUsed = r.now()
			r.mu.Unlock()
		})
	}
	return e.store, release, nil
}

func (r *Registry) openLocked(ctx context.Context, sessionID string) *entry {
	if e, ok := r.sessions[sessionID]; ok {
		e.lastUsed = r.now()
		return e
	}

	store := app.Open(ctx, r.slots(sessionID), app.WithLogger(r.log.With("session", sessionID)))
	for _, f := range r.listeners {
		if fn := f(sessionID); fn != nil {
			store.Subscribe(fn)
		}
	}

	e := &entry{store: store, lastUsed: r.now()}
	r.sessions[sessionID] = e
	observability.OpenSessions.Inc()
	r.log.Debug("session opened", slog.String("session", sessionID))
	return e
}

// Facade opens the session and wraps it for UI-facing callers.
func (r *Registry) Facade(ctx context.Context, sessionID string) (*app.Facade, error) {
	store, err := r.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return app.NewFacade(store), nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Evict flushes and drops sessions idle for longer than idle. Sessions whose
// flush fails stay loaded so no change is lost.
func (r *Registry) Evict(ctx context.Context, idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	stale := make(map[string]*app.Store)
	for id, e := range r.sessions {
		if e.pins == 0 && e.lastUsed.Before(cutoff) {
			stale[id] = e.store
		}
	}
	r.mu.Unlock()

	evicted := 0
	for id, store := range stale {
		if err := store.Close(ctx); err != nil {
			r.log.Warn("idle session flush failed, keeping it loaded",
				slog.String("session", id),
				slog.Any("err", err),
			)
			continue
		}

		r.mu.Lock()
		if e, ok := r.sessions[id]; ok && e.pins == 0 && e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			observability.OpenSessions.Dec()
			evicted++
		}
		r.mu.Unlock()
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Evict(ctx, idle); n > 0 {
				r.log.Info("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}

// Close flushes every session concurrently and forgets them. One failed
// flush does not stop the others; all failures are joined.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(r.flushers)

	for id, e := range sessions {
		g.Go(func() error {
			if err := e.store.Close(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("session %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	observability.OpenSessions.Sub(float64(len(sessions)))
	return errors.Join(errs...)
}
