package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/observability"
)

// Store owns one shopper's carts, one per tenant. Every successful mutation
// is persisted and then announced to subscribers.
type Store struct {
	mu       sync.Mutex
	carts    domain.Collection
	persist  CollectionStore
	notifier *Notifier
	log      *slog.Logger
	now      func() time.Time
	degraded bool
	rev      uint64
}

type Option func(*Store)

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open seeds a store from persist. A failed load is logged and the store
// starts empty.
func Open(ctx context.Context, persist CollectionStore, opts ...Option) *Store {
	s := &Store{
		carts:   domain.Collection{},
		persist: persist,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "cart_store")
	s.notifier = NewNotifier(s.log)

	loaded, err := persist.Load(ctx)
	if err != nil {
		observability.PersistenceFailures.WithLabelValues("load").Inc()
		s.log.Warn("cart load failed, starting empty", slog.Any("err", err))
		return s
	}

	for tenant, c := range loaded {
		if strings.TrimSpace(tenant) == "" {
			continue
		}
		c = c.Clone()
		c.Normalize()
		s.carts[tenant] = c
	}
	return s
}

// Cart returns a copy of the tenant's cart, registering an empty one on
// first access.
func (s *Store) Cart(tenant string) domain.Cart {
	if strings.TrimSpace(tenant) == "" {
		return domain.NewCart()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked(tenant).Clone()
}

// AddItem adds qty units of p. Zero stands for an omitted quantity and adds
// one unit.
func (s *Store) AddItem(ctx context.Context, tenant string, p domain.Product, qty int) (domain.Cart, error) {
	if qty == 0 {
		qty = 1
	}
	return s.mutate(ctx, tenant, OpAdd, p.ID, func(c *domain.Cart) (bool, error) {
		return true, c.Add(p, qty)
	})
}

// RemoveItem is idempotent: removing an absent product succeeds and still
// persists and notifies.
func (s *Store) RemoveItem(ctx context.Context, tenant, productID string) (domain.Cart, error) {
	return s.mutate(ctx, tenant, OpRemove, productID, func(c *domain.Cart) (bool, error) {
		return c.Remove(productID), nil
	})
}

// UpdateQuantity sets an exact quantity; qty <= 0 removes the item.
func (s *Store) UpdateQuantity(ctx context.Context, tenant, productID string, qty int) (domain.Cart, error) {
	op := OpUpdate
	if qty <= 0 {
		op = OpRemove
	}
	return s.mutate(ctx, tenant, op, productID, func(c *domain.Cart) (bool, error) {
		return c.SetQuantity(productID, qty)
	})
}

func (s *Store) Clear(ctx context.Context, tenant string) domain.Cart {
	c, err := s.mutate(ctx, tenant, OpClear, "", func(c *domain.Cart) (bool, error) {
		changed := !c.IsEmpty()
		c.Reset()
		return changed, nil
	})
	if err != nil {
		return domain.NewCart()
	}
	return c
}

// RemoveOrdered takes quantities that were handed to the order service off
// the tenant's cart. Anything added since the order was built stays. The
// change is announced as a clear when the cart ends up empty.
func (s *Store) RemoveOrdered(ctx context.Context, tenant string, quantities map[string]int) (domain.Cart, error) {
	return s.mutateAs(ctx, tenant, OpUpdate, "", func(c *domain.Cart) (Op, bool, error) {
		changed := c.Deduct(quantities)
		if c.IsEmpty() {
			return OpClear, changed, nil
		}
		return OpUpdate, changed, nil
	})
}

func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	return s.notifier.Subscribe(fn)
}

// Tenants lists the tenants with a cart, sorted.
func (s *Store) Tenants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.carts))
	for t := range s.carts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Snapshot() domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(domain.Collection, len(s.carts))
	for t, c := range s.carts {
		out[t] = c.Clone()
	}
	return out
}

// Degraded reports whether the last save failed.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Close flushes the collection once more. Unlike mutations it reports the
// save error to the caller.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist.Save(ctx, s.carts); err != nil {
		observability.PersistenceFailures.WithLabelValues("flush").Inc()
		return fmt.Errorf("flush carts: %w", err)
	}
	s.setDegradedLocked(false)
	return nil
}

func (s *Store) mutate(ctx context.Context, tenant string, op Op, productID string, fn func(c *domain.Cart) (bool, error)) (domain.Cart, error) {
	return s.mutateAs(ctx, tenant, op, productID, func(c *domain.Cart) (Op, bool, error) {
		changed, err := fn(c)
		return op, changed, err
	})
}

// mutateAs is mutate for changes whose op is only known after fn ran. op
// labels failures that happen before fn.
func (s *Store) mutateAs(ctx context.Context, tenant string, op Op, productID string, fn func(c *domain.Cart) (Op, bool, error)) (domain.Cart, error) {
	if strings.TrimSpace(tenant) == "" {
		observability.CartMutations.WithLabelValues(string(op), "invalid").Inc()
		return domain.NewCart(), fmt.Errorf("%w: tenant is required", domain.ErrInvalidArgument)
	}

	s.mu.Lock()
	next := s.cartLocked(tenant).Clone()
	op, changed, err := fn(&next)
	if err != nil {
		current := s.carts[tenant].Clone()
		s.mu.Unlock()
		observability.CartMutations.WithLabelValues(string(op), outcome(err)).Inc()
		return current, err
	}

	s.carts[tenant] = next
	s.saveLocked(ctx, tenant)
	s.rev++
	rev := s.rev
	s.mu.Unlock()

	if changed {
		observability.CartMutations.WithLabelValues(string(op), "ok").Inc()
	} else {
		observability.CartMutations.WithLabelValues(string(op), "noop").Inc()
	}

	s.notifier.Notify(Change{
		Tenant:    tenant,
		Op:        op,
		ProductID: productID,
		Cart:      next,
		At:        s.now(),
		Revision:  rev,
	})

	return next.Clone(), nil
}

func (s *Store) cartLocked(tenant string) domain.Cart {
	c, ok := s.carts[tenant]
	if !ok {
		c = domain.NewCart()
		s.carts[tenant] = c
	}
	return c
}

func (s *Store) saveLocked(ctx context.Context, tenant string) {
	if err := s.persist.Save(ctx, s.carts); err != nil {
		observability.PersistenceFailures.WithLabelValues("save").Inc()
		s.log.Warn("cart save failed, continuing in memory",
			slog.String("tenant", tenant),
			slog.Any("err", err),
		)
		s.setDegradedLocked(true)
		return
	}
	s.setDegradedLocked(false)
}

func (s *Store) setDegradedLocked(degraded bool) {
	if s.degraded == degraded {
		return
	}
	s.degraded = degraded
	if degraded {
		observability.PersistenceDegraded.Inc()
		return
	}
	observability.PersistenceDegraded.Dec()
	s.log.Info("cart persistence recovered")
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "error"
	}
}
