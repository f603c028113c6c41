package app

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/observability"
)

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpUpdate Op = "update"
	OpClear  Op = "clear"
)

// Change describes one committed mutation. Cart is a copy taken after the
// mutation. Revision grows with every commit of the store; listeners may be
// called out of commit order, so consumers keep the highest one.
type Change struct {
	Tenant    string
	Op        Op
	ProductID string
	Cart      domain.Cart
	At        time.Time
	Revision  uint64
}

type Listener func(Change)

// Notifier delivers changes synchronously to every subscriber. A panicking
// listener is logged and skipped; the others still run.
type Notifier struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]Listener
	log       *slog.Logger
}

func NewNotifier(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		listeners: make(map[uint64]Listener),
		log:       log,
	}
}

func (n *Notifier) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func (n *Notifier) Notify(ch Change) {
	n.mu.RLock()
	fns := make([]Listener, 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		n.deliver(fn, ch)
	}
}

func (n *Notifier) deliver(fn Listener, ch Change) {
	defer func() {
		if r := recover(); r != nil {
			observability.ListenerPanics.Inc()
			n.log.Warn("cart listener panicked",
				slog.String("tenant", ch.Tenant),
				slog.String("op", string(ch.Op)),
				slog.Any("panic", r),
			)
		}
	}()
	ch.Cart = ch.Cart.Clone()
	fn(ch)
}
