package adapter

import (
	"context"

	cartdomain "github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/cart/session"
	checkoutapp "github.com/dwikikusuma/tenant-cart/internal/checkout/app"
	"github.com/dwikikusuma/tenant-cart/internal/checkout/domain"
)

// SessionCarts gives checkout access to carts held by the session registry.
type SessionCarts struct {
	sessions *session.Registry
}

var _ checkoutapp.CartAccess = (*SessionCarts)(nil)

func NewSessionCarts(sessions *session.Registry) *SessionCarts {
	return &SessionCarts{sessions: sessions}
}

func (a *SessionCarts) Cart(ctx context.Context, sessionID, tenant string) (cartdomain.Cart, error) {
	store, err := a.sessions.Open(ctx, sessionID)
	if err != nil {
		return cartdomain.Cart{}, err
	}
	return store.Cart(tenant), nil
}

func (a *SessionCarts) RemoveOrdered(ctx context.Context, sessionID, tenant string, lines []domain.OrderLine) (cartdomain.Cart, error) {
	store, err := a.sessions.Open(ctx, sessionID)
	if err != nil {
		return cartdomain.Cart{}, err
	}
	quantities := make(map[string]int, len(lines))
	for _, l := range lines {
		quantities[l.ProductID] += l.Quantity
	}
	return store.RemoveOrdered(ctx, tenant, quantities)
}
