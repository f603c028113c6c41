package app

import (
	"context"
	"errors"

	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
)

const (
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeInternal          = "INTERNAL"
)

// Result is what UI callers render: business failures arrive as data, not
// as errors.
type Result struct {
	Success   bool
	Code      string
	Message   string
	Held      int
	Available int
	Cart      domain.Cart
}

// Facade is the boundary used by product, cart and checkout pages.
type Facade struct {
	store *Store
}

func NewFacade(store *Store) *Facade {
	return &Facade{store: store}
}

func (f *Facade) ObtainCart(tenant string) domain.Cart {
	return f.store.Cart(tenant)
}

func (f *Facade) AddProduct(ctx context.Context, tenant string, p domain.Product, qty int) Result {
	return toResult(f.store.AddItem(ctx, tenant, p, qty))
}

func (f *Facade) RemoveProduct(ctx context.Context, tenant, productID string) Result {
	return toResult(f.store.RemoveItem(ctx, tenant, productID))
}

func (f *Facade) SetQuantity(ctx context.Context, tenant, productID string, qty int) Result {
	return toResult(f.store.UpdateQuantity(ctx, tenant, productID, qty))
}

func (f *Facade) ClearCart(ctx context.Context, tenant string) Result {
	return Result{Success: true, Cart: f.store.Clear(ctx, tenant)}
}

func (f *Facade) SubscribeToChanges(fn Listener) (unsubscribe func()) {
	return f.store.Subscribe(fn)
}

// Tenant binds the facade to one store slug.
func (f *Facade) Tenant(slug string) *TenantCart {
	return &TenantCart{f: f, slug: slug}
}

type TenantCart struct {
	f    *Facade
	slug string
}

func (t *TenantCart) Slug() string { return t.slug }

func (t *TenantCart) Cart() domain.Cart { return t.f.ObtainCart(t.slug) }

func (t *TenantCart) Add(ctx context.Context, p domain.Product, qty int) Result {
	return t.f.AddProduct(ctx, t.slug, p, qty)
}

func (t *TenantCart) Remove(ctx context.Context, productID string) Result {
	return t.f.RemoveProduct(ctx, t.slug, productID)
}

func (t *TenantCart) SetQuantity(ctx context.Context, productID string, qty int) Result {
	return t.f.SetQuantity(ctx, t.slug, productID, qty)
}

func (t *TenantCart) Clear(ctx context.Context) Result {
	return t.f.ClearCart(ctx, t.slug)
}

// Subscribe only forwards changes for this slug.
func (t *TenantCart) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	return t.f.SubscribeToChanges(func(ch Change) {
		if ch.Tenant == t.slug {
			fn(ch)
		}
	})
}

func toResult(c domain.Cart, err error) Result {
	if err == nil {
		return Result{Success: true, Cart: c}
	}

	res := Result{Message: err.Error(), Cart: c}

	var se *domain.StockError
	switch {
	case errors.As(err, &se):
		res.Code = CodeInsufficientStock
		res.Held = se.Held
		res.Available = se.Available
	case errors.Is(err, domain.ErrInvalidArgument):
		res.Code = CodeInvalidArgument
	default:
		res.Code = CodeInternal
	}
	return res
}
