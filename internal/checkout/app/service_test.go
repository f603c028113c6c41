package app

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	cartdomain "github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/checkout/domain"
)

type fakeCarts struct {
	carts    map[string]cartdomain.Cart
	clears   int
	clearErr error
}

func (f *fakeCarts) Cart(_ context.Context, _, tenant string) (cartdomain.Cart, error) {
	if c, ok := f.carts[tenant]; ok {
		return c, nil
	}
	return cartdomain.NewCart(), nil
}

func (f *fakeCarts) RemoveOrdered(_ context.Context, _, tenant string, lines []domain.OrderLine) (cartdomain.Cart, error) {
	if f.clearErr != nil {
		return cartdomain.Cart{}, f.clearErr
	}
	f.clears++
	quantities := make(map[string]int, len(lines))
	for _, l := range lines {
		quantities[l.ProductID] += l.Quantity
	}
	c := f.carts[tenant].Clone()
	c.Deduct(quantities)
	f.carts[tenant] = c
	return c, nil
}

type fakeOrders struct {
	got    []domain.OrderPayload
	conf   domain.Confirmation
	err    error
	during func()
}

func (f *fakeOrders) PlaceOrder(_ context.Context, order domain.OrderPayload) (domain.Confirmation, error) {
	f.got = append(f.got, order)
	if f.during != nil {
		f.during()
	}
	return f.conf, f.err
}

func cartWithBoots(t *testing.T) cartdomain.Cart {
	t.Helper()
	c := cartdomain.NewCart()
	err := c.Add(cartdomain.Product{ID: "5", Name: "Botas", Price: decimal.NewFromInt(50), Stock: 10}, 3)
	if err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return c
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed order clears the cart", func(t *testing.T) {
		carts := &fakeCarts{carts: map[string]cartdomain.Cart{"zapatos": cartWithBoots(t)}}
		orders := &fakeOrders{conf: domain.Confirmation{OrderID: "ord-9", Status: "created"}}
		svc := NewService(carts, orders, nil)

		r, err := svc.Checkout(ctx, "sess", "zapatos")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.OrderID != "ord-9" || carts.clears != 1 || !r.Cart.IsEmpty() {
			t.Fatalf("got receipt %+v, clears %d", r, carts.clears)
		}
		if !r.Total.Equal(decimal.NewFromInt(165)) {
			t.Fatalf("expected total 165, got %s", r.Total)
		}
		want := domain.OrderPayload{TenantID: "zapatos", Items: []domain.OrderLine{{ProductID: "5", Quantity: 3}}}
		if len(orders.got) != 1 || orders.got[0].TenantID != want.TenantID || orders.got[0].Items[0] != want.Items[0] {
			t.Fatalf("got payload %+v", orders.got)
		}
	})

	t.Run("items added during the order call stay", func(t *testing.T) {
		carts := &fakeCarts{carts: map[string]cartdomain.Cart{"zapatos": cartWithBoots(t)}}
		orders := &fakeOrders{conf: domain.Confirmation{OrderID: "ord-10"}}
		orders.during = func() {
			c := carts.carts["zapatos"].Clone()
			if err := c.Add(cartdomain.Product{ID: "8", Name: "Cordones", Price: decimal.NewFromInt(2), Stock: 9}, 1); err != nil {
				t.Fatalf("add during order: %v", err)
			}
			if err := c.Add(cartdomain.Product{ID: "5", Name: "Botas", Price: decimal.NewFromInt(50), Stock: 10}, 1); err != nil {
				t.Fatalf("add during order: %v", err)
			}
			carts.carts["zapatos"] = c
		}
		svc := NewService(carts, orders, nil)

		r, err := svc.Checkout(ctx, "sess", "zapatos")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(orders.got[0].Items) != 1 || orders.got[0].Items[0].Quantity != 3 {
			t.Fatalf("got payload %+v", orders.got[0])
		}
		left := r.Cart
		if left.ItemCount != 2 || len(left.Items) != 2 {
			t.Fatalf("expected the late additions to stay, got %+v", left.Items)
		}
		if it, ok := left.Find("5"); !ok || it.Quantity != 1 {
			t.Fatalf("expected one unit of 5 left, got %+v", it)
		}
	})

	t.Run("empty cart is rejected before the order service", func(t *testing.T) {
		orders := &fakeOrders{}
		svc := NewService(&fakeCarts{carts: map[string]cartdomain.Cart{}}, orders, nil)

		_, err := svc.Checkout(ctx, "sess", "zapatos")
		if !errors.Is(err, ErrEmptyCart) {
			t.Fatalf("expected ErrEmptyCart, got %v", err)
		}
		if len(orders.got) != 0 {
			t.Fatalf("order service must not be called")
		}
	})

	t.Run("blank tenant -> invalid", func(t *testing.T) {
		svc := NewService(&fakeCarts{}, &fakeOrders{}, nil)
		if _, err := svc.Checkout(ctx, "sess", "  "); !errors.Is(err, ErrTenantRequired) {
			t.Fatalf("expected ErrTenantRequired, got %v", err)
		}
	})

	t.Run("failed order keeps the cart", func(t *testing.T) {
		carts := &fakeCarts{carts: map[string]cartdomain.Cart{"zapatos": cartWithBoots(t)}}
		boom := errors.New("order service down")
		svc := NewService(carts, &fakeOrders{err: boom}, nil)

		_, err := svc.Checkout(ctx, "sess", "zapatos")
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped order error, got %v", err)
		}
		if carts.clears != 0 || carts.carts["zapatos"].ItemCount != 3 {
			t.Fatalf("cart must stay intact")
		}
	})

	t.Run("missing order id is not a confirmation", func(t *testing.T) {
		carts := &fakeCarts{carts: map[string]cartdomain.Cart{"zapatos": cartWithBoots(t)}}
		svc := NewService(carts, &fakeOrders{conf: domain.Confirmation{Status: "pending"}}, nil)

		if _, err := svc.Checkout(ctx, "sess", "zapatos"); !errors.Is(err, ErrNotConfirmed) {
			t.Fatalf("expected ErrNotConfirmed, got %v", err)
		}
		if carts.clears != 0 {
			t.Fatalf("cart must stay intact")
		}
	})

	t.Run("clear failure still returns the confirmation", func(t *testing.T) {
		boom := errors.New("session gone")
		carts := &fakeCarts{carts: map[string]cartdomain.Cart{"zapatos": cartWithBoots(t)}, clearErr: boom}
		svc := NewService(carts, &fakeOrders{conf: domain.Confirmation{OrderID: "ord-1"}}, nil)

		r, err := svc.Checkout(ctx, "sess", "zapatos")
		if !errors.Is(err, boom) || r.OrderID != "ord-1" {
			t.Fatalf("got (%+v, %v)", r, err)
		}
	})
}
