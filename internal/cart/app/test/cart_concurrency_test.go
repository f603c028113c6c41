package app_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/cart/infra/storage"
)

func newTestStore(t *testing.T) (*app.Store, *storage.Slot) {
	t.Helper()
	slot := storage.NewSlot(storage.NewMemoryKV(), storage.SessionKey("", uuid.NewString()))
	return app.Open(context.Background(), slot), slot
}

func TestCart_ConcurrentAddItemIncrement(t *testing.T) {
	ctx := context.Background()
	store, slot := newTestStore(t)

	tenant := "tienda-" + uuid.NewString()
	product := domain.Product{ID: uuid.NewString(), Name: "Gorro", Price: decimal.RequireFromString("3.5"), Stock: 1000}

	const N = 100
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < N; i++ {
		g.Go(func() error {
			_, err := store.AddItem(gctx, tenant, product, 1)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent AddItem failed: %v", err)
	}

	cart := store.Cart(tenant)
	if len(cart.Items) != 1 || cart.Items[0].Quantity != N {
		t.Fatalf("expected one line with quantity=%d, got %+v", N, cart.Items)
	}

	persisted, err := slot.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got := persisted[tenant].ItemCount; got != N {
		t.Fatalf("expected persisted item count %d, got %d", N, got)
	}
}

func TestCart_ConcurrentAddNeverExceedsStock(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	const stock = 10
	product := domain.Product{ID: "p", Name: "Bufanda", Price: decimal.NewFromInt(12), Stock: stock}

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, _ = store.AddItem(ctx, "tienda", product, 1)
			return nil
		})
	}
	_ = g.Wait()

	if got := store.Cart("tienda").ItemCount; got != stock {
		t.Fatalf("expected quantity capped at %d, got %d", stock, got)
	}
}
