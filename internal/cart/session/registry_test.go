package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/cart/infra/storage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func slotsOn(kv storage.KV) StoreFactory {
	return func(sessionID string) app.CollectionStore {
		return storage.NewSlot(kv, storage.SessionKey("", sessionID))
	}
}

var scarf = domain.Product{ID: "s1", Name: "Bufanda", Price: decimal.NewFromInt(30), Stock: 5}

func TestRegistrySeparatesSessions(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slotsOn(storage.NewMemoryKV()))

	alice, err := reg.Open(ctx, "alice")
	require.NoError(t, err)
	bob, err := reg.Open(ctx, "bob")
	require.NoError(t, err)

	_, err = alice.AddItem(ctx, "tienda", scarf, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, alice.Cart("tienda").ItemCount)
	assert.Equal(t, 0, bob.Cart("tienda").ItemCount)

	again, err := reg.Open(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, alice, again)
	assert.Equal(t, 2, reg.Len())

	_, err = reg.Open(ctx, "  ")
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestRegistryEvictsIdleSessionsAfterFlush(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := NewRegistry(slotsOn(kv), WithClock(clk.Now))

	id := uuid.NewString()
	store, err := reg.Open(ctx, id)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, "tienda", scarf, 1)
	require.NoError(t, err)

	_, err = reg.Open(ctx, "busy")
	require.NoError(t, err)

	clk.Advance(20 * time.Minute)
	_, err = reg.Open(ctx, "busy")
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Evict(ctx, 15*time.Minute))
	assert.Equal(t, 1, reg.Len())

	reopened, err := reg.Open(ctx, id)
	require.NoError(t, err)
	assert.NotSame(t, store, reopened)
	assert.Equal(t, 1, reopened.Cart("tienda").ItemCount, "evicted session reloads from storage")
}

func TestRegistryAcquirePinsSession(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := NewRegistry(slotsOn(storage.NewMemoryKV()), WithClock(clk.Now))

	store, release, err := reg.Acquire(ctx, "watcher")
	require.NoError(t, err)

	clk.Advance(time.Hour)
	assert.Equal(t, 0, reg.Evict(ctx, time.Minute), "pinned session stays loaded")

	again, err := reg.Open(ctx, "watcher")
	require.NoError(t, err)
	assert.Same(t, store, again)

	release()
	release()
	clk.Advance(time.Hour)
	assert.Equal(t, 1, reg.Evict(ctx, time.Minute))
	assert.Equal(t, 0, reg.Len())

	_, _, err = reg.Acquire(ctx, " ")
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestRegistryAttachesListeners(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[string]int{}
	reg := NewRegistry(slotsOn(storage.NewMemoryKV()), WithListener(func(sessionID string) app.Listener {
		return func(app.Change) {
			mu.Lock()
			seen[sessionID]++
			mu.Unlock()
		}
	}))

	api, err := reg.Facade(ctx, "carol")
	require.NoError(t, err)
	require.True(t, api.AddProduct(ctx, "tienda", scarf, 1).Success)
	require.True(t, api.ClearCart(ctx, "tienda").Success)

	assert.Equal(t, 2, seen["carol"])
}

type brokenKV struct{ *storage.MemoryKV }

func (*brokenKV) Put(context.Context, string, []byte) error { return errors.New("read-only") }

func TestRegistryCloseJoinsFlushErrors(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slotsOn(&brokenKV{MemoryKV: storage.NewMemoryKV()}), WithFlushConcurrency(2))

	for _, id := range []string{"a", "b", "c"} {
		_, err := reg.Open(ctx, id)
		require.NoError(t, err)
	}

	err := reg.Close(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "session a")
	assert.ErrorContains(t, err, "session c")
	assert.Zero(t, reg.Len())
}
