package domain

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
)

func product(id string, price int64, stock int) Product {
	return Product{ID: id, Name: "product " + id, Price: decimal.NewFromInt(price), Stock: stock}
}

func checkInvariants(t *testing.T, c Cart) {
	t.Helper()

	count := 0
	subtotal := decimal.Zero
	seen := map[string]bool{}
	for _, it := range c.Items {
		if seen[it.ProductID] {
			t.Fatalf("duplicate product %s", it.ProductID)
		}
		seen[it.ProductID] = true
		if it.Quantity < 1 || it.Quantity > it.StockSnapshot {
			t.Fatalf("product %s quantity %d outside [1,%d]", it.ProductID, it.Quantity, it.StockSnapshot)
		}
		count += it.Quantity
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	if c.ItemCount != count {
		t.Fatalf("item count: expected %d, got %d", count, c.ItemCount)
	}
	if !c.Subtotal.Equal(subtotal) {
		t.Fatalf("subtotal: expected %s, got %s", subtotal, c.Subtotal)
	}
	ship := ComputeShipping(c.Subtotal)
	if c.ShippingRatePercent != ship.RatePercent || !c.ShippingCost.Equal(ship.Cost) {
		t.Fatalf("shipping: expected %d%%/%s, got %d%%/%s", ship.RatePercent, ship.Cost, c.ShippingRatePercent, c.ShippingCost)
	}
	if !c.Total.Equal(c.Subtotal.Add(c.ShippingCost)) {
		t.Fatalf("total: expected %s, got %s", c.Subtotal.Add(c.ShippingCost), c.Total)
	}
}

func TestCartAdd(t *testing.T) {
	t.Run("new item computes totals", func(t *testing.T) {
		c := NewCart()
		if err := c.Add(product("5", 50, 10), 3); err != nil {
			t.Fatalf("add: %v", err)
		}
		checkInvariants(t, c)
		if !c.Subtotal.Equal(decimal.NewFromInt(150)) || c.ShippingRatePercent != 10 || !c.Total.Equal(decimal.NewFromInt(165)) {
			t.Fatalf("got subtotal=%s rate=%d total=%s", c.Subtotal, c.ShippingRatePercent, c.Total)
		}
	})

	t.Run("existing item increments", func(t *testing.T) {
		c := NewCart()
		_ = c.Add(product("5", 50, 10), 3)
		if err := c.Add(product("5", 50, 10), 2); err != nil {
			t.Fatalf("add: %v", err)
		}
		if len(c.Items) != 1 || c.Items[0].Quantity != 5 {
			t.Fatalf("expected one line with quantity 5, got %+v", c.Items)
		}
		checkInvariants(t, c)
	})

	t.Run("over stock leaves cart untouched", func(t *testing.T) {
		c := NewCart()
		_ = c.Add(product("5", 50, 10), 5)
		before := c.Clone()

		err := c.Add(product("5", 50, 10), 6)
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		var se *StockError
		if !errors.As(err, &se) || se.Held != 5 || se.Available != 10 {
			t.Fatalf("unexpected stock error %+v", se)
		}
		if c.Items[0].Quantity != before.Items[0].Quantity || !c.Total.Equal(before.Total) {
			t.Fatalf("cart changed on failure")
		}
	})

	t.Run("zero stock", func(t *testing.T) {
		c := NewCart()
		err := c.Add(product("9", 10, 0), 1)
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if !c.IsEmpty() {
			t.Fatalf("expected empty cart")
		}
	})

	t.Run("contract violations", func(t *testing.T) {
		c := NewCart()
		if err := c.Add(product("", 10, 3), 1); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("empty id: expected ErrInvalidArgument, got %v", err)
		}
		if err := c.Add(product("1", 10, 3), 0); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("zero qty: expected ErrInvalidArgument, got %v", err)
		}
		if err := c.Add(product("1", -1, 3), 1); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("negative price: expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("first photo becomes the item photo", func(t *testing.T) {
		c := NewCart()
		p := product("7", 12, 4)
		p.Photos = []string{"a.jpg", "b.jpg"}
		_ = c.Add(p, 1)
		if c.Items[0].PhotoURL != "a.jpg" {
			t.Fatalf("expected a.jpg, got %q", c.Items[0].PhotoURL)
		}
	})
}

func TestCartDeduct(t *testing.T) {
	c := NewCart()
	_ = c.Add(product("5", 50, 10), 4)
	_ = c.Add(product("8", 2, 10), 1)

	if !c.Deduct(map[string]int{"5": 3, "8": 1, "absent": 2}) {
		t.Fatalf("expected a change")
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 1 || c.ItemCount != 1 {
		t.Fatalf("unexpected items %+v", c.Items)
	}
	if !c.Subtotal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected subtotal 50, got %s", c.Subtotal)
	}
	if c.Deduct(map[string]int{"absent": 1}) {
		t.Fatalf("unknown products must not change the cart")
	}
}

func TestCartSetQuantity(t *testing.T) {
	t.Run("zero removes", func(t *testing.T) {
		c := NewCart()
		_ = c.Add(product("5", 50, 10), 5)
		found, err := c.SetQuantity("5", 0)
		if err != nil || !found {
			t.Fatalf("expected removal, got found=%v err=%v", found, err)
		}
		if !c.IsEmpty() || !c.Total.IsZero() || c.ItemCount != 0 {
			t.Fatalf("expected empty cart, got %+v", c)
		}
	})

	t.Run("above snapshot fails", func(t *testing.T) {
		c := NewCart()
		_ = c.Add(product("5", 50, 10), 5)
		_, err := c.SetQuantity("5", 11)
		if !errors.Is(err, ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}
		if c.Items[0].Quantity != 5 {
			t.Fatalf("quantity changed to %d", c.Items[0].Quantity)
		}
	})

	t.Run("absent product is a no-op", func(t *testing.T) {
		c := NewCart()
		found, err := c.SetQuantity("nope", 3)
		if err != nil || found {
			t.Fatalf("expected silent no-op, got found=%v err=%v", found, err)
		}
	})

	t.Run("exact set", func(t *testing.T) {
		c := NewCart()
		_ = c.Add(product("5", 50, 10), 1)
		if _, err := c.SetQuantity("5", 10); err != nil {
			t.Fatalf("set: %v", err)
		}
		checkInvariants(t, c)
		if c.ItemCount != 10 {
			t.Fatalf("expected 10 items, got %d", c.ItemCount)
		}
	})
}

func TestCartNormalize(t *testing.T) {
	c := Cart{Items: []CartItem{
		{ProductID: "a", UnitPrice: decimal.NewFromInt(2), StockSnapshot: 5, Quantity: 2},
		{ProductID: "b", UnitPrice: decimal.NewFromInt(3), StockSnapshot: 5, Quantity: 0},
		{ProductID: "a", UnitPrice: decimal.NewFromInt(2), StockSnapshot: 5, Quantity: 4},
		{ProductID: "c", UnitPrice: decimal.NewFromInt(1), StockSnapshot: 2, Quantity: 7},
	}}
	c.Normalize()

	checkInvariants(t, c)
	if len(c.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.Items))
	}
	if c.Items[0].Quantity != 5 || c.Items[1].Quantity != 2 {
		t.Fatalf("expected capped quantities 5 and 2, got %d and %d", c.Items[0].Quantity, c.Items[1].Quantity)
	}
}

func TestCartInvariantsUnderRandomMutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := NewCart()

	for i := 0; i < 2000; i++ {
		id := strconv.Itoa(rng.Intn(6))
		switch rng.Intn(4) {
		case 0:
			_ = c.Add(product(id, int64(rng.Intn(400)), rng.Intn(12)), 1+rng.Intn(5))
		case 1:
			c.Remove(id)
		case 2:
			_, _ = c.SetQuantity(id, rng.Intn(14)-2)
		case 3:
			if rng.Intn(10) == 0 {
				c.Reset()
			}
		}
		checkInvariants(t, c)
	}
}
