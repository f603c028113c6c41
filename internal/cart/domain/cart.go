package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID     string
	Name   string
	Price  decimal.Decimal
	Stock  int
	Photos []string
}

type CartItem struct {
	ProductID     string
	Name          string
	UnitPrice     decimal.Decimal
	PhotoURL      string
	StockSnapshot int
	Quantity      int
}

func (it CartItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart is one tenant's cart. Totals are derived from Items by recompute and
// are never set directly.
type Cart struct {
	Items               []CartItem
	ItemCount           int
	Subtotal            decimal.Decimal
	ShippingRatePercent int
	ShippingCost        decimal.Decimal
	Total               decimal.Decimal
}

// Collection maps a tenant (store slug) to its cart.
type Collection map[string]Cart

func NewCart() Cart {
	return Cart{
		Items:        []CartItem{},
		Subtotal:     decimal.Zero,
		ShippingCost: decimal.Zero,
		Total:        decimal.Zero,
	}
}

func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Find(productID string) (CartItem, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i], true
	}
	return CartItem{}, false
}

func (c Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts qty units of p into the cart, merging with an existing line.
// On error the receiver is left as it was.
func (c *Cart) Add(p Product, qty int) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidArgument, qty)
	}

	idx := c.indexOf(p.ID)
	held := 0
	if idx >= 0 {
		held = c.Items[idx].Quantity
	}

	if p.Stock <= 0 || held+qty > p.Stock {
		return &StockError{
			ProductID: p.ID,
			Held:      held,
			Requested: qty,
			Available: max(p.Stock, 0),
		}
	}

	if idx >= 0 {
		c.Items[idx].Quantity = held + qty
		c.Items[idx].StockSnapshot = p.Stock
	} else {
		item := CartItem{
			ProductID:     p.ID,
			Name:          p.Name,
			UnitPrice:     p.Price,
			StockSnapshot: p.Stock,
			Quantity:      qty,
		}
		if len(p.Photos) > 0 {
			item.PhotoURL = p.Photos[0]
		}
		c.Items = append(c.Items, item)
	}

	c.recompute()
	return nil
}

// Remove drops the line for productID and reports whether one existed.
func (c *Cart) Remove(productID string) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.recompute()
	return true
}

// SetQuantity sets an exact quantity. Zero or less removes the line. The
// boolean reports whether the product was in the cart.
func (c *Cart) SetQuantity(productID string, qty int) (bool, error) {
	if qty <= 0 {
		return c.Remove(productID), nil
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return false, nil
	}

	item := c.Items[idx]
	if qty > item.StockSnapshot {
		return true, &StockError{
			ProductID: productID,
			Held:      item.Quantity,
			Requested: qty,
			Available: item.StockSnapshot,
		}
	}

	c.Items[idx].Quantity = qty
	c.recompute()
	return true, nil
}

// Deduct takes the given quantities off their lines, dropping a line once
// nothing is left. Products not in the cart are ignored. It reports whether
// the cart changed.
func (c *Cart) Deduct(quantities map[string]int) bool {
	changed := false
	items := c.Items[:0]
	for _, it := range c.Items {
		if q := quantities[it.ProductID]; q > 0 {
			it.Quantity -= q
			changed = true
		}
		if it.Quantity > 0 {
			items = append(items, it)
		}
	}
	c.Items = items
	if changed {
		c.recompute()
	}
	return changed
}

func (c *Cart) Reset() {
	*c = NewCart()
}

// Normalize repairs a cart read from storage: lines without a usable
// quantity or stock are dropped, duplicates merged, quantities capped at the
// stock snapshot and totals recomputed.
func (c *Cart) Normalize() {
	items := make([]CartItem, 0, len(c.Items))
	seen := make(map[string]int, len(c.Items))
	for _, it := range c.Items {
		if it.Quantity <= 0 || it.StockSnapshot <= 0 || strings.TrimSpace(it.ProductID) == "" {
			continue
		}
		if i, ok := seen[it.ProductID]; ok {
			items[i].Quantity += it.Quantity
			continue
		}
		seen[it.ProductID] = len(items)
		items = append(items, it)
	}
	for i := range items {
		items[i].Quantity = min(items[i].Quantity, items[i].StockSnapshot)
	}
	c.Items = items
	c.recompute()
}

func (c *Cart) recompute() {
	count := 0
	subtotal := decimal.Zero
	for _, it := range c.Items {
		count += it.Quantity
		subtotal = subtotal.Add(it.LineTotal())
	}

	ship := ComputeShipping(subtotal)

	c.ItemCount = count
	c.Subtotal = subtotal
	c.ShippingRatePercent = ship.RatePercent
	c.ShippingCost = ship.Cost
	c.Total = subtotal.Add(ship.Cost)
}

func validateProduct(p Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidArgument)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product %s has negative price", ErrInvalidArgument, p.ID)
	}
	return nil
}
