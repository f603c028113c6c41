package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/shopspring/decimal"
)

type itemRecord struct {
	ProductID     productID   `json:"productId"`
	Name          string      `json:"name"`
	UnitPrice     json.Number `json:"unitPrice"`
	PhotoURL      *string     `json:"photoUrl"`
	StockSnapshot int         `json:"stockSnapshot"`
	Quantity      int         `json:"quantity"`
}

type cartRecord struct {
	Items               []itemRecord `json:"items"`
	TotalItems          int          `json:"totalItems"`
	Subtotal            json.Number  `json:"subtotal"`
	ShippingRatePercent int          `json:"shippingRatePercent"`
	ShippingCost        json.Number  `json:"shippingCost"`
	TotalFinal          json.Number  `json:"totalFinal"`
}

// productID is written as a string but also accepts numeric ids.
type productID string

func (p *productID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = productID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*p = productID(n.String())
	return nil
}

// Encode writes the collection in the storage layout. Amounts are JSON
// numbers carrying the exact decimal text.
func Encode(c domain.Collection) ([]byte, error) {
	out := make(map[string]cartRecord, len(c))
	for tenant, cart := range c {
		items := make([]itemRecord, 0, len(cart.Items))
		for _, it := range cart.Items {
			rec := itemRecord{
				ProductID:     productID(it.ProductID),
				Name:          it.Name,
				UnitPrice:     number(it.UnitPrice),
				StockSnapshot: it.StockSnapshot,
				Quantity:      it.Quantity,
			}
			if it.PhotoURL != "" {
				photo := it.PhotoURL
				rec.PhotoURL = &photo
			}
			items = append(items, rec)
		}
		out[tenant] = cartRecord{
			Items:               items,
			TotalItems:          cart.ItemCount,
			Subtotal:            number(cart.Subtotal),
			ShippingRatePercent: cart.ShippingRatePercent,
			ShippingCost:        number(cart.ShippingCost),
			TotalFinal:          number(cart.Total),
		}
	}
	return json.Marshal(out)
}

func Decode(raw []byte) (domain.Collection, error) {
	var in map[string]cartRecord
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}

	out := make(domain.Collection, len(in))
	for tenant, rec := range in {
		cart := domain.NewCart()
		for _, it := range rec.Items {
			price, err := amount(it.UnitPrice)
			if err != nil {
				return nil, fmt.Errorf("%s/%s unitPrice: %w", tenant, it.ProductID, err)
			}
			item := domain.CartItem{
				ProductID:     string(it.ProductID),
				Name:          it.Name,
				UnitPrice:     price,
				StockSnapshot: it.StockSnapshot,
				Quantity:      it.Quantity,
			}
			if it.PhotoURL != nil {
				item.PhotoURL = *it.PhotoURL
			}
			cart.Items = append(cart.Items, item)
		}

		var err error
		cart.ItemCount = rec.TotalItems
		cart.ShippingRatePercent = rec.ShippingRatePercent
		if cart.Subtotal, err = amount(rec.Subtotal); err != nil {
			return nil, fmt.Errorf("%s subtotal: %w", tenant, err)
		}
		if cart.ShippingCost, err = amount(rec.ShippingCost); err != nil {
			return nil, fmt.Errorf("%s shippingCost: %w", tenant, err)
		}
		if cart.Total, err = amount(rec.TotalFinal); err != nil {
			return nil, fmt.Errorf("%s totalFinal: %w", tenant, err)
		}
		out[tenant] = cart
	}
	return out, nil
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func amount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
