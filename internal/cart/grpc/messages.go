package grpc

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
)

type CartRequest struct {
	SessionID string `json:"session_id"`
	StoreSlug string `json:"store_slug"`
}

type Product struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  string   `json:"price"`
	Stock  int      `json:"stock"`
	Photos []string `json:"photos,omitempty"`
}

type AddItemRequest struct {
	SessionID string  `json:"session_id"`
	StoreSlug string  `json:"store_slug"`
	Product   Product `json:"product"`
	Quantity  int     `json:"quantity"`
}

type SetItemQuantityRequest struct {
	SessionID string `json:"session_id"`
	StoreSlug string `json:"store_slug"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveItemRequest struct {
	SessionID string `json:"session_id"`
	StoreSlug string `json:"store_slug"`
	ProductID string `json:"product_id"`
}

type CartItem struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	UnitPrice     string `json:"unit_price"`
	PhotoURL      string `json:"photo_url,omitempty"`
	StockSnapshot int    `json:"stock_snapshot"`
	Quantity      int    `json:"quantity"`
	LineTotal     string `json:"line_total"`
}

// Cart carries exact amounts plus two-decimal display strings.
type Cart struct {
	StoreSlug           string     `json:"store_slug"`
	Items               []CartItem `json:"items"`
	TotalItems          int        `json:"total_items"`
	Subtotal            string     `json:"subtotal"`
	ShippingRatePercent int        `json:"shipping_rate_percent"`
	ShippingCost        string     `json:"shipping_cost"`
	TotalFinal          string     `json:"total_final"`
	Display             Display    `json:"display"`
}

type Display struct {
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shipping_cost"`
	TotalFinal   string `json:"total_final"`
}

// MutationResponse reports business failures as data.
type MutationResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Held      int    `json:"held,omitempty"`
	Available int    `json:"available,omitempty"`
	Cart      Cart   `json:"cart"`
}

type CheckoutResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Cart    Cart   `json:"cart"`
}

type CartEvent struct {
	Op        string `json:"op"`
	ProductID string `json:"product_id,omitempty"`
	AtUnix    int64  `json:"at_unix"`
	Revision  uint64 `json:"revision,omitempty"`
	Cart      Cart   `json:"cart"`
}

func toCart(slug string, c domain.Cart) Cart {
	items := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, CartItem{
			ProductID:     it.ProductID,
			Name:          it.Name,
			UnitPrice:     it.UnitPrice.String(),
			PhotoURL:      it.PhotoURL,
			StockSnapshot: it.StockSnapshot,
			Quantity:      it.Quantity,
			LineTotal:     it.LineTotal().String(),
		})
	}

	return Cart{
		StoreSlug:           slug,
		Items:               items,
		TotalItems:          c.ItemCount,
		Subtotal:            c.Subtotal.String(),
		ShippingRatePercent: c.ShippingRatePercent,
		ShippingCost:        c.ShippingCost.String(),
		TotalFinal:          c.Total.String(),
		Display: Display{
			Subtotal:     c.Subtotal.StringFixed(2),
			ShippingCost: c.ShippingCost.StringFixed(2),
			TotalFinal:   c.Total.StringFixed(2),
		},
	}
}

func toMutation(slug string, res app.Result) *MutationResponse {
	return &MutationResponse{
		Success:   res.Success,
		Code:      res.Code,
		Message:   res.Message,
		Held:      res.Held,
		Available: res.Available,
		Cart:      toCart(slug, res.Cart),
	}
}

func toChangeEvent(slug string, ch app.Change) *CartEvent {
	return &CartEvent{
		Op:        string(ch.Op),
		ProductID: ch.ProductID,
		AtUnix:    ch.At.Unix(),
		Revision:  ch.Revision,
		Cart:      toCart(slug, ch.Cart),
	}
}

var errPriceRequired = errors.New("price is required")

func toDomainProduct(p Product) (domain.Product, error) {
	if strings.TrimSpace(p.Price) == "" {
		return domain.Product{}, errPriceRequired
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:     p.ID,
		Name:   p.Name,
		Price:  price,
		Stock:  p.Stock,
		Photos: p.Photos,
	}, nil
}
