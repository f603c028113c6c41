package domain

import (
	"github.com/shopspring/decimal"

	cartdomain "github.com/dwikikusuma/tenant-cart/internal/cart/domain"
)

// OrderLine is one entry of the order creation request.
type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderPayload is the body sent to the order service.
type OrderPayload struct {
	Items    []OrderLine `json:"items"`
	TenantID string      `json:"tenantId"`
}

func NewOrderPayload(tenant string, c cartdomain.Cart) OrderPayload {
	lines := make([]OrderLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return OrderPayload{Items: lines, TenantID: tenant}
}

// Confirmation is the order service's durable acknowledgement.
type Confirmation struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status,omitempty"`
}

type Receipt struct {
	Confirmation
	Payload OrderPayload
	// Total is what the shopper saw when the order was placed.
	Total decimal.Decimal
	// Cart is the tenant cart after the ordered lines were taken off.
	Cart cartdomain.Cart
}
