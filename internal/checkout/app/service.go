package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	cartdomain "github.com/dwikikusuma/tenant-cart/internal/cart/domain"
	"github.com/dwikikusuma/tenant-cart/internal/checkout/domain"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrTenantRequired = errors.New("store slug is required")
	ErrNotConfirmed   = errors.New("order was not confirmed")
)

// CartAccess reads one tenant cart of a shopper session and takes ordered
// lines off it.
type CartAccess interface {
	Cart(ctx context.Context, sessionID, tenant string) (cartdomain.Cart, error)
	RemoveOrdered(ctx context.Context, sessionID, tenant string, lines []domain.OrderLine) (cartdomain.Cart, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order domain.OrderPayload) (domain.Confirmation, error)
}

// Service hands a cart snapshot to the order service. Stock is not
// re-validated here; the order service owns that decision.
type Service struct {
	Carts  CartAccess
	Orders OrderPlacer

	log *slog.Logger
}

func NewService(carts CartAccess, orders OrderPlacer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		Carts:  carts,
		Orders: orders,
		log:    log.With("component", "checkout"),
	}
}

// Checkout places the order and, once the order service confirmed it, takes
// the ordered quantities off the cart. Items added while the order call was
// in flight stay in the cart. Any failure before the confirmation leaves the
// cart untouched.
func (s *Service) Checkout(ctx context.Context, sessionID, tenant string) (domain.Receipt, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return domain.Receipt{}, ErrTenantRequired
	}

	cart, err := s.Carts.Cart(ctx, sessionID, tenant)
	if err != nil {
		return domain.Receipt{}, err
	}
	if cart.IsEmpty() {
		return domain.Receipt{}, ErrEmptyCart
	}

	payload := domain.NewOrderPayload(tenant, cart)
	conf, err := s.Orders.PlaceOrder(ctx, payload)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("place order: %w", err)
	}
	if conf.OrderID == "" {
		return domain.Receipt{}, ErrNotConfirmed
	}

	receipt := domain.Receipt{
		Confirmation: conf,
		Payload:      payload,
		Total:        cart.Total,
	}

	cleared, err := s.Carts.RemoveOrdered(ctx, sessionID, tenant, payload.Items)
	if err != nil {
		s.log.Error("order placed but cart was not cleared",
			slog.String("tenant", tenant),
			slog.String("order_id", conf.OrderID),
			slog.Any("err", err),
		)
		return receipt, fmt.Errorf("clear cart after order %s: %w", conf.OrderID, err)
	}
	receipt.Cart = cleared

	s.log.Info("order placed",
		slog.String("tenant", tenant),
		slog.String("order_id", conf.OrderID),
		slog.Int("lines", len(payload.Items)),
		slog.String("total", cart.Total.String()),
	)
	return receipt, nil
}
