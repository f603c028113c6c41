package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	"github.com/dwikikusuma/tenant-cart/internal/cart/session"
	checkoutapp "github.com/dwikikusuma/tenant-cart/internal/checkout/app"
	checkoutdomain "github.com/dwikikusuma/tenant-cart/internal/checkout/domain"
)

// Checkouter places the order for one tenant cart and clears it on success.
type Checkouter interface {
	Checkout(ctx context.Context, sessionID, tenant string) (checkoutdomain.Receipt, error)
}

type Server struct {
	sessions *session.Registry
	checkout Checkouter
	log      *slog.Logger
}

var _ CartServiceServer = (*Server)(nil)

// NewServer builds the cart service. checkout may be nil, in which case
// Checkout answers Unimplemented.
func NewServer(sessions *session.Registry, checkout Checkouter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		sessions: sessions,
		checkout: checkout,
		log:      log.With("component", "cart_grpc"),
	}
}

func (s *Server) GetCart(ctx context.Context, req *CartRequest) (*Cart, error) {
	tc, err := s.tenantCart(ctx, req.SessionID, req.StoreSlug)
	if err != nil {
		return nil, err
	}
	c := toCart(tc.Slug(), tc.Cart())
	return &c, nil
}

func (s *Server) AddItem(ctx context.Context, req *AddItemRequest) (*MutationResponse, error) {
	tc, err := s.tenantCart(ctx, req.SessionID, req.StoreSlug)
	if err != nil {
		return nil, err
	}

	p, err := toDomainProduct(req.Product)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "product %s: invalid price %q: %v", req.Product.ID, req.Product.Price, err)
	}
	return s.mutation(tc.Slug(), tc.Add(ctx, p, req.Quantity))
}

func (s *Server) SetItemQuantity(ctx context.Context, req *SetItemQuantityRequest) (*MutationResponse, error) {
	tc, err := s.tenantCart(ctx, req.SessionID, req.StoreSlug)
	if err != nil {
		return nil, err
	}
	return s.mutation(tc.Slug(), tc.SetQuantity(ctx, req.ProductID, req.Quantity))
}

func (s *Server) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*MutationResponse, error) {
	tc, err := s.tenantCart(ctx, req.SessionID, req.StoreSlug)
	if err != nil {
		return nil, err
	}
	return s.mutation(tc.Slug(), tc.Remove(ctx, req.ProductID))
}

func (s *Server) ClearCart(ctx context.Context, req *CartRequest) (*MutationResponse, error) {
	tc, err := s.tenantCart(ctx, req.SessionID, req.StoreSlug)
	if err != nil {
		return nil, err
	}
	return s.mutation(tc.Slug(), tc.Clear(ctx))
}

func (s *Server) Checkout(ctx context.Context, req *CartRequest) (*CheckoutResponse, error) {
	if s.checkout == nil {
		return nil, status.Error(codes.Unimplemented, "checkout is not configured")
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, status.Error(codes.InvalidArgument, session.ErrSessionRequired.Error())
	}

	r, err := s.checkout.Checkout(ctx, req.SessionID, req.StoreSlug)
	if err != nil {
		switch {
		case errors.Is(err, checkoutapp.ErrEmptyCart):
			return nil, status.Error(codes.FailedPrecondition, "cart is empty")
		case errors.Is(err, checkoutapp.ErrTenantRequired), errors.Is(err, session.ErrSessionRequired):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, checkoutapp.ErrNotConfirmed):
			return nil, status.Error(codes.Aborted, err.Error())
		case r.OrderID != "":
			return nil, status.Errorf(codes.Internal, "order %s placed but cart not cleared: %v", r.OrderID, err)
		default:
			return nil, status.Errorf(codes.Unavailable, "order service: %v", err)
		}
	}

	return &CheckoutResponse{
		OrderID: r.OrderID,
		Status:  r.Status,
		Cart:    toCart(req.StoreSlug, r.Cart),
	}, nil
}

// WatchCart sends the current cart, then one event per committed change of
// that tenant until the client goes away. A slow watcher only receives the
// newest change; every event carries the full cart.
func (s *Server) WatchCart(req *CartRequest, stream CartWatchStream) error {
	ctx := stream.Context()

	slug := strings.TrimSpace(req.StoreSlug)
	if slug == "" {
		return status.Error(codes.InvalidArgument, "store_slug is required")
	}
	store, release, err := s.sessions.Acquire(ctx, req.SessionID)
	if err != nil {
		return sessionStatus(err)
	}
	defer release()

	tc := app.NewFacade(store).Tenant(slug)

	pending := newLatest()
	unsubscribe := tc.Subscribe(func(ch app.Change) {
		pending.put(toChangeEvent(slug, ch))
	})
	defer unsubscribe()

	if err := stream.Send(&CartEvent{Op: "snapshot", Cart: toCart(slug, tc.Cart())}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pending.ready:
			if ev := pending.take(); ev != nil {
				if err := stream.Send(ev); err != nil {
					s.log.Debug("watch stream closed", slog.String("tenant", slug), slog.Any("err", err))
					return err
				}
			}
		}
	}
}

func (s *Server) tenantCart(ctx context.Context, sessionID, slug string) (*app.TenantCart, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, status.Error(codes.InvalidArgument, "store_slug is required")
	}
	f, err := s.sessions.Facade(ctx, sessionID)
	if err != nil {
		return nil, sessionStatus(err)
	}
	return f.Tenant(slug), nil
}

// mutation keeps stock failures as data and turns contract violations into
// status errors.
func (s *Server) mutation(slug string, res app.Result) (*MutationResponse, error) {
	switch res.Code {
	case app.CodeInvalidArgument:
		return nil, status.Error(codes.InvalidArgument, res.Message)
	case app.CodeInternal:
		s.log.Error("cart mutation failed", slog.String("tenant", slug), slog.String("err", res.Message))
		return nil, status.Error(codes.Internal, res.Message)
	}
	return toMutation(slug, res), nil
}

func sessionStatus(err error) error {
	if errors.Is(err, session.ErrSessionRequired) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Errorf(codes.Internal, "open session: %v", err)
}

// latest holds at most one undelivered event, replacing older ones. Events
// can arrive out of commit order; one with a revision at or below the last
// accepted one is dropped.
type latest struct {
	mu    sync.Mutex
	ev    *CartEvent
	rev   uint64
	ready chan struct{}
}

func newLatest() *latest {
	return &latest{ready: make(chan struct{}, 1)}
}

func (l *latest) put(ev *CartEvent) {
	l.mu.Lock()
	if ev.Revision <= l.rev {
		l.mu.Unlock()
		return
	}
	l.ev = ev
	l.rev = ev.Revision
	l.mu.Unlock()

	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *latest) take() *CartEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev := l.ev
	l.ev = nil
	return ev
}
