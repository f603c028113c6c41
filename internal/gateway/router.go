package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gogrpc "google.golang.org/grpc"

	cartgrpc "github.com/dwikikusuma/tenant-cart/internal/cart/grpc"
)

// CartClient is the part of the cart service the gateway calls.
type CartClient interface {
	GetCart(ctx context.Context, in *cartgrpc.CartRequest, opts ...gogrpc.CallOption) (*cartgrpc.Cart, error)
	AddItem(ctx context.Context, in *cartgrpc.AddItemRequest, opts ...gogrpc.CallOption) (*cartgrpc.MutationResponse, error)
	SetItemQuantity(ctx context.Context, in *cartgrpc.SetItemQuantityRequest, opts ...gogrpc.CallOption) (*cartgrpc.MutationResponse, error)
	RemoveItem(ctx context.Context, in *cartgrpc.RemoveItemRequest, opts ...gogrpc.CallOption) (*cartgrpc.MutationResponse, error)
	ClearCart(ctx context.Context, in *cartgrpc.CartRequest, opts ...gogrpc.CallOption) (*cartgrpc.MutationResponse, error)
	Checkout(ctx context.Context, in *cartgrpc.CartRequest, opts ...gogrpc.CallOption) (*cartgrpc.CheckoutResponse, error)
	WatchCart(ctx context.Context, in *cartgrpc.CartRequest, opts ...gogrpc.CallOption) (cartgrpc.CartEvents, error)
}

var _ CartClient = (*cartgrpc.Client)(nil)

type Options struct {
	Log         *slog.Logger
	Timeout     time.Duration
	CORSOrigins []string
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
	// Ready reports whether the cart service is reachable.
	Ready func() error
	// Done ends open event streams so shutdown does not wait on them.
	Done <-chan struct{}
}

func NewRouter(client CartClient, opts Options) *gin.Engine {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}

	h := &handler{
		cart:      client,
		timeout:   opts.Timeout,
		heartbeat: opts.Heartbeat,
		done:      opts.Done,
		log:       opts.Log.With("component", "gateway"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Metrics(), RequestLogger(h.log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(CORS(opts.CORSOrigins))
	}

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			if err := opts.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
		}
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1/stores/:slug", Session())
	{
		v1.GET("/cart", h.getCart)
		v1.DELETE("/cart", h.clearCart)
		v1.POST("/cart/items", h.addItem)
		v1.PUT("/cart/items/:productId", h.setQuantity)
		v1.DELETE("/cart/items/:productId", h.removeItem)
		v1.GET("/cart/events", h.watchCart)
		v1.POST("/checkout", h.checkout)
	}

	return r
}
