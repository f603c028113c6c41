package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cartgrpc "github.com/dwikikusuma/tenant-cart/internal/cart/grpc"
)

type handler struct {
	cart      CartClient
	timeout   time.Duration
	heartbeat time.Duration
	done      <-chan struct{}
	log       *slog.Logger
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// productID accepts both "17" and 17.
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
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*p = productID(n.String())
	return nil
}

type addItemBody struct {
	Product struct {
		ID     productID   `json:"id"`
		Name   string      `json:"name"`
		Price  json.Number `json:"price"`
		Stock  int         `json:"stock"`
		Photos []string    `json:"photos"`
	} `json:"product"`
	Quantity int `json:"quantity"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

func (h *handler) cartRequest(c *gin.Context) *cartgrpc.CartRequest {
	return &cartgrpc.CartRequest{
		SessionID: c.GetString(ctxSessionID),
		StoreSlug: c.Param("slug"),
	}
}

func (h *handler) callCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *handler) getCart(c *gin.Context) {
	ctx, cancel := h.callCtx(c)
	defer cancel()

	cart, err := h.cart.GetCart(ctx, h.cartRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handler) addItem(c *gin.Context) {
	var body addItemBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: err.Error()})
		return
	}

	ctx, cancel := h.callCtx(c)
	defer cancel()

	req := h.cartRequest(c)
	res, err := h.cart.AddItem(ctx, &cartgrpc.AddItemRequest{
		SessionID: req.SessionID,
		StoreSlug: req.StoreSlug,
		Product: cartgrpc.Product{
			ID:     string(body.Product.ID),
			Name:   body.Product.Name,
			Price:  body.Product.Price.String(),
			Stock:  body.Product.Stock,
			Photos: body.Product.Photos,
		},
		Quantity: body.Quantity,
	})
	h.mutation(c, res, err)
}

func (h *handler) setQuantity(c *gin.Context) {
	var body quantityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: err.Error()})
		return
	}

	ctx, cancel := h.callCtx(c)
	defer cancel()

	req := h.cartRequest(c)
	res, err := h.cart.SetItemQuantity(ctx, &cartgrpc.SetItemQuantityRequest{
		SessionID: req.SessionID,
		StoreSlug: req.StoreSlug,
		ProductID: c.Param("productId"),
		Quantity:  body.Quantity,
	})
	h.mutation(c, res, err)
}

func (h *handler) removeItem(c *gin.Context) {
	ctx, cancel := h.callCtx(c)
	defer cancel()

	req := h.cartRequest(c)
	res, err := h.cart.RemoveItem(ctx, &cartgrpc.RemoveItemRequest{
		SessionID: req.SessionID,
		StoreSlug: req.StoreSlug,
		ProductID: c.Param("productId"),
	})
	h.mutation(c, res, err)
}

func (h *handler) clearCart(c *gin.Context) {
	ctx, cancel := h.callCtx(c)
	defer cancel()

	res, err := h.cart.ClearCart(ctx, h.cartRequest(c))
	h.mutation(c, res, err)
}

func (h *handler) checkout(c *gin.Context) {
	ctx, cancel := h.callCtx(c)
	defer cancel()

	res, err := h.cart.Checkout(ctx, h.cartRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// watchCart streams cart changes as Server-Sent Events. The first event is
// the current cart.
func (h *handler) watchCart(c *gin.Context) {
	ctx := c.Request.Context()

	events, err := h.cart.WatchCart(ctx, h.cartRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	first, err := events.Recv()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent(first.Op, first)
	c.Writer.Flush()

	recv := make(chan *cartgrpc.CartEvent)
	errc := make(chan error, 1)
	go func() {
		for {
			ev, err := events.Recv()
			if err != nil {
				errc <- err
				return
			}
			select {
			case recv <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case err := <-errc:
			if !errors.Is(err, io.EOF) && status.Code(err) != codes.Canceled {
				h.log.Warn("cart watch ended", slog.String("tenant", c.Param("slug")), slog.Any("err", err))
			}
			return
		case ev := <-recv:
			c.SSEvent(ev.Op, ev)
			c.Writer.Flush()
		case <-heartbeat.C:
			_, _ = io.WriteString(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		}
	}
}

// mutation answers 409 with the cart when the change was refused for stock.
func (h *handler) mutation(c *gin.Context, res *cartgrpc.MutationResponse, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	if !res.Success {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) fail(c *gin.Context, err error) {
	code, reason, msg := httpStatusFromGRPC(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
		h.log.Error("cart service call failed",
			slog.String("path", c.FullPath()),
			slog.String("tenant", strings.TrimSpace(c.Param("slug"))),
			slog.Any("err", err),
		)
	}
	c.AbortWithStatusJSON(code, errorBody{Code: reason, Message: msg})
}
