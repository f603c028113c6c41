package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	checkoutapp "github.com/dwikikusuma/tenant-cart/internal/checkout/app"
	"github.com/dwikikusuma/tenant-cart/internal/checkout/domain"
)

// StatusError is returned when the order service answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("order service returned %d: %s", e.StatusCode, e.Body)
}

// OrderClient posts order payloads to the external order service.
type OrderClient struct {
	endpoint string
	http     *http.Client
}

var _ checkoutapp.OrderPlacer = (*OrderClient)(nil)

func NewOrderClient(baseURL string, timeout time.Duration) *OrderClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/orders",
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *OrderClient) PlaceOrder(ctx context.Context, order domain.OrderPayload) (domain.Confirmation, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return domain.Confirmation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Confirmation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Confirmation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return domain.Confirmation{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var conf domain.Confirmation
	if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
		return domain.Confirmation{}, fmt.Errorf("decode order confirmation: %w", err)
	}
	return conf, nil
}
