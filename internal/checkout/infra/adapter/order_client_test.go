package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwikikusuma/tenant-cart/internal/checkout/domain"
)

func TestOrderClientPlaceOrder(t *testing.T) {
	gotc := make(chan domain.OrderPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		var got domain.OrderPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		gotc <- got

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"ord-1","status":"created"}`))
	}))
	defer srv.Close()

	c := NewOrderClient(srv.URL+"/", 0)
	conf, err := c.PlaceOrder(context.Background(), domain.OrderPayload{
		TenantID: "zapatos-andinos",
		Items:    []domain.OrderLine{{ProductID: "5", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Confirmation{OrderID: "ord-1", Status: "created"}, conf)
	got := <-gotc
	assert.Equal(t, "zapatos-andinos", got.TenantID)
	assert.Equal(t, []domain.OrderLine{{ProductID: "5", Quantity: 3}}, got.Items)
}

func TestOrderClientRejectedOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "out of stock", http.StatusConflict)
	}))
	defer srv.Close()

	_, err := NewOrderClient(srv.URL, 0).PlaceOrder(context.Background(), domain.OrderPayload{TenantID: "t"})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	assert.Equal(t, "out of stock", se.Body)
}

func TestOrderClientBadConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewOrderClient(srv.URL, 0).PlaceOrder(context.Background(), domain.OrderPayload{TenantID: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode order confirmation")
}
