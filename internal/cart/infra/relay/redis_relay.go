package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
)

const DefaultChannel = "tenant-cart.changes"

// Message is what other processes receive for every committed change.
type Message struct {
	SessionID string `json:"session_id"`
	StoreSlug string `json:"store_slug"`
	Op        string `json:"op"`
	ProductID string `json:"product_id,omitempty"`
	ItemCount int    `json:"item_count"`
	Total     string `json:"total"`
	AtUnix    int64  `json:"at_unix"`
	Revision  uint64 `json:"revision"`
}

// RedisPublisher forwards cart changes to a Redis channel. It only reports
// changes; nothing it publishes is read back into cart state.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
	timeout time.Duration
	log     *slog.Logger
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string, log *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		timeout: 2 * time.Second,
		log:     log.With("component", "cart_relay"),
	}
}

// Listener returns a store listener bound to one session. Publish failures
// are logged and dropped.
func (p *RedisPublisher) Listener(sessionID string) app.Listener {
	return func(ch app.Change) {
		msg := Message{
			SessionID: sessionID,
			StoreSlug: ch.Tenant,
			Op:        string(ch.Op),
			ProductID: ch.ProductID,
			ItemCount: ch.Cart.ItemCount,
			Total:     ch.Cart.Total.String(),
			AtUnix:    ch.At.Unix(),
			Revision:  ch.Revision,
		}

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.Publish(ctx, msg); err != nil {
			p.log.Warn("cart change publish failed",
				slog.String("session", sessionID),
				slog.String("tenant", ch.Tenant),
				slog.Any("err", err),
			)
		}
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}
