package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dwikikusuma/tenant-cart/internal/cart/app"
	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
)

const DefaultKey = "tenant-cart.collection"

var ErrNoValue = errors.New("no value stored")

// KV is a durable key-value slot. Get returns ErrNoValue for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// SessionKey namespaces the collection key for one shopper session.
func SessionKey(base, sessionID string) string {
	if base == "" {
		base = DefaultKey
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return base
	}
	return base + ":" + sessionID
}

// Slot stores the whole collection as one JSON value under a fixed key.
type Slot struct {
	kv  KV
	key string
}

func NewSlot(kv KV, key string) *Slot {
	if key == "" {
		key = DefaultKey
	}
	return &Slot{kv: kv, key: key}
}

func (s *Slot) Key() string { return s.key }

func (s *Slot) Load(ctx context.Context) (domain.Collection, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, ErrNoValue) {
		return domain.Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	if len(raw) == 0 {
		return domain.Collection{}, nil
	}

	c, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return c, nil
}

func (s *Slot) Save(ctx context.Context, c domain.Collection) error {
	raw, err := Encode(c)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.kv.Put(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	return nil
}

var _ app.CollectionStore = (*Slot)(nil)
