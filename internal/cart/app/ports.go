package app

import (
	"context"

	"github.com/dwikikusuma/tenant-cart/internal/cart/domain"
)

// CollectionStore persists the whole tenant → cart map under one key.
type CollectionStore interface {
	Load(ctx context.Context) (domain.Collection, error)
	Save(ctx context.Context, c domain.Collection) error
}
