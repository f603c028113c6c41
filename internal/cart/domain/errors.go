package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// StockError carries what the shopper holds and what is available so the
// caller can render a precise message.
type StockError struct {
	ProductID string
	Held      int
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("product %s is out of stock", e.ProductID)
	}
	return fmt.Sprintf("only %d units of product %s available, %d already in cart", e.Available, e.ProductID, e.Held)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
