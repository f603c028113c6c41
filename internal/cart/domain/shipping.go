package domain

import "github.com/shopspring/decimal"

type Shipping struct {
	RatePercent int
	Cost        decimal.Decimal
}

type shippingTier struct {
	from        decimal.Decimal
	ratePercent int
}

// Tiers are ordered by descending lower bound; each bound is inclusive.
var shippingTiers = []shippingTier{
	{from: decimal.NewFromInt(1000), ratePercent: 0},
	{from: decimal.NewFromInt(500), ratePercent: 5},
	{from: decimal.NewFromInt(100), ratePercent: 10},
	{from: decimal.Zero, ratePercent: 15},
}

var hundred = decimal.NewFromInt(100)

// ComputeShipping is the only place shipping is priced. A zero or negative
// subtotal ships free.
func ComputeShipping(subtotal decimal.Decimal) Shipping {
	if !subtotal.IsPositive() {
		return Shipping{Cost: decimal.Zero}
	}

	for _, t := range shippingTiers {
		if subtotal.GreaterThanOrEqual(t.from) {
			return Shipping{
				RatePercent: t.ratePercent,
				Cost:        subtotal.Mul(decimal.NewFromInt(int64(t.ratePercent))).Div(hundred),
			}
		}
	}

	return Shipping{Cost: decimal.Zero}
}
