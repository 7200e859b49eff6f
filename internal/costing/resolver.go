// Package costing determines the true unit cost of a SKU through an
// ordered chain of resolver strategies, first success wins.
package costing

import (
	"github.com/shopspring/decimal"

	"github.com/oasis-retail/allocator/internal/domain"
)

// flatMarginEstimate is the assumed cost fraction of the sell price when
// neither GRN history nor a margin figure is available.
const flatMarginEstimate = 0.75

// Strategy attempts to resolve a unit cost from one source of truth.
type Strategy interface {
	Name() string
	Resolve(sku domain.SKU) (decimal.Decimal, bool)
}

// grnStrategy uses the historical goods-received unit cost, the most
// accurate source since it reflects actual purchase prices.
type grnStrategy struct{}

func (grnStrategy) Name() string { return "grn_history" }

func (grnStrategy) Resolve(sku domain.SKU) (decimal.Decimal, bool) {
	if sku.GRNCost != nil && *sku.GRNCost > 0 {
		return decimal.NewFromFloat(*sku.GRNCost), true
	}
	return decimal.Zero, false
}

// marginStrategy derives cost from the sell price and the known margin.
type marginStrategy struct{}

func (marginStrategy) Name() string { return "margin_derived" }

func (marginStrategy) Resolve(sku domain.SKU) (decimal.Decimal, bool) {
	if sku.MarginPct == nil {
		return decimal.Zero, false
	}
	m := *sku.MarginPct
	if m < 0 || m >= 1 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(sku.SellPrice).Mul(decimal.NewFromFloat(1 - m)), true
}

// estimateStrategy is the terminal fallback: assume a 25% margin.
type estimateStrategy struct{}

func (estimateStrategy) Name() string { return "price_estimate" }

func (estimateStrategy) Resolve(sku domain.SKU) (decimal.Decimal, bool) {
	return decimal.NewFromFloat(sku.SellPrice).Mul(decimal.NewFromFloat(flatMarginEstimate)), true
}

// Resolver walks the strategy chain. It is pure and has no error path:
// the final strategy always succeeds.
type Resolver struct {
	chain []Strategy
}

// NewResolver builds the default chain: GRN history, margin, flat estimate.
func NewResolver() *Resolver {
	return &Resolver{chain: []Strategy{grnStrategy{}, marginStrategy{}, estimateStrategy{}}}
}

// UnitCost returns the resolved unit cost for the SKU.
func (r *Resolver) UnitCost(sku domain.SKU) decimal.Decimal {
	cost, _ := r.Source(sku)
	return cost
}

// Source returns the resolved cost together with the strategy that won.
func (r *Resolver) Source(sku domain.SKU) (decimal.Decimal, string) {
	for _, s := range r.chain {
		if cost, ok := s.Resolve(sku); ok {
			return cost, s.Name()
		}
	}
	// Unreachable: estimateStrategy always resolves.
	return decimal.NewFromFloat(sku.SellPrice).Mul(decimal.NewFromFloat(flatMarginEstimate)), "price_estimate"
}
