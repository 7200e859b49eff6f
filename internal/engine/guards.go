package engine

import "github.com/oasis-retail/allocator/internal/domain"

// overstocked reports whether current stock already carries the SKU
// through its coverage window. A zero sales rate with stock on hand is
// always overstocked: the shelf holds units nobody is buying.
func overstocked(it *item) bool {
	if it.sku.Stock <= 0 {
		return false
	}
	if it.est.Rate == 0 {
		return true
	}
	return it.target.Units > 0 && it.sku.Stock >= it.target.Units
}

// redistributeBarred reports whether a SKU may never receive top-up from
// the redistribution pass. Fresh stock is a hard exclusion regardless of
// priority: topping up fresh is how spoilage happens. Declining SKUs
// holding stock are barred as well; the trend never boosts, it only
// tightens guards.
func redistributeBarred(it *item) bool {
	if it.sku.Perishability == domain.PerishFresh {
		return true
	}
	return it.est.Trend == domain.TrendDeclining && it.sku.Stock > 0
}
