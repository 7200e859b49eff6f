// Package demand computes per-SKU daily sales rate estimates, falling
// back to category lookalikes and class baselines for new SKUs.
package demand

import (
	"sort"

	"github.com/oasis-retail/allocator/internal/config"
	"github.com/oasis-retail/allocator/internal/domain"
)

// RateSource identifies where an estimate came from.
type RateSource string

const (
	SourceHistory   RateSource = "history"
	SourceLookalike RateSource = "lookalike"
	SourceBaseline  RateSource = "baseline"
)

// Estimate is the demand picture for one SKU.
type Estimate struct {
	// Rate is the stored daily sales estimate, without trend adjustment.
	Rate   float64
	Trend  domain.Trend
	Source RateSource
	// New marks SKUs estimated without their own sales history.
	New bool
}

type baselineKey struct {
	department string
	class      domain.Perishability
}

// Estimator resolves daily rates for one SKU snapshot. Prime it with the
// full snapshot first so category lookalike medians are available.
type Estimator struct {
	cfg       config.EngineConfig
	baselines map[baselineKey]float64
}

func NewEstimator(cfg config.EngineConfig) *Estimator {
	return &Estimator{cfg: cfg, baselines: make(map[baselineKey]float64)}
}

// Prime computes the category lookalike medians from SKUs with history.
// Comparable means same department and same perishability class.
func (e *Estimator) Prime(skus []domain.SKU) {
	rates := make(map[baselineKey][]float64)
	for _, s := range skus {
		if s.DailySales == nil || *s.DailySales <= 0 {
			continue
		}
		k := baselineKey{department: s.Department, class: s.Perishability}
		rates[k] = append(rates[k], *s.DailySales)
	}

	for k, vals := range rates {
		sort.Float64s(vals)
		e.baselines[k] = median(vals)
	}
}

// Estimate returns the daily rate and trend for a SKU. A rate of exactly 0
// with stock on hand still classifies as stable; suppression is the
// overstock guard's job, never a division here.
func (e *Estimator) Estimate(sku domain.SKU) Estimate {
	trend := sku.Trend
	if trend == "" {
		trend = domain.TrendStable
	}

	if sku.DailySales != nil {
		return Estimate{Rate: *sku.DailySales, Trend: trend, Source: SourceHistory}
	}

	k := baselineKey{department: sku.Department, class: sku.Perishability}
	if lookalike, ok := e.baselines[k]; ok && lookalike > 0 {
		return Estimate{
			Rate:   lookalike * e.cfg.LookalikeDiscount,
			Trend:  trend,
			Source: SourceLookalike,
			New:    true,
		}
	}

	rate := e.cfg.DryBaselineRate
	if sku.Perishability == domain.PerishFresh {
		rate = e.cfg.FreshBaselineRate
	}
	return Estimate{Rate: rate, Trend: trend, Source: SourceBaseline, New: true}
}

// Forecast applies the trend multiplier for forecasting purposes only.
// Growth gets a boost; declining takes no penalty, it only feeds guards.
func (e *Estimator) Forecast(est Estimate) float64 {
	if est.Trend == domain.TrendGrowing {
		return est.Rate * e.cfg.GrowthTrendBoost
	}
	return est.Rate
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
