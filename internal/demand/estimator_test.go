package demand

import (
	"math"
	"testing"

	"github.com/oasis-retail/allocator/internal/config"
	"github.com/oasis-retail/allocator/internal/domain"
)

func fp(v float64) *float64 { return &v }

func newPrimed(t *testing.T, skus []domain.SKU) *Estimator {
	t.Helper()
	e := NewEstimator(config.DefaultEngine())
	e.Prime(skus)
	return e
}

func TestEstimate_HistoryWins(t *testing.T) {
	e := newPrimed(t, nil)
	got := e.Estimate(domain.SKU{ID: "S1", DailySales: fp(4.5), Trend: domain.TrendGrowing})

	if got.Source != SourceHistory {
		t.Errorf("source = %s, want history", got.Source)
	}
	if got.Rate != 4.5 {
		t.Errorf("rate = %v, want 4.5", got.Rate)
	}
	if got.New {
		t.Error("SKU with history must not be flagged new")
	}
}

func TestEstimate_LookalikeMedian(t *testing.T) {
	// Four comparable dry SKUs in GROCERY: median of {1, 2, 4, 10} is 3.
	snapshot := []domain.SKU{
		{ID: "A", Department: "GROCERY", Perishability: domain.PerishDry, DailySales: fp(4)},
		{ID: "B", Department: "GROCERY", Perishability: domain.PerishDry, DailySales: fp(1)},
		{ID: "C", Department: "GROCERY", Perishability: domain.PerishDry, DailySales: fp(10)},
		{ID: "D", Department: "GROCERY", Perishability: domain.PerishDry, DailySales: fp(2)},
		// Different class, must not pollute the median.
		{ID: "E", Department: "GROCERY", Perishability: domain.PerishFresh, DailySales: fp(100)},
	}
	e := newPrimed(t, snapshot)

	got := e.Estimate(domain.SKU{ID: "NEW", Department: "GROCERY", Perishability: domain.PerishDry})
	if got.Source != SourceLookalike {
		t.Fatalf("source = %s, want lookalike", got.Source)
	}
	if want := 3.0 * 0.5; got.Rate != want {
		t.Errorf("rate = %v, want %v (median with new-product discount)", got.Rate, want)
	}
	if !got.New {
		t.Error("lookalike estimate must flag the SKU as new")
	}
}

func TestEstimate_ClassBaseline(t *testing.T) {
	e := newPrimed(t, nil)

	cases := []struct {
		name string
		sku  domain.SKU
		want float64
	}{
		{"fresh baseline", domain.SKU{ID: "F", Perishability: domain.PerishFresh}, 0.3},
		{"dry baseline", domain.SKU{ID: "D", Perishability: domain.PerishDry}, 0.5},
		{"long-life uses the dry baseline", domain.SKU{ID: "L", Perishability: domain.PerishLongLife}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Estimate(tc.sku)
			if got.Source != SourceBaseline {
				t.Errorf("source = %s, want baseline", got.Source)
			}
			if got.Rate != tc.want {
				t.Errorf("rate = %v, want %v", got.Rate, tc.want)
			}
		})
	}
}

func TestForecast_TrendBoostOnly(t *testing.T) {
	e := newPrimed(t, nil)

	cases := []struct {
		name  string
		trend domain.Trend
		want  float64
	}{
		{"growing boosts", domain.TrendGrowing, 2.4},
		{"stable unchanged", domain.TrendStable, 2.0},
		{"declining takes no penalty", domain.TrendDeclining, 2.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Forecast(Estimate{Rate: 2.0, Trend: tc.trend})
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("forecast = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEstimate_ZeroRateStaysStable(t *testing.T) {
	e := newPrimed(t, nil)
	got := e.Estimate(domain.SKU{ID: "Z", DailySales: fp(0), Stock: 50})
	if got.Rate != 0 {
		t.Errorf("rate = %v, want 0", got.Rate)
	}
	if got.Source != SourceHistory {
		t.Errorf("zero history is still history, got %s", got.Source)
	}
}

func TestMedian(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{1, 3, 9}, 3},
		{"even", []float64{1, 2, 4, 10}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := median(tc.in); got != tc.want {
				t.Errorf("median(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
