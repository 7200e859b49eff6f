package coverage

import (
	"math"
	"testing"

	"github.com/oasis-retail/allocator/internal/config"
	"github.com/oasis-retail/allocator/internal/domain"
	"github.com/oasis-retail/allocator/internal/tier"
)

func fp(v float64) *float64 { return &v }

func microProfile(t *testing.T) tier.Profile {
	t.Helper()
	p := tier.Profiles()[0]
	if p.Tier != tier.Micro {
		t.Fatalf("expected smallest tier first, got %s", p.Tier)
	}
	return p
}

func TestTargetQuantity_FreshDisplayFloor(t *testing.T) {
	// Slow daily-delivered fresh SKU, sold out but proven to sell: the
	// coverage math says 1 unit, the display floor raises it to 3.
	c := NewCalculator(config.DefaultEngine())
	sku := domain.SKU{
		ID:                "MILK-1L",
		Perishability:     domain.PerishFresh,
		DeliveryFrequency: 1.0,
		ShelfLifeDays:     5,
		PackSize:          1,
		Stock:             0,
		DailySales:        fp(0.3),
	}

	got := c.TargetQuantity(sku, 0.3, microProfile(t))

	if want := 1.25; math.Abs(got.Days-want) > 1e-9 {
		t.Errorf("Days = %v, want %v", got.Days, want)
	}
	if got.EffectiveDays != got.Days {
		t.Errorf("shelf life 5 must not clamp a %.2f day target", got.Days)
	}
	if got.Units != 3 {
		t.Errorf("Units = %d, want 3 (display floor)", got.Units)
	}
	if !hasReason(got.Reasons, domain.ReasonMDQFloor) {
		t.Error("expected the display-floor reason code")
	}
}

func TestTargetQuantity_LongLifeWeeklyDelivery(t *testing.T) {
	// Delivery every ~7 days beats the 7-day floor; 1.1/day over 7.39
	// days is 8.13 units, rounded up to three 3-packs.
	c := NewCalculator(config.DefaultEngine())
	sku := domain.SKU{
		ID:                "UHT-MILK",
		Perishability:     domain.PerishLongLife,
		DeliveryFrequency: 0.14,
		ShelfLifeDays:     90,
		PackSize:          3,
		Stock:             4,
		DailySales:        fp(1.1),
	}

	got := c.TargetQuantity(sku, 1.1, microProfile(t))

	if want := 1.0/0.14 + 0.25; math.Abs(got.Days-want) > 1e-9 {
		t.Errorf("Days = %v, want %v", got.Days, want)
	}
	if got.Units != 9 {
		t.Errorf("Units = %d, want 9", got.Units)
	}
}

func TestTargetQuantity_LongLifeFloor(t *testing.T) {
	// Daily delivery would give 1.25 days; long-life holds at a week.
	c := NewCalculator(config.DefaultEngine())
	sku := domain.SKU{
		ID:                "YOGURT",
		Perishability:     domain.PerishLongLife,
		DeliveryFrequency: 1.0,
		ShelfLifeDays:     30,
		PackSize:          1,
		Stock:             2,
	}

	got := c.TargetQuantity(sku, 1.0, microProfile(t))
	if got.Days != 7.0 {
		t.Errorf("Days = %v, want the 7 day floor", got.Days)
	}
}

func TestTargetQuantity_ExpiryClampBeforeRounding(t *testing.T) {
	// Shelf life 4 leaves 2 safe days. The clamp applies to days, then
	// rounding: 2 days * 2.6/day = 5.2 -> 6 with pack 2. Clamping after
	// rounding would have produced a different, larger figure.
	c := NewCalculator(config.DefaultEngine())
	sku := domain.SKU{
		ID:                "SALAD",
		Perishability:     domain.PerishFresh,
		DeliveryFrequency: 0.2,
		ShelfLifeDays:     4,
		PackSize:          2,
		Stock:             1,
		DailySales:        fp(2.6),
	}

	got := c.TargetQuantity(sku, 2.6, microProfile(t))

	if got.EffectiveDays != 2.0 {
		t.Errorf("EffectiveDays = %v, want 2.0", got.EffectiveDays)
	}
	if !hasReason(got.Reasons, domain.ReasonExpiryClamp) {
		t.Error("expected the expiry-clamp reason code")
	}
	if got.Units != 6 {
		t.Errorf("Units = %d, want 6", got.Units)
	}
}

func TestTargetQuantity_ImmediateExpiry(t *testing.T) {
	c := NewCalculator(config.DefaultEngine())
	sku := domain.SKU{
		ID:                "HERBS",
		Perishability:     domain.PerishFresh,
		DeliveryFrequency: 1.0,
		ShelfLifeDays:     2,
		PackSize:          1,
		DailySales:        fp(5),
	}

	got := c.TargetQuantity(sku, 5, microProfile(t))
	if got.EffectiveDays != 0 {
		t.Errorf("EffectiveDays = %v, want 0", got.EffectiveDays)
	}
	if got.Units != 0 {
		t.Errorf("Units = %d, want 0", got.Units)
	}
	if !hasReason(got.Reasons, domain.ReasonExpiryClamp) {
		t.Error("expected the expiry-clamp reason code")
	}
}

func TestTargetQuantity_RiskBuffers(t *testing.T) {
	c := NewCalculator(config.DefaultEngine())
	p := microProfile(t)

	cases := []struct {
		name     string
		sku      domain.SKU
		wantDays float64
	}{
		{
			"no buffers",
			domain.SKU{ID: "A", Perishability: domain.PerishDry, Reliability: 90, DemandCV: 0.3},
			p.DepthDays,
		},
		{
			"unreliable supplier",
			domain.SKU{ID: "B", Perishability: domain.PerishDry, Reliability: 50, DemandCV: 0.3},
			p.DepthDays * 1.25,
		},
		{
			"volatile demand",
			domain.SKU{ID: "C", Perishability: domain.PerishDry, Reliability: 90, DemandCV: 0.9},
			p.DepthDays * 1.15,
		},
		{
			"both buffers stack additively",
			domain.SKU{ID: "D", Perishability: domain.PerishDry, Reliability: 50, DemandCV: 0.9},
			p.DepthDays * 1.40,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.TargetQuantity(tc.sku, 1.0, p)
			if math.Abs(got.Days-tc.wantDays) > 1e-9 {
				t.Errorf("Days = %v, want %v", got.Days, tc.wantDays)
			}
		})
	}
}

func TestTargetQuantity_PackCap(t *testing.T) {
	c := NewCalculator(config.DefaultEngine())
	p := microProfile(t) // MaxPacks 12
	sku := domain.SKU{
		ID:            "RICE-5KG",
		Perishability: domain.PerishDry,
		PackSize:      4,
		Stock:         0,
		DailySales:    fp(40),
		Reliability:   90,
	}

	got := c.TargetQuantity(sku, 40, p)
	if want := p.MaxPacks * 4; got.Units != want {
		t.Errorf("Units = %d, want cap %d", got.Units, want)
	}
	if !hasReason(got.Reasons, domain.ReasonPackCap) {
		t.Error("expected the pack-cap reason code")
	}
}

func TestRoundUpToPack(t *testing.T) {
	cases := []struct {
		units float64
		pack  int
		want  int
	}{
		{0, 6, 0},
		{-2, 6, 0},
		{0.1, 6, 6},
		{6, 6, 6},
		{6.01, 6, 12},
		{8.13, 3, 9},
		{5, 1, 5},
		{5, 0, 5}, // degenerate pack size treated as 1
	}
	for _, tc := range cases {
		if got := RoundUpToPack(tc.units, tc.pack); got != tc.want {
			t.Errorf("RoundUpToPack(%v, %d) = %d, want %d", tc.units, tc.pack, got, tc.want)
		}
	}
}

func hasReason(codes []domain.ReasonCode, want domain.ReasonCode) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}
