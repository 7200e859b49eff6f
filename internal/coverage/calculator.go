// Package coverage converts a SKU's demand rate into a days-of-cover
// target and a pack-aligned unit quantity.
package coverage

import (
	"math"

	"github.com/oasis-retail/allocator/internal/config"
	"github.com/oasis-retail/allocator/internal/domain"
	"github.com/oasis-retail/allocator/internal/tier"
)

// longLifeFloorDays keeps chilled long-life SKUs stocked for at least a
// week even on very frequent delivery schedules.
const longLifeFloorDays = 7.0

// jitBufferDays pads the delivery-cycle coverage for fresh SKUs so the
// shelf survives a late truck.
const jitBufferDays = 0.25

// Target is the coverage computation for one SKU.
type Target struct {
	// Days is the coverage target before the expiry clamp.
	Days float64
	// EffectiveDays is Days after the expiry clamp, 0 when the shelf life
	// is too short to allocate at all.
	EffectiveDays float64
	RawUnits      float64
	// Units is the final pack-aligned, capped quantity.
	Units   int
	Reasons []domain.ReasonCode
}

// Calculator derives target quantities under a tier profile.
type Calculator struct {
	cfg config.EngineConfig
}

func NewCalculator(cfg config.EngineConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// TargetQuantity computes the days-of-cover target for a SKU and converts
// it to units. Ordering is load-bearing: the expiry clamp applies before
// pack rounding, and the MDQ floor applies after it.
func (c *Calculator) TargetQuantity(sku domain.SKU, dailyRate float64, p tier.Profile) Target {
	t := Target{}

	if sku.Perishability.Perishable() {
		// JIT frequency rule: cover one delivery cycle plus a buffer.
		freq := sku.DeliveryFrequency
		if freq <= 0 {
			freq = 1.0
		}
		t.Days = 1.0/freq + jitBufferDays
		if sku.Perishability == domain.PerishLongLife {
			t.Days = math.Max(longLifeFloorDays, t.Days)
		}
	} else {
		t.Days = p.DepthDays
		// Additive risk buffers; both may apply.
		bufferPct := 0.0
		if sku.Reliability < c.cfg.ReliabilityThreshold {
			bufferPct += c.cfg.ReliabilityBufferPct
		}
		if sku.DemandCV > c.cfg.VolatilityThreshold {
			bufferPct += c.cfg.VolatilityBufferPct
		}
		if bufferPct > 0 {
			t.Days *= 1 + bufferPct
			t.Reasons = append(t.Reasons, domain.ReasonRiskBuffer)
		}
	}

	t.EffectiveDays = t.Days
	if sku.Perishability.Perishable() && sku.ShelfLifeDays > 0 {
		safeDays := float64(sku.ShelfLifeDays) - c.cfg.ExpirySafetyDays
		if safeDays <= 0 {
			// Immediate-expiry guard: nothing can sell through in time.
			t.EffectiveDays = 0
			t.Reasons = append(t.Reasons, domain.ReasonExpiryClamp)
			return t
		}
		if safeDays < t.EffectiveDays {
			t.EffectiveDays = safeDays
			t.Reasons = append(t.Reasons, domain.ReasonExpiryClamp)
		}
	}

	t.RawUnits = dailyRate * t.EffectiveDays

	// Partial packs cannot be purchased: always round up.
	t.Units = RoundUpToPack(t.RawUnits, sku.PackSize)

	capUnits := p.MaxPacks * sku.PackSize
	if t.Units > capUnits {
		t.Units = capUnits
		t.Reasons = append(t.Reasons, domain.ReasonPackCap)
	}

	// Shelf-never-looks-empty rule: active SKUs get the display floor.
	if active(sku) {
		floor := RoundUpToPack(float64(p.MinDisplay), sku.PackSize)
		if floor > capUnits {
			floor = capUnits
		}
		if t.Units < floor {
			t.Units = floor
			t.Reasons = append(t.Reasons, domain.ReasonMDQFloor)
		}
	}

	return t
}

// RoundUpToPack rounds units up to the nearest whole-pack multiple.
func RoundUpToPack(units float64, packSize int) int {
	if packSize < 1 {
		packSize = 1
	}
	if units <= 0 {
		return 0
	}
	packs := int(math.Ceil(units / float64(packSize)))
	return packs * packSize
}

// active reports whether the SKU is sold out but proven to sell: empty
// shelf with a historical sales record.
func active(sku domain.SKU) bool {
	return sku.Stock == 0 && sku.DailySales != nil && *sku.DailySales > 0
}
