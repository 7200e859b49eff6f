// Package tier maps a store's total budget to a fixed allocation profile.
package tier

import (
	"github.com/shopspring/decimal"

	"github.com/oasis-retail/allocator/internal/domain"
)

// Tier names the eight store size bands, smallest first.
type Tier string

const (
	Micro       Tier = "Micro"
	MicroPlus   Tier = "Micro+"
	MiniMart    Tier = "Mini-Mart"
	Super       Tier = "Super"
	Supermarket Tier = "Supermarket"
	Hyper       Tier = "Hyper"
	Mega        Tier = "Mega"
	Ultra       Tier = "Ultra"
)

// Profile is the immutable constraint bundle for one tier. It is derived
// once per allocation run and read-only thereafter.
type Profile struct {
	Tier         Tier
	MinBudget    float64
	DepthDays    float64
	PriceCeiling float64
	MaxPacks     int
	MinDisplay   int
	// WalletPcts partitions the depth budget by department; departments not
	// listed draw from the GeneralDept share.
	WalletPcts map[string]float64
	BufferPct  float64
	// IncludeCClass admits slow movers that larger stores can afford to shelve.
	IncludeCClass bool
	// DemandScale discounts velocity for the low-demand filter: a bigger
	// store's historical data represents proportionally more absolute volume.
	DemandScale float64
	// Small stores drop negligible-demand discretionary SKUs in pass 1.
	Small bool
}

// GeneralDept is the fallback wallet for departments without an explicit share.
const GeneralDept = "GENERAL"

// Small stores concentrate depth budget on the essential "fast five"
// departments; wide stores spread it nearly flat.
var essentialWalletPcts = map[string]float64{
	"FRESH MILK":  0.12,
	"BREAD":       0.12,
	"COOKING OIL": 0.14,
	"FLOUR":       0.12,
	"SUGAR":       0.10,
	GeneralDept:   0.40,
}

var wideWalletPcts = map[string]float64{
	"FRESH MILK":  0.06,
	"BREAD":       0.06,
	"COOKING OIL": 0.06,
	"FLOUR":       0.06,
	"SUGAR":       0.06,
	GeneralDept:   0.70,
}

// profiles is ordered by MinBudget; ProfileForBudget picks the last row at
// or below the budget. DepthDays, PriceCeiling, MaxPacks and DemandScale
// are non-decreasing down the table.
var profiles = []Profile{
	{Tier: Micro, MinBudget: 0, DepthDays: 7, PriceCeiling: 300, MaxPacks: 12, MinDisplay: 3,
		WalletPcts: essentialWalletPcts, BufferPct: 0.10, IncludeCClass: false, DemandScale: 0.02, Small: true},
	{Tier: MicroPlus, MinBudget: 200_000, DepthDays: 10, PriceCeiling: 500, MaxPacks: 18, MinDisplay: 3,
		WalletPcts: essentialWalletPcts, BufferPct: 0.15, IncludeCClass: false, DemandScale: 0.05, Small: true},
	{Tier: MiniMart, MinBudget: 1_000_000, DepthDays: 14, PriceCeiling: 2_500, MaxPacks: 24, MinDisplay: 6,
		WalletPcts: essentialWalletPcts, BufferPct: 0.25, IncludeCClass: true, DemandScale: 0.10, Small: false},
	{Tier: Super, MinBudget: 3_000_000, DepthDays: 17, PriceCeiling: 8_000, MaxPacks: 36, MinDisplay: 8,
		WalletPcts: wideWalletPcts, BufferPct: 0.35, IncludeCClass: true, DemandScale: 0.20, Small: false},
	{Tier: Supermarket, MinBudget: 10_000_000, DepthDays: 21, PriceCeiling: 20_000, MaxPacks: 48, MinDisplay: 12,
		WalletPcts: wideWalletPcts, BufferPct: 0.50, IncludeCClass: true, DemandScale: 0.40, Small: false},
	{Tier: Hyper, MinBudget: 25_000_000, DepthDays: 25, PriceCeiling: 50_000, MaxPacks: 96, MinDisplay: 18,
		WalletPcts: wideWalletPcts, BufferPct: 0.75, IncludeCClass: true, DemandScale: 0.60, Small: false},
	{Tier: Mega, MinBudget: 50_000_000, DepthDays: 30, PriceCeiling: 100_000, MaxPacks: 999, MinDisplay: 24,
		WalletPcts: wideWalletPcts, BufferPct: 1.00, IncludeCClass: true, DemandScale: 0.80, Small: false},
	{Tier: Ultra, MinBudget: 200_000_000, DepthDays: 60, PriceCeiling: 999_999, MaxPacks: 9_999, MinDisplay: 48,
		WalletPcts: wideWalletPcts, BufferPct: 2.00, IncludeCClass: true, DemandScale: 1.00, Small: false},
}

// Profiles returns the full tier table, smallest tier first.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// ProfileForBudget resolves the store profile for a total budget. A negative
// budget is a configuration error; the caller must not start any pass.
func ProfileForBudget(budget decimal.Decimal) (Profile, error) {
	if budget.IsNegative() {
		return Profile{}, &domain.ConfigError{Field: "total_budget", Message: "budget must not be negative"}
	}

	b := budget.InexactFloat64()
	selected := profiles[0]
	for _, p := range profiles {
		if b >= p.MinBudget {
			selected = p
		}
	}
	return selected, nil
}

// WalletPct returns the department's share of the depth budget, falling
// back to the general share for unlisted departments.
func (p Profile) WalletPct(department string) float64 {
	if pct, ok := p.WalletPcts[department]; ok {
		return pct
	}
	return p.WalletPcts[GeneralDept]
}
