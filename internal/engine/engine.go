// Package engine runs the multi-pass "Width then Depth" allocation
// waterfall over a SKU snapshot and a store budget.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oasis-retail/allocator/internal/config"
	"github.com/oasis-retail/allocator/internal/costing"
	"github.com/oasis-retail/allocator/internal/coverage"
	"github.com/oasis-retail/allocator/internal/demand"
	"github.com/oasis-retail/allocator/internal/domain"
	"github.com/oasis-retail/allocator/internal/tier"
	"github.com/oasis-retail/allocator/pkg/logger"
)

// Result is the complete, internally consistent output of one run.
// Callers see either a Result or a single configuration error, never a
// partially populated set.
type Result struct {
	Profile     tier.Profile
	Allocations []domain.Allocation
	Defects     []domain.Defect
	Summary     Summary
}

// Summary aggregates per-pass spend and skip accounting for one run.
type Summary struct {
	TotalBudget       decimal.Decimal
	Pass1Cash         decimal.Decimal
	Pass1Consignment  decimal.Decimal
	Pass2Cash         decimal.Decimal
	Pass2Consignment  decimal.Decimal
	Pass2BCash        decimal.Decimal
	TotalCashUsed     decimal.Decimal
	TotalConsignment  decimal.Decimal
	UnusedBudget      decimal.Decimal
	UtilizationPct    float64
	Skipped           int
	SkipReasons       map[domain.ReasonCode]int
	DeptUtilization   map[string]float64
	RedistributionRan bool
}

// item is the per-SKU working state threaded through the passes.
type item struct {
	sku    domain.SKU
	est    demand.Estimate
	rate   float64 // forecast rate (trend-adjusted), used for ordering and filters
	cost   decimal.Decimal
	target coverage.Target
	alloc  *domain.Allocation

	// eligible items survive pass-1 filtering and may receive depth.
	eligible bool
	// walletClamped marks a pass-2 clamp caused by a wallet ceiling, the
	// only clamp that qualifies an item for redistribution.
	walletClamped bool
}

// Engine orchestrates the allocation passes. It is safe for concurrent
// use: each run owns an isolated ledger, wallets and SKU snapshot.
type Engine struct {
	cfg      config.EngineConfig
	costs    *costing.Resolver
	calc     *coverage.Calculator
	fastFive map[string]bool
	log      zerolog.Logger
}

func New(cfg config.EngineConfig) *Engine {
	ff := make(map[string]bool, len(cfg.FastFiveDepartments))
	for _, d := range cfg.FastFiveDepartments {
		ff[d] = true
	}
	return &Engine{
		cfg:      cfg,
		costs:    costing.NewResolver(),
		calc:     coverage.NewCalculator(cfg),
		fastFive: ff,
		log:      logger.Log.With().Str("component", "allocation_engine").Logger(),
	}
}

// Allocate runs the full waterfall: INIT -> PASS1_WIDTH -> PASS2_DEPTH ->
// PASS2B_REDISTRIBUTE -> DONE. It fails fast on configuration problems
// and never aborts on per-SKU data defects.
func (e *Engine) Allocate(ctx context.Context, skus []domain.SKU, budget domain.BudgetContext) (*Result, error) {
	profile, err := tier.ProfileForBudget(budget.TotalBudget)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("allocation cancelled: %w", err)
	}

	e.log.Info().
		Str("tier", string(profile.Tier)).
		Str("budget", budget.TotalBudget.StringFixed(0)).
		Int("skus", len(skus)).
		Msg("starting tiered allocation")

	items, defects := e.prepare(skus, profile)

	led := NewLedger(budget.TotalBudget, budget.CashAvailable)
	summary := Summary{
		TotalBudget: budget.TotalBudget,
		SkipReasons: make(map[domain.ReasonCode]int),
	}

	led = e.passWidth(items, profile, led)
	summary.Pass1Cash = led.CashSpent
	summary.Pass1Consignment = led.ConsignmentSpent
	e.log.Info().Str("cash", led.CashSpent.StringFixed(2)).Msg("pass 1 width complete")

	led = e.passDepth(ctx, items, profile, led)
	summary.Pass2Cash = led.CashSpent.Sub(summary.Pass1Cash)
	summary.Pass2Consignment = led.ConsignmentSpent.Sub(summary.Pass1Consignment)
	e.log.Info().Str("cash", summary.Pass2Cash.StringFixed(2)).Msg("pass 2 depth complete")

	before2B := led.CashSpent
	led, ran := e.passRedistribute(items, led)
	summary.Pass2BCash = led.CashSpent.Sub(before2B)
	summary.RedistributionRan = ran
	if ran {
		e.log.Info().Str("cash", summary.Pass2BCash.StringFixed(2)).Msg("pass 2b redistribution complete")
	}

	summary.TotalCashUsed = led.CashSpent
	summary.TotalConsignment = led.ConsignmentSpent
	summary.UnusedBudget = led.Unused()
	if budget.TotalBudget.IsPositive() {
		util, _ := led.CashSpent.Div(budget.TotalBudget).Mul(decimal.NewFromInt(100)).Float64()
		summary.UtilizationPct = util
	}
	summary.DeptUtilization = make(map[string]float64, len(led.Wallets))
	for dept, w := range led.Wallets {
		if w.Ceiling.IsPositive() {
			util, _ := w.Spent.Div(w.Ceiling).Mul(decimal.NewFromInt(100)).Float64()
			summary.DeptUtilization[dept] = util
		}
	}

	allocations := make([]domain.Allocation, 0, len(items))
	for _, it := range items {
		if it.alloc.Suppressed {
			summary.Skipped++
			for _, r := range it.alloc.Reasons {
				summary.SkipReasons[r]++
			}
		}
		allocations = append(allocations, *it.alloc)
	}

	return &Result{
		Profile:     profile,
		Allocations: allocations,
		Defects:     defects,
		Summary:     summary,
	}, nil
}

// prepare validates the snapshot, estimates demand, resolves costs and
// coverage targets, and fixes the deterministic processing order:
// forecast rate descending, unit cost ascending, SKU ID ascending.
func (e *Engine) prepare(skus []domain.SKU, profile tier.Profile) ([]*item, []domain.Defect) {
	estimator := demand.NewEstimator(e.cfg)
	estimator.Prime(skus)

	var defects []domain.Defect
	items := make([]*item, 0, len(skus))
	for _, sku := range skus {
		if d := sku.Validate(); d != nil {
			defects = append(defects, *d)
			e.log.Warn().Str("sku", sku.ID).Str("field", d.Field).Msg("excluding defective SKU")
			continue
		}

		est := estimator.Estimate(sku)
		rate := estimator.Forecast(est)
		it := &item{
			sku:  sku,
			est:  est,
			rate: rate,
			cost: e.costs.UnitCost(sku),
			alloc: &domain.Allocation{
				SKUID:      sku.ID,
				Department: sku.Department,
				Funding:    sku.Funding,
			},
		}
		it.alloc.UnitCost = it.cost
		it.target = e.calc.TargetQuantity(sku, rate, profile)
		items = append(items, it)
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.rate != b.rate {
			return a.rate > b.rate
		}
		if !a.cost.Equal(b.cost) {
			return a.cost.LessThan(b.cost)
		}
		return a.sku.ID < b.sku.ID
	})
	return items, defects
}

// suppress zeroes an item's allocation with the cause and removes it
// from every later pass.
func suppress(it *item, code domain.ReasonCode, note string) {
	it.alloc.Quantity = 0
	it.alloc.Suppressed = true
	it.alloc.AddReason(code, note)
	it.eligible = false
}

// passWidth puts at least one pack of every eligible SKU on the shelf.
// Cash spending stops hard the moment an item would break the budget;
// every SKU after that point gets zero in this pass.
func (e *Engine) passWidth(items []*item, p tier.Profile, prior Ledger) Ledger {
	led := prior.Clone()
	stopped := false

	for _, it := range items {
		sku := it.sku

		if sku.InternalProduction {
			suppress(it, domain.ReasonInternalProduction, "internal production, not purchased")
			continue
		}
		if sku.SellPrice > p.PriceCeiling {
			if !sku.Staple {
				suppress(it, domain.ReasonPriceCeiling,
					fmt.Sprintf("price above tier ceiling %.0f", p.PriceCeiling))
				continue
			}
			it.alloc.AddReason(domain.ReasonAnchorOverride, "staple overrides price ceiling")
		}
		if sku.VelocityClass == domain.ClassC && !p.IncludeCClass {
			suppress(it, domain.ReasonDeadStock, "C-class excluded on this tier")
			continue
		}
		if overstocked(it) {
			suppress(it, domain.ReasonGuardOverstock, "stock on hand covers the target window")
			continue
		}
		if p.Small && !sku.Staple && !it.est.New && it.rate*p.DemandScale < e.cfg.NegligibleDemand {
			suppress(it, domain.ReasonLowDemand, "demand-scaled rate negligible for this tier")
			continue
		}
		if sku.Perishability.Perishable() && it.target.EffectiveDays == 0 {
			suppress(it, domain.ReasonExpiryClamp, "shelf life too short to allocate")
			continue
		}

		it.eligible = true
		for _, code := range it.target.Reasons {
			it.alloc.AddReason(code, "")
		}
		if it.est.New {
			it.alloc.AddReason(domain.ReasonNewProduct, "no sales history, "+string(it.est.Source)+" estimate")
		}

		qty := coverage.RoundUpToPack(float64(p.MinDisplay), sku.PackSize)
		if maxUnits := p.MaxPacks * sku.PackSize; qty > maxUnits {
			qty = maxUnits
		}
		cost := it.cost.Mul(decimal.NewFromInt(int64(qty)))

		if sku.Funding == domain.FundingConsignment {
			led.SpendConsignment(cost)
			it.alloc.Quantity = qty
			it.alloc.Pass = domain.PassWidth
			it.alloc.AddReason(domain.ReasonWidth, fmt.Sprintf("display floor %d units", qty))
			it.alloc.AddReason(domain.ReasonConsignment, "supplier funded")
			continue
		}

		if stopped {
			it.alloc.Quantity = 0
			it.alloc.Suppressed = true
			it.alloc.AddReason(domain.ReasonBudgetExhausted, "width budget exhausted")
			continue
		}
		if led.CashSpent.Add(cost).GreaterThan(led.CashCap) {
			// Hard stop, not skip-and-continue: the budget does not reopen
			// within this pass.
			stopped = true
			it.alloc.Quantity = 0
			it.alloc.Suppressed = true
			it.alloc.AddReason(domain.ReasonBudgetExhausted, "width budget exhausted")
			continue
		}

		led.SpendCashGlobal(cost)
		it.alloc.Quantity = qty
		it.alloc.Pass = domain.PassWidth
		it.alloc.AddReason(domain.ReasonWidth, fmt.Sprintf("display floor %d units", qty))
	}

	return led
}

// needUnits returns the whole-pack top-up still owed to reach the target.
func needUnits(it *item) int {
	n := it.target.Units - it.alloc.Quantity
	if n <= 0 {
		return 0
	}
	return n
}

// passDepth spends the remaining budget by velocity under department
// wallets. Consignment SKUs are satisfied first on their own unbounded
// ledger, fast-five anchors next with priority access to funds, then the
// general cash queue in the fixed deterministic order.
func (e *Engine) passDepth(ctx context.Context, items []*item, p tier.Profile, prior Ledger) Ledger {
	led := prior.Clone()
	remaining := led.Total.Sub(led.CashSpent)
	led = led.WithWallets(p, remaining)

	if err := ctx.Err(); err != nil {
		return led
	}

	// Consignment first: supplier capital is maximized ahead of cash.
	for _, it := range items {
		if !it.eligible || it.sku.Funding != domain.FundingConsignment {
			continue
		}
		need := needUnits(it)
		if need == 0 {
			continue
		}
		led.SpendConsignment(it.cost.Mul(decimal.NewFromInt(int64(need))))
		it.alloc.Quantity += need
		it.alloc.Suppressed = false
		it.alloc.Pass = domain.PassDepth
		it.alloc.AddReason(domain.ReasonDepthFill, "filled to coverage target")
		it.alloc.AddReason(domain.ReasonConsignment, "supplier funded")
	}

	// Fast-five anchors: priority access, wallet ceilings bypassed.
	for _, it := range items {
		if !it.isAnchor(e.fastFive) {
			continue
		}
		e.fillDepth(it, &led, true)
	}

	// General cash queue.
	for _, it := range items {
		if !it.eligible || it.sku.Funding != domain.FundingCash || it.isAnchor(e.fastFive) {
			continue
		}
		e.fillDepth(it, &led, false)
	}

	return led
}

func (it *item) isAnchor(fastFive map[string]bool) bool {
	return it.eligible && it.sku.Funding == domain.FundingCash &&
		it.sku.Staple && fastFive[it.sku.Department]
}

// fillDepth tops a cash SKU up toward its coverage target in whole
// packs. Anchors bypass the wallet ceiling but never the cash cap.
func (e *Engine) fillDepth(it *item, led *Ledger, bypassWallet bool) {
	need := needUnits(it)
	if need == 0 {
		return
	}

	packSize := it.sku.PackSize
	packCost := it.cost.Mul(decimal.NewFromInt(int64(packSize)))
	if !packCost.IsPositive() {
		return
	}
	wantPacks := need / packSize

	affordable := wholePacks(led.CashRemaining(), packCost)
	give := wantPacks
	if affordable < give {
		give = affordable
	}

	if !bypassWallet {
		w := led.WalletFor(it.sku.Department)
		walletPacks := wholePacks(w.Remaining(), packCost)
		if walletPacks < give {
			give = walletPacks
		}
		if walletPacks < wantPacks {
			// The wallet ceiling, not price or pack caps, is what held this
			// SKU back; that is the redistribution pass's queue.
			it.walletClamped = true
			it.alloc.AddReason(domain.ReasonWalletClamp, "department wallet ceiling")
		}
	} else if affordable < wantPacks {
		it.alloc.AddReason(domain.ReasonBudgetExhausted, "depth budget exhausted")
	}

	if give <= 0 {
		return
	}

	cost := packCost.Mul(decimal.NewFromInt(int64(give)))
	led.SpendCash(it.sku.Department, cost)
	it.alloc.Quantity += give * packSize
	it.alloc.Suppressed = false
	it.alloc.Pass = domain.PassDepth
	it.alloc.AddReason(domain.ReasonDepthFill, "filled toward coverage target")
}

// wholePacks returns how many whole packs the funds can buy.
func wholePacks(funds, packCost decimal.Decimal) int {
	if !packCost.IsPositive() || !funds.IsPositive() {
		return 0
	}
	return int(funds.Div(packCost).IntPart())
}

// passRedistribute pours significantly unspent budget back into priority
// SKUs that a wallet ceiling starved. Fresh stock never qualifies.
func (e *Engine) passRedistribute(items []*item, prior Ledger) (Ledger, bool) {
	led := prior.Clone()

	trueUnused := led.Unused()
	threshold := led.Total.Mul(decimal.NewFromFloat(e.cfg.RedistributeThreshold))
	if !led.Total.IsPositive() || trueUnused.LessThanOrEqual(threshold) {
		return led, false
	}

	pool := trueUnused
	if cashRoom := led.CashRemaining(); cashRoom.LessThan(pool) {
		pool = cashRoom
	}

	for _, it := range items {
		if !it.eligible || it.sku.Funding != domain.FundingCash {
			continue
		}
		if !it.sku.Staple && it.sku.VelocityClass != domain.ClassA {
			continue
		}
		if !it.walletClamped || redistributeBarred(it) {
			continue
		}

		need := needUnits(it)
		if need == 0 {
			continue
		}
		packSize := it.sku.PackSize
		packCost := it.cost.Mul(decimal.NewFromInt(int64(packSize)))
		give := need / packSize
		if affordable := wholePacks(pool, packCost); affordable < give {
			give = affordable
		}
		if give <= 0 {
			continue
		}

		cost := packCost.Mul(decimal.NewFromInt(int64(give)))
		pool = pool.Sub(cost)
		led.SpendCashGlobal(cost)
		it.alloc.Quantity += give * packSize
		it.alloc.Suppressed = false
		it.alloc.Pass = domain.PassRedistribute
		it.alloc.AddReason(domain.ReasonRedistributed, "unspent budget topped up priority item")
	}

	return led, true
}
