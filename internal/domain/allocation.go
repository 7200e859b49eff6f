package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Pass identifies which allocation pass last touched a record.
type Pass string

const (
	PassNone         Pass = ""
	PassWidth        Pass = "pass1_width"
	PassDepth        Pass = "pass2_depth"
	PassRedistribute Pass = "pass2b_redistribute"
)

// ReasonCode is the structured cause behind an allocation decision.
// Reasoning strings are display-only; tests assert on codes.
type ReasonCode string

const (
	ReasonWidth              ReasonCode = "WIDTH"
	ReasonDepthFill          ReasonCode = "DEPTH_FILL"
	ReasonRedistributed      ReasonCode = "REDISTRIBUTED"
	ReasonConsignment        ReasonCode = "CONSIGNMENT"
	ReasonMDQFloor           ReasonCode = "MDQ_FLOOR"
	ReasonWalletClamp        ReasonCode = "WALLET_CLAMP"
	ReasonExpiryClamp        ReasonCode = "EXPIRY_CLAMP"
	ReasonPackCap            ReasonCode = "PACK_CAP"
	ReasonGuardOverstock     ReasonCode = "GUARD_OVERSTOCK"
	ReasonPriceCeiling       ReasonCode = "PRICE_CEILING"
	ReasonAnchorOverride     ReasonCode = "ANCHOR_OVERRIDE"
	ReasonDeadStock          ReasonCode = "DEAD_STOCK"
	ReasonLowDemand          ReasonCode = "LOW_DEMAND"
	ReasonBudgetExhausted    ReasonCode = "BUDGET_EXHAUSTED"
	ReasonInternalProduction ReasonCode = "INTERNAL_PRODUCTION"
	ReasonDataDefect         ReasonCode = "DATA_DEFECT"
	ReasonRiskBuffer         ReasonCode = "RISK_BUFFER"
	ReasonNewProduct         ReasonCode = "NEW_PRODUCT"
)

// Allocation is the per-SKU output of a run. Quantity is always a
// multiple of the SKU's pack size and never decreases across passes.
type Allocation struct {
	SKUID      string
	Department string
	Quantity   int
	UnitCost   decimal.Decimal
	Pass       Pass
	Funding    Funding
	Reasons    []ReasonCode
	Reasoning  string
	Suppressed bool // true when a guard or filter forced the quantity to 0
}

// HasReason reports whether the record carries the given reason code.
func (a Allocation) HasReason(code ReasonCode) bool {
	for _, r := range a.Reasons {
		if r == code {
			return true
		}
	}
	return false
}

// AddReason appends a reason code once and extends the display string.
func (a *Allocation) AddReason(code ReasonCode, note string) {
	if !a.HasReason(code) {
		a.Reasons = append(a.Reasons, code)
	}
	if note == "" {
		return
	}
	if a.Reasoning != "" {
		a.Reasoning += " "
	}
	a.Reasoning += "[" + note + "]"
}

// Cost returns quantity * unit cost.
func (a Allocation) Cost() decimal.Decimal {
	return a.UnitCost.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// BudgetContext carries the store's spend envelope for one run.
type BudgetContext struct {
	TotalBudget          decimal.Decimal
	CashAvailable        decimal.Decimal
	ConsignmentAvailable decimal.Decimal
}

// ConfigError is fatal to a run: the engine fails fast before any pass
// executes and never returns a partially populated allocation set.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Field != "" {
		b.WriteString(" (" + e.Field + ")")
	}
	b.WriteString(": " + e.Message)
	return b.String()
}
