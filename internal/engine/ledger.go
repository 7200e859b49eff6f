package engine

import (
	"github.com/shopspring/decimal"

	"github.com/oasis-retail/allocator/internal/tier"
)

// Wallet is a department-scoped sub-budget enforced during the depth
// pass. The ceiling is the allocated amount plus the tier's buffer.
type Wallet struct {
	Department string
	Allocated  decimal.Decimal
	Ceiling    decimal.Decimal
	Spent      decimal.Decimal
}

// Remaining returns the buffered headroom left in the wallet.
func (w Wallet) Remaining() decimal.Decimal {
	return w.Ceiling.Sub(w.Spent)
}

// Ledger tracks spend for a single allocation run. Passes never share
// mutable state: each pass clones the prior ledger and returns its own.
type Ledger struct {
	// Total is the store's budget for the run; CashCap bounds cash spend
	// and is at most Total.
	Total            decimal.Decimal
	CashCap          decimal.Decimal
	CashSpent        decimal.Decimal
	ConsignmentSpent decimal.Decimal
	Wallets          map[string]Wallet
}

// NewLedger opens a ledger for the run. A zero cash availability means
// the whole budget is cash.
func NewLedger(total, cashAvailable decimal.Decimal) Ledger {
	cashCap := total
	if cashAvailable.IsPositive() && cashAvailable.LessThan(total) {
		cashCap = cashAvailable
	}
	return Ledger{Total: total, CashCap: cashCap}
}

// Clone deep-copies the ledger so a pass can work without mutating its
// predecessor's state.
func (l Ledger) Clone() Ledger {
	out := l
	if l.Wallets != nil {
		out.Wallets = make(map[string]Wallet, len(l.Wallets))
		for k, w := range l.Wallets {
			out.Wallets[k] = w
		}
	}
	return out
}

// WithWallets partitions the given remaining budget into department
// wallets according to the tier's percentages.
func (l Ledger) WithWallets(p tier.Profile, remaining decimal.Decimal) Ledger {
	out := l.Clone()
	out.Wallets = make(map[string]Wallet, len(p.WalletPcts))
	buffer := decimal.NewFromFloat(1 + p.BufferPct)
	for dept, pct := range p.WalletPcts {
		allocated := remaining.Mul(decimal.NewFromFloat(pct))
		out.Wallets[dept] = Wallet{
			Department: dept,
			Allocated:  allocated,
			Ceiling:    allocated.Mul(buffer),
		}
	}
	return out
}

// walletKey resolves a department to its wallet, falling back to the
// general contingency wallet.
func (l Ledger) walletKey(department string) string {
	if _, ok := l.Wallets[department]; ok {
		return department
	}
	return tier.GeneralDept
}

// WalletFor returns the wallet backing a department.
func (l Ledger) WalletFor(department string) Wallet {
	return l.Wallets[l.walletKey(department)]
}

// CashRemaining returns the uncommitted cash under the cap.
func (l Ledger) CashRemaining() decimal.Decimal {
	return l.CashCap.Sub(l.CashSpent)
}

// Unused returns the budget untouched by cash spend. Consignment is
// excluded: it never draws on the store's budget.
func (l Ledger) Unused() decimal.Decimal {
	return l.Total.Sub(l.CashSpent)
}

// SpendCash records cash spend against both the global ledger and the
// department wallet.
func (l *Ledger) SpendCash(department string, amount decimal.Decimal) {
	l.CashSpent = l.CashSpent.Add(amount)
	if l.Wallets == nil {
		return
	}
	k := l.walletKey(department)
	w := l.Wallets[k]
	w.Spent = w.Spent.Add(amount)
	l.Wallets[k] = w
}

// SpendCashGlobal records cash spend without touching any wallet. The
// redistribution pass uses it: wallets are inspected there, not mutated.
func (l *Ledger) SpendCashGlobal(amount decimal.Decimal) {
	l.CashSpent = l.CashSpent.Add(amount)
}

// SpendConsignment records supplier-funded spend on the unbounded ledger.
func (l *Ledger) SpendConsignment(amount decimal.Decimal) {
	l.ConsignmentSpent = l.ConsignmentSpent.Add(amount)
}
