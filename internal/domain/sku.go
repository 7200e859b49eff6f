package domain

import "strings"

// Perishability classifies how quickly a SKU spoils on the shelf.
type Perishability string

const (
	PerishFresh    Perishability = "fresh"
	PerishLongLife Perishability = "long_life"
	PerishDry      Perishability = "dry"
)

var perishabilityNames = map[string]Perishability{
	"fresh":     PerishFresh,
	"long_life": PerishLongLife,
	"longlife":  PerishLongLife,
	"dry":       PerishDry,
	"ambient":   PerishDry,
}

// ParsePerishability returns the perishability class for a label (case-insensitive).
func ParsePerishability(label string) (Perishability, bool) {
	p, ok := perishabilityNames[strings.ToLower(strings.TrimSpace(label))]
	return p, ok
}

// Perishable reports whether the class is subject to shelf-life limits.
func (p Perishability) Perishable() bool {
	return p == PerishFresh || p == PerishLongLife
}

// Funding identifies who pays for the stock.
type Funding string

const (
	FundingCash        Funding = "cash"
	FundingConsignment Funding = "consignment"
)

// ParseFunding returns the funding type for a label (case-insensitive).
func ParseFunding(label string) (Funding, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "cash", "":
		return FundingCash, true
	case "consignment":
		return FundingConsignment, true
	}
	return "", false
}

// VelocityClass is the ABC sales-velocity classification.
type VelocityClass string

const (
	ClassA VelocityClass = "A"
	ClassB VelocityClass = "B"
	ClassC VelocityClass = "C"
)

// ParseVelocityClass returns the ABC class for a label.
func ParseVelocityClass(label string) (VelocityClass, bool) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "A", "":
		return ClassA, true
	case "B":
		return ClassB, true
	case "C":
		return ClassC, true
	}
	return "", false
}

// Trend classifies a SKU's demand trajectory.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// ParseTrend returns the trend for a label, defaulting empty to stable.
func ParseTrend(label string) (Trend, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "growing", "growth":
		return TrendGrowing, true
	case "stable", "n/a", "":
		return TrendStable, true
	case "declining", "decline":
		return TrendDeclining, true
	}
	return "", false
}

// SKU is one normalized item record as supplied by the data-preparation
// collaborator. DailySales, MarginPct and GRNCost are nil when unknown.
type SKU struct {
	ID         string
	Name       string
	Department string

	SellPrice float64
	Stock     int
	PackSize  int

	Perishability     Perishability
	ShelfLifeDays     int     // fresh/long-life only; 0 means not tracked
	DeliveryFrequency float64 // deliveries per day, 1.0 = daily

	DailySales  *float64 // historical average daily sales; nil for new SKUs
	Trend       Trend
	Reliability float64 // supplier reliability score, 0-100
	DemandCV    float64 // demand volatility coefficient, 0-1

	Funding   Funding
	MarginPct *float64 // fraction of sell price, [0,1)
	GRNCost   *float64 // historical goods-received unit cost

	VelocityClass      VelocityClass
	InternalProduction bool
	Staple             bool
}

// IsNew reports whether the SKU has no usable sales history.
func (s SKU) IsNew() bool {
	return s.DailySales == nil
}

// Validate checks the record invariants. A non-nil Defect means the SKU
// must be excluded from allocation and surfaced in the data-gap report.
func (s SKU) Validate() *Defect {
	switch {
	case s.ID == "":
		return &Defect{SKUID: s.ID, Field: "id", Message: "missing SKU identifier"}
	case s.PackSize < 1:
		return &Defect{SKUID: s.ID, Field: "pack_size", Message: "pack size must be >= 1"}
	case s.Stock < 0:
		return &Defect{SKUID: s.ID, Field: "stock", Message: "stock on hand must be >= 0"}
	case s.SellPrice <= 0:
		return &Defect{SKUID: s.ID, Field: "sell_price", Message: "sell price must be > 0"}
	case s.DailySales != nil && *s.DailySales < 0:
		return &Defect{SKUID: s.ID, Field: "daily_sales", Message: "daily sales rate must be >= 0"}
	}
	return nil
}

// Defect describes a per-SKU data problem found during validation.
// Defects never abort a run; they exclude the SKU and are reported.
type Defect struct {
	SKUID   string
	Field   string
	Message string
}
