// Package narrative holds the fixed catalogue of explanatory text that
// accompanies each chart in the visual analytics section. Templates are
// parameterized by values pulled from the risk snapshot; where the snapshot
// lacks the history needed to derive a figure, the configured Params supply
// it and the finding says so.
package narrative

import (
	"github.com/nyashahama/risk-report-engine/internal/document"
	"github.com/nyashahama/risk-report-engine/internal/rules"
)

// ChartKey identifies a chart category.
type ChartKey string

const (
	ChartCashFlow       ChartKey = "cashFlow"
	ChartCreditScore    ChartKey = "creditScore"
	ChartPaymentHistory ChartKey = "paymentHistory"
	ChartLiquidity      ChartKey = "liquidity"
)

// Order is the fixed rendering order of chart subsections. Request maps are
// always walked in this order, never in their own.
var Order = []ChartKey{ChartCashFlow, ChartCreditScore, ChartPaymentHistory, ChartLiquidity}

// CashFlowPoint is one month of the cash-flow series.
type CashFlowPoint struct {
	Income   int64
	Expenses int64
}

// Inputs are the snapshot values the templates draw on. History slices are
// ordered oldest first and may be empty.
type Inputs struct {
	CreditScore     int
	MonthlyIncome   int64
	MonthlyExpenses int64

	CreditHistory    []int
	OnTimeHistory    []int // on-time share per month, percent
	LiquidityHistory []int64
	CashFlow         []CashFlowPoint
}

// Finding is the highlighted callout of a subsection.
type Finding struct {
	Text     string
	Severity document.ColorClass // ColorWarn or ColorDanger
	// Derived is false when the headline figure came from Params rather than
	// the snapshot's own history.
	Derived bool
}

// Band is one row of a classification table.
type Band struct {
	Label      string
	Range      string
	Assessment string
	Color      document.ColorClass
	Current    bool // the customer's value falls in this band
}

// BandTable is the classification table shown under some charts.
type BandTable struct {
	Header []string
	Bands  []Band
}

// Section is the complete narrative for one chart.
type Section struct {
	Key         ChartKey
	Title       string
	Description string
	Finding     Finding
	Bullets     []string
	Bands       *BandTable // nil for charts without a classification table
}

// Catalogue renders narratives. It is immutable after construction and safe
// for concurrent use.
type Catalogue struct {
	params Params
	money  rules.Formatter
}

// NewCatalogue returns a Catalogue using p and the document's formatter, so
// amounts in the narrative share the scale of the rest of the report.
func NewCatalogue(p Params, f rules.Formatter) *Catalogue {
	return &Catalogue{params: p, money: f}
}

// Params returns the parameters the catalogue was built with.
func (c *Catalogue) Params() Params { return c.params }

// Section returns the narrative for key. ok is false for keys outside the
// catalogue.
func (c *Catalogue) Section(key ChartKey, in Inputs) (s Section, ok bool) {
	switch key {
	case ChartCashFlow:
		return c.cashFlow(in), true
	case ChartCreditScore:
		return c.creditScore(in), true
	case ChartPaymentHistory:
		return c.paymentHistory(in), true
	case ChartLiquidity:
		return c.liquidity(in), true
	default:
		return Section{}, false
	}
}
