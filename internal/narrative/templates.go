package narrative

import (
	"fmt"

	"github.com/nyashahama/risk-report-engine/internal/document"
)

// defaultNote is appended to findings whose figure came from Params.
const defaultNote = " (reference figure; no history supplied)"

// ─── CASH FLOW ────────────────────────────────────────────────────────────────

func (c *Catalogue) cashFlow(in Inputs) Section {
	gap := in.MonthlyExpenses - in.MonthlyIncome
	s := Section{
		Key:         ChartCashFlow,
		Title:       "1. Cash Flow Stability",
		Description: fmt.Sprintf("Analysis of income vs expenses over the last %d months.", c.params.ObservationMonths),
	}

	if gap > 0 {
		sev := document.ColorWarn
		share := "an unbounded share of income"
		if in.MonthlyIncome > 0 {
			pct := percentOf(gap, in.MonthlyIncome)
			share = fmt.Sprintf("%d%% of income", pct)
			if pct >= c.params.CashFlowDeficitDangerPct {
				sev = document.ColorDanger
			}
		} else {
			sev = document.ColorDanger
		}
		s.Finding = Finding{
			Text: fmt.Sprintf("Key Finding: Monthly expenses exceed income by %s (%s), a structural deficit funded by borrowing or savings.",
				c.money.Money(gap), share),
			Severity: sev,
			Derived:  true,
		}
	} else {
		s.Finding = Finding{
			Text:     fmt.Sprintf("Key Finding: Income covers expenses with a monthly surplus of %s; cash flow is not the primary risk driver.", c.money.Money(-gap)),
			Severity: document.ColorWarn,
			Derived:  true,
		}
	}

	s.Bullets = append(s.Bullets, fmt.Sprintf("Monthly income of %s against monthly expenses of %s.",
		c.money.Money(in.MonthlyIncome), c.money.Money(in.MonthlyExpenses)))
	if len(in.CashFlow) > 0 {
		deficits := 0
		for _, p := range in.CashFlow {
			if p.Expenses > p.Income {
				deficits++
			}
		}
		s.Bullets = append(s.Bullets, fmt.Sprintf("Expenses exceeded income in %d of %d observed months.", deficits, len(in.CashFlow)))
	}
	if gap > 0 {
		s.Bullets = append(s.Bullets,
			fmt.Sprintf("At the current run-rate the shortfall accumulates to %s over %d months.",
				c.money.Money(gap*int64(c.params.ObservationMonths)), c.params.ObservationMonths),
			"Sustained deficits are the strongest leading indicator of EMI delinquency within 30 days.",
		)
	} else {
		s.Bullets = append(s.Bullets, "Surplus capacity can be redirected to debt servicing under a restructuring plan.")
	}
	return s
}

// ─── CREDIT SCORE ─────────────────────────────────────────────────────────────

// creditBands are the bureau score bands, best first.
var creditBands = []struct {
	label, rng, assessment string
	lo, hi                 int
	color                  document.ColorClass
}{
	{"Excellent", "750 - 900", "Prime pricing, minimal monitoring", 750, 900, document.ColorOK},
	{"Good", "700 - 749", "Standard terms", 700, 749, document.ColorAccent},
	{"Fair", "650 - 699", "Enhanced monitoring", 650, 699, document.ColorCaution},
	{"Poor", "550 - 649", "Restricted refinancing access", 550, 649, document.ColorWarn},
	{"Very Poor", "300 - 549", "Collections risk", 300, 549, document.ColorDanger},
}

func creditBandLabel(score int) string {
	for _, b := range creditBands {
		if score >= b.lo && score <= b.hi {
			return b.label
		}
	}
	return "unrated"
}

func (c *Catalogue) creditScore(in Inputs) Section {
	s := Section{
		Key:         ChartCreditScore,
		Title:       "2. Credit Score Trend",
		Description: "Credit score progression showing declining trend.",
	}

	drop, derived := c.params.CreditScorePointDrop, false
	if n := len(in.CreditHistory); n >= 2 {
		drop, derived = in.CreditHistory[0]-in.CreditHistory[n-1], true
	}

	if drop > 0 {
		sev := document.ColorWarn
		if drop >= c.params.CreditDropDangerPoints {
			sev = document.ColorDanger
		}
		text := fmt.Sprintf("Key Finding: Credit score has fallen %d points to %d over the last %d months.",
			drop, in.CreditScore, c.params.ObservationMonths)
		if !derived {
			text += defaultNote
		}
		s.Finding = Finding{Text: text, Severity: sev, Derived: derived}
	} else {
		s.Finding = Finding{
			Text:     fmt.Sprintf("Key Finding: Credit score is steady at %d with no net decline over the observed period.", in.CreditScore),
			Severity: document.ColorWarn,
			Derived:  derived,
		}
	}

	s.Bullets = []string{
		fmt.Sprintf("Current score of %d places the customer in the %s band.", in.CreditScore, creditBandLabel(in.CreditScore)),
		"A further decline below 650 typically restricts access to refinancing and top-up credit.",
		"Score erosion is consistent with rising utilisation and a growing count of late payments.",
	}

	table := &BandTable{Header: []string{"Score Band", "Range", "Implication", "Customer"}}
	for _, b := range creditBands {
		table.Bands = append(table.Bands, Band{
			Label:      b.label,
			Range:      b.rng,
			Assessment: b.assessment,
			Color:      b.color,
			Current:    in.CreditScore >= b.lo && in.CreditScore <= b.hi,
		})
	}
	s.Bands = table
	return s
}

// ─── PAYMENT HISTORY ──────────────────────────────────────────────────────────

// paymentBands classify the on-time payment share, best first.
var paymentBands = []struct {
	label, rng, assessment string
	lo, hi                 int
	color                  document.ColorClass
}{
	{"Excellent", "95 - 100%", "Reliable payer", 95, 100, document.ColorOK},
	{"Acceptable", "85 - 94%", "Occasional slippage", 85, 94, document.ColorAccent},
	{"Concerning", "70 - 84%", "Emerging stress", 70, 84, document.ColorCaution},
	{"High Risk", "50 - 69%", "Pre-delinquency pattern", 50, 69, document.ColorWarn},
	{"Critical", "0 - 49%", "Delinquency likely", 0, 49, document.ColorDanger},
}

func paymentBandLabel(pct int) string {
	for _, b := range paymentBands {
		if pct >= b.lo && pct <= b.hi {
			return b.label
		}
	}
	return "unrated"
}

func (c *Catalogue) paymentHistory(in Inputs) Section {
	s := Section{
		Key:         ChartPaymentHistory,
		Title:       "3. Payment History",
		Description: "On-time vs late payment distribution over time.",
	}

	onTime, derived := c.params.PaymentOnTimePct, false
	n := len(in.OnTimeHistory)
	if n > 0 {
		onTime, derived = in.OnTimeHistory[n-1], true
	}

	sev := document.ColorWarn
	if onTime < c.params.PaymentOnTimeDangerPct {
		sev = document.ColorDanger
	}
	text := fmt.Sprintf("Key Finding: Only %d%% of payments were made on time in the most recent month", onTime)
	if n >= 2 && in.OnTimeHistory[0] > onTime {
		text += fmt.Sprintf(", down from %d%%", in.OnTimeHistory[0])
	}
	text += "."
	if !derived {
		text += defaultNote
	}
	s.Finding = Finding{Text: text, Severity: sev, Derived: derived}

	s.Bullets = []string{
		fmt.Sprintf("%d%% of scheduled payments were late or missed in the latest period.", 100-onTime),
		fmt.Sprintf("Payment behaviour currently sits in the %s band.", paymentBandLabel(onTime)),
		"Payments more than 30 days late are reported to bureaus and directly depress the credit score.",
	}

	table := &BandTable{Header: []string{"On-Time Share", "Range", "Interpretation", "Customer"}}
	for _, b := range paymentBands {
		table.Bands = append(table.Bands, Band{
			Label:      b.label,
			Range:      b.rng,
			Assessment: b.assessment,
			Color:      b.color,
			Current:    onTime >= b.lo && onTime <= b.hi,
		})
	}
	s.Bands = table
	return s
}

// ─── LIQUIDITY ────────────────────────────────────────────────────────────────

func (c *Catalogue) liquidity(in Inputs) Section {
	s := Section{
		Key:         ChartLiquidity,
		Title:       "4. Liquidity Analysis",
		Description: "Liquid assets availability and depletion rate.",
	}

	depletion, derived := c.params.LiquidityDepletionPct, false
	n := len(in.LiquidityHistory)
	if n >= 2 && in.LiquidityHistory[0] > 0 {
		depletion, derived = percentOf(in.LiquidityHistory[0]-in.LiquidityHistory[n-1], in.LiquidityHistory[0]), true
	}

	if depletion > 0 {
		sev := document.ColorWarn
		if depletion >= c.params.LiquidityDepletionDangerPct {
			sev = document.ColorDanger
		}
		text := fmt.Sprintf("Key Finding: Liquid savings have depleted by %d%% over the observed period.", depletion)
		if !derived {
			text += defaultNote
		}
		s.Finding = Finding{Text: text, Severity: sev, Derived: derived}
	} else {
		s.Finding = Finding{
			Text:     "Key Finding: Liquid savings have held steady over the observed period.",
			Severity: document.ColorWarn,
			Derived:  derived,
		}
	}

	if derived {
		s.Bullets = append(s.Bullets, fmt.Sprintf("Liquid balance moved from %s to %s.",
			c.money.Money(in.LiquidityHistory[0]), c.money.Money(in.LiquidityHistory[n-1])))
		if gap := in.MonthlyExpenses - in.MonthlyIncome; gap > 0 && in.LiquidityHistory[n-1] > 0 {
			s.Bullets = append(s.Bullets, fmt.Sprintf("At the current monthly deficit of %s, remaining liquidity covers about %d months.",
				c.money.Money(gap), in.LiquidityHistory[n-1]/gap))
		}
	}
	s.Bullets = append(s.Bullets,
		"Depleted buffers leave no capacity to absorb an income shock or a delayed salary credit.",
		"Recurring cash withdrawals and lending-app credits are typical of bridging a liquidity gap.",
	)
	return s
}

// percentOf returns part/whole as a whole percentage, rounded half-up.
// whole must be positive.
func percentOf(part, whole int64) int {
	if whole <= 0 {
		return 0
	}
	neg := part < 0
	if neg {
		part = -part
	}
	pct := int((part*100 + whole/2) / whole)
	if neg {
		return -pct
	}
	return pct
}
