package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nyashahama/risk-report-engine/internal/narrative"
)

// ErrInvalidSnapshot is returned when a required part of the snapshot is
// missing or malformed. It aborts the render; no partial document is produced.
var ErrInvalidSnapshot = errors.New("report: invalid risk snapshot")

// ─── VALIDATED MODEL ──────────────────────────────────────────────────────────

// Snapshot is one customer's financial and behavioural state at render time.
// It is read-only for the duration of a render.
type Snapshot struct {
	Profile      Profile
	Financials   Financials
	Risk         RiskAssessment
	Transactions []Transaction // input order
	Alerts       []Alert       // input order
	History      History
}

type Profile struct {
	Name              string
	Status            string // critical | high | medium | low, any case; anything else renders muted
	CreditScore       int
	CreditScoreStatus string
}

// Financials are whole currency units. NetWorth and TotalDebt may be negative.
type Financials struct {
	MonthlyIncome    int64
	MonthlyExpenses  int64
	TotalAssets      int64
	TotalLiabilities int64
	NetWorth         int64
	TotalDebt        int64
}

type RiskAssessment struct {
	// RiskPercentage is nominally 0–100 but rendered as received.
	RiskPercentage int
}

type Transaction struct {
	Date        string
	Description string
	Amount      int64 // signed
	Type        string
}

type Alert struct {
	Type    string
	Message string
	Date    string
}

// History holds the optional monthly series behind the charts, oldest first.
type History struct {
	CreditScores []int
	OnTimePct    []int
	Liquidity    []int64
	CashFlow     []narrative.CashFlowPoint
}

// ─── WIRE SHAPE ───────────────────────────────────────────────────────────────
// The JSON tree from the customer data source. Required values are pointers so
// that "absent" and "zero" can be told apart; validate tags enforce presence.
// Unknown keys (email, phone, spendingCategories, ...) are ignored.

type snapshotJSON struct {
	Profile            *profileJSON      `json:"profile" validate:"required"`
	FinancialSummary   *financialsJSON   `json:"financialSummary" validate:"required"`
	RiskAssessment     *riskJSON         `json:"riskAssessment" validate:"required"`
	RecentTransactions []transactionJSON `json:"recentTransactions"`
	Alerts             []alertJSON       `json:"alerts"`

	CreditScoreHistory []struct {
		Score Int `json:"score"`
	} `json:"creditScoreHistory"`
	PaymentHistory []struct {
		OnTime Int `json:"onTime"`
	} `json:"paymentHistory"`
	LiquidityData []struct {
		Amount Int `json:"amount"`
	} `json:"liquidityData"`
	CashFlowData []struct {
		Income   Int `json:"income"`
		Expenses Int `json:"expenses"`
	} `json:"cashFlowData"`
}

type profileJSON struct {
	Name              *string `json:"name" validate:"required"`
	Status            string  `json:"status"`
	CreditScore       *Int    `json:"creditScore" validate:"required"`
	CreditScoreStatus string  `json:"creditScoreStatus"`
}

type financialsJSON struct {
	MonthlyIncome    *Int `json:"monthlyIncome" validate:"required"`
	MonthlyExpenses  *Int `json:"monthlyExpenses" validate:"required"`
	TotalAssets      *Int `json:"totalAssets" validate:"required"`
	TotalLiabilities *Int `json:"totalLiabilities" validate:"required"`
	NetWorth         *Int `json:"netWorth" validate:"required"`
	TotalDebt        *Int `json:"totalDebt" validate:"required"`
}

type riskJSON struct {
	RiskPercentage *Int `json:"riskPercentage" validate:"required"`
}

type transactionJSON struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      Int    `json:"amount"`
	Type        string `json:"type"`
}

type alertJSON struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Date    string `json:"date"`
}

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseSnapshot decodes and structurally validates a snapshot JSON tree.
// Every failure wraps ErrInvalidSnapshot.
func ParseSnapshot(raw []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: customer data is missing", ErrInvalidSnapshot)
	}

	var w snapshotJSON
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := validate.Struct(w); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSnapshot, describeValidation(err))
	}

	s := &Snapshot{
		Profile: Profile{
			Name:              *w.Profile.Name,
			Status:            w.Profile.Status,
			CreditScore:       int(*w.Profile.CreditScore),
			CreditScoreStatus: w.Profile.CreditScoreStatus,
		},
		Financials: Financials{
			MonthlyIncome:    int64(*w.FinancialSummary.MonthlyIncome),
			MonthlyExpenses:  int64(*w.FinancialSummary.MonthlyExpenses),
			TotalAssets:      int64(*w.FinancialSummary.TotalAssets),
			TotalLiabilities: int64(*w.FinancialSummary.TotalLiabilities),
			NetWorth:         int64(*w.FinancialSummary.NetWorth),
			TotalDebt:        int64(*w.FinancialSummary.TotalDebt),
		},
		Risk: RiskAssessment{RiskPercentage: int(*w.RiskAssessment.RiskPercentage)},
	}

	s.Transactions = make([]Transaction, len(w.RecentTransactions))
	for i, t := range w.RecentTransactions {
		s.Transactions[i] = Transaction{Date: t.Date, Description: t.Description, Amount: int64(t.Amount), Type: t.Type}
	}
	s.Alerts = make([]Alert, len(w.Alerts))
	for i, a := range w.Alerts {
		s.Alerts[i] = Alert{Type: a.Type, Message: a.Message, Date: a.Date}
	}

	for _, p := range w.CreditScoreHistory {
		s.History.CreditScores = append(s.History.CreditScores, int(p.Score))
	}
	for _, p := range w.PaymentHistory {
		s.History.OnTimePct = append(s.History.OnTimePct, int(p.OnTime))
	}
	for _, p := range w.LiquidityData {
		s.History.Liquidity = append(s.History.Liquidity, int64(p.Amount))
	}
	for _, p := range w.CashFlowData {
		s.History.CashFlow = append(s.History.CashFlow, narrative.CashFlowPoint{Income: int64(p.Income), Expenses: int64(p.Expenses)})
	}
	return s, nil
}

// describeValidation flattens validator errors into "profile.name is required"
// style messages using JSON field paths.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, jsonPath(fe.Namespace())+" is "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}

// jsonPath maps a validator namespace such as
// "snapshotJSON.FinancialSummary.NetWorth" to "financialSummary.netWorth".
func jsonPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

// ─── LENIENT INTEGER ──────────────────────────────────────────────────────────

// Int decodes a JSON number, a numeric string, or null into an integer.
// Fractional values are truncated toward zero. Any other value is an error.
type Int int64

func (n *Int) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("report: %s is not a number", string(b))
	}
	*n = Int(int64(f))
	return nil
}
