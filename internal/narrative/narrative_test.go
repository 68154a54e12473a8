package narrative_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nyashahama/risk-report-engine/internal/document"
	"github.com/nyashahama/risk-report-engine/internal/narrative"
	"github.com/nyashahama/risk-report-engine/internal/rules"
)

func newCatalogue() *narrative.Catalogue {
	return narrative.NewCatalogue(narrative.DefaultParams(), rules.NewFormatter(nil))
}

// ─── Params ───────────────────────────────────────────────────────────────────

func TestDefaultParams_Valid(t *testing.T) {
	if err := narrative.DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestParseParams_OverridesKeepDefaults(t *testing.T) {
	p, err := narrative.ParseParams([]byte("credit_score_point_drop: 25\nliquidity_depletion_pct: 40\n"))
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if p.CreditScorePointDrop != 25 || p.LiquidityDepletionPct != 40 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.ObservationMonths != narrative.DefaultParams().ObservationMonths {
		t.Errorf("unset key lost its default: %+v", p)
	}
}

func TestParseParams_Empty(t *testing.T) {
	p, err := narrative.ParseParams(nil)
	if err != nil {
		t.Fatalf("ParseParams(nil): %v", err)
	}
	if p != narrative.DefaultParams() {
		t.Errorf("empty input should yield defaults, got %+v", p)
	}
}

func TestParseParams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown key", "credit_score_drop: 40\n"},
		{"pct above range", "liquidity_depletion_pct: 120\n"},
		{"negative points", "credit_score_point_drop: -1\n"},
		{"zero window", "observation_months: 0\n"},
		{"malformed yaml", "credit_score_point_drop: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := narrative.ParseParams([]byte(tt.raw)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadParams(t *testing.T) {
	p, err := narrative.LoadParams("")
	if err != nil || p != narrative.DefaultParams() {
		t.Fatalf("LoadParams(\"\") = %+v, %v", p, err)
	}

	path := filepath.Join(t.TempDir(), "narrative.yaml")
	if err := os.WriteFile(path, []byte("payment_on_time_pct: 45\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err = narrative.LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if p.PaymentOnTimePct != 45 {
		t.Errorf("PaymentOnTimePct = %d, want 45", p.PaymentOnTimePct)
	}

	if _, err := narrative.LoadParams(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// ─── Catalogue ────────────────────────────────────────────────────────────────

func TestOrder(t *testing.T) {
	want := []narrative.ChartKey{"cashFlow", "creditScore", "paymentHistory", "liquidity"}
	if len(narrative.Order) != len(want) {
		t.Fatalf("Order has %d keys, want %d", len(narrative.Order), len(want))
	}
	for i := range want {
		if narrative.Order[i] != want[i] {
			t.Errorf("Order[%d] = %q, want %q", i, narrative.Order[i], want[i])
		}
	}
}

func TestSection_UnknownKey(t *testing.T) {
	if _, ok := newCatalogue().Section("spendingCategories", narrative.Inputs{}); ok {
		t.Error("unknown chart key should not produce a section")
	}
}

func TestSection_EveryKeyHasFindingAndBullets(t *testing.T) {
	c := newCatalogue()
	for _, key := range narrative.Order {
		s, ok := c.Section(key, narrative.Inputs{CreditScore: 650, MonthlyIncome: 45000, MonthlyExpenses: 52000})
		if !ok {
			t.Fatalf("%s: missing from catalogue", key)
		}
		if s.Title == "" || s.Description == "" || s.Finding.Text == "" || len(s.Bullets) == 0 {
			t.Errorf("%s: incomplete section %+v", key, s)
		}
		if s.Finding.Severity != document.ColorWarn && s.Finding.Severity != document.ColorDanger {
			t.Errorf("%s: severity %q is neither warn nor danger", key, s.Finding.Severity)
		}
		wantBands := key == narrative.ChartCreditScore || key == narrative.ChartPaymentHistory
		if (s.Bands != nil) != wantBands {
			t.Errorf("%s: band table present=%v, want %v", key, s.Bands != nil, wantBands)
		}
	}
}

func TestCashFlow_Deficit(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartCashFlow, narrative.Inputs{
		MonthlyIncome: 45000, MonthlyExpenses: 52000,
		CashFlow: []narrative.CashFlowPoint{{45000, 58000}, {45000, 44000}, {45000, 52000}},
	})
	if !strings.Contains(s.Finding.Text, "Rs. 7.0K") || !strings.Contains(s.Finding.Text, "16% of income") {
		t.Errorf("finding = %q", s.Finding.Text)
	}
	if s.Finding.Severity != document.ColorDanger {
		t.Errorf("16%% deficit should be danger, got %q", s.Finding.Severity)
	}
	if !containsAny(s.Bullets, "2 of 3 observed months") {
		t.Errorf("bullets missing deficit month count: %v", s.Bullets)
	}
}

func TestCashFlow_SmallDeficitIsWarn(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartCashFlow, narrative.Inputs{MonthlyIncome: 100000, MonthlyExpenses: 105000})
	if s.Finding.Severity != document.ColorWarn {
		t.Errorf("5%% deficit should be warn, got %q", s.Finding.Severity)
	}
}

func TestCashFlow_Surplus(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartCashFlow, narrative.Inputs{MonthlyIncome: 52000, MonthlyExpenses: 48000})
	if !strings.Contains(s.Finding.Text, "surplus of Rs. 4.0K") {
		t.Errorf("finding = %q", s.Finding.Text)
	}
}

func TestCreditScore_DerivedFromHistory(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartCreditScore, narrative.Inputs{
		CreditScore:   650,
		CreditHistory: []int{690, 680, 670, 665, 655, 650},
	})
	if !s.Finding.Derived {
		t.Error("finding should be derived from history")
	}
	if !strings.Contains(s.Finding.Text, "fallen 40 points to 650") {
		t.Errorf("finding = %q", s.Finding.Text)
	}
	current := 0
	for _, b := range s.Bands.Bands {
		if b.Current {
			current++
			if b.Label != "Fair" {
				t.Errorf("current band = %q, want Fair", b.Label)
			}
		}
	}
	if current != 1 {
		t.Errorf("%d bands marked current, want 1", current)
	}
}

func TestCreditScore_FallsBackToParam(t *testing.T) {
	p := narrative.DefaultParams()
	p.CreditScorePointDrop = 12
	c := narrative.NewCatalogue(p, rules.NewFormatter(nil))
	s, _ := c.Section(narrative.ChartCreditScore, narrative.Inputs{CreditScore: 700})
	if s.Finding.Derived {
		t.Error("finding should not be derived without history")
	}
	if !strings.Contains(s.Finding.Text, "fallen 12 points") || !strings.Contains(s.Finding.Text, "reference figure") {
		t.Errorf("finding = %q", s.Finding.Text)
	}
	if s.Finding.Severity != document.ColorWarn {
		t.Errorf("12-point drop should be warn, got %q", s.Finding.Severity)
	}
}

func TestPaymentHistory(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartPaymentHistory, narrative.Inputs{
		OnTimeHistory: []int{95, 85, 70, 60, 60, 50},
	})
	if !strings.Contains(s.Finding.Text, "Only 50% of payments") || !strings.Contains(s.Finding.Text, "down from 95%") {
		t.Errorf("finding = %q", s.Finding.Text)
	}
	if s.Finding.Severity != document.ColorDanger {
		t.Errorf("severity = %q, want danger", s.Finding.Severity)
	}
	for _, b := range s.Bands.Bands {
		if b.Current && b.Label != "High Risk" {
			t.Errorf("current band = %q, want High Risk", b.Label)
		}
	}
}

func TestLiquidity(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartLiquidity, narrative.Inputs{
		MonthlyIncome: 45000, MonthlyExpenses: 52000,
		LiquidityHistory: []int64{58000, 45000, 38000, 32000, 28000, 25000},
	})
	// (58000-25000)/58000 = 56.9% → 57
	if !strings.Contains(s.Finding.Text, "depleted by 57%") {
		t.Errorf("finding = %q", s.Finding.Text)
	}
	if !containsAny(s.Bullets, "covers about 3 months") {
		t.Errorf("bullets missing runway: %v", s.Bullets)
	}
}

func TestLiquidity_DefaultDepletion(t *testing.T) {
	s, _ := newCatalogue().Section(narrative.ChartLiquidity, narrative.Inputs{})
	if !strings.Contains(s.Finding.Text, "depleted by 57%") || s.Finding.Derived {
		t.Errorf("finding = %+v", s.Finding)
	}
}

func containsAny(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}
