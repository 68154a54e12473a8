package narrative

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Params are the tunable constants behind the chart narratives. The fallback
// values apply only when the snapshot carries no history series to derive the
// figure from.
//
// YAML shape:
//
//	credit_score_point_drop: 40
//	credit_drop_danger_points: 30
//	payment_on_time_pct: 60
//	payment_on_time_danger_pct: 70
//	liquidity_depletion_pct: 57
//	liquidity_depletion_danger_pct: 50
//	cash_flow_deficit_danger_pct: 10
//	observation_months: 6
type Params struct {
	// CreditScorePointDrop is the fallback score decline, in points.
	CreditScorePointDrop int `yaml:"credit_score_point_drop"`
	// CreditDropDangerPoints is the decline at which the finding turns danger.
	CreditDropDangerPoints int `yaml:"credit_drop_danger_points"`

	// PaymentOnTimePct is the fallback on-time share for the latest month.
	PaymentOnTimePct int `yaml:"payment_on_time_pct"`
	// PaymentOnTimeDangerPct: an on-time share below this is danger.
	PaymentOnTimeDangerPct int `yaml:"payment_on_time_danger_pct"`

	// LiquidityDepletionPct is the fallback savings depletion.
	LiquidityDepletionPct int `yaml:"liquidity_depletion_pct"`
	// LiquidityDepletionDangerPct is the depletion at which the finding turns danger.
	LiquidityDepletionDangerPct int `yaml:"liquidity_depletion_danger_pct"`

	// CashFlowDeficitDangerPct is the deficit, as a share of income, at which
	// the cash-flow finding turns danger.
	CashFlowDeficitDangerPct int `yaml:"cash_flow_deficit_danger_pct"`

	// ObservationMonths is the window the charts cover.
	ObservationMonths int `yaml:"observation_months"`
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		CreditScorePointDrop:        40,
		CreditDropDangerPoints:      30,
		PaymentOnTimePct:            60,
		PaymentOnTimeDangerPct:      70,
		LiquidityDepletionPct:       57,
		LiquidityDepletionDangerPct: 50,
		CashFlowDeficitDangerPct:    10,
		ObservationMonths:           6,
	}
}

// Validate checks every percentage is in [0, 100], point values are
// non-negative and the observation window is positive. All problems are
// reported together.
func (p Params) Validate() error {
	var errs []error
	for name, v := range map[string]int{
		"payment_on_time_pct":            p.PaymentOnTimePct,
		"payment_on_time_danger_pct":     p.PaymentOnTimeDangerPct,
		"liquidity_depletion_pct":        p.LiquidityDepletionPct,
		"liquidity_depletion_danger_pct": p.LiquidityDepletionDangerPct,
		"cash_flow_deficit_danger_pct":   p.CashFlowDeficitDangerPct,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("narrative params: %s=%d out of range [0,100]", name, v))
		}
	}
	if p.CreditScorePointDrop < 0 {
		errs = append(errs, fmt.Errorf("narrative params: credit_score_point_drop must be >= 0, got %d", p.CreditScorePointDrop))
	}
	if p.CreditDropDangerPoints < 0 {
		errs = append(errs, fmt.Errorf("narrative params: credit_drop_danger_points must be >= 0, got %d", p.CreditDropDangerPoints))
	}
	if p.ObservationMonths <= 0 {
		errs = append(errs, fmt.Errorf("narrative params: observation_months must be > 0, got %d", p.ObservationMonths))
	}
	return errors.Join(errs...)
}

// ParseParams decodes YAML over the defaults, so keys left out keep their
// default value. Unknown keys are rejected to catch typos.
func ParseParams(raw []byte) (Params, error) {
	p := DefaultParams()
	if len(bytes.TrimSpace(raw)) == 0 {
		return p, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Params{}, fmt.Errorf("narrative params: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// LoadParams reads a YAML parameter file. An empty path returns the defaults.
func LoadParams(path string) (Params, error) {
	if path == "" {
		return DefaultParams(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("narrative params: read %s: %w", path, err)
	}
	return ParseParams(raw)
}
