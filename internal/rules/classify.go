// Package rules holds the threshold-driven classification rules and the
// currency formatter used by every report section. Everything here is a total
// function: unknown input falls through to a neutral result, never an error.
//
// Dependency rule: rules imports document (for ColorClass) and nothing else
// from internal/.
package rules

import (
	"strings"

	"github.com/nyashahama/risk-report-engine/internal/document"
)

// ─── RISK STATUS ──────────────────────────────────────────────────────────────

// Status is a customer risk level parsed from the profile's free-text status.
type Status int

const (
	StatusUnknown Status = iota
	StatusCritical
	StatusHigh
	StatusMedium
	StatusLow
)

// ParseStatus matches s case-insensitively against the four known levels.
// Anything else, including "", is StatusUnknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return StatusCritical
	case "high":
		return StatusHigh
	case "medium":
		return StatusMedium
	case "low":
		return StatusLow
	default:
		return StatusUnknown
	}
}

// StatusColorClass maps a profile status to the colour used by the cover
// banner and the risk-level heading.
func StatusColorClass(status string) document.ColorClass {
	switch ParseStatus(status) {
	case StatusCritical:
		return document.ColorDanger
	case StatusHigh:
		return document.ColorWarn
	case StatusMedium:
		return document.ColorCaution
	case StatusLow:
		return document.ColorOK
	default:
		return document.ColorMuted
	}
}

// ─── FINANCIAL TABLE STATUS ───────────────────────────────────────────────────

// Labels used in the financial summary status column.
const (
	LabelNormal   = "Normal"
	LabelHigh     = "High"
	LabelCritical = "Critical"
)

// TableStatusColorClass maps a financial table status label to a colour.
// It differs from StatusColorClass on purpose: inside the table "high" is as
// alarming as "critical".
func TableStatusColorClass(label string) document.ColorClass {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical", "high":
		return document.ColorDanger
	case "normal":
		return document.ColorOK
	default:
		return document.ColorMuted
	}
}

// ─── ALERTS ───────────────────────────────────────────────────────────────────

// AlertColorClass maps an alert type to the colour of its callout.
func AlertColorClass(alertType string) document.ColorClass {
	switch strings.ToLower(strings.TrimSpace(alertType)) {
	case "critical":
		return document.ColorDanger
	case "warning":
		return document.ColorWarn
	case "info":
		return document.ColorAccent
	default:
		return document.ColorMuted
	}
}

// ─── TRANSACTION FLAGS ────────────────────────────────────────────────────────

// Flag is the risk category assigned to a single transaction.
type Flag string

const (
	FlagCritical Flag = "Critical"
	FlagHigh     Flag = "High"
	FlagMedium   Flag = "Medium"
	FlagWatch    Flag = "Watch"
	FlagNormal   Flag = "Normal"
)

// flagRule is one keyword group of the transaction scan.
type flagRule struct {
	keywords []string
	flag     Flag
	color    document.ColorClass
}

// flagRules is ordered by priority. A description such as "late loan payment"
// matches two groups; the earlier one wins.
var flagRules = []flagRule{
	{[]string{"missed", "failed"}, FlagCritical, document.ColorDanger},
	{[]string{"late", "delayed"}, FlagHigh, document.ColorWarn},
	{[]string{"loan", "lending"}, FlagMedium, document.ColorCaution},
	{[]string{"atm", "withdrawal"}, FlagWatch, document.ColorWatch},
}

// TransactionRiskFlag scans description case-insensitively and returns the
// flag of the first matching rule, or Normal.
func TransactionRiskFlag(description string) (Flag, document.ColorClass) {
	lower := strings.ToLower(description)
	for _, r := range flagRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.flag, r.color
			}
		}
	}
	return FlagNormal, document.ColorOK
}
