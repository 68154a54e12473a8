package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nyashahama/risk-report-engine/internal/document"
	"github.com/nyashahama/risk-report-engine/internal/narrative"
	"github.com/nyashahama/risk-report-engine/internal/rules"
)

const (
	timestampLayout = "January 02, 2006 at 03:04 PM"
	dateLayout      = "January 02, 2006"
)

// builder emits the block sequence for one render. It is created per call and
// never shared.
type builder struct {
	money      rules.Formatter
	narratives *narrative.Catalogue
	platform   string
	now        time.Time
	blocks     []document.Block
}

func (b *builder) add(blocks ...document.Block) {
	b.blocks = append(b.blocks, blocks...)
}

func para(text string, s document.Style) document.Paragraph {
	return document.Paragraph{Text: text, Style: s}
}

func banner(text string) document.Heading {
	return document.Heading{Text: text, Level: 1}
}

// ─── COVER ────────────────────────────────────────────────────────────────────

func (b *builder) cover(customerID string, s *Snapshot) {
	color := rules.StatusColorClass(s.Profile.Status)
	status := strings.ToUpper(strings.TrimSpace(s.Profile.Status))
	if status == "" {
		status = "UNRATED"
	}

	probability := "MEDIUM"
	if s.Risk.RiskPercentage > 70 {
		probability = "HIGH"
	}

	b.add(
		para(status+" RISK ASSESSMENT", document.Style{
			Bold: true, Size: document.SizeBanner, Color: document.ColorInverse, Fill: color, Align: document.AlignCenter,
		}),
		para("REPORT", document.Style{Bold: true, Size: document.SizeTitle, Align: document.AlignCenter, SpaceAbove: 6}),
		para("Customer: "+s.Profile.Name, document.Style{Bold: true, Size: document.SizeHeading2, Align: document.AlignCenter, SpaceAbove: 4}),
		para("Customer ID: "+customerID, document.Style{Color: document.ColorMuted, Align: document.AlignCenter}),
		para("Generated: "+b.now.Format(timestampLayout), document.Style{Color: document.ColorMuted, Align: document.AlignCenter}),
		para("RISK LEVEL: "+status, document.Style{
			Bold: true, Size: document.SizeHeading1, Color: color, Align: document.AlignCenter, SpaceAbove: 8,
		}),
		para(fmt.Sprintf("Risk Score: %d%% | Default Probability: %s", s.Risk.RiskPercentage, probability),
			document.Style{Size: document.SizeHeading3, Align: document.AlignCenter}),
		para("Immediate Intervention Required Within 48 Hours", document.Style{
			Bold: true, Size: document.SizeSmall, Color: document.ColorDanger, Align: document.AlignCenter, SpaceAbove: 8,
		}),
		para("Classification: High-Priority Delinquency Risk", document.Style{Size: document.SizeSmall, Align: document.AlignCenter}),
		para("Recommended Action: Immediate Contact + Payment Restructuring", document.Style{Size: document.SizeSmall, Align: document.AlignCenter}),
		document.PageBreak{},
	)
}

// ─── EXECUTIVE SUMMARY ────────────────────────────────────────────────────────

func (b *builder) executiveSummary(customerID string, s *Snapshot) {
	level := strings.ToLower(strings.TrimSpace(s.Profile.Status))
	if level == "" {
		level = "unrated"
	}
	b.add(
		banner("EXECUTIVE SUMMARY"),
		para(fmt.Sprintf("%s (ID: %s) presents a %s delinquency risk with a %d%% probability of default within the next 30 days. "+
			"Behavioral analysis has identified multiple converging risk factors that require immediate intervention.",
			s.Profile.Name, customerID, level, s.Risk.RiskPercentage), document.Style{}),
		para("Key Findings:", document.Style{Bold: true, SpaceAbove: 2}),
		document.KeyValueList{
			Style: document.Style{Indent: 1},
			Items: []document.KeyValue{
				{Key: "Credit Score", Value: withNote(fmt.Sprint(s.Profile.CreditScore), s.Profile.CreditScoreStatus)},
				{Key: "Monthly Income", Value: b.money.Money(s.Financials.MonthlyIncome)},
				{Key: "Monthly Expenses", Value: b.money.Money(s.Financials.MonthlyExpenses)},
				{Key: "Net Worth", Value: b.money.Money(s.Financials.NetWorth)},
				{Key: "Total Debt", Value: b.money.Money(s.Financials.TotalDebt)},
				{
					Key:   "Risk Level",
					Value: withNote(s.Profile.Status, fmt.Sprintf("%d%%", s.Risk.RiskPercentage)),
					Color: rules.StatusColorClass(s.Profile.Status),
				},
			},
		},
		document.PageBreak{},
	)
}

// withNote renders "value (note)", or value alone when note is blank.
func withNote(value, note string) string {
	if strings.TrimSpace(note) == "" {
		return value
	}
	return value + " (" + note + ")"
}

// ─── FINANCIAL SUMMARY ────────────────────────────────────────────────────────

func (b *builder) financialSummary(s *Snapshot) {
	f := s.Financials
	expenseLabel := rules.LabelNormal
	if f.MonthlyExpenses > f.MonthlyIncome {
		expenseLabel = rules.LabelHigh
	}
	worthLabel := rules.LabelNormal
	if f.NetWorth < 0 {
		worthLabel = rules.LabelCritical
	}

	rows := [][2]string{
		{"Monthly Income", rules.LabelNormal},
		{"Monthly Expenses", expenseLabel},
		{"Total Assets", rules.LabelNormal},
		{"Total Liabilities", rules.LabelHigh},
		{"Net Worth", worthLabel},
		{"Total Debt", rules.LabelHigh},
	}
	amounts := []int64{f.MonthlyIncome, f.MonthlyExpenses, f.TotalAssets, f.TotalLiabilities, f.NetWorth, f.TotalDebt}

	t := document.Table{
		Header: []string{"Metric", "Amount", "Status"},
		Widths: []float64{3, 2, 1},
	}
	for i, r := range rows {
		t.Rows = append(t.Rows, []document.Cell{
			{Text: r[0]},
			{Text: b.money.Money(amounts[i])},
			{Text: r[1], Color: rules.TableStatusColorClass(r[1]), Bold: r[1] != rules.LabelNormal},
		})
	}
	b.add(banner("FINANCIAL SUMMARY"), t, document.PageBreak{})
}

// ─── VISUAL ANALYTICS ─────────────────────────────────────────────────────────

// ChartStats counts the chart outcomes of one render.
type ChartStats struct {
	Rendered int
	Failed   int
	// Ignored lists supplied chart keys outside the catalogue, sorted.
	Ignored []string
}

func (b *builder) visualAnalytics(s *Snapshot, charts map[string]string) ChartStats {
	var stats ChartStats
	known := make(map[string]bool, len(narrative.Order))
	for _, key := range narrative.Order {
		known[string(key)] = true
	}
	for key := range charts {
		if !known[key] {
			stats.Ignored = append(stats.Ignored, key)
		}
	}
	slices.Sort(stats.Ignored)

	b.add(banner("VISUAL ANALYTICS"))

	in := narrative.Inputs{
		CreditScore:      s.Profile.CreditScore,
		MonthlyIncome:    s.Financials.MonthlyIncome,
		MonthlyExpenses:  s.Financials.MonthlyExpenses,
		CreditHistory:    s.History.CreditScores,
		OnTimeHistory:    s.History.OnTimePct,
		LiquidityHistory: s.History.Liquidity,
		CashFlow:         s.History.CashFlow,
	}

	emitted := 0
	for _, key := range narrative.Order {
		payload, ok := charts[string(key)]
		if !ok {
			continue
		}
		sec, ok := b.narratives.Section(key, in)
		if !ok {
			continue
		}
		if emitted > 0 {
			b.add(document.PageBreak{})
		}
		emitted++

		b.add(
			document.Heading{Text: sec.Title, Level: 2},
			para(sec.Description, document.Style{Size: document.SizeSmall, Color: document.ColorMuted}),
		)

		if res := decodeChart(payload); res.err != nil {
			stats.Failed++
			b.add(para(chartPlaceholder, document.Style{Italic: true, Color: document.ColorMuted, Align: document.AlignCenter}))
		} else {
			stats.Rendered++
			b.add(document.Image{Name: "chart-" + string(key), Data: res.png, WidthPct: 90})
		}

		b.add(para(sec.Finding.Text, document.Style{
			Bold: true, Size: document.SizeSmall, Color: sec.Finding.Severity, LeftBorder: true, SpaceAbove: 1,
		}))

		items := make([]document.KeyValue, len(sec.Bullets))
		for i, line := range sec.Bullets {
			items[i] = document.KeyValue{Value: line}
		}
		b.add(document.KeyValueList{Items: items, Style: document.Style{Size: document.SizeSmall, Indent: 1}})

		if sec.Bands != nil {
			t := document.Table{Header: sec.Bands.Header, Widths: []float64{2, 2, 4, 1.5}, Style: document.Style{SpaceAbove: 1}}
			for _, band := range sec.Bands.Bands {
				marker := ""
				if band.Current {
					marker = "Current"
				}
				t.Rows = append(t.Rows, []document.Cell{
					{Text: band.Label, Color: band.Color, Bold: true},
					{Text: band.Range},
					{Text: band.Assessment},
					{Text: marker, Bold: band.Current},
				})
			}
			b.add(t)
		}
	}

	if emitted == 0 {
		b.add(para("No charts were supplied for this report.", document.Style{Italic: true, Color: document.ColorMuted}))
	}
	b.add(document.PageBreak{})
	return stats
}

// ─── TRANSACTION LEDGER ───────────────────────────────────────────────────────

func (b *builder) transactionLedger(s *Snapshot) {
	b.add(
		banner("TRANSACTION PATTERN ANALYSIS"),
		para("Analysis of the last 30 days of transaction data reveals several high-risk patterns:", document.Style{}),
	)
	if len(s.Transactions) == 0 {
		b.add(
			para("No recent transactions.", document.Style{Italic: true, Color: document.ColorMuted}),
			document.PageBreak{},
		)
		return
	}

	t := document.Table{
		Header: []string{"Date", "Transaction", "Amount", "Risk Flag"},
		Widths: []float64{2, 4, 2, 2},
	}
	for _, tx := range s.Transactions {
		flag, color := rules.TransactionRiskFlag(tx.Description)
		t.Rows = append(t.Rows, []document.Cell{
			{Text: tx.Date},
			{Text: tx.Description},
			{Text: b.money.Money(rules.Abs(tx.Amount))},
			{Text: string(flag), Color: color, Bold: flag != rules.FlagNormal},
		})
	}
	b.add(t, document.PageBreak{})
}

// ─── ALERTS AND RECOMMENDATIONS ───────────────────────────────────────────────

var recommendations = []string{
	"IMMEDIATE CONTACT (Within 24 Hours): Phone call from relationship manager, express concern and willingness to help",
	"PAYMENT RESTRUCTURING (Days 2-7): Offer EMI moratorium for 2 months, reduce monthly EMI by 35%, waive all late fees",
	"FINANCIAL COUNSELING (Ongoing): Enroll in mandatory financial literacy program, create realistic monthly budget",
	"MONITORING & SUPPORT (Days 8-60): Real-time transaction monitoring, weekly check-in calls for first month",
}

func (b *builder) alertsAndRecommendations(s *Snapshot) {
	b.add(banner("RECENT ALERTS"))
	if len(s.Alerts) == 0 {
		b.add(para("No recent alerts.", document.Style{Italic: true, Color: document.ColorMuted}))
	}
	for _, a := range s.Alerts {
		text := a.Message
		if strings.TrimSpace(a.Date) != "" {
			text += " (" + a.Date + ")"
		}
		b.add(para(text, document.Style{
			Size: document.SizeSmall, Color: rules.AlertColorClass(a.Type), LeftBorder: true, Indent: 1, SpaceAbove: 1,
		}))
	}

	b.add(document.Heading{Text: "RECOMMENDED INTERVENTION STRATEGY", Level: 2, Style: document.Style{SpaceAbove: 4}})
	for i, r := range recommendations {
		b.add(para(fmt.Sprintf("%d. %s", i+1, r), document.Style{Size: document.SizeSmall, Indent: 1}))
	}

	fine := document.Style{Size: document.SizeFine, Color: document.ColorMuted, Align: document.AlignCenter}
	top := fine
	top.SpaceAbove = 6
	b.add(
		para("Report Generated By: "+b.platform, top),
		para("Analysis Date: "+b.now.Format(timestampLayout), fine),
		para("Report Status: CONFIDENTIAL - For Authorized Personnel Only", fine),
	)
}

// ─── BULK ─────────────────────────────────────────────────────────────────────

func (b *builder) bulk(req BulkRequest) {
	title := strings.ToUpper(strings.TrimSpace(req.ReportType))
	if title == "" {
		title = "BULK RISK REPORT"
	}
	center := document.Style{Align: document.AlignCenter}
	b.add(
		para(title, document.Style{Bold: true, Size: document.SizeHeading1, Align: document.AlignCenter, SpaceAbove: 10}),
		para("Generated by: "+req.GeneratedBy, center),
		para("Date: "+b.now.Format(dateLayout), center),
		para(fmt.Sprintf("Total Customers: %d", len(req.CustomerIDs)), document.Style{Bold: true, Align: document.AlignCenter, SpaceAbove: 2}),
		document.PageBreak{},
		banner("CUSTOMER LIST"),
		para(fmt.Sprintf("This report contains %d customers identified as high-risk based on AI analysis.", len(req.CustomerIDs)), document.Style{}),
	)
	for i, id := range req.CustomerIDs {
		b.add(para(fmt.Sprintf("%d. Customer ID: %s", i+1, id), document.Style{Indent: 1}))
	}
	b.add(para("For detailed individual reports, please use the customer profile page.", document.Style{
		Italic: true, Size: document.SizeSmall, Color: document.ColorMuted, SpaceAbove: 4,
	}))
}

// ─── PLACEHOLDER ──────────────────────────────────────────────────────────────

func (b *builder) placeholder(reportID string) {
	b.add(
		para("STORED REPORT", document.Style{Bold: true, Size: document.SizeHeading1, Align: document.AlignCenter, SpaceAbove: 10}),
		para("Report ID: "+reportID, document.Style{Align: document.AlignCenter, SpaceAbove: 2}),
		para("This is a placeholder for pre-generated reports.", document.Style{
			Italic: true, Color: document.ColorMuted, Align: document.AlignCenter, SpaceAbove: 4,
		}),
	)
}
