// Package report turns a customer risk snapshot into a paginated PDF risk
// report. The Engine is stateless apart from immutable configuration fixed at
// construction: every render call is independent and may run concurrently
// with any other.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nyashahama/risk-report-engine/internal/document"
	"github.com/nyashahama/risk-report-engine/internal/narrative"
	"github.com/nyashahama/risk-report-engine/internal/rules"
)

// DefaultPlatformName is printed in the report footer and PDF metadata.
const DefaultPlatformName = "RiskAvert AI Platform v2.1"

// Kind identifies which document a render produced.
type Kind string

const (
	KindCustomer    Kind = "customer"
	KindBulk        Kind = "bulk"
	KindPlaceholder Kind = "placeholder"
)

// ─── REQUESTS ─────────────────────────────────────────────────────────────────

// CustomerRequest is the input of an individual render. CustomerData is kept
// raw so it can be hashed and validated in one place.
type CustomerRequest struct {
	CustomerID   string            `json:"customerId" validate:"notblank"`
	CustomerData json.RawMessage   `json:"customerData"`
	Charts       map[string]string `json:"charts"`
}

// BulkRequest is the input of a bulk roll-up render.
type BulkRequest struct {
	CustomerIDs []string `json:"customerIds" validate:"dive,notblank"`
	ReportType  string   `json:"reportType"`
	GeneratedBy string   `json:"generatedBy"`
}

// ─── RESULT ───────────────────────────────────────────────────────────────────

// Rendered is one finished document.
type Rendered struct {
	Kind     Kind
	Filename string
	PDF      []byte
	// Blocks is the sequence the PDF was assembled from, for inspection.
	Blocks []document.Block
	// Charts is set for customer renders only.
	Charts ChartStats
}

// ─── ENGINE ───────────────────────────────────────────────────────────────────

// Engine renders reports. Construct with New; the zero value is not usable.
type Engine struct {
	assembler  *document.PDFAssembler
	money      rules.Formatter
	narratives *narrative.Catalogue
	now        func() time.Time
	platform   string
}

type settings struct {
	palette     document.Palette
	params      narrative.Params
	breakpoints []rules.Breakpoint
	now         func() time.Time
	platform    string
}

// Option configures an Engine.
type Option func(*settings)

// WithClock replaces time.Now. Fixing the clock makes output byte-for-byte
// reproducible.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithParams sets the narrative parameters.
func WithParams(p narrative.Params) Option {
	return func(s *settings) { s.params = p }
}

// WithPalette sets the colour palette.
func WithPalette(p document.Palette) Option {
	return func(s *settings) { s.palette = p }
}

// WithBreakpoints sets the currency scale.
func WithBreakpoints(bps []rules.Breakpoint) Option {
	return func(s *settings) { s.breakpoints = bps }
}

// WithPlatformName sets the name printed in the footer and PDF metadata.
func WithPlatformName(name string) Option {
	return func(s *settings) {
		if strings.TrimSpace(name) != "" {
			s.platform = name
		}
	}
}

// New returns an Engine with the default palette, currency scale and
// narrative parameters unless overridden.
func New(opts ...Option) *Engine {
	s := settings{
		palette:  document.DefaultPalette(),
		params:   narrative.DefaultParams(),
		now:      time.Now,
		platform: DefaultPlatformName,
	}
	for _, opt := range opts {
		opt(&s)
	}
	money := rules.NewFormatter(s.breakpoints)
	return &Engine{
		assembler:  document.NewPDFAssembler(s.palette),
		money:      money,
		narratives: narrative.NewCatalogue(s.params, money),
		now:        s.now,
		platform:   s.platform,
	}
}

func (e *Engine) builder(now time.Time) *builder {
	return &builder{money: e.money, narratives: e.narratives, platform: e.platform, now: now}
}

// RenderCustomerRequest parses req.CustomerData and renders the individual
// report. Structural problems wrap ErrInvalidSnapshot.
func (e *Engine) RenderCustomerRequest(req CustomerRequest) (*Rendered, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customerId is required", ErrInvalidSnapshot)
	}
	snap, err := ParseSnapshot(req.CustomerData)
	if err != nil {
		return nil, err
	}
	return e.RenderCustomer(req.CustomerID, snap, req.Charts)
}

// RenderCustomer renders the individual report in its fixed section order:
// cover, executive summary, financial summary, visual analytics, transaction
// ledger, alerts and recommendations. Chart keys are walked in catalogue
// order; keys outside the catalogue are reported in Rendered.Charts.Ignored.
func (e *Engine) RenderCustomer(customerID string, snap *Snapshot, charts map[string]string) (*Rendered, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: customer data is missing", ErrInvalidSnapshot)
	}
	now := e.now()
	b := e.builder(now)

	b.cover(customerID, snap)
	b.executiveSummary(customerID, snap)
	b.financialSummary(snap)
	stats := b.visualAnalytics(snap, charts)
	b.transactionLedger(snap)
	b.alertsAndRecommendations(snap)

	out, err := e.assemble(document.Meta{
		Title:      "Risk Assessment Report - " + snap.Profile.Name,
		Subject:    "Customer " + customerID,
		Author:     e.platform,
		CreatedAt:  now,
		FooterNote: "CONFIDENTIAL - " + snap.Profile.Name,
	}, b.blocks)
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Kind:     KindCustomer,
		Filename: CustomerFilename(snap.Profile.Name),
		PDF:      out,
		Blocks:   b.blocks,
		Charts:   stats,
	}, nil
}

// RenderBulk renders the roll-up listing of customer ids. No per-customer
// detail is included.
func (e *Engine) RenderBulk(req BulkRequest) (*Rendered, error) {
	now := e.now()
	b := e.builder(now)
	b.bulk(req)

	out, err := e.assemble(document.Meta{
		Title:     strings.TrimSpace(req.ReportType),
		Subject:   fmt.Sprintf("%d customers", len(req.CustomerIDs)),
		Author:    e.platform,
		CreatedAt: now,
	}, b.blocks)
	if err != nil {
		return nil, err
	}
	return &Rendered{Kind: KindBulk, Filename: BulkFilename(now), PDF: out, Blocks: b.blocks}, nil
}

// RenderPlaceholder renders the single-page stand-in returned for a stored
// report lookup. Report storage does not exist; callers must treat the result
// as a placeholder, not the report that was requested.
func (e *Engine) RenderPlaceholder(reportID string) (*Rendered, error) {
	now := e.now()
	b := e.builder(now)
	b.placeholder(reportID)

	out, err := e.assemble(document.Meta{
		Title:     "Stored Report " + reportID,
		Author:    e.platform,
		CreatedAt: now,
	}, b.blocks)
	if err != nil {
		return nil, err
	}
	return &Rendered{Kind: KindPlaceholder, Filename: PlaceholderFilename(reportID), PDF: out, Blocks: b.blocks}, nil
}

var errEmptyDocument = errors.New("report: assembler returned an empty document")

func (e *Engine) assemble(meta document.Meta, blocks []document.Block) ([]byte, error) {
	out, err := e.assembler.Assemble(meta, blocks)
	if err != nil {
		return nil, fmt.Errorf("report: assemble: %w", err)
	}
	if len(out) == 0 {
		return nil, errEmptyDocument
	}
	return out, nil
}

// ─── FILENAMES ────────────────────────────────────────────────────────────────

// CustomerFilename is "<name>-report.pdf" with the name lowercased and spaces
// replaced by hyphens.
func CustomerFilename(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-report.pdf"
}

// BulkFilename embeds the generation time in epoch milliseconds.
func BulkFilename(t time.Time) string {
	return fmt.Sprintf("critical-customers-report-%d.pdf", t.UnixMilli())
}

func PlaceholderFilename(reportID string) string {
	return "report-" + reportID + ".pdf"
}
