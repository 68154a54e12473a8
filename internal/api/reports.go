package api

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/risk-report-engine/internal/metrics"
	"github.com/nyashahama/risk-report-engine/internal/report"
	"github.com/nyashahama/risk-report-engine/internal/store"
	"github.com/nyashahama/risk-report-engine/internal/worker"
)

// ─── POST /api/reports/generate ───────────────────────────────────────────────

// handleGenerate renders the individual customer report. A structurally
// invalid snapshot is a rendering failure (500), not a client error: the
// customer data source is trusted to send well-formed trees, so a bad one
// means a broken upstream rather than a bad request.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req report.CustomerRequest
	if !s.decode(w, r, &req) {
		return
	}

	digest := sha256.Sum256(req.CustomerData)
	start := time.Now()
	doc, err := worker.Run(r.Context(), s.pool, "customer:"+req.CustomerID, func() (*report.Rendered, error) {
		return s.engine.RenderCustomerRequest(req)
	})
	if err != nil {
		s.renderFailed(w, r, report.KindCustomer, start, err, "customer_id", req.CustomerID)
		return
	}

	s.metrics.ObserveCharts(doc.Charts.Rendered, doc.Charts.Failed, len(doc.Charts.Ignored))
	if doc.Charts.Failed > 0 || len(doc.Charts.Ignored) > 0 {
		s.logger.Warn("render: chart problems",
			"customer_id", req.CustomerID,
			"placeholders", doc.Charts.Failed,
			"ignored", doc.Charts.Ignored,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}

	s.rendered(w, r, doc, start, store.RenderRecord{
		Subject:        req.CustomerID,
		SnapshotSHA256: hex.EncodeToString(digest[:]),
		ChartsRendered: doc.Charts.Rendered,
		ChartsFailed:   doc.Charts.Failed,
		IgnoredCharts:  doc.Charts.Ignored,
	})
}

// ─── POST /api/reports/bulk-generate ──────────────────────────────────────────

func (s *Server) handleBulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req report.BulkRequest
	if !s.decode(w, r, &req) {
		return
	}

	start := time.Now()
	doc, err := worker.Run(r.Context(), s.pool, "bulk", func() (*report.Rendered, error) {
		return s.engine.RenderBulk(req)
	})
	if err != nil {
		s.renderFailed(w, r, report.KindBulk, start, err, "customers", len(req.CustomerIDs))
		return
	}

	s.rendered(w, r, doc, start, store.RenderRecord{
		Subject: bulkSubject(req.ReportType),
		Metadata: map[string]any{
			"customer_count": len(req.CustomerIDs),
			"generated_by":   req.GeneratedBy,
		},
	})
}

// ─── GET /api/reports/download/{reportId} ─────────────────────────────────────

// handleDownload returns a placeholder document. Generated reports are not
// stored anywhere; the X-Report-Placeholder header tells callers that the body
// is a stand-in and not the report they asked for.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	reportID := strings.TrimSpace(chi.URLParam(r, "reportId"))
	if reportID == "" {
		respondErr(w, http.StatusBadRequest, "missing report id")
		return
	}

	start := time.Now()
	doc, err := worker.Run(r.Context(), s.pool, "placeholder:"+reportID, func() (*report.Rendered, error) {
		return s.engine.RenderPlaceholder(reportID)
	})
	if err != nil {
		s.renderFailed(w, r, report.KindPlaceholder, start, err, "report_id", reportID)
		return
	}

	w.Header().Set("X-Report-Placeholder", "true")
	s.rendered(w, r, doc, start, store.RenderRecord{Subject: reportID})
}

// ─── SHARED ───────────────────────────────────────────────────────────────────

// rendered records a successful render and streams the PDF. A failure to
// write the audit row is logged and does not fail the response: the document
// is already built and correct.
func (s *Server) rendered(w http.ResponseWriter, r *http.Request, doc *report.Rendered, start time.Time, rec store.RenderRecord) {
	s.metrics.ObserveRender(string(doc.Kind), metrics.OutcomeOK, time.Since(start), len(doc.PDF))

	rec.Kind = string(doc.Kind)
	rec.Filename = doc.Filename
	rec.SizeBytes = len(doc.PDF)
	rec.Requester = subjectFrom(r.Context())
	rec.RequestID = middleware.GetReqID(r.Context())
	if _, err := s.log.RecordRender(r.Context(), rec); err != nil {
		s.logger.Error("render log write failed",
			"kind", rec.Kind,
			"subject", rec.Subject,
			"error", err,
			"request_id", rec.RequestID,
		)
	}

	s.logger.Info("render: ok",
		"kind", doc.Kind,
		"subject", rec.Subject,
		"bytes", len(doc.PDF),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", rec.RequestID,
	)
	writePDF(w, doc)
}

// renderFailed maps a render error to a response. Engine errors never leak
// their detail to the client.
func (s *Server) renderFailed(w http.ResponseWriter, r *http.Request, kind report.Kind, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, slog.String("kind", string(kind)), "error", err, "request_id", middleware.GetReqID(r.Context()))

	switch {
	case errors.Is(err, worker.ErrBusy):
		s.metrics.ObserveRender(string(kind), metrics.OutcomeBusy, time.Since(start), 0)
		s.logger.Warn("render: pool busy", attrs...)
		w.Header().Set("Retry-After", "5")
		respondErr(w, http.StatusServiceUnavailable, "report renderer is busy, retry shortly")
	case errors.Is(err, worker.ErrTimeout):
		s.metrics.ObserveRender(string(kind), metrics.OutcomeTimeout, time.Since(start), 0)
		s.logger.Error("render: timed out", attrs...)
		respondErr(w, http.StatusGatewayTimeout, "report rendering timed out")
	case errors.Is(err, report.ErrInvalidSnapshot):
		s.metrics.ObserveRender(string(kind), metrics.OutcomeInvalid, time.Since(start), 0)
		s.logger.Warn("render: invalid snapshot", attrs...)
		respondErr(w, http.StatusInternalServerError, "report rendering failed")
	default:
		s.metrics.ObserveRender(string(kind), metrics.OutcomeFailed, time.Since(start), 0)
		s.logger.Error("render: failed", attrs...)
		respondErr(w, http.StatusInternalServerError, "report rendering failed")
	}
}

func writePDF(w http.ResponseWriter, doc *report.Rendered) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.PDF)
}

func bulkSubject(reportType string) string {
	if t := strings.TrimSpace(reportType); t != "" {
		return t
	}
	return "bulk"
}
