// Package metrics holds the Prometheus collectors for the report gateway.
// Each Metrics owns its registry, so tests can build a fresh one per case.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "riskreport"

// Outcomes used as the "outcome" label.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeBusy    = "busy"
	OutcomeTimeout = "timeout"
	OutcomeFailed  = "failed"
)

// Metrics is the set of gateway collectors.
type Metrics struct {
	reg *prometheus.Registry

	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	documentBytes  *prometheus.HistogramVec
	chartsTotal    *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// New registers the collectors, plus the Go runtime and process collectors,
// on a new registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		rendersTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "render",
				Name:      "total",
				Help:      "Report renders by document kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		renderDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "render",
				Name:      "duration_seconds",
				Help:      "Wall time of a render including time queued for a slot.",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"kind"},
		),
		documentBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "render",
				Name:      "document_bytes",
				Help:      "Size of rendered PDF documents.",
				Buckets:   prometheus.ExponentialBuckets(4<<10, 4, 7),
			},
			[]string{"kind"},
		),
		chartsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "render",
				Name:      "charts_total",
				Help:      "Chart images by result: embedded, placeholder or ignored.",
			},
			[]string{"result"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRender records one render attempt. size is ignored unless the
// outcome is OutcomeOK.
func (m *Metrics) ObserveRender(kind, outcome string, took time.Duration, size int) {
	m.rendersTotal.WithLabelValues(kind, outcome).Inc()
	m.renderDuration.WithLabelValues(kind).Observe(took.Seconds())
	if outcome == OutcomeOK {
		m.documentBytes.WithLabelValues(kind).Observe(float64(size))
	}
}

// ObserveCharts records the chart results of one customer render.
func (m *Metrics) ObserveCharts(embedded, placeholders, ignored int) {
	m.chartsTotal.WithLabelValues("embedded").Add(float64(embedded))
	m.chartsTotal.WithLabelValues("placeholder").Add(float64(placeholders))
	m.chartsTotal.WithLabelValues("ignored").Add(float64(ignored))
}

// ObserveRequest records one HTTP request. route is the chi route pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// TrackInFlight exposes fn as a gauge of renders holding a pool slot.
func (m *Metrics) TrackInFlight(fn func() int) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "in_flight",
		Help:      "Renders currently holding a pool slot.",
	}, func() float64 { return float64(fn()) })
}
