package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyperifyio/paperpilot/internal/classify"
	"github.com/hyperifyio/paperpilot/internal/scan"
)

// metrics are registered per server so tests can build many servers.
type metrics struct {
	registry       *prometheus.Registry
	scans          *prometheus.CounterVec
	candidates     *prometheus.CounterVec
	issues         *prometheus.CounterVec
	configErrors   *prometheus.CounterVec
	classification *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperpilot_scans_total",
			Help: "Scans run, by kind.",
		}, []string{"kind"}),
		candidates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperpilot_candidates_total",
			Help: "Candidates found, by kind.",
		}, []string{"kind"}),
		issues: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperpilot_issues_total",
			Help: "Issues reported, by kind.",
		}, []string{"kind"}),
		configErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperpilot_config_errors_total",
			Help: "Scans aborted by a profile configuration error, by kind.",
		}, []string{"kind"}),
		classification: f.NewCounterVec(prometheus.CounterOpts{
			Name: "paperpilot_classifications_total",
			Help: "Classification answers, by kind and source.",
		}, []string{"kind", "source"}),
		requestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paperpilot_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

func (m *metrics) observeScan(kind scan.Kind, r *scan.Result, err error) {
	k := string(kind)
	m.scans.WithLabelValues(k).Inc()
	if err != nil {
		m.configErrors.WithLabelValues(k).Inc()
	}
	if r == nil {
		return
	}
	m.candidates.WithLabelValues(k).Add(float64(r.Stats.CandidatesFound))
	m.issues.WithLabelValues(k).Add(float64(r.Stats.IssuesFound))
}

func (m *metrics) observeClassification(c classify.Classification) {
	m.classification.WithLabelValues(string(c.Kind), c.Source).Inc()
}
