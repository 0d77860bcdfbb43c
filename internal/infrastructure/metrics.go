package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/yourusername/tikdown-go/internal/domain"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	resolutions       *prometheus.CounterVec
	resolveDuration   *prometheus.HistogramVec
	downloads         *prometheus.CounterVec
	downloadBytes     prometheus.Counter
	downloadsInFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tikdown_resolutions_total",
				Help: "Total number of resolution attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tikdown_resolve_duration_seconds",
				Help:    "Duration of resolution attempts in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tikdown_downloads_total",
				Help: "Total number of downloads, labeled by final status.",
			},
			[]string{"status"},
		),
		downloadBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tikdown_download_bytes_total",
				Help: "Total number of bytes written by completed downloads.",
			},
		),
		downloadsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tikdown_downloads_in_flight",
				Help: "Number of downloads currently transferring.",
			},
		),
	}

	reg.MustRegister(m.resolutions, m.resolveDuration, m.downloads, m.downloadBytes, m.downloadsInFlight)
	return m
}

// ObserveResolution records one resolution attempt. An empty reason means success.
func (m *Metrics) ObserveResolution(reason domain.FailureReason, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := string(reason)
	if outcome == "" {
		outcome = "success"
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	m.resolveDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// DownloadStarted marks a transfer as in flight
func (m *Metrics) DownloadStarted() {
	if m == nil {
		return
	}
	m.downloadsInFlight.Inc()
}

// DownloadFinished records the final status of a transfer
func (m *Metrics) DownloadFinished(status domain.RecordStatus, bytes int64) {
	if m == nil {
		return
	}
	m.downloadsInFlight.Dec()
	m.downloads.WithLabelValues(string(status)).Inc()
	if status == domain.StatusCompleted && bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
}
