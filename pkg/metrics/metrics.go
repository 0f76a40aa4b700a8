package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "path", "status"},
	)

	// StagesTotal counts pipeline stage outcomes: stage is tax_info, registry,
	// extraction or persistence.
	StagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stages_total",
			Help: "Total number of pipeline stage executions by outcome.",
		},
		[]string{"stage", "outcome"},
	)

	CrawlDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_duration_seconds",
			Help:    "Duration of crawl operations.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
		},
		[]string{"site"},
	)

	CaptchaSolveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "captcha_solve_duration_seconds",
			Help:    "Wall-clock time spent waiting for captcha tokens.",
			Buckets: []float64{5, 15, 30, 60, 90, 120, 150},
		},
	)

	CaptchaPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captcha_polls_total",
			Help: "Total number of captcha result polls by response kind.",
		},
		[]string{"result"}, // ready, not_ready, error, transport
	)

	BrowserSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "browser_sessions_active",
			Help: "Current number of open browser sessions.",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			StagesTotal,
			CrawlDuration,
			CaptchaSolveDuration,
			CaptchaPollsTotal,
			BrowserSessionsActive,
		)
	})
}
