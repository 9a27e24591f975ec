package reports

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	summaryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "villagestats_summary_duration_seconds",
		Help:    "Time to build a yearly village summary",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	summaryCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "villagestats_summary_cache_total",
		Help: "Summary cache lookups by result",
	}, []string{"result"})

	// renderTotal counts rendered documents by format and outcome
	renderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "villagestats_report_render_total",
		Help: "Rendered reports by format and result",
	}, []string{"format", "result"})

	archiveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "villagestats_report_archive_total",
		Help: "Report archive uploads by result",
	}, []string{"result"})
)
