// Package observability registers the Prometheus metrics shared by the
// gateway, converter, and ingest binaries.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	uploadsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmcloud",
		Subsystem: "gateway",
		Name:      "uploads_total",
		Help:      "Number of accepted uploads by file extension.",
	}, []string{"extension"})

	uploadRejectionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmcloud",
		Subsystem: "gateway",
		Name:      "upload_rejections_total",
		Help:      "Number of rejected uploads grouped by reason.",
	}, []string{"reason"})

	dispatchFailuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmcloud",
		Subsystem: "gateway",
		Name:      "dispatch_failures_total",
		Help:      "Number of asynchronous converter handoffs that failed.",
	}, []string{"converter"})

	retrievalsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmcloud",
		Subsystem: "gateway",
		Name:      "retrievals_total",
		Help:      "Number of document retrievals grouped by outcome.",
	}, []string{"outcome"})

	conversionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmcloud",
		Subsystem: "converter",
		Name:      "conversions_total",
		Help:      "Number of conversion attempts grouped by converter and status.",
	}, []string{"converter", "status"})

	ingestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "garmcloud",
		Subsystem: "ingest",
		Name:      "ingests_total",
		Help:      "Number of ingest attempts grouped by status.",
	}, []string{"status"})

	ingestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "garmcloud",
		Subsystem: "ingest",
		Name:      "duration_seconds",
		Help:      "Wall time of the dual write per activity.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		uploadsCounter,
		uploadRejectionsCounter,
		dispatchFailuresCounter,
		retrievalsCounter,
		conversionsCounter,
		ingestsCounter,
		ingestDuration,
	)
}

// RecordUpload counts an accepted upload for the given extension.
func RecordUpload(extension string) {
	uploadsCounter.WithLabelValues(extension).Inc()
}

// RecordUploadRejection counts a client-error rejection.
func RecordUploadRejection(reason string) {
	uploadRejectionsCounter.WithLabelValues(reason).Inc()
}

// RecordDispatchFailure counts a failed async handoff to a converter.
func RecordDispatchFailure(converter string) {
	dispatchFailuresCounter.WithLabelValues(converter).Inc()
}

// RecordRetrieval counts a retrieval outcome ("hit", "miss", "ping").
func RecordRetrieval(outcome string) {
	retrievalsCounter.WithLabelValues(outcome).Inc()
}

// RecordConversion counts a conversion attempt ("ok", "parse_error",
// "forward_error").
func RecordConversion(converter, status string) {
	conversionsCounter.WithLabelValues(converter, status).Inc()
}

// RecordIngest counts an ingest attempt and its duration.
func RecordIngest(status string, elapsed time.Duration) {
	ingestsCounter.WithLabelValues(status).Inc()
	ingestDuration.Observe(elapsed.Seconds())
}
