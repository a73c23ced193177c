package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_uploads_total",
			Help: "Document uploads by document type and outcome",
		},
		[]string{"document_type", "outcome"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onboarding_upload_bytes_total",
			Help: "Bytes transferred to signed storage URLs",
		},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_submissions_total",
			Help: "Application submissions by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onboarding_submission_duration_seconds",
			Help:    "Duration of a submission including all uploads",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"outcome"},
	)

	FileRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_file_rejections_total",
			Help: "Files rejected at staging time",
		},
		[]string{"reason"},
	)
)

// WriteTextfile dumps the default registry for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
