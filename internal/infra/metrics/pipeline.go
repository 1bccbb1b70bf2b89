package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		photosReceivedTotal,
		processingFailuresTotal,
		stageLatencyMs,
	)
}

var (
	photosReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "photos_received_total",
			Help: "Photos accepted for background removal.",
		},
	)

	processingFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processing_failures_total",
			Help: "Failed photo requests by pipeline stage.",
		},
		[]string{"stage"},
	)

	stageLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "processing_stage_latency_ms",
			Help:    "Pipeline stage latency distribution in milliseconds.",
			Buckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"stage", "success"},
	)
)

func IncPhotoReceived() {
	photosReceivedTotal.Inc()
}

func IncProcessingFailure(stage string) {
	processingFailuresTotal.WithLabelValues(norm(stage)).Inc()
}

// ObserveStage records how long a stage took since start.
func ObserveStage(stage string, start time.Time, success bool) {
	stageLatencyMs.WithLabelValues(norm(stage), strconv.FormatBool(success)).
		Observe(float64(time.Since(start).Milliseconds()))
}
