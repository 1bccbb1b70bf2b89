package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		artifactsStoredTotal,
		artifactDownloadsTotal,
		artifactsSweptTotal,
	)
}

var (
	artifactsStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "artifacts_stored_total",
			Help: "Processed images written to the artifact store.",
		},
	)

	artifactDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_downloads_total",
			Help: "Download button presses by result (sent/missing/error).",
		},
		[]string{"result"},
	)

	artifactsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "artifacts_swept_total",
			Help: "Artifacts removed by the retention reaper.",
		},
	)
)

func IncArtifactStored() {
	artifactsStoredTotal.Inc()
}

func IncDownload(result string) {
	artifactDownloadsTotal.WithLabelValues(norm(result)).Inc()
}

func AddArtifactsSwept(n int) {
	if n > 0 {
		artifactsSweptTotal.Add(float64(n))
	}
}
