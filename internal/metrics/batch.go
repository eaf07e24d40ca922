package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BatchActiveFiles = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "photomark_batch_active_files",
			Help: "Number of files currently being processed by batch workers",
		},
	)

	BatchFileDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photomark_batch_file_duration_seconds",
			Help:    "Time spent on one batch file, from start to publish",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"status"},
	)
)

// BatchCollector tracks batch workers. The zero value is ready to use.
type BatchCollector struct{}

func NewBatchCollector() *BatchCollector {
	return &BatchCollector{}
}

// FileStarted is called when a worker picks up a file.
func (c *BatchCollector) FileStarted() {
	BatchActiveFiles.Inc()
}

// FileFinished is called once per started file with its final status.
func (c *BatchCollector) FileFinished(status string, duration time.Duration) {
	BatchActiveFiles.Dec()
	BatchFileDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// FileSkipped counts a file that never reached a worker.
func (c *BatchCollector) FileSkipped(status string) {
	RecordBatchFile(status)
}
