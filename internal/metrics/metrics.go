package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Registry holds every photomark collector. It is separate from the
// global default so that a textfile export contains only our series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomark_operations_total",
			Help: "Total number of pipeline operations",
		},
		[]string{"operation", "status"},
	)

	OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photomark_operation_duration_seconds",
			Help:    "Duration of pipeline operations in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	StagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomark_stage_total",
			Help: "Total number of stages applied to a chain",
		},
		[]string{"stage"},
	)

	BatchFilesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photomark_batch_files_total",
			Help: "Total number of files handled by batch runs",
		},
		[]string{"status"},
	)

	BatchWorkers = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "photomark_batch_workers",
			Help: "Parallelism of the current batch run",
		},
	)

	AppInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photomark_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit"},
	)
)

func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

func RecordOperation(operation string, err error, duration time.Duration) {
	OperationsTotal.WithLabelValues(operation, Status(err)).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordStage(stage string) {
	StagesTotal.WithLabelValues(stage).Inc()
}

func RecordBatchFile(status string) {
	BatchFilesTotal.WithLabelValues(status).Inc()
}

func SetBatchWorkers(n int) {
	BatchWorkers.Set(float64(n))
}

func SetAppInfo(version, commit string) {
	AppInfo.WithLabelValues(version, commit).Set(1)
}

// WriteTextfile dumps the registry in the text exposition format, for
// node_exporter's textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
