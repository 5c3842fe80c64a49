package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	trainingJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasad",
			Subsystem: "training",
			Name:      "jobs_total",
			Help:      "Finished training jobs by final status.",
		},
		[]string{"status"},
	)
	trainingJobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rasad",
			Subsystem: "training",
			Name:      "jobs_running",
			Help:      "Training jobs currently running.",
		},
	)
	trainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rasad",
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Wall time of training jobs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)
	inferenceInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rasad",
			Subsystem: "inference",
			Name:      "instances",
			Help:      "Registered inference endpoints.",
		},
	)
	inferenceStartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasad",
			Subsystem: "inference",
			Name:      "starts_total",
			Help:      "Inference start attempts by result.",
		},
		[]string{"result"},
	)
	archiveFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rasad",
			Subsystem: "training",
			Name:      "log_archive_failures_total",
			Help:      "Training logs that could not be archived.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		trainingJobsTotal,
		trainingJobsRunning,
		trainingDuration,
		inferenceInstances,
		inferenceStartsTotal,
		archiveFailuresTotal,
	)
}
