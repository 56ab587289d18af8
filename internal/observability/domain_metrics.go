package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	questionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckboard_questions_total",
			Help: "Total number of natural-language questions received.",
		},
	)
	generationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckboard_generation_failures_total",
			Help: "Total number of questions where SQL generation failed.",
		},
	)
	executionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckboard_execution_failures_total",
			Help: "Total number of generated queries rejected by the warehouse.",
		},
	)
	generationLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckboard_generation_latency_seconds",
			Help:    "Latency of the model completion call per question.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckboard_query_duration_seconds",
			Help:    "Warehouse execution time for generated and raw queries.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
	exampleReloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckboard_example_reloads_total",
			Help: "Total number of curated example reloads.",
		},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckboard_exports_total",
			Help: "Total number of result exports by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		generationFailuresTotal,
		executionFailuresTotal,
		generationLatencySeconds,
		queryDurationSeconds,
		exampleReloadsTotal,
		exportsTotal,
	)
}

func ObserveQuestion() {
	questionsTotal.Inc()
}

func ObserveGeneration(elapsed time.Duration, err error) {
	generationLatencySeconds.Observe(elapsed.Seconds())
	if err != nil {
		generationFailuresTotal.Inc()
	}
}

func ObserveExecution(elapsed time.Duration, err error) {
	queryDurationSeconds.Observe(elapsed.Seconds())
	if err != nil {
		executionFailuresTotal.Inc()
	}
}

func ObserveExampleReload() {
	exampleReloadsTotal.Inc()
}

func ObserveExport(err error) {
	if err != nil {
		exportsTotal.WithLabelValues("error").Inc()
		return
	}
	exportsTotal.WithLabelValues("ok").Inc()
}
