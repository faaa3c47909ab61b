package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	questions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_questions_total",
		Help: "Questions answered, by path taken (direct/search/error)",
	}, []string{"mode"})

	retrievals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_retrievals_total",
		Help: "Reverse image search runs by outcome",
	}, []string{"outcome"})

	verdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_verdicts_total",
		Help: "Per-passage verification verdicts",
	}, []string{"verdict"})

	stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agent_stage_latency_ms",
		Help:    "Latency of pipeline stages in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	}, []string{"stage"})

	engineResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_engine_results",
		Help:    "Candidates returned per search engine call",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{"engine"})

	passagesExtracted = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "retriever_passages_extracted",
		Help:    "Passages written to the store per retrieval",
		Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
	})
)

func ensureRegistered() {
	once.Do(func() {
		prometheus.MustRegister(questions, retrievals, verdicts, stageLatency, engineResults, passagesExtracted)
	})
}

func IncQuestion(mode string) {
	ensureRegistered()
	questions.WithLabelValues(mode).Inc()
}

func IncRetrieval(outcome string) {
	ensureRegistered()
	retrievals.WithLabelValues(outcome).Inc()
}

func IncVerdict(verdict string) {
	ensureRegistered()
	verdicts.WithLabelValues(verdict).Inc()
}

// ObserveStage is meant to be deferred: defer metrics.ObserveStage("rank", time.Now())
func ObserveStage(stage string, start time.Time) {
	ensureRegistered()
	stageLatency.WithLabelValues(stage).Observe(float64(time.Since(start).Milliseconds()))
}

func ObserveEngine(engine string, results int) {
	ensureRegistered()
	engineResults.WithLabelValues(engine).Observe(float64(results))
}

func ObservePassages(n int) {
	ensureRegistered()
	passagesExtracted.Observe(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	ensureRegistered()
	return promhttp.Handler()
}
