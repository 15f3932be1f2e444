// Package metrics defines the Prometheus instruments for builds, retrieval, and chat.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument. A nil *Metrics is valid and records nothing,
// so components can take it as an optional dependency.
type Metrics struct {
	registry *prometheus.Registry

	indexBuilds        *prometheus.CounterVec
	indexChunks        prometheus.Gauge
	retrievals         prometheus.Counter
	retrievalDuration  prometheus.Histogram
	retrievedDocuments prometheus.Histogram
	chatRequests       *prometheus.CounterVec
	llmDuration        prometheus.Histogram
	mirrorOperations   *prometheus.CounterVec
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		indexBuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbassist_index_builds_total",
			Help: "Index builds by outcome.",
		}, []string{"status"}),
		indexChunks: f.NewGauge(prometheus.GaugeOpts{
			Name: "kbassist_index_chunks",
			Help: "Chunks in the live index.",
		}),
		retrievals: f.NewCounter(prometheus.CounterOpts{
			Name: "kbassist_retrievals_total",
			Help: "Retrieval queries served.",
		}),
		retrievalDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbassist_retrieval_duration_seconds",
			Help:    "Time spent ranking chunks for a query, including any lazy fit.",
			Buckets: prometheus.DefBuckets,
		}),
		retrievedDocuments: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbassist_retrieved_documents",
			Help:    "Chunks returned per retrieval.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 30, 50, 100},
		}),
		chatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbassist_chat_requests_total",
			Help: "Chat questions by outcome.",
		}, []string{"status"}),
		llmDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kbassist_llm_duration_seconds",
			Help:    "Latency of LLM completion calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		mirrorOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbassist_mirror_operations_total",
			Help: "Object-store mirror operations by kind and outcome.",
		}, []string{"op", "status"}),
	}
}

// Registry returns the registry the instruments are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBuild counts a build and, on success, sets the live chunk count.
func (m *Metrics) ObserveBuild(ok bool, chunks int) {
	if m == nil {
		return
	}
	m.indexBuilds.WithLabelValues(status(ok)).Inc()
	if ok {
		m.indexChunks.Set(float64(chunks))
	}
}

// SetChunks records the chunk count of a newly loaded index.
func (m *Metrics) SetChunks(chunks int) {
	if m == nil {
		return
	}
	m.indexChunks.Set(float64(chunks))
}

// ObserveRetrieval records one retrieval.
func (m *Metrics) ObserveRetrieval(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.retrievals.Inc()
	m.retrievalDuration.Observe(d.Seconds())
	m.retrievedDocuments.Observe(float64(results))
}

// ObserveChat counts a chat request.
func (m *Metrics) ObserveChat(ok bool) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(status(ok)).Inc()
}

// ObserveLLM records the latency of one completion call.
func (m *Metrics) ObserveLLM(d time.Duration) {
	if m == nil {
		return
	}
	m.llmDuration.Observe(d.Seconds())
}

// ObserveMirror counts a mirror push or pull.
func (m *Metrics) ObserveMirror(op string, ok bool) {
	if m == nil {
		return
	}
	m.mirrorOperations.WithLabelValues(op, status(ok)).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
