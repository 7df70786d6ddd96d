// Package metrics defines the Prometheus metric collectors used by the ranking
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CorpusDocuments      prometheus.Gauge
	CorpusTerms          prometheus.Gauge
	CorpusAvgDocLength   prometheus.Gauge
	CorpusLoadDuration   prometheus.Histogram
	AnalyticsEventsTotal *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
}

const namespace = "bm25"

var (
	httpBuckets   = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	searchBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
)

// New creates every collector under the bm25 namespace and registers it with
// reg. Passing prometheus.DefaultRegisterer exposes them through Handler;
// tests pass a fresh prometheus.NewRegistry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency by method and route.", Buckets: httpBuckets,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),

		SearchQueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "search", Name: "queries_total",
			Help: "Search queries by outcome: hit, zero_result or error.",
		}, []string{"result_type"}),
		SearchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "latency_seconds",
			Help: "Search latency split by whether the cache answered.", Buckets: searchBuckets,
		}, []string{"cache_status"}),
		SearchResultsCount: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "search", Name: "results_returned",
			Help: "Results returned per search.", Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}),

		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Searches answered from the result cache.",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Searches the result cache could not answer.",
		}),

		CorpusDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "corpus", Name: "documents",
			Help: "Documents in the ranked corpus.",
		}),
		CorpusTerms: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "corpus", Name: "terms",
			Help: "Distinct terms in the inverted index.",
		}),
		CorpusAvgDocLength: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "corpus", Name: "avg_document_length",
			Help: "Mean document length in tokens (avgdl).",
		}),
		CorpusLoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "corpus", Name: "build_duration_seconds",
			Help: "Time spent loading the corpus and precomputing rarity weights.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),

		AnalyticsEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "events_total",
			Help: "Search analytics events by outcome: published, dropped or consumed.",
		}, []string{"outcome"}),
		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),
	}
}

// ObserveCorpus records the shape of a freshly built corpus.
func (m *Metrics) ObserveCorpus(documents, terms int, avgDocLength float64, seconds float64) {
	m.CorpusDocuments.Set(float64(documents))
	m.CorpusTerms.Set(float64(terms))
	m.CorpusAvgDocLength.Set(avgDocLength)
	m.CorpusLoadDuration.Observe(seconds)
}

// Handler returns the Prometheus scrape HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves metrics from a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
