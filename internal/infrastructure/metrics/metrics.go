package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search outcomes
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Recorder exports search and cache metrics to Prometheus.
// It satisfies usecase.SearchRecorder.
type Recorder struct {
	searches    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	hits        *prometheus.HistogramVec
	cacheEvents *prometheus.CounterVec
}

// New creates a recorder and registers its collectors with reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmasearch_searches_total",
			Help: "Total searches by type, mode and outcome",
		}, []string{"type", "mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmasearch_search_duration_seconds",
			Help:    "Search latency by type and mode",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"type", "mode"}),
		hits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "farmasearch_search_hits",
			Help:    "Hits returned per search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"type"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "farmasearch_cache_events_total",
			Help: "Keyword result cache lookups by result",
		}, []string{"result"}),
	}

	reg.MustRegister(r.searches, r.duration, r.hits, r.cacheEvents)
	return r
}

// RecordSearch records one completed search
func (r *Recorder) RecordSearch(searchType, mode string, duration time.Duration, hits int, err error) {
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeError
	case hits == 0:
		outcome = OutcomeEmpty
	}

	r.searches.WithLabelValues(searchType, mode, outcome).Inc()
	r.duration.WithLabelValues(searchType, mode).Observe(duration.Seconds())
	if err == nil {
		r.hits.WithLabelValues(searchType).Observe(float64(hits))
	}
}

// RecordCache records a keyword cache hit or miss
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheEvents.WithLabelValues(result).Inc()
}
