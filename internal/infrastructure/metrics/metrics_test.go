package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSearch(t *testing.T) {
	tests := []struct {
		name    string
		hits    int
		err     error
		outcome string
	}{
		{name: "hits", hits: 3, outcome: OutcomeSuccess},
		{name: "no hits", hits: 0, outcome: OutcomeEmpty},
		{name: "failure", hits: 0, err: errors.New("boom"), outcome: OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(prometheus.NewRegistry())

			r.RecordSearch("keyword", "mock", 15*time.Millisecond, tt.hits, tt.err)

			assert.Equal(t, 1.0, testutil.ToFloat64(r.searches.WithLabelValues("keyword", "mock", tt.outcome)))
			assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
		})
	}
}

func TestRecordSearch_SkipsHitsOnError(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordSearch("vector", "algolia", time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, 0, testutil.CollectAndCount(r.hits))
}

func TestRecordCache(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordCache(true)
	r.RecordCache(false)
	r.RecordCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheEvents.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheEvents.WithLabelValues("miss")))
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) })
}
