package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordMutation("add", 1)
	m.RecordPersistFailure()
	m.RecordFetch(OutcomeCache)
	m.RecordCacheWrite("static", nil)
	m.RecordPrecacheFailure()
	m.RecordGenerationDeleted("stale")
	m.RecordHTTP(http.MethodGet, 200, time.Millisecond)
}

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordMutation("add", 2)
	m.RecordMutation("add", 3)
	m.RecordFetch(OutcomeOffline)
	m.RecordCacheWrite("dynamic", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.storeMutations.WithLabelValues("add")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.transactions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchOutcomes.WithLabelValues(OutcomeOffline)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheWrites.WithLabelValues("dynamic", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordPrecacheFailure()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "spendwise_offline_precache_failures_total 1"))
}
