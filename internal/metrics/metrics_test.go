package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveAcquisition("exact-range", OutcomeSuccess)
	m.ObserveAcquisition("exact-range", OutcomeSuccess)
	m.ObserveProvider("yahoo", OutcomeError)
	m.SetBreakerState("yahoo", 2)
	m.ObserveStudy(OutcomeSuccess, 150*time.Millisecond)
	m.IncBootstrapGroups()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AcquisitionAttempts.WithLabelValues("exact-range", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderRequests.WithLabelValues("yahoo", OutcomeError)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("yahoo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StudyRuns.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BootstrapGroups))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAcquisition("x", OutcomeEmpty)
		m.ObserveProvider("x", OutcomeEmpty)
		m.SetBreakerState("x", 0)
		m.ObserveStudy(OutcomeError, time.Second)
		m.IncBootstrapGroups()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveStudy(OutcomeSuccess, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventlens_study_runs_total")
}
