package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe("blurred", "text", 2, 120*time.Millisecond)
	m.Observe("blurred", "failsafe", 1, 40*time.Millisecond)
	m.Observe("no_plates", "", 0, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.results.WithLabelValues("blurred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.results.WithLabelValues("no_plates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stages.WithLabelValues("text")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.regions))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Observe("blurred", "text", 1, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe("decode_failed", "", 0, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `plate_redact_results_total{status="decode_failed"} 1`), body)
	assert.Contains(t, body, "plate_redact_duration_seconds_bucket")
}

func TestProcessCollector(t *testing.T) {
	c := newProcessCollector()
	if c.proc == nil {
		t.Skip("process info unavailable")
	}
	if _, err := c.proc.MemoryInfo(); err != nil {
		t.Skipf("memory info unavailable: %v", err)
	}

	m := New()
	n, err := testutil.GatherAndCount(m.Registry(), "memory_usage_megabytes")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "sampled at scrape time without Serve")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "memory_usage_megabytes")
}
