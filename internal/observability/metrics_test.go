// v0
// internal/observability/metrics_test.go

package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.Tick()
	m.Tick()
	m.Published()
	m.PublishError()
	m.Skipped()

	if got := testutil.ToFloat64(m.ticksTotal); got != 2 {
		t.Fatalf("ticks=%f want 2", got)
	}
	if got := testutil.ToFloat64(m.publishedTotal); got != 1 {
		t.Fatalf("published=%f want 1", got)
	}
	if got := testutil.ToFloat64(m.publishErrorsTotal); got != 1 {
		t.Fatalf("errors=%f want 1", got)
	}
	if got := testutil.ToFloat64(m.skippedTotal); got != 1 {
		t.Fatalf("skipped=%f want 1", got)
	}
}

func TestConnectedGauge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetConnected(true)
	if got := testutil.ToFloat64(m.brokerConnected); got != 1 {
		t.Fatalf("gauge=%f want 1", got)
	}
	m.SetConnected(false)
	if got := testutil.ToFloat64(m.brokerConnected); got != 0 {
		t.Fatalf("gauge=%f want 0", got)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.Tick()
	m.Published()
	m.PublishError()
	m.Skipped()
	m.SetConnected(true)

	h := m.WrapHandler("/x", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestWrapHandlerCountsByStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	h := m.WrapHandler("/api/status", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	}

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/status", "200")); got != 3 {
		t.Fatalf("requests=%f want 3", got)
	}
}
