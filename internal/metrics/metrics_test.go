package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, reg prometheus.Gatherer, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func TestCollector_RecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest(http.MethodGet, "/users/:id", http.StatusOK, 20*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/users/:id", http.StatusOK, 30*time.Millisecond)
	c.RecordRequest(http.MethodGet, "/users/:id", http.StatusNotFound, time.Millisecond)

	requests := findFamily(t, reg, "user_service_http_requests_total")
	require.Len(t, requests.GetMetric(), 2)
	for _, m := range requests.GetMetric() {
		l := labels(m)
		assert.Equal(t, "GET", l["method"])
		assert.Equal(t, "/users/:id", l["route"])
		switch l["status"] {
		case "200":
			assert.Equal(t, 2.0, m.GetCounter().GetValue())
		case "404":
			assert.Equal(t, 1.0, m.GetCounter().GetValue())
		default:
			t.Errorf("unexpected status label %q", l["status"])
		}
	}

	latency := findFamily(t, reg, "user_service_http_request_duration_seconds")
	require.Len(t, latency.GetMetric(), 1)
	assert.Equal(t, uint64(3), latency.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestCollector_RecordConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordConflict("create")
	c.RecordConflict("update")
	c.RecordConflict("create")

	conflicts := findFamily(t, reg, "user_service_user_conflicts_total")
	got := map[string]float64{}
	for _, m := range conflicts.GetMetric() {
		got[labels(m)["operation"]] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"create": 2, "update": 1}, got)
}

func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	NewCollector(reg)

	findFamily(t, reg, "go_goroutines")
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordConflict("create")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `user_service_user_conflicts_total{operation="create"} 1`)
}
