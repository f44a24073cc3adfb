package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestRecordSelection(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	m.RecordSelection("update", "locked")
	m.RecordSelection("update", "locked")
	m.RecordSelection("create", "created")

	out := scrape(t, m)
	for _, want := range []string{
		`schoollunch_selection_operations_total{operation="update",outcome="locked"} 2`,
		`schoollunch_selection_operations_total{operation="create",outcome="created"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)
	m.ObserveRequest("GET", "GET /api/kids", 200, 15*time.Millisecond)

	want := `schoollunch_http_request_duration_seconds_count{method="GET",route="GET /api/kids",status="200"} 1`
	if out := scrape(t, m); !strings.Contains(out, want) {
		t.Errorf("metrics output missing %q:\n%s", want, out)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordSelection("create", "created")
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
}
