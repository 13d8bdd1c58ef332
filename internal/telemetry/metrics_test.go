package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Valuation("capRate", true)
	m.Analysis(time.Millisecond, false)
	m.CollaboratorError("timeout")
	m.ScenarioOp("save", true)

	called := false
	h := m.WrapHandler("/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if !called {
		t.Fatalf("WrapHandler on nil metrics did not call through")
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.Valuation("pricePerBed", true)
	m.ScenarioOp("delete", false)
	m.Analysis(20*time.Millisecond, true)

	wrapped := m.WrapHandler("/api/drivers", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/drivers", nil))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`deal_engine_valuations_total{driver="pricePerBed",outcome="success"} 1`,
		`deal_engine_scenario_operations_total{op="delete",outcome="error"} 1`,
		`deal_engine_analyses_total{outcome="success"} 1`,
		`deal_engine_http_requests_total{route="/api/drivers",status="418"} 1`,
		`deal_engine_analysis_duration_seconds_count 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
