package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, reg)

	m.RunsTotal.WithLabelValues("approved").Inc()
	m.RetriesTotal.Add(2)
	m.StageDuration.WithLabelValues("generation").Observe(0.2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`ewa_agent_runs_total{outcome="approved"} 1`,
		"ewa_agent_retries_total 2",
		`ewa_agent_stage_duration_seconds_count{stage="generation"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output:\n%s", want, body)
		}
	}
}
