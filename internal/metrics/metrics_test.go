package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetCounters(t *testing.T) {
	s := New("stagegate")

	s.JobsTotal.WithLabelValues("passed").Inc()
	s.JobsTotal.WithLabelValues("passed").Inc()
	s.JobsTotal.WithLabelValues("halted").Inc()
	s.Retries.Inc()
	s.Verifications.WithLabelValues("fail").Inc()

	if got := testutil.ToFloat64(s.JobsTotal.WithLabelValues("passed")); got != 2 {
		t.Errorf("jobs_total{status=passed} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.JobsTotal.WithLabelValues("halted")); got != 1 {
		t.Errorf("jobs_total{status=halted} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.Retries); got != 1 {
		t.Errorf("retries_total = %v, want 1", got)
	}
}

func TestIsolatedRegistries(t *testing.T) {
	a := New("stagegate")
	b := New("stagegate")

	a.NATSProcessed.Inc()
	if got := testutil.ToFloat64(b.NATSProcessed); got != 0 {
		t.Errorf("second set saw %v increments, want 0", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	s := New("stagegate")
	s.JobsTotal.WithLabelValues("passed").Inc()
	s.JobDuration.Observe(1.2)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	s.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "stagegate_jobs_total") {
		t.Errorf("missing jobs_total in output:\n%s", body)
	}
	if !strings.Contains(body, "stagegate_job_duration_seconds_bucket") {
		t.Errorf("missing duration histogram in output")
	}
}
