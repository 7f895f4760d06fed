package httpserv

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stagegate/stagegate/internal/metrics"
	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/deliverable"
	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
)

func newTestServer(t *testing.T) (*Server, *events.MemoryBus, *artifact.MemStore) {
	t.Helper()
	bus := events.NewMemoryBus(0)
	store := artifact.NewMemStore()
	v := verify.New(deliverable.Default(), store)
	return New(bus, v, metrics.New("stagegate"), nil), bus, store
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestEventsEndpoint(t *testing.T) {
	s, bus, _ := newTestServer(t)
	bus.Publish(events.NewEvent(events.EventStageInvoke, "Guardrail Agent", nil))
	bus.Publish(events.NewEvent(events.EventStagePassed, "Guardrail Agent", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/events", nil))
	var got []events.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("events = %d, want 2", len(got))
	}
}

func TestEventsEndpointBadSince(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/events?since=yesterday", nil))
	if rec.Code != 400 {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, bus, store := newTestServer(t)
	store.Write("/guardrail_assessment.md", "## Overall Assessment\nStatus: ok\n## Contextual Guardrails\n")
	bus.Publish(events.NewEvent(events.EventStageRetry, "Impact Analysis Agent", nil))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["retries"] != float64(1) {
		t.Errorf("retries = %v", body["retries"])
	}

	producers := body["producers"].(map[string]any)
	guardrail := producers["Guardrail Agent"].(map[string]any)
	if guardrail["passed"] != true {
		t.Errorf("guardrail status = %v", guardrail)
	}
	impact := producers["Impact Analysis Agent"].(map[string]any)
	if impact["passed"] != false {
		t.Errorf("impact status = %v", impact)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
}
