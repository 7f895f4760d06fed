package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookNotifierPostsReport(t *testing.T) {
	var got HaltReport
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}

	report := HaltReport{
		Stage:    "guardrail assessment",
		Producer: "Guardrail Agent",
		Attempts: 3,
		Internal: "diagnostics",
		When:     time.Now(),
	}
	if err := n.NotifyHalt(context.Background(), report); err != nil {
		t.Fatalf("NotifyHalt: %v", err)
	}
	if got.Stage != report.Stage || got.Attempts != 3 {
		t.Errorf("server received %+v", got)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewWebhookNotifier: %v", err)
	}
	if err := n.NotifyHalt(context.Background(), HaltReport{}); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestCheckAllowedDomain(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		allowed []string
		wantErr bool
	}{
		{"empty list allows all", "https://example.com/hook", nil, false},
		{"allowed host", "https://hooks.internal/x", []string{"hooks.internal"}, false},
		{"denied host", "https://evil.example/x", []string{"hooks.internal"}, true},
		{"host match ignores port", "https://hooks.internal:8443/x", []string{"hooks.internal"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAllowedDomain(tt.url, tt.allowed)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkAllowedDomain(%q) err = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewWebhookNotifierRejectsDisallowedDomain(t *testing.T) {
	_, err := NewWebhookNotifier("https://elsewhere.example/x", []string{"hooks.internal"})
	if err == nil {
		t.Fatal("expected error for disallowed domain")
	}
}

func TestNewIssueNotifierValidation(t *testing.T) {
	if _, err := NewIssueNotifier("", "owner/repo", nil); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := NewIssueNotifier("tok", "not-a-repo", nil); err == nil {
		t.Error("expected error for malformed repo")
	}
	if _, err := NewIssueNotifier("tok", "owner/repo", []string{"halt"}); err != nil {
		t.Errorf("valid config: %v", err)
	}
}
