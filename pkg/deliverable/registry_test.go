package deliverable

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultLookup(t *testing.T) {
	reg := Default()

	spec, err := reg.Lookup("Guardrail Agent")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(spec.Paths) != 1 || spec.Paths[0] != "/guardrail_assessment.md" {
		t.Errorf("paths = %v", spec.Paths)
	}
	if len(spec.ContentRules["/guardrail_assessment.md"]) != 3 {
		t.Errorf("content rules = %v", spec.ContentRules)
	}
	if spec.Stage == "" {
		t.Error("expected a stage label")
	}
}

func TestLookupUnknownProducer(t *testing.T) {
	reg := Default()

	_, err := reg.Lookup("Nonexistent Agent")
	if !errors.Is(err, ErrUnknownProducer) {
		t.Fatalf("err = %v, want ErrUnknownProducer", err)
	}
	// The error should name the registered producers so a misconfigured
	// caller can correct itself.
	if !strings.Contains(err.Error(), "Guardrail Agent") {
		t.Errorf("error should list registered producers: %v", err)
	}
}

func TestProducersSorted(t *testing.T) {
	reg := Default()

	names := reg.Producers()
	if len(names) != 5 {
		t.Fatalf("producers = %v, want 5 entries", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("producers not sorted: %v", names)
		}
	}
}

func TestOwner(t *testing.T) {
	reg := Default()

	tests := []struct {
		path string
		want string
	}{
		{"/user_request.md", OwnerOrchestrator},
		{"/guardrail_assessment.md", "Guardrail Agent"},
		{"/THE_CAST/", "Agent Spec Agent"},
		{"/unclaimed.md", ""},
	}
	for _, tt := range tests {
		if got := reg.Owner(tt.path); got != tt.want {
			t.Errorf("Owner(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDirectoryMarkerPaths(t *testing.T) {
	reg := Default()

	spec, err := reg.Lookup("Agent Spec Agent")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if spec.Paths[0] != "/THE_CAST/" {
		t.Errorf("expected directory marker path, got %q", spec.Paths[0])
	}
}
