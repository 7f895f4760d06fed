package controller

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/deliverable"
	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
)

const guardrailDoc = `# Guardrail Assessment

## Overall Assessment
Status: Approved

## Contextual Guardrails
1. No secrets in output
`

// testHarness wires a controller over an in-memory store with a scripted
// invoker. passOn sets the invocation on which the invoker finally writes
// a valid deliverable; 0 means it never does.
type testHarness struct {
	store        *artifact.MemStore
	controller   *Controller
	bus          *events.MemoryBus
	invocations  int
	instructions []string
}

func newHarness(t *testing.T, passOn int, opts ...Option) *testHarness {
	t.Helper()
	h := &testHarness{
		store: artifact.NewMemStore(),
		bus:   events.NewMemoryBus(0),
	}
	invoker := InvokerFunc(func(ctx context.Context, producer, instruction string) (string, error) {
		h.invocations++
		h.instructions = append(h.instructions, instruction)
		if passOn > 0 && h.invocations >= passOn {
			h.store.Write("/guardrail_assessment.md", guardrailDoc)
		}
		return "ok", nil
	})
	v := verify.New(deliverable.Default(), h.store)
	opts = append(opts, WithBus(h.bus))
	h.controller = New(v, invoker, opts...)
	return h
}

func TestRunPassFirstAttempt(t *testing.T) {
	h := newHarness(t, 1)

	outcome, err := h.controller.Run(context.Background(), "Guardrail Agent", "Assess the request")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StatePassed {
		t.Errorf("state = %s, want passed", outcome.State)
	}
	// A first-attempt pass must cost exactly one invocation.
	if h.invocations != 1 {
		t.Errorf("invocations = %d, want 1", h.invocations)
	}
	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", outcome.Attempts)
	}
}

func TestRunPassAfterRetry(t *testing.T) {
	h := newHarness(t, 2)

	outcome, err := h.controller.Run(context.Background(), "Guardrail Agent", "Assess the request")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StatePassed {
		t.Errorf("state = %s, want passed", outcome.State)
	}
	if h.invocations != 2 {
		t.Errorf("invocations = %d, want 2", h.invocations)
	}
	if outcome.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", outcome.Attempts)
	}
}

func TestRunHaltsAtBudget(t *testing.T) {
	h := newHarness(t, 0)

	outcome, err := h.controller.Run(context.Background(), "Guardrail Agent", "Assess the request")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StateHalted {
		t.Errorf("state = %s, want halted", outcome.State)
	}
	// Never more than the budget, counting the first invocation.
	if h.invocations != DefaultBudget {
		t.Errorf("invocations = %d, want %d", h.invocations, DefaultBudget)
	}
	if outcome.Attempts != DefaultBudget {
		t.Errorf("attempts = %d, want %d", outcome.Attempts, DefaultBudget)
	}
}

// The requester-facing halt message names the stage only; internal
// producer names, artifact paths, and diagnostics stay in logs.
func TestHaltMessageSanitized(t *testing.T) {
	h := newHarness(t, 0)

	outcome, err := h.controller.Run(context.Background(), "Guardrail Agent", "Assess the request")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(outcome.UserMessage, "guardrail assessment") {
		t.Errorf("user message should name the stage: %q", outcome.UserMessage)
	}
	for _, leak := range []string{"Guardrail Agent", "guardrail_assessment.md", "/", "QC"} {
		if strings.Contains(outcome.UserMessage, leak) {
			t.Errorf("user message leaks %q: %q", leak, outcome.UserMessage)
		}
	}
	if !strings.Contains(outcome.InternalMessage, "/guardrail_assessment.md") {
		t.Errorf("internal message should carry full diagnostics: %q", outcome.InternalMessage)
	}
}

func TestRetryInstructionCarriesCorrections(t *testing.T) {
	h := newHarness(t, 0, WithBudget(2))

	_, err := h.controller.Run(context.Background(), "Guardrail Agent", "Assess the request")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(h.instructions) != 2 {
		t.Fatalf("instructions = %d, want 2", len(h.instructions))
	}
	if h.instructions[0] != "Assess the request" {
		t.Errorf("first instruction = %q", h.instructions[0])
	}
	second := h.instructions[1]
	if !strings.HasPrefix(second, "Assess the request") {
		t.Errorf("retry should restate the original task: %q", second)
	}
	if !strings.Contains(second, "/guardrail_assessment.md") {
		t.Errorf("retry should name the missing deliverable: %q", second)
	}
}

func TestRunCustomBudget(t *testing.T) {
	h := newHarness(t, 0, WithBudget(5))

	outcome, err := h.controller.Run(context.Background(), "Guardrail Agent", "x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.invocations != 5 {
		t.Errorf("invocations = %d, want 5", h.invocations)
	}
	if outcome.State != StateHalted {
		t.Errorf("state = %s, want halted", outcome.State)
	}
}

func TestRunUnknownProducer(t *testing.T) {
	h := newHarness(t, 1)

	_, err := h.controller.Run(context.Background(), "Invalid Agent", "x")
	if !errors.Is(err, deliverable.ErrUnknownProducer) {
		t.Fatalf("err = %v, want ErrUnknownProducer", err)
	}
	// Nothing should have been invoked for an unregistered producer.
	if h.invocations != 0 {
		t.Errorf("invocations = %d, want 0", h.invocations)
	}
}

func TestRunInvokerError(t *testing.T) {
	store := artifact.NewMemStore()
	v := verify.New(deliverable.Default(), store)
	boom := errors.New("agent runtime unreachable")
	c := New(v, InvokerFunc(func(context.Context, string, string) (string, error) {
		return "", boom
	}))

	_, err := c.Run(context.Background(), "Guardrail Agent", "x")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped invoker error", err)
	}
}

func TestRunContextCancelled(t *testing.T) {
	h := newHarness(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := h.controller.Run(ctx, "Guardrail Agent", "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if h.invocations != 0 {
		t.Errorf("invocations = %d, want 0 after pre-cancelled context", h.invocations)
	}
	if outcome.State != StateHalted {
		t.Errorf("state = %v, want halted", outcome.State)
	}
	if !strings.Contains(outcome.HaltReason, "cancelled") {
		t.Errorf("halt reason %q does not mention cancellation", outcome.HaltReason)
	}
	if !strings.Contains(outcome.UserMessage, "guardrail assessment") {
		t.Errorf("user message %q does not name the stage", outcome.UserMessage)
	}
}

func TestRunPublishesLifecycleEvents(t *testing.T) {
	h := newHarness(t, 0, WithBudget(2))

	_, err := h.controller.Run(context.Background(), "Guardrail Agent", "x")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var types []events.EventType
	for _, ev := range h.bus.History(time.Time{}) {
		types = append(types, ev.Type)
	}
	want := []events.EventType{
		events.EventStageInvoke,
		events.EventVerifyStart,
		events.EventVerifyResult,
		events.EventStageRetry,
		events.EventStageInvoke,
		events.EventVerifyStart,
		events.EventVerifyResult,
		events.EventStageHalted,
	}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateInvoking:  "invoking",
		StateVerifying: "verifying",
		StateRetrying:  "retrying",
		StatePassed:    "passed",
		StateHalted:    "halted",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
