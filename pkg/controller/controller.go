// Package controller drives the invoke-verify-retry loop for a single
// producer: it invokes the producer, verifies its deliverables, and
// re-invokes with a corrective instruction until the deliverables pass
// or the attempt budget is exhausted.
package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
)

// DefaultBudget is the maximum number of producer invocations per run,
// counting the first invocation.
const DefaultBudget = 3

// Invoker executes one producer invocation and returns its raw output.
// The output is informational; success is judged solely by verifying
// the deliverables the producer left in the artifact store.
type Invoker interface {
	Invoke(ctx context.Context, producer, instruction string) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, producer, instruction string) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, producer, instruction string) (string, error) {
	return f(ctx, producer, instruction)
}

// State identifies where a run is in its lifecycle.
type State int

const (
	StateInvoking State = iota
	StateVerifying
	StateRetrying
	StatePassed
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateInvoking:
		return "invoking"
	case StateVerifying:
		return "verifying"
	case StateRetrying:
		return "retrying"
	case StatePassed:
		return "passed"
	case StateHalted:
		return "halted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the terminal result of a controller run.
type Outcome struct {
	State    State  `json:"state"`
	Producer string `json:"producer"`
	// Attempts counts producer invocations, including the first.
	Attempts   int           `json:"attempts"`
	LastResult verify.Result `json:"last_result"`
	// UserMessage is safe to show to the requester. On a halt it names
	// only the workflow stage, never internal producers, paths, or tools.
	UserMessage string `json:"user_message"`
	// InternalMessage carries the full diagnostic report for logs and
	// operators. Never surface it to the requester.
	InternalMessage string `json:"internal_message,omitempty"`
	HaltReason      string `json:"halt_reason,omitempty"`
}

// Controller runs producers under a verification-gated retry budget.
type Controller struct {
	verifier *verify.Verifier
	invoker  Invoker
	budget   int
	logger   *zap.Logger
	bus      events.Bus
}

// Option configures a Controller.
type Option func(*Controller)

// WithBudget sets the maximum invocations per run. Values below 1 are
// ignored.
func WithBudget(n int) Option {
	return func(c *Controller) {
		if n >= 1 {
			c.budget = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBus sets the event bus runs publish to.
func WithBus(bus events.Bus) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

// New creates a Controller with the default budget of 3 invocations.
func New(verifier *verify.Verifier, invoker Invoker, opts ...Option) *Controller {
	c := &Controller{
		verifier: verifier,
		invoker:  invoker,
		budget:   DefaultBudget,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Budget returns the configured invocation budget.
func (c *Controller) Budget() int {
	return c.budget
}

// Run drives one producer to a terminal state. A producer that passes
// verification on the first attempt is invoked exactly once; a producer
// that never passes is invoked at most Budget() times and then halted.
//
// The returned error is reserved for faults outside the producer's
// control: an unknown producer, an unreachable artifact store, an
// invoker transport failure, or context cancellation. Verification
// failures are not errors; they drive retries and, ultimately, a
// StateHalted outcome.
func (c *Controller) Run(ctx context.Context, producer, instruction string) (Outcome, error) {
	spec, err := c.verifier.Registry().Lookup(producer)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Producer: producer}
	current := instruction

	for attempt := 1; attempt <= c.budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return c.cancelled(outcome, spec.Stage, err), err
		}
		outcome.Attempts = attempt
		outcome.State = StateInvoking

		c.logger.Info("invoking producer",
			zap.String("producer", producer),
			zap.Int("attempt", attempt),
			zap.Int("budget", c.budget))
		c.publish(events.EventStageInvoke, producer, attempt, nil)

		output, err := c.invoker.Invoke(ctx, producer, current)
		if err != nil {
			wrapped := fmt.Errorf("invoke %s (attempt %d): %w", producer, attempt, err)
			if ctx.Err() != nil {
				return c.cancelled(outcome, spec.Stage, err), wrapped
			}
			return outcome, wrapped
		}
		if output != "" {
			c.logger.Debug("producer output",
				zap.String("producer", producer),
				zap.String("output", output))
		}

		outcome.State = StateVerifying
		c.publish(events.EventVerifyStart, producer, attempt, nil)
		result, err := c.verifier.Verify(producer)
		if err != nil {
			return outcome, err
		}
		outcome.LastResult = result
		c.publish(events.EventVerifyResult, producer, attempt, result)

		if result.Passed {
			outcome.State = StatePassed
			outcome.UserMessage = result.Message
			c.logger.Info("producer passed verification",
				zap.String("producer", producer),
				zap.Int("attempts", attempt))
			c.publish(events.EventStagePassed, producer, attempt, nil)
			return outcome, nil
		}

		c.logger.Warn("verification failed",
			zap.String("producer", producer),
			zap.Int("attempt", attempt),
			zap.Strings("missing", result.MissingPaths()),
			zap.Int("content_failures", len(result.ContentFailures)))

		if attempt < c.budget {
			outcome.State = StateRetrying
			c.publish(events.EventStageRetry, producer, attempt, nil)
			// Each retry restates the original task plus everything the
			// last verification found wanting.
			current = instruction + "\n\n" + result.RevisionPrompt()
		}
	}

	outcome.State = StateHalted
	outcome.HaltReason = fmt.Sprintf("verification failed after %d attempts", outcome.Attempts)
	outcome.InternalMessage = outcome.LastResult.Message
	outcome.UserMessage = haltMessage(spec.Stage)
	c.logger.Error("halting after exhausted retry budget",
		zap.String("producer", producer),
		zap.Int("attempts", outcome.Attempts))
	c.publish(events.EventStageHalted, producer, outcome.Attempts, outcome.HaltReason)
	return outcome, nil
}

// cancelled marks an outcome halted without burning any remaining
// budget. The user message names only the stage label.
func (c *Controller) cancelled(outcome Outcome, stage string, cause error) Outcome {
	outcome.State = StateHalted
	outcome.HaltReason = fmt.Sprintf("cancelled: %v", cause)
	outcome.UserMessage = fmt.Sprintf("The %s stage was cancelled before it could be completed.", stage)
	c.logger.Warn("run cancelled",
		zap.String("producer", outcome.Producer),
		zap.Int("attempts", outcome.Attempts),
		zap.Error(cause))
	c.publish(events.EventStageHalted, outcome.Producer, outcome.Attempts, outcome.HaltReason)
	return outcome
}

// haltMessage builds the requester-facing halt text. It names only the
// stage label so internal producer names, paths, and tooling never leak.
func haltMessage(stage string) string {
	return fmt.Sprintf("The %s stage could not be completed after multiple attempts. Please revise your original request and try again.", stage)
}

func (c *Controller) publish(typ events.EventType, producer string, attempt int, data any) {
	if c.bus == nil {
		return
	}
	ev := events.NewEvent(typ, producer, data)
	ev.Attempt = attempt
	c.bus.Publish(ev)
}
