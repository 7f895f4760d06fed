package workflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stagegate/stagegate/internal/notify"
	"github.com/stagegate/stagegate/pkg/artifact"
	"github.com/stagegate/stagegate/pkg/controller"
	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
)

// Runner executes workflow definitions stage by stage. Each stage is
// gated by a prerequisite check, then driven through the controller's
// invoke-verify-retry loop. The first halted stage stops the workflow.
type Runner struct {
	verifier  *verify.Verifier
	invoker   controller.Invoker
	store     artifact.Store
	logger    *zap.Logger
	bus       events.Bus
	notifiers []notify.Notifier
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithBus sets the event bus.
func WithBus(bus events.Bus) RunnerOption {
	return func(r *Runner) {
		r.bus = bus
	}
}

// WithNotifiers sets the channels halted stages are reported to.
func WithNotifiers(notifiers ...notify.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifiers = notifiers
	}
}

// NewRunner creates a Runner. The store must be the same one the
// verifier reads so stage snapshots see what verification sees.
func NewRunner(verifier *verify.Verifier, invoker controller.Invoker, store artifact.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		verifier: verifier,
		invoker:  invoker,
		store:    store,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StageResult records what happened to one stage.
type StageResult struct {
	Producer string                 `json:"producer"`
	Precheck *verify.PrecheckResult `json:"precheck,omitempty"`
	Outcome  controller.Outcome     `json:"outcome"`
	Changes  []Change               `json:"changes,omitempty"`
}

// RunResult is the outcome of a full workflow run.
type RunResult struct {
	Workflow string `json:"workflow"`
	Halted   bool   `json:"halted"`
	// UserMessage is set when the workflow halted; it is safe to show
	// to the requester.
	UserMessage string        `json:"user_message,omitempty"`
	Stages      []StageResult `json:"stages"`
}

// Run executes the definition's stages in order. A stage that fails its
// prerequisite check, or exhausts its retry budget, halts the workflow;
// completed stages keep their results. The returned error is reserved
// for infrastructure faults and cancellation.
func (r *Runner) Run(ctx context.Context, def Definition) (RunResult, error) {
	budget := def.Budget
	if budget <= 0 {
		budget = controller.DefaultBudget
	}

	result := RunResult{Workflow: def.Name}
	r.logger.Info("workflow starting",
		zap.String("workflow", def.Name),
		zap.Int("stages", len(def.Stages)),
		zap.Int("budget", budget))
	r.publish(events.NewEvent(events.EventWorkflowStart, "", def.Name))

	ctrl := controller.New(r.verifier, r.invoker,
		controller.WithBudget(budget),
		controller.WithLogger(r.logger),
		controller.WithBus(r.bus))

	for i, stage := range def.Stages {
		stageResult := StageResult{Producer: stage.Producer}

		if !stage.SkipPrecheck {
			pre, err := r.verifier.Precheck(stage.Producer)
			if err != nil {
				return result, fmt.Errorf("precheck stage %d (%s): %w", i, stage.Producer, err)
			}
			stageResult.Precheck = &pre
			r.publish(events.NewEvent(events.EventPrecheckResult, stage.Producer, pre))

			if !pre.Passed {
				r.logger.Error("stage blocked by missing prerequisites",
					zap.String("producer", stage.Producer),
					zap.Strings("missing", pre.MissingPaths()),
					zap.Strings("blockers", pre.Blockers))
				result.Stages = append(result.Stages, stageResult)
				result.Halted = true
				result.UserMessage = r.haltForPrereqs(stage.Producer)
				r.notifyHalt(ctx, def.Name, stage.Producer, 0, pre.Message)
				r.publish(events.NewEvent(events.EventWorkflowEnd, "", "halted"))
				return result, nil
			}
		}

		before, err := Capture(r.store)
		if err != nil {
			return result, err
		}

		outcome, err := ctrl.Run(ctx, stage.Producer, stage.Instruction)
		if err != nil {
			return result, err
		}
		stageResult.Outcome = outcome

		after, err := Capture(r.store)
		if err != nil {
			return result, err
		}
		stageResult.Changes = Diff(before, after)
		result.Stages = append(result.Stages, stageResult)

		if outcome.State == controller.StateHalted {
			result.Halted = true
			result.UserMessage = outcome.UserMessage
			r.notifyHalt(ctx, def.Name, stage.Producer, outcome.Attempts, outcome.InternalMessage)
			r.publish(events.NewEvent(events.EventWorkflowEnd, "", "halted"))
			return result, nil
		}
	}

	r.logger.Info("workflow completed", zap.String("workflow", def.Name))
	r.publish(events.NewEvent(events.EventWorkflowEnd, "", "completed"))
	return result, nil
}

// haltForPrereqs builds the requester-facing message for a stage that
// could not start. Like the retry-exhaustion halt, it names only the
// stage label.
func (r *Runner) haltForPrereqs(producer string) string {
	stage := producer
	if spec, err := r.verifier.Registry().Lookup(producer); err == nil {
		stage = spec.Stage
	}
	return fmt.Sprintf("The %s stage could not be started because earlier workflow steps are incomplete. Please revise your original request and try again.", stage)
}

func (r *Runner) notifyHalt(ctx context.Context, workflow, producer string, attempts int, internal string) {
	if len(r.notifiers) == 0 {
		return
	}

	stage := producer
	if spec, err := r.verifier.Registry().Lookup(producer); err == nil {
		stage = spec.Stage
	}
	report := notify.HaltReport{
		Workflow: workflow,
		Stage:    stage,
		Producer: producer,
		Attempts: attempts,
		Internal: internal,
		When:     time.Now(),
	}
	for _, n := range r.notifiers {
		if err := n.NotifyHalt(ctx, report); err != nil {
			r.logger.Warn("halt notification failed", zap.Error(err))
		}
	}
}

func (r *Runner) publish(ev events.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}
