package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/internal/notify"
	"github.com/stagegate/stagegate/pkg/controller"
	"github.com/stagegate/stagegate/pkg/events"
	"github.com/stagegate/stagegate/pkg/verify"
	"github.com/stagegate/stagegate/pkg/workflow"
)

// handleRun implements `stagegate run <workflow.yaml> [--param key=value]...
// [--invoke "cmd args"]`.
func handleRun(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stagegate run <workflow.yaml> [--param key=value]... [--invoke <command>]")
	}
	workflowPath := args[0]

	params := make(map[string]string)
	var invokeCmd []string
	for i := 1; i < len(args); i++ {
		switch {
		case args[i] == "--param" && i+1 < len(args):
			i++
			key, value, ok := strings.Cut(args[i], "=")
			if !ok {
				return fmt.Errorf("invalid --param %q (expected key=value)", args[i])
			}
			params[key] = value
		case strings.HasPrefix(args[i], "--param="):
			key, value, ok := strings.Cut(strings.TrimPrefix(args[i], "--param="), "=")
			if !ok {
				return fmt.Errorf("invalid --param %q (expected key=value)", args[i])
			}
			params[key] = value
		case args[i] == "--invoke" && i+1 < len(args):
			i++
			invokeCmd = strings.Fields(args[i])
		default:
			return fmt.Errorf("unknown argument %q", args[i])
		}
	}
	if len(invokeCmd) == 0 {
		return fmt.Errorf("--invoke is required: the command that runs each producer")
	}

	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	store, cleanup, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer cleanup()

	def, err := workflow.Load(workflowPath, params)
	if err != nil {
		return err
	}
	if def.Budget == 0 {
		def.Budget = cfg.Budget
	}
	if result := workflow.Validate(def, registry); !result.Valid() {
		return fmt.Errorf("%s", result.Error())
	}

	fmt.Printf("Workflow: %s (%d stages, budget %d)\n", def.Name, len(def.Stages), def.Budget)
	for i, stage := range def.Stages {
		fmt.Printf("  %d. %s\n", i+1, stage.Producer)
	}
	fmt.Println()

	bus := events.NewMemoryBus(cfg.History.MaxEntries)
	verifier := verify.New(registry, store)
	invoker := &controller.ExecInvoker{Command: invokeCmd}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}

	runner := workflow.NewRunner(verifier, invoker, store,
		workflow.WithLogger(logger),
		workflow.WithBus(bus),
		workflow.WithNotifiers(notifiers...))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, def)
	if err != nil {
		return err
	}

	for _, sr := range result.Stages {
		fmt.Printf("%s: %s (%d attempts)\n",
			sr.Producer, sr.Outcome.State, sr.Outcome.Attempts)
	}
	if result.Halted {
		fmt.Println()
		fmt.Println(result.UserMessage)
		return fmt.Errorf("workflow halted")
	}
	fmt.Println("\nWorkflow completed.")
	return nil
}

// buildNotifiers creates the configured halt notification channels.
func buildNotifiers(cfg config.Config) ([]notify.Notifier, error) {
	var notifiers []notify.Notifier

	if cfg.Notify.GitHub.Token != "" && cfg.Notify.GitHub.Repo != "" {
		n, err := notify.NewIssueNotifier(cfg.Notify.GitHub.Token, cfg.Notify.GitHub.Repo, cfg.Notify.GitHub.Labels)
		if err != nil {
			return nil, fmt.Errorf("github notifier: %w", err)
		}
		notifiers = append(notifiers, n)
	}

	if cfg.Notify.Webhook.URL != "" {
		n, err := notify.NewWebhookNotifier(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.AllowedDomains)
		if err != nil {
			return nil, fmt.Errorf("webhook notifier: %w", err)
		}
		notifiers = append(notifiers, n)
	}

	return notifiers, nil
}
