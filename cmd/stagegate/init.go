package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigYAML = `# stagegate runtime configuration.
log_level: info
budget: 3

# Artifact store: where producers write their deliverables.
store:
  backend: dir
  path: .

# Uncomment to replace the built-in producer registry.
# registry_path: .stagegate/registry.yaml

nats:
  url: nats://127.0.0.1:4222
  subject: stagegate.jobs
  result_subject: stagegate.results
  queue: stagegate

# Uncomment to stream events to Redis.
# redis:
#   addr: 127.0.0.1:6379
#   stream: stagegate:events
#   max_len: 10000

http:
  addr: 127.0.0.1:8470

# Uncomment so ` + "`serve`" + ` can run stage jobs (invoke producers itself).
# invoker:
#   command: ./run-producer.sh
#   dir: .

# Halt notifications. Credentials support ${VAR} interpolation.
# notify:
#   github:
#     token: ${GITHUB_TOKEN}
#     repo: team/orchestrator
#     labels: [stagegate-halt]
#   webhook:
#     url: https://hooks.internal/stagegate
#     allowed_domains: [hooks.internal]
`

const sampleRegistryYAML = `# Producer registry: which artifacts each producer must create.
producers:
  Report Agent:
    paths:
      - /report.md
    description: "Analysis report"
    content_rules:
      /report.md:
        - "## Summary"
        - "## Findings"
    stage: report generation
    prereqs:
      - /request.md
    prereq_description: "Request file describing the analysis"

ownership:
  /request.md: orchestrator
  /report.md: Report Agent
`

const sampleWorkflowYAML = `apiVersion: stagegate/v1
kind: Workflow
name: standard-build
budget: 3
stages:
  - producer: Guardrail Agent
    instruction: "Assess the user request against security and policy guardrails."
  - producer: Impact Analysis Agent
    instruction: "Produce the impact assessment with a file-by-file implementation plan."
  - producer: Workflow Spec Agent
    instruction: "Write the workflow-level specification files."
  - producer: Agent Spec Agent
    instruction: "Write per-agent specification files under /THE_CAST/."
  - producer: Multi-Agent Compiler Agent
    instruction: "Compile the workflow definition."
`

// handleInit implements `stagegate init`: scaffolds the .stagegate
// directory with a config, a sample registry, and a sample workflow.
func handleInit(args []string) error {
	if err := os.MkdirAll(".stagegate", 0755); err != nil {
		return fmt.Errorf("create .stagegate: %w", err)
	}

	files := map[string]string{
		filepath.Join(".stagegate", "config.yaml"):   defaultConfigYAML,
		filepath.Join(".stagegate", "registry.yaml"): sampleRegistryYAML,
		"workflow.yaml":                              sampleWorkflowYAML,
	}

	for path, content := range files {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("skipping %s (already exists)\n", path)
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("created %s\n", path)
	}

	fmt.Println("\nEdit workflow.yaml, then run:")
	fmt.Println("  stagegate run workflow.yaml --invoke <producer-command>")
	return nil
}
