package controller

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecInvoker runs an external command for each producer invocation. The
// producer name and instruction are passed through the environment as
// STAGEGATE_PRODUCER and STAGEGATE_INSTRUCTION; the command is expected
// to write its deliverables into the artifact store before exiting.
type ExecInvoker struct {
	// Command is the program plus fixed arguments, e.g.
	// ["./run-agent.sh"] or ["python3", "agent.py"].
	Command []string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Env holds extra KEY=VALUE pairs appended to the inherited
	// environment.
	Env []string
}

func (e *ExecInvoker) Invoke(ctx context.Context, producer, instruction string) (string, error) {
	if len(e.Command) == 0 {
		return "", fmt.Errorf("exec invoker: no command configured")
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.Env = append(cmd.Env,
		"STAGEGATE_PRODUCER="+producer,
		"STAGEGATE_INSTRUCTION="+instruction,
	)
	cmd.Stdin = strings.NewReader(instruction)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return stdout.String(), fmt.Errorf("run %s: %w: %s",
			e.Command[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
