package native

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hupe1980/agentcore/tool"
)

const defaultCommandTimeout = 120 * time.Second

// NewExecuteCommandTool returns the shell command execution tool. Commands
// run through the system shell in the workspace directory with a timeout.
func NewExecuteCommandTool() tool.Tool {
	return tool.NewFunctionTool(
		"execute_command",
		"Execute a shell command and return its output. Commands run in the working directory "+
			"with a timeout. When you need to execute a CLI command, you must provide a clear "+
			"explanation of what the command does. Prefer to execute complex CLI commands over "+
			"creating executable scripts, since they are more flexible and easier to run.\n\n"+
			`Example: { "command": "python -m pytest tests/ -v" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The shell command to execute",
				},
				"timeout": map[string]any{
					"type":        "integer",
					"description": "Timeout in seconds. Default: 120.",
				},
			},
			"required":             []string{"command"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *tool.Context) tool.Result {
			command, _ := params["command"].(string)

			timeout := defaultCommandTimeout
			if v, ok := params["timeout"].(float64); ok && v > 0 {
				timeout = time.Duration(v) * time.Second
			}

			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(runCtx, "sh", "-c", command)
			cmd.Dir = tc.WorkingDirectory

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			err := cmd.Run()
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return tool.Failure("Command timed out after %ds", int(timeout.Seconds()))
			}

			var parts []string
			if stdout.Len() > 0 {
				parts = append(parts, stdout.String())
			}
			if stderr.Len() > 0 {
				parts = append(parts, fmt.Sprintf("STDERR:\n%s", stderr.String()))
			}
			output := truncateOutput(strings.TrimSpace(strings.Join(parts, "\n")))

			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return tool.Result{
						Output:  output,
						Error:   fmt.Sprintf("Command exited with code %d", exitErr.ExitCode()),
						IsError: true,
					}
				}
				return tool.Failure("Error executing command: %v", err)
			}

			if output == "" {
				output = "(no output)"
			}
			return tool.Success(output)
		},
	)
}
