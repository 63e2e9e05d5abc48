// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (file access, shell commands, delegation
// requests) with schema validated arguments and consistent result handling.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentcore/internal/util"
)

// Tool is the interface every callable capability implements.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define proper JSON schema for parameters
//   - Handle errors by returning a failure Result rather than panicking
//   - Be safe for concurrent use
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool
	// does. It is exposed to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// SkipApproval reports whether calls to this tool bypass the user
	// approval prompt regardless of permission rules.
	SkipApproval() bool

	// AlwaysAvailable reports whether this tool is offered to every agent
	// even when the agent's allow-list would exclude it. Denied lists
	// still apply.
	AlwaysAvailable() bool

	// Execute runs the tool with already-parsed arguments. Failures are
	// reported through the Result, not an error return, so the model can
	// see and react to them.
	Execute(ctx context.Context, params map[string]any, tc *Context) Result
}

// Result is the outcome of a tool execution.
type Result struct {
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	IsError bool   `json:"is_error"`
}

// Success builds a successful Result carrying output.
func Success(output string) Result { return Result{Output: output} }

// Failure builds an error Result carrying the failure message.
func Failure(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...), IsError: true}
}

// Content returns what the model should see: the output on success, the
// error message on failure.
func (r Result) Content() string {
	if r.IsError {
		return r.Error
	}
	return r.Output
}

// Context carries per-call execution context into a tool.
type Context struct {
	SessionID        string
	AgentRunID       string
	AgentRole        string
	WorkingDirectory string

	// RequestUserInput lets interactive tools ask the user a question.
	// Nil when no interactive surface is attached.
	RequestUserInput func(ctx context.Context, prompt string, options []string) (string, error)
}

// ValidationError re-exports the shared schema validation error type.
type ValidationError = util.ValidationError
