// Package hook provides ordered, cancellable interception points around tool
// calls, model calls and delegation. Hooks registered at the same point run
// in ascending priority order; a cancelling hook stops the chain, and data
// replacements chain through to later hooks and into the aggregate result.
package hook

import "context"

// Point names a moment in the pipeline where hooks may run.
type Point string

const (
	BeforeToolCall   Point = "before_tool_call"
	AfterToolCall    Point = "after_tool_call"
	BeforeLLMCall    Point = "before_llm_call"
	AfterLLMCall     Point = "after_llm_call"
	MessageTransform Point = "message_transform"
	BeforeDelegation Point = "before_delegation"
	AfterDelegation  Point = "after_delegation"
)

// Context carries the situation a hook executes in. Data is mutable: a hook
// returning ModifiedData replaces it for all subsequent hooks in the run.
type Context struct {
	SessionID string
	AgentRole string
	Data      map[string]any
}

// Result is a hook's verdict. Cancelled stops the chain with Reason as the
// aggregate outcome; ModifiedData, when non-nil, replaces the context data.
type Result struct {
	ModifiedData map[string]any
	Cancelled    bool
	Reason       string
}

// Hook intercepts at a single point. Execute returning an error is logged by
// the registry and treated as a no-op: it neither cancels nor modifies.
type Hook interface {
	Name() string
	Point() Point
	// Priority orders hooks at the same point; lower runs first.
	Priority() int
	Execute(ctx context.Context, hctx *Context) (Result, error)
}

// FuncHook adapts a plain function to the Hook interface.
type FuncHook struct {
	HookName     string
	HookPoint    Point
	HookPriority int
	Fn           func(ctx context.Context, hctx *Context) (Result, error)
}

// Name implements Hook.
func (h *FuncHook) Name() string { return h.HookName }

// Point implements Hook.
func (h *FuncHook) Point() Point { return h.HookPoint }

// Priority implements Hook.
func (h *FuncHook) Priority() int { return h.HookPriority }

// Execute implements Hook.
func (h *FuncHook) Execute(ctx context.Context, hctx *Context) (Result, error) {
	return h.Fn(ctx, hctx)
}
