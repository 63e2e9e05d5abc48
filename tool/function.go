package tool

import (
	"context"

	"github.com/hupe1980/agentcore/internal/util"
)

// FunctionTool adapts a plain Go function into a Tool. It validates model
// supplied arguments against the declared schema before invoking the
// function, so implementations can assume required fields are present and
// correctly typed.
//
// A FunctionTool has no internal mutable state after construction and is
// safe for concurrent use.
type FunctionTool struct {
	name            string
	description     string
	parameters      map[string]any
	skipApproval    bool
	alwaysAvailable bool
	fn              func(ctx context.Context, params map[string]any, tc *Context) Result
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	echo := NewFunctionTool(
//	  "echo",
//	  "Echo the input back",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "text": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"text"},
//	  },
//	  func(ctx context.Context, params map[string]any, tc *Context) Result {
//	    return Success(params["text"].(string))
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, params map[string]any, tc *Context) Result,
	optFns ...func(t *FunctionTool),
) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
	for _, optFn := range optFns {
		optFn(t)
	}
	return t
}

// WithSkipApproval marks the tool as exempt from the approval prompt.
func WithSkipApproval() func(t *FunctionTool) {
	return func(t *FunctionTool) { t.skipApproval = true }
}

// WithAlwaysAvailable offers the tool to every agent regardless of
// allow-lists.
func WithAlwaysAvailable() func(t *FunctionTool) {
	return func(t *FunctionTool) { t.alwaysAvailable = true }
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection, equivalent to util.CreateSchema(structType).
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, params map[string]any, tc *Context) Result,
	optFns ...func(t *FunctionTool),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn, optFns...)
}

func (t *FunctionTool) Name() string               { return t.name }
func (t *FunctionTool) Description() string        { return t.description }
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }
func (t *FunctionTool) SkipApproval() bool         { return t.skipApproval }
func (t *FunctionTool) AlwaysAvailable() bool      { return t.alwaysAvailable }

// Execute validates params against the declared schema then invokes the
// wrapped function. Validation failures become error Results so the model
// can correct its arguments and retry.
func (t *FunctionTool) Execute(ctx context.Context, params map[string]any, tc *Context) Result {
	if err := util.ValidateParameters(params, t.parameters); err != nil {
		return Failure("parameter validation failed: %v", err)
	}
	return t.fn(ctx, params, tc)
}

var _ Tool = (*FunctionTool)(nil)
