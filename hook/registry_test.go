package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func funcHook(name string, point Point, priority int, fn func(hctx *Context) (Result, error)) *FuncHook {
	return &FuncHook{
		HookName:     name,
		HookPoint:    point,
		HookPriority: priority,
		Fn: func(_ context.Context, hctx *Context) (Result, error) {
			return fn(hctx)
		},
	}
}

func TestRegistry_RunsInPriorityOrder(t *testing.T) {
	r := NewRegistry()
	var order []string

	r.Register(funcHook("late", BeforeToolCall, 200, func(_ *Context) (Result, error) {
		order = append(order, "late")
		return Result{}, nil
	}))
	r.Register(funcHook("early", BeforeToolCall, 10, func(_ *Context) (Result, error) {
		order = append(order, "early")
		return Result{}, nil
	}))

	result := r.Run(context.Background(), BeforeToolCall, &Context{})
	assert.False(t, result.Cancelled)
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestRegistry_CancelStopsChain(t *testing.T) {
	r := NewRegistry()
	ran := false

	r.Register(funcHook("gate", BeforeLLMCall, 1, func(_ *Context) (Result, error) {
		return Result{Cancelled: true, Reason: "budget exceeded"}, nil
	}))
	r.Register(funcHook("never", BeforeLLMCall, 2, func(_ *Context) (Result, error) {
		ran = true
		return Result{}, nil
	}))

	result := r.Run(context.Background(), BeforeLLMCall, &Context{})
	assert.True(t, result.Cancelled)
	assert.Equal(t, "budget exceeded", result.Reason)
	assert.False(t, ran)
}

func TestRegistry_ModifiedDataChainsThrough(t *testing.T) {
	r := NewRegistry()

	r.Register(funcHook("rewrite", BeforeToolCall, 1, func(_ *Context) (Result, error) {
		return Result{ModifiedData: map[string]any{"tool_name": "redacted"}}, nil
	}))

	var seen map[string]any
	r.Register(funcHook("observe", BeforeToolCall, 2, func(hctx *Context) (Result, error) {
		seen = hctx.Data
		return Result{}, nil
	}))

	hctx := &Context{Data: map[string]any{"tool_name": "write_file"}}
	result := r.Run(context.Background(), BeforeToolCall, hctx)

	assert.Equal(t, "redacted", seen["tool_name"])
	assert.Equal(t, "redacted", result.ModifiedData["tool_name"])
}

func TestRegistry_ErroringHookIsNoOp(t *testing.T) {
	r := NewRegistry()

	r.Register(funcHook("broken", BeforeToolCall, 1, func(_ *Context) (Result, error) {
		return Result{Cancelled: true, Reason: "should be discarded"}, errors.New("hook blew up")
	}))
	r.Register(funcHook("panicky", BeforeToolCall, 2, func(_ *Context) (Result, error) {
		panic("boom")
	}))

	ran := false
	r.Register(funcHook("after", BeforeToolCall, 3, func(_ *Context) (Result, error) {
		ran = true
		return Result{}, nil
	}))

	result := r.Run(context.Background(), BeforeToolCall, &Context{})
	assert.False(t, result.Cancelled)
	assert.True(t, ran)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register(funcHook("audit", BeforeToolCall, 1, func(_ *Context) (Result, error) {
		calls++
		return Result{}, nil
	}))
	r.Register(funcHook("audit", AfterToolCall, 1, func(_ *Context) (Result, error) {
		calls++
		return Result{}, nil
	}))

	r.Unregister("audit")
	r.Run(context.Background(), BeforeToolCall, &Context{})
	r.Run(context.Background(), AfterToolCall, &Context{})

	assert.Equal(t, 0, calls)
	assert.Empty(t, r.Hooks(BeforeToolCall))
}
