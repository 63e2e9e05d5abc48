package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/bus"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// Delegation failure modes callers can test with errors.Is.
var (
	// ErrMaxDepthExceeded is returned when the delegation chain is already
	// at the configured maximum depth.
	ErrMaxDepthExceeded = errors.New("maximum delegation depth reached")

	// ErrNoProcessorFactory is returned when Delegate runs before the
	// processor factory was wired.
	ErrNoProcessorFactory = errors.New("no session processor factory configured")
)

// ProcessorFactory creates the child processor that executes a delegated
// task. It is set after construction to break the cycle between the
// delegation manager and the session processor.
type ProcessorFactory func(target *agent.Definition, parentRun *core.AgentRun) *SessionProcessor

// DelegationManagerOptions configures a DelegationManager.
type DelegationManagerOptions struct {
	// MaxDepth bounds the delegation chain. Depth counts ancestors of the
	// delegating run, so a root run may start MaxDepth nested delegations.
	MaxDepth int
	Logger   logging.Logger
}

// DelegationManager validates and routes delegation between agents: it
// checks the target exists, enforces the depth limit, creates the child run
// and executes it through a child SessionProcessor.
type DelegationManager struct {
	agents  *agent.Registry
	bus     *bus.Bus
	store   core.Store
	opts    DelegationManagerOptions
	factory ProcessorFactory
}

// NewDelegationManager creates a manager. MaxDepth defaults to 3.
func NewDelegationManager(agents *agent.Registry, b *bus.Bus, store core.Store, optFns ...func(o *DelegationManagerOptions)) *DelegationManager {
	opts := DelegationManagerOptions{MaxDepth: 3, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &DelegationManager{agents: agents, bus: b, store: store, opts: opts}
}

// SetProcessorFactory wires the factory for child processors.
func (m *DelegationManager) SetProcessorFactory(factory ProcessorFactory) {
	m.factory = factory
}

// MaxDepth returns the configured depth bound.
func (m *DelegationManager) MaxDepth() int { return m.opts.MaxDepth }

// Delegate runs one blocking delegation: it creates a child run under
// fromRun and processes description with the target agent, returning the
// child's result text.
func (m *DelegationManager) Delegate(ctx context.Context, fromRun *core.AgentRun, targetRole, description string) (string, error) {
	target, err := m.agents.Require(targetRole)
	if err != nil {
		return "", err
	}

	depth, err := m.depth(ctx, fromRun)
	if err != nil {
		return "", fmt.Errorf("resolve delegation depth: %w", err)
	}
	if depth >= m.opts.MaxDepth {
		return "", fmt.Errorf("%w (%d), cannot delegate further", ErrMaxDepthExceeded, m.opts.MaxDepth)
	}

	if m.factory == nil {
		return "", ErrNoProcessorFactory
	}

	childRun := core.NewChildRun(fromRun, targetRole, description)
	if err := m.store.CreateAgentRun(ctx, childRun); err != nil {
		return "", fmt.Errorf("create child run: %w", err)
	}

	m.opts.Logger.Debug("delegation.start",
		"from", fromRun.AgentRole, "to", targetRole, "depth", depth, "run_id", childRun.ID)

	processor := m.factory(target, fromRun)

	result, err := processor.Process(ctx, childRun, description, nil)
	if err != nil {
		childRun.Complete(core.RunFailed, err.Error())
		if updateErr := m.store.UpdateAgentRun(ctx, childRun); updateErr != nil {
			m.opts.Logger.Error("delegation.child_update_failed", "run_id", childRun.ID, "error", updateErr.Error())
		}
		return "", fmt.Errorf("child agent %q failed: %w", targetRole, err)
	}

	return result, nil
}

// depth counts the ancestors of run by walking ParentRunID pointers through
// the store. A broken chain terminates the walk rather than failing the
// delegation.
func (m *DelegationManager) depth(ctx context.Context, run *core.AgentRun) (int, error) {
	depth := 0
	current := run
	for current.ParentRunID != "" {
		depth++
		parent, err := m.store.GetAgentRun(ctx, current.ParentRunID)
		if err != nil {
			return 0, err
		}
		if parent == nil {
			break
		}
		current = parent
	}
	return depth, nil
}
