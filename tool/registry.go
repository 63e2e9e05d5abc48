package tool

import (
	"slices"
	"sync"

	"github.com/hupe1980/agentcore/provider"
)

// Registry stores tools by name and tracks session-level approval
// overrides set when the user answers an approval prompt with "always".
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	order     []string
	approvals map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		approvals: make(map[string]bool),
	}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns the named tool, or nil if it is not registered.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// All returns every registered tool in registration order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ToolsForAgent filters the registry for one agent. A non-empty allowed
// list restricts to exactly those names, except always-available tools;
// the denied list removes names afterwards.
func (r *Registry) ToolsForAgent(allowed, denied []string) []Tool {
	var out []Tool
	for _, t := range r.All() {
		if len(allowed) > 0 && !t.AlwaysAvailable() && !slices.Contains(allowed, t.Name()) {
			continue
		}
		if slices.Contains(denied, t.Name()) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SetSessionApproval records a session-wide approval override for a tool,
// set when the user answers an approval prompt with "always".
func (r *Registry) SetSessionApproval(name string, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals[name] = approved
}

// SessionApproval returns the override for a tool and whether one exists.
func (r *Registry) SessionApproval(name string) (approved, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	approved, ok = r.approvals[name]
	return approved, ok
}

// ClearSessionApprovals drops all recorded overrides.
func (r *Registry) ClearSessionApprovals() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals = make(map[string]bool)
}

// Definitions converts tools into the schema form handed to a provider.
func Definitions(tools []Tool) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return defs
}
