// Package agent defines agent configurations and the role-indexed registry
// the delegation machinery resolves targets against.
package agent

import (
	"fmt"
	"strings"
)

// Config declares a single agent: which model drives it, how long it may
// iterate, which tools it sees and which roles it may delegate to.
type Config struct {
	Role        string  `yaml:"role" json:"role"`
	Name        string  `yaml:"name" json:"name"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	// MaxIterations bounds the LLM→tool loop; exhaustion is a defined
	// terminal outcome, not an error.
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
	// MaxDelegationDepth is accepted for config compatibility but not
	// consulted; the delegation manager's MaxDepth is authoritative.
	MaxDelegationDepth int      `yaml:"max_delegation_depth" json:"max_delegation_depth"`
	AllowedTools       []string `yaml:"allowed_tools" json:"allowed_tools"`
	DeniedTools        []string `yaml:"denied_tools" json:"denied_tools"`
	CanDelegateTo      []string `yaml:"can_delegate_to" json:"can_delegate_to"`
	RoleDefinition     string   `yaml:"role_definition" json:"role_definition"`
}

// Normalize fills derived defaults: a display name from the role and sane
// loop bounds.
func (c *Config) Normalize() {
	if c.Name == "" {
		c.Name = titleFromRole(c.Role)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 50
	}
}

func titleFromRole(role string) string {
	words := strings.Split(strings.ReplaceAll(role, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Definition is a registered agent. It owns its Config plus the behavior
// derived from it (tool filtering, delegation policy, prompt assembly).
type Definition struct {
	Config Config
}

// NewDefinition creates a Definition from a normalized copy of cfg.
func NewDefinition(cfg Config) *Definition {
	cfg.Normalize()
	return &Definition{Config: cfg}
}

// Role returns the agent's role id.
func (d *Definition) Role() string { return d.Config.Role }

// ToolFilter returns the allow/deny lists used to compute the tool schemas
// exposed to the model.
func (d *Definition) ToolFilter() (allowed, denied []string) {
	return d.Config.AllowedTools, d.Config.DeniedTools
}

// CanDelegate reports whether this agent may hand tasks to targetRole.
func (d *Definition) CanDelegate(targetRole string) bool {
	for _, role := range d.Config.CanDelegateTo {
		if role == targetRole {
			return true
		}
	}
	return false
}

// IsLeaf reports whether this agent cannot delegate at all.
func (d *Definition) IsLeaf() bool { return len(d.Config.CanDelegateTo) == 0 }

// SystemPrompt assembles the agent's system prompt. Section order:
// role → delegation → rules → objective.
func (d *Definition) SystemPrompt(workingDirectory string) string {
	var sections []string

	sections = append(sections, d.roleSection())
	if delegation := d.delegationSection(); delegation != "" {
		sections = append(sections, delegation)
	}
	sections = append(sections, d.rulesSection(workingDirectory), objectiveSection)

	return strings.Join(sections, "\n\n")
}

func (d *Definition) roleSection() string {
	var b strings.Builder
	if d.Config.RoleDefinition != "" {
		b.WriteString(d.Config.RoleDefinition)
	} else {
		fmt.Fprintf(&b, "You are the %s agent. Your role is '%s'.", d.Config.Name, d.Config.Role)
	}
	if len(d.Config.CanDelegateTo) > 0 {
		b.WriteString("\n\nYou can delegate tasks to the following specialist agents:")
		for _, role := range d.Config.CanDelegateTo {
			fmt.Fprintf(&b, "\n  - %s", role)
		}
	}
	return b.String()
}

func (d *Definition) delegationSection() string {
	if d.IsLeaf() {
		return ""
	}
	return `====

DELEGATION

You can delegate tasks to specialist agents using the delegate_task tool.
When delegating:
- Provide a clear, specific description of what the agent should accomplish.
- Choose the most appropriate specialist for the task.
- Wait for the result before proceeding.

For long-running tasks that don't block your current work, use delegate_background.
Use check_background_task to check on background tasks.

When your task is complete, use report_result to return your findings.`
}

func (d *Definition) rulesSection(workingDirectory string) string {
	return fmt.Sprintf(`====

RULES

- The project base directory is: %s
- All file paths must be relative to this directory unless absolute paths are specified.
- Always read a file before editing it.
- Use the tools provided to accomplish the task efficiently.
- When your task is complete, use the report_result tool to present the result.
- Wait for the result after each tool use before proceeding.`, workingDirectory)
}

const objectiveSection = `====

OBJECTIVE

You accomplish a given task iteratively, breaking it down into clear steps and working through them methodically.

1. Analyze the task and set clear, achievable goals.
2. Work through goals sequentially using available tools.
3. Before calling a tool, determine if all required parameters are available.
4. Once complete, use report_result to present your findings.`
