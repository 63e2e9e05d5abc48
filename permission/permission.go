// Package permission implements glob-based permission rules over
// agent, tool and file path combinations.
package permission

import "github.com/bmatcuk/doublestar/v4"

// Policy values a rule can carry.
const (
	PolicyAllow = "allow"
	PolicyDeny  = "deny"
	PolicyAsk   = "ask"
)

// Rule matches an agent role, tool name and file path by glob pattern.
// Empty patterns match everything.
type Rule struct {
	Agent  string `yaml:"agent" json:"agent"`
	Tool   string `yaml:"tool" json:"tool"`
	File   string `yaml:"file" json:"file"`
	Policy string `yaml:"policy" json:"policy"`
}

// Checker decides whether an agent may use a tool on a file. Rules are
// evaluated first-match-wins; when no rule matches the policy is "ask".
type Checker struct {
	rules []Rule
}

// NewChecker creates a checker over an ordered rule list.
func NewChecker(rules []Rule) *Checker {
	return &Checker{rules: append([]Rule(nil), rules...)}
}

// AddRule appends a rule to the end of the evaluation order.
func (c *Checker) AddRule(rule Rule) {
	c.rules = append(c.rules, rule)
}

// Check returns the policy for this (agent, tool, file) combination. An
// empty filePath skips file matching, so tool calls without a path are
// governed by agent and tool patterns alone.
func (c *Checker) Check(agentRole, toolName, filePath string) string {
	for _, rule := range c.rules {
		if !matchPattern(rule.Agent, agentRole) {
			continue
		}
		if !matchPattern(rule.Tool, toolName) {
			continue
		}
		if filePath != "" && !matchPattern(rule.File, filePath) {
			continue
		}

		if rule.Policy == "" {
			return PolicyAsk
		}
		return rule.Policy
	}
	return PolicyAsk
}

// IsAllowed reports whether the policy is exactly "allow".
func (c *Checker) IsAllowed(agentRole, toolName, filePath string) bool {
	return c.Check(agentRole, toolName, filePath) == PolicyAllow
}

// IsDenied reports whether the policy is exactly "deny".
func (c *Checker) IsDenied(agentRole, toolName, filePath string) bool {
	return c.Check(agentRole, toolName, filePath) == PolicyDeny
}

func matchPattern(pattern, value string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}
