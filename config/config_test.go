package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/permission"
)

func TestDefault(t *testing.T) {
	settings := Default()
	assert.Equal(t, "openai", settings.Provider.Name)
	assert.Equal(t, "orchestrator", settings.DefaultAgent)
	assert.Equal(t, 3, settings.MaxDelegationDepth)
	assert.Equal(t, 3, settings.BackgroundMaxConcurrent)
}

func TestParse(t *testing.T) {
	settings, err := Parse([]byte(`
provider:
  name: anthropic
  model: claude-3-5-sonnet-20241022
default_agent: oracle
max_delegation_depth: 5
permissions:
  - agent: "*"
    tool: execute_command
    policy: ask
agents:
  explorer:
    model: gpt-4o
  reviewer:
    model: gpt-4o
    allowed_tools: [read_file, report_result]
`))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", settings.Provider.Name)
	assert.Equal(t, "claude-3-5-sonnet-20241022", settings.Provider.Model)
	assert.Equal(t, "oracle", settings.DefaultAgent)
	assert.Equal(t, 5, settings.MaxDelegationDepth)
	assert.Equal(t, 3, settings.BackgroundMaxConcurrent, "unset fields keep defaults")

	require.Len(t, settings.Permissions, 1)
	assert.Equal(t, permission.PolicyAsk, settings.Permissions[0].Policy)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("provider: [not: a: mapping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_agent: fixer\n"), 0o644))

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fixer", settings.DefaultAgent)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	settings := Default()
	settings.Provider.APIKey = "inline-key"
	assert.Equal(t, "inline-key", settings.ResolveAPIKey())

	settings.Provider.APIKey = ""
	settings.Provider.Name = "openai"
	t.Setenv("OPENAI_API_KEY", "env-openai")
	assert.Equal(t, "env-openai", settings.ResolveAPIKey())

	settings.Provider.Name = "anthropic"
	t.Setenv("ANTHROPIC_API_KEY", "env-anthropic")
	assert.Equal(t, "env-anthropic", settings.ResolveAPIKey())

	settings.Provider.Name = "groq"
	t.Setenv("GROQ_API_KEY", "env-groq")
	assert.Equal(t, "env-groq", settings.ResolveAPIKey())
}

func TestAgentConfigsMerge(t *testing.T) {
	settings, err := Parse([]byte(`
agents:
  explorer:
    model: gpt-4o
    max_iterations: 5
  reviewer:
    model: gpt-4o-mini
    allowed_tools: [read_file, report_result]
`))
	require.NoError(t, err)

	configs := settings.AgentConfigs()

	byRole := map[string]int{}
	for i, cfg := range configs {
		byRole[cfg.Role] = i
	}

	// Override merges field-wise over the built-in explorer.
	explorer := configs[byRole["explorer"]]
	assert.Equal(t, "gpt-4o", explorer.Model)
	assert.Equal(t, 5, explorer.MaxIterations)
	assert.Equal(t, []string{"read_file", "search_files", "list_files", "report_result"}, explorer.AllowedTools,
		"tools not overridden keep the default")

	// New roles are appended.
	reviewer := configs[byRole["reviewer"]]
	assert.Equal(t, "reviewer", reviewer.Role)
	assert.Equal(t, "gpt-4o-mini", reviewer.Model)
	assert.Equal(t, []string{"read_file", "report_result"}, reviewer.AllowedTools)

	// Untouched defaults survive.
	assert.Contains(t, byRole, "orchestrator")
	assert.Contains(t, byRole, "fixer")
}
