// Package config loads engine settings from YAML files and resolves
// provider credentials from the environment.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/permission"
)

// ProviderSettings selects and configures the model backend.
type ProviderSettings struct {
	// Name selects the backend, e.g. "openai" or "anthropic".
	Name string `yaml:"name"`

	// Model overrides the backend's default model id.
	Model string `yaml:"model"`

	// APIKey overrides the environment lookup. Prefer the environment;
	// keys in config files tend to end up in version control.
	APIKey string `yaml:"api_key"`
}

// Settings mirrors the YAML configuration file. Zero fields fall back to
// the defaults from Default.
type Settings struct {
	Provider ProviderSettings `yaml:"provider"`

	// Agents overrides or extends the built-in lineup, keyed by role.
	Agents map[string]agent.Config `yaml:"agents"`

	Permissions []permission.Rule `yaml:"permissions"`

	DefaultAgent            string `yaml:"default_agent"`
	MaxDelegationDepth      int    `yaml:"max_delegation_depth"`
	BackgroundMaxConcurrent int    `yaml:"background_max_concurrent"`
	WorkingDirectory        string `yaml:"working_directory"`
}

// Default returns the settings used when no config file is present.
func Default() Settings {
	return Settings{
		Provider:                ProviderSettings{Name: "openai"},
		DefaultAgent:            "orchestrator",
		MaxDelegationDepth:      3,
		BackgroundMaxConcurrent: 3,
	}
}

// Load reads a YAML settings file, layered over Default.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML settings, layered over Default.
func Parse(data []byte) (*Settings, error) {
	settings := Default()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	settings.normalize()
	return &settings, nil
}

func (s *Settings) normalize() {
	if s.Provider.Name == "" {
		s.Provider.Name = "openai"
	}
	if s.DefaultAgent == "" {
		s.DefaultAgent = "orchestrator"
	}
	if s.MaxDelegationDepth <= 0 {
		s.MaxDelegationDepth = 3
	}
	if s.BackgroundMaxConcurrent <= 0 {
		s.BackgroundMaxConcurrent = 3
	}
}

// ResolveAPIKey returns the configured key, or looks it up in the
// environment: OPENAI_API_KEY, ANTHROPIC_API_KEY, or <NAME>_API_KEY for
// other providers.
func (s *Settings) ResolveAPIKey() string {
	if s.Provider.APIKey != "" {
		return s.Provider.APIKey
	}
	name := strings.ToUpper(strings.TrimSpace(s.Provider.Name))
	if name == "" {
		return ""
	}
	return os.Getenv(name + "_API_KEY")
}

// AgentConfigs merges the configured agents over the built-in lineup.
// Existing roles are overridden field-wise (zero fields keep the default);
// new roles are appended in sorted order.
func (s *Settings) AgentConfigs() []agent.Config {
	configs := agent.DefaultConfigs()

	index := make(map[string]int, len(configs))
	for i, cfg := range configs {
		index[cfg.Role] = i
	}

	var extra []string
	for role := range s.Agents {
		if _, ok := index[role]; !ok {
			extra = append(extra, role)
		}
	}
	sort.Strings(extra)

	for role, override := range s.Agents {
		i, ok := index[role]
		if !ok {
			continue
		}
		configs[i] = mergeConfig(configs[i], override, role)
	}
	for _, role := range extra {
		override := s.Agents[role]
		override.Role = role
		configs = append(configs, override)
	}

	return configs
}

// mergeConfig overlays non-zero override fields onto base.
func mergeConfig(base, override agent.Config, role string) agent.Config {
	merged := base
	merged.Role = role
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Model != "" {
		merged.Model = override.Model
	}
	if override.Temperature != 0 {
		merged.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		merged.MaxTokens = override.MaxTokens
	}
	if override.MaxIterations != 0 {
		merged.MaxIterations = override.MaxIterations
	}
	if override.MaxDelegationDepth != 0 {
		merged.MaxDelegationDepth = override.MaxDelegationDepth
	}
	if len(override.AllowedTools) > 0 {
		merged.AllowedTools = override.AllowedTools
	}
	if len(override.DeniedTools) > 0 {
		merged.DeniedTools = override.DeniedTools
	}
	if len(override.CanDelegateTo) > 0 {
		merged.CanDelegateTo = override.CanDelegateTo
	}
	if override.RoleDefinition != "" {
		merged.RoleDefinition = override.RoleDefinition
	}
	return merged
}
