package agent

// DefaultConfigs returns the built-in agent lineup. The orchestrator only
// delegates; the specialists carry the tools for their niche. Configuration
// files override or extend these per role.
func DefaultConfigs() []Config {
	return []Config{
		{
			Role:        "orchestrator",
			Model:       "gpt-4o",
			Temperature: 0.0,
			AllowedTools: []string{
				"delegate_task",
				"delegate_background",
				"check_background_task",
				"report_result",
			},
			CanDelegateTo: []string{"explorer", "librarian", "oracle", "designer", "fixer"},
		},
		{
			Role:         "explorer",
			Model:        "gpt-4o-mini",
			AllowedTools: []string{"read_file", "search_files", "list_files", "report_result"},
		},
		{
			Role:         "librarian",
			Model:        "gpt-4o",
			AllowedTools: []string{"read_file", "search_files", "list_files", "report_result"},
		},
		{
			Role:        "oracle",
			Model:       "gpt-4o",
			Temperature: 0.2,
			AllowedTools: []string{
				"read_file",
				"search_files",
				"list_files",
				"delegate_task",
				"report_result",
			},
			CanDelegateTo: []string{"explorer"},
		},
		{
			Role:  "designer",
			Model: "gpt-4o",
			AllowedTools: []string{
				"read_file",
				"write_file",
				"edit_file",
				"search_files",
				"list_files",
				"execute_command",
				"report_result",
			},
		},
		{
			Role:  "fixer",
			Model: "gpt-4o",
			AllowedTools: []string{
				"read_file",
				"write_file",
				"edit_file",
				"search_files",
				"list_files",
				"execute_command",
				"report_result",
			},
		},
	}
}
