// Package native provides the built-in workspace tools: file reading and
// editing, directory listing, content search and shell command execution.
package native

import (
	"path/filepath"

	"github.com/hupe1980/agentcore/tool"
)

// All returns every built-in workspace tool.
func All() []tool.Tool {
	return []tool.Tool{
		NewReadFileTool(),
		NewWriteFileTool(),
		NewEditFileTool(),
		NewListFilesTool(),
		NewSearchFilesTool(),
		NewExecuteCommandTool(),
	}
}

// resolvePath anchors a relative path at the workspace root; absolute paths
// pass through unchanged.
func resolvePath(workingDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workingDir, path)
}

const maxOutputBytes = 100_000

func truncateOutput(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes] + "\n... (truncated)"
	}
	return s
}
