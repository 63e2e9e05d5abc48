package native

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/agentcore/tool"
)

// NewReadFileTool returns the tool that reads one file with line numbers.
func NewReadFileTool() tool.Tool {
	return tool.NewFunctionTool(
		"read_file",
		"Read a file and return its contents with line numbers. "+
			"IMPORTANT: This tool reads exactly one file per call. If you need multiple files, "+
			"issue multiple parallel read_file calls.\n\n"+
			`Example: { "path": "src/app.py" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to read, relative to the workspace",
				},
			},
			"required":             []string{"path"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *tool.Context) tool.Result {
			path, _ := params["path"].(string)
			fullPath := resolvePath(tc.WorkingDirectory, path)

			info, err := os.Stat(fullPath)
			if err != nil {
				return tool.Failure("File not found: %s", path)
			}
			if info.IsDir() {
				return tool.Failure("Not a file: %s", path)
			}

			data, err := os.ReadFile(fullPath)
			if err != nil {
				return tool.Failure("Error reading file: %v", err)
			}

			lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
			numbered := make([]string, len(lines))
			for i, line := range lines {
				numbered[i] = fmt.Sprintf("%6d\t%s", i+1, strings.TrimRight(line, "\r"))
			}
			return tool.Success(truncateOutput(strings.Join(numbered, "\n")))
		},
	)
}

// NewWriteFileTool returns the tool that creates or overwrites one file.
func NewWriteFileTool() tool.Tool {
	return tool.NewFunctionTool(
		"write_file",
		"Write content to a file. Creates the file if it doesn't exist, overwrites if it does. "+
			"You MUST provide the COMPLETE file content.\n\n"+
			`Example: { "path": "src/app.py", "content": "print('hello')\n" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to write, relative to the workspace",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "The complete content to write to the file",
				},
			},
			"required":             []string{"path", "content"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *tool.Context) tool.Result {
			path, _ := params["path"].(string)
			content, _ := params["content"].(string)
			fullPath := resolvePath(tc.WorkingDirectory, path)

			if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
				return tool.Failure("Error writing file: %v", err)
			}
			if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
				return tool.Failure("Error writing file: %v", err)
			}
			return tool.Success(fmt.Sprintf("Successfully wrote to %s", path))
		},
	)
}

// NewEditFileTool returns the tool that performs an exact, unique string
// replacement in one file.
func NewEditFileTool() tool.Tool {
	return tool.NewFunctionTool(
		"edit_file",
		"Make an exact string replacement in a file. The old_string must match exactly "+
			"(including whitespace/indentation). Use this for targeted, surgical edits.\n\n"+
			`Example: { "path": "src/app.py", "old_string": "def hello():", "new_string": "def greet():" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to edit, relative to the workspace",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "The exact string to find and replace (must be unique in the file)",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "The replacement string",
				},
			},
			"required":             []string{"path", "old_string", "new_string"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *tool.Context) tool.Result {
			path, _ := params["path"].(string)
			oldString, _ := params["old_string"].(string)
			newString, _ := params["new_string"].(string)
			fullPath := resolvePath(tc.WorkingDirectory, path)

			data, err := os.ReadFile(fullPath)
			if err != nil {
				return tool.Failure("File not found: %s", path)
			}
			content := string(data)

			count := strings.Count(content, oldString)
			if count == 0 {
				return tool.Failure("old_string not found in %s", path)
			}
			if count > 1 {
				return tool.Failure(
					"old_string found %d times in %s. Provide a more specific string with surrounding context.",
					count, path,
				)
			}

			updated := strings.Replace(content, oldString, newString, 1)
			if err := os.WriteFile(fullPath, []byte(updated), 0o644); err != nil {
				return tool.Failure("Error editing file: %v", err)
			}
			return tool.Success(fmt.Sprintf("Successfully edited %s", path))
		},
	)
}
