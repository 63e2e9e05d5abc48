package native

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hupe1980/agentcore/tool"
)

const (
	maxSearchMatches = 200
	maxListEntries   = 500
)

// skipDir filters out hidden and dependency directories during walks.
func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "__pycache__", "vendor":
		return true
	}
	return false
}

// matchGlob matches a filename or relative path against a glob pattern.
// Patterns containing a path separator match the relative path, otherwise
// only the base name is considered.
func matchGlob(pattern, relPath string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	target := filepath.Base(relPath)
	if strings.Contains(pattern, "/") {
		target = filepath.ToSlash(relPath)
	}
	ok, err := doublestar.Match(pattern, target)
	return err == nil && ok
}

// NewSearchFilesTool returns the regex content search tool.
func NewSearchFilesTool() tool.Tool {
	return tool.NewFunctionTool(
		"search_files",
		"Search for a regex pattern across files in a directory. "+
			"Returns matching lines with file paths and line numbers.\n\n"+
			`Example: { "path": "src", "pattern": "def main", "glob": "*.py" }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "The directory to search in, relative to the workspace",
				},
				"pattern": map[string]any{
					"type":        "string",
					"description": "The regex pattern to search for",
				},
				"glob": map[string]any{
					"type":        "string",
					"description": "File glob pattern to filter (e.g., '*.py'). Default: all files.",
				},
			},
			"required":             []string{"path", "pattern", "glob"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *tool.Context) tool.Result {
			searchPath, _ := params["path"].(string)
			pattern, _ := params["pattern"].(string)
			globPattern, _ := params["glob"].(string)

			fullPath := resolvePath(tc.WorkingDirectory, searchPath)
			if _, err := os.Stat(fullPath); err != nil {
				return tool.Failure("Path not found: %s", searchPath)
			}

			re, err := regexp.Compile(pattern)
			if err != nil {
				return tool.Failure("Invalid regex pattern: %v", err)
			}

			var matches []string
			walkErr := filepath.WalkDir(fullPath, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if path != fullPath && skipDir(d.Name()) {
						return filepath.SkipDir
					}
					return nil
				}

				relToRoot, relErr := filepath.Rel(fullPath, path)
				if relErr != nil || !matchGlob(globPattern, relToRoot) {
					return nil
				}
				relPath, relErr := filepath.Rel(tc.WorkingDirectory, path)
				if relErr != nil {
					relPath = path
				}

				f, err := os.Open(path)
				if err != nil {
					return nil
				}
				defer f.Close()

				scanner := bufio.NewScanner(f)
				scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
				lineNum := 0
				for scanner.Scan() {
					lineNum++
					line := scanner.Text()
					if re.MatchString(line) {
						matches = append(matches, fmt.Sprintf("%s:%d: %s", relPath, lineNum, strings.TrimRight(line, " \t")))
						if len(matches) >= maxSearchMatches {
							return filepath.SkipAll
						}
					}
				}
				return nil
			})
			if walkErr != nil {
				return tool.Failure("Error searching files: %v", walkErr)
			}

			if len(matches) == 0 {
				return tool.Success(fmt.Sprintf("No matches found for pattern '%s' in %s", pattern, searchPath))
			}

			result := strings.Join(matches, "\n")
			if len(matches) >= maxSearchMatches {
				result += fmt.Sprintf("\n... (showing first %d matches)", maxSearchMatches)
			}
			return tool.Success(result)
		},
	)
}

// NewListFilesTool returns the directory listing tool.
func NewListFilesTool() tool.Tool {
	return tool.NewFunctionTool(
		"list_files",
		"List files and directories at the given path. Use recursive=true to see the full tree.\n\n"+
			`Example: { "path": ".", "recursive": true }`,
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "The directory path to list, relative to the workspace",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Whether to list recursively. Default: false.",
				},
			},
			"required":             []string{"path", "recursive"},
			"additionalProperties": false,
		},
		func(ctx context.Context, params map[string]any, tc *tool.Context) tool.Result {
			path, _ := params["path"].(string)
			recursive, _ := params["recursive"].(bool)

			fullPath := resolvePath(tc.WorkingDirectory, path)
			info, err := os.Stat(fullPath)
			if err != nil {
				return tool.Failure("Path not found: %s", path)
			}
			if !info.IsDir() {
				return tool.Failure("Not a directory: %s", path)
			}

			var entries []string
			if recursive {
				filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
					if err != nil {
						return nil
					}
					if p == fullPath {
						return nil
					}
					if strings.HasPrefix(d.Name(), ".") || (d.IsDir() && skipDir(d.Name())) {
						if d.IsDir() {
							return filepath.SkipDir
						}
						return nil
					}

					rel, relErr := filepath.Rel(fullPath, p)
					if relErr != nil {
						return nil
					}
					depth := strings.Count(rel, string(filepath.Separator))
					indent := strings.Repeat("  ", depth)
					if d.IsDir() {
						entries = append(entries, fmt.Sprintf("%s%s/", indent, d.Name()))
					} else {
						entries = append(entries, fmt.Sprintf("%s%s", indent, d.Name()))
					}
					if len(entries) >= maxListEntries {
						entries = append(entries, "... (truncated)")
						return filepath.SkipAll
					}
					return nil
				})
			} else {
				items, err := os.ReadDir(fullPath)
				if err != nil {
					return tool.Failure("Error listing directory: %v", err)
				}
				sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })
				for _, item := range items {
					suffix := ""
					if item.IsDir() {
						suffix = "/"
					}
					entries = append(entries, item.Name()+suffix)
				}
			}

			if len(entries) == 0 {
				return tool.Success("(empty directory)")
			}
			return tool.Success(strings.Join(entries, "\n"))
		},
	)
}
