package trace

import (
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/sprite-ai/agtrace/internal/model"
)

// Tools whose results are expected to carry unified diffs.
var patchTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"apply_patch": true,
}

// FilesChanged returns the unique file paths touched by patch-carrying tool
// invocations anywhere in the agent's subtree, sorted.
func FilesChanged(root *model.Agent) []string {
	seen := make(map[string]bool)
	for _, a := range Flatten(root) {
		for _, inv := range a.ToolInvocations {
			for _, f := range invocationFiles(inv) {
				seen[f] = true
			}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func invocationFiles(inv model.ToolInvocation) []string {
	if inv.Result == "" {
		return nil
	}
	if !patchTools[strings.ToLower(inv.ToolName)] && !looksLikeDiff(inv.Result) {
		return nil
	}

	files, _, err := gitdiff.Parse(strings.NewReader(inv.Result))
	if err != nil {
		return nil // tool output that merely resembles a diff
	}

	var out []string
	for _, f := range files {
		switch {
		case f.NewName != "":
			out = append(out, f.NewName)
		case f.OldName != "":
			out = append(out, f.OldName)
		}
	}
	return out
}

func looksLikeDiff(s string) bool {
	return strings.Contains(s, "diff --git ") ||
		(strings.Contains(s, "\n--- ") && strings.Contains(s, "\n+++ "))
}
