package trace

import (
	"reflect"
	"testing"

	"github.com/sprite-ai/agtrace/internal/model"
)

const editResult = `diff --git a/server.go b/server.go
index abc1234..def5678 100644
--- a/server.go
+++ b/server.go
@@ -1,3 +1,4 @@
 package main

+var port = 8080
 func main() {}
`

func TestFilesChangedFromPatchTool(t *testing.T) {
	root := &model.Agent{
		ID: "r",
		ToolInvocations: []model.ToolInvocation{
			{ID: "s1", ToolName: "edit_file", Result: editResult},
			{ID: "s2", ToolName: "bash", Result: "ok"},
		},
		Children: []model.Child{
			{Origin: model.OriginSpawned, Agent: &model.Agent{
				ID: "c1",
				ToolInvocations: []model.ToolInvocation{
					{ID: "s3", ToolName: "apply_patch", Result: editResult},
				},
			}},
		},
	}

	files := FilesChanged(root)
	if !reflect.DeepEqual(files, []string{"server.go"}) {
		t.Errorf("expected [server.go], got %v", files)
	}
}

func TestFilesChangedIgnoresNonDiffOutput(t *testing.T) {
	root := &model.Agent{
		ID: "r",
		ToolInvocations: []model.ToolInvocation{
			{ID: "s1", ToolName: "bash", Result: "--- not a real diff\nsome output"},
		},
	}

	if files := FilesChanged(root); len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}
