package store

import (
	"testing"
	"time"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/trace"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func agent(id string, startMs, endMs int64, children ...model.Child) *model.Agent {
	start := base.Add(time.Duration(startMs) * time.Millisecond)
	end := base.Add(time.Duration(endMs) * time.Millisecond)
	return &model.Agent{
		ID:        id,
		Name:      id,
		Level:     1,
		Status:    model.StatusCompleted,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Children:  children,
	}
}

func testTree(rootID string) *model.ExecutionTree {
	root := agent(rootID, 0, 100)
	return &model.ExecutionTree{
		ID:            "tree-" + rootID,
		Root:          root,
		TotalDuration: root.Duration,
		TotalAgents:   1,
		StartTime:     root.StartTime,
		EndTime:       root.EndTime,
	}
}

func TestSetExecutionInitializesUIState(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))

	st := s.StateCopy()
	if st.SelectedAgentID != "r1" || st.SelectedItemType != ItemAgent {
		t.Errorf("root must be selected: %+v", st)
	}
	if !st.ExpandedNodes["r1"] || len(st.ExpandedNodes) != 1 {
		t.Errorf("only the root must be expanded: %v", st.ExpandedNodes)
	}
	if len(st.ExpandedTools) != 0 {
		t.Errorf("tool expansion must be cleared: %v", st.ExpandedTools)
	}
	if s.Timeline() == nil {
		t.Error("timeline must be regenerated")
	}
}

func TestSetExecutionAlwaysResetsSelection(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	s.SelectAgent("other")
	s.ToggleNodeExpanded("x1")

	s.SetExecution(testTree("r2"))
	st := s.StateCopy()
	if st.SelectedAgentID != "r2" {
		t.Errorf("selection not reset to new root: %q", st.SelectedAgentID)
	}
	if st.ExpandedNodes["x1"] {
		t.Error("stale expansion survived SetExecution")
	}
}

func TestUpdateExecutionPreservesUIState(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	s.SelectAgent("r1")
	s.ToggleNodeExpanded("n-9")
	s.ToggleToolExpanded("tool-3")

	s.UpdateExecution(testTree("r1"))

	st := s.StateCopy()
	if st.SelectedAgentID != "r1" || st.SelectedItemType != ItemAgent {
		t.Errorf("selection lost on refresh: %+v", st)
	}
	if !st.ExpandedNodes["n-9"] || !st.ExpandedTools["tool-3"] {
		t.Error("expansion lost on refresh")
	}
}

func TestUpdateExecutionIdempotentUnderPolling(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	s.ToggleNodeExpanded("n-9")

	before := s.StateCopy()
	for i := 0; i < 3; i++ {
		s.UpdateExecution(testTree("r1"))
	}
	after := s.StateCopy()

	if before.SelectedAgentID != after.SelectedAgentID ||
		len(before.ExpandedNodes) != len(after.ExpandedNodes) ||
		before.SelectedItemType != after.SelectedItemType {
		t.Errorf("repeated refresh perturbed UI state: %+v vs %+v", before, after)
	}
}

func TestUpdateExecutionKeepsDanglingSelection(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	s.SelectAgent("gone-after-refresh")

	s.UpdateExecution(testTree("r1"))

	// The store does not repair the id; lookup resolves to nothing selected.
	if got := s.StateCopy().SelectedAgentID; got != "gone-after-refresh" {
		t.Errorf("store must not rewrite the dangling id, got %q", got)
	}
	if s.SelectedAgent() != nil {
		t.Error("dangling selection must resolve to nil")
	}
}

func TestClearExecutionResetsEverything(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	s.ToggleToolExpanded("tool-1")

	s.ClearExecution()

	st := s.StateCopy()
	if st.Execution != nil || st.Timeline != nil {
		t.Error("tree and timeline must be dropped")
	}
	if st.SelectedAgentID != "" || st.SelectedItemType != ItemNone {
		t.Errorf("selection survived clear: %+v", st)
	}
	if len(st.ExpandedNodes) != 0 || len(st.ExpandedTools) != 0 {
		t.Error("expansion survived clear")
	}
}

func TestSelectionMutuallyExclusive(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))

	s.SelectTool("tool-1")
	st := s.StateCopy()
	if st.SelectedAgentID != "" || st.SelectedToolID != "tool-1" || st.SelectedItemType != ItemTool {
		t.Errorf("tool selection must clear agent selection: %+v", st)
	}

	s.SelectAgent("r1")
	st = s.StateCopy()
	if st.SelectedToolID != "" || st.SelectedAgentID != "r1" || st.SelectedItemType != ItemAgent {
		t.Errorf("agent selection must clear tool selection: %+v", st)
	}
}

func TestToggleSetsAreIndependent(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))

	s.ToggleNodeExpanded("x")
	s.ToggleToolExpanded("x")
	if !s.NodeExpanded("x") || !s.ToolExpanded("x") {
		t.Error("same id must toggle independently per set")
	}

	s.ToggleNodeExpanded("x")
	if s.NodeExpanded("x") {
		t.Error("second toggle must collapse")
	}
	if !s.ToolExpanded("x") {
		t.Error("tool set must be untouched by node toggle")
	}
}

func TestAttachChildrenUpdatesTreeAndTimeline(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()

	result := trace.ChildLoadResult{Children: []*model.Agent{
		agent("c1", 20, 50),
		agent("c2", 55, 80),
	}}
	s.AttachChildren("r1", "s1", result, gen)

	root := s.Execution().Root
	if len(root.SpawnedChildren()) != 2 {
		t.Fatalf("expected 2 spawned children, got %d", len(root.SpawnedChildren()))
	}
	if s.Execution().TotalAgents != 3 {
		t.Errorf("aggregates not refreshed: %d agents", s.Execution().TotalAgents)
	}
	if got := len(s.Timeline().Agents); got != 3 {
		t.Errorf("timeline must include attached children, got %d placed", got)
	}
}

func TestAttachChildrenReplacesPriorSpawnedSet(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()

	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)
	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50), agent("c2", 55, 80)}}, gen)

	root := s.Execution().Root
	if len(root.SpawnedChildren()) != 2 {
		t.Errorf("re-expansion must replace, not append: %d spawned", len(root.SpawnedChildren()))
	}
}

func spawnedIDs(a *model.Agent) []string {
	var ids []string
	for _, c := range a.SpawnedChildren() {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestAttachChildrenKeepsOtherStepsSets(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()

	// The parent spawned from two distinct steps.
	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)
	s.AttachChildren("r1", "s2", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c2", 55, 80)}}, gen)

	root := s.Execution().Root
	got := spawnedIDs(root)
	if len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("both steps' children must coexist, got %v", got)
	}
	if s.Execution().TotalAgents != 3 {
		t.Errorf("aggregates must cover both sets: %d agents", s.Execution().TotalAgents)
	}

	// Re-expanding s1 replaces only s1's set; s2's survives.
	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c3", 20, 50)}}, gen)

	got = spawnedIDs(s.Execution().Root)
	if len(got) != 2 || got[0] != "c2" || got[1] != "c3" {
		t.Errorf("re-expansion of s1 must leave s2's children alone, got %v", got)
	}
}

func TestUpdateExecutionKeepsSpawnedChildren(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()
	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)

	// Poll refreshes deliver root-only trees.
	s.UpdateExecution(testTree("r1"))

	root := s.Execution().Root
	if got := spawnedIDs(root); len(got) != 1 || got[0] != "c1" {
		t.Fatalf("refresh dropped loaded children, got %v", got)
	}
	if s.Execution().TotalAgents != 2 {
		t.Errorf("aggregates not recomputed after graft: %d agents", s.Execution().TotalAgents)
	}
	if got := len(s.Timeline().Agents); got != 2 {
		t.Errorf("timeline must keep the grafted child, got %d placed", got)
	}
}

func TestAttachChildrenDiscardsStaleResult(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()

	// User navigated away before the load finished.
	s.ClearExecution()
	s.SetExecution(testTree("r1"))

	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)

	if len(s.Execution().Root.SpawnedChildren()) != 0 {
		t.Error("stale load applied to a fresh tree")
	}
}

func TestAttachChildrenAfterClearDoesNotCrash(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()
	s.ClearExecution()

	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)

	if s.Execution() != nil {
		t.Error("cleared store must stay cleared")
	}
}

func TestAttachChildrenVanishedParent(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()

	s.AttachChildren("ghost", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)

	if len(s.Execution().Root.SpawnedChildren()) != 0 {
		t.Error("result for a vanished parent must be dropped")
	}
}

func TestAgentByIDSearchesSpawnedChildren(t *testing.T) {
	s := New(nil)
	s.SetExecution(testTree("r1"))
	gen := s.Generation()
	s.AttachChildren("r1", "s1", trace.ChildLoadResult{
		Children: []*model.Agent{agent("c1", 20, 50)}}, gen)

	if got := s.AgentByID("c1"); got == nil || got.ID != "c1" {
		t.Errorf("AgentByID(c1) = %v", got)
	}
}

func TestPersistOnEveryStateChange(t *testing.T) {
	p := &MemoryPersister{}
	s := New(p)

	s.SetExecution(testTree("r1"))
	snap, err := p.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap == nil || snap.SelectedAgentID != "r1" {
		t.Fatalf("snapshot not written on SetExecution: %+v", snap)
	}

	s.ToggleNodeExpanded("n2")
	snap, _ = p.Load()
	found := false
	for _, id := range snap.ExpandedNodes {
		if id == "n2" {
			found = true
		}
	}
	if !found {
		t.Errorf("toggle not persisted: %v", snap.ExpandedNodes)
	}
}
