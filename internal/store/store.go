// Package store owns the authoritative in-memory execution tree alongside
// the UI state derived from it: selection, expansion, timeline, view.
package store

import (
	"log"
	"sync"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/stats"
	"github.com/sprite-ai/agtrace/internal/timeline"
	"github.com/sprite-ai/agtrace/internal/trace"
)

// View identifies the active presentation of the execution.
type View string

const (
	ViewTree     View = "tree"
	ViewTimeline View = "timeline"
)

// ItemType identifies what kind of item is selected, if any.
type ItemType string

const (
	ItemNone  ItemType = ""
	ItemAgent ItemType = "agent"
	ItemTool  ItemType = "tool"
)

// State is the full store state. All mutation flows through apply; the
// struct itself carries no behavior so it can be copied and inspected
// freely in tests.
type State struct {
	Execution        *model.ExecutionTree
	Timeline         *model.ExecutionTimeline
	SelectedAgentID  string
	SelectedToolID   string
	SelectedItemType ItemType
	ExpandedNodes    map[string]bool
	ExpandedTools    map[string]bool
	CurrentView      View

	// Generation counts clears and reinitializations, so results from
	// loads that outlived the tree they were requested against can be
	// recognized and discarded.
	Generation uint64
}

// Store serializes all state transitions through a single reducer and
// persists a snapshot after each one.
type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
}

// New creates an empty store. A nil persister disables persistence.
func New(p Persister) *Store {
	return &Store{
		state: State{
			ExpandedNodes: make(map[string]bool),
			ExpandedTools: make(map[string]bool),
			CurrentView:   ViewTree,
		},
		persister: p,
	}
}

// event is one state transition request.
type event interface{ isEvent() }

type setExecution struct{ tree *model.ExecutionTree }
type updateExecution struct{ tree *model.ExecutionTree }
type clearExecution struct{}
type selectAgent struct{ id string }
type selectTool struct{ id string }
type toggleNode struct{ id string }
type toggleTool struct{ id string }
type setView struct{ view View }
type attachChildren struct {
	taskID     string
	stepID     string
	result     trace.ChildLoadResult
	generation uint64
}

func (setExecution) isEvent()    {}
func (updateExecution) isEvent() {}
func (clearExecution) isEvent()  {}
func (selectAgent) isEvent()     {}
func (selectTool) isEvent()      {}
func (toggleNode) isEvent()      {}
func (toggleTool) isEvent()      {}
func (setView) isEvent()         {}
func (attachChildren) isEvent()  {}

// dispatch applies one event under the lock and persists the result.
func (s *Store) dispatch(ev event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(ev)
	s.persist()
}

func (s *Store) apply(ev event) {
	switch ev := ev.(type) {
	case setExecution:
		s.state.Execution = ev.tree
		s.state.Timeline = layout(ev.tree)
		s.state.ExpandedNodes = map[string]bool{}
		s.state.ExpandedTools = map[string]bool{}
		s.state.SelectedToolID = ""
		s.state.SelectedAgentID = ""
		s.state.SelectedItemType = ItemNone
		if ev.tree != nil && ev.tree.Root != nil {
			s.state.SelectedAgentID = ev.tree.Root.ID
			s.state.SelectedItemType = ItemAgent
			s.state.ExpandedNodes[ev.tree.Root.ID] = true
		}
		s.state.Generation++

	case updateExecution:
		// Poll-driven refresh: everything user-driven survives. A selected
		// id that vanished from the new tree is left dangling on purpose;
		// lookups resolve it to "nothing selected". Refresh trees arrive
		// root-only, so spawned subtrees are grafted over from the old tree.
		carrySpawned(s.state.Execution, ev.tree)
		s.state.Execution = ev.tree
		s.state.Timeline = layout(ev.tree)

	case clearExecution:
		s.state.Execution = nil
		s.state.Timeline = nil
		s.state.SelectedAgentID = ""
		s.state.SelectedToolID = ""
		s.state.SelectedItemType = ItemNone
		s.state.ExpandedNodes = map[string]bool{}
		s.state.ExpandedTools = map[string]bool{}
		s.state.Generation++

	case selectAgent:
		s.state.SelectedAgentID = ev.id
		s.state.SelectedToolID = ""
		s.state.SelectedItemType = ItemAgent

	case selectTool:
		s.state.SelectedToolID = ev.id
		s.state.SelectedAgentID = ""
		s.state.SelectedItemType = ItemTool

	case toggleNode:
		if s.state.ExpandedNodes[ev.id] {
			delete(s.state.ExpandedNodes, ev.id)
		} else {
			s.state.ExpandedNodes[ev.id] = true
		}

	case toggleTool:
		if s.state.ExpandedTools[ev.id] {
			delete(s.state.ExpandedTools, ev.id)
		} else {
			s.state.ExpandedTools[ev.id] = true
		}

	case setView:
		s.state.CurrentView = ev.view

	case attachChildren:
		if ev.generation != s.state.Generation {
			log.Printf("store: discarding stale children for task %s", ev.taskID)
			return
		}
		if s.state.Execution == nil || s.state.Execution.Root == nil {
			return
		}
		parent := trace.FindAgent(s.state.Execution.Root, ev.taskID)
		if parent == nil {
			log.Printf("store: parent task %s no longer in tree", ev.taskID)
			return
		}

		// Re-expansion replaces only this step's previous spawned set; an
		// agent that spawned from several steps keeps the other steps' sets.
		kept := parent.Children[:0]
		for _, c := range parent.Children {
			if c.Origin != model.OriginSpawned || c.StepID != ev.stepID {
				kept = append(kept, c)
			}
		}
		parent.Children = kept
		for _, child := range ev.result.Children {
			parent.Children = append(parent.Children, model.Child{
				Agent:  child,
				Origin: model.OriginSpawned,
				StepID: ev.stepID,
			})
		}

		refreshAggregates(s.state.Execution)
		s.state.Timeline = layout(s.state.Execution)
	}
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		log.Printf("store: persisting snapshot: %v", err)
	}
}

func layout(tree *model.ExecutionTree) *model.ExecutionTimeline {
	if tree == nil || tree.Root == nil {
		return nil
	}
	tl, err := timeline.Layout(tree)
	if err != nil {
		log.Printf("store: timeline layout: %v", err)
		return nil
	}
	return tl
}

// carrySpawned grafts lazily loaded subtrees from the outgoing tree onto
// matching parents in the incoming one, so a refresh does not empty out
// expanded sub-agent views. A parent that already carries spawned children
// in the new tree is left alone.
func carrySpawned(old, next *model.ExecutionTree) {
	if old == nil || old.Root == nil || next == nil || next.Root == nil {
		return
	}

	grafted := false
	for _, prev := range trace.Flatten(old.Root) {
		if !prev.ChildrenLoaded() {
			continue
		}
		parent := trace.FindAgent(next.Root, prev.ID)
		if parent == nil || parent.ChildrenLoaded() {
			continue
		}
		for _, c := range prev.Children {
			if c.Origin == model.OriginSpawned {
				parent.Children = append(parent.Children, c)
				grafted = true
			}
		}
	}

	if grafted {
		refreshAggregates(next)
	}
}

func refreshAggregates(tree *model.ExecutionTree) {
	summary := stats.Aggregate(tree.Root)
	tree.TotalAgents = summary.AgentCount
	tree.TotalTools = summary.ToolCount
	tree.SuccessRate = summary.SuccessRate
	tree.TotalDuration = tree.Root.Duration
}

// --- Mutations ---

// SetExecution fully (re)initializes the store around a new tree: root
// selected, only the root expanded, tool expansion cleared.
func (s *Store) SetExecution(tree *model.ExecutionTree) {
	s.dispatch(setExecution{tree: tree})
}

// UpdateExecution replaces the tree and timeline while preserving
// selection and expansion. Applying an identical tree repeatedly leaves
// UI state untouched.
func (s *Store) UpdateExecution(tree *model.ExecutionTree) {
	s.dispatch(updateExecution{tree: tree})
}

// ClearExecution resets everything; used on navigation away.
func (s *Store) ClearExecution() {
	s.dispatch(clearExecution{})
}

// SelectAgent selects an agent, clearing any tool selection.
func (s *Store) SelectAgent(id string) { s.dispatch(selectAgent{id: id}) }

// SelectTool selects a tool invocation, clearing any agent selection.
func (s *Store) SelectTool(id string) { s.dispatch(selectTool{id: id}) }

// ToggleNodeExpanded flips a node's expansion. Expansion state is
// unrelated to whether the node's lazy subtree has been fetched.
func (s *Store) ToggleNodeExpanded(id string) { s.dispatch(toggleNode{id: id}) }

// ToggleToolExpanded flips a tool row's expansion.
func (s *Store) ToggleToolExpanded(id string) { s.dispatch(toggleTool{id: id}) }

// SetView switches the active presentation.
func (s *Store) SetView(v View) { s.dispatch(setView{view: v}) }

// AttachChildren attaches a lazy-load result to the owned tree. The
// generation must be the value of Generation() when the load started;
// results that arrive after a clear or reinitialization are discarded.
func (s *Store) AttachChildren(taskID, stepID string, result trace.ChildLoadResult, generation uint64) {
	s.dispatch(attachChildren{taskID: taskID, stepID: stepID, result: result, generation: generation})
}

// --- Accessors ---

// Generation returns the current tree generation, for pairing with
// AttachChildren.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation
}

// Execution returns the owned tree, or nil.
func (s *Store) Execution() *model.ExecutionTree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Execution
}

// Timeline returns the derived timeline, or nil.
func (s *Store) Timeline() *model.ExecutionTimeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Timeline
}

// CurrentView returns the active view.
func (s *Store) CurrentView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentView
}

// SelectedAgent resolves the selected agent id against the current tree.
// A dangling id resolves to nil.
func (s *Store) SelectedAgent() *model.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Execution == nil || s.state.SelectedItemType != ItemAgent {
		return nil
	}
	return trace.FindAgent(s.state.Execution.Root, s.state.SelectedAgentID)
}

// SelectedTool resolves the selected tool id against the current tree.
func (s *Store) SelectedTool() *model.ToolInvocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Execution == nil || s.state.SelectedItemType != ItemTool {
		return nil
	}
	return trace.FindInvocation(s.state.Execution.Root, s.state.SelectedToolID)
}

// AgentByID searches the current tree depth-first.
func (s *Store) AgentByID(id string) *model.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Execution == nil {
		return nil
	}
	return trace.FindAgent(s.state.Execution.Root, id)
}

// NodeExpanded reports whether a tree node is expanded.
func (s *Store) NodeExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ExpandedNodes[id]
}

// ToolExpanded reports whether a tool row is expanded.
func (s *Store) ToolExpanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ExpandedTools[id]
}

// StateCopy returns a copy of the current state with copied sets, for
// rendering and tests.
func (s *Store) StateCopy() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.ExpandedNodes = copySet(s.state.ExpandedNodes)
	st.ExpandedTools = copySet(s.state.ExpandedTools)
	return st
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
