// Package tui implements the Bubble Tea terminal viewer for execution
// traces. It is a pure consumer of the trace store: every mutation it
// makes goes through store operations, and poll refreshes arrive via
// UpdateExecution so cursor, selection, and expansion survive them.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/store"
	"github.com/sprite-ai/agtrace/internal/trace"
)

// tickMsg drives poll refresh.
type tickMsg time.Time

// refreshedMsg carries a refetched tree.
type refreshedMsg struct {
	tree *model.ExecutionTree
}

// refreshErrMsg carries a failed refresh; the view keeps the old tree.
type refreshErrMsg struct {
	err error
}

// childrenMsg carries a completed lazy subtree load.
type childrenMsg struct {
	taskID string
	stepID string
	result trace.ChildLoadResult
	gen    uint64
}

// Model is the top-level Bubble Tea model for agtrace.
type Model struct {
	svc   *trace.Service
	store *store.Store

	taskID       string
	pollInterval time.Duration

	// UI state not worth persisting
	width    int
	height   int
	cursor   int // index into rows
	rows     []row
	showHelp bool
	lastErr  error

	// pending tracks agent ids with an in-flight child load, so expanding
	// twice before the fetch lands does not double-load.
	pending map[string]bool
}

// New creates a viewer for one task's trace. The store should already hold
// the initial tree (via SetExecution).
func New(svc *trace.Service, st *store.Store, taskID string, pollInterval time.Duration) Model {
	m := Model{
		svc:          svc,
		store:        st,
		taskID:       taskID,
		pollInterval: pollInterval,
		pending:      make(map[string]bool),
	}
	m.rebuildRows()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.pollInterval <= 0 {
		return nil
	}
	return tick(m.pollInterval)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(), tick(m.pollInterval))

	case refreshedMsg:
		m.lastErr = nil
		m.store.UpdateExecution(msg.tree)
		m.rebuildRows()
		m.clampCursor()
		return m, nil

	case refreshErrMsg:
		m.lastErr = msg.err
		return m, nil

	case childrenMsg:
		delete(m.pending, msg.taskID)
		m.store.AttachChildren(msg.taskID, msg.stepID, msg.result, msg.gen)
		m.rebuildRows()
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.store.ClearExecution()
		return m, tea.Quit

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.selectCursorRow()
		}

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.selectCursorRow()
		}

	case key.Matches(msg, keys.Expand):
		return m.toggleCursorRow()

	case key.Matches(msg, keys.ToggleView):
		if m.store.CurrentView() == store.ViewTree {
			m.store.SetView(store.ViewTimeline)
		} else {
			m.store.SetView(store.ViewTree)
		}

	case key.Matches(msg, keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}

	return m, nil
}

// selectCursorRow mirrors the cursor into store selection.
func (m *Model) selectCursorRow() {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return
	}
	r := m.rows[m.cursor]
	if r.agent != nil {
		m.store.SelectAgent(r.agent.ID)
	} else if r.tool != nil {
		m.store.SelectTool(r.tool.ID)
	}
}

// toggleCursorRow expands or collapses the row under the cursor. The first
// expansion of an agent whose subtasks were never fetched triggers the
// lazy loader, one level only.
func (m Model) toggleCursorRow() (tea.Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return m, nil
	}
	r := m.rows[m.cursor]

	if r.tool != nil {
		m.store.ToggleToolExpanded(r.tool.ID)
		m.rebuildRows()
		return m, nil
	}

	agent := r.agent
	m.store.ToggleNodeExpanded(agent.ID)

	var cmds []tea.Cmd
	if m.store.NodeExpanded(agent.ID) && agent.HasSubtasks && !agent.ChildrenLoaded() && !m.pending[agent.ID] {
		m.pending[agent.ID] = true
		gen := m.store.Generation()
		for _, inv := range agent.ToolInvocations {
			if inv.IsAgentTool {
				cmds = append(cmds, m.loadChildrenCmd(agent.ID, inv.ID, gen))
			}
		}
	}

	m.rebuildRows()
	m.clampCursor()
	return m, tea.Batch(cmds...)
}

func (m Model) refreshCmd() tea.Cmd {
	svc, taskID := m.svc, m.taskID
	return func() tea.Msg {
		tree, err := svc.BuildTree(context.Background(), taskID)
		if err != nil {
			return refreshErrMsg{err: err}
		}
		return refreshedMsg{tree: tree}
	}
}

func (m Model) loadChildrenCmd(taskID, stepID string, gen uint64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		result := svc.LoadChildren(context.Background(), taskID, stepID)
		return childrenMsg{taskID: taskID, stepID: stepID, result: result, gen: gen}
	}
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
