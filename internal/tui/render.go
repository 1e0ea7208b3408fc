package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/store"
	"github.com/sprite-ai/agtrace/internal/trace"
)

// row is one visible line in the tree panel: an agent or one of its tools.
type row struct {
	agent *model.Agent
	tool  *model.ToolInvocation
	depth int
}

// rebuildRows recomputes the visible rows from the tree and the store's
// expansion sets.
func (m *Model) rebuildRows() {
	m.rows = nil
	tree := m.store.Execution()
	if tree == nil || tree.Root == nil {
		return
	}
	m.appendAgentRows(tree.Root, 0)
}

func (m *Model) appendAgentRows(a *model.Agent, depth int) {
	m.rows = append(m.rows, row{agent: a, depth: depth})
	if !m.store.NodeExpanded(a.ID) {
		return
	}
	for i := range a.ToolInvocations {
		m.rows = append(m.rows, row{tool: &a.ToolInvocations[i], depth: depth + 1})
	}
	for _, c := range a.Children {
		m.appendAgentRows(c.Agent, depth+1)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	tree := m.store.Execution()
	if tree == nil || tree.Root == nil {
		return "No trace loaded.\n"
	}
	if m.width == 0 {
		return "Loading...\n"
	}

	var main string
	if m.store.CurrentView() == store.ViewTimeline {
		main = m.renderTimeline()
	} else {
		main = m.renderTree()
	}

	detail := m.renderDetail()
	body := lipgloss.JoinHorizontal(lipgloss.Top, main, detail)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar(tree))
}

func (m Model) renderTree() string {
	var b strings.Builder
	for i, r := range m.rows {
		b.WriteString(m.renderRow(r, i == m.cursor))
		b.WriteString("\n")
	}
	width := m.width*2/3 - 4
	return treePanelStyle.Width(width).Height(m.height - 4).Render(b.String())
}

func (m Model) renderRow(r row, selected bool) string {
	indent := strings.Repeat("  ", r.depth)

	if r.tool != nil {
		marker := "·"
		style := toolRowStyle
		if r.tool.IsAgentTool {
			marker = "+"
			style = agentToolRowStyle
		}
		line := fmt.Sprintf("%s%s %s %s [%s]", indent, marker, r.tool.ToolName,
			formatDuration(r.tool.Duration), r.tool.Status)
		if selected {
			return agentRowSelectedStyle.Render(line)
		}
		return style.Render(line)
	}

	a := r.agent
	arrow := "▸"
	if m.store.NodeExpanded(a.ID) {
		arrow = "▾"
	}
	badge := ""
	if a.HasSubtasks && !a.ChildrenLoaded() {
		badge = " …"
	}
	line := fmt.Sprintf("%s%s %s %s %s%s", indent, arrow, statusIcon(a.Status),
		a.Name, formatDuration(a.Duration), badge)
	if selected {
		return agentRowSelectedStyle.Render(line)
	}
	return agentRowStyle.Render(line)
}

// renderTimeline draws one text lane per timeline row, blocks scaled to
// the tree's total duration.
func (m Model) renderTimeline() string {
	tl := m.store.Timeline()
	width := m.width*2/3 - 4
	if tl == nil || len(tl.Agents) == 0 {
		return treePanelStyle.Width(width).Height(m.height - 4).Render("No timeline.")
	}

	laneWidth := width - 2
	if laneWidth < 10 {
		laneWidth = 10
	}
	total := tl.TotalDuration
	if total <= 0 {
		total = time.Millisecond
	}

	maxRow := 0
	for _, ta := range tl.Agents {
		if ta.Row > maxRow {
			maxRow = ta.Row
		}
	}

	lanes := make([][]rune, maxRow+1)
	for i := range lanes {
		lanes[i] = []rune(strings.Repeat("·", laneWidth))
	}

	for _, ta := range tl.Agents {
		start := int(int64(laneWidth) * int64(ta.Offset) / int64(total))
		span := int(int64(laneWidth) * int64(ta.Width) / int64(total))
		if span < 1 {
			span = 1
		}
		for i := start; i < start+span && i < laneWidth; i++ {
			lanes[ta.Row][i] = '█'
		}
	}

	var b strings.Builder
	for _, ta := range tl.Agents {
		label := fmt.Sprintf("%s (row %d, +%s)", ta.Agent.Name, ta.Row, formatDuration(ta.Offset))
		b.WriteString(blockStyle(ta.Agent.Status).Render(label))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, lane := range lanes {
		b.WriteString(laneBlockStyle.Render(string(lane)))
		b.WriteString("\n")
	}

	return treePanelStyle.Width(width).Height(m.height - 4).Render(b.String())
}

func (m Model) renderDetail() string {
	width := m.width/3 - 4
	var b strings.Builder

	if a := m.store.SelectedAgent(); a != nil {
		b.WriteString(detailLabelStyle.Render("Agent") + "  " + a.Name + "\n")
		b.WriteString(detailLabelStyle.Render("Status") + " " + renderStatus(a.Status) + "\n")
		b.WriteString(detailLabelStyle.Render("Level") + fmt.Sprintf("  %d\n", a.Level))
		b.WriteString(detailLabelStyle.Render("Time") + "   " + formatDuration(a.Duration) + "\n")
		b.WriteString(detailLabelStyle.Render("Rate") + fmt.Sprintf("   %.0f%%\n", a.SuccessRate))
		if files := trace.FilesChanged(a); len(files) > 0 {
			b.WriteString("\n" + detailLabelStyle.Render("Files changed") + "\n")
			for _, f := range files {
				b.WriteString("  " + f + "\n")
			}
		}
		if a.Output != "" {
			b.WriteString("\n" + detailLabelStyle.Render("Output") + "\n")
			b.WriteString(truncate(a.Output, 500) + "\n")
		}
	} else if inv := m.store.SelectedTool(); inv != nil {
		b.WriteString(detailLabelStyle.Render("Tool") + "   " + inv.ToolName + "\n")
		b.WriteString(detailLabelStyle.Render("Status") + " " + renderStatus(inv.Status) + "\n")
		b.WriteString(detailLabelStyle.Render("Time") + "   " + formatDuration(inv.Duration) + "\n")
		if inv.ErrorMessage != "" {
			b.WriteString(errStyle.Render("Error: "+inv.ErrorMessage) + "\n")
		}
		if inv.Parameters != "" {
			b.WriteString("\n" + detailLabelStyle.Render("Parameters") + "\n")
			b.WriteString(highlightJSON(truncate(inv.Parameters, 1000)) + "\n")
		}
		if inv.Result != "" {
			b.WriteString("\n" + detailLabelStyle.Render("Result") + "\n")
			b.WriteString(highlightJSON(truncate(inv.Result, 1000)) + "\n")
		}
	} else {
		b.WriteString(helpStyle.Render("Nothing selected."))
	}

	return detailPanelStyle.Width(width).Height(m.height - 4).Render(b.String())
}

func (m Model) renderStatusBar(tree *model.ExecutionTree) string {
	bar := fmt.Sprintf(" %d agents · %d tools · %.0f%% · %s ",
		tree.TotalAgents, tree.TotalTools, tree.SuccessRate, formatDuration(tree.TotalDuration))
	if m.lastErr != nil {
		bar += errStyle.Render(" refresh failed: " + m.lastErr.Error())
	}
	if m.showHelp {
		bar += helpStyle.Render(" ↑/↓ move · enter expand · v view · r refresh · q quit")
	}
	return statusBarStyle.Width(m.width).Render(bar)
}

func renderStatus(s model.ExecutionStatus) string {
	switch s {
	case model.StatusCompleted:
		return statusCompletedStyle.Render(string(s))
	case model.StatusFailed:
		return statusFailedStyle.Render(string(s))
	case model.StatusRunning:
		return statusRunningStyle.Render(string(s))
	default:
		return statusPendingStyle.Render(string(s))
	}
}

func statusIcon(s model.ExecutionStatus) string {
	switch s {
	case model.StatusCompleted:
		return statusCompletedStyle.Render("✓")
	case model.StatusFailed:
		return statusFailedStyle.Render("✗")
	case model.StatusRunning:
		return statusRunningStyle.Render("▶")
	default:
		return statusPendingStyle.Render("○")
	}
}

func blockStyle(s model.ExecutionStatus) lipgloss.Style {
	switch s {
	case model.StatusFailed:
		return laneBlockFailedStyle
	case model.StatusRunning:
		return laneBlockRunningStyle
	default:
		return laneBlockStyle
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
