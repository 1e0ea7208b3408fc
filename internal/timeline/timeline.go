// Package timeline assigns execution-tree agents to display lanes so that
// temporally overlapping concurrent work never shares a row.
package timeline

import (
	"errors"

	"github.com/sprite-ai/agtrace/internal/model"
)

// ErrEmptyTree is returned for a tree without a root agent. A well-formed
// tree always has one; callers must guard rather than rely on layout.
var ErrEmptyTree = errors.New("timeline: tree has no root agent")

// Layout flattens the tree breadth-first and assigns each agent the first
// row whose occupants it does not overlap in time, opening a new row when
// none is free. Placement follows BFS order, not start-time order, so the
// row count is a greedy approximation rather than a minimal coloring and
// row numbers depend on sibling order. The no-overlap guarantee holds for
// any order.
func Layout(tree *model.ExecutionTree) (*model.ExecutionTimeline, error) {
	if tree == nil || tree.Root == nil {
		return nil, ErrEmptyTree
	}

	agents := flattenBFS(tree.Root)

	// rows[i] holds the agents already placed in row i.
	var rows [][]*model.Agent
	placed := make([]model.TimelineAgent, 0, len(agents))

	for _, a := range agents {
		row := -1
		for i := range rows {
			if !overlapsAny(a, rows[i]) {
				row = i
				break
			}
		}
		if row == -1 {
			rows = append(rows, nil)
			row = len(rows) - 1
		}
		rows[row] = append(rows[row], a)

		placed = append(placed, model.TimelineAgent{
			Agent:  a,
			Row:    row,
			Offset: a.StartTime.Sub(tree.StartTime),
			Width:  a.Duration,
		})
	}

	return &model.ExecutionTimeline{
		Agents:        placed,
		MinTime:       tree.StartTime,
		MaxTime:       tree.EndTime,
		TotalDuration: tree.EndTime.Sub(tree.StartTime),
	}, nil
}

func flattenBFS(root *model.Agent) []*model.Agent {
	var out []*model.Agent
	queue := []*model.Agent{root}
	for len(queue) > 0 {
		a := queue[0]
		queue = queue[1:]
		out = append(out, a)
		for _, c := range a.Children {
			queue = append(queue, c.Agent)
		}
	}
	return out
}

// overlaps reports whether the half-open intervals [a.Start, a.End) and
// [b.Start, b.End) intersect.
func overlaps(a, b *model.Agent) bool {
	return a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
}

func overlapsAny(a *model.Agent, row []*model.Agent) bool {
	for _, other := range row {
		if overlaps(a, other) {
			return true
		}
	}
	return false
}
