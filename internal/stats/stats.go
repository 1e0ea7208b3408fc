// Package stats implements statistical rollups over execution trees.
package stats

import (
	"sort"
	"time"

	"github.com/sprite-ai/agtrace/internal/model"
)

// Summary is the recursive rollup for one agent subtree.
type Summary struct {
	AgentCount  int
	ToolCount   int
	SuccessRate float64
}

// Aggregate walks an agent subtree bottom-up, traversing all children
// regardless of origin. The success rate is a count-weighted average: a
// large failing subtree pulls the aggregate down proportionally to its
// size, not just its branch count.
func Aggregate(a *model.Agent) Summary {
	if a == nil {
		return Summary{}
	}

	agentCount := 1
	toolCount := len(a.ToolInvocations)
	weighted := a.SuccessRate

	for _, c := range a.Children {
		child := Aggregate(c.Agent)
		agentCount += child.AgentCount
		toolCount += child.ToolCount
		weighted += child.SuccessRate * float64(child.AgentCount)
	}

	return Summary{
		AgentCount:  agentCount,
		ToolCount:   toolCount,
		SuccessRate: weighted / float64(agentCount),
	}
}

// LevelStats computes one rollup per distinct level present in the tree.
// Unlike Aggregate, the per-level success rate is a flat ratio of the
// agents physically at that level. Levels with no agents are omitted.
func LevelStats(tree *model.ExecutionTree) []model.LevelStatistics {
	if tree == nil || tree.Root == nil {
		return nil
	}

	byLevel := make(map[int][]*model.Agent)
	collect(tree.Root, byLevel)

	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	out := make([]model.LevelStatistics, 0, len(levels))
	for _, level := range levels {
		agents := byLevel[level]

		var tools, completed int
		var total time.Duration
		for _, a := range agents {
			tools += len(a.ToolInvocations)
			total += a.Duration
			if a.Status == model.StatusCompleted {
				completed++
			}
		}

		count := len(agents)
		out = append(out, model.LevelStatistics{
			Level:         level,
			AgentCount:    count,
			ToolCount:     tools,
			AvgDuration:   total / time.Duration(count),
			SuccessRate:   float64(completed) / float64(count) * 100,
			TotalDuration: total,
		})
	}

	return out
}

func collect(a *model.Agent, byLevel map[int][]*model.Agent) {
	byLevel[a.Level] = append(byLevel[a.Level], a)
	for _, c := range a.Children {
		collect(c.Agent, byLevel)
	}
}
