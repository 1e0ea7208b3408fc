// Package model defines the core data types shared across agtrace.
package model

import (
	"strings"
	"time"
)

// ExecutionStatus is the lifecycle state of a task or tool invocation.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
)

// ParseStatus normalizes a backend status string. Unknown values map to
// pending rather than erroring; backends have been observed to report
// transitional states in mixed case.
func ParseStatus(s string) ExecutionStatus {
	switch strings.ToLower(s) {
	case "running":
		return StatusRunning
	case "completed":
		return StatusCompleted
	case "failed":
		return StatusFailed
	default:
		return StatusPending
	}
}

// Terminal reports whether the status is a final state.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ToolInvocation is one recorded action taken during a task's execution.
type ToolInvocation struct {
	ID           string          `json:"id"`
	ToolName     string          `json:"tool_name"`
	Description  string          `json:"description,omitempty"`
	Parameters   string          `json:"parameters,omitempty"`
	Result       string          `json:"result,omitempty"`
	Status       ExecutionStatus `json:"status"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
	Duration     time.Duration   `json:"duration"`
	ErrorMessage string          `json:"error_message,omitempty"`
	IsAgentTool  bool            `json:"is_agent_tool"`
	TaskID       string          `json:"task_id"`
}

// ChildOrigin tags how a child agent entered the tree.
type ChildOrigin int

const (
	// OriginNested marks children that arrived with the parent's own fetch.
	OriginNested ChildOrigin = iota
	// OriginSpawned marks children attached lazily from an agent-tool step.
	OriginSpawned
)

func (o ChildOrigin) String() string {
	if o == OriginSpawned {
		return "spawned"
	}
	return "nested"
}

// Child is one entry in an agent's ownership-tagged child list. Spawned
// children record the agent-tool step that produced them; one agent can
// spawn from several steps, and each step's set is replaced independently
// on re-expansion.
type Child struct {
	Agent  *Agent      `json:"agent"`
	Origin ChildOrigin `json:"origin"`
	StepID string      `json:"step_id,omitempty"`
}

// Agent represents one task: a unit of agent work and its direct tool
// invocations. Level is 1-based nesting depth as reported by the backend,
// never computed locally.
type Agent struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	TaskDescription string            `json:"task_description,omitempty"`
	Status          ExecutionStatus   `json:"status"`
	Level           int               `json:"level"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	Duration        time.Duration     `json:"duration"`
	ToolInvocations []ToolInvocation  `json:"tool_invocations"`
	Children        []Child           `json:"children,omitempty"`
	SuccessRate     float64           `json:"success_rate"`
	Output          string            `json:"output,omitempty"`
	TaskID          string            `json:"task_id"`
	HasSubtasks     bool              `json:"has_subtasks"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// SpawnedChildren returns the lazily attached children, in attach order.
func (a *Agent) SpawnedChildren() []*Agent {
	var out []*Agent
	for _, c := range a.Children {
		if c.Origin == OriginSpawned {
			out = append(out, c.Agent)
		}
	}
	return out
}

// ChildrenLoaded reports whether any spawned children have been attached.
// HasSubtasks must not be used for this: it only says the agent ran
// agent-tool steps, not that their results were fetched.
func (a *Agent) ChildrenLoaded() bool {
	for _, c := range a.Children {
		if c.Origin == OriginSpawned {
			return true
		}
	}
	return false
}

// ExecutionTree is the root wrapper around one task's reconstructed trace.
type ExecutionTree struct {
	ID            string        `json:"id"`
	Root          *Agent        `json:"root"`
	TotalDuration time.Duration `json:"total_duration"`
	TotalAgents   int           `json:"total_agents"`
	TotalTools    int           `json:"total_tools"`
	SuccessRate   float64       `json:"success_rate"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	CreatedAt     time.Time     `json:"created_at"`
	ResultSummary string        `json:"result_summary,omitempty"`
}

// LevelStatistics is a per-depth rollup across every agent at one level.
type LevelStatistics struct {
	Level         int           `json:"level"`
	AgentCount    int           `json:"agent_count"`
	ToolCount     int           `json:"tool_count"`
	AvgDuration   time.Duration `json:"avg_duration"`
	SuccessRate   float64       `json:"success_rate"`
	TotalDuration time.Duration `json:"total_duration"`
}

// TimelineAgent is one agent placed in a concurrency-aware lane layout.
type TimelineAgent struct {
	Agent  *Agent        `json:"agent"`
	Row    int           `json:"row"`
	Offset time.Duration `json:"offset"`
	Width  time.Duration `json:"width"`
}

// ExecutionTimeline is the time-ordered layout for one execution tree.
type ExecutionTimeline struct {
	Agents        []TimelineAgent `json:"agents"`
	MinTime       time.Time       `json:"min_time"`
	MaxTime       time.Time       `json:"max_time"`
	TotalDuration time.Duration   `json:"total_duration"`
}
