// Package trace reconstructs hierarchical execution trees from the flat
// step streams reported by an agent backend.
package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/stats"
)

// SpawnToolName is the reserved tool identifier for steps that spawn
// nested agents. Matched case-insensitively.
const SpawnToolName = "task"

// timeNow is swapped out in tests.
var timeNow = time.Now

// Fetcher is the backend transport collaborator. Implementations live
// outside the engine; see internal/client for the HTTP one.
type Fetcher interface {
	// FetchTaskWithSteps returns one task record with its flat steps.
	FetchTaskWithSteps(ctx context.Context, taskID string) (*model.RawTask, error)
	// FetchSubtasks returns the child tasks spawned by the given step.
	FetchSubtasks(ctx context.Context, taskID, stepID string) ([]model.RawTask, error)
	// FetchSessionTasks returns one page of a session's task list.
	FetchSessionTasks(ctx context.Context, sessionID string, limit, offset int) (*model.RawTaskPage, error)
}

// Service builds execution trees through a Fetcher.
type Service struct {
	fetcher Fetcher
}

// NewService creates a trace service over the given backend.
func NewService(f Fetcher) *Service {
	return &Service{fetcher: f}
}

// BuildTree fetches a task and reconstructs its root-only execution tree.
// Deeper levels are attached lazily via LoadChildren. A failed root fetch
// is fatal to the view and is returned to the caller.
func (s *Service) BuildTree(ctx context.Context, taskID string) (*model.ExecutionTree, error) {
	task, err := s.fetcher.FetchTaskWithSteps(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("fetching task %s: %w", taskID, err)
	}

	invocations := NormalizeSteps(task.ID, task.Steps)
	root := BuildAgent(task, invocations)

	summary := stats.Aggregate(root)
	return &model.ExecutionTree{
		ID:            uuid.NewString(),
		Root:          root,
		TotalDuration: root.Duration,
		TotalAgents:   summary.AgentCount,
		TotalTools:    summary.ToolCount,
		SuccessRate:   summary.SuccessRate,
		StartTime:     root.StartTime,
		EndTime:       root.EndTime,
		CreatedAt:     timeNow(),
		ResultSummary: task.ResultSummary,
	}, nil
}

// SessionTasks returns one page of a session's task list, normalized to
// status-parsed records.
func (s *Service) SessionTasks(ctx context.Context, sessionID string, limit, offset int) (*model.RawTaskPage, error) {
	page, err := s.fetcher.FetchSessionTasks(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching session %s tasks: %w", sessionID, err)
	}
	return page, nil
}
