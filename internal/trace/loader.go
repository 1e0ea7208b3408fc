package trace

import (
	"context"
	"log"

	"github.com/sprite-ai/agtrace/internal/model"
)

// ChildFailure records one child task that could not be loaded.
type ChildFailure struct {
	TaskID string
	Err    error
}

// ChildLoadResult carries the outcome of a lazy subtree load: the children
// that loaded, in request order, plus any that failed. Loading is
// best-effort; the view degrades to fewer rows rather than an error screen.
type ChildLoadResult struct {
	Children []*model.Agent
	Failures []ChildFailure
}

// Partial reports whether any child failed to load.
func (r ChildLoadResult) Partial() bool {
	return len(r.Failures) > 0
}

// LoadChildren fetches the child tasks spawned by one agent-tool step and
// builds an agent for each. Grandchildren are stripped from every returned
// agent so the next expansion re-fetches them: the UI loads exactly one
// level per interaction. Failures never propagate past this method.
func (s *Service) LoadChildren(ctx context.Context, taskID, stepID string) ChildLoadResult {
	var result ChildLoadResult

	subtasks, err := s.fetcher.FetchSubtasks(ctx, taskID, stepID)
	if err != nil {
		log.Printf("trace: fetching subtasks of %s step %s: %v", taskID, stepID, err)
		result.Failures = append(result.Failures, ChildFailure{TaskID: taskID, Err: err})
		return result
	}

	// Sequential on purpose: attach order must match request order, and a
	// failing child must not disturb its siblings.
	for _, sub := range subtasks {
		tree, err := s.BuildTree(ctx, sub.ID)
		if err != nil {
			log.Printf("trace: loading child %s: %v", sub.ID, err)
			result.Failures = append(result.Failures, ChildFailure{TaskID: sub.ID, Err: err})
			continue
		}

		child := tree.Root
		child.Children = nil // one level per expansion, always
		result.Children = append(result.Children, child)
	}

	return result
}
