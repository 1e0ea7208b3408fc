package trace

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sprite-ai/agtrace/internal/model"
)

var testBase = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func at(ms int64) time.Time {
	return testBase.Add(time.Duration(ms) * time.Millisecond)
}

func atPtr(ms int64) *time.Time {
	t := at(ms)
	return &t
}

// fakeFetcher is an in-memory backend for tests.
type fakeFetcher struct {
	tasks     map[string]*model.RawTask
	subtasks  map[string][]model.RawTask // keyed by taskID+"/"+stepID
	failTasks map[string]error
	failSubs  map[string]error
	fetched   []string // task ids in fetch order
}

func (f *fakeFetcher) FetchTaskWithSteps(ctx context.Context, taskID string) (*model.RawTask, error) {
	f.fetched = append(f.fetched, taskID)
	if err := f.failTasks[taskID]; err != nil {
		return nil, err
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return task, nil
}

func (f *fakeFetcher) FetchSubtasks(ctx context.Context, taskID, stepID string) ([]model.RawTask, error) {
	key := taskID + "/" + stepID
	if err := f.failSubs[key]; err != nil {
		return nil, err
	}
	return f.subtasks[key], nil
}

func (f *fakeFetcher) FetchSessionTasks(ctx context.Context, sessionID string, limit, offset int) (*model.RawTaskPage, error) {
	var tasks []model.RawTask
	for _, t := range f.tasks {
		tasks = append(tasks, *t)
	}
	return &model.RawTaskPage{Tasks: tasks, Total: len(tasks)}, nil
}

func fixedNow(t *testing.T, ms int64) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return at(ms) }
	t.Cleanup(func() { timeNow = prev })
}

func TestBuildTreeRootOnly(t *testing.T) {
	fixedNow(t, 10_000)

	f := &fakeFetcher{tasks: map[string]*model.RawTask{
		"t1": {
			ID:        "t1",
			UserInput: "Summarize the repo",
			Status:    "COMPLETED",
			CreatedAt: at(0),
			CompletedAt: atPtr(5000),
			Steps: []model.RawStep{
				{ID: "s1", Name: "read_file", Status: "completed", StartTime: at(0), EndTime: atPtr(100)},
				{ID: "s2", Name: "Task", Status: "completed", StartTime: at(200), EndTime: atPtr(4000)},
			},
		},
	}}

	svc := NewService(f)
	tree, err := svc.BuildTree(context.Background(), "t1")
	if err != nil {
		t.Fatalf("BuildTree failed: %v", err)
	}

	if tree.Root.ID != "t1" {
		t.Errorf("expected root id t1, got %q", tree.Root.ID)
	}
	if tree.Root.Level != 1 {
		t.Errorf("expected default level 1, got %d", tree.Root.Level)
	}
	if !tree.Root.HasSubtasks {
		t.Error("expected HasSubtasks from the Task step")
	}
	if tree.Root.ChildrenLoaded() {
		t.Error("root-only tree must not have loaded children")
	}
	if tree.TotalAgents != 1 || tree.TotalTools != 2 {
		t.Errorf("expected 1 agent / 2 tools, got %d / %d", tree.TotalAgents, tree.TotalTools)
	}
	if tree.TotalDuration != tree.Root.Duration {
		t.Errorf("tree duration %v must equal root duration %v", tree.TotalDuration, tree.Root.Duration)
	}
	if tree.ID == "" {
		t.Error("expected a generated tree id")
	}
}

func TestBuildTreeRootFetchErrorPropagates(t *testing.T) {
	f := &fakeFetcher{
		tasks:     map[string]*model.RawTask{},
		failTasks: map[string]error{"t1": errors.New("backend down")},
	}

	_, err := NewService(f).BuildTree(context.Background(), "t1")
	if err == nil {
		t.Fatal("expected root fetch error to propagate")
	}
}

func TestLoadChildrenStripsGrandchildren(t *testing.T) {
	fixedNow(t, 10_000)

	f := &fakeFetcher{
		tasks: map[string]*model.RawTask{
			"c1": {
				ID: "c1", UserInput: "child one", Status: "completed", Level: 2,
				CreatedAt: at(20), CompletedAt: atPtr(50),
				Steps: []model.RawStep{
					// The child itself spawned subtasks; they must stay unloaded.
					{ID: "cs1", Name: "task", Status: "completed", StartTime: at(25), EndTime: atPtr(45)},
				},
			},
			"c2": {
				ID: "c2", UserInput: "child two", Status: "failed", Level: 2,
				CreatedAt: at(55), CompletedAt: atPtr(80),
			},
		},
		subtasks: map[string][]model.RawTask{
			"t1/s1": {{ID: "c1"}, {ID: "c2"}},
		},
	}

	result := NewService(f).LoadChildren(context.Background(), "t1", "s1")

	if result.Partial() {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if len(result.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(result.Children))
	}
	if result.Children[0].ID != "c1" || result.Children[1].ID != "c2" {
		t.Errorf("children out of request order: %s, %s", result.Children[0].ID, result.Children[1].ID)
	}
	for _, c := range result.Children {
		if len(c.Children) != 0 {
			t.Errorf("child %s kept grandchildren; loads must be one level deep", c.ID)
		}
	}
	if !result.Children[0].HasSubtasks {
		t.Error("c1 ran an agent-tool step, HasSubtasks must survive the strip")
	}
}

func TestLoadChildrenPartialFailure(t *testing.T) {
	fixedNow(t, 10_000)

	f := &fakeFetcher{
		tasks: map[string]*model.RawTask{
			"c2": {ID: "c2", UserInput: "survivor", Status: "completed", Level: 2,
				CreatedAt: at(0), CompletedAt: atPtr(10)},
		},
		subtasks: map[string][]model.RawTask{
			"t1/s1": {{ID: "c1"}, {ID: "c2"}},
		},
		failTasks: map[string]error{"c1": errors.New("timeout")},
	}

	result := NewService(f).LoadChildren(context.Background(), "t1", "s1")

	if len(result.Children) != 1 || result.Children[0].ID != "c2" {
		t.Fatalf("expected only c2 to load, got %+v", result.Children)
	}
	if len(result.Failures) != 1 || result.Failures[0].TaskID != "c1" {
		t.Fatalf("expected c1 recorded as failed, got %+v", result.Failures)
	}
}

func TestLoadChildrenListFetchFailure(t *testing.T) {
	f := &fakeFetcher{
		tasks:    map[string]*model.RawTask{},
		failSubs: map[string]error{"t1/s1": errors.New("boom")},
	}

	result := NewService(f).LoadChildren(context.Background(), "t1", "s1")

	if len(result.Children) != 0 {
		t.Errorf("expected no children, got %d", len(result.Children))
	}
	if !result.Partial() {
		t.Error("list-level failure must be observable in the result")
	}
}

func TestFindAgentAcrossOrigins(t *testing.T) {
	root := &model.Agent{ID: "r", Children: []model.Child{
		{Agent: &model.Agent{ID: "n1"}, Origin: model.OriginNested},
		{Agent: &model.Agent{ID: "s1", Children: []model.Child{
			{Agent: &model.Agent{ID: "s1a"}, Origin: model.OriginSpawned},
		}}, Origin: model.OriginSpawned},
	}}

	for _, id := range []string{"r", "n1", "s1", "s1a"} {
		if got := FindAgent(root, id); got == nil || got.ID != id {
			t.Errorf("FindAgent(%q) = %v", id, got)
		}
	}
	if FindAgent(root, "ghost") != nil {
		t.Error("expected nil for a vanished id")
	}
}
