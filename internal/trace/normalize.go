package trace

import (
	"strings"

	"github.com/sprite-ai/agtrace/internal/model"
)

// MetaAgentName is the metadata key carrying a human-readable agent name,
// when the backend sets one.
const MetaAgentName = "agent_name"

// fallbackAgentName is used when neither metadata nor user input names the task.
const fallbackAgentName = "Agent"

// NormalizeSteps maps a task's raw steps into typed tool invocations.
// Source order is display order; nothing is re-sorted. A step without an
// end time is still running and its duration is measured against now.
func NormalizeSteps(taskID string, steps []model.RawStep) []model.ToolInvocation {
	invocations := make([]model.ToolInvocation, 0, len(steps))
	now := timeNow()

	for _, step := range steps {
		end := now
		if step.EndTime != nil {
			end = *step.EndTime
		}

		invocations = append(invocations, model.ToolInvocation{
			ID:           step.ID,
			ToolName:     step.Name,
			Description:  step.Name,
			Parameters:   step.InputData,
			Result:       step.OutputData,
			Status:       model.ParseStatus(step.Status),
			StartTime:    step.StartTime,
			EndTime:      end,
			Duration:     end.Sub(step.StartTime),
			ErrorMessage: step.ErrorMessage,
			IsAgentTool:  strings.EqualFold(step.Name, SpawnToolName),
			TaskID:       taskID,
		})
	}

	return invocations
}

// BuildAgent constructs an agent node from one task record and its
// normalized tool invocations. The success rate here is a leaf value
// (100 for completed, 0 otherwise); weighted averaging over descendants
// happens in the stats package.
func BuildAgent(task *model.RawTask, invocations []model.ToolInvocation) *model.Agent {
	name := task.Metadata[MetaAgentName]
	if name == "" {
		name = task.UserInput
	}
	if name == "" {
		name = fallbackAgentName
	}

	level := task.Level
	if level == 0 {
		level = 1 // root agents are level 1
	}

	status := model.ParseStatus(task.Status)

	end := timeNow()
	if task.CompletedAt != nil {
		end = *task.CompletedAt
	}

	var rate float64
	if status == model.StatusCompleted {
		rate = 100
	}

	hasSubtasks := false
	for _, inv := range invocations {
		if inv.IsAgentTool {
			hasSubtasks = true
			break
		}
	}

	return &model.Agent{
		ID:              task.ID,
		Name:            name,
		TaskDescription: task.UserInput,
		Status:          status,
		Level:           level,
		StartTime:       task.CreatedAt,
		EndTime:         end,
		Duration:        end.Sub(task.CreatedAt),
		ToolInvocations: invocations,
		SuccessRate:     rate,
		Output:          task.ResultSummary,
		TaskID:          task.ID,
		HasSubtasks:     hasSubtasks,
		Metadata:        task.Metadata,
	}
}
