package model

import "time"

// Raw backend record shapes, as returned by the transport collaborator.
// The engine never interprets these beyond normalization.

// RawStep is one flat execution step reported by the backend.
type RawStep struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	InputData    string     `json:"input_data,omitempty"`
	OutputData   string     `json:"output_data,omitempty"`
	Status       string     `json:"status"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// RawTask is one task record reported by the backend. Level is optional;
// absent means a root task.
type RawTask struct {
	ID            string            `json:"id"`
	UserInput     string            `json:"user_input,omitempty"`
	Status        string            `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Level         int               `json:"level,omitempty"`
	ResultSummary string            `json:"result_summary,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Steps         []RawStep         `json:"steps,omitempty"`
}

// RawTaskPage is one page of a session's task list.
type RawTaskPage struct {
	Tasks []RawTask `json:"tasks"`
	Total int       `json:"total"`
}
