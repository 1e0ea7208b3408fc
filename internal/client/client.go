// Package client implements the HTTP transport to an agent backend. It is
// the concrete trace.Fetcher; the engine itself never sees HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sprite-ai/agtrace/internal/model"
)

// Client fetches task and step records over HTTP+JSON.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a backend client. Timeout of zero means 30 seconds.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchTaskWithSteps returns one task record with its flat steps.
func (c *Client) FetchTaskWithSteps(ctx context.Context, taskID string) (*model.RawTask, error) {
	var task model.RawTask
	path := fmt.Sprintf("/api/tasks/%s?include_steps=true", url.PathEscape(taskID))
	if err := c.get(ctx, path, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// FetchSubtasks returns the child tasks created by the given step.
func (c *Client) FetchSubtasks(ctx context.Context, taskID, stepID string) ([]model.RawTask, error) {
	var resp struct {
		Subtasks []model.RawTask `json:"subtasks"`
	}
	path := fmt.Sprintf("/api/tasks/%s/subtasks?step_id=%s",
		url.PathEscape(taskID), url.QueryEscape(stepID))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Subtasks, nil
}

// FetchSessionTasks returns one page of a session's task list.
func (c *Client) FetchSessionTasks(ctx context.Context, sessionID string, limit, offset int) (*model.RawTaskPage, error) {
	var page model.RawTaskPage
	path := fmt.Sprintf("/api/sessions/%s/tasks?limit=%d&offset=%d",
		url.PathEscape(sessionID), limit, offset)
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: backend returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}
