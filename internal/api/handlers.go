package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/stats"
	"github.com/sprite-ai/agtrace/internal/timeline"
	"github.com/sprite-ai/agtrace/internal/trace"
)

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Session tasks ---

type sessionTasksResponse struct {
	Tasks []taskJSON `json:"tasks"`
	Total int        `json:"total"`
}

type taskJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Level     int    `json:"level"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleSessionTasks(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)

	page, err := s.svc.SessionTasks(r.Context(), sessionID, limit, offset)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetching session tasks: "+err.Error())
		return
	}

	resp := sessionTasksResponse{Total: page.Total}
	for _, t := range page.Tasks {
		name := t.Metadata[trace.MetaAgentName]
		if name == "" {
			name = t.UserInput
		}
		resp.Tasks = append(resp.Tasks, taskJSON{
			ID:        t.ID,
			Name:      name,
			Status:    string(model.ParseStatus(t.Status)),
			Level:     t.Level,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Trace ---

type traceResponse struct {
	Tree     treeJSON      `json:"tree"`
	Levels   []levelJSON   `json:"levels"`
	Timeline *timelineJSON `json:"timeline,omitempty"`
}

type treeJSON struct {
	ID            string    `json:"id"`
	Root          agentJSON `json:"root"`
	TotalAgents   int       `json:"total_agents"`
	TotalTools    int       `json:"total_tools"`
	SuccessRate   float64   `json:"success_rate"`
	DurationMs    int64     `json:"duration_ms"`
	ResultSummary string    `json:"result_summary,omitempty"`
}

type agentJSON struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	Level       int         `json:"level"`
	DurationMs  int64       `json:"duration_ms"`
	SuccessRate float64     `json:"success_rate"`
	HasSubtasks bool        `json:"has_subtasks"`
	Tools       []toolJSON  `json:"tools"`
	Children    []agentJSON `json:"children,omitempty"`
	Files       []string    `json:"files_changed,omitempty"`
}

type toolJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	DurationMs  int64  `json:"duration_ms"`
	IsAgentTool bool   `json:"is_agent_tool"`
	Error       string `json:"error,omitempty"`
}

type levelJSON struct {
	Level         int     `json:"level"`
	AgentCount    int     `json:"agent_count"`
	ToolCount     int     `json:"tool_count"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
	SuccessRate   float64 `json:"success_rate"`
}

type timelineJSON struct {
	TotalDurationMs int64           `json:"total_duration_ms"`
	Agents          []timelineEntry `json:"agents"`
}

type timelineEntry struct {
	AgentID  string `json:"agent_id"`
	Row      int    `json:"row"`
	OffsetMs int64  `json:"offset_ms"`
	WidthMs  int64  `json:"width_ms"`
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskID")

	tree, err := s.svc.BuildTree(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "building trace: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, buildTraceResponse(tree))
}

func buildTraceResponse(tree *model.ExecutionTree) traceResponse {
	resp := traceResponse{
		Tree: treeJSON{
			ID:            tree.ID,
			Root:          agentToJSON(tree.Root),
			TotalAgents:   tree.TotalAgents,
			TotalTools:    tree.TotalTools,
			SuccessRate:   tree.SuccessRate,
			DurationMs:    tree.TotalDuration.Milliseconds(),
			ResultSummary: tree.ResultSummary,
		},
	}

	for _, l := range stats.LevelStats(tree) {
		resp.Levels = append(resp.Levels, levelJSON{
			Level:         l.Level,
			AgentCount:    l.AgentCount,
			ToolCount:     l.ToolCount,
			AvgDurationMs: l.AvgDuration.Milliseconds(),
			SuccessRate:   l.SuccessRate,
		})
	}

	if tl, err := timeline.Layout(tree); err == nil {
		out := &timelineJSON{TotalDurationMs: tl.TotalDuration.Milliseconds()}
		for _, ta := range tl.Agents {
			out.Agents = append(out.Agents, timelineEntry{
				AgentID:  ta.Agent.ID,
				Row:      ta.Row,
				OffsetMs: ta.Offset.Milliseconds(),
				WidthMs:  ta.Width.Milliseconds(),
			})
		}
		resp.Timeline = out
	}

	return resp
}

func agentToJSON(a *model.Agent) agentJSON {
	out := agentJSON{
		ID:          a.ID,
		Name:        a.Name,
		Status:      string(a.Status),
		Level:       a.Level,
		DurationMs:  a.Duration.Milliseconds(),
		SuccessRate: a.SuccessRate,
		HasSubtasks: a.HasSubtasks,
		Files:       trace.FilesChanged(a),
	}
	for _, inv := range a.ToolInvocations {
		out.Tools = append(out.Tools, toolJSON{
			ID:          inv.ID,
			Name:        inv.ToolName,
			Status:      string(inv.Status),
			DurationMs:  inv.Duration.Milliseconds(),
			IsAgentTool: inv.IsAgentTool,
			Error:       inv.ErrorMessage,
		})
	}
	for _, c := range a.Children {
		out.Children = append(out.Children, agentToJSON(c.Agent))
	}
	return out
}

// --- Lazy children ---

type childrenRequest struct {
	StepID string `json:"step_id"`
}

type childrenResponse struct {
	Children []agentJSON   `json:"children"`
	Failures []failureJSON `json:"failures,omitempty"`
}

type failureJSON struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskID")

	var req childrenRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.StepID == "" {
		writeError(w, http.StatusBadRequest, "step_id is required")
		return
	}

	result := s.svc.LoadChildren(r.Context(), taskID, req.StepID)

	resp := childrenResponse{}
	for _, child := range result.Children {
		resp.Children = append(resp.Children, agentToJSON(child))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, failureJSON{TaskID: f.TaskID, Error: f.Err.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func intQuery(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
