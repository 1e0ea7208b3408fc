package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sort"

	"github.com/gorilla/websocket"

	"github.com/sprite-ai/agtrace/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024 * 64,
	WriteBufferSize: 1024 * 64,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev; restrict in production
	},
}

// WebSocket message types from client.
const (
	wsMsgOpenTrace    = "open_trace"
	wsMsgCloseTrace   = "close_trace"
	wsMsgLoadChildren = "load_children"
	wsMsgSelect       = "select"
	wsMsgToggle       = "toggle"
	wsMsgRefresh      = "refresh"
)

// WebSocket message types to client.
const (
	wsMsgTrace    = "trace"
	wsMsgChildren = "children"
	wsMsgState    = "state"
	wsMsgError    = "error"
)

// wsMessage is the envelope for WebSocket messages in both directions.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsOpenTrace is the payload for "open_trace" and "refresh" messages.
type wsOpenTrace struct {
	TaskID string `json:"task_id"`
}

// wsLoadChildren is the payload for "load_children" messages.
type wsLoadChildren struct {
	TaskID string `json:"task_id"`
	StepID string `json:"step_id"`
}

// wsSelect is the payload for "select" messages.
type wsSelect struct {
	Type string `json:"type"` // "agent" or "tool"
	ID   string `json:"id"`
}

// wsToggle is the payload for "toggle" messages.
type wsToggle struct {
	Kind string `json:"kind"` // "node" or "tool"
	ID   string `json:"id"`
}

// wsStateResponse reflects the connection's UI state after a mutation.
type wsStateResponse struct {
	SelectedAgentID string   `json:"selected_agent_id,omitempty"`
	SelectedToolID  string   `json:"selected_tool_id,omitempty"`
	SelectedType    string   `json:"selected_type,omitempty"`
	ExpandedNodes   []string `json:"expanded_nodes,omitempty"`
	ExpandedTools   []string `json:"expanded_tools,omitempty"`
	View            string   `json:"view"`
}

// traceSession holds the per-connection trace state. Each websocket client
// gets its own store; the trace service is shared.
type traceSession struct {
	taskID string
	store  *store.Store
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	session := &traceSession{store: store.New(nil)}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			sendWSError(conn, "invalid message format")
			continue
		}

		switch msg.Type {
		case wsMsgOpenTrace:
			s.handleWSOpenTrace(conn, r, session, msg.Data)
		case wsMsgCloseTrace:
			session.taskID = ""
			session.store.ClearExecution()
			sendWSState(conn, session)
		case wsMsgLoadChildren:
			s.handleWSLoadChildren(conn, r, session, msg.Data)
		case wsMsgSelect:
			handleWSSelect(conn, session, msg.Data)
		case wsMsgToggle:
			handleWSToggle(conn, session, msg.Data)
		case wsMsgRefresh:
			s.handleWSRefresh(conn, r, session)
		default:
			sendWSError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) handleWSOpenTrace(conn *websocket.Conn, r *http.Request, session *traceSession, data json.RawMessage) {
	var req wsOpenTrace
	if err := json.Unmarshal(data, &req); err != nil || req.TaskID == "" {
		sendWSError(conn, "invalid open_trace data")
		return
	}

	tree, err := s.svc.BuildTree(r.Context(), req.TaskID)
	if err != nil {
		sendWSError(conn, "building trace: "+err.Error())
		return
	}

	session.taskID = req.TaskID
	session.store.SetExecution(tree)

	sendWSMessage(conn, wsMsgTrace, buildTraceResponse(tree))
	sendWSState(conn, session)
}

func (s *Server) handleWSLoadChildren(conn *websocket.Conn, r *http.Request, session *traceSession, data json.RawMessage) {
	if session.store.Execution() == nil {
		sendWSError(conn, "no trace open")
		return
	}

	var req wsLoadChildren
	if err := json.Unmarshal(data, &req); err != nil || req.TaskID == "" || req.StepID == "" {
		sendWSError(conn, "invalid load_children data")
		return
	}

	gen := session.store.Generation()
	result := s.svc.LoadChildren(r.Context(), req.TaskID, req.StepID)
	session.store.AttachChildren(req.TaskID, req.StepID, result, gen)

	resp := childrenResponse{}
	for _, child := range result.Children {
		resp.Children = append(resp.Children, agentToJSON(child))
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, failureJSON{TaskID: f.TaskID, Error: f.Err.Error()})
	}
	sendWSMessage(conn, wsMsgChildren, resp)
}

// handleWSRefresh refetches the open trace and applies it through
// UpdateExecution, so the client's selection and expansion survive.
func (s *Server) handleWSRefresh(conn *websocket.Conn, r *http.Request, session *traceSession) {
	if session.taskID == "" {
		sendWSError(conn, "no trace open")
		return
	}

	tree, err := s.svc.BuildTree(r.Context(), session.taskID)
	if err != nil {
		sendWSError(conn, "refreshing trace: "+err.Error())
		return
	}

	session.store.UpdateExecution(tree)
	sendWSMessage(conn, wsMsgTrace, buildTraceResponse(tree))
	sendWSState(conn, session)
}

func handleWSSelect(conn *websocket.Conn, session *traceSession, data json.RawMessage) {
	var req wsSelect
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid select data")
		return
	}

	switch req.Type {
	case "agent":
		session.store.SelectAgent(req.ID)
	case "tool":
		session.store.SelectTool(req.ID)
	default:
		sendWSError(conn, "unknown selection type: "+req.Type)
		return
	}
	sendWSState(conn, session)
}

func handleWSToggle(conn *websocket.Conn, session *traceSession, data json.RawMessage) {
	var req wsToggle
	if err := json.Unmarshal(data, &req); err != nil {
		sendWSError(conn, "invalid toggle data")
		return
	}

	switch req.Kind {
	case "node":
		session.store.ToggleNodeExpanded(req.ID)
	case "tool":
		session.store.ToggleToolExpanded(req.ID)
	default:
		sendWSError(conn, "unknown toggle kind: "+req.Kind)
		return
	}
	sendWSState(conn, session)
}

// sendWSState reads the state once so the reported fields cannot interleave
// with a concurrent mutation.
func sendWSState(conn *websocket.Conn, session *traceSession) {
	st := session.store.StateCopy()
	sendWSMessage(conn, wsMsgState, wsStateResponse{
		SelectedAgentID: st.SelectedAgentID,
		SelectedToolID:  st.SelectedToolID,
		SelectedType:    string(st.SelectedItemType),
		ExpandedNodes:   sortedIDs(st.ExpandedNodes),
		ExpandedTools:   sortedIDs(st.ExpandedTools),
		View:            string(st.CurrentView),
	})
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sendWSMessage(conn *websocket.Conn, msgType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Printf("ws marshal: %v", err)
		return
	}
	msg := wsMessage{Type: msgType, Data: raw}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws write: %v", err)
	}
}

func sendWSError(conn *websocket.Conn, errMsg string) {
	sendWSMessage(conn, wsMsgError, map[string]string{"message": errMsg})
}
