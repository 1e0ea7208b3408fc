package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sprite-ai/agtrace/internal/model"
)

// Snapshot is the serializable form of the store state. Set-valued fields
// are represented as sorted arrays so encoded snapshots are stable.
type Snapshot struct {
	Execution       *model.ExecutionTree `json:"execution,omitempty"`
	SelectedAgentID string               `json:"selected_agent_id,omitempty"`
	ExpandedNodes   []string             `json:"expanded_nodes,omitempty"`
	ExpandedTools   []string             `json:"expanded_tools,omitempty"`
	CurrentView     View                 `json:"current_view"`
}

// Persister stores snapshots durably. Save is called after every state
// change; Load returns nil when no snapshot exists yet.
type Persister interface {
	Save(snap Snapshot) error
	Load() (*Snapshot, error)
}

// snapshotLocked builds a Snapshot from the current state. Caller holds mu.
func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Execution:       s.state.Execution,
		SelectedAgentID: s.state.SelectedAgentID,
		ExpandedNodes:   sortedKeys(s.state.ExpandedNodes),
		ExpandedTools:   sortedKeys(s.state.ExpandedTools),
		CurrentView:     s.state.CurrentView,
	}
}

// Snapshot returns the current serializable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Restore rehydrates the store from a snapshot, converting the persisted
// arrays back into sets and regenerating the timeline.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Execution = snap.Execution
	s.state.Timeline = layout(snap.Execution)
	s.state.SelectedAgentID = snap.SelectedAgentID
	s.state.SelectedToolID = ""
	s.state.SelectedItemType = ItemNone
	if snap.SelectedAgentID != "" {
		s.state.SelectedItemType = ItemAgent
	}
	s.state.ExpandedNodes = toSet(snap.ExpandedNodes)
	s.state.ExpandedTools = toSet(snap.ExpandedTools)
	s.state.CurrentView = snap.CurrentView
	if s.state.CurrentView == "" {
		s.state.CurrentView = ViewTree
	}
	s.state.Generation++
}

// RestoreFromPersister loads and applies the persisted snapshot, if any.
func (s *Store) RestoreFromPersister() error {
	if s.persister == nil {
		return nil
	}
	snap, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if snap == nil {
		return nil
	}
	s.Restore(*snap)
	return nil
}

// EncodeSnapshot serializes a snapshot to JSON.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeSnapshot deserializes a snapshot from JSON.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// MemoryPersister keeps the latest snapshot in memory; used in tests and
// when no durable path is configured.
type MemoryPersister struct {
	data []byte
}

func (p *MemoryPersister) Save(snap Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	p.data = data
	return nil
}

func (p *MemoryPersister) Load() (*Snapshot, error) {
	if p.data == nil {
		return nil, nil
	}
	return DecodeSnapshot(p.data)
}
