package trace

import "github.com/sprite-ai/agtrace/internal/model"

// FindAgent returns the agent with the given id, searching depth-first
// across all children regardless of origin. Returns nil when absent; a
// vanished id after a refresh is "nothing selected", not an error.
func FindAgent(root *model.Agent, id string) *model.Agent {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, c := range root.Children {
		if found := FindAgent(c.Agent, id); found != nil {
			return found
		}
	}
	return nil
}

// FindInvocation returns the tool invocation with the given id anywhere in
// the tree, or nil.
func FindInvocation(root *model.Agent, id string) *model.ToolInvocation {
	if root == nil {
		return nil
	}
	for i := range root.ToolInvocations {
		if root.ToolInvocations[i].ID == id {
			return &root.ToolInvocations[i]
		}
	}
	for _, c := range root.Children {
		if found := FindInvocation(c.Agent, id); found != nil {
			return found
		}
	}
	return nil
}

// Flatten returns every agent in the tree, depth-first from the root.
func Flatten(root *model.Agent) []*model.Agent {
	if root == nil {
		return nil
	}
	agents := []*model.Agent{root}
	for _, c := range root.Children {
		agents = append(agents, Flatten(c.Agent)...)
	}
	return agents
}
