package model

import "time"

// NodeState is one scheduling target in the mesh. Trust is the only field the
// scheduler itself mutates; everything else changes through explicit upserts.
type NodeState struct {
	ID              string                 `json:"id"`
	Capabilities    []string               `json:"capabilities"`
	Trust           float64                `json:"trust"`
	Load            float64                `json:"load"`
	AffectTelemetry map[string]float64     `json:"affect_telemetry,omitempty"`
	DreamState      map[string]interface{} `json:"dream_state,omitempty"`
	Attributes      map[string]interface{} `json:"attributes,omitempty"`
	AdvisoryOnly    bool                   `json:"advisory_only"`
	LastUpdated     time.Time              `json:"last_updated"`
}

// HasCapabilities reports whether the node's capability set is a superset of
// the given requirements. An empty requirement list matches every node.
func (n *NodeState) HasCapabilities(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(n.Capabilities))
	for _, c := range n.Capabilities {
		have[c] = true
	}
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}

// NodeUpdate carries the fields of an upsert. Nil pointers / nil maps mean
// "leave unchanged" so partial updates don't clobber existing state.
type NodeUpdate struct {
	Capabilities    []string
	Trust           *float64
	Load            *float64
	AffectTelemetry map[string]float64
	DreamState      map[string]interface{}
	Attributes      map[string]interface{}
	AdvisoryOnly    *bool
}
