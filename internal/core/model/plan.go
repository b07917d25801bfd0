package model

import "time"

// Plan statuses. A plan only reaches StatusCompleted through an explicit
// MarkCompleted call; completed is terminal.
const (
	StatusPending   = "pending"
	StatusQueued    = "queued"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
)

// Plan is the planner's record of one goal's journey from submission to
// completion. Goal text, not the id, is the de-duplication key during
// planning rounds.
type Plan struct {
	ID           string                 `json:"id"`
	Goal         string                 `json:"goal"`
	JobSpec      map[string]interface{} `json:"job_spec,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	Status       string                 `json:"status"`
	Priority     int                    `json:"priority"`
	AssignedNode string                 `json:"assigned_node,omitempty"`
	Confidence   float64                `json:"confidence"`
	BiasVector   map[string]float64     `json:"bias_vector,omitempty"`
}
