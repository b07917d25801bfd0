package model

import "time"

// Protocol roles.
const (
	RoleAsk      = "ask"
	RoleCritique = "critique"
	RoleVote     = "vote"
)

// Vote decisions.
const (
	DecisionApprove = "approve"
	DecisionRevise  = "revise"
	DecisionDefer   = "defer"
)

// Exchange is one protocol turn by one participant. Content and Signature are
// deterministic functions of the inputs; Timestamp is wall clock and is not
// part of the signed material.
type Exchange struct {
	Participant string                 `json:"participant"`
	Role        string                 `json:"role"`
	Content     string                 `json:"content"`
	Signature   string                 `json:"signature"`
	Advisory    bool                   `json:"advisory"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// JobView is the per-job projection carried in a CycleSnapshot.
type JobView struct {
	ID           string                 `json:"id"`
	Priority     int                    `json:"priority"`
	Requirements []string               `json:"requirements"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	PromptHash   string                 `json:"prompt_hash"`
}

// CycleSnapshot is the return value of one scheduler cycle. Assignments map
// job ids to node ids; a missing/empty value means no node was eligible.
type CycleSnapshot struct {
	Timestamp        time.Time                     `json:"timestamp"`
	Assignments      map[string]string             `json:"assignments"`
	TrustVector      map[string]float64            `json:"trust_vector"`
	AffectMatrix     map[string]map[string]float64 `json:"affect_matrix"`
	SessionSummaries map[string][]Exchange         `json:"session_summaries"`
	Jobs             []JobView                     `json:"jobs"`
}
