package models

import (
	"encoding/json"
	"time"
)

// Assignment statuses. At most one active assignment may exist per agent at
// any instant, enforced by a partial unique index on (agent_id) where the
// status is active. A completed assignment does not block a new active one.
const (
	AssignmentStatusActive    = "active"
	AssignmentStatusCompleted = "completed"
)

// Assignment links one researcher to one agent.
type Assignment struct {
	ID           int64     `json:"id"`
	ResearcherID string    `json:"researcherId"`
	AgentID      string    `json:"agentId"`
	AssignedAt   time.Time `json:"assignedAt"`
	Status       string    `json:"status"`
}

// Documentation is the artifact a researcher produces when completing the
// review of an assigned agent. Creating it transitions the assignment to
// completed.
type Documentation struct {
	ID              int64           `json:"id"`
	AssignmentID    int64           `json:"assignmentId"`
	Findings        string          `json:"findings"`
	Recommendations string          `json:"recommendations"`
	Summary         string          `json:"summary"`
	ResearchData    json.RawMessage `json:"researchData,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}
