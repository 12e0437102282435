// Package assignment coordinates the one-to-one workflow between catalog
// agents and researchers: availability checks, the registration saga with
// compensation, and documentation completion.
package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tribu-ai/catalog-backend/internal/github"
	"github.com/tribu-ai/catalog-backend/internal/models"
)

// ErrAgentNotFound distinguishes "agent does not exist" from "agent exists
// but is taken" in availability checks.
var ErrAgentNotFound = errors.New("agent not found")

// Constraint names from the schema, used to translate integrity violations
// into validation outcomes.
const (
	constraintResearcherEmail  = "researchers_email_key"
	constraintActiveAssignment = "agent_assignments_active_agent_idx"
)

// Kind tags a failure outcome. Expected failures are outcomes, not errors:
// the HTTP layer maps kinds to status codes.
type Kind string

const (
	KindMissingField       Kind = "missing_field"
	KindEmailExists        Kind = "email_exists"
	KindIdentityUnverified Kind = "identity_unverified"
	KindAgentNotFound      Kind = "agent_not_found"
	KindAgentAssigned      Kind = "agent_assigned"
	KindAssignmentFailed   Kind = "assignment_failed"
	KindNoActiveAssignment Kind = "no_active_assignment"
	KindInternal           Kind = "internal"
)

// RegisteredResearcher is the success payload of the registration saga.
type RegisteredResearcher struct {
	models.Researcher
	AgentID string `json:"agentId"`
	Status  string `json:"status"`
}

// Result is the structured outcome of a coordinator operation.
type Result struct {
	Success    bool                  `json:"success"`
	Kind       Kind                  `json:"kind,omitempty"`
	Message    string                `json:"message,omitempty"`
	Field      string                `json:"field,omitempty"`
	Researcher *RegisteredResearcher `json:"data,omitempty"`
	Holder     *Holder               `json:"current_assignment,omitempty"`
}

func failure(kind Kind, message, field string) *Result {
	return &Result{Kind: kind, Message: message, Field: field}
}

// Availability reports whether an agent can be assigned, with the current
// holder attached when it cannot.
type Availability struct {
	Available         bool    `json:"available"`
	CurrentAssignment *Holder `json:"current_assignment,omitempty"`
}

// RegisterInput is the registration request after HTTP decoding.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	AgentID         string `json:"agent_id"`
	GithubUsername  string `json:"github_username"`
	LinkedinProfile string `json:"linkedin_profile"`
}

// DocumentationInput is the completion request for an assigned pair.
type DocumentationInput struct {
	AgentID         string          `json:"agent_id"`
	ResearcherID    string          `json:"researcher_id"`
	Findings        string          `json:"findings"`
	Recommendations string          `json:"recommendations"`
	Summary         string          `json:"summary"`
	ResearchData    json.RawMessage `json:"research_data"`
}

// Store is the persistence surface the coordinator needs.
type Store interface {
	AgentExists(ctx context.Context, agentID string) (bool, error)
	ActiveAssignment(ctx context.Context, agentID string) (*Holder, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	InsertResearcher(ctx context.Context, res *models.Researcher) error
	DeleteResearcher(ctx context.Context, id string) error
	InsertAssignment(ctx context.Context, researcherID, agentID string) error
	CompleteDocumentation(ctx context.Context, agentID, researcherID string, doc *models.Documentation) error
}

// Verifier resolves an external identity to its profile.
type Verifier interface {
	FetchUser(ctx context.Context, username string) (*github.UserProfile, error)
}

type Service interface {
	CheckAvailability(ctx context.Context, agentID string) (*Availability, error)
	RegisterResearcher(ctx context.Context, input RegisterInput) *Result
	CompleteDocumentation(ctx context.Context, input DocumentationInput) *Result
}

type service struct {
	store    Store
	verifier Verifier
	log      *slog.Logger
}

func NewService(store Store, verifier Verifier, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, verifier: verifier, log: log}
}

var _ Service = (*service)(nil)

// CheckAvailability returns whether the agent can take a new active
// assignment. ErrAgentNotFound is returned for unknown identifiers so
// callers can distinguish it from "taken".
func (s *service) CheckAvailability(ctx context.Context, agentID string) (*Availability, error) {
	exists, err := s.store.AgentExists(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrAgentNotFound
	}
	holder, err := s.store.ActiveAssignment(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		return &Availability{Available: false, CurrentAssignment: holder}, nil
	}
	return &Availability{Available: true}, nil
}

// RegisterResearcher drives the registration saga. Each step short-circuits
// with a structured outcome. Steps run as independent statements; the
// database's unique constraints are the last line of defense against races,
// and a partial success (researcher inserted, assignment failed) is unwound
// by a compensating delete.
func (s *service) RegisterResearcher(ctx context.Context, input RegisterInput) *Result {
	// Step 1: required fields.
	for _, f := range []struct{ name, value string }{
		{"name", input.Name},
		{"email", input.Email},
		{"agent_id", input.AgentID},
		{"github_username", input.GithubUsername},
	} {
		if f.value == "" {
			return failure(KindMissingField, "missing required field: "+f.name, f.name)
		}
	}

	// Step 2: email uniqueness pre-check. Not atomic with the insert in
	// step 5, which re-checks via the unique constraint.
	exists, err := s.store.EmailExists(ctx, input.Email)
	if err != nil {
		return s.internal("email pre-check failed", err)
	}
	if exists {
		return failure(KindEmailExists, "a researcher with this email already exists", "email")
	}

	// Step 3: external identity verification. Provider errors and unknown
	// users both fail the saga; registration never proceeds unverified.
	profile, err := s.verifier.FetchUser(ctx, input.GithubUsername)
	if err != nil {
		s.log.Warn("identity verification failed",
			"github_username", input.GithubUsername, "error", err)
		return failure(KindIdentityUnverified,
			"could not verify the GitHub user; check that the account exists", "github_username")
	}

	// Step 4: agent availability.
	avail, err := s.CheckAvailability(ctx, input.AgentID)
	if errors.Is(err, ErrAgentNotFound) {
		return failure(KindAgentNotFound, "agent not found", "agent_id")
	}
	if err != nil {
		return s.internal("availability check failed", err)
	}
	if !avail.Available {
		r := failure(KindAgentAssigned, "agent is already assigned", "agent_id")
		r.Holder = avail.CurrentAssignment
		return r
	}

	// Step 5: insert the researcher. A unique violation here lost the race
	// with a concurrent registration using the same email.
	res := &models.Researcher{
		ID:              uuid.NewString(),
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		GithubUsername:  input.GithubUsername,
		AvatarURL:       profile.AvatarURL,
		RepositoryURL:   profile.HTMLURL,
		LinkedinProfile: input.LinkedinProfile,
	}
	if err := s.store.InsertResearcher(ctx, res); err != nil {
		if isUniqueViolation(err, constraintResearcherEmail) {
			return failure(KindEmailExists, "a researcher with this email already exists", "email")
		}
		return s.internal("researcher insert failed", err)
	}

	// Step 6: create the active assignment. The partial unique index makes
	// this the authoritative availability check under concurrency; losing
	// the race surfaces as a unique violation. Any failure here leaves an
	// orphaned researcher row, which must be compensated away.
	if err := s.store.InsertAssignment(ctx, res.ID, input.AgentID); err != nil {
		compensated := true
		if delErr := s.store.DeleteResearcher(ctx, res.ID); delErr != nil {
			compensated = false
			s.log.Error("compensating researcher delete failed",
				"researcher_id", res.ID, "error", delErr, "original_error", err)
		}
		var r *Result
		if isUniqueViolation(err, constraintActiveAssignment) {
			r = failure(KindAgentAssigned, "agent was assigned concurrently", "agent_id")
			if holder, hErr := s.store.ActiveAssignment(ctx, input.AgentID); hErr == nil {
				r.Holder = holder
			}
		} else {
			s.log.Error("assignment insert failed", "agent_id", input.AgentID, "error", err)
			r = failure(KindAssignmentFailed, "could not assign the agent", "")
		}
		if !compensated {
			r.Message += "; cleanup of the created researcher also failed"
		}
		return r
	}

	return &Result{
		Success: true,
		Message: "successfully created researcher and assigned agent",
		Researcher: &RegisteredResearcher{
			Researcher: *res,
			AgentID:    input.AgentID,
			Status:     "assigned",
		},
	}
}

// CompleteDocumentation records the documentation artifact and transitions
// the pair's active assignment to completed.
func (s *service) CompleteDocumentation(ctx context.Context, input DocumentationInput) *Result {
	if input.AgentID == "" {
		return failure(KindMissingField, "missing required field: agent_id", "agent_id")
	}
	if input.ResearcherID == "" {
		return failure(KindMissingField, "missing required field: researcher_id", "researcher_id")
	}
	doc := &models.Documentation{
		Findings:        input.Findings,
		Recommendations: input.Recommendations,
		Summary:         input.Summary,
		ResearchData:    input.ResearchData,
	}
	err := s.store.CompleteDocumentation(ctx, input.AgentID, input.ResearcherID, doc)
	if errors.Is(err, ErrNoActiveAssignment) {
		return failure(KindNoActiveAssignment,
			"no active assignment exists for this agent and researcher", "")
	}
	if err != nil {
		return s.internal("documentation completion failed", err)
	}
	return &Result{Success: true, Message: "documentation recorded"}
}

// internal logs the underlying error and returns an opaque outcome; raw
// error text never reaches the caller.
func (s *service) internal(msg string, err error) *Result {
	s.log.Error(msg, "error", err)
	return failure(KindInternal, "internal error", "")
}
