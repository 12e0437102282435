package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tribu-ai/catalog-backend/internal/database"
	"github.com/tribu-ai/catalog-backend/internal/models"
)

// ErrNoActiveAssignment is returned when documentation is submitted for a
// pair without an active assignment.
var ErrNoActiveAssignment = errors.New("no active assignment for agent and researcher")

// Repository persists researchers, assignments and documentation. Single
// statements go through the retried executor; documentation completion is
// the one multi-statement transaction in the system.
type Repository struct {
	db *database.Manager
}

func NewRepository(db *database.Manager) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AgentExists(ctx context.Context, agentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, func(row pgx.Row) error {
		return row.Scan(&exists)
	}, `SELECT EXISTS (SELECT 1 FROM ai_agents WHERE id = $1)`, agentID)
	if err != nil {
		return false, fmt.Errorf("check agent exists: %w", err)
	}
	return exists, nil
}

// ActiveAssignment returns the current holder of the agent's active
// assignment, or nil when the agent is available.
func (r *Repository) ActiveAssignment(ctx context.Context, agentID string) (*Holder, error) {
	var h Holder
	err := r.db.QueryRow(ctx, func(row pgx.Row) error {
		return row.Scan(&h.Name, &h.Email, &h.AssignedAt)
	}, `
		SELECT i.name, i.email, aa.assigned_at
		FROM agent_assignments aa
		JOIN researchers i ON aa.researcher_id = i.id
		WHERE aa.agent_id = $1 AND aa.status = 'active'
	`, agentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup active assignment: %w", err)
	}
	return &h, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, func(row pgx.Row) error {
		return row.Scan(&exists)
	}, `SELECT EXISTS (SELECT 1 FROM researchers WHERE email = $1)`, email)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) InsertResearcher(ctx context.Context, res *models.Researcher) error {
	return r.db.QueryRow(ctx, func(row pgx.Row) error {
		return row.Scan(&res.CreatedAt)
	}, `
		INSERT INTO researchers (id, name, email, phone, github_username, avatar_url, repository_url, linkedin_profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, res.ID, res.Name, res.Email, res.Phone, res.GithubUsername, res.AvatarURL, res.RepositoryURL, res.LinkedinProfile)
}

func (r *Repository) DeleteResearcher(ctx context.Context, id string) error {
	return r.db.Exec(ctx, `DELETE FROM researchers WHERE id = $1`, id)
}

func (r *Repository) InsertAssignment(ctx context.Context, researcherID, agentID string) error {
	return r.db.Exec(ctx, `
		INSERT INTO agent_assignments (researcher_id, agent_id, status)
		VALUES ($1, $2, 'active')
	`, researcherID, agentID)
}

// CompleteDocumentation flips the pair's active assignment to completed and
// records the documentation artifact, atomically.
func (r *Repository) CompleteDocumentation(ctx context.Context, agentID, researcherID string, doc *models.Documentation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin documentation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var assignmentID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM agent_assignments
		WHERE agent_id = $1 AND researcher_id = $2 AND status = 'active'
		FOR UPDATE
	`, agentID, researcherID).Scan(&assignmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoActiveAssignment
	}
	if err != nil {
		return fmt.Errorf("lookup active assignment: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO agent_documentation (assignment_id, findings, recommendations, summary, research_data, status)
		VALUES ($1, $2, $3, $4, $5, 'submitted')
		RETURNING id, created_at
	`, assignmentID, doc.Findings, doc.Recommendations, doc.Summary, doc.ResearchData).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert documentation: %w", err)
	}
	doc.AssignmentID = assignmentID
	doc.Status = "submitted"

	if _, err := tx.Exec(ctx, `
		UPDATE agent_assignments SET status = 'completed' WHERE id = $1
	`, assignmentID); err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}
	return tx.Commit(ctx)
}

// Holder identifies who currently holds an agent, for unavailable outcomes.
type Holder struct {
	Name       string    `json:"investigador_name"`
	Email      string    `json:"investigador_email"`
	AssignedAt time.Time `json:"assigned_at"`
}

// isUniqueViolation reports whether err is a unique-constraint violation,
// optionally on a specific constraint or index.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
