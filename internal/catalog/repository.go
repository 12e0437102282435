package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tribu-ai/catalog-backend/internal/database"
	"github.com/tribu-ai/catalog-backend/internal/models"
)

// Repository persists catalog records through the pooled executor, so every
// statement runs in its own retried transaction.
type Repository struct {
	db *database.Manager
}

func NewRepository(db *database.Manager) *Repository {
	return &Repository{db: db}
}

// upsertColumns are the insert columns of the bulk statement, in order.
// created_at and updated_at come from column defaults on fresh insert.
var upsertColumns = []string{
	"id", "name", "created_by", "website", "access", "pricing_model",
	"category", "industry", "short_description", "long_description",
	"key_features", "use_cases", "tags", "logo", "logo_file_name",
	"image", "image_file_name", "video", "upvotes", "upvoters",
	"approved", "slug", "version", "featured",
}

// buildUpsert renders the multi-row upsert for n records. On a name conflict
// every mutable column is overwritten and updated_at refreshed; id and
// created_at stay untouched so the original identity and creation time
// survive re-ingestion.
func buildUpsert(n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ai_agents (")
	b.WriteString(strings.Join(upsertColumns, ", "))
	b.WriteString(") VALUES ")
	cols := len(upsertColumns)
	for row := 0; row < n; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for col := 0; col < cols; col++ {
			if col > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", row*cols+col+1)
		}
		b.WriteString(")")
	}
	b.WriteString(" ON CONFLICT (name) DO UPDATE SET ")
	first := true
	for _, c := range upsertColumns {
		if c == "id" || c == "name" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", c, c)
	}
	b.WriteString(", updated_at = now()")
	return b.String()
}

// UpsertAgents inserts all records in one statement. All-or-nothing: a
// failure not tied to an individual row fails the whole batch.
func (r *Repository) UpsertAgents(ctx context.Context, agents []models.Agent) error {
	if len(agents) == 0 {
		return nil
	}
	args := make([]any, 0, len(agents)*len(upsertColumns))
	for _, a := range agents {
		args = append(args,
			a.ID, a.Name, a.CreatedBy, a.Website, a.Access, a.PricingModel,
			a.Category, a.Industry, a.ShortDescription, a.LongDescription,
			a.KeyFeatures, a.UseCases, a.Tags, a.Logo, a.LogoFileName,
			a.Image, a.ImageFileName, a.Video, a.Upvotes, a.Upvoters,
			a.Approved, a.Slug, a.Version, a.Featured,
		)
	}
	return r.db.Exec(ctx, buildUpsert(len(agents)), args...)
}

// ListParams filter and paginate the agent listing. Filters are conjunctive;
// Search matches name and short description case-insensitively.
type ListParams struct {
	Page     int
	PageSize int
	Category string
	Industry string
	Search   string
}

// AssignmentInfo describes the active holder of an assigned agent.
type AssignmentInfo struct {
	AssignedTo    string    `json:"assigned_to"`
	AssignedEmail string    `json:"assigned_email"`
	AssignedAt    time.Time `json:"assigned_at"`
}

// AgentListItem is a catalog row plus its active-assignment state.
type AgentListItem struct {
	models.Agent
	IsAssigned     bool            `json:"is_assigned"`
	AssignmentInfo *AssignmentInfo `json:"assignment_info,omitempty"`
}

// AgentPage is one page of the catalog listing.
type AgentPage struct {
	Items      []AgentListItem `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
}

// ListAgents returns a filtered, paginated catalog page with active
// assignment details joined in. Filter values are always bound as
// parameters, never interpolated into the statement text.
func (r *Repository) ListAgents(ctx context.Context, p ListParams) (*AgentPage, error) {
	var where []string
	var args []any
	if p.Category != "" {
		args = append(args, p.Category)
		where = append(where, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if p.Industry != "" {
		args = append(args, p.Industry)
		where = append(where, fmt.Sprintf("a.industry = $%d", len(args)))
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		where = append(where, fmt.Sprintf("(a.name ILIKE $%d OR a.short_description ILIKE $%d)", len(args), len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := r.db.QueryRow(ctx, func(row pgx.Row) error {
		return row.Scan(&total)
	}, "SELECT COUNT(*) FROM ai_agents a"+whereSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}

	limitArgs := append(args, p.PageSize, (p.Page-1)*p.PageSize)
	query := `
		SELECT a.id, a.name, a.created_by, a.website, a.access, a.pricing_model,
		       a.category, a.industry, a.short_description, a.long_description,
		       a.key_features, a.use_cases, a.tags, a.logo, a.image, a.video,
		       a.upvotes, a.approved, a.created_at, a.updated_at, a.slug,
		       a.version, a.featured,
		       aa.id IS NOT NULL AS is_assigned,
		       i.name, i.email, aa.assigned_at
		FROM ai_agents a
		LEFT JOIN agent_assignments aa ON a.id = aa.agent_id AND aa.status = 'active'
		LEFT JOIN researchers i ON aa.researcher_id = i.id` +
		whereSQL +
		fmt.Sprintf(" ORDER BY a.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)

	items := make([]AgentListItem, 0, p.PageSize)
	err = r.db.Query(ctx, func(rows pgx.Rows) error {
		for rows.Next() {
			var it AgentListItem
			var holderName, holderEmail *string
			var assignedAt *time.Time
			if err := rows.Scan(
				&it.ID, &it.Name, &it.CreatedBy, &it.Website, &it.Access, &it.PricingModel,
				&it.Category, &it.Industry, &it.ShortDescription, &it.LongDescription,
				&it.KeyFeatures, &it.UseCases, &it.Tags, &it.Logo, &it.Image, &it.Video,
				&it.Upvotes, &it.Approved, &it.CreatedAt, &it.UpdatedAt, &it.Slug,
				&it.Version, &it.Featured,
				&it.IsAssigned, &holderName, &holderEmail, &assignedAt,
			); err != nil {
				return err
			}
			if it.IsAssigned && holderName != nil && holderEmail != nil && assignedAt != nil {
				it.AssignmentInfo = &AssignmentInfo{
					AssignedTo:    *holderName,
					AssignedEmail: *holderEmail,
					AssignedAt:    *assignedAt,
				}
			}
			items = append(items, it)
		}
		return nil
	}, query, limitArgs...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	return &AgentPage{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages(total, p.PageSize),
	}, nil
}

func totalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Metadata lists the distinct non-empty category and industry values.
type Metadata struct {
	Categories []string `json:"categories"`
	Industries []string `json:"industries"`
}

func (r *Repository) Metadata(ctx context.Context) (*Metadata, error) {
	md := &Metadata{Categories: []string{}, Industries: []string{}}
	collect := func(dst *[]string) func(rows pgx.Rows) error {
		return func(rows pgx.Rows) error {
			for rows.Next() {
				var v string
				if err := rows.Scan(&v); err != nil {
					return err
				}
				*dst = append(*dst, v)
			}
			return nil
		}
	}
	if err := r.db.Query(ctx, collect(&md.Categories),
		`SELECT DISTINCT category FROM ai_agents WHERE category IS NOT NULL AND category != '' ORDER BY category`); err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	if err := r.db.Query(ctx, collect(&md.Industries),
		`SELECT DISTINCT industry FROM ai_agents WHERE industry IS NOT NULL AND industry != '' ORDER BY industry`); err != nil {
		return nil, fmt.Errorf("distinct industries: %w", err)
	}
	return md, nil
}

// Stats are the read-only aggregate counts.
type Stats struct {
	TotalAgents       int `json:"total_agents"`
	DocumentedAgents  int `json:"documented_agents"`
	ActiveAssignments int `json:"active_assignments"`
}

func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := r.db.QueryRow(ctx, func(row pgx.Row) error {
		return row.Scan(&st.TotalAgents, &st.DocumentedAgents, &st.ActiveAssignments)
	}, `
		SELECT
			(SELECT COUNT(*) FROM ai_agents),
			(SELECT COUNT(DISTINCT aa.agent_id)
			   FROM agent_assignments aa
			   JOIN agent_documentation d ON d.assignment_id = aa.id
			  WHERE aa.status = 'completed'),
			(SELECT COUNT(*) FROM agent_assignments WHERE status = 'active')
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	return &st, nil
}
