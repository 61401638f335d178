package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/query"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// ProfileRepository defines the profile operations beyond plain CRUD
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Search(ctx context.Context, term string, limit int) ([]models.Profile, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error)
	ListExcluding(ctx context.Context, exclude []uuid.UUID, limit int) ([]models.Profile, error)
}

// Repository implements ProfileRepository
type Repository struct {
	*crud.Client[models.Profile, *models.Profile]
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new profile repository
func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.Profile](db, models.ProfilesTable, schema.Profile, logger, opts...),
		db:     db,
		logger: logger,
	}
}

// Search matches term case-insensitively against first name, last name and
// institution. Private profiles are never returned. A blank term matches
// nothing.
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "ProfileRepository.Search")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Profile{}, nil
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.NotEqual("visibility", models.VisibilityPrivate),
	}
	d.AnyOf = [][]query.Filter{{
		query.Contains("first_name", term),
		query.Contains("last_name", term),
		query.Contains("institution", term),
	}}
	d.OrderBy = []query.Order{query.Asc("last_name"), query.Asc("first_name")}
	d.Limit = query.ClampLimit(limit, DefaultSearchLimit, MaxSearchLimit)

	return query.Select[models.Profile](ctx, r.db, d)
}

// ListByIDs returns the profiles that exist among ids, in no particular order.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "ProfileRepository.ListByIDs")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.In("id", query.Values(ids)...),
	}
	return query.Select[models.Profile](ctx, r.db, d)
}

// ListExcluding returns the newest non-private profiles whose ids are not in exclude.
func (r *Repository) ListExcluding(ctx context.Context, exclude []uuid.UUID, limit int) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "ProfileRepository.ListExcluding")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.NotEqual("visibility", models.VisibilityPrivate),
		query.NotIn("id", query.Values(exclude)...),
	}
	d.OrderBy = []query.Order{query.Desc("created_at")}
	d.Limit = query.ClampLimit(limit, DefaultSearchLimit, MaxSearchLimit)

	return query.Select[models.Profile](ctx, r.db, d)
}

// SetAvatar records the public URL of an uploaded avatar.
func (r *Repository) SetAvatar(ctx context.Context, id uuid.UUID, url string) (*models.Profile, error) {
	return r.Update(ctx, id, map[string]any{"avatar_url": url})
}

var summaryColumns = []string{"id", "first_name", "last_name", "title", "institution", "avatar_url"}

// SummaryColumns selects the author summary of the profile joined as alias so
// that it scans into a models.AuthorSummary field tagged db:"<into>".
func SummaryColumns(alias, into string) []string {
	cols := make([]string, len(summaryColumns))
	for i, c := range summaryColumns {
		cols[i] = fmt.Sprintf(`%s.%s AS "%s.%s"`, alias, c, into, c)
	}
	return cols
}
