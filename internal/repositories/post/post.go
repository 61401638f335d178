package post

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/profile"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/query"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// PostRepository defines the research post operations beyond plain CRUD
type PostRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ResearchPost, error)
	Feed(ctx context.Context, limit, offset int) ([]models.PostWithAuthor, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ResearchPost, error)
	IncrementEngagement(ctx context.Context, id uuid.UUID) (int, error)
	DecrementEngagement(ctx context.Context, id uuid.UUID) (int, error)
}

// Repository implements PostRepository
type Repository struct {
	*crud.Client[models.ResearchPost, *models.ResearchPost]
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new research post repository
func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.ResearchPost](db, models.ResearchPostsTable, schema.ResearchPost, logger, opts...),
		db:     db,
		logger: logger,
	}
}

// Feed pages through public posts, newest first, each with its author.
func (r *Repository) Feed(ctx context.Context, limit, offset int) ([]models.PostWithAuthor, error) {
	ctx, span := tracing.StartSpan(ctx, "PostRepository.Feed")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	cols := database.NewStruct(models.ResearchPost{}).QualifiedColumns("p")
	cols = append(cols, profile.SummaryColumns("a", "author")...)

	d := query.From(models.ResearchPostsTable+" p", cols...)
	d.Joins = []query.Join{query.LeftJoin(models.ProfilesTable+" a", "a.id = p.user_id", "a.tenant_id = p.tenant_id")}
	d.Where = []query.Filter{
		query.Equal("p.tenant_id", tenantID),
		query.Equal("p.visibility", models.VisibilityPublic),
	}
	d.OrderBy = []query.Order{query.Desc("p.created_at"), query.Desc("p.id")}
	d.Limit = query.ClampLimit(limit, DefaultFeedLimit, MaxFeedLimit)
	d.Offset = max(offset, 0)

	return query.Select[models.PostWithAuthor](ctx, r.db, d)
}

// ListByUser returns every post by userID regardless of visibility, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ResearchPost, error) {
	return r.GetAll(ctx, crud.FilterOptions{
		Limit:   query.ClampLimit(limit, DefaultFeedLimit, MaxFeedLimit),
		Offset:  offset,
		OrderBy: "created_at",
		Filters: map[string]any{"user_id": userID},
	})
}

// IncrementEngagement adds one to the post's engagement count and returns the
// new value. The read and the write are separate statements, so concurrent
// calls may lose updates.
func (r *Repository) IncrementEngagement(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "PostRepository.IncrementEngagement")
	defer span.End()

	return r.adjustEngagement(ctx, id, 1)
}

// DecrementEngagement subtracts one, stopping at zero.
func (r *Repository) DecrementEngagement(ctx context.Context, id uuid.UUID) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "PostRepository.DecrementEngagement")
	defer span.End()

	return r.adjustEngagement(ctx, id, -1)
}

func (r *Repository) adjustEngagement(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return 0, err
	}

	post, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if post == nil {
		return 0, &apperrors.StoreError{
			Message: fmt.Sprintf("research post %s not found", id),
			Status:  http.StatusNotFound,
			Code:    "not_found",
		}
	}

	next := max(post.EngagementCount+delta, 0)

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(models.ResearchPostsTable)
	ub.Set(
		ub.Assign("engagement_count", next),
		ub.Assign("updated_at", r.Now()),
	)
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID))

	q, args := ub.Build()
	if _, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update engagement count")
		return 0, database.NewStoreError("failed to update engagement count", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"post_id":          id.String(),
		"engagement_count": next,
	}).Debug("updated engagement count")

	return next, nil
}
