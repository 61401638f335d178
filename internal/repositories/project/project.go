package project

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/query"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// Repository implements project storage
type Repository struct {
	*crud.Client[models.Project, *models.Project]
	collaborators *collaborator.Repository
	db            database.DB
	logger        ectologger.Logger
}

// NewRepository creates a new project repository
func NewRepository(db database.DB, collaborators *collaborator.Repository, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client:        crud.New[models.Project](db, models.ProjectsTable, schema.Project, logger, opts...),
		collaborators: collaborators,
		db:            db,
		logger:        logger,
	}
}

// CreateWithOwner stores p and enrols its owner as a collaborator in one
// transaction.
func (r *Repository) CreateWithOwner(ctx context.Context, p models.Project) (*models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.CreateWithOwner")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, database.NewStoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := r.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	if _, err := r.collaborators.Add(ctx, created.ID, created.OwnerID, models.CollaboratorOwner); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, database.NewStoreError("failed to commit project", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"project_id": created.ID.String(),
		"owner_id":   created.OwnerID.String(),
	}).Info("created project")

	return created, nil
}

// Feed pages through public projects, newest first, each with its owner.
func (r *Repository) Feed(ctx context.Context, limit, offset int) ([]models.ProjectWithOwner, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.Feed")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	cols := database.NewStruct(models.Project{}).QualifiedColumns("p")
	cols = append(cols, profile.SummaryColumns("o", "owner")...)

	d := query.From(models.ProjectsTable+" p", cols...)
	d.Joins = []query.Join{query.LeftJoin(models.ProfilesTable+" o", "o.id = p.owner_id", "o.tenant_id = p.tenant_id")}
	d.Where = []query.Filter{
		query.Equal("p.tenant_id", tenantID),
		query.Equal("p.visibility", models.VisibilityPublic),
	}
	d.OrderBy = []query.Order{query.Desc("p.created_at"), query.Desc("p.id")}
	d.Limit = query.ClampLimit(limit, DefaultFeedLimit, MaxFeedLimit)
	d.Offset = max(offset, 0)

	return query.Select[models.ProjectWithOwner](ctx, r.db, d)
}

// ListForMember returns every project userID collaborates on, newest first.
func (r *Repository) ListForMember(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	ctx, span := tracing.StartSpan(ctx, "ProjectRepository.ListForMember")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := r.collaborators.ProjectIDsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Project{}, nil
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.In("id", query.Values(ids)...),
	}
	d.OrderBy = []query.Order{query.Desc("created_at")}
	return query.Select[models.Project](ctx, r.db, d)
}

// RoleOf returns userID's role on projectID, or "" when they are not a member.
func (r *Repository) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (models.CollaboratorRole, error) {
	m, err := r.collaborators.Get(ctx, projectID, userID)
	if err != nil || m == nil {
		return "", err
	}
	return m.Role, nil
}
