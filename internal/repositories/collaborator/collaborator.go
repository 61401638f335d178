package collaborator

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/profile"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/query"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Member is a collaborator with their profile summary.
type Member struct {
	models.ProjectCollaborator
	Profile models.AuthorSummary `db:"profile" json:"profile"`
}

// Repository stores project membership.
type Repository struct {
	*crud.Client[models.ProjectCollaborator, *models.ProjectCollaborator]
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.ProjectCollaborator](db, models.ProjectCollaboratorsTable, schema.ProjectCollaborator, logger, opts...),
		db:     db,
		logger: logger,
	}
}

// Add makes userID a collaborator on projectID, or changes the role of an
// existing collaborator.
func (r *Repository) Add(ctx context.Context, projectID, userID uuid.UUID, role models.CollaboratorRole) (*models.ProjectCollaborator, error) {
	ctx, span := tracing.StartSpan(ctx, "CollaboratorRepository.Add")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	c, err := schema.ProjectCollaborator.Validate(ctx, models.ProjectCollaborator{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	})
	if err != nil {
		return nil, err
	}
	now := r.Now()
	c.ID = uuid.New()
	c.TenantID = tenantID
	c.CreatedAt = now
	c.UpdatedAt = now

	ib := database.NewStruct(c).For(r.db.Flavor()).InsertInto(models.ProjectCollaboratorsTable, &c)
	set := ib.OnConflict("project_id", "user_id")
	set.Set(
		set.Assign("role", database.Excluded("role")),
		set.Assign("updated_at", database.Excluded("updated_at")),
	)

	q, args := ib.Build()
	if _, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to add collaborator")
		return nil, database.NewStoreError("failed to add collaborator", err)
	}

	return r.Get(ctx, projectID, userID)
}

// Get returns the membership of userID on projectID, or nil.
func (r *Repository) Get(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectCollaborator, error) {
	ctx, span := tracing.StartSpan(ctx, "CollaboratorRepository.Get")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("project_id", projectID),
		query.Equal("user_id", userID),
	}
	return query.First[models.ProjectCollaborator](ctx, r.db, d)
}

// List returns the members of projectID, owners first.
func (r *Repository) List(ctx context.Context, projectID uuid.UUID) ([]Member, error) {
	ctx, span := tracing.StartSpan(ctx, "CollaboratorRepository.List")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	cols := database.NewStruct(models.ProjectCollaborator{}).QualifiedColumns("c")
	cols = append(cols, profile.SummaryColumns("p", "profile")...)

	d := query.From(models.ProjectCollaboratorsTable+" c", cols...)
	d.Joins = []query.Join{query.LeftJoin(models.ProfilesTable+" p", "p.id = c.user_id", "p.tenant_id = c.tenant_id")}
	d.Where = []query.Filter{
		query.Equal("c.tenant_id", tenantID),
		query.Equal("c.project_id", projectID),
	}
	d.OrderBy = []query.Order{query.Desc("c.role = 'owner'"), query.Asc("c.created_at")}

	return query.Select[Member](ctx, r.db, d)
}

// Remove deletes the membership; removing a non-member is not an error.
func (r *Repository) Remove(ctx context.Context, projectID, userID uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "CollaboratorRepository.Remove")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return err
	}

	b := database.NewDeleteBuilder(r.db.Flavor())
	b.DeleteFrom(models.ProjectCollaboratorsTable)
	b.Where(
		b.Equal("tenant_id", tenantID),
		b.Equal("project_id", projectID),
		b.Equal("user_id", userID),
	)

	q, args := b.Build()
	if _, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...); err != nil {
		return database.NewStoreError("failed to remove collaborator", err)
	}
	return nil
}

// ProjectIDsFor lists the projects userID belongs to.
func (r *Repository) ProjectIDsFor(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ctx, span := tracing.StartSpan(ctx, "CollaboratorRepository.ProjectIDsFor")
	defer span.End()

	members, err := r.GetAll(ctx, crud.FilterOptions{
		Limit:   crud.MaxLimit,
		Filters: map[string]any{"user_id": userID},
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.ProjectID
	}
	return ids, nil
}
