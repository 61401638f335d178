package match

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

// MatchRepository defines the match operations beyond plain CRUD
type MatchRepository interface {
	FindBetween(ctx context.Context, a, b uuid.UUID) (*models.Match, error)
	CreateIfAbsent(ctx context.Context, initiator, other uuid.UUID) (*models.Match, bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.MatchStatus) (*models.Match, error)
	ListForUser(ctx context.Context, userID uuid.UUID, statuses ...models.MatchStatus) ([]models.Match, error)
	ListConfirmed(ctx context.Context, userID uuid.UUID) ([]models.MatchWithProfiles, error)
	RelatedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Repository implements MatchRepository
type Repository struct {
	*crud.Client[models.Match, *models.Match]
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match repository
func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.Match](db, models.MatchesTable, schema.Match, logger, opts...),
		db:     db,
		logger: logger,
	}
}

// FindBetween returns the match for the pair in either direction, or nil.
func (r *Repository) FindBetween(ctx context.Context, a, b uuid.UUID) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "MatchRepository.FindBetween")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	first, second := models.OrderedPair(a, b)
	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("user_id_1", first),
		query.Equal("user_id_2", second),
	}
	return query.First[models.Match](ctx, r.db, d)
}

// CreateIfAbsent records initiator's interest in other as a pending match.
// When the pair already has a match it is returned untouched and created is
// false.
func (r *Repository) CreateIfAbsent(ctx context.Context, initiator, other uuid.UUID) (*models.Match, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "MatchRepository.CreateIfAbsent")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, false, err
	}

	first, second := models.OrderedPair(initiator, other)
	m, err := schema.Match.Validate(ctx, models.Match{
		UserID1:     first,
		UserID2:     second,
		InitiatedBy: initiator,
		Status:      models.MatchStatusPending,
	})
	if err != nil {
		return nil, false, err
	}
	now := r.Now()
	m.ID = uuid.New()
	m.TenantID = tenantID
	m.CreatedAt = now
	m.UpdatedAt = now

	ib := database.NewStruct(m).For(r.db.Flavor()).InsertInto(models.MatchesTable, &m)
	ib.OnConflictDoNothing()

	q, args := ib.Build()
	res, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create match")
		return nil, false, database.NewStoreError("failed to create match", err)
	}
	n, _ := res.RowsAffected()

	existing, err := r.FindBetween(ctx, first, second)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, &apperrors.StoreError{
			Message: "match vanished after insert",
			Status:  http.StatusConflict,
			Code:    "conflict",
		}
	}
	return existing, n > 0, nil
}

// UpdateStatus moves the match from one status to another. The update only
// applies while the row still has status from, so a concurrent response loses
// with a 409.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.MatchStatus) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "MatchRepository.UpdateStatus")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	if !from.CanTransition(to) {
		return nil, apperrors.NewValidationError("match", apperrors.FieldError{
			Field:   "status",
			Message: fmt.Sprintf("cannot change from %s to %s", from, to),
		})
	}

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(models.MatchesTable)
	ub.Set(ub.Assign("status", to), ub.Assign("updated_at", r.Now()))
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("tenant_id", tenantID),
		ub.Equal("status", from),
	)

	q, args := ub.Build()
	res, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		return nil, database.NewStoreError("failed to update match", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, &apperrors.StoreError{
			Message: fmt.Sprintf("match %s is no longer %s", id, from),
			Status:  http.StatusConflict,
			Code:    "conflict",
		}
	}

	return r.GetByID(ctx, id)
}

// Touch stamps updated_at so the match sorts as recently active.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "MatchRepository.Touch")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return err
	}

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(models.MatchesTable)
	ub.Set(ub.Assign("updated_at", r.Now()))
	ub.Where(ub.Equal("id", id), ub.Equal("tenant_id", tenantID))

	q, args := ub.Build()
	if _, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...); err != nil {
		return database.NewStoreError("failed to touch match", err)
	}
	return nil
}

// ListForUser returns the matches userID is part of, most recently changed
// first. With no statuses every match is returned.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, statuses ...models.MatchStatus) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "MatchRepository.ListForUser")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{query.Equal("tenant_id", tenantID)}
	if len(statuses) > 0 {
		d.Where = append(d.Where, query.In("status", query.Values(statuses)...))
	}
	d.AnyOf = [][]query.Filter{{
		query.Equal("user_id_1", userID),
		query.Equal("user_id_2", userID),
	}}
	d.OrderBy = []query.Order{query.Desc("updated_at")}

	return query.Select[models.Match](ctx, r.db, d)
}

// ListConfirmed returns userID's matched pairs with both profiles attached.
func (r *Repository) ListConfirmed(ctx context.Context, userID uuid.UUID) ([]models.MatchWithProfiles, error) {
	ctx, span := tracing.StartSpan(ctx, "MatchRepository.ListConfirmed")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	cols := database.NewStruct(models.Match{}).QualifiedColumns("m")
	cols = append(cols, profile.SummaryColumns("p1", "profile_1")...)
	cols = append(cols, profile.SummaryColumns("p2", "profile_2")...)

	d := query.From(models.MatchesTable+" m", cols...)
	d.Joins = []query.Join{
		query.LeftJoin(models.ProfilesTable+" p1", "p1.id = m.user_id_1", "p1.tenant_id = m.tenant_id"),
		query.LeftJoin(models.ProfilesTable+" p2", "p2.id = m.user_id_2", "p2.tenant_id = m.tenant_id"),
	}
	d.Where = []query.Filter{
		query.Equal("m.tenant_id", tenantID),
		query.Equal("m.status", models.MatchStatusMatched),
	}
	d.AnyOf = [][]query.Filter{{
		query.Equal("m.user_id_1", userID),
		query.Equal("m.user_id_2", userID),
	}}
	d.OrderBy = []query.Order{query.Desc("m.updated_at")}

	return query.Select[models.MatchWithProfiles](ctx, r.db, d)
}

// RelatedIDs lists everyone userID already has a match with in either
// direction, whatever its status.
func (r *Repository) RelatedIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	matches, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		ids[i] = m.Counterpart(userID)
	}
	return ids, nil
}
