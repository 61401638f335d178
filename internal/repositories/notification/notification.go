package notification

import (
	"context"

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
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Repository stores in-app notifications.
type Repository struct {
	*crud.Client[models.UserNotification, *models.UserNotification]
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.UserNotification](db, models.UserNotificationsTable, schema.UserNotification, logger, opts...),
		db:     db,
		logger: logger,
	}
}

// ListForUser returns userID's notifications, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.UserNotification, error) {
	ctx, span := tracing.StartSpan(ctx, "NotificationRepository.ListForUser")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("user_id", userID),
	}
	if unreadOnly {
		d.Where = append(d.Where, query.Equal("is_read", false))
	}
	d.OrderBy = []query.Order{query.Desc("created_at"), query.Desc("id")}
	d.Limit = query.ClampLimit(limit, DefaultPageSize, MaxPageSize)

	return query.Select[models.UserNotification](ctx, r.db, d)
}

func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) (*models.UserNotification, error) {
	return r.Update(ctx, id, map[string]any{"is_read": true})
}

// MarkAllRead flags every unread notification of userID and returns how many
// changed.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "NotificationRepository.MarkAllRead")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return 0, err
	}

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(models.UserNotificationsTable)
	ub.Set(ub.Assign("is_read", true), ub.Assign("updated_at", r.Now()))
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.Equal("user_id", userID),
		ub.Equal("is_read", false),
	)

	q, args := ub.Build()
	res, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to mark notifications read")
		return 0, database.NewStoreError("failed to mark notifications read", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "NotificationRepository.UnreadCount")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return 0, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("user_id", userID),
		query.Equal("is_read", false),
	}
	return query.Count(ctx, r.db, d)
}
