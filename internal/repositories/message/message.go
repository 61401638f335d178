package message

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/match"
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
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// MessageRepository defines the message operations beyond plain CRUD
type MessageRepository interface {
	Send(ctx context.Context, matchID, senderID uuid.UUID, content string) (*models.Message, error)
	ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]models.Message, error)
	Latest(ctx context.Context, matchID uuid.UUID) (*models.Message, error)
	MarkAllRead(ctx context.Context, matchID, receiverID uuid.UUID) (int64, error)
	UnreadCounts(ctx context.Context, receiverID uuid.UUID, matchIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Repository implements MessageRepository
type Repository struct {
	*crud.Client[models.Message, *models.Message]
	matches *match.Repository
	db      database.DB
	logger  ectologger.Logger
}

// NewRepository creates a new message repository
func NewRepository(db database.DB, matches *match.Repository, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client:  crud.New[models.Message](db, models.MessagesTable, schema.Message, logger, opts...),
		matches: matches,
		db:      db,
		logger:  logger,
	}
}

// Send stores a message from senderID on a confirmed match. The receiver is
// always the other side of the match.
func (r *Repository) Send(ctx context.Context, matchID, senderID uuid.UUID, content string) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "MessageRepository.Send")
	defer span.End()

	fields, err := schema.Message.ValidatePatch(ctx, map[string]any{"content": content})
	if err != nil {
		return nil, err
	}
	content = fields["content"].(string)

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, database.NewStoreError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := r.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &apperrors.StoreError{
			Message: fmt.Sprintf("match %s not found", matchID),
			Status:  http.StatusNotFound,
			Code:    "not_found",
		}
	}
	if !m.Involves(senderID) {
		return nil, &apperrors.StoreError{
			Message: "sender is not part of this match",
			Status:  http.StatusForbidden,
			Code:    "forbidden",
		}
	}
	if m.Status != models.MatchStatusMatched {
		return nil, apperrors.NewValidationError("message", apperrors.FieldError{
			Field:   "match_id",
			Message: fmt.Sprintf("match is %s, messages need a confirmed match", m.Status),
		})
	}

	msg, err := r.Create(ctx, models.Message{
		MatchID:    matchID,
		SenderID:   senderID,
		ReceiverID: m.Counterpart(senderID),
		Content:    content,
	})
	if err != nil {
		return nil, err
	}
	if err := r.matches.Touch(ctx, matchID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, database.NewStoreError("failed to commit message", err)
	}
	return msg, nil
}

// ListByMatch pages through a conversation oldest first.
func (r *Repository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "MessageRepository.ListByMatch")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("match_id", matchID),
	}
	d.OrderBy = []query.Order{query.Asc("created_at"), query.Asc("id")}
	d.Limit = query.ClampLimit(limit, DefaultPageSize, MaxPageSize)
	d.Offset = max(offset, 0)

	return query.Select[models.Message](ctx, r.db, d)
}

// Latest returns the newest message on matchID, or nil when there is none.
func (r *Repository) Latest(ctx context.Context, matchID uuid.UUID) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "MessageRepository.Latest")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("match_id", matchID),
	}
	d.OrderBy = []query.Order{query.Desc("created_at"), query.Desc("id")}
	return query.First[models.Message](ctx, r.db, d)
}

// MarkRead flags a single message as read.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	return r.Update(ctx, id, map[string]any{"is_read": true})
}

// MarkAllRead flags every unread message receiverID has on matchID and
// returns how many changed.
func (r *Repository) MarkAllRead(ctx context.Context, matchID, receiverID uuid.UUID) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "MessageRepository.MarkAllRead")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return 0, err
	}

	ub := database.NewUpdateBuilder(r.db.Flavor())
	ub.Update(models.MessagesTable)
	ub.Set(ub.Assign("is_read", true), ub.Assign("updated_at", r.Now()))
	ub.Where(
		ub.Equal("tenant_id", tenantID),
		ub.Equal("match_id", matchID),
		ub.Equal("receiver_id", receiverID),
		ub.Equal("is_read", false),
	)

	q, args := ub.Build()
	res, err := database.QuerierFromContext(ctx, r.db).ExecContext(ctx, q, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to mark messages read")
		return 0, database.NewStoreError("failed to mark messages read", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

type unreadRow struct {
	MatchID uuid.UUID `db:"match_id"`
	Unread  int       `db:"unread"`
}

// UnreadCounts returns, per match, how many messages receiverID has not read.
// Matches without unread messages are absent from the result.
func (r *Repository) UnreadCounts(ctx context.Context, receiverID uuid.UUID, matchIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	ctx, span := tracing.StartSpan(ctx, "MessageRepository.UnreadCounts")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}
	if len(matchIDs) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	d := query.From(models.MessagesTable, "match_id", "COUNT(*) AS unread")
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("receiver_id", receiverID),
		query.Equal("is_read", false),
		query.In("match_id", query.Values(matchIDs)...),
	}
	d.GroupBy = []string{"match_id"}

	rows, err := query.Select[unreadRow](ctx, r.db, d)
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.MatchID] = row.Unread
	}
	return counts, nil
}
