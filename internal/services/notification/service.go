package notification

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/notification"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// EventPublisher is implemented by kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any, headers map[string]string) error
}

const EventCreated = "notification.created"

// Event is published for every stored notification.
type Event struct {
	EventType    string                  `json:"event_type"`
	Notification models.UserNotification `json:"notification"`
}

type Service struct {
	repo      *notification.Repository
	publisher EventPublisher
	logger    ectologger.Logger
}

// NewService builds the service. publisher may be nil, in which case
// notifications are only stored.
func NewService(repo *notification.Repository, publisher EventPublisher, logger ectologger.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Notify stores n and announces it on the event stream. The stored row is
// returned even when the announcement fails.
func (s *Service) Notify(ctx context.Context, n models.UserNotification) (*models.UserNotification, error) {
	ctx, span := tracing.StartSpan(ctx, "notification.Notify")
	defer span.End()

	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, err
	}

	if s.publisher == nil {
		return created, nil
	}

	headers := map[string]string{
		"event_type": EventCreated,
		"tenant_id":  created.TenantID.String(),
	}
	if err := s.publisher.Publish(ctx, created.UserID.String(), Event{EventType: EventCreated, Notification: *created}, headers); err != nil {
		tracing.RecordError(ctx, err)
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"notification_id": created.ID.String(),
			"type":            string(created.Type),
		}).Warn("failed to publish notification event")
	}

	return created, nil
}

// Announce notifies userID on behalf of actorID and only logs failures. It
// is used after the action being announced has already been stored.
func (s *Service) Announce(ctx context.Context, userID, actorID uuid.UUID, kind models.NotificationType, content, link string) {
	if userID == actorID {
		return
	}
	n := models.UserNotification{
		UserID:  userID,
		Type:    kind,
		Content: content,
		ActorID: &actorID,
	}
	if link != "" {
		n.Link = &link
	}
	if _, err := s.Notify(ctx, n); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID.String(),
			"type":    string(kind),
		}).Warn("failed to send notification")
	}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.UserNotification, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

// MarkRead flags one of userID's notifications as read. Notifications of
// other users are reported as missing.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.UserNotification, error) {
	ctx, span := tracing.StartSpan(ctx, "notification.MarkRead")
	defer span.End()

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.UserID != userID {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "notification %s not found", id)
	}
	if n.IsRead {
		return n, nil
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
