package match

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Notifier is implemented by the notification service.
type Notifier interface {
	Notify(ctx context.Context, n models.UserNotification) (*models.UserNotification, error)
}

type Service struct {
	matches  *match.Repository
	profiles *profile.Repository
	notifier Notifier
	logger   ectologger.Logger
}

func NewService(matches *match.Repository, profiles *profile.Repository, notifier Notifier, logger ectologger.Logger) *Service {
	return &Service{
		matches:  matches,
		profiles: profiles,
		notifier: notifier,
		logger:   logger,
	}
}

// PotentialMatches suggests profiles userID has no match with in either
// direction, whatever its status. userID itself is never suggested.
func (s *Service) PotentialMatches(ctx context.Context, userID uuid.UUID, limit int) ([]models.Profile, error) {
	ctx, span := tracing.StartSpan(ctx, "match.PotentialMatches")
	defer span.End()

	related, err := s.matches.RelatedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	exclude := ectolinq.Distinct(append(related, userID))

	return s.profiles.ListExcluding(ctx, exclude, limit)
}

// Express records from's interest in to. When to already asked for from,
// the pending request is confirmed instead of creating a second row. An
// existing request in any other state is returned unchanged.
func (s *Service) Express(ctx context.Context, from, to uuid.UUID) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Express")
	defer span.End()

	target, err := s.profiles.GetByID(ctx, to)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "profile %s not found", to)
	}

	m, created, err := s.matches.CreateIfAbsent(ctx, from, to)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"match_id": m.ID.String(),
		"status":   string(m.Status),
	})

	if created {
		log.Info("match requested")
		s.notify(ctx, to, from, models.NotificationNewMatch, fmt.Sprintf("%s would like to collaborate with you", s.nameOf(ctx, from)))
		return m, nil
	}

	if m.Status != models.MatchStatusPending || m.InitiatedBy == from {
		return m, nil
	}

	confirmed, err := s.matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusMatched)
	if err != nil {
		return nil, err
	}
	log.Info("reciprocal request confirmed match")
	s.notify(ctx, m.InitiatedBy, from, models.NotificationMatchAccepted, fmt.Sprintf("%s accepted your collaboration request", s.nameOf(ctx, from)))
	return confirmed, nil
}

// Respond accepts or rejects a pending match. Only the researcher who did
// not initiate it may respond.
func (s *Service) Respond(ctx context.Context, matchID, responder uuid.UUID, accept bool) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Respond")
	defer span.End()

	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Involves(responder) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "match %s not found", matchID)
	}
	if m.InitiatedBy == responder {
		return nil, httperror.NewHTTPError(http.StatusForbidden, "only the invited researcher can respond to a match request")
	}

	next := models.MatchStatusRejected
	if accept {
		next = models.MatchStatusMatched
	}

	updated, err := s.matches.UpdateStatus(ctx, m.ID, m.Status, next)
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"match_id": m.ID.String(),
		"status":   string(next),
	}).Info("match answered")

	if accept {
		s.notify(ctx, m.InitiatedBy, responder, models.NotificationMatchAccepted, fmt.Sprintf("%s accepted your collaboration request", s.nameOf(ctx, responder)))
	}
	return updated, nil
}

func (s *Service) ListConfirmed(ctx context.Context, userID uuid.UUID) ([]models.MatchWithProfiles, error) {
	return s.matches.ListConfirmed(ctx, userID)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, statuses ...models.MatchStatus) ([]models.Match, error) {
	return s.matches.ListForUser(ctx, userID, statuses...)
}

func (s *Service) nameOf(ctx context.Context, id uuid.UUID) string {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil || p == nil {
		return "A researcher"
	}
	return p.FullName()
}

// notify is best effort; the match itself has already been stored.
func (s *Service) notify(ctx context.Context, userID, actorID uuid.UUID, kind models.NotificationType, content string) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Notify(ctx, models.UserNotification{
		UserID:  userID,
		Type:    kind,
		Content: content,
		ActorID: &actorID,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"user_id": userID.String(),
			"type":    string(kind),
		}).Warn("failed to send match notification")
	}
}
