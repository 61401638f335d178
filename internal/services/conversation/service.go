package conversation

import (
	"context"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/message"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/tracing"
)

type Service struct {
	matches  *match.Repository
	messages *message.Repository
	profiles *profile.Repository
	logger   ectologger.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithClock sets the reference time for relative activity labels.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(matches *match.Repository, messages *message.Repository, profiles *profile.Repository, logger ectologger.Logger, opts ...Option) *Service {
	s := &Service{
		matches:  matches,
		messages: messages,
		profiles: profiles,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List builds userID's inbox: one conversation per confirmed match with the
// other researcher's profile and the latest message, most recent activity
// first. A match whose counterpart has no profile is left out.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	ctx, span := tracing.StartSpan(ctx, "conversation.List")
	defer span.End()

	confirmed, err := s.matches.ListForUser(ctx, userID, models.MatchStatusMatched)
	if err != nil {
		return nil, err
	}
	if len(confirmed) == 0 {
		return []models.Conversation{}, nil
	}

	counterparts := ectolinq.Map(confirmed, func(m models.Match) uuid.UUID { return m.Counterpart(userID) })
	profiles, err := s.profiles.ListByIDs(ctx, ectolinq.Distinct(counterparts))
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	unread, err := s.messages.UnreadCounts(ctx, userID, ectolinq.Map(confirmed, func(m models.Match) uuid.UUID { return m.ID }))
	if err != nil {
		return nil, err
	}

	now := s.now()
	conversations := make([]models.Conversation, 0, len(confirmed))
	for _, m := range confirmed {
		counterpart, ok := byID[m.Counterpart(userID)]
		if !ok {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"match_id":       m.ID.String(),
				"counterpart_id": m.Counterpart(userID).String(),
			}).Warn("skipping conversation without counterpart profile")
			continue
		}

		latest, err := s.messages.Latest(ctx, m.ID)
		if err != nil {
			return nil, err
		}

		c := models.Conversation{
			MatchID:        m.ID,
			Counterpart:    counterpart,
			LastMessage:    latest,
			Preview:        models.NoMessagesYet,
			LastActivityAt: m.UpdatedAt,
			UnreadCount:    unread[m.ID],
		}
		if latest != nil {
			c.Preview = latest.Content
			c.LastActivityAt = latest.CreatedAt
		}
		c.LastActivity = humanize.RelTime(c.LastActivityAt, now, "ago", "from now")
		conversations = append(conversations, c)
	}

	return ectolinq.SortWhere(conversations, func(a, b models.Conversation) bool {
		return a.LastActivityAt.After(b.LastActivityAt)
	}), nil
}
