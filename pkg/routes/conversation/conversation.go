package conversation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/message"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	conversationsvc "github.com/Rath300/research-collab/internal/services/conversation"
	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/realtime"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Register registers conversation and messaging routes
func Register(g *echo.Group) {
	g.GET("", ListConversations)
	g.GET("/:match_id/messages", ListMessages)
	g.GET("/:match_id/stream", StreamMessages)
	g.POST("/:match_id/messages", SendMessage)
	g.POST("/:match_id/read", MarkConversationRead)
}

// SendMessageRequest is the request body for sending a message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// MarkReadResponse reports how many messages were marked read
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// ListConversations lists the caller's confirmed matches as an inbox
func ListConversations(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListConversations")
	defer span.End()

	ctx, svc, err := request.Resolve[*conversationsvc.Service](ctx)
	if err != nil {
		return err
	}

	conversations, err := svc.List(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, conversations)
}

// ListMessages pages through a conversation oldest first
func ListMessages(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListMessages")
	defer span.End()

	m, err := participantMatch(ctx, c, userID)
	if err != nil {
		return err
	}

	limit, offset, err := request.Page(c, message.DefaultPageSize)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*message.Repository](ctx)
	if err != nil {
		return err
	}

	messages, err := repo.ListByMatch(ctx, m.ID, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messages)
}

// StreamMessages pushes new messages on the conversation as server-sent events
func StreamMessages(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}

	m, err := participantMatch(ctx, c, userID)
	if err != nil {
		return err
	}

	return request.Stream(c, realtime.Filter{
		Table:  models.MessagesTable,
		Column: "match_id",
		Value:  m.ID.String(),
	})
}

// SendMessage sends a message to the other side of a confirmed match
func SendMessage(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.SendMessage")
	defer span.End()

	matchID, err := request.ParamUUID(c, "match_id")
	if err != nil {
		return err
	}

	req, err := request.Bind[SendMessageRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*message.Repository](ctx)
	if err != nil {
		return err
	}

	msg, err := repo.Send(ctx, matchID, userID, req.Content)
	if err != nil {
		return err
	}

	if ctx, notifier, err := request.Resolve[*notification.Service](ctx); err == nil {
		notifier.Announce(ctx, msg.ReceiverID, userID, models.NotificationNewMessage,
			fmt.Sprintf("New message from %s", senderName(ctx, userID)),
			"/conversations/"+matchID.String())
	}

	return c.JSON(http.StatusCreated, msg)
}

// MarkConversationRead marks every message the caller received on the match as read
func MarkConversationRead(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.MarkConversationRead")
	defer span.End()

	m, err := participantMatch(ctx, c, userID)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*message.Repository](ctx)
	if err != nil {
		return err
	}

	n, err := repo.MarkAllRead(ctx, m.ID, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MarkReadResponse{Updated: n})
}

// participantMatch loads the :match_id match when userID is part of it.
func participantMatch(ctx context.Context, c echo.Context, userID uuid.UUID) (*models.Match, error) {
	id, err := request.ParamUUID(c, "match_id")
	if err != nil {
		return nil, err
	}

	ctx, repo, err := request.Resolve[*match.Repository](ctx)
	if err != nil {
		return nil, err
	}

	m, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil || !m.Involves(userID) {
		return nil, request.NotFound("conversation")
	}
	return m, nil
}

func senderName(ctx context.Context, userID uuid.UUID) string {
	ctx, profiles, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return "a collaborator"
	}
	p, err := profiles.GetByID(ctx, userID)
	if err != nil || p == nil {
		return "a collaborator"
	}
	return p.FullName()
}
