package notification

import (
	"net/http"

	"github.com/labstack/echo/v4"

	notificationrepo "github.com/Rath300/research-collab/internal/repositories/notification"
	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/realtime"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Register registers notification routes
func Register(g *echo.Group) {
	g.GET("", ListNotifications)
	g.GET("/unread-count", UnreadCount)
	g.GET("/stream", StreamNotifications)
	g.POST("/read", MarkAllRead)
	g.POST("/:id/read", MarkRead)
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// StreamNotifications pushes the caller's new notifications as server-sent events
func StreamNotifications(c echo.Context) error {
	_, userID, err := request.Caller(c)
	if err != nil {
		return err
	}

	return request.Stream(c, realtime.Filter{
		Table:  models.UserNotificationsTable,
		Column: "user_id",
		Value:  userID.String(),
	})
}

// ListNotifications lists the caller's notifications; ?unread=true narrows to unread ones
func ListNotifications(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListNotifications")
	defer span.End()

	limit, err := request.QueryInt(c, "limit", notificationrepo.DefaultPageSize)
	if err != nil {
		return err
	}

	ctx, svc, err := request.Resolve[*notification.Service](ctx)
	if err != nil {
		return err
	}

	notifications, err := svc.List(ctx, userID, request.QueryBool(c, "unread"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notifications)
}

func UnreadCount(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UnreadNotificationCount")
	defer span.End()

	ctx, svc, err := request.Resolve[*notification.Service](ctx)
	if err != nil {
		return err
	}

	n, err := svc.UnreadCount(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UnreadCountResponse{Unread: n})
}

func MarkRead(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.MarkNotificationRead")
	defer span.End()

	id, err := request.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, svc, err := request.Resolve[*notification.Service](ctx)
	if err != nil {
		return err
	}

	n, err := svc.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, n)
}

func MarkAllRead(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.MarkAllNotificationsRead")
	defer span.End()

	ctx, svc, err := request.Resolve[*notification.Service](ctx)
	if err != nil {
		return err
	}

	n, err := svc.MarkAllRead(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: n})
}
