package match

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	matchsvc "github.com/Rath300/research-collab/internal/services/match"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Register registers match routes
func Register(g *echo.Group) {
	g.GET("", ListMatches)
	g.GET("/confirmed", ListConfirmed)
	g.POST("", ExpressInterest)
	g.POST("/:id/respond", Respond)
}

// ExpressRequest is the request body for asking to collaborate with a researcher
type ExpressRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// RespondRequest is the request body for answering a match request
type RespondRequest struct {
	Accept bool `json:"accept"`
}

// ListMatches lists the caller's matches, optionally narrowed by ?status=pending,matched
func ListMatches(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListMatches")
	defer span.End()

	var statuses []models.MatchStatus
	for _, s := range request.QueryList(c, "status") {
		statuses = append(statuses, models.MatchStatus(s))
	}

	ctx, svc, err := request.Resolve[*matchsvc.Service](ctx)
	if err != nil {
		return err
	}

	matches, err := svc.ListForUser(ctx, userID, statuses...)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, matches)
}

// ListConfirmed lists confirmed matches with both profiles attached
func ListConfirmed(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListConfirmedMatches")
	defer span.End()

	ctx, svc, err := request.Resolve[*matchsvc.Service](ctx)
	if err != nil {
		return err
	}

	matches, err := svc.ListConfirmed(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, matches)
}

func ExpressInterest(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ExpressInterest")
	defer span.End()

	req, err := request.Bind[ExpressRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := request.Resolve[*matchsvc.Service](ctx)
	if err != nil {
		return err
	}

	m, err := svc.Express(ctx, userID, req.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, m)
}

func Respond(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.RespondToMatch")
	defer span.End()

	id, err := request.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := request.Bind[RespondRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := request.Resolve[*matchsvc.Service](ctx)
	if err != nil {
		return err
	}

	m, err := svc.Respond(ctx, id, userID, req.Accept)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, m)
}
