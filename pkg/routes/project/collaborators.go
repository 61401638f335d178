package project

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// CollaboratorRequest is the request body for adding or re-roling a collaborator
type CollaboratorRequest struct {
	Role models.CollaboratorRole `json:"role" validate:"required,oneof=editor viewer"`
}

func ListCollaborators(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListCollaborators")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*collaborator.Repository](ctx)
	if err != nil {
		return err
	}

	members, err := repo.List(ctx, w.project.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, members)
}

// PutCollaborator adds :user_id to the project or changes their role. The
// owner's own membership cannot be changed here.
func PutCollaborator(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.PutCollaborator")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireOwner(); err != nil {
		return err
	}

	memberID, err := request.ParamUUID(c, "user_id")
	if err != nil {
		return err
	}
	if memberID == w.project.OwnerID {
		return request.Forbidden("the project owner's role cannot be changed")
	}

	req, err := request.Bind[CollaboratorRequest](c)
	if err != nil {
		return err
	}

	ctx, profiles, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}
	member, err := profiles.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if member == nil {
		return request.NotFound("profile")
	}

	ctx, repo, err := request.Resolve[*collaborator.Repository](ctx)
	if err != nil {
		return err
	}

	existing, err := repo.Get(ctx, w.project.ID, memberID)
	if err != nil {
		return err
	}

	saved, err := repo.Add(ctx, w.project.ID, memberID, req.Role)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if existing == nil {
		status = http.StatusCreated
		if ctx, notifier, err := request.Resolve[*notification.Service](ctx); err == nil {
			notifier.Announce(ctx, memberID, userID, models.NotificationProjectInvite,
				fmt.Sprintf("You were added to the project %q as %s", w.project.Title, req.Role),
				"/projects/"+w.project.ID.String())
		}
	}

	return c.JSON(status, saved)
}

func RemoveCollaborator(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.RemoveCollaborator")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}

	memberID, err := request.ParamUUID(c, "user_id")
	if err != nil {
		return err
	}
	// members may leave on their own
	if memberID != userID {
		if err := w.requireOwner(); err != nil {
			return err
		}
	}
	if memberID == w.project.OwnerID {
		return request.Forbidden("the project owner cannot be removed")
	}

	ctx, repo, err := request.Resolve[*collaborator.Repository](ctx)
	if err != nil {
		return err
	}

	if err := repo.Remove(ctx, w.project.ID, memberID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
