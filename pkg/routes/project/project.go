package project

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/project"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Register registers project and project workspace routes
func Register(g *echo.Group) {
	g.GET("/feed", Feed)
	g.GET("/mine", ListMine)
	g.POST("", CreateProject)
	g.GET("/:id", GetProject)
	g.PATCH("/:id", UpdateProject)
	g.DELETE("/:id", DeleteProject)

	g.GET("/:id/collaborators", ListCollaborators)
	g.PUT("/:id/collaborators/:user_id", PutCollaborator)
	g.DELETE("/:id/collaborators/:user_id", RemoveCollaborator)

	g.GET("/:id/notes", ListNotes)
	g.POST("/:id/notes", CreateNote)
	g.PATCH("/:id/notes/:note_id", UpdateNote)
	g.DELETE("/:id/notes/:note_id", DeleteNote)

	g.GET("/:id/tasks", ListTasks)
	g.POST("/:id/tasks", CreateTask)
	g.PATCH("/:id/tasks/:task_id", UpdateTask)
	g.PUT("/:id/tasks/:task_id/status", TransitionTask)
	g.PUT("/:id/tasks/:task_id/assignee", AssignTask)
	g.DELETE("/:id/tasks/:task_id", DeleteTask)

	g.GET("/:id/files", ListFiles)
	g.POST("/:id/files", UploadFile)
	g.DELETE("/:id/files/:file_id", DeleteFile)
}

// Feed pages through public projects with their owners
func Feed(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "routes.ProjectFeed")
	defer span.End()

	limit, offset, err := request.Page(c, project.DefaultFeedLimit)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*project.Repository](ctx)
	if err != nil {
		return err
	}

	projects, err := repo.Feed(ctx, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, projects)
}

// ListMine lists every project the caller collaborates on
func ListMine(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListMyProjects")
	defer span.End()

	ctx, repo, err := request.Resolve[*project.Repository](ctx)
	if err != nil {
		return err
	}

	projects, err := repo.ListForMember(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, projects)
}

// CreateProject creates a project owned by the caller
func CreateProject(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.CreateProject")
	defer span.End()

	body, err := request.BindMap(c)
	if err != nil {
		return err
	}
	body["owner_id"] = userID.String()

	p, err := schema.Project.Decode(ctx, body)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*project.Repository](ctx)
	if err != nil {
		return err
	}

	created, err := repo.CreateWithOwner(ctx, p)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

func GetProject(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.GetProject")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, w.project)
}

func UpdateProject(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UpdateProject")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	patch, err := request.BindMap(c)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*project.Repository](ctx)
	if err != nil {
		return err
	}

	updated, err := repo.Update(ctx, w.project.ID, request.Strip(patch, "owner_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

func DeleteProject(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.DeleteProject")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireOwner(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*project.Repository](ctx)
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, w.project.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// workspace is a project as seen by one caller.
type workspace struct {
	project *models.Project
	role    models.CollaboratorRole
}

func (w workspace) isMember() bool {
	return w.role != ""
}

func (w workspace) requireMember() error {
	if !w.isMember() {
		return request.Forbidden("only project collaborators can do this")
	}
	return nil
}

func (w workspace) requireEditor() error {
	if !w.role.CanEdit() {
		return request.Forbidden("only project owners and editors can change the workspace")
	}
	return nil
}

func (w workspace) requireOwner() error {
	if w.role != models.CollaboratorOwner {
		return request.Forbidden("only the project owner can do this")
	}
	return nil
}

// open loads the :id project with the caller's role. Projects that are not
// public and that the caller is not a member of are reported as missing.
func open(ctx context.Context, c echo.Context, userID uuid.UUID) (workspace, error) {
	id, err := request.ParamUUID(c, "id")
	if err != nil {
		return workspace{}, err
	}

	ctx, repo, err := request.Resolve[*project.Repository](ctx)
	if err != nil {
		return workspace{}, err
	}

	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return workspace{}, err
	}
	if p == nil {
		return workspace{}, request.NotFound("project")
	}

	role, err := repo.RoleOf(ctx, p.ID, userID)
	if err != nil {
		return workspace{}, err
	}
	if role == "" && p.OwnerID == userID {
		role = models.CollaboratorOwner
	}

	w := workspace{project: p, role: role}
	if !w.isMember() && p.Visibility != models.VisibilityPublic {
		return workspace{}, request.NotFound("project")
	}
	return w, nil
}
