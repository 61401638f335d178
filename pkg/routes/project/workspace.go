package project

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/note"
	"github.com/Rath300/research-collab/internal/repositories/task"
	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// TransitionRequest is the request body for moving a task to another status
type TransitionRequest struct {
	Status models.TaskStatus `json:"status" validate:"required,oneof=todo in_progress completed archived"`
}

// AssignRequest is the request body for assigning a task. A null assignee
// clears the assignment.
type AssignRequest struct {
	AssigneeID *uuid.UUID `json:"assignee_id"`
}

func ListNotes(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListNotes")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireMember(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*note.Repository](ctx)
	if err != nil {
		return err
	}

	notes, err := repo.ListByProject(ctx, w.project.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notes)
}

func CreateNote(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.CreateNote")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	body, err := request.BindMap(c)
	if err != nil {
		return err
	}
	body = request.Strip(body, "last_edited_by")
	body["project_id"] = w.project.ID.String()
	body["created_by"] = userID.String()

	n, err := schema.ProjectNote.Decode(ctx, body)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*note.Repository](ctx)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, n)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

func UpdateNote(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UpdateNote")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*note.Repository](ctx)
	if err != nil {
		return err
	}

	n, err := projectNote(ctx, c, repo, w.project.ID)
	if err != nil {
		return err
	}

	patch, err := request.BindMap(c)
	if err != nil {
		return err
	}

	updated, err := repo.Edit(ctx, n.ID, userID, request.Strip(patch, "project_id", "created_by"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

func DeleteNote(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.DeleteNote")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*note.Repository](ctx)
	if err != nil {
		return err
	}

	n, err := projectNote(ctx, c, repo, w.project.ID)
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, n.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// ListTasks lists the project's tasks; archived tasks need include_archived=true
func ListTasks(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListTasks")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireMember(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*task.Repository](ctx)
	if err != nil {
		return err
	}

	tasks, err := repo.ListByProject(ctx, w.project.ID, request.QueryBool(c, "include_archived"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tasks)
}

func CreateTask(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.CreateTask")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	body, err := request.BindMap(c)
	if err != nil {
		return err
	}
	body["project_id"] = w.project.ID.String()
	body["created_by"] = userID.String()

	t, err := schema.ProjectTask.Decode(ctx, body)
	if err != nil {
		return err
	}
	if t.AssigneeID != nil {
		if err := requireCollaborator(ctx, w.project.ID, *t.AssigneeID); err != nil {
			return err
		}
	}

	ctx, repo, err := request.Resolve[*task.Repository](ctx)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, t)
	if err != nil {
		return err
	}
	if created.AssigneeID != nil {
		announceAssignment(ctx, w.project, created, userID)
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateTask edits the task's details. Status and assignee have their own
// routes.
func UpdateTask(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UpdateTask")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*task.Repository](ctx)
	if err != nil {
		return err
	}

	t, err := projectTask(ctx, c, repo, w.project.ID)
	if err != nil {
		return err
	}

	patch, err := request.BindMap(c)
	if err != nil {
		return err
	}

	updated, err := repo.Update(ctx, t.ID, request.Strip(patch, "project_id", "created_by", "status", "assignee_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

func TransitionTask(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.TransitionTask")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireMember(); err != nil {
		return err
	}

	req, err := request.Bind[TransitionRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*task.Repository](ctx)
	if err != nil {
		return err
	}

	t, err := projectTask(ctx, c, repo, w.project.ID)
	if err != nil {
		return err
	}
	// viewers may move their own tasks along
	if !w.role.CanEdit() && (t.AssigneeID == nil || *t.AssigneeID != userID) {
		return w.requireEditor()
	}

	updated, err := repo.Transition(ctx, t.ID, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

func AssignTask(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.AssignTask")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	req, err := request.Bind[AssignRequest](c)
	if err != nil {
		return err
	}
	if req.AssigneeID != nil {
		if err := requireCollaborator(ctx, w.project.ID, *req.AssigneeID); err != nil {
			return err
		}
	}

	ctx, repo, err := request.Resolve[*task.Repository](ctx)
	if err != nil {
		return err
	}

	t, err := projectTask(ctx, c, repo, w.project.ID)
	if err != nil {
		return err
	}

	updated, err := repo.Assign(ctx, t.ID, req.AssigneeID)
	if err != nil {
		return err
	}
	if updated.AssigneeID != nil {
		announceAssignment(ctx, w.project, updated, userID)
	}

	return c.JSON(http.StatusOK, updated)
}

func DeleteTask(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.DeleteTask")
	defer span.End()

	w, err := open(ctx, c, userID)
	if err != nil {
		return err
	}
	if err := w.requireEditor(); err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*task.Repository](ctx)
	if err != nil {
		return err
	}

	t, err := projectTask(ctx, c, repo, w.project.ID)
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, t.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func projectNote(ctx context.Context, c echo.Context, repo *note.Repository, projectID uuid.UUID) (*models.ProjectNote, error) {
	id, err := request.ParamUUID(c, "note_id")
	if err != nil {
		return nil, err
	}
	n, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil || n.ProjectID != projectID {
		return nil, request.NotFound("note")
	}
	return n, nil
}

func projectTask(ctx context.Context, c echo.Context, repo *task.Repository, projectID uuid.UUID) (*models.ProjectTask, error) {
	id, err := request.ParamUUID(c, "task_id")
	if err != nil {
		return nil, err
	}
	t, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.ProjectID != projectID {
		return nil, request.NotFound("task")
	}
	return t, nil
}

// requireCollaborator rejects assignees who are not on the project.
func requireCollaborator(ctx context.Context, projectID, userID uuid.UUID) error {
	ctx, repo, err := request.Resolve[*collaborator.Repository](ctx)
	if err != nil {
		return err
	}
	m, err := repo.Get(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return request.Forbidden("tasks can only be assigned to project collaborators")
	}
	return nil
}

func announceAssignment(ctx context.Context, p *models.Project, t *models.ProjectTask, actorID uuid.UUID) {
	ctx, notifier, err := request.Resolve[*notification.Service](ctx)
	if err != nil {
		return
	}
	notifier.Announce(ctx, *t.AssigneeID, actorID, models.NotificationTaskAssigned,
		fmt.Sprintf("You were assigned %q in %q", t.Title, p.Title),
		"/projects/"+p.ID.String()+"/tasks")
}
