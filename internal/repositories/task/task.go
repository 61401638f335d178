package task

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/query"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Repository stores project tasks.
type Repository struct {
	*crud.Client[models.ProjectTask, *models.ProjectTask]
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger, opts ...crud.Option) *Repository {
	return &Repository{
		Client: crud.New[models.ProjectTask](db, models.ProjectTasksTable, schema.ProjectTask, logger, opts...),
		db:     db,
		logger: logger,
	}
}

// ListByProject returns the tasks of projectID ordered by due date, undated
// tasks last. Archived tasks are left out unless includeArchived is set.
func (r *Repository) ListByProject(ctx context.Context, projectID uuid.UUID, includeArchived bool) ([]models.ProjectTask, error) {
	ctx, span := tracing.StartSpan(ctx, "TaskRepository.ListByProject")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("project_id", projectID),
	}
	if !includeArchived {
		d.Where = append(d.Where, query.NotEqual("status", models.TaskStatusArchived))
	}
	d.OrderBy = []query.Order{
		query.Asc("due_date IS NULL"),
		query.Asc("due_date"),
		query.Asc("created_at"),
	}

	return query.Select[models.ProjectTask](ctx, r.db, d)
}

// ListAssigned returns the open tasks assigned to userID across projects.
func (r *Repository) ListAssigned(ctx context.Context, userID uuid.UUID) ([]models.ProjectTask, error) {
	ctx, span := tracing.StartSpan(ctx, "TaskRepository.ListAssigned")
	defer span.End()

	tenantID, err := appctx.TenantUUID(ctx)
	if err != nil {
		return nil, err
	}

	d := r.Select()
	d.Where = []query.Filter{
		query.Equal("tenant_id", tenantID),
		query.Equal("assignee_id", userID),
		query.In("status", models.TaskStatusTodo, models.TaskStatusInProgress),
	}
	d.OrderBy = []query.Order{query.Asc("due_date IS NULL"), query.Asc("due_date")}

	return query.Select[models.ProjectTask](ctx, r.db, d)
}

// Transition moves the task to next if its current status allows it.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, next models.TaskStatus) (*models.ProjectTask, error) {
	ctx, span := tracing.StartSpan(ctx, "TaskRepository.Transition")
	defer span.End()

	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &apperrors.StoreError{
			Message: fmt.Sprintf("project_task %s not found", id),
			Status:  http.StatusNotFound,
			Code:    "not_found",
		}
	}
	if !t.Status.CanTransition(next) {
		return nil, apperrors.NewValidationError("project_task", apperrors.FieldError{
			Field:   "status",
			Message: fmt.Sprintf("cannot change from %s to %s", t.Status, next),
		})
	}
	if t.Status == next {
		return t, nil
	}

	return r.Update(ctx, id, map[string]any{"status": next})
}

// Assign sets or clears the task's assignee.
func (r *Repository) Assign(ctx context.Context, id uuid.UUID, assignee *uuid.UUID) (*models.ProjectTask, error) {
	var v any
	if assignee != nil {
		v = *assignee
	}
	return r.Update(ctx, id, map[string]any{"assignee_id": v})
}
