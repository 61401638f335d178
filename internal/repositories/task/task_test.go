package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/project"
	"github.com/Rath300/research-collab/internal/repositories/task"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

func setup(t *testing.T) (context.Context, *task.Repository, uuid.UUID) {
	t.Helper()
	db := databasetest.New(t)
	logger := databasetest.NopLogger()
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())

	projects := project.NewRepository(db, collaborator.NewRepository(db, logger), logger)
	p, err := projects.CreateWithOwner(ctx, models.Project{OwnerID: uuid.New(), Title: "Trial"})
	require.NoError(t, err)

	return ctx, task.NewRepository(db, logger), p.ID
}

func TestTransition(t *testing.T) {
	ctx, tasks, projectID := setup(t)

	created, err := tasks.Create(ctx, models.ProjectTask{ProjectID: projectID, Title: "Write protocol", CreatedBy: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusTodo, created.Status)
	assert.Equal(t, models.TaskPriorityMedium, created.Priority)

	_, err = tasks.Transition(ctx, created.ID, models.TaskStatusCompleted)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("status"))

	started, err := tasks.Transition(ctx, created.ID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, started.Status)

	same, err := tasks.Transition(ctx, created.ID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, same.Status)

	done, err := tasks.Transition(ctx, created.ID, models.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)

	_, err = tasks.Transition(ctx, uuid.New(), models.TaskStatusCompleted)
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 404, storeErr.Status)
}

func TestListingAndAssignment(t *testing.T) {
	ctx, tasks, projectID := setup(t)
	creator, assignee := uuid.New(), uuid.New()
	soon := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	later := soon.AddDate(0, 1, 0)

	undated, err := tasks.Create(ctx, models.ProjectTask{ProjectID: projectID, Title: "Someday", CreatedBy: creator})
	require.NoError(t, err)
	dueLater, err := tasks.Create(ctx, models.ProjectTask{ProjectID: projectID, Title: "Later", CreatedBy: creator, DueDate: &later})
	require.NoError(t, err)
	dueSoon, err := tasks.Create(ctx, models.ProjectTask{ProjectID: projectID, Title: "Soon", CreatedBy: creator, DueDate: &soon})
	require.NoError(t, err)
	archived, err := tasks.Create(ctx, models.ProjectTask{ProjectID: projectID, Title: "Old", CreatedBy: creator})
	require.NoError(t, err)
	_, err = tasks.Transition(ctx, archived.ID, models.TaskStatusArchived)
	require.NoError(t, err)

	open, err := tasks.ListByProject(ctx, projectID, false)
	require.NoError(t, err)
	require.Len(t, open, 3)
	assert.Equal(t, []uuid.UUID{dueSoon.ID, dueLater.ID, undated.ID}, []uuid.UUID{open[0].ID, open[1].ID, open[2].ID})

	all, err := tasks.ListByProject(ctx, projectID, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	assigned, err := tasks.Assign(ctx, dueLater.ID, &assignee)
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, assignee, *assigned.AssigneeID)

	mine, err := tasks.ListAssigned(ctx, assignee)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, dueLater.ID, mine[0].ID)

	cleared, err := tasks.Assign(ctx, dueLater.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.AssigneeID)
}
