package collaborator_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/internal/repositories/project"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

func TestAddUpsertsRoleAndList(t *testing.T) {
	db := databasetest.New(t)
	logger := databasetest.NopLogger()
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())

	collaborators := collaborator.NewRepository(db, logger)
	projects := project.NewRepository(db, collaborators, logger)
	profiles := profile.NewRepository(db, logger)

	bio := "bio"
	owner, err := profiles.Create(ctx, models.Profile{FirstName: "Olive", LastName: "Owner", Bio: &bio})
	require.NoError(t, err)
	p, err := projects.CreateWithOwner(ctx, models.Project{OwnerID: owner.ID, Title: "Study"})
	require.NoError(t, err)

	guest := uuid.New()
	added, err := collaborators.Add(ctx, p.ID, guest, "")
	require.NoError(t, err)
	assert.Equal(t, models.CollaboratorViewer, added.Role)

	promoted, err := collaborators.Add(ctx, p.ID, guest, models.CollaboratorEditor)
	require.NoError(t, err)
	assert.Equal(t, models.CollaboratorEditor, promoted.Role)
	assert.Equal(t, added.ID, promoted.ID)

	members, err := collaborators.List(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.CollaboratorOwner, members[0].Role)
	require.NotNil(t, members[0].Profile.FirstName)
	assert.Equal(t, "Olive", *members[0].Profile.FirstName)
	assert.Nil(t, members[1].Profile.FirstName)

	require.NoError(t, collaborators.Remove(ctx, p.ID, guest))
	require.NoError(t, collaborators.Remove(ctx, p.ID, guest))

	members, err = collaborators.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestAddRejectsUnknownRole(t *testing.T) {
	db := databasetest.New(t)
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	collaborators := collaborator.NewRepository(db, databasetest.NopLogger())

	_, err := collaborators.Add(ctx, uuid.New(), uuid.New(), "admin")
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("role"))
}

func TestAddToMissingProjectIsStoreError(t *testing.T) {
	db := databasetest.New(t)
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	collaborators := collaborator.NewRepository(db, databasetest.NopLogger())

	_, err := collaborators.Add(ctx, uuid.New(), uuid.New(), models.CollaboratorViewer)
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 400, storeErr.Status)
}
