package project_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/collaborator"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	"github.com/Rath300/research-collab/internal/repositories/project"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	"github.com/Rath300/research-collab/pkg/models"
)

type fixture struct {
	ctx           context.Context
	db            database.DB
	projects      *project.Repository
	collaborators *collaborator.Repository
	profiles      *profile.Repository
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx: appctx.WithIdentity(context.Background(), uuid.New(), uuid.New()),
		db:  databasetest.New(t),
		now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	clock := crud.WithClock(func() time.Time { return f.now })
	logger := databasetest.NopLogger()
	f.collaborators = collaborator.NewRepository(f.db, logger, clock)
	f.projects = project.NewRepository(f.db, f.collaborators, logger, clock)
	f.profiles = profile.NewRepository(f.db, logger, clock)
	return f
}

func (f *fixture) profile(t *testing.T, first string) *models.Profile {
	t.Helper()
	bio := "bio"
	p, err := f.profiles.Create(f.ctx, models.Profile{FirstName: first, LastName: "X", Bio: &bio})
	require.NoError(t, err)
	return p
}

func (f *fixture) project(t *testing.T, owner uuid.UUID, title string, visibility models.Visibility) *models.Project {
	t.Helper()
	f.now = f.now.Add(time.Minute)
	p, err := f.projects.CreateWithOwner(f.ctx, models.Project{
		OwnerID:         owner,
		Title:           title,
		Visibility:      visibility,
		CommitmentHours: 200,
	})
	require.NoError(t, err)
	return p
}

func TestCreateWithOwnerEnrolsOwner(t *testing.T) {
	f := newFixture(t)
	owner := f.profile(t, "Owner")

	p := f.project(t, owner.ID, "Protein folding", models.VisibilityPublic)
	assert.Equal(t, models.ProjectStatusPlanning, p.Status)
	assert.Equal(t, 80, p.CommitmentHours)

	role, err := f.projects.RoleOf(f.ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CollaboratorOwner, role)

	role, err = f.projects.RoleOf(f.ctx, p.ID, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, role)
}

func TestCreateWithOwnerRollsBackOnInvalidProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.projects.CreateWithOwner(f.ctx, models.Project{OwnerID: uuid.New()})
	require.Error(t, err)

	var n int
	require.NoError(t, f.db.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM project_collaborators"))
	assert.Zero(t, n)
}

func TestFeedAndMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.profile(t, "Owner")
	member := f.profile(t, "Member")

	a := f.project(t, owner.ID, "A", models.VisibilityPublic)
	f.project(t, owner.ID, "B", models.VisibilityPrivate)
	c := f.project(t, member.ID, "C", models.VisibilityPublic)

	feed, err := f.projects.Feed(f.ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "C", feed[0].Title)
	require.NotNil(t, feed[0].Owner.FirstName)
	assert.Equal(t, "Member", *feed[0].Owner.FirstName)

	_, err = f.collaborators.Add(f.ctx, a.ID, member.ID, models.CollaboratorEditor)
	require.NoError(t, err)

	mine, err := f.projects.ListForMember(f.ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, c.ID, mine[0].ID)
	assert.Equal(t, a.ID, mine[1].ID)

	none, err := f.projects.ListForMember(f.ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}
