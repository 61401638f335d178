package profile_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/profile"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	"github.com/Rath300/research-collab/pkg/models"
)

func newRepo(t *testing.T) (context.Context, *profile.Repository) {
	t.Helper()
	db := databasetest.New(t)
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	return ctx, profile.NewRepository(db, databasetest.NopLogger())
}

func create(t *testing.T, ctx context.Context, repo *profile.Repository, first, last, institution string, visibility models.Visibility) *models.Profile {
	t.Helper()
	bio := "bio"
	p := models.Profile{FirstName: first, LastName: last, Bio: &bio, Visibility: visibility}
	if institution != "" {
		p.Institution = &institution
	}
	created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	return created
}

func names(profiles []models.Profile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.FullName()
	}
	return out
}

func TestSearch(t *testing.T) {
	ctx, repo := newRepo(t)
	create(t, ctx, repo, "Ada", "Lovelace", "University of London", models.VisibilityPublic)
	create(t, ctx, repo, "Alan", "Turing", "Cambridge", models.VisibilityPublic)
	create(t, ctx, repo, "Grace", "Hopper", "Yale", models.VisibilityConnections)
	create(t, ctx, repo, "Hidden", "Adams", "Cambridge", models.VisibilityPrivate)

	t.Run("first name is case-insensitive", func(t *testing.T) {
		got, err := repo.Search(ctx, "aDA", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ada Lovelace"}, names(got))
	})

	t.Run("matches institution", func(t *testing.T) {
		got, err := repo.Search(ctx, "cambridge", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alan Turing"}, names(got))
	})

	t.Run("matches last name substring", func(t *testing.T) {
		got, err := repo.Search(ctx, "OPP", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Grace Hopper"}, names(got))
	})

	t.Run("blank term matches nothing", func(t *testing.T) {
		got, err := repo.Search(ctx, "   ", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit caps results", func(t *testing.T) {
		got, err := repo.Search(ctx, "a", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestSearchDefaultLimit(t *testing.T) {
	ctx, repo := newRepo(t)
	for i := 0; i < profile.DefaultSearchLimit+5; i++ {
		create(t, ctx, repo, fmt.Sprintf("Sam%02d", i), "Same", "", models.VisibilityPublic)
	}

	got, err := repo.Search(ctx, "sam", 0)
	require.NoError(t, err)
	assert.Len(t, got, profile.DefaultSearchLimit)
}

func TestListByIDsAndExcluding(t *testing.T) {
	ctx, repo := newRepo(t)
	a := create(t, ctx, repo, "A", "One", "", models.VisibilityPublic)
	create(t, ctx, repo, "B", "Two", "", models.VisibilityPublic)
	c := create(t, ctx, repo, "C", "Three", "", models.VisibilityPublic)
	create(t, ctx, repo, "D", "Private", "", models.VisibilityPrivate)

	got, err := repo.ListByIDs(ctx, []uuid.UUID{a.ID, c.ID, uuid.New()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A One", "C Three"}, names(got))

	empty, err := repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	rest, err := repo.ListExcluding(ctx, []uuid.UUID{a.ID}, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B Two", "C Three"}, names(rest))

	all, err := repo.ListExcluding(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSetAvatar(t *testing.T) {
	ctx, repo := newRepo(t)
	p := create(t, ctx, repo, "A", "One", "", models.VisibilityPublic)

	updated, err := repo.SetAvatar(ctx, p.ID, "https://cdn.example.com/avatars/a.png")
	require.NoError(t, err)
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/avatars/a.png", *updated.AvatarURL)
}
