package post_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/post"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

type fixture struct {
	ctx      context.Context
	posts    *post.Repository
	profiles *profile.Repository
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.New(t)
	f := &fixture{
		ctx: appctx.WithIdentity(context.Background(), uuid.New(), uuid.New()),
		now: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := crud.WithClock(func() time.Time { return f.now })
	f.posts = post.NewRepository(db, databasetest.NopLogger(), clock)
	f.profiles = profile.NewRepository(db, databasetest.NopLogger(), clock)
	return f
}

func (f *fixture) author(t *testing.T, first, last string) *models.Profile {
	t.Helper()
	bio := "bio"
	title := "Dr"
	p, err := f.profiles.Create(f.ctx, models.Profile{FirstName: first, LastName: last, Bio: &bio, Title: &title})
	require.NoError(t, err)
	return p
}

func (f *fixture) post(t *testing.T, userID uuid.UUID, title string, visibility models.Visibility) *models.ResearchPost {
	t.Helper()
	f.now = f.now.Add(time.Minute)
	p, err := f.posts.Create(f.ctx, models.ResearchPost{
		UserID:     userID,
		Title:      title,
		Content:    "content",
		Visibility: visibility,
	})
	require.NoError(t, err)
	return p
}

func TestFeed(t *testing.T) {
	f := newFixture(t)
	ada := f.author(t, "Ada", "Lovelace")
	ghost := uuid.New()

	f.post(t, ada.ID, "first", models.VisibilityPublic)
	f.post(t, ada.ID, "hidden", models.VisibilityPrivate)
	f.post(t, ghost, "orphan", models.VisibilityPublic)
	f.post(t, ada.ID, "third", models.VisibilityPublic)

	feed, err := f.posts.Feed(f.ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, feed, 3)

	assert.Equal(t, "third", feed[0].Title)
	assert.Equal(t, "orphan", feed[1].Title)
	assert.Equal(t, "first", feed[2].Title)

	require.NotNil(t, feed[0].Author.FirstName)
	assert.Equal(t, "Ada", *feed[0].Author.FirstName)
	require.NotNil(t, feed[0].Author.Title)
	assert.Equal(t, "Dr", *feed[0].Author.Title)
	assert.Nil(t, feed[1].Author.ID)

	page, err := f.posts.Feed(f.ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "orphan", page[0].Title)
}

func TestFeedIsTenantScoped(t *testing.T) {
	f := newFixture(t)
	f.post(t, uuid.New(), "mine", models.VisibilityPublic)

	other := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	feed, err := f.posts.Feed(other, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestListByUser(t *testing.T) {
	f := newFixture(t)
	user := uuid.New()
	f.post(t, user, "a", models.VisibilityPublic)
	f.post(t, user, "b", models.VisibilityPrivate)
	f.post(t, uuid.New(), "c", models.VisibilityPublic)

	got, err := f.posts.ListByUser(f.ctx, user, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Title)
}

func TestEngagementSequential(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, uuid.New(), "liked", models.VisibilityPublic)

	f.now = f.now.Add(time.Hour)
	n, err := f.posts.IncrementEngagement(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.posts.IncrementEngagement(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.posts.GetByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.EngagementCount)
	assert.True(t, f.now.Equal(got.UpdatedAt))
}

func TestDecrementStopsAtZero(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, uuid.New(), "meh", models.VisibilityPublic)

	_, err := f.posts.IncrementEngagement(f.ctx, p.ID)
	require.NoError(t, err)

	n, err := f.posts.DecrementEngagement(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.posts.DecrementEngagement(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestIncrementMissingPost(t *testing.T) {
	f := newFixture(t)

	_, err := f.posts.IncrementEngagement(f.ctx, uuid.New())
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusNotFound, storeErr.Status)
}

func TestEngagementCannotBePatched(t *testing.T) {
	f := newFixture(t)
	p := f.post(t, uuid.New(), "x", models.VisibilityPublic)

	_, err := f.posts.Update(f.ctx, p.ID, map[string]any{"engagement_count": 99})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("engagement_count"))
}
