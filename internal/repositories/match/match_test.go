package match_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/profile"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

type fixture struct {
	ctx      context.Context
	matches  *match.Repository
	profiles *profile.Repository
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.New(t)
	f := &fixture{
		ctx: appctx.WithIdentity(context.Background(), uuid.New(), uuid.New()),
		now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	clock := crud.WithClock(func() time.Time { return f.now })
	f.matches = match.NewRepository(db, databasetest.NopLogger(), clock)
	f.profiles = profile.NewRepository(db, databasetest.NopLogger(), clock)
	return f
}

func (f *fixture) person(t *testing.T, first string) uuid.UUID {
	t.Helper()
	bio := "bio"
	p, err := f.profiles.Create(f.ctx, models.Profile{FirstName: first, LastName: "Test", Bio: &bio})
	require.NoError(t, err)
	return p.ID
}

func TestCreateIfAbsentStoresOnePairPerCouple(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()

	m, created, err := f.matches.CreateIfAbsent(f.ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.MatchStatusPending, m.Status)
	assert.Equal(t, alice, m.InitiatedBy)
	assert.True(t, m.Involves(alice))
	assert.True(t, m.Involves(bob))

	again, created, err := f.matches.CreateIfAbsent(f.ctx, bob, alice)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, alice, again.InitiatedBy)

	found, err := f.matches.FindBetween(f.ctx, bob, alice)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, m.ID, found.ID)

	none, err := f.matches.FindBetween(f.ctx, alice, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateIfAbsentRejectsSelfMatch(t *testing.T) {
	f := newFixture(t)
	me := uuid.New()

	_, _, err := f.matches.CreateIfAbsent(f.ctx, me, me)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("user_id_2"))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	m, _, err := f.matches.CreateIfAbsent(f.ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	updated, err := f.matches.UpdateStatus(f.ctx, m.ID, models.MatchStatusPending, models.MatchStatusMatched)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusMatched, updated.Status)
	assert.True(t, updated.UpdatedAt.Equal(f.now))

	_, err = f.matches.UpdateStatus(f.ctx, m.ID, models.MatchStatusPending, models.MatchStatusRejected)
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 409, storeErr.Status)

	_, err = f.matches.UpdateStatus(f.ctx, m.ID, models.MatchStatusMatched, models.MatchStatusPending)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestListForUserAndRelatedIDs(t *testing.T) {
	f := newFixture(t)
	me, a, b, c := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	_, _, err := f.matches.CreateIfAbsent(f.ctx, me, a)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	mb, _, err := f.matches.CreateIfAbsent(f.ctx, b, me)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, _, err = f.matches.CreateIfAbsent(f.ctx, a, c)
	require.NoError(t, err)

	_, err = f.matches.UpdateStatus(f.ctx, mb.ID, models.MatchStatusPending, models.MatchStatusRejected)
	require.NoError(t, err)

	all, err := f.matches.ListForUser(f.ctx, me)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.matches.ListForUser(f.ctx, me, models.MatchStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a, pending[0].Counterpart(me))

	ids, err := f.matches.RelatedIDs(f.ctx, me)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)
}

func TestListConfirmedJoinsBothProfiles(t *testing.T) {
	f := newFixture(t)
	ada := f.person(t, "Ada")
	grace := f.person(t, "Grace")
	ghost := uuid.New()

	m1, _, err := f.matches.CreateIfAbsent(f.ctx, ada, grace)
	require.NoError(t, err)
	m2, _, err := f.matches.CreateIfAbsent(f.ctx, ghost, ada)
	require.NoError(t, err)
	_, _, err = f.matches.CreateIfAbsent(f.ctx, ada, uuid.New())
	require.NoError(t, err)

	_, err = f.matches.UpdateStatus(f.ctx, m1.ID, models.MatchStatusPending, models.MatchStatusMatched)
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	_, err = f.matches.UpdateStatus(f.ctx, m2.ID, models.MatchStatusPending, models.MatchStatusMatched)
	require.NoError(t, err)

	confirmed, err := f.matches.ListConfirmed(f.ctx, ada)
	require.NoError(t, err)
	require.Len(t, confirmed, 2)
	assert.Equal(t, m2.ID, confirmed[0].ID)
	assert.Equal(t, m1.ID, confirmed[1].ID)

	names := map[uuid.UUID]string{}
	for _, s := range []models.AuthorSummary{confirmed[1].Profile1, confirmed[1].Profile2} {
		require.NotNil(t, s.ID)
		require.NotNil(t, s.FirstName)
		names[uuid.MustParse(*s.ID)] = *s.FirstName
	}
	assert.Equal(t, map[uuid.UUID]string{ada: "Ada", grace: "Grace"}, names)

	ghostSide := confirmed[0].Profile1
	if confirmed[0].UserID2 == ghost {
		ghostSide = confirmed[0].Profile2
	}
	assert.Nil(t, ghostSide.ID)
}
