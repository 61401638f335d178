package message_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/message"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

type fixture struct {
	ctx      context.Context
	db       database.DB
	matches  *match.Repository
	messages *message.Repository
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx: appctx.WithIdentity(context.Background(), uuid.New(), uuid.New()),
		db:  databasetest.New(t),
		now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := crud.WithClock(func() time.Time { return f.now })
	f.matches = match.NewRepository(f.db, databasetest.NopLogger(), clock)
	f.messages = message.NewRepository(f.db, f.matches, databasetest.NopLogger(), clock)
	return f
}

func (f *fixture) confirmed(t *testing.T, a, b uuid.UUID) *models.Match {
	t.Helper()
	m, _, err := f.matches.CreateIfAbsent(f.ctx, a, b)
	require.NoError(t, err)
	m, err = f.matches.UpdateStatus(f.ctx, m.ID, models.MatchStatusPending, models.MatchStatusMatched)
	require.NoError(t, err)
	return m
}

func (f *fixture) tick() {
	f.now = f.now.Add(time.Minute)
}

func TestSendSetsReceiverAndTouchesMatch(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	m := f.confirmed(t, alice, bob)

	f.tick()
	msg, err := f.messages.Send(f.ctx, m.ID, alice, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, bob, msg.ReceiverID)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.IsRead)

	touched, err := f.matches.GetByID(f.ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, touched.UpdatedAt.Equal(f.now))
}

func TestSendRejections(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()

	t.Run("missing match", func(t *testing.T) {
		_, err := f.messages.Send(f.ctx, uuid.New(), alice, "hi")
		var storeErr *apperrors.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, 404, storeErr.Status)
	})

	pending, _, err := f.matches.CreateIfAbsent(f.ctx, alice, bob)
	require.NoError(t, err)

	t.Run("pending match", func(t *testing.T) {
		_, err := f.messages.Send(f.ctx, pending.ID, alice, "hi")
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("match_id"))
	})

	confirmed := f.confirmed(t, uuid.New(), uuid.New())

	t.Run("outsider", func(t *testing.T) {
		_, err := f.messages.Send(f.ctx, confirmed.ID, alice, "hi")
		var storeErr *apperrors.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, 403, storeErr.Status)
	})

	t.Run("blank content", func(t *testing.T) {
		_, err := f.messages.Send(f.ctx, confirmed.ID, confirmed.UserID1, "   ")
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("content"))
	})

	var n int
	require.NoError(t, f.db.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM messages"))
	assert.Zero(t, n)
}

func TestSendChecksContentBeforeTouchingTheStore(t *testing.T) {
	store, err := database.OpenSQLite(":memory:", databasetest.NopLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	matches := match.NewRepository(store, databasetest.NopLogger())
	messages := message.NewRepository(store, matches, databasetest.NopLogger())
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())

	for name, content := range map[string]string{
		"blank":    "  \t ",
		"too long": strings.Repeat("x", 5001),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := messages.Send(ctx, uuid.New(), uuid.New(), content)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, verr.HasField("content"))
		})
	}

	_, err = messages.Send(ctx, uuid.New(), uuid.New(), "hi")
	require.Error(t, err)
	var verr *apperrors.ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestSendTrimsContent(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	m := f.confirmed(t, alice, bob)

	msg, err := f.messages.Send(f.ctx, m.ID, alice, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
}

func TestConversationReads(t *testing.T) {
	f := newFixture(t)
	alice, bob := uuid.New(), uuid.New()
	m := f.confirmed(t, alice, bob)
	other := f.confirmed(t, alice, uuid.New())

	latest, err := f.messages.Latest(f.ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, body := range []string{"one", "two", "three"} {
		f.tick()
		_, err := f.messages.Send(f.ctx, m.ID, bob, body)
		require.NoError(t, err)
	}
	f.tick()
	_, err = f.messages.Send(f.ctx, m.ID, alice, "reply")
	require.NoError(t, err)
	f.tick()
	_, err = f.messages.Send(f.ctx, other.ID, other.Counterpart(alice), "elsewhere")
	require.NoError(t, err)

	all, err := f.messages.ListByMatch(f.ctx, m.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "one", all[0].Content)
	assert.Equal(t, "reply", all[3].Content)

	page, err := f.messages.ListByMatch(f.ctx, m.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "two", page[0].Content)

	latest, err = f.messages.Latest(f.ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "reply", latest.Content)

	counts, err := f.messages.UnreadCounts(f.ctx, alice, []uuid.UUID{m.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{m.ID: 3, other.ID: 1}, counts)

	read, err := f.messages.MarkRead(f.ctx, all[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	changed, err := f.messages.MarkAllRead(f.ctx, m.ID, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	counts, err = f.messages.UnreadCounts(f.ctx, alice, []uuid.UUID{m.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{other.ID: 1}, counts)
}
