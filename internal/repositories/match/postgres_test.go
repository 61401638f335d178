package match_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/internal/repositories/message"
	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
)

func TestMatchesOnPostgres(t *testing.T) {
	store := databasetest.Postgres(t)
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	matches := match.NewRepository(store, databasetest.NopLogger())
	messages := message.NewRepository(store, matches, databasetest.NopLogger())

	alice, bob := uuid.New(), uuid.New()
	m, created, err := matches.CreateIfAbsent(ctx, alice, bob)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := matches.CreateIfAbsent(ctx, bob, alice)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)

	t.Run("pair stored out of order violates the check", func(t *testing.T) {
		first, second := models.OrderedPair(uuid.New(), uuid.New())
		_, err := matches.Create(ctx, models.Match{
			UserID1:     second,
			UserID2:     first,
			InitiatedBy: first,
			Status:      models.MatchStatusPending,
		})
		var storeErr *apperrors.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, http.StatusBadRequest, storeErr.Status)
		assert.Equal(t, "23514", storeErr.Code)
	})

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		_, err := matches.Create(ctx, *m)
		var storeErr *apperrors.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, http.StatusConflict, storeErr.Status)
		assert.Equal(t, "23505", storeErr.Code)
	})

	confirmed, err := matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusMatched)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusMatched, confirmed.Status)

	_, err = matches.UpdateStatus(ctx, m.ID, models.MatchStatusPending, models.MatchStatusRejected)
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusConflict, storeErr.Status)

	for _, body := range []string{"one", "two"} {
		_, err := messages.Send(ctx, m.ID, alice, body)
		require.NoError(t, err)
	}
	counts, err := messages.UnreadCounts(ctx, bob, []uuid.UUID{m.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{m.ID: 2}, counts)

	mine, err := matches.ListForUser(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, m.ID, mine[0].ID)
}
