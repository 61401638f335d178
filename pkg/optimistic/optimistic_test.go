package optimistic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/pkg/optimistic"
)

type profile struct {
	Title string
}

func TestPendingShowsProposedValue(t *testing.T) {
	u := optimistic.Begin(profile{Title: "Dr"}, profile{Title: "Prof"})

	assert.Equal(t, optimistic.StatePending, u.State())
	assert.Equal(t, "Prof", u.Value().Title)
	assert.Equal(t, "Dr", u.Previous().Title)
}

func TestApplyCommitsWrittenResult(t *testing.T) {
	u, err := optimistic.Apply(context.Background(), profile{Title: "Dr"}, profile{Title: "prof "},
		func(_ context.Context, p profile) (profile, error) {
			return profile{Title: "Prof"}, nil
		})
	require.NoError(t, err)

	assert.Equal(t, optimistic.StateCommitted, u.State())
	assert.Equal(t, "Prof", u.Value().Title)
	assert.NoError(t, u.Err())
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	boom := errors.New("write failed")
	u, err := optimistic.Apply(context.Background(), profile{Title: "Dr"}, profile{Title: "Prof"},
		func(context.Context, profile) (profile, error) {
			return profile{}, boom
		})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, optimistic.StateRolledBack, u.State())
	assert.Equal(t, "Dr", u.Value().Title)
	assert.ErrorIs(t, u.Err(), boom)
}

func TestSettledUpdatesCannotChange(t *testing.T) {
	u := optimistic.Begin(1, 2)
	require.NoError(t, u.Commit(3))

	assert.Error(t, u.Commit(4))
	assert.Error(t, u.Rollback(errors.New("late")))
	assert.Equal(t, 3, u.Value())

	r := optimistic.Begin(1, 2)
	require.NoError(t, r.Rollback(errors.New("failed")))
	assert.Error(t, r.Commit(2))
	assert.Equal(t, 1, r.Value())
}
