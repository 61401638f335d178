package crud_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/crud"
	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/database/databasetest"
	apperrors "github.com/Rath300/research-collab/pkg/errors"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/schema"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T) (context.Context, *crud.Client[models.Profile, *models.Profile], database.DB, *clock) {
	t.Helper()
	db := databasetest.New(t)
	clk := &clock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	client := crud.New[models.Profile](db, models.ProfilesTable, schema.Profile, databasetest.NopLogger(), crud.WithClock(clk.now))
	ctx := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	return ctx, client, db, clk
}

func profile(first, last string) models.Profile {
	bio := "researcher"
	return models.Profile{FirstName: first, LastName: last, Bio: &bio}
}

func TestCreateAndGetByID(t *testing.T) {
	ctx, client, _, clk := setup(t)

	in := profile("  Ada ", "Lovelace")
	in.Skills = database.NewJSONB([]string{"math"})
	created, err := client.Create(ctx, in)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "Ada", created.FirstName)
	assert.True(t, clk.t.Equal(created.CreatedAt))

	got, err := client.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, []string{"math"}, got.Skills.Data)
	assert.Equal(t, models.VisibilityPublic, got.Visibility)
	assert.True(t, clk.t.Equal(got.UpdatedAt))
}

func TestCreateKeepsProvidedID(t *testing.T) {
	ctx, client, _, _ := setup(t)

	in := profile("Grace", "Hopper")
	in.ID = uuid.New()
	created, err := client.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, created.ID)
}

func TestGetByIDMissingIsNil(t *testing.T) {
	ctx, client, _, _ := setup(t)

	got, err := client.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateInvalidNeverTouchesStore(t *testing.T) {
	ctx, client, db, _ := setup(t)

	_, err := client.Create(ctx, models.Profile{FirstName: "OnlyFirst"})
	require.Error(t, err)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("last_name"))
	assert.Equal(t, http.StatusBadRequest, apperrors.ToHTTPError(err).Code)

	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM profiles"))
	assert.Zero(t, n)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	ctx, client, _, _ := setup(t)

	in := profile("Ada", "Lovelace")
	in.ID = uuid.New()
	_, err := client.Create(ctx, in)
	require.NoError(t, err)

	_, err = client.Create(ctx, in)
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusConflict, storeErr.Status)
}

func TestUpdateAppliesPatchAndStampsUpdatedAt(t *testing.T) {
	ctx, client, _, clk := setup(t)

	created, err := client.Create(ctx, profile("Ada", "Lovelace"))
	require.NoError(t, err)

	clk.advance(time.Hour)
	updated, err := client.Update(ctx, created.ID, map[string]any{
		"institution": " Cambridge ",
		"website":     "",
	})
	require.NoError(t, err)
	require.NotNil(t, updated)

	require.NotNil(t, updated.Institution)
	assert.Equal(t, "Cambridge", *updated.Institution)
	assert.Nil(t, updated.Website)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.True(t, clk.t.Equal(updated.UpdatedAt))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestUpdateInvalidNeverTouchesStore(t *testing.T) {
	ctx, client, _, clk := setup(t)

	created, err := client.Create(ctx, profile("Ada", "Lovelace"))
	require.NoError(t, err)

	clk.advance(time.Hour)
	_, err = client.Update(ctx, created.ID, map[string]any{"email": "nope", "first_name": ""})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("email"))
	assert.True(t, verr.HasField("first_name"))

	got, err := client.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, created.UpdatedAt.Equal(got.UpdatedAt))
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	ctx, client, _, _ := setup(t)

	_, err := client.Update(ctx, uuid.New(), map[string]any{"first_name": "X"})
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusNotFound, storeErr.Status)
}

func TestUpdateRowGoneBeforeReadIsNotFound(t *testing.T) {
	ctx, client, db, _ := setup(t)

	created, err := client.Create(ctx, profile("Ada", "Lovelace"))
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(), `CREATE TRIGGER profiles_vanish AFTER UPDATE ON profiles
		BEGIN DELETE FROM profiles WHERE id = NEW.id; END`)
	require.NoError(t, err)

	updated, err := client.Update(ctx, created.ID, map[string]any{"first_name": "Grace"})
	assert.Nil(t, updated)
	var storeErr *apperrors.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, http.StatusNotFound, storeErr.Status)
	assert.Equal(t, "not_found", storeErr.Code)
}

func TestDeleteIsUnconditional(t *testing.T) {
	ctx, client, _, _ := setup(t)

	created, err := client.Create(ctx, profile("Ada", "Lovelace"))
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, created.ID))
	require.NoError(t, client.Delete(ctx, created.ID))
	require.NoError(t, client.Delete(ctx, uuid.New()))

	got, err := client.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAll(t *testing.T) {
	ctx, client, _, clk := setup(t)

	for _, name := range []string{"A", "B", "C", "D"} {
		p := profile(name, "Smith")
		if name == "B" || name == "D" {
			p.Visibility = models.VisibilityPrivate
		}
		_, err := client.Create(ctx, p)
		require.NoError(t, err)
		clk.advance(time.Minute)
	}

	t.Run("newest first by default", func(t *testing.T) {
		all, err := client.GetAll(ctx, crud.FilterOptions{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "D", all[0].FirstName)
	})

	t.Run("ascending with paging", func(t *testing.T) {
		page, err := client.GetAll(ctx, crud.FilterOptions{OrderBy: "first_name", Ascending: true, Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "B", page[0].FirstName)
		assert.Equal(t, "C", page[1].FirstName)
	})

	t.Run("equality filters skip nil entries", func(t *testing.T) {
		private, err := client.GetAll(ctx, crud.FilterOptions{
			OrderBy:   "first_name",
			Ascending: true,
			Filters:   map[string]any{"visibility": "private", "institution": nil},
		})
		require.NoError(t, err)
		require.Len(t, private, 2)
		assert.Equal(t, "B", private[0].FirstName)
		assert.Equal(t, "D", private[1].FirstName)
	})

	t.Run("unknown order column", func(t *testing.T) {
		_, err := client.GetAll(ctx, crud.FilterOptions{OrderBy: "password"})
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.HasField("order_by"))
	})

	t.Run("unknown filter column", func(t *testing.T) {
		_, err := client.GetAll(ctx, crud.FilterOptions{Filters: map[string]any{"password": "x"}})
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestTenantIsolation(t *testing.T) {
	ctx, client, _, _ := setup(t)

	created, err := client.Create(ctx, profile("Ada", "Lovelace"))
	require.NoError(t, err)

	other := appctx.WithIdentity(context.Background(), uuid.New(), uuid.New())
	got, err := client.GetByID(other, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := client.GetAll(other, crud.FilterOptions{})
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, client.Delete(other, created.ID))
	still, err := client.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestMissingTenantIsUnauthorized(t *testing.T) {
	_, client, _, _ := setup(t)

	_, err := client.GetAll(context.Background(), crud.FilterOptions{})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.ToHTTPError(err).Code)
}
