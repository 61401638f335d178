package profile

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/profile"
	matchsvc "github.com/Rath300/research-collab/internal/services/match"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/storage"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const avatarField = "avatar"

// Register registers profile routes
func Register(g *echo.Group) {
	g.GET("/search", SearchProfiles)
	g.GET("/potential-matches", PotentialMatches)
	g.GET("/me", GetOwnProfile)
	g.POST("/me", CreateOwnProfile)
	g.PATCH("/me", UpdateOwnProfile)
	g.POST("/me/avatar", UploadAvatar)
	g.GET("/:id", GetProfile)
}

// SearchProfiles matches q against names, institution and title
func SearchProfiles(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "routes.SearchProfiles")
	defer span.End()

	limit, err := request.QueryInt(c, "limit", profile.DefaultSearchLimit)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}

	profiles, err := repo.Search(ctx, c.QueryParam("q"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profiles)
}

// PotentialMatches lists researchers the caller has no match with yet
func PotentialMatches(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.PotentialMatches")
	defer span.End()

	limit, err := request.QueryInt(c, "limit", profile.DefaultSearchLimit)
	if err != nil {
		return err
	}

	ctx, svc, err := request.Resolve[*matchsvc.Service](ctx)
	if err != nil {
		return err
	}

	profiles, err := svc.PotentialMatches(ctx, userID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profiles)
}

// GetProfile returns the :id profile when its visibility lets the caller see
// it. Hidden profiles are reported as missing.
func GetProfile(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.GetProfile")
	defer span.End()

	id, err := request.ParamUUID(c, "id")
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}

	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return request.NotFound("profile")
	}

	visible, err := request.CanSee(ctx, userID, p.ID, p.Visibility)
	if err != nil {
		return err
	}
	if !visible {
		return request.NotFound("profile")
	}

	return c.JSON(http.StatusOK, p)
}

func GetOwnProfile(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.GetOwnProfile")
	defer span.End()

	ctx, repo, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}

	p, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return request.NotFound("profile")
	}

	return c.JSON(http.StatusOK, p)
}

// CreateOwnProfile creates the caller's profile. The profile id is the
// caller's account id, so a second create conflicts.
func CreateOwnProfile(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.CreateOwnProfile")
	defer span.End()

	body, err := request.BindMap(c)
	if err != nil {
		return err
	}

	p, err := schema.Profile.Decode(ctx, request.Strip(body, "avatar_url"))
	if err != nil {
		return err
	}
	p.ID = userID

	ctx, repo, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, p)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithField("id", created.ID).Info("Created profile")
	}

	return c.JSON(http.StatusCreated, created)
}

func UpdateOwnProfile(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UpdateOwnProfile")
	defer span.End()

	patch, err := request.BindMap(c)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}

	updated, err := repo.Update(ctx, userID, request.Strip(patch, "avatar_url"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// UploadAvatar stores the multipart file "avatar" and points the caller's
// profile at its public URL.
func UploadAvatar(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UploadAvatar")
	defer span.End()

	header, err := c.FormFile(avatarField)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "multipart field %q is required", avatarField)
	}

	ctx, store, err := ectoinject.GetContext[*storage.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "file storage is not configured")
	}
	ctx, repo, err := request.Resolve[*profile.Repository](ctx)
	if err != nil {
		return err
	}

	file, err := header.Open()
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	defer file.Close()

	path, err := store.Upload(ctx, store.AvatarBucket(), storage.AvatarPath(userID, header.Filename, time.Now()), file, header.Size, storage.UploadOptions{
		ContentType: header.Header.Get(echo.HeaderContentType),
		Upsert:      true,
	})
	if err != nil {
		return err
	}

	updated, err := repo.SetAvatar(ctx, userID, store.PublicURL(store.AvatarBucket(), path))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}
