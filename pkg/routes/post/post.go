package post

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/internal/repositories/post"
	"github.com/Rath300/research-collab/internal/services/notification"
	"github.com/Rath300/research-collab/pkg/models"
	"github.com/Rath300/research-collab/pkg/optimistic"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/schema"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Register registers research post routes
func Register(g *echo.Group) {
	g.GET("/feed", Feed)
	g.GET("", ListPosts)
	g.POST("", CreatePost)
	g.GET("/:id", GetPost)
	g.PATCH("/:id", UpdatePost)
	g.DELETE("/:id", DeletePost)
	g.POST("/:id/like", LikePost)
	g.DELETE("/:id/like", UnlikePost)
}

// EngagementResponse carries a post's engagement count after a like or unlike
type EngagementResponse struct {
	ID              uuid.UUID `json:"id"`
	EngagementCount int       `json:"engagement_count"`
}

// Feed pages through public posts with their authors
func Feed(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "routes.PostFeed")
	defer span.End()

	limit, offset, err := request.Page(c, post.DefaultFeedLimit)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	posts, err := repo.Feed(ctx, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, posts)
}

// ListPosts lists the posts of user_id, defaulting to the caller. Other
// users' posts are filtered to those the caller may see.
func ListPosts(c echo.Context) error {
	ctx, callerID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.ListPosts")
	defer span.End()

	authorID, err := request.QueryUUID(c, "user_id", callerID)
	if err != nil {
		return err
	}

	limit, offset, err := request.Page(c, post.DefaultFeedLimit)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	posts, err := repo.ListByUser(ctx, authorID, limit, offset)
	if err != nil {
		return err
	}
	if authorID == callerID {
		return c.JSON(http.StatusOK, posts)
	}

	connected, err := request.Connected(ctx, callerID, authorID)
	if err != nil {
		return err
	}
	visible := ectolinq.Filter(posts, func(p models.ResearchPost) bool {
		return p.Visibility == models.VisibilityPublic || (connected && p.Visibility == models.VisibilityConnections)
	})

	return c.JSON(http.StatusOK, visible)
}

func CreatePost(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.CreatePost")
	defer span.End()

	body, err := request.BindMap(c)
	if err != nil {
		return err
	}
	body["user_id"] = userID.String()

	p, err := schema.ResearchPost.Decode(ctx, body)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	created, err := repo.Create(ctx, p)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

func GetPost(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.GetPost")
	defer span.End()

	p, err := visiblePost(ctx, c, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// UpdatePost lets the author change their post
func UpdatePost(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UpdatePost")
	defer span.End()

	p, err := ownPost(ctx, c, userID)
	if err != nil {
		return err
	}

	patch, err := request.BindMap(c)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	updated, err := repo.Update(ctx, p.ID, request.Strip(patch, "user_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

func DeletePost(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.DeletePost")
	defer span.End()

	p, err := ownPost(ctx, c, userID)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	if err := repo.Delete(ctx, p.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// LikePost adds one to the post's engagement and tells the author
func LikePost(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.LikePost")
	defer span.End()

	p, err := visiblePost(ctx, c, userID)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	count, err := adjustEngagement(ctx, p, p.EngagementCount+1, repo.IncrementEngagement)
	if err != nil {
		return err
	}

	if ctx, notifier, err := request.Resolve[*notification.Service](ctx); err == nil {
		notifier.Announce(ctx, p.UserID, userID, models.NotificationPostLike,
			fmt.Sprintf("Someone appreciated your post %q", p.Title), "/posts/"+p.ID.String())
	}

	return c.JSON(http.StatusOK, EngagementResponse{ID: p.ID, EngagementCount: count})
}

func UnlikePost(c echo.Context) error {
	ctx, userID, err := request.Caller(c)
	if err != nil {
		return err
	}
	ctx, span := tracing.StartSpan(ctx, "routes.UnlikePost")
	defer span.End()

	p, err := visiblePost(ctx, c, userID)
	if err != nil {
		return err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return err
	}

	count, err := adjustEngagement(ctx, p, max(p.EngagementCount-1, 0), repo.DecrementEngagement)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, EngagementResponse{ID: p.ID, EngagementCount: count})
}

// adjustEngagement writes a like or unlike as an optimistic update from the
// count the caller last saw to proposed.
func adjustEngagement(ctx context.Context, p *models.ResearchPost, proposed int, write func(context.Context, uuid.UUID) (int, error)) (int, error) {
	u, err := optimistic.Apply(ctx, p.EngagementCount, proposed, func(ctx context.Context, _ int) (int, error) {
		return write(ctx, p.ID)
	})
	if err != nil {
		if ctx, logger, lerr := ectoinject.GetContext[ectologger.Logger](ctx); lerr == nil {
			logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"post_id":  p.ID.String(),
				"previous": u.Previous(),
				"state":    string(u.State()),
			}).Warn("engagement update rolled back")
		}
		return 0, err
	}
	return u.Value(), nil
}

// visiblePost loads the :id post when userID may see it. Posts the caller may
// not see are reported as missing.
func visiblePost(ctx context.Context, c echo.Context, userID uuid.UUID) (*models.ResearchPost, error) {
	id, err := request.ParamUUID(c, "id")
	if err != nil {
		return nil, err
	}

	ctx, repo, err := request.Resolve[*post.Repository](ctx)
	if err != nil {
		return nil, err
	}

	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, request.NotFound("post")
	}

	visible, err := request.CanSee(ctx, userID, p.UserID, p.Visibility)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, request.NotFound("post")
	}
	return p, nil
}

func ownPost(ctx context.Context, c echo.Context, userID uuid.UUID) (*models.ResearchPost, error) {
	p, err := visiblePost(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, request.Forbidden("only the author can change a post")
	}
	return p, nil
}
