package literature

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Rath300/research-collab/pkg/literature"
	"github.com/Rath300/research-collab/pkg/routes/request"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// Register registers literature routes
func Register(g *echo.Group) {
	g.GET("/search", Search)
	g.GET("/sources", ListSources)
}

type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// Search queries ?q= across ?sources= (comma separated, default all) and
// returns up to ?limit= merged papers.
func Search(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "routes.SearchLiterature")
	defer span.End()

	limit, err := request.QueryInt(c, "limit", literature.DefaultLimit)
	if err != nil {
		return err
	}

	ctx, searcher, err := request.Resolve[*literature.Searcher](ctx)
	if err != nil {
		return err
	}

	results, err := searcher.Search(ctx, c.QueryParam("q"), request.QueryList(c, "sources"), limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, results)
}

func ListSources(c echo.Context) error {
	_, searcher, err := request.Resolve[*literature.Searcher](c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SourcesResponse{Sources: searcher.Sources()})
}
