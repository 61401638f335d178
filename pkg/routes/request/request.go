// Package request holds the helpers every route handler shares: binding,
// path and query parsing, caller identity and dependency resolution.
package request

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Rath300/research-collab/pkg/context"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Bind decodes the body into T and runs its validate tags.
func Bind[T any](c echo.Context) (T, error) {
	var v T

	if err := c.Bind(&v); err != nil {
		return v, httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(v); err != nil {
		return v, httperror.WrapError(http.StatusBadRequest, err)
	}

	return v, nil
}

// BindMap decodes a JSON object body as loosely typed fields for schema
// decoding or patching. An empty body is an empty map. Path and query
// parameters are not merged in.
func BindMap(c echo.Context) (map[string]any, error) {
	body := map[string]any{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return body, nil
}

// Resolve returns the T registered in the active container.
func Resolve[T any](ctx context.Context) (context.Context, T, error) {
	ctx, v, err := ectoinject.GetContext[T](ctx)
	if err != nil {
		var zero T
		return ctx, zero, httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	return ctx, v, nil
}

// Caller returns the request context and the authenticated user.
func Caller(c echo.Context) (context.Context, uuid.UUID, error) {
	ctx := c.Request().Context()
	userID, err := appctx.UserUUID(ctx)
	return ctx, userID, err
}

// ParamUUID parses the path parameter name.
func ParamUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "%s must be a valid id", name)
	}
	return id, nil
}

// QueryUUID parses the query parameter name, or returns fallback when it is absent.
func QueryUUID(c echo.Context, name string, fallback uuid.UUID) (uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "%s must be a valid id", name)
	}
	return id, nil
}

// QueryInt parses the query parameter name, or returns fallback when it is absent.
func QueryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "%s must be a non-negative integer", name)
	}
	return n, nil
}

func QueryBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.QueryParam(name))
	return b
}

// QueryList splits a comma separated query parameter, dropping blanks.
func QueryList(c echo.Context, name string) []string {
	var out []string
	for _, part := range strings.Split(c.QueryParam(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Page reads limit and offset.
func Page(c echo.Context, defaultLimit int) (int, int, error) {
	limit, err := QueryInt(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err := QueryInt(c, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// Strip removes keys the caller may not set through a body.
func Strip(body map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		delete(body, k)
	}
	return body
}

func NotFound(entity string) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, "%s not found", entity)
}

func Forbidden(message string) error {
	return httperror.NewHTTPError(http.StatusForbidden, message)
}
