package middleware

import (
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	appctx "github.com/Rath300/research-collab/pkg/context"
)

const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// Context stamps the request id and route on the request context and makes
// containerID the active dependency container for handlers.
func Context(containerID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = appctx.SetRequestID(ctx, requestID)
			ctx = appctx.SetRoute(ctx, req.URL.Path)

			if containerID != "" {
				var err error
				ctx, err = ectoinject.SetActiveContainer(ctx, containerID)
				if err != nil {
					return err
				}
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
