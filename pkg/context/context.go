package context

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
)

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	RouteKey     = ContextKey("X-Route")
	TenantIDKey  = ContextKey("X-Tenant-Id")
	UserIDKey    = ContextKey("X-User-Id")
)

func set(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func get(ctx context.Context, key ContextKey) string {
	value, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return set(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	return get(ctx, RequestIDKey)
}

func SetRoute(ctx context.Context, route string) context.Context {
	return set(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	return get(ctx, RouteKey)
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return set(ctx, TenantIDKey, tenantID)
}

func GetTenantID(ctx context.Context) string {
	return get(ctx, TenantIDKey)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return set(ctx, UserIDKey, userID)
}

func GetUserID(ctx context.Context) string {
	return get(ctx, UserIDKey)
}

// WithIdentity sets both tenant and user on the context.
func WithIdentity(ctx context.Context, tenantID, userID uuid.UUID) context.Context {
	return SetUserID(SetTenantID(ctx, tenantID.String()), userID.String())
}

// TenantUUID returns the tenant of the caller, or a 401 when it is absent or malformed.
func TenantUUID(ctx context.Context) (uuid.UUID, error) {
	return parseIdentity(GetTenantID(ctx))
}

// UserUUID returns the authenticated user, or a 401 when it is absent or malformed.
func UserUUID(ctx context.Context) (uuid.UUID, error) {
	return parseIdentity(GetUserID(ctx))
}

func parseIdentity(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, httperror.NewHTTPError(http.StatusUnauthorized, "invalid authentication token")
	}
	return id, nil
}
