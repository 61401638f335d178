package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/pkg/health"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func get(t *testing.T, c *health.Checker, path string) (int, health.Response) {
	t.Helper()
	e := echo.New()
	c.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body health.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadinessWaitsForStartup(t *testing.T) {
	c := health.NewChecker("test").Require("database", ok)

	code, body := get(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "startup")

	c.SetReady(true)
	code, body = get(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusHealthy, body.Status)
}

func TestOptionalFailureDegrades(t *testing.T) {
	c := health.NewChecker("test").Require("database", ok).Optional("redis", failing)

	code, body := get(t, c, "/api/v1/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusDegraded, body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"].Message)
}

func TestRequiredFailureIsUnhealthy(t *testing.T) {
	c := health.NewChecker("test").Require("database", failing).Optional("redis", ok)

	code, body := get(t, c, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, health.StatusUnhealthy, body.Status)

	code, _ = get(t, c, "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
}
