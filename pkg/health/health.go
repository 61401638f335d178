// Package health exposes liveness, readiness and dependency checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Response struct {
	Status     Status                 `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// CheckFunc pings one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
	// optional failures degrade the service instead of taking it down
	optional bool
}

// Checker runs the registered dependency checks.
type Checker struct {
	checks    []check
	startTime time.Time
	version   string
	timeout   time.Duration
	mu        sync.RWMutex
	ready     bool
}

func NewChecker(version string) *Checker {
	return &Checker{
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// Require registers a dependency the service cannot work without.
func (c *Checker) Require(name string, fn CheckFunc) *Checker {
	c.checks = append(c.checks, check{name: name, fn: fn})
	return c
}

// Optional registers a dependency whose failure only degrades the service.
func (c *Checker) Optional(name string, fn CheckFunc) *Checker {
	c.checks = append(c.checks, check{name: name, fn: fn, optional: true})
	return c
}

func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// LivenessHandler reports that the process is up.
func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		ReportedAt: time.Now(),
	})
}

// ReadinessHandler reports whether the service should receive traffic.
func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			Version:    c.version,
			ReportedAt: time.Now(),
			Checks: map[string]CheckResult{
				"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
			},
		})
	}
	return c.HealthHandler(ctx)
}

func (c *Checker) HealthHandler(ctx echo.Context) error {
	checks := c.Run(ctx.Request().Context())
	overall := Overall(checks)

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	return ctx.JSON(code, Response{
		Status:     overall,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     checks,
		ReportedAt: time.Now(),
	})
}

// Run executes every check concurrently.
func (c *Checker) Run(ctx context.Context) map[string]CheckResult {
	results := make(map[string]CheckResult, len(c.checks))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, chk := range c.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.run(ctx, chk)
			mu.Lock()
			results[chk.name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (c *Checker) run(ctx context.Context, chk check) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := chk.fn(ctx); err != nil {
		status := StatusUnhealthy
		if chk.optional {
			status = StatusDegraded
		}
		return CheckResult{Status: status, Message: err.Error(), Latency: time.Since(start).String()}
	}
	return CheckResult{Status: StatusHealthy, Latency: time.Since(start).String()}
}

// Overall folds check results into one status.
func Overall(checks map[string]CheckResult) Status {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := StatusHealthy
	for _, name := range names {
		switch checks[name].Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// RegisterRoutes mounts the health checks under /api/v1/health.
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/health")
	g.GET("", c.HealthHandler)
	g.GET("/live", c.LivenessHandler)
	g.GET("/ready", c.ReadinessHandler)
}
