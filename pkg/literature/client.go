package literature

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/time/rate"

	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/tracing"
)

const (
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize caps a single source response (5MB)
	MaxResponseSize = 5 * 1024 * 1024
)

// ClientConfig holds HTTP settings shared by every source.
type ClientConfig struct {
	Timeout time.Duration
	// RatePerSecond limits requests to each source separately. Zero disables limiting.
	RatePerSecond float64
	UserAgent     string
}

// Client performs rate limited GETs and decodes their bodies.
type Client struct {
	http      *http.Client
	logger    ectologger.Logger
	rate      rate.Limit
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Source     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Source, e.StatusCode)
}

func NewClient(cfg ClientConfig, logger ectologger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "research-collab"
	}

	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
		rate:      limit,
		userAgent: cfg.UserAgent,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (c *Client) limiter(source string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[source]
	if !ok {
		l = rate.NewLimiter(c.rate, 1)
		c.limiters[source] = l
	}
	return l
}

// GetJSON fetches url on behalf of source and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, source, url string, headers map[string]string, out any) error {
	body, err := c.get(ctx, source, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s returned invalid JSON: %w", source, err)
	}
	return nil
}

// GetXML fetches url on behalf of source and decodes the XML body into out.
func (c *Client) GetXML(ctx context.Context, source, url string, headers map[string]string, out any) error {
	body, err := c.get(ctx, source, url, headers)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s returned invalid XML: %w", source, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, source, url string, headers map[string]string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "literature."+source)
	defer span.End()

	waitStart := time.Now()
	if err := c.limiter(source).Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit wait: %w", source, err)
	}
	metrics.RecordRateLimitWait(source, time.Since(waitStart).Seconds())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", source, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		tracing.RecordError(ctx, err)
		metrics.RecordHTTPRequest(source, "error", time.Since(start).Seconds())
		c.logger.WithContext(ctx).WithError(err).Warnf("%s request failed", source)
		return nil, fmt.Errorf("%s request failed: %w", source, err)
	}
	defer resp.Body.Close()

	metrics.RecordHTTPRequest(source, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Source: source, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", source, err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%s response too large (max %d bytes)", source, MaxResponseSize)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"source":      source,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("literature request completed")

	return body, nil
}
