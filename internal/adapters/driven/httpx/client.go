package httpx

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/logger"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

// Config configures a provider client.
type Config struct {
	// Provider names the upstream in errors and logs.
	Provider string

	BaseURL string
	Timeout time.Duration

	// Headers are sent with every request.
	Headers map[string]string

	// RequestsPerSecond throttles the client. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// Client is a throttled resty client for one provider.
type Client struct {
	provider string
	rest     *resty.Client
	limiter  *Limiter
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeaders(cfg.Headers)

	return &Client{
		provider: cfg.Provider,
		rest:     rest,
		limiter:  NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// Provider returns the provider name.
func (c *Client) Provider() string {
	return c.provider
}

// Request waits for the limiter and returns a request bound to ctx.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rest.R().SetContext(ctx), nil
}

// Check turns a resty result into a domain error. Transport failures are
// transient; a 429 also pauses the limiter for the advertised Retry-After.
func (c *Client) Check(resp *resty.Response, err error) error {
	if err != nil {
		return domain.Transient(fmt.Errorf("%s: %w", c.provider, err))
	}
	if resp.StatusCode() == 429 {
		if wait := ParseRetryAfter(resp.Header().Get("Retry-After"), time.Now()); wait > 0 {
			logger.Debug("%s: rate limited, pausing %s", c.provider, wait)
			c.limiter.Pause(wait)
		}
	}
	return Classify(c.provider, resp.StatusCode(), resp.Body())
}

// Do sends a request built by build and checks the result.
func (c *Client) Do(ctx context.Context, build func(*resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	req, err := c.Request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := build(req)
	if err := c.Check(resp, err); err != nil {
		return resp, err
	}
	return resp, nil
}
