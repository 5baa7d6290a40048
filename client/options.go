package client

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/jobwatch/middleware"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each call. Zero leaves calls bounded only by their
// context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

// WithMiddleware appends middleware run inside the built-in logging and
// recovery wrappers.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, mws...) }
}

// WithRateLimit limits outgoing calls to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.rps = rps
		c.burst = burst
	}
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}
