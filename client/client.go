// Package client talks to a job executor over HTTP.
//
// It implements the three calls of the job submission service:
//
//	POST <base>/run-async        submit a job request
//	GET  <base>/status/<job_id>  read a status snapshot
//	GET  <base>/result/<job_id>  read the final result
//
// Usage:
//
//	c := client.New("http://localhost:8000/api",
//	    client.WithTimeout(10*time.Second),
//	    client.WithRateLimit(5, 1),
//	)
//	sub, err := c.Submit(ctx, job.Request{Topic: "tides", TargetChars: 1200})
//
// Non-2xx responses are returned as *HTTPError. A 204 response or one whose
// content type is not JSON is treated as an empty body: the call returns a
// nil value and a nil error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/middleware"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Client is an HTTP client for a job executor. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
	logger  *slog.Logger
	timeout time.Duration

	middlewares []middleware.Middleware
	rps         float64
	burst       int

	mw middleware.Middleware
}

// New creates a client for the executor rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		headers: make(http.Header),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	chain := []middleware.Middleware{
		middleware.Logging(c.logger),
		middleware.Recover(c.logger),
	}
	chain = append(chain, c.middlewares...)
	if c.rps > 0 {
		chain = append(chain, middleware.RateLimit(newLimiter(c.rps, c.burst)))
	}
	chain = append(chain, middleware.Timeout(c.timeout))
	c.mw = middleware.Chain(chain...)

	return c
}

// BaseURL returns the executor root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) endpoint(parts ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(p)
	}
	return b.String()
}

func (c *Client) jobEndpoint(action, jobID string) string {
	return c.endpoint(action, url.PathEscape(jobID))
}

// do runs call through the middleware chain. It reports whether a JSON body
// was decoded into out.
func (c *Client) do(ctx context.Context, call *middleware.Call, body, out any) (bool, error) {
	call.RequestID = uuid.NewString()

	var decoded bool
	terminal := func(ctx context.Context) error {
		var err error
		decoded, err = c.roundTrip(ctx, call, body, out)
		return err
	}

	if err := c.mw(ctx, call, terminal); err != nil {
		return false, err
	}
	return decoded, nil
}

func (c *Client) roundTrip(ctx context.Context, call *middleware.Call, body, out any) (bool, error) {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("jobwatch/client: encode %s request: %w", call.Op, err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, call.URL, rdr)
	if err != nil {
		return false, fmt.Errorf("jobwatch/client: build %s request: %w", call.Op, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", call.RequestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, jobwatch.NewError(jobwatch.ErrTransport, "",
			fmt.Errorf("%s %s: %w", call.Method, call.URL, err))
	}
	defer resp.Body.Close()
	call.StatusCode = resp.StatusCode

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, jobwatch.NewError(jobwatch.ErrTransport, "",
			fmt.Errorf("read %s response: %w", call.Op, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     statusText(resp),
			URL:        call.URL,
			Body:       string(data),
		}
	}

	if resp.StatusCode == http.StatusNoContent || !isJSON(resp.Header.Get("Content-Type")) {
		return false, nil
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, jobwatch.NewError(jobwatch.ErrTransport, "",
			fmt.Errorf("decode %s response: %w", call.Op, err))
	}
	return true, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// statusText returns "<code> <reason>" for resp.
func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
