package client

import (
	"context"
	"net/http"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/middleware"
)

// Submit posts a job request. A nil Submission with a nil error means the
// executor answered without a JSON body.
func (c *Client) Submit(ctx context.Context, req job.Request) (*job.Submission, error) {
	call := &middleware.Call{
		Op:     middleware.OpSubmit,
		Method: http.MethodPost,
		URL:    c.endpoint("run-async"),
	}
	var sub job.Submission
	ok, err := c.do(ctx, call, req, &sub)
	if err != nil || !ok {
		return nil, err
	}
	return &sub, nil
}

// Status fetches the current snapshot of a job.
func (c *Client) Status(ctx context.Context, h job.Handle) (*job.Snapshot, error) {
	call := &middleware.Call{
		Op:     middleware.OpStatus,
		JobID:  h.String(),
		Method: http.MethodGet,
		URL:    c.jobEndpoint("status", h.String()),
	}
	var snap job.Snapshot
	ok, err := c.do(ctx, call, nil, &snap)
	if err != nil || !ok {
		return nil, err
	}
	return &snap, nil
}

// Result fetches the final result of a job.
func (c *Client) Result(ctx context.Context, h job.Handle) (*job.Result, error) {
	call := &middleware.Call{
		Op:     middleware.OpResult,
		JobID:  h.String(),
		Method: http.MethodGet,
		URL:    c.jobEndpoint("result", h.String()),
	}
	var res job.Result
	ok, err := c.do(ctx, call, nil, &res)
	if err != nil || !ok {
		return nil, err
	}
	return &res, nil
}
