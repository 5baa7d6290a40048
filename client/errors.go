package client

import "github.com/xraph/jobwatch"

// HTTPError is a non-2xx response from the executor. It matches
// jobwatch.ErrTransport.
type HTTPError struct {
	StatusCode int
	// Status is the status line without protocol, e.g. "404 Not Found".
	Status string
	URL    string
	Body   string
}

// Error renders "<code> <reason> @ <url>\n<body>".
func (e *HTTPError) Error() string {
	return e.Status + " @ " + e.URL + "\n" + e.Body
}

// Unwrap returns jobwatch.ErrTransport.
func (e *HTTPError) Unwrap() error { return jobwatch.ErrTransport }
