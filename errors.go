package jobwatch

import "errors"

var (
	// Submission errors.
	ErrValidation         = errors.New("jobwatch: invalid job request")
	ErrSubmissionRejected = errors.New("jobwatch: job submission was rejected")

	// Transport errors. A transport failure during polling is retried; during
	// submission or result retrieval it is terminal.
	ErrTransport = errors.New("jobwatch: transport failure")

	// Terminal job errors.
	ErrJobFailed = errors.New("jobwatch: job failed on the server")
	ErrResult    = errors.New("jobwatch: job result was not ok")

	// Session errors.
	ErrSessionClosed        = errors.New("jobwatch: session closed")
	ErrNotSubmitted         = errors.New("jobwatch: no job submitted")
	ErrSessionReset         = errors.New("jobwatch: session reset")
	ErrPollFailuresExceeded = errors.New("jobwatch: too many consecutive poll failures")

	// Executor errors.
	ErrJobNotFound      = errors.New("jobwatch: job not found")
	ErrJobAlreadyExists = errors.New("jobwatch: job already exists")
	ErrStoreClosed      = errors.New("jobwatch: store closed")
	ErrQueueFull        = errors.New("jobwatch: executor queue full")

	// Configuration errors.
	ErrInvalidConfig = errors.New("jobwatch: invalid configuration")
)

// Error is a failure of one of the sentinel kinds above carrying the message
// that should be shown to the user. errors.Is matches both Kind and Cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

// NewError returns an *Error of the given kind. An empty message falls back
// to the kind's own text.
func NewError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
