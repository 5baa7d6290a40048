package job

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/jobwatch"
)

// Request is the job a caller asks the executor to run.
type Request struct {
	Topic       string  `json:"topic"`
	PhotoCount  int     `json:"photo_count"`
	LLMModel    *string `json:"llm_model"`
	TargetChars int     `json:"target_chars"`
}

// Bounds is the inclusive range accepted for Request.TargetChars.
type Bounds struct {
	Min int
	Max int
}

// DefaultBounds returns the target character range used when none is configured.
func DefaultBounds() Bounds {
	cfg := jobwatch.DefaultConfig()
	return Bounds{Min: cfg.MinTargetChars, Max: cfg.MaxTargetChars}
}

// BoundsFromConfig extracts the target character range from cfg.
func BoundsFromConfig(cfg jobwatch.Config) Bounds {
	return Bounds{Min: cfg.MinTargetChars, Max: cfg.MaxTargetChars}
}

// ValidationError describes the first field of a Request that failed
// validation. It matches jobwatch.ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap returns jobwatch.ErrValidation.
func (e *ValidationError) Unwrap() error { return jobwatch.ErrValidation }

// Model returns the requested model name, or "" when the executor default
// should be used.
func (r Request) Model() string {
	if r.LLMModel == nil {
		return ""
	}
	return *r.LLMModel
}

// Normalize trims the topic and model and maps a blank model to nil.
func (r Request) Normalize() Request {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.LLMModel != nil {
		m := strings.TrimSpace(*r.LLMModel)
		if m == "" {
			r.LLMModel = nil
		} else {
			r.LLMModel = &m
		}
	}
	return r
}

// Validate checks the request against b. The first violation is returned as
// a *ValidationError.
func (r Request) Validate(b Bounds) error {
	if strings.TrimSpace(r.Topic) == "" {
		return &ValidationError{Field: "topic", Message: "topic is required"}
	}
	if r.PhotoCount < 0 {
		return &ValidationError{Field: "photo_count", Message: "photo count must be a number of 0 or more"}
	}
	if r.TargetChars < b.Min || r.TargetChars > b.Max {
		return &ValidationError{
			Field:   "target_chars",
			Message: fmt.Sprintf("target chars must be between %d and %d", b.Min, b.Max),
		}
	}
	return nil
}

// ParseRequest builds a normalized Request from raw user input and
// validates it. Counts must be base-10 integers.
func ParseRequest(topic, photoCount, model, targetChars string, b Bounds) (Request, error) {
	var r Request
	r.Topic = topic
	if model != "" {
		r.LLMModel = &model
	}
	r = r.Normalize()
	if r.Topic == "" {
		return r, &ValidationError{Field: "topic", Message: "topic is required"}
	}

	n, err := strconv.Atoi(strings.TrimSpace(photoCount))
	if err != nil || n < 0 {
		return r, &ValidationError{Field: "photo_count", Message: "photo count must be a number of 0 or more"}
	}
	r.PhotoCount = n

	chars, err := strconv.Atoi(strings.TrimSpace(targetChars))
	if err != nil {
		return r, &ValidationError{
			Field:   "target_chars",
			Message: fmt.Sprintf("target chars must be between %d and %d", b.Min, b.Max),
		}
	}
	r.TargetChars = chars

	return r, r.Validate(b)
}
