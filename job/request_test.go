package job_test

import (
	"errors"
	"testing"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

func TestRequestValidate(t *testing.T) {
	b := job.DefaultBounds()

	tests := []struct {
		name  string
		req   job.Request
		field string
	}{
		{"valid", job.Request{Topic: "tides", TargetChars: 100}, ""},
		{"upper bound", job.Request{Topic: "tides", TargetChars: 20000}, ""},
		{"blank topic", job.Request{Topic: "   ", TargetChars: 1000}, "topic"},
		{"negative photos", job.Request{Topic: "tides", PhotoCount: -1, TargetChars: 1000}, "photo_count"},
		{"too short", job.Request{Topic: "tides", TargetChars: 99}, "target_chars"},
		{"too long", job.Request{Topic: "tides", TargetChars: 20001}, "target_chars"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(b)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *job.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
			if !errors.Is(err, jobwatch.ErrValidation) {
				t.Error("expected error to match ErrValidation")
			}
		})
	}
}

func TestRequestValidate_TargetCharsMessage(t *testing.T) {
	err := job.Request{Topic: "x", TargetChars: 50}.Validate(job.DefaultBounds())
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "target chars must be between 100 and 20000"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestRequestNormalize(t *testing.T) {
	blank := "  "
	model := " gpt-x "
	r := job.Request{Topic: "  tides  ", LLMModel: &blank}.Normalize()
	if r.Topic != "tides" {
		t.Errorf("Topic = %q, want %q", r.Topic, "tides")
	}
	if r.LLMModel != nil {
		t.Errorf("blank model should normalize to nil, got %q", *r.LLMModel)
	}

	r = job.Request{Topic: "tides", LLMModel: &model}.Normalize()
	if r.Model() != "gpt-x" {
		t.Errorf("Model() = %q, want %q", r.Model(), "gpt-x")
	}
}

func TestParseRequest(t *testing.T) {
	b := job.DefaultBounds()

	r, err := job.ParseRequest(" tides ", "3", "", "1500", b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Topic != "tides" || r.PhotoCount != 3 || r.TargetChars != 1500 || r.LLMModel != nil {
		t.Errorf("unexpected request: %+v", r)
	}

	if _, err := job.ParseRequest("tides", "three", "", "1500", b); !errors.Is(err, jobwatch.ErrValidation) {
		t.Errorf("non-numeric photo count: expected ErrValidation, got %v", err)
	}
	if _, err := job.ParseRequest("tides", "1", "", "lots", b); !errors.Is(err, jobwatch.ErrValidation) {
		t.Errorf("non-numeric target chars: expected ErrValidation, got %v", err)
	}
	if _, err := job.ParseRequest("", "1", "", "1500", b); !errors.Is(err, jobwatch.ErrValidation) {
		t.Errorf("empty topic: expected ErrValidation, got %v", err)
	}
}
