package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/worker"
)

// demoPost is the output of the demo pipeline.
type demoPost struct {
	Title  string   `json:"title"`
	Model  string   `json:"model,omitempty"`
	HTML   string   `json:"html"`
	Photos []string `json:"photos"`
	Chars  int      `json:"chars"`
}

// demoPipeline stands in for a real post generator: it walks through the
// fetch, draft, images and publish steps, pausing delay between them.
func demoPipeline(delay time.Duration) worker.Handler {
	return func(ctx context.Context, req job.Request, report worker.Reporter) (json.RawMessage, error) {
		pause := func() error {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}

		report(1, fmt.Sprintf("Searching sources for %q", req.Topic))
		if err := pause(); err != nil {
			return nil, err
		}

		report(2, fmt.Sprintf("Drafting about %d characters with %s", req.TargetChars, modelName(req)))
		if err := pause(); err != nil {
			return nil, err
		}
		body := draft(req)

		photos := make([]string, 0, req.PhotoCount)
		if req.PhotoCount > 0 {
			report(3, fmt.Sprintf("Selecting %d photos", req.PhotoCount))
			for i := range req.PhotoCount {
				photos = append(photos, fmt.Sprintf("https://picsum.photos/seed/%s-%d/800/450", slug(req.Topic), i+1))
			}
			if err := pause(); err != nil {
				return nil, err
			}
		}

		report(4, "Publishing")
		if err := pause(); err != nil {
			return nil, err
		}

		return json.Marshal(demoPost{
			Title:  req.Topic,
			Model:  req.Model(),
			HTML:   body,
			Photos: photos,
			Chars:  len(body),
		})
	}
}

func modelName(req job.Request) string {
	if m := req.Model(); m != "" {
		return m
	}
	return "the default model"
}

func draft(req job.Request) string {
	para := "<p>" + html.EscapeString(req.Topic) + " in practice.</p>"
	var b strings.Builder
	b.WriteString("<h1>" + html.EscapeString(req.Topic) + "</h1>")
	for b.Len() < req.TargetChars {
		b.WriteString(para)
	}
	return b.String()
}

func slug(s string) string {
	return strings.Trim(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, s), "-")
}
