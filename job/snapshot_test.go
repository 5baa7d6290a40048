package job_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/xraph/jobwatch/job"
)

func TestSnapshotUnmarshal(t *testing.T) {
	data := []byte(`{
		"status": "running",
		"steps": {"10": "ten", "2": "two", "1": "one", "x": "junk", "-3": "neg"},
		"error": null,
		"started_at": 1700000000.5,
		"finished_at": null,
		"has_result": false
	}`)

	var s job.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Lifecycle != job.LifecycleRunning {
		t.Errorf("Lifecycle = %q, want running", s.Lifecycle)
	}
	if len(s.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d: %v", len(s.Steps), s.Steps)
	}
	if s.StartedAt == nil || *s.StartedAt != 1700000000.5 {
		t.Errorf("StartedAt = %v", s.StartedAt)
	}

	sorted := s.SortedSteps()
	want := []int{1, 2, 10}
	for i, idx := range want {
		if sorted[i].Index != idx {
			t.Errorf("sorted[%d].Index = %d, want %d", i, sorted[i].Index, idx)
		}
	}
}

func TestSnapshotUnmarshal_Queued(t *testing.T) {
	var s job.Snapshot
	if err := json.Unmarshal([]byte(`{"status":"queued","steps":{}}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Lifecycle != job.LifecyclePending {
		t.Errorf("Lifecycle = %q, want pending", s.Lifecycle)
	}
	if s.Lifecycle.IsTerminal() {
		t.Error("pending must not be terminal")
	}
}

func TestSnapshotUnmarshal_Error(t *testing.T) {
	var s job.Snapshot
	if err := json.Unmarshal([]byte(`{"status":"error","error":"model timeout"}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !s.Lifecycle.IsTerminal() {
		t.Error("error must be terminal")
	}
	if s.Error != "model timeout" {
		t.Errorf("Error = %q", s.Error)
	}
}

func TestSnapshotUnmarshal_StepsPresence(t *testing.T) {
	cases := []struct {
		name    string
		data    string
		present bool
	}{
		{"absent", `{"status":"done"}`, false},
		{"null", `{"status":"done","steps":null}`, false},
		{"empty", `{"status":"done","steps":{}}`, true},
		{"filled", `{"status":"running","steps":{"0":"fetch"}}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s job.Snapshot
			if err := json.Unmarshal([]byte(tc.data), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := s.Steps != nil; got != tc.present {
				t.Errorf("steps present = %v, want %v (%v)", got, tc.present, s.Steps)
			}
		})
	}
}

func TestDecodeSteps_CanonicalKeysOnly(t *testing.T) {
	for i := 0; i < 50; i++ {
		steps := job.DecodeSteps(map[string]string{"1": "one", "01": "zero-one", "+1": "plus-one", "2": "two"})
		if len(steps) != 2 || steps[1] != "one" || steps[2] != "two" {
			t.Fatalf("steps = %v", steps)
		}
	}
}

func TestRecordUpdate_MergesSteps(t *testing.T) {
	r := job.NewRecord("abc", job.Request{Topic: "t"}, time.Now())
	running := job.LifecycleRunning
	job.Update{Lifecycle: &running, Steps: map[int]string{1: "fetch"}}.Apply(r)
	job.Update{Steps: map[int]string{2: "draft"}}.Apply(r)

	if r.Lifecycle != job.LifecycleRunning {
		t.Errorf("Lifecycle = %q", r.Lifecycle)
	}
	if len(r.Steps) != 2 || r.Steps[1] != "fetch" || r.Steps[2] != "draft" {
		t.Errorf("Steps = %v", r.Steps)
	}

	snap := r.Snapshot()
	if snap.HasResult {
		t.Error("HasResult should be false before a result is stored")
	}
	if snap.StartedAt != nil {
		t.Error("StartedAt should be nil")
	}
}

func TestResultDecode(t *testing.T) {
	r := &job.Result{Status: "ok", Result: json.RawMessage(`{"title":"Tides"}`)}
	var out struct {
		Title string `json:"title"`
	}
	if err := r.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Title != "Tides" {
		t.Errorf("Title = %q", out.Title)
	}

	notReady := &job.Result{Status: "running", Detail: "not ready"}
	if notReady.OK() {
		t.Error("non-ok result reported OK")
	}
	if err := notReady.Decode(&out); err == nil {
		t.Error("expected error decoding non-ok result")
	}
}
