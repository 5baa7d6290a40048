package job

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Snapshot is one status response for a job. Steps is nil when the response
// carried no steps, and non-nil (possibly empty) when it did.
type Snapshot struct {
	Lifecycle  Lifecycle
	Steps      map[int]string
	Error      string
	StartedAt  *float64
	FinishedAt *float64
	HasResult  bool
}

type wireSnapshot struct {
	Status     string            `json:"status"`
	Steps      map[string]string `json:"steps"`
	Error      *string           `json:"error"`
	StartedAt  *float64          `json:"started_at"`
	FinishedAt *float64          `json:"finished_at"`
	HasResult  bool              `json:"has_result"`
}

// UnmarshalJSON decodes a status response. Step keys that are not
// canonical non-negative integers are dropped.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode status snapshot: %w", err)
	}
	*s = Snapshot{
		Lifecycle:  ParseLifecycle(w.Status),
		Steps:      DecodeSteps(w.Steps),
		StartedAt:  w.StartedAt,
		FinishedAt: w.FinishedAt,
		HasResult:  w.HasResult,
	}
	if w.Error != nil {
		s.Error = *w.Error
	}
	return nil
}

// MarshalJSON encodes the snapshot in the executor's wire shape. A pending
// job is reported as "queued".
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{
		Status:     s.Lifecycle.Wire(),
		Steps:      EncodeSteps(s.Steps),
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		HasResult:  s.HasResult,
	}
	if s.Error != "" {
		w.Error = &s.Error
	}
	return json.Marshal(w)
}

// SortedSteps returns the steps ordered by index ascending.
func (s Snapshot) SortedSteps() []Step {
	return SortSteps(s.Steps)
}

// SortSteps orders a step map numerically by index.
func SortSteps(steps map[int]string) []Step {
	out := make([]Step, 0, len(steps))
	for k, v := range steps {
		out = append(out, Step{Index: k, Description: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// DecodeSteps converts wire step keys to integers. Only canonical decimal
// keys are accepted, so "1" is kept while "01" and "+1" are dropped. A nil
// map decodes to nil.
func DecodeSteps(raw map[string]string) map[int]string {
	if raw == nil {
		return nil
	}
	steps := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 || strconv.Itoa(n) != k {
			continue
		}
		steps[n] = v
	}
	return steps
}

// EncodeSteps converts step indices to wire keys. A nil map encodes to nil.
func EncodeSteps(steps map[int]string) map[string]string {
	if steps == nil {
		return nil
	}
	out := make(map[string]string, len(steps))
	for k, v := range steps {
		out[strconv.Itoa(k)] = v
	}
	return out
}
