package backoff_test

import (
	"testing"
	"time"

	"github.com/xraph/jobwatch/backoff"
)

func TestConstant(t *testing.T) {
	c := backoff.NewConstant(3 * time.Second)
	for n := 1; n <= 5; n++ {
		if got := c.Delay(n); got != 3*time.Second {
			t.Errorf("Delay(%d) = %v, want 3s", n, got)
		}
	}
}

func TestLinear(t *testing.T) {
	l := backoff.NewLinear(time.Second, 4*time.Second)

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{3, 3 * time.Second},
		{4, 4 * time.Second},
		{9, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := l.Delay(tt.failures); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestExponential(t *testing.T) {
	e := backoff.NewExponential(time.Second, 10*time.Second)

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{200, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := e.Delay(tt.failures); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestJitter_StaysInRange(t *testing.T) {
	j := backoff.WithJitter(backoff.NewConstant(10*time.Second), 0.5)
	for i := range 100 {
		got := j.Delay(i + 1)
		if got < 5*time.Second || got > 10*time.Second {
			t.Fatalf("Delay = %v, want within [5s, 10s]", got)
		}
	}
}

func TestFunc(t *testing.T) {
	f := backoff.Func(func(n int) time.Duration { return time.Duration(n) * time.Millisecond })
	if got := f.Delay(7); got != 7*time.Millisecond {
		t.Errorf("Delay(7) = %v", got)
	}
}

func TestDefaultStrategy_Bounded(t *testing.T) {
	s := backoff.DefaultStrategy()
	for n := 1; n <= 20; n++ {
		if d := s.Delay(n); d > 30*time.Second || d < 0 {
			t.Fatalf("Delay(%d) = %v out of bounds", n, d)
		}
	}
}
