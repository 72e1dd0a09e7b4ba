package timeutil_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/metricspider/metricspider/pkg/timeutil"
)

func TestExponentialBackoffDelay(t *testing.T) {
	param := timeutil.NewBackoffParam(100*time.Millisecond, 2.0, 10*time.Second)

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first retry uses initial duration", 1, 100 * time.Millisecond},
		{"second retry doubles", 2, 200 * time.Millisecond},
		{"third retry doubles again", 3, 400 * time.Millisecond},
		{"attempt below one floors to one", 0, 100 * time.Millisecond},
		{"large attempt capped at max", 20, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timeutil.ExponentialBackoffDelay(tt.attempt, 0, nil, param)
			if got != tt.want {
				t.Errorf("ExponentialBackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestExponentialBackoffDelay_Jitter(t *testing.T) {
	param := timeutil.NewBackoffParam(time.Second, 2.0, time.Minute)
	rng := rand.New(rand.NewSource(42))
	jitter := 500 * time.Millisecond

	got := timeutil.ExponentialBackoffDelay(1, jitter, rng, param)
	if got < time.Second || got >= time.Second+jitter {
		t.Errorf("jittered delay %v outside [1s, 1.5s)", got)
	}
}

func TestMaxDuration(t *testing.T) {
	if got := timeutil.MaxDuration(nil); got != 0 {
		t.Errorf("MaxDuration(nil) = %v, want 0", got)
	}
	durations := []time.Duration{time.Second, 3 * time.Second, 2 * time.Second}
	if got := timeutil.MaxDuration(durations); got != 3*time.Second {
		t.Errorf("MaxDuration = %v, want 3s", got)
	}
}

func TestMinDuration(t *testing.T) {
	if got := timeutil.MinDuration(time.Second, 2*time.Second); got != time.Second {
		t.Errorf("MinDuration = %v, want 1s", got)
	}
	if got := timeutil.MinDuration(5*time.Second, time.Second); got != time.Second {
		t.Errorf("MinDuration = %v, want 1s", got)
	}
}
