package health_test

import (
	"errors"
	"testing"
	"time"

	"github.com/metricspider/metricspider/internal/health"
)

func record(m *health.Monitor, class string, successes, failures int) {
	for i := 0; i < successes; i++ {
		m.Record(class, true, 10*time.Millisecond, nil)
	}
	for i := 0; i < failures; i++ {
		m.Record(class, false, 10*time.Millisecond, errors.New("boom"))
	}
}

func TestStatus_Derivation(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		want      health.Status
	}{
		{name: "no data", successes: 0, failures: 0, want: health.StatusUnknown},
		{name: "all successes", successes: 20, failures: 0, want: health.StatusHealthy},
		{name: "rate at 95 percent", successes: 19, failures: 1, want: health.StatusHealthy},
		{name: "two trailing failures degrade", successes: 8, failures: 2, want: health.StatusDegraded},
		{name: "four trailing failures unhealthy", successes: 16, failures: 4, want: health.StatusUnhealthy},
		{name: "three trailing failures unhealthy", successes: 97, failures: 3, want: health.StatusUnhealthy},
		{name: "five trailing failures critical", successes: 95, failures: 5, want: health.StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := health.NewMonitor()
			record(m, "twitter", tt.successes, tt.failures)

			if got := m.Status("twitter"); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_SuccessResetsStreak(t *testing.T) {
	m := health.NewMonitor()

	// Four failures, then a success: the streak resets so the subsequent
	// status is driven by the lifetime rate again.
	record(m, "twitter", 0, 4)
	m.Record("twitter", true, time.Millisecond, nil)
	record(m, "twitter", 15, 0)

	if got := m.Status("twitter"); got != health.StatusDegraded {
		t.Errorf("Status() = %v, want %v (16/20 = 80%%)", got, health.StatusDegraded)
	}
	if snap := m.Snapshot("twitter"); snap.ConsecutiveFailures != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", snap.ConsecutiveFailures)
	}
}

func TestStatus_StreakDominatesRate(t *testing.T) {
	m := health.NewMonitor()

	// A lifetime rate over 95% cannot mask five fresh consecutive failures.
	record(m, "instagram", 200, 5)

	if got := m.Status("instagram"); got != health.StatusCritical {
		t.Errorf("Status() = %v, want %v", got, health.StatusCritical)
	}
}

func TestStatus_LowRateUnhealthy(t *testing.T) {
	m := health.NewMonitor()

	// Interleave so no failure streak forms; 6/10 = 60% is below degraded.
	for i := 0; i < 10; i++ {
		m.Record("tiktok", i%5 != 0 && i%3 != 0, time.Millisecond, errors.New("x"))
	}

	snap := m.Snapshot("tiktok")
	if snap.SuccessRate() >= 0.80 {
		t.Fatalf("test setup: rate %.2f should be below 0.80", snap.SuccessRate())
	}
	if got := m.Status("tiktok"); got != health.StatusUnhealthy {
		t.Errorf("Status() = %v, want %v", got, health.StatusUnhealthy)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	m := health.NewMonitor()
	m.Record("youtube", false, time.Millisecond, errors.New("timeout"))

	snap := m.Snapshot("youtube")
	snap.Failure = 99
	snap.ConsecutiveFailures = 99

	if fresh := m.Snapshot("youtube"); fresh.Failure != 1 || fresh.ConsecutiveFailures != 1 {
		t.Errorf("mutating a snapshot leaked into the monitor: %+v", fresh)
	}
	if snap.LastError != "timeout" {
		t.Errorf("LastError = %q, want %q", snap.LastError, "timeout")
	}
}

func TestSnapshot_UnknownClass(t *testing.T) {
	m := health.NewMonitor()

	snap := m.Snapshot("nope")
	if snap.Total != 0 {
		t.Errorf("Total = %d, want 0", snap.Total)
	}
	if got := snap.Status(); got != health.StatusUnknown {
		t.Errorf("Status() = %v, want %v", got, health.StatusUnknown)
	}
}

func TestClasses(t *testing.T) {
	m := health.NewMonitor()
	m.Record("twitter", true, 0, nil)
	m.Record("instagram", false, 0, errors.New("x"))

	classes := m.Classes()
	if len(classes) != 2 {
		t.Fatalf("Classes() returned %d entries, want 2", len(classes))
	}
	seen := map[string]bool{}
	for _, c := range classes {
		seen[c] = true
	}
	if !seen["twitter"] || !seen["instagram"] {
		t.Errorf("Classes() = %v", classes)
	}
}
