package lifecycle

import (
	"testing"
	"time"
)

func TestPhase_DefaultNotShuttingDown(t *testing.T) {
	p := New()
	if p.ShuttingDown() {
		t.Error("ShuttingDown() = true, want false for a new phase")
	}
}

func TestPhase_BeginShutdownOnce(t *testing.T) {
	p := New()
	if !p.BeginShutdown() {
		t.Error("first BeginShutdown() = false, want true")
	}
	if p.BeginShutdown() {
		t.Error("second BeginShutdown() = true, want false")
	}
	if !p.ShuttingDown() {
		t.Error("ShuttingDown() = false after BeginShutdown")
	}
}

func TestPhase_Uptime(t *testing.T) {
	start := time.Unix(1000, 0)
	p := &Phase{startedAt: start, now: func() time.Time { return start.Add(90 * time.Second) }}
	if got := p.Uptime(); got != 90*time.Second {
		t.Errorf("Uptime() = %v, want 90s", got)
	}
}
