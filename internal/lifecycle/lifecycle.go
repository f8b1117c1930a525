// Package lifecycle tracks the process phase reported by /health.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// Phase is shared between the signal handler and the health endpoint.
type Phase struct {
	shuttingDown atomic.Bool
	startedAt    time.Time
	now          func() time.Time
}

func New() *Phase {
	return &Phase{startedAt: time.Now(), now: time.Now}
}

// BeginShutdown flips the phase to draining. Returns false if shutdown had already begun.
func (p *Phase) BeginShutdown() bool {
	return !p.shuttingDown.Swap(true)
}

// ShuttingDown reports whether the process is draining and should not receive new traffic.
func (p *Phase) ShuttingDown() bool {
	return p.shuttingDown.Load()
}

func (p *Phase) Uptime() time.Duration {
	return p.now().Sub(p.startedAt)
}
