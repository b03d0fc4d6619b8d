package observability

import (
	"sync/atomic"
	"time"
)

// HealthChecker manages liveness and readiness state for the HTTP API.
type HealthChecker struct {
	ready     atomic.Bool
	startTime time.Time
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// SetReady marks the service as ready to accept traffic — set after
// migrations ran, NATS connected and the product book is seeded.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) Uptime() time.Duration {
	return time.Since(h.startTime)
}
