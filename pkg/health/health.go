// Package health serves liveness and readiness probes for a running arena.
// Readiness aggregates named checks over the tick loop, event delivery and
// the last detection pass.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/opd-ai/go-arena/pkg/physics"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Check is one named readiness condition.
type Check interface {
	Name() string
	// Check returns an error describing why the component is unhealthy.
	Check(ctx context.Context) error
}

// Status is the aggregated readiness report.
type Status struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentStatus `json:"checks"`
}

// ComponentStatus is the result of one Check.
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker runs registered checks on demand.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates an empty checker
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Add registers check, replacing any check with the same name
func (c *Checker) Add(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.Name()] = check
}

// Remove unregisters the check called name
func (c *Checker) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Run executes every check. The result is healthy only if all pass.
func (c *Checker) Run(ctx context.Context) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := Status{
		Status: StatusHealthy,
		Checks: make(map[string]ComponentStatus, len(c.checks)),
	}
	for name, check := range c.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[name] = ComponentStatus{Status: StatusUnhealthy, Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentStatus{Status: StatusHealthy}
	}
	return status
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func (c *Checker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler runs the checks and answers 503 if any fails.
func (c *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := c.Run(ctx)
	code := http.StatusOK
	if status.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Handler routes /health to liveness and /ready to readiness
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", c.LivenessHandler)
	mux.HandleFunc("/ready", c.ReadinessHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// TickCheck fails when the tick loop has not completed a tick recently.
type TickCheck struct {
	lastTick func() time.Time
	maxGap   time.Duration
	now      func() time.Time
}

// NewTickCheck fails once more than maxGap has passed since lastTick
func NewTickCheck(lastTick func() time.Time, maxGap time.Duration) *TickCheck {
	return &TickCheck{lastTick: lastTick, maxGap: maxGap, now: time.Now}
}

func (t *TickCheck) Name() string { return "tick_loop" }

func (t *TickCheck) Check(ctx context.Context) error {
	last := t.lastTick()
	if last.IsZero() {
		return fmt.Errorf("no tick completed yet")
	}
	if gap := t.now().Sub(last); gap > t.maxGap {
		return fmt.Errorf("last tick %v ago exceeds %v", gap.Round(time.Millisecond), t.maxGap)
	}
	return nil
}

// BreakerCheck fails while queued event delivery is shedding events.
type BreakerCheck struct {
	state func() string
}

// NewBreakerCheck reports on the breaker state returned by state. An empty
// state means events are delivered directly and always passes.
func NewBreakerCheck(state func() string) *BreakerCheck {
	return &BreakerCheck{state: state}
}

func (b *BreakerCheck) Name() string { return "event_delivery" }

func (b *BreakerCheck) Check(ctx context.Context) error {
	if s := b.state(); s == "open" {
		return fmt.Errorf("event breaker is %s, collision events are being dropped", s)
	}
	return nil
}

// DetectionCheck fails when the last detection pass could not be trusted:
// pairs were skipped for lack of a narrow phase test, or colliders were
// indexed before their bounds were ever computed.
type DetectionCheck struct {
	stats func() physics.PassStats
}

// NewDetectionCheck reports on the pass statistics returned by stats
func NewDetectionCheck(stats func() physics.PassStats) *DetectionCheck {
	return &DetectionCheck{stats: stats}
}

func (d *DetectionCheck) Name() string { return "collision_detection" }

func (d *DetectionCheck) Check(ctx context.Context) error {
	s := d.stats()
	switch {
	case s.Unsupported > 0:
		return fmt.Errorf("tick %d skipped %d unsupported pairs", s.Tick, s.Unsupported)
	case s.Unrefreshed > 0:
		return fmt.Errorf("tick %d indexed %d colliders without bounds", s.Tick, s.Unrefreshed)
	}
	return nil
}
