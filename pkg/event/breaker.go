// pkg/event/breaker.go
package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-arena/pkg/logging"
)

// Enqueuer is a sink whose delivery can fail, such as a bounded Queue.
type Enqueuer interface {
	Enqueue(Event) error
}

// BreakerSettings configures a BreakerPublisher
type BreakerSettings struct {
	Name                   string
	MaxConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// Interval clears failure counts while closed; zero never clears.
	Interval time.Duration
}

// BreakerPublisher guards an Enqueuer with a circuit breaker. When the
// target keeps failing (for example a queue nobody drains) the breaker
// opens and events are dropped immediately and counted, instead of
// retrying a sink that cannot accept them.
type BreakerPublisher struct {
	target  Enqueuer
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	dropped atomic.Uint64
}

// NewBreakerPublisher wraps target with a circuit breaker
func NewBreakerPublisher(target Enqueuer, settings BreakerSettings, logger *logging.Logger) *BreakerPublisher {
	if logger == nil {
		logger = logging.NewLogger()
	}
	if settings.Name == "" {
		settings.Name = "arena-events"
	}
	if settings.MaxConsecutiveFailures == 0 {
		settings.MaxConsecutiveFailures = 5
	}

	bp := &BreakerPublisher{
		target: target,
		logger: logger,
	}
	bp.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "event breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return bp
}

// Publish hands event to the target unless the breaker is open.
func (bp *BreakerPublisher) Publish(event Event) {
	_, err := bp.breaker.Execute(func() (interface{}, error) {
		return nil, bp.target.Enqueue(event)
	})
	if err != nil {
		n := bp.dropped.Add(1)
		bp.logger.Debug(context.Background(), "event dropped",
			"type", string(event.GetType()),
			"reason", err.Error(),
			"dropped", n,
		)
	}
}

// State returns the breaker state name: closed, half-open or open
func (bp *BreakerPublisher) State() string {
	return bp.breaker.State().String()
}

// Dropped returns how many events were not delivered
func (bp *BreakerPublisher) Dropped() uint64 {
	return bp.dropped.Load()
}
