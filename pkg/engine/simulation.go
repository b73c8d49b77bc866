// pkg/engine/simulation.go
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-arena/pkg/config"
	"github.com/opd-ai/go-arena/pkg/entity"
	"github.com/opd-ai/go-arena/pkg/event"
	"github.com/opd-ai/go-arena/pkg/logging"
	"github.com/opd-ai/go-arena/pkg/physics"
)

// ErrAlreadySpawned is returned when spawning a body twice.
var ErrAlreadySpawned = errors.New("body already spawned")

// Option configures a Simulation
type Option func(*Simulation)

// WithLogger sets the logger shared by the simulation and its registry
func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// Simulation advances an arena of bodies one tick at a time. Each tick the
// ecs.World moves every body, which recomputes its collider, and then runs
// the registry's detection pass.
//
// Spawn, Despawn and Step are safe for concurrent use. In direct delivery
// mode collision handlers run while the simulation is locked and must use
// QueueDespawn rather than Despawn.
type Simulation struct {
	Config   *config.ArenaConfig
	EventBus *event.Bus

	mu        sync.Mutex
	logger    *logging.Logger
	sink      physics.Publisher
	queue     *event.Queue
	breaker   *event.BreakerPublisher
	registry  *physics.Registry
	world     *ecs.World
	movement  *MovementSystem
	collision *CollisionSystem
	bodies    map[uint64]*entity.Body
	boundary  *entity.Body
	tick      uint64
	lastStep  time.Time

	pendingMu sync.Mutex
	pending   []uint64
}

// NewSimulation validates cfg, builds the world and spawns the configured
// boundary and bodies.
func NewSimulation(cfg *config.ArenaConfig, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		Config:   cfg,
		EventBus: event.NewEventBus(),
		bodies:   make(map[uint64]*entity.Body),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger()
	}

	s.initEventDelivery()
	if err := s.initWorld(); err != nil {
		return nil, err
	}
	if err := s.spawnConfiguredBodies(); err != nil {
		return nil, err
	}
	return s, nil
}

// initEventDelivery picks where collision events go. Queued delivery sends
// them through a circuit breaker into a bounded queue drained after each
// pass; direct delivery publishes on the bus immediately.
func (s *Simulation) initEventDelivery() {
	if s.Config.Events.Mode != config.DeliveryQueued {
		s.sink = s.EventBus
		return
	}
	s.queue = event.NewQueue(s.Config.Events.QueueCapacity)
	s.breaker = event.NewBreakerPublisher(s.queue, event.BreakerSettings{
		MaxConsecutiveFailures: s.Config.Events.BreakerMaxFailures,
		Timeout:                s.Config.Events.BreakerTimeout(),
	}, s.logger)
	s.sink = s.breaker
}

func (s *Simulation) initWorld() error {
	s.registry = physics.NewRegistry(s.sink, physics.WithLogger(s.logger))
	if err := s.registry.Initialize(s.Config.World.Rect()); err != nil {
		return err
	}

	s.movement = &MovementSystem{}
	s.collision = NewCollisionSystem(s.registry)
	s.world = &ecs.World{}
	s.world.AddSystem(s.movement)
	s.world.AddSystem(s.collision)
	return nil
}

func (s *Simulation) spawnConfiguredBodies() error {
	if s.Config.Boundary.Enabled {
		s.boundary = entity.NewBoundary(s.Config.World.Rect(), s.Config.Boundary.Thickness)
		if _, err := s.Spawn(s.boundary); err != nil {
			return logging.WrapError(err, "failed to spawn boundary")
		}
	}
	for i, bc := range s.Config.Bodies {
		body, err := bc.Build()
		if err != nil {
			return logging.WrapError(err, "body %d", i)
		}
		if _, err := s.Spawn(body); err != nil {
			return logging.WrapError(err, "failed to spawn body %d", i)
		}
	}
	return nil
}

// Spawn adds body to the world and registers its collider
func (s *Simulation) Spawn(body *entity.Body) (physics.ColliderID, error) {
	s.mu.Lock()
	if _, exists := s.bodies[body.ID()]; exists {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrAlreadySpawned, body)
	}
	id, err := s.collision.Add(body)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.movement.Add(body)
	s.bodies[body.ID()] = body
	s.mu.Unlock()

	s.sink.Publish(event.NewEntityEvent(event.EntitySpawned, s, body.ID(), uint8(body.Kind()), uint64(id)))
	return id, nil
}

// Despawn removes the body with the given entity ID from every system.
// It returns false, and changes nothing, when no such body is spawned.
func (s *Simulation) Despawn(entityID uint64) bool {
	s.mu.Lock()
	body, ok := s.bodies[entityID]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug(context.Background(), "despawn of unknown entity",
			"entity_id", entityID,
		)
		return false
	}
	colliderID, _ := s.collision.ColliderOf(entityID)
	s.world.RemoveEntity(body.BasicEntity)
	delete(s.bodies, entityID)
	if body == s.boundary {
		s.boundary = nil
	}
	s.mu.Unlock()

	s.sink.Publish(event.NewEntityEvent(event.EntityDespawned, s, entityID, uint8(body.Kind()), uint64(colliderID)))
	return true
}

// QueueDespawn schedules a despawn for the start of the next Step. It is
// safe to call from event handlers.
func (s *Simulation) QueueDespawn(entityID uint64) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, entityID)
	s.pendingMu.Unlock()
}

func (s *Simulation) applyPendingDespawns() {
	s.pendingMu.Lock()
	pending := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	for _, id := range pending {
		s.Despawn(id)
	}
}

// Step advances the simulation by dt seconds: pending despawns are applied,
// bodies move, the detection pass runs and queued events are delivered.
// The returned error reports pairs the narrow phase could not test; the
// tick still completed.
func (s *Simulation) Step(ctx context.Context, dt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.applyPendingDespawns()

	s.mu.Lock()
	s.tick++
	tick := s.tick
	ctx = logging.WithTick(ctx, tick)
	s.collision.ctx = ctx
	s.world.Update(float32(dt))
	err := s.collision.err
	s.collision.ctx = context.Background()
	stats := s.registry.Stats()
	s.lastStep = time.Now()
	s.mu.Unlock()

	if s.queue != nil {
		s.queue.Drain(s.EventBus)
	}
	s.EventBus.Publish(event.NewTickEvent(s, tick, stats.Collisions))
	return err
}

// Run steps the simulation at the configured tick rate. With ticks > 0 it
// runs that many ticks back to back and returns ctx.Err() if interrupted;
// otherwise it runs in real time until ctx is done.
func (s *Simulation) Run(ctx context.Context, ticks int) error {
	dt := s.Config.TickDuration().Seconds()
	s.EventBus.Publish(&event.BaseEvent{EventType: event.SimulationStarted, Source: s})
	defer s.EventBus.Publish(&event.BaseEvent{EventType: event.SimulationStopped, Source: s})

	s.logger.Info(ctx, "simulation started",
		"tick_rate", s.Config.TickRate,
		"bodies", s.BodyCount(),
		"ticks", ticks,
	)

	if ticks > 0 {
		for i := 0; i < ticks; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.step(ctx, dt)
		}
		return nil
	}

	ticker := time.NewTicker(s.Config.TickDuration())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.step(ctx, dt)
		}
	}
}

func (s *Simulation) step(ctx context.Context, dt float64) {
	if err := s.Step(ctx, dt); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error(ctx, "tick completed with errors", err,
			"tick", s.Tick(),
		)
	}
}

// Tick returns the number of completed ticks
func (s *Simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// LastStep returns when the most recent tick completed, zero before the first
func (s *Simulation) LastStep() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStep
}

// Stats returns the statistics of the most recent detection pass
func (s *Simulation) Stats() physics.PassStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Stats()
}

// Body returns the spawned body with the given entity ID
func (s *Simulation) Body(entityID uint64) (*entity.Body, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.bodies[entityID]
	return body, ok
}

// Bodies returns every spawned body ordered by entity ID
func (s *Simulation) Bodies() []*entity.Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Body, 0, len(s.bodies))
	for _, body := range s.bodies {
		out = append(out, body)
	}
	slices.SortFunc(out, func(a, b *entity.Body) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

// BodyCount returns the number of spawned bodies, boundary included
func (s *Simulation) BodyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

// Boundary returns the wall body, nil when walls are disabled
func (s *Simulation) Boundary() *entity.Body {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundary
}

// DroppedEvents counts collision and entity events lost by queued delivery
func (s *Simulation) DroppedEvents() uint64 {
	if s.breaker == nil {
		return 0
	}
	return s.breaker.Dropped() + s.queue.Dropped()
}

// BreakerState returns the event breaker state, empty in direct mode
func (s *Simulation) BreakerState() string {
	if s.breaker == nil {
		return ""
	}
	return s.breaker.State()
}
