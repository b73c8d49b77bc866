package engine

import (
	"context"
	"testing"

	"github.com/setanarut/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-arena/pkg/config"
	"github.com/opd-ai/go-arena/pkg/entity"
	"github.com/opd-ai/go-arena/pkg/event"
	"github.com/opd-ai/go-arena/pkg/logging"
	"github.com/opd-ai/go-arena/pkg/physics"
)

func emptyConfig(mode string) *config.ArenaConfig {
	cfg := config.DefaultConfig()
	cfg.Bodies = nil
	cfg.Boundary.Enabled = false
	cfg.Events.Mode = mode
	return cfg
}

func newTestSimulation(t *testing.T, cfg *config.ArenaConfig) *Simulation {
	t.Helper()
	sim, err := NewSimulation(cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	return sim
}

func circle(t *testing.T, kind physics.EntityKind, x, y, r, vx, vy float64) *entity.Body {
	t.Helper()
	body, err := entity.NewBody(kind, entity.Shape{Kind: physics.ShapeCircle, Radius: r},
		vec.Vec2{X: x, Y: y}, vec.Vec2{X: vx, Y: vy})
	require.NoError(t, err)
	return body
}

// collisionLog records the owners of every collision per tick
type collisionLog struct {
	current [][2]*entity.Body
	ticks   [][][2]*entity.Body
}

func watchCollisions(bus *event.Bus) *collisionLog {
	log := &collisionLog{}
	bus.Subscribe(event.EntityCollision, func(e event.Event) {
		ce := e.(*physics.CollisionEvent)
		log.current = append(log.current, [2]*entity.Body{
			ce.A.Owner().(*entity.Body),
			ce.B.Owner().(*entity.Body),
		})
	})
	bus.Subscribe(event.TickCompleted, func(e event.Event) {
		log.ticks = append(log.ticks, log.current)
		log.current = nil
	})
	return log
}

func TestNewSimulation_DefaultConfig(t *testing.T) {
	sim := newTestSimulation(t, config.DefaultConfig())

	assert.Equal(t, len(config.DefaultConfig().Bodies)+1, sim.BodyCount())
	require.NotNil(t, sim.Boundary())
	assert.Equal(t, entity.Boundary, sim.Boundary().Kind())
	assert.Equal(t, "closed", sim.BreakerState())

	bodies := sim.Bodies()
	for i := 1; i < len(bodies); i++ {
		assert.Less(t, bodies[i-1].ID(), bodies[i].ID())
	}

	assert.True(t, sim.LastStep().IsZero())
	require.NoError(t, sim.Step(context.Background(), 0.05))
	assert.Equal(t, uint64(1), sim.Tick())
	assert.False(t, sim.LastStep().IsZero())
	assert.Equal(t, sim.BodyCount(), sim.Stats().Colliders)
}

func TestNewSimulation_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TickRate = 0

	sim, err := NewSimulation(cfg, WithLogger(logging.Discard()))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Nil(t, sim)
}

func TestSimulation_HeadOnCollision(t *testing.T) {
	sim := newTestSimulation(t, emptyConfig(config.DeliveryDirect))
	log := watchCollisions(sim.EventBus)

	left := circle(t, entity.Ship, 100, 500, 5, 10, 0)
	right := circle(t, entity.Ship, 140, 500, 5, -10, 0)
	_, err := sim.Spawn(left)
	require.NoError(t, err)
	_, err = sim.Spawn(right)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, sim.Step(ctx, 1))
	}

	require.Len(t, log.ticks, 3)
	assert.Empty(t, log.ticks[0], "gap of 10 on the first tick")
	require.Len(t, log.ticks[1], 1, "overlapping on the second tick")
	assert.ElementsMatch(t, []*entity.Body{left, right}, log.ticks[1][0][:])
	assert.Empty(t, log.ticks[2], "passed through each other")
	assert.Equal(t, 0, sim.Stats().Collisions)
}

func TestSimulation_SpawnTwice(t *testing.T) {
	sim := newTestSimulation(t, emptyConfig(config.DeliveryDirect))
	body := circle(t, entity.Planet, 10, 10, 1, 0, 0)

	_, err := sim.Spawn(body)
	require.NoError(t, err)
	_, err = sim.Spawn(body)
	assert.ErrorIs(t, err, ErrAlreadySpawned)
	assert.Equal(t, 1, sim.BodyCount())
}

func TestSimulation_DespawnIsIdempotent(t *testing.T) {
	sim := newTestSimulation(t, emptyConfig(config.DeliveryDirect))
	var despawned []*event.EntityEvent
	sim.EventBus.Subscribe(event.EntityDespawned, func(e event.Event) {
		despawned = append(despawned, e.(*event.EntityEvent))
	})

	body := circle(t, entity.Ship, 10, 10, 1, 5, 0)
	colliderID, err := sim.Spawn(body)
	require.NoError(t, err)

	assert.True(t, sim.Despawn(body.ID()))
	assert.False(t, sim.Despawn(body.ID()))
	assert.False(t, sim.Despawn(12345678))

	require.Len(t, despawned, 1)
	assert.Equal(t, body.ID(), despawned[0].EntityID)
	assert.Equal(t, uint8(entity.Ship), despawned[0].Kind)
	assert.Equal(t, uint64(colliderID), despawned[0].ColliderID)

	_, ok := sim.Body(body.ID())
	assert.False(t, ok)

	before := body.Position
	require.NoError(t, sim.Step(context.Background(), 1))
	assert.Equal(t, before, body.Position, "despawned body must not move")
	assert.Zero(t, sim.Stats().Colliders)
	assert.Zero(t, sim.Stats().StaleRemovals)
}

func TestSimulation_QueueDespawnFromHandler(t *testing.T) {
	sim := newTestSimulation(t, emptyConfig(config.DeliveryDirect))
	planet := circle(t, entity.Planet, 500, 500, 50, 0, 0)
	shot := circle(t, entity.Projectile, 500, 430, 2, 0, 20)
	_, err := sim.Spawn(planet)
	require.NoError(t, err)
	_, err = sim.Spawn(shot)
	require.NoError(t, err)

	sim.EventBus.Subscribe(event.EntityCollision, func(e event.Event) {
		ce := e.(*physics.CollisionEvent)
		for _, c := range []physics.Collider{ce.A, ce.B} {
			if c.Owner().Kind() == entity.Projectile {
				sim.QueueDespawn(c.Owner().ID())
			}
		}
	})

	ctx := context.Background()
	require.NoError(t, sim.Step(ctx, 1))
	assert.Equal(t, 1, sim.Stats().Collisions)
	assert.Equal(t, 2, sim.BodyCount(), "despawn waits for the next step")

	require.NoError(t, sim.Step(ctx, 1))
	assert.Equal(t, 1, sim.BodyCount())
	_, ok := sim.Body(shot.ID())
	assert.False(t, ok)
	assert.Zero(t, sim.Stats().Collisions)
}

func TestSimulation_QueuedDeliveryWaitsForStep(t *testing.T) {
	cfg := emptyConfig(config.DeliveryQueued)
	cfg.Events.QueueCapacity = 16
	sim := newTestSimulation(t, cfg)

	var order []event.Type
	for _, topic := range []event.Type{event.EntitySpawned, event.EntityCollision, event.TickCompleted} {
		sim.EventBus.Subscribe(topic, func(e event.Event) {
			order = append(order, e.GetType())
		})
	}

	_, err := sim.Spawn(circle(t, entity.Ship, 100, 100, 5, 0, 0))
	require.NoError(t, err)
	_, err = sim.Spawn(circle(t, entity.Ship, 104, 100, 5, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, order, "nothing is delivered before the step drains the queue")

	require.NoError(t, sim.Step(context.Background(), 0.05))
	assert.Equal(t, []event.Type{
		event.EntitySpawned,
		event.EntitySpawned,
		event.EntityCollision,
		event.TickCompleted,
	}, order)
	assert.Zero(t, sim.DroppedEvents())
}

func TestSimulation_BreakerOpensWhenQueueOverflows(t *testing.T) {
	cfg := emptyConfig(config.DeliveryQueued)
	cfg.Events.QueueCapacity = 1
	cfg.Events.BreakerMaxFailures = 1
	cfg.Events.BreakerTimeoutMS = 3600000
	sim := newTestSimulation(t, cfg)

	spawned := 0
	sim.EventBus.Subscribe(event.EntitySpawned, func(e event.Event) { spawned++ })

	for i := 0; i < 3; i++ {
		_, err := sim.Spawn(circle(t, entity.Ship, 100, 100, 5, 0, 0))
		require.NoError(t, err)
	}
	assert.Equal(t, "open", sim.BreakerState())
	assert.Equal(t, uint64(2), sim.DroppedEvents())

	require.NoError(t, sim.Step(context.Background(), 0.05))
	assert.Equal(t, 1, spawned)
	assert.Equal(t, 3, sim.Stats().Collisions, "detection keeps running while events are dropped")
	assert.Equal(t, uint64(5), sim.DroppedEvents())
}

func TestSimulation_BoundaryCollision(t *testing.T) {
	cfg := emptyConfig(config.DeliveryDirect)
	cfg.Boundary.Enabled = true
	cfg.Boundary.Thickness = 10
	sim := newTestSimulation(t, cfg)
	log := watchCollisions(sim.EventBus)

	ship := circle(t, entity.Ship, 30, 500, 5, -10, 0)
	_, err := sim.Spawn(ship)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sim.Step(ctx, 1))
	require.NoError(t, sim.Step(ctx, 1))

	require.Len(t, log.ticks, 2)
	assert.Empty(t, log.ticks[0])
	require.Len(t, log.ticks[1], 1)
	pair := log.ticks[1][0]
	assert.Equal(t, ship, pair[0], "ships order before boundaries")
	assert.Equal(t, sim.Boundary(), pair[1])
}

func TestSimulation_Run(t *testing.T) {
	sim := newTestSimulation(t, config.DefaultConfig())
	started, stopped, ticks := 0, 0, 0
	sim.EventBus.Subscribe(event.SimulationStarted, func(e event.Event) { started++ })
	sim.EventBus.Subscribe(event.SimulationStopped, func(e event.Event) { stopped++ })
	sim.EventBus.Subscribe(event.TickCompleted, func(e event.Event) { ticks++ })

	require.NoError(t, sim.Run(context.Background(), 5))

	assert.Equal(t, uint64(5), sim.Tick())
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, stopped)
	assert.Equal(t, 5, ticks)
}

func TestSimulation_RunCancelled(t *testing.T) {
	sim := newTestSimulation(t, config.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sim.Run(ctx, 5), context.Canceled)
	assert.Zero(t, sim.Tick())
	assert.ErrorIs(t, sim.Step(ctx, 1), context.Canceled)
}
