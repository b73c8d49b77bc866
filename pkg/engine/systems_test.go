package engine

import (
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-arena/pkg/entity"
	"github.com/opd-ai/go-arena/pkg/logging"
	"github.com/opd-ai/go-arena/pkg/physics"
)

func TestMovementSystem_RemoveKeepsOrder(t *testing.T) {
	ms := &MovementSystem{}
	a := circle(t, entity.Ship, 0, 0, 1, 1, 0)
	b := circle(t, entity.Ship, 0, 0, 1, 2, 0)
	c := circle(t, entity.Ship, 0, 0, 1, 3, 0)
	ms.Add(a)
	ms.Add(b)
	ms.Add(c)

	ms.Remove(b.BasicEntity)
	ms.Remove(ecs.NewBasic())

	require.Len(t, ms.bodies, 2)
	assert.Same(t, a, ms.bodies[0])
	assert.Same(t, c, ms.bodies[1])

	ms.Update(2)
	assert.Equal(t, 2.0, a.Position.X)
	assert.Equal(t, 0.0, b.Position.X)
	assert.Equal(t, 6.0, c.Position.X)
}

func TestCollisionSystem_AddRemove(t *testing.T) {
	registry := physics.NewRegistry(nil, physics.WithLogger(logging.Discard()))
	require.NoError(t, registry.Initialize(physics.Rect{Width: 100, Height: 100}))
	cs := NewCollisionSystem(registry)

	body := circle(t, entity.Planet, 50, 50, 5, 0, 0)
	id, err := cs.Add(body)
	require.NoError(t, err)

	got, ok := cs.ColliderOf(body.ID())
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, err = cs.Add(body)
	assert.ErrorIs(t, err, physics.ErrAlreadyRegistered)

	cs.Remove(ecs.NewBasic())
	assert.Equal(t, 1, registry.Len())

	cs.Remove(body.BasicEntity)
	assert.Zero(t, registry.Len())
	_, ok = cs.ColliderOf(body.ID())
	assert.False(t, ok)

	cs.Update(0.1)
	assert.NoError(t, cs.err)
	assert.Zero(t, registry.Stats().StaleRemovals)
}

func TestSystems_MovementRunsBeforeCollision(t *testing.T) {
	ms := &MovementSystem{}
	cs := NewCollisionSystem(physics.NewRegistry(nil, physics.WithLogger(logging.Discard())))
	assert.Greater(t, ms.Priority(), cs.Priority())
}
