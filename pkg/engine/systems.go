// pkg/engine/systems.go
package engine

import (
	"context"

	"github.com/EngoEngine/ecs"

	"github.com/opd-ai/go-arena/pkg/entity"
	"github.com/opd-ai/go-arena/pkg/physics"
)

// System priorities; the ecs.World updates higher priorities first.
const (
	movementPriority  = 10
	collisionPriority = 0
)

// MovementSystem integrates every body once per tick. Body.Update also
// recomputes the collider bounds, so it must run before CollisionSystem.
type MovementSystem struct {
	bodies []*entity.Body
}

// Add starts moving body
func (ms *MovementSystem) Add(body *entity.Body) {
	ms.bodies = append(ms.bodies, body)
}

// Remove satisfies the ecs.System interface
func (ms *MovementSystem) Remove(basic ecs.BasicEntity) {
	delete := -1
	for index, body := range ms.bodies {
		if body.ID() == basic.ID() {
			delete = index
			break
		}
	}
	if delete >= 0 {
		ms.bodies = append(ms.bodies[:delete], ms.bodies[delete+1:]...)
	}
}

// Update moves every body by dt seconds
func (ms *MovementSystem) Update(dt float32) {
	for _, body := range ms.bodies {
		body.Update(float64(dt))
	}
}

// Priority satisfies ecs.Prioritizer
func (ms *MovementSystem) Priority() int {
	return movementPriority
}

// CollisionSystem runs one registry detection pass per tick.
type CollisionSystem struct {
	registry  *physics.Registry
	colliders map[uint64]physics.ColliderID

	// ctx is set by the simulation before each world update; err holds the
	// result of the last pass since ecs.System.Update cannot return one.
	ctx context.Context
	err error
}

// NewCollisionSystem creates a collision system feeding registry
func NewCollisionSystem(registry *physics.Registry) *CollisionSystem {
	return &CollisionSystem{
		registry:  registry,
		colliders: make(map[uint64]physics.ColliderID),
		ctx:       context.Background(),
	}
}

// Add registers body's collider
func (cs *CollisionSystem) Add(body *entity.Body) (physics.ColliderID, error) {
	id, err := cs.registry.AddCollider(body.Collider())
	if err != nil {
		return 0, err
	}
	cs.colliders[body.ID()] = id
	return id, nil
}

// ColliderOf returns the registry ID of an entity's collider
func (cs *CollisionSystem) ColliderOf(entityID uint64) (physics.ColliderID, bool) {
	id, ok := cs.colliders[entityID]
	return id, ok
}

// Remove satisfies the ecs.System interface
func (cs *CollisionSystem) Remove(basic ecs.BasicEntity) {
	id, ok := cs.colliders[basic.ID()]
	if !ok {
		return
	}
	delete(cs.colliders, basic.ID())
	cs.registry.RemoveCollider(id)
}

// Update runs the detection pass
func (cs *CollisionSystem) Update(dt float32) {
	cs.err = cs.registry.RunDetectionPass(cs.ctx)
}

// Priority satisfies ecs.Prioritizer
func (cs *CollisionSystem) Priority() int {
	return collisionPriority
}
