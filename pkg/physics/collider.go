// pkg/physics/collider.go
package physics

import (
	"github.com/setanarut/vec"
)

// ShapeKind tags the concrete geometry behind a Collider.
type ShapeKind uint8

const (
	ShapeInvalid ShapeKind = iota
	ShapeCircle
	ShapeBox
	ShapeOrientedBox
	ShapeSegment
	ShapeGroup
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeBox:
		return "box"
	case ShapeOrientedBox:
		return "oriented_box"
	case ShapeSegment:
		return "segment"
	case ShapeGroup:
		return "group"
	}
	return "invalid"
}

// EntityKind classifies the game entity that owns a collider. The values
// themselves are defined by the entity layer.
type EntityKind uint8

// Owner is the game entity a collider belongs to. ID matches the
// ecs.Identifier contract so any ecs.BasicEntity based type satisfies it.
type Owner interface {
	ID() uint64
	Kind() EntityKind
}

// ColliderID is the identity a Registry assigns on registration.
type ColliderID uint64

// Collider is the shape record stored in the spatial index and registry.
// The set of implementations is closed: Circle, Box, OrientedBox, Segment
// and Group.
//
// Bounds returns the box computed by the last Recompute call. Nothing in this
// package recomputes implicitly, so owners must call Recompute after moving
// a collider and before the tick's detection pass.
type Collider interface {
	Shape() ShapeKind
	ID() ColliderID
	Owner() Owner
	Bounds() AABB
	BoundsValid() bool
	Recomputations() uint64
	Center() vec.Vec2
	MoveTo(p vec.Vec2)
	Recompute()

	base() *colliderBase
}

// colliderBase holds the state shared by every shape.
type colliderBase struct {
	id         ColliderID
	registered bool
	owner      Owner
	bounds     AABB
	recomputes uint64
}

// ID returns the registry identity, zero until registered.
func (b *colliderBase) ID() ColliderID {
	return b.id
}

// Owner returns the owning entity, possibly nil.
func (b *colliderBase) Owner() Owner {
	return b.owner
}

// SetOwner attaches the collider to an entity.
func (b *colliderBase) SetOwner(o Owner) {
	b.owner = o
}

// Bounds returns the bounding box from the last Recompute.
func (b *colliderBase) Bounds() AABB {
	return b.bounds
}

// BoundsValid reports whether Recompute has been called at least once.
func (b *colliderBase) BoundsValid() bool {
	return b.recomputes > 0
}

// Recomputations counts Recompute calls. Callers can compare it between
// ticks to detect colliders whose box was not refreshed.
func (b *colliderBase) Recomputations() uint64 {
	return b.recomputes
}

func (b *colliderBase) base() *colliderBase {
	return b
}

func (b *colliderBase) setBounds(box AABB) {
	b.bounds = box
	b.recomputes++
}

// ownerKind returns the entity kind of c's owner, zero when unowned.
func ownerKind(c Collider) EntityKind {
	if o := c.Owner(); o != nil {
		return o.Kind()
	}
	return 0
}
