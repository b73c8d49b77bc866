// pkg/physics/events.go
package physics

import (
	"github.com/opd-ai/go-arena/pkg/event"
)

// Publisher is the sink detected collisions are sent to. *event.Bus,
// *event.Queue and *event.BreakerPublisher all satisfy it.
type Publisher interface {
	Publish(event.Event)
}

// CollisionEvent reports one confirmed overlap between two colliders.
// A is the collider whose ref sorts first.
type CollisionEvent struct {
	event.BaseEvent
	A   Collider
	B   Collider
	Key PairKey
}

// NewCollisionEvent creates a collision event for the pair a, b
func NewCollisionEvent(source interface{}, a, b Collider) *CollisionEvent {
	key := NewPairKey(a, b)
	if RefOf(a) != key.Lo {
		a, b = b, a
	}
	return &CollisionEvent{
		BaseEvent: event.BaseEvent{
			EventType: event.EntityCollision,
			Source:    source,
		},
		A:   a,
		B:   b,
		Key: key,
	}
}
