package physics

import (
	"github.com/setanarut/vec"

	"github.com/opd-ai/go-arena/pkg/event"
)

type testOwner struct {
	id   uint64
	kind EntityKind
}

func (o testOwner) ID() uint64       { return o.id }
func (o testOwner) Kind() EntityKind { return o.kind }

// recordingSink keeps every published event
type recordingSink struct {
	events []event.Event
}

func (s *recordingSink) Publish(e event.Event) {
	s.events = append(s.events, e)
}

func (s *recordingSink) collisions() []*CollisionEvent {
	var out []*CollisionEvent
	for _, e := range s.events {
		if ce, ok := e.(*CollisionEvent); ok {
			out = append(out, ce)
		}
	}
	return out
}

// boxAt returns a recomputed box spanning the given corners
func boxAt(minX, minY, maxX, maxY float64) *Box {
	b := NewBoxFromCorners(nil, vec.Vec2{X: minX, Y: minY}, vec.Vec2{X: maxX, Y: maxY})
	b.Recompute()
	return b
}

func containsCollider(list []Collider, c Collider) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func walk(qt *QuadTree, fn func(*QuadTree)) {
	fn(qt)
	for _, node := range qt.Nodes {
		if node != nil {
			walk(node, fn)
		}
	}
}
