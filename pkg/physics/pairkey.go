// pkg/physics/pairkey.go
package physics

import "fmt"

// ColliderRef identifies a registered collider together with the kind of
// entity that owns it.
type ColliderRef struct {
	Kind EntityKind
	ID   ColliderID
}

// less orders refs by entity kind, then by collider identity
func (r ColliderRef) less(o ColliderRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.ID < o.ID
}

func (r ColliderRef) String() string {
	return fmt.Sprintf("%d:%d", r.Kind, r.ID)
}

// PairKey is the order-independent key for an unordered collider pair.
// Lo always sorts before Hi, so (A,B) and (B,A) produce the same key.
type PairKey struct {
	Lo ColliderRef
	Hi ColliderRef
}

// RefOf builds the ref for a collider
func RefOf(c Collider) ColliderRef {
	return ColliderRef{Kind: ownerKind(c), ID: c.ID()}
}

// NewPairKey returns the canonical key for a and b
func NewPairKey(a, b Collider) PairKey {
	ra, rb := RefOf(a), RefOf(b)
	if rb.less(ra) {
		ra, rb = rb, ra
	}
	return PairKey{Lo: ra, Hi: rb}
}

func (k PairKey) String() string {
	return k.Lo.String() + "|" + k.Hi.String()
}
