// pkg/entity/entity.go
package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/EngoEngine/ecs"
	"github.com/setanarut/vec"

	"github.com/opd-ai/go-arena/pkg/physics"
)

// Entity kinds known to the arena. Zero is reserved for unowned colliders.
const (
	Ship physics.EntityKind = iota + 1
	Projectile
	Planet
	Boundary
)

var (
	// ErrUnknownKind is returned when parsing an unrecognised entity kind.
	ErrUnknownKind = errors.New("unknown entity kind")
	// ErrInvalidShape is returned for shapes with missing or negative sizes.
	ErrInvalidShape = errors.New("invalid shape")
)

var kindNames = map[physics.EntityKind]string{
	Ship:       "ship",
	Projectile: "projectile",
	Planet:     "planet",
	Boundary:   "boundary",
}

// KindName returns the lower-case name of an entity kind
func KindName(k physics.EntityKind) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind maps a kind name such as "ship" to its EntityKind
func ParseKind(name string) (physics.EntityKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// ParseShape maps a shape name such as "oriented_box" to its ShapeKind.
// Groups are built by NewBoundary and cannot be requested by name.
func ParseShape(name string) (physics.ShapeKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range []physics.ShapeKind{
		physics.ShapeCircle,
		physics.ShapeBox,
		physics.ShapeOrientedBox,
		physics.ShapeSegment,
	} {
		if k.String() == name {
			return k, nil
		}
	}
	return physics.ShapeInvalid, fmt.Errorf("%w: unknown shape %q", ErrInvalidShape, name)
}

// Shape describes the collider a Body is built with. Width is the length
// of a segment.
type Shape struct {
	Kind   physics.ShapeKind
	Radius float64
	Width  float64
	Height float64
}

// Validate checks that the sizes the shape kind needs are set
func (s Shape) Validate() error {
	switch s.Kind {
	case physics.ShapeCircle:
		if s.Radius <= 0 {
			return fmt.Errorf("%w: circle radius %v", ErrInvalidShape, s.Radius)
		}
	case physics.ShapeBox, physics.ShapeOrientedBox:
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%w: %s size %vx%v", ErrInvalidShape, s.Kind, s.Width, s.Height)
		}
	case physics.ShapeSegment:
		if s.Width < 0 {
			return fmt.Errorf("%w: segment length %v", ErrInvalidShape, s.Width)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidShape, s.Kind)
	}
	return nil
}

func (s Shape) build(owner physics.Owner, pos vec.Vec2, rotation float64) physics.Collider {
	switch s.Kind {
	case physics.ShapeCircle:
		return physics.NewCircle(owner, pos, s.Radius)
	case physics.ShapeBox:
		return physics.NewBox(owner, pos, s.Width, s.Height)
	case physics.ShapeOrientedBox:
		return physics.NewOrientedBox(owner, pos, s.Width, s.Height, rotation)
	default:
		half := vec.ForAngle(rotation).Scale(s.Width / 2)
		return physics.NewSegment(owner, pos.Sub(half), pos.Add(half))
	}
}

// Body is a moving arena object. It owns exactly one collider and keeps it
// in sync with its position: every Update or Teleport moves the collider
// and recomputes its bounds, so the registry always sees a fresh box.
type Body struct {
	ecs.BasicEntity
	Position vec.Vec2
	Velocity vec.Vec2
	Rotation float64
	// Spin is the angular velocity in radians per second.
	Spin float64

	kind     physics.EntityKind
	collider physics.Collider
}

// NewBody creates a body of the given kind with a collider built from shape
func NewBody(kind physics.EntityKind, shape Shape, pos, vel vec.Vec2) (*Body, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	b := &Body{
		BasicEntity: ecs.NewBasic(),
		Position:    pos,
		Velocity:    vel,
		kind:        kind,
	}
	b.collider = shape.build(b, pos, 0)
	b.collider.Recompute()
	return b, nil
}

// NewBoundary builds the arena walls: a Group of four boxes of the given
// thickness lining the inside of world.
func NewBoundary(world physics.Rect, thickness float64) *Body {
	b := &Body{
		BasicEntity: ecs.NewBasic(),
		kind:        Boundary,
	}
	x0, y0 := world.X, world.Y
	x1, y1 := world.X+world.Width, world.Y+world.Height
	corner := func(x, y float64) vec.Vec2 { return vec.Vec2{X: x, Y: y} }

	group := physics.NewGroup(b,
		physics.NewBoxFromCorners(nil, corner(x0, y0), corner(x1, y0+thickness)),
		physics.NewBoxFromCorners(nil, corner(x0, y1-thickness), corner(x1, y1)),
		physics.NewBoxFromCorners(nil, corner(x0, y0), corner(x0+thickness, y1)),
		physics.NewBoxFromCorners(nil, corner(x1-thickness, y0), corner(x1, y1)),
	)
	b.collider = group
	b.Position = group.Center()
	group.Recompute()
	return b
}

// Kind returns the entity kind
func (b *Body) Kind() physics.EntityKind {
	return b.kind
}

// Collider returns the body's collider
func (b *Body) Collider() physics.Collider {
	return b.collider
}

// Update integrates velocity and spin over dt seconds
func (b *Body) Update(dt float64) {
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	b.Rotation += b.Spin * dt
	b.sync()
}

// Teleport places the body at p without integrating, e.g. on respawn
func (b *Body) Teleport(p vec.Vec2) {
	b.Position = p
	b.sync()
}

// SetRotation turns the body to angle radians
func (b *Body) SetRotation(angle float64) {
	b.Rotation = angle
	b.sync()
}

func (b *Body) sync() {
	switch c := b.collider.(type) {
	case *physics.OrientedBox:
		c.SetRotation(b.Rotation)
	case *physics.Segment:
		half := vec.ForAngle(b.Rotation).Scale(c.End.Sub(c.Start).Mag() / 2)
		c.Start = b.Position.Sub(half)
		c.End = b.Position.Add(half)
	}
	b.collider.MoveTo(b.Position)
	b.collider.Recompute()
}

func (b *Body) String() string {
	return fmt.Sprintf("%s#%d at (%.2f, %.2f)", KindName(b.kind), b.ID(), b.Position.X, b.Position.Y)
}
