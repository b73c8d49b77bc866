// pkg/physics/narrowphase.go
package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/setanarut/vec"
)

// ErrUnsupportedPair is returned when no exact test exists for two shape kinds.
var ErrUnsupportedPair = errors.New("unimplemented pair kind")

type shapePair struct {
	a, b ShapeKind
}

type overlapFunc func(a, b Collider) bool

// narrowPhase holds one exact test per unordered pair of shape kinds, keyed
// with the lower kind first. Groups are handled before lookup.
var narrowPhase = map[shapePair]overlapFunc{
	{ShapeCircle, ShapeCircle}:           circleCircle,
	{ShapeCircle, ShapeBox}:              circleBox,
	{ShapeCircle, ShapeOrientedBox}:      circleOrientedBox,
	{ShapeCircle, ShapeSegment}:          circleSegment,
	{ShapeBox, ShapeBox}:                 boxBox,
	{ShapeBox, ShapeOrientedBox}:         separatingAxis,
	{ShapeBox, ShapeSegment}:             separatingAxis,
	{ShapeOrientedBox, ShapeOrientedBox}: separatingAxis,
	{ShapeOrientedBox, ShapeSegment}:     separatingAxis,
	{ShapeSegment, ShapeSegment}:         separatingAxis,
}

// Overlaps reports whether a and b touch or intersect. Touching boundaries
// count as overlap for every shape combination. An error wrapping
// ErrUnsupportedPair means no exact test exists and the result must not be
// read as "no collision".
func Overlaps(a, b Collider) (bool, error) {
	if g, ok := a.(*Group); ok {
		return groupOverlaps(g, b)
	}
	if g, ok := b.(*Group); ok {
		return groupOverlaps(g, a)
	}

	ka, kb := a.Shape(), b.Shape()
	if ka > kb {
		a, b = b, a
		ka, kb = kb, ka
	}
	test, ok := narrowPhase[shapePair{ka, kb}]
	if !ok {
		return false, fmt.Errorf("%w: %s vs %s", ErrUnsupportedPair, ka, kb)
	}
	return test(a, b), nil
}

func groupOverlaps(g *Group, other Collider) (bool, error) {
	for _, m := range g.Members {
		hit, err := Overlaps(m, other)
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// boxBox is the four comparison separating-axis test on closed intervals.
func boxBox(a, b Collider) bool {
	return a.(*Box).AABB().Overlaps(b.(*Box).AABB())
}

func circleCircle(a, b Collider) bool {
	ca, cb := a.(*Circle), b.(*Circle)
	d := cb.Pos.Sub(ca.Pos)
	r := ca.Radius + cb.Radius
	return d.Dot(d) <= r*r
}

func circleBox(a, b Collider) bool {
	c := a.(*Circle)
	return withinRadius(c, b.(*Box).AABB().Clamp(c.Pos))
}

func circleOrientedBox(a, b Collider) bool {
	c := a.(*Circle)
	o := b.(*OrientedBox)
	u, v := o.Axes()
	local := c.Pos.Sub(o.Pos)
	lx := math.Max(-o.HalfSize.X, math.Min(o.HalfSize.X, local.Dot(u)))
	ly := math.Max(-o.HalfSize.Y, math.Min(o.HalfSize.Y, local.Dot(v)))
	return withinRadius(c, o.Pos.Add(u.Scale(lx)).Add(v.Scale(ly)))
}

func circleSegment(a, b Collider) bool {
	c := a.(*Circle)
	return withinRadius(c, b.(*Segment).closestPoint(c.Pos))
}

func withinRadius(c *Circle, p vec.Vec2) bool {
	d := p.Sub(c.Pos)
	return d.Dot(d) <= c.Radius*c.Radius
}

// hull is a convex point set with the candidate separating axes it
// contributes.
type hull struct {
	points []vec.Vec2
	axes   []vec.Vec2
}

func hullOf(c Collider) hull {
	switch s := c.(type) {
	case *Box:
		box := s.AABB()
		return hull{
			points: []vec.Vec2{
				box.Min,
				{X: box.Max.X, Y: box.Min.Y},
				box.Max,
				{X: box.Min.X, Y: box.Max.Y},
			},
			axes: []vec.Vec2{{X: 1, Y: 0}, {X: 0, Y: 1}},
		}
	case *OrientedBox:
		corners := s.Corners()
		u, v := s.Axes()
		return hull{points: corners[:], axes: []vec.Vec2{u, v}}
	case *Segment:
		d := s.End.Sub(s.Start)
		return hull{
			points: []vec.Vec2{s.Start, s.End},
			axes:   []vec.Vec2{d, {X: -d.Y, Y: d.X}},
		}
	}
	return hull{}
}

// separatingAxis runs SAT over the axes of both hulls plus the line between
// their centers, which covers degenerate segments. Axes need not be unit
// length since only the sign of the gap matters.
func separatingAxis(a, b Collider) bool {
	ha, hb := hullOf(a), hullOf(b)
	axes := make([]vec.Vec2, 0, len(ha.axes)+len(hb.axes)+1)
	axes = append(axes, ha.axes...)
	axes = append(axes, hb.axes...)
	axes = append(axes, b.Center().Sub(a.Center()))

	for _, axis := range axes {
		if axis.X == 0 && axis.Y == 0 {
			continue
		}
		minA, maxA := project(ha.points, axis)
		minB, maxB := project(hb.points, axis)
		if maxA < minB || minA > maxB {
			return false
		}
	}
	return true
}

func project(points []vec.Vec2, axis vec.Vec2) (float64, float64) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, p := range points {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}
