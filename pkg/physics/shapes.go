// pkg/physics/shapes.go
package physics

import (
	"math"

	"github.com/setanarut/vec"
)

// Circle represents a circular collision shape
type Circle struct {
	colliderBase
	Pos    vec.Vec2
	Radius float64
}

// NewCircle creates a circle collider owned by owner
func NewCircle(owner Owner, center vec.Vec2, radius float64) *Circle {
	return &Circle{
		colliderBase: colliderBase{owner: owner},
		Pos:          center,
		Radius:       radius,
	}
}

func (c *Circle) Shape() ShapeKind  { return ShapeCircle }
func (c *Circle) Center() vec.Vec2  { return c.Pos }
func (c *Circle) MoveTo(p vec.Vec2) { c.Pos = p }
func (c *Circle) Recompute()        { c.setBounds(NewAABBForExtents(c.Pos, c.Radius, c.Radius)) }

// Box is an axis-aligned rectangle collider
type Box struct {
	colliderBase
	Pos      vec.Vec2
	HalfSize vec.Vec2
}

// NewBox creates an axis-aligned box centered on center
func NewBox(owner Owner, center vec.Vec2, width, height float64) *Box {
	return &Box{
		colliderBase: colliderBase{owner: owner},
		Pos:          center,
		HalfSize:     vec.Vec2{X: width / 2, Y: height / 2},
	}
}

// NewBoxFromCorners creates an axis-aligned box spanning min and max
func NewBoxFromCorners(owner Owner, min, max vec.Vec2) *Box {
	box := NewAABB(min, max)
	w, h := box.Size()
	return NewBox(owner, box.Center(), w, h)
}

func (b *Box) Shape() ShapeKind  { return ShapeBox }
func (b *Box) Center() vec.Vec2  { return b.Pos }
func (b *Box) MoveTo(p vec.Vec2) { b.Pos = p }
func (b *Box) Recompute()        { b.setBounds(b.AABB()) }

// AABB returns the box geometry at its current position
func (b *Box) AABB() AABB {
	return NewAABBForExtents(b.Pos, b.HalfSize.X, b.HalfSize.Y)
}

// OrientedBox is a rectangle rotated by Angle radians around its center
type OrientedBox struct {
	colliderBase
	Pos      vec.Vec2
	HalfSize vec.Vec2
	Angle    float64
}

// NewOrientedBox creates a rotated box collider
func NewOrientedBox(owner Owner, center vec.Vec2, width, height, angle float64) *OrientedBox {
	return &OrientedBox{
		colliderBase: colliderBase{owner: owner},
		Pos:          center,
		HalfSize:     vec.Vec2{X: width / 2, Y: height / 2},
		Angle:        angle,
	}
}

func (o *OrientedBox) Shape() ShapeKind  { return ShapeOrientedBox }
func (o *OrientedBox) Center() vec.Vec2  { return o.Pos }
func (o *OrientedBox) MoveTo(p vec.Vec2) { o.Pos = p }

// SetRotation changes the orientation; Recompute must follow.
func (o *OrientedBox) SetRotation(angle float64) {
	o.Angle = angle
}

// Axes returns the box's local x and y unit axes in world space
func (o *OrientedBox) Axes() (vec.Vec2, vec.Vec2) {
	u := vec.ForAngle(o.Angle)
	return u, vec.Vec2{X: -u.Y, Y: u.X}
}

// Corners returns the four world-space corners
func (o *OrientedBox) Corners() [4]vec.Vec2 {
	u, v := o.Axes()
	ex := u.Scale(o.HalfSize.X)
	ey := v.Scale(o.HalfSize.Y)
	return [4]vec.Vec2{
		o.Pos.Add(ex).Add(ey),
		o.Pos.Sub(ex).Add(ey),
		o.Pos.Sub(ex).Sub(ey),
		o.Pos.Add(ex).Sub(ey),
	}
}

func (o *OrientedBox) Recompute() {
	corners := o.Corners()
	box := AABB{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		box = box.Merge(AABB{Min: c, Max: c})
	}
	o.setBounds(box)
}

// Segment is a line collider between Start and End
type Segment struct {
	colliderBase
	Start vec.Vec2
	End   vec.Vec2
}

// NewSegment creates a line segment collider
func NewSegment(owner Owner, start, end vec.Vec2) *Segment {
	return &Segment{
		colliderBase: colliderBase{owner: owner},
		Start:        start,
		End:          end,
	}
}

func (s *Segment) Shape() ShapeKind { return ShapeSegment }

// Center returns the midpoint of the segment
func (s *Segment) Center() vec.Vec2 {
	return s.Start.Lerp(s.End, 0.5)
}

// Locus returns the endpoints, the segment's stand-in for a center
func (s *Segment) Locus() (vec.Vec2, vec.Vec2) {
	return s.Start, s.End
}

// MoveTo translates both endpoints so the midpoint lands on p
func (s *Segment) MoveTo(p vec.Vec2) {
	delta := p.Sub(s.Center())
	s.Start = s.Start.Add(delta)
	s.End = s.End.Add(delta)
}

func (s *Segment) Recompute() {
	s.setBounds(NewAABB(s.Start, s.End))
}

// closestPoint returns the point on the segment nearest to p
func (s *Segment) closestPoint(p vec.Vec2) vec.Vec2 {
	d := s.End.Sub(s.Start)
	lenSq := d.Dot(d)
	if lenSq == 0 {
		return s.Start
	}
	t := p.Sub(s.Start).Dot(d) / lenSq
	t = math.Max(0, math.Min(1, t))
	return s.Start.Add(d.Scale(t))
}

// Group is a composite collider, used for boundaries built from several
// pieces. Members are not registered individually.
type Group struct {
	colliderBase
	Members []Collider
}

// NewGroup creates a group; members without an owner inherit the group's.
func NewGroup(owner Owner, members ...Collider) *Group {
	g := &Group{colliderBase: colliderBase{owner: owner}}
	for _, m := range members {
		g.Add(m)
	}
	return g
}

// Add appends a member collider
func (g *Group) Add(m Collider) {
	if m.Owner() == nil {
		m.base().owner = g.owner
	}
	g.Members = append(g.Members, m)
}

func (g *Group) Shape() ShapeKind { return ShapeGroup }

// Center returns the mean of the member centers
func (g *Group) Center() vec.Vec2 {
	if len(g.Members) == 0 {
		return vec.Vec2{}
	}
	var sum vec.Vec2
	for _, m := range g.Members {
		sum = sum.Add(m.Center())
	}
	return sum.Scale(1 / float64(len(g.Members)))
}

// MoveTo translates every member by the same offset
func (g *Group) MoveTo(p vec.Vec2) {
	delta := p.Sub(g.Center())
	for _, m := range g.Members {
		m.MoveTo(m.Center().Add(delta))
	}
}

// Recompute refreshes every member and merges their boxes
func (g *Group) Recompute() {
	if len(g.Members) == 0 {
		c := g.Center()
		g.setBounds(AABB{Min: c, Max: c})
		return
	}
	g.Members[0].Recompute()
	box := g.Members[0].Bounds()
	for _, m := range g.Members[1:] {
		m.Recompute()
		box = box.Merge(m.Bounds())
	}
	g.setBounds(box)
}
