// pkg/physics/aabb.go
package physics

import (
	"fmt"
	"math"

	"github.com/setanarut/vec"
)

// Rect represents a rectangular area given by its top-left corner and size.
// It is used for world bounds and spatial index regions.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// AABB returns the rectangle as min/max corners
func (r Rect) AABB() AABB {
	return AABB{
		Min: vec.Vec2{X: r.X, Y: r.Y},
		Max: vec.Vec2{X: r.X + r.Width, Y: r.Y + r.Height},
	}
}

// Contains reports whether box lies entirely inside r, edges included.
func (r Rect) Contains(box AABB) bool {
	return box.Min.X >= r.X && box.Max.X <= r.X+r.Width &&
		box.Min.Y >= r.Y && box.Max.Y <= r.Y+r.Height
}

// Quarter returns the sub-rectangle for quadrant q of r.
func (r Rect) Quarter(q Quadrant) Rect {
	w := r.Width / 2
	h := r.Height / 2
	switch q {
	case QuadrantNE:
		return Rect{X: r.X + w, Y: r.Y, Width: w, Height: h}
	case QuadrantNW:
		return Rect{X: r.X, Y: r.Y, Width: w, Height: h}
	case QuadrantSW:
		return Rect{X: r.X, Y: r.Y + h, Width: w, Height: h}
	case QuadrantSE:
		return Rect{X: r.X + w, Y: r.Y + h, Width: w, Height: h}
	}
	return r
}

func (r Rect) String() string {
	return fmt.Sprintf("rect(%v,%v %vx%v)", r.X, r.Y, r.Width, r.Height)
}

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min vec.Vec2
	Max vec.Vec2
}

// NewAABB builds a box from any two opposite corners.
func NewAABB(a, b vec.Vec2) AABB {
	return AABB{
		Min: vec.Vec2{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: vec.Vec2{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// NewAABBForExtents builds a box centered on c with half sizes hw and hh.
func NewAABBForExtents(c vec.Vec2, hw, hh float64) AABB {
	return AABB{
		Min: vec.Vec2{X: c.X - hw, Y: c.Y - hh},
		Max: vec.Vec2{X: c.X + hw, Y: c.Y + hh},
	}
}

// Overlaps reports whether two boxes share at least one point. Touching
// edges and corners count as overlap.
func (a AABB) Overlaps(b AABB) bool {
	if a.Max.X < b.Min.X || a.Min.X > b.Max.X ||
		a.Max.Y < b.Min.Y || a.Min.Y > b.Max.Y {
		return false
	}
	return true
}

// Contains returns true if other lies completely within a.
func (a AABB) Contains(other AABB) bool {
	return a.Min.X <= other.Min.X && a.Max.X >= other.Max.X &&
		a.Min.Y <= other.Min.Y && a.Max.Y >= other.Max.Y
}

// ContainsPoint returns true if p lies inside a, edges included.
func (a AABB) ContainsPoint(p vec.Vec2) bool {
	return a.Min.X <= p.X && a.Max.X >= p.X && a.Min.Y <= p.Y && a.Max.Y >= p.Y
}

// Merge returns the smallest box holding both a and b.
func (a AABB) Merge(b AABB) AABB {
	return AABB{
		Min: vec.Vec2{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y)},
		Max: vec.Vec2{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y)},
	}
}

// Center returns the midpoint of the box
func (a AABB) Center() vec.Vec2 {
	return a.Min.Lerp(a.Max, 0.5)
}

// Size returns width and height
func (a AABB) Size() (float64, float64) {
	return a.Max.X - a.Min.X, a.Max.Y - a.Min.Y
}

// Clamp returns the point inside a closest to p.
func (a AABB) Clamp(p vec.Vec2) vec.Vec2 {
	return vec.Vec2{
		X: math.Max(a.Min.X, math.Min(a.Max.X, p.X)),
		Y: math.Max(a.Min.Y, math.Min(a.Max.Y, p.Y)),
	}
}

func (a AABB) String() string {
	return fmt.Sprintf("[(%v,%v)-(%v,%v)]", a.Min.X, a.Min.Y, a.Max.X, a.Max.Y)
}
