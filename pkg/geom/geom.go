// Package geom provides the planar and spatial primitives used by the
// planner: vectors, bounding boxes and simple closed polygons.
//
// All lengths are millimetres. Polygons are implicitly closed (the last
// vertex connects back to the first) and are interpreted in the XY plane
// viewed from +Z, so a positive signed area means counter-clockwise order.
package geom

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used for length and area comparisons.
const Epsilon = 1e-9

// Vec2 is a point or direction in the XY plane.
type Vec2 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// V2 is shorthand for Vec2{x, y}.
func V2(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (a Vec2) Add(b Vec2) Vec2        { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2        { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(s float64) Vec2   { return Vec2{a.X * s, a.Y * s} }
func (a Vec2) Dot(b Vec2) float64     { return a.X*b.X + a.Y*b.Y }
func (a Vec2) Cross(b Vec2) float64   { return a.X*b.Y - a.Y*b.X }
func (a Vec2) Len() float64           { return math.Hypot(a.X, a.Y) }
func (a Vec2) Dist(b Vec2) float64    { return a.Sub(b).Len() }
func (a Vec2) At(z float64) Vec3      { return Vec3{a.X, a.Y, z} }
func (a Vec2) Equal(b Vec2, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

// Normalize returns the unit vector in the direction of a, or the zero
// vector when a has no length.
func (a Vec2) Normalize() Vec2 {
	l := a.Len()
	if l < Epsilon {
		return Vec2{}
	}
	return Vec2{a.X / l, a.Y / l}
}

func (a Vec2) String() string { return fmt.Sprintf("(%.4f, %.4f)", a.X, a.Y) }

// Vec3 is a point in machine space.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// XY drops the Z component.
func (v Vec3) XY() Vec2 { return Vec2{v.X, v.Y} }

func (v Vec3) String() string { return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z) }

// Box2 is an axis-aligned rectangle.
type Box2 struct {
	Min Vec2 `yaml:"min" json:"min"`
	Max Vec2 `yaml:"max" json:"max"`
}

// EmptyBox returns a box that any Extend call will replace.
func EmptyBox() Box2 {
	inf := math.Inf(1)
	return Box2{Min: Vec2{inf, inf}, Max: Vec2{-inf, -inf}}
}

// IsEmpty reports whether no point has been added to the box.
func (b Box2) IsEmpty() bool { return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y }

// Extend grows the box to include p.
func (b Box2) Extend(p Vec2) Box2 {
	return Box2{
		Min: Vec2{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y)},
		Max: Vec2{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y)},
	}
}

// Union returns the smallest box containing both boxes.
func (b Box2) Union(o Box2) Box2 {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Grow expands the box by d on every side.
func (b Box2) Grow(d float64) Box2 {
	return Box2{Min: Vec2{b.Min.X - d, b.Min.Y - d}, Max: Vec2{b.Max.X + d, b.Max.Y + d}}
}

// ContainsBox reports whether o lies inside b.
func (b Box2) ContainsBox(o Box2) bool {
	return o.Min.X >= b.Min.X && o.Min.Y >= b.Min.Y && o.Max.X <= b.Max.X && o.Max.Y <= b.Max.Y
}

func (b Box2) Width() float64  { return b.Max.X - b.Min.X }
func (b Box2) Height() float64 { return b.Max.Y - b.Min.Y }
func (b Box2) Center() Vec2    { return Vec2{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2} }
