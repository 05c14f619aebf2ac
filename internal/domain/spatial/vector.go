// Package spatial provides 3-D vector math and a k-d tree index over point
// sets used by the structure model and the query engine.
package spatial

import (
	"fmt"
	"math"
)

// Vec3 is a point or direction in Cartesian space, in Ångström.
type Vec3 struct {
	X, Y, Z float64
}

// V is shorthand for constructing a Vec3.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Norm() float64        { return math.Sqrt(v.Dot(v)) }
func (v Vec3) NormSquared() float64 { return v.Dot(v) }
func (v Vec3) String() string       { return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z) }

// At returns the coordinate along axis d (0 = X, 1 = Y, 2 = Z).
func (v Vec3) At(d int) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 { return math.Sqrt(v.DistanceSquaredTo(o)) }

// DistanceSquaredTo returns the squared Euclidean distance between v and o.
func (v Vec3) DistanceSquaredTo(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Normalize returns the unit vector along v, or the zero vector when v is
// zero.
func (v Vec3) Normalize() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// Centroid returns the arithmetic mean of ps.  It returns the zero vector for
// an empty slice.
func Centroid(ps []Vec3) Vec3 {
	if len(ps) == 0 {
		return Vec3{}
	}
	var c Vec3
	for _, p := range ps {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(ps)))
}

// Bounds returns the axis-aligned bounding box of ps.
func Bounds(ps []Vec3) (min, max Vec3) {
	if len(ps) == 0 {
		return Vec3{}, Vec3{}
	}
	min, max = ps[0], ps[0]
	for _, p := range ps[1:] {
		min = Vec3{math.Min(min.X, p.X), math.Min(min.Y, p.Y), math.Min(min.Z, p.Z)}
		max = Vec3{math.Max(max.X, p.X), math.Max(max.Y, p.Y), math.Max(max.Z, p.Z)}
	}
	return min, max
}
