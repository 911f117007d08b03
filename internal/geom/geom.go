package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec is a world-space coordinate as it appears in project files.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func V(x, y, z float64) Vec { return Vec{X: x, Y: y, Z: z} }

// FromVec3 converts an mgl64 vector.
func FromVec3(v mgl64.Vec3) Vec { return Vec{X: v[0], Y: v[1], Z: v[2]} }

func (v Vec) Vec3() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec) Scale(s float64) Vec { return Vec{v.X * s, v.Y * s, v.Z * s} }

// Dist returns the euclidean distance between two points.
func (v Vec) Dist(o Vec) float64 { return v.Sub(o).Vec3().Len() }

// ApproxEqual compares componentwise within eps.
func (v Vec) ApproxEqual(o Vec, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps && math.Abs(v.Z-o.Z) <= eps
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec `json:"min"`
	Max Vec `json:"max"`
}

// ComputeBounds returns the componentwise min/max of points, or the zero box at the origin
// for an empty input.
func ComputeBounds(points []Vec) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}

// ComputeCentroid returns the arithmetic mean of points, or the origin for an empty input.
func ComputeCentroid(points []Vec) Vec {
	if len(points) == 0 {
		return Vec{}
	}
	var sum Vec
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

// Contains reports whether p lies inside the box grown by tolerance on every axis.
// Edges are inclusive.
func (b Box) Contains(p Vec, tolerance float64) bool {
	return p.X >= b.Min.X-tolerance && p.X <= b.Max.X+tolerance &&
		p.Y >= b.Min.Y-tolerance && p.Y <= b.Max.Y+tolerance &&
		p.Z >= b.Min.Z-tolerance && p.Z <= b.Max.Z+tolerance
}

func (b Box) Translate(offset Vec) Box {
	return Box{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Expand grows the box by d on every side.
func (b Box) Expand(d float64) Box {
	e := Vec{d, d, d}
	return Box{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

func (b Box) Center() Vec { return b.Min.Add(b.Max).Scale(0.5) }

func (b Box) Size() Vec { return b.Max.Sub(b.Min) }

// ApproxEqual compares both corners within eps.
func (b Box) ApproxEqual(o Box, eps float64) bool {
	return b.Min.ApproxEqual(o.Min, eps) && b.Max.ApproxEqual(o.Max, eps)
}

// Corners returns the eight vertices, x varying fastest, then y, then z.
func (b Box) Corners() [8]Vec {
	return [8]Vec{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}
