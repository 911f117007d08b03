// Package shape samples rectangles and circles into particle positions. Sampling happens
// in drawing-plane local coordinates so shapes stay planar on a tilted or offset plane.
package shape

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mythic3d/particle-drawer/internal/geom"
)

const (
	// DefaultSpacing is the distance between neighbouring samples.
	DefaultSpacing = 0.2
	// MinDimension is the smallest width, height or radius that produces a shape.
	MinDimension = 0.1

	minCircleSamples = 8
	epsilon          = 1e-9
)

// Kind is a drawable shape.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
)

// intervals splits length into whole steps of about spacing, so both ends are sampled.
func intervals(length, spacing float64) int {
	n := int(math.Round(length / spacing))
	if n < 1 {
		n = 1
	}
	return n
}

// RectangleTooSmall reports whether the rectangle spanned by a and b is below MinDimension
// on either axis.
func RectangleTooSmall(a, b mgl64.Vec2) bool {
	return math.Abs(b[0]-a[0]) < MinDimension || math.Abs(b[1]-a[1]) < MinDimension
}

// CircleTooSmall reports whether the radius from center to edge is below MinDimension.
func CircleTooSmall(center, edge mgl64.Vec2) bool {
	return edge.Sub(center).Len() < MinDimension
}

// Rectangle samples the axis-aligned rectangle with opposite corners a and b. Filled
// returns the full grid; otherwise only the four edges, corners included once, walked
// around the perimeter.
func Rectangle(a, b mgl64.Vec2, spacing float64, filled bool) []mgl64.Vec2 {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	minU, maxU := math.Min(a[0], b[0]), math.Max(a[0], b[0])
	minV, maxV := math.Min(a[1], b[1]), math.Max(a[1], b[1])
	nu := intervals(maxU-minU, spacing)
	nv := intervals(maxV-minV, spacing)
	du := (maxU - minU) / float64(nu)
	dv := (maxV - minV) / float64(nv)
	at := func(i, j int) mgl64.Vec2 {
		return mgl64.Vec2{minU + float64(i)*du, minV + float64(j)*dv}
	}

	if filled {
		pts := make([]mgl64.Vec2, 0, (nu+1)*(nv+1))
		for j := 0; j <= nv; j++ {
			for i := 0; i <= nu; i++ {
				pts = append(pts, at(i, j))
			}
		}
		return pts
	}

	pts := make([]mgl64.Vec2, 0, 2*(nu+nv))
	for i := 0; i < nu; i++ {
		pts = append(pts, at(i, 0))
	}
	for j := 0; j < nv; j++ {
		pts = append(pts, at(nu, j))
	}
	for i := nu; i > 0; i-- {
		pts = append(pts, at(i, nv))
	}
	for j := nv; j > 0; j-- {
		pts = append(pts, at(0, j))
	}
	return pts
}

// Circle samples the circle centered on center passing through edge. Filled returns the
// spacing grid clipped to the disc; otherwise equally spaced points on the circumference.
func Circle(center, edge mgl64.Vec2, spacing float64, filled bool) []mgl64.Vec2 {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	r := edge.Sub(center).Len()

	if !filled {
		n := int(math.Round(2 * math.Pi * r / spacing))
		if n < minCircleSamples {
			n = minCircleSamples
		}
		pts := make([]mgl64.Vec2, n)
		for i := range pts {
			a := 2 * math.Pi * float64(i) / float64(n)
			pts[i] = mgl64.Vec2{center[0] + r*math.Cos(a), center[1] + r*math.Sin(a)}
		}
		return pts
	}

	m := int(math.Floor(r/spacing + epsilon))
	var pts []mgl64.Vec2
	for j := -m; j <= m; j++ {
		for i := -m; i <= m; i++ {
			du, dv := float64(i)*spacing, float64(j)*spacing
			if du*du+dv*dv <= r*r+epsilon {
				pts = append(pts, mgl64.Vec2{center[0] + du, center[1] + dv})
			}
		}
	}
	return pts
}

// Sample projects the world-space drag endpoints onto plane, samples the shape locally
// and maps the samples back to world space. It returns nil when the shape is too small.
func Sample(kind Kind, plane geom.DrawingPlane, start, end geom.Vec, spacing float64, filled bool) []geom.Vec {
	a := local(plane, start)
	b := local(plane, end)

	var pts []mgl64.Vec2
	switch kind {
	case KindRectangle:
		if RectangleTooSmall(a, b) {
			return nil
		}
		pts = Rectangle(a, b, spacing, filled)
	case KindCircle:
		if CircleTooSmall(a, b) {
			return nil
		}
		pts = Circle(a, b, spacing, filled)
	default:
		return nil
	}

	world := make([]geom.Vec, len(pts))
	for i, p := range pts {
		world[i] = plane.ToWorld(p[0], p[1])
	}
	return world
}

// Outline is the preview sampling for a shape in progress.
func Outline(kind Kind, plane geom.DrawingPlane, start, end geom.Vec) []geom.Vec {
	return Sample(kind, plane, start, end, DefaultSpacing, false)
}

func local(plane geom.DrawingPlane, w geom.Vec) mgl64.Vec2 {
	u, v := plane.ToLocal(w)
	return mgl64.Vec2{u, v}
}
