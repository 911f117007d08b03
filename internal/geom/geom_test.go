package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestComputeBoundsEmpty(t *testing.T) {
	assert.Equal(t, Box{}, ComputeBounds(nil))
	assert.Equal(t, Vec{}, ComputeCentroid(nil))
}

func TestComputeBoundsGrowsOnOutsidePoint(t *testing.T) {
	pts := []Vec{V(0, 0, 0), V(1, 2, 3)}
	before := ComputeBounds(pts)
	assert.Equal(t, V(0, 0, 0), before.Min)
	assert.Equal(t, V(1, 2, 3), before.Max)

	after := ComputeBounds(append(pts, V(5, -1, 1)))
	assert.Greater(t, after.Max.X, before.Max.X)
	assert.Less(t, after.Min.Y, before.Min.Y)
	assert.Equal(t, before.Max.Z, after.Max.Z)
}

func TestComputeCentroid(t *testing.T) {
	c := ComputeCentroid([]Vec{V(0, 0, 0), V(2, 4, 6), V(1, 2, 3)})
	assert.True(t, c.ApproxEqual(V(1, 2, 3), eps))
}

func TestBoxContainsInclusiveWithTolerance(t *testing.T) {
	b := Box{Min: V(0, 0, 0), Max: V(1, 1, 1)}
	assert.True(t, b.Contains(V(1, 1, 1), 0))
	assert.True(t, b.Contains(V(1.1, 0.5, -0.1), 0.1))
	assert.False(t, b.Contains(V(1.2, 0.5, 0.5), 0.1))
}

func TestBoxCorners(t *testing.T) {
	b := Box{Min: V(0, 0, 0), Max: V(1, 2, 3)}
	c := b.Corners()
	assert.Equal(t, V(0, 0, 0), c[0])
	assert.Equal(t, V(1, 2, 3), c[7])
	assert.Equal(t, V(1, 0, 0), c[1])
	assert.Equal(t, V(0, 0, 3), c[4])
}

func TestRayIntersectBox(t *testing.T) {
	b := Box{Min: V(-1, -1, -1), Max: V(1, 1, 1)}

	hit := Ray{Origin: mgl64.Vec3{0, 0, 10}, Dir: mgl64.Vec3{0, 0, -1}}
	d, ok := hit.IntersectBox(b)
	require.True(t, ok)
	assert.InDelta(t, 9, d, eps)

	miss := Ray{Origin: mgl64.Vec3{3, 0, 10}, Dir: mgl64.Vec3{0, 0, -1}}
	_, ok = miss.IntersectBox(b)
	assert.False(t, ok)

	behind := Ray{Origin: mgl64.Vec3{0, 0, 10}, Dir: mgl64.Vec3{0, 0, 1}}
	_, ok = behind.IntersectBox(b)
	assert.False(t, ok)
}

func TestRayIntersectSphere(t *testing.T) {
	r := Ray{Origin: mgl64.Vec3{0, 0, 5}, Dir: mgl64.Vec3{0, 0, -1}}
	d, ok := r.IntersectSphere(mgl64.Vec3{0, 0, 0}, 1)
	require.True(t, ok)
	assert.InDelta(t, 4, d, eps)
}

func TestDrawingPlaneFlatIntersect(t *testing.T) {
	p := DrawingPlane{}
	r := Ray{Origin: mgl64.Vec3{1, 5, 2}, Dir: mgl64.Vec3{0, -1, 0}}
	hit, ok := p.Intersect(r)
	require.True(t, ok)
	assert.True(t, hit.ApproxEqual(V(1, 0, 2), eps))
}

func TestDrawingPlaneHeightAndParallelMiss(t *testing.T) {
	p := DrawingPlane{Height: 2}
	hit, ok := p.Intersect(Ray{Origin: mgl64.Vec3{0, 5, 0}, Dir: mgl64.Vec3{0, -1, 0}})
	require.True(t, ok)
	assert.InDelta(t, 2, hit.Y, eps)

	_, ok = p.Intersect(Ray{Origin: mgl64.Vec3{0, 5, 0}, Dir: mgl64.Vec3{1, 0, 0}})
	assert.False(t, ok)

	_, ok = p.Intersect(Ray{Origin: mgl64.Vec3{0, 5, 0}, Dir: mgl64.Vec3{0, 1, 0}})
	assert.False(t, ok, "looking away from the plane")
}

func TestDrawingPlaneSizeLimitsHits(t *testing.T) {
	p := DrawingPlane{Size: 10}
	_, ok := p.Intersect(Ray{Origin: mgl64.Vec3{6, 5, 0}, Dir: mgl64.Vec3{0, -1, 0}})
	assert.False(t, ok)
	_, ok = p.Intersect(Ray{Origin: mgl64.Vec3{4.9, 5, 0}, Dir: mgl64.Vec3{0, -1, 0}})
	assert.True(t, ok)
}

func TestDrawingPlaneRoundTripTilted(t *testing.T) {
	p := DrawingPlane{Height: 1.5, Rotation: Rotation{X: 30, Y: 45, Z: -20}, Offset: PlanarOffset{X: 2, Z: -1}}
	w := p.ToWorld(0.7, -1.3)
	u, v := p.ToLocal(w)
	assert.InDelta(t, 0.7, u, 1e-9)
	assert.InDelta(t, -1.3, v, 1e-9)

	// every local point lies on the plane
	n := p.Normal()
	d := w.Vec3().Sub(p.Origin()).Dot(n)
	assert.InDelta(t, 0, d, 1e-9)
}

func TestDrawingPlaneVerticalNormal(t *testing.T) {
	p := DrawingPlane{Rotation: Rotation{X: 90}}
	n := p.Normal()
	assert.InDelta(t, 0, n[1], 1e-9)
	assert.InDelta(t, 1, math.Abs(n[2]), 1e-9)
}
