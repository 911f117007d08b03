package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const parallelEpsilon = 1e-9

// Ray is a half-line. Dir is expected to be normalized.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IntersectPlane returns the hit with the infinite plane through point with the given
// normal. Hits behind the origin and rays parallel to the plane miss.
func (r Ray) IntersectPlane(point, normal mgl64.Vec3) (mgl64.Vec3, bool) {
	denom := normal.Dot(r.Dir)
	if math.Abs(denom) < parallelEpsilon {
		return mgl64.Vec3{}, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}

// IntersectBox is the slab test. It returns the entry distance, or zero when the origin
// is inside the box.
func (r Ray) IntersectBox(b Box) (float64, bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)
	lo := b.Min.Vec3()
	hi := b.Max.Vec3()
	for i := 0; i < 3; i++ {
		if math.Abs(r.Dir[i]) < parallelEpsilon {
			if r.Origin[i] < lo[i] || r.Origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / r.Dir[i]
		t1 := (lo[i] - r.Origin[i]) * inv
		t2 := (hi[i] - r.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// IntersectSphere returns the nearest non-negative hit distance.
func (r Ray) IntersectSphere(center mgl64.Vec3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	b := oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
