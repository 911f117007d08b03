package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rotation is a three-axis rotation in degrees, applied X then Y then Z in the plane's
// local frame.
type Rotation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarOffset shifts the drawing plane horizontally.
type PlanarOffset struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// DrawingPlane is the surface pointer rays are intersected with. Locally it is the XZ
// plane with normal +Y. Size bounds the square extent; zero means unbounded.
type DrawingPlane struct {
	Height   float64
	Rotation Rotation
	Offset   PlanarOffset
	Size     float64
}

// Matrix maps plane-local coordinates to world coordinates.
func (p DrawingPlane) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(p.Offset.X, p.Height, p.Offset.Z).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(p.Rotation.X))).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(p.Rotation.Y))).
		Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(p.Rotation.Z)))
}

func (p DrawingPlane) Origin() mgl64.Vec3 {
	return mgl64.Vec3{p.Offset.X, p.Height, p.Offset.Z}
}

func (p DrawingPlane) Normal() mgl64.Vec3 {
	return p.Matrix().Mul4x1(mgl64.Vec4{0, 1, 0, 0}).Vec3().Normalize()
}

// ToWorld maps local plane coordinates (u along local X, v along local Z) to world space.
func (p DrawingPlane) ToWorld(u, v float64) Vec {
	return FromVec3(p.Matrix().Mul4x1(mgl64.Vec4{u, 0, v, 1}).Vec3())
}

// ToLocal projects a world point into the plane's local frame, dropping the normal
// component.
func (p DrawingPlane) ToLocal(w Vec) (u, v float64) {
	l := p.Matrix().Inv().Mul4x1(w.Vec3().Vec4(1))
	return l[0], l[2]
}

// Intersect casts r against the plane, honouring Size.
func (p DrawingPlane) Intersect(r Ray) (Vec, bool) {
	hit, ok := r.IntersectPlane(p.Origin(), p.Normal())
	if !ok {
		return Vec{}, false
	}
	w := FromVec3(hit)
	if p.Size > 0 {
		u, v := p.ToLocal(w)
		half := p.Size / 2
		if math.Abs(u) > half || math.Abs(v) > half {
			return Vec{}, false
		}
	}
	return w, true
}
