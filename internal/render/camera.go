package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mythic3d/particle-drawer/internal/geom"
)

const (
	DefaultFOV  = 75.0
	DefaultNear = 0.1
	DefaultFar  = 1000.0

	// minClipW rejects points on or behind the near plane.
	minClipW = DefaultNear

	zoomBase    = 0.95
	minDistance = 0.5
	maxDistance = 500.0
	polarMargin = 1e-3
)

// DefaultEye is where a new camera sits, looking at the origin.
var DefaultEye = mgl64.Vec3{5, 8, 10}

// Camera is an orbit camera around Target with +Y up.
type Camera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	FOV    float64 // vertical, degrees
	Near   float64
	Far    float64

	Width  float64
	Height float64

	// Sensitivity scales orbit and zoom speed.
	Sensitivity float64
}

func NewCamera(width, height float64) Camera {
	return Camera{
		Eye:         DefaultEye,
		FOV:         DefaultFOV,
		Near:        DefaultNear,
		Far:         DefaultFar,
		Width:       width,
		Height:      height,
		Sensitivity: 1,
	}
}

func (c Camera) aspect() float64 {
	if c.Height <= 0 || c.Width <= 0 {
		return 1
	}
	return c.Width / c.Height
}

func (c Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye, c.Target, mgl64.Vec3{0, 1, 0})
}

func (c Camera) Projection() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), c.aspect(), c.Near, c.Far)
}

func (c Camera) ViewProjection() mgl64.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Forward is the normalized view direction.
func (c Camera) Forward() mgl64.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

// Ray returns the ray from the eye through a pixel.
func (c Camera) Ray(x, y float64) geom.Ray {
	nx := 2*x/c.Width - 1
	ny := 1 - 2*y/c.Height
	inv := c.ViewProjection().Inv()
	far := inv.Mul4x1(mgl64.Vec4{nx, ny, 1, 1})
	p := far.Vec3().Mul(1 / far.W())
	return geom.Ray{Origin: c.Eye, Dir: p.Sub(c.Eye).Normalize()}
}

// Project maps a world point to pixels. ok is false for points behind the camera;
// points outside the viewport still project.
func (c Camera) Project(p mgl64.Vec3) (x, y, depth float64, ok bool) {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	if clip.W() < minClipW {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = (ndc.X()*0.5 + 0.5) * c.Width
	y = (1 - (ndc.Y()*0.5 + 0.5)) * c.Height
	return x, y, clip.W(), true
}

// PixelsPerUnit is the screen size of one world unit at the given view depth.
func (c Camera) PixelsPerUnit(depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	focal := c.Height / 2 / math.Tan(mgl64.DegToRad(c.FOV)/2)
	return focal / depth
}

// Orbit rotates the eye around the target by a pointer drag of dx, dy pixels.
func (c *Camera) Orbit(dx, dy float64) {
	h := c.Height
	if h <= 0 {
		h = 1
	}
	offset := c.Eye.Sub(c.Target)
	r := offset.Len()
	theta := math.Atan2(offset.X(), offset.Z())
	phi := math.Acos(mgl64.Clamp(offset.Y()/r, -1, 1))

	theta -= 2 * math.Pi * dx / h * c.Sensitivity
	phi -= 2 * math.Pi * dy / h * c.Sensitivity
	phi = mgl64.Clamp(phi, polarMargin, math.Pi-polarMargin)

	c.Eye = c.Target.Add(mgl64.Vec3{
		r * math.Sin(phi) * math.Sin(theta),
		r * math.Cos(phi),
		r * math.Sin(phi) * math.Cos(theta),
	})
}

// Zoom dollies toward the target for positive steps and away for negative ones.
func (c *Camera) Zoom(steps float64) {
	offset := c.Eye.Sub(c.Target)
	r := offset.Len()
	scale := math.Pow(zoomBase, steps*c.Sensitivity)
	nr := mgl64.Clamp(r*scale, minDistance, maxDistance)
	c.Eye = c.Target.Add(offset.Mul(nr / r))
}

func (c *Camera) Resize(width, height float64) {
	if width > 0 && height > 0 {
		c.Width, c.Height = width, height
	}
}
