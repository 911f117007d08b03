// Package render is the headless rendering collaborator. It keeps a retained table of
// primitives, owns the camera, answers picking and projection queries, and compiles the
// table into draw commands for a browser canvas.
package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/scene"
)

// Scene is a retained primitive table plus the camera that views it. It implements
// scene.Renderer and interact.Viewport.
type Scene struct {
	Camera Camera

	next  scene.Handle
	prims map[scene.Handle]scene.Primitive
}

func NewScene(width, height float64) *Scene {
	return &Scene{
		Camera: NewCamera(width, height),
		prims:  make(map[scene.Handle]scene.Primitive),
	}
}

func (s *Scene) Add(p scene.Primitive) scene.Handle {
	s.next++
	s.prims[s.next] = p
	return s.next
}

func (s *Scene) Update(h scene.Handle, p scene.Primitive) {
	if _, ok := s.prims[h]; ok {
		s.prims[h] = p
	}
}

func (s *Scene) Remove(h scene.Handle) {
	delete(s.prims, h)
}

// Len is the number of live primitives.
func (s *Scene) Len() int { return len(s.prims) }

// Primitive looks up a live primitive.
func (s *Scene) Primitive(h scene.Handle) (scene.Primitive, bool) {
	p, ok := s.prims[h]
	return p, ok
}

// --- viewport ---

func (s *Scene) Ray(x, y float64) geom.Ray {
	return s.Camera.Ray(x, y)
}

func (s *Scene) CastRay(x, y float64, plane geom.DrawingPlane) (geom.Vec, bool) {
	return plane.Intersect(s.Camera.Ray(x, y))
}

func (s *Scene) ProjectToScreen(p geom.Vec) (float64, float64, bool) {
	x, y, _, ok := s.Camera.Project(p.Vec3())
	return x, y, ok
}

func (s *Scene) RayIntersectsBox(x, y float64, b geom.Box) bool {
	_, ok := s.Camera.Ray(x, y).IntersectBox(b)
	return ok
}

func (s *Scene) ViewDirection() mgl64.Vec3 {
	return s.Camera.Forward()
}

// Pick returns the visible, non-preview primitive nearest the camera under the cursor.
// Points and handles are hit as spheres, selection boxes as solid boxes.
func (s *Scene) Pick(x, y float64) (scene.Handle, bool) {
	ray := s.Camera.Ray(x, y)
	var best scene.Handle
	bestT := math.Inf(1)
	for h, p := range s.prims {
		if p.Hidden || p.Role == scene.RolePreview {
			continue
		}
		var t float64
		var ok bool
		switch p.Kind {
		case scene.KindPoint, scene.KindHandle:
			t, ok = ray.IntersectSphere(p.Center.Vec3(), p.Size)
		case scene.KindBox:
			t, ok = ray.IntersectBox(p.Box)
		default:
			continue
		}
		// Ties go to the lower handle so picking is deterministic.
		if ok && (t < bestT || (t == bestT && h < best)) {
			best, bestT = h, t
		}
	}
	return best, best != 0
}

// Orbit and Zoom adjust the camera. They are pointer gestures owned by the camera and
// never touch the drawing state.
func (s *Scene) Orbit(dx, dy float64) { s.Camera.Orbit(dx, dy) }
func (s *Scene) Zoom(steps float64)   { s.Camera.Zoom(steps) }

func (s *Scene) SetSensitivity(v float64) {
	if v > 0 {
		s.Camera.Sensitivity = v
	}
}

func (s *Scene) Resize(width, height float64) { s.Camera.Resize(width, height) }
