package interact

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/scene"
)

// Viewport is what the controller needs from the camera and renderer. Screen
// coordinates are viewport pixels with the origin at the top left.
type Viewport interface {
	// Ray returns the camera ray through a screen point.
	Ray(x, y float64) geom.Ray
	// CastRay intersects the camera ray with the drawing plane.
	CastRay(x, y float64, plane geom.DrawingPlane) (geom.Vec, bool)
	// ProjectToScreen returns false for points behind the camera.
	ProjectToScreen(p geom.Vec) (x, y float64, ok bool)
	RayIntersectsBox(x, y float64, b geom.Box) bool
	// ViewDirection is the normalized camera forward vector.
	ViewDirection() mgl64.Vec3
	// Pick returns the nearest visible primitive under the cursor.
	Pick(x, y float64) (scene.Handle, bool)
}
