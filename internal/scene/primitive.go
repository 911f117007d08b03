// Package scene keeps rendered primitives in step with the state store.
//
// The Reconciler owns a side table from group and particle ids to the primitives it
// created; drawing groups themselves never hold rendering handles.
package scene

import (
	"github.com/mythic3d/particle-drawer/internal/geom"
)

// Handle identifies a primitive held by a Renderer. Zero is never a valid handle.
type Handle uint64

// Kind is the shape of a primitive.
type Kind string

const (
	KindPoint   Kind = "point"
	KindBox     Kind = "box"
	KindHandle  Kind = "handle"
	KindOverlay Kind = "overlay"
)

// Role says what a primitive is for, so pickers can ignore previews and overlays.
type Role string

const (
	RoleParticle  Role = "particle"
	RoleSelection Role = "selection"
	RolePreview   Role = "preview"
)

const (
	PointRadius      = 0.08
	HandleSize       = 0.15
	MinBoxSize       = 0.1
	SelectionColor   = "#00ff00"
	HandleColor      = "#ff9900"
	PreviewOpacity   = 0.5
	SelectionOpacity = 0.8
)

// Owner links a primitive back to the authored data it shows. GroupID is empty for
// legacy flat particles; ParticleID is empty for selection visuals.
type Owner struct {
	GroupID    string
	ParticleID string
}

// ScreenRect is a rectangle in viewport pixels.
type ScreenRect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Contains is inclusive on every edge and accepts corners in any order.
func (r ScreenRect) Contains(x, y float64) bool {
	minX, maxX := r.X0, r.X1
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := r.Y0, r.Y1
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

// Primitive is one visual element. Center and Size describe points and handles, Box the
// outline of a selection box, Rect a screen-space overlay.
type Primitive struct {
	Kind        Kind
	Role        Role
	Owner       Owner
	Center      geom.Vec
	Size        float64
	Box         geom.Box
	Rect        ScreenRect
	Color       string
	Opacity     float64
	Highlighted bool
	Hidden      bool
}

// Renderer is the retained-mode sink the reconciler drives.
type Renderer interface {
	Add(p Primitive) Handle
	Update(h Handle, p Primitive)
	Remove(h Handle)
}
