package state

import (
	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
)

// GroupUpdate is one of the closed set of edits UpdateGroup accepts. Each variant keeps
// particles, bounds and position consistent.
type GroupUpdate interface {
	apply(g *drawing.Group)
}

// Reposition moves the group so its centroid lands on Center.
type Reposition struct {
	Center geom.Vec
}

func (u Reposition) apply(g *drawing.Group) { g.MoveTo(u.Center) }

// ReplaceParticles swaps the particle set and re-derives bounds and position.
type ReplaceParticles struct {
	Particles []drawing.Particle
}

func (u ReplaceParticles) apply(g *drawing.Group) {
	g.Particles = append([]drawing.Particle{}, u.Particles...)
	g.Recompute()
}

// ScaleBy scales the group about its centroid.
type ScaleBy struct {
	X, Y, Z float64
}

func (u ScaleBy) apply(g *drawing.Group) { g.Scale(u.X, u.Y, u.Z) }

// SetStyle changes the group defaults. Empty fields are left unchanged.
type SetStyle struct {
	ParticleType string
	Color        string
}

func (u SetStyle) apply(g *drawing.Group) {
	if u.ParticleType != "" {
		g.ParticleType = u.ParticleType
	}
	if u.Color != "" {
		g.Color = u.Color
	}
}
