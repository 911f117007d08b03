// Package drawing holds the authored data: particles and the groups that own them.
// Groups carry no rendering state; visual handles live in the scene reconciler.
package drawing

import (
	"time"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

// DefaultTolerance is the slack ContainsPoint adds on every axis.
const DefaultTolerance = 0.1

// GroupType records how a group was authored.
type GroupType string

const (
	TypePoint     GroupType = "point"
	TypeBrush     GroupType = "brush"
	TypeRectangle GroupType = "rectangle"
	TypeCircle    GroupType = "circle"
)

// Particle is a single placement point. Empty ParticleType or Color fall back to the
// owning group's defaults.
type Particle struct {
	ID string
	geom.Vec
	ParticleType string
	Color        string
}

// NewParticle creates a particle with a fresh id.
func NewParticle(pos geom.Vec, particleType, color string) Particle {
	return Particle{ID: typeid.NewParticleID(), Vec: pos, ParticleType: particleType, Color: color}
}

// Group is one authored shape or stroke. Bounds and Position are derived from Particles
// and are only ever updated together with them.
type Group struct {
	ID           string
	Type         GroupType
	Particles    []Particle
	ParticleType string
	Color        string
	Bounds       geom.Box
	Position     geom.Vec
	CreatedAt    int64 // unix milliseconds
}

// NewGroup creates a group with a fresh id and derived fields computed from particles.
func NewGroup(typ GroupType, particleType, color string, particles ...Particle) *Group {
	if particleType == "" {
		particleType = document.DefaultParticleType
	}
	if color == "" {
		color = document.DefaultColor
	}
	g := &Group{
		ID:           typeid.NewGroupID(),
		Type:         typ,
		Particles:    append([]Particle{}, particles...),
		ParticleType: particleType,
		Color:        color,
		CreatedAt:    time.Now().UnixMilli(),
	}
	g.Recompute()
	return g
}

// Points returns the particle coordinates in order.
func (g *Group) Points() []geom.Vec {
	pts := make([]geom.Vec, len(g.Particles))
	for i, p := range g.Particles {
		pts[i] = p.Vec
	}
	return pts
}

// Recompute refreshes Bounds and Position from the current particles.
func (g *Group) Recompute() {
	pts := g.Points()
	g.Bounds = geom.ComputeBounds(pts)
	g.Position = geom.ComputeCentroid(pts)
}

func (g *Group) AddParticle(p Particle) {
	g.Particles = append(g.Particles, p)
	g.Recompute()
}

// MoveTo translates every particle so the group's centroid lands on center.
func (g *Group) MoveTo(center geom.Vec) {
	offset := center.Sub(g.Position)
	for i := range g.Particles {
		g.Particles[i].Vec = g.Particles[i].Vec.Add(offset)
	}
	g.Position = center
	g.Bounds = geom.ComputeBounds(g.Points())
}

// Scale stretches each particle's offset from the centroid; the centroid stays put.
func (g *Group) Scale(sx, sy, sz float64) {
	c := g.Position
	for i := range g.Particles {
		p := &g.Particles[i]
		p.X = c.X + (p.X-c.X)*sx
		p.Y = c.Y + (p.Y-c.Y)*sy
		p.Z = c.Z + (p.Z-c.Z)*sz
	}
	g.Bounds = geom.ComputeBounds(g.Points())
}

// ContainsPoint tests p against the bounds grown by tolerance.
func (g *Group) ContainsPoint(p geom.Vec, tolerance float64) bool {
	return g.Bounds.Contains(p, tolerance)
}

// ParticleTypeOf resolves a particle's type against the group default.
func (g *Group) ParticleTypeOf(p Particle) string {
	if p.ParticleType != "" {
		return p.ParticleType
	}
	return g.ParticleType
}

// ColorOf resolves a particle's color against the group default.
func (g *Group) ColorOf(p Particle) string {
	if p.Color != "" {
		return p.Color
	}
	return g.Color
}

// Clone returns a deep copy.
func (g *Group) Clone() *Group {
	c := *g
	c.Particles = append([]Particle(nil), g.Particles...)
	if c.Particles == nil {
		c.Particles = []Particle{}
	}
	return &c
}
