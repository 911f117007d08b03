package drawing

import (
	"time"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

// Record converts the group to its project-file form. Particle type and color are
// resolved against the group defaults.
func (g *Group) Record() document.GroupRecord {
	particles := make([]document.ParticleRecord, len(g.Particles))
	for i, p := range g.Particles {
		particles[i] = document.ParticleRecord{
			ID:           p.ID,
			X:            p.X,
			Y:            p.Y,
			Z:            p.Z,
			ParticleType: g.ParticleTypeOf(p),
			Color:        g.ColorOf(p),
		}
	}
	bounds := g.Bounds
	position := g.Position
	return document.GroupRecord{
		ID:           g.ID,
		Type:         string(g.Type),
		Particles:    particles,
		ParticleType: g.ParticleType,
		Color:        g.Color,
		Bounds:       &bounds,
		Position:     &position,
		CreatedAt:    g.CreatedAt,
	}
}

// FromRecord rebuilds a group. A missing id is replaced with a fresh one. Stored bounds
// and position are ignored and derived from the particles.
func FromRecord(r document.GroupRecord) *Group {
	g := &Group{
		ID:           r.ID,
		Type:         GroupType(r.Type),
		Particles:    make([]Particle, len(r.Particles)),
		ParticleType: r.ParticleType,
		Color:        r.Color,
		CreatedAt:    r.CreatedAt,
	}
	if g.ID == "" {
		g.ID = typeid.NewGroupID()
	}
	if g.Type == "" {
		g.Type = TypeBrush
	}
	if g.ParticleType == "" {
		g.ParticleType = document.DefaultParticleType
	}
	if g.Color == "" {
		g.Color = document.DefaultColor
	}
	if g.CreatedAt == 0 {
		g.CreatedAt = time.Now().UnixMilli()
	}
	for i, p := range r.Particles {
		g.Particles[i] = ParticleFromRecord(p)
	}

	g.Recompute()
	return g
}

// ParticleRecordOf converts a flat particle.
func ParticleRecordOf(p Particle) document.ParticleRecord {
	return document.ParticleRecord{
		ID:           p.ID,
		X:            p.X,
		Y:            p.Y,
		Z:            p.Z,
		ParticleType: p.ParticleType,
		Color:        p.Color,
	}
}

// ParticleFromRecord converts a particle record, assigning an id when missing.
func ParticleFromRecord(r document.ParticleRecord) Particle {
	id := r.ID
	if id == "" {
		id = typeid.NewParticleID()
	}
	p := Particle{ID: id, ParticleType: r.ParticleType, Color: r.Color}
	p.X, p.Y, p.Z = r.X, r.Y, r.Z
	return p
}
