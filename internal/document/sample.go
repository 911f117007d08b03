package document

import (
	"math"
	"time"

	"github.com/mythic3d/particle-drawer/internal/typeid"
)

// NewSampleProject builds the playground project: a reddust ring around the origin and a
// flame stroke across it.
func NewSampleProject() *Project {
	now := time.Now()

	ring := GroupRecord{
		ID:           typeid.NewGroupID(),
		Type:         "circle",
		ParticleType: ParticleTypeReddust,
		Color:        "#ff5500",
		CreatedAt:    now.UnixMilli(),
	}
	const ringPoints = 16
	for i := 0; i < ringPoints; i++ {
		a := 2 * math.Pi * float64(i) / ringPoints
		ring.Particles = append(ring.Particles, ParticleRecord{
			ID:           typeid.NewParticleID(),
			X:            1.5 * math.Cos(a),
			Z:            1.5 * math.Sin(a),
			ParticleType: ParticleTypeReddust,
			Color:        "#ff5500",
		})
	}

	stroke := GroupRecord{
		ID:           typeid.NewGroupID(),
		Type:         "brush",
		ParticleType: DefaultParticleType,
		Color:        DefaultColor,
		CreatedAt:    now.UnixMilli() + 1,
	}
	for i := 0; i <= 10; i++ {
		x := -1 + 0.2*float64(i)
		stroke.Particles = append(stroke.Particles, ParticleRecord{
			ID:           typeid.NewParticleID(),
			X:            x,
			Y:            0.5,
			Z:            x,
			ParticleType: DefaultParticleType,
		})
	}

	p := &Project{
		Name:      "Sample",
		CreatedAt: now.UTC().Format(time.RFC3339),
		Version:   FormatVersion,
		Groups:    []GroupRecord{ring, stroke},
		Settings: Settings{
			ParticleType:  ParticleTypeReddust,
			ParticleColor: "#ff5500",
			SkillID:       "SampleSkill",
		},
	}
	p.Normalize()
	return p
}
