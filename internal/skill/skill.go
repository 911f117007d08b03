// Package skill converts drawings to and from the particle-effect skill format:
//
//	MySkill:
//	  Skills:
//	    - effect:particles{particle=flame;amount=1;speed=0;y=0.000;forwardOffset=2.000;sideOffset=-1.000} @self
//
// forwardOffset is world Z and sideOffset is negated world X.
package skill

import (
	"strconv"
	"strings"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/state"
)

const (
	linePrefix = "    - "
	effectHead = "effect:particles{"
	effectTail = "} @self"
)

// Generate emits the skill text for every flat particle and then every group particle,
// in order. It returns "" when nothing is drawn.
func Generate(st state.State) string {
	return GenerateProject(st.Project())
}

// GenerateProject is Generate for a project file. Particle types and colors missing from
// the records fall back to the group defaults and then to the project settings.
func GenerateProject(p *document.Project) string {
	if len(p.Particles) == 0 && len(p.Groups) == 0 {
		return ""
	}
	skillID := p.Settings.SkillID
	if skillID == "" {
		skillID = document.DefaultSkillID
	}
	defType := p.Settings.ParticleType
	if defType == "" {
		defType = document.DefaultParticleType
	}
	defColor := p.Settings.ParticleColor
	if defColor == "" {
		defColor = document.DefaultColor
	}

	var b strings.Builder
	b.WriteString(skillID)
	b.WriteString(":\n  Skills:")
	for _, r := range p.Particles {
		b.WriteByte('\n')
		b.WriteString(Line(r, defType, defColor))
	}
	for _, g := range p.Groups {
		gType, gColor := defType, defColor
		if g.ParticleType != "" {
			gType = g.ParticleType
		}
		if g.Color != "" {
			gColor = g.Color
		}
		for _, r := range g.Particles {
			b.WriteByte('\n')
			b.WriteString(Line(r, gType, gColor))
		}
	}
	return b.String()
}

// Line formats a single particle. Color is written only for reddust.
func Line(r document.ParticleRecord, defType, defColor string) string {
	particleType := r.ParticleType
	if particleType == "" {
		particleType = defType
	}
	attrs := []string{
		"particle=" + particleType,
		"amount=1",
		"speed=0",
		"y=" + formatCoord(r.Y),
		"forwardOffset=" + formatCoord(r.Z),
		"sideOffset=" + formatCoord(-r.X),
	}
	if particleType == document.ParticleTypeReddust {
		color := r.Color
		if color == "" {
			color = defColor
		}
		attrs = append(attrs, "color="+color)
	}
	return linePrefix + effectHead + strings.Join(attrs, ";") + effectTail
}

// formatCoord prints three decimals. Exact negative zero prints unsigned; small
// negatives keep their sign ("-0.000").
func formatCoord(v float64) string {
	if v == 0 {
		return "0.000"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}
