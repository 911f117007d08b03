package skill

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/state"
)

func TestGenerateEmpty(t *testing.T) {
	assert.Equal(t, "", Generate(state.New().GetState()))
}

func TestGenerateFormat(t *testing.T) {
	s := state.New()
	s.SetSkillID("Fire")
	s.AddPoint(drawing.NewParticle(geom.V(1, 0, 2), "flame", "#ff0000"))
	s.AddGroup(drawing.NewGroup(drawing.TypeBrush, document.ParticleTypeReddust, "#00ff00",
		drawing.NewParticle(geom.V(-0.5, 1.25, 0), "", ""),
		drawing.NewParticle(geom.V(0, 0.0004, -3.14159), "", "#123456")))

	want := strings.Join([]string{
		"Fire:",
		"  Skills:",
		"    - effect:particles{particle=flame;amount=1;speed=0;y=0.000;forwardOffset=2.000;sideOffset=-1.000} @self",
		"    - effect:particles{particle=reddust;amount=1;speed=0;y=1.250;forwardOffset=0.000;sideOffset=0.500;color=#00ff00} @self",
		"    - effect:particles{particle=reddust;amount=1;speed=0;y=0.000;forwardOffset=-3.142;sideOffset=0.000;color=#123456} @self",
	}, "\n")
	assert.Equal(t, want, Generate(s.GetState()))
}

func TestFormatCoordSign(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.000"},
		{math.Copysign(0, -1), "0.000"},
		{-0.0004, "-0.000"},
		{0.0004, "0.000"},
		{-3.14159, "-3.142"},
		{1.25, "1.250"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCoord(tt.in), "%v", tt.in)
	}
}

func TestGenerateDefaultSkillID(t *testing.T) {
	p := document.NewEmptyProject("x")
	p.Settings.SkillID = ""
	p.Particles = []document.ParticleRecord{{X: 0, Y: 0, Z: 0, ParticleType: "flame"}}
	out := GenerateProject(p)
	assert.True(t, strings.HasPrefix(out, document.DefaultSkillID+":\n  Skills:\n"))
}

func TestGenerateResolvesGroupDefaults(t *testing.T) {
	p := document.NewEmptyProject("x")
	p.Groups = []document.GroupRecord{{
		ParticleType: document.ParticleTypeReddust,
		Color:        "#abcdef",
		Particles:    []document.ParticleRecord{{X: 1}},
	}}
	assert.Contains(t, GenerateProject(p), "particle=reddust;")
	assert.Contains(t, GenerateProject(p), ";color=#abcdef}")
}

func TestParseRoundTrip(t *testing.T) {
	s := state.New()
	s.SetSkillID("Trail")
	s.AddPoint(drawing.NewParticle(geom.V(1, 0.5, 2), "flame", "#ff0000"))
	s.AddGroup(drawing.NewGroup(drawing.TypeCircle, document.ParticleTypeReddust, "#00ff00",
		drawing.NewParticle(geom.V(0, 1, -1), "", ""),
		drawing.NewParticle(geom.V(-2.5, 0, 0.125), "", "")))

	text := Generate(s.GetState())
	sk, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Trail", sk.ID)
	require.Len(t, sk.Particles, 3)

	assert.Equal(t, 1.0, sk.Particles[0].X)
	assert.Equal(t, 0.5, sk.Particles[0].Y)
	assert.Equal(t, 2.0, sk.Particles[0].Z)
	assert.Equal(t, "flame", sk.Particles[0].ParticleType)
	assert.Empty(t, sk.Particles[0].Color)

	assert.Equal(t, 0.0, sk.Particles[1].X)
	assert.Equal(t, "#00ff00", sk.Particles[1].Color)
	assert.Equal(t, -2.5, sk.Particles[2].X)

	// Regenerating from the imported project gives the same effect lines.
	again := GenerateProject(sk.Project("imported"))
	assert.Equal(t, text, again)
}

func TestParseSkipsOtherMechanics(t *testing.T) {
	text := `Boom:
  Skills:
    - sound{s=entity.generic.explode} @self
    - effect:particles{particle=flame;amount=1;speed=0;y=1.000;forwardOffset=0.000;sideOffset=0.000} @self
`
	sk, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 1, sk.Skipped)
	require.Len(t, sk.Particles, 1)
	assert.Equal(t, 1.0, sk.Particles[0].Y)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		text string
		want error
	}{
		"syntax":       {text: "a: [1, 2", want: ErrInvalid},
		"empty":        {text: "", want: ErrInvalid},
		"no skills":    {text: "A:\n  Other: 1\n", want: ErrInvalid},
		"not a list":   {text: "A:\n  Skills: nope\n", want: ErrInvalid},
		"bad number":   {text: "A:\n  Skills:\n    - effect:particles{particle=flame;y=abc} @self\n", want: ErrInvalid},
		"no particle":  {text: "A:\n  Skills:\n    - effect:particles{y=1} @self\n", want: ErrInvalid},
		"only sounds":  {text: "A:\n  Skills:\n    - sound{s=x} @self\n", want: ErrNoEffects},
		"scalar root":  {text: "hello", want: ErrInvalid},
		"unterminated": {text: "A:\n  Skills:\n    - effect:particles{particle=flame\n", want: ErrInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(tc.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}
