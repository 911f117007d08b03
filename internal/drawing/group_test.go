package drawing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

const tol = 1e-9

func particleAt(x, y, z float64) Particle {
	return NewParticle(geom.V(x, y, z), "flame", "#ff0000")
}

func TestNewGroupDerivesBoundsAndCentroid(t *testing.T) {
	g := NewGroup(TypeBrush, "", "", particleAt(0, 0, 0), particleAt(2, 2, 2))
	require.NoError(t, typeid.Validate(g.ID, typeid.PrefixGroup))
	assert.Equal(t, geom.V(0, 0, 0), g.Bounds.Min)
	assert.Equal(t, geom.V(2, 2, 2), g.Bounds.Max)
	assert.Equal(t, geom.V(1, 1, 1), g.Position)
	assert.Equal(t, document.DefaultParticleType, g.ParticleType)
	assert.Equal(t, document.DefaultColor, g.Color)
	assert.NotZero(t, g.CreatedAt)
}

func TestEmptyGroupHasZeroBox(t *testing.T) {
	g := NewGroup(TypePoint, "flame", "#fff")
	assert.Equal(t, geom.Box{}, g.Bounds)
	assert.Equal(t, geom.Vec{}, g.Position)
	assert.NotNil(t, g.Particles)
}

func TestAddParticleRecomputes(t *testing.T) {
	g := NewGroup(TypeBrush, "flame", "#fff", particleAt(0, 0, 0))
	g.AddParticle(particleAt(4, 0, -2))
	assert.Equal(t, geom.V(4, 0, 0), g.Bounds.Max)
	assert.Equal(t, geom.V(0, 0, -2), g.Bounds.Min)
	assert.Equal(t, geom.V(2, 0, -1), g.Position)
}

func TestMoveToLandsCentroid(t *testing.T) {
	g := NewGroup(TypeBrush, "flame", "#fff",
		particleAt(0.1, 0.3, 0.7), particleAt(-1.3, 2.2, 0.9), particleAt(5.5, -0.4, 1.1))

	target := geom.V(10.25, -3.5, 7.125)
	for i := 0; i < 50; i++ {
		g.MoveTo(target.Add(geom.V(float64(i)*0.1, 0, 0)))
	}
	g.MoveTo(target)

	assert.True(t, geom.ComputeCentroid(g.Points()).ApproxEqual(target, 1e-9))
	assert.True(t, g.Bounds.ApproxEqual(geom.ComputeBounds(g.Points()), tol))
	assert.Equal(t, target, g.Position)
}

func TestScaleKeepsCentroid(t *testing.T) {
	g := NewGroup(TypeRectangle, "flame", "#fff", particleAt(-1, 0, -1), particleAt(1, 0, 1))
	g.Scale(2, 1, 3)
	assert.Equal(t, geom.V(0, 0, 0), g.Position)
	assert.True(t, g.Bounds.ApproxEqual(geom.Box{Min: geom.V(-2, 0, -3), Max: geom.V(2, 0, 3)}, tol))
	assert.True(t, geom.ComputeCentroid(g.Points()).ApproxEqual(g.Position, tol))
}

func TestContainsPoint(t *testing.T) {
	g := NewGroup(TypeRectangle, "flame", "#fff", particleAt(0, 0, 0), particleAt(1, 1, 1))
	assert.True(t, g.ContainsPoint(geom.V(1.1, 1, 1), DefaultTolerance))
	assert.True(t, g.ContainsPoint(geom.V(-0.1, 0, 0), DefaultTolerance))
	assert.False(t, g.ContainsPoint(geom.V(1.11, 1, 1), DefaultTolerance))
}

func TestRecordRoundTrip(t *testing.T) {
	g := NewGroup(TypeCircle, "reddust", "#00ff00",
		NewParticle(geom.V(1, 2, 3), "reddust", "#00ff00"),
		NewParticle(geom.V(-1, 0.5, 2), "reddust", "#123456"))
	g.MoveTo(geom.V(0.3, 0.1, 0.7))

	back := FromRecord(g.Record())
	assert.Equal(t, g.Particles, back.Particles)
	assert.True(t, back.Position.ApproxEqual(g.Position, tol))
	assert.True(t, back.Bounds.ApproxEqual(g.Bounds, tol))
	back.Position, back.Bounds = g.Position, g.Bounds
	assert.Equal(t, g, back)
}

func TestFromRecordIgnoresStaleDerivedFields(t *testing.T) {
	stale := geom.V(5, 0, 0)
	g := FromRecord(document.GroupRecord{
		Particles: []document.ParticleRecord{{X: 0}, {X: 2}},
		Bounds:    &geom.Box{Min: geom.V(4, 0, 0), Max: geom.V(6, 0, 0)},
		Position:  &stale,
	})
	assert.Equal(t, geom.V(1, 0, 0), g.Position)
	assert.Equal(t, geom.Box{Min: geom.V(0, 0, 0), Max: geom.V(2, 0, 0)}, g.Bounds)

	g.Scale(2, 1, 1)
	assert.Equal(t, []geom.Vec{geom.V(-1, 0, 0), geom.V(3, 0, 0)}, g.Points())
	assert.True(t, geom.ComputeCentroid(g.Points()).ApproxEqual(g.Position, tol))
}

func TestRecordRoundTripEmpty(t *testing.T) {
	g := NewGroup(TypePoint, "flame", "#ff0000")
	back := FromRecord(g.Record())
	assert.Equal(t, g, back)
}

func TestRecordResolvesParticleDefaults(t *testing.T) {
	g := NewGroup(TypeBrush, "reddust", "#abcdef", NewParticle(geom.V(0, 0, 0), "", ""))
	r := g.Record()
	assert.Equal(t, "reddust", r.Particles[0].ParticleType)
	assert.Equal(t, "#abcdef", r.Particles[0].Color)
}

func TestFromRecordAssignsMissingID(t *testing.T) {
	g := FromRecord(document.GroupRecord{Particles: []document.ParticleRecord{{X: 1}}})
	assert.NotEmpty(t, g.ID)
	assert.NotEmpty(t, g.Particles[0].ID)
	assert.Equal(t, TypeBrush, g.Type)
	assert.Equal(t, geom.V(1, 0, 0), g.Position)
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGroup(TypeBrush, "flame", "#fff", particleAt(0, 0, 0))
	c := g.Clone()
	c.MoveTo(geom.V(5, 5, 5))
	assert.Equal(t, geom.V(0, 0, 0), g.Particles[0].Vec)
}
