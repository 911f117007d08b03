package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
)

func flame(x, y, z float64) drawing.Particle {
	return drawing.NewParticle(geom.V(x, y, z), "flame", "#ff0000")
}

func reddust(x, y, z float64, color string) drawing.Particle {
	return drawing.NewParticle(geom.V(x, y, z), document.ParticleTypeReddust, color)
}

func TestNewStoreDefaults(t *testing.T) {
	st := New().GetState()
	assert.Equal(t, ToolCamera, st.Tool)
	assert.Equal(t, EraserPoint, st.EraserMode)
	assert.Equal(t, FillFilled, st.FillMode)
	assert.Equal(t, document.DefaultParticleType, st.ParticleType)
	assert.Equal(t, document.DefaultColor, st.ParticleColor)
	assert.Equal(t, document.DefaultSkillID, st.SkillID)
	assert.Equal(t, document.DefaultGridSize, st.GridSize)
	assert.False(t, st.HasUnsavedChanges)
	assert.Empty(t, st.Groups)
	assert.Empty(t, st.Particles)
}

func TestSubscribersNotifiedInOrder(t *testing.T) {
	s := New()
	var calls []string
	s.Subscribe(func(State) { calls = append(calls, "first") })
	id := s.Subscribe(func(State) { calls = append(calls, "second") })
	s.Subscribe(func(State) { calls = append(calls, "third") })

	s.AddPoint(flame(0, 0, 0))
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	calls = nil
	s.Unsubscribe(id)
	s.ClearPoints()
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestListenerSeesAppliedChange(t *testing.T) {
	s := New()
	var seen State
	s.Subscribe(func(st State) { seen = st })

	g := drawing.NewGroup(drawing.TypeBrush, "", "", flame(1, 0, 1))
	s.AddGroup(g)
	require.Len(t, seen.Groups, 1)
	assert.Same(t, g, seen.Groups[0])
	assert.True(t, seen.HasUnsavedChanges)
}

func TestUnsubscribeDuringNotify(t *testing.T) {
	s := New()
	var id SubscriptionID
	n := 0
	id = s.Subscribe(func(State) { s.Unsubscribe(id) })
	s.Subscribe(func(State) { n++ })
	s.AddPoint(flame(0, 0, 0))
	s.AddPoint(flame(1, 0, 0))
	assert.Equal(t, 2, n)
}

func TestUndoPrefersGroups(t *testing.T) {
	s := New()
	s.AddPoint(flame(0, 0, 0))
	g := drawing.NewGroup(drawing.TypePoint, "", "", flame(1, 1, 1))
	s.AddGroup(g)

	undone, ok := s.UndoLastPoint()
	require.True(t, ok)
	assert.Same(t, g, undone.Group)
	assert.Nil(t, undone.Particle)
	assert.Len(t, s.GetState().Particles, 1)

	undone, ok = s.UndoLastPoint()
	require.True(t, ok)
	require.NotNil(t, undone.Particle)
	assert.Empty(t, s.GetState().Particles)

	_, ok = s.UndoLastPoint()
	assert.False(t, ok)
}

func TestUndoDropsSelection(t *testing.T) {
	s := New()
	g := drawing.NewGroup(drawing.TypePoint, "", "", flame(1, 1, 1))
	s.AddGroup(g)
	s.SetSelectedGroup(g.ID)
	s.UndoLastPoint()
	assert.Empty(t, s.GetState().Selection)
}

func TestRemoveGroupClearsSelection(t *testing.T) {
	s := New()
	a := drawing.NewGroup(drawing.TypePoint, "", "", flame(0, 0, 0))
	b := drawing.NewGroup(drawing.TypePoint, "", "", flame(1, 0, 0))
	s.AddGroup(a)
	s.AddGroup(b)
	s.SetSelection([]string{a.ID, b.ID})

	s.RemoveGroup(a.ID)
	st := s.GetState()
	assert.Equal(t, []string{b.ID}, st.Selection)
	require.Len(t, st.Groups, 1)
	assert.Equal(t, b.ID, st.Groups[0].ID)
}

func TestRemoveGroupsSingleNotification(t *testing.T) {
	s := New()
	a := drawing.NewGroup(drawing.TypePoint, "", "", flame(0, 0, 0))
	b := drawing.NewGroup(drawing.TypePoint, "", "", flame(1, 0, 0))
	s.AddGroup(a)
	s.AddGroup(b)

	n := 0
	s.Subscribe(func(State) { n++ })
	s.RemoveGroups([]string{a.ID, b.ID, "grp_missing"})
	assert.Equal(t, 1, n)
	assert.Empty(t, s.GetState().Groups)
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	s := New()
	n := 0
	s.Subscribe(func(State) { n++ })

	s.RemoveGroup("grp_missing")
	s.UpdateGroup("grp_missing", Reposition{Center: geom.V(1, 1, 1)})
	s.RemovePoints([]string{"pt_missing"})
	assert.Zero(t, n)
	assert.False(t, s.GetState().HasUnsavedChanges)
}

func TestSelectionIgnoresUnknownGroups(t *testing.T) {
	s := New()
	g := drawing.NewGroup(drawing.TypePoint, "", "", flame(0, 0, 0))
	s.AddGroup(g)

	s.SetSelectedGroup(g.ID)
	assert.Equal(t, []string{g.ID}, s.GetState().Selection)
	s.SetSelectedGroup("grp_missing")
	assert.Empty(t, s.GetState().Selection)

	s.SetSelection([]string{"grp_missing", g.ID, g.ID})
	assert.Equal(t, []string{g.ID}, s.GetState().Selection)
}

func TestLoadedGroupScalesAboutRealCentroid(t *testing.T) {
	stale := geom.V(5, 0, 0)
	doc := document.NewEmptyProject("stale")
	doc.Groups = []document.GroupRecord{{
		ID:        "grp_stale",
		Type:      string(drawing.TypeBrush),
		Particles: []document.ParticleRecord{{ID: "pt_a", X: 0}, {ID: "pt_b", X: 2}},
		Position:  &stale,
	}}

	s := New()
	s.LoadProject(doc)
	require.Len(t, s.GetState().Groups, 1)
	assert.Equal(t, geom.V(1, 0, 0), s.GetState().Groups[0].Position)

	s.UpdateGroup("grp_stale", ScaleBy{X: 2, Y: 1, Z: 1})
	g := s.GetState().Groups[0]
	assert.Equal(t, []geom.Vec{geom.V(-1, 0, 0), geom.V(3, 0, 0)}, g.Points())
	assert.Equal(t, geom.V(1, 0, 0), g.Position)
	assert.True(t, geom.ComputeCentroid(g.Points()).ApproxEqual(g.Position, 1e-9))
}

func TestUpdateGroupReplacesPointer(t *testing.T) {
	s := New()
	g := drawing.NewGroup(drawing.TypeBrush, "", "", flame(0, 0, 0), flame(2, 0, 0))
	s.AddGroup(g)
	before := s.GetState()

	s.UpdateGroup(g.ID, Reposition{Center: geom.V(5, 1, 5)})

	after := s.GetState()
	assert.NotSame(t, before.Groups[0], after.Groups[0])
	assert.Equal(t, geom.V(1, 0, 0), before.Groups[0].Position)
	assert.Equal(t, geom.V(5, 1, 5), after.Groups[0].Position)
	assert.True(t, geom.ComputeCentroid(after.Groups[0].Points()).ApproxEqual(geom.V(5, 1, 5), 1e-9))
}

func TestUpdateGroupVariants(t *testing.T) {
	s := New()
	g := drawing.NewGroup(drawing.TypeRectangle, "flame", "#ff0000", flame(-1, 0, -1), flame(1, 0, 1))
	s.AddGroup(g)

	s.UpdateGroup(g.ID, ScaleBy{X: 2, Y: 1, Z: 2})
	got := s.GetState().Group(g.ID)
	assert.True(t, got.Bounds.ApproxEqual(geom.Box{Min: geom.V(-2, 0, -2), Max: geom.V(2, 0, 2)}, 1e-9))

	s.UpdateGroup(g.ID, ReplaceParticles{Particles: []drawing.Particle{flame(4, 4, 4)}})
	got = s.GetState().Group(g.ID)
	assert.Len(t, got.Particles, 1)
	assert.Equal(t, geom.V(4, 4, 4), got.Position)
	assert.Equal(t, geom.Box{Min: geom.V(4, 4, 4), Max: geom.V(4, 4, 4)}, got.Bounds)

	s.UpdateGroup(g.ID, SetStyle{Color: "#00ff00"})
	got = s.GetState().Group(g.ID)
	assert.Equal(t, "#00ff00", got.Color)
	assert.Equal(t, "flame", got.ParticleType)
}

func TestUsedColorsSortedAndUnique(t *testing.T) {
	s := New()
	s.AddPoint(reddust(0, 0, 0, "#00ff00"))
	s.AddPoint(reddust(1, 0, 0, "#00ff00"))
	s.AddPoint(flame(2, 0, 0))
	s.AddGroup(drawing.NewGroup(drawing.TypeBrush, document.ParticleTypeReddust, "#0000ff",
		reddust(0, 1, 0, "#aa0000"), drawing.NewParticle(geom.V(0, 2, 0), "", "")))

	assert.Equal(t, []string{"#0000ff", "#00ff00", "#aa0000"}, s.GetUsedColors())
}

func TestDirtyFlagSemantics(t *testing.T) {
	s := New()
	g := drawing.NewGroup(drawing.TypePoint, "", "", flame(0, 0, 0))
	s.LoadProject(&document.Project{Name: "p", Groups: []document.GroupRecord{g.Record()}})
	require.False(t, s.GetState().HasUnsavedChanges)

	s.SetMode(ToolSelect)
	s.SetSelectedGroup(g.ID)
	s.SetDrawing(true)
	s.SetDrawing(false)
	assert.False(t, s.GetState().HasUnsavedChanges)

	s.SetDrawingHeight(2)
	assert.True(t, s.GetState().HasUnsavedChanges)

	s.MarkSaved()
	assert.False(t, s.GetState().HasUnsavedChanges)

	s.SetParticleSettings(document.ParticleTypeReddust, "#123456")
	assert.True(t, s.GetState().HasUnsavedChanges)
}

func TestSetModeRejectsUnknownTool(t *testing.T) {
	s := New()
	s.SetMode(Tool("lasso"))
	assert.Equal(t, ToolCamera, s.GetState().Tool)
}

func TestSetLastPointPositionDoesNotNotify(t *testing.T) {
	s := New()
	n := 0
	s.Subscribe(func(State) { n++ })
	p := geom.V(1, 2, 3)
	s.SetLastPointPosition(&p)
	p.X = 99

	assert.Zero(t, n)
	require.NotNil(t, s.GetState().LastPointPosition)
	assert.Equal(t, geom.V(1, 2, 3), *s.GetState().LastPointPosition)
}

func TestLoadProjectResetsTransientState(t *testing.T) {
	s := New()
	g := drawing.NewGroup(drawing.TypePoint, "", "", flame(0, 0, 0))
	s.AddGroup(g)
	s.SetSelectedGroup(g.ID)
	s.SetDrawing(true)
	p := geom.V(0, 0, 0)
	s.SetLastPointPosition(&p)

	n := 0
	s.Subscribe(func(State) { n++ })
	s.LoadProject(document.NewSampleProject())

	st := s.GetState()
	assert.Equal(t, 1, n)
	assert.Empty(t, st.Selection)
	assert.False(t, st.IsDrawing)
	assert.Nil(t, st.LastPointPosition)
	assert.False(t, st.HasUnsavedChanges)
	assert.Equal(t, "SampleSkill", st.SkillID)
	assert.NotEmpty(t, st.Groups)
}

func TestProjectRoundTrip(t *testing.T) {
	s := New()
	s.SetProjectName("round trip")
	s.SetPlaneRotation(geom.Rotation{X: 10, Y: 20, Z: 30})
	s.AddPoint(flame(1, 2, 3))
	s.AddGroup(drawing.NewGroup(drawing.TypeCircle, "reddust", "#00ff00", reddust(0, 1, 0, "#00ff00")))

	doc := s.GetState().Project()
	raw, err := doc.Marshal()
	require.NoError(t, err)
	parsed, err := document.Parse(raw)
	require.NoError(t, err)

	other := New()
	other.LoadProject(parsed)
	a, b := s.GetState(), other.GetState()
	assert.Equal(t, a.ProjectName, b.ProjectName)
	assert.Equal(t, a.PlaneRotation, b.PlaneRotation)
	assert.Equal(t, a.Particles, b.Particles)
	require.Len(t, b.Groups, 1)
	assert.Equal(t, a.Groups[0], b.Groups[0])
}

func TestGetStateIsIsolated(t *testing.T) {
	s := New()
	s.AddPoint(flame(0, 0, 0))
	snap := s.GetState()
	snap.Particles[0].X = 42
	snap.Particles = append(snap.Particles, flame(1, 1, 1))
	assert.Len(t, s.GetState().Particles, 1)
	assert.Zero(t, s.GetState().Particles[0].X)
}
