package editor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/interact"
	"github.com/mythic3d/particle-drawer/internal/state"
)

func msg(t *testing.T, typ string, payload any) *Message {
	t.Helper()
	m, err := NewMessage(typ, payload)
	require.NoError(t, err)
	return m
}

func apply(t *testing.T, e *Editor, typ string, payload any) *Message {
	t.Helper()
	reply, err := e.Apply(msg(t, typ, payload))
	require.NoError(t, err)
	return reply
}

func click(t *testing.T, e *Editor, world geom.Vec) {
	t.Helper()
	x, y, ok := e.view.ProjectToScreen(world)
	require.True(t, ok)
	ev := interact.PointerEvent{X: x, Y: y}
	apply(t, e, TypePointerDown, ev)
	apply(t, e, TypePointerUp, ev)
}

func TestPointToolOverMessages(t *testing.T) {
	e := New(1280, 720)
	apply(t, e, TypeToolSet, ToolPayload{Tool: state.ToolPoint})
	click(t, e, geom.V(1, 0, 2))
	click(t, e, geom.V(-2, 0, 1))

	st := e.Store().GetState()
	require.Len(t, st.Groups, 2)
	assert.True(t, st.Groups[0].Position.ApproxEqual(geom.V(1, 0, 2), 1e-6))

	f := e.Frame()
	assert.Equal(t, 2, f.State.GroupCount)
	assert.True(t, f.State.HasUnsavedChanges)
	circles := 0
	for _, c := range f.Commands {
		if c.Op == "circle" {
			circles++
		}
	}
	assert.Equal(t, 2, circles)

	apply(t, e, TypeUndo, nil)
	assert.Len(t, e.Store().GetState().Groups, 1)
	apply(t, e, TypeClear, nil)
	assert.Empty(t, e.Store().GetState().Groups)
}

func TestRejectsInvalidInput(t *testing.T) {
	e := New(800, 600)
	cases := []*Message{
		msg(t, TypeToolSet, ToolPayload{Tool: "lasso"}),
		msg(t, TypeEraserSet, EraserPayload{Mode: "all"}),
		msg(t, TypeFillSet, FillPayload{Mode: "hatched"}),
		msg(t, TypeGroupScale, ScalePayload{X: 0, Y: 1, Z: 1}),
		msg(t, TypeViewportResize, ResizePayload{Width: 0, Height: 10}),
		msg(t, TypeProjectRename, RenamePayload{Name: "   "}),
		{Type: TypePointerDown},
		{Type: TypeToolSet, Payload: json.RawMessage(`{"tool":`)},
	}
	for _, m := range cases {
		_, err := e.Apply(m)
		assert.ErrorIs(t, err, ErrBadPayload, m.Type)
		assert.Equal(t, CodeBadRequest, ErrorCode(err))
	}
	_, err := e.Apply(&Message{Type: "teleport"})
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, CodeUnknownType, ErrorCode(err))

	assert.False(t, e.Store().GetState().HasUnsavedChanges)
}

func TestProjectLoadMalformedLeavesState(t *testing.T) {
	e := New(800, 600)
	e.Load(document.NewSampleProject())
	before := e.Store().GetState()

	_, err := e.Apply(&Message{Type: TypeProjectLoad, Payload: json.RawMessage(`{"name":`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrMalformed)
	assert.Equal(t, CodeMalformed, ErrorCode(err))

	after := e.Store().GetState()
	assert.Equal(t, len(before.Groups), len(after.Groups))
	assert.Equal(t, before.ProjectName, after.ProjectName)
}

func TestProjectLoadAndSkill(t *testing.T) {
	e := New(800, 600)
	p := document.NewEmptyProject("Loaded")
	p.Settings.SkillID = "Halo"
	p.Particles = []document.ParticleRecord{{X: 1, Y: 2, Z: 3, ParticleType: "flame"}}
	data, err := p.Marshal()
	require.NoError(t, err)

	_, err = e.Apply(&Message{Type: TypeProjectLoad, Payload: data})
	require.NoError(t, err)
	st := e.Store().GetState()
	assert.Equal(t, "Loaded", st.ProjectName)
	assert.False(t, st.HasUnsavedChanges)

	reply := apply(t, e, TypeSkillGenerate, nil)
	require.NotNil(t, reply)
	assert.Equal(t, TypeSkillText, reply.Type)
	var text SkillTextPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &text))
	assert.Equal(t, "Halo", text.SkillID)
	assert.True(t, strings.HasPrefix(text.Text, "Halo:\n  Skills:\n"))
	assert.Contains(t, text.Text, "y=2.000;forwardOffset=3.000;sideOffset=-1.000")
}

func TestSettingsAndPlane(t *testing.T) {
	e := New(800, 600)
	apply(t, e, TypeSettingsSet, SettingsPayload{ParticleColor: "#00ff00"})
	st := e.Store().GetState()
	assert.Equal(t, document.DefaultParticleType, st.ParticleType)
	assert.Equal(t, "#00ff00", st.ParticleColor)

	sens := 2.5
	apply(t, e, TypeSettingsSet, SettingsPayload{CameraSensitivity: &sens})
	assert.Equal(t, 2.5, e.view.Camera.Sensitivity)

	h, grid := 1.5, 20
	apply(t, e, TypePlaneSet, PlanePayload{Height: &h, GridSize: &grid, Rotation: &geom.Rotation{X: 90}})
	st = e.Store().GetState()
	assert.Equal(t, 1.5, st.DrawingHeight)
	assert.Equal(t, 20, st.GridSize)
	assert.Equal(t, 90.0, st.PlaneRotation.X)
	assert.Equal(t, 20, e.Frame().State.GridSize)

	bad := 0
	_, err := e.Apply(msg(t, TypePlaneSet, PlanePayload{GridSize: &bad}))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestScaleAndDeleteSelection(t *testing.T) {
	e := New(800, 600)
	e.Load(document.NewSampleProject())
	st := e.Store().GetState()
	require.NotEmpty(t, st.Groups)
	g := st.Groups[0]
	e.Store().SetSelectedGroup(g.ID)

	apply(t, e, TypeGroupScale, ScalePayload{X: 2, Y: 2, Z: 2})
	scaled := e.Store().GetState().Group(g.ID)
	require.NotNil(t, scaled)
	assert.InDelta(t, 2*g.Bounds.Size().X, scaled.Bounds.Size().X, 1e-9)
	assert.True(t, scaled.Position.ApproxEqual(g.Position, 1e-9))

	apply(t, e, TypeGroupDelete, nil)
	assert.Nil(t, e.Store().GetState().Group(g.ID))
	assert.Empty(t, e.Frame().State.Selection)

	rest := e.Store().GetState().Groups
	ids := make([]string, len(rest))
	for i, grp := range rest {
		ids[i] = grp.ID
	}
	apply(t, e, TypeGroupDelete, GroupDeletePayload{IDs: ids})
	assert.Empty(t, e.Store().GetState().Groups)
}

func TestCameraMessages(t *testing.T) {
	e := New(800, 600)
	eye := e.view.Camera.Eye
	apply(t, e, TypeCameraOrbit, OrbitPayload{DX: 40})
	assert.False(t, e.view.Camera.Eye.ApproxEqual(eye))
	d := e.view.Camera.Eye.Len()
	apply(t, e, TypeCameraZoom, ZoomPayload{Steps: 2})
	assert.Less(t, e.view.Camera.Eye.Len(), d)
	apply(t, e, TypeViewportResize, ResizePayload{Width: 400, Height: 300})
	assert.Equal(t, 400.0, e.view.Camera.Width)
}

func TestRenameTrimsName(t *testing.T) {
	e := New(800, 600)
	apply(t, e, TypeProjectRename, RenamePayload{Name: "  Ring  "})
	assert.Equal(t, "Ring", e.Store().GetState().ProjectName)
	apply(t, e, TypeSkillSet, SkillPayload{SkillID: " Ring "})
	assert.Equal(t, "Ring", e.Frame().State.SkillID)
}
