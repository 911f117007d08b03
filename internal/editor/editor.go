// Package editor wires one drawing session together: the state store, the scene
// reconciler, the headless renderer and the interaction controller. It applies protocol
// messages synchronously and is shared by the websocket session and the wasm bridge.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/interact"
	"github.com/mythic3d/particle-drawer/internal/render"
	"github.com/mythic3d/particle-drawer/internal/scene"
	"github.com/mythic3d/particle-drawer/internal/skill"
	"github.com/mythic3d/particle-drawer/internal/state"
)

var (
	ErrBadPayload  = errors.New("bad payload")
	ErrUnknownType = errors.New("unknown message type")
)

// Editor is not safe for concurrent use.
type Editor struct {
	store *state.Store
	view  *render.Scene
	scene *scene.Reconciler
	ctl   *interact.Controller
}

// New creates an editor with an empty project and a width x height viewport.
func New(width, height float64) *Editor {
	store := state.New()
	view := render.NewScene(width, height)
	rc := scene.New(view)
	rc.Attach(store)
	store.Subscribe(func(st state.State) { view.SetSensitivity(st.CameraSensitivity) })
	return &Editor{
		store: store,
		view:  view,
		scene: rc,
		ctl:   interact.New(store, rc, view),
	}
}

// Store exposes the state store so callers can subscribe (autosave) or read state.
func (e *Editor) Store() *state.Store { return e.store }

// Load replaces the project, abandoning any gesture in progress.
func (e *Editor) Load(p *document.Project) {
	e.ctl.Cancel()
	e.store.LoadProject(p)
}

// Project returns the current project file.
func (e *Editor) Project() *document.Project {
	return e.store.GetState().Project()
}

// Close releases every scene resource.
func (e *Editor) Close() {
	e.ctl.Cancel()
	e.scene.Dispose()
}

func decode(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s needs a payload", ErrBadPayload, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, msg.Type, err)
	}
	return nil
}

// Apply handles one inbound message. The reply, when non-nil, is meant for the sender
// only. Invalid input returns an error and leaves the state untouched.
func (e *Editor) Apply(msg *Message) (*Message, error) {
	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var ev interact.PointerEvent
		if err := decode(msg, &ev); err != nil {
			return nil, err
		}
		switch msg.Type {
		case TypePointerDown:
			e.ctl.PointerDown(ev)
		case TypePointerMove:
			e.ctl.PointerMove(ev)
		default:
			e.ctl.PointerUp(ev)
		}

	case TypeToolSet:
		var p ToolPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if !p.Tool.Valid() {
			return nil, fmt.Errorf("%w: unknown tool %q", ErrBadPayload, p.Tool)
		}
		e.ctl.Cancel()
		e.store.SetMode(p.Tool)

	case TypeEraserSet:
		var p EraserPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if !p.Mode.Valid() {
			return nil, fmt.Errorf("%w: unknown eraser mode %q", ErrBadPayload, p.Mode)
		}
		e.store.SetEraserMode(p.Mode)

	case TypeFillSet:
		var p FillPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if !p.Mode.Valid() {
			return nil, fmt.Errorf("%w: unknown fill mode %q", ErrBadPayload, p.Mode)
		}
		e.store.SetShapeFillMode(p.Mode)

	case TypePlaneSet:
		var p PlanePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if p.GridSize != nil && *p.GridSize <= 0 {
			return nil, fmt.Errorf("%w: grid size must be positive", ErrBadPayload)
		}
		// A plane change mid-gesture would move the surface under the pointer.
		e.ctl.Cancel()
		if p.Height != nil {
			e.store.SetDrawingHeight(*p.Height)
		}
		if p.Rotation != nil {
			e.store.SetPlaneRotation(*p.Rotation)
		}
		if p.Offset != nil {
			e.store.SetPlaneOffset(*p.Offset)
		}
		if p.GridSize != nil {
			e.store.SetGridSize(*p.GridSize)
		}

	case TypeSettingsSet:
		var p SettingsPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if p.CameraSensitivity != nil && *p.CameraSensitivity <= 0 {
			return nil, fmt.Errorf("%w: camera sensitivity must be positive", ErrBadPayload)
		}
		if p.ParticleType != "" || p.ParticleColor != "" {
			st := e.store.GetState()
			particleType, color := st.ParticleType, st.ParticleColor
			if p.ParticleType != "" {
				particleType = p.ParticleType
			}
			if p.ParticleColor != "" {
				color = p.ParticleColor
			}
			e.store.SetParticleSettings(particleType, color)
		}
		if p.CameraSensitivity != nil {
			e.store.SetCameraSensitivity(*p.CameraSensitivity)
		}

	case TypeGroupDelete:
		var p GroupDeletePayload
		if len(msg.Payload) > 0 {
			if err := decode(msg, &p); err != nil {
				return nil, err
			}
		}
		if len(p.IDs) == 0 {
			e.ctl.DeleteSelected()
		} else {
			e.ctl.Cancel()
			e.store.RemoveGroups(p.IDs)
		}

	case TypeGroupScale:
		var p ScalePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if p.X <= 0 || p.Y <= 0 || p.Z <= 0 {
			return nil, fmt.Errorf("%w: scale factors must be positive", ErrBadPayload)
		}
		e.ctl.Cancel()
		e.ctl.ScaleSelected(p.X, p.Y, p.Z)

	case TypeUndo:
		e.ctl.Cancel()
		e.store.UndoLastPoint()

	case TypeClear:
		e.ctl.Cancel()
		e.store.ClearAll()

	case TypeProjectLoad:
		if len(msg.Payload) == 0 {
			return nil, fmt.Errorf("%w: project.load needs a project", ErrBadPayload)
		}
		p, err := document.Parse(msg.Payload)
		if err != nil {
			return nil, err
		}
		e.Load(p)

	case TypeProjectRename:
		var p RenamePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name is empty", ErrBadPayload)
		}
		e.store.SetProjectName(name)

	case TypeSkillSet:
		var p SkillPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		e.store.SetSkillID(strings.TrimSpace(p.SkillID))

	case TypeSkillGenerate:
		st := e.store.GetState()
		id := st.SkillID
		if id == "" {
			id = document.DefaultSkillID
		}
		return NewMessage(TypeSkillText, SkillTextPayload{SkillID: id, Text: skill.Generate(st)})

	case TypeCameraOrbit:
		var p OrbitPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		e.view.Orbit(p.DX, p.DY)

	case TypeCameraZoom:
		var p ZoomPayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		e.view.Zoom(p.Steps)

	case TypeViewportResize:
		var p ResizePayload
		if err := decode(msg, &p); err != nil {
			return nil, err
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("%w: viewport must be non-empty", ErrBadPayload)
		}
		e.ctl.Cancel()
		e.view.Resize(p.Width, p.Height)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type)
	}
	return nil, nil
}

// Frame renders the current scene.
func (e *Editor) Frame() FramePayload {
	st := e.store.GetState()
	return FramePayload{
		Commands: e.view.Compile(st.Plane()),
		State:    summarize(st),
	}
}

func summarize(st state.State) Summary {
	selection := st.Selection
	if selection == nil {
		selection = []string{}
	}
	return Summary{
		Tool:              st.Tool,
		EraserMode:        st.EraserMode,
		FillMode:          st.FillMode,
		DrawingHeight:     st.DrawingHeight,
		PlaneRotation:     st.PlaneRotation,
		PlaneOffset:       st.PlaneOffset,
		GridSize:          st.GridSize,
		CameraSensitivity: st.CameraSensitivity,
		ParticleType:      st.ParticleType,
		ParticleColor:     st.ParticleColor,
		ProjectName:       st.ProjectName,
		SkillID:           st.SkillID,
		ParticleCount:     len(st.Particles),
		GroupCount:        len(st.Groups),
		Selection:         selection,
		UsedColors:        st.UsedColors(),
		HasUnsavedChanges: st.HasUnsavedChanges,
		IsDrawing:         st.IsDrawing,
	}
}

// ErrorCode maps an Apply error onto a protocol error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, document.ErrMalformed):
		return CodeMalformed
	case errors.Is(err, ErrUnknownType):
		return CodeUnknownType
	default:
		return CodeBadRequest
	}
}
