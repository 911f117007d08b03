package editor

import (
	"encoding/json"

	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/render"
	"github.com/mythic3d/particle-drawer/internal/state"
)

// Message is the envelope for every client/server message.
type Message struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"projectId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Pointer input, payload interact.PointerEvent
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"

	// Settings
	TypeToolSet     = "tool.set"
	TypeEraserSet   = "eraser.set"
	TypeFillSet     = "fill.set"
	TypePlaneSet    = "plane.set"
	TypeSettingsSet = "settings.set"

	// Edits
	TypeGroupDelete = "group.delete"
	TypeGroupScale  = "group.scale"
	TypeUndo        = "undo"
	TypeClear       = "clear"

	// Project
	TypeProjectLoad   = "project.load"
	TypeProjectRename = "project.rename"
	TypeProjectSave   = "project.save"
	TypeSkillSet      = "skill.set"
	TypeSkillGenerate = "skill.generate"

	// View
	TypeCameraOrbit    = "camera.orbit"
	TypeCameraZoom     = "camera.zoom"
	TypeViewportResize = "viewport.resize"

	// Server to client
	TypeWelcome   = "welcome"
	TypeFrame     = "frame"
	TypeSkillText = "skill.text"
	TypeSaved     = "project.saved"
	TypeError     = "error"
)

type ToolPayload struct {
	Tool state.Tool `json:"tool"`
}

type EraserPayload struct {
	Mode state.EraserMode `json:"mode"`
}

type FillPayload struct {
	Mode state.FillMode `json:"mode"`
}

// PlanePayload changes only the fields that are present.
type PlanePayload struct {
	Height   *float64           `json:"height,omitempty"`
	Rotation *geom.Rotation     `json:"rotation,omitempty"`
	Offset   *geom.PlanarOffset `json:"offset,omitempty"`
	GridSize *int               `json:"gridSize,omitempty"`
}

// SettingsPayload changes only the fields that are present.
type SettingsPayload struct {
	ParticleType      string   `json:"particleType,omitempty"`
	ParticleColor     string   `json:"particleColor,omitempty"`
	CameraSensitivity *float64 `json:"cameraSensitivity,omitempty"`
}

// GroupDeletePayload names groups to delete; empty means the current selection.
type GroupDeletePayload struct {
	IDs []string `json:"ids,omitempty"`
}

type ScalePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type RenamePayload struct {
	Name string `json:"name"`
}

type SkillPayload struct {
	SkillID string `json:"skillId"`
}

type OrbitPayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type ZoomPayload struct {
	Steps float64 `json:"steps"`
}

type ResizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type WelcomePayload struct {
	ClientID  string       `json:"clientId"`
	ProjectID string       `json:"projectId"`
	Tools     []state.Tool `json:"tools"`
}

// FramePayload is everything the client needs to repaint.
type FramePayload struct {
	Commands []render.DrawCommand `json:"commands"`
	State    Summary              `json:"state"`
}

// Summary is the part of the state the toolbar and panels display.
type Summary struct {
	Tool              state.Tool        `json:"tool"`
	EraserMode        state.EraserMode  `json:"eraserMode"`
	FillMode          state.FillMode    `json:"fillMode"`
	DrawingHeight     float64           `json:"drawingHeight"`
	PlaneRotation     geom.Rotation     `json:"planeRotation"`
	PlaneOffset       geom.PlanarOffset `json:"planeOffset"`
	GridSize          int               `json:"gridSize"`
	CameraSensitivity float64           `json:"cameraSensitivity"`
	ParticleType      string            `json:"particleType"`
	ParticleColor     string            `json:"particleColor"`
	ProjectName       string            `json:"projectName"`
	SkillID           string            `json:"skillId"`
	ParticleCount     int               `json:"particleCount"`
	GroupCount        int               `json:"groupCount"`
	Selection         []string          `json:"selection"`
	UsedColors        []string          `json:"usedColors"`
	HasUnsavedChanges bool              `json:"hasUnsavedChanges"`
	IsDrawing         bool              `json:"isDrawing"`
}

type SkillTextPayload struct {
	SkillID string `json:"skillId"`
	Text    string `json:"text"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeBadRequest    = "bad_request"
	CodeUnknownType   = "unknown_type"
	CodeMalformed     = "malformed_project"
	CodeQuotaExceeded = "quota_exceeded"
	CodeSaveFailed    = "save_failed"
)

// NewMessage marshals payload into a message of type typ.
func NewMessage(typ string, payload any) (*Message, error) {
	msg := &Message{Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = data
	}
	return msg, nil
}
