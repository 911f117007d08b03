package state

import (
	"sort"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
)

// Tool is the active pointer tool. Exactly one is active at a time.
type Tool string

const (
	ToolCamera    Tool = "camera"
	ToolSelect    Tool = "select"
	ToolPoint     Tool = "point"
	ToolBrush     Tool = "brush"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
)

// Tools lists every tool in toolbar order.
var Tools = []Tool{ToolCamera, ToolSelect, ToolPoint, ToolBrush, ToolEraser, ToolRectangle, ToolCircle}

func (t Tool) Valid() bool {
	switch t {
	case ToolCamera, ToolSelect, ToolPoint, ToolBrush, ToolEraser, ToolRectangle, ToolCircle:
		return true
	}
	return false
}

// EraserMode selects whether the eraser removes single particles or whole groups.
type EraserMode string

const (
	EraserPoint EraserMode = "point"
	EraserGroup EraserMode = "group"
)

func (m EraserMode) Valid() bool { return m == EraserPoint || m == EraserGroup }

// FillMode selects interior or boundary sampling for shape tools.
type FillMode string

const (
	FillFilled  FillMode = "filled"
	FillOutline FillMode = "outline"
)

func (m FillMode) Valid() bool { return m == FillFilled || m == FillOutline }

// State is a snapshot of the application state. Snapshots share group pointers with the
// store; groups are replaced, never mutated, once published, so a snapshot stays valid
// after later mutations.
type State struct {
	Particles []drawing.Particle
	Groups    []*drawing.Group

	Tool       Tool
	EraserMode EraserMode
	FillMode   FillMode

	DrawingHeight     float64
	PlaneRotation     geom.Rotation
	PlaneOffset       geom.PlanarOffset
	CameraSensitivity float64
	GridSize          int

	ParticleType  string
	ParticleColor string

	// Selection holds the selected group ids; the first entry is the primary selection.
	Selection []string

	ProjectName       string
	SkillID           string
	CreatedAt         string
	HasUnsavedChanges bool

	IsDrawing         bool
	LastPointPosition *geom.Vec
}

// Plane returns the configured drawing plane, bounded by the grid.
func (s State) Plane() geom.DrawingPlane {
	return geom.DrawingPlane{
		Height:   s.DrawingHeight,
		Rotation: s.PlaneRotation,
		Offset:   s.PlaneOffset,
		Size:     float64(s.GridSize),
	}
}

// SelectedGroup returns the primary selected group id, or "".
func (s State) SelectedGroup() string {
	if len(s.Selection) == 0 {
		return ""
	}
	return s.Selection[0]
}

func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selection {
		if sel == id {
			return true
		}
	}
	return false
}

// Group looks up a group by id.
func (s State) Group(id string) *drawing.Group {
	for _, g := range s.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// UsedColors returns the sorted, de-duplicated colors of every reddust particle plus each
// group's own default color.
func (s State) UsedColors() []string {
	seen := make(map[string]struct{})
	for _, p := range s.Particles {
		if p.ParticleType == document.ParticleTypeReddust && p.Color != "" {
			seen[p.Color] = struct{}{}
		}
	}
	for _, g := range s.Groups {
		for _, p := range g.Particles {
			if g.ParticleTypeOf(p) == document.ParticleTypeReddust {
				if c := g.ColorOf(p); c != "" {
					seen[c] = struct{}{}
				}
			}
		}
		if g.Color != "" {
			seen[g.Color] = struct{}{}
		}
	}

	colors := make([]string, 0, len(seen))
	for c := range seen {
		colors = append(colors, c)
	}
	sort.Strings(colors)
	return colors
}

// Project serializes the snapshot into a project file.
func (s State) Project() *document.Project {
	p := &document.Project{
		Name:      s.ProjectName,
		CreatedAt: s.CreatedAt,
		Version:   document.FormatVersion,
		Particles: make([]document.ParticleRecord, len(s.Particles)),
		Groups:    make([]document.GroupRecord, len(s.Groups)),
		Settings: document.Settings{
			DrawingHeight:     s.DrawingHeight,
			PlaneRotation:     s.PlaneRotation,
			PlaneOffset:       s.PlaneOffset,
			ParticleType:      s.ParticleType,
			ParticleColor:     s.ParticleColor,
			CameraSensitivity: s.CameraSensitivity,
			SkillID:           s.SkillID,
			GridSize:          s.GridSize,
		},
	}
	for i, pt := range s.Particles {
		p.Particles[i] = drawing.ParticleRecordOf(pt)
	}
	for i, g := range s.Groups {
		p.Groups[i] = g.Record()
	}
	return p
}
