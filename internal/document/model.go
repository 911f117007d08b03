package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

const (
	FormatVersion = "1.0"
	FileExtension = ".mythic3d"

	DefaultProjectName       = "Untitled"
	DefaultParticleType      = "flame"
	DefaultColor             = "#ff0000"
	DefaultSkillID           = "MyDrawingSkill"
	DefaultGridSize          = 10
	DefaultCameraSensitivity = 1.0

	// ParticleTypeReddust is the only particle type whose color is meaningful.
	ParticleTypeReddust = "reddust"
)

// ErrMalformed is returned when a project file cannot be parsed at all.
var ErrMalformed = errors.New("malformed project file")

// Project is the persisted project file (.mythic3d).
type Project struct {
	Name      string           `json:"name"`
	CreatedAt string           `json:"createdAt"`
	Version   string           `json:"version"`
	Particles []ParticleRecord `json:"particles"`
	Groups    []GroupRecord    `json:"groups"`
	Settings  Settings         `json:"settings"`
}

type ParticleRecord struct {
	ID           string  `json:"id,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	ParticleType string  `json:"particleType,omitempty"`
	Color        string  `json:"color,omitempty"`
}

type GroupRecord struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"`
	Particles    []ParticleRecord `json:"particles"`
	ParticleType string           `json:"particleType,omitempty"`
	Color        string           `json:"color,omitempty"`
	Bounds       *geom.Box        `json:"bounds,omitempty"`
	Position     *geom.Vec        `json:"position,omitempty"`
	CreatedAt    int64            `json:"createdAt,omitempty"`
}

type Settings struct {
	DrawingHeight     float64           `json:"drawingHeight"`
	PlaneRotation     geom.Rotation     `json:"planeRotation"`
	PlaneOffset       geom.PlanarOffset `json:"planeOffset"`
	ParticleType      string            `json:"particleType"`
	ParticleColor     string            `json:"particleColor"`
	CameraSensitivity float64           `json:"cameraSensitivity"`
	SkillID           string            `json:"skillId"`
	GridSize          int               `json:"gridSize"`
}

// NewEmptyProject creates a project with default settings and nothing drawn.
func NewEmptyProject(name string) *Project {
	p := &Project{Name: name}
	p.Normalize()
	return p
}

// Parse decodes a project file. Syntax errors yield ErrMalformed; missing fields are
// filled with defaults and never fail.
func Parse(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	p.Normalize()
	return &p, nil
}

// Normalize replaces every missing or zero-valued field with its default and assigns
// ids to records that lack one.
func (p *Project) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		p.Name = DefaultProjectName
	}
	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if p.Version == "" {
		p.Version = FormatVersion
	}

	s := &p.Settings
	if s.ParticleType == "" {
		s.ParticleType = DefaultParticleType
	}
	if s.ParticleColor == "" {
		s.ParticleColor = DefaultColor
	}
	if s.CameraSensitivity <= 0 {
		s.CameraSensitivity = DefaultCameraSensitivity
	}
	if s.SkillID == "" {
		s.SkillID = DefaultSkillID
	}
	if s.GridSize <= 0 {
		s.GridSize = DefaultGridSize
	}

	if p.Particles == nil {
		p.Particles = []ParticleRecord{}
	}
	for i := range p.Particles {
		pr := &p.Particles[i]
		if pr.ID == "" {
			pr.ID = typeid.NewParticleID()
		}
		if pr.ParticleType == "" {
			pr.ParticleType = s.ParticleType
		}
		if pr.Color == "" {
			pr.Color = s.ParticleColor
		}
	}

	if p.Groups == nil {
		p.Groups = []GroupRecord{}
	}
	for i := range p.Groups {
		g := &p.Groups[i]
		if g.ID == "" {
			g.ID = typeid.NewGroupID()
		}
		if g.Type == "" {
			g.Type = "brush"
		}
		if g.Particles == nil {
			g.Particles = []ParticleRecord{}
		}
		for j := range g.Particles {
			if g.Particles[j].ID == "" {
				g.Particles[j].ID = typeid.NewParticleID()
			}
		}
	}
}

// Marshal encodes the project as an indented project file.
func (p *Project) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
