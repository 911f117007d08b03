package skill

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/typeid"
)

var (
	ErrInvalid   = errors.New("invalid skill text")
	ErrNoEffects = errors.New("skill has no particle effects")
)

// Skill is parsed skill text.
type Skill struct {
	ID        string
	Particles []document.ParticleRecord
	// Skipped counts Skills entries that are not particle effects.
	Skipped int
}

// Parse reads skill text produced by Generate. Only the first top-level skill is read.
// Entries other than effect:particles are counted in Skipped and otherwise ignored.
func Parse(text string) (*Skill, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode || len(top.Content) < 2 {
		return nil, fmt.Errorf("%w: expected a skill id mapping", ErrInvalid)
	}

	sk := &Skill{ID: top.Content[0].Value}
	body := top.Content[1]
	var mechanics *yaml.Node
	if body.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(body.Content); i += 2 {
			if body.Content[i].Value == "Skills" {
				mechanics = body.Content[i+1]
				break
			}
		}
	}
	if mechanics == nil || mechanics.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s has no Skills list", ErrInvalid, sk.ID)
	}

	for _, n := range mechanics.Content {
		if n.Kind != yaml.ScalarNode || !strings.HasPrefix(n.Value, effectHead) {
			sk.Skipped++
			continue
		}
		p, err := parseEffect(n.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalid, n.Line, err)
		}
		sk.Particles = append(sk.Particles, p)
	}
	if len(sk.Particles) == 0 {
		return nil, ErrNoEffects
	}
	return sk, nil
}

func parseEffect(s string) (document.ParticleRecord, error) {
	end := strings.LastIndex(s, "}")
	if end < 0 {
		return document.ParticleRecord{}, errors.New("unterminated attribute list")
	}
	attrs := make(map[string]string)
	for _, kv := range strings.Split(s[len(effectHead):end], ";") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	num := func(key string) (float64, error) {
		raw, ok := attrs[key]
		if !ok {
			return 0, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return v, nil
	}
	y, err := num("y")
	if err != nil {
		return document.ParticleRecord{}, err
	}
	z, err := num("forwardOffset")
	if err != nil {
		return document.ParticleRecord{}, err
	}
	side, err := num("sideOffset")
	if err != nil {
		return document.ParticleRecord{}, err
	}

	particleType := attrs["particle"]
	if particleType == "" {
		return document.ParticleRecord{}, errors.New("missing particle attribute")
	}
	x := -side
	if x == 0 {
		x = 0
	}
	return document.ParticleRecord{
		ID:           typeid.NewParticleID(),
		X:            x,
		Y:            y,
		Z:            z,
		ParticleType: particleType,
		Color:        attrs["color"],
	}, nil
}

// Project wraps the parsed particles in a new project file.
func (sk *Skill) Project(name string) *document.Project {
	p := document.NewEmptyProject(name)
	p.Settings.SkillID = sk.ID
	p.Particles = append(p.Particles, sk.Particles...)
	p.Normalize()
	return p
}
