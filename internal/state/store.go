// Package state is the single source of truth for a drawing session.
//
// Every mutator fully applies its change before notifying, and subscribers are called
// synchronously in registration order with a snapshot of the whole state. The scene
// reconciler depends on this ordering. A Store is not safe for concurrent use; the owner
// serializes access.
package state

import (
	"time"

	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
)

// Listener receives a snapshot after each change.
type Listener func(State)

// SubscriptionID identifies a registered listener.
type SubscriptionID uint64

type subscription struct {
	id SubscriptionID
	fn Listener
}

// Store holds the mutable application state.
type Store struct {
	st        State
	listeners []subscription
	nextSubID SubscriptionID
}

// New creates a store with default settings and an empty, clean project.
func New() *Store {
	s := &Store{}
	s.reset(document.NewEmptyProject(""))
	return s
}

// Subscribe registers fn and returns an id for Unsubscribe.
func (s *Store) Subscribe(fn Listener) SubscriptionID {
	s.nextSubID++
	s.listeners = append(s.listeners, subscription{id: s.nextSubID, fn: fn})
	return s.nextSubID
}

func (s *Store) Unsubscribe(id SubscriptionID) {
	for i, sub := range s.listeners {
		if sub.id == id {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) notify() {
	snap := s.GetState()
	subs := append([]subscription(nil), s.listeners...)
	for _, sub := range subs {
		sub.fn(snap)
	}
}

// GetState returns a snapshot.
func (s *Store) GetState() State {
	snap := s.st
	snap.Particles = append([]drawing.Particle{}, s.st.Particles...)
	snap.Groups = append([]*drawing.Group{}, s.st.Groups...)
	snap.Selection = append([]string{}, s.st.Selection...)
	if s.st.LastPointPosition != nil {
		p := *s.st.LastPointPosition
		snap.LastPointPosition = &p
	}
	return snap
}

// GetUsedColors is recomputed on every call.
func (s *Store) GetUsedColors() []string {
	return s.st.UsedColors()
}

// commit marks the project dirty and notifies.
func (s *Store) commit() {
	s.st.HasUnsavedChanges = true
	s.notify()
}

// --- Legacy flat particles ---

func (s *Store) AddPoint(p drawing.Particle) {
	s.st.Particles = append(s.st.Particles, p)
	s.commit()
}

// RemovePoints removes flat particles by id.
func (s *Store) RemovePoints(ids []string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.st.Particles[:0:0]
	for _, p := range s.st.Particles {
		if _, ok := drop[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(s.st.Particles) {
		return
	}
	s.st.Particles = kept
	s.commit()
}

// Undone is what UndoLastPoint removed: exactly one of Group or Particle is set.
type Undone struct {
	Group    *drawing.Group
	Particle *drawing.Particle
}

// UndoLastPoint removes the most recent group if any exist, otherwise the most recent flat
// particle. It reports false when there is nothing to undo.
func (s *Store) UndoLastPoint() (Undone, bool) {
	if n := len(s.st.Groups); n > 0 {
		g := s.st.Groups[n-1]
		s.st.Groups = s.st.Groups[:n-1:n-1]
		s.deselect(g.ID)
		s.commit()
		return Undone{Group: g}, true
	}
	if n := len(s.st.Particles); n > 0 {
		p := s.st.Particles[n-1]
		s.st.Particles = s.st.Particles[:n-1:n-1]
		s.commit()
		return Undone{Particle: &p}, true
	}
	return Undone{}, false
}

// ClearPoints empties the flat particle list.
func (s *Store) ClearPoints() {
	if len(s.st.Particles) == 0 {
		return
	}
	s.st.Particles = nil
	s.commit()
}

// ClearAll removes every flat particle and group.
func (s *Store) ClearAll() {
	if len(s.st.Particles) == 0 && len(s.st.Groups) == 0 {
		return
	}
	s.st.Particles = nil
	s.st.Groups = nil
	s.st.Selection = nil
	s.commit()
}

// --- Groups ---

// AddGroup takes ownership of g; the caller must not mutate it afterwards.
func (s *Store) AddGroup(g *drawing.Group) {
	if g == nil {
		return
	}
	s.st.Groups = append(s.st.Groups, g)
	s.commit()
}

// RemoveGroup deletes a group and drops it from the selection. Unknown ids are ignored.
func (s *Store) RemoveGroup(id string) {
	i := s.groupIndex(id)
	if i < 0 {
		return
	}
	s.st.Groups = append(s.st.Groups[:i:i], s.st.Groups[i+1:]...)
	s.deselect(id)
	s.commit()
}

// RemoveGroups deletes several groups with a single notification.
func (s *Store) RemoveGroups(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := s.st.Groups[:0:0]
	for _, g := range s.st.Groups {
		if _, ok := drop[g.ID]; ok {
			s.deselect(g.ID)
			continue
		}
		kept = append(kept, g)
	}
	if len(kept) == len(s.st.Groups) {
		return
	}
	s.st.Groups = kept
	s.commit()
}

// UpdateGroup applies u to a copy of the group and swaps it in. Unknown ids are ignored.
func (s *Store) UpdateGroup(id string, u GroupUpdate) {
	i := s.groupIndex(id)
	if i < 0 || u == nil {
		return
	}
	g := s.st.Groups[i].Clone()
	u.apply(g)
	groups := append([]*drawing.Group{}, s.st.Groups...)
	groups[i] = g
	s.st.Groups = groups
	s.commit()
}

func (s *Store) groupIndex(id string) int {
	for i, g := range s.st.Groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) deselect(id string) {
	for i, sel := range s.st.Selection {
		if sel == id {
			s.st.Selection = append(s.st.Selection[:i:i], s.st.Selection[i+1:]...)
			return
		}
	}
}

// --- Transient UI state (never marks the project dirty) ---

func (s *Store) SetMode(t Tool) {
	if !t.Valid() {
		return
	}
	s.st.Tool = t
	s.notify()
}

// SetSelectedGroup selects a single group. "" or an unknown id clears the selection.
func (s *Store) SetSelectedGroup(id string) {
	if id == "" || s.groupIndex(id) < 0 {
		s.st.Selection = nil
	} else {
		s.st.Selection = []string{id}
	}
	s.notify()
}

// SetSelection replaces the selection with ids, dropping duplicates and unknown groups.
func (s *Store) SetSelection(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	var sel []string
	for _, id := range ids {
		if _, dup := seen[id]; dup || s.groupIndex(id) < 0 {
			continue
		}
		seen[id] = struct{}{}
		sel = append(sel, id)
	}
	s.st.Selection = sel
	s.notify()
}

func (s *Store) SetDrawing(drawing bool) {
	s.st.IsDrawing = drawing
	s.notify()
}

// SetLastPointPosition records the last brush sample. It does not notify.
func (s *Store) SetLastPointPosition(p *geom.Vec) {
	if p == nil {
		s.st.LastPointPosition = nil
		return
	}
	v := *p
	s.st.LastPointPosition = &v
}

// --- Settings ---

func (s *Store) SetEraserMode(m EraserMode) {
	if !m.Valid() {
		return
	}
	s.st.EraserMode = m
	s.commit()
}

func (s *Store) SetShapeFillMode(m FillMode) {
	if !m.Valid() {
		return
	}
	s.st.FillMode = m
	s.commit()
}

func (s *Store) SetDrawingHeight(h float64) {
	s.st.DrawingHeight = h
	s.commit()
}

func (s *Store) SetPlaneRotation(r geom.Rotation) {
	s.st.PlaneRotation = r
	s.commit()
}

func (s *Store) SetPlaneOffset(o geom.PlanarOffset) {
	s.st.PlaneOffset = o
	s.commit()
}

func (s *Store) SetCameraSensitivity(v float64) {
	s.st.CameraSensitivity = v
	s.commit()
}

func (s *Store) SetGridSize(n int) {
	if n <= 0 {
		return
	}
	s.st.GridSize = n
	s.commit()
}

func (s *Store) SetParticleSettings(particleType, color string) {
	s.st.ParticleType = particleType
	s.st.ParticleColor = color
	s.commit()
}

func (s *Store) SetProjectName(name string) {
	s.st.ProjectName = name
	s.commit()
}

func (s *Store) SetSkillID(id string) {
	s.st.SkillID = id
	s.commit()
}

// SetUnsavedChanges sets the dirty flag explicitly.
func (s *Store) SetUnsavedChanges(dirty bool) {
	s.st.HasUnsavedChanges = dirty
	s.notify()
}

// MarkSaved clears the dirty flag after a successful save.
func (s *Store) MarkSaved() {
	s.SetUnsavedChanges(false)
}

// --- Projects ---

// LoadProject replaces the entire state from p and leaves the project clean.
func (s *Store) LoadProject(p *document.Project) {
	if p == nil {
		p = document.NewEmptyProject("")
	}
	s.reset(p)
	s.notify()
}

func (s *Store) reset(p *document.Project) {
	p.Normalize()
	particles := make([]drawing.Particle, len(p.Particles))
	for i, r := range p.Particles {
		particles[i] = drawing.ParticleFromRecord(r)
	}
	groups := make([]*drawing.Group, len(p.Groups))
	for i, r := range p.Groups {
		groups[i] = drawing.FromRecord(r)
	}

	tool := s.st.Tool
	if !tool.Valid() {
		tool = ToolCamera
	}
	createdAt := p.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	s.st = State{
		Particles:         particles,
		Groups:            groups,
		Tool:              tool,
		EraserMode:        EraserPoint,
		FillMode:          FillFilled,
		DrawingHeight:     p.Settings.DrawingHeight,
		PlaneRotation:     p.Settings.PlaneRotation,
		PlaneOffset:       p.Settings.PlaneOffset,
		CameraSensitivity: p.Settings.CameraSensitivity,
		GridSize:          p.Settings.GridSize,
		ParticleType:      p.Settings.ParticleType,
		ParticleColor:     p.Settings.ParticleColor,
		ProjectName:       p.Name,
		SkillID:           p.Settings.SkillID,
		CreatedAt:         createdAt,
	}
}
