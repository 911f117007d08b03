package scene

import (
	"github.com/mythic3d/particle-drawer/internal/document"
	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/state"
)

// groupEntry is the live side of one rendered group.
type groupEntry struct {
	src       *drawing.Group // state pointer last synced
	live      *drawing.Group // what is on screen; drags mutate it directly
	handles   []Handle       // one per particle, same order as live.Particles
	selection *selectionVisual
}

// selectionVisual is created the first time a group is selected and kept until dispose.
type selectionVisual struct {
	box     Handle
	corners [8]Handle
	shown   bool
}

type particleEntry struct {
	particle drawing.Particle
	handle   Handle
}

// Reconciler mirrors a state snapshot into a Renderer. Sync must be called with every
// snapshot, in order; subscribing it to a Store does exactly that.
type Reconciler struct {
	r Renderer

	groups    map[string]*groupEntry
	particles map[string]*particleEntry
	prims     map[Handle]Primitive

	dragging   map[string]geom.Vec // group id -> centroid at drag start
	highlights map[Handle]struct{}
	previews   []Handle
	overlay    Handle
}

func New(r Renderer) *Reconciler {
	return &Reconciler{
		r:          r,
		groups:     make(map[string]*groupEntry),
		particles:  make(map[string]*particleEntry),
		prims:      make(map[Handle]Primitive),
		dragging:   make(map[string]geom.Vec),
		highlights: make(map[Handle]struct{}),
	}
}

// Attach subscribes the reconciler to s and brings the scene up to date immediately.
func (rc *Reconciler) Attach(s *state.Store) state.SubscriptionID {
	rc.Sync(s.GetState())
	return s.Subscribe(rc.Sync)
}

// Sync reconciles rendered primitives against st.
func (rc *Reconciler) Sync(st state.State) {
	rc.syncGroups(st.Groups)
	rc.syncParticles(st.Particles)
	rc.syncSelection(st.Selection)
}

func (rc *Reconciler) syncGroups(groups []*drawing.Group) {
	present := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		present[g.ID] = struct{}{}
		e, ok := rc.groups[g.ID]
		switch {
		case !ok:
			rc.groups[g.ID] = rc.materialize(g)
		case len(e.handles) != len(g.Particles):
			rc.disposeParticles(e)
			fresh := rc.materialize(g)
			fresh.selection = e.selection
			rc.groups[g.ID] = fresh
			rc.refreshSelection(fresh)
		case e.src == g:
			// unchanged
		default:
			if _, dragged := rc.dragging[g.ID]; dragged {
				continue
			}
			e.src = g
			e.live = g.Clone()
			rc.copyParticles(e)
			rc.refreshSelection(e)
		}
	}

	for id, e := range rc.groups {
		if _, ok := present[id]; !ok {
			rc.disposeGroup(e)
			delete(rc.groups, id)
			delete(rc.dragging, id)
		}
	}
}

func (rc *Reconciler) materialize(g *drawing.Group) *groupEntry {
	e := &groupEntry{src: g, live: g.Clone(), handles: make([]Handle, len(g.Particles))}
	for i, p := range e.live.Particles {
		e.handles[i] = rc.add(groupParticlePrimitive(e.live, p))
	}
	return e
}

func (rc *Reconciler) copyParticles(e *groupEntry) {
	for i, p := range e.live.Particles {
		prim := groupParticlePrimitive(e.live, p)
		_, prim.Highlighted = rc.highlights[e.handles[i]]
		rc.update(e.handles[i], prim)
	}
}

func (rc *Reconciler) syncParticles(particles []drawing.Particle) {
	present := make(map[string]struct{}, len(particles))
	for _, p := range particles {
		present[p.ID] = struct{}{}
		e, ok := rc.particles[p.ID]
		if !ok {
			rc.particles[p.ID] = &particleEntry{particle: p, handle: rc.add(particlePrimitive(p))}
			continue
		}
		if e.particle != p {
			e.particle = p
			prim := particlePrimitive(p)
			_, prim.Highlighted = rc.highlights[e.handle]
			rc.update(e.handle, prim)
		}
	}
	for id, e := range rc.particles {
		if _, ok := present[id]; !ok {
			rc.remove(e.handle)
			delete(rc.particles, id)
		}
	}
}

func (rc *Reconciler) syncSelection(selection []string) {
	selected := make(map[string]struct{}, len(selection))
	for _, id := range selection {
		selected[id] = struct{}{}
	}
	for id, e := range rc.groups {
		_, want := selected[id]
		shown := e.selection != nil && e.selection.shown
		switch {
		case want && !shown:
			rc.showSelection(e)
		case !want && shown:
			rc.hideSelection(e)
		}
	}
}

func (rc *Reconciler) showSelection(e *groupEntry) {
	if e.selection == nil {
		sv := &selectionVisual{}
		sv.box = rc.add(boxPrimitive(e.live))
		for i, c := range e.live.Bounds.Corners() {
			sv.corners[i] = rc.add(handlePrimitive(e.live.ID, c))
		}
		e.selection = sv
	}
	e.selection.shown = true
	rc.refreshSelection(e)
}

func (rc *Reconciler) hideSelection(e *groupEntry) {
	if e.selection == nil {
		return
	}
	e.selection.shown = false
	rc.refreshSelection(e)
}

// refreshSelection rewrites the selection visuals from the live group.
func (rc *Reconciler) refreshSelection(e *groupEntry) {
	sv := e.selection
	if sv == nil {
		return
	}
	box := boxPrimitive(e.live)
	box.Hidden = !sv.shown
	rc.update(sv.box, box)
	for i, c := range e.live.Bounds.Corners() {
		h := handlePrimitive(e.live.ID, c)
		h.Hidden = !sv.shown
		rc.update(sv.corners[i], h)
	}
}

func (rc *Reconciler) disposeParticles(e *groupEntry) {
	for _, h := range e.handles {
		rc.remove(h)
	}
	e.handles = nil
}

// disposeGroup releases every primitive the group owns, selection visuals included.
func (rc *Reconciler) disposeGroup(e *groupEntry) {
	rc.disposeParticles(e)
	if sv := e.selection; sv != nil {
		rc.remove(sv.box)
		for _, h := range sv.corners {
			rc.remove(h)
		}
		e.selection = nil
	}
}

// Dispose removes everything the reconciler created.
func (rc *Reconciler) Dispose() {
	for id, e := range rc.groups {
		rc.disposeGroup(e)
		delete(rc.groups, id)
	}
	for id, e := range rc.particles {
		rc.remove(e.handle)
		delete(rc.particles, id)
	}
	rc.ClearPreview()
	rc.ClearMarquee()
	clear(rc.dragging)
	clear(rc.highlights)
}

func (rc *Reconciler) add(p Primitive) Handle {
	h := rc.r.Add(p)
	rc.prims[h] = p
	return h
}

func (rc *Reconciler) update(h Handle, p Primitive) {
	if old, ok := rc.prims[h]; ok && old == p {
		return
	}
	rc.r.Update(h, p)
	rc.prims[h] = p
}

func (rc *Reconciler) remove(h Handle) {
	if _, ok := rc.prims[h]; !ok {
		return
	}
	rc.r.Remove(h)
	delete(rc.prims, h)
	delete(rc.highlights, h)
}

// --- primitive builders ---

func displayColor(color string) string {
	if color == "" {
		return document.DefaultColor
	}
	return color
}

func groupParticlePrimitive(g *drawing.Group, p drawing.Particle) Primitive {
	return Primitive{
		Kind:    KindPoint,
		Role:    RoleParticle,
		Owner:   Owner{GroupID: g.ID, ParticleID: p.ID},
		Center:  p.Vec,
		Size:    PointRadius,
		Color:   displayColor(g.ColorOf(p)),
		Opacity: 1,
	}
}

func particlePrimitive(p drawing.Particle) Primitive {
	return Primitive{
		Kind:    KindPoint,
		Role:    RoleParticle,
		Owner:   Owner{ParticleID: p.ID},
		Center:  p.Vec,
		Size:    PointRadius,
		Color:   displayColor(p.Color),
		Opacity: 1,
	}
}

// boxPrimitive outlines the group bounds, padded so no axis is thinner than MinBoxSize.
func boxPrimitive(g *drawing.Group) Primitive {
	b := g.Bounds
	c := b.Center()
	size := b.Size()
	half := geom.V(max(size.X, MinBoxSize)/2, max(size.Y, MinBoxSize)/2, max(size.Z, MinBoxSize)/2)
	return Primitive{
		Kind:    KindBox,
		Role:    RoleSelection,
		Owner:   Owner{GroupID: g.ID},
		Center:  c,
		Box:     geom.Box{Min: c.Sub(half), Max: c.Add(half)},
		Color:   SelectionColor,
		Opacity: SelectionOpacity,
	}
}

func handlePrimitive(groupID string, corner geom.Vec) Primitive {
	return Primitive{
		Kind:    KindHandle,
		Role:    RoleSelection,
		Owner:   Owner{GroupID: groupID},
		Center:  corner,
		Size:    HandleSize,
		Color:   HandleColor,
		Opacity: 1,
	}
}
