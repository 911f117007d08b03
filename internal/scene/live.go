package scene

import (
	"sort"

	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
)

// OwnerOf reports which group or particle a handle belongs to. Previews and overlays have
// no owner.
func (rc *Reconciler) OwnerOf(h Handle) (Owner, bool) {
	p, ok := rc.prims[h]
	if !ok || p.Hidden || (p.Owner == Owner{}) {
		return Owner{}, false
	}
	return p.Owner, true
}

// LiveGroup returns the group as currently displayed, including any drag in progress.
func (rc *Reconciler) LiveGroup(id string) (*drawing.Group, bool) {
	e, ok := rc.groups[id]
	if !ok {
		return nil, false
	}
	return e.live, true
}

// RenderedGroupIDs lists groups that have primitives, sorted.
func (rc *Reconciler) RenderedGroupIDs() []string {
	ids := make([]string, 0, len(rc.groups))
	for id := range rc.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RenderedParticleIDs lists legacy flat particles that have primitives, sorted.
func (rc *Reconciler) RenderedParticleIDs() []string {
	ids := make([]string, 0, len(rc.particles))
	for id := range rc.particles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SelectionShown reports whether the group's selection visuals are visible.
func (rc *Reconciler) SelectionShown(id string) bool {
	e, ok := rc.groups[id]
	return ok && e.selection != nil && e.selection.shown
}

// --- Drag ---

// BeginDrag starts moving the given groups. While a group is dragged, Sync leaves its
// live copy alone so stale state does not snap it back.
func (rc *Reconciler) BeginDrag(ids []string) {
	clear(rc.dragging)
	for _, id := range ids {
		if e, ok := rc.groups[id]; ok {
			rc.dragging[id] = e.live.Position
		}
	}
}

func (rc *Reconciler) Dragging() bool { return len(rc.dragging) > 0 }

// DragBy moves every dragged group so its centroid sits at its start centroid plus delta.
func (rc *Reconciler) DragBy(delta geom.Vec) {
	for id, start := range rc.dragging {
		e, ok := rc.groups[id]
		if !ok {
			continue
		}
		e.live.MoveTo(start.Add(delta))
		rc.copyParticles(e)
		rc.refreshSelection(e)
	}
}

// EndDrag stops the drag and returns the final centroid of each dragged group. The caller
// commits these to the store; until then the scene shows the live positions.
func (rc *Reconciler) EndDrag() map[string]geom.Vec {
	out := make(map[string]geom.Vec, len(rc.dragging))
	for id := range rc.dragging {
		if e, ok := rc.groups[id]; ok {
			out[id] = e.live.Position
		}
	}
	clear(rc.dragging)
	return out
}

// CancelDrag puts dragged groups back where the state has them.
func (rc *Reconciler) CancelDrag() {
	for id := range rc.dragging {
		if e, ok := rc.groups[id]; ok {
			e.live = e.src.Clone()
			rc.copyParticles(e)
			rc.refreshSelection(e)
		}
	}
	clear(rc.dragging)
}

// --- Eraser highlight ---

// Highlight marks exactly the primitives of the given particle ids, clearing all others.
func (rc *Reconciler) Highlight(particleIDs map[string]struct{}) {
	want := make(map[Handle]struct{})
	for _, e := range rc.groups {
		for i, p := range e.live.Particles {
			if _, ok := particleIDs[p.ID]; ok {
				want[e.handles[i]] = struct{}{}
			}
		}
	}
	for id, e := range rc.particles {
		if _, ok := particleIDs[id]; ok {
			want[e.handle] = struct{}{}
		}
	}

	for h := range rc.highlights {
		if _, keep := want[h]; !keep {
			rc.setHighlighted(h, false)
		}
	}
	for h := range want {
		rc.setHighlighted(h, true)
	}
	rc.highlights = want
}

// ClearHighlight removes every eraser highlight.
func (rc *Reconciler) ClearHighlight() {
	rc.Highlight(nil)
}

func (rc *Reconciler) setHighlighted(h Handle, on bool) {
	p, ok := rc.prims[h]
	if !ok {
		return
	}
	p.Highlighted = on
	rc.update(h, p)
}

// --- Previews ---

// AddPreviewPoint appends one translucent point to the preview set.
func (rc *Reconciler) AddPreviewPoint(pos geom.Vec, color string) {
	rc.previews = append(rc.previews, rc.add(Primitive{
		Kind:    KindPoint,
		Role:    RolePreview,
		Center:  pos,
		Size:    PointRadius,
		Color:   displayColor(color),
		Opacity: PreviewOpacity,
	}))
}

// SetPreview replaces the preview set with points.
func (rc *Reconciler) SetPreview(points []geom.Vec, color string) {
	rc.ClearPreview()
	for _, p := range points {
		rc.AddPreviewPoint(p, color)
	}
}

func (rc *Reconciler) ClearPreview() {
	for _, h := range rc.previews {
		rc.remove(h)
	}
	rc.previews = nil
}

// PreviewCount is the number of preview primitives on screen.
func (rc *Reconciler) PreviewCount() int { return len(rc.previews) }

// --- Marquee ---

// ShowMarquee draws or moves the selection rectangle overlay.
func (rc *Reconciler) ShowMarquee(r ScreenRect) {
	p := Primitive{Kind: KindOverlay, Role: RolePreview, Rect: r, Color: SelectionColor, Opacity: PreviewOpacity}
	if rc.overlay == 0 {
		rc.overlay = rc.add(p)
		return
	}
	rc.update(rc.overlay, p)
}

func (rc *Reconciler) ClearMarquee() {
	if rc.overlay != 0 {
		rc.remove(rc.overlay)
		rc.overlay = 0
	}
}
