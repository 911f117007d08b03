// Package interact turns pointer input into state store mutations according to the
// active tool.
package interact

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mythic3d/particle-drawer/internal/drawing"
	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/scene"
	"github.com/mythic3d/particle-drawer/internal/shape"
	"github.com/mythic3d/particle-drawer/internal/state"
)

const (
	// BrushSpacing is the distance the cursor must travel before a stroke gains a sample.
	BrushSpacing = 0.2
	// EraserRadius is inclusive.
	EraserRadius = 0.5
)

// Button is the pointer button that triggered an event.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// PointerEvent is a pointer position in viewport pixels.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button Button  `json:"button"`
}

// gesture is the in-flight pointer interaction between down and up.
type gesture struct {
	tool  state.Tool
	plane geom.DrawingPlane

	stroke *drawing.Group // brush

	erasing bool // eraser

	shapeStart *geom.Vec // rectangle, circle
	shapeEnd   *geom.Vec

	dragging   bool // select
	dragNormal mgl64.Vec3
	dragAnchor mgl64.Vec3
	dragStart  geom.Vec

	marquee     bool
	marqueeRect scene.ScreenRect
}

// Controller is the selection and drawing state machine. Like the store it drives, it
// is not safe for concurrent use.
type Controller struct {
	store *state.Store
	scene *scene.Reconciler
	view  Viewport

	g *gesture
}

func New(store *state.Store, sc *scene.Reconciler, view Viewport) *Controller {
	return &Controller{store: store, scene: sc, view: view}
}

// Busy reports whether a gesture is in progress.
func (c *Controller) Busy() bool { return c.g != nil }

// Cancel abandons any gesture in progress without committing it.
func (c *Controller) Cancel() {
	if c.g == nil {
		c.scene.ClearHighlight()
		return
	}
	g := c.g
	c.g = nil
	c.scene.ClearPreview()
	c.scene.ClearMarquee()
	c.scene.ClearHighlight()
	if g.dragging {
		c.scene.CancelDrag()
		c.scene.Sync(c.store.GetState())
	}
	if g.stroke != nil {
		c.store.SetLastPointPosition(nil)
		c.store.SetDrawing(false)
	}
}

// PointerDown starts a gesture for the active tool. Only the primary button draws or
// selects; other buttons belong to the camera.
func (c *Controller) PointerDown(ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	if c.g != nil {
		c.Cancel()
	}
	st := c.store.GetState()
	g := &gesture{tool: st.Tool, plane: st.Plane()}

	switch st.Tool {
	case state.ToolCamera:
		return
	case state.ToolPoint:
		c.placePoint(st, ev)
		return
	case state.ToolBrush:
		if !c.startStroke(st, g, ev) {
			return
		}
	case state.ToolEraser:
		g.erasing = true
		c.g = g
		c.erase(st, ev)
		return
	case state.ToolRectangle, state.ToolCircle:
		hit, ok := c.view.CastRay(ev.X, ev.Y, g.plane)
		if !ok {
			return
		}
		g.shapeStart = &hit
	case state.ToolSelect:
		c.selectDown(st, g, ev)
	}
	c.g = g
}

// PointerMove continues the current gesture. The eraser previews even with no button
// held.
func (c *Controller) PointerMove(ev PointerEvent) {
	st := c.store.GetState()
	if c.g != nil && c.g.tool != st.Tool {
		c.Cancel()
	}

	switch st.Tool {
	case state.ToolCamera, state.ToolPoint:
	case state.ToolBrush:
		c.extendStroke(st, ev)
	case state.ToolEraser:
		c.previewErase(st, ev)
		if c.g != nil && c.g.erasing {
			c.erase(st, ev)
		}
	case state.ToolRectangle, state.ToolCircle:
		c.previewShape(st, ev)
	case state.ToolSelect:
		c.selectMove(ev)
	}
}

// PointerUp finishes the current gesture and commits its result.
func (c *Controller) PointerUp(ev PointerEvent) {
	if ev.Button != ButtonPrimary || c.g == nil {
		return
	}
	g := c.g
	c.g = nil

	switch g.tool {
	case state.ToolCamera, state.ToolPoint, state.ToolEraser:
	case state.ToolBrush:
		c.finishStroke(g)
	case state.ToolRectangle, state.ToolCircle:
		c.finishShape(g, ev)
	case state.ToolSelect:
		c.selectUp(g, ev)
	}
}

// --- point ---

func (c *Controller) placePoint(st state.State, ev PointerEvent) {
	hit, ok := c.view.CastRay(ev.X, ev.Y, st.Plane())
	if !ok {
		return
	}
	p := drawing.NewParticle(hit, st.ParticleType, st.ParticleColor)
	c.store.AddGroup(drawing.NewGroup(drawing.TypePoint, st.ParticleType, st.ParticleColor, p))
	c.store.SetDrawing(false)
}

// --- brush ---

func (c *Controller) startStroke(st state.State, g *gesture, ev PointerEvent) bool {
	hit, ok := c.view.CastRay(ev.X, ev.Y, g.plane)
	if !ok {
		return false
	}
	p := drawing.NewParticle(hit, st.ParticleType, st.ParticleColor)
	g.stroke = drawing.NewGroup(drawing.TypeBrush, st.ParticleType, st.ParticleColor, p)
	c.scene.AddPreviewPoint(hit, st.ParticleColor)
	c.store.SetLastPointPosition(&hit)
	c.store.SetDrawing(true)
	return true
}

func (c *Controller) extendStroke(st state.State, ev PointerEvent) {
	g := c.g
	if g == nil || g.stroke == nil || !st.IsDrawing {
		return
	}
	hit, ok := c.view.CastRay(ev.X, ev.Y, g.plane)
	if !ok {
		return
	}
	if last := st.LastPointPosition; last != nil && hit.Dist(*last) <= BrushSpacing {
		return
	}
	g.stroke.AddParticle(drawing.NewParticle(hit, g.stroke.ParticleType, g.stroke.Color))
	c.scene.AddPreviewPoint(hit, g.stroke.Color)
	c.store.SetLastPointPosition(&hit)
}

func (c *Controller) finishStroke(g *gesture) {
	c.scene.ClearPreview()
	c.store.SetLastPointPosition(nil)
	if g.stroke != nil && len(g.stroke.Particles) > 0 {
		c.store.AddGroup(g.stroke)
	}
	c.store.SetDrawing(false)
}

// --- eraser ---

// eraseTargets returns the particle ids the eraser would remove at hit.
func eraseTargets(st state.State, hit geom.Vec) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, p := range st.Particles {
		if p.Vec.Dist(hit) <= EraserRadius {
			ids[p.ID] = struct{}{}
		}
	}
	for _, g := range st.Groups {
		hitGroup := false
		for _, p := range g.Particles {
			if p.Vec.Dist(hit) <= EraserRadius {
				ids[p.ID] = struct{}{}
				hitGroup = true
			}
		}
		if hitGroup && st.EraserMode == state.EraserGroup {
			for _, p := range g.Particles {
				ids[p.ID] = struct{}{}
			}
		}
	}
	return ids
}

func (c *Controller) previewErase(st state.State, ev PointerEvent) {
	hit, ok := c.view.CastRay(ev.X, ev.Y, st.Plane())
	if !ok {
		c.scene.ClearHighlight()
		return
	}
	c.scene.Highlight(eraseTargets(st, hit))
}

func (c *Controller) erase(st state.State, ev PointerEvent) {
	hit, ok := c.view.CastRay(ev.X, ev.Y, st.Plane())
	if !ok {
		return
	}
	targets := eraseTargets(st, hit)
	if len(targets) == 0 {
		return
	}

	var flat []string
	for _, p := range st.Particles {
		if _, ok := targets[p.ID]; ok {
			flat = append(flat, p.ID)
		}
	}

	var emptied []string
	for _, g := range st.Groups {
		var kept []drawing.Particle
		for _, p := range g.Particles {
			if _, ok := targets[p.ID]; !ok {
				kept = append(kept, p)
			}
		}
		switch {
		case len(kept) == len(g.Particles):
		case len(kept) == 0:
			emptied = append(emptied, g.ID)
		default:
			c.store.UpdateGroup(g.ID, state.ReplaceParticles{Particles: kept})
		}
	}
	c.store.RemoveGroups(emptied)
	c.store.RemovePoints(flat)

	c.scene.Highlight(eraseTargets(c.store.GetState(), hit))
}

// --- rectangle / circle ---

func shapeKind(t state.Tool) shape.Kind {
	if t == state.ToolCircle {
		return shape.KindCircle
	}
	return shape.KindRectangle
}

func groupType(t state.Tool) drawing.GroupType {
	if t == state.ToolCircle {
		return drawing.TypeCircle
	}
	return drawing.TypeRectangle
}

func (c *Controller) previewShape(st state.State, ev PointerEvent) {
	g := c.g
	if g == nil || g.shapeStart == nil {
		return
	}
	hit, ok := c.view.CastRay(ev.X, ev.Y, g.plane)
	if !ok {
		return
	}
	g.shapeEnd = &hit
	c.scene.SetPreview(shape.Outline(shapeKind(g.tool), g.plane, *g.shapeStart, hit), st.ParticleColor)
}

func (c *Controller) finishShape(g *gesture, ev PointerEvent) {
	c.scene.ClearPreview()
	if g.shapeStart == nil {
		return
	}
	end := g.shapeEnd
	if hit, ok := c.view.CastRay(ev.X, ev.Y, g.plane); ok {
		end = &hit
	}
	if end == nil {
		return
	}

	st := c.store.GetState()
	pts := shape.Sample(shapeKind(g.tool), g.plane, *g.shapeStart, *end, shape.DefaultSpacing,
		st.FillMode == state.FillFilled)
	if len(pts) == 0 {
		return
	}
	particles := make([]drawing.Particle, len(pts))
	for i, p := range pts {
		particles[i] = drawing.NewParticle(p, st.ParticleType, st.ParticleColor)
	}
	c.store.AddGroup(drawing.NewGroup(groupType(g.tool), st.ParticleType, st.ParticleColor, particles...))
}

// --- select ---

func (c *Controller) selectDown(st state.State, g *gesture, ev PointerEvent) {
	if h, ok := c.view.Pick(ev.X, ev.Y); ok {
		if owner, ok := c.scene.OwnerOf(h); ok && owner.GroupID != "" {
			if !(st.IsSelected(owner.GroupID) && len(st.Selection) > 1) {
				c.store.SetSelectedGroup(owner.GroupID)
			}
			c.beginDrag(g, ev, c.store.GetState().Selection, owner.GroupID)
			return
		}
	}

	for _, id := range st.Selection {
		live, ok := c.scene.LiveGroup(id)
		if ok && c.view.RayIntersectsBox(ev.X, ev.Y, live.Bounds) {
			c.beginDrag(g, ev, st.Selection, id)
			return
		}
	}

	g.marquee = true
	g.marqueeRect = scene.ScreenRect{X0: ev.X, Y0: ev.Y, X1: ev.X, Y1: ev.Y}
	c.scene.ShowMarquee(g.marqueeRect)
}

// beginDrag anchors a camera-facing plane at the grabbed group's centroid.
func (c *Controller) beginDrag(g *gesture, ev PointerEvent, ids []string, grabbed string) {
	live, ok := c.scene.LiveGroup(grabbed)
	if !ok {
		return
	}
	g.dragNormal = c.view.ViewDirection()
	g.dragAnchor = live.Position.Vec3()
	start, ok := c.view.Ray(ev.X, ev.Y).IntersectPlane(g.dragAnchor, g.dragNormal)
	if !ok {
		return
	}
	g.dragging = true
	g.dragStart = geom.FromVec3(start)
	c.scene.BeginDrag(ids)
}

func (c *Controller) selectMove(ev PointerEvent) {
	g := c.g
	if g == nil {
		return
	}
	switch {
	case g.dragging:
		p, ok := c.view.Ray(ev.X, ev.Y).IntersectPlane(g.dragAnchor, g.dragNormal)
		if !ok {
			return
		}
		c.scene.DragBy(geom.FromVec3(p).Sub(g.dragStart))
	case g.marquee:
		g.marqueeRect.X1, g.marqueeRect.Y1 = ev.X, ev.Y
		c.scene.ShowMarquee(g.marqueeRect)
	}
}

func (c *Controller) selectUp(g *gesture, ev PointerEvent) {
	switch {
	case g.dragging:
		final := c.scene.EndDrag()
		st := c.store.GetState()
		for _, grp := range st.Groups {
			center, ok := final[grp.ID]
			if !ok || center == grp.Position {
				continue
			}
			c.store.UpdateGroup(grp.ID, state.Reposition{Center: center})
		}
	case g.marquee:
		g.marqueeRect.X1, g.marqueeRect.Y1 = ev.X, ev.Y
		c.scene.ClearMarquee()
		c.store.SetSelection(c.groupsInRect(g.marqueeRect))
	}
}

// groupsInRect returns groups whose centroid projects inside r, in state order.
func (c *Controller) groupsInRect(r scene.ScreenRect) []string {
	var ids []string
	for _, grp := range c.store.GetState().Groups {
		x, y, ok := c.view.ProjectToScreen(grp.Position)
		if ok && r.Contains(x, y) {
			ids = append(ids, grp.ID)
		}
	}
	return ids
}

// --- commands outside pointer gestures ---

// DeleteSelected removes every selected group.
func (c *Controller) DeleteSelected() {
	c.Cancel()
	c.store.RemoveGroups(c.store.GetState().Selection)
}

// ScaleSelected scales every selected group about its own centroid.
func (c *Controller) ScaleSelected(sx, sy, sz float64) {
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return
	}
	for _, id := range c.store.GetState().Selection {
		c.store.UpdateGroup(id, state.ScaleBy{X: sx, Y: sy, Z: sz})
	}
}
