package render

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mythic3d/particle-drawer/internal/geom"
	"github.com/mythic3d/particle-drawer/internal/scene"
)

const (
	HighlightColor = "#ffff00"
	GridColor      = "#888888"
	GridOpacity    = 0.5

	minPointPixels = 1.5
)

// DrawCommand is a single 2D drawing operation for the browser canvas. The client executes
// the list in order.
type DrawCommand struct {
	Op          string        `json:"op"`                 // "circle", "path", "rect"
	ObjectID    string        `json:"objectId,omitempty"` // group or particle id, for hit correlation
	Handle      uint64        `json:"handle,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	Radius      float64       `json:"radius,omitempty"`
	Width       float64       `json:"width,omitempty"`
	Height      float64       `json:"height,omitempty"`
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Opacity     float64       `json:"opacity,omitempty"`
}

// PathCommand is one canvas path segment: ["M", x, y] or ["L", x, y].
type PathCommand []interface{}

type depthCommand struct {
	cmd    DrawCommand
	depth  float64
	handle scene.Handle
}

// Compile renders the drawing plane grid and every visible primitive into draw commands.
// 3D primitives are in painter's order (far to near); overlays come last.
func (s *Scene) Compile(plane geom.DrawingPlane) []DrawCommand {
	commands := s.gridCommands(plane)

	var world []depthCommand
	var overlays []depthCommand
	for h, p := range s.prims {
		if p.Hidden {
			continue
		}
		switch p.Kind {
		case scene.KindPoint, scene.KindHandle:
			if dc, ok := s.compileSphere(h, p); ok {
				world = append(world, dc)
			}
		case scene.KindBox:
			if dc, ok := s.compileBox(h, p); ok {
				world = append(world, dc)
			}
		case scene.KindOverlay:
			overlays = append(overlays, depthCommand{cmd: compileOverlay(h, p), handle: h})
		}
	}

	sort.Slice(world, func(i, j int) bool {
		if world[i].depth != world[j].depth {
			return world[i].depth > world[j].depth
		}
		return world[i].handle < world[j].handle
	})
	sort.Slice(overlays, func(i, j int) bool { return overlays[i].handle < overlays[j].handle })

	for _, dc := range world {
		commands = append(commands, dc.cmd)
	}
	for _, dc := range overlays {
		commands = append(commands, dc.cmd)
	}
	return commands
}

func objectID(p scene.Primitive) string {
	if p.Owner.GroupID != "" {
		return p.Owner.GroupID
	}
	return p.Owner.ParticleID
}

func (s *Scene) compileSphere(h scene.Handle, p scene.Primitive) (depthCommand, bool) {
	x, y, depth, ok := s.Camera.Project(p.Center.Vec3())
	if !ok {
		return depthCommand{}, false
	}
	cmd := DrawCommand{
		Op:       "circle",
		ObjectID: objectID(p),
		Handle:   uint64(h),
		X:        x,
		Y:        y,
		Radius:   math.Max(p.Size*s.Camera.PixelsPerUnit(depth), minPointPixels),
		Fill:     p.Color,
		Opacity:  p.Opacity,
	}
	if p.Highlighted {
		cmd.Fill = HighlightColor
		cmd.Stroke = HighlightColor
		cmd.StrokeWidth = 2
	}
	return depthCommand{cmd: cmd, depth: depth, handle: h}, true
}

// compileBox draws the 12 box edges. Edges with an endpoint behind the camera are dropped.
func (s *Scene) compileBox(h scene.Handle, p scene.Primitive) (depthCommand, bool) {
	corners := p.Box.Corners()
	var pts [8]mgl64.Vec2
	var visible [8]bool
	for i, c := range corners {
		x, y, _, ok := s.Camera.Project(c.Vec3())
		pts[i], visible[i] = mgl64.Vec2{x, y}, ok
	}

	var path []PathCommand
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			j := i | bit
			if i&bit != 0 || !visible[i] || !visible[j] {
				continue
			}
			path = append(path,
				PathCommand{"M", pts[i][0], pts[i][1]},
				PathCommand{"L", pts[j][0], pts[j][1]})
		}
	}
	if len(path) == 0 {
		return depthCommand{}, false
	}
	_, _, depth, ok := s.Camera.Project(p.Box.Center().Vec3())
	if !ok {
		depth = 0
	}
	return depthCommand{
		cmd: DrawCommand{
			Op:          "path",
			ObjectID:    objectID(p),
			Handle:      uint64(h),
			Path:        path,
			Stroke:      p.Color,
			StrokeWidth: 2,
			Opacity:     p.Opacity,
		},
		depth:  depth,
		handle: h,
	}, true
}

func compileOverlay(h scene.Handle, p scene.Primitive) DrawCommand {
	r := p.Rect
	return DrawCommand{
		Op:          "rect",
		Handle:      uint64(h),
		X:           math.Min(r.X0, r.X1),
		Y:           math.Min(r.Y0, r.Y1),
		Width:       math.Abs(r.X1 - r.X0),
		Height:      math.Abs(r.Y1 - r.Y0),
		Stroke:      p.Color,
		StrokeWidth: 1,
		Opacity:     p.Opacity,
	}
}

// gridCommands draws unit grid lines across the finite drawing plane.
func (s *Scene) gridCommands(plane geom.DrawingPlane) []DrawCommand {
	if plane.Size <= 0 {
		return nil
	}
	half := plane.Size / 2
	n := int(math.Floor(half))

	var path []PathCommand
	line := func(a, b geom.Vec) {
		ax, ay, _, okA := s.Camera.Project(a.Vec3())
		bx, by, _, okB := s.Camera.Project(b.Vec3())
		if okA && okB {
			path = append(path, PathCommand{"M", ax, ay}, PathCommand{"L", bx, by})
		}
	}
	for i := -n; i <= n; i++ {
		f := float64(i)
		line(plane.ToWorld(f, -half), plane.ToWorld(f, half))
		line(plane.ToWorld(-half, f), plane.ToWorld(half, f))
	}
	if len(path) == 0 {
		return nil
	}
	return []DrawCommand{{
		Op:          "path",
		Path:        path,
		Stroke:      GridColor,
		StrokeWidth: 1,
		Opacity:     GridOpacity,
	}}
}

// DrawCommandsToJSON serializes draw commands.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
