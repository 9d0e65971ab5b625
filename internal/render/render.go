/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render paints a scene onto an offscreen raster surface and blits
// it, with the interaction affordances drawn in a pass on top.
package render

import (
	"log/slog"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	applog "diagramcore/internal/log"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// Overlay is the transient interaction state painted above the shapes.
type Overlay struct {
	// ActiveRect is the selection bounds, nil when nothing movable is selected.
	ActiveRect *vector.Rect
	// Handles shows the corner handles, EdgeHandles adds the edge midpoints.
	Handles     bool
	EdgeHandles bool
	Rotate      bool

	Hover       *scene.Shape
	HoverAnchor *scene.Anchor
	// ActiveLine is a selected connector whose anchors are shown.
	ActiveLine   *scene.Shape
	ActiveAnchor *scene.Anchor
	// PointAt marks where an anchor would be inserted.
	PointAt *vector.Pt

	DragRect *vector.Rect
	Guides   []vector.GuideLine
	// Drawing is a connector being drawn that is not in the store yet.
	Drawing *scene.Shape
}

// Renderer turns a scene into frames. Render must be called from one
// goroutine at a time; the surface can be read concurrently.
type Renderer struct {
	surface *Surface
	face    font.Face
	frames  int
	log     *slog.Logger
}

func New(width, height int, dpr float64) *Renderer {
	return &Renderer{
		surface: NewSurface(width, height, dpr),
		face:    basicfont.Face7x13,
		log:     applog.WithComponent("render"),
	}
}

func (r *Renderer) Surface() *Surface { return r.surface }

// Frames counts completed Render calls.
func (r *Renderer) Frames() int { return r.frames }

func (r *Renderer) Resize(width, height int, dpr float64) {
	r.surface.Resize(width, height, dpr)
	r.log.Debug("surface resized", "w", width, "h", height, "dpr", ClampPixelRatio(dpr))
}

// palette holds the parsed option colours of one frame.
type palette struct {
	color, background, active, hover     vector.Color
	anchor, anchorBackground, drag, dock vector.Color
}

func newPalette(o scene.Options) palette {
	return palette{
		color:            vector.ColorOr(o.Color, vector.Black),
		background:       vector.ColorOr(o.Background, vector.White),
		active:           vector.ColorOr(o.ActiveColor, vector.Color{R: 39, G: 141, B: 248, A: 255}),
		hover:            vector.ColorOr(o.HoverColor, vector.Color{R: 24, G: 144, B: 255, A: 255}),
		anchor:           vector.ColorOr(o.AnchorColor, vector.Color{R: 24, G: 144, B: 255, A: 255}),
		anchorBackground: vector.ColorOr(o.AnchorBackground, vector.White),
		drag:             vector.ColorOr(o.DragColor, vector.Color{R: 24, G: 144, B: 255, A: 255}),
		dock:             vector.ColorOr(o.DockColor, vector.Color{R: 235, G: 94, B: 247, A: 255}),
	}
}

// Render paints one frame: background, every visible in-view shape in draw
// order, the connector being drawn, then the overlay, and blits.
func (r *Renderer) Render(st *scene.Store, ov Overlay) error {
	pal := newPalette(st.Options)
	_, _, dpr := r.surface.Size()
	r.surface.Clear(pal.background.NRGBA())
	dst := r.surface.Offscreen()
	if dst.Bounds().Empty() {
		return nil
	}
	view := vector.Scale(dpr, dpr).Mul(vector.Translate(st.Data.X, st.Data.Y))
	p := &painter{dst: dst, face: r.face}

	for _, s := range st.Shapes() {
		if !s.Calc.InView || s.Hidden || s.Layer == scene.LayerTemplate {
			continue
		}
		r.paintShape(p, st, s, view, pal)
	}
	if ov.Drawing != nil {
		p.m = view
		path := st.Registry.Lookup("line").Path(ov.Drawing)
		p.StrokePath(path, pal.active, math.Max(ov.Drawing.LineWidth, 1))
	}
	p.m = view
	r.paintOverlay(p, st, ov, pal)

	r.surface.Blit()
	r.frames++
	return nil
}

// ShapeTransform maps a shape path to device space: view x flip about centre
// x rotate about centre. Connectors are built from world anchors which
// already carry flip and rotation.
func ShapeTransform(s *scene.Shape, view vector.Affine2D) vector.Affine2D {
	if s.WorldPath() {
		return view
	}
	wr := s.Calc.WorldRect
	local := vector.Identity
	if wr.Rotate != 0 {
		local = vector.Rotate(wr.Rotate * math.Pi / 180)
	}
	if s.FlipX || s.FlipY {
		sx, sy := 1.0, 1.0
		if s.FlipX {
			sx = -1
		}
		if s.FlipY {
			sy = -1
		}
		local = local.Mul(vector.Scale(sx, sy))
	}
	return view.Mul(vector.About(local, wr.Center()))
}

func (r *Renderer) paintShape(p *painter, st *scene.Store, s *scene.Shape, view vector.Affine2D, pal palette) {
	path := st.Path(s)
	p.m = ShapeTransform(s, view)
	if draw := st.Registry.Lookup(s.Name).Draw; draw != nil {
		draw(p, s, path)
		return
	}
	if path == nil {
		return
	}
	if s.Background != "" && !s.IsLine() {
		p.FillPath(path, vector.ColorOr(s.Background, pal.background))
	}
	stroke := vector.ColorOr(s.Color, pal.color)
	switch {
	case s.Calc.Active:
		stroke = pal.active
	case s.Calc.Hover:
		stroke = pal.hover
	}
	p.StrokePath(path, stroke, s.LineWidth)
	if s.Text != "" {
		p.Text(s.Calc.WorldRect.Center(), s.Text, vector.ColorOr(s.Color, pal.color))
	}
}
