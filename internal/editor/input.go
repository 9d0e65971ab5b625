/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"diagramcore/internal/payload"
	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// WheelEvent is a scroll or pinch-gesture wheel event in canvas pixels.
type WheelEvent struct {
	X, Y           float64
	DeltaX, DeltaY float64
	Ctrl           bool
	Meta           bool
	Shift          bool
}

// Wheel zooms about the pointer with ctrl held and pans otherwise. Shift
// turns vertical scrolling into horizontal panning.
func (e *Editor) Wheel(ev WheelEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("wheel")
	st := e.store
	if st.Data.Locked == scene.LockDisable || (ev.DeltaX == 0 && ev.DeltaY == 0) {
		return
	}
	if ev.Ctrl || ev.Meta {
		scale := st.Data.Scale * zoomStep
		if ev.DeltaY > 0 {
			scale = st.Data.Scale / zoomStep
		}
		if e.zoomTo(scale, e.calibrate(ev.X, ev.Y)) {
			e.render()
		}
		return
	}
	dx, dy := ev.DeltaX, ev.DeltaY
	if ev.Shift {
		dx, dy = dy, dx
	}
	e.translate(-dx/st.Data.Scale, -dy/st.Data.Scale)
	e.render()
}

// Touch is one contact point in canvas pixels.
type Touch struct {
	X, Y float64
}

type pinch struct {
	dist   float64
	scale  float64
	center vector.Pt
}

type touchState struct {
	timer Timer
	// gen identifies the latest scheduled start; older callbacks that
	// already fired before Stop are dropped.
	gen    uint64
	pinch  *pinch
	active bool
}

// TouchStart debounces a new set of contacts: one acts as a pointer press,
// two start a pinch and three ask for the context menu.
func (e *Editor) TouchStart(touches []Touch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("touch-start")
	if e.store.Data.Locked == scene.LockDisable || len(touches) == 0 {
		return
	}
	if e.touch.timer != nil {
		e.touch.timer.Stop()
	}
	pts := append([]Touch(nil), touches...)
	e.touch.gen++
	gen := e.touch.gen
	e.touch.timer = e.c.Scheduler.AfterFunc(touchDebounce, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		defer e.guard("touch-start")
		if gen != e.touch.gen {
			return
		}
		e.touch.timer = nil
		e.touchBegan(pts)
	})
}

func (e *Editor) touchBegan(pts []Touch) {
	switch len(pts) {
	case 1:
		e.touch.active = true
		e.pointerDown(PointerEvent{X: pts[0].X, Y: pts[0].Y, Buttons: 1})
	case 2:
		a, b := vector.Pt{X: pts[0].X, Y: pts[0].Y}, vector.Pt{X: pts[1].X, Y: pts[1].Y}
		e.touch.pinch = &pinch{
			dist:   a.Dist(b),
			scale:  e.store.Data.Scale,
			center: vector.Pt{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
		}
	case 3:
		e.emit(Event{Name: EventContextMenu, Point: vector.Pt{X: pts[0].X, Y: pts[0].Y}})
	}
}

// TouchMove follows a pinch, zooming by the distance ratio and panning by
// the centre travel, or drags like a pointer with one contact.
func (e *Editor) TouchMove(touches []Touch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("touch-move")
	if e.store.Data.Locked == scene.LockDisable {
		return
	}
	switch {
	case len(touches) == 2 && e.touch.pinch != nil:
		p := e.touch.pinch
		a, b := vector.Pt{X: touches[0].X, Y: touches[0].Y}, vector.Pt{X: touches[1].X, Y: touches[1].Y}
		mid := vector.Pt{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
		if p.dist > 0 {
			e.zoomTo(p.scale*a.Dist(b)/p.dist, e.calibrate(mid.X, mid.Y))
		}
		scale := e.store.Data.Scale
		if d := mid.Sub(p.center); d.X != 0 || d.Y != 0 {
			e.translate(d.X/scale, d.Y/scale)
		}
		p.center = mid
		e.render()
	case len(touches) == 1 && e.touch.active:
		e.pointerMove(PointerEvent{X: touches[0].X, Y: touches[0].Y, Buttons: 1})
	}
}

// TouchEnd releases the contacts and cancels a pending start.
func (e *Editor) TouchEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("touch-end")
	if e.touch.timer != nil {
		e.touch.timer.Stop()
		e.touch.timer = nil
	}
	e.touch.gen++
	e.touch.pinch = nil
	if e.touch.active {
		e.touch.active = false
		e.pointerUp(PointerEvent{X: e.lastScreen.X, Y: e.lastScreen.Y})
	}
}

// Resize applies a new viewport size right away.
func (e *Editor) Resize(width, height int, dpr float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("resize")
	e.resize(width, height, dpr)
	e.render()
}

// ScheduleResize coalesces bursts of size changes into one resize after a
// short quiet period.
func (e *Editor) ScheduleResize(width, height int, dpr float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resizeTimer != nil {
		e.resizeTimer.Stop()
	}
	e.resizeGen++
	gen := e.resizeGen
	e.resizeTimer = e.c.Scheduler.AfterFunc(resizeDebounce, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		defer e.guard("resize")
		if gen != e.resizeGen {
			return
		}
		e.resizeTimer = nil
		e.resize(width, height, dpr)
		e.render()
	})
}

func (e *Editor) resize(width, height int, dpr float64) {
	if width < 0 || height < 0 {
		return
	}
	dpr = render.ClampPixelRatio(dpr)
	e.width, e.height, e.dpr = width, height, dpr
	st := e.store
	st.Canvas = vector.R(0, 0, float64(width), float64(height))
	if e.c.Renderer != nil {
		e.c.Renderer.Resize(width, height, dpr)
	}
	if e.c.Layers != nil {
		e.c.Layers.Resize(width, height, dpr)
	}
	e.pinRuleLines(true)
	st.RefreshView()
	e.refreshLayers()
}

// Drop adds shapes from a JSON payload centred on a point in canvas
// pixels. Malformed payloads are logged and ignored.
func (e *Editor) Drop(data []byte, x, y float64) []*scene.Shape {
	shapes, err := payload.Parse(data)
	if err != nil {
		e.log.Warn("drop ignored", "err", err)
		return nil
	}
	return e.DropShapes(shapes, x, y)
}

// DropShapes adds decoded shapes centred on a point in canvas pixels. Ids
// are renewed so the same payload can be dropped twice; references between
// the dropped shapes follow the new ids. Root sizes scale with the view.
func (e *Editor) DropShapes(shapes []*scene.Shape, x, y float64) []*scene.Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("drop")
	st := e.store
	if st.Data.Locked != scene.LockNone || len(shapes) == 0 {
		return nil
	}
	renewIDs(shapes)
	pt := e.calibrate(x, y)
	scale := st.Data.Scale
	var roots []*scene.Shape
	for _, s := range shapes {
		if s == nil || s.ParentID != "" {
			continue
		}
		s.Width *= scale
		s.Height *= scale
		s.X = pt.X - s.Width/2
		s.Y = pt.Y - s.Height/2
		roots = append(roots, s)
	}
	committed, err := st.Add(shapes...)
	if err != nil {
		e.log.Warn("dropped shapes rejected", "err", err)
	}
	if len(committed) == 0 {
		return nil
	}
	e.record(OpAdd, committed)
	e.emit(Event{Name: EventAdd, Shapes: committed, Point: vector.Pt{X: x, Y: y}})
	var sel []*scene.Shape
	for _, r := range roots {
		if st.Get(r.ID) == r {
			sel = append(sel, r)
		}
	}
	e.selectShapes(sel)
	e.render()
	return committed
}

// renewIDs gives every shape a fresh id and rewrites parent, child and
// connection references among them. References to shapes outside the
// batch are cleared.
func renewIDs(shapes []*scene.Shape) {
	ids := make(map[string]string, len(shapes))
	for _, s := range shapes {
		if s == nil {
			continue
		}
		old := s.ID
		s.ID = scene.NewID()
		if old != "" {
			ids[old] = s.ID
		}
	}
	for _, s := range shapes {
		if s == nil {
			continue
		}
		s.ParentID = ids[s.ParentID]
		children := s.Children[:0]
		for _, c := range s.Children {
			if id, ok := ids[c]; ok {
				children = append(children, id)
			}
		}
		s.Children = children
		lines := s.ConnectedLines[:0]
		for _, cl := range s.ConnectedLines {
			if id, ok := ids[cl.LineID]; ok {
				cl.LineID = id
				lines = append(lines, cl)
			}
		}
		s.ConnectedLines = lines
		for _, a := range s.Anchors {
			a.PenID = s.ID
			if a.ConnectTo == "" {
				continue
			}
			if id, ok := ids[a.ConnectTo]; ok {
				a.ConnectTo = id
			} else {
				a.ConnectTo, a.AnchorID = "", ""
			}
		}
	}
}

// Viewport returns the canvas size and device pixel ratio.
func (e *Editor) Viewport() (width, height int, dpr float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height, e.dpr
}
