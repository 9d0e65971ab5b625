/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"math"

	"diagramcore/internal/hit"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// panDrag pans by the pointer travel since the last event. Shift holds the
// vertical offset and ctrl the horizontal one.
func (e *Editor) panDrag(ev PointerEvent) {
	scale := e.store.Data.Scale
	dx := (ev.X - e.down.screen.X) / scale
	dy := (ev.Y - e.down.screen.Y) / scale
	if ev.Shift && !ev.Ctrl {
		dy = 0
	}
	if ev.Ctrl {
		dx = 0
	}
	e.down.screen = vector.Pt{X: ev.X, Y: ev.Y}
	if dx == 0 && dy == 0 {
		return
	}
	e.translate(dx, dy)
	e.render()
}

// PanBy moves the view by a world-space delta.
func (e *Editor) PanBy(dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("pan")
	e.translate(dx, dy)
	e.render()
}

func (e *Editor) translate(dx, dy float64) {
	st := e.store
	st.Data.X = math.Round(st.Data.X + dx*st.Data.Scale)
	st.Data.Y = math.Round(st.Data.Y + dy*st.Data.Scale)
	e.pinRuleLines(false)
	st.RefreshView()
	e.refreshLayers()
	e.emit(Event{Name: EventTranslate})
}

// pinRuleLines keeps rule lines glued to the viewport edges: vertical ones
// start at the top edge, horizontal ones at the left. With fit set their
// length follows the viewport size.
func (e *Editor) pinRuleLines(fit bool) {
	st := e.store
	for _, s := range st.Shapes() {
		if !s.IsRuleLine || s.ParentID != "" {
			continue
		}
		r := s.Calc.WorldRect
		switch {
		case r.W == 0:
			r.Y = -st.Data.Y
			if fit && e.height > 0 {
				r.H = float64(e.height)
			}
		case r.H == 0:
			r.X = -st.Data.X
			if fit && e.width > 0 {
				r.W = float64(e.width)
			}
		default:
			continue
		}
		if r == s.Calc.WorldRect {
			continue
		}
		if err := st.SetWorldRect(s, r); err != nil {
			e.log.Warn("rule line update failed", "shape", s.ID, "err", err)
		}
	}
}

// ZoomTo sets the zoom level about center, given in canvas pixels. Levels
// outside the configured bounds are rejected without any change.
func (e *Editor) ZoomTo(scale float64, center vector.Pt) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("zoom")
	if !e.zoomTo(scale, e.calibrate(center.X, center.Y)) {
		return false
	}
	e.render()
	return true
}

// Scale returns the current zoom level.
func (e *Editor) Scale() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Data.Scale
}

func (e *Editor) zoomTo(scale float64, c vector.Pt) bool {
	st := e.store
	if scale < st.Options.MinScale || scale > st.Options.MaxScale {
		return false
	}
	old := st.Data.Scale
	if old <= 0 {
		old = 1
	}
	ratio := scale / old
	for _, s := range st.Shapes() {
		if s.ParentID != "" {
			continue
		}
		if s.IsRuleLine {
			e.scaleRuleLine(s, ratio, c)
			continue
		}
		st.ScaleShape(s, ratio, c)
	}
	st.Data.Origin = vector.ScalePoint(st.Data.Origin, ratio, c)
	st.Data.Scale = scale
	e.pinRuleLines(true)
	st.RefreshView()
	e.calcActiveRect()
	e.refreshLayers()
	e.emit(Event{Name: EventScale, Scale: scale})
	return true
}

// scaleRuleLine scales a rule line about its own midpoint and moves it
// across so the coordinate it marks follows the zoom.
func (e *Editor) scaleRuleLine(s *scene.Shape, ratio float64, c vector.Pt) {
	st := e.store
	wr := s.Calc.WorldRect
	mid := wr.Center()
	st.ScaleShape(s, ratio, mid)
	to := vector.ScalePoint(mid, ratio, c)
	var dx, dy float64
	if wr.W == 0 {
		dx = to.X - mid.X
	}
	if wr.H == 0 {
		dy = to.Y - mid.Y
	}
	if dx == 0 && dy == 0 {
		return
	}
	if err := st.MoveShape(s, dx, dy); err != nil {
		e.log.Warn("rule line move failed", "shape", s.ID, "err", err)
	}
}

// moveActive drags the selection so its bounds follow the pointer, snapping
// to the other shapes when MoveSnap is on.
func (e *Editor) moveActive(pt vector.Pt, ev PointerEvent) {
	st := e.store
	if e.willInactive != nil {
		if pt.Dist(e.down.pt) < shakeDistance {
			return
		}
		e.willInactive = nil
	}
	if e.initActiveRect == nil || e.activeRect == nil {
		return
	}
	total := pt.Sub(e.down.pt)
	target := e.initActiveRect.Translate(total.X, total.Y)
	e.guides = nil
	if st.Options.MoveSnap && !ev.Alt {
		target, e.guides = vector.ComputeSmartGuides(target, e.snapTargets(), vector.SnapOptions{
			Threshold:     st.Options.DockThreshold,
			SnapToEdges:   true,
			SnapToCenters: true,
		})
	}
	dx, dy := target.X-e.activeRect.X, target.Y-e.activeRect.Y
	if dx == 0 && dy == 0 {
		return
	}
	e.translateShapes(e.movable(), dx, dy)
	r := e.activeRect.Translate(dx, dy)
	e.activeRect = &r
	e.moved = true
}

// translateShapes moves shapes by a world delta. Connectors go first: an
// endpoint glued to a shape that stays behind is released.
func (e *Editor) translateShapes(shapes []*scene.Shape, dx, dy float64) {
	st := e.store
	moving := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		moving[s.ID] = true
	}
	follows := func(id string) bool {
		seen := map[string]bool{}
		for s := st.Get(id); s != nil && !seen[s.ID]; s = st.Parent(s) {
			if moving[s.ID] {
				return true
			}
			seen[s.ID] = true
		}
		return false
	}
	for _, s := range shapes {
		if !s.IsLine() {
			continue
		}
		for _, a := range s.Calc.WorldAnchors {
			if a.ConnectTo != "" && !follows(a.ConnectTo) {
				st.Disconnect(s, a.ID)
			}
			shiftAnchor(a, dx, dy)
		}
		if err := st.InitLineRect(s); err != nil {
			e.log.Warn("connector move failed", "shape", s.ID, "err", err)
		}
	}
	for _, s := range shapes {
		if s.IsLine() {
			continue
		}
		if err := st.MoveShape(s, dx, dy); err != nil {
			e.log.Warn("move failed", "shape", s.ID, "err", err)
		}
	}
}

func shiftAnchor(a *scene.Anchor, dx, dy float64) {
	a.X += dx
	a.Y += dy
	if a.Prev != nil {
		a.Prev = &vector.Pt{X: a.Prev.X + dx, Y: a.Prev.Y + dy}
	}
	if a.Next != nil {
		a.Next = &vector.Pt{X: a.Next.X + dx, Y: a.Next.Y + dy}
	}
}

// snapTargets are the visible root nodes outside the selection.
func (e *Editor) snapTargets() []vector.Target {
	st := e.store
	var out []vector.Target
	for _, s := range st.Shapes() {
		if s.ParentID != "" || s.IsLine() || s.Hidden || !s.Calc.InView || s.Calc.Active {
			continue
		}
		out = append(out, vector.Target{Rect: s.Calc.WorldRect, Weight: 1})
	}
	return out
}

// oppositeHandle maps a resize handle index to the one across the rect.
func oppositeHandle(i int) int {
	if i < 4 {
		return (i + 2) % 4
	}
	return 4 + (i-4+2)%4
}

// resizeActive drags handle e.handleIndex. The pointer is taken into the
// unrotated frame of the rect as it was at pointer-down; the opposite
// handle stays put in world space.
func (e *Editor) resizeActive(pt vector.Pt, ev PointerEvent) {
	if e.initActiveRect == nil || e.handleIndex < 0 {
		return
	}
	r0 := *e.initActiveRect
	c0 := r0.Center()
	lp := vector.RotatePoint(pt, -r0.Rotate, c0)
	x0, y0, x1, y1 := r0.X, r0.Y, r0.EX(), r0.EY()
	i := e.handleIndex
	left := i == 0 || i == 3 || i == 7
	right := i == 1 || i == 2 || i == 5
	top := i == 0 || i == 1 || i == 4
	bottom := i == 2 || i == 3 || i == 6
	if left {
		x0 = lp.X
	}
	if right {
		x1 = lp.X
	}
	if top {
		y0 = lp.Y
	}
	if bottom {
		y1 = lp.Y
	}
	if x1-x0 < minSize {
		if left {
			x0 = x1 - minSize
		} else {
			x1 = x0 + minSize
		}
	}
	if y1-y0 < minSize {
		if top {
			y0 = y1 - minSize
		} else {
			y1 = y0 + minSize
		}
	}
	if ev.Shift && i < 4 && r0.W > 0 && r0.H > 0 {
		h := (x1 - x0) * r0.H / r0.W
		if top {
			y0 = y1 - h
		} else {
			y1 = y0 + h
		}
	}
	n := vector.Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0, Rotate: r0.Rotate}
	if r0.Rotate != 0 {
		flat := r0
		flat.Rotate = 0
		fixed := hit.SizeCPs(flat)[oppositeHandle(i)]
		was := vector.RotatePoint(fixed, r0.Rotate, c0)
		now := vector.RotatePoint(fixed, r0.Rotate, n.Center())
		n = n.Translate(was.X-now.X, was.Y-now.Y)
	}

	sx, sy := 1.0, 1.0
	if r0.W != 0 {
		sx = n.W / r0.W
	}
	if r0.H != 0 {
		sy = n.H / r0.H
	}
	st := e.store
	for _, s := range e.transform {
		if s.Locked >= scene.LockDisableScale {
			continue
		}
		ri := e.initRects[s]
		nr := vector.Rect{
			X: n.X + (ri.X-r0.X)*sx,
			Y: n.Y + (ri.Y-r0.Y)*sy,
			W: ri.W * sx,
			H: ri.H * sy,
		}
		if len(e.transform) == 1 {
			nr = n
		}
		if err := st.SetWorldRect(s, nr); err != nil {
			e.log.Warn("resize failed", "shape", s.ID, "err", err)
		}
	}
	e.activeRect = &n
	e.moved = true
}

// rotateActive turns the selection to face the pointer. A single shape gets
// the absolute angle; several shapes turn together about the selection
// centre by the change since the last event.
func (e *Editor) rotateActive(pt vector.Pt, ev PointerEvent) {
	if e.initActiveRect == nil || len(e.transform) == 0 {
		return
	}
	st := e.store
	c := e.initActiveRect.Center()
	angle := vector.Angle(pt, c)
	if ev.Shift {
		angle = math.Mod(math.Round(angle/15)*15, 360)
	}
	if len(e.transform) == 1 {
		s := e.transform[0]
		if s.DisableRotate {
			return
		}
		parent := s.Calc.WorldRect.Rotate - s.Rotate
		s.Rotate = angle - parent
		if s.IsLine() {
			e.rotateLine(s, angle-e.lastRotate, c)
		} else if err := st.UpdateShapeRect(s); err != nil {
			e.log.Warn("rotate failed", "shape", s.ID, "err", err)
		}
	} else {
		delta := angle - e.lastRotate
		for _, s := range e.transform {
			if s.DisableRotate {
				continue
			}
			if s.IsLine() {
				e.rotateLine(s, delta, c)
				continue
			}
			wr := s.Calc.WorldRect
			from := wr.Center()
			to := vector.RotatePoint(from, delta, c)
			s.Rotate += delta
			wr.Rotate = 0
			if err := st.SetWorldRect(s, wr.Translate(to.X-from.X, to.Y-from.Y)); err != nil {
				e.log.Warn("rotate failed", "shape", s.ID, "err", err)
			}
		}
	}
	e.lastRotate = angle
	r := *e.initActiveRect
	r.Rotate = angle
	if len(e.transform) == 1 && !e.transform[0].IsLine() {
		r = e.transform[0].Calc.WorldRect
	}
	e.activeRect = &r
	e.moved = true
}

// rotateLine turns a connector's world anchors about c and rebuilds its rect.
func (e *Editor) rotateLine(s *scene.Shape, delta float64, c vector.Pt) {
	if delta == 0 {
		return
	}
	for _, a := range s.Calc.WorldAnchors {
		p := vector.RotatePoint(a.Pt(), delta, c)
		a.X, a.Y = p.X, p.Y
		if a.Prev != nil {
			q := vector.RotatePoint(*a.Prev, delta, c)
			a.Prev = &q
		}
		if a.Next != nil {
			q := vector.RotatePoint(*a.Next, delta, c)
			a.Next = &q
		}
	}
	if err := e.store.InitLineRect(s); err != nil {
		e.log.Warn("rotate failed", "shape", s.ID, "err", err)
	}
}
