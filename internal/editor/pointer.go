/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"time"

	"diagramcore/internal/hit"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// PointerEvent is a mouse or pen event. X and Y are canvas pixels.
// Buttons is 1 for the primary and 2 for the secondary button, 0 for none.
type PointerEvent struct {
	X, Y             float64
	ClientX, ClientY float64
	PageX, PageY     float64
	Buttons          int
	Button           int
	Ctrl             bool
	Shift            bool
	Alt              bool
	Meta             bool
}

func (ev PointerEvent) ctrl() bool { return ev.Ctrl || ev.Meta }

func (e *Editor) PointerDown(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("pointer-down")
	e.pointerDown(ev)
}

func (e *Editor) PointerMove(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("pointer-move")
	e.pointerMove(ev)
}

func (e *Editor) PointerUp(ev PointerEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("pointer-up")
	e.pointerUp(ev)
}

func (e *Editor) pointerDown(ev PointerEvent) {
	st := e.store
	if ev.Buttons == 2 && e.drawing == nil {
		e.right = rightDown
	}
	if st.Data.Locked == scene.LockDisable || (ev.Buttons != 1 && ev.Buttons != 2) {
		e.hover = hit.HoverNone
		return
	}
	pt := e.calibrate(ev.X, ev.Y)
	e.down = &pointerDown{pt: pt, screen: vector.Pt{X: ev.X, Y: ev.Y}, ev: ev}
	e.downAt = e.c.Clock.Now()
	e.last = pt
	e.lastScreen = vector.Pt{X: ev.X, Y: ev.Y}
	e.moved = false

	if e.hotkey == hit.HotkeyTranslate || (e.right == rightDown && !st.Options.MouseRightActive) {
		e.mode = ModeTranslate
		return
	}

	res := e.test(pt, false, ev)
	e.applyHover(res)
	e.down.hover = res.Type

	if e.drawing != nil || e.drawingName != "" {
		e.clickDrawing(pt, ev, res)
		e.render()
		return
	}

	switch res.Type {
	case hit.HoverNone:
		e.inactive()
		if ev.Buttons == 1 {
			e.mode = ModeBoxSelect
		}
	case hit.HoverNode, hit.HoverLine:
		if e.hotkey == hit.HotkeyAddAnchor && res.Type == hit.HoverLine && res.PointAt != nil && st.Data.Locked == scene.LockNone {
			e.insertAnchor(res)
			break
		}
		e.selectAt(res, ev)
	case hit.HoverLineAnchor:
		e.beginAnchorDrag(res)
	case hit.HoverNodeAnchor:
		e.mode = ModeDrawConnector
		e.drawFrom = &anchorRef{shape: res.Shape, anchor: res.Anchor.ID}
	case hit.HoverLineAnchorPrev, hit.HoverLineAnchorNext:
		st.ActiveAnchor = res.Anchor
		e.activeAnchorID = res.Anchor.ID
		e.control = res.Type
		e.mode = ModeDragControl
	case hit.HoverResize:
		e.mode = ModeResize
		e.handleIndex = res.HandleIndex
		e.beginTransform()
	case hit.HoverRotate:
		e.mode = ModeRotate
		e.beginTransform()
	}
	e.render()
}

// selectAt applies the selection rules for a press on a shape body.
func (e *Editor) selectAt(res hit.Result, ev PointerEvent) {
	st := e.store
	target := res.Shape
	if target == nil {
		// the move affordance over the selection
		e.mode = ModeSelectSingle
		e.beginMove()
		return
	}
	switch {
	case ev.ctrl() && !ev.Shift:
		target = e.promote(target)
		if st.IsActive(target) {
			e.willInactive = target
		} else {
			st.SetActive(append(append([]*scene.Shape(nil), st.Active...), target))
			e.touchLayers([]*scene.Shape{target})
			e.emit(Event{Name: EventActive, Shapes: []*scene.Shape{target}})
		}
		e.mode = ModeSelectAdd
	case ev.ctrl() && ev.Shift && target.ParentID != "":
		e.selectShapes([]*scene.Shape{target})
		e.mode = ModeSelectSingle
	default:
		target = e.promote(target)
		if !st.IsActive(target) {
			e.selectShapes([]*scene.Shape{target})
			if st.Options.ResizeMode && !target.IsLine() {
				e.hotkey = hit.HotkeyResize
			}
		}
		e.mode = ModeSelectSingle
	}
	e.calcActiveRect()
	e.beginMove()
}

// promote climbs from a hit child to its outermost ancestor that is not
// selected, so a first click picks the group and a second drills in.
func (e *Editor) promote(s *scene.Shape) *scene.Shape {
	st := e.store
	seen := map[string]bool{s.ID: true}
	for p := st.Parent(s); p != nil && !seen[p.ID]; p = st.Parent(p) {
		if st.IsActive(p) {
			break
		}
		seen[p.ID] = true
		s = p
	}
	return s
}

func (e *Editor) beginMove() {
	e.initActiveRect = nil
	if e.activeRect != nil {
		r := *e.activeRect
		e.initActiveRect = &r
	}
	e.guides = nil
}

// beginTransform snapshots the selection for a resize or rotate drag.
func (e *Editor) beginTransform() {
	e.beginMove()
	e.transform = e.movable()
	e.initRects = make(map[*scene.Shape]vector.Rect, len(e.transform))
	for _, s := range e.transform {
		e.initRects[s] = s.Calc.WorldRect
	}
	e.lastRotate = 0
}

// movable returns the selected shapes a drag may change. Shapes whose
// ancestor is also selected follow it and are left out.
func (e *Editor) movable() []*scene.Shape {
	st := e.store
	var out []*scene.Shape
	for _, s := range st.Active {
		if s.Locked >= scene.LockDisableMove || s.Hidden || e.ancestorActive(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (e *Editor) ancestorActive(s *scene.Shape) bool {
	st := e.store
	seen := map[string]bool{s.ID: true}
	for p := st.Parent(s); p != nil && !seen[p.ID]; p = st.Parent(p) {
		if st.IsActive(p) {
			return true
		}
		seen[p.ID] = true
	}
	return false
}

func (e *Editor) pointerMove(ev PointerEvent) {
	st := e.store
	if st.Data.Locked == scene.LockDisable {
		e.hover = hit.HoverNone
		return
	}
	if e.down != nil && ev.Buttons != 1 && ev.Buttons != 2 {
		// released outside the canvas
		e.pointerUp(ev)
		return
	}
	now := e.c.Clock.Now()
	if !e.downAt.IsZero() {
		early := now.Sub(e.downAt) < moveThrottle
		e.downAt = time.Time{}
		if early {
			return
		}
	}
	pt := e.calibrate(ev.X, ev.Y)
	screen := vector.Pt{X: ev.X, Y: ev.Y}

	if e.down != nil {
		if e.right == rightDown {
			e.right = rightTranslate
		}
		locked := st.Data.Locked
		if e.mode == ModeTranslate || e.right == rightTranslate || e.hotkey == hit.HotkeyTranslate ||
			locked == scene.LockDisableEdit || locked == scene.LockDisableScale {
			e.panDrag(ev)
			e.lastScreen = screen
			return
		}
		if locked != scene.LockNone {
			return
		}
	}

	if e.dragRect == nil && now.Sub(e.lastHover) >= hoverThrottle {
		e.lastHover = now
		e.applyHover(e.test(pt, e.down != nil, ev))
	}

	if e.down != nil {
		switch e.mode {
		case ModeBoxSelect:
			r := vector.RectOfPoints([]vector.Pt{e.down.pt, pt})
			e.dragRect = &r
		case ModeSelectSingle, ModeSelectAdd:
			e.moveActive(pt, ev)
		case ModeResize:
			e.resizeActive(pt, ev)
		case ModeRotate:
			e.rotateActive(pt, ev)
		case ModeDragAnchor, ModeDragConnectorEndpoint:
			e.moveLineAnchor(pt, ev)
		case ModeDragControl:
			e.moveControl(pt, ev)
		case ModeDrawConnector:
			e.dragDrawing(pt, ev)
		}
	} else if e.drawing != nil {
		e.updateDrawing(pt, ev)
	}
	e.last = pt
	e.lastScreen = screen
	e.render()
}

func (e *Editor) pointerUp(ev PointerEvent) {
	st := e.store
	if st.Data.Locked == scene.LockDisable {
		e.hover = hit.HoverNone
		e.resetPointer()
		return
	}
	if e.down == nil {
		e.right = rightNone
		return
	}
	pt := e.calibrate(ev.X, ev.Y)

	switch e.mode {
	case ModeBoxSelect:
		if e.dragRect != nil {
			e.boxSelect(*e.dragRect)
		}
	case ModeDragConnectorEndpoint:
		e.finishEndpointDrag(pt, ev)
	case ModeDrawConnector:
		if e.drawing != nil {
			e.finishDrawnConnector(pt, ev)
		}
	case ModeSelectSingle, ModeSelectAdd:
		if e.moved {
			e.record(OpMove, e.movable())
		}
	case ModeResize:
		if e.moved {
			e.record(OpResize, e.transform)
		}
	case ModeRotate:
		if e.moved {
			for _, s := range e.transform {
				s.Rotate = normalizeAngle(s.Rotate)
			}
			e.record(OpRotate, e.transform)
		}
	case ModeDragAnchor, ModeDragControl:
		if e.moved && len(st.Active) == 1 {
			e.record(OpAnchor, st.Active)
		}
	case ModeTranslate:
		if e.right == rightDown {
			e.emit(Event{Name: EventContextMenu, Point: vector.Pt{X: ev.X, Y: ev.Y}})
		}
	}

	if w := e.willInactive; w != nil {
		var kept []*scene.Shape
		for _, s := range st.Active {
			if s != w {
				kept = append(kept, s)
			}
		}
		st.SetActive(kept)
		e.touchLayers([]*scene.Shape{w})
		e.emit(Event{Name: EventInactive, Shapes: []*scene.Shape{w}})
	}
	if e.mode != ModeBoxSelect {
		e.calcActiveRect()
	}
	e.resetPointer()
	e.render()
}

// test runs the hit tester with the current interaction state.
func (e *Editor) test(pt vector.Pt, mouseDown bool, ev PointerEvent) hit.Result {
	st := e.store
	o := hit.Options{
		MouseDown:  mouseDown,
		Drawing:    e.drawing != nil || e.mode == ModeDrawConnector,
		Hotkey:     e.hotkey,
		ActiveRect: e.activeRect,
		Ctrl:       ev.ctrl(),
	}
	if e.down != nil {
		o.Hover = e.down.hover
	}
	if (e.mode == ModeDragConnectorEndpoint || e.mode == ModeDragAnchor) && len(st.Active) == 1 {
		o.Exclude = st.Active[0]
	}
	return e.hit.Test(pt, o)
}

// applyHover stores a hit result as the current hover state.
func (e *Editor) applyHover(res hit.Result) {
	st := e.store
	e.hover = res.Type
	e.cursor = res.Cursor
	if e.down == nil {
		e.handleIndex = res.HandleIndex
	}
	st.Hover = res.Shape
	st.HoverAnchor = res.Anchor
	st.PointAt = res.PointAt
	st.PointAtIndex = res.PointAtIndex
	if st.LastHover == st.Hover {
		return
	}
	if st.LastHover != nil {
		st.LastHover.Calc.Hover = false
		e.touchLayers([]*scene.Shape{st.LastHover})
	}
	if st.Hover != nil {
		st.Hover.Calc.Hover = true
		e.touchLayers([]*scene.Shape{st.Hover})
	}
	st.LastHover = st.Hover
}

func normalizeAngle(a float64) float64 {
	for a < 0 {
		a += 360
	}
	for a >= 360 {
		a -= 360
	}
	return a
}
