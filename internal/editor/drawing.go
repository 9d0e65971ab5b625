/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strconv"

	"diagramcore/internal/hit"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// SetDrawingLine turns click-by-click connector drawing on with the named
// connector kind, or off with "". Turning it off commits a pending line.
func (e *Editor) SetDrawingLine(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("drawing-line")
	if name == "" && e.drawing != nil {
		e.dropFloating()
		e.commitDrawing()
	}
	e.drawingName = name
	if name != "" {
		e.cursor = hit.CursorCrosshair
	}
	e.render()
}

// FinishDrawing ends click-by-click drawing and commits the line drawn so
// far. The point following the pointer is dropped.
func (e *Editor) FinishDrawing() *scene.Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("finish-drawing")
	if e.drawing == nil {
		return nil
	}
	e.dropFloating()
	line := e.commitDrawing()
	e.render()
	return line
}

func (e *Editor) dropFloating() {
	if w := e.drawing.Calc.WorldAnchors; len(w) > 0 {
		e.drawing.Calc.WorldAnchors = w[:len(w)-1]
	}
}

// newDrawing starts a two point connector at start whose second point
// follows the pointer.
func (e *Editor) newDrawing(start vector.Pt, from *anchorRef) *scene.Shape {
	name := e.drawingName
	if name == "" {
		name = "line"
	}
	line := &scene.Shape{ID: scene.NewID(), Name: name, Type: scene.KindLine, LineWidth: e.store.Options.LineWidth}
	a0 := &scene.Anchor{ID: "0", PenID: line.ID, X: start.X, Y: start.Y}
	if from != nil {
		a0.ConnectTo, a0.AnchorID = from.shape.ID, from.anchor
	}
	a1 := &scene.Anchor{ID: "1", PenID: line.ID, X: start.X, Y: start.Y}
	line.Calc.WorldAnchors = []*scene.Anchor{a0, a1}
	return line
}

// dragDrawing extends a connector pulled out of a node anchor. The line
// only comes into being on the first move.
func (e *Editor) dragDrawing(pt vector.Pt, ev PointerEvent) {
	if e.drawing == nil {
		from := e.drawFrom
		if from == nil {
			return
		}
		a := from.shape.WorldAnchor(from.anchor)
		if a == nil {
			e.mode = ModeNone
			return
		}
		e.drawing = e.newDrawing(a.Pt(), from)
	}
	e.updateDrawing(pt, ev)
}

// updateDrawing moves the trailing point of the drawn connector. Ctrl holds
// x, shift holds y and both lock the segment to 45 degree steps. Without a
// modifier the point snaps onto a hovered anchor, remembering the glue, or
// docks to nearby anchors.
func (e *Editor) updateDrawing(pt vector.Pt, ev PointerEvent) {
	st := e.store
	w := e.drawing.Calc.WorldAnchors
	if len(w) < 2 {
		return
	}
	to, prev := w[len(w)-1], w[len(w)-2]
	to.ConnectTo, to.AnchorID = "", ""
	e.guides = nil
	target := pt
	switch {
	case ev.ctrl() && ev.Shift:
		target = vector.SpecialAngle(prev.Pt(), target)
	case ev.ctrl():
		target.X = prev.X
	case ev.Shift:
		target.Y = prev.Y
	case (e.hover == hit.HoverNodeAnchor || e.hover == hit.HoverLineAnchor) && st.Hover != nil && st.HoverAnchor != nil:
		target = st.HoverAnchor.Pt()
		to.ConnectTo, to.AnchorID = st.Hover.ID, st.HoverAnchor.ID
	case !st.Options.DisableDock:
		target, e.guides = vector.DockPoint(target, e.dockCandidates(nil, ""), st.Options.DockThreshold)
	}
	to.X, to.Y = target.X, target.Y
}

// clickDrawing handles a press while click-by-click drawing is on: the
// first press starts a line, later presses fix a point, and a press on an
// anchor or with the secondary button finishes it.
func (e *Editor) clickDrawing(pt vector.Pt, ev PointerEvent, res hit.Result) {
	if e.store.Data.Locked != scene.LockNone {
		return
	}
	onAnchor := (res.Type == hit.HoverNodeAnchor || res.Type == hit.HoverLineAnchor) && res.Anchor != nil && res.Shape != nil
	if e.drawing == nil {
		if ev.Buttons != 1 {
			return
		}
		if onAnchor {
			e.drawing = e.newDrawing(res.Anchor.Pt(), &anchorRef{shape: res.Shape, anchor: res.Anchor.ID})
		} else {
			e.inactive()
			e.drawing = e.newDrawing(pt, nil)
		}
		return
	}
	if ev.Buttons == 2 {
		e.dropFloating()
		e.commitDrawing()
		return
	}
	w := e.drawing.Calc.WorldAnchors
	to := w[len(w)-1]
	if onAnchor {
		to.X, to.Y = res.Anchor.X, res.Anchor.Y
		to.ConnectTo, to.AnchorID = res.Shape.ID, res.Anchor.ID
		e.commitDrawing()
		return
	}
	e.updateDrawing(pt, ev)
	next := &scene.Anchor{ID: strconv.Itoa(len(w)), PenID: e.drawing.ID, X: to.X, Y: to.Y}
	e.drawing.Calc.WorldAnchors = append(w, next)
}

// finishDrawnConnector ends a drag out of a node anchor, gluing the end to
// the anchor under the pointer if there is one.
func (e *Editor) finishDrawnConnector(pt vector.Pt, ev PointerEvent) {
	w := e.drawing.Calc.WorldAnchors
	to := w[len(w)-1]
	res := e.test(pt, true, ev)
	if !ev.ctrl() && !ev.Shift && (res.Type == hit.HoverNodeAnchor || res.Type == hit.HoverLineAnchor) && res.Anchor != nil && res.Shape != nil {
		to.X, to.Y = res.Anchor.X, res.Anchor.Y
		to.ConnectTo, to.AnchorID = res.Shape.ID, res.Anchor.ID
	}
	e.commitDrawing()
}

// commitDrawing adds the drawn connector to the scene, glues its ends and
// selects it. Degenerate lines are discarded.
func (e *Editor) commitDrawing() *scene.Shape {
	st := e.store
	d := e.drawing
	e.drawing, e.drawFrom, e.guides = nil, nil, nil
	if d == nil {
		return nil
	}
	w := d.Calc.WorldAnchors
	if len(w) < 2 {
		return nil
	}
	pts := make([]vector.Pt, len(w))
	var glues []glue
	for i, a := range w {
		pts[i] = a.Pt()
		if n := st.Get(a.ConnectTo); n != nil {
			glues = append(glues, glue{node: n, nodeAnchor: a.AnchorID, lineAnchor: strconv.Itoa(i)})
		}
	}
	if r := vector.RectOfPoints(pts); r.W == 0 && r.H == 0 {
		e.log.Debug("degenerate connector discarded")
		return nil
	}
	line := scene.NewLine(pts...)
	line.ID, line.Name, line.LineWidth = d.ID, d.Name, d.LineWidth
	committed, err := st.Add(line)
	if err != nil || len(committed) == 0 {
		e.log.Warn("connector rejected", "err", err)
		return nil
	}
	for _, g := range glues {
		st.Connect(g.node, g.nodeAnchor, line, g.lineAnchor)
	}
	e.record(OpAdd, committed)
	e.emit(Event{Name: EventAdd, Shapes: committed})
	e.selectShapes(committed)
	return line
}
