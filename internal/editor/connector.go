/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"diagramcore/internal/hit"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

func isEndpoint(line *scene.Shape, anchorID string) bool {
	w := line.Calc.WorldAnchors
	if len(w) == 0 || line.Close {
		return false
	}
	return w[0].ID == anchorID || w[len(w)-1].ID == anchorID
}

func (e *Editor) activeLine() *scene.Shape {
	if a := e.store.Active; len(a) == 1 && a[0].IsLine() {
		return a[0]
	}
	return nil
}

func (e *Editor) beginAnchorDrag(res hit.Result) {
	st := e.store
	line := res.Shape
	if e.activeLine() != line {
		e.selectShapes([]*scene.Shape{line})
	}
	e.activeAnchorID = res.Anchor.ID
	st.ActiveAnchor = res.Anchor
	if isEndpoint(line, res.Anchor.ID) {
		e.mode = ModeDragConnectorEndpoint
	} else {
		e.mode = ModeDragAnchor
	}
}

// moveLineAnchor drags the active anchor of the selected connector. An
// endpoint snaps onto the anchor under the pointer; otherwise the point
// docks to nearby anchors.
func (e *Editor) moveLineAnchor(pt vector.Pt, ev PointerEvent) {
	st := e.store
	line := e.activeLine()
	if line == nil || line.Locked != scene.LockNone {
		return
	}
	a := line.WorldAnchor(e.activeAnchorID)
	if a == nil {
		return
	}
	target := pt
	e.guides = nil
	snapped := false
	if e.mode == ModeDragConnectorEndpoint && (e.hover == hit.HoverNodeAnchor || e.hover == hit.HoverLineAnchor) &&
		st.HoverAnchor != nil && st.HoverAnchor.PenID != line.ID {
		target = st.HoverAnchor.Pt()
		snapped = true
	}
	if !snapped && !st.Options.DisableDock && !ev.ctrl() {
		target, e.guides = vector.DockPoint(pt, e.dockCandidates(line, a.ID), st.Options.DockThreshold)
	}
	if a.ConnectTo != "" {
		st.Disconnect(line, a.ID)
	}
	shiftAnchor(a, target.X-a.X, target.Y-a.Y)
	if err := st.InitLineRect(line); err != nil {
		e.log.Warn("anchor move failed", "shape", line.ID, "err", err)
	}
	// world anchors were rebuilt
	st.ActiveAnchor = line.WorldAnchor(e.activeAnchorID)
	e.calcActiveRect()
	e.moved = true
}

// dockCandidates are the visible anchors a dragged point can align with,
// excluding the point itself.
func (e *Editor) dockCandidates(owner *scene.Shape, anchorID string) []vector.Pt {
	var out []vector.Pt
	for _, s := range e.store.Shapes() {
		if s.Hidden || !s.Calc.InView {
			continue
		}
		for _, a := range s.Calc.WorldAnchors {
			if s == owner && a.ID == anchorID {
				continue
			}
			out = append(out, a.Pt())
		}
	}
	return out
}

// moveControl drags a bezier control point. The opposite control mirrors it
// unless shift is held.
func (e *Editor) moveControl(pt vector.Pt, ev PointerEvent) {
	st := e.store
	line := e.activeLine()
	if line == nil || line.Locked != scene.LockNone {
		return
	}
	a := line.WorldAnchor(e.activeAnchorID)
	if a == nil {
		return
	}
	p := pt
	mirror := vector.Pt{X: 2*a.X - p.X, Y: 2*a.Y - p.Y}
	if e.control == hit.HoverLineAnchorPrev {
		a.Prev = &p
		if !ev.Shift && a.Next != nil {
			a.Next = &mirror
		}
	} else {
		a.Next = &p
		if !ev.Shift && a.Prev != nil {
			a.Prev = &mirror
		}
	}
	if err := st.InitLineRect(line); err != nil {
		e.log.Warn("control move failed", "shape", line.ID, "err", err)
	}
	st.ActiveAnchor = line.WorldAnchor(e.activeAnchorID)
	e.calcActiveRect()
	e.moved = true
}

// finishEndpointDrag glues a released connector end to the anchor under it,
// or merges two connectors when ctrl or alt is held over another
// connector's end.
func (e *Editor) finishEndpointDrag(pt vector.Pt, ev PointerEvent) {
	st := e.store
	line := e.activeLine()
	if line == nil {
		return
	}
	a := line.WorldAnchor(e.activeAnchorID)
	if a == nil {
		return
	}
	res := e.test(pt, true, ev)
	if res.Anchor == nil || res.Shape == nil || res.Shape == line ||
		(res.Type != hit.HoverNodeAnchor && res.Type != hit.HoverLineAnchor) {
		if e.moved {
			e.record(OpAnchor, []*scene.Shape{line})
		}
		return
	}
	if (ev.ctrl() || ev.Alt) && res.Shape.IsLine() && isEndpoint(res.Shape, res.Anchor.ID) {
		e.merge(line, a.ID, res.Shape, res.Anchor.ID)
		return
	}
	shiftAnchor(a, res.Anchor.X-a.X, res.Anchor.Y-a.Y)
	if err := st.InitLineRect(line); err != nil {
		e.log.Warn("connector update failed", "shape", line.ID, "err", err)
	}
	st.Connect(res.Shape, res.Anchor.ID, line, e.activeAnchorID)
	st.ActiveAnchor = line.WorldAnchor(e.activeAnchorID)
	e.record(OpConnect, []*scene.Shape{line, res.Shape})
}

type glue struct {
	node       *scene.Shape
	nodeAnchor string
	lineAnchor string
}

// merge joins connector other onto line at the dragged endpoint. The
// other connector's points are appended in path order and it is deleted.
func (e *Editor) merge(line *scene.Shape, anchorID string, other *scene.Shape, otherAnchorID string) {
	st := e.store
	world := line.Calc.WorldAnchors
	activeFrom := world[0].ID == anchorID
	ow := other.Calc.WorldAnchors
	hoverFrom := ow[0].ID == otherAnchorID

	taken := make(map[string]bool, len(world)+len(ow))
	for _, a := range world {
		taken[a.ID] = true
	}
	var glues []glue
	extra := make([]*scene.Anchor, 0, len(ow))
	for _, a := range ow {
		c := a.Clone()
		c.PenID = line.ID
		if taken[c.ID] {
			c.ID = scene.NewAnchorID()
		}
		taken[c.ID] = true
		if c.ConnectTo != "" {
			if n := st.Get(c.ConnectTo); n != nil && n != line {
				glues = append(glues, glue{node: n, nodeAnchor: c.AnchorID, lineAnchor: c.ID})
			}
			c.ConnectTo, c.AnchorID = "", ""
		}
		extra = append(extra, c)
	}
	if hoverFrom {
		extra = extra[1:]
	} else {
		extra = extra[:len(extra)-1]
	}
	if activeFrom == hoverFrom {
		for i, j := 0, len(extra)-1; i < j; i, j = i+1, j-1 {
			extra[i], extra[j] = extra[j], extra[i]
		}
	}

	st.Disconnect(line, anchorID)
	st.Remove(other)
	if activeFrom {
		line.Calc.WorldAnchors = append(extra, world...)
	} else {
		line.Calc.WorldAnchors = append(append([]*scene.Anchor(nil), world...), extra...)
	}
	if err := st.InitLineRect(line); err != nil {
		e.log.Warn("merge failed", "shape", line.ID, "err", err)
	}
	for _, g := range glues {
		if st.Get(g.node.ID) == g.node {
			st.Connect(g.node, g.nodeAnchor, line, g.lineAnchor)
		}
	}
	e.log.Debug("connectors merged", "line", line.ID, "removed", other.ID)
	e.record(OpMerge, []*scene.Shape{line})
	e.emit(Event{Name: EventDelete, Shapes: []*scene.Shape{other}})
	e.emit(Event{Name: EventMerge, Shapes: []*scene.Shape{line}})
	e.selectShapes([]*scene.Shape{line})
}

// insertAnchor adds a point to a connector where the pointer hit it and
// starts dragging the new point.
func (e *Editor) insertAnchor(res hit.Result) {
	st := e.store
	line := res.Shape
	if line.Locked != scene.LockNone || res.PointAtIndex < 0 {
		return
	}
	at := *res.PointAt
	na := &scene.Anchor{ID: scene.NewAnchorID(), PenID: line.ID, X: at.X, Y: at.Y}
	world := line.Calc.WorldAnchors
	idx := res.PointAtIndex + 1
	if idx > len(world) {
		idx = len(world)
	}
	next := make([]*scene.Anchor, 0, len(world)+1)
	next = append(next, world[:idx]...)
	next = append(next, na)
	next = append(next, world[idx:]...)
	line.Calc.WorldAnchors = next
	if err := st.InitLineRect(line); err != nil {
		e.log.Warn("anchor insert failed", "shape", line.ID, "err", err)
	}
	e.selectShapes([]*scene.Shape{line})
	e.activeAnchorID = na.ID
	st.ActiveAnchor = line.WorldAnchor(na.ID)
	e.mode = ModeDragAnchor
	e.moved = true
}

// boxSelect selects the root shapes picked by the drag rectangle.
// Connectors only need to cross it unless DragAllIn is set.
func (e *Editor) boxSelect(r vector.Rect) {
	st := e.store
	allIn := st.Options.DragAllIn
	var picked []*scene.Shape
	for _, s := range st.Shapes() {
		if s.Hidden || s.Locked >= scene.LockDisableMove || s.ParentID != "" || s.IsRuleLine {
			continue
		}
		if s.IsLine() && !allIn {
			if lineInRect(s, r) {
				picked = append(picked, s)
			}
			continue
		}
		if vector.RectInRect(s.Calc.WorldRect, r, allIn) {
			picked = append(picked, s)
		}
	}
	e.selectShapes(picked)
}

// lineInRect reports whether a connector has a point inside r or a segment
// crossing one of its edges.
func lineInRect(s *scene.Shape, r vector.Rect) bool {
	world := s.Calc.WorldAnchors
	for _, a := range world {
		if r.Contains(a.Pt()) {
			return true
		}
	}
	corners := vector.RectToPoints(r)
	segment := func(p, q vector.Pt) bool {
		for i := range corners {
			if vector.SegmentsIntersect(p, q, corners[i], corners[(i+1)%len(corners)]) {
				return true
			}
		}
		return false
	}
	for i := 1; i < len(world); i++ {
		if segment(world[i-1].Pt(), world[i].Pt()) {
			return true
		}
	}
	if s.Close && len(world) > 2 {
		return segment(world[len(world)-1].Pt(), world[0].Pt())
	}
	return false
}
