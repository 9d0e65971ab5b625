/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package hit

import (
	"math"

	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// inShapes walks shapes top-most first. Children of a node are tested
// before its body.
func (t *Tester) inShapes(pt vector.Pt, shapes []*scene.Shape, o Options) Result {
	st := t.store
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if s == o.Exclude || s.Hidden || !s.Calc.InView || s.Locked == scene.LockDisable {
			continue
		}
		r := s.Calc.WorldRect
		if !s.Calc.Active && !vector.PointInSimpleRect(pt, r, s.LineR()) && !vector.PointInRect(pt, r) {
			continue
		}
		if st.Data.Locked == scene.LockNone && o.Hotkey != HotkeyResize {
			for _, a := range s.Calc.WorldAnchors {
				if res := t.inAnchor(pt, s, a, o); res.Type != HoverNone {
					return res
				}
			}
		}
		if s.IsLine() {
			if s.IsRuleLine && !t.inRuleBand(pt) {
				continue
			}
			if at, idx, ok := PointInLine(pt, s); ok {
				res := none()
				res.Type = HoverLine
				res.Shape = s
				res.Cursor = t.bodyCursor(s, o)
				res.PointAt = &at
				res.PointAtIndex = idx
				return res
			}
			continue
		}
		if len(s.Children) > 0 {
			if res := t.inShapes(pt, st.Children(s), o); res.Type != HoverNone {
				return res
			}
		}
		var in bool
		if s.WorldPath() {
			in = vector.PointInSimpleRect(pt, r, s.LineWidth) && vector.PointInPolygon(pt, anchorPts(s.Calc.WorldAnchors))
		} else {
			in = vector.PointInRect(pt, r)
		}
		if !in {
			continue
		}
		res := none()
		res.Type = HoverNode
		res.Shape = s
		res.Cursor = t.bodyCursor(s, o)
		at := pt
		if !o.Ctrl {
			at = snapToEdge(pt, r)
		}
		res.PointAt = &at
		return res
	}
	return none()
}

// inRuleBand reports whether pt, in world coordinates, is over the ruler
// strip along the top or left edge of the viewport.
func (t *Tester) inRuleBand(pt vector.Pt) bool {
	st := t.store
	h := st.Options.RuleHeight
	if h <= 0 {
		h = 20
	}
	return pt.X+st.Data.X <= h || pt.Y+st.Data.Y <= h
}

func (t *Tester) bodyCursor(s *scene.Shape, o Options) string {
	if t.store.Data.Locked != scene.LockNone || s.Locked != scene.LockNone {
		return t.store.Options.HoverCursor
	}
	if o.Hotkey == HotkeyAddAnchor {
		return CursorPointer
	}
	return CursorMove
}

// inAnchor classifies a single anchor of s. Glued connector endpoints
// resolve to the anchor they are glued to.
func (t *Tester) inAnchor(pt vector.Pt, s *scene.Shape, a *scene.Anchor, o Options) Result {
	st := t.store
	miss := none()
	if a == nil || a.Locked > scene.LockDisableEdit {
		return miss
	}
	if (!(s.IsLine() && s.Calc.Active) && st.Options.DisableAnchor) || s.DisableAnchor {
		return miss
	}
	if (o.MouseDown || o.Drawing) && s.IsLine() && a.ConnectTo != "" {
		if target := st.Get(a.ConnectTo); target != nil && !target.Calc.Active {
			s = target
			if ta := target.WorldAnchor(a.AnchorID); ta != nil {
				a = ta
			}
		}
	}
	if !Accepts(a, s, st, o) {
		return miss
	}
	if t.anchorHit(pt, s, a) {
		res := none()
		res.Shape = s
		res.Anchor = a
		if s.IsLine() {
			if a.ConnectTo != "" && !s.Calc.Active {
				target := st.Get(a.ConnectTo)
				if target == nil {
					t.log.Debug("glued anchor target missing", "line", s.ID, "target", a.ConnectTo)
					return miss
				}
				ta := target.WorldAnchor(a.AnchorID)
				if ta == nil {
					return miss
				}
				res.Shape, res.Anchor = target, ta
				res.Type = HoverNodeAnchor
				res.Cursor = CursorCrosshair
				return res
			}
			res.Type = HoverLineAnchor
			res.Cursor = CursorPointer
			if o.Hotkey == HotkeyAddAnchor {
				res.Cursor = CursorVerticalText
			}
			return res
		}
		res.Type = HoverNodeAnchor
		res.Cursor = CursorCrosshair
		if o.Hotkey == HotkeyAddAnchor {
			res.Cursor = CursorVerticalText
		}
		return res
	}
	if !o.MouseDown && s.IsLine() && s.Calc.Active {
		res := none()
		res.Shape = s
		res.Anchor = a
		res.Cursor = CursorPointer
		if a.Prev != nil && vector.HitPoint(pt, *a.Prev, PointSize) {
			res.Type = HoverLineAnchorPrev
			return res
		}
		if a.Next != nil && vector.HitPoint(pt, *a.Next, PointSize) {
			res.Type = HoverLineAnchorNext
			return res
		}
	}
	return miss
}

// Accepts applies the one-way rules of an anchor: disabled node anchors are
// never hit, a connector end glued to a one-way anchor cannot be picked up,
// outbound-only anchors refuse a connector being drawn and inbound-only
// anchors refuse to start one.
func Accepts(a *scene.Anchor, owner *scene.Shape, st *scene.Store, o Options) bool {
	if a.TwoWay == scene.TwoWayDisable && !owner.IsLine() {
		return false
	}
	if owner.IsLine() && a.ConnectTo != "" {
		if target := st.Get(a.ConnectTo); target != nil {
			if ta := target.WorldAnchor(a.AnchorID); ta != nil && ta.TwoWay != scene.TwoWayDefault {
				return false
			}
		}
	}
	if o.Drawing {
		return a.TwoWay != scene.TwoWayOut
	}
	if o.MouseDown && o.Hover == HoverLineAnchor {
		return true
	}
	return a.TwoWay != scene.TwoWayIn
}

// anchorHit is the square test, or a rotated bar for line-type anchors.
func (t *Tester) anchorHit(pt vector.Pt, s *scene.Shape, a *scene.Anchor) bool {
	if a.Type != scene.PointLine {
		return vector.HitPoint(pt, a.Pt(), PointSize)
	}
	rotate := a.Rotate
	if s.FlipX != s.FlipY {
		rotate = -rotate
	}
	l := a.Length * t.store.Data.Scale
	return vector.PointInRect(pt, vector.Rect{X: a.X - l/2, Y: a.Y - PointSize, W: l, H: PointSize * 2, Rotate: rotate})
}

// PointInLine finds the connector segment within the line tolerance of pt.
// It returns the projected point and the index of the segment's first anchor.
func PointInLine(pt vector.Pt, s *scene.Shape) (vector.Pt, int, bool) {
	r := s.LineR()
	world := s.Calc.WorldAnchors
	for i := 1; i < len(world); i++ {
		if at, ok := pointInSegment(pt, world[i-1], world[i], r); ok {
			return at, i - 1, true
		}
	}
	if s.Close && len(world) > 1 {
		last := len(world) - 1
		if at, ok := pointInSegment(pt, world[last], world[0], r); ok {
			return at, last, true
		}
	}
	return vector.Pt{}, -1, false
}

func pointInSegment(pt vector.Pt, from, to *scene.Anchor, r float64) (vector.Pt, bool) {
	if from.Next == nil && to.Prev == nil {
		return vector.PointInSegment(pt, from.Pt(), to.Pt(), r)
	}
	for _, c := range from.Curve {
		if vector.HitPoint(pt, c, r) {
			return c, true
		}
	}
	return vector.Pt{}, false
}

// snapToEdge pulls p onto an edge of r that is closer than edgeSnap.
func snapToEdge(p vector.Pt, r vector.Rect) vector.Pt {
	if r.Rotate != 0 {
		pts := vector.RectToPoints(r)
		last := pts[len(pts)-1]
		for _, q := range pts {
			if (last.Y > p.Y) != (q.Y > p.Y) {
				x := q.X + (p.Y-q.Y)*(last.X-q.X)/(last.Y-q.Y)
				if math.Abs(x-p.X) < edgeSnap {
					p.X = x
				}
			}
			last = q
		}
		return p
	}
	if p.X-edgeSnap < r.X {
		p.X = r.X
	} else if p.X+edgeSnap > r.EX() {
		p.X = r.EX()
	}
	if p.Y-edgeSnap < r.Y {
		p.Y = r.Y
	} else if p.Y+edgeSnap > r.EY() {
		p.Y = r.EY()
	}
	return p
}

func anchorPts(anchors []*scene.Anchor) []vector.Pt {
	out := make([]vector.Pt, len(anchors))
	for i, a := range anchors {
		out[i] = a.Pt()
	}
	return out
}
