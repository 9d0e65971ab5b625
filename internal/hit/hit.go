/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package hit classifies what lies under the pointer: a selection handle, an
// anchor, a connector segment, a node body or nothing.
package hit

import (
	"log/slog"
	"math"

	applog "diagramcore/internal/log"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// HoverType is the pointer-over classification.
type HoverType uint8

const (
	HoverNone HoverType = iota
	HoverNode
	HoverLine
	HoverLineAnchor
	HoverNodeAnchor
	HoverResize
	HoverRotate
	HoverLineAnchorPrev
	HoverLineAnchorNext
)

func (h HoverType) String() string {
	switch h {
	case HoverNode:
		return "node"
	case HoverLine:
		return "line"
	case HoverLineAnchor:
		return "line-anchor"
	case HoverNodeAnchor:
		return "node-anchor"
	case HoverResize:
		return "resize"
	case HoverRotate:
		return "rotate"
	case HoverLineAnchorPrev:
		return "line-anchor-prev"
	case HoverLineAnchorNext:
		return "line-anchor-next"
	default:
		return "none"
	}
}

// Hotkey is a held mode that changes what can be hit.
type Hotkey uint8

const (
	HotkeyNone Hotkey = iota
	HotkeyTranslate
	HotkeyResize
	HotkeyAddAnchor
)

const (
	CursorDefault      = "default"
	CursorPointer      = "pointer"
	CursorMove         = "move"
	CursorCrosshair    = "crosshair"
	CursorVerticalText = "vertical-text"
)

// PointSize is the half side of the square used for anchors and handles.
const PointSize = 8

// RotateOffset is the distance of the rotate handle above the active rect.
const RotateOffset = 30

// edgeSnap is how close pointAt must be to a node edge to stick to it.
const edgeSnap = 10

var (
	defaultCursors = [4]string{"nwse-resize", "nesw-resize", "nwse-resize", "nesw-resize"}
	rotatedCursors = [4]string{"ns-resize", "ew-resize", "ns-resize", "ew-resize"}
)

// Options is the interaction state the classification depends on.
type Options struct {
	MouseDown bool
	// Drawing is set while a connector is being drawn.
	Drawing bool
	// Hover is the classification made at pointer-down.
	Hover  HoverType
	Hotkey Hotkey
	// Exclude is never hit, e.g. the connector whose endpoint is dragged.
	Exclude *scene.Shape
	// ActiveRect is the selection bounds; nil without a movable selection.
	ActiveRect *vector.Rect
	// Ctrl turns off edge snapping of PointAt.
	Ctrl bool
}

// Result describes the hit. Shape is nil for the selection handles and for
// the move affordance over the active rect.
type Result struct {
	Type         HoverType
	Shape        *scene.Shape
	Anchor       *scene.Anchor
	Cursor       string
	HandleIndex  int
	PointAt      *vector.Pt
	PointAtIndex int
}

func none() Result { return Result{HandleIndex: -1, PointAtIndex: -1} }

// Tester runs hit tests against one scene. It never mutates the scene.
type Tester struct {
	store *scene.Store
	log   *slog.Logger
}

func New(st *scene.Store) *Tester {
	return &Tester{store: st, log: applog.WithComponent("hit")}
}

// Test classifies pt, given in world coordinates.
func (t *Tester) Test(pt vector.Pt, o Options) Result {
	st := t.store
	res := none()
	activeLine := len(st.Active) == 1 && st.Active[0].IsLine()

	if o.Hotkey != HotkeyAddAnchor && o.ActiveRect != nil && !activeLine && st.Data.Locked == scene.LockNone {
		res = t.handles(pt, *o.ActiveRect, o)
	}
	if res.Type == HoverNone {
		res = t.inShapes(pt, st.Shapes(), o)
	}
	if res.Type == HoverNone && !activeLine && o.ActiveRect != nil && vector.PointInRect(pt, *o.ActiveRect) {
		res = none()
		res.Type = HoverNode
		res.Cursor = CursorMove
	}
	if res.Type == HoverNone {
		res.Cursor = CursorDefault
		if o.Drawing {
			res.Cursor = CursorCrosshair
		}
	}
	return res
}

func (t *Tester) handles(pt vector.Pt, ar vector.Rect, o Options) Result {
	st := t.store
	res := none()
	locked := allActive(st.Active, func(s *scene.Shape) bool { return s.Locked != scene.LockNone })
	noRotate := st.Options.DisableRotate || allActive(st.Active, func(s *scene.Shape) bool { return s.DisableRotate })
	noSize := st.Options.DisableSize || allActive(st.Active, func(s *scene.Shape) bool { return s.DisableSize })
	if locked {
		return res
	}
	if !noRotate && o.Hotkey == HotkeyNone && vector.HitPoint(pt, RotateHandle(ar), PointSize) {
		res.Type = HoverRotate
		res.Cursor = st.Options.RotateCursor
		return res
	}
	if noSize {
		return res
	}
	for i, cp := range SizeCPs(ar) {
		enabled := o.Hotkey == HotkeyResize || (i < 4 && o.Hotkey == HotkeyNone)
		if enabled && vector.HitPoint(pt, cp, PointSize) {
			res.Type = HoverResize
			res.HandleIndex = i
			res.Cursor = ResizeCursor(i, ar.Rotate)
			return res
		}
	}
	return res
}

func allActive(active []*scene.Shape, pred func(*scene.Shape) bool) bool {
	if len(active) == 0 {
		return false
	}
	for _, s := range active {
		if !pred(s) {
			return false
		}
	}
	return true
}

// RotateHandle is the rotate control point above the top edge of r.
func RotateHandle(r vector.Rect) vector.Pt {
	c := r.Center()
	return vector.RotatePoint(vector.Pt{X: c.X, Y: r.Y - RotateOffset}, r.Rotate, c)
}

// SizeCPs returns the eight resize handles of r: the corners (TL, TR, BR,
// BL) followed by the edge midpoints (top, right, bottom, left).
func SizeCPs(r vector.Rect) []vector.Pt {
	pts := vector.RectToPoints(r)
	c := r.Center()
	for _, f := range [4]vector.Pt{{X: 0.5, Y: 0}, {X: 1, Y: 0.5}, {X: 0.5, Y: 1}, {X: 0, Y: 0.5}} {
		pts = append(pts, vector.RotatePoint(vector.WorldPointOf(f, r), r.Rotate, c))
	}
	return pts
}

// ResizeCursor picks the cursor of handle i on a rect rotated by rotate.
// Near diagonal rotations corner and edge cursors swap sets.
func ResizeCursor(i int, rotate float64) string {
	first := i < 4
	cursors := defaultCursors
	if !first {
		cursors = rotatedCursors
	}
	var offset int
	if math.Abs(math.Mod(rotate, 90)-45) < 25 {
		if first {
			cursors = rotatedCursors
		} else {
			cursors = defaultCursors
		}
		offset = roundHalfUp((rotate - 45) / 90)
		if !first {
			offset++
		}
	} else {
		offset = roundHalfUp(rotate / 90)
	}
	return cursors[((i+offset)%4+4)%4]
}

func roundHalfUp(v float64) int { return int(math.Floor(v + 0.5)) }
