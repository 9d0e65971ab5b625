/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"diagramcore/internal/hit"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// handleSize is the side of the square resize handles.
const handleSize = 8

func (r *Renderer) paintOverlay(p *painter, st *scene.Store, ov Overlay, pal palette) {
	if ov.ActiveRect != nil {
		ar := *ov.ActiveRect
		outline := &vector.Path{}
		outline.PolyPath(vector.RectToPoints(ar), true)
		p.StrokePath(outline, pal.active, 1)
		if ov.Rotate {
			circle(p, hit.RotateHandle(ar), 4, pal.anchorBackground, pal.active)
		}
		if ov.Handles || ov.EdgeHandles {
			for i, cp := range hit.SizeCPs(ar) {
				if i >= 4 && !ov.EdgeHandles {
					break
				}
				sq := &vector.Path{}
				sq.PolyPath(vector.RectToPoints(vector.Rect{
					X: cp.X - handleSize/2, Y: cp.Y - handleSize/2,
					W: handleSize, H: handleSize, Rotate: ar.Rotate,
				}), true)
				p.FillPath(sq, pal.anchorBackground)
				p.StrokePath(sq, pal.active, 1)
			}
		}
	}

	if h := ov.Hover; h != nil && !h.DisableAnchor && !st.Options.DisableAnchor && h.Locked < scene.LockDisableEdit {
		for _, a := range h.Calc.WorldAnchors {
			if a.Hidden || a.Locked > scene.LockDisableEdit {
				continue
			}
			fill := pal.anchorBackground
			if ov.HoverAnchor != nil && ov.HoverAnchor.ID == a.ID && ov.HoverAnchor.PenID == a.PenID {
				fill = pal.anchor
			}
			anchorDot(p, st, a, fill, pal.anchor)
		}
	}

	if l := ov.ActiveLine; l != nil {
		for _, a := range l.Calc.WorldAnchors {
			fill := pal.anchorBackground
			if ov.ActiveAnchor != nil && ov.ActiveAnchor.ID == a.ID && ov.ActiveAnchor.PenID == l.ID {
				fill = pal.active
				for _, cp := range []*vector.Pt{a.Prev, a.Next} {
					if cp == nil {
						continue
					}
					seg := &vector.Path{}
					seg.PolyPath([]vector.Pt{a.Pt(), *cp}, false)
					p.StrokePath(seg, pal.active, 1)
					circle(p, *cp, st.Options.AnchorRadius, pal.anchorBackground, pal.active)
				}
			}
			circle(p, a.Pt(), st.Options.AnchorRadius, fill, pal.active)
		}
	}

	if ov.PointAt != nil {
		circle(p, *ov.PointAt, st.Options.AnchorRadius, pal.anchor, pal.anchor)
	}

	if ov.DragRect != nil {
		box := &vector.Path{}
		box.RectPath(*ov.DragRect)
		p.FillPath(box, pal.drag.WithAlpha(0.2))
		p.StrokePath(box, pal.drag, 1)
	}

	for _, g := range ov.Guides {
		seg := &vector.Path{}
		seg.PolyPath([]vector.Pt{g.From, g.To}, false)
		p.StrokePath(seg, pal.dock, 1)
	}
}

func circle(p *painter, c vector.Pt, radius float64, fill, stroke vector.Color) {
	if radius <= 0 {
		radius = 4
	}
	path := &vector.Path{}
	path.EllipsePath(vector.R(c.X-radius, c.Y-radius, 2*radius, 2*radius))
	p.FillPath(path, fill)
	p.StrokePath(path, stroke, 1)
}

// anchorDot paints an anchor; line-type anchors are short rotated bars whose
// length follows the zoom.
func anchorDot(p *painter, st *scene.Store, a *scene.Anchor, fill, stroke vector.Color) {
	if a.Type != scene.PointLine {
		r := a.Radius
		if r <= 0 {
			r = st.Options.AnchorRadius
		}
		circle(p, a.Pt(), r, fill, stroke)
		return
	}
	l := a.Length * st.Data.Scale
	bar := &vector.Path{}
	bar.PolyPath(vector.RectToPoints(vector.Rect{X: a.X - l/2, Y: a.Y - 2, W: l, H: 4, Rotate: a.Rotate}), true)
	p.FillPath(bar, fill)
	p.StrokePath(bar, stroke, 1)
}
