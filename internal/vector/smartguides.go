/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Snapping helpers for interactive tools: rect guides while moving shapes and
// point docking while dragging anchors or drawing connectors.

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance in canvas pixels at which snapping
	// occurs. Typical UI values are 5–8.
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Target is a static reference rect (another shape's world rect).
// Weight biases selection when distances tie (higher = preferred).
type Target struct {
	Rect   Rect
	Weight float64
}

// Orientation of a guide line.
type Orientation uint8

const (
	Vertical Orientation = iota
	Horizontal
)

// GuideLine describes a visual guide generated during a snap alignment.
// Position is the x (vertical) or y (horizontal) coordinate of the guide.
type GuideLine struct {
	Orientation Orientation
	Kind        string // "edge", "center" or "dock"
	Position    float64
	From        Pt
	To          Pt
}

// ComputeSmartGuides computes snapping adjustments for a moving rectangle
// against a set of targets. Snapping happens independently in X and Y.
func ComputeSmartGuides(moving Rect, targets []Target, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	bx := best{dist: math.Inf(1)}
	by := best{dist: math.Inf(1)}

	ml, mr, mt, mb := moving.X, moving.EX(), moving.Y, moving.EY()
	mc := moving.Center()

	for _, t := range targets {
		r := t.Rect.Bounds()
		tl, tr, tt, tb := r.X, r.EX(), r.Y, r.EY()
		tc := r.Center()
		if opts.SnapToEdges {
			for _, c := range [][2]float64{{ml, tl}, {mr, tr}, {ml, tr}, {mr, tl}} {
				bx.consider(c[0]-c[1], opts.Threshold, t.Weight, vertical(c[1], moving, r, "edge"))
			}
			for _, c := range [][2]float64{{mt, tt}, {mb, tb}, {mt, tb}, {mb, tt}} {
				by.consider(c[0]-c[1], opts.Threshold, t.Weight, horizontal(c[1], moving, r, "edge"))
			}
		}
		if opts.SnapToCenters {
			bx.consider(mc.X-tc.X, opts.Threshold, t.Weight, vertical(tc.X, moving, r, "center"))
			by.consider(mc.Y-tc.Y, opts.Threshold, t.Weight, horizontal(tc.Y, moving, r, "center"))
		}
	}

	var guides []GuideLine
	snapped := moving
	if bx.dist <= opts.Threshold {
		snapped.X = FloatRound(moving.X-bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.dist <= opts.Threshold {
		snapped.Y = FloatRound(moving.Y-by.delta, 3)
		guides = append(guides, by.guide)
	}
	return snapped, guides
}

// DockPoint aligns p with the nearest candidate on each axis independently
// when it is within threshold, and returns the guides to draw.
func DockPoint(p Pt, candidates []Pt, threshold float64) (Pt, []GuideLine) {
	if threshold <= 0 {
		threshold = 5
	}
	bx := best{dist: math.Inf(1)}
	by := best{dist: math.Inf(1)}
	for _, c := range candidates {
		bx.consider(p.X-c.X, threshold, 1, GuideLine{Orientation: Vertical, Kind: "dock", Position: c.X, From: c, To: Pt{c.X, p.Y}})
		by.consider(p.Y-c.Y, threshold, 1, GuideLine{Orientation: Horizontal, Kind: "dock", Position: c.Y, From: c, To: Pt{p.X, c.Y}})
	}
	var guides []GuideLine
	out := p
	if bx.dist <= threshold {
		out.X = bx.guide.Position
		guides = append(guides, bx.guide)
	}
	if by.dist <= threshold {
		out.Y = by.guide.Position
		guides = append(guides, by.guide)
	}
	// guide ends follow the docked point
	for i := range guides {
		guides[i].To = out
	}
	return out, guides
}

type best struct {
	delta float64
	dist  float64
	guide GuideLine
}

func (b *best) consider(delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if score < b.dist {
		b.dist = dist
		b.delta = delta
		b.guide = g
	}
}

func vertical(x float64, a, b Rect, kind string) GuideLine {
	minY := math.Min(a.Y, b.Y)
	maxY := math.Max(a.EY(), b.EY())
	x = FloatRound(x, 3)
	return GuideLine{Orientation: Vertical, Kind: kind, Position: x, From: Pt{x, minY}, To: Pt{x, maxY}}
}

func horizontal(y float64, a, b Rect, kind string) GuideLine {
	minX := math.Min(a.X, b.X)
	maxX := math.Max(a.EX(), b.EX())
	y = FloatRound(y, 3)
	return GuideLine{Orientation: Horizontal, Kind: kind, Position: y, From: Pt{minX, y}, To: Pt{maxX, y}}
}
