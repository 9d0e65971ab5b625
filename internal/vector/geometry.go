/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry and transforms for the diagram canvas.
// Values are float64: world geometry is re-derived from parent fractions on
// every recompute and float32 drift becomes visible after a few zoom steps.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

func (p Pt) Add(o Pt) Pt            { return Pt{p.X + o.X, p.Y + o.Y} }
func (p Pt) Sub(o Pt) Pt            { return Pt{p.X - o.X, p.Y - o.Y} }
func (p Pt) Dist(o Pt) float64      { return math.Hypot(p.X-o.X, p.Y-o.Y) }
func (p Pt) Eq(o Pt, eps float64) bool {
	return math.Abs(p.X-o.X) <= eps && math.Abs(p.Y-o.Y) <= eps
}

// Size is a width/height pair.
type Size struct{ W, H float64 }

// Rect is a rectangle defined by min corner and size, optionally rotated
// (degrees, clockwise) about its center.
type Rect struct {
	X, Y   float64
	W, H   float64
	Rotate float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) EX() float64 { return r.X + r.W }
func (r Rect) EY() float64 { return r.Y + r.H }
func (r Rect) Min() Pt     { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt     { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt  { return Pt{r.X + r.W/2, r.Y + r.H/2} }

// Contains is the inclusive axis-aligned test; rotation is ignored.
func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy, Rotate: r.Rotate}
}

// Union returns the minimal axis-aligned rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (r Rect) Translate(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Scale scales the rect about center by s.
func (r Rect) Scale(s float64, center Pt) Rect {
	r.X = center.X - (center.X-r.X)*s
	r.Y = center.Y - (center.Y-r.Y)*s
	r.W *= s
	r.H *= s
	return r
}

// Bounds returns the axis-aligned bounding box of the rotated rect.
func (r Rect) Bounds() Rect {
	if r.Rotate == 0 || math.Mod(r.Rotate, 360) == 0 {
		r.Rotate = 0
		return r
	}
	return RectOfPoints(RectToPoints(r))
}

// ScalePoint scales p about center by s.
func ScalePoint(p Pt, s float64, center Pt) Pt {
	return Pt{center.X - (center.X-p.X)*s, center.Y - (center.Y-p.Y)*s}
}

// RotatePoint rotates p by deg degrees (clockwise in screen space) about center.
func RotatePoint(p Pt, deg float64, center Pt) Pt {
	if deg == 0 || math.Mod(deg, 360) == 0 {
		return p
	}
	rad := deg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	dx, dy := p.X-center.X, p.Y-center.Y
	return Pt{
		X: dx*c - dy*s + center.X,
		Y: dx*s + dy*c + center.Y,
	}
}

// RectToPoints returns the 4 corners TL, TR, BR, BL, rotated with the rect.
func RectToPoints(r Rect) []Pt {
	pts := []Pt{{r.X, r.Y}, {r.EX(), r.Y}, {r.EX(), r.EY()}, {r.X, r.EY()}}
	if r.Rotate != 0 {
		c := r.Center()
		for i := range pts {
			pts[i] = RotatePoint(pts[i], r.Rotate, c)
		}
	}
	return pts
}

// RectOfPoints returns the axis-aligned bounding rect of pts.
func RectOfPoints(pts []Pt) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// PointInRect reports whether p lies strictly inside r, honouring rotation.
func PointInRect(p Pt, r Rect) bool {
	if r.Rotate == 0 || math.Mod(r.Rotate, 360) == 0 {
		return p.X > r.X && p.X < r.EX() && p.Y > r.Y && p.Y < r.EY()
	}
	return PointInPolygon(p, RectToPoints(r))
}

// PointInSimpleRect is the inclusive axis-aligned test with r grown by
// tolerance on every side; rotation is ignored.
func PointInSimpleRect(p Pt, r Rect, tolerance float64) bool {
	return p.X >= r.X-tolerance && p.X <= r.EX()+tolerance && p.Y >= r.Y-tolerance && p.Y <= r.EY()+tolerance
}

// HitPoint is the square proximity test used for anchors and handles.
func HitPoint(p, target Pt, radius float64) bool {
	return p.X > target.X-radius && p.X < target.X+radius && p.Y > target.Y-radius && p.Y < target.Y+radius
}

// RectInRect reports whether src overlaps target, or lies strictly inside
// it when allIn is set. A rotated src is replaced by its bounding box.
func RectInRect(src, target Rect, allIn bool) bool {
	if src.Rotate != 0 {
		src = src.Bounds()
	}
	if allIn {
		return src.X > target.X && src.EX() < target.EX() && src.Y > target.Y && src.EY() < target.EY()
	}
	return !(src.X > target.EX() || src.EX() < target.X || src.Y > target.EY() || src.EY() < target.Y)
}

// CalcRelativePoint converts pt into fractions of r. A degenerate axis maps to 0.
func CalcRelativePoint(pt Pt, r Rect) Pt {
	var out Pt
	if r.W != 0 {
		out.X = (pt.X - r.X) / r.W
	}
	if r.H != 0 {
		out.Y = (pt.Y - r.Y) / r.H
	}
	return out
}

// WorldPointOf maps a fractional point back into r (rotation not applied).
func WorldPointOf(frac Pt, r Rect) Pt {
	return Pt{r.X + r.W*frac.X, r.Y + r.H*frac.Y}
}

// PointInPolygon is the even-odd ray cast test.
func PointInPolygon(p Pt, pts []Pt) bool {
	if len(pts) < 3 {
		return false
	}
	in := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// PointToSegment returns the projection of p on segment a-b when p is within
// r of the segment's line. Vertical segments use the x distance directly.
func PointToSegment(p, a, b Pt, r float64) (Pt, bool) {
	if a.X == b.X {
		if math.Abs(p.X-a.X) <= r {
			return Pt{a.X, p.Y}, true
		}
		return Pt{}, false
	}
	k := (b.Y - a.Y) / (b.X - a.X)
	c := a.Y - k*a.X
	d := math.Abs(k*p.X-p.Y+c) / math.Sqrt(k*k+1)
	if d > r {
		return Pt{}, false
	}
	x := (p.X + k*p.Y - k*c) / (k*k + 1)
	return Pt{x, k*x + c}, true
}

// PointInSegment reports whether p lies within r of the segment a-b,
// limited to the segment's bounding box grown by r.
func PointInSegment(p, a, b Pt, r float64) (Pt, bool) {
	bb := RectOfPoints([]Pt{a, b})
	if !PointInSimpleRect(p, bb, r) {
		return Pt{}, false
	}
	return PointToSegment(p, a, b, r)
}

// SegmentsIntersect reports whether segments p1-p2 and p3-p4 cross or touch.
func SegmentsIntersect(p1, p2, p3, p4 Pt) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(p3, p4, p1)) || (d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) || (d4 == 0 && onSegment(p1, p2, p4))
}

func cross(a, b, c Pt) float64 { return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X) }

func onSegment(a, b, p Pt) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}

// SpecialAngle snaps to so that the segment from-to lies on the nearest
// multiple of 45°, keeping its length.
func SpecialAngle(from, to Pt) Pt {
	dx, dy := to.X-from.X, to.Y-from.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return to
	}
	a := math.Atan2(dy, dx)
	step := math.Pi / 4
	a = math.Round(a/step) * step
	return Pt{X: FloatRound(from.X+l*math.Cos(a), 3), Y: FloatRound(from.Y+l*math.Sin(a), 3)}
}

// Angle returns the angle in degrees of p around center, 0 pointing up and
// growing clockwise, in [0, 360).
func Angle(p, center Pt) float64 {
	a := math.Atan2(p.Y-center.Y, p.X-center.X)*180/math.Pi + 90
	if a < 0 {
		a += 360
	}
	return math.Mod(a, 360)
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
// stored as [a b c d e f].
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }
func Rotate(rad float64) Affine2D {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return Affine2D{A: c, B: s, C: -s, D: c}
}

// About conjugates m so it applies around pivot instead of the origin.
func About(m Affine2D, pivot Pt) Affine2D {
	return Translate(pivot.X, pivot.Y).Mul(m).Mul(Translate(-pivot.X, -pivot.Y))
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
