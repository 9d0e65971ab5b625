/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Path commands and shapes.

import "math"

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// RectPath appends a closed rectangle.
func (p *Path) RectPath(r Rect) {
	p.MoveTo(r.X, r.Y)
	p.LineTo(r.EX(), r.Y)
	p.LineTo(r.EX(), r.EY())
	p.LineTo(r.X, r.EY())
	p.Close()
}

// EllipsePath appends a closed ellipse inscribed in r using four cubic arcs.
func (p *Path) EllipsePath(r Rect) {
	const k = 0.5522847498
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	rx, ry := r.W/2, r.H/2
	p.MoveTo(cx+rx, cy)
	p.CubicTo(cx+rx, cy+k*ry, cx+k*rx, cy+ry, cx, cy+ry)
	p.CubicTo(cx-k*rx, cy+ry, cx-rx, cy+k*ry, cx-rx, cy)
	p.CubicTo(cx-rx, cy-k*ry, cx-k*rx, cy-ry, cx, cy-ry)
	p.CubicTo(cx+k*rx, cy-ry, cx+rx, cy-k*ry, cx+rx, cy)
	p.Close()
}

// PolyPath appends a polyline through pts, closed when close is set.
func (p *Path) PolyPath(pts []Pt, close bool) {
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	if close && len(pts) > 2 {
		p.Close()
	}
}

// Transform returns a copy of the path with every coordinate mapped by m.
func (p *Path) Transform(m Affine2D) *Path {
	out := &Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		n := 0
		switch c.Op {
		case MoveTo, LineTo:
			n = 1
		case QuadTo:
			n = 2
		case CubicTo:
			n = 3
		}
		for j := 0; j < n; j++ {
			q := m.Apply(Pt{c.Data[2*j], c.Data[2*j+1]})
			c.Data[2*j], c.Data[2*j+1] = q.X, q.Y
		}
		out.Cmds[i] = c
	}
	return out
}

// Subpath is a flattened run of points.
type Subpath struct {
	Pts    []Pt
	Closed bool
}

// Flatten converts curves into line runs using segs samples per curve.
func (p *Path) Flatten(segs int) []Subpath {
	if segs < 1 {
		segs = 16
	}
	var out []Subpath
	var cur *Subpath
	var at, start Pt
	flush := func() {
		if cur != nil && len(cur.Pts) > 0 {
			out = append(out, *cur)
		}
		cur = nil
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			flush()
			at = Pt{c.Data[0], c.Data[1]}
			start = at
			cur = &Subpath{Pts: []Pt{at}}
		case LineTo:
			if cur == nil {
				cur = &Subpath{Pts: []Pt{at}}
			}
			at = Pt{c.Data[0], c.Data[1]}
			cur.Pts = append(cur.Pts, at)
		case QuadTo:
			if cur == nil {
				cur = &Subpath{Pts: []Pt{at}}
			}
			c1 := Pt{c.Data[0], c.Data[1]}
			end := Pt{c.Data[2], c.Data[3]}
			for i := 1; i <= segs; i++ {
				t := float64(i) / float64(segs)
				mt := 1 - t
				cur.Pts = append(cur.Pts, Pt{
					X: mt*mt*at.X + 2*mt*t*c1.X + t*t*end.X,
					Y: mt*mt*at.Y + 2*mt*t*c1.Y + t*t*end.Y,
				})
			}
			at = end
		case CubicTo:
			if cur == nil {
				cur = &Subpath{Pts: []Pt{at}}
			}
			end := Pt{c.Data[4], c.Data[5]}
			samples := CubicPoints(at, Pt{c.Data[0], c.Data[1]}, Pt{c.Data[2], c.Data[3]}, end, segs)
			cur.Pts = append(cur.Pts, samples[1:]...)
			at = end
		case Close:
			if cur != nil {
				cur.Closed = true
			}
			at = start
			flush()
		}
	}
	flush()
	return out
}

// CubicPoints samples the cubic bezier p0-c1-c2-p3 at n+1 evenly spaced t.
func CubicPoints(p0, c1, c2, p3 Pt, n int) []Pt {
	if n < 1 {
		n = 1
	}
	pts := make([]Pt, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		mt := 1 - t
		a := mt * mt * mt
		b := 3 * mt * mt * t
		c := 3 * mt * t * t
		d := t * t * t
		pts = append(pts, Pt{
			X: a*p0.X + b*c1.X + c*c2.X + d*p3.X,
			Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p3.Y,
		})
	}
	return pts
}

// Bounds returns an axis-aligned bounding box of the path using a simple
// approximation by considering control points.
func (p *Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(q Pt) {
		minX = math.Min(minX, q.X)
		minY = math.Min(minY, q.Y)
		maxX = math.Max(maxX, q.X)
		maxY = math.Max(maxY, q.Y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			grow(Pt{c.Data[0], c.Data[1]})
		case QuadTo:
			grow(Pt{c.Data[0], c.Data[1]})
			grow(Pt{c.Data[2], c.Data[3]})
		case CubicTo:
			grow(Pt{c.Data[0], c.Data[1]})
			grow(Pt{c.Data[2], c.Data[3]})
			grow(Pt{c.Data[4], c.Data[5]})
		case Close:
			// no-op for bounds
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
