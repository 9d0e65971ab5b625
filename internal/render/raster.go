/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	xvector "golang.org/x/image/vector"

	"diagramcore/internal/vector"
)

// painter rasterises world paths onto a device buffer through m.
// It implements scene.Painter for custom shape draw hooks.
type painter struct {
	dst  *image.RGBA
	m    vector.Affine2D
	ras  xvector.Rasterizer
	face font.Face
}

// scale is the linear factor of m, used to convert widths to device pixels.
func (p *painter) scale() float64 {
	return math.Sqrt(math.Abs(p.m.A*p.m.D - p.m.B*p.m.C))
}

func (p *painter) reset() bool {
	b := p.dst.Bounds()
	if b.Empty() {
		return false
	}
	p.ras.Reset(b.Dx(), b.Dy())
	return true
}

func (p *painter) draw(c vector.Color) {
	p.ras.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c.NRGBA()), image.Point{})
}

func (p *painter) FillPath(path *vector.Path, c vector.Color) {
	if path == nil || len(path.Cmds) == 0 || c.A == 0 || !p.reset() {
		return
	}
	f := func(v float64) float32 { return float32(v) }
	open := false
	for _, cmd := range path.Transform(p.m).Cmds {
		d := cmd.Data
		switch cmd.Op {
		case vector.MoveTo:
			if open {
				p.ras.ClosePath()
			}
			p.ras.MoveTo(f(d[0]), f(d[1]))
			open = true
		case vector.LineTo:
			p.ras.LineTo(f(d[0]), f(d[1]))
		case vector.QuadTo:
			p.ras.QuadTo(f(d[0]), f(d[1]), f(d[2]), f(d[3]))
		case vector.CubicTo:
			p.ras.CubeTo(f(d[0]), f(d[1]), f(d[2]), f(d[3]), f(d[4]), f(d[5]))
		case vector.Close:
			p.ras.ClosePath()
			open = false
		}
	}
	if open {
		p.ras.ClosePath()
	}
	p.draw(c)
}

// StrokePath outlines every flattened segment with a quad of the stroke
// width and squares the joints. All pieces share one winding so overlaps
// do not cancel in the accumulator.
func (p *painter) StrokePath(path *vector.Path, c vector.Color, width float64) {
	if path == nil || len(path.Cmds) == 0 || c.A == 0 || !p.reset() {
		return
	}
	hw := math.Max(width*p.scale(), 1) / 2
	for _, sub := range path.Transform(p.m).Flatten(16) {
		pts := sub.Pts
		if sub.Closed && len(pts) > 2 {
			pts = append(pts, pts[0])
		}
		for i := 1; i < len(pts); i++ {
			p.quad(pts[i-1], pts[i], hw)
		}
		if len(pts) > 2 {
			for _, v := range pts[1 : len(pts)-1] {
				p.square(v, hw)
			}
		}
	}
	p.draw(c)
}

func (p *painter) quad(a, b vector.Pt, hw float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	p.ras.MoveTo(float32(a.X+nx), float32(a.Y+ny))
	p.ras.LineTo(float32(b.X+nx), float32(b.Y+ny))
	p.ras.LineTo(float32(b.X-nx), float32(b.Y-ny))
	p.ras.LineTo(float32(a.X-nx), float32(a.Y-ny))
	p.ras.ClosePath()
}

func (p *painter) square(v vector.Pt, hw float64) {
	p.ras.MoveTo(float32(v.X-hw), float32(v.Y-hw))
	p.ras.LineTo(float32(v.X-hw), float32(v.Y+hw))
	p.ras.LineTo(float32(v.X+hw), float32(v.Y+hw))
	p.ras.LineTo(float32(v.X+hw), float32(v.Y-hw))
	p.ras.ClosePath()
}

// Text draws a single line centred on at.
func (p *painter) Text(at vector.Pt, text string, c vector.Color) {
	if text == "" || p.face == nil || c.A == 0 {
		return
	}
	d := &font.Drawer{Dst: p.dst, Src: image.NewUniform(c.NRGBA()), Face: p.face}
	pt := p.m.Apply(at)
	w := d.MeasureString(text)
	asc := p.face.Metrics().Ascent
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(pt.X*64) - w/2,
		Y: fixed.Int26_6(pt.Y*64) + asc/2,
	}
	d.DrawString(text)
}
