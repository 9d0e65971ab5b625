/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"strconv"
	"sync"

	"diagramcore/internal/vector"
)

// AnchorFunc returns fractional anchors for a shape that declares none.
// Returning nil falls back to Options.DefaultAnchors.
type AnchorFunc func(s *Shape) []*Anchor

// PathFunc builds the outline in world coordinates, before rotation.
type PathFunc func(s *Shape) *vector.Path

// Painter is the raster surface a custom DrawFunc paints on, already set up
// with the shape's flip/rotate/pan transform.
type Painter interface {
	FillPath(p *vector.Path, c vector.Color)
	StrokePath(p *vector.Path, c vector.Color, width float64)
	Text(at vector.Pt, text string, c vector.Color)
}

// DrawFunc replaces the default fill/stroke/label painting.
type DrawFunc func(p Painter, s *Shape, path *vector.Path)

// Capabilities is what the core needs to know about a shape type.
type Capabilities struct {
	Anchors AnchorFunc
	Path    PathFunc
	Draw    DrawFunc
}

// Registry maps type names to capabilities. Unknown names behave as rectangles.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capabilities
}

// NewRegistry returns a registry with the built-in shapes.
func NewRegistry() *Registry {
	r := &Registry{caps: map[string]Capabilities{}}
	r.Register("rectangle", Capabilities{Path: rectPath})
	r.Register("circle", Capabilities{Path: circlePath})
	r.Register("diamond", Capabilities{Path: fracPolygon(vector.Pt{X: 0.5, Y: 0}, vector.Pt{X: 1, Y: 0.5}, vector.Pt{X: 0.5, Y: 1}, vector.Pt{X: 0, Y: 0.5})})
	r.Register("triangle", Capabilities{
		Path:    fracPolygon(vector.Pt{X: 0.5, Y: 0}, vector.Pt{X: 1, Y: 1}, vector.Pt{X: 0, Y: 1}),
		Anchors: fracAnchors(vector.Pt{X: 0.5, Y: 0}, vector.Pt{X: 0.75, Y: 0.5}, vector.Pt{X: 0.5, Y: 1}, vector.Pt{X: 0.25, Y: 0.5}),
	})
	r.Register("line", Capabilities{Path: linePath})
	r.Register("combine", Capabilities{Path: func(*Shape) *vector.Path { return nil }})
	return r
}

func (r *Registry) Register(name string, c Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[name] = c
}

// Lookup returns the capabilities for name with missing entries defaulted.
func (r *Registry) Lookup(name string) Capabilities {
	r.mu.RLock()
	c, ok := r.caps[name]
	r.mu.RUnlock()
	if !ok {
		c = Capabilities{}
	}
	if c.Path == nil {
		c.Path = rectPath
	}
	return c
}

func rectPath(s *Shape) *vector.Path {
	if s.IsLine() {
		return linePath(s)
	}
	p := &vector.Path{}
	r := s.Calc.WorldRect
	r.Rotate = 0
	p.RectPath(r)
	return p
}

func circlePath(s *Shape) *vector.Path {
	p := &vector.Path{}
	r := s.Calc.WorldRect
	r.Rotate = 0
	p.EllipsePath(r)
	return p
}

func fracPolygon(pts ...vector.Pt) PathFunc {
	return func(s *Shape) *vector.Path {
		r := s.Calc.WorldRect
		world := make([]vector.Pt, len(pts))
		for i, f := range pts {
			world[i] = vector.WorldPointOf(f, r)
		}
		p := &vector.Path{}
		p.PolyPath(world, true)
		return p
	}
}

func fracAnchors(pts ...vector.Pt) AnchorFunc {
	return func(s *Shape) []*Anchor {
		out := make([]*Anchor, len(pts))
		for i, f := range pts {
			out[i] = &Anchor{ID: strconv.Itoa(i), PenID: s.ID, X: f.X, Y: f.Y}
		}
		return out
	}
}

// linePath follows the world anchors. Connectors are never rotated by the
// painter, their anchors already are.
func linePath(s *Shape) *vector.Path {
	pts := s.Calc.WorldAnchors
	p := &vector.Path{}
	if len(pts) == 0 {
		return p
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	seg := func(from, to *Anchor) {
		if from.Next == nil && to.Prev == nil {
			p.LineTo(to.X, to.Y)
			return
		}
		c1, c2 := from.Pt(), to.Pt()
		if from.Next != nil {
			c1 = *from.Next
		}
		if to.Prev != nil {
			c2 = *to.Prev
		}
		p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, to.X, to.Y)
	}
	for i := 1; i < len(pts); i++ {
		seg(pts[i-1], pts[i])
	}
	if s.Close && len(pts) > 2 {
		seg(pts[len(pts)-1], pts[0])
		p.Close()
	}
	return p
}
