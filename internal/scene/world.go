/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"fmt"
	"strconv"

	"diagramcore/internal/vector"
)

// ErrParentCycle is returned when a shape is its own ancestor.
var ErrParentCycle = errors.New("scene: parent cycle")

// curveSamples is the number of segments used to sample connector curves.
const curveSamples = 20

// Pass memoizes world rects within one recompute so every shape is resolved
// at most once, and detects parent cycles.
type Pass struct {
	done     map[string]bool
	visiting map[string]bool
	cascaded map[string]bool
}

func (st *Store) NewPass() *Pass {
	return &Pass{done: map[string]bool{}, visiting: map[string]bool{}, cascaded: map[string]bool{}}
}

// inCycle reports whether s is its own ancestor.
func (st *Store) inCycle(s *Shape) bool {
	seen := map[string]bool{}
	for id := s.ParentID; id != ""; {
		p := st.Get(id)
		if p == nil {
			return false
		}
		if p == s {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		id = p.ParentID
	}
	return false
}

// ComputeWorldRect resolves the absolute rect of s through its parent chain
// and stores it in s.Calc.WorldRect.
func (st *Store) ComputeWorldRect(s *Shape, pass *Pass) (vector.Rect, error) {
	if pass == nil {
		pass = st.NewPass()
	}
	if pass.done[s.ID] {
		return s.Calc.WorldRect, nil
	}
	if pass.visiting[s.ID] {
		return vector.Rect{}, fmt.Errorf("%w: %s", ErrParentCycle, s.ID)
	}
	pass.visiting[s.ID] = true
	defer delete(pass.visiting, s.ID)

	r := vector.Rect{X: s.X, Y: s.Y, W: s.Width, H: s.Height, Rotate: s.Rotate}
	if s.ParentID != "" {
		parent := st.Get(s.ParentID)
		switch {
		case parent == nil:
			st.log.Debug("orphaned parent cleared", "shape", s.ID, "parent", s.ParentID)
			s.ParentID = ""
		case st.inCycle(s):
			// the link stays, but this pass resolves s as a root
			st.log.Warn("parent cycle, resolved as root", "shape", s.ID, "parent", s.ParentID)
		default:
			pr, err := st.ComputeWorldRect(parent, pass)
			if err != nil {
				return vector.Rect{}, err
			}
			r.X = pr.X + pr.W*s.X
			r.Y = pr.Y + pr.H*s.Y
			r.W = pr.W * s.Width
			r.H = pr.H * s.Height
			if parent.FlipX {
				r.X = pr.W - (r.X - pr.X + r.W) + pr.X
			}
			if parent.FlipY {
				r.Y = pr.H - (r.Y - pr.Y + r.H) + pr.Y
			}
			r.Rotate = pr.Rotate + s.Rotate
		}
	}
	s.Calc.WorldRect = r
	pass.done[s.ID] = true
	return r, nil
}

// ComputeWorldAnchors maps the fractional anchors of s through its world
// rect, mirroring flipped axes and rotating about the rect center. Plain
// nodes without anchors get the registry's or the configured default ring;
// those only live in the world anchors and are never persisted.
func (st *Store) ComputeWorldAnchors(s *Shape) {
	anchors := s.Anchors
	if len(anchors) == 0 && !s.IsLine() && !s.IsCombine() {
		anchors = st.defaultAnchors(s)
	}
	r := s.Calc.WorldRect
	center := r.Center()
	world := make([]*Anchor, 0, len(anchors))
	for _, a := range anchors {
		if a.ConnectTo != "" && st.Get(a.ConnectTo) == nil {
			st.log.Debug("dangling connection cleared", "shape", s.ID, "anchor", a.ID, "target", a.ConnectTo)
			a.ConnectTo, a.AnchorID = "", ""
		}
		w := a.Clone()
		w.PenID = s.ID
		w.X, w.Y = st.mapPoint(s, vector.Pt{X: a.X, Y: a.Y}, r, center)
		if a.Prev != nil {
			x, y := st.mapPoint(s, *a.Prev, r, center)
			w.Prev = &vector.Pt{X: x, Y: y}
		}
		if a.Next != nil {
			x, y := st.mapPoint(s, *a.Next, r, center)
			w.Next = &vector.Pt{X: x, Y: y}
		}
		if a.Type == PointLine {
			w.Rotate = a.Rotate + r.Rotate
			w.Length = a.Length
		}
		world = append(world, w)
	}
	if s.IsLine() {
		sampleCurves(world, s.Close)
	}
	s.Calc.WorldAnchors = world
}

func (st *Store) mapPoint(s *Shape, f vector.Pt, r vector.Rect, center vector.Pt) (float64, float64) {
	if s.FlipX {
		f.X = 0.5 - (f.X - 0.5)
	}
	if s.FlipY {
		f.Y = 0.5 - (f.Y - 0.5)
	}
	p := vector.RotatePoint(vector.WorldPointOf(f, r), r.Rotate, center)
	return p.X, p.Y
}

func (st *Store) defaultAnchors(s *Shape) []*Anchor {
	if gen := st.Registry.Lookup(s.Name).Anchors; gen != nil {
		if out := gen(s); len(out) > 0 {
			return out
		}
	}
	out := make([]*Anchor, len(st.Options.DefaultAnchors))
	for i, f := range st.Options.DefaultAnchors {
		out[i] = &Anchor{ID: strconv.Itoa(i), PenID: s.ID, X: f.X, Y: f.Y}
	}
	return out
}

func sampleCurves(world []*Anchor, closed bool) {
	n := len(world)
	for i := 0; i < n; i++ {
		from := world[i]
		var to *Anchor
		switch {
		case i+1 < n:
			to = world[i+1]
		case closed && n > 2:
			to = world[0]
		default:
			continue
		}
		if from.Next == nil && to.Prev == nil {
			continue
		}
		c1, c2 := from.Pt(), to.Pt()
		if from.Next != nil {
			c1 = *from.Next
		}
		if to.Prev != nil {
			c2 = *to.Prev
		}
		from.Curve = vector.CubicPoints(from.Pt(), c1, c2, to.Pt(), curveSamples)
	}
}

// ComputeInView decides whether s is painted and hit-tested.
func (st *Store) ComputeInView(s *Shape) bool {
	s.Calc.InView = false
	if s.Hidden || !st.isShown(s) {
		return false
	}
	if st.Canvas.W <= 0 || st.Canvas.H <= 0 {
		// no viewport yet: headless use sees everything
		s.Calc.InView = true
		return true
	}
	r := s.Calc.WorldRect.Bounds().Translate(st.Data.X, st.Data.Y)
	s.Calc.InView = vector.RectInRect(r, st.Canvas, false)
	return s.Calc.InView
}

// isShown walks the ancestors: a hidden ancestor hides s, and a parent with
// ShowChild set only shows the child at that index.
func (st *Store) isShown(s *Shape) bool {
	seen := map[string]bool{s.ID: true}
	for p := st.Parent(s); p != nil; s, p = p, st.Parent(p) {
		if seen[p.ID] {
			return false
		}
		seen[p.ID] = true
		if p.Hidden {
			return false
		}
		if p.ShowChild != nil {
			idx := -1
			for i, id := range p.Children {
				if id == s.ID {
					idx = i
					break
				}
			}
			if idx != *p.ShowChild {
				return false
			}
		}
	}
	return true
}

// UpdateShapeRect recomputes the derived state of s, its descendants and
// every connector glued to them.
func (st *Store) UpdateShapeRect(s *Shape) error {
	return st.updateRect(s, st.NewPass())
}

func (st *Store) updateRect(s *Shape, pass *Pass) error {
	if pass.cascaded[s.ID] {
		return nil
	}
	pass.cascaded[s.ID] = true
	if _, err := st.ComputeWorldRect(s, pass); err != nil {
		return err
	}
	st.refresh(s)
	var errs []error
	for _, c := range st.Children(s) {
		delete(pass.done, c.ID)
		if err := st.updateRect(c, pass); err != nil {
			errs = append(errs, err)
		}
	}
	if !s.IsLine() {
		st.SyncConnected(s)
	}
	return errors.Join(errs...)
}

// refresh rebuilds everything derived from an up to date world rect.
func (st *Store) refresh(s *Shape) {
	st.ComputeWorldAnchors(s)
	st.ComputeInView(s)
	s.Calc.path.valid = false
}

// RefreshView recomputes the in-view flag of every shape, for pan and resize.
func (st *Store) RefreshView() {
	for _, s := range st.list {
		st.ComputeInView(s)
	}
}

// ScaleShape rescales a root shape about center and applies the same factor
// to the already resolved world rects of its descendants.
func (st *Store) ScaleShape(s *Shape, ratio float64, center vector.Pt) {
	if s.ParentID == "" {
		s.X = center.X - (center.X-s.X)*ratio
		s.Y = center.Y - (center.Y-s.Y)*ratio
		s.Width *= ratio
		s.Height *= ratio
	}
	var walk func(x *Shape)
	walk = func(x *Shape) {
		x.Calc.WorldRect = x.Calc.WorldRect.Scale(ratio, center)
		st.refresh(x)
		for _, c := range st.Children(x) {
			walk(c)
		}
	}
	walk(s)
}

// MoveShape translates s by a world delta. Children move with their parent;
// a child moved on its own has the delta converted into parent fractions.
func (st *Store) MoveShape(s *Shape, dx, dy float64) error {
	if p := st.Parent(s); p != nil {
		pr := p.Calc.WorldRect
		if pr.W != 0 {
			s.X += dx / pr.W
		}
		if pr.H != 0 {
			s.Y += dy / pr.H
		}
	} else {
		s.X += dx
		s.Y += dy
	}
	return st.UpdateShapeRect(s)
}

// SetWorldRect places s so that its world rect becomes r.
func (st *Store) SetWorldRect(s *Shape, r vector.Rect) error {
	if p := st.Parent(s); p != nil {
		pr := p.Calc.WorldRect
		if pr.W != 0 {
			s.X = (r.X - pr.X) / pr.W
			s.Width = r.W / pr.W
		}
		if pr.H != 0 {
			s.Y = (r.Y - pr.Y) / pr.H
			s.Height = r.H / pr.H
		}
	} else {
		s.X, s.Y, s.Width, s.Height = r.X, r.Y, r.W, r.H
	}
	return st.UpdateShapeRect(s)
}

// InitLineRect re-derives a connector's rect from its world anchors and
// rewrites its fractional anchors against that rect.
func (st *Store) InitLineRect(line *Shape) error {
	world := line.Calc.WorldAnchors
	if len(world) == 0 {
		return nil
	}
	pts := make([]vector.Pt, 0, len(world)*3)
	for _, a := range world {
		pts = append(pts, a.Pt())
		if a.Prev != nil {
			pts = append(pts, *a.Prev)
		}
		if a.Next != nil {
			pts = append(pts, *a.Next)
		}
	}
	r := vector.RectOfPoints(pts)
	anchors := make([]*Anchor, len(world))
	for i, w := range world {
		a := w.Clone()
		a.PenID = line.ID
		rel := vector.CalcRelativePoint(w.Pt(), r)
		a.X, a.Y = rel.X, rel.Y
		if w.Prev != nil {
			p := vector.CalcRelativePoint(*w.Prev, r)
			a.Prev = &p
		}
		if w.Next != nil {
			n := vector.CalcRelativePoint(*w.Next, r)
			a.Next = &n
		}
		anchors[i] = a
	}
	line.Anchors = anchors
	line.Rotate = 0
	return st.SetWorldRect(line, r)
}

// NewLine builds an unattached connector through world points.
func NewLine(pts ...vector.Pt) *Shape {
	line := &Shape{ID: NewID(), Name: "line", Type: KindLine}
	r := vector.RectOfPoints(pts)
	line.X, line.Y, line.Width, line.Height = r.X, r.Y, r.W, r.H
	for i, p := range pts {
		rel := vector.CalcRelativePoint(p, r)
		line.Anchors = append(line.Anchors, &Anchor{ID: strconv.Itoa(i), PenID: line.ID, X: rel.X, Y: rel.Y})
	}
	return line
}
