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
	"math"
	"testing"

	"diagramcore/internal/vector"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func newTestStore() *Store {
	st := NewStore(DefaultOptions(), nil)
	st.Canvas = vector.R(0, 0, 800, 600)
	return st
}

func TestWorldRectOfChild(t *testing.T) {
	st := newTestStore()
	p := &Shape{ID: "p", X: 0, Y: 0, Width: 100, Height: 100}
	c := &Shape{ID: "c", ParentID: "p", X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	if _, err := st.Add(p, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	r := c.Calc.WorldRect
	if r.X != 25 || r.Y != 25 || r.W != 50 || r.H != 50 {
		t.Fatalf("child world rect = %+v", r)
	}
	if len(p.Children) != 1 || p.Children[0] != "c" {
		t.Fatalf("parent children = %v", p.Children)
	}
}

func TestWorldRectRecomputeIsStable(t *testing.T) {
	st := newTestStore()
	p := &Shape{ID: "p", X: 10, Y: 20, Width: 200, Height: 100, Rotate: 15}
	c := &Shape{ID: "c", ParentID: "p", X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4, Rotate: 5}
	if _, err := st.Add(p, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	first := c.Calc.WorldRect
	if err := st.UpdateShapeRect(p); err != nil {
		t.Fatalf("UpdateShapeRect: %v", err)
	}
	if c.Calc.WorldRect != first {
		t.Fatalf("recompute changed rect: %+v vs %+v", c.Calc.WorldRect, first)
	}
	if !near(first.X, 30) || !near(first.Y, 40) || !near(first.W, 60) || !near(first.H, 40) {
		t.Fatalf("unexpected rect %+v", first)
	}
}

func TestNestedRotationAccumulates(t *testing.T) {
	st := newTestStore()
	a := &Shape{ID: "a", Width: 100, Height: 100, Rotate: 10}
	b := &Shape{ID: "b", ParentID: "a", Width: 1, Height: 1, Rotate: 20}
	c := &Shape{ID: "c", ParentID: "b", Width: 1, Height: 1, Rotate: 5}
	if _, err := st.Add(a, b, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := c.Calc.WorldRect.Rotate; !near(got, 35) {
		t.Fatalf("rotate = %v, want 35", got)
	}
}

func TestFlipMirrorsChildren(t *testing.T) {
	st := newTestStore()
	p := &Shape{ID: "p", Width: 100, Height: 100, FlipX: true}
	c := &Shape{ID: "c", ParentID: "p", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}
	if _, err := st.Add(p, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r := c.Calc.WorldRect; !near(r.X, 70) || !near(r.Y, 10) {
		t.Fatalf("flipped child rect = %+v", r)
	}
}

func TestParentCycleRejected(t *testing.T) {
	st := newTestStore()
	a := &Shape{ID: "a", ParentID: "b", Width: 1, Height: 1}
	b := &Shape{ID: "b", ParentID: "a", Width: 1, Height: 1}
	ok := &Shape{ID: "ok", Width: 10, Height: 10}
	added, err := st.Add(a, b, ok)
	if !errors.Is(err, ErrParentCycle) {
		t.Fatalf("expected ErrParentCycle, got %v", err)
	}
	if len(added) != 1 || added[0] != ok || st.Len() != 1 {
		t.Fatalf("only the valid shape should remain: added=%d len=%d", len(added), st.Len())
	}
	if st.Get("a") != nil || st.Get("b") != nil {
		t.Fatalf("cycle members must not be stored")
	}
}

func TestLaterParentCycleResolvesAsRoot(t *testing.T) {
	st := newTestStore()
	p := &Shape{ID: "p", X: 10, Y: 10, Width: 100, Height: 100}
	c := &Shape{ID: "c", ParentID: "p", X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	if _, err := st.Add(p, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	p.ParentID = "c"
	p.X = 500
	if err := st.UpdateShapeRect(p); err != nil {
		t.Fatalf("UpdateShapeRect: %v", err)
	}
	if r := p.Calc.WorldRect; r.X != 500 || r.Y != 10 || r.W != 100 {
		t.Fatalf("p world rect = %+v", r)
	}
	if p.ParentID != "c" {
		t.Fatalf("cycle link rewritten to %q", p.ParentID)
	}
	if err := st.UpdateShapeRect(c); err != nil {
		t.Fatalf("UpdateShapeRect(c): %v", err)
	}
}

func TestSelfParentRejected(t *testing.T) {
	st := newTestStore()
	if _, err := st.Add(&Shape{ID: "s", ParentID: "s", Width: 1, Height: 1}); !errors.Is(err, ErrParentCycle) {
		t.Fatalf("expected ErrParentCycle, got %v", err)
	}
}

func TestOrphanParentCleared(t *testing.T) {
	st := newTestStore()
	s := &Shape{ID: "s", ParentID: "ghost", X: 5, Y: 6, Width: 7, Height: 8}
	if _, err := st.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.ParentID != "" || s.Calc.WorldRect.X != 5 {
		t.Fatalf("orphan not treated as root: %+v", s)
	}
}

func TestDefaultAnchorsFollowRotation(t *testing.T) {
	st := newTestStore()
	s := &Shape{ID: "s", Width: 100, Height: 100, Rotate: 90}
	if _, err := st.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(s.Calc.WorldAnchors) != 4 {
		t.Fatalf("default anchors missing: %d", len(s.Calc.WorldAnchors))
	}
	if len(s.Anchors) != 0 {
		t.Fatalf("default anchors persisted: %d", len(s.Anchors))
	}
	top := s.Calc.WorldAnchors[0]
	if !near(top.X, 100) || !near(top.Y, 50) {
		t.Fatalf("top anchor rotated to (%v,%v), want (100,50)", top.X, top.Y)
	}
	if top.PenID != "s" {
		t.Fatalf("anchor pen id = %q", top.PenID)
	}
}

func TestRegistryAnchorsUsedForTriangle(t *testing.T) {
	st := newTestStore()
	s := &Shape{ID: "t", Name: "triangle", Width: 100, Height: 100}
	if _, err := st.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if a := s.WorldAnchor("1"); a == nil || !near(a.X, 75) || !near(a.Y, 50) {
		t.Fatalf("triangle anchor = %+v", a)
	}
}

func TestFlippedAnchorsMirror(t *testing.T) {
	st := newTestStore()
	s := &Shape{ID: "s", Width: 100, Height: 100, FlipX: true, Anchors: []*Anchor{{ID: "a", X: 0.2, Y: 0.5}}}
	if _, err := st.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if a := s.WorldAnchor("a"); !near(a.X, 80) {
		t.Fatalf("flipped anchor x = %v, want 80", a.X)
	}
}

func TestInViewFollowsPan(t *testing.T) {
	st := NewStore(DefaultOptions(), nil)
	st.Canvas = vector.R(0, 0, 200, 200)
	s := &Shape{ID: "far", X: 500, Y: 500, Width: 10, Height: 10}
	if _, err := st.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.Calc.InView {
		t.Fatalf("shape outside the canvas reported in view")
	}
	st.Data.X, st.Data.Y = -450, -450
	st.RefreshView()
	if !s.Calc.InView {
		t.Fatalf("panned shape should be in view")
	}
}

func TestShowChildHidesSiblings(t *testing.T) {
	st := newTestStore()
	one := 1
	p := &Shape{ID: "p", Width: 100, Height: 100, ShowChild: &one}
	c0 := &Shape{ID: "c0", ParentID: "p", Width: 1, Height: 1}
	c1 := &Shape{ID: "c1", ParentID: "p", Width: 1, Height: 1}
	if _, err := st.Add(p, c0, c1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c0.Calc.InView || !c1.Calc.InView {
		t.Fatalf("showChild: c0=%v c1=%v", c0.Calc.InView, c1.Calc.InView)
	}
	p.Hidden = true
	st.RefreshView()
	if c1.Calc.InView || p.Calc.InView {
		t.Fatalf("hidden parent must hide its subtree")
	}
}

func TestScaleShapeAboutCenter(t *testing.T) {
	st := newTestStore()
	p := &Shape{ID: "p", X: 100, Y: 100, Width: 100, Height: 50}
	c := &Shape{ID: "c", ParentID: "p", X: 0.5, Y: 0, Width: 0.5, Height: 1}
	if _, err := st.Add(p, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	st.ScaleShape(p, 2, vector.Pt{})
	if p.X != 200 || p.Width != 200 || p.Height != 100 {
		t.Fatalf("scaled root = %+v", p)
	}
	if r := c.Calc.WorldRect; !near(r.X, 300) || !near(r.W, 100) {
		t.Fatalf("scaled child = %+v", r)
	}
	if err := st.UpdateShapeRect(p); err != nil {
		t.Fatal(err)
	}
	if r := c.Calc.WorldRect; !near(r.X, 300) || !near(r.W, 100) {
		t.Fatalf("child after recompute = %+v", r)
	}
}

func TestMoveChildConvertsToFractions(t *testing.T) {
	st := newTestStore()
	p := &Shape{ID: "p", Width: 200, Height: 100}
	c := &Shape{ID: "c", ParentID: "p", Width: 0.5, Height: 0.5}
	if _, err := st.Add(p, c); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.MoveShape(c, 20, 10); err != nil {
		t.Fatal(err)
	}
	if !near(c.X, 0.1) || !near(c.Y, 0.1) || !near(c.Calc.WorldRect.X, 20) {
		t.Fatalf("moved child = %+v / %+v", c, c.Calc.WorldRect)
	}
}

func TestNewLineAndInitLineRect(t *testing.T) {
	st := newTestStore()
	line := NewLine(vector.Pt{X: 0, Y: 0}, vector.Pt{X: 100, Y: 0})
	if _, err := st.Add(line); err != nil {
		t.Fatalf("Add: %v", err)
	}
	end := line.WorldAnchor("1")
	if end == nil || !near(end.X, 100) || !near(end.Y, 0) {
		t.Fatalf("line end = %+v", end)
	}
	end.X, end.Y = 100, 50
	if err := st.InitLineRect(line); err != nil {
		t.Fatal(err)
	}
	if r := line.Calc.WorldRect; !near(r.W, 100) || !near(r.H, 50) {
		t.Fatalf("line rect = %+v", r)
	}
	if a := line.Anchor("1"); !near(a.X, 1) || !near(a.Y, 1) {
		t.Fatalf("relative end = %+v", a)
	}
}

func TestCurvedLineSamples(t *testing.T) {
	st := newTestStore()
	line := NewLine(vector.Pt{X: 0, Y: 0}, vector.Pt{X: 100, Y: 100})
	line.Anchors[0].Next = &vector.Pt{X: 1, Y: 0}
	if _, err := st.Add(line); err != nil {
		t.Fatal(err)
	}
	if n := len(line.Calc.WorldAnchors[0].Curve); n != curveSamples+1 {
		t.Fatalf("curve samples = %d", n)
	}
}
