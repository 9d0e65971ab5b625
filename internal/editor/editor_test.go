/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"diagramcore/internal/hit"
	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// stepClock advances by a fixed step on every reading so no event is ever
// throttled.
type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(100 * time.Millisecond)
	return c.now
}

// manualClock only moves when the test advances it.
type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

type countingRenderer struct {
	frames  int
	resizes [][2]int
	panics  bool
}

func (r *countingRenderer) Render(*scene.Store, render.Overlay) error {
	if r.panics {
		r.panics = false
		panic("boom")
	}
	r.frames++
	return nil
}

func (r *countingRenderer) Resize(w, h int, _ float64) { r.resizes = append(r.resizes, [2]int{w, h}) }

type manualTimer struct {
	f       func()
	stopped bool
	// late timers have already fired: Stop reports false and the
	// callback still runs.
	late bool
}

func (t *manualTimer) Stop() bool {
	if t.late {
		return false
	}
	was := !t.stopped
	t.stopped = true
	return was
}

type manualScheduler struct {
	timers []*manualTimer
	late   bool
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	t := &manualTimer{f: f, late: s.late}
	s.timers = append(s.timers, t)
	return t
}

// fire runs every pending timer that was not stopped.
func (s *manualScheduler) fire() {
	pending := s.timers
	s.timers = nil
	for _, t := range pending {
		if !t.stopped {
			t.stopped = true
			t.f()
		}
	}
}

type recordingHistory struct {
	changes []Change
	scenes  [][]byte
}

func (h *recordingHistory) Record(ch Change) {
	h.changes = append(h.changes, ch)
	b, err := ch.Scene()
	if err != nil {
		panic(err)
	}
	h.scenes = append(h.scenes, b)
}

func (h *recordingHistory) ops() []Op {
	out := make([]Op, len(h.changes))
	for i, c := range h.changes {
		out[i] = c.Op
	}
	return out
}

type fixture struct {
	ed     *Editor
	st     *scene.Store
	r      *countingRenderer
	sched  *manualScheduler
	hist   *recordingHistory
	events []Event
}

func newFixture(t *testing.T, shapes ...*scene.Shape) *fixture {
	t.Helper()
	return newClockedFixture(t, &stepClock{now: time.Unix(0, 0)}, shapes...)
}

func newClockedFixture(t *testing.T, clock Clock, shapes ...*scene.Shape) *fixture {
	t.Helper()
	f := &fixture{
		st:    scene.NewStore(scene.DefaultOptions(), nil),
		r:     &countingRenderer{},
		sched: &manualScheduler{},
		hist:  &recordingHistory{},
	}
	f.ed = New(f.st, Collaborators{
		History:   f.hist,
		Renderer:  f.r,
		Clock:     clock,
		Scheduler: f.sched,
		Listener:  func(ev Event) { f.events = append(f.events, ev) },
	})
	f.ed.Resize(800, 600, 1)
	if len(shapes) > 0 {
		if _, err := f.ed.AddShapes(shapes...); err != nil {
			t.Fatalf("AddShapes: %v", err)
		}
	}
	f.hist.changes, f.hist.scenes = nil, nil
	f.events = nil
	return f
}

func (f *fixture) click(x, y float64, mods PointerEvent) {
	mods.X, mods.Y, mods.Buttons = x, y, 1
	f.ed.PointerDown(mods)
	mods.Buttons = 0
	f.ed.PointerUp(mods)
}

func (f *fixture) drag(from, to vector.Pt, mods PointerEvent) {
	mods.X, mods.Y, mods.Buttons = from.X, from.Y, 1
	f.ed.PointerDown(mods)
	mods.X, mods.Y = to.X, to.Y
	f.ed.PointerMove(mods)
	mods.Buttons = 0
	f.ed.PointerUp(mods)
}

func (f *fixture) eventNames() []string {
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Name
	}
	return out
}

func box(id string, x, y, w, h float64) *scene.Shape {
	return &scene.Shape{ID: id, X: x, Y: y, Width: w, Height: h}
}

func line(id string, pts ...vector.Pt) *scene.Shape {
	l := scene.NewLine(pts...)
	l.ID = id
	return l
}

func activeIDs(st *scene.Store) string {
	ids := make([]string, len(st.Active))
	for i, s := range st.Active {
		ids[i] = s.ID
	}
	return strings.Join(ids, ",")
}

func TestZoomOutsideBoundsIsNoop(t *testing.T) {
	a := box("a", 10, 10, 50, 50)
	f := newFixture(t, a)
	frames := f.r.frames
	if f.ed.ZoomTo(100, vector.Pt{}) {
		t.Fatalf("zoom beyond max accepted")
	}
	if f.ed.ZoomTo(0.01, vector.Pt{}) {
		t.Fatalf("zoom below min accepted")
	}
	if f.r.frames != frames {
		t.Fatalf("frames = %d, want %d", f.r.frames, frames)
	}
	if f.st.Data.Scale != 1 || a.X != 10 || a.Width != 50 {
		t.Fatalf("scene changed: scale %v, a %v/%v", f.st.Data.Scale, a.X, a.Width)
	}
}

func TestZoomScalesAboutCenter(t *testing.T) {
	a := box("a", 100, 100, 100, 100)
	f := newFixture(t, a)
	if !f.ed.ZoomTo(2, vector.Pt{X: 100, Y: 100}) {
		t.Fatalf("zoom rejected")
	}
	if a.X != 100 || a.Y != 100 || a.Width != 200 || a.Height != 200 {
		t.Fatalf("a = %v,%v %vx%v", a.X, a.Y, a.Width, a.Height)
	}
	if f.st.Data.Scale != 2 {
		t.Fatalf("scale = %v", f.st.Data.Scale)
	}
	if got := f.eventNames(); len(got) != 1 || got[0] != EventScale {
		t.Fatalf("events = %v", got)
	}
}

func TestWheelWithCtrlZooms(t *testing.T) {
	f := newFixture(t, box("a", 0, 0, 10, 10))
	f.ed.Wheel(WheelEvent{DeltaY: -1, Ctrl: true})
	if got := f.ed.Scale(); got < 1.0999 || got > 1.1001 {
		t.Fatalf("scale = %v", got)
	}
	f.ed.Wheel(WheelEvent{DeltaY: 30, Shift: true})
	if f.st.Data.X != -30 || f.st.Data.Y != 0 {
		t.Fatalf("pan = %v,%v", f.st.Data.X, f.st.Data.Y)
	}
}

func TestCtrlClickTogglesSelection(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	b := box("b", 100, 0, 50, 50)
	f := newFixture(t, a, b)

	f.click(25, 25, PointerEvent{})
	if got := activeIDs(f.st); got != "a" {
		t.Fatalf("after click: %q", got)
	}
	f.click(125, 25, PointerEvent{Ctrl: true})
	if got := activeIDs(f.st); got != "a,b" {
		t.Fatalf("after ctrl click on b: %q", got)
	}
	if r, ok := f.ed.ActiveRect(); !ok || r != vector.R(0, 0, 150, 50) {
		t.Fatalf("active rect = %v %v", r, ok)
	}
	f.click(25, 25, PointerEvent{Ctrl: true})
	if got := activeIDs(f.st); got != "b" {
		t.Fatalf("after ctrl click on a: %q", got)
	}
	if a.Calc.Active || !b.Calc.Active {
		t.Fatalf("flags a=%v b=%v", a.Calc.Active, b.Calc.Active)
	}
}

func TestClickOnEmptyCanvasDeselects(t *testing.T) {
	f := newFixture(t, box("a", 0, 0, 50, 50))
	f.click(25, 25, PointerEvent{})
	f.click(400, 400, PointerEvent{})
	if len(f.st.Active) != 0 {
		t.Fatalf("still selected: %q", activeIDs(f.st))
	}
	if _, ok := f.ed.ActiveRect(); ok {
		t.Fatalf("active rect left behind")
	}
}

func TestBoxSelect(t *testing.T) {
	a := box("a", 0, 0, 10, 10)
	b := box("b", 100, 100, 10, 10)
	f := newFixture(t, a, b)

	f.drag(vector.Pt{X: 20, Y: 20}, vector.Pt{X: 0, Y: 0}, PointerEvent{})
	if got := activeIDs(f.st); got != "a" {
		t.Fatalf("small box: %q", got)
	}
	f.drag(vector.Pt{X: -20, Y: -20}, vector.Pt{X: 200, Y: 200}, PointerEvent{})
	if got := activeIDs(f.st); got != "a,b" {
		t.Fatalf("large box: %q", got)
	}
}

func TestBoxSelectSkipsLockedAndPicksCrossedLines(t *testing.T) {
	a := box("a", 0, 0, 10, 10)
	a.Locked = scene.LockDisableMove
	l := line("l", vector.Pt{X: 50, Y: -100}, vector.Pt{X: 50, Y: 300})
	f := newFixture(t, a, l)
	f.drag(vector.Pt{X: -20, Y: -20}, vector.Pt{X: 100, Y: 100}, PointerEvent{})
	if got := activeIDs(f.st); got != "l" {
		t.Fatalf("selected %q", got)
	}
}

func TestDragMovesSelectionAndRecords(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	f := newFixture(t, a)
	f.drag(vector.Pt{X: 25, Y: 25}, vector.Pt{X: 75, Y: 35}, PointerEvent{})
	if a.X != 50 || a.Y != 10 {
		t.Fatalf("a at %v,%v", a.X, a.Y)
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpMove {
		t.Fatalf("ops = %v", ops)
	}
	if !strings.Contains(string(f.hist.scenes[0]), "\"pens\"") {
		t.Fatalf("scene snapshot = %s", f.hist.scenes[0])
	}
	if f.ed.Mode() != ModeNone {
		t.Fatalf("mode = %v", f.ed.Mode())
	}
}

func TestMoveReleasesConnectorEndLeftBehind(t *testing.T) {
	n := box("n", 200, 0, 50, 50)
	l := line("l", vector.Pt{X: 0, Y: 25}, vector.Pt{X: 100, Y: 25})
	f := newFixture(t, n, l)
	f.st.Connect(n, "3", l, "1")
	f.ed.Select(l)
	f.drag(vector.Pt{X: 50, Y: 25}, vector.Pt{X: 50, Y: 75}, PointerEvent{})
	if a := l.Anchor("1"); a.ConnectTo != "" {
		t.Fatalf("end still glued to %q", a.ConnectTo)
	}
	if len(n.ConnectedLines) != 0 {
		t.Fatalf("node still lists %v", n.ConnectedLines)
	}
	if r := l.Calc.WorldRect; r.Y != 75 {
		t.Fatalf("line rect = %v", r)
	}
}

func TestResizeFromCorner(t *testing.T) {
	a := box("a", 0, 0, 100, 100)
	f := newFixture(t, a)
	f.click(50, 50, PointerEvent{})
	f.drag(vector.Pt{X: 100, Y: 100}, vector.Pt{X: 150, Y: 120}, PointerEvent{})
	if a.X != 0 || a.Y != 0 || a.Width != 150 || a.Height != 120 {
		t.Fatalf("a = %v,%v %vx%v", a.X, a.Y, a.Width, a.Height)
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpResize {
		t.Fatalf("ops = %v", ops)
	}
}

func TestResizeClampsToMinimum(t *testing.T) {
	a := box("a", 0, 0, 100, 100)
	f := newFixture(t, a)
	f.click(50, 50, PointerEvent{})
	f.drag(vector.Pt{X: 100, Y: 100}, vector.Pt{X: -50, Y: -50}, PointerEvent{})
	if a.Width != 1 || a.Height != 1 || a.X != 0 || a.Y != 0 {
		t.Fatalf("a = %v,%v %vx%v", a.X, a.Y, a.Width, a.Height)
	}
}

func TestRotateSingleShape(t *testing.T) {
	a := box("a", 0, 0, 100, 100)
	f := newFixture(t, a)
	f.click(50, 50, PointerEvent{})
	f.drag(vector.Pt{X: 50, Y: -30}, vector.Pt{X: 150, Y: 50}, PointerEvent{})
	if a.Rotate != 90 {
		t.Fatalf("rotate = %v", a.Rotate)
	}
	if r, _ := f.ed.ActiveRect(); r.Rotate != 90 {
		t.Fatalf("active rect rotate = %v", r.Rotate)
	}
}

func TestMergeConnectors(t *testing.T) {
	x := line("x", vector.Pt{X: 0, Y: 0}, vector.Pt{X: 100, Y: 0})
	y := line("y", vector.Pt{X: 200, Y: 0}, vector.Pt{X: 300, Y: 0}, vector.Pt{X: 300, Y: 100})
	f := newFixture(t, x, y)

	f.ed.PointerDown(PointerEvent{X: 100, Y: 0, Buttons: 1})
	if f.ed.Mode() != ModeDragConnectorEndpoint {
		t.Fatalf("mode = %v", f.ed.Mode())
	}
	f.ed.PointerMove(PointerEvent{X: 200, Y: 0, Buttons: 1, Ctrl: true})
	f.ed.PointerUp(PointerEvent{X: 200, Y: 0, Ctrl: true})

	if f.st.Get("y") != nil {
		t.Fatalf("merged connector still in scene")
	}
	if len(x.Anchors) != 4 || len(x.Calc.WorldAnchors) != 4 {
		t.Fatalf("anchors = %d/%d, want 4", len(x.Anchors), len(x.Calc.WorldAnchors))
	}
	want := []vector.Pt{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 100}}
	seen := map[string]bool{}
	for i, a := range x.Calc.WorldAnchors {
		if !a.Pt().Eq(want[i], 1e-9) {
			t.Fatalf("anchor %d at %v, want %v", i, a.Pt(), want[i])
		}
		if seen[a.ID] {
			t.Fatalf("duplicate anchor id %q", a.ID)
		}
		seen[a.ID] = true
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpMerge {
		t.Fatalf("ops = %v", ops)
	}
}

func TestEndpointDropGlues(t *testing.T) {
	n := box("n", 200, 0, 50, 50)
	l := line("l", vector.Pt{X: 0, Y: 25}, vector.Pt{X: 100, Y: 25})
	f := newFixture(t, n, l)
	f.drag(vector.Pt{X: 100, Y: 25}, vector.Pt{X: 200, Y: 25}, PointerEvent{})
	a := l.Anchor("1")
	if a.ConnectTo != "n" || a.AnchorID != "3" {
		t.Fatalf("end glued to %q/%q", a.ConnectTo, a.AnchorID)
	}
	if len(n.ConnectedLines) != 1 {
		t.Fatalf("connected lines = %v", n.ConnectedLines)
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpConnect {
		t.Fatalf("ops = %v", ops)
	}
}

func TestDrawConnectorBetweenNodes(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	b := box("b", 200, 0, 50, 50)
	f := newFixture(t, a, b)

	f.drag(vector.Pt{X: 50, Y: 25}, vector.Pt{X: 200, Y: 25}, PointerEvent{})
	if f.st.Len() != 3 {
		t.Fatalf("len = %d, want 3", f.st.Len())
	}
	l := f.st.Shapes()[2]
	if !l.IsLine() || activeIDs(f.st) != l.ID {
		t.Fatalf("new connector not selected: %q", activeIDs(f.st))
	}
	if from, to := l.Anchors[0], l.Anchors[1]; from.ConnectTo != "a" || to.ConnectTo != "b" {
		t.Fatalf("glue = %q -> %q", from.ConnectTo, to.ConnectTo)
	}
	if err := f.st.MoveShape(b, 0, 100); err != nil {
		t.Fatalf("MoveShape: %v", err)
	}
	end := l.Calc.WorldAnchors[1].Pt()
	if !end.Eq(vector.Pt{X: 200, Y: 125}, 1e-9) {
		t.Fatalf("end follows to %v", end)
	}
}

func TestShiftHeldOverAnchorKeepsAxisLock(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	b := box("b", 200, 100, 50, 50)
	f := newFixture(t, a, b)

	f.drag(vector.Pt{X: 50, Y: 25}, vector.Pt{X: 200, Y: 125}, PointerEvent{Shift: true})
	if f.st.Len() != 3 {
		t.Fatalf("len = %d, want 3", f.st.Len())
	}
	l := f.st.Shapes()[2]
	end := l.Calc.WorldAnchors[1]
	if !end.Pt().Eq(vector.Pt{X: 200, Y: 25}, 1e-9) {
		t.Fatalf("end = %v, want y held at 25", end.Pt())
	}
	if l.Anchors[0].ConnectTo != "a" || l.Anchors[1].ConnectTo != "" {
		t.Fatalf("glue = %q -> %q", l.Anchors[0].ConnectTo, l.Anchors[1].ConnectTo)
	}
}

func TestClickDrawing(t *testing.T) {
	f := newFixture(t)
	f.ed.SetDrawingLine("line")
	f.click(10, 10, PointerEvent{})
	f.ed.PointerMove(PointerEvent{X: 100, Y: 10})
	f.click(100, 10, PointerEvent{})
	f.ed.PointerMove(PointerEvent{X: 100, Y: 100, Ctrl: true})
	f.click(100, 100, PointerEvent{Ctrl: true})
	f.ed.PointerMove(PointerEvent{X: 300, Y: 300})
	l := f.ed.FinishDrawing()
	if l == nil {
		t.Fatalf("no connector committed")
	}
	if len(l.Calc.WorldAnchors) != 3 {
		t.Fatalf("anchors = %d, want 3", len(l.Calc.WorldAnchors))
	}
	if got := l.Calc.WorldAnchors[2].Pt(); !got.Eq(vector.Pt{X: 100, Y: 100}, 1e-9) {
		t.Fatalf("last point = %v", got)
	}
}

func TestAddAnchorHotkeyInsertsPoint(t *testing.T) {
	l := line("l", vector.Pt{X: 0, Y: 0}, vector.Pt{X: 100, Y: 0})
	f := newFixture(t, l)
	f.ed.SetHotkey(hit.HotkeyAddAnchor)
	f.click(50, 0, PointerEvent{})
	if len(l.Anchors) != 3 {
		t.Fatalf("anchors = %d, want 3", len(l.Anchors))
	}
	if got := l.Calc.WorldAnchors[1].Pt(); !got.Eq(vector.Pt{X: 50, Y: 0}, 1e-9) {
		t.Fatalf("inserted at %v", got)
	}
}

func TestPanDragHoldsAxisWithShift(t *testing.T) {
	f := newFixture(t)
	f.ed.SetHotkey(hit.HotkeyTranslate)
	f.drag(vector.Pt{X: 100, Y: 100}, vector.Pt{X: 130, Y: 150}, PointerEvent{Shift: true})
	if f.st.Data.X != 30 || f.st.Data.Y != 0 {
		t.Fatalf("pan = %v,%v", f.st.Data.X, f.st.Data.Y)
	}
}

func TestRightDragPansAndRightClickOpensMenu(t *testing.T) {
	f := newFixture(t)
	f.ed.PointerDown(PointerEvent{X: 10, Y: 10, Buttons: 2})
	f.ed.PointerMove(PointerEvent{X: 40, Y: 20, Buttons: 2})
	f.ed.PointerUp(PointerEvent{X: 40, Y: 20})
	if f.st.Data.X != 30 || f.st.Data.Y != 10 {
		t.Fatalf("pan = %v,%v", f.st.Data.X, f.st.Data.Y)
	}
	f.events = nil
	f.ed.PointerDown(PointerEvent{X: 10, Y: 10, Buttons: 2})
	f.ed.PointerUp(PointerEvent{X: 10, Y: 10})
	if got := f.eventNames(); len(got) != 1 || got[0] != EventContextMenu {
		t.Fatalf("events = %v", got)
	}
}

func TestPanPinsRuleLines(t *testing.T) {
	rule := line("rule", vector.Pt{X: 40, Y: 0}, vector.Pt{X: 40, Y: 300})
	rule.IsRuleLine = true
	f := newFixture(t, rule)
	f.ed.Resize(800, 600, 1)
	if r := rule.Calc.WorldRect; r.H != 600 {
		t.Fatalf("rule length = %v, want the viewport height", r.H)
	}
	f.ed.PanBy(10, 20)
	if f.st.Data.X != 10 || f.st.Data.Y != 20 {
		t.Fatalf("pan = %v,%v", f.st.Data.X, f.st.Data.Y)
	}
	if r := rule.Calc.WorldRect; r.Y != -20 || r.X != 40 {
		t.Fatalf("rule at %v", r)
	}
}

func TestLockedSceneRejectsEdits(t *testing.T) {
	a := box("a", 0, 0, 10, 10)
	f := newFixture(t, a)
	f.ed.Lock(scene.LockDisableEdit)
	if _, err := f.ed.AddShapes(box("b", 0, 0, 1, 1)); !errors.Is(err, ErrLocked) {
		t.Fatalf("AddShapes err = %v", err)
	}
	if err := f.ed.DeleteShapes(a); !errors.Is(err, ErrLocked) {
		t.Fatalf("DeleteShapes err = %v", err)
	}
	if got := f.ed.Drop([]byte(`{"width":10,"height":10}`), 5, 5); got != nil {
		t.Fatalf("drop on locked scene added %d shapes", len(got))
	}
	if f.st.Len() != 1 {
		t.Fatalf("len = %d", f.st.Len())
	}
}

func TestDeleteSkipsLockedShapes(t *testing.T) {
	a := box("a", 0, 0, 10, 10)
	b := box("b", 20, 0, 10, 10)
	b.Locked = scene.LockDisableEdit
	f := newFixture(t, a, b)
	if err := f.ed.DeleteShapes(a, b); err != nil {
		t.Fatalf("DeleteShapes: %v", err)
	}
	if f.st.Get("a") != nil || f.st.Get("b") == nil {
		t.Fatalf("a=%v b=%v", f.st.Get("a"), f.st.Get("b"))
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpDelete {
		t.Fatalf("ops = %v", ops)
	}
}

func TestAddShapesRejectsParentCycle(t *testing.T) {
	f := newFixture(t)
	p := &scene.Shape{ID: "p", ParentID: "q", Width: 1, Height: 1}
	q := &scene.Shape{ID: "q", ParentID: "p", Width: 1, Height: 1}
	ok := box("ok", 0, 0, 10, 10)
	committed, err := f.ed.AddShapes(p, q, ok)
	if !errors.Is(err, scene.ErrParentCycle) {
		t.Fatalf("err = %v, want parent cycle", err)
	}
	if len(committed) != 1 || committed[0] != ok {
		t.Fatalf("committed = %v", committed)
	}
	if f.st.Get("p") != nil || f.st.Get("q") != nil {
		t.Fatalf("cycle members kept")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	parent := box("p", 10, 10, 100, 100)
	child := &scene.Shape{ID: "c", ParentID: "p", X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5}
	n := box("n", 200, 0, 40, 40)
	l := line("l", vector.Pt{X: 0, Y: 0}, vector.Pt{X: 50, Y: 50})
	f := newFixture(t, parent, child, n, l)
	f.st.Connect(n, "0", l, "1")
	f.ed.PanBy(5, 0)
	blob, err := f.ed.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	g := newFixture(t)
	if err := g.ed.Restore(blob); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if g.st.Len() != 4 || g.st.Data.X != 5 {
		t.Fatalf("len %d, pan %v", g.st.Len(), g.st.Data.X)
	}
	c := g.st.Get("c")
	if c == nil || c.Calc.WorldRect != vector.R(60, 60, 50, 50) {
		t.Fatalf("child world rect = %v", c.Calc.WorldRect)
	}
	if a := g.st.Get("l").Anchor("1"); a.ConnectTo != "n" {
		t.Fatalf("glue lost: %+v", a)
	}
	again, err := g.ed.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(again) != string(blob) {
		t.Fatalf("round trip differs:\n%s\n---\n%s", blob, again)
	}
}

func TestDropCentersOnPoint(t *testing.T) {
	f := newFixture(t)
	f.ed.ZoomTo(2, vector.Pt{})
	got := f.ed.Drop([]byte(`{"id":"tpl","name":"rectangle","width":20,"height":10}`), 100, 100)
	if len(got) != 1 {
		t.Fatalf("dropped %d shapes", len(got))
	}
	s := got[0]
	if s.ID == "tpl" {
		t.Fatalf("id not renewed")
	}
	if s.Width != 40 || s.Height != 20 || s.X != 80 || s.Y != 90 {
		t.Fatalf("dropped at %v,%v %vx%v", s.X, s.Y, s.Width, s.Height)
	}
	if activeIDs(f.st) != s.ID {
		t.Fatalf("drop not selected")
	}
	if f.ed.Drop([]byte("{not json"), 0, 0) != nil {
		t.Fatalf("malformed drop added shapes")
	}
}

func TestScheduleResizeCoalesces(t *testing.T) {
	f := newFixture(t)
	f.r.resizes = nil
	f.ed.ScheduleResize(100, 100, 1)
	f.ed.ScheduleResize(300, 200, 1)
	f.sched.fire()
	if len(f.r.resizes) != 1 || f.r.resizes[0] != [2]int{300, 200} {
		t.Fatalf("resizes = %v", f.r.resizes)
	}
	if w, h, _ := f.ed.Viewport(); w != 300 || h != 200 {
		t.Fatalf("viewport = %dx%d", w, h)
	}
}

func TestThreeFingerTouchOpensMenu(t *testing.T) {
	f := newFixture(t)
	f.ed.TouchStart([]Touch{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})
	if len(f.events) != 0 {
		t.Fatalf("fired before the debounce: %v", f.eventNames())
	}
	f.sched.fire()
	if got := f.eventNames(); len(got) != 1 || got[0] != EventContextMenu {
		t.Fatalf("events = %v", got)
	}
}

func TestPinchZooms(t *testing.T) {
	f := newFixture(t)
	f.ed.TouchStart([]Touch{{X: 100, Y: 100}, {X: 200, Y: 100}})
	f.sched.fire()
	f.ed.TouchMove([]Touch{{X: 50, Y: 100}, {X: 250, Y: 100}})
	if got := f.ed.Scale(); got != 2 {
		t.Fatalf("scale = %v", got)
	}
	f.ed.TouchEnd()
}

func TestHandlerPanicIsContained(t *testing.T) {
	f := newFixture(t, box("a", 0, 0, 50, 50))
	f.r.panics = true
	f.ed.PointerDown(PointerEvent{X: 25, Y: 25, Buttons: 1})
	if f.ed.Mode() != ModeNone {
		t.Fatalf("mode = %v after panic", f.ed.Mode())
	}
	f.click(25, 25, PointerEvent{})
	if activeIDs(f.st) != "a" {
		t.Fatalf("editor unusable after panic")
	}
}

func TestMultiHistoryFansOut(t *testing.T) {
	h1, h2 := &recordingHistory{}, &recordingHistory{}
	st := scene.NewStore(scene.DefaultOptions(), nil)
	ed := New(st, Collaborators{History: MultiHistory{h1, nil, h2}})
	if _, err := ed.AddShapes(box("a", 0, 0, 1, 1)); err != nil {
		t.Fatalf("AddShapes: %v", err)
	}
	if len(h1.changes) != 1 || len(h2.changes) != 1 {
		t.Fatalf("h1 %d h2 %d", len(h1.changes), len(h2.changes))
	}
	if c := h1.changes[0]; c.Op != OpAdd || c.SceneID != st.ID || len(c.Shapes) != 1 {
		t.Fatalf("change = %+v", c)
	}
}

func TestLateTouchStartIsDropped(t *testing.T) {
	f := newFixture(t)
	f.sched.late = true
	f.ed.TouchStart([]Touch{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})
	f.ed.TouchStart([]Touch{{X: 100, Y: 100}, {X: 200, Y: 100}})
	f.sched.fire()
	if got := f.eventNames(); len(got) != 0 {
		t.Fatalf("superseded start still ran: %v", got)
	}
	if f.ed.touch.pinch == nil {
		t.Fatalf("latest start did not begin a pinch")
	}
	if f.ed.touch.timer != nil {
		t.Fatalf("timer left behind")
	}
}

func TestLateTouchStartAfterEndIsDropped(t *testing.T) {
	f := newFixture(t)
	f.sched.late = true
	f.ed.TouchStart([]Touch{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})
	f.ed.TouchEnd()
	f.sched.fire()
	if got := f.eventNames(); len(got) != 0 {
		t.Fatalf("start ran after touch end: %v", got)
	}
}

func TestLateScheduledResizeIsDropped(t *testing.T) {
	f := newFixture(t)
	f.r.resizes = nil
	f.sched.late = true
	f.ed.ScheduleResize(300, 200, 1)
	f.ed.ScheduleResize(100, 100, 1)
	f.sched.fire()
	if len(f.r.resizes) != 1 || f.r.resizes[0] != [2]int{100, 100} {
		t.Fatalf("resizes = %v", f.r.resizes)
	}
	if w, h, _ := f.ed.Viewport(); w != 100 || h != 100 {
		t.Fatalf("viewport = %dx%d", w, h)
	}
}

func TestFirstMoveRightAfterDownIsIgnored(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	clock := &manualClock{now: time.Unix(1000, 0)}
	f := newClockedFixture(t, clock, a)
	f.ed.PointerDown(PointerEvent{X: 25, Y: 25, Buttons: 1})
	clock.advance(10 * time.Millisecond)
	f.ed.PointerMove(PointerEvent{X: 75, Y: 25, Buttons: 1})
	if a.X != 0 {
		t.Fatalf("early move applied: a.X = %v", a.X)
	}
	clock.advance(10 * time.Millisecond)
	f.ed.PointerMove(PointerEvent{X: 75, Y: 25, Buttons: 1})
	if a.X != 50 {
		t.Fatalf("second move not applied: a.X = %v", a.X)
	}
	f.ed.PointerUp(PointerEvent{X: 75, Y: 25})
}

func TestHoverIsThrottled(t *testing.T) {
	clock := &manualClock{now: time.Unix(1000, 0)}
	f := newClockedFixture(t, clock, box("a", 0, 0, 50, 50))
	f.ed.PointerMove(PointerEvent{X: 25, Y: 25})
	if got := f.ed.HoverType(); got != hit.HoverNode {
		t.Fatalf("hover = %v", got)
	}
	clock.advance(20 * time.Millisecond)
	f.ed.PointerMove(PointerEvent{X: 400, Y: 400})
	if got := f.ed.HoverType(); got != hit.HoverNode {
		t.Fatalf("hover recomputed inside the throttle: %v", got)
	}
	clock.advance(50 * time.Millisecond)
	f.ed.PointerMove(PointerEvent{X: 400, Y: 400})
	if got := f.ed.HoverType(); got != hit.HoverNone {
		t.Fatalf("hover = %v after the throttle", got)
	}
}

func TestMoveWithoutButtonsEndsDrag(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	f := newFixture(t, a)
	f.ed.PointerDown(PointerEvent{X: 25, Y: 25, Buttons: 1})
	f.ed.PointerMove(PointerEvent{X: 75, Y: 25, Buttons: 1})
	f.ed.PointerMove(PointerEvent{X: 300, Y: 300})
	if f.ed.Mode() != ModeNone {
		t.Fatalf("mode = %v", f.ed.Mode())
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpMove {
		t.Fatalf("ops = %v", ops)
	}
	if a.X != 50 {
		t.Fatalf("a.X = %v", a.X)
	}
	f.ed.PointerMove(PointerEvent{X: 350, Y: 350})
	if a.X != 50 {
		t.Fatalf("moved after release: a.X = %v", a.X)
	}
}

func TestCtrlShiftClickSelectsChild(t *testing.T) {
	p := box("p", 0, 0, 100, 100)
	c := &scene.Shape{ID: "c", ParentID: "p", X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	f := newFixture(t, p, c)
	f.click(50, 50, PointerEvent{})
	if got := activeIDs(f.st); got != "p" {
		t.Fatalf("plain click selected %q", got)
	}
	f.ed.Deselect()
	f.click(50, 50, PointerEvent{Ctrl: true, Shift: true})
	if got := activeIDs(f.st); got != "c" {
		t.Fatalf("ctrl+shift click selected %q", got)
	}
}

func TestRotateMultipleShapes(t *testing.T) {
	a := box("a", 0, 0, 50, 50)
	b := box("b", 150, 0, 50, 50)
	f := newFixture(t, a, b)
	f.ed.Select(a, b)
	r, ok := f.ed.ActiveRect()
	if !ok || r != vector.R(0, 0, 200, 50) {
		t.Fatalf("active rect = %v %v", r, ok)
	}
	f.drag(hit.RotateHandle(r), vector.Pt{X: 300, Y: 25}, PointerEvent{})
	near := func(got, want float64) bool { return got-want < 1e-6 && want-got < 1e-6 }
	if !near(a.Rotate, 90) || !near(b.Rotate, 90) {
		t.Fatalf("rotate a=%v b=%v", a.Rotate, b.Rotate)
	}
	// both shapes turn about the shared centre (100,25)
	if !near(a.X, 75) || !near(a.Y, -75) {
		t.Fatalf("a at %v,%v", a.X, a.Y)
	}
	if !near(b.X, 75) || !near(b.Y, 75) {
		t.Fatalf("b at %v,%v", b.X, b.Y)
	}
	if ops := f.hist.ops(); len(ops) != 1 || ops[0] != OpRotate {
		t.Fatalf("ops = %v", ops)
	}
}
