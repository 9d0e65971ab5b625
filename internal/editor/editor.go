/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the interaction state machine of a diagram canvas. It
// turns pointer, wheel and touch input into selection, moves, resizes,
// rotations, connector drawing and view changes on a scene store, and asks
// its renderer for a frame after each change.
package editor

import (
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"diagramcore/internal/hit"
	applog "diagramcore/internal/log"
	"diagramcore/internal/payload"
	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// ErrLocked is returned by structural edits while the scene is locked.
var ErrLocked = errors.New("editor: scene is locked")

const (
	moveThrottle   = 50 * time.Millisecond
	hoverThrottle  = 50 * time.Millisecond
	touchDebounce  = 50 * time.Millisecond
	resizeDebounce = 100 * time.Millisecond

	// shakeDistance is how far a ctrl-drag must travel before a pending
	// deselect turns into a move.
	shakeDistance = 20
	zoomStep      = 1.1
	minSize       = 1
)

// Mode is the drag operation in progress.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeTranslate
	ModeSelectSingle
	ModeSelectAdd
	ModeBoxSelect
	ModeResize
	ModeRotate
	ModeDrawConnector
	ModeDragAnchor
	ModeDragConnectorEndpoint
	ModeDragControl
)

func (m Mode) String() string {
	switch m {
	case ModeTranslate:
		return "translate"
	case ModeSelectSingle:
		return "select-single"
	case ModeSelectAdd:
		return "select-add"
	case ModeBoxSelect:
		return "box-select"
	case ModeResize:
		return "resize"
	case ModeRotate:
		return "rotate"
	case ModeDrawConnector:
		return "draw-connector"
	case ModeDragAnchor:
		return "drag-anchor"
	case ModeDragConnectorEndpoint:
		return "drag-connector-endpoint"
	case ModeDragControl:
		return "drag-control"
	default:
		return "none"
	}
}

type rightButton uint8

const (
	rightNone rightButton = iota
	rightDown
	rightTranslate
)

type pointerDown struct {
	pt     vector.Pt // world
	screen vector.Pt // canvas pixels, moves along while panning
	ev     PointerEvent
	hover  hit.HoverType
}

type anchorRef struct {
	shape  *scene.Shape
	anchor string
}

// Editor owns one scene and serializes every input on its mutex. Handlers
// never let a panic escape: it is logged and the drag state is reset.
type Editor struct {
	mu    sync.Mutex
	store *scene.Store
	hit   *hit.Tester
	c     Collaborators
	log   *slog.Logger

	width, height int
	dpr           float64

	hotkey      hit.Hotkey
	hover       hit.HoverType
	cursor      string
	handleIndex int
	mode        Mode

	down       *pointerDown
	downAt     time.Time
	last       vector.Pt
	lastScreen vector.Pt
	lastHover  time.Time
	right      rightButton
	moved      bool

	willInactive   *scene.Shape
	activeRect     *vector.Rect
	initActiveRect *vector.Rect
	transform      []*scene.Shape
	initRects      map[*scene.Shape]vector.Rect
	lastRotate     float64
	dragRect       *vector.Rect
	guides         []vector.GuideLine

	activeAnchorID string
	control        hit.HoverType

	drawingName string
	drawing     *scene.Shape
	drawFrom    *anchorRef

	touch       touchState
	resizeTimer Timer
	resizeGen   uint64
}

// Option configures an Editor.
type Option func(*Editor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithViewport sets the initial canvas size without notifying collaborators.
func WithViewport(width, height int, dpr float64) Option {
	return func(e *Editor) {
		e.width, e.height, e.dpr = width, height, render.ClampPixelRatio(dpr)
		e.store.Canvas = vector.R(0, 0, float64(width), float64(height))
	}
}

// New wraps st. The store must not be mutated behind the editor's back once
// input starts flowing.
func New(st *scene.Store, c Collaborators, opts ...Option) *Editor {
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Scheduler == nil {
		c.Scheduler = timeScheduler{}
	}
	e := &Editor{
		store:       st,
		hit:         hit.New(st),
		c:           c,
		log:         applog.WithComponent("editor"),
		dpr:         1,
		cursor:      hit.CursorDefault,
		handleIndex: -1,
	}
	for _, o := range opts {
		o(e)
	}
	st.RefreshView()
	return e
}

func (e *Editor) Store() *scene.Store { return e.store }

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Editor) Cursor() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// HoverType is the classification of the last pointer position.
func (e *Editor) HoverType() hit.HoverType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hover
}

// ActiveRect returns the selection bounds, or false without a movable selection.
func (e *Editor) ActiveRect() (vector.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeRect == nil {
		return vector.Rect{}, false
	}
	return *e.activeRect, true
}

// Active returns the selected shapes.
func (e *Editor) Active() []*scene.Shape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*scene.Shape(nil), e.store.Active...)
}

func (e *Editor) SetHotkey(h hit.Hotkey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hotkey = h
	e.render()
}

// AddShapes inserts shapes and records the change. Shapes in a parent
// cycle are rejected; the rest are committed and returned with the error.
func (e *Editor) AddShapes(shapes ...*scene.Shape) ([]*scene.Shape, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("add-shapes")
	if e.store.Data.Locked != scene.LockNone {
		return nil, ErrLocked
	}
	committed, err := e.store.Add(shapes...)
	if err != nil {
		e.log.Warn("shapes rejected", "err", err)
	}
	if len(committed) > 0 {
		e.record(OpAdd, committed)
		e.emit(Event{Name: EventAdd, Shapes: committed})
		e.touchLayers(committed)
	}
	e.render()
	return committed, err
}

// DeleteShapes removes shapes with their descendants. Locked shapes are
// skipped. Without arguments the selection is deleted.
func (e *Editor) DeleteShapes(shapes ...*scene.Shape) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("delete-shapes")
	st := e.store
	if st.Data.Locked != scene.LockNone {
		return ErrLocked
	}
	if len(shapes) == 0 {
		shapes = st.Active
	}
	var victims []*scene.Shape
	for _, s := range shapes {
		if s == nil || s.Locked != scene.LockNone || st.Get(s.ID) != s {
			continue
		}
		victims = append(victims, s)
	}
	removed := st.Remove(victims...)
	if len(removed) == 0 {
		return nil
	}
	e.record(OpDelete, removed)
	e.emit(Event{Name: EventDelete, Shapes: removed})
	e.touchLayers(removed)
	e.calcActiveRect()
	e.render()
	return nil
}

// Select replaces the selection with shapes that belong to the scene.
func (e *Editor) Select(shapes ...*scene.Shape) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var picked []*scene.Shape
	for _, s := range shapes {
		if s != nil && e.store.Get(s.ID) == s {
			picked = append(picked, s)
		}
	}
	e.selectShapes(picked)
	e.render()
}

func (e *Editor) Deselect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inactive()
	e.render()
}

// Lock sets the scene lock level.
func (e *Editor) Lock(level scene.LockState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Data.Locked = level
	if level != scene.LockNone {
		e.hotkey = hit.HotkeyNone
	}
	e.render()
}

// HitTest classifies a point in canvas pixels without changing any state.
func (e *Editor) HitTest(x, y float64) hit.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.test(e.calibrate(x, y), false, PointerEvent{})
}

// Render paints a frame of the current state.
func (e *Editor) Render() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.render()
}

// Snapshot encodes the scene, view state included.
func (e *Editor) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.encode()
}

// Restore replaces the scene with a document produced by Snapshot. The
// selection and any drag in progress are dropped.
func (e *Editor) Restore(data []byte) error {
	doc, err := payload.ParseDocument(data)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.guard("restore")
	e.resetPointer()
	e.drawing, e.drawingName = nil, ""
	e.activeAnchorID = ""
	st := e.store
	st.Reset()
	st.Data = doc.Data
	_, err = st.Add(doc.Shapes...)
	e.calcActiveRect()
	e.refreshLayers()
	e.render()
	return err
}

func (e *Editor) encode() ([]byte, error) {
	return payload.EncodeDocument(payload.DocumentOf(e.store))
}

func (e *Editor) calibrate(x, y float64) vector.Pt {
	return vector.Pt{X: x - e.store.Data.X, Y: y - e.store.Data.Y}
}

// record hands a change to the history. The scene encoder runs lazily under
// the editor lock.
func (e *Editor) record(op Op, shapes []*scene.Shape) {
	if e.c.History == nil || len(shapes) == 0 {
		return
	}
	clones := make([]*scene.Shape, 0, len(shapes))
	for _, s := range shapes {
		if s != nil {
			clones = append(clones, s.Clone())
		}
	}
	e.c.History.Record(Change{
		Op:      op,
		SceneID: e.store.ID,
		Shapes:  clones,
		At:      e.c.Clock.Now(),
		Scene:   e.encode,
	})
}

func (e *Editor) emit(ev Event) {
	if e.c.Listener == nil {
		return
	}
	if ev.Scale == 0 {
		ev.Scale = e.store.Data.Scale
	}
	e.c.Listener(ev)
}

func (e *Editor) render() {
	if e.c.Renderer == nil {
		return
	}
	if err := e.c.Renderer.Render(e.store, e.overlay()); err != nil {
		e.log.Warn("render failed", "err", err)
	}
}

func (e *Editor) overlay() render.Overlay {
	st := e.store
	ov := render.Overlay{
		ActiveRect:   e.activeRect,
		Hover:        st.Hover,
		HoverAnchor:  st.HoverAnchor,
		ActiveAnchor: st.ActiveAnchor,
		DragRect:     e.dragRect,
		Guides:       e.guides,
		Drawing:      e.drawing,
	}
	if len(st.Active) == 1 && st.Active[0].IsLine() {
		ov.ActiveLine = st.Active[0]
		ov.ActiveRect = nil
	} else if e.activeRect != nil && st.Data.Locked == scene.LockNone && !e.allActiveLocked() {
		ov.Rotate = !st.Options.DisableRotate && e.hotkey == hit.HotkeyNone
		ov.Handles = !st.Options.DisableSize && e.hotkey != hit.HotkeyAddAnchor
		ov.EdgeHandles = ov.Handles && e.hotkey == hit.HotkeyResize
	}
	if e.hotkey == hit.HotkeyAddAnchor && e.hover == hit.HoverLine {
		ov.PointAt = st.PointAt
	}
	return ov
}

func (e *Editor) allActiveLocked() bool {
	for _, s := range e.store.Active {
		if s.Locked == scene.LockNone {
			return false
		}
	}
	return len(e.store.Active) > 0
}

// guard recovers a panic raised by a handler, logs it and drops the drag
// state so the next event starts clean.
func (e *Editor) guard(op string) {
	if r := recover(); r != nil {
		e.log.Error("handler panic",
			slog.String("op", op),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())))
		e.resetPointer()
	}
}

func (e *Editor) resetPointer() {
	e.down = nil
	e.downAt = time.Time{}
	e.mode = ModeNone
	e.right = rightNone
	e.moved = false
	e.willInactive = nil
	e.initActiveRect = nil
	e.transform = nil
	e.initRects = nil
	e.dragRect = nil
	e.guides = nil
	e.drawFrom = nil
	if e.drawing != nil && e.drawingName == "" {
		e.drawing = nil
	}
}

// calcActiveRect derives the selection bounds from the movable selected
// shapes: a single shape keeps its rotation, several use the union of
// their bounding boxes.
func (e *Editor) calcActiveRect() {
	var movable []*scene.Shape
	for _, s := range e.store.Active {
		if s.Locked < scene.LockDisableMove && !s.Hidden {
			movable = append(movable, s)
		}
	}
	e.lastRotate = 0
	switch len(movable) {
	case 0:
		e.activeRect = nil
	case 1:
		r := movable[0].Calc.WorldRect
		e.activeRect = &r
	default:
		r := movable[0].Calc.WorldRect.Bounds()
		for _, s := range movable[1:] {
			r = r.Union(s.Calc.WorldRect.Bounds())
		}
		r.Rotate = 0
		e.activeRect = &r
	}
}

func (e *Editor) selectShapes(shapes []*scene.Shape) {
	if len(shapes) == 0 {
		e.inactive()
		return
	}
	prev := e.store.Active
	e.store.SetActive(shapes)
	e.store.ActiveAnchor = nil
	e.activeAnchorID = ""
	e.calcActiveRect()
	e.touchLayers(prev)
	e.touchLayers(shapes)
	e.emit(Event{Name: EventActive, Shapes: shapes})
}

func (e *Editor) inactive() {
	st := e.store
	prev := st.Active
	st.SetActive(nil)
	st.ActiveAnchor = nil
	e.activeAnchorID = ""
	e.activeRect = nil
	if st.Options.ResizeMode && e.hotkey == hit.HotkeyResize {
		e.hotkey = hit.HotkeyNone
	}
	if len(prev) > 0 {
		e.touchLayers(prev)
		e.emit(Event{Name: EventInactive, Shapes: prev})
	}
}

var auxLayers = [...]scene.CanvasLayer{scene.LayerTemplate, scene.LayerImage, scene.LayerImageBottom}

// refreshLayers rebuilds every auxiliary layer after a view change.
func (e *Editor) refreshLayers() {
	if e.c.Layers == nil {
		return
	}
	for _, l := range auxLayers {
		e.c.Layers.Init(l)
		e.c.Layers.Render(l)
	}
}

// touchLayers repaints the auxiliary layers that shapes live on.
func (e *Editor) touchLayers(shapes []*scene.Shape) {
	if e.c.Layers == nil {
		return
	}
	var seen [len(auxLayers) + 1]bool
	for _, s := range shapes {
		if s == nil || s.Layer == scene.LayerMain || int(s.Layer) >= len(seen) || seen[s.Layer] {
			continue
		}
		seen[s.Layer] = true
		e.c.Layers.Init(s.Layer)
		e.c.Layers.Render(s.Layer)
	}
}
