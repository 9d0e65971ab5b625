/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"time"

	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// Op names the kind of a recorded change.
type Op string

const (
	OpAdd     Op = "add"
	OpDelete  Op = "delete"
	OpMerge   Op = "merge"
	OpConnect Op = "connect"
	OpMove    Op = "move"
	OpResize  Op = "resize"
	OpRotate  Op = "rotate"
	OpAnchor  Op = "anchor"
)

// Change is handed to the history after a structural mutation and at the
// end of every drag that changed geometry.
type Change struct {
	Op      Op
	SceneID string
	// Shapes are copies of the affected shapes after the change.
	Shapes []*scene.Shape
	At     time.Time
	// Scene encodes the whole scene after the change. Only valid while
	// Record runs.
	Scene func() ([]byte, error)
}

// History receives every recorded change. Record is called with the editor
// locked and must not call back into it.
type History interface {
	Record(ch Change)
}

// MultiHistory fans a change out to several histories in order.
type MultiHistory []History

func (m MultiHistory) Record(ch Change) {
	for _, h := range m {
		if h != nil {
			h.Record(ch)
		}
	}
}

// Layers are the auxiliary surfaces (template, image, image-bottom) kept in
// step with the main canvas.
type Layers interface {
	Init(layer scene.CanvasLayer)
	Resize(width, height int, dpr float64)
	Render(layer scene.CanvasLayer)
}

// Renderer paints frames. It is called with the editor locked.
type Renderer interface {
	Render(st *scene.Store, ov render.Overlay) error
	Resize(width, height int, dpr float64)
}

type Clock interface {
	Now() time.Time
}

type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d on another goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Event names passed to the listener.
const (
	EventActive      = "active"
	EventInactive    = "inactive"
	EventAdd         = "add"
	EventDelete      = "delete"
	EventMerge       = "merge"
	EventScale       = "scale"
	EventTranslate   = "translate"
	EventContextMenu = "contextmenu"
)

type Event struct {
	Name   string
	Shapes []*scene.Shape
	// Point is the pointer position in canvas pixels, when relevant.
	Point vector.Pt
	Scale float64
}

// Listener observes editor events. It runs with the editor locked.
type Listener func(ev Event)

// Collaborators are the editor's injected dependencies. Clock and Scheduler
// default to the wall clock; the rest are optional.
type Collaborators struct {
	History   History
	Layers    Layers
	Renderer  Renderer
	Clock     Clock
	Scheduler Scheduler
	Listener  Listener
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
