/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps an in-memory undo/redo history of scene snapshots.
package undo

import (
	"log/slog"
	"sync"
	"time"

	"diagramcore/internal/editor"
	applog "diagramcore/internal/log"
)

// Snapshot is the encoded scene after one recorded change.
// Blob content is opaque to the recorder; size is estimated as len(Blob).
type Snapshot struct {
	SceneID string
	Op      editor.Op
	Blob    []byte
	TS      time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerScene limits the snapshots kept per scene (0 means unlimited).
	MaxPerScene int
	// MinInterval coalesces snapshots captured within the interval for the
	// same scene, replacing the previous one instead of pushing a new entry.
	MinInterval time.Duration
}

// Recorder provides an undo/redo stack per scene. It implements
// editor.History and is safe for concurrent use.
type Recorder struct {
	cfg Config
	mu  sync.Mutex
	// per-scene stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// base is the state before the first recorded change
	base map[string][]byte
	// accounting
	totalBytes int
	log        *slog.Logger
}

func NewRecorder(cfg Config) *Recorder {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Recorder{
		cfg:  cfg,
		undo: make(map[string][]Snapshot),
		redo: make(map[string][]Snapshot),
		base: make(map[string][]byte),
		log:  applog.WithComponent("undo"),
	}
}

// Record encodes the scene after an editor change and pushes it.
func (r *Recorder) Record(ch editor.Change) {
	if ch.Scene == nil {
		return
	}
	blob, err := ch.Scene()
	if err != nil {
		r.log.Warn("snapshot failed", "op", ch.Op, "err", err)
		return
	}
	ts := ch.At
	if ts.IsZero() {
		ts = time.Now()
	}
	r.Push(Snapshot{SceneID: ch.SceneID, Op: ch.Op, Blob: blob, TS: ts})
}

// Reset drops the history of a scene and sets the state undo returns to
// once every change is undone.
func (r *Recorder) Reset(sceneID string, base []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked(sceneID)
	if base != nil {
		r.base[sceneID] = base
	}
}

// Push records a snapshot. Within MinInterval of the last snapshot of the
// same scene it replaces that one. Clears the redo stack of the scene.
func (r *Recorder) Push(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stack := r.undo[s.SceneID]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < r.cfg.MinInterval {
			r.totalBytes -= len(last.Blob)
			r.totalBytes += len(s.Blob)
			stack[n-1] = s
			r.undo[s.SceneID] = stack
			r.redo[s.SceneID] = nil
			r.enforceCapsLocked(s.SceneID)
			return
		}
	}
	r.undo[s.SceneID] = append(stack, s)
	r.totalBytes += len(s.Blob)
	// any new change invalidates redo for the scene
	r.redo[s.SceneID] = nil
	r.enforceCapsLocked(s.SceneID)
}

// Undo steps back one change and returns the scene state to restore: the
// previous snapshot, or the base state when the first change is undone.
func (r *Recorder) Undo(sceneID string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stack := r.undo[sceneID]
	if len(stack) == 0 {
		return nil, false
	}
	var prev []byte
	if len(stack) > 1 {
		prev = stack[len(stack)-2].Blob
	} else if b, ok := r.base[sceneID]; ok {
		prev = b
	} else {
		return nil, false
	}
	s := stack[len(stack)-1]
	r.undo[sceneID] = stack[:len(stack)-1]
	r.totalBytes -= len(s.Blob)
	r.redo[sceneID] = append(r.redo[sceneID], s)
	return prev, true
}

// Redo re-applies the last undone change and returns its state.
func (r *Recorder) Redo(sceneID string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs := r.redo[sceneID]
	if len(rs) == 0 {
		return nil, false
	}
	s := rs[len(rs)-1]
	r.redo[sceneID] = rs[:len(rs)-1]
	r.undo[sceneID] = append(r.undo[sceneID], s)
	r.totalBytes += len(s.Blob)
	r.enforceCapsLocked(sceneID)
	return s.Blob, true
}

// Clear drops every snapshot of a scene to free memory.
func (r *Recorder) Clear(sceneID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked(sceneID)
}

func (r *Recorder) clearLocked(sceneID string) {
	for _, s := range r.undo[sceneID] {
		r.totalBytes -= len(s.Blob)
	}
	delete(r.undo, sceneID)
	delete(r.redo, sceneID)
	delete(r.base, sceneID)
	if r.totalBytes < 0 {
		r.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (r *Recorder) Stats() (totalBytes int, scenes int, totalSnapshots int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scenes = len(r.undo)
	for _, v := range r.undo {
		totalSnapshots += len(v)
	}
	return r.totalBytes, scenes, totalSnapshots
}

func (r *Recorder) enforceCapsLocked(sceneID string) {
	if r.cfg.MaxPerScene > 0 {
		stack := r.undo[sceneID]
		if len(stack) > r.cfg.MaxPerScene {
			toDrop := len(stack) - r.cfg.MaxPerScene
			for i := 0; i < toDrop; i++ {
				r.totalBytes -= len(stack[i].Blob)
			}
			// the newest dropped entry becomes the state undo returns to
			r.base[sceneID] = stack[toDrop-1].Blob
			r.undo[sceneID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// global memory cap: prune oldest across all scenes
	for r.cfg.MaxBytes > 0 && r.totalBytes > r.cfg.MaxBytes {
		oldestScene := ""
		found := false
		var oldestTS time.Time
		for id, stack := range r.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestScene, oldestTS, found = id, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := r.undo[oldestScene]
		r.totalBytes -= len(stack[0].Blob)
		r.base[oldestScene] = stack[0].Blob
		r.undo[oldestScene] = stack[1:]
		if len(r.undo[oldestScene]) == 0 {
			delete(r.undo, oldestScene)
		}
		r.log.Debug("history pruned", "scene", oldestScene, "bytes", r.totalBytes)
	}
}
