/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes a scene to PNG and PDF files. Both exporters frame
// the visible shapes with a padding and ignore the current pan and viewport.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// ErrEmpty is returned when the scene has nothing to export.
var ErrEmpty = errors.New("export: nothing to export")

const defaultPadding = 10

// exported reports whether s ends up in an export.
func exported(st *scene.Store, s *scene.Shape) bool {
	if s.Hidden || s.IsRuleLine || s.Layer == scene.LayerTemplate {
		return false
	}
	seen := map[string]bool{s.ID: true}
	for p := st.Parent(s); p != nil; p = st.Parent(p) {
		if p.Hidden || seen[p.ID] {
			return false
		}
		seen[p.ID] = true
	}
	return true
}

// Bounds is the union of the world rects of every exported shape.
func Bounds(st *scene.Store) (vector.Rect, bool) {
	var (
		out vector.Rect
		ok  bool
	)
	for _, s := range st.Shapes() {
		if !exported(st, s) {
			continue
		}
		b := s.Calc.WorldRect.Bounds()
		if !ok {
			out, ok = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, ok
}

// frame pans the store so that b sits padding pixels from the top left of
// a w x h canvas, runs fn and restores the view.
func frame(st *scene.Store, b vector.Rect, padding float64, fn func(w, h int) error) error {
	w := int(b.W + 2*padding + 0.5)
	h := int(b.H + 2*padding + 0.5)
	if w <= 0 || h <= 0 {
		return ErrEmpty
	}
	data, canvas := st.Data, st.Canvas
	defer func() {
		st.Data, st.Canvas = data, canvas
		st.RefreshView()
	}()
	st.Data.X, st.Data.Y = padding-b.X, padding-b.Y
	st.Canvas = vector.R(0, 0, float64(w), float64(h))
	st.RefreshView()
	return fn(w, h)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	return nil
}
