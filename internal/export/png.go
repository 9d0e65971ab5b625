/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"diagramcore/internal/render"
	"diagramcore/internal/scene"
)

// PNGOptions controls PNG export behavior.
// - PixelRatio: output pixels per logical pixel (default 1, clamped like a device ratio)
// - Padding: margin around the shapes in logical pixels (default 10)
type PNGOptions struct {
	PixelRatio float64
	Padding    float64
}

// Image renders the exported shapes into a new image without any overlay.
func Image(st *scene.Store, opt PNGOptions) (*image.RGBA, error) {
	b, ok := Bounds(st)
	if !ok {
		return nil, ErrEmpty
	}
	pad := opt.Padding
	if pad <= 0 {
		pad = defaultPadding
	}
	var img *image.RGBA
	err := frame(st, b, pad, func(w, h int) error {
		r := render.New(w, h, opt.PixelRatio)
		if err := r.Render(st, render.Overlay{}); err != nil {
			return err
		}
		img = r.Surface().Visible()
		return nil
	})
	return img, err
}

// PNG exports the scene to a single PNG file at path.
func PNG(st *scene.Store, path string, opt PNGOptions) error {
	img, err := Image(st, opt)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}
