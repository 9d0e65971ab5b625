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
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/draw"
)

// Surface is a logical canvas backed by pixel buffers of logical size times
// the device pixel ratio. Frames are painted offscreen and blitted.
type Surface struct {
	mu        sync.RWMutex
	width     int
	height    int
	dpr       float64
	offscreen *image.RGBA
	visible   *image.RGBA
}

func NewSurface(width, height int, dpr float64) *Surface {
	s := &Surface{}
	s.Resize(width, height, dpr)
	return s
}

// ClampPixelRatio maps device pixel ratios below 1 to 1 and those strictly
// between 1 and 1.5 to 1.5.
func ClampPixelRatio(r float64) float64 {
	if r < 1 {
		return 1
	}
	if r > 1 && r < 1.5 {
		return 1.5
	}
	return r
}

// Resize reallocates both buffers. Negative sizes are treated as zero.
func (s *Surface) Resize(width, height int, dpr float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = max(width, 0), max(height, 0)
	s.dpr = ClampPixelRatio(dpr)
	b := image.Rect(0, 0, int(math.Ceil(float64(s.width)*s.dpr)), int(math.Ceil(float64(s.height)*s.dpr)))
	s.offscreen = image.NewRGBA(b)
	s.visible = image.NewRGBA(b)
}

// Size returns the logical size and the pixel ratio.
func (s *Surface) Size() (width, height int, dpr float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, s.dpr
}

// Offscreen is the buffer frames are painted into.
func (s *Surface) Offscreen() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offscreen
}

// Clear fills the offscreen buffer with c.
func (s *Surface) Clear(c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.offscreen, s.offscreen.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Blit copies the finished offscreen frame to the visible buffer.
func (s *Surface) Blit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.visible, s.visible.Bounds(), s.offscreen, image.Point{}, draw.Src)
}

// Visible returns a copy of the last blitted frame at backing resolution.
func (s *Surface) Visible() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewRGBA(s.visible.Bounds())
	copy(out.Pix, s.visible.Pix)
	return out
}

// Present returns the last frame scaled down to the logical size.
func (s *Surface) Present() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	if s.dpr == 1 {
		copy(out.Pix, s.visible.Pix)
		return out
	}
	draw.CatmullRom.Scale(out, out.Bounds(), s.visible, s.visible.Bounds(), draw.Src, nil)
	return out
}
