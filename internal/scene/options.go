/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "diagramcore/internal/vector"

// Options are the per-editor view and interaction settings.
type Options struct {
	MinScale float64
	MaxScale float64

	// AnchorRadius is the painted radius of anchor dots.
	AnchorRadius float64
	// DefaultAnchors are fractional positions synthesized for plain nodes
	// that declare no anchors.
	DefaultAnchors []vector.Pt

	DisableAnchor bool
	DisableRotate bool
	DisableSize   bool
	DisableDock   bool
	// DragAllIn makes box select require full containment.
	DragAllIn bool
	// ResizeMode turns on the resize hotkey whenever a node is selected.
	ResizeMode bool
	// MouseRightActive makes the right button select instead of pan.
	MouseRightActive bool
	// MoveSnap snaps moved shapes to the edges and centres of the others.
	MoveSnap      bool
	DockThreshold float64
	// RuleHeight is the width of the ruler band where rule lines are hit.
	RuleHeight float64

	LineWidth float64
	FontSize  float64

	Color            string
	Background       string
	ActiveColor      string
	HoverColor       string
	AnchorColor      string
	AnchorBackground string
	DragColor        string
	DockColor        string
	RotateCursor     string
	HoverCursor      string
}

// DefaultOptions returns the built-in settings.
func DefaultOptions() Options {
	return Options{
		MinScale:     0.1,
		MaxScale:     10,
		AnchorRadius: 4,
		DefaultAnchors: []vector.Pt{
			{X: 0.5, Y: 0},
			{X: 1, Y: 0.5},
			{X: 0.5, Y: 1},
			{X: 0, Y: 0.5},
		},
		DockThreshold:    5,
		RuleHeight:       20,
		LineWidth:        1,
		FontSize:         12,
		Color:            "#222222",
		Background:       "#ffffff",
		ActiveColor:      "#278df8",
		HoverColor:       "#1890ff",
		AnchorColor:      "#1890ff",
		AnchorBackground: "#ffffff",
		DragColor:        "#1890ff",
		DockColor:        "#eb5ef7",
		RotateCursor:     "rotate",
		HoverCursor:      "pointer",
	}
}
