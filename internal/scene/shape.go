/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "diagramcore/internal/vector"

// Kind distinguishes box-like nodes from connectors.
type Kind uint8

const (
	KindNode Kind = iota
	KindLine
)

// LockState levels, ordered: higher values forbid more.
type LockState int

const (
	LockNone         LockState = 0
	LockDisableEdit  LockState = 1
	LockDisableMove  LockState = 2
	LockDisableScale LockState = 3
	LockDisable      LockState = 10
)

// TwoWay restricts the direction in which an anchor may be connected.
type TwoWay uint8

const (
	TwoWayDefault TwoWay = iota
	TwoWayIn
	TwoWayOut
	TwoWayDisable
)

// PointType of an anchor. Line anchors are short segments rather than dots.
type PointType uint8

const (
	PointDefault PointType = iota
	PointLine
)

// CanvasLayer names the surface a shape is painted on.
type CanvasLayer uint8

const (
	LayerMain CanvasLayer = iota
	LayerTemplate
	LayerImage
	LayerImageBottom
)

func (l CanvasLayer) String() string {
	switch l {
	case LayerTemplate:
		return "template"
	case LayerImage:
		return "image"
	case LayerImageBottom:
		return "image-bottom"
	default:
		return "main"
	}
}

// Anchor is an attachment point stored as fractions of its owner's rect.
// World copies in Calculative.WorldAnchors carry absolute coordinates.
type Anchor struct {
	ID        string     `json:"id"`
	PenID     string     `json:"penId,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	Prev      *vector.Pt `json:"prev,omitempty"`
	Next      *vector.Pt `json:"next,omitempty"`
	ConnectTo string     `json:"connectTo,omitempty"`
	AnchorID  string     `json:"anchorId,omitempty"`
	TwoWay    TwoWay     `json:"twoWay,omitempty"`
	Type      PointType  `json:"type,omitempty"`
	Rotate    float64    `json:"rotate,omitempty"`
	Length    float64    `json:"length,omitempty"`
	Locked    LockState  `json:"locked,omitempty"`
	Hidden    bool       `json:"hidden,omitempty"`
	Radius    float64    `json:"radius,omitempty"`

	// Curve holds world samples toward the following anchor when either
	// end carries a control point.
	Curve []vector.Pt `json:"-"`
}

func (a *Anchor) Pt() vector.Pt { return vector.Pt{X: a.X, Y: a.Y} }

func (a *Anchor) Clone() *Anchor {
	c := *a
	if a.Prev != nil {
		p := *a.Prev
		c.Prev = &p
	}
	if a.Next != nil {
		n := *a.Next
		c.Next = &n
	}
	c.Curve = nil
	return &c
}

// ConnectedLine records a connector endpoint glued to one of this shape's anchors.
type ConnectedLine struct {
	LineID     string `json:"lineId"`
	LineAnchor string `json:"lineAnchor"`
	Anchor     string `json:"anchor"`
}

// Shape is a node or connector. Geometry is absolute when ParentID is empty
// and fractional of the parent's world rect otherwise.
type Shape struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     Kind     `json:"type,omitempty"`
	ParentID string   `json:"parentId,omitempty"`
	Children []string `json:"children,omitempty"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Rotate float64 `json:"rotate,omitempty"`
	FlipX  bool    `json:"flipX,omitempty"`
	FlipY  bool    `json:"flipY,omitempty"`

	Anchors        []*Anchor       `json:"anchors,omitempty"`
	Close          bool            `json:"close,omitempty"`
	ConnectedLines []ConnectedLine `json:"connectedLines,omitempty"`

	LineWidth  float64 `json:"lineWidth,omitempty"`
	Color      string  `json:"color,omitempty"`
	Background string  `json:"background,omitempty"`
	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`

	Locked        LockState   `json:"locked,omitempty"`
	Hidden        bool        `json:"hidden,omitempty"`
	DisableAnchor bool        `json:"disableAnchor,omitempty"`
	DisableRotate bool        `json:"disableRotate,omitempty"`
	DisableSize   bool        `json:"disableSize,omitempty"`
	IsRuleLine    bool        `json:"isRuleLine,omitempty"`
	Layer         CanvasLayer `json:"layer,omitempty"`
	ShowChild     *int        `json:"showChild,omitempty"`
	Tags          []string    `json:"tags,omitempty"`

	Calc Calculative `json:"-"`
}

// Calculative is derived state, recomputed from the persisted fields.
type Calculative struct {
	WorldRect    vector.Rect
	WorldAnchors []*Anchor
	Active       bool
	Hover        bool
	InView       bool

	path pathEntry
}

type pathEntry struct {
	path  *vector.Path
	valid bool
}

func (s *Shape) IsLine() bool { return s.Type == KindLine }

// WorldPath reports whether the outline is built from world anchors, which
// already carry the shape's rotation.
func (s *Shape) WorldPath() bool { return s.IsLine() || s.Name == "line" }

// IsCombine reports a composite: a node that only groups children.
func (s *Shape) IsCombine() bool { return s.Name == "combine" || (!s.IsLine() && len(s.Children) > 0) }

func (s *Shape) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LineR is the pointer tolerance around the shape's outline.
func (s *Shape) LineR() float64 {
	if s.LineWidth > 0 {
		return s.LineWidth/2 + 4
	}
	return 4
}

// Anchor returns the persisted anchor with id.
func (s *Shape) Anchor(id string) *Anchor {
	for _, a := range s.Anchors {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// WorldAnchor returns the world anchor with id.
func (s *Shape) WorldAnchor(id string) *Anchor {
	for _, a := range s.Calc.WorldAnchors {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Clone deep-copies the persisted fields; derived state is left empty.
func (s *Shape) Clone() *Shape {
	c := *s
	c.Calc = Calculative{}
	c.Children = append([]string(nil), s.Children...)
	c.Tags = append([]string(nil), s.Tags...)
	c.ConnectedLines = append([]ConnectedLine(nil), s.ConnectedLines...)
	if s.ShowChild != nil {
		v := *s.ShowChild
		c.ShowChild = &v
	}
	c.Anchors = make([]*Anchor, len(s.Anchors))
	for i, a := range s.Anchors {
		c.Anchors[i] = a.Clone()
	}
	if s.Anchors == nil {
		c.Anchors = nil
	}
	return &c
}
