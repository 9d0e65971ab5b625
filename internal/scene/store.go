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
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	applog "diagramcore/internal/log"
	"diagramcore/internal/vector"
)

var (
	ErrNotFound  = errors.New("scene: shape not found")
	ErrDuplicate = errors.New("scene: duplicate shape id")
)

// Data is the view state shared by every shape: pan offset, zoom and lock.
type Data struct {
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Scale  float64   `json:"scale"`
	Origin vector.Pt `json:"origin"`
	Locked LockState `json:"locked,omitempty"`
}

// Store is the mutable scene owned by one editor session.
type Store struct {
	ID       string
	Data     Data
	Options  Options
	Registry *Registry
	// Canvas is the visible viewport in logical pixels.
	Canvas vector.Rect

	pens map[string]*Shape
	list []*Shape

	Active       []*Shape
	Hover        *Shape
	LastHover    *Shape
	HoverAnchor  *Anchor
	ActiveAnchor *Anchor
	PointAt      *vector.Pt
	PointAtIndex int

	log *slog.Logger
}

// NewStore creates an empty scene. A nil registry uses the built-ins.
func NewStore(opts Options, reg *Registry) *Store {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Store{
		ID:           uuid.NewString(),
		Data:         Data{Scale: 1},
		Options:      opts,
		Registry:     reg,
		pens:         map[string]*Shape{},
		PointAtIndex: -1,
		log:          applog.WithComponent("scene"),
	}
}

func (st *Store) Get(id string) *Shape {
	if id == "" {
		return nil
	}
	return st.pens[id]
}

// Shapes returns the draw list, bottom first.
func (st *Store) Shapes() []*Shape { return st.list }

func (st *Store) Len() int { return len(st.list) }

// Find returns the first shape whose id or tag equals idOrTag.
func (st *Store) Find(idOrTag string) *Shape {
	if s := st.pens[idOrTag]; s != nil {
		return s
	}
	for _, s := range st.list {
		if s.HasTag(idOrTag) {
			return s
		}
	}
	return nil
}

func (st *Store) Parent(s *Shape) *Shape { return st.Get(s.ParentID) }

// Root returns the outermost ancestor of s, or s itself.
func (st *Store) Root(s *Shape) *Shape {
	seen := map[string]bool{}
	for p := st.Parent(s); p != nil && !seen[p.ID]; p = st.Parent(p) {
		seen[p.ID] = true
		s = p
	}
	return s
}

// Children returns the listed children that name s as their parent.
func (st *Store) Children(s *Shape) []*Shape {
	out := make([]*Shape, 0, len(s.Children))
	for _, id := range s.Children {
		if c := st.pens[id]; c != nil && c.ParentID == s.ID {
			out = append(out, c)
		}
	}
	return out
}

// NewID returns a fresh shape id.
func NewID() string { return uuid.NewString() }

// NewAnchorID returns a short id unique enough within one shape.
func NewAnchorID() string { return uuid.NewString()[:8] }

// Add inserts shapes into the map and draw list, normalizes defaults and
// computes their derived state. Shapes that take part in a parent cycle are
// rejected and reported in the joined error.
func (st *Store) Add(shapes ...*Shape) ([]*Shape, error) {
	var errs []error
	added := make([]*Shape, 0, len(shapes))
	for _, s := range shapes {
		if s == nil {
			continue
		}
		if s.ID == "" {
			s.ID = NewID()
		}
		if _, dup := st.pens[s.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicate, s.ID))
			continue
		}
		st.normalize(s)
		st.pens[s.ID] = s
		st.list = append(st.list, s)
		added = append(added, s)
	}
	for _, s := range added {
		if p := st.Parent(s); p != nil && p != s && !containsID(p.Children, s.ID) {
			p.Children = append(p.Children, s.ID)
		}
	}
	pass := st.NewPass()
	committed := added[:0]
	var rejected []*Shape
	for _, s := range added {
		if st.inCycle(s) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrParentCycle, s.ID))
			rejected = append(rejected, s)
			continue
		}
	}
	for _, s := range added {
		if containsShape(rejected, s) {
			continue
		}
		if err := st.updateRect(s, pass); err != nil {
			errs = append(errs, err)
			rejected = append(rejected, s)
			continue
		}
		committed = append(committed, s)
	}
	for _, s := range rejected {
		st.detach(s)
	}
	if len(rejected) > 0 {
		st.log.Warn("shapes rejected", "count", len(rejected))
	}
	return committed, errors.Join(errs...)
}

func (st *Store) normalize(s *Shape) {
	if s.Name == "" {
		if s.IsLine() {
			s.Name = "line"
		} else {
			s.Name = "rectangle"
		}
	}
	if s.LineWidth == 0 {
		s.LineWidth = st.Options.LineWidth
	}
	if s.FontSize == 0 {
		s.FontSize = st.Options.FontSize
	}
	for i, a := range s.Anchors {
		if a.ID == "" {
			a.ID = strconv.Itoa(i)
		}
		a.PenID = s.ID
	}
}

// Remove deletes shapes with their descendants and every connection that
// points at them. It returns what was removed.
func (st *Store) Remove(shapes ...*Shape) []*Shape {
	var removed []*Shape
	var walk func(s *Shape)
	walk = func(s *Shape) {
		if st.pens[s.ID] != s {
			return
		}
		for _, c := range st.Children(s) {
			walk(c)
		}
		st.detach(s)
		removed = append(removed, s)
	}
	for _, s := range shapes {
		if s != nil {
			walk(s)
		}
	}
	return removed
}

func (st *Store) detach(s *Shape) {
	delete(st.pens, s.ID)
	for i, x := range st.list {
		if x == s {
			st.list = append(st.list[:i], st.list[i+1:]...)
			break
		}
	}
	if p := st.Parent(s); p != nil {
		p.Children = removeID(p.Children, s.ID)
	}
	for _, cl := range s.ConnectedLines {
		if line := st.Get(cl.LineID); line != nil {
			if a := line.Anchor(cl.LineAnchor); a != nil {
				a.ConnectTo, a.AnchorID = "", ""
			}
			if a := line.WorldAnchor(cl.LineAnchor); a != nil {
				a.ConnectTo, a.AnchorID = "", ""
			}
		}
	}
	for _, a := range s.Anchors {
		if a.ConnectTo != "" {
			if target := st.Get(a.ConnectTo); target != nil {
				target.ConnectedLines = removeLine(target.ConnectedLines, s.ID, a.ID)
			}
		}
	}
	st.Active = without(st.Active, s)
	s.Calc.Active = false
	if st.Hover == s {
		st.Hover, st.HoverAnchor = nil, nil
	}
	if st.LastHover == s {
		st.LastHover = nil
	}
	if st.ActiveAnchor != nil && st.ActiveAnchor.PenID == s.ID {
		st.ActiveAnchor = nil
	}
}

// Reset empties the scene and its interaction state. View state is kept.
func (st *Store) Reset() {
	st.pens = map[string]*Shape{}
	st.list = nil
	st.Active = nil
	st.Hover, st.LastHover = nil, nil
	st.HoverAnchor, st.ActiveAnchor = nil, nil
	st.PointAt, st.PointAtIndex = nil, -1
}

// Path returns the cached outline of s, building it on first use.
func (st *Store) Path(s *Shape) *vector.Path {
	if s.Calc.path.valid {
		return s.Calc.path.path
	}
	p := st.Registry.Lookup(s.Name).Path(s)
	s.Calc.path = pathEntry{path: p, valid: true}
	return p
}

// SetActive replaces the selection flags.
func (st *Store) SetActive(shapes []*Shape) {
	for _, s := range st.Active {
		s.Calc.Active = false
	}
	st.Active = append([]*Shape(nil), shapes...)
	for _, s := range st.Active {
		s.Calc.Active = true
	}
}

func (st *Store) IsActive(s *Shape) bool {
	for _, a := range st.Active {
		if a == s {
			return true
		}
	}
	return false
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func removeLine(lines []ConnectedLine, lineID, lineAnchor string) []ConnectedLine {
	out := lines[:0]
	for _, l := range lines {
		if l.LineID == lineID && l.LineAnchor == lineAnchor {
			continue
		}
		out = append(out, l)
	}
	return out
}

func without(list []*Shape, s *Shape) []*Shape {
	out := make([]*Shape, 0, len(list))
	for _, x := range list {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}

func containsShape(list []*Shape, s *Shape) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
