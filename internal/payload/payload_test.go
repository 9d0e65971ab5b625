/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package payload

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"diagramcore/internal/scene"
)

func TestParseSingleAndArray(t *testing.T) {
	shapes, err := Parse([]byte(`{"name":"circle","x":1,"y":2,"width":30,"height":40}`))
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if len(shapes) != 1 || shapes[0].Name != "circle" || shapes[0].Height != 40 {
		t.Fatalf("unexpected single result %+v", shapes)
	}
	shapes, err = Parse([]byte(` [{"id":"a","width":10,"height":10},{"id":"b","type":1,"anchors":[{"x":0,"y":0},{"x":1,"y":1}]}]`))
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if len(shapes) != 2 || !shapes[1].IsLine() || len(shapes[1].Anchors) != 2 {
		t.Fatalf("unexpected array result %+v", shapes)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"name":`,
		"empty":          `  `,
		"scalar":         `42`,
		"bad width":      `{"width":"wide"}`,
		"negative width": `{"width":-1}`,
		"bad lock":       `{"locked":5}`,
		"anchor no x":    `{"anchors":[{"y":1}]}`,
	}
	for name, in := range cases {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	st := scene.NewStore(scene.DefaultOptions(), nil)
	st.Data.X, st.Data.Scale = 12, 2
	parent := &scene.Shape{ID: "p", X: 10, Y: 10, Width: 100, Height: 50, Text: "hi"}
	child := &scene.Shape{ID: "c", ParentID: "p", X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25}
	if _, err := st.Add(parent, child); err != nil {
		t.Fatalf("add: %v", err)
	}
	b, err := EncodeDocument(DocumentOf(st))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	doc, err := ParseDocument(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Version != Version || doc.Data.X != 12 || doc.Data.Scale != 2 {
		t.Fatalf("view state lost: %+v", doc)
	}
	if len(doc.Shapes) != 2 || doc.Shapes[1].ParentID != "p" || doc.Shapes[0].Text != "hi" {
		t.Fatalf("shapes lost: %+v", doc.Shapes)
	}
	if len(doc.Shapes[0].Children) != 1 || doc.Shapes[0].Children[0] != "c" {
		t.Fatalf("children lost: %+v", doc.Shapes[0].Children)
	}
	if bytes.Contains(b, []byte(`"anchors"`)) {
		t.Fatalf("default anchors were saved: %s", b)
	}
}

func TestParseDocumentDefaultsAndErrors(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"pens":[]}`))
	if err != nil {
		t.Fatalf("minimal: %v", err)
	}
	if doc.Data.Scale != 1 || doc.Version != Version {
		t.Fatalf("defaults not applied: %+v", doc)
	}
	if _, err := ParseDocument([]byte(`{"data":{}}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing pens should be malformed, got %v", err)
	}
	if _, err := ParseDocument([]byte(`{"pens":[{"width":"x"}]}`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad pen should be malformed, got %v", err)
	}
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"pens":[{"id":"a","width":5,"height":5}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(doc.Shapes) != 1 || doc.Shapes[0].ID != "a" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if _, err := ReadDocument(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEncodeSkipsNil(t *testing.T) {
	b, err := Encode([]*scene.Shape{nil, {ID: "a"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	shapes, err := Parse(b)
	if err != nil || len(shapes) != 1 || shapes[0].ID != "a" {
		t.Fatalf("round trip: %v %+v", err, shapes)
	}
}
