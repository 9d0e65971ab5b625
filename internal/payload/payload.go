/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package payload reads and writes shape descriptors exchanged with the
// outside: drop data, imports and scene documents. Input is validated
// against embedded JSON schemas before it is decoded.
package payload

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	applog "diagramcore/internal/log"
	"diagramcore/internal/scene"
)

// ErrMalformed is returned for input that is not valid JSON or does not
// match the schema.
var ErrMalformed = errors.New("payload: malformed")

// Version of the scene document format written by EncodeDocument.
const Version = 1

//go:embed schema/*.json
var schemaFS embed.FS

// Document is a saved scene: view state and the draw list, bottom first.
type Document struct {
	Version int            `json:"version"`
	Data    scene.Data     `json:"data"`
	Shapes  []*scene.Shape `json:"pens"`
}

var (
	schemaOnce     sync.Once
	shapesSchema   *gojsonschema.Schema
	documentSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		load := func(name string) *gojsonschema.Schema {
			b, err := schemaFS.ReadFile("schema/" + name)
			if err != nil {
				schemaErr = errors.Join(schemaErr, err)
				return nil
			}
			s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
			if err != nil {
				schemaErr = errors.Join(schemaErr, fmt.Errorf("schema %s: %w", name, err))
				return nil
			}
			return s
		}
		shapesSchema = load("shapes.json")
		documentSchema = load("document.json")
	})
	return schemaErr
}

func validate(s *gojsonschema.Schema, data []byte) error {
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
	}
	return nil
}

// Parse decodes one shape object or an array of shapes.
func Parse(data []byte) ([]*scene.Shape, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	if err := loadSchemas(); err != nil {
		return nil, err
	}
	if err := validate(shapesSchema, data); err != nil {
		applog.WithComponent("payload").Debug("shapes rejected", "err", err)
		return nil, err
	}
	if data[0] == '[' {
		var shapes []*scene.Shape
		if err := json.Unmarshal(data, &shapes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return compact(shapes), nil
	}
	var s scene.Shape
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return []*scene.Shape{&s}, nil
}

// ParseDocument decodes a scene document. Each shape is validated like a
// dropped one, and a missing scale defaults to 1.
func ParseDocument(data []byte) (*Document, error) {
	if err := loadSchemas(); err != nil {
		return nil, err
	}
	if err := validate(documentSchema, data); err != nil {
		return nil, err
	}
	var raw struct {
		Version int               `json:"version"`
		Data    scene.Data        `json:"data"`
		Shapes  []json.RawMessage `json:"pens"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	doc := &Document{Version: raw.Version, Data: raw.Data, Shapes: make([]*scene.Shape, 0, len(raw.Shapes))}
	var errs []error
	for i, r := range raw.Shapes {
		shapes, err := Parse(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("pens[%d]: %w", i, err))
			continue
		}
		doc.Shapes = append(doc.Shapes, shapes...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if doc.Data.Scale <= 0 {
		doc.Data.Scale = 1
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	return doc, nil
}

// ReadDocument loads a scene document from path.
func ReadDocument(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseDocument(b)
}

// Encode writes shapes as a JSON array.
func Encode(shapes []*scene.Shape) ([]byte, error) {
	return json.Marshal(compact(shapes))
}

// EncodeDocument writes a scene document.
func EncodeDocument(doc *Document) ([]byte, error) {
	out := *doc
	if out.Version == 0 {
		out.Version = Version
	}
	out.Shapes = compact(doc.Shapes)
	return json.MarshalIndent(out, "", "  ")
}

// DocumentOf captures the current persisted state of a store.
func DocumentOf(st *scene.Store) *Document {
	shapes := make([]*scene.Shape, 0, st.Len())
	for _, s := range st.Shapes() {
		shapes = append(shapes, s.Clone())
	}
	return &Document{Version: Version, Data: st.Data, Shapes: shapes}
}

func compact(shapes []*scene.Shape) []*scene.Shape {
	out := make([]*scene.Shape, 0, len(shapes))
	for _, s := range shapes {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
