/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"diagramcore/internal/payload"
	"diagramcore/internal/scene"
)

func doc(text string) *payload.Document {
	return &payload.Document{
		Data: scene.Data{Scale: 1},
		Shapes: []*scene.Shape{
			{ID: "a", Name: "rectangle", X: 10, Y: 20, Width: 30, Height: 40, Text: text},
		},
	}
}

func TestSaveSceneCreatesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := SaveScene(path, doc("first")); err != nil {
		t.Fatalf("SaveScene error: %v", err)
	}
	if bs, _ := Backups(path); len(bs) != 0 {
		t.Fatalf("first save should not back up, got %v", bs)
	}
	if err := SaveScene(path, doc("second")); err != nil {
		t.Fatalf("SaveScene error: %v", err)
	}
	bs, err := Backups(path)
	if err != nil || len(bs) != 1 {
		t.Fatalf("backups = %v, %v", bs, err)
	}
	old, err := payload.ReadDocument(bs[0])
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if old.Shapes[0].Text != "first" {
		t.Fatalf("backup text = %q", old.Shapes[0].Text)
	}
	cur, err := OpenScene(path)
	if err != nil {
		t.Fatalf("OpenScene error: %v", err)
	}
	if cur.Shapes[0].Text != "second" || cur.Shapes[0].Width != 30 {
		t.Fatalf("unexpected scene: %+v", cur.Shapes[0])
	}
	// no temp files are left behind
	ents, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range ents {
		if e.Name() != "scene.json" && e.Name() != BackupsDirName {
			t.Fatalf("unexpected file %s", e.Name())
		}
	}
}

func TestOpenSceneFallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := SaveScene(path, doc("good")); err != nil {
		t.Fatalf("SaveScene error: %v", err)
	}
	if err := SaveScene(path, doc("newer")); err != nil {
		t.Fatalf("SaveScene error: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := OpenScene(path)
	if err != nil {
		t.Fatalf("OpenScene error: %v", err)
	}
	if got.Shapes[0].Text != "good" {
		t.Fatalf("recovered text = %q, want good", got.Shapes[0].Text)
	}
}

func TestOpenSceneMissingWithoutBackup(t *testing.T) {
	if _, err := OpenScene(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveSceneRejectsNil(t *testing.T) {
	if err := SaveScene(filepath.Join(t.TempDir(), "x.json"), nil); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestAutosaveCrashLeavesSceneAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := SaveScene(path, doc("saved")); err != nil {
		t.Fatalf("SaveScene error: %v", err)
	}
	out, err := AutosaveCrash(path, doc("unsaved"))
	if err != nil {
		t.Fatalf("AutosaveCrash error: %v", err)
	}
	if filepath.Dir(out) != filepath.Join(filepath.Dir(path), BackupsDirName) {
		t.Fatalf("autosave at %s", out)
	}
	got, err := payload.ReadDocument(out)
	if err != nil || got.Shapes[0].Text != "unsaved" {
		t.Fatalf("autosave content = %+v, %v", got, err)
	}
	cur, err := OpenScene(path)
	if err != nil || cur.Shapes[0].Text != "saved" {
		t.Fatalf("scene changed: %+v, %v", cur, err)
	}
	// crash autosaves are not backups
	if bs, _ := Backups(path); len(bs) != 0 {
		t.Fatalf("backups = %v", bs)
	}
}
