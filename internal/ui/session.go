/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"diagramcore/internal/config"
	"diagramcore/internal/editor"
	"diagramcore/internal/export"
	"diagramcore/internal/hit"
	applog "diagramcore/internal/log"
	"diagramcore/internal/payload"
	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/storage"
	"diagramcore/internal/undo"
)

// Session is one open scene with everything the window drives: the editor,
// its frame renderer, the undo stack and the on-disk journal.
type Session struct {
	Path     string
	Config   config.AppConfig
	Store    *scene.Store
	Renderer *render.Renderer
	Editor   *editor.Editor
	Undo     *undo.Recorder
	// Journal is nil when no journal location is known or it failed to open.
	Journal *storage.Journal

	log *slog.Logger
}

// frameSink forwards finished frames to the host.
type frameSink struct {
	*render.Renderer
	notify func()
}

func (f frameSink) Render(st *scene.Store, ov render.Overlay) error {
	err := f.Renderer.Render(st, ov)
	if f.notify != nil {
		f.notify()
	}
	return err
}

// OpenSession loads the scene at path (an empty or missing path starts an
// empty scene) and wires the editor. onFrame runs after every rendered
// frame, with the editor locked.
func OpenSession(path string, cfg config.AppConfig, onFrame func()) (*Session, error) {
	l := applog.WithOperation(applog.WithComponent("ui"), "session_open").With(slog.String("path", path))
	s := &Session{
		Path:   strings.TrimSpace(path),
		Config: cfg,
		Store:  scene.NewStore(cfg.EditorOptions(), nil),
		log:    applog.WithComponent("ui"),
	}
	s.Renderer = render.New(cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.DPIRatio)
	s.Undo = undo.NewRecorder(undo.Config{
		MaxBytes:    cfg.History.MaxBytes,
		MaxPerScene: cfg.History.MaxEntries,
		MinInterval: cfg.History.MinInterval(),
	})
	history := editor.MultiHistory{s.Undo}
	if jp := s.journalPath(); jp != "" {
		j, err := storage.OpenJournal(jp, cfg.History.MaxEntries)
		if err != nil {
			l.Warn("journal unavailable", slog.Any("err", err))
		} else {
			s.Journal = j
			history = append(history, j)
		}
	}
	s.Editor = editor.New(s.Store, editor.Collaborators{
		History:  history,
		Renderer: frameSink{Renderer: s.Renderer, notify: onFrame},
	})
	s.Editor.Resize(cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.DPIRatio)

	if s.Path != "" {
		if _, err := os.Stat(s.Path); err == nil {
			doc, err := storage.OpenScene(s.Path)
			if err != nil {
				_ = s.Close()
				return nil, err
			}
			if err := s.load(doc); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
	}
	base, err := s.Editor.Snapshot()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	s.Undo.Reset(s.Store.ID, base)
	l.Info("session ready", slog.Int("shapes", s.Store.Len()))
	return s, nil
}

func (s *Session) journalPath() string {
	if p := strings.TrimSpace(s.Config.History.JournalPath); p != "" {
		return p
	}
	if s.Path == "" {
		return ""
	}
	return storage.JournalPath(filepath.Dir(s.Path))
}

func (s *Session) load(doc *payload.Document) error {
	data, err := payload.EncodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	return s.Editor.Restore(data)
}

// Title is the window title for the session.
func (s *Session) Title() string {
	if s.Path == "" {
		return "DiagramCore - untitled"
	}
	return "DiagramCore - " + filepath.Base(s.Path)
}

// UndoChange restores the state before the last recorded change.
func (s *Session) UndoChange() bool {
	blob, ok := s.Undo.Undo(s.Store.ID)
	if !ok {
		return false
	}
	if err := s.Editor.Restore(blob); err != nil {
		s.log.Warn("undo restore failed", slog.Any("err", err))
		return false
	}
	return true
}

// RedoChange re-applies the last undone change.
func (s *Session) RedoChange() bool {
	blob, ok := s.Undo.Redo(s.Store.ID)
	if !ok {
		return false
	}
	if err := s.Editor.Restore(blob); err != nil {
		s.log.Warn("redo restore failed", slog.Any("err", err))
		return false
	}
	return true
}

// Document captures the current scene.
func (s *Session) Document() (*payload.Document, error) {
	data, err := s.Editor.Snapshot()
	if err != nil {
		return nil, err
	}
	return payload.ParseDocument(data)
}

// Save writes the scene to its path, or to path when given and then adopts it.
func (s *Session) Save(path string) error {
	if path = strings.TrimSpace(path); path == "" {
		path = s.Path
	}
	if path == "" {
		return errors.New("no scene path")
	}
	doc, err := s.Document()
	if err != nil {
		return err
	}
	if err := storage.SaveScene(path, doc); err != nil {
		return err
	}
	s.Path = path
	return nil
}

// detached loads the current scene into a fresh store so exporters can
// change its view without racing the editor.
func (s *Session) detached() (*scene.Store, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	st := scene.NewStore(s.Store.Options, s.Store.Registry)
	st.Data = doc.Data
	if _, err := st.Add(doc.Shapes...); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Session) ExportPNG(path string) error {
	st, err := s.detached()
	if err != nil {
		return err
	}
	_, _, dpr := s.Editor.Viewport()
	return export.PNG(st, path, export.PNGOptions{PixelRatio: dpr})
}

func (s *Session) ExportPDF(path string) error {
	st, err := s.detached()
	if err != nil {
		return err
	}
	title := "diagram"
	if s.Path != "" {
		title = strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	}
	return export.PDF(st, path, export.PDFOptions{Title: title})
}

// CrashDocument captures the scene for a crash autosave, nil when it cannot.
func (s *Session) CrashDocument() *payload.Document {
	doc, err := s.Document()
	if err != nil {
		return nil
	}
	return doc
}

// Close releases the journal.
func (s *Session) Close() error {
	if s.Journal == nil {
		return nil
	}
	return s.Journal.Close()
}

// HotkeyFor maps a held key to an editor hotkey: space pans, A inserts
// connector anchors, R shows the edge resize handles.
func HotkeyFor(key string) (hit.Hotkey, bool) {
	switch strings.ToLower(key) {
	case "space", " ":
		return hit.HotkeyTranslate, true
	case "a":
		return hit.HotkeyAddAnchor, true
	case "r":
		return hit.HotkeyResize, true
	}
	return hit.HotkeyNone, false
}
