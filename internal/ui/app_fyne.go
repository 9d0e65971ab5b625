//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"diagramcore/internal/config"
	"diagramcore/internal/crash"
	"diagramcore/internal/editor"
	"diagramcore/internal/hit"
	applog "diagramcore/internal/log"
	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// Run starts the desktop UI. Pass an optional scene file to open immediately.
func Run(scenePath string) error {
	cfg, err := config.Load()
	if err != nil {
		applog.WithComponent("ui").Warn("config load failed, using defaults", slog.Any("err", err))
	}
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("scene", scenePath))

	target := &crash.Target{Path: scenePath}
	defer crash.Recover(target)

	fyneApp := app.NewWithID("diagramcore")
	w := fyneApp.NewWindow("DiagramCore")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", max(cfg.Canvas.Width, 800))
	winH := prefs.IntWithFallback("window.height", max(cfg.Canvas.Height, 600))
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	dc := NewDiagramCanvas()
	var sess *Session

	open := func(path string) error {
		s, err := OpenSession(path, cfg, dc.frameReady)
		if err != nil {
			return err
		}
		if sess != nil {
			_ = sess.Close()
		}
		sess = s
		target.Path = s.Path
		target.Document = s.CrashDocument
		dc.Attach(s.Editor, s.Renderer)
		w.SetTitle(s.Title())
		if s.Path != "" {
			addRecentScene(prefs, s.Path)
		}
		status.SetText(fmt.Sprintf("%d shapes", s.Store.Len()))
		return nil
	}
	if err := open(scenePath); err != nil {
		l.Error("open scene failed", slog.Any("err", err))
		if err := open(""); err != nil {
			return err
		}
		status.SetText("Could not open " + scenePath)
	}
	defer func() {
		if sess != nil {
			_ = sess.Close()
		}
	}()

	saveAs := func() {
		dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			if err := sess.Save(path); err != nil {
				dialog.ShowError(err, w)
				return
			}
			w.SetTitle(sess.Title())
			addRecentScene(prefs, path)
			status.SetText("Saved " + filepath.Base(path))
		}, w)
	}
	save := func() {
		if sess.Path == "" {
			saveAs()
			return
		}
		if err := sess.Save(""); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + filepath.Base(sess.Path))
	}
	exportTo := func(ext string, fn func(string) error) {
		dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil || wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			if !strings.HasSuffix(strings.ToLower(path), ext) {
				_ = os.Remove(path)
				path += ext
			}
			if err := fn(path); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + filepath.Base(path))
		}, w)
	}
	openDialog := func() {
		dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			if err := open(path); err != nil {
				dialog.ShowError(err, w)
			}
		}, w)
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), openDialog),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { sess.UndoChange() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { sess.RedoChange() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			sess.Editor.DropShapes(newNode("rectangle"), float64(dc.Size().Width)/2, float64(dc.Size().Height)/2)
		}),
		widget.NewToolbarAction(theme.MediaRecordIcon(), func() {
			sess.Editor.DropShapes(newNode("circle"), float64(dc.Size().Width)/2, float64(dc.Size().Height)/2)
		}),
		widget.NewToolbarAction(theme.ContentRemoveIcon(), func() { sess.Editor.SetDrawingLine("line") }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { _ = sess.Editor.DeleteShapes() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomInIcon(), func() { dc.zoomBy(1.1) }),
		widget.NewToolbarAction(theme.ZoomOutIcon(), func() { dc.zoomBy(1 / 1.1) }),
	)

	recentMenu := fyne.NewMenuItem("Open Recent", nil)
	var recentItems []*fyne.MenuItem
	for _, p := range loadRecentScenes(prefs) {
		path := p
		recentItems = append(recentItems, fyne.NewMenuItem(filepath.Base(path), func() {
			if err := open(path); err != nil {
				dialog.ShowError(err, w)
			}
		}))
	}
	recentMenu.ChildMenu = fyne.NewMenu("", recentItems...)
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Open...", openDialog),
			recentMenu,
			fyne.NewMenuItem("Save", save),
			fyne.NewMenuItem("Save As...", saveAs),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Export PNG...", func() { exportTo(".png", sess.ExportPNG) }),
			fyne.NewMenuItem("Export PDF...", func() { exportTo(".pdf", sess.ExportPDF) }),
		),
		fyne.NewMenu("Edit",
			fyne.NewMenuItem("Undo", func() { sess.UndoChange() }),
			fyne.NewMenuItem("Redo", func() { sess.RedoChange() }),
			fyne.NewMenuItem("Delete", func() { _ = sess.Editor.DeleteShapes() }),
			fyne.NewMenuItem("Finish Line", func() { sess.Editor.FinishDrawing() }),
		),
	))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { sess.UndoChange() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { sess.RedoChange() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { save() })

	w.SetContent(container.NewBorder(toolbar, status, nil, nil, dc))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	w.Canvas().Focus(dc)
	w.ShowAndRun()
	return nil
}

func newNode(name string) []*scene.Shape {
	return []*scene.Shape{{Name: name, Width: 120, Height: 80, Background: "#ffffff"}}
}

// DiagramCanvas shows the editor's frames and feeds it mouse, wheel and
// keyboard input.
type DiagramCanvas struct {
	widget.BaseWidget

	ed      *editor.Editor
	rend    *render.Renderer
	raster  *canvas.Raster
	buttons int
	last    fyne.Position
	mods    fyne.KeyModifier
}

func NewDiagramCanvas() *DiagramCanvas {
	dc := &DiagramCanvas{}
	dc.raster = canvas.NewRaster(dc.frame)
	dc.ExtendBaseWidget(dc)
	return dc
}

// Attach switches the canvas to another editor.
func (d *DiagramCanvas) Attach(ed *editor.Editor, r *render.Renderer) {
	d.ed, d.rend = ed, r
	d.resize(d.Size())
	ed.Render()
}

func (d *DiagramCanvas) frame(w, h int) image.Image {
	if d.rend == nil {
		return image.NewUniform(color.White)
	}
	return d.rend.Surface().Visible()
}

// frameReady runs with the editor locked, possibly off the UI goroutine.
func (d *DiagramCanvas) frameReady() {
	fyne.Do(func() { d.raster.Refresh() })
}

func (d *DiagramCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &diagramCanvasRenderer{dc: d, objects: []fyne.CanvasObject{d.raster}}
}

// PreferredSize sets a decent default size for the widget.
func (d *DiagramCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func (d *DiagramCanvas) scale() float64 {
	if c := fyne.CurrentApp().Driver().CanvasForObject(d); c != nil {
		return float64(c.Scale())
	}
	return 1
}

func (d *DiagramCanvas) resize(size fyne.Size) {
	if d.ed == nil || size.Width <= 0 || size.Height <= 0 {
		return
	}
	d.ed.ScheduleResize(int(size.Width), int(size.Height), d.scale())
}

func (d *DiagramCanvas) pointer(pos, abs fyne.Position, buttons int, mods fyne.KeyModifier) editor.PointerEvent {
	return editor.PointerEvent{
		X: float64(pos.X), Y: float64(pos.Y),
		ClientX: float64(abs.X), ClientY: float64(abs.Y),
		PageX: float64(abs.X), PageY: float64(abs.Y),
		Buttons: buttons,
		Button:  buttonOf(buttons),
		Ctrl:    mods&fyne.KeyModifierControl != 0,
		Shift:   mods&fyne.KeyModifierShift != 0,
		Alt:     mods&fyne.KeyModifierAlt != 0,
		Meta:    mods&fyne.KeyModifierSuper != 0,
	}
}

func buttonsOf(b desktop.MouseButton) int {
	switch {
	case b&desktop.MouseButtonPrimary != 0:
		return 1
	case b&desktop.MouseButtonSecondary != 0:
		return 2
	}
	return 0
}

// buttonOf is the DOM button number: 0 primary, 2 secondary.
func buttonOf(buttons int) int {
	if buttons == 2 {
		return 2
	}
	return 0
}

func (d *DiagramCanvas) MouseDown(e *desktop.MouseEvent) {
	if d.ed == nil {
		return
	}
	if c := fyne.CurrentApp().Driver().CanvasForObject(d); c != nil {
		c.Focus(d)
	}
	d.buttons, d.mods, d.last = buttonsOf(e.Button), e.Modifier, e.Position
	d.ed.PointerDown(d.pointer(e.Position, e.AbsolutePosition, d.buttons, e.Modifier))
}

func (d *DiagramCanvas) MouseUp(e *desktop.MouseEvent) {
	if d.ed == nil {
		return
	}
	ev := d.pointer(e.Position, e.AbsolutePosition, 0, e.Modifier)
	ev.Button = buttonOf(buttonsOf(e.Button))
	d.buttons = 0
	d.ed.PointerUp(ev)
	d.Refresh()
}

func (d *DiagramCanvas) MouseIn(*desktop.MouseEvent) {}
func (d *DiagramCanvas) MouseOut()                   {}

func (d *DiagramCanvas) MouseMoved(e *desktop.MouseEvent) {
	if d.ed == nil {
		return
	}
	d.last, d.mods = e.Position, e.Modifier
	d.ed.PointerMove(d.pointer(e.Position, e.AbsolutePosition, d.buttons, e.Modifier))
	d.Refresh()
}

// Dragged only matters when the desktop driver reports drags instead of
// moves while a button is held.
func (d *DiagramCanvas) Dragged(e *fyne.DragEvent) {
	if d.ed == nil || e.Position == d.last {
		return
	}
	d.last = e.Position
	d.ed.PointerMove(d.pointer(e.Position, e.AbsolutePosition, max(d.buttons, 1), d.mods))
}

func (d *DiagramCanvas) DragEnd() {}

func (d *DiagramCanvas) Scrolled(e *fyne.ScrollEvent) {
	if d.ed == nil {
		return
	}
	// ScrollEvent carries no modifiers; the last seen ones decide zoom vs pan.
	d.ed.Wheel(editor.WheelEvent{
		X: float64(e.Position.X), Y: float64(e.Position.Y),
		DeltaX: -float64(e.Scrolled.DX), DeltaY: -float64(e.Scrolled.DY),
		Ctrl:  d.mods&fyne.KeyModifierControl != 0,
		Meta:  d.mods&fyne.KeyModifierSuper != 0,
		Shift: d.mods&fyne.KeyModifierShift != 0,
	})
}

func (d *DiagramCanvas) zoomBy(f float64) {
	if d.ed == nil {
		return
	}
	sz := d.Size()
	d.ed.ZoomTo(d.ed.Scale()*f, vector.Pt{X: float64(sz.Width) / 2, Y: float64(sz.Height) / 2})
}

func (d *DiagramCanvas) FocusGained()   {}
func (d *DiagramCanvas) FocusLost()     {}
func (d *DiagramCanvas) TypedRune(rune) {}

func (d *DiagramCanvas) TypedKey(e *fyne.KeyEvent) {
	if d.ed == nil {
		return
	}
	switch e.Name {
	case fyne.KeyDelete, fyne.KeyBackspace:
		_ = d.ed.DeleteShapes()
	case fyne.KeyEscape:
		d.ed.FinishDrawing()
		d.ed.Deselect()
	}
}

func (d *DiagramCanvas) KeyDown(e *fyne.KeyEvent) {
	if d.ed == nil {
		return
	}
	switch e.Name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		d.mods |= fyne.KeyModifierShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		d.mods |= fyne.KeyModifierControl
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		d.mods |= fyne.KeyModifierSuper
	}
	if h, ok := HotkeyFor(string(e.Name)); ok {
		d.ed.SetHotkey(h)
	}
}

func (d *DiagramCanvas) KeyUp(e *fyne.KeyEvent) {
	if d.ed == nil {
		return
	}
	switch e.Name {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		d.mods &^= fyne.KeyModifierShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		d.mods &^= fyne.KeyModifierControl
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		d.mods &^= fyne.KeyModifierSuper
	}
	if _, ok := HotkeyFor(string(e.Name)); ok {
		d.ed.SetHotkey(hit.HotkeyNone)
	}
}

// Cursor maps the editor cursor onto the closest desktop cursor.
func (d *DiagramCanvas) Cursor() desktop.Cursor {
	if d.ed == nil {
		return desktop.DefaultCursor
	}
	switch c := d.ed.Cursor(); {
	case c == hit.CursorPointer:
		return desktop.PointerCursor
	case c == hit.CursorCrosshair:
		return desktop.CrosshairCursor
	case c == hit.CursorMove:
		return desktop.PointerCursor
	case c == "ew-resize":
		return desktop.HResizeCursor
	case c == "ns-resize":
		return desktop.VResizeCursor
	case strings.HasSuffix(c, "-resize"):
		return desktop.CrosshairCursor
	}
	return desktop.DefaultCursor
}

type diagramCanvasRenderer struct {
	dc      *DiagramCanvas
	objects []fyne.CanvasObject
}

func (r *diagramCanvasRenderer) Destroy()                     {}
func (r *diagramCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *diagramCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }
func (r *diagramCanvasRenderer) Refresh()                     { canvas.Refresh(r.dc.raster) }

func (r *diagramCanvasRenderer) Layout(size fyne.Size) {
	r.dc.raster.Resize(size)
	r.dc.raster.Move(fyne.NewPos(0, 0))
	r.dc.resize(size)
}

// Recent scene persistence helpers
const recentPrefsKey = "recent.scenes"
const recentMax = 10

func loadRecentScenes(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentScene(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentScenes(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	out = out[:min(len(out), recentMax)]
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
