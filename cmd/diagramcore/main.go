/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"

	"diagramcore/internal/config"
	"diagramcore/internal/crash"
	"diagramcore/internal/export"
	applog "diagramcore/internal/log"
	"diagramcore/internal/payload"
	"diagramcore/internal/scene"
	"diagramcore/internal/storage"
	"diagramcore/internal/ui"
	"diagramcore/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "DiagramCore - interactive diagram editor core")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  diagramcore version|-v|--version                Show version")
	fmt.Fprintln(w, "  diagramcore render <scene.json> <out.png> [ratio] Render a scene to PNG")
	fmt.Fprintln(w, "  diagramcore export-pdf <scene.json> <out.pdf>    Export a scene as vector PDF")
	fmt.Fprintln(w, "  diagramcore validate <payload.json>              Check a shape payload or scene document")
	fmt.Fprintln(w, "  diagramcore history <journal.sqlite> [scene] [n] List recorded changes")
	fmt.Fprintln(w, "  diagramcore view [<scene.json>]                  Launch desktop UI (build with -tags fyne)")
	fmt.Fprintln(w, "  diagramcore help                                 Show this help")
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	defer func() { _ = applog.Close() }()
	if cfgErr != nil {
		applog.WithComponent("cli").Warn("config load failed, using defaults", slog.Any("err", cfgErr))
	}
	target := &crash.Target{}
	defer crash.Recover(target)

	code := run(os.Args[1:], cfg, target, os.Stdout, os.Stderr)
	if code != 0 {
		_ = applog.Close()
		os.Exit(code)
	}
}

// run executes one command and returns the process exit code.
func run(args []string, cfg config.AppConfig, target *crash.Target, stdout, stderr io.Writer) int {
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	fail := func(op string, err error) int {
		l.Error(op+" failed", slog.Any("err", err))
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	need := func(n int, what string) bool {
		if len(args) < n {
			fmt.Fprintf(stderr, "%s requires %s\n", args[0], what)
			usage(stderr)
			return false
		}
		return true
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "--help", "-h":
		usage(stdout)
		return 0
	case "render":
		if !need(3, "<scene.json> <out.png>") {
			return 2
		}
		target.Path = args[1]
		ratio := cfg.Canvas.DPIRatio
		if len(args) > 3 {
			r, err := strconv.ParseFloat(args[3], 64)
			if err != nil || r <= 0 {
				fmt.Fprintf(stderr, "invalid pixel ratio %q\n", args[3])
				return 2
			}
			ratio = r
		}
		st, err := loadScene(args[1], cfg)
		if err != nil {
			return fail("render", err)
		}
		if err := export.PNG(st, args[2], export.PNGOptions{PixelRatio: ratio}); err != nil {
			return fail("render", err)
		}
		l.Info("rendered", slog.String("scene", args[1]), slog.String("out", args[2]))
		fmt.Fprintln(stdout, "Wrote", args[2])
		return 0
	case "export-pdf":
		if !need(3, "<scene.json> <out.pdf>") {
			return 2
		}
		target.Path = args[1]
		st, err := loadScene(args[1], cfg)
		if err != nil {
			return fail("export-pdf", err)
		}
		if err := export.PDF(st, args[2], export.PDFOptions{Title: args[1]}); err != nil {
			return fail("export-pdf", err)
		}
		fmt.Fprintln(stdout, "Wrote", args[2])
		return 0
	case "validate":
		if !need(2, "<payload.json>") {
			return 2
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fail("validate", err)
		}
		// a scene document also matches the loose shape schema
		if doc, err := payload.ParseDocument(data); err == nil {
			fmt.Fprintf(stdout, "ok: scene document with %d shapes\n", len(doc.Shapes))
			return 0
		}
		shapes, err := payload.Parse(data)
		if err != nil {
			fmt.Fprintln(stderr, "invalid:", err)
			return 1
		}
		fmt.Fprintf(stdout, "ok: %d shapes\n", len(shapes))
		return 0
	case "history":
		if !need(2, "<journal.sqlite>") {
			return 2
		}
		if _, err := os.Stat(args[1]); err != nil {
			return fail("history", err)
		}
		var sceneID string
		limit := 20
		if len(args) > 2 {
			sceneID = args[2]
		}
		if len(args) > 3 {
			n, err := strconv.Atoi(args[3])
			if err != nil {
				fmt.Fprintf(stderr, "invalid limit %q\n", args[3])
				return 2
			}
			limit = n
		}
		j, err := storage.OpenJournal(args[1], 0)
		if err != nil {
			return fail("history", err)
		}
		defer j.Close()
		es, err := j.Entries(context.Background(), sceneID, limit)
		if err != nil {
			return fail("history", err)
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tAT\tSCENE\tOP\tSHAPES\tBYTES")
		for _, e := range es {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\n", e.ID, e.At.Local().Format("2006-01-02 15:04:05"), e.SceneID, e.Op, len(e.ShapeIDs), e.Size)
		}
		_ = tw.Flush()
		return 0
	case "view", "ui":
		var path string
		if len(args) > 1 {
			path = args[1]
		}
		target.Path = path
		if err := ui.Run(path); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n", args[0])
	usage(stderr)
	return 2
}

// loadScene reads a scene document into a fresh store.
func loadScene(path string, cfg config.AppConfig) (*scene.Store, error) {
	doc, err := storage.OpenScene(path)
	if err != nil {
		return nil, err
	}
	st := scene.NewStore(cfg.EditorOptions(), nil)
	st.Data = doc.Data
	if _, err := st.Add(doc.Shapes...); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if st.Len() == 0 {
		return nil, errors.New("scene has no shapes")
	}
	return st, nil
}
