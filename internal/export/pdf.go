/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"math"

	"github.com/jung-kurt/gofpdf"

	"diagramcore/internal/render"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// PDFOptions controls PDF export behavior.
// Units are points; one logical pixel maps to one point.
// Text uses the built-in Helvetica so nothing has to be embedded.
type PDFOptions struct {
	Padding float64
	Title   string
	Author  string
}

// PDF exports the scene as a single-page vector PDF at path. Shapes keep
// their draw order; fills use the shape background and strokes its colour.
func PDF(st *scene.Store, path string, opt PDFOptions) error {
	b, ok := Bounds(st)
	if !ok {
		return ErrEmpty
	}
	pad := opt.Padding
	if pad <= 0 {
		pad = defaultPadding
	}
	return frame(st, b, pad, func(w, h int) error {
		pdf := gofpdf.NewCustom(&gofpdf.InitType{
			UnitStr: "pt",
			Size:    gofpdf.SizeType{Wd: float64(w), Ht: float64(h)},
		})
		if opt.Title != "" {
			pdf.SetTitle(opt.Title, true)
		}
		author := opt.Author
		if author == "" {
			author = "diagramcore"
		}
		pdf.SetAuthor(author, true)
		pdf.SetAutoPageBreak(false, 0)
		pdf.AddPage()

		tr := pdf.UnicodeTranslatorFromDescriptor("")
		view := vector.Translate(st.Data.X, st.Data.Y)
		fg := vector.ColorOr(st.Options.Color, vector.Black)
		bg := vector.ColorOr(st.Options.Background, vector.White)

		for _, s := range st.Shapes() {
			if !exported(st, s) {
				continue
			}
			writeShape(pdf, st, s, view, fg, bg)
			if s.Text != "" {
				size := s.FontSize
				if size <= 0 {
					size = st.Options.FontSize
				}
				if size <= 0 {
					size = 12
				}
				c := view.Apply(s.Calc.WorldRect.Center())
				setTextColor(pdf, vector.ColorOr(s.Color, fg))
				pdf.SetFont("Helvetica", "", size)
				txt := tr(s.Text)
				pdf.Text(c.X-pdf.GetStringWidth(txt)/2, c.Y+size*0.35, txt)
			}
		}

		if err := ensureDir(path); err != nil {
			return err
		}
		if err := pdf.OutputFileAndClose(path); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		return nil
	})
}

func writeShape(pdf *gofpdf.Fpdf, st *scene.Store, s *scene.Shape, view vector.Affine2D, fg, bg vector.Color) {
	path := st.Path(s)
	if path == nil || len(path.Cmds) == 0 {
		return
	}
	subs := path.Transform(render.ShapeTransform(s, view)).Flatten(16)
	if len(subs) == 0 {
		return
	}
	stroke := vector.ColorOr(s.Color, fg)
	style := "D"
	if s.Background != "" && !s.IsLine() {
		fill := vector.ColorOr(s.Background, bg)
		setFillColor(pdf, fill)
		style = "FD"
	}
	setDrawColor(pdf, stroke)
	pdf.SetLineWidth(math.Max(s.LineWidth, 1))
	pdf.SetAlpha(float64(stroke.A)/255, "Normal")
	for _, sub := range subs {
		for i, p := range sub.Pts {
			if i == 0 {
				pdf.MoveTo(p.X, p.Y)
				continue
			}
			pdf.LineTo(p.X, p.Y)
		}
		if sub.Closed {
			pdf.ClosePath()
		}
	}
	pdf.DrawPath(style)
	pdf.SetAlpha(1, "Normal")
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}
