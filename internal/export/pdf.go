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
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"karaokay/internal/layout"
)

// SheetOptions controls the PDF timing sheet.
type SheetOptions struct {
	Title  string
	Author string
}

// WriteTimingSheetPDF writes a printable A4 overview of every card: its
// time span, the pause before it and each line with kind, timing and parts.
// Units are points; text uses the built-in Helvetica.
func WriteTimingSheetPDF(w io.Writer, l *layout.Layout, opt SheetOptions) error {
	if l == nil {
		return fmt.Errorf("layout is nil")
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt", SizeStr: "A4", OrientationStr: "P"})
	title := opt.Title
	if title == "" {
		title = "Timing sheet"
	}
	pdf.SetTitle(title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetCreator("karaokay", false)
	const margin = 40.0
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	body := pageW - 2*margin

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(body, 22, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	cfg := l.Config()
	pdf.CellFormat(body, 14, fmt.Sprintf("Duration %s   Cards %d   Slots %d   Font size %.0f   %dx%d @ %d fps",
		clock(l.Duration), len(l.Cards), l.MaxSlots, l.FontSize, int(cfg.Width), int(cfg.Height), cfg.FPS), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	byCard := make(map[int][]layout.Entry, len(l.Cards))
	for _, e := range l.Entries {
		byCard[e.Card] = append(byCard[e.Card], e)
	}

	for i, c := range l.Cards {
		pdf.SetFillColor(230, 230, 240)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(body, 16, fmt.Sprintf("Card %d   %s - %s", i+1, clock(c.Start), clock(c.End)), "", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)

		for _, e := range byCard[i] {
			var kind, span, text string
			switch e.Kind {
			case layout.Pause:
				kind, span, text = "pause", fmt.Sprintf("%s - %s", clock(e.Show), clock(e.Hide)), ""
			case layout.Peek:
				kind, span, text = "peek", fmt.Sprintf("from %s", clock(e.Show)), e.Text
			default:
				kind, span, text = e.Kind.String(), fmt.Sprintf("%s - %s", clock(e.Start), clock(e.End)), partsText(e)
			}
			pdf.SetTextColor(90, 90, 90)
			pdf.CellFormat(50, 14, kind, "", 0, "L", false, 0, "")
			pdf.CellFormat(110, 14, span, "", 0, "L", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(body-160, 14, tr(text), "", "L", false)
		}
		pdf.Ln(6)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func partsText(e layout.Entry) string {
	if len(e.Parts) == 0 {
		return e.Text
	}
	var b strings.Builder
	for i, p := range e.Parts {
		if i > 0 {
			fmt.Fprintf(&b, " [%.2f] ", p.Start)
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// clock formats seconds as m:ss.cc.
func clock(sec float64) string {
	neg := sec < 0
	if neg {
		sec = -sec
	}
	m := int(sec) / 60
	s := sec - float64(m*60)
	out := fmt.Sprintf("%d:%05.2f", m, s)
	if neg {
		out = "-" + out
	}
	return out
}
