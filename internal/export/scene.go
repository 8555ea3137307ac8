/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders layouts into files: single frames as PNG or SVG,
// frame sequences, a PDF timing sheet and a JSON document for external
// renderers.
package export

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"karaokay/internal/layout"
)

// Style holds colours and decorations shared by the frame renderers.
type Style struct {
	Background color.RGBA
	Text       color.RGBA
	Peek       color.RGBA
	Highlight  color.RGBA

	PlugText     string
	SuppressPlug bool
	ShowTime     bool // print the frame time in the top-left corner
	FontFamily   string
}

// DefaultStyle returns the stock palette.
func DefaultStyle() Style {
	return Style{
		Background: color.RGBA{R: 0, G: 0, B: 50, A: 255},
		Text:       color.RGBA{R: 240, G: 240, B: 240, A: 255},
		Peek:       color.RGBA{R: 150, G: 150, B: 150, A: 255},
		Highlight:  color.RGBA{R: 90, G: 255, B: 90, A: 255},
		PlugText:   "kara-okay.github.io",
		FontFamily: "sans-serif",
	}
}

// OpKind is the kind of a drawing operation.
type OpKind int

const (
	OpFill OpKind = iota
	OpText
)

// Op is one drawing operation in pixel coordinates. For text, X/Y is the
// top-left corner of the text box and Clip the visible width from X.
type Op struct {
	Kind  OpKind
	X, Y  float64
	W, H  float64
	Text  string
	Color color.RGBA
	Clip  float64
}

// Scene is a renderer-independent description of one frame.
type Scene struct {
	Time       float64
	Width      float64
	Height     float64
	FontSize   float64
	LineHeight float64
	Background color.RGBA
	Ops        []Op
}

func (s *Scene) fill(x, y, w, h float64, c color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	s.Ops = append(s.Ops, Op{Kind: OpFill, X: x, Y: y, W: w, H: h, Color: c})
}

func (s *Scene) text(text string, x, y, w float64, c color.RGBA, clip float64) {
	if text == "" || clip <= 0 {
		return
	}
	s.Ops = append(s.Ops, Op{Kind: OpText, X: x, Y: y, W: w, H: s.LineHeight, Text: text, Color: c, Clip: min(clip, w)})
}

// Compose lays out the frame at time t. m measures the plug and time labels.
func Compose(l *layout.Layout, t float64, st Style, m layout.Measurer) Scene {
	cfg := l.Config()
	sc := Scene{
		Time:       t,
		Width:      cfg.Width,
		Height:     cfg.Height,
		FontSize:   l.FontSize,
		LineHeight: l.LineHeight,
		Background: st.Background,
	}
	lh := l.LineHeight

	if st.ShowTime {
		label := strconv.FormatFloat(math.Trunc(t*100)/100, 'f', -1, 64)
		w, _ := m.Measure(label, l.FontSize)
		sc.text(label, 0, 0, w, st.Text, w)
	}
	if !st.SuppressPlug && st.PlugText != "" && t > l.LastHide() {
		w, h := m.Measure(st.PlugText, l.FontSize)
		sc.text(st.PlugText, (sc.Width-w)/2, sc.Height-lh*0.5-h, w, st.Peek, w)
	}

	for _, a := range l.Query(t) {
		e := a.Entry
		top := l.SlotTop(e.Slot)
		if e.Kind == layout.Pause {
			bar := cfg.MaxLineWidth()
			x := (sc.Width - bar) / 2
			sc.fill(x, top, bar, lh, st.Text)
			sc.fill(x, top, bar*a.Progress, lh, st.Highlight)
			continue
		}

		x := (sc.Width - e.Width) / 2
		col := st.Text
		if e.Kind == layout.Peek {
			col = st.Peek
		}
		sc.text(e.Text, x, top, e.Width, col, e.Width)
		if e.Kind == layout.Peek {
			continue
		}

		if len(a.Parts) > 0 {
			for _, p := range a.Parts {
				if !p.Lit {
					continue
				}
				sc.text(p.Text, x+p.X, top, p.Width, st.Highlight, p.Width*p.Fraction)
			}
		} else {
			sc.text(e.Text, x, top, e.Width, st.Highlight, e.Width*a.Fraction)
		}

		if a.Counting {
			w := lh * a.Countdown
			sc.fill(x-w, top, w, lh, st.Text)
		}
	}
	return sc
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
