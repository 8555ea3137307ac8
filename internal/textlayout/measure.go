/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Single-line text measurement behind a Provider, so layout code can size
// lyrics without knowing which font engine is in use.

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
// SizePt is the size the face was actually built at; faces with a fixed size
// report their native size so callers can rescale measurements.
type Metrics struct {
	Ascent, Descent, LineGap float32
	SizePt                   float32
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// basicSize is the pixel height of basicfont.Face7x13.
const basicSize = 13

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
// Every glyph is 7px wide and lines are 13px high at the native size.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, faceMetrics(f, basicSize)
}

// faceMetrics rounds the face's metrics to whole pixels and records the size
// the face was built at.
func faceMetrics(f font.Face, size float32) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
		SizePt:  size,
	}
}

// Measurer measures single lines of text with a Provider. Font carries the
// family and style; the size is passed per call.
type Measurer struct {
	Provider Provider
	Font     FontSpec
}

func NewMeasurer(provider Provider, family string) Measurer {
	return Measurer{Provider: provider, Font: FontSpec{Family: family, Weight: 400}}
}

// Face resolves the face for size together with the factor that maps the
// face's pixels to the requested size.
func (m Measurer) Face(size float64) (font.Face, Metrics, float64) {
	p := m.Provider
	if p == nil {
		p = BasicProvider{}
	}
	spec := m.Font
	spec.SizePt = float32(size)
	face, met := p.Resolve(spec)
	scale := 1.0
	if met.SizePt > 0 && size > 0 {
		scale = size / float64(met.SizePt)
	}
	return face, met, scale
}

// Measure returns the advance width and line height (ascent + descent) of
// text rendered at size.
func (m Measurer) Measure(text string, size float64) (w, h float64) {
	face, met, scale := m.Face(size)
	d := &font.Drawer{Face: face}
	w = float64(advance(d, text)) * scale
	h = float64(met.Ascent+met.Descent) * scale
	return w, h
}

func advance(d *font.Drawer, s string) float32 {
	return float32(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}
