/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"slices"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontLibrary holds parsed OpenType fonts by family name. A song is set in
// one face, so there are no weight or slant variants; the first family loaded
// is the default for specs that name none.
//
// Sizing measures the same text at many sizes and rendering draws every frame
// at one size, so faces are cached per family, size and DPI. Cached faces are
// shared and must be used from one goroutine at a time.
type FontLibrary struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
	order []string
	faces map[faceKey]font.Face
}

type faceKey struct {
	family string
	size   float32
	dpi    float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{
		fonts: make(map[string]*opentype.Font),
		faces: make(map[faceKey]font.Face),
	}
}

// LoadFile reads a TTF or OTF file and registers it under family.
func (fl *FontLibrary) LoadFile(family, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.LoadBytes(family, data); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}

// LoadBytes registers an in-memory font under family, replacing any font
// already loaded for it.
func (fl *FontLibrary) LoadBytes(family string, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[string]*opentype.Font)
	}
	if _, ok := fl.fonts[family]; !ok {
		fl.order = append(fl.order, family)
	}
	fl.fonts[family] = f
	for k := range fl.faces {
		if k.family == family {
			delete(fl.faces, k)
		}
	}
	return nil
}

// Families lists the loaded family names in load order.
func (fl *FontLibrary) Families() []string {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return slices.Clone(fl.order)
}

// face returns the cached face for family at size, building it on first use.
// It returns nil without error when the family is not loaded.
func (fl *FontLibrary) face(family string, size float32, dpi float64) (font.Face, error) {
	if fl == nil {
		return nil, nil
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if family == "" && len(fl.order) > 0 {
		family = fl.order[0]
	}
	f, ok := fl.fonts[family]
	if !ok {
		return nil, nil
	}
	key := faceKey{family: family, size: size, dpi: dpi}
	if fc, ok := fl.faces[key]; ok {
		return fc, nil
	}
	// Unhinted, so advances scale linearly with size.
	fc, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(size), DPI: dpi, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	if fl.faces == nil {
		fl.faces = make(map[faceKey]font.Face)
	}
	fl.faces[key] = fc
	return fc, nil
}

// OTProvider resolves specs against a FontLibrary. Faces are built at the
// requested size so measurements need no rescaling. Unknown families go to
// Fallback, or to BasicProvider when that is nil.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // 72 when zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if fc, err := p.Lib.face(spec.Family, spec.SizePt, dpi); err == nil && fc != nil {
		return fc, faceMetrics(fc, spec.SizePt*float32(dpi/72))
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
