/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "math"

// slotSpacing is the distance between slot tops in line heights.
const slotSpacing = 1.5

// Measurer reports the rendered size of text at a font size.
type Measurer interface {
	Measure(text string, size float64) (w, h float64)
}

// Sizing is the font size and vertical placement shared by all entries.
type Sizing struct {
	FontSize   float64
	LineHeight float64
	SlotTops   []float64
}

// Size picks the largest font size that fits the longest line into
// MaxLineWidth and all slots into Height, then centres the slot block.
func Size(entries []Entry, maxSlots int, cfg Config, m Measurer) Sizing {
	ref := cfg.ReferenceFontSize
	longest := 0.0
	for _, e := range entries {
		if !e.Highlighted() {
			continue
		}
		if w, _ := m.Measure(e.Text, ref); w > longest {
			longest = w
		}
	}

	size := ref
	if longest > 0 {
		size = math.Floor(ref * cfg.MaxLineWidth() / longest)
	}
	size = max(size, 1)
	_, lh := m.Measure("a", size)

	if extent := slotsHeight(lh, maxSlots); extent > cfg.Height && extent > 0 {
		size = max(math.Floor(size*cfg.Height/extent), 1)
		_, lh = m.Measure("a", size)
	}

	top := (cfg.Height - slotsHeight(lh, maxSlots)) / 2
	tops := make([]float64, maxSlots)
	for i := range tops {
		tops[i] = top + float64(i)*slotSpacing*lh
	}
	return Sizing{FontSize: size, LineHeight: lh, SlotTops: tops}
}

func slotsHeight(lh float64, slots int) float64 {
	if slots == 0 {
		return 0
	}
	return lh*slotSpacing*float64(slots) - 0.5
}

// measureEntries fills in text and part widths at the final font size.
func measureEntries(entries []Entry, size float64, m Measurer) {
	for i := range entries {
		e := &entries[i]
		if e.Kind == Pause {
			continue
		}
		e.Width, _ = m.Measure(e.Text, size)
		x := 0.0
		for k := range e.Parts {
			w, _ := m.Measure(e.Parts[k].Text, size)
			e.Parts[k].X = x
			e.Parts[k].Width = w
			x += w
		}
	}
}
