/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import "karaokay/internal/timing"

// Kind is the display variant of an Entry.
type Kind int

const (
	Regular Kind = iota
	Cue
	Peek
	Pause
)

func (k Kind) String() string {
	switch k {
	case Regular:
		return "regular"
	case Cue:
		return "cue"
	case Peek:
		return "peek"
	case Pause:
		return "pause"
	default:
		return "unknown"
	}
}

// Entry is one item handed to the renderer. It is visible while
// Show <= t < Hide.
//
// Regular and Cue entries carry the line timing in Start/End and, for lines
// with interior timestamps, Parts. Peek entries only have Text. Pause entries
// have neither.
type Entry struct {
	Kind  Kind
	Text  string
	Slot  int
	Show  float64
	Hide  float64
	Start float64
	End   float64
	Parts []Part
	Card  int // owning card; for Pause the card it precedes
	Line  int // line index within the card, -1 for Peek and Pause
	Width float64
}

// Part is a highlight segment placed on the line. X is the offset from the
// left edge of the line's text.
type Part struct {
	timing.Part
	X     float64
	Width float64
}

// Highlighted reports whether the entry takes highlight overlays.
func (e Entry) Highlighted() bool { return e.Kind == Regular || e.Kind == Cue }
