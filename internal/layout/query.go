/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"slices"

	"github.com/samber/lo"
)

// Active is an entry visible at a queried time together with its overlay
// state.
type Active struct {
	Entry Entry // a copy; changing it does not touch the layout

	// Fraction of the line highlighted, 0..1. Regular and Cue only.
	Fraction float64
	// Parts mirrors Entry.Parts; nil for whole-line highlights.
	Parts []PartState

	// Countdown runs 1..0 over the CueLength before a cue line starts.
	Counting  bool
	Countdown float64

	// Progress of a pause bar, 0..1.
	Progress float64
}

// PartState is the highlight of one part at the queried time.
type PartState struct {
	Part
	Lit      bool
	Fraction float64
}

// Query returns the entries visible at t, in layout order.
func (l *Layout) Query(t float64) []Active {
	visible := lo.Filter(l.Entries, func(e Entry, _ int) bool {
		return e.Show <= t && t < e.Hide
	})
	eps := l.cfg.FrameEpsilon()
	out := make([]Active, 0, len(visible))
	for _, e := range visible {
		a := Active{Entry: e}
		a.Entry.Parts = slices.Clone(e.Parts)
		switch e.Kind {
		case Regular, Cue:
			a.Fraction = fraction(t, e.Start, e.End, eps)
			if len(e.Parts) > 0 {
				a.Parts = make([]PartState, len(e.Parts))
				for i, p := range e.Parts {
					a.Parts[i] = PartState{Part: p, Lit: t > p.Start, Fraction: fraction(t, p.Start, p.End, eps)}
				}
			}
			if e.Kind == Cue && t < e.Start && l.cfg.CueLength > 0 {
				a.Counting = true
				a.Countdown = clamp01((e.Start - t) / l.cfg.CueLength)
			}
		case Pause:
			if span := e.Hide - e.Show; span > 0 {
				a.Progress = clamp01((t - e.Show) / span)
			}
		}
		out = append(out, a)
	}
	return out
}

// fraction is the highlighted share of [start, end) at t. The span is
// shortened by one frame so the highlight completes on the last frame
// before end.
func fraction(t, start, end, eps float64) float64 {
	if t <= start {
		return 0
	}
	d := end - start - eps
	if d <= 0 {
		return 1
	}
	return clamp01((t - start) / d)
}

func clamp01(v float64) float64 { return lo.Clamp(v, 0, 1) }
