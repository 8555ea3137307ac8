/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"karaokay/internal/script"
	"karaokay/internal/timing"
)

// Gaps returns the silence before and after every card. The first card's
// pre gap is measured from 0 and the last card's post gap runs to the
// script duration. Gaps may be negative when cards overlap.
func Gaps(s script.Script) (pre, post []float64) {
	n := len(s.Cards)
	pre = make([]float64, n)
	post = make([]float64, n)
	prevEnd := 0.0
	for i, c := range s.Cards {
		pre[i] = c.Start - prevEnd
		prevEnd = c.End
	}
	for i := 0; i < n; i++ {
		if i+1 < n {
			post[i] = pre[i+1]
		} else {
			post[i] = s.Duration - s.Cards[i].End
		}
	}
	return pre, post
}

// Plan is the output of the planning pass, before sizing.
type Plan struct {
	Entries  []Entry
	MaxSlots int
}

// PlanEntries decides show/hide times, display kinds and slots for every
// resolved card. lines is indexed like s.Cards.
func PlanEntries(s script.Script, lines [][]timing.Line, cfg Config) Plan {
	pre, post := Gaps(s)
	var p Plan
	for i, c := range s.Cards {
		show := c.Start - pre[i]
		switch {
		case pre[i] > cfg.PauseThreshold:
			p.Entries = append(p.Entries, Entry{
				Kind: Pause,
				Show: c.Start - pre[i],
				Hide: c.Start - cfg.PauseGap,
				Card: i,
				Line: -1,
			})
			show = c.Start - cfg.PauseGap
		case pre[i] > cfg.ShowBefore:
			show = c.Start - cfg.ShowBefore
		}

		cardLines := lines[i]
		for j, l := range cardLines {
			kind := Regular
			if j == 0 && pre[i] > cfg.CueLength {
				kind = Cue
			}
			if j > 0 && l.Start-cardLines[j-1].End > cfg.CueLength {
				kind = Cue
			}
			p.Entries = append(p.Entries, Entry{
				Kind:  kind,
				Text:  l.Text,
				Slot:  j,
				Show:  show,
				Hide:  c.End,
				Start: l.Start,
				End:   l.End,
				Parts: placeParts(l.Parts),
				Card:  i,
				Line:  j,
			})
		}

		slots := len(cardLines)
		if post[i] < cfg.PeekThreshold && i+1 < len(s.Cards) && len(lines[i+1]) > 0 {
			p.Entries = append(p.Entries, Entry{
				Kind: Peek,
				Text: lines[i+1][0].Text,
				Slot: len(cardLines),
				Show: show,
				Hide: c.End,
				Card: i,
				Line: -1,
			})
			slots++
		}
		p.MaxSlots = max(p.MaxSlots, slots)
	}

	mid := max(0, (p.MaxSlots-1)/2)
	for k := range p.Entries {
		if p.Entries[k].Kind == Pause {
			p.Entries[k].Slot = mid
		}
	}
	return p
}

func placeParts(parts []timing.Part) []Part {
	if len(parts) == 0 {
		return nil
	}
	out := make([]Part, len(parts))
	for i, pt := range parts {
		out[i] = Part{Part: pt}
	}
	return out
}
