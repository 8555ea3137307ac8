/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"github.com/samber/lo"

	"karaokay/internal/script"
	"karaokay/internal/timing"
)

// CardTiming is a resolved card kept for dumping.
type CardTiming struct {
	Start float64
	End   float64
	Lines []timing.Line
}

// Layout is the finished, read-only plan for a script.
type Layout struct {
	Duration float64
	Entries  []Entry
	MaxSlots int
	Sizing
	Cards []CardTiming

	cfg Config
}

// Build resolves, plans and sizes s.
func Build(s script.Script, cfg Config, m Measurer) *Layout {
	return BuildResolved(s, timing.Resolve(s), cfg, m)
}

// BuildResolved is Build for callers that already resolved the cards.
func BuildResolved(s script.Script, lines [][]timing.Line, cfg Config, m Measurer) *Layout {
	p := PlanEntries(s, lines, cfg)
	sz := Size(p.Entries, p.MaxSlots, cfg, m)
	measureEntries(p.Entries, sz.FontSize, m)

	cards := make([]CardTiming, len(s.Cards))
	for i, c := range s.Cards {
		cards[i] = CardTiming{Start: c.Start, End: c.End, Lines: lines[i]}
	}
	return &Layout{
		Duration: s.Duration,
		Entries:  p.Entries,
		MaxSlots: p.MaxSlots,
		Sizing:   sz,
		Cards:    cards,
		cfg:      cfg,
	}
}

// Config returns the configuration the layout was built with.
func (l *Layout) Config() Config { return l.cfg }

// SlotTop is the top edge of slot i in pixels.
func (l *Layout) SlotTop(i int) float64 {
	if i < 0 || i >= len(l.SlotTops) {
		return 0
	}
	return l.SlotTops[i]
}

// LastHide is the latest hide time of any entry, 0 for an empty layout.
func (l *Layout) LastHide() float64 {
	return lo.Max(lo.Map(l.Entries, func(e Entry, _ int) float64 { return e.Hide }))
}

// End is the time at which a rendering of the layout is complete.
func (l *Layout) End() float64 { return max(l.Duration, l.LastHide()) }
