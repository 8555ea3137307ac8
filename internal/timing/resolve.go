/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timing reconstructs the timestamps a lyric card leaves out.
//
// Every line contributes a start event, one intra event per interior marker
// and an end event. Unknown values are filled in four steps, each producing a
// new event sequence:
//
//	Anchor       first and last event take the card window when unknown
//	Merge        an unknown end followed by an unknown start becomes one EndStart
//	Interpolate  runs of unknowns are spread evenly between known neighbours
//	Expand       EndStart events are split back into end and start
//
// The resolved events are then folded into Lines with optional highlight Parts.
package timing

import (
	"math"
	"slices"
	"strings"

	"karaokay/internal/script"
)

// Kind tags a timestamp event.
type Kind int

const (
	Start Kind = iota
	Intra
	End
	// EndStart is a line boundary without gap: the end of one line and the
	// start of the next share a value that is still to be determined.
	EndStart
)

func (k Kind) String() string {
	switch k {
	case Start:
		return "start"
	case Intra:
		return "intra"
	case End:
		return "end"
	case EndStart:
		return "endstart"
	default:
		return "unknown"
	}
}

// Event is one timestamp slot of a card. Line is the index of the line inside
// the card; for EndStart it is the line that ends.
type Event struct {
	Kind  Kind
	Value float64
	Known bool
	Line  int
}

func known(k Kind, v float64, line int) Event {
	return Event{Kind: k, Value: v, Known: true, Line: line}
}
func unknown(k Kind, line int) Event { return Event{Kind: k, Line: line} }

// Part is a highlight segment of a line.
type Part struct {
	Text  string
	Start float64
	End   float64
}

// Line is a card line with markers stripped and its timing resolved.
type Line struct {
	Text  string
	Index int
	Start float64
	End   float64
	Parts []Part // nil unless the source line had interior markers
}

// lineMarks splits the markers of a line by position.
type lineMarks struct {
	leading  *script.Marker
	trailing *script.Marker
	intra    []script.Marker
}

func scan(text string) lineMarks {
	ms := script.Markers(text)
	var lm lineMarks
	if len(ms) == 0 {
		return lm
	}
	lo, hi := 0, len(ms)
	if ms[0].Start == 0 {
		lm.leading = &ms[0]
		lo = 1
	}
	if last := ms[len(ms)-1]; last.End == len(text) {
		lm.trailing = &ms[len(ms)-1]
		hi = len(ms) - 1
	}
	if lo < hi {
		lm.intra = ms[lo:hi]
	}
	return lm
}

// CleanAndSplit strips timestamp markers from text. parts holds the text runs
// between interior markers, so len(parts) is the interior marker count + 1 and
// the concatenation of parts equals clean.
func CleanAndSplit(text string) (clean string, parts []string) {
	lm := scan(text)
	begin, finish := 0, len(text)
	if lm.leading != nil {
		begin = lm.leading.End
	}
	if lm.trailing != nil {
		finish = lm.trailing.Start
	}
	if finish < begin {
		finish = begin
	}
	cur := begin
	for _, m := range lm.intra {
		parts = append(parts, text[cur:m.Start])
		cur = m.End
	}
	parts = append(parts, text[cur:finish])
	return strings.Join(parts, ""), parts
}

// Events lists the timestamp events of a card in line order. Markers that are
// absent yield unknown events.
func Events(c script.Card) []Event {
	var evs []Event
	for i, l := range c.Lines {
		lm := scan(l.Text)
		if lm.leading != nil {
			evs = append(evs, known(Start, lm.leading.Seconds, i))
		} else {
			evs = append(evs, unknown(Start, i))
		}
		for _, m := range lm.intra {
			evs = append(evs, known(Intra, m.Seconds, i))
		}
		if lm.trailing != nil {
			evs = append(evs, known(End, lm.trailing.Seconds, i))
		} else {
			evs = append(evs, unknown(End, i))
		}
	}
	return evs
}

// Anchor returns events with an unknown first value set to start and an
// unknown last value set to end.
func Anchor(events []Event, start, end float64) []Event {
	out := slices.Clone(events)
	if len(out) == 0 {
		return out
	}
	if !out[0].Known {
		out[0].Value, out[0].Known = start, true
	}
	if last := len(out) - 1; !out[last].Known {
		out[last].Value, out[last].Known = end, true
	}
	return out
}

// Merge settles adjacent end/start pairs: a known side is copied to the
// unknown side, and two unknowns collapse into a single EndStart event.
func Merge(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for i := 0; i < len(events); i++ {
		ev := events[i]
		if ev.Kind != End || i+1 >= len(events) || events[i+1].Kind != Start {
			out = append(out, ev)
			continue
		}
		next := events[i+1]
		i++
		switch {
		case !ev.Known && next.Known:
			ev.Value, ev.Known = next.Value, true
		case ev.Known && !next.Known:
			next.Value, next.Known = ev.Value, true
		case !ev.Known && !next.Known:
			out = append(out, unknown(EndStart, ev.Line))
			continue
		}
		out = append(out, ev, next)
	}
	return out
}

// Interpolate assigns each run of n unknown values between known v0 and v1
// the values v0 + k*(v1-v0)/(n+1), truncated to two decimals.
func Interpolate(events []Event) []Event {
	out := slices.Clone(events)
	prev := -1
	for i := range out {
		if !out[i].Known {
			continue
		}
		if n := i - prev - 1; prev >= 0 && n > 0 {
			v0, v1 := out[prev].Value, out[i].Value
			for k := 1; k <= n; k++ {
				out[prev+k].Value = Trunc2(v0 + float64(k)*(v1-v0)/float64(n+1))
				out[prev+k].Known = true
			}
		}
		prev = i
	}
	return out
}

// Expand splits every EndStart into an end of its line and a start of the
// following line sharing the same value.
func Expand(events []Event) []Event {
	out := make([]Event, 0, len(events)+4)
	for _, ev := range events {
		if ev.Kind != EndStart {
			out = append(out, ev)
			continue
		}
		out = append(out,
			Event{Kind: End, Value: ev.Value, Known: ev.Known, Line: ev.Line},
			Event{Kind: Start, Value: ev.Value, Known: ev.Known, Line: ev.Line + 1},
		)
	}
	return out
}

// Trunc2 truncates v to two decimal places.
func Trunc2(v float64) float64 { return math.Trunc(v*100) / 100 }

// Settle runs the full fix-up chain on the events of c.
func Settle(c script.Card) []Event {
	return Expand(Interpolate(Merge(Anchor(Events(c), c.Start, c.End))))
}

// ResolveCard resolves the lines of c.
func ResolveCard(c script.Card) []Line {
	if len(c.Lines) == 0 {
		return nil
	}
	bounds := make([][]float64, len(c.Lines))
	lines := make([]Line, len(c.Lines))
	for _, ev := range Settle(c) {
		if ev.Line < 0 || ev.Line >= len(lines) {
			continue
		}
		switch ev.Kind {
		case Start:
			lines[ev.Line].Start = ev.Value
		case End:
			lines[ev.Line].End = ev.Value
		}
		bounds[ev.Line] = append(bounds[ev.Line], ev.Value)
	}
	for i, raw := range c.Lines {
		clean, texts := CleanAndSplit(raw.Text)
		lines[i].Text = clean
		lines[i].Index = i
		if len(texts) > 1 && len(bounds[i]) == len(texts)+1 {
			lines[i].Parts = make([]Part, len(texts))
			for j, txt := range texts {
				lines[i].Parts[j] = Part{Text: txt, Start: bounds[i][j], End: bounds[i][j+1]}
			}
		}
	}
	return lines
}

// Resolve resolves every card of s; the result is indexed like s.Cards.
func Resolve(s script.Script) [][]Line {
	out := make([][]Line, len(s.Cards))
	for i, c := range s.Cards {
		out[i] = ResolveCard(c)
	}
	return out
}
