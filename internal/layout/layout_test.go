/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"bytes"
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karaokay/internal/script"
	"karaokay/internal/textlayout"
	"karaokay/internal/timing"
)

// halfEm measures every rune as half the font size wide and one size tall.
type halfEm struct{}

func (halfEm) Measure(text string, size float64) (float64, float64) {
	return float64(utf8.RuneCountInString(text)) * size / 2, size
}

func mustParse(t *testing.T, src string) script.Script {
	t.Helper()
	s, err := script.Parse(src)
	require.NoError(t, err)
	return s
}

func byKind(entries []Entry, k Kind) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func TestGapsCoverTimeline(t *testing.T) {
	s := mustParse(t, `# Duration: 30
-- 2 - 5
[2]a[5]
-- 5.5 - 9
[5.5]b[9]
-- 12 - 20
[12]c[20]
`)
	pre, post := Gaps(s)
	assert.Equal(t, []float64{2, 0.5, 3}, pre)
	assert.Equal(t, []float64{0.5, 3, 10}, post)

	sum := 0.0
	for i, c := range s.Cards {
		sum += pre[i] + (c.End - c.Start)
	}
	sum += post[len(post)-1]
	assert.InDelta(t, s.Duration, sum, 1e-9)
}

func TestPauseInsertedForLongGap(t *testing.T) {
	s := mustParse(t, `# Duration: 20
-- 0 - 2
[0]one[2]
-- 6 - 10
[6]two[10]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())

	pauses := byKind(p.Entries, Pause)
	require.Len(t, pauses, 1)
	assert.InDelta(t, 2.0, pauses[0].Show, 1e-9)
	assert.InDelta(t, 4.5, pauses[0].Hide, 1e-9)
	assert.Equal(t, 1, pauses[0].Card)

	var two Entry
	for _, e := range p.Entries {
		if e.Text == "two" {
			two = e
		}
	}
	assert.InDelta(t, 4.5, two.Show, 1e-9)
	assert.InDelta(t, 10.0, two.Hide, 1e-9)
	assert.Equal(t, Cue, two.Kind)
}

func TestThresholdsAreStrict(t *testing.T) {
	// pre gap of exactly 3 does not pause; exactly 1 does not cue.
	s := mustParse(t, `# Duration: 20
-- 3 - 5
[3]a[5]
-- 6 - 8
[6]b[8]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())
	assert.Empty(t, byKind(p.Entries, Pause))

	a, b := p.Entries[0], p.Entries[1]
	assert.InDelta(t, 1.5, a.Show, 1e-9, "early show capped at ShowBefore")
	assert.Equal(t, Cue, a.Kind)
	assert.InDelta(t, 5.0, b.Show, 1e-9, "short gap shows at previous end")
	assert.Equal(t, Regular, b.Kind)
}

func TestEarlyShowAfterShortGap(t *testing.T) {
	s := mustParse(t, `# Duration: 20
-- 0 - 2
[0]a[2]
-- 4 - 6
[4]b[6]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())
	b := p.Entries[1]
	assert.InDelta(t, 2.5, b.Show, 1e-9)
}

func TestPeekForShortPostGap(t *testing.T) {
	s := mustParse(t, `# Duration: 20
-- 0 - 5
[0]first[2.5]
[2.5]second[5]
-- 5.5 - 9
[5.5][next] up[9]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())
	peeks := byKind(p.Entries, Peek)
	require.Len(t, peeks, 1)
	assert.Equal(t, "[next] up", peeks[0].Text)
	assert.Equal(t, 2, peeks[0].Slot)
	assert.Equal(t, 0, peeks[0].Card)
	assert.InDelta(t, 5.0, peeks[0].Hide, 1e-9)
	assert.Equal(t, 3, p.MaxSlots)
}

func TestNoPeekAfterLastCard(t *testing.T) {
	s := mustParse(t, `# Duration: 5.2
-- 0 - 5
[0]a[5]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())
	assert.Empty(t, byKind(p.Entries, Peek))
	assert.Equal(t, 1, p.MaxSlots)
}

func TestCueWithinCard(t *testing.T) {
	s := mustParse(t, `# Duration: 20
-- 0 - 10
[0]a[2]
[5]b[6]
[6.5]c[10]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())
	require.Len(t, p.Entries, 3)
	assert.Equal(t, Regular, p.Entries[0].Kind)
	assert.Equal(t, Cue, p.Entries[1].Kind)
	assert.Equal(t, Regular, p.Entries[2].Kind)
}

func TestPauseSlotIsCentred(t *testing.T) {
	s := mustParse(t, `# Duration: 30
-- 5 - 10
[5]a[6]
b
c
d[10]
`)
	p := PlanEntries(s, timing.Resolve(s), DefaultConfig())
	pauses := byKind(p.Entries, Pause)
	require.Len(t, pauses, 1)
	assert.Equal(t, 4, p.MaxSlots)
	assert.Equal(t, 1, pauses[0].Slot)
}

func TestSizeFitsLongestLine(t *testing.T) {
	s := mustParse(t, `# Duration: 10
-- 0 - 10
[0]Hello world[5]
[5]Hi[10]
`)
	m := textlayout.NewMeasurer(textlayout.BasicProvider{}, "")
	l := Build(s, DefaultConfig(), m)

	// 11 glyphs of 7px at 13px scale up from size 100 to the 1024px limit.
	assert.Equal(t, 172.0, l.FontSize)
	assert.InDelta(t, 172.0, l.LineHeight, 1e-9)
	require.Len(t, l.SlotTops, 2)
	assert.InDelta(t, 102.25, l.SlotTops[0], 1e-9)
	assert.InDelta(t, 360.25, l.SlotTops[1], 1e-9)
	assert.LessOrEqual(t, l.Entries[0].Width, DefaultConfig().MaxLineWidth())
}

func TestSizeShrinksForManySlots(t *testing.T) {
	s := mustParse(t, `# Duration: 10
-- 0 - 10
[0]Hello world[2]
a
b
c
d[10]
`)
	m := textlayout.NewMeasurer(textlayout.BasicProvider{}, "")
	l := Build(s, DefaultConfig(), m)
	assert.Equal(t, 96.0, l.FontSize)
	assert.InDelta(t, 0.25, l.SlotTop(0), 1e-9)
	assert.LessOrEqual(t, l.LineHeight*1.5*float64(l.MaxSlots)-0.5, DefaultConfig().Height)
}

func TestPartsArePlacedLeftToRight(t *testing.T) {
	s := mustParse(t, `# Duration: 10
-- 0 - 10
[0]ab[4]cde[10]
`)
	l := Build(s, DefaultConfig(), halfEm{})
	e := l.Entries[0]
	require.Len(t, e.Parts, 2)
	size := l.FontSize
	assert.InDelta(t, 0, e.Parts[0].X, 1e-9)
	assert.InDelta(t, size, e.Parts[0].Width, 1e-9)
	assert.InDelta(t, size, e.Parts[1].X, 1e-9)
	assert.InDelta(t, 1.5*size, e.Parts[1].Width, 1e-9)
	assert.InDelta(t, 2.5*size, e.Width, 1e-9)
}

func TestEmptyScript(t *testing.T) {
	s := script.Script{Duration: 4}
	l := Build(s, DefaultConfig(), halfEm{})
	assert.Empty(t, l.Entries)
	assert.Equal(t, 0, l.MaxSlots)
	assert.Equal(t, DefaultConfig().ReferenceFontSize, l.FontSize)
	assert.Empty(t, l.Query(1))
	assert.Equal(t, 0.0, l.LastHide())
	assert.Equal(t, 4.0, l.End())
}

func TestQueryHighlight(t *testing.T) {
	s := mustParse(t, `# Duration: 12
-- 2 - 10
[2]word[8]
[8]two[9]parts[10]
`)
	cfg := DefaultConfig()
	l := Build(s, cfg, halfEm{})

	assert.Empty(t, l.Query(0.4))
	act := l.Query(0.5)
	require.Len(t, act, 2)
	assert.Equal(t, Cue, act[0].Entry.Kind)
	assert.True(t, act[0].Counting)
	assert.InDelta(t, 1.0, act[0].Countdown, 1e-9)
	assert.Zero(t, act[0].Fraction)

	act = l.Query(1.5)
	assert.InDelta(t, 0.5, act[0].Countdown, 1e-9)

	act = l.Query(2)
	assert.Zero(t, act[0].Fraction)
	assert.False(t, act[0].Counting)

	eps := cfg.FrameEpsilon()
	act = l.Query(5)
	assert.InDelta(t, 3/(6-eps), act[0].Fraction, 1e-9)

	act = l.Query(8 - eps)
	assert.InDelta(t, 1.0, act[0].Fraction, 1e-9)

	act = l.Query(9)
	require.Len(t, act[1].Parts, 2)
	assert.True(t, act[1].Parts[0].Lit)
	assert.False(t, act[1].Parts[1].Lit)
	assert.Zero(t, act[1].Parts[1].Fraction)

	assert.Empty(t, l.Query(10))
	assert.Equal(t, 10.0, l.LastHide())
}

func TestQueryPauseProgress(t *testing.T) {
	s := mustParse(t, `# Duration: 20
-- 0 - 2
[0]one[2]
-- 6 - 10
[6]two[10]
`)
	l := Build(s, DefaultConfig(), halfEm{})
	var pause *Active
	for _, a := range l.Query(3.25) {
		if a.Entry.Kind == Pause {
			pause = &a
		}
	}
	require.NotNil(t, pause)
	assert.InDelta(t, 0.5, pause.Progress, 1e-9)
}

func TestQueryFractionMonotone(t *testing.T) {
	s := mustParse(t, `# Duration: 10
-- 0 - 10
[0]a b c[3.3]
`)
	l := Build(s, DefaultConfig(), halfEm{})
	prev := -1.0
	for ti := 0.0; ti < 3.3; ti += 0.05 {
		act := l.Query(ti)
		require.Len(t, act, 1)
		f := act[0].Fraction
		assert.GreaterOrEqual(t, f, prev)
		assert.False(t, math.IsNaN(f))
		prev = f
	}
}

func TestDumpRoundTrip(t *testing.T) {
	src := `# Duration: 65
-- 0 - 10
[0]Hello[5]world[10]
-- 12 - 20
[12]line one
line two
line three[20]

-- 21 - 22
[21.5]x
`
	l := Build(mustParse(t, src), DefaultConfig(), halfEm{})
	var buf bytes.Buffer
	require.NoError(t, l.Dump(&buf))
	out := buf.String()
	assert.Contains(t, out, "# Duration: 65\n")
	assert.Contains(t, out, "-- 0.00 - 10.00\n[0.00]Hello[5.00]world[10.00]\n")

	for name, src := range map[string]string{
		"cards":        src,
		"interpolated": "# Duration: 8\n-- 0 - 7\na\nb\nc[4]d\ne\n",
		"adjacent":     "# Duration: 5\n-- 0 - 4\na[2][3]b\n",
		"parts":        "# Duration: 9\n-- 1 - 8\n[1]one[2.5]two[4]\nthree[6]four\n",
	} {
		t.Run(name, func(t *testing.T) {
			s := mustParse(t, src)
			var buf bytes.Buffer
			require.NoError(t, Build(s, DefaultConfig(), halfEm{}).Dump(&buf))
			again := mustParse(t, buf.String())
			require.Len(t, again.Cards, len(s.Cards))

			want := timing.Resolve(s)
			got := timing.Resolve(again)
			for i := range want {
				require.Len(t, got[i], len(want[i]))
				for j, w := range want[i] {
					g := got[i][j]
					assert.Equal(t, w.Text, g.Text)
					assert.InDelta(t, w.Start, g.Start, 1e-9)
					assert.InDelta(t, w.End, g.End, 1e-9)
					require.Len(t, g.Parts, len(w.Parts), "line %q", w.Text)
					for k, wp := range w.Parts {
						assert.Equal(t, wp.Text, g.Parts[k].Text)
						assert.InDelta(t, wp.Start, g.Parts[k].Start, 1e-9)
						assert.InDelta(t, wp.End, g.Parts[k].End, 1e-9)
					}
				}
			}
		})
	}
}

func TestDumpKeepsInterpolatedAndEmptyParts(t *testing.T) {
	var buf bytes.Buffer
	s := mustParse(t, "# Duration: 8\n-- 0 - 7\na\nb\nc[4]d\ne\n")
	require.NoError(t, Build(s, DefaultConfig(), halfEm{}).Dump(&buf))
	assert.Contains(t, buf.String(), "\n[2.66]c[4.00]d[5.50]\n")

	buf.Reset()
	s = mustParse(t, "# Duration: 5\n-- 0 - 4\na[2][3]b\n")
	require.NoError(t, Build(s, DefaultConfig(), halfEm{}).Dump(&buf))
	assert.Contains(t, buf.String(), "[0.00]a[2.00][3.00]b[4.00]")
	parts := timing.Resolve(s)[0][0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "", parts[1].Text)
	assert.InDelta(t, 2.0, parts[1].Start, 1e-9)
	assert.InDelta(t, 3.0, parts[1].End, 1e-9)
}

func TestQueryDoesNotExposeLayoutParts(t *testing.T) {
	l := Build(mustParse(t, "# Duration: 12\n-- 2 - 10\n[2]two[6]parts[10]\n"), DefaultConfig(), halfEm{})
	act := l.Query(5)
	require.Len(t, act, 1)
	require.NotEmpty(t, act[0].Entry.Parts)
	act[0].Entry.Parts[0].Text = "changed"
	act[0].Entry.Parts[0].X = -1

	assert.Equal(t, "two", l.Entries[0].Parts[0].Text)
	assert.Equal(t, "two", l.Query(5)[0].Entry.Parts[0].Text)
	assert.NotEqual(t, -1.0, l.Entries[0].Parts[0].X)
}
