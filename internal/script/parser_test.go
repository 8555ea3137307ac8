/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"strings"
	"testing"
)

func TestParseDurationAndCards(t *testing.T) {
	input := `# Duration: 1:05
--
0 - 10
Hello[5]world
--
12.5 - 1:00.25
[13]First line
second line[20]
`
	s, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Duration != 65 {
		t.Fatalf("duration = %v, want 65", s.Duration)
	}
	if len(s.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(s.Cards))
	}
	c0 := s.Cards[0]
	if c0.Start != 0 || c0.End != 10 || len(c0.Lines) != 1 || c0.Lines[0].Text != "Hello[5]world" {
		t.Fatalf("unexpected first card: %+v", c0)
	}
	c1 := s.Cards[1]
	if c1.Start != 12.5 || c1.End != 60.25 {
		t.Fatalf("unexpected card window: %v - %v", c1.Start, c1.End)
	}
	if len(c1.Lines) != 2 || c1.Lines[1].LineNo != 8 {
		t.Fatalf("unexpected lines: %+v", c1.Lines)
	}
}

func TestParseHeaderOnSeparatorLine(t *testing.T) {
	s, err := Parse("# Duration: 30\n-- 1.00 - 4.00\n[1.00]la la[4.00]\n-- 5.00 - 9.50\nfoo\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Cards) != 2 || s.Cards[1].Start != 5 || s.Cards[1].End != 9.5 {
		t.Fatalf("unexpected cards: %+v", s.Cards)
	}
}

func TestParseTrailingSeparatorAndBlankLines(t *testing.T) {
	s, err := Parse("# Duration: 20\n--\n\n0 - 5\nA\n\nB\n\n--\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Cards) != 1 || len(s.Cards[0].Lines) != 2 {
		t.Fatalf("unexpected cards: %+v", s.Cards)
	}
}

func TestParseMissingDuration(t *testing.T) {
	_, err := Parse("Duration 10\n--\n0 - 5\nA\n")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T (%v)", err, err)
	}
	if pe.Kind != MissingDuration || pe.Line != 1 {
		t.Fatalf("unexpected error: %+v", pe)
	}
	if !errors.Is(err, ErrMissingDuration) {
		t.Fatalf("errors.Is should match ErrMissingDuration")
	}
}

func TestParseMissingTimestampsReportsPhysicalLine(t *testing.T) {
	_, err := Parse("# Duration: 10\n--\n0 - 5\nA\n--\nnot a header\nB\n")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Kind != MissingTimestamps || pe.Line != 6 {
		t.Fatalf("unexpected error: %+v", pe)
	}
}

func TestParseEmptyCardBetweenSeparators(t *testing.T) {
	_, err := Parse("# Duration: 10\n--\n--\n0 - 5\nA\n")
	if !errors.Is(err, ErrMissingTimestamps) {
		t.Fatalf("expected missing timestamps, got %v", err)
	}
}

func TestParseTimestampOutOfBounds(t *testing.T) {
	cases := map[string]string{
		"beyond card end":    "# Duration: 20\n--\n0 - 10\nfoo[11]bar\n",
		"before card start":  "# Duration: 20\n--\n5 - 10\n[4]foo\n",
		"decreasing in line": "# Duration: 20\n--\n0 - 10\nfoo[6]bar[5]baz\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(in)
			var pe *ParseError
			if !errors.As(err, &pe) || pe.Kind != TimestampOutOfBounds {
				t.Fatalf("expected out of bounds, got %v", err)
			}
			if pe.Line != 4 {
				t.Fatalf("line = %d, want 4", pe.Line)
			}
			if !strings.Contains(pe.Message, "out of bounds") {
				t.Fatalf("message = %q", pe.Message)
			}
		})
	}
}

func TestParseEarlierTimestampOnLaterLineIsAccepted(t *testing.T) {
	_, err := Parse("# Duration: 20\n--\n0 - 10\nfoo[6]bar\nbaz[3]qux\n")
	if err != nil {
		t.Fatalf("per-line bound check should accept this, got %v", err)
	}
}

func TestMarkers(t *testing.T) {
	ms := Markers("[1:02.5]a[63]b [chorus] c[64.25]")
	if len(ms) != 3 {
		t.Fatalf("expected 3 markers, got %+v", ms)
	}
	if ms[0].Start != 0 || ms[0].Seconds != 62.5 {
		t.Fatalf("unexpected first marker: %+v", ms[0])
	}
	if ms[2].Seconds != 64.25 || ms[2].End != len("[1:02.5]a[63]b [chorus] c[64.25]") {
		t.Fatalf("unexpected last marker: %+v", ms[2])
	}
}

func TestParseTimestamp(t *testing.T) {
	if v, ok := ParseTimestamp("1:05"); !ok || v != 65 {
		t.Fatalf("ParseTimestamp(1:05) = %v, %v", v, ok)
	}
	if _, ok := ParseTimestamp("abc"); ok {
		t.Fatalf("expected failure for abc")
	}
}

func TestReadStripsBOM(t *testing.T) {
	txt, err := Read(strings.NewReader("\ufeff# Duration: 5\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(txt, "# Duration") {
		t.Fatalf("BOM not stripped: %q", txt)
	}
}
