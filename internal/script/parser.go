/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Timestamps are "SS", "SS.ff" or "MM:SS.ff"; seconds may exceed two digits so
// that dumped layouts ("125.50") parse back.
const tsPattern = `(?:(\d+):)?(\d+(?:\.\d+)?)`

var (
	reDuration = regexp.MustCompile(`^#\s*Duration:\s*` + tsPattern + `\s*$`)
	reHeader   = regexp.MustCompile(`^` + tsPattern + `\s*-\s*` + tsPattern + `\s*$`)
	reMarker   = regexp.MustCompile(`\[` + tsPattern + `\]`)
	reStamp    = regexp.MustCompile(`^` + tsPattern + `$`)
)

// Separator starts every card. Text following it on the same line is treated
// as the first line of the card, so "-- 1.00 - 4.00" works as well as a
// header on its own line.
const Separator = "--"

// Marker is a bracketed timestamp inside a RawLine. Start and End are byte
// offsets of the opening and one past the closing bracket.
type Marker struct {
	Start   int
	End     int
	Seconds float64
}

// Markers returns all timestamp markers of text in order. Bracketed text that
// is not a timestamp is left alone.
func Markers(text string) []Marker {
	idx := reMarker.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return nil
	}
	out := make([]Marker, 0, len(idx))
	for _, m := range idx {
		var min string
		if m[2] >= 0 {
			min = text[m[2]:m[3]]
		}
		out = append(out, Marker{Start: m[0], End: m[1], Seconds: seconds(min, text[m[4]:m[5]])})
	}
	return out
}

// ParseTimestamp converts "(MM:)?SS(.ff)?" to seconds.
func ParseTimestamp(s string) (float64, bool) {
	m := reStamp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	return seconds(m[1], m[2]), true
}

func seconds(min, sec string) float64 {
	v, _ := strconv.ParseFloat(sec, 64)
	if min != "" {
		m, _ := strconv.ParseFloat(min, 64)
		v += m * 60
	}
	return v
}

// Read decodes a script from r. A UTF-8 or UTF-16 byte order mark is honoured
// and stripped; input without BOM is taken as UTF-8.
func Read(r io.Reader) (string, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	b, err := io.ReadAll(dec)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

type srcLine struct {
	no   int
	text string
}

// Parse parses a lyric script into a Script.
// Syntax:
//   - The first block holds "# Duration: (MM:)?SS" and is otherwise ignored.
//   - Each card starts with a "--" separator line followed by a "start - end"
//     header and one or more lyric lines.
//   - Lyric lines may carry [SS.ff] markers at the start, inside and at the end.
//
// Blank lines are not represented. The first error aborts parsing.
func Parse(input string) (Script, error) {
	chunks := [][]srcLine{nil}
	seps := []int{0}
	for i, raw := range strings.Split(input, "\n") {
		no := i + 1
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, Separator) {
			chunks = append(chunks, nil)
			seps = append(seps, no)
			line = strings.TrimSpace(strings.TrimPrefix(line, Separator))
		}
		if line == "" {
			continue
		}
		chunks[len(chunks)-1] = append(chunks[len(chunks)-1], srcLine{no: no, text: line})
	}

	var s Script
	cfg := chunks[0]
	if len(cfg) == 0 {
		return Script{}, &ParseError{Line: 1, Kind: MissingDuration, Message: "failed to parse duration timestamp"}
	}
	m := reDuration.FindStringSubmatch(cfg[0].text)
	if m == nil {
		return Script{}, &ParseError{Line: cfg[0].no, Kind: MissingDuration, Message: "failed to parse duration timestamp"}
	}
	s.Duration = seconds(m[1], m[2])

	for ci := 1; ci < len(chunks); ci++ {
		lines := chunks[ci]
		if len(lines) == 0 {
			if ci == len(chunks)-1 {
				// trailing separator
				break
			}
			return Script{}, &ParseError{Line: seps[ci], Kind: MissingTimestamps, Message: "no timestamps"}
		}
		card, err := parseCard(lines)
		if err != nil {
			return Script{}, err
		}
		s.Cards = append(s.Cards, card)
	}
	return s, nil
}

func parseCard(lines []srcLine) (Card, error) {
	h := reHeader.FindStringSubmatch(lines[0].text)
	if h == nil {
		return Card{}, &ParseError{Line: lines[0].no, Kind: MissingTimestamps, Message: "no timestamps"}
	}
	c := Card{
		Start:  seconds(h[1], h[2]),
		End:    seconds(h[3], h[4]),
		LineNo: lines[0].no,
	}
	for _, l := range lines[1:] {
		// Markers only have to advance within one line; a later line may
		// restart below an earlier one.
		last := c.Start
		for _, mk := range Markers(l.text) {
			if mk.Seconds < last || mk.Seconds > c.End {
				return Card{}, &ParseError{
					Line:    l.no,
					Kind:    TimestampOutOfBounds,
					Message: fmt.Sprintf("timestamp out of bounds: '%s'", l.text),
				}
			}
			last = mk.Seconds
		}
		c.Lines = append(c.Lines, RawLine{Text: l.text, LineNo: l.no})
	}
	return c, nil
}
