/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"karaokay/internal/timing"
)

// Dump writes the resolved timing back in script syntax. Every line carries
// explicit timestamps, so parsing the dump yields the same timing.
func (l *Layout) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# Duration: %s\n", strconv.FormatFloat(l.Duration, 'f', -1, 64))
	for _, c := range l.Cards {
		fmt.Fprintf(bw, "-- %.2f - %.2f\n", c.Start, c.End)
		for _, ln := range c.Lines {
			bw.WriteString(dumpLine(ln))
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func stamp(v float64) string { return fmt.Sprintf("[%.2f]", v) }

func dumpLine(ln timing.Line) string {
	var b strings.Builder
	if len(ln.Parts) == 0 {
		b.WriteString(stamp(ln.Start))
		b.WriteString(ln.Text)
		b.WriteString(stamp(ln.End))
		return b.String()
	}
	b.WriteString(stamp(ln.Parts[0].Start))
	for _, p := range ln.Parts {
		b.WriteString(p.Text)
		b.WriteString(stamp(p.End))
	}
	return b.String()
}
