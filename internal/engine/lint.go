/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package engine

import (
	"fmt"

	"karaokay/internal/script"
)

// Warning is a suspicious but valid property of a script.
type Warning struct {
	Card    int // -1 when not tied to a card
	Message string
}

// Lint reports scripts that parse but will likely render oddly.
func Lint(s script.Script) []Warning {
	var ws []Warning
	prevEnd := 0.0
	for i, c := range s.Cards {
		if len(c.Lines) == 0 {
			ws = append(ws, Warning{Card: i, Message: fmt.Sprintf("card %d at line %d has no lines", i+1, c.LineNo)})
		}
		if c.Start < prevEnd {
			ws = append(ws, Warning{Card: i, Message: fmt.Sprintf("card %d at line %d starts before the previous card ends", i+1, c.LineNo)})
		}
		prevEnd = c.End
	}
	if n := len(s.Cards); n > 0 && s.Duration < s.Cards[n-1].End {
		ws = append(ws, Warning{Card: n - 1, Message: fmt.Sprintf("duration %.2f ends before the last card (%.2f)", s.Duration, s.Cards[n-1].End)})
	}
	return ws
}
