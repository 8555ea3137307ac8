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
	"fmt"
)

// Script represents a parsed lyric script: the total running time and the
// ordered cards. Cards are assumed to be ordered by start time and not to
// overlap; the parser does not enforce this.

type Script struct {
	Duration float64 // seconds
	Cards    []Card
}

// Card is a time-boxed block of lyric lines sharing one start/end window.
// Start and End are seconds; Lines keep their timestamp markers.

type Card struct {
	Start  float64
	End    float64
	Lines  []RawLine
	LineNo int // 1-based line of the "start - end" header in the source
}

// RawLine is a trimmed source line that may contain bracketed timestamp
// markers such as [12.5] or [1:02.25] at its start, inside, or at its end.

type RawLine struct {
	Text   string
	LineNo int
}

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	MissingDuration ErrorKind = iota + 1
	MissingTimestamps
	TimestampOutOfBounds
)

func (k ErrorKind) String() string {
	switch k {
	case MissingDuration:
		return "MissingDuration"
	case MissingTimestamps:
		return "MissingTimestamps"
	case TimestampOutOfBounds:
		return "TimestampOutOfBounds"
	default:
		return "Unknown"
	}
}

// Sentinels matched by ParseError.Unwrap, for use with errors.Is.
var (
	ErrMissingDuration      = errors.New("missing duration")
	ErrMissingTimestamps    = errors.New("missing card timestamps")
	ErrTimestampOutOfBounds = errors.New("timestamp out of bounds")
)

// ParseError represents a parse failure with the physical source line.
type ParseError struct {
	Line    int
	Kind    ErrorKind
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	switch e.Kind {
	case MissingDuration:
		return ErrMissingDuration
	case MissingTimestamps:
		return ErrMissingTimestamps
	case TimestampOutOfBounds:
		return ErrTimestampOutOfBounds
	}
	return nil
}
