/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout turns resolved cards into display entries: it decides when
// each card shows, where pauses, cues and peeks go, which vertical slot every
// line takes and how large the font can be. The resulting Layout is immutable
// and answers per-frame queries.
package layout

// Config holds the timing thresholds (seconds) and viewport geometry (pixels)
// the planner and sizing pass work with. It is passed by value and never
// mutated.
type Config struct {
	// ShowBefore shows a card this long before it starts, when the gap allows.
	ShowBefore float64
	// CueLength is the countdown shown before a line that follows a longer gap.
	CueLength float64
	// PeekThreshold: a post gap shorter than this previews the next card's first line.
	PeekThreshold float64
	// PauseThreshold: a pre gap longer than this gets a pause bar.
	PauseThreshold float64
	// PauseGap is the time between the end of a pause bar and the card start.
	PauseGap float64
	// FPS of the consumer; one frame is subtracted from highlight spans.
	FPS int

	Width             float64
	Height            float64
	MaxLineRatio      float64 // maximum line width as a fraction of Width
	ReferenceFontSize float64
}

// DefaultConfig returns the stock thresholds for a 1280x720 viewport at 30 fps.
func DefaultConfig() Config {
	return Config{
		ShowBefore:        1.5,
		CueLength:         1,
		PeekThreshold:     1,
		PauseThreshold:    3,
		PauseGap:          1.5,
		FPS:               30,
		Width:             1280,
		Height:            720,
		MaxLineRatio:      0.8,
		ReferenceFontSize: 100,
	}
}

// FrameEpsilon is the duration of one output frame.
func (c Config) FrameEpsilon() float64 {
	if c.FPS <= 0 {
		return 0
	}
	return 1 / float64(c.FPS)
}

// MaxLineWidth is the widest a rendered line may be.
func (c Config) MaxLineWidth() float64 { return c.Width * c.MaxLineRatio }
