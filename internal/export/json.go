/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"karaokay/internal/layout"
)

//go:embed layout.schema.json
var layoutSchema []byte

// LayoutVersion is the version of the JSON layout document.
const LayoutVersion = 1

// LayoutDoc is the JSON document handed to external renderers.
type LayoutDoc struct {
	Version    int        `json:"version"`
	Duration   float64    `json:"duration"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	FPS        int        `json:"fps"`
	FontSize   float64    `json:"font_size"`
	LineHeight float64    `json:"line_height"`
	MaxSlots   int        `json:"max_slots"`
	SlotTops   []float64  `json:"slot_tops"`
	Entries    []EntryDoc `json:"entries"`
}

type EntryDoc struct {
	Kind  string    `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Slot  int       `json:"slot"`
	Show  float64   `json:"show"`
	Hide  float64   `json:"hide"`
	Start *float64  `json:"start,omitempty"`
	End   *float64  `json:"end,omitempty"`
	Width *float64  `json:"width,omitempty"`
	Card  int       `json:"card"`
	Line  *int      `json:"line,omitempty"`
	Parts []PartDoc `json:"parts,omitempty"`
}

type PartDoc struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	X     float64 `json:"x"`
	Width float64 `json:"width"`
}

// NewLayoutDoc converts l into its JSON form.
func NewLayoutDoc(l *layout.Layout) LayoutDoc {
	cfg := l.Config()
	doc := LayoutDoc{
		Version:    LayoutVersion,
		Duration:   l.Duration,
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        cfg.FPS,
		FontSize:   l.FontSize,
		LineHeight: l.LineHeight,
		MaxSlots:   l.MaxSlots,
		SlotTops:   append([]float64{}, l.SlotTops...),
		Entries:    make([]EntryDoc, 0, len(l.Entries)),
	}
	for _, e := range l.Entries {
		ed := EntryDoc{Kind: e.Kind.String(), Slot: e.Slot, Show: e.Show, Hide: e.Hide, Card: e.Card}
		if e.Kind != layout.Pause {
			ed.Text = e.Text
			ed.Width = ptr(e.Width)
		}
		if e.Highlighted() {
			ed.Start, ed.End, ed.Line = ptr(e.Start), ptr(e.End), ptr(e.Line)
			for _, p := range e.Parts {
				ed.Parts = append(ed.Parts, PartDoc{Text: p.Text, Start: p.Start, End: p.End, X: p.X, Width: p.Width})
			}
		}
		doc.Entries = append(doc.Entries, ed)
	}
	return doc
}

func ptr[T any](v T) *T { return &v }

// WriteLayoutJSON writes the JSON document of l, indented.
func WriteLayoutJSON(w io.Writer, l *layout.Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewLayoutDoc(l)); err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return nil
}

// ValidateLayoutJSON checks data against the layout document schema.
func ValidateLayoutJSON(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(layoutSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New("layout does not conform to schema: " + strings.Join(msgs, "; "))
}
