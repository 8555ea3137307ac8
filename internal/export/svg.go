/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
)

// WriteFrameSVG writes sc as a standalone SVG document. Text is sized with
// textLength so glyph runs match the measured widths of the layout.
func WriteFrameSVG(w io.Writer, sc Scene, family string) error {
	if family == "" {
		family = "sans-serif"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(sc.Width), num(sc.Height), num(sc.Width), num(sc.Height))
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%s" height="%s" fill="%s"/>`+"\n", num(sc.Width), num(sc.Height), hexColor(sc.Background))

	clips := 0
	for _, op := range sc.Ops {
		switch op.Kind {
		case OpFill:
			fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"/>`+"\n",
				num(op.X), num(op.Y), num(op.W), num(op.H), hexColor(op.Color))
		case OpText:
			clipAttr := ""
			if op.Clip < op.W {
				clips++
				id := fmt.Sprintf("clip%d", clips)
				fmt.Fprintf(&b, `<defs><clipPath id="%s"><rect x="%s" y="%s" width="%s" height="%s"/></clipPath></defs>`+"\n",
					id, num(op.X), num(op.Y), num(op.Clip), num(op.H))
				clipAttr = fmt.Sprintf(` clip-path="url(#%s)"`, id)
			}
			fmt.Fprintf(&b, `<text x="%s" y="%s" font-family="%s" font-size="%s" fill="%s" textLength="%s" lengthAdjust="spacingAndGlyphs" dominant-baseline="text-before-edge" xml:space="preserve"%s>%s</text>`+"\n",
				num(op.X), num(op.Y), escAttr(family), num(sc.FontSize), hexColor(op.Color), num(op.W), clipAttr, escText(op.Text))
		}
	}
	b.WriteString("</svg>\n")
	_, err := w.Write(b.Bytes())
	return err
}

func num(v float64) string { return fmt.Sprintf("%.2f", v) }

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
