/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"karaokay/internal/layout"
	"karaokay/internal/textlayout"
)

// Fonts measures text and hands out faces for rasterizing it.
// textlayout.Measurer implements it.
type Fonts interface {
	layout.Measurer
	Face(size float64) (font.Face, textlayout.Metrics, float64)
}

// RenderFrame rasterizes sc.
func RenderFrame(sc Scene, fonts Fonts) *image.RGBA {
	w := int(math.Round(sc.Width))
	h := int(math.Round(sc.Height))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: sc.Background}, image.Point{}, draw.Src)

	for _, op := range sc.Ops {
		switch op.Kind {
		case OpFill:
			fillRect(img, pixelRect(op.X, op.Y, op.W, op.H), op.Color)
		case OpText:
			drawText(img, op, fonts, sc.FontSize)
		}
	}
	return img
}

// WriteFramePNG rasterizes sc and encodes it as PNG.
func WriteFramePNG(w io.Writer, sc Scene, fonts Fonts) error {
	if err := png.Encode(w, RenderFrame(sc, fonts)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func pixelRect(x, y, w, h float64) image.Rectangle {
	return image.Rect(int(math.Round(x)), int(math.Round(y)), int(math.Round(x+w)), int(math.Round(y+h)))
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.RGBA) {
	r = r.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, &image.Uniform{C: col}, image.Point{}, draw.Over)
}

// drawText draws op.Text clipped to op.Clip. Faces that do not match the
// requested size are rendered at their native size and scaled.
func drawText(img *image.RGBA, op Op, fonts Fonts, size float64) {
	clip := pixelRect(op.X, op.Y, op.Clip, op.H).Intersect(img.Bounds())
	if clip.Empty() {
		return
	}
	dst := img.SubImage(clip).(*image.RGBA)
	src := image.NewUniform(op.Color)
	face, met, scale := fonts.Face(size)

	if math.Abs(scale-1) < 1e-6 {
		d := font.Drawer{
			Dst:  dst,
			Src:  src,
			Face: face,
			Dot:  fixed.P(int(math.Round(op.X)), int(math.Round(op.Y))+int(met.Ascent)),
		}
		d.DrawString(op.Text)
		return
	}

	nw := font.MeasureString(face, op.Text).Ceil()
	nh := int(met.Ascent + met.Descent)
	if nw <= 0 || nh <= 0 {
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, nw, nh))
	d := font.Drawer{Dst: tmp, Src: src, Face: face, Dot: fixed.P(0, int(met.Ascent))}
	d.DrawString(op.Text)
	target := pixelRect(op.X, op.Y, float64(nw)*scale, float64(nh)*scale)
	xdraw.ApproxBiLinear.Scale(dst, target, tmp, tmp.Bounds(), xdraw.Over, nil)
}
