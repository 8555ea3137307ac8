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
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"karaokay/internal/layout"
	applog "karaokay/internal/log"
	"karaokay/internal/telemetry"
)

// PresetName represents a named frame export preset.
type PresetName string

const (
	// PresetPreview renders one SVG frame per second.
	PresetPreview PresetName = "preview"
	// PresetFrames renders every frame as PNG.
	PresetFrames PresetName = "frames"
)

// FramesOptions controls frame sequence export.
//
// Frames are named frame-<n>.<format> with n counting from 0, either inside
// OutDir or, with Archive set, inside OutDir/frames.zip.
type FramesOptions struct {
	Preset  PresetName
	Format  string  // png or svg; empty means the preset default
	FPS     int     // 0 means the preset default
	From    float64 // first frame time
	To      float64 // end of the range, exclusive; <= 0 means the layout end
	OutDir  string
	Archive bool
	Force   bool
	Style   Style
	Metrics *telemetry.Metrics
}

// ExportFrames renders the frames of l over [From, To) and returns how many
// were written.
func ExportFrames(ctx context.Context, l *layout.Layout, fonts Fonts, opt FramesOptions) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("layout is nil")
	}
	format := strings.ToLower(strings.TrimSpace(opt.Format))
	if format == "" {
		format = presetFormat(opt.Preset)
	}
	if format != "png" && format != "svg" {
		return 0, fmt.Errorf("unknown format: %s", format)
	}
	fps := opt.FPS
	if fps <= 0 {
		fps = presetFPS(opt.Preset, l.Config().FPS)
	}
	to := opt.To
	if to <= 0 {
		to = l.End()
	}
	n := FrameCount(opt.From, to, fps)

	var sink frameSink = dirSink{dir: opt.OutDir, force: opt.Force}
	if opt.Archive {
		zs, err := newZipSink(filepath.Join(opt.OutDir, "frames.zip"), opt.Force)
		if err != nil {
			return 0, err
		}
		sink = zs
	}

	lg := applog.WithOperation(applog.WithComponent("export"), "frames")
	lg.InfoContext(ctx, "exporting frames",
		slog.String("preset", string(opt.Preset)),
		slog.String("format", format),
		slog.Int("fps", fps),
		slog.Int("frames", n),
		slog.String("out", opt.OutDir),
	)

	width := len(fmt.Sprint(max(n-1, 0)))
	var buf bytes.Buffer
	written := 0
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			_ = sink.Close()
			return written, err
		}
		t := opt.From + float64(k)/float64(fps)
		sc := Compose(l, t, opt.Style, fonts)
		buf.Reset()
		var err error
		if format == "png" {
			err = WriteFramePNG(&buf, sc, fonts)
		} else {
			err = WriteFrameSVG(&buf, sc, opt.Style.FontFamily)
		}
		if err == nil {
			err = sink.Put(fmt.Sprintf("frame-%0*d.%s", width, k, format), buf.Bytes())
		}
		if err != nil {
			_ = sink.Close()
			return written, fmt.Errorf("frame %d (t=%.2f): %w", k, t, err)
		}
		written++
		opt.Metrics.RecordFrame(format)
	}
	if err := sink.Close(); err != nil {
		return written, err
	}
	lg.DebugContext(ctx, "frames written", slog.Int("count", written))
	return written, nil
}

// FrameCount is the number of frames at fps whose time lies in [from, to).
func FrameCount(from, to float64, fps int) int {
	if fps <= 0 || to <= from {
		return 0
	}
	return int(math.Ceil((to-from)*float64(fps) - 1e-9))
}

func presetFormat(p PresetName) string {
	if p == PresetPreview {
		return "svg"
	}
	return "png"
}

func presetFPS(p PresetName, layoutFPS int) int {
	if p == PresetPreview || layoutFPS <= 0 {
		return 1
	}
	return layoutFPS
}
