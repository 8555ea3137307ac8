/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"karaokay/internal/audio"
	"karaokay/internal/config"
	"karaokay/internal/engine"
	"karaokay/internal/export"
	"karaokay/internal/layout"
	applog "karaokay/internal/log"
	"karaokay/internal/script"
	"karaokay/internal/storage"
	"karaokay/internal/telemetry"
	"karaokay/internal/textlayout"
)

// audioTolerance is how far the script duration may drift from the audio
// length before a warning is printed.
const audioTolerance = 0.5

// options holds the persistent flags.
type options struct {
	configPath   string
	fontPath     string
	audioPath    string
	indexPath    string
	force        bool
	metrics      bool
	noHistory    bool
	suppressPlug bool
	debug        bool
}

// session is the state shared by commands after configuration is loaded.
type session struct {
	opts    *options
	cfg     config.AppConfig
	fonts   textlayout.Measurer
	metrics *telemetry.Metrics
	index   *storage.Index
	log     *slog.Logger
}

// skipSetup marks commands that run without config, fonts or history.
const skipSetup = "karaokay/skip-setup"

func newRootCmd() *cobra.Command {
	opts := &options{}
	s := &session{opts: opts}

	root := &cobra.Command{
		Use:   "karaokay",
		Short: "Karaoke layout engine for timed lyric scripts",
		Long: `karaokay reads a lyric script with [m:ss.cc] timestamps, resolves the timing
of every line and part, and lays the lyrics out on a fixed viewport.

SCRIPT FORMAT:
  # Duration: 3:12.5
  --
  0:12 - 0:18
  [0:12]First line of the card[14]
  [14.5]Second [15.2]line
  with parts[18]

COMMON WORKFLOWS:
  Check timing:     karaokay dump song.txt
  Renderer input:   karaokay layout song.txt -o song.json
  Spot check:       karaokay frame song.txt -t 42.5 -o frame.png
  Preview:          karaokay frames song.txt --preset preview -o preview/`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return s.setup(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default is the per-user config.yaml)")
	pf.StringVar(&opts.fontPath, "font", "", "TTF/OTF font used for measuring and rendering")
	pf.StringVar(&opts.audioPath, "audio", "", "WAV file to check the script duration against")
	pf.StringVar(&opts.indexPath, "index", "", "run history database (default in the config dir)")
	pf.BoolVar(&opts.force, "force", false, "overwrite existing output files")
	pf.BoolVar(&opts.metrics, "metrics", false, "print engine metrics to stderr when done")
	pf.BoolVar(&opts.noHistory, "no-history", false, "do not record the run")
	pf.BoolVar(&opts.suppressPlug, "suppress-plug", false, "do not draw the plug caption after the last line")
	pf.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newDumpCmd(s),
		newLayoutCmd(s),
		newFrameCmd(s),
		newFramesCmd(s),
		newSheetCmd(s),
		newHistoryCmd(s),
		newConfigCmd(s),
		newVersionCmd(),
	)
	withTeardown(root, s)
	return root
}

// withTeardown wraps every RunE below c. Post-run hooks are skipped on error,
// so teardown cannot live there.
func withTeardown(c *cobra.Command, s *session) {
	for _, sub := range c.Commands() {
		withTeardown(sub, s)
		if sub.RunE == nil {
			continue
		}
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() { err = errors.Join(err, s.teardown(cmd)) }()
			return run(cmd, args)
		}
	}
}

func (s *session) setup(ctx context.Context) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(s.opts.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if s.opts.debug {
		cfg.Logging.Level = "debug"
	}
	if s.opts.fontPath != "" {
		cfg.Font.Path = s.opts.fontPath
	}
	if s.opts.suppressPlug {
		cfg.Render.SuppressPlug = true
	}
	s.cfg = cfg

	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	s.log = applog.WithComponent("cli")
	telemetry.NewDefault(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))
	s.metrics = telemetry.NewMetrics()

	fonts, err := loadFonts(cfg.Font)
	if err != nil {
		return err
	}
	s.fonts = fonts

	if s.opts.noHistory || cfg.Storage.Disabled {
		return nil
	}
	path := s.opts.indexPath
	if path == "" {
		path = cfg.Storage.IndexPath
	}
	if path == "" {
		if path, err = config.DefaultIndexPath(); err != nil {
			return err
		}
	}
	ix, rebuilt, err := storage.OpenOrRebuild(ctx, path)
	if err != nil {
		// history is optional
		s.log.Warn("run history unavailable", slog.String("path", path), slog.Any("err", err))
		return nil
	}
	if rebuilt {
		s.log.Warn("run history was corrupt and has been reset", slog.String("path", path))
	}
	s.index = ix
	return nil
}

func (s *session) teardown(cmd *cobra.Command) error {
	var errs []error
	if s.opts.metrics && s.metrics != nil {
		errs = append(errs, s.metrics.WriteText(cmd.ErrOrStderr()))
	}
	if s.index != nil {
		errs = append(errs, s.index.Close())
		s.index = nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c := telemetry.InitDefault()
	c.Flush(ctx)
	c.Close()
	return errors.Join(errs...)
}

func loadFonts(fc config.FontConfig) (textlayout.Measurer, error) {
	if fc.Path == "" {
		return textlayout.NewMeasurer(textlayout.BasicProvider{}, fc.Family), nil
	}
	family := fc.Family
	if family == "" {
		family = strings.TrimSuffix(filepath.Base(fc.Path), filepath.Ext(fc.Path))
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadFile(family, fc.Path); err != nil {
		return textlayout.Measurer{}, fmt.Errorf("load font: %w", err)
	}
	provider := textlayout.OTProvider{Lib: lib, Fallback: textlayout.BasicProvider{}}
	return textlayout.NewMeasurer(provider, family), nil
}

// readScript reads a script file, or stdin for "-".
func readScript(path string) (string, error) {
	if path == "-" {
		return script.Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return script.Read(f)
}

// build runs the engine over the script at path and records the run.
func (s *session) build(ctx context.Context, command, path string) (*layout.Layout, error) {
	text, err := readScript(path)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, command, path, text)
}

// run is build for a script that has already been read.
func (s *session) run(ctx context.Context, command, path, text string) (*layout.Layout, error) {
	lg := applog.WithScript(applog.WithOperation(s.log, command), path)
	started := time.Now()
	eng := engine.New(s.fonts, engine.WithMetrics(s.metrics), engine.WithLogger(lg))
	l, err := eng.Run(ctx, text, s.cfg.Layout())
	s.record(ctx, command, path, text, l, err, time.Since(started))
	if err != nil {
		return nil, err
	}
	s.checkAudio(l.Duration)
	telemetry.Event("run", map[string]any{
		"command": command,
		"cards":   len(l.Cards),
		"entries": len(l.Entries),
	})
	return l, nil
}

func (s *session) record(ctx context.Context, command, path, text string, l *layout.Layout, runErr error, elapsed time.Duration) {
	if s.index == nil {
		return
	}
	r := storage.Run{
		Command:    command,
		ScriptPath: absPath(path),
		ScriptHash: storage.HashScript(text),
		Result:     resultOf(runErr),
		Elapsed:    elapsed,
	}
	if l != nil {
		r.Duration = l.Duration
		r.Cards = len(l.Cards)
		r.Entries = len(l.Entries)
		r.FontSize = l.FontSize
	}
	if _, err := s.index.RecordRun(ctx, r); err != nil {
		s.log.Warn("record run failed", slog.Any("err", err))
	}
}

// recordCached records a dump served from the cache.
func (s *session) recordCached(ctx context.Context, path, hash string) {
	r := storage.Run{Command: "dump", ScriptPath: absPath(path), ScriptHash: hash, Result: "cached"}
	if _, err := s.index.RecordRun(ctx, r); err != nil {
		s.log.Warn("record run failed", slog.Any("err", err))
	}
}

func resultOf(err error) string {
	var pe *script.ParseError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pe):
		return "parse_error"
	default:
		return "error"
	}
}

func absPath(p string) string {
	if p == "-" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func (s *session) checkAudio(duration float64) {
	if s.opts.audioPath == "" {
		return
	}
	info, err := audio.ProbeWAV(s.opts.audioPath)
	if err != nil {
		s.log.Warn("audio probe failed", slog.String("audio", s.opts.audioPath), slog.Any("err", err))
		return
	}
	if delta, off := audio.DurationMismatch(duration, info, audioTolerance); off {
		s.log.Warn("script duration does not match audio",
			slog.Float64("script", duration),
			slog.Float64("audio", info.Duration),
			slog.Float64("delta", delta),
		)
	}
}

// style builds the frame style from the render config.
func (s *session) style(showTime bool) (export.Style, error) {
	p, err := s.cfg.Render.Palette()
	if err != nil {
		return export.Style{}, err
	}
	st := export.DefaultStyle()
	st.Background, st.Text, st.Peek, st.Highlight = p.Background, p.Text, p.Peek, p.Highlight
	st.PlugText = s.cfg.Render.PlugText
	st.SuppressPlug = s.cfg.Render.SuppressPlug
	st.ShowTime = showTime
	if s.cfg.Font.Family != "" {
		st.FontFamily = s.cfg.Font.Family
	}
	return st, nil
}

// writeOutput writes to path through fn, or to w when path is empty or "-".
func (s *session) writeOutput(w io.Writer, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(w)
	}
	f, err := export.CreateOutput(path, s.opts.force)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.log.Info("wrote output", slog.String("path", path))
	return nil
}
