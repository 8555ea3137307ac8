/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"karaokay/internal/config"
	"karaokay/internal/export"
	"karaokay/internal/storage"
	"karaokay/internal/version"
)

func newDumpCmd(s *session) *cobra.Command {
	var out string
	var noCache bool
	cmd := &cobra.Command{
		Use:   "dump <script>",
		Short: "Print the resolved timing of every card",
		Long: `Prints the script back with every timestamp resolved, one [start]text[end]
line per source line. The output parses as a script again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			text, err := readScript(path)
			if err != nil {
				return err
			}
			hash := storage.HashScript(text)
			if s.index != nil && !noCache {
				if dump, ok, err := s.index.LookupDump(cmd.Context(), hash); err == nil && ok {
					s.log.Debug("dump cache hit", slog.String("script", path))
					s.recordCached(cmd.Context(), path, hash)
					return s.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
						_, err := io.WriteString(w, dump)
						return err
					})
				}
			}

			l, err := s.run(cmd.Context(), "dump", path, text)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := l.Dump(&buf); err != nil {
				return err
			}
			if s.index != nil {
				if err := s.index.SaveDump(cmd.Context(), hash, buf.String()); err != nil {
					s.log.Warn("cache dump failed", slog.Any("err", err))
				}
			}
			return s.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				_, err := w.Write(buf.Bytes())
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore cached dumps")
	return cmd
}

func newLayoutCmd(s *session) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "layout <script>",
		Short: "Write the layout as JSON for external renderers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := s.build(cmd.Context(), "layout", args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := export.WriteLayoutJSON(&buf, l); err != nil {
				return err
			}
			if err := export.ValidateLayoutJSON(buf.Bytes()); err != nil {
				return err
			}
			return s.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				_, err := w.Write(buf.Bytes())
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newFrameCmd(s *session) *cobra.Command {
	var (
		out      string
		format   string
		at       float64
		showTime bool
	)
	cmd := &cobra.Command{
		Use:   "frame <script>",
		Short: "Render a single frame as PNG or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := frameFormat(format, out)
			if err != nil {
				return err
			}
			l, err := s.build(cmd.Context(), "frame", args[0])
			if err != nil {
				return err
			}
			st, err := s.style(showTime)
			if err != nil {
				return err
			}
			sc := export.Compose(l, at, st, s.fonts)
			if out == "" {
				out = "frame." + f
			}
			err = s.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if f == "svg" {
					return export.WriteFrameSVG(w, sc, st.FontFamily)
				}
				return export.WriteFramePNG(w, sc, s.fonts)
			})
			if err == nil {
				s.metrics.RecordFrame(f)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default frame.<format>, - for stdout)")
	cmd.Flags().StringVar(&format, "format", "", "png or svg (default from the output extension, else png)")
	cmd.Flags().Float64VarP(&at, "time", "t", 0, "frame time in seconds")
	cmd.Flags().BoolVar(&showTime, "show-time", false, "print the frame time in the corner")
	return cmd
}

// frameFormat picks the image format from the flag or the output extension.
func frameFormat(flag, out string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(flag))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
	}
	switch f {
	case "", "png":
		return "png", nil
	case "svg":
		return "svg", nil
	}
	return "", fmt.Errorf("unknown format: %s", f)
}

func newFramesCmd(s *session) *cobra.Command {
	var (
		out      string
		preset   string
		format   string
		fps      int
		from, to float64
		archive  bool
		showTime bool
	)
	cmd := &cobra.Command{
		Use:   "frames <script>",
		Short: "Render a frame sequence into a directory or zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := export.PresetName(preset)
			if p != export.PresetPreview && p != export.PresetFrames {
				return fmt.Errorf("unknown preset: %s", preset)
			}
			l, err := s.build(cmd.Context(), "frames", args[0])
			if err != nil {
				return err
			}
			st, err := s.style(showTime)
			if err != nil {
				return err
			}
			started := time.Now()
			n, err := export.ExportFrames(cmd.Context(), l, s.fonts, export.FramesOptions{
				Preset:  p,
				Format:  format,
				FPS:     fps,
				From:    from,
				To:      to,
				OutDir:  out,
				Archive: archive,
				Force:   s.opts.force,
				Style:   st,
				Metrics: s.metrics,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d frames to %s in %s\n", n, out, time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "frames", "output directory")
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetPreview), "preview (1 fps SVG) or frames (full rate PNG)")
	cmd.Flags().StringVar(&format, "format", "", "override the preset format (png or svg)")
	cmd.Flags().IntVar(&fps, "fps", 0, "override the preset frame rate")
	cmd.Flags().Float64Var(&from, "from", 0, "first frame time in seconds")
	cmd.Flags().Float64Var(&to, "to", 0, "end time in seconds (default the end of the layout)")
	cmd.Flags().BoolVar(&archive, "archive", false, "write frames.zip instead of loose files")
	cmd.Flags().BoolVar(&showTime, "show-time", false, "print the frame time in the corner")
	return cmd
}

func newSheetCmd(s *session) *cobra.Command {
	var out, title string
	cmd := &cobra.Command{
		Use:   "sheet <script>",
		Short: "Write a PDF timing sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := s.build(cmd.Context(), "sheet", args[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			if out == "" {
				out = "sheet.pdf"
			}
			return s.writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return export.WriteTimingSheetPDF(w, l, export.SheetOptions{Title: title})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default sheet.pdf, - for stdout)")
	cmd.Flags().StringVar(&title, "title", "", "sheet title (default the script file name)")
	return cmd
}

func newHistoryCmd(s *session) *cobra.Command {
	var limit, prune int
	cmd := &cobra.Command{
		Use:   "history [script]",
		Short: "List recent runs, optionally only those of one script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.index == nil {
				return fmt.Errorf("run history is disabled")
			}
			var hash string
			if len(args) == 1 {
				text, err := readScript(args[0])
				if err != nil {
					return err
				}
				hash = storage.HashScript(text)
			}
			if prune > 0 {
				n, err := s.index.PruneRuns(cmd.Context(), prune)
				if err != nil {
					return err
				}
				s.log.Info("pruned runs", slog.Int64("deleted", n))
			}
			var runs []storage.Run
			var err error
			if hash != "" {
				runs, err = s.index.RunsForScript(cmd.Context(), hash, limit)
			} else {
				runs, err = s.index.Runs(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tCOMMAND\tRESULT\tCARDS\tENTRIES\tDURATION\tSCRIPT")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.2f\t%s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Command, r.Result, r.Cards, r.Entries, r.Duration, r.ScriptPath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().IntVar(&prune, "prune", 0, "keep only this many runs")
	return cmd
}

func newConfigCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(s.cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if _, err := w.Write(data); err != nil {
				return err
			}
			for _, key := range config.EnvKeys() {
				if env, ok := config.EnvOverrideFor(key); ok {
					fmt.Fprintf(w, "# %s set by %s\n", key, env)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "yes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := s.opts.configPath
			if path == "" {
				p, err := config.ConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !s.opts.force {
				return fmt.Errorf("%s: %w", path, export.ErrExists)
			}
			if err := config.Save(path, config.Defaults()); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
			return err
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "karaokay", version.String())
			return err
		},
	}
}
