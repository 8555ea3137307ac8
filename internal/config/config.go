/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package config loads the user configuration: a YAML file in the user
// config directory, overlaid on Defaults, with KOK_* environment variables as
// read-only overrides. A .env file may supply those variables.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"karaokay/internal/layout"
)

// config_version: bump when the structure changes in a backward-incompatible way.

type EngineConfig struct {
	ShowBefore     float64 `yaml:"show_before"`
	CueLength      float64 `yaml:"cue_length"`
	PeekThreshold  float64 `yaml:"peek_threshold"`
	PauseThreshold float64 `yaml:"pause_threshold"`
	PauseGap       float64 `yaml:"pause_gap"`
	FPS            int     `yaml:"fps"`
}

type ViewportConfig struct {
	Width             int     `yaml:"width"`
	Height            int     `yaml:"height"`
	MaxLineRatio      float64 `yaml:"max_line_ratio"`
	ReferenceFontSize float64 `yaml:"reference_font_size"`
}

type FontConfig struct {
	Path   string `yaml:"path"`   // TTF/OTF file; empty uses the built-in face
	Family string `yaml:"family"` // informational, defaults to the file name
}

// RenderConfig holds frame colours as #rrggbb strings.
type RenderConfig struct {
	Background   string `yaml:"background"`
	Text         string `yaml:"text"`
	Peek         string `yaml:"peek"`
	Highlight    string `yaml:"highlight"`
	PlugText     string `yaml:"plug_text"`
	SuppressPlug bool   `yaml:"suppress_plug"`
}

type StorageConfig struct {
	IndexPath string `yaml:"index_path"` // empty uses the per-user data dir
	Disabled  bool   `yaml:"disabled"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Engine        EngineConfig   `yaml:"engine"`
	Viewport      ViewportConfig `yaml:"viewport"`
	Font          FontConfig     `yaml:"font"`
	Render        RenderConfig   `yaml:"render"`
	Storage       StorageConfig  `yaml:"storage"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	l := layout.DefaultConfig()
	return AppConfig{
		ConfigVersion: 1,
		Engine: EngineConfig{
			ShowBefore:     l.ShowBefore,
			CueLength:      l.CueLength,
			PeekThreshold:  l.PeekThreshold,
			PauseThreshold: l.PauseThreshold,
			PauseGap:       l.PauseGap,
			FPS:            l.FPS,
		},
		Viewport: ViewportConfig{
			Width:             int(l.Width),
			Height:            int(l.Height),
			MaxLineRatio:      l.MaxLineRatio,
			ReferenceFontSize: l.ReferenceFontSize,
		},
		Render: RenderConfig{
			Background: "#000032",
			Text:       "#f0f0f0",
			Peek:       "#969696",
			Highlight:  "#5aff5a",
			PlugText:   "kara-okay.github.io",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvShowBefore     = "KOK_SHOW_BEFORE"
	EnvCueLength      = "KOK_CUE_LENGTH"
	EnvPeekThreshold  = "KOK_PEEK_THRESHOLD"
	EnvPauseThreshold = "KOK_PAUSE_THRESHOLD"
	EnvPauseGap       = "KOK_PAUSE_GAP"
	EnvFPS            = "KOK_FPS"
	EnvWidth          = "KOK_WIDTH"
	EnvHeight         = "KOK_HEIGHT"
	EnvFont           = "KOK_FONT"
	EnvIndex          = "KOK_INDEX"
	EnvTelemetryOptIn = "KOK_TELEMETRY_OPT_IN"
	EnvLogLevel       = "KOK_LOG_LEVEL"
	EnvLogFormat      = "KOK_LOG_FORMAT"
	EnvLogSource      = "KOK_LOG_SOURCE"
	EnvLogFile        = "KOK_LOG_FILE"
)

type envBinding struct {
	key   string
	env   string
	apply func(c *AppConfig, v string) error
}

func floatField(dst func(*AppConfig) *float64) func(*AppConfig, string) error {
	return func(c *AppConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func intField(dst func(*AppConfig) *int) func(*AppConfig, string) error {
	return func(c *AppConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolField(dst func(*AppConfig) *bool) func(*AppConfig, string) error {
	return func(c *AppConfig, v string) error {
		*dst(c) = parseBool(v)
		return nil
	}
}

func stringField(dst func(*AppConfig) *string, lower bool) func(*AppConfig, string) error {
	return func(c *AppConfig, v string) error {
		if lower {
			v = strings.ToLower(v)
		}
		*dst(c) = v
		return nil
	}
}

var envBindings = []envBinding{
	{"engine.show_before", EnvShowBefore, floatField(func(c *AppConfig) *float64 { return &c.Engine.ShowBefore })},
	{"engine.cue_length", EnvCueLength, floatField(func(c *AppConfig) *float64 { return &c.Engine.CueLength })},
	{"engine.peek_threshold", EnvPeekThreshold, floatField(func(c *AppConfig) *float64 { return &c.Engine.PeekThreshold })},
	{"engine.pause_threshold", EnvPauseThreshold, floatField(func(c *AppConfig) *float64 { return &c.Engine.PauseThreshold })},
	{"engine.pause_gap", EnvPauseGap, floatField(func(c *AppConfig) *float64 { return &c.Engine.PauseGap })},
	{"engine.fps", EnvFPS, intField(func(c *AppConfig) *int { return &c.Engine.FPS })},
	{"viewport.width", EnvWidth, intField(func(c *AppConfig) *int { return &c.Viewport.Width })},
	{"viewport.height", EnvHeight, intField(func(c *AppConfig) *int { return &c.Viewport.Height })},
	{"font.path", EnvFont, stringField(func(c *AppConfig) *string { return &c.Font.Path }, false)},
	{"storage.index_path", EnvIndex, stringField(func(c *AppConfig) *string { return &c.Storage.IndexPath }, false)},
	{"general.telemetry_opt_in", EnvTelemetryOptIn, boolField(func(c *AppConfig) *bool { return &c.General.TelemetryOptIn })},
	{"logging.level", EnvLogLevel, stringField(func(c *AppConfig) *string { return &c.Logging.Level }, true)},
	{"logging.format", EnvLogFormat, stringField(func(c *AppConfig) *string { return &c.Logging.Format }, true)},
	{"logging.source", EnvLogSource, boolField(func(c *AppConfig) *bool { return &c.Logging.Source })},
	{"logging.file", EnvLogFile, stringField(func(c *AppConfig) *string { return &c.Logging.File }, false)},
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// ConfigDir returns the per-user application directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "KaraOkay")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "KaraOkay")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "karaokay")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "karaokay")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultIndexPath is where the run history lives unless configured.
func DefaultIndexPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.sqlite"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped and existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the config file at path, or the per-user file when path is
// empty, and applies environment overrides. A missing per-user file is not
// an error; a missing explicit path is.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Defaults(), fmt.Errorf("read config: %w", err)
	}
	normalize(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Save writes cfg as YAML to path, or the per-user file when path is empty.
func Save(path string, cfg AppConfig) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func normalize(c *AppConfig) {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	c.Font.Path = strings.TrimSpace(c.Font.Path)
	c.Storage.IndexPath = strings.TrimSpace(c.Storage.IndexPath)
}

func applyEnvOverrides(cfg *AppConfig) error {
	var errs []error
	for _, b := range envBindings {
		v := strings.TrimSpace(os.Getenv(b.env))
		if v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", b.env, v, err))
		}
	}
	return errors.Join(errs...)
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, b := range envBindings {
		if b.key == key && os.Getenv(b.env) != "" {
			return b.env, true
		}
	}
	return "", false
}

// EnvKeys lists the config keys that can be set from the environment.
func EnvKeys() []string {
	keys := make([]string, len(envBindings))
	for i, b := range envBindings {
		keys[i] = b.key
	}
	return keys
}

// Validate rejects values the engine cannot work with.
func (c AppConfig) Validate() error {
	var errs []error
	e := c.Engine
	for name, v := range map[string]float64{
		"engine.show_before":     e.ShowBefore,
		"engine.cue_length":      e.CueLength,
		"engine.peek_threshold":  e.PeekThreshold,
		"engine.pause_threshold": e.PauseThreshold,
		"engine.pause_gap":       e.PauseGap,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if e.FPS <= 0 {
		errs = append(errs, errors.New("engine.fps must be positive"))
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		errs = append(errs, errors.New("viewport size must be positive"))
	}
	if r := c.Viewport.MaxLineRatio; r <= 0 || r > 1 {
		errs = append(errs, errors.New("viewport.max_line_ratio must be in (0, 1]"))
	}
	if c.Viewport.ReferenceFontSize <= 0 {
		errs = append(errs, errors.New("viewport.reference_font_size must be positive"))
	}
	if _, err := c.Render.Palette(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Layout converts the engine and viewport sections into the value the
// layout engine takes.
func (c AppConfig) Layout() layout.Config {
	return layout.Config{
		ShowBefore:        c.Engine.ShowBefore,
		CueLength:         c.Engine.CueLength,
		PeekThreshold:     c.Engine.PeekThreshold,
		PauseThreshold:    c.Engine.PauseThreshold,
		PauseGap:          c.Engine.PauseGap,
		FPS:               c.Engine.FPS,
		Width:             float64(c.Viewport.Width),
		Height:            float64(c.Viewport.Height),
		MaxLineRatio:      c.Viewport.MaxLineRatio,
		ReferenceFontSize: c.Viewport.ReferenceFontSize,
	}
}

// Palette is the parsed set of render colours.
type Palette struct {
	Background color.RGBA
	Text       color.RGBA
	Peek       color.RGBA
	Highlight  color.RGBA
}

// Palette parses the configured colours.
func (r RenderConfig) Palette() (Palette, error) {
	var p Palette
	var errs []error
	for _, f := range []struct {
		name string
		src  string
		dst  *color.RGBA
	}{
		{"render.background", r.Background, &p.Background},
		{"render.text", r.Text, &p.Text},
		{"render.peek", r.Peek, &p.Peek},
		{"render.highlight", r.Highlight, &p.Highlight},
	} {
		c, err := ParseColor(f.src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		*f.dst = c
	}
	return p, errors.Join(errs...)
}

// ParseColor parses #rrggbb.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
