/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	applog "diagramcore/internal/log"
	"diagramcore/internal/scene"
	"diagramcore/internal/vector"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type EditorConfig struct {
	MinScale         float64      `yaml:"min_scale"`
	MaxScale         float64      `yaml:"max_scale"`
	AnchorRadius     float64      `yaml:"anchor_radius"`
	DefaultAnchors   [][2]float64 `yaml:"default_anchors"`
	DisableAnchor    bool         `yaml:"disable_anchor"`
	DisableRotate    bool         `yaml:"disable_rotate"`
	DisableSize      bool         `yaml:"disable_size"`
	DisableDock      bool         `yaml:"disable_dock"`
	DragAllIn        bool         `yaml:"drag_all_in"`
	ResizeMode       bool         `yaml:"resize_mode"`
	MouseRightActive bool         `yaml:"mouse_right_active"`
	MoveSnap         bool         `yaml:"move_snap"`
	DockThreshold    float64      `yaml:"dock_threshold"`
	RuleHeight       float64      `yaml:"rule_height"`
	LineWidth        float64      `yaml:"line_width"`
	FontSize         float64      `yaml:"font_size"`
	Colors           ColorConfig  `yaml:"colors"`
}

type ColorConfig struct {
	Color            string `yaml:"color"`
	Background       string `yaml:"background"`
	Active           string `yaml:"active"`
	Hover            string `yaml:"hover"`
	Anchor           string `yaml:"anchor"`
	AnchorBackground string `yaml:"anchor_background"`
	Drag             string `yaml:"drag"`
	Dock             string `yaml:"dock"`
}

type CanvasConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	DPIRatio float64 `yaml:"dpi_ratio"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type HistoryConfig struct {
	MaxBytes      int    `yaml:"max_bytes"`
	MaxEntries    int    `yaml:"max_entries"`
	MinIntervalMs int    `yaml:"min_interval_ms"`
	JournalPath   string `yaml:"journal_path"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Logging       LoggingConfig `yaml:"logging"`
	History       HistoryConfig `yaml:"history"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	opts := scene.DefaultOptions()
	anchors := make([][2]float64, len(opts.DefaultAnchors))
	for i, p := range opts.DefaultAnchors {
		anchors[i] = [2]float64{p.X, p.Y}
	}
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			MinScale:       opts.MinScale,
			MaxScale:       opts.MaxScale,
			AnchorRadius:   opts.AnchorRadius,
			DefaultAnchors: anchors,
			DockThreshold:  opts.DockThreshold,
			RuleHeight:     opts.RuleHeight,
			LineWidth:      opts.LineWidth,
			FontSize:       opts.FontSize,
			Colors: ColorConfig{
				Color:            opts.Color,
				Background:       opts.Background,
				Active:           opts.ActiveColor,
				Hover:            opts.HoverColor,
				Anchor:           opts.AnchorColor,
				AnchorBackground: opts.AnchorBackground,
				Drag:             opts.DragColor,
				Dock:             opts.DockColor,
			},
		},
		Canvas:  CanvasConfig{Width: 1024, Height: 768, DPIRatio: 1},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		History: HistoryConfig{MaxBytes: 16 << 20, MaxEntries: 200, MinIntervalMs: 250},
	}
}

// EnvPrefix is prepended to every override variable, e.g. DCR_LOG_LEVEL.
const EnvPrefix = "DCR"

// envOverrides only carries variables that are set; nil means untouched.
type envOverrides struct {
	LogLevel     *string  `envconfig:"LOG_LEVEL"`
	LogFormat    *string  `envconfig:"LOG_FORMAT"`
	LogSource    *bool    `envconfig:"LOG_SOURCE"`
	LogFile      *string  `envconfig:"LOG_FILE"`
	MinScale     *float64 `envconfig:"MIN_SCALE"`
	MaxScale     *float64 `envconfig:"MAX_SCALE"`
	DisableDock  *bool    `envconfig:"DISABLE_DOCK"`
	ResizeMode   *bool    `envconfig:"RESIZE_MODE"`
	CanvasWidth  *int     `envconfig:"CANVAS_WIDTH"`
	CanvasHeight *int     `envconfig:"CANVAS_HEIGHT"`
	DPIRatio     *float64 `envconfig:"DPI_RATIO"`
	Journal      *string  `envconfig:"JOURNAL"`
}

// envKeys maps config keys to their override variable.
var envKeys = map[string]string{
	"logging.level":        "LOG_LEVEL",
	"logging.format":       "LOG_FORMAT",
	"logging.source":       "LOG_SOURCE",
	"logging.file":         "LOG_FILE",
	"editor.min_scale":     "MIN_SCALE",
	"editor.max_scale":     "MAX_SCALE",
	"editor.disable_dock":  "DISABLE_DOCK",
	"editor.resize_mode":   "RESIZE_MODE",
	"canvas.width":         "CANVAS_WIDTH",
	"canvas.height":        "CANVAS_HEIGHT",
	"canvas.dpi_ratio":     "DPI_RATIO",
	"history.journal_path": "JOURNAL",
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "DiagramCore")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "DiagramCore")
	default:
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "diagramcore")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "diagramcore")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and applies
// environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		return cfg, errors.Join(err, applyEnvOverrides(&cfg))
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse %s: %w", path, err)
		}
		normalize(&cfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config YAML to the per-user path.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// normalize repairs values a hand-edited file may leave unusable.
func normalize(cfg *AppConfig) {
	def := Defaults()
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	if cfg.Editor.MinScale <= 0 {
		cfg.Editor.MinScale = def.Editor.MinScale
	}
	if cfg.Editor.MaxScale < cfg.Editor.MinScale {
		cfg.Editor.MaxScale = def.Editor.MaxScale
	}
	if len(cfg.Editor.DefaultAnchors) == 0 {
		cfg.Editor.DefaultAnchors = def.Editor.DefaultAnchors
	}
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		cfg.Canvas.Width, cfg.Canvas.Height = def.Canvas.Width, def.Canvas.Height
	}
}

func applyEnvOverrides(cfg *AppConfig) error {
	var ov envOverrides
	if err := envconfig.Process(EnvPrefix, &ov); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	setString(&cfg.Logging.Level, ov.LogLevel, strings.ToLower)
	setString(&cfg.Logging.Format, ov.LogFormat, strings.ToLower)
	setString(&cfg.Logging.File, ov.LogFile, strings.TrimSpace)
	setString(&cfg.History.JournalPath, ov.Journal, strings.TrimSpace)
	if ov.LogSource != nil {
		cfg.Logging.Source = *ov.LogSource
	}
	if ov.MinScale != nil {
		cfg.Editor.MinScale = *ov.MinScale
	}
	if ov.MaxScale != nil {
		cfg.Editor.MaxScale = *ov.MaxScale
	}
	if ov.DisableDock != nil {
		cfg.Editor.DisableDock = *ov.DisableDock
	}
	if ov.ResizeMode != nil {
		cfg.Editor.ResizeMode = *ov.ResizeMode
	}
	if ov.CanvasWidth != nil {
		cfg.Canvas.Width = *ov.CanvasWidth
	}
	if ov.CanvasHeight != nil {
		cfg.Canvas.Height = *ov.CanvasHeight
	}
	if ov.DPIRatio != nil {
		cfg.Canvas.DPIRatio = *ov.DPIRatio
	}
	return nil
}

func setString(dst *string, v *string, clean func(string) string) {
	if v == nil {
		return
	}
	if s := clean(strings.TrimSpace(*v)); s != "" {
		*dst = s
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	suffix, ok := envKeys[key]
	if !ok {
		return "", false
	}
	name := EnvPrefix + "_" + suffix
	if os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// EditorOptions converts the editor section into scene options.
func (c AppConfig) EditorOptions() scene.Options {
	e := c.Editor
	opts := scene.DefaultOptions()
	opts.MinScale, opts.MaxScale = e.MinScale, e.MaxScale
	if e.AnchorRadius > 0 {
		opts.AnchorRadius = e.AnchorRadius
	}
	if len(e.DefaultAnchors) > 0 {
		opts.DefaultAnchors = make([]vector.Pt, len(e.DefaultAnchors))
		for i, a := range e.DefaultAnchors {
			opts.DefaultAnchors[i] = vector.Pt{X: a[0], Y: a[1]}
		}
	}
	opts.DisableAnchor = e.DisableAnchor
	opts.DisableRotate = e.DisableRotate
	opts.DisableSize = e.DisableSize
	opts.DisableDock = e.DisableDock
	opts.DragAllIn = e.DragAllIn
	opts.ResizeMode = e.ResizeMode
	opts.MouseRightActive = e.MouseRightActive
	opts.MoveSnap = e.MoveSnap
	if e.DockThreshold > 0 {
		opts.DockThreshold = e.DockThreshold
	}
	if e.RuleHeight > 0 {
		opts.RuleHeight = e.RuleHeight
	}
	if e.LineWidth > 0 {
		opts.LineWidth = e.LineWidth
	}
	if e.FontSize > 0 {
		opts.FontSize = e.FontSize
	}
	col := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	col(&opts.Color, e.Colors.Color)
	col(&opts.Background, e.Colors.Background)
	col(&opts.ActiveColor, e.Colors.Active)
	col(&opts.HoverColor, e.Colors.Hover)
	col(&opts.AnchorColor, e.Colors.Anchor)
	col(&opts.AnchorBackground, e.Colors.AnchorBackground)
	col(&opts.DragColor, e.Colors.Drag)
	col(&opts.DockColor, e.Colors.Dock)
	return opts
}

// MinInterval is the history coalescing window.
func (h HistoryConfig) MinInterval() time.Duration {
	return time.Duration(h.MinIntervalMs) * time.Millisecond
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
