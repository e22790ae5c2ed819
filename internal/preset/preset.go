// Package preset loads JSON files that override the default pipeline tuning.
// Fields missing from a file keep their default values.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/palette"
	"github.com/guidoenr/ripplefield/internal/params"
	"github.com/guidoenr/ripplefield/internal/pipeline"
	"github.com/guidoenr/ripplefield/internal/ripple"
)

// ErrOutOfRange is wrapped by every validation failure.
var ErrOutOfRange = errors.New("value out of range")

// Onset holds the feature extractor settings exposed to presets.
type Onset struct {
	Thresholds       [analyzer.NumTiers]float64 `json:"thresholds"`
	Hysteresis       float64                    `json:"hysteresis"`
	MinOnsetInterval float64                    `json:"minOnsetInterval"`
	StereoEmphasis   float64                    `json:"stereoEmphasis"`
	NoiseFloor       float64                    `json:"noiseFloor"`
}

// Modulation holds the hue modulator settings exposed to presets.
type Modulation struct {
	Enabled           bool    `json:"enabled"`
	MaxShift          float64 `json:"maxShift"`
	MinAudioThreshold float64 `json:"minAudioThreshold"`
	RegenThreshold    float64 `json:"regenThreshold"`
}

// Settings is the full preset document.
type Settings struct {
	Name       string            `json:"name,omitempty"`
	Palette    palette.Config    `json:"palette"`
	Onset      Onset             `json:"onset"`
	Modulation Modulation        `json:"modulation"`
	Ripples    ripple.Params     `json:"ripples"`
	Visual     params.Parameters `json:"visual"`
}

// Defaults returns the settings matching pipeline.DefaultConfig.
func Defaults() Settings {
	cfg := pipeline.DefaultConfig()
	return Settings{
		Palette: cfg.Palette,
		Onset: Onset{
			Thresholds:       cfg.Analyzer.Thresholds,
			Hysteresis:       cfg.Analyzer.Hysteresis,
			MinOnsetInterval: cfg.Analyzer.MinOnsetInterval,
			StereoEmphasis:   cfg.Analyzer.StereoEmphasis,
			NoiseFloor:       cfg.Analyzer.NoiseFloor,
		},
		Modulation: Modulation{
			Enabled:           true,
			MaxShift:          cfg.Modulator.MaxShift,
			MinAudioThreshold: cfg.Modulator.MinAudioThreshold,
			RegenThreshold:    cfg.Modulator.RegenThreshold,
		},
		Ripples: cfg.Ripples,
		Visual:  cfg.Params,
	}
}

// Decode reads a preset from r on top of the defaults and validates it.
func Decode(r io.Reader) (Settings, error) {
	s := Defaults()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode preset: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadJSON reads and validates the preset at path.
func LoadJSON(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("open preset: %w", err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// SaveJSON writes s to path as indented JSON.
func SaveJSON(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}

// Validate checks every documented range.
func (s Settings) Validate() error {
	for t := analyzer.Bass; t < analyzer.NumTiers; t++ {
		if err := inRange("onset.thresholds."+t.String(), s.Onset.Thresholds[t], 0, 1); err != nil {
			return err
		}
	}
	checks := []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"onset.stereoEmphasis", s.Onset.StereoEmphasis, 0.5, 1},
		{"onset.hysteresis", s.Onset.Hysteresis, 0, 1},
		{"onset.noiseFloor", s.Onset.NoiseFloor, 0, 0.99},
		{"onset.minOnsetInterval", s.Onset.MinOnsetInterval, 0, 10},
		{"modulation.maxShift", s.Modulation.MaxShift, -180, 180},
		{"modulation.minAudioThreshold", s.Modulation.MinAudioThreshold, 0, 2},
		{"modulation.regenThreshold", s.Modulation.RegenThreshold, 0, 180},
		{"palette.dark.lightness", s.Palette.Dark.Lightness, 0, 1},
		{"palette.bright.lightness", s.Palette.Bright.Lightness, 0, 1},
		{"palette.dark.chroma", s.Palette.Dark.Chroma, 0, 0.4},
		{"palette.bright.chroma", s.Palette.Bright.Chroma, 0, 0.4},
		{"ripples.speed", s.Ripples.Speed, 0, 10},
		{"ripples.width", s.Ripples.Width, 0, 1},
		{"ripples.minRadius", s.Ripples.MinRadius, 0, 2},
		{"ripples.maxRadius", s.Ripples.MaxRadius, 0, 2},
		{"ripples.multiplier", s.Ripples.Multiplier, 0, 4},
		{"visual.brightnessFloor", s.Visual.BrightnessFloor, 0, 1},
		{"visual.stereoInfluence", s.Visual.StereoInfluence, 0, 1},
		{"visual.ditherStrength", s.Visual.DitherStrength, 0, 1},
		{"visual.bandPull", s.Visual.BandPull, 0, 1},
		{"visual.thresholdFloor", s.Visual.ThresholdFloor, 0, 1},
		{"visual.maxTimeOffset", s.Visual.MaxTimeOffset, 0, 60},
	}
	for _, c := range checks {
		if err := inRange(c.name, c.v, c.min, c.max); err != nil {
			return err
		}
	}
	curves := map[string]palette.Curve{
		"palette.lightnessCurve": s.Palette.Lightness,
		"palette.chromaCurve":    s.Palette.Chroma,
		"palette.hueCurve":       s.Palette.Hue,
	}
	for name, c := range curves {
		if err := inRange(name+".x1", c.X1, 0, 1); err != nil {
			return err
		}
		if err := inRange(name+".x2", c.X2, 0, 1); err != nil {
			return err
		}
	}
	return nil
}

// Apply copies the settings into a pipeline config.
func (s Settings) Apply(cfg *pipeline.Config) {
	cfg.Palette = s.Palette
	cfg.Analyzer.Thresholds = s.Onset.Thresholds
	cfg.Analyzer.Hysteresis = s.Onset.Hysteresis
	cfg.Analyzer.MinOnsetInterval = s.Onset.MinOnsetInterval
	cfg.Analyzer.StereoEmphasis = s.Onset.StereoEmphasis
	cfg.Analyzer.NoiseFloor = s.Onset.NoiseFloor
	cfg.Modulator.MaxShift = s.Modulation.MaxShift
	cfg.Modulator.MinAudioThreshold = s.Modulation.MinAudioThreshold
	cfg.Modulator.RegenThreshold = s.Modulation.RegenThreshold
	cfg.Ripples = s.Ripples
	cfg.Params = s.Visual
}

func inRange(name string, v, min, max float64) error {
	if v != v || v < min || v > max {
		return fmt.Errorf("%s=%g not in [%g,%g]: %w", name, v, min, max, ErrOutOfRange)
	}
	return nil
}
