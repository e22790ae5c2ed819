package preset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/palette"
	"github.com/guidoenr/ripplefield/internal/pipeline"
)

func TestDecodePartialOverridesKeepDefaults(t *testing.T) {
	s, err := Decode(strings.NewReader(`{
		"name": "club",
		"palette": {"baseHue": 20, "dark": {"lightness": 0.1, "chroma": 0.05, "hue": 350}},
		"onset": {"thresholds": [0.2, 0.1, 0.1]},
		"visual": {"brightnessFloor": 0.4}
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	def := Defaults()
	if s.Name != "club" || s.Palette.BaseHue != 20 {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.Palette.Dark.Hue == nil || *s.Palette.Dark.Hue != 350 {
		t.Fatalf("explicit hue not decoded")
	}
	if s.Palette.Bright != def.Palette.Bright || s.Palette.Lightness != def.Palette.Lightness {
		t.Fatalf("untouched palette fields should keep defaults")
	}
	if s.Onset.Thresholds[analyzer.Bass] != 0.2 || s.Onset.StereoEmphasis != def.Onset.StereoEmphasis {
		t.Fatalf("unexpected onset settings %+v", s.Onset)
	}
	if s.Visual.BrightnessFloor != 0.4 || s.Visual.DecayRate != def.Visual.DecayRate {
		t.Fatalf("unexpected visual settings %+v", s.Visual)
	}
	if !s.Modulation.Enabled {
		t.Fatalf("modulation should default to enabled")
	}
}

func TestDecodeRejectsOutOfRange(t *testing.T) {
	cases := map[string]string{
		"threshold": `{"onset": {"thresholds": [1.5, 0.1, 0.1]}}`,
		"emphasis":  `{"onset": {"stereoEmphasis": 0.2}}`,
		"curve":     `{"palette": {"hueCurve": {"x1": 1.4, "y1": 0, "x2": 1, "y2": 1}}}`,
		"floor":     `{"visual": {"brightnessFloor": -0.1}}`,
	}
	for name, doc := range cases {
		if _, err := Decode(strings.NewReader(doc)); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("%s: expected ErrOutOfRange, got %v", name, err)
		}
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"pallete": {}}`)); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.json")
	s := Defaults()
	s.Name = "saved"
	s.Palette.BaseHue = 140
	if err := SaveJSON(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "saved" || !got.Palette.Equal(s.Palette) {
		t.Fatalf("round trip lost data: %+v", got)
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestApplyFillsPipelineConfig(t *testing.T) {
	s := Defaults()
	s.Onset.Thresholds[analyzer.Treble] = 0.3
	s.Palette = palette.DefaultConfig()
	s.Palette.BaseHue = 10
	s.Visual.BlendWidth = 0.1

	cfg := pipeline.DefaultConfig()
	s.Apply(&cfg)
	if cfg.Analyzer.Thresholds[analyzer.Treble] != 0.3 || cfg.Palette.BaseHue != 10 || cfg.Params.BlendWidth != 0.1 {
		t.Fatalf("settings not applied: %+v", cfg)
	}
}
