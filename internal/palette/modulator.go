package palette

import (
	"math"
	"time"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/smoothing"
	"github.com/sirupsen/logrus"
)

// ModulatorConfig controls the bass/treble driven hue shift.
type ModulatorConfig struct {
	// MaxShift is the hue rotation in degrees reached at full treble (positive)
	// or full bass (negative) balance.
	MaxShift float64
	// MinAudioThreshold is the bass+treble energy below which the target shift is 0.
	MinAudioThreshold float64
	// RegenThreshold is the shift change in degrees that triggers regeneration.
	RegenThreshold float64
	// Steps is the palette length.
	Steps int

	Smoothing smoothing.Config
	Log       logrus.FieldLogger
}

// DefaultModulatorConfig returns a gentle modulation that follows the bar.
func DefaultModulatorConfig() ModulatorConfig {
	return ModulatorConfig{
		MaxShift:          30,
		MinAudioThreshold: 0.05,
		RegenThreshold:    0.5,
		Steps:             DefaultSteps,
		Smoothing: smoothing.Config{
			Name:            "hue-shift",
			AttackNote:      1.0 / 4,
			ReleaseNote:     1.0 / 2,
			AttackFallback:  250 * time.Millisecond,
			ReleaseFallback: 500 * time.Millisecond,
		},
	}
}

// Modulator layers a smoothed hue shift on top of a base palette config.
// It is driven by a single goroutine once per frame.
type Modulator struct {
	cfg     ModulatorConfig
	log     logrus.FieldLogger
	base    Config
	gen     *Generator
	shift   *smoothing.Smoother
	applied float64
	enabled bool
	palette Palette
}

// NewModulator creates an enabled Modulator for base.
func NewModulator(base Config, cfg ModulatorConfig) *Modulator {
	def := DefaultModulatorConfig()
	if cfg.MaxShift == 0 {
		cfg.MaxShift = def.MaxShift
	}
	if cfg.MinAudioThreshold <= 0 {
		cfg.MinAudioThreshold = def.MinAudioThreshold
	}
	if cfg.RegenThreshold < 0 {
		cfg.RegenThreshold = 0
	}
	if cfg.Steps <= 0 {
		cfg.Steps = def.Steps
	}
	if cfg.Smoothing.AttackNote == 0 && cfg.Smoothing.ReleaseNote == 0 &&
		cfg.Smoothing.AttackFallback == 0 && cfg.Smoothing.ReleaseFallback == 0 {
		cfg.Smoothing = def.Smoothing
	}
	if cfg.Smoothing.Name == "" {
		cfg.Smoothing.Name = def.Smoothing.Name
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Smoothing.Log == nil {
		cfg.Smoothing.Log = cfg.Log
	}

	m := &Modulator{
		cfg:     cfg,
		log:     cfg.Log,
		base:    base,
		gen:     NewGenerator(cfg.Steps),
		shift:   smoothing.New(cfg.Smoothing),
		enabled: true,
	}
	m.palette = m.gen.Palette(base)
	return m
}

// Config returns the effective modulator configuration.
func (m *Modulator) Config() ModulatorConfig { return m.cfg }

// TargetShift returns the unsmoothed hue shift for a feature frame.
func (m *Modulator) TargetShift(frame analyzer.Frame) float64 {
	bass := frame.Smoothed[analyzer.Bass]
	treble := frame.Smoothed[analyzer.Treble]
	sum := bass + treble
	if sum < m.cfg.MinAudioThreshold || sum <= 0 {
		return 0
	}
	return (treble - bass) / sum * m.cfg.MaxShift
}

// Update advances the smoothed shift and returns the current palette. The
// palette is only regenerated once the shift moved by more than
// RegenThreshold since the last regeneration.
func (m *Modulator) Update(frame analyzer.Frame) Palette {
	if !m.enabled {
		return m.palette
	}
	shift := m.shift.Update(m.TargetShift(frame), frame.Time, frame.BPM)
	if math.Abs(shift-m.applied) > m.cfg.RegenThreshold {
		m.applied = shift
		m.palette = m.gen.Palette(m.base.Shifted(shift))
	}
	return m.palette
}

// SetEnabled toggles modulation. Disabling snaps back to the base palette and
// clears the smoothing state.
func (m *Modulator) SetEnabled(enabled bool) {
	if m.enabled == enabled {
		return
	}
	m.enabled = enabled
	m.resetShift()
	m.log.WithField("enabled", enabled).Debug("hue modulation toggled")
}

// Enabled reports whether modulation is active.
func (m *Modulator) Enabled() bool { return m.enabled }

// SetBase replaces the base palette config and resets the shift.
func (m *Modulator) SetBase(cfg Config) {
	m.base = cfg
	m.resetShift()
}

// Base returns the unmodulated palette config.
func (m *Modulator) Base() Config { return m.base }

// Shift returns the hue shift, in degrees, applied to the current palette.
func (m *Modulator) Shift() float64 { return m.applied }

// Palette returns the current palette.
func (m *Modulator) Palette() Palette { return m.palette }

// Generations counts palette rebuilds.
func (m *Modulator) Generations() int { return m.gen.Generations() }

func (m *Modulator) resetShift() {
	m.shift.Reset(0)
	m.applied = 0
	m.palette = m.gen.Palette(m.base)
}
