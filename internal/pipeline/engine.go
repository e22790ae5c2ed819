// Package pipeline runs the per-frame audio to visual update: feature
// extraction, time debt, ripple aging and spawning, and palette modulation.
package pipeline

import (
	"sync"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/compose"
	"github.com/guidoenr/ripplefield/internal/palette"
	"github.com/guidoenr/ripplefield/internal/params"
	"github.com/guidoenr/ripplefield/internal/ripple"
	"github.com/guidoenr/ripplefield/internal/smoothing"
	"github.com/sirupsen/logrus"
)

// Config wires the per-frame components together.
type Config struct {
	Analyzer  analyzer.Config
	Ripples   ripple.Params
	Palette   palette.Config
	Modulator palette.ModulatorConfig
	Params    params.Parameters

	// TierRipples overrides the ripple shape per tier; nil fields use Ripples.
	TierRipples [analyzer.NumTiers]ripple.Override
	// TierRows is the vertical field position of each tier's ripples.
	TierRows [analyzer.NumTiers]float64

	Log logrus.FieldLogger
}

// DefaultConfig returns the stock pipeline: bass ripples low and wide, treble
// ripples high and quick.
func DefaultConfig() Config {
	return Config{
		Analyzer:  analyzer.DefaultConfig(),
		Ripples:   ripple.DefaultParams(),
		Palette:   palette.DefaultConfig(),
		Modulator: palette.DefaultModulatorConfig(),
		Params:    params.Defaults(),
		TierRipples: [analyzer.NumTiers]ripple.Override{
			analyzer.Bass:   {Width: ripple.Value(0.08), Multiplier: ripple.Value(0.8)},
			analyzer.Treble: {Speed: ripple.Value(0.9), Width: ripple.Value(0.03), MaxRadius: ripple.Value(0.5)},
		},
		TierRows: [analyzer.NumTiers]float64{
			analyzer.Bass:   5.0 / 6.0,
			analyzer.Mid:    0.5,
			analyzer.Treble: 1.0 / 6.0,
		},
	}
}

// Engine owns all cross-frame state. Step is the single writer; the accessor
// methods may be called from other goroutines.
type Engine struct {
	mu sync.RWMutex

	cfg       Config
	log       logrus.FieldLogger
	extractor *analyzer.Extractor
	pool      *ripple.Pool
	modulator *palette.Modulator
	params    params.Parameters
	state     *compose.State

	lastTime float64
	primed   bool
	frames   uint64
	spawned  uint64
}

// New creates an Engine, filling unset sections from DefaultConfig.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.Palette.Dark == (palette.Anchor{}) && cfg.Palette.Bright == (palette.Anchor{}) {
		cfg.Palette = def.Palette
	}
	if cfg.Params == (params.Parameters{}) {
		cfg.Params = def.Params
	}
	if cfg.TierRows == ([analyzer.NumTiers]float64{}) {
		cfg.TierRows = def.TierRows
	}
	cfg.Params.Normalize()
	if cfg.Analyzer.Log == nil {
		cfg.Analyzer.Log = cfg.Log
	}
	if cfg.Modulator.Log == nil {
		cfg.Modulator.Log = cfg.Log
	}

	e := &Engine{
		cfg:       cfg,
		log:       cfg.Log,
		extractor: analyzer.New(cfg.Analyzer),
		pool:      ripple.NewPool(ripple.Config{Defaults: cfg.Ripples, Log: cfg.Log}),
		modulator: palette.NewModulator(cfg.Palette, cfg.Modulator),
		params:    cfg.Params,
	}
	e.state = &compose.State{Palette: e.modulator.Palette(), Params: e.params}
	return e
}

// Step processes one raw frame at time now (seconds) and returns the state
// the compositor reads for this frame. The returned state is never mutated.
func (e *Engine) Step(raw analyzer.RawFrame, now float64) *compose.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	delta := smoothing.DefaultFrameInterval
	if e.primed {
		delta = now - e.lastTime
	}

	frame := e.extractor.Process(raw, now)
	e.params.ApplyFeatures(frame, delta)

	e.pool.Tick(now)
	for _, tier := range frame.Onsets() {
		e.spawn(tier, frame, now)
	}

	pal := e.modulator.Update(frame)

	e.state = &compose.State{
		Time:     now,
		Features: frame,
		Ripples:  e.pool.Snapshot(),
		Palette:  pal,
		Params:   e.params,
	}
	if delta > 0 || !e.primed {
		e.lastTime = now
		e.primed = true
	}
	e.frames++
	return e.state
}

func (e *Engine) spawn(tier analyzer.Tier, frame analyzer.Frame, now float64) {
	center := ripple.Point{X: frame.TierBalance(tier), Y: e.cfg.TierRows[tier]}
	intensity := frame.Beats[tier].Intensity
	slot := e.pool.Spawn(center, intensity, e.cfg.TierRipples[tier], now)
	if slot < 0 {
		return
	}
	e.spawned++
	e.log.WithFields(logrus.Fields{
		"tier":      tier.String(),
		"slot":      slot,
		"intensity": intensity,
		"x":         center.X,
	}).Debug("ripple spawned")
}

// State returns the most recent compositor state.
func (e *Engine) State() *compose.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Features returns the most recent feature frame.
func (e *Engine) Features() analyzer.Frame {
	return e.State().Features
}

// Palette returns the palette in use.
func (e *Engine) Palette() palette.Palette {
	return e.State().Palette
}

// PaletteConfig returns the unmodulated palette config.
func (e *Engine) PaletteConfig() palette.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modulator.Base()
}

// SetPaletteConfig replaces the base palette and resets modulation.
func (e *Engine) SetPaletteConfig(cfg palette.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modulator.SetBase(cfg)
	e.refreshPalette()
}

// SetModulation enables or disables the hue modulation.
func (e *Engine) SetModulation(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modulator.SetEnabled(enabled)
	e.refreshPalette()
}

// ModulationEnabled reports whether hue modulation is active.
func (e *Engine) ModulationEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modulator.Enabled()
}

// Reset clears every piece of cross-frame state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extractor.Reset()
	e.pool.Clear()
	e.modulator.SetBase(e.modulator.Base())
	e.params = e.cfg.Params
	e.primed = false
	e.lastTime = 0
	e.state = &compose.State{Palette: e.modulator.Palette(), Params: e.params}
}

// refreshPalette publishes a new state carrying the current palette. Callers
// hold the write lock.
func (e *Engine) refreshPalette() {
	next := *e.state
	next.Palette = e.modulator.Palette()
	e.state = &next
}

// Status is a point-in-time summary for outer layers.
type Status struct {
	Time          float64        `json:"time"`
	Frames        uint64         `json:"frames"`
	Features      analyzer.Frame `json:"features"`
	BPM           float64        `json:"bpm"`
	ActiveRipples int            `json:"activeRipples"`
	Spawned       uint64         `json:"spawned"`
	Recycled      int            `json:"recycled"`
	HueShift      float64        `json:"hueShift"`
	Modulation    bool           `json:"modulation"`
	TimeDebt      float64        `json:"timeDebt"`
	Palette       []string       `json:"palette"`
}

// Status returns a snapshot of the engine for monitoring.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{
		Time:          e.state.Time,
		Frames:        e.frames,
		Features:      e.state.Features,
		BPM:           e.state.Features.BPM,
		ActiveRipples: e.state.Ripples.Active(),
		Spawned:       e.spawned,
		Recycled:      e.pool.Recycled(),
		HueShift:      e.modulator.Shift(),
		Modulation:    e.modulator.Enabled(),
		TimeDebt:      e.state.Params.TimeDebt,
		Palette:       e.state.Palette.Hex(),
	}
}
