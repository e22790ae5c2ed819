package analyzer

import (
	"math"
	"time"

	"github.com/guidoenr/ripplefield/internal/smoothing"
	"github.com/sirupsen/logrus"
)

// Config controls Extractor behavior.
type Config struct {
	// Thresholds are the per-tier onset thresholds in [0,1].
	Thresholds [NumTiers]float64
	// Hysteresis is the margin a smoothed value must fall by before a tier can
	// fire again.
	Hysteresis float64
	// MinOnsetInterval is the refractory period between beats of one tier, in seconds.
	MinOnsetInterval float64
	// StereoEmphasis scales per-band stereo balance, in [0.5,1].
	StereoEmphasis float64
	// NoiseFloor gates weak input before smoothing.
	NoiseFloor float64

	Tier   smoothing.Config
	Volume smoothing.Config
	Band   smoothing.Config

	// PeakDecay is the peak tracker time constant in seconds.
	PeakDecay float64

	TempoHistory   int
	TempoTolerance float64
	MinBPM         float64
	MaxBPM         float64

	Log logrus.FieldLogger
}

// DefaultConfig returns thresholds and smoothing tuned for dance music at
// interactive frame rates.
func DefaultConfig() Config {
	return Config{
		Thresholds:       [NumTiers]float64{Bass: 0.08, Mid: 0.06, Treble: 0.05},
		Hysteresis:       0.03,
		MinOnsetInterval: 0.08,
		StereoEmphasis:   0.8,
		Tier: smoothing.Config{
			AttackNote:      1.0 / 128,
			ReleaseNote:     1.0 / 8,
			AttackFallback:  5 * time.Millisecond,
			ReleaseFallback: 120 * time.Millisecond,
		},
		Volume: smoothing.Config{
			AttackNote:      1.0 / 64,
			ReleaseNote:     1.0 / 4,
			AttackFallback:  10 * time.Millisecond,
			ReleaseFallback: 250 * time.Millisecond,
		},
		Band: smoothing.Config{
			AttackNote:      1.0 / 64,
			ReleaseNote:     1.0 / 16,
			AttackFallback:  10 * time.Millisecond,
			ReleaseFallback: 60 * time.Millisecond,
		},
		PeakDecay:      0.5,
		TempoHistory:   8,
		TempoTolerance: 0.2,
		MinBPM:         40,
		MaxBPM:         240,
	}
}

// Extractor converts RawFrames into smoothed feature Frames with onsets and a
// tempo estimate. It is not safe for concurrent use; one goroutine drives it
// once per analysis tick.
type Extractor struct {
	cfg Config
	log logrus.FieldLogger

	volume *smoothing.Smoother
	tiers  [NumTiers]*smoothing.Smoother
	bands  [NumBands]*smoothing.Smoother

	peaks  [NumTiers]float64
	onsets [NumTiers]onsetDetector
	tempo  *tempoEstimator

	lastTime float64
	primed   bool
}

// New creates an Extractor, filling unset fields from DefaultConfig.
func New(cfg Config) *Extractor {
	def := DefaultConfig()
	for t := Bass; t < NumTiers; t++ {
		if cfg.Thresholds[t] <= 0 {
			cfg.Thresholds[t] = def.Thresholds[t]
		}
		cfg.Thresholds[t] = clampFloat(cfg.Thresholds[t], 0, 1)
	}
	if cfg.Hysteresis <= 0 {
		cfg.Hysteresis = def.Hysteresis
	}
	if cfg.MinOnsetInterval < 0 {
		cfg.MinOnsetInterval = 0
	}
	if cfg.StereoEmphasis == 0 {
		cfg.StereoEmphasis = def.StereoEmphasis
	}
	cfg.StereoEmphasis = clampFloat(cfg.StereoEmphasis, 0.5, 1.0)
	if cfg.Tier == (smoothing.Config{}) {
		cfg.Tier = def.Tier
	}
	if cfg.Volume == (smoothing.Config{}) {
		cfg.Volume = def.Volume
	}
	if cfg.Band == (smoothing.Config{}) {
		cfg.Band = def.Band
	}
	if cfg.PeakDecay <= 0 {
		cfg.PeakDecay = def.PeakDecay
	}
	if cfg.TempoHistory <= 0 {
		cfg.TempoHistory = def.TempoHistory
	}
	if cfg.TempoTolerance <= 0 {
		cfg.TempoTolerance = def.TempoTolerance
	}
	if cfg.MinBPM <= 0 {
		cfg.MinBPM = def.MinBPM
	}
	if cfg.MaxBPM <= cfg.MinBPM {
		cfg.MaxBPM = math.Max(def.MaxBPM, cfg.MinBPM*2)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	e := &Extractor{
		cfg:   cfg,
		log:   cfg.Log,
		tempo: newTempoEstimator(cfg.TempoHistory, cfg.TempoTolerance, cfg.MinBPM, cfg.MaxBPM),
	}
	e.volume = smoothing.New(named(cfg.Volume, "volume", cfg.Log))
	for t := Bass; t < NumTiers; t++ {
		e.tiers[t] = smoothing.New(named(cfg.Tier, t.String(), cfg.Log))
		e.onsets[t] = newOnsetDetector(cfg.Thresholds[t], cfg.Hysteresis, cfg.MinOnsetInterval)
	}
	for i := range e.bands {
		e.bands[i] = smoothing.New(named(cfg.Band, "band", cfg.Log))
	}
	return e
}

func named(cfg smoothing.Config, name string, log logrus.FieldLogger) smoothing.Config {
	cfg.Name = name
	if cfg.Log == nil {
		cfg.Log = log
	}
	return cfg
}

// Config returns the effective configuration.
func (e *Extractor) Config() Config { return e.cfg }

// BPM returns the current tempo estimate, 0 when unknown.
func (e *Extractor) BPM() float64 { return e.tempo.bpm }

// Process extracts features from raw at time now (seconds).
func (e *Extractor) Process(raw RawFrame, now float64) Frame {
	raw = GateFeatures(sanitize(raw), e.cfg.NoiseFloor)

	dt := smoothing.DefaultFrameInterval
	if e.primed {
		dt = now - e.lastTime
	}

	bpm := e.tempo.bpm
	frame := Frame{
		Time:   now,
		Volume: raw.RMS,
	}

	for t := Bass; t < NumTiers; t++ {
		lo, hi := TierBands(t)
		frame.Tiers[t] = average(raw.Bands[lo:hi])
	}
	for i := 0; i < NumBands; i++ {
		frame.Bands[i] = e.bands[i].Update(raw.Bands[i], now, bpm)
		frame.Balance[i] = e.balance(raw.Left[i], raw.Right[i])
	}
	frame.SmoothedVolume = e.volume.Update(raw.RMS, now, bpm)

	for t := Bass; t < NumTiers; t++ {
		v := e.tiers[t].Update(frame.Tiers[t], now, bpm)
		frame.Smoothed[t] = v
		e.peaks[t] = smoothing.DecayPeak(e.peaks[t], v, dt, e.cfg.PeakDecay)
		frame.Peak[t] = e.peaks[t]

		if dt > 0 && e.onsets[t].step(v, now) {
			frame.Beats[t].Onset = true
			if t == Bass {
				e.tempo.observe(now)
			}
			e.log.WithFields(logrus.Fields{
				"tier":      t.String(),
				"intensity": v,
			}).Debug("onset")
		}
		frame.Beats[t].Intensity = e.onsets[t].intensity
		frame.Beats[t].Age = e.onsets[t].age(now)
	}
	frame.BPM = e.tempo.bpm

	if dt > 0 || !e.primed {
		e.lastTime = now
		e.primed = true
	}
	return frame
}

// Reset clears all smoothing, onset and tempo state.
func (e *Extractor) Reset() {
	e.volume.Reset(0)
	for t := Bass; t < NumTiers; t++ {
		e.tiers[t].Reset(0)
		e.onsets[t].reset()
		e.peaks[t] = 0
	}
	for i := range e.bands {
		e.bands[i].Reset(0)
	}
	e.tempo.reset()
	e.primed = false
	e.lastTime = 0
}

func (e *Extractor) balance(left, right float64) float64 {
	const epsilon = 1e-6
	b := (right - left) / (right + left + epsilon)
	return clampFloat(b*e.cfg.StereoEmphasis, -1, 1)
}
