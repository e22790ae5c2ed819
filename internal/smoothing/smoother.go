package smoothing

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultFrameInterval is the delta assumed by the first update of a Smoother,
// before any previous timestamp exists.
const DefaultFrameInterval = 1.0 / 60.0

// TimeConstant converts a musical note fraction into seconds at the given tempo,
// using a whole note (four beats) as reference. When bpm is unknown (<= 0) the
// fallback duration is used instead.
func TimeConstant(bpm, noteFraction float64, fallback time.Duration) float64 {
	if bpm <= 0 || noteFraction <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return fallback.Seconds()
	}
	return (60.0 / math.Max(bpm, 1)) * noteFraction * 4
}

// Advance moves current toward target with an exponential decay. The attack
// constant applies while target > current, the release constant otherwise
// (including target == current). Degenerate input leaves current unchanged.
func Advance(current, target, deltaTime, attack, release float64) float64 {
	if deltaTime <= 0 || !finite(target) || math.IsNaN(deltaTime) {
		return current
	}
	if !finite(current) {
		return target
	}
	tc := release
	if target > current {
		tc = attack
	}
	if tc <= 0 || math.IsNaN(tc) {
		return target
	}
	return target + (current-target)*math.Exp(-deltaTime/tc)
}

// Config describes the attack/release behaviour of a Smoother.
type Config struct {
	// Name identifies the smoothed quantity in log output.
	Name string
	// AttackNote and ReleaseNote are note fractions (1.0/64 is a sixty-fourth note).
	AttackNote  float64
	ReleaseNote float64
	// Fallbacks are used while the tempo is unknown.
	AttackFallback  time.Duration
	ReleaseFallback time.Duration
	Log             logrus.FieldLogger
}

// Smoother is a tempo-relative asymmetric exponential smoother. It carries its
// own last-update timestamp; no state is shared between instances.
type Smoother struct {
	cfg    Config
	value  float64
	last   float64
	primed bool
	log    logrus.FieldLogger
}

// New creates a Smoother starting at zero.
func New(cfg Config) *Smoother {
	logger := cfg.Log
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Smoother{cfg: cfg, log: logger}
}

// Update advances the smoother to time now (seconds) toward target, deriving
// the time constants from bpm, and returns the new value.
func (s *Smoother) Update(target, now, bpm float64) float64 {
	dt := DefaultFrameInterval
	if s.primed {
		dt = now - s.last
	}
	if dt <= 0 || !finite(target) || !finite(now) {
		s.log.WithFields(logrus.Fields{
			"component": "smoother",
			"name":      s.cfg.Name,
			"dt":        dt,
			"target":    target,
		}).Debug("skipping degenerate smoothing update")
		return s.value
	}

	attack, release := s.TimeConstants(bpm)
	s.value = Advance(s.value, target, dt, attack, release)
	s.last = now
	s.primed = true
	return s.value
}

// TimeConstants returns the attack and release constants in seconds at bpm.
func (s *Smoother) TimeConstants(bpm float64) (attack, release float64) {
	attack = TimeConstant(bpm, s.cfg.AttackNote, s.cfg.AttackFallback)
	release = TimeConstant(bpm, s.cfg.ReleaseNote, s.cfg.ReleaseFallback)
	return attack, release
}

// Value returns the current smoothed value.
func (s *Smoother) Value() float64 { return s.value }

// LastUpdate reports the timestamp of the last accepted update.
func (s *Smoother) LastUpdate() (float64, bool) { return s.last, s.primed }

// Reset sets the value and forgets the last timestamp.
func (s *Smoother) Reset(value float64) {
	s.value = value
	s.last = 0
	s.primed = false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
