package params

import (
	"math"

	"github.com/guidoenr/ripplefield/internal/analyzer"
)

// Parameters holds the visual tunables read by the compositor plus the
// animation clock and time debt advanced once per frame.
type Parameters struct {
	Time     float64 `json:"time"`
	TimeDebt float64 `json:"timeDebt"`

	// Speed scales wall time into noise time.
	Speed float64 `json:"speed"`

	NoiseScale float64 `json:"noiseScale"`
	Octaves    int     `json:"octaves"`
	Lacunarity float64 `json:"lacunarity"`
	Gain       float64 `json:"gain"`

	// Time debt grows at AccumulationRate while volume is above
	// AccumulateThreshold and shrinks at DecayRate while it is below
	// DecayThreshold, staying in [0, MaxTimeOffset].
	AccumulateThreshold float64 `json:"accumulateThreshold"`
	DecayThreshold      float64 `json:"decayThreshold"`
	AccumulationRate    float64 `json:"accumulationRate"`
	DecayRate           float64 `json:"decayRate"`
	MaxTimeOffset       float64 `json:"maxTimeOffset"`

	BrightnessFloor float64 `json:"brightnessFloor"`
	// StereoInfluence is how much the darker side of the field dims, in [0,1].
	StereoInfluence float64 `json:"stereoInfluence"`

	DitherStrength float64 `json:"ditherStrength"`
	// BandPull is how far a band at full energy lowers its own threshold.
	BandPull float64 `json:"bandPull"`
	// ThresholdFloor is the smallest fraction of a threshold left after pulling.
	ThresholdFloor float64 `json:"thresholdFloor"`
	BlendWidth     float64 `json:"blendWidth"`
}

// Defaults returns calm defaults.
func Defaults() Parameters {
	return Parameters{
		Speed:               0.15,
		NoiseScale:          2.2,
		Octaves:             4,
		Lacunarity:          2.0,
		Gain:                0.5,
		AccumulateThreshold: 0.3,
		DecayThreshold:      0.15,
		AccumulationRate:    0.5,
		DecayRate:           1.0,
		MaxTimeOffset:       4.0,
		BrightnessFloor:     0.25,
		StereoInfluence:     0.35,
		DitherStrength:      0.6,
		BandPull:            0.5,
		ThresholdFloor:      0.4,
		BlendWidth:          0.04,
	}
}

// Normalize replaces out-of-range tunables with defaults or clamps them.
func (p *Parameters) Normalize() {
	def := Defaults()
	if p.Speed < 0 {
		p.Speed = def.Speed
	}
	if p.NoiseScale <= 0 {
		p.NoiseScale = def.NoiseScale
	}
	if p.Octaves <= 0 {
		p.Octaves = def.Octaves
	}
	if p.Octaves > 8 {
		p.Octaves = 8
	}
	if p.Lacunarity <= 0 {
		p.Lacunarity = def.Lacunarity
	}
	if p.Gain <= 0 || p.Gain >= 1 {
		p.Gain = def.Gain
	}
	if p.MaxTimeOffset < 0 {
		p.MaxTimeOffset = 0
	}
	p.AccumulationRate = math.Max(0, p.AccumulationRate)
	p.DecayRate = math.Max(0, p.DecayRate)
	p.BrightnessFloor = clamp(p.BrightnessFloor, 0, 1)
	p.StereoInfluence = clamp(p.StereoInfluence, 0, 1)
	p.DitherStrength = clamp(p.DitherStrength, 0, 1)
	p.BandPull = clamp(p.BandPull, 0, 1)
	p.ThresholdFloor = clamp(p.ThresholdFloor, 0, 1)
	p.BlendWidth = math.Max(0, p.BlendWidth)
	p.TimeDebt = clamp(p.TimeDebt, 0, p.MaxTimeOffset)
}

// UpdateTime advances the noise clock based on frame delta.
func (p *Parameters) UpdateTime(delta float64) {
	if delta <= 0 {
		return
	}
	p.Time += delta * p.Speed
}

// UpdateTimeDebt grows or shrinks the time debt from the current volume.
// Volumes between the two thresholds hold it steady.
func (p *Parameters) UpdateTimeDebt(volume, delta float64) {
	if delta <= 0 || math.IsNaN(volume) {
		return
	}
	switch {
	case volume > p.AccumulateThreshold:
		p.TimeDebt += p.AccumulationRate * delta
	case volume < p.DecayThreshold:
		p.TimeDebt -= p.DecayRate * delta
	}
	p.TimeDebt = clamp(p.TimeDebt, 0, p.MaxTimeOffset)
}

// NoiseTime is the time coordinate of the noise field, including time debt.
func (p Parameters) NoiseTime() float64 {
	return p.Time + p.TimeDebt
}

// ApplyFeatures advances the clock and time debt for one analyzed frame.
func (p *Parameters) ApplyFeatures(frame analyzer.Frame, delta float64) {
	p.UpdateTime(delta)
	p.UpdateTimeDebt(frame.Volume, delta)
}

func clamp(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
