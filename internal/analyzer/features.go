package analyzer

import "math"

// NumBands is the number of logarithmically spaced analysis bands.
const NumBands = 10

// MaxBeatAge caps the reported time since the last beat, including bands that
// never produced one.
const MaxBeatAge = 60.0

// Tier groups adjacent bands into bass, mid and treble.
type Tier int

const (
	Bass Tier = iota
	Mid
	Treble
	NumTiers
)

var tierNames = [NumTiers]string{"bass", "mid", "treble"}

func (t Tier) String() string {
	if t < 0 || t >= NumTiers {
		return "unknown"
	}
	return tierNames[t]
}

// tierBands holds the [lo, hi) band range of each tier.
var tierBands = [NumTiers][2]int{
	Bass:   {0, 3},
	Mid:    {3, 7},
	Treble: {7, NumBands},
}

// TierBands returns the half-open band index range covered by a tier.
func TierBands(t Tier) (lo, hi int) {
	r := tierBands[t]
	return r[0], r[1]
}

// RawFrame is a single analysis tick delivered by the spectral front end.
// Values are expected in [0,1]; anything else is clamped by the Extractor.
type RawFrame struct {
	Bands [NumBands]float64
	Left  [NumBands]float64
	Right [NumBands]float64
	RMS   float64
}

// Beat describes the onset state of one tier.
type Beat struct {
	Onset     bool    `json:"onset"`
	Intensity float64 `json:"intensity"`
	Age       float64 `json:"age"`
}

// Frame is the immutable feature snapshot produced once per RawFrame.
type Frame struct {
	Time           float64           `json:"time"`
	Volume         float64           `json:"volume"`
	Tiers          [NumTiers]float64 `json:"tiers"`
	Bands          [NumBands]float64 `json:"bands"`
	Balance        [NumBands]float64 `json:"balance"`
	SmoothedVolume float64           `json:"smoothedVolume"`
	Smoothed       [NumTiers]float64 `json:"smoothed"`
	Peak           [NumTiers]float64 `json:"peak"`
	Beats          [NumTiers]Beat    `json:"beats"`
	BPM            float64           `json:"bpm"`
}

// Onsets reports which tiers fired a beat in this frame.
func (f Frame) Onsets() []Tier {
	var out []Tier
	for t := Bass; t < NumTiers; t++ {
		if f.Beats[t].Onset {
			out = append(out, t)
		}
	}
	return out
}

// TierBalance returns the energy-weighted stereo balance of a tier's bands.
func (f Frame) TierBalance(t Tier) float64 {
	lo, hi := TierBands(t)
	return weightedBalance(f.Balance[lo:hi], f.Bands[lo:hi])
}

// OverallBalance returns the energy-weighted stereo balance across all bands.
func (f Frame) OverallBalance() float64 {
	return weightedBalance(f.Balance[:], f.Bands[:])
}

func weightedBalance(balance, energy []float64) float64 {
	sum, weight := 0.0, 0.0
	for i := range balance {
		sum += balance[i] * energy[i]
		weight += energy[i]
	}
	if weight < 1e-9 {
		return average(balance)
	}
	return clampFloat(sum/weight, -1, 1)
}

// GateFeatures applies a noise floor so weak signals are ignored, rescaling the
// remaining range back to [0,1].
func GateFeatures(f RawFrame, floor float64) RawFrame {
	if floor <= 0 {
		return f
	}
	gate := func(v float64) float64 {
		if v <= floor {
			return 0
		}
		return clampFloat((v-floor)/(1.0-floor), 0, 1)
	}

	for i := 0; i < NumBands; i++ {
		f.Bands[i] = gate(f.Bands[i])
		f.Left[i] = gate(f.Left[i])
		f.Right[i] = gate(f.Right[i])
	}
	f.RMS = gate(f.RMS)
	return f
}

func sanitize(f RawFrame) RawFrame {
	for i := 0; i < NumBands; i++ {
		f.Bands[i] = clamp01(f.Bands[i])
		f.Left[i] = clamp01(f.Left[i])
		f.Right[i] = clamp01(f.Right[i])
	}
	f.RMS = clamp01(f.RMS)
	return f
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clampFloat(v, 0, 1)
}

func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
