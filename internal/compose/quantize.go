package compose

import (
	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/params"
)

// Steps is the number of quantization steps, one per analysis band.
const Steps = analyzer.NumBands

// Thresholds returns the per-step quantization thresholds for a pixel. Step i
// starts at i/Steps, is perturbed by the ordered-dither value and is pulled
// down by band i's energy, never below ThresholdFloor of its unpulled value.
// Step 0 is always 0.
func Thresholds(px, py int, bands [analyzer.NumBands]float64, p params.Parameters) [Steps]float64 {
	var th [Steps]float64
	dither := (Bayer(px, py) - 0.5) * p.DitherStrength / Steps
	for i := 1; i < Steps; i++ {
		base := clamp01(float64(i)/Steps + dither)
		pulled := base * (1 - p.BandPull*clamp01(bands[i]))
		floor := base * p.ThresholdFloor
		if pulled < floor {
			pulled = floor
		}
		th[i] = pulled
	}
	return th
}

// Weights blends adjacent steps around their thresholds. Walking from the
// brightest step down, each step takes a smoothstep share of what remains;
// step 0 takes the rest, so the weights always sum to 1.
func Weights(t float64, thresholds [Steps]float64, width float64) [Steps]float64 {
	var w [Steps]float64
	remaining := 1.0
	half := width / 2
	for k := Steps - 1; k > 0; k-- {
		share := smoothstep(thresholds[k]-half, thresholds[k]+half, t)
		w[k] = remaining * share
		remaining -= w[k]
	}
	w[0] = remaining
	return w
}

// smoothstep is the Hermite step between edges e0 and e1; with e0 == e1 it is
// a hard step at the edge.
func smoothstep(e0, e1, x float64) float64 {
	if e1 <= e0 {
		if x >= e0 {
			return 1
		}
		return 0
	}
	v := clamp01((x - e0) / (e1 - e0))
	return v * v * (3 - 2*v)
}
