// Package compose maps a sample position and the per-frame visual state to a
// final color. Everything here is a pure function of its inputs so samples
// may be evaluated concurrently.
package compose

import (
	"math"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/guidoenr/ripplefield/internal/palette"
	"github.com/guidoenr/ripplefield/internal/params"
	"github.com/guidoenr/ripplefield/internal/ripple"
	"github.com/lucasb-eyer/go-colorful"
)

// State is the immutable per-frame input of the compositor.
type State struct {
	Time     float64
	Features analyzer.Frame
	Ripples  ripple.Snapshot
	Palette  palette.Palette
	Params   params.Parameters
}

// Sample identifies one output sample: its field position (X in [-1,1] left to
// right, Y in [0,1] top to bottom) and its pixel coordinates for dithering.
type Sample struct {
	Pos    ripple.Point
	PixelX int
	PixelY int
}

// Output is the result of compositing one sample.
type Output struct {
	// Value is the quantization input in [0,1].
	Value   float64
	Weights [Steps]float64
	Color   colorful.Color
}

// Compose returns the final color of a sample at time now.
func Compose(s Sample, now float64, st *State) colorful.Color {
	return Evaluate(s, now, st).Color
}

// Evaluate runs the full compositing chain for a sample.
func Evaluate(s Sample, now float64, st *State) Output {
	p := st.Params
	v := Intensity(s, now, st)
	th := Thresholds(s.PixelX, s.PixelY, st.Features.Bands, p)
	w := Weights(v, th, p.BlendWidth)
	return Output{Value: v, Weights: w, Color: Blend(st.Palette, w)}
}

// Intensity returns the clamped noise, brightness and ripple value of a sample.
func Intensity(s Sample, now float64, st *State) float64 {
	p := st.Params
	offset := p.NoiseTime()
	n := FractalNoise(
		s.Pos.X*p.NoiseScale+offset,
		s.Pos.Y*p.NoiseScale-offset*0.7,
		p.Octaves, p.Lacunarity, p.Gain,
	)

	n *= BrightnessFactor(st.Features.SmoothedVolume, p.BrightnessFloor)
	n *= StereoFactor(s.Pos.X, st.Features.OverallBalance(), p.StereoInfluence)
	n += st.Ripples.Render(s.Pos, now)
	return clamp01(n)
}

// BrightnessFactor maps volume to brightness in [floor,1]. It is monotonic in
// volume and never fully dark while floor > 0.
func BrightnessFactor(volume, floor float64) float64 {
	floor = clamp01(floor)
	return floor + clamp01(volume)*(1-floor)
}

// StereoFactor dims the side of the field opposite the stereo balance. x is
// the sample's horizontal position in [-1,1]; balance is negative for left
// heavy audio. The left, right and center weights of a sample sum to 1 and
// blend per-side gains, giving a factor in [1-influence, 1].
func StereoFactor(x, balance, influence float64) float64 {
	x = clamp(x, -1, 1)
	balance = clamp(balance, -1, 1)
	influence = clamp01(influence)

	wl := math.Max(0, -x)
	wr := math.Max(0, x)
	wc := 1 - wl - wr

	leftGain := 1 - influence*math.Max(0, balance)
	rightGain := 1 - influence*math.Max(0, -balance)
	centerGain := 1 - influence*math.Abs(balance)*0.5
	return wl*leftGain + wr*rightGain + wc*centerGain
}

// Blend mixes palette steps in linear RGB by weight. Palettes whose length
// differs from Steps are resampled by nearest index.
func Blend(pal palette.Palette, weights [Steps]float64) colorful.Color {
	if len(pal) == 0 {
		return colorful.Color{}
	}
	var r, g, b float64
	for k, w := range weights {
		if w == 0 {
			continue
		}
		lr, lg, lb := pal[stepIndex(k, len(pal))].LinearRgb()
		r += w * lr
		g += w * lg
		b += w * lb
	}
	return colorful.LinearRgb(r, g, b).Clamped()
}

func stepIndex(k, n int) int {
	if n == Steps {
		return k
	}
	if n == 1 {
		return 0
	}
	return int(math.Round(float64(k) * float64(n-1) / float64(Steps-1)))
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
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
