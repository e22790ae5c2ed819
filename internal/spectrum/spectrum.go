// Package spectrum turns interleaved PCM windows into the per-band energies
// consumed by the feature extractor.
package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/guidoenr/ripplefield/internal/analyzer"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"
)

// LowestCenter is the center frequency of band 0; each band is one octave up.
const LowestCenter = 31.25

// Config controls Analyzer behavior.
type Config struct {
	SampleRate float64
	// Size is the FFT length in frames, rounded up to a power of two.
	Size int
	// Gain scales normalized band magnitudes before clamping.
	Gain float64
	// RMSGain scales the time-domain RMS so a full-scale sine reads 1.
	RMSGain float64
}

// Analyzer performs windowed FFT analysis per stereo channel. It reuses its
// buffers and is not safe for concurrent use.
type Analyzer struct {
	cfg   Config
	bins  [analyzer.NumBands][2]int
	left  []float64
	right []float64
}

// New creates an Analyzer with defaults for unset fields.
func New(cfg Config) *Analyzer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44_100
	}
	if cfg.Size <= 0 {
		cfg.Size = 2048
	}
	cfg.Size = nextPow2(cfg.Size)
	if cfg.Size < 256 {
		cfg.Size = 256
	}
	if cfg.Gain <= 0 {
		cfg.Gain = 2
	}
	if cfg.RMSGain <= 0 {
		cfg.RMSGain = math.Sqrt2
	}
	a := &Analyzer{
		cfg:   cfg,
		left:  make([]float64, cfg.Size),
		right: make([]float64, cfg.Size),
	}
	a.bins = bandBins(cfg.SampleRate, cfg.Size)
	return a
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// BandCenters returns the center frequency of every band in Hz.
func BandCenters() [analyzer.NumBands]float64 {
	var out [analyzer.NumBands]float64
	for i := range out {
		out[i] = LowestCenter * math.Pow(2, float64(i))
	}
	return out
}

// bandBins maps each octave band to a half-open FFT bin range. Bands narrower
// than one bin use the bin nearest to their center.
func bandBins(sampleRate float64, size int) [analyzer.NumBands][2]int {
	var out [analyzer.NumBands][2]int
	resolution := sampleRate / float64(size)
	nyquist := size / 2
	for i, center := range BandCenters() {
		lo := int(math.Ceil(center / math.Sqrt2 / resolution))
		hi := int(math.Ceil(center * math.Sqrt2 / resolution))
		if lo < 1 {
			lo = 1
		}
		if hi > nyquist {
			hi = nyquist
		}
		if lo >= hi {
			k := int(math.Round(center / resolution))
			if k < 1 {
				k = 1
			}
			if k >= nyquist {
				k = nyquist - 1
			}
			lo, hi = k, k+1
		}
		out[i] = [2]int{lo, hi}
	}
	return out
}

// Analyze computes a RawFrame from the most recent Size frames of an
// interleaved buffer. Shorter input is zero padded; mono input feeds both
// channels.
func (a *Analyzer) Analyze(interleaved []float32, channels int) analyzer.RawFrame {
	var raw analyzer.RawFrame
	if channels <= 0 || len(interleaved) < channels {
		return raw
	}

	frames := len(interleaved) / channels
	start := 0
	if frames > a.cfg.Size {
		start = frames - a.cfg.Size
	}
	n := frames - start

	sumSq := 0.0
	for i := 0; i < a.cfg.Size; i++ {
		if i >= n {
			a.left[i], a.right[i] = 0, 0
			continue
		}
		base := (start + i) * channels
		l := float64(interleaved[base])
		r := l
		if channels > 1 {
			r = float64(interleaved[base+1])
		}
		a.left[i], a.right[i] = l, r
		mono := (l + r) / 2
		sumSq += mono * mono
	}
	if n > 0 {
		raw.RMS = clamp01(math.Sqrt(sumSq/float64(n)) * a.cfg.RMSGain)
	}

	left := a.bandMagnitudes(a.left)
	right := a.bandMagnitudes(a.right)
	for i := 0; i < analyzer.NumBands; i++ {
		raw.Left[i] = left[i]
		raw.Right[i] = right[i]
		raw.Bands[i] = (left[i] + right[i]) / 2
	}
	return raw
}

func (a *Analyzer) bandMagnitudes(samples []float64) [analyzer.NumBands]float64 {
	var out [analyzer.NumBands]float64
	spectrum := fft.FFTReal(window.Hann(samples))
	// A full-scale sine under a Hann window peaks at N/4.
	norm := 4 / float64(len(samples))
	for i, r := range a.bins {
		sumSq := 0.0
		for _, c := range spectrum[r[0]:r[1]] {
			m := cmplx.Abs(c) * norm
			sumSq += m * m
		}
		out[i] = clamp01(math.Sqrt(sumSq) * a.cfg.Gain)
	}
	return out
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
