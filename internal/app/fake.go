package app

import (
	"math"
	"math/rand"

	"github.com/guidoenr/ripplefield/internal/analyzer"
)

// fakeGenerator synthesizes a four-on-the-floor pattern with hats that drift
// across the stereo field.
type fakeGenerator struct {
	rng      *rand.Rand
	clock    float64
	beat     float64
	panPhase float64
}

func newFakeGenerator(seed int64) *fakeGenerator {
	return &fakeGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		beat: 60.0 / 124.0,
	}
}

func (f *fakeGenerator) Next(delta float64) (analyzer.RawFrame, error) {
	f.clock += delta
	f.panPhase += delta * 0.35

	phase := math.Mod(f.clock, f.beat)
	offbeat := math.Mod(f.clock+f.beat/2, f.beat)
	envelopes := [analyzer.NumTiers]float64{
		analyzer.Bass:   0.15 + 0.75*math.Exp(-9*phase),
		analyzer.Mid:    0.25 + 0.15*math.Sin(f.clock*1.3),
		analyzer.Treble: 0.1 + 0.5*math.Exp(-20*offbeat),
	}
	pans := [analyzer.NumTiers]float64{
		analyzer.Bass:   0,
		analyzer.Mid:    0.2 * math.Sin(f.panPhase*0.5),
		analyzer.Treble: 0.6 * math.Sin(f.panPhase),
	}

	var raw analyzer.RawFrame
	var sum float64
	for t := analyzer.Bass; t < analyzer.NumTiers; t++ {
		lo, hi := analyzer.TierBands(t)
		for i := lo; i < hi; i++ {
			v := clamp01(envelopes[t] + f.rng.Float64()*0.05)
			raw.Bands[i] = v
			raw.Left[i] = clamp01(v * (1 - pans[t]))
			raw.Right[i] = clamp01(v * (1 + pans[t]))
			sum += v * v
		}
	}
	raw.RMS = clamp01(math.Sqrt(sum / analyzer.NumBands))
	return raw, nil
}

func (f *fakeGenerator) Label() string { return "synthetic" }

func (f *fakeGenerator) Close() error { return nil }
