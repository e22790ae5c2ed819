package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tempoEstimator derives BPM from the spacing of bass onsets using a running
// median over the most recent intervals.
type tempoEstimator struct {
	size        int
	tolerance   float64
	minInterval float64
	maxInterval float64

	seen      int
	last      float64
	intervals []float64
	scratch   []float64
	bpm       float64
}

func newTempoEstimator(size int, tolerance, minBPM, maxBPM float64) *tempoEstimator {
	if size < 1 {
		size = 1
	}
	return &tempoEstimator{
		size:        size,
		tolerance:   tolerance,
		minInterval: 60.0 / maxBPM,
		maxInterval: 60.0 / minBPM,
		intervals:   make([]float64, 0, size),
		scratch:     make([]float64, 0, size),
	}
}

func (t *tempoEstimator) observe(now float64) {
	if t.seen > 0 {
		interval := now - t.last
		switch {
		case interval > t.maxInterval:
			// the groove stopped; start over from this onset
			t.intervals = t.intervals[:0]
		case interval >= t.minInterval:
			t.push(interval)
		default:
			// faster than any plausible tempo, keep the earlier reference
			return
		}
	}
	t.last = now
	t.seen++
	t.bpm = t.estimate()
}

func (t *tempoEstimator) push(interval float64) {
	t.intervals = append(t.intervals, interval)
	if len(t.intervals) > t.size {
		copy(t.intervals, t.intervals[1:])
		t.intervals = t.intervals[:len(t.intervals)-1]
	}
}

func (t *tempoEstimator) estimate() float64 {
	if len(t.intervals) == 0 {
		return 0
	}
	sorted := append(t.scratch[:0], t.intervals...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if median <= 0 {
		return 0
	}

	for i, v := range t.intervals {
		sorted[i] = math.Abs(v - median)
	}
	sort.Float64s(sorted)
	spread := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	t.scratch = sorted
	if spread/median > t.tolerance {
		return 0
	}
	return 60.0 / median
}

func (t *tempoEstimator) reset() {
	t.seen = 0
	t.last = 0
	t.intervals = t.intervals[:0]
	t.bpm = 0
}
