package smoothing

import "math"

// DecayPeak lets a peak tracker fall exponentially toward value with the given
// time constant. A value above the peak becomes the new peak immediately and
// the result is never below value.
func DecayPeak(peak, value, deltaTime, timeConstant float64) float64 {
	if !finite(value) {
		return peak
	}
	if value >= peak || !finite(peak) {
		return value
	}
	if deltaTime <= 0 {
		return peak
	}
	if timeConstant <= 0 {
		return value
	}
	return value + (peak-value)*math.Exp(-deltaTime/timeConstant)
}
