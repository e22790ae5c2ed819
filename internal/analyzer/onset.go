package analyzer

// onsetDetector turns a smoothed tier value into discrete beats. A beat fires
// when the value crosses from below the threshold to at or above it. While the
// value stays above the threshold, a detector re-arms once the value drops
// margin below the highest value seen since the onset, and then fires again
// on a rise of margin above the lowest value seen since re-arming.
type onsetDetector struct {
	threshold   float64
	margin      float64
	minInterval float64

	armed     bool
	prev      float64
	trough    float64
	ref       float64
	fired     bool
	lastOnset float64
	intensity float64
}

func newOnsetDetector(threshold, margin, minInterval float64) onsetDetector {
	return onsetDetector{
		threshold:   threshold,
		margin:      margin,
		minInterval: minInterval,
		armed:       true,
	}
}

func (d *onsetDetector) step(v, now float64) bool {
	prev := d.prev
	d.prev = v
	if !d.armed {
		if v > d.ref {
			d.ref = v
		}
		if v < d.threshold || v <= d.ref-d.margin {
			d.armed = true
			d.trough = v
		}
		return false
	}

	if v < d.trough {
		d.trough = v
	}
	if v <= 0 || v < d.threshold {
		return false
	}
	if prev >= d.threshold && v < d.trough+d.margin {
		return false
	}
	if d.fired && now-d.lastOnset < d.minInterval {
		return false
	}

	d.armed = false
	d.ref = v
	d.fired = true
	d.lastOnset = now
	d.intensity = v
	return true
}

func (d *onsetDetector) age(now float64) float64 {
	if !d.fired {
		return MaxBeatAge
	}
	return clampFloat(now-d.lastOnset, 0, MaxBeatAge)
}

func (d *onsetDetector) reset() {
	*d = newOnsetDetector(d.threshold, d.margin, d.minInterval)
}
