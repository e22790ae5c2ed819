package compose

import "math"

// FractalNoise sums octaves of value noise at (x, y) and returns a value in
// [0,1]. Each octave multiplies frequency by lacunarity and amplitude by gain.
// Octaves sample independent lattices so their features do not line up.
func FractalNoise(x, y float64, octaves int, lacunarity, gain float64) float64 {
	amp, freq := 1.0, 1.0
	var total, norm float64
	for o := 0; o < octaves; o++ {
		total += amp * latticeNoise(x*freq, y*freq, uint32(o))
		norm += amp
		amp *= gain
		freq *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return clamp01(total / norm)
}

// latticeNoise interpolates random values stored at integer cell corners.
func latticeNoise(x, y float64, octave uint32) float64 {
	fx, fy := math.Floor(x), math.Floor(y)
	cx, cy := int64(fx), int64(fy)
	tx, ty := quintic(x-fx), quintic(y-fy)

	top := lerp(cornerValue(cx, cy, octave), cornerValue(cx+1, cy, octave), tx)
	bottom := lerp(cornerValue(cx, cy+1, octave), cornerValue(cx+1, cy+1, octave), tx)
	return lerp(top, bottom, ty)
}

// cornerValue hashes a cell corner and octave into [0,1).
func cornerValue(cx, cy int64, octave uint32) float64 {
	h := uint32(cx)*0x8da6b343 ^ uint32(cy)*0xd8163841 ^ octave*0xcb1ab31f
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return float64(h) / (1 << 32)
}

func quintic(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}
