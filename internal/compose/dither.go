package compose

// bayer2 is the 2x2 ordered dither index in [0,4).
func bayer2(x, y int) int {
	return ((x^y)&1)*2 + (y & 1)
}

// bayer4 builds the 4x4 matrix from the 2x2 one, index in [0,16).
func bayer4(x, y int) int {
	return 4*bayer2(x&1, y&1) + bayer2((x>>1)&1, (y>>1)&1)
}

// bayer8 builds the 8x8 matrix from the 4x4 one, index in [0,64).
func bayer8(x, y int) int {
	return 4*bayer4(x&3, y&3) + bayer2((x>>2)&1, (y>>2)&1)
}

// Bayer returns the 8x8 ordered-dither value for a pixel, in (0,1). Negative
// coordinates wrap like positive ones.
func Bayer(x, y int) float64 {
	return (float64(bayer8(x&7, y&7)) + 0.5) / 64
}
