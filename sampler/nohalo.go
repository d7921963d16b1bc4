package sampler

import "math"

// sampleNohalo reconstructs via bilinear interpolation, then clamps each
// channel to the min/max of the surrounding 2x2 neighborhood so the result
// can never overshoot past a value already present in the source data
// (the defining property of GEGL's nohalo family of filters).
func sampleNohalo(src Source, x, y float64) (r, g, b, a float32) {
	r, g, b, a = sampleLinear(src, x, y)

	x -= 0.5
	y -= 0.5
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))

	r00, g00, b00, a00 := src.At(x0, y0)
	r10, g10, b10, a10 := src.At(x0+1, y0)
	r01, g01, b01, a01 := src.At(x0, y0+1)
	r11, g11, b11, a11 := src.At(x0+1, y0+1)

	clampChannel := func(v, v00, v10, v01, v11 float32) float32 {
		lo := min4(v00, v10, v01, v11)
		hi := max4(v00, v10, v01, v11)
		return clampFloat(v, lo, hi)
	}

	r = clampChannel(r, r00, r10, r01, r11)
	g = clampChannel(g, g00, g10, g01, g11)
	b = clampChannel(b, b00, b10, b01, b11)
	a = clampChannel(a, a00, a10, a01, a11)
	return r, g, b, a
}

func min4(a, b, c, d float32) float32 { return min2(min2(a, b), min2(c, d)) }
func max4(a, b, c, d float32) float32 { return max2(max2(a, b), max2(c, d)) }
func min2(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func max2(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
