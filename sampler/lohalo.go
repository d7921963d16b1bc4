package sampler

import "math"

// sampleLohalo extends nohalo's halo avoidance to cubic reconstruction:
// the Catmull-Rom result is clamped to the min/max of the full 4x4
// neighborhood the kernel draws from, rather than only the inner 2x2.
func sampleLohalo(src Source, x, y float64) (r, g, b, a float32) {
	r, g, b, a = sampleCubic(src, x, y)

	x -= 0.5
	y -= 0.5
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))

	var rLo, gLo, bLo, aLo = float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))
	var rHi, gHi, bHi, aHi = float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))

	for j := -1; j <= 2; j++ {
		for i := -1; i <= 2; i++ {
			pr, pg, pb, pa := src.At(x0+i, y0+j)
			rLo, rHi = min2(rLo, pr), max2(rHi, pr)
			gLo, gHi = min2(gLo, pg), max2(gHi, pg)
			bLo, bHi = min2(bLo, pb), max2(bHi, pb)
			aLo, aHi = min2(aLo, pa), max2(aHi, pa)
		}
	}

	return clampFloat(r, rLo, rHi), clampFloat(g, gLo, gHi), clampFloat(b, bLo, bHi), clampFloat(a, aLo, aHi)
}
