package sampler

import "math"

func sampleNearest(src Source, x, y float64) (r, g, b, a float32) {
	return src.At(int(math.Floor(x+0.5)), int(math.Floor(y+0.5)))
}
