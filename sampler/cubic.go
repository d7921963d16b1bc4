package sampler

import "math"

// catmullRom returns the four Catmull-Rom basis weights for fractional
// offset t (0 <= t < 1) into the cell between the second and third of four
// consecutive samples.
func catmullRom(t float32) [4]float32 {
	t2 := t * t
	t3 := t2 * t
	return [4]float32{
		-0.5*t3 + t2 - 0.5*t,
		1.5*t3 - 2.5*t2 + 1,
		-1.5*t3 + 2*t2 + 0.5*t,
		0.5*t3 - 0.5*t2,
	}
}

func sampleCubic(src Source, x, y float64) (r, g, b, a float32) {
	x -= 0.5
	y -= 0.5
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	wx := catmullRom(float32(x - float64(x0)))
	wy := catmullRom(float32(y - float64(y0)))

	var sr, sg, sb, sa float32
	for j := -1; j <= 2; j++ {
		var rowR, rowG, rowB, rowA float32
		for i := -1; i <= 2; i++ {
			pr, pg, pb, pa := src.At(x0+i, y0+j)
			wgt := wx[i+1]
			rowR += pr * wgt
			rowG += pg * wgt
			rowB += pb * wgt
			rowA += pa * wgt
		}
		wgt := wy[j+1]
		sr += rowR * wgt
		sg += rowG * wgt
		sb += rowB * wgt
		sa += rowA * wgt
	}
	return sr, sg, sb, sa
}
