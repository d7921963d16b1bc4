package sampler

import (
	"math"

	"golang.org/x/image/math/f32"
)

// sampleLinear bilinearly blends the four pixels surrounding (x, y). The
// fractional offset into the surrounding cell is carried as a
// golang.org/x/image/math/f32.Vec2, the same fixed small-vector type the
// rest of the x/image toolchain uses for subpixel weights.
func sampleLinear(src Source, x, y float64) (r, g, b, a float32) {
	x -= 0.5
	y -= 0.5
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	w := f32.Vec2{float32(x - float64(x0)), float32(y - float64(y0))}

	r00, g00, b00, a00 := src.At(x0, y0)
	r10, g10, b10, a10 := src.At(x0+1, y0)
	r01, g01, b01, a01 := src.At(x0, y0+1)
	r11, g11, b11, a11 := src.At(x0+1, y0+1)

	lerp := func(v00, v10, v01, v11 float32) float32 {
		top := v00 + (v10-v00)*w[0]
		bot := v01 + (v11-v01)*w[0]
		return top + (bot-top)*w[1]
	}

	return lerp(r00, r10, r01, r11), lerp(g00, g10, g01, g11), lerp(b00, b10, b01, b11), lerp(a00, a10, a01, a11)
}
