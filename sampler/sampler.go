// Package sampler implements the reconstruction filters a Buffer uses to
// answer a point sample at fractional coordinates (spec.md §4.8): nearest,
// linear, cubic, nohalo, and lohalo.
//
// Filters are expressed against the Source interface rather than a
// concrete buffer type so this package has no dependency on the root
// gegltile package; Buffer.Sample supplies an adapter that already
// resolves abyss/repeat behavior per pixel.
package sampler

// Source supplies individual normalized RGBA float samples at integer
// pixel coordinates. Implementations are responsible for abyss/repeat
// handling; a Source must answer every coordinate it is asked about.
type Source interface {
	At(x, y int) (r, g, b, a float32)
}

// Kind selects a reconstruction filter.
type Kind int

const (
	// Nearest picks the closest integer pixel.
	Nearest Kind = iota
	// Linear bilinearly interpolates the four surrounding pixels.
	Linear
	// Cubic applies a Catmull-Rom bicubic kernel over a 4x4 neighborhood.
	Cubic
	// Nohalo is a halo-avoiding filter: bilinear reconstruction clamped to
	// the local 2x2 neighborhood's value range.
	Nohalo
	// Lohalo extends Nohalo's halo avoidance to cubic reconstruction over
	// a 4x4 neighborhood.
	Lohalo
)

// Sample reconstructs the pixel value at floating point coordinates (x, y)
// from src using the filter kind selects.
func Sample(src Source, kind Kind, x, y float64) (r, g, b, a float32) {
	switch kind {
	case Nearest:
		return sampleNearest(src, x, y)
	case Linear:
		return sampleLinear(src, x, y)
	case Cubic:
		return sampleCubic(src, x, y)
	case Nohalo:
		return sampleNohalo(src, x, y)
	case Lohalo:
		return sampleLohalo(src, x, y)
	default:
		return sampleNearest(src, x, y)
	}
}
