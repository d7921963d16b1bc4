package gegltile

import "github.com/gogpu/gegltile/internal/babl"

// Format is a pixel format descriptor (spec.md §3): bytes-per-pixel plus a
// conversion capability to any other Format. Re-exported from
// internal/babl so callers never import an internal package.
type Format = babl.Format

// Common formats (spec.md GLOSSARY / §3).
var (
	RGBAFloat = babl.RGBAFloat
	RGBAU8    = babl.RGBAU8
	RGBU8     = babl.RGBU8
	YAU8      = babl.YAU8
	YFloat    = babl.YFloat
)

// LookupFormat resolves a Format by its canonical name (e.g. "RGBA
// float"), for config-driven format selection.
func LookupFormat(name string) (Format, bool) { return babl.Lookup(name) }
