package gegltile

import (
	"github.com/gogpu/gegltile/internal/babl"
	"github.com/gogpu/gegltile/internal/tile"
	"github.com/gogpu/gegltile/sampler"
)

// SamplerKind re-exports sampler.Kind at the package root so callers never
// import an implementation package just to pick a reconstruction filter.
type SamplerKind = sampler.Kind

const (
	SamplerNearest = sampler.Nearest
	SamplerLinear  = sampler.Linear
	SamplerCubic   = sampler.Cubic
	SamplerNohalo  = sampler.Nohalo
	SamplerLohalo  = sampler.Lohalo
)

// bufferSource adapts a Buffer (plus a fixed repeat mode) to sampler.Source,
// resolving abyss/repeat per pixel as normalized RGBA float channels.
type bufferSource struct {
	b          *Buffer
	abyss      Rect
	repeatMode RepeatMode
	cur        addrCursor
}

func (s *bufferSource) At(x, y int) (r, g, b, a float32) {
	if s.abyss.Contains(x, y) {
		return s.readStorage(x, y)
	}
	switch s.repeatMode {
	case RepeatBlack, RepeatNone:
		return 0, 0, 0, 0
	case RepeatWhite:
		return 1, 1, 1, 1
	case RepeatClamp:
		x = clampInt(x, s.abyss.X, s.abyss.X+s.abyss.W-1)
		y = clampInt(y, s.abyss.Y, s.abyss.Y+s.abyss.H-1)
	case RepeatLoop:
		x = wrapInt(x, s.abyss.X, s.abyss.W)
		y = wrapInt(y, s.abyss.Y, s.abyss.H)
	}
	return s.readStorage(x, y)
}

func (s *bufferSource) readStorage(vx, vy int) (r, g, b, a float32) {
	sx, sy := vx+s.b.shiftX, vy+s.b.shiftY
	addr := tile.AddressOf(sx, sy, s.b.storage.TileWidth(), s.b.storage.TileHeight())
	t, err := s.cur.get(addr)
	if err != nil {
		return 0, 0, 0, 0
	}
	sfmt := s.b.storage.Format()
	data := t.Bytes()
	localX := sx - addr.X*t.Width()
	localY := sy - addr.Y*t.Height()
	sbpp := sfmt.BytesPerPixel()
	off := (localY*t.Width() + localX) * sbpp
	rgba := make([]byte, 16)
	_ = babl.Convert(sfmt, RGBAFloat, data[off:off+sbpp], rgba, 1)
	return babl.DecodeRGBAFloat(rgba)
}

// Sample reconstructs the pixel value at floating point coordinates
// (x, y) using kind, honoring repeatMode outside the buffer's effective
// abyss, and writes the result into format (spec.md §4.8).
func (b *Buffer) Sample(x, y float64, format Format, repeatMode RepeatMode, kind SamplerKind) []byte {
	src := &bufferSource{b: b, abyss: b.EffectiveAbyss(), repeatMode: repeatMode}
	src.cur.storage = b.storage

	r, g, bl, a := sampler.Sample(src, kind, x, y)
	out := make([]byte, format.BytesPerPixel())
	_ = babl.Convert(RGBAFloat, format, babl.EncodeRGBAFloat(r, g, bl, a), out, 1)
	return out
}
