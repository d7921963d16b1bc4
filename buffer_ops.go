package gegltile

import (
	"github.com/gogpu/gegltile/internal/babl"
	"github.com/gogpu/gegltile/internal/tile"
)

// Get decomposes rect into tile intersections via the storage's tile
// iterator, converts each intersecting span from the storage format to
// format, and writes it into dst at the given row stride (spec.md §4.7).
// Pixels of rect outside the buffer's effective abyss are handled per
// repeatMode; RepeatNone leaves them untouched in dst.
func (b *Buffer) Get(rect Rect, format Format, stride int, dst []byte, repeatMode RepeatMode) error {
	if rect.Empty() {
		return nil
	}
	bpp := format.BytesPerPixel()
	effAbyss := b.EffectiveAbyss()
	inside := rect.Intersect(effAbyss)

	var cur addrCursor
	cur.storage = b.storage

	if !inside.Empty() {
		if err := b.getInside(inside, rect, format, stride, dst, &cur); err != nil {
			return err
		}
	}
	if repeatMode == RepeatNone || inside == rect {
		return nil
	}
	return b.getOutside(rect, inside, effAbyss, format, bpp, stride, dst, repeatMode, &cur)
}

// getInside fills the portion of rect that lies inside the abyss, batched
// by tile via the storage's TileIter.
func (b *Buffer) getInside(inside, rect Rect, format Format, stride int, dst []byte, cur *addrCursor) error {
	storageRect := b.viewToStorage(inside)
	sfmt := b.storage.Format()
	bpp := format.BytesPerPixel()
	sbpp := sfmt.BytesPerPixel()

	for _, ti := range b.storage.TileIter(storageRect, 0) {
		t, err := cur.get(ti.Addr)
		if err != nil {
			return err
		}
		data := t.Bytes()
		tw := t.Width()

		for row := 0; row < ti.Rect.H; row++ {
			storageY := ti.Rect.Y + row
			viewY := storageY - b.shiftY
			localY := storageY - ti.Addr.Y*t.Height()
			localX0 := ti.Rect.X - ti.Addr.X*tw

			srcOff := (localY*tw + localX0) * sbpp
			srcRow := data[srcOff : srcOff+ti.Rect.W*sbpp]

			viewX := ti.Rect.X - b.shiftX
			dstOff := (viewY-rect.Y)*stride + (viewX-rect.X)*bpp
			dstRow := dst[dstOff : dstOff+ti.Rect.W*bpp]

			if err := babl.Convert(sfmt, format, srcRow, dstRow, ti.Rect.W); err != nil {
				return err
			}
		}
	}
	return nil
}

// getOutside fills the pixels of rect outside inside per repeatMode.
func (b *Buffer) getOutside(rect, inside, effAbyss Rect, format Format, bpp, stride int, dst []byte, repeatMode RepeatMode, cur *addrCursor) error {
	for vy := rect.Y; vy < rect.Y+rect.H; vy++ {
		for vx := rect.X; vx < rect.X+rect.W; vx++ {
			if inside.Contains(vx, vy) {
				continue
			}
			px, ok, err := b.abyssPixel(vx, vy, effAbyss, format, repeatMode, cur)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			off := (vy-rect.Y)*stride + (vx-rect.X)*bpp
			copy(dst[off:off+bpp], px)
		}
	}
	return nil
}

// abyssPixel resolves a single out-of-abyss pixel per repeatMode, returning
// ok=false for RepeatNone (leave destination untouched).
func (b *Buffer) abyssPixel(vx, vy int, abyss Rect, format Format, mode RepeatMode, cur *addrCursor) ([]byte, bool, error) {
	bpp := format.BytesPerPixel()
	switch mode {
	case RepeatNone:
		return nil, false, nil
	case RepeatBlack:
		return make([]byte, bpp), true, nil
	case RepeatWhite:
		px := make([]byte, bpp)
		whitePixel(format, px)
		return px, true, nil
	case RepeatClamp:
		vx = clampInt(vx, abyss.X, abyss.X+abyss.W-1)
		vy = clampInt(vy, abyss.Y, abyss.Y+abyss.H-1)
	case RepeatLoop:
		vx = wrapInt(vx, abyss.X, abyss.W)
		vy = wrapInt(vy, abyss.Y, abyss.H)
	}
	sfmt := b.storage.Format()
	sx, sy := vx+b.shiftX, vy+b.shiftY
	addr := tile.AddressOf(sx, sy, b.storage.TileWidth(), b.storage.TileHeight())
	t, err := cur.get(addr)
	if err != nil {
		return nil, false, err
	}
	data := t.Bytes()
	localX := sx - addr.X*t.Width()
	localY := sy - addr.Y*t.Height()
	sbpp := sfmt.BytesPerPixel()
	off := (localY*t.Width() + localX) * sbpp
	src := data[off : off+sbpp]

	dst := make([]byte, bpp)
	if err := babl.Convert(sfmt, format, src, dst, 1); err != nil {
		return nil, false, err
	}
	return dst, true, nil
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapInt(v, origin, size int) int {
	if size <= 0 {
		return origin
	}
	d := (v - origin) % size
	if d < 0 {
		d += size
	}
	return origin + d
}

func whitePixel(f Format, b []byte) {
	// Round-trip a fully-white pixel through the format converter rather
	// than special-casing each component type.
	_ = babl.Convert(RGBAFloat, f, babl.EncodeRGBAFloat(1, 1, 1, 1), b, 1)
}

// Set writes src (in format, row stride stride) into rect, decomposing the
// write across tile boundaries the same way Get decomposes reads. Writes
// are not clipped by the abyss; the abyss only governs reads.
func (b *Buffer) Set(rect Rect, format Format, stride int, src []byte) error {
	if rect.Empty() {
		return nil
	}
	sfmt := b.storage.Format()
	bpp := format.BytesPerPixel()
	sbpp := sfmt.BytesPerPixel()
	storageRect := b.viewToStorage(rect)

	for _, ti := range b.storage.TileIter(storageRect, 0) {
		t, err := b.storage.Get(ti.Addr)
		if err != nil {
			return err
		}
		buf := t.Lock()
		tw := t.Width()

		for row := 0; row < ti.Rect.H; row++ {
			storageY := ti.Rect.Y + row
			viewY := storageY - b.shiftY
			localY := storageY - ti.Addr.Y*t.Height()
			localX0 := ti.Rect.X - ti.Addr.X*tw

			dstOff := (localY*tw + localX0) * sbpp
			dstRow := buf[dstOff : dstOff+ti.Rect.W*sbpp]

			viewX := ti.Rect.X - b.shiftX
			srcOff := (viewY-rect.Y)*stride + (viewX-rect.X)*bpp
			srcRow := src[srcOff : srcOff+ti.Rect.W*bpp]

			if err := babl.Convert(format, sfmt, srcRow, dstRow, ti.Rect.W); err != nil {
				t.Unlock()
				return err
			}
		}
		t.Unlock()

		if err := b.storage.Set(ti.Addr, t, b.storageToView(ti.Rect)); err != nil {
			return err
		}
	}
	return nil
}

// storageToView translates a storage-space rectangle back to this
// buffer's view space.
func (b *Buffer) storageToView(r Rect) Rect { return r.Shifted(-b.shiftX, -b.shiftY) }

// Clear voids every tile fully covered by rect and writes zero pixels into
// any tile rect only partially covers (spec.md §4.7).
func (b *Buffer) Clear(rect Rect) error {
	if rect.Empty() {
		return nil
	}
	storageRect := b.viewToStorage(rect)
	tw, th := b.storage.TileWidth(), b.storage.TileHeight()

	for _, ti := range b.storage.TileIter(storageRect, 0) {
		tileRect := Rect{X: ti.Addr.X * tw, Y: ti.Addr.Y * th, W: tw, H: th}
		if tileRect == ti.Rect {
			if err := b.storage.Void(ti.Addr); err != nil {
				return err
			}
			continue
		}
		zero := make([]byte, ti.Rect.W*b.storage.Format().BytesPerPixel())
		if err := b.Set(b.storageToView(ti.Rect), b.storage.Format(), ti.Rect.W*b.storage.Format().BytesPerPixel(), repeatRow(zero, ti.Rect.H)); err != nil {
			return err
		}
	}
	return nil
}

// repeatRow stacks one zeroed row h times into a tightly packed buffer,
// used by Clear's partial-tile fallback.
func repeatRow(row []byte, h int) []byte {
	out := make([]byte, len(row)*h)
	for i := 0; i < h; i++ {
		copy(out[i*len(row):], row)
	}
	return out
}

// Copy transfers srcRect from src into this buffer at the rectangle with
// the same size anchored at dstX, dstY. When both buffers share a storage
// format and tile grid alignment, whole tiles are shared via copy-on-write
// cloning instead of a byte-for-byte conversion (spec.md §4.7's
// "tile-aligned duplication fast path").
func (b *Buffer) Copy(src *Buffer, srcRect Rect, dstX, dstY int, repeatMode RepeatMode) error {
	if srcRect.Empty() {
		return nil
	}
	dstRect := Rect{X: dstX, Y: dstY, W: srcRect.W, H: srcRect.H}

	if fastCopyEligible(src, b, srcRect, dstX, dstY) {
		return fastCopy(src, b, srcRect, dstRect)
	}

	sfmt := src.SoftFormat()
	tmpStride := srcRect.W * sfmt.BytesPerPixel()
	tmp := make([]byte, tmpStride*srcRect.H)
	if err := src.Get(srcRect, sfmt, tmpStride, tmp, repeatMode); err != nil {
		return err
	}
	return b.Set(dstRect, sfmt, tmpStride, tmp)
}

func fastCopyEligible(src, dst *Buffer, srcRect Rect, dstX, dstY int) bool {
	if src.storage.Format() != dst.storage.Format() {
		return false
	}
	if src.storage.TileWidth() != dst.storage.TileWidth() || src.storage.TileHeight() != dst.storage.TileHeight() {
		return false
	}
	tw, th := src.storage.TileWidth(), src.storage.TileHeight()
	srcStorageRect := src.viewToStorage(srcRect)
	if srcStorageRect.X%tw != 0 || srcStorageRect.Y%th != 0 {
		return false
	}
	if srcStorageRect.W%tw != 0 || srcStorageRect.H%th != 0 {
		return false
	}
	dstStorageX := dstX + dst.shiftX
	dstStorageY := dstY + dst.shiftY
	return dstStorageX%tw == 0 && dstStorageY%th == 0
}

func fastCopy(src, dst *Buffer, srcRect, dstRect Rect) error {
	tw, th := src.storage.TileWidth(), src.storage.TileHeight()
	srcStorageRect := src.viewToStorage(srcRect)
	dstStorageRect := dst.viewToStorage(dstRect)
	dxTiles := dstStorageRect.X/tw - srcStorageRect.X/tw
	dyTiles := dstStorageRect.Y/th - srcStorageRect.Y/th

	for _, ti := range src.storage.TileIter(srcStorageRect, 0) {
		t, err := src.storage.Get(ti.Addr)
		if err != nil {
			return err
		}
		dstAddr := tile.Address{X: ti.Addr.X + dxTiles, Y: ti.Addr.Y + dyTiles, Z: ti.Addr.Z}
		clone := t.Clone()
		viewRect := Rect{X: dstAddr.X * tw, Y: dstAddr.Y * th, W: tw, H: th}.Shifted(-dst.shiftX, -dst.shiftY)
		if err := dst.storage.Set(dstAddr, clone, viewRect); err != nil {
			return err
		}
	}
	return nil
}
