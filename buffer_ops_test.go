package gegltile

import "testing"

func TestSetThenGetRoundTripsWithinOneTile(t *testing.T) {
	buf, err := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	rect := Rect{X: 0, Y: 0, W: 4, H: 4}
	bpp := RGBAU8.BytesPerPixel()
	stride := rect.W * bpp
	src := make([]byte, stride*rect.H)
	for i := range src {
		src[i] = byte(i % 251)
	}
	if err := buf.Set(rect, RGBAU8, stride, src); err != nil {
		t.Fatalf("Set: %v", err)
	}

	dst := make([]byte, stride*rect.H)
	if err := buf.Get(rect, RGBAU8, stride, dst, RepeatNone); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d: got %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestSetThenGetRoundTripsAcrossMultipleTiles(t *testing.T) {
	buf, err := NewBuffer(WithExtent(0, 0, 10, 6), WithTileSize(4, 4), WithFormat(RGBAU8))
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	rect := buf.Extent()
	bpp := RGBAU8.BytesPerPixel()
	stride := rect.W * bpp
	src := make([]byte, stride*rect.H)
	for i := range src {
		src[i] = byte((i*7 + 3) % 251)
	}
	if err := buf.Set(rect, RGBAU8, stride, src); err != nil {
		t.Fatalf("Set: %v", err)
	}

	dst := make([]byte, stride*rect.H)
	if err := buf.Get(rect, RGBAU8, stride, dst, RepeatNone); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d: got %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestGetOutsideAbyssRepeatNoneLeavesDestinationUntouched(t *testing.T) {
	buf, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	bpp := RGBAU8.BytesPerPixel()
	rect := Rect{X: -2, Y: 0, W: 4, H: 4} // half outside the abyss on the left
	stride := rect.W * bpp
	dst := make([]byte, stride*rect.H)
	for i := range dst {
		dst[i] = 0xAB
	}
	if err := buf.Get(rect, RGBAU8, stride, dst, RepeatNone); err != nil {
		t.Fatalf("Get: %v", err)
	}
	// The leftmost two columns (outside the abyss) must be untouched.
	for row := 0; row < rect.H; row++ {
		for col := 0; col < 2; col++ {
			off := row*stride + col*bpp
			for i := 0; i < bpp; i++ {
				if dst[off+i] != 0xAB {
					t.Fatalf("row %d col %d byte %d = %#x, want untouched 0xAB", row, col, i, dst[off+i])
				}
			}
		}
	}
}

func TestGetOutsideAbyssRepeatBlackFillsZero(t *testing.T) {
	buf, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	bpp := RGBAU8.BytesPerPixel()
	rect := Rect{X: -2, Y: 0, W: 2, H: 1} // entirely outside the abyss
	stride := rect.W * bpp
	dst := make([]byte, stride*rect.H)
	for i := range dst {
		dst[i] = 0xFF
	}
	if err := buf.Get(rect, RGBAU8, stride, dst, RepeatBlack); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0 (RepeatBlack)", i, v)
		}
	}
}

func TestGetOutsideAbyssRepeatWhiteFillsOpaqueWhite(t *testing.T) {
	buf, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	bpp := RGBAU8.BytesPerPixel()
	rect := Rect{X: -1, Y: 0, W: 1, H: 1}
	stride := rect.W * bpp
	dst := make([]byte, stride)
	if err := buf.Get(rect, RGBAU8, stride, dst, RepeatWhite); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, v := range dst {
		if v != 0xFF {
			t.Fatalf("byte %d = %d, want 255 (RepeatWhite)", i, v)
		}
	}
}

func TestGetOutsideAbyssRepeatClampReadsEdgePixel(t *testing.T) {
	buf, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	bpp := RGBAU8.BytesPerPixel()

	// Write a distinct value into the leftmost column (x=0) so a clamp to
	// the abyss edge is unambiguous.
	edge := Rect{X: 0, Y: 0, W: 1, H: 4}
	edgeStride := bpp
	edgeSrc := make([]byte, edgeStride*4)
	for i := range edgeSrc {
		edgeSrc[i] = 42
	}
	if err := buf.Set(edge, RGBAU8, edgeStride, edgeSrc); err != nil {
		t.Fatalf("Set: %v", err)
	}

	rect := Rect{X: -3, Y: 0, W: 1, H: 1}
	dst := make([]byte, bpp)
	if err := buf.Get(rect, RGBAU8, bpp, dst, RepeatClamp); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, v := range dst {
		if v != 42 {
			t.Fatalf("byte %d = %d, want 42 (clamped to edge column)", i, v)
		}
	}
}

func TestClearVoidsFullTileCoverage(t *testing.T) {
	buf, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	bpp := RGBAU8.BytesPerPixel()
	rect := buf.Extent()
	stride := rect.W * bpp
	src := make([]byte, stride*rect.H)
	for i := range src {
		src[i] = 0x77
	}
	if err := buf.Set(rect, RGBAU8, stride, src); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := buf.Clear(rect); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	dst := make([]byte, stride*rect.H)
	for i := range dst {
		dst[i] = 0xAA
	}
	if err := buf.Get(rect, RGBAU8, stride, dst, RepeatNone); err != nil {
		t.Fatalf("Get after Clear: %v", err)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0 after Clear", i, v)
		}
	}
}

func TestClearPartialTileZeroesOnlyRequestedPixels(t *testing.T) {
	buf, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	bpp := RGBAU8.BytesPerPixel()
	full := buf.Extent()
	stride := full.W * bpp
	src := make([]byte, stride*full.H)
	for i := range src {
		src[i] = 0x55
	}
	if err := buf.Set(full, RGBAU8, stride, src); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Clear only the top-left 2x2 corner, a partial intersection of the
	// single backing tile.
	if err := buf.Clear(Rect{X: 0, Y: 0, W: 2, H: 2}); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	dst := make([]byte, stride*full.H)
	if err := buf.Get(full, RGBAU8, stride, dst, RepeatNone); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for row := 0; row < full.H; row++ {
		for col := 0; col < full.W; col++ {
			off := row*stride + col*bpp
			cleared := row < 2 && col < 2
			want := byte(0x55)
			if cleared {
				want = 0
			}
			for i := 0; i < bpp; i++ {
				if dst[off+i] != want {
					t.Fatalf("row %d col %d = %d, want %d", row, col, dst[off+i], want)
				}
			}
		}
	}
}

func TestCopyBetweenIncompatibleFormatsFallsBackToByteConversion(t *testing.T) {
	src, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAFloat))
	dst, _ := NewBuffer(WithExtent(0, 0, 4, 4), WithTileSize(4, 4), WithFormat(RGBAU8))

	rect := Rect{X: 0, Y: 0, W: 4, H: 4}
	bpp := RGBAFloat.BytesPerPixel()
	stride := rect.W * bpp
	white := make([]byte, stride*rect.H)
	for i := 0; i < rect.W*rect.H; i++ {
		copy(white[i*bpp:], whitePixelBytes())
	}
	if err := src.Set(rect, RGBAFloat, stride, white); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := dst.Copy(src, rect, 0, 0, RepeatNone); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	dbpp := RGBAU8.BytesPerPixel()
	dstStride := rect.W * dbpp
	got := make([]byte, dstStride*rect.H)
	if err := dst.Get(rect, RGBAU8, dstStride, got, RepeatNone); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i, v := range got {
		if v != 0xFF {
			t.Fatalf("byte %d = %d, want 255 after float->u8 copy of white", i, v)
		}
	}
}

func TestCopySameFormatAndTileAlignmentUsesFastPath(t *testing.T) {
	src, _ := NewBuffer(WithExtent(0, 0, 8, 4), WithTileSize(4, 4), WithFormat(RGBAU8))
	dst, _ := NewBuffer(WithExtent(0, 0, 8, 4), WithTileSize(4, 4), WithFormat(RGBAU8))

	rect := Rect{X: 0, Y: 0, W: 4, H: 4} // exactly one tile, tile-aligned
	bpp := RGBAU8.BytesPerPixel()
	stride := rect.W * bpp
	pattern := make([]byte, stride*rect.H)
	for i := range pattern {
		pattern[i] = byte(i + 1)
	}
	if err := src.Set(rect, RGBAU8, stride, pattern); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Destination tile-aligned at x=4.
	if err := dst.Copy(src, rect, 4, 0, RepeatNone); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	got := make([]byte, stride*rect.H)
	if err := dst.Get(Rect{X: 4, Y: 0, W: 4, H: 4}, RGBAU8, stride, got, RepeatNone); err != nil {
		t.Fatalf("Get: %v", err)
	}
	for i := range pattern {
		if got[i] != pattern[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], pattern[i])
		}
	}
}

func whitePixelBytes() []byte {
	bpp := RGBAFloat.BytesPerPixel()
	b := make([]byte, bpp)
	whitePixel(RGBAFloat, b)
	return b
}
