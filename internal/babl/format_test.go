package babl

import "testing"

func TestBytesPerPixel(t *testing.T) {
	cases := []struct {
		f    Format
		want int
	}{
		{RGBAFloat, 16},
		{RGBAU8, 4},
		{RGBU8, 3},
		{YAU8, 2},
		{YFloat, 4},
	}
	for _, c := range cases {
		if got := c.f.BytesPerPixel(); got != c.want {
			t.Errorf("%s.BytesPerPixel() = %d, want %d", c.f.Name(), got, c.want)
		}
	}
}

func TestStorageCompatible(t *testing.T) {
	if !RGBAU8.StorageCompatible(RGBAU8) {
		t.Error("a format must be storage-compatible with itself")
	}
	if RGBAFloat.StorageCompatible(RGBAU8) {
		t.Error("RGBAFloat (16bpp) should not be storage-compatible with RGBAU8 (4bpp)")
	}
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("RGBA float")
	if !ok || f != RGBAFloat {
		t.Fatalf("Lookup(%q) = %v, %v", "RGBA float", f, ok)
	}
	if _, ok := Lookup("nonexistent"); ok {
		t.Fatal("Lookup of an unknown name should report ok=false")
	}
}

func TestConvertIdentity(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	dst := make([]byte, 4)
	if err := Convert(RGBAU8, RGBAU8, src, dst, 1); err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("identity convert mismatch at %d: %d != %d", i, dst[i], src[i])
		}
	}
}

func TestConvertRGBAFloatToRGBAU8RoundTrip(t *testing.T) {
	src := EncodeRGBAFloat(1, 0.5, 0, 1)
	dst := make([]byte, RGBAU8.BytesPerPixel())
	if err := Convert(RGBAFloat, RGBAU8, src, dst, 1); err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if dst[0] != 255 {
		t.Errorf("red channel = %d, want 255", dst[0])
	}
	if dst[3] != 255 {
		t.Errorf("alpha channel = %d, want 255", dst[3])
	}
	mid := dst[1]
	if mid < 126 || mid > 129 {
		t.Errorf("green channel = %d, want ~127", mid)
	}
}

func TestConvertShortBufferErrors(t *testing.T) {
	src := make([]byte, 2)
	dst := make([]byte, 4)
	if err := Convert(RGBAU8, RGBAU8, src, dst, 1); err == nil {
		t.Fatal("expected an error converting from a too-short source buffer")
	}
}

func TestEncodeDecodeRGBAFloatRoundTrip(t *testing.T) {
	buf := EncodeRGBAFloat(0.25, 0.5, 0.75, 1)
	r, g, b, a := DecodeRGBAFloat(buf)
	if r != 0.25 || g != 0.5 || b != 0.75 || a != 1 {
		t.Fatalf("round trip = (%v,%v,%v,%v)", r, g, b, a)
	}
}

func TestConvertGrayToRGBA(t *testing.T) {
	src := EncodeRGBAFloat(0, 0, 0, 1) // unused, placeholder format check below
	_ = src
	grayBuf := make([]byte, YFloat.BytesPerPixel())
	floatToLE32(0.6, grayBuf)
	dst := make([]byte, RGBAFloat.BytesPerPixel())
	if err := Convert(YFloat, RGBAFloat, grayBuf, dst, 1); err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	r, g, b, a := DecodeRGBAFloat(dst)
	if r != 0.6 || g != 0.6 || b != 0.6 {
		t.Fatalf("gray expansion = (%v,%v,%v), want all 0.6", r, g, b)
	}
	if a != 1 {
		t.Fatalf("alpha = %v, want 1 for a format with no alpha channel", a)
	}
}
