package capturekit

import "testing"

// TestFourCC verifies the code round-trips through its string form.
func TestFourCC(t *testing.T) {
	if got := FourCC("BGRA"); got != PixelFormatBGRA {
		t.Errorf("Expected %#x, got %#x", uint32(PixelFormatBGRA), uint32(got))
	}
	if got := FourCC("420v"); got != PixelFormat420V {
		t.Errorf("Expected %#x, got %#x", uint32(PixelFormat420V), uint32(got))
	}
	if FourCC("BGR") != 0 || FourCC("BGRAX") != 0 {
		t.Error("Malformed codes should map to 0")
	}
	if got := PixelFormatL10R.String(); got != "l10r" {
		t.Errorf("Expected %q, got %q", "l10r", got)
	}
	if got := PixelFormat(0x01020304).String(); got != "0x01020304" {
		t.Errorf("Unprintable code should hex-format, got %q", got)
	}
}

// TestPixelFormatClassification verifies the YCbCr and range predicates the
// binder and thumbnailer key on.
func TestPixelFormatClassification(t *testing.T) {
	if !PixelFormat420V.IsYCbCr() || !PixelFormat420F.IsYCbCr() {
		t.Error("4:2:0 formats should classify as YCbCr")
	}
	if PixelFormatBGRA.IsYCbCr() || PixelFormatL10R.IsYCbCr() {
		t.Error("Packed formats should not classify as YCbCr")
	}
	if PixelFormat420V.FullRange() {
		t.Error("420v is video range")
	}
	if !PixelFormat420F.FullRange() {
		t.Error("420f is full range")
	}
	if PixelFormatBGRA.BytesPerPixel() != 4 || PixelFormatL10R.BytesPerPixel() != 4 {
		t.Error("Packed formats are 4 bytes per pixel")
	}
	if PixelFormat420V.BytesPerPixel() != 0 {
		t.Error("Planar formats have no packed element size")
	}
}
