package capturekit

import "fmt"

// PixelFormat is a four-character pixel format code, stored big-endian so the
// constant's bytes read in order ('B','G','R','A' == PixelFormatBGRA).
type PixelFormat uint32

const (
	// PixelFormatBGRA is packed 8-bit-per-channel BGRA.
	PixelFormatBGRA PixelFormat = 0x42475241 // 'BGRA'
	// PixelFormatL10R is packed 10-bit-per-channel color with 2-bit alpha.
	PixelFormatL10R PixelFormat = 0x6C313072 // 'l10r'
	// PixelFormat420V is biplanar 4:2:0 YCbCr, video range.
	PixelFormat420V PixelFormat = 0x34323076 // '420v'
	// PixelFormat420F is biplanar 4:2:0 YCbCr, full range.
	PixelFormat420F PixelFormat = 0x34323066 // '420f'
)

// FourCC builds a PixelFormat from a 4-character string. Short or long input
// returns 0.
func FourCC(s string) PixelFormat {
	if len(s) != 4 {
		return 0
	}
	return PixelFormat(uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3]))
}

// BytesPerPixel returns the packed element size, or 0 for planar and unknown
// formats (planar element sizes come from the plane descriptors).
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatBGRA, PixelFormatL10R:
		return 4
	default:
		return 0
	}
}

// IsYCbCr reports whether the format is one of the biplanar chroma-subsampled
// YCbCr layouts.
func (p PixelFormat) IsYCbCr() bool {
	return p == PixelFormat420V || p == PixelFormat420F
}

// FullRange reports whether a YCbCr format uses the full luma range.
func (p PixelFormat) FullRange() bool { return p == PixelFormat420F }

func (p PixelFormat) String() string {
	b := [4]byte{byte(p >> 24), byte(p >> 16), byte(p >> 8), byte(p)}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return fmt.Sprintf("0x%08X", uint32(p))
		}
	}
	return string(b[:])
}
