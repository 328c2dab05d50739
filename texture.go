package capturekit

import "fmt"

// TextureFormat is a GPU texture pixel format. Values match Metal's raw
// MTLPixelFormat constants so a native device can cast them straight through.
type TextureFormat uint32

const (
	TextureFormatR8Unorm      TextureFormat = 10
	TextureFormatRG8Unorm     TextureFormat = 30
	TextureFormatBGRA8Unorm   TextureFormat = 80
	TextureFormatBGR10A2Unorm TextureFormat = 94
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatR8Unorm:
		return "r8"
	case TextureFormatRG8Unorm:
		return "rg8"
	case TextureFormatBGRA8Unorm:
		return "bgra8"
	case TextureFormatBGR10A2Unorm:
		return "bgr10a2"
	default:
		return fmt.Sprintf("format(%d)", uint32(f))
	}
}

// TextureDescriptor names one plane of a surface and the view to create over
// it. The surface reference is borrowed for the duration of the call.
type TextureDescriptor struct {
	Surface Resource
	Plane   int
	Format  TextureFormat
	Width   int
	Height  int
}

// Texture is a GPU texture viewing surface memory in place.
type Texture interface {
	Format() TextureFormat
	Width() int
	Height() int
}

// Device creates textures backed by surface memory. Production implementations
// wrap a GPU device; internal/sim records descriptors for tests.
type Device interface {
	CreateTexture(TextureDescriptor) (Texture, error)
}

// TextureSet is the result of binding one surface: a primary texture, a
// second chroma texture when the source is biplanar, and the source geometry.
type TextureSet struct {
	Plane0      Texture
	Plane1      Texture
	PixelFormat PixelFormat
	Width       int
	Height      int
}

// IsBiplanar reports whether the set carries a separate chroma texture.
func (s *TextureSet) IsBiplanar() bool { return s.Plane1 != nil }

// TextureBinder maps surfaces onto GPU textures without copying. Packed 8-bit
// sources become one BGRA8 texture, packed 10-bit color becomes one BGR10A2
// texture, and biplanar YCbCr becomes an R8 luma texture plus an RG8 chroma
// texture at the chroma plane's dimensions. Unrecognized formats get the
// 8-bit packed treatment, so binding never fails on format alone.
type TextureBinder struct {
	dev Device
}

func NewTextureBinder(dev Device) *TextureBinder {
	return &TextureBinder{dev: dev}
}

// Bind creates the texture view(s) for s. The surface must stay retained and
// unreleased for as long as the returned textures are used.
func (b *TextureBinder) Bind(s *SurfaceHandle) (*TextureSet, error) {
	w, h := s.Width(), s.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("capturekit: cannot bind %dx%d surface", w, h)
	}
	format := s.PixelFormat()

	// A chroma texture needs a chroma plane; a YCbCr surface without a
	// plane table binds as packed instead.
	if format.IsYCbCr() && s.PlaneCount() >= 2 {
		return b.bindBiplanar(s, format, w, h)
	}

	packed := TextureFormatBGRA8Unorm
	if format == PixelFormatL10R {
		packed = TextureFormatBGR10A2Unorm
	}
	t, err := b.dev.CreateTexture(TextureDescriptor{
		Surface: s.Resource(),
		Plane:   0,
		Format:  packed,
		Width:   w,
		Height:  h,
	})
	if err != nil {
		return nil, fmt.Errorf("capturekit: bind %s surface: %w", format, err)
	}
	return &TextureSet{Plane0: t, PixelFormat: format, Width: w, Height: h}, nil
}

func (b *TextureBinder) bindBiplanar(s *SurfaceHandle, format PixelFormat, w, h int) (*TextureSet, error) {
	lw, lh := w, h
	cw, ch := HalfDim(w), HalfDim(h)
	if p, ok := s.Plane(0); ok {
		lw, lh = p.Width, p.Height
	}
	if p, ok := s.Plane(1); ok {
		cw, ch = p.Width, p.Height
	}

	luma, err := b.dev.CreateTexture(TextureDescriptor{
		Surface: s.Resource(),
		Plane:   0,
		Format:  TextureFormatR8Unorm,
		Width:   lw,
		Height:  lh,
	})
	if err != nil {
		return nil, fmt.Errorf("capturekit: bind luma plane: %w", err)
	}
	chroma, err := b.dev.CreateTexture(TextureDescriptor{
		Surface: s.Resource(),
		Plane:   1,
		Format:  TextureFormatRG8Unorm,
		Width:   cw,
		Height:  ch,
	})
	if err != nil {
		return nil, fmt.Errorf("capturekit: bind chroma plane: %w", err)
	}
	return &TextureSet{
		Plane0:      luma,
		Plane1:      chroma,
		PixelFormat: format,
		Width:       w,
		Height:      h,
	}, nil
}
