package monitor

import (
	"image"
	"image/color"

	"capturekit"
)

// thumbWidth caps the rendered width of the frame preview.
const thumbWidth = 160

// renderThumbnail scales the locked frame down to at most maxW pixels wide
// with nearest-neighbor sampling. BGRA maps directly; biplanar formats render
// the luma plane as gray. Returns nil when the frame has no usable extent.
func renderThumbnail(g *capturekit.LockGuard, maxW int) *image.NRGBA {
	w, h := g.Width(), g.Height()
	if w <= 0 || h <= 0 {
		return nil
	}
	tw := maxW
	if w < tw {
		tw = w
	}
	th := h * tw / w
	if th < 1 {
		th = 1
	}

	img := image.NewNRGBA(image.Rect(0, 0, tw, th))
	for ty := 0; ty < th; ty++ {
		sy := ty * h / th
		for tx := 0; tx < tw; tx++ {
			sx := tx * w / tw
			img.SetNRGBA(tx, ty, samplePixel(g, sx, sy))
		}
	}
	return img
}

func samplePixel(g *capturekit.LockGuard, x, y int) color.NRGBA {
	if g.PlaneCount() > 0 {
		row, ok := g.PlaneRow(0, y)
		if !ok || x >= len(row) {
			return color.NRGBA{A: 0xFF}
		}
		v := row[x]
		return color.NRGBA{R: v, G: v, B: v, A: 0xFF}
	}

	row, ok := g.Row(y)
	if !ok || 4*x+3 >= len(row) {
		return color.NRGBA{A: 0xFF}
	}
	if g.PixelFormat() == capturekit.PixelFormatBGRA {
		return color.NRGBA{R: row[4*x+2], G: row[4*x+1], B: row[4*x], A: 0xFF}
	}
	v := row[4*x]
	return color.NRGBA{R: v, G: v, B: v, A: 0xFF}
}
