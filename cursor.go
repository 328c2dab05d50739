package capturekit

import (
	"fmt"
	"io"
)

// Cursor walks a row-major pixel mapping. It reads the raw mapped bytes
// (io.Reader, io.Seeker) and positions by pixel coordinate, so callers can
// step through visible pixels without computing stride arithmetic themselves.
type Cursor struct {
	data            []byte
	pos             int64
	width           int
	height          int
	bytesPerRow     int
	bytesPerElement int
}

func newCursor(data []byte, width, height, bytesPerRow, bytesPerElement int) *Cursor {
	return &Cursor{
		data:            data,
		width:           width,
		height:          height,
		bytesPerRow:     bytesPerRow,
		bytesPerElement: bytesPerElement,
	}
}

func (c *Cursor) Width() int  { return c.width }
func (c *Cursor) Height() int { return c.height }

// Offset is the current byte position within the mapping.
func (c *Cursor) Offset() int64 { return c.pos }

func (c *Cursor) Read(p []byte) (int, error) {
	if c.pos >= int64(len(c.data)) {
		return 0, io.EOF
	}
	n := copy(p, c.data[c.pos:])
	c.pos += int64(n)
	return n, nil
}

func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = c.pos
	case io.SeekEnd:
		base = int64(len(c.data))
	default:
		return 0, fmt.Errorf("capturekit: invalid whence %d", whence)
	}
	pos := base + offset
	if pos < 0 {
		return 0, fmt.Errorf("capturekit: negative seek position %d", pos)
	}
	c.pos = pos
	return pos, nil
}

// SeekToPixel positions the cursor at pixel (x, y) of the visible extent.
func (c *Cursor) SeekToPixel(x, y int) error {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return fmt.Errorf("capturekit: pixel (%d, %d) outside %dx%d: %w", x, y, c.width, c.height, ErrOutOfRange)
	}
	c.pos = int64(y*c.bytesPerRow + x*c.bytesPerElement)
	return nil
}

// ReadPixel returns the element at the current position and advances past it.
// The slice aliases the mapped memory.
func (c *Cursor) ReadPixel() ([]byte, error) {
	if c.pos >= int64(len(c.data)) {
		return nil, io.EOF
	}
	end := c.pos + int64(c.bytesPerElement)
	if end > int64(len(c.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	px := c.data[c.pos:end]
	c.pos = end
	return px, nil
}
