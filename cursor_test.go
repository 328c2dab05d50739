package capturekit_test

import (
	"errors"
	"io"
	"testing"

	"capturekit"
	"capturekit/internal/sim"
)

// TestCursorPixelAddressing verifies SeekToPixel lands on the stride-correct
// byte and ReadPixel steps one element at a time.
func TestCursorPixelAddressing(t *testing.T) {
	rt := sim.NewRuntime()
	pb := newPixelBuffer(t, rt, 4, 2, capturekit.PixelFormatBGRA)
	defer pb.Release()

	g, err := pb.Lock(0)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer g.Unlock()
	data, _ := g.MutableBytes()
	for i := range data {
		data[i] = byte(i)
	}

	c, ok := g.Cursor()
	if !ok {
		t.Fatal("Cursor unavailable for a packed buffer")
	}
	if c.Width() != 4 || c.Height() != 2 {
		t.Errorf("Unexpected cursor extent %dx%d", c.Width(), c.Height())
	}

	if err := c.SeekToPixel(2, 1); err != nil {
		t.Fatalf("SeekToPixel failed: %v", err)
	}
	if c.Offset() != 24 {
		t.Errorf("Expected offset 24, got %d", c.Offset())
	}
	px, err := c.ReadPixel()
	if err != nil {
		t.Fatalf("ReadPixel failed: %v", err)
	}
	if len(px) != 4 || px[0] != 24 || px[3] != 27 {
		t.Errorf("Unexpected pixel %v", px)
	}

	// The cursor advanced to the next pixel.
	px, err = c.ReadPixel()
	if err != nil || px[0] != 28 {
		t.Errorf("Expected next pixel at 28, got %v (err=%v)", px, err)
	}

	if err := c.SeekToPixel(4, 0); !errors.Is(err, capturekit.ErrOutOfRange) {
		t.Errorf("Expected out-of-range for x==width, got %v", err)
	}
	if err := c.SeekToPixel(0, -1); !errors.Is(err, capturekit.ErrOutOfRange) {
		t.Errorf("Expected out-of-range for negative y, got %v", err)
	}
}

// TestCursorReadSeek verifies the io.Reader and io.Seeker behavior.
func TestCursorReadSeek(t *testing.T) {
	rt := sim.NewRuntime()
	pb := newPixelBuffer(t, rt, 2, 2, capturekit.PixelFormatBGRA)
	defer pb.Release()

	g, err := pb.Lock(capturekit.LockReadOnly)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer g.Unlock()
	c, _ := g.Cursor()

	buf := make([]byte, 6)
	n, err := c.Read(buf)
	if err != nil || n != 6 {
		t.Fatalf("Read got %d bytes, err %v", n, err)
	}
	pos, err := c.Seek(-2, io.SeekCurrent)
	if err != nil || pos != 4 {
		t.Fatalf("Seek got position %d, err %v", pos, err)
	}
	if pos, _ := c.Seek(0, io.SeekEnd); pos != 16 {
		t.Errorf("Expected end at 16, got %d", pos)
	}
	if _, err := c.Read(buf); err != io.EOF {
		t.Errorf("Expected EOF at end, got %v", err)
	}
	if _, err := c.ReadPixel(); err != io.EOF {
		t.Errorf("Expected EOF from ReadPixel at end, got %v", err)
	}
	if _, err := c.Seek(-20, io.SeekStart); err == nil {
		t.Error("Expected error for a negative position")
	}
	if _, err := c.Seek(0, 99); err == nil {
		t.Error("Expected error for an invalid whence")
	}
}

// TestPlaneCursor verifies per-plane cursors use the plane's own stride and
// element size.
func TestPlaneCursor(t *testing.T) {
	rt := sim.NewRuntime()
	pb := newPixelBuffer(t, rt, 8, 6, capturekit.PixelFormat420V)
	defer pb.Release()

	g, err := pb.Lock(0)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer g.Unlock()

	if _, ok := g.Cursor(); ok {
		t.Error("Packed cursor should be unavailable on a planar buffer")
	}

	chroma, _ := g.MutablePlaneBytes(1)
	for i := range chroma {
		chroma[i] = byte(0xC0 + i)
	}

	c, ok := g.PlaneCursor(1)
	if !ok {
		t.Fatal("PlaneCursor unavailable")
	}
	if c.Width() != 4 || c.Height() != 3 {
		t.Errorf("Unexpected chroma extent %dx%d", c.Width(), c.Height())
	}
	if err := c.SeekToPixel(3, 2); err != nil {
		t.Fatalf("SeekToPixel failed: %v", err)
	}
	px, err := c.ReadPixel()
	if err != nil {
		t.Fatalf("ReadPixel failed: %v", err)
	}
	if len(px) != 2 || px[0] != chroma[2*8+6] {
		t.Errorf("Unexpected chroma pair %v", px)
	}

	luma, ok := g.PlaneCursor(0)
	if !ok {
		t.Fatal("Luma cursor unavailable")
	}
	if err := luma.SeekToPixel(7, 5); err != nil {
		t.Fatalf("SeekToPixel failed: %v", err)
	}
	px, err = luma.ReadPixel()
	if err != nil || len(px) != 1 {
		t.Errorf("Expected single luma byte, got %v (err=%v)", px, err)
	}
}
