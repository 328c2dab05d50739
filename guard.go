package capturekit

import "sync/atomic"

// LockGuard is a mapped view of an image's memory. Constructing it takes
// exactly one lock; Unlock returns that lock with the same flags, at most
// once, so the usual shape is
//
//	g, err := pb.Lock(capturekit.LockReadOnly)
//	if err != nil { ... }
//	defer g.Unlock()
//
// All byte views alias the mapped memory and are invalid after Unlock.
type LockGuard struct {
	rt       Runtime
	res      Resource
	flags    LockFlags
	data     []byte
	width    int
	height   int
	format   PixelFormat
	rowBytes int
	planes   []PlaneDescriptor
	unlocked atomic.Bool
}

// lockImage takes the lock and snapshots the geometry the views need. On lock
// failure no guard exists and no unlock is owed.
func lockImage(rt Runtime, res Resource, flags LockFlags) (*LockGuard, error) {
	if err := rt.Lock(res, flags); err != nil {
		return nil, err
	}
	g := &LockGuard{
		rt:     rt,
		res:    res,
		flags:  flags,
		data:   rt.Contents(res),
		width:  rt.ImageWidth(res),
		height: rt.ImageHeight(res),
		format: rt.ImageFormat(res),
	}
	if n := rt.PlaneCount(res); n > 0 {
		g.planes = make([]PlaneDescriptor, 0, n)
		for i := 0; i < n; i++ {
			if p, ok := rt.Plane(res, i); ok {
				g.planes = append(g.planes, p)
			}
		}
	} else {
		g.rowBytes = rt.ImageBytesPerRow(res)
	}
	return g, nil
}

// Unlock unmaps the view, passing back the flags the lock was taken with.
// Calling it again is a no-op.
func (g *LockGuard) Unlock() {
	if g.unlocked.CompareAndSwap(false, true) {
		g.rt.Unlock(g.res, g.flags)
	}
}

// ReadOnly reports whether the guard was taken read-only. Mutable views are
// not available on a read-only guard.
func (g *LockGuard) ReadOnly() bool { return g.flags.readOnly() }

func (g *LockGuard) Width() int               { return g.width }
func (g *LockGuard) Height() int              { return g.height }
func (g *LockGuard) PixelFormat() PixelFormat { return g.format }
func (g *LockGuard) PlaneCount() int          { return len(g.planes) }

// BytesPerRow is the row stride of a packed image, 0 for planar.
func (g *LockGuard) BytesPerRow() int { return g.rowBytes }

// Plane returns the geometry of plane i.
func (g *LockGuard) Plane(i int) (PlaneDescriptor, bool) {
	if i < 0 || i >= len(g.planes) {
		return PlaneDescriptor{}, false
	}
	return g.planes[i], true
}

// Bytes returns the whole mapped range for reading.
func (g *LockGuard) Bytes() []byte { return g.data }

// MutableBytes returns the whole mapped range for writing, not available on a
// read-only guard.
func (g *LockGuard) MutableBytes() ([]byte, bool) {
	if g.flags.readOnly() {
		return nil, false
	}
	return g.data, true
}

// Row returns one stride of a packed image. Planar images report false; use
// PlaneRow.
func (g *LockGuard) Row(y int) ([]byte, bool) {
	return g.row(y)
}

// MutableRow is Row for writing, not available on a read-only guard.
func (g *LockGuard) MutableRow(y int) ([]byte, bool) {
	if g.flags.readOnly() {
		return nil, false
	}
	return g.row(y)
}

func (g *LockGuard) row(y int) ([]byte, bool) {
	if len(g.planes) != 0 || y < 0 || y >= g.height || g.rowBytes <= 0 {
		return nil, false
	}
	start := y * g.rowBytes
	end := start + g.rowBytes
	if start >= len(g.data) {
		return nil, false
	}
	if end > len(g.data) {
		end = len(g.data)
	}
	return g.data[start:end], true
}

// PlaneBytes returns the full extent of plane i.
func (g *LockGuard) PlaneBytes(i int) ([]byte, bool) {
	return g.planeBytes(i)
}

// MutablePlaneBytes is PlaneBytes for writing, not available on a read-only
// guard.
func (g *LockGuard) MutablePlaneBytes(i int) ([]byte, bool) {
	if g.flags.readOnly() {
		return nil, false
	}
	return g.planeBytes(i)
}

func (g *LockGuard) planeBytes(i int) ([]byte, bool) {
	if i < 0 || i >= len(g.planes) {
		return nil, false
	}
	p := g.planes[i]
	if p.Offset < 0 || p.Size < 0 || p.Offset > len(g.data) {
		return nil, false
	}
	end := p.Offset + p.Size
	if end > len(g.data) {
		end = len(g.data)
	}
	return g.data[p.Offset:end], true
}

// PlaneRow returns one stride of plane i.
func (g *LockGuard) PlaneRow(i, y int) ([]byte, bool) {
	return g.planeRow(i, y)
}

// MutablePlaneRow is PlaneRow for writing, not available on a read-only
// guard.
func (g *LockGuard) MutablePlaneRow(i, y int) ([]byte, bool) {
	if g.flags.readOnly() {
		return nil, false
	}
	return g.planeRow(i, y)
}

func (g *LockGuard) planeRow(i, y int) ([]byte, bool) {
	plane, ok := g.planeBytes(i)
	if !ok {
		return nil, false
	}
	p := g.planes[i]
	if y < 0 || y >= p.Height || p.BytesPerRow <= 0 {
		return nil, false
	}
	start := y * p.BytesPerRow
	end := start + p.BytesPerRow
	if start >= len(plane) {
		return nil, false
	}
	if end > len(plane) {
		end = len(plane)
	}
	return plane[start:end], true
}

// Cursor returns a pixel cursor over a packed image. Planar images report
// false; use PlaneCursor.
func (g *LockGuard) Cursor() (*Cursor, bool) {
	if len(g.planes) != 0 || g.rowBytes <= 0 {
		return nil, false
	}
	bpe := g.format.BytesPerPixel()
	if bpe <= 0 {
		bpe = 1
	}
	return newCursor(g.data, g.width, g.height, g.rowBytes, bpe), true
}

// PlaneCursor returns a pixel cursor over plane i.
func (g *LockGuard) PlaneCursor(i int) (*Cursor, bool) {
	plane, ok := g.planeBytes(i)
	if !ok {
		return nil, false
	}
	p := g.planes[i]
	if p.BytesPerRow <= 0 || p.BytesPerElement <= 0 {
		return nil, false
	}
	return newCursor(plane, p.Width, p.Height, p.BytesPerRow, p.BytesPerElement), true
}
