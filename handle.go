package capturekit

import "sync/atomic"

// handleRef is the ownership core shared by the handle family: one runtime
// resource, one owned reference-count unit, released at most once.
type handleRef struct {
	rt       Runtime
	res      Resource
	released atomic.Bool
}

// Resource returns the underlying token for diagnostics and device calls. It
// does not transfer ownership.
func (h *handleRef) Resource() Resource { return h.res }

// Release gives back the handle's reference-count unit. Safe to call more
// than once; only the first call releases.
func (h *handleRef) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.rt.Release(h.res)
	}
}

// live panics when the handle was already released. Accessor reads are the
// caller's responsibility to sequence before Release; operations that mint new
// references check explicitly so a double-free surfaces as a panic at the
// misuse site rather than corrupting the external count.
func (h *handleRef) live(op string) {
	if h.released.Load() {
		panic("capturekit: " + op + " on released handle")
	}
}

// SampleHandle owns one reference to a captured sample: the unit the runtime
// delivers per frame, carrying timing, status attachments, and either video
// (a derivable pixel buffer) or audio (a buffer list) payload.
type SampleHandle struct {
	handleRef
}

// AcquireSample retains res once and returns a handle owning that unit. The
// null resource yields (nil, false) and no reference is taken.
func AcquireSample(rt Runtime, res Resource) (*SampleHandle, bool) {
	if res == 0 {
		return nil, false
	}
	rt.Retain(res)
	return &SampleHandle{handleRef{rt: rt, res: res}}, true
}

// Clone retains the resource again and returns an independently owned handle.
// It never fails for a live handle; cloning a released handle panics.
func (h *SampleHandle) Clone() *SampleHandle {
	h.live("Clone")
	h.rt.Retain(h.res)
	return &SampleHandle{handleRef{rt: h.rt, res: h.res}}
}

// Timestamp returns the presentation time of the sample.
func (h *SampleHandle) Timestamp() MediaTime {
	pts, _ := h.rt.SampleTime(h.res)
	return pts
}

// Duration returns the sample's nominal duration.
func (h *SampleHandle) Duration() MediaTime {
	_, d := h.rt.SampleTime(h.res)
	return d
}

func (h *SampleHandle) Valid() bool      { return h.rt.SampleValid(h.res) }
func (h *SampleHandle) SampleCount() int { return h.rt.SampleCount(h.res) }

// FrameInfo returns the per-frame attachment record. Audio samples (and video
// samples without attachments) report false.
func (h *SampleHandle) FrameInfo() (FrameInfo, bool) {
	return h.rt.SampleFrameInfo(h.res)
}

// Status returns the frame-status classifier from the attachments.
func (h *SampleHandle) Status() (FrameStatus, bool) {
	info, ok := h.rt.SampleFrameInfo(h.res)
	if !ok {
		return 0, false
	}
	return info.Status, true
}

// AudioBuffers returns the audio payload. Video samples report false.
func (h *SampleHandle) AudioBuffers() (AudioBufferList, bool) {
	return h.rt.SampleAudio(h.res)
}

// PixelBuffer derives the image backing a video sample. The returned handle
// owns its own reference on the image resource: releasing the sample does not
// invalidate it. Audio samples report false.
func (h *SampleHandle) PixelBuffer() (*PixelBufferHandle, bool) {
	h.live("PixelBuffer")
	res := h.rt.SampleImage(h.res)
	if res == 0 {
		return nil, false
	}
	return &PixelBufferHandle{imageHandle{handleRef{rt: h.rt, res: res}}}, true
}

// imageHandle is the shared accessor set for lockable image resources.
type imageHandle struct {
	handleRef
}

func (h *imageHandle) Width() int               { return h.rt.ImageWidth(h.res) }
func (h *imageHandle) Height() int              { return h.rt.ImageHeight(h.res) }
func (h *imageHandle) PixelFormat() PixelFormat { return h.rt.ImageFormat(h.res) }

// PlaneCount is 0 for packed formats and the number of planes otherwise.
func (h *imageHandle) PlaneCount() int { return h.rt.PlaneCount(h.res) }

// Plane returns the descriptor for plane i, false when out of range (packed
// buffers have no planes).
func (h *imageHandle) Plane(i int) (PlaneDescriptor, bool) {
	return h.rt.Plane(h.res, i)
}

// Lock maps the buffer's memory and returns a guard that must be unlocked
// (normally via defer) before the handle is released.
func (h *imageHandle) Lock(flags LockFlags) (*LockGuard, error) {
	h.live("Lock")
	return lockImage(h.rt, h.res, flags)
}

// PixelBufferHandle owns one reference to a pixel buffer derived from a video
// sample.
type PixelBufferHandle struct {
	imageHandle
}

// Clone retains the resource again and returns an independently owned handle.
func (h *PixelBufferHandle) Clone() *PixelBufferHandle {
	h.live("Clone")
	h.rt.Retain(h.res)
	return &PixelBufferHandle{imageHandle{handleRef{rt: h.rt, res: h.res}}}
}

// Surface derives the hardware surface backing the pixel buffer. The returned
// handle owns its own reference; pixel buffers without a surface report
// false.
func (h *PixelBufferHandle) Surface() (*SurfaceHandle, bool) {
	h.live("Surface")
	res := h.rt.DeriveSurface(h.res)
	if res == 0 {
		return nil, false
	}
	return &SurfaceHandle{imageHandle{handleRef{rt: h.rt, res: res}}}, true
}

// SurfaceHandle owns one reference to a hardware surface, the unit the
// TextureBinder maps onto GPU textures.
type SurfaceHandle struct {
	imageHandle
}

// Clone retains the resource again and returns an independently owned handle.
func (h *SurfaceHandle) Clone() *SurfaceHandle {
	h.live("Clone")
	h.rt.Retain(h.res)
	return &SurfaceHandle{imageHandle{handleRef{rt: h.rt, res: h.res}}}
}
