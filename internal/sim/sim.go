// Package sim is an in-memory capture runtime. It implements the
// capturekit.Runtime and capturekit.Device boundaries with a reference-count
// table that panics on misuse (releasing a dead reference, querying a freed
// resource, unlocking with mismatched flags), so tests can assert
// conservation laws instead of chasing leaks.
package sim

import (
	"fmt"
	"sync"

	"capturekit"
)

type kind int

const (
	kindSample kind = iota
	kindPixelBuffer
	kindSurface
)

func (k kind) String() string {
	switch k {
	case kindSample:
		return "sample"
	case kindPixelBuffer:
		return "pixel buffer"
	case kindSurface:
		return "surface"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type object struct {
	kind kind
	refs int

	// sample payload
	image capturekit.Resource
	pts   capturekit.MediaTime
	dur   capturekit.MediaTime
	info  *capturekit.FrameInfo
	audio *capturekit.AudioBufferList
	valid bool
	count int

	// image payload, shared by pixel buffers and surfaces
	width    int
	height   int
	format   capturekit.PixelFormat
	rowBytes int
	planes   []capturekit.PlaneDescriptor
	data     []byte
	surface  capturekit.Resource

	locks     int
	lockFlags capturekit.LockFlags
}

func (o *object) mustBeSample(op string) {
	if o.kind != kindSample {
		panic(fmt.Sprintf("sim: %s on %s resource", op, o.kind))
	}
}

func (o *object) mustBeImage(op string) {
	if o.kind == kindSample {
		panic(fmt.Sprintf("sim: %s on sample resource", op))
	}
}

// Runtime is the in-memory runtime. The zero value is not usable; call
// NewRuntime.
type Runtime struct {
	mu      sync.Mutex
	next    capturekit.Resource
	objects map[capturekit.Resource]*object

	retains  int64
	releases int64

	failLockStatus int
}

func NewRuntime() *Runtime {
	return &Runtime{objects: make(map[capturekit.Resource]*object)}
}

// newLocked registers obj with one reference, owned by whoever asked for the
// object. Creation counts as a retain so the conservation counters balance.
func (r *Runtime) newLocked(obj *object) capturekit.Resource {
	r.next++
	obj.refs = 1
	r.retains++
	r.objects[r.next] = obj
	return r.next
}

func (r *Runtime) get(res capturekit.Resource, op string) *object {
	obj, ok := r.objects[res]
	if !ok {
		panic(fmt.Sprintf("sim: %s on unknown resource %#x", op, uintptr(res)))
	}
	return obj
}

// VideoSampleConfig describes one synthetic video sample. Zero dimensions are
// allowed; the binder is expected to reject them.
type VideoSampleConfig struct {
	Width    int
	Height   int
	Format   capturekit.PixelFormat
	PTS      capturekit.MediaTime
	Duration capturekit.MediaTime
	// Info overrides the default complete-status attachment. NoInfo drops
	// the attachment entirely.
	Info   *capturekit.FrameInfo
	NoInfo bool
	// NoSurface omits the backing surface, as for a buffer that only
	// exists in main memory.
	NoSurface bool
}

// NewVideoSample creates a sample backed by a pixel buffer and (unless
// disabled) a surface sharing the same memory. The caller owns one reference
// on the sample; the chain below it is owned internally and dies with it.
func (r *Runtime) NewVideoSample(cfg VideoSampleConfig) capturekit.Resource {
	rowBytes, planes, size := layout(cfg.Width, cfg.Height, cfg.Format)
	data := make([]byte, size)

	r.mu.Lock()
	defer r.mu.Unlock()

	var surface capturekit.Resource
	if !cfg.NoSurface {
		surface = r.newLocked(&object{
			kind:     kindSurface,
			width:    cfg.Width,
			height:   cfg.Height,
			format:   cfg.Format,
			rowBytes: rowBytes,
			planes:   planes,
			data:     data,
		})
	}
	image := r.newLocked(&object{
		kind:     kindPixelBuffer,
		width:    cfg.Width,
		height:   cfg.Height,
		format:   cfg.Format,
		rowBytes: rowBytes,
		planes:   planes,
		data:     data,
		surface:  surface,
	})

	info := cfg.Info
	if info == nil && !cfg.NoInfo {
		info = &capturekit.FrameInfo{Status: capturekit.FrameStatusComplete}
	}
	return r.newLocked(&object{
		kind:  kindSample,
		image: image,
		pts:   cfg.PTS,
		dur:   cfg.Duration,
		info:  info,
		valid: true,
		count: 1,
	})
}

// NewAudioSample creates a sample carrying an audio buffer list and no image.
func (r *Runtime) NewAudioSample(buffers capturekit.AudioBufferList, frames int, pts capturekit.MediaTime) capturekit.Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newLocked(&object{
		kind:  kindSample,
		pts:   pts,
		audio: &buffers,
		valid: true,
		count: frames,
	})
}

// layout computes the memory layout for one image. Biplanar YCbCr gets a
// full-resolution luma plane and a half-resolution interleaved chroma plane;
// everything else is packed at the format's element size (4 bytes when
// unknown).
func layout(width, height int, format capturekit.PixelFormat) (rowBytes int, planes []capturekit.PlaneDescriptor, size int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if format.IsYCbCr() {
		cw, ch := capturekit.HalfDim(width), capturekit.HalfDim(height)
		lumaSize := width * height
		chromaRow := 2 * cw
		planes = []capturekit.PlaneDescriptor{
			{Index: 0, Width: width, Height: height, BytesPerRow: width, BytesPerElement: 1, Offset: 0, Size: lumaSize},
			{Index: 1, Width: cw, Height: ch, BytesPerRow: chromaRow, BytesPerElement: 2, Offset: lumaSize, Size: chromaRow * ch},
		}
		return 0, planes, lumaSize + chromaRow*ch
	}
	bpe := format.BytesPerPixel()
	if bpe <= 0 {
		bpe = 4
	}
	rowBytes = bpe * width
	return rowBytes, nil, rowBytes * height
}

// Retain adds one reference.
func (r *Runtime) Retain(res capturekit.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(res, "retain").refs++
	r.retains++
}

// Release drops one reference. The last release destroys the object and the
// internal references it holds on its derived chain; releasing a resource
// that no longer exists panics.
func (r *Runtime) Release(res capturekit.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(res)
}

func (r *Runtime) releaseLocked(res capturekit.Resource) {
	obj := r.get(res, "release")
	obj.refs--
	r.releases++
	if obj.refs > 0 {
		return
	}
	if obj.locks != 0 {
		panic(fmt.Sprintf("sim: destroyed %s with %d outstanding locks", obj.kind, obj.locks))
	}
	delete(r.objects, res)
	switch obj.kind {
	case kindSample:
		if obj.image != 0 {
			r.releaseLocked(obj.image)
		}
	case kindPixelBuffer:
		if obj.surface != 0 {
			r.releaseLocked(obj.surface)
		}
	}
}

// SampleImage returns the sample's pixel buffer with one new reference for
// the caller, or the null resource for audio samples.
func (r *Runtime) SampleImage(res capturekit.Resource) capturekit.Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "image query")
	obj.mustBeSample("image query")
	if obj.image == 0 {
		return 0
	}
	r.get(obj.image, "image query").refs++
	r.retains++
	return obj.image
}

func (r *Runtime) SampleTime(res capturekit.Resource) (pts, duration capturekit.MediaTime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "time query")
	obj.mustBeSample("time query")
	return obj.pts, obj.dur
}

func (r *Runtime) SampleFrameInfo(res capturekit.Resource) (capturekit.FrameInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "frame info query")
	obj.mustBeSample("frame info query")
	if obj.info == nil {
		return capturekit.FrameInfo{}, false
	}
	return *obj.info, true
}

func (r *Runtime) SampleAudio(res capturekit.Resource) (capturekit.AudioBufferList, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "audio query")
	obj.mustBeSample("audio query")
	if obj.audio == nil {
		return capturekit.AudioBufferList{}, false
	}
	return *obj.audio, true
}

func (r *Runtime) SampleValid(res capturekit.Resource) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "valid query")
	obj.mustBeSample("valid query")
	return obj.valid
}

func (r *Runtime) SampleCount(res capturekit.Resource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "count query")
	obj.mustBeSample("count query")
	return obj.count
}

func (r *Runtime) ImageWidth(res capturekit.Resource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "width query")
	obj.mustBeImage("width query")
	return obj.width
}

func (r *Runtime) ImageHeight(res capturekit.Resource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "height query")
	obj.mustBeImage("height query")
	return obj.height
}

func (r *Runtime) ImageFormat(res capturekit.Resource) capturekit.PixelFormat {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "format query")
	obj.mustBeImage("format query")
	return obj.format
}

func (r *Runtime) ImageBytesPerRow(res capturekit.Resource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "stride query")
	obj.mustBeImage("stride query")
	return obj.rowBytes
}

func (r *Runtime) PlaneCount(res capturekit.Resource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "plane count query")
	obj.mustBeImage("plane count query")
	return len(obj.planes)
}

func (r *Runtime) Plane(res capturekit.Resource, i int) (capturekit.PlaneDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "plane query")
	obj.mustBeImage("plane query")
	if i < 0 || i >= len(obj.planes) {
		return capturekit.PlaneDescriptor{}, false
	}
	return obj.planes[i], true
}

// Lock maps the image. Nested locks must use the same flags; a pending
// FailNextLock makes this call fail instead.
func (r *Runtime) Lock(res capturekit.Resource, flags capturekit.LockFlags) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLockStatus != 0 {
		status := r.failLockStatus
		r.failLockStatus = 0
		return &capturekit.LockError{Status: status}
	}
	obj := r.get(res, "lock")
	obj.mustBeImage("lock")
	if obj.locks > 0 && obj.lockFlags != flags {
		panic(fmt.Sprintf("sim: nested lock with flags %#x over %#x", uint32(flags), uint32(obj.lockFlags)))
	}
	obj.locks++
	obj.lockFlags = flags
	return nil
}

// Unlock unmaps the image. The flags must match the lock's.
func (r *Runtime) Unlock(res capturekit.Resource, flags capturekit.LockFlags) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "unlock")
	obj.mustBeImage("unlock")
	if obj.locks == 0 {
		panic("sim: unlock without lock")
	}
	if flags != obj.lockFlags {
		panic(fmt.Sprintf("sim: unlock flags %#x do not match lock flags %#x", uint32(flags), uint32(obj.lockFlags)))
	}
	obj.locks--
	return nil
}

// Contents returns the image's memory. Reading it without holding a lock
// panics.
func (r *Runtime) Contents(res capturekit.Resource) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "contents")
	obj.mustBeImage("contents")
	if obj.locks == 0 {
		panic("sim: contents of unlocked resource")
	}
	return obj.data
}

// DeriveSurface returns the pixel buffer's backing surface with one new
// reference for the caller, or the null resource when there is none.
func (r *Runtime) DeriveSurface(res capturekit.Resource) capturekit.Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj := r.get(res, "surface query")
	if obj.kind != kindPixelBuffer {
		panic(fmt.Sprintf("sim: surface query on %s resource", obj.kind))
	}
	if obj.surface == 0 {
		return 0
	}
	r.get(obj.surface, "surface query").refs++
	r.retains++
	return obj.surface
}

// FailNextLock makes the next Lock call fail with the given nonzero status.
func (r *Runtime) FailNextLock(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failLockStatus = status
}

// Retains is the total number of references handed out, creations included.
func (r *Runtime) Retains() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retains
}

// Releases is the total number of references given back.
func (r *Runtime) Releases() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases
}

// Live is the number of objects still alive. A leak-free run ends at zero.
func (r *Runtime) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

// Refs returns the current reference count of one resource, 0 when it no
// longer exists.
func (r *Runtime) Refs(res capturekit.Resource) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[res]
	if !ok {
		return 0
	}
	return obj.refs
}
