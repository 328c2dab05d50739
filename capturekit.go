// Package capturekit is a zero-copy capture-buffer lifecycle and fan-out
// engine. A capture runtime delivers each hardware-backed frame exactly once;
// capturekit shares it with any number of registered consumers without copying
// pixel data, keeping the external reference count balanced, pairing every
// lock with a matching unlock, and binding multi-plane surfaces directly to
// GPU textures.
//
// Ownership model: every handle owns exactly one reference-count unit on its
// underlying resource. Acquiring retains once, Clone retains once, Release
// releases once (and only once). A consumer that wants a frame to outlive its
// callback clones the handle before returning; everything else is released for
// it when the callback ends.
package capturekit

// Resource is an opaque token naming an externally reference-counted object
// owned by a capture runtime. The zero value is the null reference. Resources
// are never manipulated directly; ownership flows through the handle types.
type Resource uintptr

// LockFlags selects the access mode for mapping a buffer's memory. The zero
// value requests read-write access.
type LockFlags uint32

const (
	// LockReadOnly maps the buffer for reading. Mutable views are not
	// available under a read-only guard, and the runtime may skip cache
	// writeback on unlock.
	LockReadOnly LockFlags = 0x1
	// LockAvoidSync skips synchronization with pending hardware transfers.
	// Only meaningful for surfaces.
	LockAvoidSync LockFlags = 0x2
)

func (f LockFlags) readOnly() bool { return f&LockReadOnly != 0 }

// Runtime is the native capture-runtime boundary. A production implementation
// wraps the platform's buffer objects; internal/sim provides a complete
// in-memory implementation for tests and tooling.
//
// Reference rules: Retain and Release adjust the external count by one.
// SampleImage and DeriveSurface return a reference the caller owns (the
// runtime has already retained it); the null Resource means not available.
// Contents is only valid between a successful Lock and the matching Unlock,
// and Unlock must receive the same flags the lock was acquired with.
type Runtime interface {
	Retain(Resource)
	Release(Resource)

	// Sample queries.
	SampleImage(Resource) Resource
	SampleTime(Resource) (pts, duration MediaTime)
	SampleFrameInfo(Resource) (FrameInfo, bool)
	SampleAudio(Resource) (AudioBufferList, bool)
	SampleValid(Resource) bool
	SampleCount(Resource) int

	// Image queries, shared by pixel buffers and surfaces.
	ImageWidth(Resource) int
	ImageHeight(Resource) int
	ImageFormat(Resource) PixelFormat
	// ImageBytesPerRow is the row stride of a packed image; planar images
	// carry per-plane strides in their descriptors.
	ImageBytesPerRow(Resource) int
	PlaneCount(Resource) int
	Plane(Resource, int) (PlaneDescriptor, bool)

	// Mapping.
	Lock(Resource, LockFlags) error
	Unlock(Resource, LockFlags) error
	Contents(Resource) []byte

	// DeriveSurface returns the hardware surface backing a pixel buffer.
	DeriveSurface(Resource) Resource
}
