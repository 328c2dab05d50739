package sim

import (
	"errors"
	"testing"

	"capturekit"
)

func expectPanic(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", op)
		}
	}()
	fn()
}

// TestVideoSampleChainLifecycle verifies that releasing the last sample
// reference destroys the whole derived chain and the counters balance.
func TestVideoSampleChainLifecycle(t *testing.T) {
	rt := NewRuntime()
	res := rt.NewVideoSample(VideoSampleConfig{Width: 64, Height: 48, Format: capturekit.PixelFormatBGRA})

	if got := rt.Refs(res); got != 1 {
		t.Errorf("Expected 1 ref after creation, got %d", got)
	}
	if got := rt.Live(); got != 3 {
		t.Errorf("Expected sample+buffer+surface alive, got %d objects", got)
	}

	rt.Retain(res)
	rt.Release(res)
	rt.Release(res)

	if got := rt.Live(); got != 0 {
		t.Errorf("Expected no live objects, got %d", got)
	}
	if rt.Retains() != rt.Releases() {
		t.Errorf("Counters unbalanced: %d retains, %d releases", rt.Retains(), rt.Releases())
	}
}

// TestSampleImageIsIndependentlyOwned verifies the reference handed out by
// SampleImage keeps the pixel buffer alive after the sample dies.
func TestSampleImageIsIndependentlyOwned(t *testing.T) {
	rt := NewRuntime()
	res := rt.NewVideoSample(VideoSampleConfig{Width: 32, Height: 32, Format: capturekit.PixelFormat420V})

	img := rt.SampleImage(res)
	if img == 0 {
		t.Fatal("SampleImage returned null for a video sample")
	}
	rt.Release(res)

	if got := rt.ImageWidth(img); got != 32 {
		t.Errorf("Expected width 32 after sample release, got %d", got)
	}
	rt.Release(img)

	if got := rt.Live(); got != 0 {
		t.Errorf("Expected no live objects, got %d", got)
	}
	if rt.Retains() != rt.Releases() {
		t.Errorf("Counters unbalanced: %d retains, %d releases", rt.Retains(), rt.Releases())
	}
}

// TestBiplanarLayout verifies the plane geometry for 4:2:0, including odd
// dimensions rounding up.
func TestBiplanarLayout(t *testing.T) {
	rt := NewRuntime()
	res := rt.NewVideoSample(VideoSampleConfig{Width: 1919, Height: 1079, Format: capturekit.PixelFormat420V})
	img := rt.SampleImage(res)
	rt.Release(res)
	defer rt.Release(img)

	if got := rt.PlaneCount(img); got != 2 {
		t.Fatalf("Expected 2 planes, got %d", got)
	}
	luma, _ := rt.Plane(img, 0)
	if luma.Width != 1919 || luma.Height != 1079 || luma.BytesPerRow != 1919 {
		t.Errorf("Unexpected luma geometry: %+v", luma)
	}
	chroma, _ := rt.Plane(img, 1)
	if chroma.Width != 960 || chroma.Height != 540 {
		t.Errorf("Expected 960x540 chroma, got %dx%d", chroma.Width, chroma.Height)
	}
	if chroma.BytesPerElement != 2 || chroma.Offset != luma.Size {
		t.Errorf("Unexpected chroma layout: %+v", chroma)
	}
	if _, ok := rt.Plane(img, 2); ok {
		t.Error("Plane 2 should not exist")
	}
}

// TestAudioSampleHasNoImage verifies audio samples report a null image and
// return their buffer list.
func TestAudioSampleHasNoImage(t *testing.T) {
	rt := NewRuntime()
	list := capturekit.AudioBufferList{Buffers: []capturekit.AudioBuffer{
		{Channels: 1, Data: make([]byte, 1920)},
		{Channels: 1, Data: make([]byte, 1920)},
	}}
	res := rt.NewAudioSample(list, 480, capturekit.NewMediaTime(0, 48000))
	defer rt.Release(res)

	if img := rt.SampleImage(res); img != 0 {
		t.Errorf("Expected null image, got %#x", uintptr(img))
	}
	got, ok := rt.SampleAudio(res)
	if !ok || got.Len() != 2 {
		t.Fatalf("Expected 2 audio buffers, got %d (ok=%v)", got.Len(), ok)
	}
	if rt.SampleCount(res) != 480 {
		t.Errorf("Expected 480 frames, got %d", rt.SampleCount(res))
	}
}

// TestMisusePanics verifies the table panics on the raw mistakes a native
// runtime would corrupt state over.
func TestMisusePanics(t *testing.T) {
	rt := NewRuntime()
	res := rt.NewVideoSample(VideoSampleConfig{Width: 8, Height: 8, Format: capturekit.PixelFormatBGRA})
	img := rt.SampleImage(res)

	expectPanic(t, "releasing a dead reference", func() {
		rt.Release(res)
		rt.Release(res)
	})
	expectPanic(t, "contents without a lock", func() {
		rt.Contents(img)
	})
	if err := rt.Lock(img, capturekit.LockReadOnly); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	expectPanic(t, "unlock with mismatched flags", func() {
		rt.Unlock(img, 0)
	})
	if err := rt.Unlock(img, capturekit.LockReadOnly); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	expectPanic(t, "destroying a locked buffer", func() {
		rt.Lock(img, capturekit.LockReadOnly)
		rt.Release(img)
	})
}

// TestFailNextLock verifies lock failure injection returns a LockError once.
func TestFailNextLock(t *testing.T) {
	rt := NewRuntime()
	res := rt.NewVideoSample(VideoSampleConfig{Width: 8, Height: 8, Format: capturekit.PixelFormatBGRA})
	defer rt.Release(res)
	img := rt.SampleImage(res)
	defer rt.Release(img)

	rt.FailNextLock(-6683)
	err := rt.Lock(img, capturekit.LockReadOnly)
	var lockErr *capturekit.LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockError, got %v", err)
	}
	if lockErr.Status != -6683 {
		t.Errorf("Expected status -6683, got %d", lockErr.Status)
	}

	if err := rt.Lock(img, capturekit.LockReadOnly); err != nil {
		t.Fatalf("Second lock failed: %v", err)
	}
	rt.Unlock(img, capturekit.LockReadOnly)
}

// TestDeviceRecordsAndValidates verifies the device records descriptors in
// order and rejects non-surface resources.
func TestDeviceRecordsAndValidates(t *testing.T) {
	rt := NewRuntime()
	dev := NewDevice(rt)
	res := rt.NewVideoSample(VideoSampleConfig{Width: 16, Height: 16, Format: capturekit.PixelFormat420V})
	defer rt.Release(res)
	img := rt.SampleImage(res)
	defer rt.Release(img)
	surf := rt.DeriveSurface(img)
	defer rt.Release(surf)

	if _, err := dev.CreateTexture(capturekit.TextureDescriptor{
		Surface: surf, Plane: 0, Format: capturekit.TextureFormatR8Unorm, Width: 16, Height: 16,
	}); err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	if _, err := dev.CreateTexture(capturekit.TextureDescriptor{
		Surface: img, Plane: 0, Format: capturekit.TextureFormatR8Unorm, Width: 16, Height: 16,
	}); err == nil {
		t.Error("Expected error for a non-surface resource")
	}
	if _, err := dev.CreateTexture(capturekit.TextureDescriptor{
		Surface: surf, Plane: 0, Format: capturekit.TextureFormatR8Unorm, Width: 0, Height: 16,
	}); err == nil {
		t.Error("Expected error for an empty extent")
	}

	created := dev.Created()
	if len(created) != 1 {
		t.Fatalf("Expected 1 recorded descriptor, got %d", len(created))
	}
	if created[0].Format != capturekit.TextureFormatR8Unorm || created[0].Plane != 0 {
		t.Errorf("Unexpected descriptor: %+v", created[0])
	}
}
