package pulsesink

import (
	"encoding/binary"
	"math"
	"testing"

	"capturekit"
	"capturekit/internal/sim"
)

func pcmBytes(samples ...float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// TestInterleaveWeavesChannelBuffers verifies per-channel mono buffers come
// out frame-interleaved.
func TestInterleaveWeavesChannelBuffers(t *testing.T) {
	list := capturekit.AudioBufferList{Buffers: []capturekit.AudioBuffer{
		{Channels: 1, Data: pcmBytes(1, 2, 3)},
		{Channels: 1, Data: pcmBytes(10, 20, 30)},
	}}
	got := interleave(list, 2)
	want := []float32{1, 10, 2, 20, 3, 30}
	if len(got) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

// TestInterleavePassesInterleavedThrough verifies an already-interleaved
// stereo buffer is untouched and a mono buffer is doubled up for stereo.
func TestInterleavePassesInterleavedThrough(t *testing.T) {
	stereo := capturekit.AudioBufferList{Buffers: []capturekit.AudioBuffer{
		{Channels: 2, Data: pcmBytes(1, 10, 2, 20)},
	}}
	got := interleave(stereo, 2)
	if len(got) != 4 || got[1] != 10 || got[3] != 20 {
		t.Errorf("Interleaved passthrough mangled: %v", got)
	}

	mono := capturekit.AudioBufferList{Buffers: []capturekit.AudioBuffer{
		{Channels: 1, Data: pcmBytes(5, 6)},
	}}
	got = interleave(mono, 2)
	want := []float32{5, 5, 6, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Mono upmix wrong: %v", got)
		}
	}
}

// TestSinkQueueDropsOldest verifies the queue trims from the front in whole
// frames once it passes its cap.
func TestSinkQueueDropsOldest(t *testing.T) {
	rt := sim.NewRuntime()
	s := &Sink{channels: 2, max: 8}

	deliver := func(left, right []float32) {
		buffers := capturekit.AudioBufferList{Buffers: []capturekit.AudioBuffer{
			{Channels: 1, Data: pcmBytes(left...)},
			{Channels: 1, Data: pcmBytes(right...)},
		}}
		res := rt.NewAudioSample(buffers, len(left), capturekit.MediaTimeZero)
		h, ok := capturekit.AcquireSample(rt, res)
		if !ok {
			t.Fatal("AcquireSample failed")
		}
		rt.Release(res)
		s.HandleBuffer(h, capturekit.ChannelSystemAudio)
		h.Release()
	}

	deliver([]float32{1, 2, 3}, []float32{-1, -2, -3})
	if len(s.buf) != 6 {
		t.Fatalf("Expected 6 queued samples, got %d", len(s.buf))
	}
	deliver([]float32{4, 5, 6}, []float32{-4, -5, -6})

	if len(s.buf) != 8 {
		t.Fatalf("Expected queue capped at 8, got %d", len(s.buf))
	}
	// The oldest two frames were dropped; the queue starts at frame 3.
	if s.buf[0] != 3 || s.buf[1] != -3 {
		t.Errorf("Expected queue to start at frame 3, got %v", s.buf[:2])
	}
	if s.Dropped() != 4 {
		t.Errorf("Expected 4 dropped samples, got %d", s.Dropped())
	}
	if rt.Live() != 0 {
		t.Errorf("Sink leaked samples: %d live", rt.Live())
	}
}

// TestSinkReadDrainsAndPadsSilence verifies the playback reader empties the
// queue and fills the remainder with zeros.
func TestSinkReadDrainsAndPadsSilence(t *testing.T) {
	s := &Sink{channels: 2, max: 64}
	s.buf = []float32{1, 2, 3}

	out := make([]float32, 6)
	n, err := s.read(out)
	if err != nil || n != 6 {
		t.Fatalf("read returned %d, %v", n, err)
	}
	if out[0] != 1 || out[2] != 3 || out[3] != 0 || out[5] != 0 {
		t.Errorf("Unexpected output %v", out)
	}
	if len(s.buf) != 0 {
		t.Errorf("Queue not drained: %v", s.buf)
	}

	s.closed = true
	if _, err := s.read(out); err == nil {
		t.Error("Expected end-of-data after close")
	}
}

// TestSinkIgnoresVideoSamples verifies a sample without audio is a no-op.
func TestSinkIgnoresVideoSamples(t *testing.T) {
	rt := sim.NewRuntime()
	s := &Sink{channels: 2, max: 16}

	res := rt.NewVideoSample(sim.VideoSampleConfig{Width: 8, Height: 8, Format: capturekit.PixelFormatBGRA})
	h, _ := capturekit.AcquireSample(rt, res)
	rt.Release(res)
	s.HandleBuffer(h, capturekit.ChannelVideo)
	h.Release()

	if len(s.buf) != 0 || s.Samples() != 0 {
		t.Errorf("Video sample queued audio: %d samples", len(s.buf))
	}
	if rt.Live() != 0 {
		t.Errorf("Leak: %d live", rt.Live())
	}
}
