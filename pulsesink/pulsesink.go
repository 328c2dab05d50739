// Package pulsesink plays captured system audio back through PulseAudio. It
// is a stream consumer: register a Sink on an audio channel and every
// delivered sample's PCM is queued for the playback stream. The PCM is copied
// out inside the callback, so the sink never has to clone handles; when
// playback falls behind, the oldest queued audio is dropped.
package pulsesink

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"

	"capturekit"
)

const (
	defaultRate     = 48000
	defaultChannels = 2
)

type Config struct {
	// AppName is the client name shown in the PulseAudio mixer.
	AppName    string
	SampleRate int
	Channels   int // 1 or 2
	// MaxBuffer caps the queue in frames per channel; older audio is
	// dropped past it. 0 means one second.
	MaxBuffer int
}

// Sink queues delivered audio and feeds it to a PulseAudio playback stream.
type Sink struct {
	client   *pulse.Client
	stream   *pulse.PlaybackStream
	channels int

	mu     sync.Mutex
	buf    []float32 // interleaved
	max    int
	closed bool

	samples int64
	dropped int64
}

// New connects to PulseAudio and starts a playback stream fed by the sink's
// queue (silence while the queue is empty).
func New(cfg Config) (*Sink, error) {
	if cfg.AppName == "" {
		cfg.AppName = "capturekit"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultRate
	}
	if cfg.Channels <= 0 || cfg.Channels > 2 {
		cfg.Channels = defaultChannels
	}
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = cfg.SampleRate
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName(cfg.AppName),
	)
	if err != nil {
		return nil, fmt.Errorf("pulse connect: %w", err)
	}

	s := &Sink{
		client:   client,
		channels: cfg.Channels,
		max:      cfg.MaxBuffer * cfg.Channels,
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(cfg.SampleRate),
		pulse.PlaybackLatency(0.05),
	}
	if cfg.Channels == 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}
	stream, err := client.NewPlayback(pulse.Float32Reader(s.read), opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("pulse playback: %w", err)
	}
	s.stream = stream
	stream.Start()
	log.Printf("pulsesink: playing to %s at %d Hz, %d channels", cfg.AppName, cfg.SampleRate, cfg.Channels)
	return s, nil
}

// HandleBuffer implements capturekit.Handler.
func (s *Sink) HandleBuffer(h *capturekit.SampleHandle, ch capturekit.Channel) {
	list, ok := h.AudioBuffers()
	if !ok {
		return
	}
	pcm := interleave(list, s.channels)
	if len(pcm) == 0 {
		return
	}
	atomic.AddInt64(&s.samples, int64(len(pcm)))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buf = append(s.buf, pcm...)
	if over := len(s.buf) - s.max; over > 0 {
		// Trim whole frames so channels stay aligned.
		over = (over + s.channels - 1) / s.channels * s.channels
		s.buf = s.buf[over:]
		atomic.AddInt64(&s.dropped, int64(over))
	}
}

// read feeds the playback stream, padding with silence when the queue runs
// dry so the stream keeps rolling between samples.
func (s *Sink) read(out []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, pulse.EndOfData
	}
	n := copy(out, s.buf)
	s.buf = s.buf[n:]
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return len(out), nil
}

// Samples is the total number of interleaved samples accepted.
func (s *Sink) Samples() int64 { return atomic.LoadInt64(&s.samples) }

// Dropped is the number of samples discarded because playback fell behind.
func (s *Sink) Dropped() int64 { return atomic.LoadInt64(&s.dropped) }

// Close stops playback and disconnects. The handler becomes a no-op.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.buf = nil
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
	}
	if s.client != nil {
		s.client.Close()
	}
}

// interleave flattens a buffer list into interleaved float32 frames for the
// given channel count. Runtimes deliver either one interleaved buffer or one
// mono buffer per channel; both little-endian float32.
func interleave(list capturekit.AudioBufferList, channels int) []float32 {
	if list.Len() == 0 {
		return nil
	}
	if list.Len() == 1 {
		buf, _ := list.Buffer(0)
		samples := decodeFloat32(buf.Data)
		if buf.Channels == channels || buf.Channels > 2 || buf.Channels <= 0 {
			return samples
		}
		if buf.Channels == 1 && channels == 2 {
			return monoToStereo(samples)
		}
		// Stereo source into a mono sink: keep the left channel.
		out := make([]float32, 0, len(samples)/buf.Channels)
		for i := 0; i+buf.Channels <= len(samples); i += buf.Channels {
			out = append(out, samples[i])
		}
		return out
	}

	// Per-channel mono buffers: weave the first `channels` together.
	take := channels
	if list.Len() < take {
		take = list.Len()
	}
	chans := make([][]float32, take)
	frames := -1
	for c := 0; c < take; c++ {
		buf, _ := list.Buffer(c)
		chans[c] = decodeFloat32(buf.Data)
		if frames < 0 || len(chans[c]) < frames {
			frames = len(chans[c])
		}
	}
	if frames <= 0 {
		return nil
	}
	out := make([]float32, frames*take)
	for f := 0; f < frames; f++ {
		for c := 0; c < take; c++ {
			out[f*take+c] = chans[c][f]
		}
	}
	if take == 1 && channels == 2 {
		return monoToStereo(out)
	}
	return out
}

func monoToStereo(samples []float32) []float32 {
	out := make([]float32, 2*len(samples))
	for i, v := range samples {
		out[2*i] = v
		out[2*i+1] = v
	}
	return out
}

func decodeFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i : 4*i+4]))
	}
	return out
}
