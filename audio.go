package capturekit

import "fmt"

// AudioBuffer is one buffer of an audio sample: a contiguous run of PCM data
// for Channels interleaved channels (runtimes typically deliver one mono
// buffer per channel). Data aliases runtime memory and is valid only while the
// sample handle it came from is alive.
type AudioBuffer struct {
	Channels int
	Data     []byte
}

func (b AudioBuffer) String() string {
	return fmt.Sprintf("AudioBuffer(%d channels, %d bytes)", b.Channels, len(b.Data))
}

// AudioBufferList is the set of buffers carried by one audio sample.
type AudioBufferList struct {
	Buffers []AudioBuffer
}

func (l AudioBufferList) Len() int { return len(l.Buffers) }

// Buffer returns buffer i, reporting false when i is out of range.
func (l AudioBufferList) Buffer(i int) (AudioBuffer, bool) {
	if i < 0 || i >= len(l.Buffers) {
		return AudioBuffer{}, false
	}
	return l.Buffers[i], true
}

func (l AudioBufferList) String() string {
	return fmt.Sprintf("AudioBufferList(%d buffers)", len(l.Buffers))
}
