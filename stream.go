package capturekit

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Channel identifies one output of a capture stream.
type Channel int

const (
	ChannelVideo Channel = iota
	ChannelSystemAudio
	ChannelMicrophone
)

func (c Channel) String() string {
	switch c {
	case ChannelVideo:
		return "video"
	case ChannelSystemAudio:
		return "system-audio"
	case ChannelMicrophone:
		return "microphone"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// HandlerID names one registration. IDs are process-wide unique and are never
// reused, so a stale unregister can never remove somebody else's handler.
type HandlerID uint64

// nextHandlerID is shared by all streams; the first allocated ID is 1, 0
// stays the "not registered" value.
var nextHandlerID uint64

// Handler consumes delivered samples. The handle passed to HandleBuffer is
// owned by the dispatcher and released when the callback returns; a handler
// that wants the sample to outlive the callback clones it.
type Handler interface {
	HandleBuffer(h *SampleHandle, ch Channel)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(h *SampleHandle, ch Channel)

func (f HandlerFunc) HandleBuffer(h *SampleHandle, ch Channel) { f(h, ch) }

type handlerEntry struct {
	id HandlerID
	h  Handler
}

// StreamStats is a snapshot of a stream's delivery counters. Once queued
// dispatches finish, Delivered equals NullRefs + Dispatched + NoHandler +
// Dropped: every sample entering Deliver lands in exactly one bucket.
type StreamStats struct {
	Delivered  int64 // samples entering Deliver on an open stream
	NullRefs   int64 // deliveries carrying the null resource
	Dispatched int64 // samples fanned out to at least one handler
	Fanout     int64 // handler callbacks invoked
	NoHandler  int64 // samples released because the channel had no handlers
	Dropped    int64 // samples released because the queue was full or closed
}

// Stream fans captured samples out to registered consumers per channel.
// Registration and delivery are safe to call from any goroutine; callbacks
// run serially on the stream's dispatch queue, in registration order.
type Stream struct {
	id       string
	rt       Runtime
	queue    *SerialQueue
	ownQueue bool

	mu       sync.RWMutex
	closed   bool
	handlers map[Channel][]handlerEntry

	delivered  int64
	nullRefs   int64
	dispatched int64
	fanout     int64
	noHandler  int64
	dropped    int64
}

// NewStream creates a stream with its own dispatch queue, closed together
// with the stream.
func NewStream(rt Runtime) *Stream {
	s := NewStreamWithQueue(rt, NewSerialQueue("capturekit.stream", 32))
	s.ownQueue = true
	return s
}

// NewStreamWithQueue creates a stream that dispatches on the caller's queue;
// the caller keeps ownership of it. A nil queue dispatches synchronously on
// the delivering goroutine.
func NewStreamWithQueue(rt Runtime, q *SerialQueue) *Stream {
	return &Stream{
		id:       uuid.New().String(),
		rt:       rt,
		queue:    q,
		handlers: make(map[Channel][]handlerEntry),
	}
}

// ID is the stream's unique identifier.
func (s *Stream) ID() string { return s.id }

// Register adds consumer to ch and returns the registration's id. The
// consumer starts receiving with the next dispatch, never mid-dispatch. A nil
// consumer (or a closed stream) reports 0.
func (s *Stream) Register(ch Channel, consumer Handler) HandlerID {
	if consumer == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	id := HandlerID(atomic.AddUint64(&nextHandlerID, 1))
	s.handlers[ch] = append(s.handlers[ch], handlerEntry{id: id, h: consumer})
	return id
}

// Unregister removes registration id from ch and reports whether it was
// present. A dispatch already in flight keeps its snapshot and still delivers
// to the removed handler once.
func (s *Stream) Unregister(id HandlerID, ch Channel) bool {
	if id == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.handlers[ch]
	for i, e := range list {
		if e.id == id {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = handlerEntry{}
			s.handlers[ch] = list[:len(list)-1]
			return true
		}
	}
	return false
}

// HandlerCount reports how many handlers are registered on ch.
func (s *Stream) HandlerCount(ch Channel) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[ch])
}

// snapshot copies ch's handler list so dispatch never holds the registry lock
// while callbacks run. ok is false once the stream is closed.
func (s *Stream) snapshot(ch Channel) (entries []handlerEntry, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false
	}
	list := s.handlers[ch]
	if len(list) == 0 {
		return nil, true
	}
	entries = make([]handlerEntry, len(list))
	copy(entries, list)
	return entries, true
}

// Stats returns the current delivery counters.
func (s *Stream) Stats() StreamStats {
	return StreamStats{
		Delivered:  atomic.LoadInt64(&s.delivered),
		NullRefs:   atomic.LoadInt64(&s.nullRefs),
		Dispatched: atomic.LoadInt64(&s.dispatched),
		Fanout:     atomic.LoadInt64(&s.fanout),
		NoHandler:  atomic.LoadInt64(&s.noHandler),
		Dropped:    atomic.LoadInt64(&s.dropped),
	}
}

// Close stops delivery and drops all registrations. Samples already accepted
// onto the stream's own queue are still dispatched (and their references
// released) before Close returns.
func (s *Stream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.handlers = nil
	s.mu.Unlock()
	if s.ownQueue && s.queue != nil {
		s.queue.Close()
	}
}
