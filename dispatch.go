package capturekit

import (
	"errors"
	"sync/atomic"
)

// Deliver hands one runtime-owned sample to the stream. The runtime's implicit
// reference is only valid for the duration of the call, so Deliver acquires
// its own reference before returning; the dispatch path owns it from then on
// and releases it when fan-out completes. The null resource is ignored.
//
// Deliver never blocks. When the dispatch queue is full the sample is skipped
// and counted, and ErrQueueFull comes back so the producer can notice; the
// stream itself stays healthy.
func (s *Stream) Deliver(res Resource, ch Channel) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrStreamClosed
	}
	atomic.AddInt64(&s.delivered, 1)

	h, ok := AcquireSample(s.rt, res)
	if !ok {
		atomic.AddInt64(&s.nullRefs, 1)
		return nil
	}
	if s.queue == nil {
		s.dispatch(h, ch)
		return nil
	}
	if err := s.queue.Async(func() { s.dispatch(h, ch) }); err != nil {
		h.Release()
		atomic.AddInt64(&s.dropped, 1)
		if errors.Is(err, ErrQueueClosed) {
			return ErrStreamClosed
		}
		return err
	}
	return nil
}

// dispatch fans one owned sample out to the handlers registered on ch when
// the dispatch starts. The first n-1 handlers each get their own clone and
// the last gets the original, so exactly n references are handed out; each
// one is released when its callback returns. With no handlers the sample is
// released immediately.
//
// A panicking handler still has its reference released before the panic
// unwinds, and the original is released on the way out, so the external count
// stays balanced; handlers after the panicking one are skipped and the panic
// propagates to the queue worker.
func (s *Stream) dispatch(h *SampleHandle, ch Channel) {
	entries, ok := s.snapshot(ch)
	if !ok {
		h.Release()
		atomic.AddInt64(&s.dropped, 1)
		return
	}
	if len(entries) == 0 {
		h.Release()
		atomic.AddInt64(&s.noHandler, 1)
		return
	}
	atomic.AddInt64(&s.dispatched, 1)

	delivered := false
	defer func() {
		if !delivered {
			h.Release()
		}
	}()
	last := len(entries) - 1
	for i, e := range entries {
		if i == last {
			delivered = true
			s.invoke(e.h, h, ch)
		} else {
			s.invoke(e.h, h.Clone(), ch)
		}
	}
}

// invoke runs one callback and releases its handle when the callback returns,
// panicking or not.
func (s *Stream) invoke(handler Handler, h *SampleHandle, ch Channel) {
	defer h.Release()
	atomic.AddInt64(&s.fanout, 1)
	handler.HandleBuffer(h, ch)
}
