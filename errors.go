package capturekit

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull means the backlog was at capacity and the task was
	// rejected.
	ErrQueueFull = errors.New("capturekit: queue full")
	// ErrQueueClosed means the queue no longer accepts tasks.
	ErrQueueClosed = errors.New("capturekit: queue closed")
	// ErrStreamClosed means the stream no longer delivers frames.
	ErrStreamClosed = errors.New("capturekit: stream closed")
	// ErrOutOfRange marks a position or index outside the valid extent.
	ErrOutOfRange = errors.New("capturekit: out of range")
)

// LockError is a failed buffer or surface lock. Status is the runtime's
// native status code. After a failed lock no guard exists and no unlock is
// owed; for per-frame work the right response is to skip the frame.
type LockError struct {
	Status int
}

func (e *LockError) Error() string {
	return fmt.Sprintf("capturekit: lock failed with status %d", e.Status)
}
