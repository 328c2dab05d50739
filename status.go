package capturekit

import "fmt"

// FrameStatus classifies why the runtime did (or did not) produce a new frame.
type FrameStatus int

const (
	// FrameStatusComplete indicates a successfully generated new frame.
	FrameStatusComplete FrameStatus = iota
	// FrameStatusIdle indicates the display content did not change.
	FrameStatusIdle
	// FrameStatusBlank indicates the display is blank.
	FrameStatusBlank
	// FrameStatusSuspended indicates updates were suspended by the consumer.
	FrameStatusSuspended
	// FrameStatusStarted indicates the first frame after the stream started.
	FrameStatusStarted
	// FrameStatusStopped indicates the stream is stopping.
	FrameStatusStopped
)

// FrameStatusFromRaw converts a raw attachment value, rejecting out-of-range
// input.
func FrameStatusFromRaw(v int64) (FrameStatus, bool) {
	if v < int64(FrameStatusComplete) || v > int64(FrameStatusStopped) {
		return 0, false
	}
	return FrameStatus(v), true
}

// HasContent reports whether the frame carries displayable pixels.
func (s FrameStatus) HasContent() bool {
	return s == FrameStatusComplete || s == FrameStatusStarted
}

func (s FrameStatus) String() string {
	switch s {
	case FrameStatusComplete:
		return "complete"
	case FrameStatusIdle:
		return "idle"
	case FrameStatusBlank:
		return "blank"
	case FrameStatusSuspended:
		return "suspended"
	case FrameStatusStarted:
		return "started"
	case FrameStatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
