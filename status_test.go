package capturekit

import "testing"

// TestFrameStatusFromRaw verifies the attachment range check.
func TestFrameStatusFromRaw(t *testing.T) {
	if s, ok := FrameStatusFromRaw(0); !ok || s != FrameStatusComplete {
		t.Errorf("Expected complete, got %v (ok=%v)", s, ok)
	}
	if s, ok := FrameStatusFromRaw(5); !ok || s != FrameStatusStopped {
		t.Errorf("Expected stopped, got %v (ok=%v)", s, ok)
	}
	if _, ok := FrameStatusFromRaw(6); ok {
		t.Error("Value 6 should be rejected")
	}
	if _, ok := FrameStatusFromRaw(-1); ok {
		t.Error("Negative values should be rejected")
	}
}

// TestFrameStatusHasContent verifies only complete and started frames carry
// pixels worth presenting.
func TestFrameStatusHasContent(t *testing.T) {
	withContent := map[FrameStatus]bool{
		FrameStatusComplete:  true,
		FrameStatusIdle:      false,
		FrameStatusBlank:     false,
		FrameStatusSuspended: false,
		FrameStatusStarted:   true,
		FrameStatusStopped:   false,
	}
	for status, want := range withContent {
		if got := status.HasContent(); got != want {
			t.Errorf("%s: HasContent = %v, want %v", status, got, want)
		}
	}
}

// TestFrameStatusString verifies the names and the out-of-range form.
func TestFrameStatusString(t *testing.T) {
	if got := FrameStatusSuspended.String(); got != "suspended" {
		t.Errorf("Expected %q, got %q", "suspended", got)
	}
	if got := FrameStatus(42).String(); got != "status(42)" {
		t.Errorf("Expected %q, got %q", "status(42)", got)
	}
}
