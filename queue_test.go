package capturekit_test

import (
	"errors"
	"testing"
	"time"

	"capturekit"
)

// TestSerialQueueRunsInOrder verifies tasks run serially in submission order.
func TestSerialQueueRunsInOrder(t *testing.T) {
	q := capturekit.NewSerialQueue("test.order", 128)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if err := q.Async(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Async failed at %d: %v", i, err)
		}
	}
	q.Close()

	if len(got) != 100 {
		t.Fatalf("Expected 100 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Task %d ran out of order (got %d)", i, v)
		}
	}
}

// TestSerialQueueNeverBlocks verifies a full backlog rejects the new task
// instead of stalling the submitter.
func TestSerialQueueNeverBlocks(t *testing.T) {
	q := capturekit.NewSerialQueue("test.full", 1)
	defer q.Close()

	started := make(chan struct{})
	unblock := make(chan struct{})
	if err := q.Async(func() { close(started); <-unblock }); err != nil {
		t.Fatalf("Async failed: %v", err)
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Worker never started")
	}

	if err := q.Async(func() {}); err != nil {
		t.Fatalf("Backlog slot should be free: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Async(func() {}) }()
	select {
	case err := <-done:
		if !errors.Is(err, capturekit.ErrQueueFull) {
			t.Errorf("Expected ErrQueueFull, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Async blocked on a full queue")
	}

	close(unblock)
}

// TestSerialQueueCloseDrains verifies Close runs everything already accepted
// before returning, and rejects submissions afterwards.
func TestSerialQueueCloseDrains(t *testing.T) {
	q := capturekit.NewSerialQueue("test.drain", 64)

	var ran int
	for i := 0; i < 50; i++ {
		if err := q.Async(func() { ran++ }); err != nil {
			t.Fatalf("Async failed: %v", err)
		}
	}
	q.Close()
	if ran != 50 {
		t.Errorf("Expected 50 tasks drained, got %d", ran)
	}

	if err := q.Async(func() {}); !errors.Is(err, capturekit.ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
	q.Close() // second close is a no-op

	if q.Label() != "test.drain" {
		t.Errorf("Unexpected label %q", q.Label())
	}
	if err := q.Async(nil); err != nil {
		t.Errorf("Nil task should be ignored, got %v", err)
	}
}
