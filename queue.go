package capturekit

import "sync"

// SerialQueue runs tasks one at a time, in submission order, on a single
// worker goroutine. Submission never blocks: a full backlog rejects the new
// task so a frame producer can drop work instead of stalling the delivery
// thread.
type SerialQueue struct {
	label string

	mu     sync.Mutex
	closed bool
	tasks  chan func()
	wg     sync.WaitGroup
}

// NewSerialQueue starts the worker goroutine. depth is the backlog capacity;
// values <= 0 get a default of 32.
func NewSerialQueue(label string, depth int) *SerialQueue {
	if depth <= 0 {
		depth = 32
	}
	q := &SerialQueue{
		label: label,
		tasks: make(chan func(), depth),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *SerialQueue) Label() string { return q.label }

func (q *SerialQueue) run() {
	defer q.wg.Done()
	for task := range q.tasks {
		task()
	}
}

// Async submits a task. It returns ErrQueueFull when the backlog is at
// capacity and ErrQueueClosed after Close; in both cases the task will never
// run and the caller still owns whatever it captured.
func (q *SerialQueue) Async(task func()) error {
	if task == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks, runs everything already accepted, and waits
// for the worker to finish. Safe to call more than once.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()
	q.wg.Wait()
}
