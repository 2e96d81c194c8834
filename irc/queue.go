package irc

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// LineQueue is an unbounded, goroutine-safe FIFO of raw lines.
type LineQueue struct {
	mu     sync.Mutex
	items  deque.Deque[[]byte]
	notify chan struct{}
}

// NewLineQueue returns an empty queue.
func NewLineQueue() *LineQueue {
	return &LineQueue{notify: make(chan struct{}, 1)}
}

// Push appends line to the back of the queue. It never blocks.
func (q *LineQueue) Push(line []byte) {
	q.mu.Lock()
	q.items.PushBack(line)
	q.mu.Unlock()
	q.wake()
}

// Pop removes the front line. It waits at most timeout for one to arrive and gives up
// early when cancel is closed. ok is false when no line was available.
// A timeout <= 0 makes Pop non-blocking.
func (q *LineQueue) Pop(timeout time.Duration, cancel <-chan struct{}) (line []byte, ok bool) {
	if line, ok = q.tryPop(); ok || timeout <= 0 {
		return line, ok
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.notify:
			if line, ok = q.tryPop(); ok {
				return line, true
			}
		case <-timer.C:
			return q.tryPop()
		case <-cancel:
			return q.tryPop()
		}
	}
}

// Len reports the number of queued lines.
func (q *LineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *LineQueue) tryPop() ([]byte, bool) {
	q.mu.Lock()
	if q.items.Len() == 0 {
		q.mu.Unlock()
		return nil, false
	}
	line := q.items.PopFront()
	more := q.items.Len() > 0
	q.mu.Unlock()
	if more {
		// another waiter may be parked on notify
		q.wake()
	}
	return line, true
}

func (q *LineQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
