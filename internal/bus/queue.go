package bus

import "time"

// Queue is a bounded signal queue. Put blocks up to its timeout when the
// queue is full; Get polls with a short timeout so callers can notice a
// stop flag between receives.
type Queue struct {
	ch chan Signal
}

// NewQueue creates a queue holding up to capacity signals.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{ch: make(chan Signal, capacity)}
}

// Put enqueues a signal, waiting up to timeout for space. Returns false
// when the queue stayed full.
func (q *Queue) Put(s Signal, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case q.ch <- s:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case q.ch <- s:
		return true
	case <-t.C:
		return false
	}
}

// Get dequeues a signal, waiting up to timeout. The second return is
// false when the wait expired.
func (q *Queue) Get(timeout time.Duration) (Signal, bool) {
	if timeout <= 0 {
		select {
		case s := <-q.ch:
			return s, true
		default:
			return Signal{}, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s := <-q.ch:
		return s, true
	case <-t.C:
		return Signal{}, false
	}
}

// Drain returns every signal currently queued without blocking.
func (q *Queue) Drain() []Signal {
	var out []Signal
	for {
		select {
		case s := <-q.ch:
			out = append(out, s)
		default:
			return out
		}
	}
}

// Len reports the number of queued signals.
func (q *Queue) Len() int { return len(q.ch) }
