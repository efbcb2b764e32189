package connmgr

import "context"

// fifoQueue is an exclusive-acquire primitive that serves waiters in
// strict arrival order (spec.md §5 "Writer acquisitions are served in FIFO
// order of arrival; starvation-free").
//
// Adapted from the teacher's internal/engine.eventQueue: the same
// mutex-guarded slice plus channel-signalling shape, but here the slice
// holds waiter tickets rather than buffered events, and release hands the
// resource to exactly one waiter instead of broadcasting availability.
type fifoQueue struct {
	mu      chan struct{} // 1-buffered mutex; see lock/unlock below
	held    bool
	waiters []chan struct{}
}

func newFIFOQueue() *fifoQueue {
	q := &fifoQueue{mu: make(chan struct{}, 1)}
	q.mu <- struct{}{}
	return q
}

func (q *fifoQueue) lock()   { <-q.mu }
func (q *fifoQueue) unlock() { q.mu <- struct{}{} }

// acquire blocks until the resource is held by the caller, or ctx is
// cancelled first. A cancelled acquisition releases its queue slot
// (spec.md §5 "Cancellation and timeouts").
func (q *fifoQueue) acquire(ctx context.Context) error {
	q.lock()
	if !q.held {
		q.held = true
		q.unlock()
		return nil
	}
	ticket := make(chan struct{})
	q.waiters = append(q.waiters, ticket)
	q.unlock()

	select {
	case <-ticket:
		return nil
	case <-ctx.Done():
		q.cancel(ticket)
		return ctx.Err()
	}
}

// cancel removes ticket from the wait list if it hasn't been granted yet.
// If it raced with a grant (ticket already closed), the resource was
// handed to this ticket and must be released on the caller's behalf so it
// passes to the next waiter instead of leaking as permanently held.
func (q *fifoQueue) cancel(ticket chan struct{}) {
	q.lock()
	for i, w := range q.waiters {
		if w == ticket {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			q.unlock()
			return
		}
	}
	q.unlock()

	select {
	case <-ticket:
		q.release()
	default:
	}
}

// release hands the resource to the next FIFO waiter, or marks it free if
// none are waiting.
func (q *fifoQueue) release() {
	q.lock()
	defer q.unlock()
	if len(q.waiters) == 0 {
		q.held = false
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(next)
}
