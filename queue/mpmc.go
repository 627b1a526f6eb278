package queue

import "sync"

// MPMC is a bounded multi-producer/multi-consumer ring used for
// cross-worker fan-out (spec §4.3). The reference corpus has no
// lock-free MPMC implementation to ground this on, so it is built from
// sync.Mutex + sync.Cond rather than atomics (see DESIGN.md).
type MPMC struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []Item
	head     int
	tail     int
	count    int
	closed   bool

	dropped   uint64
	delivered uint64
}

// NewMPMC creates an MPMC ring of the given capacity.
func NewMPMC(capacity int) *MPMC {
	if capacity < 1 {
		capacity = 1
	}
	q := &MPMC{buf: make([]Item, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Send blocks until there is room, the queue is closed, or the item is
// enqueued. Returns false if the queue was closed first.
func (q *MPMC) Send(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == len(q.buf) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return false
	}
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.notEmpty.Signal()
	return true
}

// TrySend enqueues without blocking; returns false if full or closed.
func (q *MPMC) TrySend(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.count == len(q.buf) {
		q.dropped++
		return false
	}
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.notEmpty.Signal()
	return true
}

// Receive blocks until an item is available or the queue is closed and
// drained. Returns false once closed and empty.
func (q *MPMC) Receive() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if q.count == 0 {
		return nil, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.delivered++
	q.notFull.Signal()
	return item, true
}

// Close marks the queue closed, waking any blocked Send/Receive calls.
func (q *MPMC) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Stats returns a snapshot of this ring's utilization.
func (q *MPMC) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Capacity:  len(q.buf),
		Len:       q.count,
		Dropped:   q.dropped,
		Delivered: q.delivered,
	}
}
