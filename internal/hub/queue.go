package hub

import "sync"

// queue is an unbounded FIFO ring that doubles its capacity when it is
// 70% full. Pop blocks until an item arrives or the queue is closed.
type queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []T
	head   int // read position
	count  int
	closed bool

	pushed  int64
	resizes int
}

func newQueue[T any](initialCapacity int) *queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &queue[T]{buf: make([]T, initialCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item. Returns false if the queue is closed.
func (q *queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (len(q.buf) * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	q.pushed++

	q.cond.Signal()
	return true
}

// Pop removes the oldest item, blocking while the queue is empty.
// Returns false once the queue is closed; pending items are discarded.
func (q *queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	var zero T
	if q.closed {
		return zero, false
	}

	item := q.buf[q.head]
	q.buf[q.head] = zero // release reference
	q.head = (q.head + 1) % len(q.buf)
	q.count--

	return item, true
}

// Close wakes all waiters and drops anything still queued.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.buf = nil
	q.head = 0
	q.count = 0
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// grow doubles capacity, unwrapping the ring. Must be called with lock held.
func (q *queue[T]) grow() {
	newBuf := make([]T, len(q.buf)*2)
	for i := 0; i < q.count; i++ {
		newBuf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = newBuf
	q.head = 0
	q.resizes++
}
