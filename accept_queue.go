package webtransport

import "sync"

// acceptQueue is a FIFO queue with a wake-up channel.
// A consumer that takes an item re-signals when items remain,
// so that no wake-up is lost when multiple consumers are waiting.
type acceptQueue[T any] struct {
	mx    sync.Mutex
	queue []T
	c     chan struct{}
}

func newAcceptQueue[T any]() *acceptQueue[T] {
	return &acceptQueue[T]{c: make(chan struct{}, 1)}
}

func (q *acceptQueue[T]) Add(item T) {
	q.mx.Lock()
	q.queue = append(q.queue, item)
	q.mx.Unlock()
	q.signal()
}

func (q *acceptQueue[T]) signal() {
	select {
	case q.c <- struct{}{}:
	default:
	}
}

func (q *acceptQueue[T]) Next() (T, bool) {
	q.mx.Lock()
	defer q.mx.Unlock()

	var zero T
	if len(q.queue) == 0 {
		return zero, false
	}
	item := q.queue[0]
	q.queue[0] = zero
	q.queue = q.queue[1:]
	if len(q.queue) > 0 {
		q.signal()
	}
	return item, true
}

// Chan is signaled when an item was added.
func (q *acceptQueue[T]) Chan() <-chan struct{} {
	return q.c
}

// Clear removes all items from the queue and returns them.
func (q *acceptQueue[T]) Clear() []T {
	q.mx.Lock()
	defer q.mx.Unlock()

	items := q.queue
	q.queue = nil
	return items
}

func (q *acceptQueue[T]) Len() int {
	q.mx.Lock()
	defer q.mx.Unlock()
	return len(q.queue)
}
