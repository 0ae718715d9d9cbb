// Package queue provides the fixed-capacity FIFO shared by tasks and
// interrupt handlers.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/runoshun/rtcheck/internal/domain"
)

// Queue is a bounded FIFO of T. Task-side operations may block with a timeout;
// ISR-side operations never block and report whether they released a waiting
// task. Blocked tasks are released highest priority first, FIFO among equals.
type Queue[T any] struct {
	buf       []T
	senders   waitList
	receivers waitList
	tick      time.Duration
	head      int
	count     int
	mu        sync.Mutex
}

// New creates a queue holding up to capacity items. tick converts block
// times to wall-clock time.
func New[T any](capacity int, tick time.Duration) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("new queue of %d: %w", capacity, domain.ErrInvalidCapacity)
	}
	if tick <= 0 {
		tick = time.Millisecond
	}
	return &Queue[T]{
		buf:  make([]T, capacity),
		tick: tick,
	}, nil
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Send appends v, blocking up to block ticks while the queue is full.
// A zero block time never blocks. It returns domain.ErrQueueFull on timeout
// and the context error if ctx is done first.
func (q *Queue[T]) Send(ctx context.Context, v T, block domain.Ticks) error {
	return q.wait(ctx, block, &q.senders, func() bool {
		if !q.pushLocked(v) {
			return false
		}
		q.receivers.wakeOne()
		return true
	}, domain.ErrQueueFull)
}

// Receive removes the oldest item, blocking up to block ticks while the
// queue is empty. It returns domain.ErrQueueEmpty on timeout.
func (q *Queue[T]) Receive(ctx context.Context, block domain.Ticks) (T, error) {
	var v T
	err := q.wait(ctx, block, &q.receivers, func() bool {
		var ok bool
		if v, ok = q.popLocked(); !ok {
			return false
		}
		q.senders.wakeOne()
		return true
	}, domain.ErrQueueEmpty)
	return v, err
}

// SendFromISR appends v without blocking. woken reports whether a task
// waiting to receive was released.
func (q *Queue[T]) SendFromISR(v T) (ok, woken bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.pushLocked(v) {
		return false, false
	}
	return true, q.receivers.wakeOne()
}

// ReceiveFromISR removes the oldest item without blocking. woken reports
// whether a task waiting to send was released.
func (q *Queue[T]) ReceiveFromISR() (v T, ok, woken bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if v, ok = q.popLocked(); !ok {
		return v, false, false
	}
	return v, true, q.senders.wakeOne()
}

// wait runs try under the lock until it succeeds, the block time runs out or
// ctx is done.
func (q *Queue[T]) wait(ctx context.Context, block domain.Ticks, list *waitList, try func() bool, timeoutErr error) error {
	q.mu.Lock()
	if try() {
		q.mu.Unlock()
		return nil
	}
	if block == 0 {
		q.mu.Unlock()
		return timeoutErr
	}

	var timeout <-chan time.Time
	if block != domain.BlockForever {
		timer := time.NewTimer(time.Duration(block) * q.tick)
		defer timer.Stop()
		timeout = timer.C
	}

	prio := domain.PriorityFromContext(ctx)
	for {
		w := list.add(prio)
		q.mu.Unlock()

		select {
		case <-w.ready:
		case <-timeout:
			return q.giveUp(list, w, try, timeoutErr)
		case <-ctx.Done():
			q.mu.Lock()
			list.abandon(w)
			q.mu.Unlock()
			return ctx.Err()
		}

		q.mu.Lock()
		if try() {
			q.mu.Unlock()
			return nil
		}
		// Someone else got there first; wait again.
	}
}

// giveUp handles a timeout. A wake that raced with the timer is honoured.
func (q *Queue[T]) giveUp(list *waitList, w *waiter, try func() bool, timeoutErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if try() {
		list.remove(w)
		return nil
	}
	list.abandon(w)
	return timeoutErr
}

// Waiting returns how many tasks are blocked sending and receiving.
func (q *Queue[T]) Waiting() (senders, receivers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.senders.len(), q.receivers.len()
}

func (q *Queue[T]) pushLocked(v T) bool {
	if q.count == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
	return true
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v, true
}
