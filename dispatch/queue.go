// Package dispatch provides a serial task queue backed by a single
// goroutine.
//
// A Queue stands in for "the thread that owns the consumer's state":
// rendering engines typically keep their texture tables unsynchronized
// and expect every mutation to arrive on one well-known execution
// context. Passing a Queue explicitly makes that requirement a visible
// dependency instead of an ambient assumption about a UI thread.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Sync when the queue has been closed.
var ErrClosed = errors.New("dispatch: queue closed")

// defaultBuffer is the task channel capacity used when New is given a
// non-positive buffer size.
const defaultBuffer = 64

// Queue executes tasks one at a time, in submission order, on a single
// dedicated goroutine.
//
// Thread safety: Queue is safe for concurrent use. Tasks themselves run
// serialized, so state touched only from queue tasks needs no further
// locking.
type Queue struct {
	// tasks holds pending work in FIFO order.
	tasks chan func()

	// done signals the run loop to stop.
	done chan struct{}

	// wg waits for the run loop to finish.
	wg sync.WaitGroup

	// mu orders in-flight submissions against Close, so that every task
	// accepted by Post is guaranteed to execute.
	mu sync.RWMutex

	// running indicates whether the queue is accepting work.
	running atomic.Bool
}

// New creates a queue and starts its run loop.
// If buffer is 0 or negative, a default capacity is used.
func New(buffer int) *Queue {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	q := &Queue{
		tasks: make(chan func(), buffer),
		done:  make(chan struct{}),
	}

	q.running.Store(true)

	q.wg.Add(1)
	go q.run()

	return q
}

// run is the queue's single consumer loop.
func (q *Queue) run() {
	defer q.wg.Done()

	for {
		select {
		case <-q.done:
			// Execute whatever was accepted before Close.
			q.drain()
			return

		case task := <-q.tasks:
			if task != nil {
				task()
			}
		}
	}
}

// drain executes all remaining queued tasks.
func (q *Queue) drain() {
	for {
		select {
		case task := <-q.tasks:
			if task != nil {
				task()
			}
		default:
			return
		}
	}
}

// Post submits a task for asynchronous execution and returns without
// waiting for it to run. It reports whether the task was accepted;
// tasks are rejected once Close has been called. Post may block briefly
// when the queue buffer is full, so posting from inside a task can
// stall a full queue.
func (q *Queue) Post(task func()) bool {
	if task == nil {
		return false
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running.Load() {
		return false
	}

	// The run loop keeps consuming until done is closed, and Close
	// cannot close done while a submission holds the read lock.
	q.tasks <- task
	return true
}

// Sync submits a task and waits until it has executed.
// Returns ErrClosed if the queue is no longer accepting work.
func (q *Queue) Sync(task func()) error {
	ran := make(chan struct{})

	ok := q.Post(func() {
		defer close(ran)
		if task != nil {
			task()
		}
	})
	if !ok {
		return ErrClosed
	}

	<-ran
	return nil
}

// Flush blocks until every task posted before the call has executed.
// Flushing a closed queue returns immediately: Close already drained it.
func (q *Queue) Flush() {
	// A sync barrier behind the queued tasks is enough; FIFO order does
	// the rest.
	_ = q.Sync(func() {})
}

// Close stops the queue after draining all accepted tasks.
// Close is safe to call multiple times; subsequent calls are no-ops.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.running.CompareAndSwap(true, false) {
		// Already closed
		q.mu.Unlock()
		return
	}
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
}

// Len returns the number of tasks currently queued.
// This is an approximation as the queue changes concurrently.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Running returns true if the queue is still accepting work.
func (q *Queue) Running() bool {
	return q.running.Load()
}
