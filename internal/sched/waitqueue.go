package sched

import "container/list"

// WaitQueue is a priority-ordered queue of parked threads: highest priority
// first, FIFO among threads of equal priority. Mutexes, condition
// variables, and the command-queue-exhaustion wait all enqueue here.
//
// All methods assume the caller holds IRQLock (or an equivalent mutex) for
// the duration of the call — the queue itself does no internal locking,
// matching the source's wait_queue, which is only ever touched with
// interrupts disabled.
type WaitQueue struct {
	l list.List // of *Thread
}

// Enqueue inserts t in priority order. Ties are broken by arrival order
// (t is inserted after any existing thread of equal priority).
func (q *WaitQueue) Enqueue(t *Thread) {
	for e := q.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*Thread).Priority() < t.Priority() {
			q.l.InsertBefore(t, e)
			return
		}
	}
	q.l.PushBack(t)
}

// Remove drops t from the queue if present, without waking it. Used when a
// timed wait expires on the sleep queue before being signalled.
func (q *WaitQueue) Remove(t *Thread) {
	for e := q.l.Front(); e != nil; e = e.Next() {
		if e.Value.(*Thread) == t {
			q.l.Remove(e)
			return
		}
	}
}

// Empty reports whether the queue has no waiters.
func (q *WaitQueue) Empty() bool { return q.l.Len() == 0 }

// Len reports the number of waiters.
func (q *WaitQueue) Len() int { return q.l.Len() }

// WakeOne removes and wakes the highest-priority waiter, if any, returning
// it. Returns nil if the queue was empty.
func (q *WaitQueue) WakeOne() *Thread {
	e := q.l.Front()
	if e == nil {
		return nil
	}
	q.l.Remove(e)
	t := e.Value.(*Thread)
	t.wake()
	return t
}

// WakeAll removes and wakes every waiter.
func (q *WaitQueue) WakeAll() {
	for {
		if q.WakeOne() == nil {
			return
		}
	}
}
