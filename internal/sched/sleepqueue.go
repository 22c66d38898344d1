package sched

import (
	"container/heap"
	"time"
)

// sleepEntry is one thread's deadline-ordered slot on the sleep queue.
type sleepEntry struct {
	thread   *Thread
	deadline time.Time
	index    int // heap.Interface bookkeeping
	expired  bool
}

// sleepHeap implements heap.Interface ordered by ascending deadline. No
// example repo in this driver's lineage ships a standalone priority-queue
// library, so the sleep queue is the one place this module reaches for the
// standard library's container/heap rather than a third-party dependency
// (see the design ledger).
type sleepHeap []*sleepEntry

func (h sleepHeap) Len() int            { return len(h) }
func (h sleepHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h sleepHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *sleepHeap) Push(x interface{}) {
	e := x.(*sleepEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *sleepHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// SleepQueue holds threads waiting on a deadline: either a plain Sleep() or
// a timed lock/wait. Like WaitQueue, every method assumes the caller holds
// IRQLock for the duration of the call.
type SleepQueue struct {
	h sleepHeap
}

// Enqueue parks t on the sleep queue until deadline, returning a handle the
// caller can pass to Cancel if the thread is woken by some other means
// (e.g. a condvar signal) before the deadline arrives.
func (q *SleepQueue) Enqueue(t *Thread, deadline time.Time) *sleepEntry {
	e := &sleepEntry{thread: t, deadline: deadline}
	heap.Push(&q.h, e)
	return e
}

// Cancel removes e from the queue if it has not already expired. Returns
// true if the thread had not yet been timed out (i.e. whatever woke it did
// so before the deadline).
func (q *SleepQueue) Cancel(e *sleepEntry) bool {
	if e.expired || e.index < 0 || e.index >= len(q.h) || q.h[e.index] != e {
		return !e.expired
	}
	heap.Remove(&q.h, e.index)
	return true
}

// ExpireUpTo wakes and removes every entry whose deadline is at or before
// now, returning the threads that timed out. This is what the scheduler's
// timer tick drives.
func (q *SleepQueue) ExpireUpTo(now time.Time) []*Thread {
	var expired []*Thread
	for q.h.Len() > 0 && !q.h[0].deadline.After(now) {
		e := heap.Pop(&q.h).(*sleepEntry)
		e.expired = true
		e.thread.wake()
		expired = append(expired, e.thread)
	}
	return expired
}

// Empty reports whether any thread is sleeping.
func (q *SleepQueue) Empty() bool { return q.h.Len() == 0 }

// NextDeadline returns the earliest pending deadline and true, or the zero
// time and false if the queue is empty.
func (q *SleepQueue) NextDeadline() (time.Time, bool) {
	if q.h.Len() == 0 {
		return time.Time{}, false
	}
	return q.h[0].deadline, true
}
