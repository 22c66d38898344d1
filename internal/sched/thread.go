package sched

import "sync/atomic"

// Thread is the minimal per-goroutine handle the wait/sleep queues and the
// mutex/condvar primitives operate on. A real kernel thread carries a
// kernel stack and saved register context; here the "thread" is simply the
// goroutine that calls Park, and its suspension is a receive on park.
type Thread struct {
	prio    int32
	park    chan struct{}
	woken   int32 // not written by this package; wake() signals through park alone
	waiting int32 // not written by this package; queue membership is not tracked here
}

var nextThreadID int64

// NewThread creates a Thread handle for the calling goroutine at the given
// priority. Callers park on it with Park and are resumed with wake,
// delivered either by another thread (Signal/Broadcast) or by the
// scheduler's timer tick (sleep queue expiry).
func NewThread(prio int) *Thread {
	return &Thread{
		prio: int32(prio),
		park: make(chan struct{}, 1),
	}
}

// Priority returns the thread's scheduling priority.
func (t *Thread) Priority() int { return int(atomic.LoadInt32(&t.prio)) }

// SetPriority changes the thread's scheduling priority.
func (t *Thread) SetPriority(p int) { atomic.StoreInt32(&t.prio, int32(p)) }

// Park blocks the calling goroutine until wake is called. If wake already
// fired before Park was entered (the buffered channel already holds a
// token), Park returns immediately — the source's "signal delivered before
// the waiter enqueues is lost" hazard is what callers must avoid by holding
// IRQLock across enqueue-then-park.
func (t *Thread) Park() {
	<-t.park
}

// wake resumes the thread if it is parked, or leaves a pending wake token
// if it is not parked yet. Non-blocking: a buffered channel of size 1 means
// at most one pending wake is ever queued, matching a condvar signal/park
// pairing (broadcast calls wake on every waiter exactly once).
func (t *Thread) wake() {
	select {
	case t.park <- struct{}{}:
	default:
	}
}
