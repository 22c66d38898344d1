package sched

import "time"

// Condvar is a condition variable with both the usual mutex-paired
// Wait/Signal/Broadcast and the IDE driver's "mutexless" variant, whose
// critical section is the global interrupts-disabled flag rather than a
// caller-supplied Mutex.
type Condvar struct {
	waiters WaitQueue
}

// Wait atomically releases m and blocks the calling thread until Signal or
// Broadcast wakes it, then reacquires m before returning.
func (c *Condvar) Wait(m *Mutex, self *Thread) {
	DisableInterrupts()
	c.waiters.Enqueue(self)
	EnableInterrupts()

	m.Unlock()
	self.Park()
	m.Lock(self)
}

// WaitOrTimeout is Wait with a deadline. Returns true if woken by
// Signal/Broadcast before timeout elapsed, false if the timeout fired
// first. m is reacquired either way before returning.
func (c *Condvar) WaitOrTimeout(m *Mutex, self *Thread, timeout time.Duration) bool {
	DisableInterrupts()
	c.waiters.Enqueue(self)
	se := globalSleepQ.Enqueue(self, time.Now().Add(timeout))
	EnableInterrupts()

	m.Unlock()
	self.Park()

	DisableInterrupts()
	woken := !se.expired
	if woken {
		globalSleepQ.Cancel(se)
	} else {
		c.waiters.Remove(self)
	}
	EnableInterrupts()

	m.Lock(self)
	return woken
}

// Signal wakes at most one waiter.
func (c *Condvar) Signal() {
	DisableInterrupts()
	c.waiters.WakeOne()
	EnableInterrupts()
}

// Broadcast wakes every waiter.
func (c *Condvar) Broadcast() {
	DisableInterrupts()
	c.waiters.WakeAll()
	EnableInterrupts()
}

// MutexlessWait is the IDE driver's condvar wait: the caller must already
// hold IRQLock (have called DisableInterrupts) before calling this, and
// gets it back held on return. There is no client mutex to release —
// interrupts-disabled is itself the critical section, exactly as
// condvar::mutexless_wait assumes in the source.
func (c *Condvar) MutexlessWait(self *Thread) {
	c.waiters.Enqueue(self)
	EnableInterrupts()
	self.Park()
	DisableInterrupts()
}

// MutexlessSignal wakes at most one waiter. Like MutexlessWait, the caller
// must already hold IRQLock; this call does not itself touch it.
func (c *Condvar) MutexlessSignal() {
	c.waiters.WakeOne()
}

// MutexlessBroadcast wakes every waiter under the same contract as
// MutexlessSignal.
func (c *Condvar) MutexlessBroadcast() {
	c.waiters.WakeAll()
}
