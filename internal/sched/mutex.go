package sched

import "time"

// Mutex is a sleeping lock with a priority-ordered waiter queue and atomic
// ownership hand-off: the thread Unlock wakes receives ownership directly,
// so there is never a window where a third thread can steal the lock
// between one thread's Unlock and the next waiter's wake-up.
type Mutex struct {
	locked  bool
	owner   *Thread
	waiters WaitQueue
}

// Lock acquires m, blocking the calling thread if it is already held.
func (m *Mutex) Lock(self *Thread) {
	DisableInterrupts()
	if !m.locked {
		m.locked = true
		m.owner = self
		EnableInterrupts()
		return
	}
	m.waiters.Enqueue(self)
	EnableInterrupts()
	self.Park()
	// Woken by Unlock's hand-off: ownership is already assigned to us.
}

// LockOrTimeout acquires m like Lock, but gives up after timeout elapses
// without acquiring the lock. Returns true if the lock was acquired.
func (m *Mutex) LockOrTimeout(self *Thread, timeout time.Duration) bool {
	DisableInterrupts()
	if !m.locked {
		m.locked = true
		m.owner = self
		EnableInterrupts()
		return true
	}
	m.waiters.Enqueue(self)
	se := globalSleepQ.Enqueue(self, time.Now().Add(timeout))
	EnableInterrupts()

	self.Park()

	DisableInterrupts()
	defer EnableInterrupts()
	if m.owner == self {
		globalSleepQ.Cancel(se)
		return true
	}
	// Timed out before being handed ownership; remove ourselves from the
	// waiter queue in case the race window let Unlock enqueue a wake for
	// us anyway (harmless: the stray wake token is simply never consumed).
	m.waiters.Remove(self)
	return false
}

// Unlock releases m. If a waiter is queued, ownership is handed directly to
// the highest-priority one rather than clearing locked and letting the
// next Lock race for it.
func (m *Mutex) Unlock() {
	DisableInterrupts()
	defer EnableInterrupts()

	next := m.waiters.WakeOne()
	if next == nil {
		m.locked = false
		m.owner = nil
		return
	}
	m.owner = next
	// m.locked stays true: ownership transferred, never released.
}

// Owner returns the thread currently holding m, or nil if unlocked. Intended
// for diagnostics and tests, not for synchronization decisions.
func (m *Mutex) Owner() *Thread {
	DisableInterrupts()
	defer EnableInterrupts()
	return m.owner
}
