package sched

import (
	"runtime"
	"sync"
	"time"
)

// globalSleepQ is the single kernel-wide deadline queue: Sleep, Mutex's
// LockOrTimeout, and Condvar's WaitOrTimeout all enqueue onto it, mirroring
// the source's single global sleepq rather than one per primitive.
var globalSleepQ SleepQueue

// Scheduler drives the passage of time for every timed wait in the
// package: a single background goroutine ticks at TickInterval and expires
// any sleep-queue entry whose deadline has passed. Nothing else in this
// package depends on real wall-clock granularity finer than TickInterval.
type Scheduler struct {
	TickInterval time.Duration

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// DefaultTickInterval matches the coarse granularity the original kernel's
// timer IRQ runs at; fine enough for IDE's second-scale timeouts.
const DefaultTickInterval = 1 * time.Millisecond

// NewScheduler creates a Scheduler with the given tick interval. A zero
// interval is replaced with DefaultTickInterval.
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Scheduler{TickInterval: tick}
}

// Start begins the timer-tick goroutine. Calling Start twice without an
// intervening Stop is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
}

// Stop halts the timer-tick goroutine and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop := s.stop
	done := s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			DisableInterrupts()
			globalSleepQ.ExpireUpTo(now)
			EnableInterrupts()
		}
	}
}

// Sleep parks the calling thread on the global sleep queue for at least
// the given duration, the translation of thread_sleep(int64 timeout_nsecs).
func Sleep(self *Thread, d time.Duration) {
	DisableInterrupts()
	globalSleepQ.Enqueue(self, time.Now().Add(d))
	EnableInterrupts()
	self.Park()
}

// Yield gives up the calling thread's remaining quantum voluntarily. In
// this goroutine-backed model that is simply runtime.Gosched, since the Go
// scheduler already time-slices goroutines preemptively.
func Yield() {
	runtime.Gosched()
}
