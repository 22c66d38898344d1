package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitQueuePriorityOrder(t *testing.T) {
	var q WaitQueue
	low := NewThread(LowPriority)
	normal := NewThread(NormalPriority)
	high := NewThread(HighPriority)
	normal2 := NewThread(NormalPriority)

	q.Enqueue(low)
	q.Enqueue(normal)
	q.Enqueue(high)
	q.Enqueue(normal2)

	require.Equal(t, high, q.WakeOne())
	require.Equal(t, normal, q.WakeOne())
	require.Equal(t, normal2, q.WakeOne())
	require.Equal(t, low, q.WakeOne())
	require.True(t, q.Empty())
}

func TestMutexMutualExclusion(t *testing.T) {
	var m Mutex
	var counter int
	var wg sync.WaitGroup

	const goroutines = 20
	const iterations = 200
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			self := NewThread(NormalPriority)
			for j := 0; j < iterations; j++ {
				m.Lock(self)
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, goroutines*iterations, counter)
}

func TestMutexLockOrTimeoutSucceedsWhenFree(t *testing.T) {
	var m Mutex
	self := NewThread(NormalPriority)
	require.True(t, m.LockOrTimeout(self, time.Second))
	m.Unlock()
}

func TestMutexLockOrTimeoutExpires(t *testing.T) {
	sc := NewScheduler(time.Millisecond)
	sc.Start()
	defer sc.Stop()

	var m Mutex
	holder := NewThread(NormalPriority)
	m.Lock(holder)

	waiter := NewThread(NormalPriority)
	start := time.Now()
	ok := m.LockOrTimeout(waiter, 20*time.Millisecond)
	elapsed := time.Since(start)

	require.False(t, ok)
	require.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestCondvarSignalWakesOneWaiter(t *testing.T) {
	var m Mutex
	var c Condvar
	var woken int32

	const waiters = 5
	var wg sync.WaitGroup
	wg.Add(waiters)
	ready := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			self := NewThread(NormalPriority)
			m.Lock(self)
			ready <- struct{}{}
			c.Wait(&m, self)
			atomic.AddInt32(&woken, 1)
			m.Unlock()
		}()
	}
	for i := 0; i < waiters; i++ {
		<-ready
	}
	time.Sleep(10 * time.Millisecond) // let every goroutine reach c.Wait

	c.Signal()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&woken))

	c.Broadcast()
	wg.Wait()
	require.Equal(t, int32(waiters), atomic.LoadInt32(&woken))
}

func TestSleepHonorsMinimumDuration(t *testing.T) {
	sc := NewScheduler(time.Millisecond)
	sc.Start()
	defer sc.Stop()

	self := NewThread(NormalPriority)
	start := time.Now()
	Sleep(self, 30*time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMutexlessWaitAndSignal(t *testing.T) {
	sc := NewScheduler(time.Millisecond)
	sc.Start()
	defer sc.Stop()

	var c Condvar
	self := NewThread(NormalPriority)
	done := make(chan struct{})

	go func() {
		DisableInterrupts()
		c.MutexlessWait(self)
		EnableInterrupts()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	DisableInterrupts()
	c.MutexlessSignal()
	EnableInterrupts()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutexless wait never woke")
	}
}
