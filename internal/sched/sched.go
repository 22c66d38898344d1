// Package sched models the kernel's thread-synchronization substrate on top
// of goroutines: priority-ordered wait queues, deadline-ordered sleep
// queues, mutexes, and condition variables (including the mutexless variant
// the IDE driver uses to hand a command off to its interrupt handler).
//
// A kernel "thread" voluntarily suspending on a wait queue and a hardware
// IRQ resuming it both funnel through the same wake() call on the parked
// goroutine's channel, the Go analogue of the source's single synthetic
// resume path shared by voluntary yields and interrupt returns.
package sched

import "sync"

// LowPriority, NormalPriority and HighPriority mirror the three fixed
// priority bands threads are created at.
const (
	LowPriority    = 0
	NormalPriority = 100
	HighPriority   = 200
)

// IRQLock stands in for the uniprocessor "interrupts disabled" flag: the
// sole synchronization primitive the IDE top half and bottom half share.
// It is deliberately one global lock, not one per controller, because on a
// single-CPU kernel disabling interrupts is genuinely global.
var IRQLock sync.Mutex

// DisableInterrupts acquires the global critical section. Callers must pair
// every call with EnableInterrupts; there is no re-entrant form, matching
// the source's cli/sti pairing discipline.
func DisableInterrupts() { IRQLock.Lock() }

// EnableInterrupts releases the global critical section.
func EnableInterrupts() { IRQLock.Unlock() }
