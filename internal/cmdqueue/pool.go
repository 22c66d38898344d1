// Package cmdqueue implements the fixed-capacity command-queue entry pool
// each IDE controller hands out: a freelist of int32 indices threaded
// through entry.Next, with every allocated entry jointly owned by the
// issuing thread and the eventual interrupt handler (refcount starts at 2,
// each side frees its own reference).
package cmdqueue

import (
	"sync/atomic"

	"github.com/patax/goide/internal/sched"
)

// FreeSentinel marks the end of the freelist, matching the -1 terminal
// value ide_cmd_queue_alloc/free thread through entry->next.
const FreeSentinel int32 = -1

// Entry is one in-flight (or free) command-queue slot.
type Entry struct {
	Next int32 // freelist link when not allocated; unused while allocated

	selfIndex int32 // this entry's fixed slot index within its Pool
	refcount  int32
	completed bool          // guarded by sched.IRQLock; set before Done fires
	Done      sched.Condvar // signalled by the IRQ handler on completion

	// Command state, set by the issuer before arming the hardware and read
	// by the IRQ handler when the completion interrupt arrives.
	Slot        int // device slot (0 = master, 1 = slave) this command targets
	Op          Op
	LBA         uint32
	SectorCount uint16
	Remaining   uint16 // sectors left to transfer, for multi-sector writes
	Buf         []byte
	BufPos      int
	Packet      [12]byte
	PacketSent  bool   // whether the 12-byte command packet has been written yet
	PacketOut   []byte // accumulates ATAPI response bytes across IRQs

	Err        error
	ErrorBits  byte // raw ATA error-register bits; the IRQ handler also decodes them into Err
}

// Op identifies which command-engine operation an entry represents, so the
// IRQ handler knows how to interpret a completion.
type Op int

const (
	OpNone Op = iota
	OpReadSectors
	OpWriteSectors
	OpFlushCache
	OpPacket
	OpIdentify
	OpDiagnostic
)

// Pool is one controller's fixed-capacity array of command-queue entries
// plus the freelist threading them together, exactly mirroring
// ide_cmd_queue_alloc/ide_cmd_queue_free's linked-list-over-an-array
// design.
type Pool struct {
	entries []Entry
	free    int32 // head of the freelist, or FreeSentinel when empty
	notEmpty sched.Condvar
}

// NewPool creates a pool of the given capacity, with every entry initially
// on the freelist in index order.
func NewPool(capacity int) *Pool {
	p := &Pool{entries: make([]Entry, capacity)}
	for i := range p.entries {
		p.entries[i].selfIndex = int32(i)
		if i == len(p.entries)-1 {
			p.entries[i].Next = FreeSentinel
		} else {
			p.entries[i].Next = int32(i + 1)
		}
	}
	p.free = 0
	if capacity == 0 {
		p.free = FreeSentinel
	}
	return p
}

// Alloc pops the head of the freelist, setting its refcount to 2 (the
// issuing thread's reference and the IRQ handler's reference). If the pool
// is exhausted, the calling thread blocks on notEmpty until a Free call
// replenishes it — translated from ide_cmd_queue_alloc's
// condvar_mutexless_wait(cmd_queue_not_empty).
func (p *Pool) Alloc(self *sched.Thread) *Entry {
	sched.DisableInterrupts()
	for p.free == FreeSentinel {
		p.notEmpty.MutexlessWait(self)
	}
	idx := p.free
	e := &p.entries[idx]
	p.free = e.Next
	atomic.StoreInt32(&e.refcount, 2)
	e.Op = OpNone
	e.Err = nil
	e.ErrorBits = 0
	e.BufPos = 0
	e.PacketOut = nil
	e.PacketSent = false
	e.completed = false
	sched.EnableInterrupts()
	return e
}

// TryAlloc is Alloc's non-blocking form: it returns nil immediately if the
// pool is exhausted, for callers that would rather surface
// ErrCodeQueueExhausted than wait.
func (p *Pool) TryAlloc() *Entry {
	sched.DisableInterrupts()
	defer sched.EnableInterrupts()
	if p.free == FreeSentinel {
		return nil
	}
	idx := p.free
	e := &p.entries[idx]
	p.free = e.Next
	atomic.StoreInt32(&e.refcount, 2)
	e.Op = OpNone
	e.Err = nil
	e.ErrorBits = 0
	e.BufPos = 0
	e.PacketOut = nil
	e.PacketSent = false
	e.completed = false
	return e
}

// Free drops one of the two references on e. Only when both the issuer and
// the IRQ handler have called Free does the entry return to the freelist —
// the refcount=2 / two-releases invariant from ide_cmd_queue_free.
func (p *Pool) Free(e *Entry) {
	if atomic.AddInt32(&e.refcount, -1) != 0 {
		return
	}
	sched.DisableInterrupts()
	idx := e.selfIndex
	e.Next = p.free
	p.free = idx
	p.notEmpty.MutexlessSignal()
	sched.EnableInterrupts()
}

// Len reports how many entries the pool has in total.
func (p *Pool) Len() int { return len(p.entries) }

// WaitCompletion blocks the issuing thread until the IRQ handler has called
// MarkComplete on this entry, re-checking the completed flag on every wake
// to guard against a wakeup racing a signal that arrived before the wait
// was registered.
func (e *Entry) WaitCompletion(self *sched.Thread) {
	sched.DisableInterrupts()
	for !e.completed {
		e.Done.MutexlessWait(self)
	}
	sched.EnableInterrupts()
}

// MarkComplete is called by the IRQ handler once an entry's command has
// fully finished (including any multi-IRQ data phase), to wake whatever
// thread is blocked in WaitCompletion.
func (e *Entry) MarkComplete() {
	sched.DisableInterrupts()
	e.completed = true
	e.Done.MutexlessSignal()
	sched.EnableInterrupts()
}
