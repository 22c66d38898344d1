// Package irq implements the bottom half of the driver: the interrupt
// handler that reads a channel's status once per completion interrupt,
// decodes any error, and moves data in or out of the data port for
// whatever command is currently in flight on that channel.
package irq

import (
	"context"
	"fmt"

	"github.com/patax/goide/internal/cmdqueue"
	"github.com/patax/goide/internal/controller"
	"github.com/patax/goide/internal/logging"
	"github.com/patax/goide/internal/portio"
	"github.com/patax/goide/internal/uapi"
)

// Handler runs one controller's interrupt bottom half: a goroutine parked
// on the bus's IRQ-notification channel for that controller's IRQ line.
type Handler struct {
	ctrl   *controller.Controller
	waiter portio.IRQWaiter
	log    *logging.Logger
}

// New creates a handler for ctrl. waiter is typically ctrl.Bus itself,
// asserted to portio.IRQWaiter by the caller (SimulatedBus implements it;
// DevPortBus's implementation never fires — see its doc comment).
func New(ctrl *controller.Controller, waiter portio.IRQWaiter) *Handler {
	return &Handler{ctrl: ctrl, waiter: waiter, log: logging.Default()}
}

// Run services interrupts until ctx is cancelled. It is meant to be started
// in its own goroutine, one per controller.
func (h *Handler) Run(ctx context.Context) {
	ch := h.waiter.WaitIRQ(h.ctrl.IRQ)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			h.onInterrupt()
		}
	}
}

// onInterrupt is ide_irq, translated: read status (which also acknowledges
// the interrupt on real hardware), find the in-flight entry, decode errors,
// and either continue or complete the command depending on its kind.
//
// An interrupt with no in-flight entry, or an entry whose Op this switch
// does not recognize, is a driver bug severe enough to fail loudly rather
// than silently drop data — matching the panics spec.md calls for.
func (h *Handler) onInterrupt() {
	if err := h.ctrl.Bus.AckIRQ(h.ctrl.IRQ); err != nil {
		h.log.Warnf("controller %d: ack IRQ failed: %v", h.ctrl.Index, err)
	}

	status, err := h.ctrl.ReadStatus()
	if err != nil {
		h.log.Errorf("controller %d: status read failed: %v", h.ctrl.Index, err)
		return
	}

	entry := h.ctrl.CurrentEntry()
	if entry == nil {
		panic(fmt.Sprintf("ide: unhandled interrupt on controller %d", h.ctrl.Index))
	}

	if status&uapi.StatusERR != 0 {
		h.failEntry(entry)
		return
	}

	switch entry.Op {
	case cmdqueue.OpIdentify:
		h.continueIdentify(entry, status)
	case cmdqueue.OpReadSectors:
		h.continueRead(entry, status)
	case cmdqueue.OpWriteSectors:
		h.continueWrite(entry, status)
	case cmdqueue.OpFlushCache:
		h.completeEntry(entry)
	case cmdqueue.OpPacket:
		h.continuePacket(entry, status)
	case cmdqueue.OpDiagnostic:
		h.completeEntry(entry)
	default:
		panic(fmt.Sprintf("ide: unknown command tag %d on controller %d", entry.Op, h.ctrl.Index))
	}
}

// failEntry reads the error register into entry.ErrorBits, decodes it into
// entry.Err (a *CommandError carrying one of the six error kinds), and
// completes the entry.
func (h *Handler) failEntry(entry *cmdqueue.Entry) {
	errBits, err := h.ctrl.Bus.In8(h.ctrl.ErrorPort())
	if err != nil {
		h.log.Errorf("controller %d: error-register read failed: %v", h.ctrl.Index, err)
	}
	entry.ErrorBits = errBits
	entry.Err = DecodeError(errBits)
	h.completeEntry(entry)
}

func (h *Handler) completeEntry(entry *cmdqueue.Entry) {
	h.ctrl.ClearCurrentEntry()
	entry.MarkComplete()
	h.ctrl.Pool.Free(entry)
}

func (h *Handler) continueIdentify(entry *cmdqueue.Entry, status byte) {
	if status&uapi.StatusDRQ == 0 {
		h.completeEntry(entry)
		return
	}
	buf := make([]byte, 512)
	for i := 0; i < 256; i++ {
		w, err := h.ctrl.Bus.In16(h.ctrl.DataPort())
		if err != nil {
			entry.Err = err
			h.completeEntry(entry)
			return
		}
		buf[2*i] = byte(w)
		buf[2*i+1] = byte(w >> 8)
	}
	entry.Buf = buf
	entry.BufPos = len(buf)
	h.completeEntry(entry)
}

func (h *Handler) continueRead(entry *cmdqueue.Entry, status byte) {
	if status&uapi.StatusDRQ == 0 {
		entry.Err = &CommandError{Kind: UnknownError}
		h.completeEntry(entry)
		return
	}
	total := int(entry.SectorCount)
	if total == 0 {
		total = 256
	}
	buf := make([]byte, total*512)
	for i := 0; i < len(buf); i += 2 {
		w, err := h.ctrl.Bus.In16(h.ctrl.DataPort())
		if err != nil {
			entry.Err = err
			h.completeEntry(entry)
			return
		}
		buf[i] = byte(w)
		buf[i+1] = byte(w >> 8)
	}
	entry.Buf = buf
	entry.BufPos = len(buf)
	h.completeEntry(entry)
}

// continueWrite handles the commit interrupt a sector's WRITE SECTORS
// command raises once its data is durable. The data phase itself never
// reaches here: it is synchronous, polled, and pushed by whoever issued
// the command (the top half for the first sector, armNextWrite below for
// every sector after it) before that command can raise an interrupt at
// all.
func (h *Handler) continueWrite(entry *cmdqueue.Entry, status byte) {
	if entry.Remaining > 0 {
		entry.Remaining--
	}
	if entry.Remaining == 0 {
		h.completeEntry(entry)
		return
	}

	// More sectors remain: arm the next one ourselves, exactly as the
	// issuing call armed the first, and keep entry current so the next
	// completion interrupt continues this same loop.
	nextLBA := entry.LBA + uint32(entry.SectorCount-entry.Remaining)
	if err := h.armNextWrite(entry, nextLBA); err != nil {
		entry.Err = err
		h.completeEntry(entry)
	}
}

// armNextWrite programs the task file for the next sector and issues a
// fresh WRITE SECTORS command, then polls for the DRQ that command asserts
// and pushes its 512 bytes before returning, the same synchronous data
// phase the top half carries out for the transfer's first sector.
func (h *Handler) armNextWrite(entry *cmdqueue.Entry, lba uint32) error {
	var tf uapi.TaskFileRegisters
	uapi.EncodeLBA28(&tf, lba, entry.Slot)
	tf.SectorCount = uapi.EncodeSectorCount(1)
	if err := h.ctrl.Bus.Out8(h.ctrl.SectorCntPort(), tf.SectorCount); err != nil {
		return err
	}
	if err := h.ctrl.Bus.Out8(h.ctrl.LBALowPort(), tf.LBALow); err != nil {
		return err
	}
	if err := h.ctrl.Bus.Out8(h.ctrl.LBAMidPort(), tf.LBAMid); err != nil {
		return err
	}
	if err := h.ctrl.Bus.Out8(h.ctrl.LBAHighPort(), tf.LBAHigh); err != nil {
		return err
	}
	if err := h.ctrl.Bus.Out8(h.ctrl.DevHeadPort(), tf.DevHead); err != nil {
		return err
	}
	if err := h.ctrl.Bus.Out8(h.ctrl.CommandPort(), uapi.CmdWriteSectors); err != nil {
		return err
	}
	return h.ctrl.PushNextWriteSector(entry)
}

func (h *Handler) continuePacket(entry *cmdqueue.Entry, status byte) {
	if status&uapi.StatusDRQ == 0 {
		h.completeEntry(entry)
		return
	}

	if !entry.PacketSent {
		for i := 0; i < uapi.AtapiPacketLength; i += 2 {
			w := uint16(entry.Packet[i]) | uint16(entry.Packet[i+1])<<8
			if err := h.ctrl.Bus.Out16(h.ctrl.DataPort(), w); err != nil {
				entry.Err = err
				h.completeEntry(entry)
				return
			}
		}
		entry.PacketSent = true
		return
	}

	lo, err := h.ctrl.Bus.In8(h.ctrl.LBAMidPort())
	if err != nil {
		entry.Err = err
		h.completeEntry(entry)
		return
	}
	hi, err := h.ctrl.Bus.In8(h.ctrl.LBAHighPort())
	if err != nil {
		entry.Err = err
		h.completeEntry(entry)
		return
	}
	n := int(lo) | int(hi)<<8
	for i := 0; i < n; i++ {
		b, err := h.ctrl.Bus.In8(h.ctrl.DataPort())
		if err != nil {
			entry.Err = err
			h.completeEntry(entry)
			return
		}
		entry.PacketOut = append(entry.PacketOut, b)
	}
}
