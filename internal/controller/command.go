package controller

import (
	"time"

	"github.com/patax/goide/internal/cmdqueue"
	"github.com/patax/goide/internal/constants"
	"github.com/patax/goide/internal/sched"
	"github.com/patax/goide/internal/uapi"
)

// ReadSectors issues READ SECTORS for count sectors (0 meaning 256, per the
// wire encoding) starting at lba into buf, which must be at least
// count*512 bytes (count==0 treated as 256*512). The call blocks self until
// the IRQ handler reports completion.
func (d *Device) ReadSectors(self *sched.Thread, lba uint32, buf []byte, count uint16) error {
	c := d.Ctrl
	c.Lock()
	defer c.Unlock()

	e := c.Pool.Alloc(self)
	defer c.Pool.Free(e)

	e.Op = cmdqueue.OpReadSectors
	e.Slot = d.Slot
	e.LBA = lba
	e.SectorCount = count
	c.SetCurrentEntry(e)

	if err := c.armTaskFile(d.Slot, lba, count); err != nil {
		c.ClearCurrentEntry()
		return err
	}
	if err := c.Bus.Out8(c.CommandPort(), uapi.CmdReadSectors); err != nil {
		c.ClearCurrentEntry()
		return err
	}

	e.WaitCompletion(self)
	if e.Err != nil {
		return e.Err
	}
	copy(buf, e.Buf)
	return nil
}

// WriteSectors issues WRITE SECTORS for count sectors starting at lba,
// taken from buf (which must hold at least count*512 bytes). Every
// individual sector this driver writes is its own WRITE SECTORS command
// (the first issued here, the rest re-armed by the IRQ handler once the
// previous sector commits, see internal/irq), and DRQ for the sector a
// freshly issued command wants is asserted synchronously, not via
// interrupt. This call polls for that first DRQ and pushes the data
// itself, mirroring the original ide_write_sectors, then blocks until the
// whole transfer (all sectors, all commits) completes.
func (d *Device) WriteSectors(self *sched.Thread, lba uint32, buf []byte, count uint16) error {
	c := d.Ctrl
	c.Lock()
	defer c.Unlock()

	total := count
	if total == 0 {
		total = 256
	}

	e := c.Pool.Alloc(self)
	defer c.Pool.Free(e)

	e.Op = cmdqueue.OpWriteSectors
	e.Slot = d.Slot
	e.LBA = lba
	e.SectorCount = total
	e.Remaining = total
	e.Buf = buf
	e.BufPos = 0
	c.SetCurrentEntry(e)

	if err := c.armTaskFile(d.Slot, lba, 1); err != nil {
		c.ClearCurrentEntry()
		return err
	}
	if err := c.Bus.Out8(c.CommandPort(), uapi.CmdWriteSectors); err != nil {
		c.ClearCurrentEntry()
		return err
	}

	if err := c.PushNextWriteSector(e); err != nil {
		c.ClearCurrentEntry()
		return err
	}

	e.WaitCompletion(self)
	return e.Err
}

// PushNextWriteSector polls for the DRQ a just-issued WRITE SECTORS command
// asserts and writes the next unsent 512 bytes of e.Buf out the data port,
// advancing e.BufPos. Called from the top half for the transfer's first
// sector and from the IRQ handler (armNextWrite) for every sector after
// that, since each is its own freshly issued command with its own
// synchronous data-request phase.
func (c *Controller) PushNextWriteSector(e *cmdqueue.Entry) error {
	deadline := time.Now().Add(constants.DataRequestTimeout)
	for {
		status, err := c.ReadAltStatus()
		if err != nil {
			return err
		}
		if status&uapi.StatusERR != 0 {
			return errWriteAborted
		}
		if status&uapi.StatusBSY == 0 && status&uapi.StatusDRQ != 0 {
			break
		}
		if time.Now().After(deadline) {
			return errDataRequestTimeout
		}
		time.Sleep(constants.IdentifyPollInterval)
	}

	for i := 0; i < 256; i++ {
		lo := e.Buf[e.BufPos]
		hi := e.Buf[e.BufPos+1]
		e.BufPos += 2
		if err := c.Bus.Out16(c.DataPort(), uint16(lo)|uint16(hi)<<8); err != nil {
			return err
		}
	}
	return nil
}

// Flush issues FLUSH CACHE and waits for it to complete.
func (d *Device) Flush(self *sched.Thread) error {
	c := d.Ctrl
	c.Lock()
	defer c.Unlock()

	e := c.Pool.Alloc(self)
	defer c.Pool.Free(e)

	e.Op = cmdqueue.OpFlushCache
	e.Slot = d.Slot
	c.SetCurrentEntry(e)

	if err := c.SelectDevice(d.Slot); err != nil {
		c.ClearCurrentEntry()
		return err
	}
	if err := c.Bus.Out8(c.CommandPort(), uapi.CmdFlushCache); err != nil {
		c.ClearCurrentEntry()
		return err
	}

	e.WaitCompletion(self)
	return e.Err
}

// SendPacket issues an ATAPI PACKET command with the given 12-byte command
// packet and returns the device's response payload: the bytes accumulated
// on the entry across the data-phase interrupts, since ATAPI response
// length is device-determined, not caller-determined.
func (d *Device) SendPacket(self *sched.Thread, packet [12]byte) ([]byte, error) {
	c := d.Ctrl
	c.Lock()
	defer c.Unlock()

	e := c.Pool.Alloc(self)
	defer c.Pool.Free(e)

	e.Op = cmdqueue.OpPacket
	e.Slot = d.Slot
	e.Packet = packet
	e.PacketSent = false
	e.PacketOut = nil
	c.SetCurrentEntry(e)

	if err := c.SelectDevice(d.Slot); err != nil {
		c.ClearCurrentEntry()
		return nil, err
	}
	if err := c.Bus.Out8(c.FeaturesPort(), 0); err != nil {
		c.ClearCurrentEntry()
		return nil, err
	}
	if err := c.Bus.Out8(c.CommandPort(), uapi.CmdPacket); err != nil {
		c.ClearCurrentEntry()
		return nil, err
	}

	e.WaitCompletion(self)
	if e.Err != nil {
		return nil, e.Err
	}
	return e.PacketOut, nil
}

// armTaskFile programs the registers for an LBA28 sector-count command:
// device select, sector count, LBA, in the order the register layout
// reference specifies.
func (c *Controller) armTaskFile(slot int, lba uint32, count uint16) error {
	var tf uapi.TaskFileRegisters
	uapi.EncodeLBA28(&tf, lba, slot)
	tf.SectorCount = uapi.EncodeSectorCount(count)

	if err := c.Bus.Out8(c.DevHeadPort(), tf.DevHead); err != nil {
		return err
	}
	if err := c.Bus.Out8(c.SectorCntPort(), tf.SectorCount); err != nil {
		return err
	}
	if err := c.Bus.Out8(c.LBALowPort(), tf.LBALow); err != nil {
		return err
	}
	if err := c.Bus.Out8(c.LBAMidPort(), tf.LBAMid); err != nil {
		return err
	}
	return c.Bus.Out8(c.LBAHighPort(), tf.LBAHigh)
}
