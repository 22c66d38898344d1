// Package controller models one IDE channel: its task-file/control ports,
// its two device slots, and the command-queue pool commands are issued
// through. It also derives channels from a PCI function descriptor (the
// external collaborator spec.md treats PCI enumeration as).
package controller

import (
	"sync"

	"github.com/patax/goide/internal/cmdqueue"
	"github.com/patax/goide/internal/constants"
	"github.com/patax/goide/internal/logging"
	"github.com/patax/goide/internal/portio"
	"github.com/patax/goide/internal/uapi"
)

// Device is one ATA/ATAPI drive attached to a controller slot.
type Device struct {
	Ctrl *Controller
	Slot int // 0 = master, 1 = slave

	Present      bool
	IsATAPI      bool
	Removable    bool
	HDD          bool
	PowerDownCapable bool
	Identity     uapi.Identity
	TotalSectors uint32
}

// Controller is one IDE channel (what ide.cpp calls a "controller": a
// primary or secondary channel on a PCI IDE function, or its legacy
// compatibility-mode equivalent).
type Controller struct {
	Index int

	CommandBase   uint16
	ControlBase   uint16
	BusMasterBase uint16
	IRQ           int

	Bus  portio.Bus
	Pool *cmdqueue.Pool
	log  *logging.Logger

	Devices [2]*Device

	// mu serializes command issue: the hardware only ever has one command
	// in flight per channel, matching spec.md's concurrency model.
	mu sync.Mutex

	entryMu sync.Mutex
	entry   *cmdqueue.Entry // the single in-flight command, if any
}

// New creates a Controller at the given ports, with an empty command-queue
// pool of the configured capacity and no devices attached yet (Devices are
// filled in by the probe package).
func New(index int, cmdBase, ctrlBase, busMasterBase uint16, irq int, bus portio.Bus) *Controller {
	c := &Controller{
		Index:         index,
		CommandBase:   cmdBase,
		ControlBase:   ctrlBase,
		BusMasterBase: busMasterBase,
		IRQ:           irq,
		Bus:           bus,
		Pool:          cmdqueue.NewPool(constants.MaxCmdQueueEntries),
		log:           logging.Default(),
	}
	c.Devices[0] = &Device{Ctrl: c, Slot: 0}
	c.Devices[1] = &Device{Ctrl: c, Slot: 1}
	return c
}

// Lock/Unlock serialize command issue across the controller's single
// command channel; the command engine holds this for the duration of one
// ReadSectors/WriteSectors/Flush/SendPacket call.
func (c *Controller) Lock()   { c.mu.Lock() }
func (c *Controller) Unlock() { c.mu.Unlock() }

// DataPort, register port helpers: absolute port numbers for each
// task-file/control register, derived from the channel's command/control
// base.
func (c *Controller) DataPort() uint16      { return c.CommandBase + uapi.RegData }
func (c *Controller) ErrorPort() uint16     { return c.CommandBase + uapi.RegError }
func (c *Controller) FeaturesPort() uint16  { return c.CommandBase + uapi.RegFeatures }
func (c *Controller) SectorCntPort() uint16 { return c.CommandBase + uapi.RegSectorCnt }
func (c *Controller) LBALowPort() uint16    { return c.CommandBase + uapi.RegLBALow }
func (c *Controller) LBAMidPort() uint16    { return c.CommandBase + uapi.RegLBAMid }
func (c *Controller) LBAHighPort() uint16   { return c.CommandBase + uapi.RegLBAHigh }
func (c *Controller) DevHeadPort() uint16   { return c.CommandBase + uapi.RegDevHead }
func (c *Controller) StatusPort() uint16    { return c.CommandBase + uapi.RegStatus }
func (c *Controller) CommandPort() uint16   { return c.CommandBase + uapi.RegCommand }
func (c *Controller) AltStatusPort() uint16 { return c.ControlBase + uapi.CtrlAltStatus }
func (c *Controller) DeviceCtrlPort() uint16 { return c.ControlBase + uapi.CtrlDeviceCtrl }

// SelectDevice writes the Device/Head register to choose slot (0 or 1) for
// the next command, then burns the mandatory settle delay.
func (c *Controller) SelectDevice(slot int) error {
	if err := c.Bus.Out8(c.DevHeadPort(), uapi.DevHeadIsSet|uapi.DevHeadDev(slot)); err != nil {
		return err
	}
	return portio.Delay400ns(c.Bus, c.AltStatusPort())
}

// ReadStatus reads the primary status register, which — unlike the
// alternate status register — clears a pending interrupt as a side effect.
func (c *Controller) ReadStatus() (byte, error) {
	return c.Bus.In8(c.StatusPort())
}

// ReadAltStatus reads the alternate status register, which does not
// acknowledge an interrupt; used for polling loops during reset/identify.
func (c *Controller) ReadAltStatus() (byte, error) {
	return c.Bus.In8(c.AltStatusPort())
}

// SetCurrentEntry records the single in-flight command-queue entry, so the
// IRQ handler has something to dispatch a completion interrupt to. A
// second command must not be armed while one is already current —
// matching the one-command-per-channel hardware reality.
func (c *Controller) SetCurrentEntry(e *cmdqueue.Entry) {
	c.entryMu.Lock()
	defer c.entryMu.Unlock()
	c.entry = e
}

// CurrentEntry returns the in-flight entry, or nil if the channel is idle.
func (c *Controller) CurrentEntry() *cmdqueue.Entry {
	c.entryMu.Lock()
	defer c.entryMu.Unlock()
	return c.entry
}

// ClearCurrentEntry marks the channel idle again.
func (c *Controller) ClearCurrentEntry() {
	c.entryMu.Lock()
	defer c.entryMu.Unlock()
	c.entry = nil
}
