// Package constants holds the compile-time limits and timing values shared
// across the driver's internal packages.
package constants

import "time"

// Topology constants
const (
	// MaxControllers is the nominal number of IDE controllers. Setup does
	// not consult it: it probes every controller it attaches.
	MaxControllers = 4

	// DevicesPerController is fixed by the ATA cabling convention (master/slave).
	DevicesPerController = 2

	// MaxCmdQueueEntries is the size of each controller's command-queue pool.
	// One in-flight command per controller is all the hardware ever services,
	// but the pool is sized above 1 so a second command can be queued while an
	// IRQ completion is still being processed.
	MaxCmdQueueEntries = 4

	// LogicalSectorSizeLog2 is log2(512), the fixed PATA sector size.
	LogicalSectorSizeLog2 = 9

	// LogicalSectorSize is the fixed PATA sector size in bytes.
	LogicalSectorSize = 1 << LogicalSectorSizeLog2

	// AtapiPacketLength is the fixed length of an ATAPI command packet.
	AtapiPacketLength = 12

	// MaxSectorsPerCommand is the largest transfer a single READ/WRITE SECTORS
	// command can address; 0 in the sector-count register means 256.
	MaxSectorsPerCommand = 256
)

// Legacy port and IRQ defaults, substituted in whenever a PCI BAR decodes to 0
// (the PCI device is operating in "compatibility mode").
const (
	PrimaryCommandBase   = 0x1F0
	PrimaryControlBase   = 0x3F4
	SecondaryCommandBase = 0x170
	SecondaryControlBase = 0x374

	PrimaryIRQ   = 14
	SecondaryIRQ = 15
)

// Timing constants
//
// These mirror the delays ide.cpp hard-codes around reset and command
// issue. They exist because the ATA protocol requires the host to leave the
// drive time to latch a register write or settle after a signal change
// before the next register access is meaningful.
const (
	// RegisterSettleDelay is the minimum time to wait after selecting a device
	// or writing a control register before trusting the next status read.
	// Four reads of the alternate status register, 100ns apart, are the
	// traditional way to burn this delay without a real timer.
	RegisterSettleDelay = 400 * time.Nanosecond

	// ResetPulseDelay is the gap between the register writes that carry out a
	// software reset (nIEN, nIEN|SRST, nIEN).
	ResetPulseDelay = 5 * time.Microsecond

	// ResetTimeout bounds how long a software reset is allowed to leave BSY set.
	ResetTimeout = 30 * time.Second

	// IdentifyTimeout bounds how long an IDENTIFY command is allowed to leave
	// BSY set before the device is declared unresponsive.
	IdentifyTimeout = 1 * time.Second

	// IdentifyPollInterval is the granularity of the BSY-clear poll during
	// IDENTIFY and reset.
	IdentifyPollInterval = 1 * time.Microsecond

	// DataRequestTimeout bounds how long a freshly issued WRITE SECTORS
	// command is allowed to leave DRQ unasserted before its data phase is
	// considered hung. Unlike READ SECTORS (whose data-ready event is
	// interrupt-driven), WRITE SECTORS asserts DRQ for the sector it wants
	// synchronously, so the issuer polls for it rather than waiting on the
	// IRQ handler.
	DataRequestTimeout = 1 * time.Second
)
