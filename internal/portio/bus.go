// Package portio abstracts the x86 I/O port space the IDE task-file and
// control registers live in. Real port access needs a privileged
// instruction (IN/OUT) that Go cannot emit without assembly; on Linux the
// standard userspace escape hatch is /dev/port, a file whose byte offsets
// alias the port address space. Tests run against SimulatedBus instead, an
// in-memory model of an ATA/ATAPI device.
package portio

// Bus is the port-I/O and IRQ-control contract the rest of the driver is
// written against. Everything above this interface is hardware-agnostic.
type Bus interface {
	In8(port uint16) (uint8, error)
	In16(port uint16) (uint16, error)
	Out8(port uint16, v uint8) error
	Out16(port uint16, v uint16) error

	// MaskIRQ and UnmaskIRQ gate interrupt delivery for a legacy PIC IRQ
	// line (14 or 15 for the primary/secondary IDE channel).
	MaskIRQ(irq int) error
	UnmaskIRQ(irq int) error

	// AckIRQ tells the interrupt controller the given IRQ has been
	// serviced, allowing further interrupts on that line.
	AckIRQ(irq int) error
}

// IRQWaiter is implemented by a Bus that can notify a caller of interrupt
// arrival. SimulatedBus implements it directly. DevPortBus implements it
// too, but its channel never receives, since /dev/port has no mechanism
// for delivering interrupts into userspace — see DevPortBus.WaitIRQ for
// the production wiring this implies.
type IRQWaiter interface {
	// WaitIRQ returns a channel that receives a value each time the given
	// IRQ line posts.
	WaitIRQ(irq int) <-chan struct{}
}

// Delay400ns burns the settle time the ATA spec requires after selecting a
// device or toggling a control register, by issuing four reads of the
// alternate status register — the traditional trick for a ~400ns delay
// without a real timer, since each PIO read costs roughly 100ns.
func Delay400ns(b Bus, altStatusPort uint16) error {
	for i := 0; i < 4; i++ {
		if _, err := b.In8(altStatusPort); err != nil {
			return err
		}
	}
	return nil
}

