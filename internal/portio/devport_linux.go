//go:build linux

package portio

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/patax/goide/internal/logging"
)

// DevPortBus implements Bus against /dev/port, the Linux device node whose
// byte offsets alias the x86 I/O port address space. Pread/Pwrite at offset
// == port number is the documented way to reach IN/OUT-equivalent access
// from userspace without privileged assembly.
type DevPortBus struct {
	fd  *os.File
	mu  sync.Mutex
	log *logging.Logger
}

// NewDevPortBus opens /dev/port. The caller needs CAP_SYS_RAWIO (or root)
// for the open to succeed on a stock kernel.
func NewDevPortBus() (*DevPortBus, error) {
	f, err := os.OpenFile("/dev/port", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("portio: open /dev/port: %w", err)
	}
	return &DevPortBus{fd: f, log: logging.Default()}, nil
}

func (b *DevPortBus) Close() error { return b.fd.Close() }

func (b *DevPortBus) In8(port uint16) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf [1]byte
	if _, err := unix.Pread(int(b.fd.Fd()), buf[:], int64(port)); err != nil {
		return 0, fmt.Errorf("portio: in8(%#x): %w", port, err)
	}
	return buf[0], nil
}

func (b *DevPortBus) In16(port uint16) (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var buf [2]byte
	if _, err := unix.Pread(int(b.fd.Fd()), buf[:], int64(port)); err != nil {
		return 0, fmt.Errorf("portio: in16(%#x): %w", port, err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (b *DevPortBus) Out8(port uint16, v uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := [1]byte{v}
	if _, err := unix.Pwrite(int(b.fd.Fd()), buf[:], int64(port)); err != nil {
		return fmt.Errorf("portio: out8(%#x, %#x): %w", port, v, err)
	}
	return nil
}

func (b *DevPortBus) Out16(port uint16, v uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := [2]byte{byte(v), byte(v >> 8)}
	if _, err := unix.Pwrite(int(b.fd.Fd()), buf[:], int64(port)); err != nil {
		return fmt.Errorf("portio: out16(%#x, %#x): %w", port, v, err)
	}
	return nil
}

// Legacy 8259 PIC I/O ports: the mask register gates IRQ delivery, and
// writing picEOI to the command port acknowledges the current interrupt.
const (
	picMasterData = 0x21
	picSlaveData  = 0xA1
	picMasterCmd  = 0x20
	picSlaveCmd   = 0xA0
	picEOI        = 0x20
)

func (b *DevPortBus) irqMaskPort(irq int) (port uint16, bit uint8) {
	if irq < 8 {
		return picMasterData, 1 << uint(irq)
	}
	return picSlaveData, 1 << uint(irq-8)
}

func (b *DevPortBus) MaskIRQ(irq int) error {
	port, bit := b.irqMaskPort(irq)
	cur, err := b.In8(port)
	if err != nil {
		return err
	}
	return b.Out8(port, cur|bit)
}

func (b *DevPortBus) UnmaskIRQ(irq int) error {
	port, bit := b.irqMaskPort(irq)
	cur, err := b.In8(port)
	if err != nil {
		return err
	}
	return b.Out8(port, cur&^bit)
}

func (b *DevPortBus) AckIRQ(irq int) error {
	if irq >= 8 {
		if err := b.Out8(picSlaveCmd, picEOI); err != nil {
			return err
		}
	}
	return b.Out8(picMasterCmd, picEOI)
}

// WaitIRQ cannot be implemented against /dev/port: legacy PIC interrupt
// lines never reach userspace through this device node. The returned
// channel never fires; a real deployment needs a UIO/VFIO-backed IRQ
// source wired in separately, outside this module's scope (the same
// boundary spec.md draws around PCI enumeration).
func (b *DevPortBus) WaitIRQ(irq int) <-chan struct{} {
	b.log.Warn("WaitIRQ has no real implementation over /dev/port", "irq", irq)
	return make(chan struct{})
}

var (
	_ Bus       = (*DevPortBus)(nil)
	_ IRQWaiter = (*DevPortBus)(nil)
)
