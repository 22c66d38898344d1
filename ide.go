// Package ide implements a PATA/ATA/ATAPI (IDE) mass-storage driver and the
// thread-synchronization substrate (mutexes, condition variables,
// scheduler-visible wait queues) it is built on.
package ide

import (
	"context"
	"fmt"
	"time"

	"github.com/patax/goide/internal/constants"
	"github.com/patax/goide/internal/controller"
	"github.com/patax/goide/internal/irq"
	"github.com/patax/goide/internal/logging"
	"github.com/patax/goide/internal/portio"
	"github.com/patax/goide/internal/probe"
	"github.com/patax/goide/internal/sched"
)

// Device is the public handle to one attached drive: a thin wrapper over
// the internal controller.Device plus a link to its public Controller,
// which holds the cancel function for the IRQ handler goroutine.
type Device struct {
	inner *controller.Device
	ctrl  *Controller
}

// Controller is the public handle to one IDE channel plus the goroutine
// servicing its interrupts.
type Controller struct {
	inner    *controller.Controller
	cancel   context.CancelFunc
	observer Observer
}

// Registry is the public collection of attached controllers and devices,
// returned by Setup.
type Registry struct {
	inner *controller.Registry

	Controllers []*Controller
	Devices     []*Device
}

// DeviceParams configures how Setup attaches to hardware.
type DeviceParams struct {
	// PCIFunctions are the mass-storage PCI functions discovered by the
	// (out-of-scope) enumeration layer. If empty, Setup falls back to a
	// single legacy-mode primary/secondary controller pair at the fixed
	// compatibility ports.
	PCIFunctions []controller.PCIFunction

	// Bus is the port-I/O backend every controller shares. Use
	// portio.NewSimulatedBus() in tests; on Linux, portio.NewDevPortBus()
	// talks to /dev/port.
	Bus portio.Bus
}

// DefaultParams returns parameters describing the legacy-only fallback
// topology (one primary, one secondary controller, no PCI functions).
func DefaultParams(bus portio.Bus) DeviceParams {
	return DeviceParams{Bus: bus}
}

// Options carries cross-cutting concerns Setup should use instead of
// package-level defaults.
type Options struct {
	// Context bounds the lifetime of every controller's IRQ handler
	// goroutine; cancelling it stops the driver. If nil, Setup derives an
	// internally-owned context that Registry.Close cancels.
	Context context.Context

	// Logger receives Setup's own diagnostics. If nil, the package default
	// logger is used. The probe and the IRQ handlers log through
	// logging.Default() whatever is set here.
	Logger *logging.Logger

	// Observer receives per-operation metrics. If nil, a NoOpObserver is
	// used.
	Observer Observer
}

// Setup attaches every configured controller, probes both of its device
// slots, and then starts its IRQ handler. It mirrors the teacher's
// CreateAndServe: parameters in, a ready-to-use registry out.
func Setup(params DeviceParams, options *Options) (*Registry, error) {
	if params.Bus == nil {
		return nil, NewError("SETUP", ErrCodeInvalidParameters, "Bus must not be nil")
	}
	if options == nil {
		options = &Options{}
	}
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := options.Logger
	if log == nil {
		log = logging.Default()
	}
	var observer Observer = NoOpObserver{}
	if options.Observer != nil {
		observer = options.Observer
	}

	var raw []*controller.Controller
	if len(params.PCIFunctions) == 0 {
		raw = []*controller.Controller{
			controller.New(0, constants.PrimaryCommandBase, constants.PrimaryControlBase, 0, constants.PrimaryIRQ, params.Bus),
			controller.New(1, constants.SecondaryCommandBase, constants.SecondaryControlBase, 0, constants.SecondaryIRQ, params.Bus),
		}
	} else {
		seen := map[uint16]bool{}
		for _, f := range params.PCIFunctions {
			raw = append(raw, controller.AttachPCIFunction(f, params.Bus, seen)...)
		}
	}

	reg := &Registry{inner: controller.NewRegistry()}
	waiter, _ := params.Bus.(portio.IRQWaiter)

	for _, c := range raw {
		reg.inner.Add(c)

		cctx, cancel := context.WithCancel(ctx)
		pc := &Controller{inner: c, cancel: cancel, observer: observer}
		reg.Controllers = append(reg.Controllers, pc)

		// The probe polls and issues no command-queue entries, so the IRQ
		// handler starts only after it: an interrupt raised by a probe
		// command would otherwise reach the handler with nothing in flight.
		if err := probe.ProbeController(c); err != nil {
			return nil, WrapError(fmt.Sprintf("PROBE[ctrl=%d]", c.Index), err)
		}
		for _, d := range c.Devices {
			reg.Devices = append(reg.Devices, &Device{inner: d, ctrl: pc})
		}

		if waiter != nil {
			h := irq.New(c, waiter)
			go h.Run(cctx)
		} else {
			log.Warnf("controller %d: bus does not implement IRQWaiter, IRQ-driven commands will hang", c.Index)
		}
	}

	return reg, nil
}

// Close stops every controller's IRQ handler goroutine.
func (r *Registry) Close() {
	for _, c := range r.Controllers {
		c.cancel()
	}
}

// Present reports whether a drive responded to probing.
func (d *Device) Present() bool { return d.inner.Present }

// IsATAPI reports whether the drive speaks the ATAPI packet protocol.
func (d *Device) IsATAPI() bool { return d.inner.IsATAPI }

// TotalSectors is the drive's reported LBA28 capacity in 512-byte sectors.
func (d *Device) TotalSectors() uint32 { return d.inner.TotalSectors }

// Model is the drive's trimmed IDENTIFY model string.
func (d *Device) Model() string { return d.inner.Identity.Model }

// ReadSectors reads count sectors (0 meaning 256) starting at lba into buf,
// which must be at least count*512 bytes.
func ReadSectors(dev *Device, lba uint32, buf []byte, count uint16) (IDEErrorCode, error) {
	if !dev.inner.Present {
		return ErrCodeNoDevice, NewDeviceError("READ_SECTORS", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNoDevice, "no device present")
	}
	self := sched.NewThread(sched.NormalPriority)
	start := time.Now()
	err := dev.inner.ReadSectors(self, lba, buf, count)
	dev.ctrl.observer.ObserveRead(uint64(len(buf)), uint64(time.Since(start)), err == nil)
	if err != nil {
		wrapped := WrapError("READ_SECTORS", err)
		return wrapped.Code, wrapped
	}
	return "", nil
}

// WriteSectors writes count sectors (1..256) starting at lba from buf.
func WriteSectors(dev *Device, lba uint32, buf []byte, count uint16) (IDEErrorCode, error) {
	if !dev.inner.Present {
		return ErrCodeNoDevice, NewDeviceError("WRITE_SECTORS", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNoDevice, "no device present")
	}
	self := sched.NewThread(sched.NormalPriority)
	start := time.Now()
	err := dev.inner.WriteSectors(self, lba, buf, count)
	dev.ctrl.observer.ObserveWrite(uint64(len(buf)), uint64(time.Since(start)), err == nil)
	if err != nil {
		wrapped := WrapError("WRITE_SECTORS", err)
		return wrapped.Code, wrapped
	}
	return "", nil
}

// Flush issues FLUSH CACHE.
func Flush(dev *Device) (IDEErrorCode, error) {
	if !dev.inner.Present {
		return ErrCodeNoDevice, NewDeviceError("FLUSH", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNoDevice, "no device present")
	}
	self := sched.NewThread(sched.NormalPriority)
	start := time.Now()
	err := dev.inner.Flush(self)
	dev.ctrl.observer.ObserveFlush(uint64(time.Since(start)), err == nil)
	if err != nil {
		wrapped := WrapError("FLUSH", err)
		return wrapped.Code, wrapped
	}
	return "", nil
}

// Direction indicates which way an ATAPI PACKET command's data phase
// moves: ToHost for the common case (read results, INQUIRY/sense data),
// ToDevice for commands that write a payload to the drive.
type Direction int

const (
	DirectionToHost Direction = iota
	DirectionToDevice
)

// SendPacket issues a 12-byte ATAPI command packet and, for ToHost
// transfers, copies the device's response into buf (truncated if buf is
// shorter than the response). ToDevice transfers are not implemented: the
// byte-count-driven data phase this driver implements only pulls data from
// the device, matching the read-dominated set of ATAPI commands (INQUIRY,
// READ(10), READ CAPACITY) this driver targets; see DESIGN.md.
func SendPacket(dev *Device, packet [12]byte, buf []byte, direction Direction) (IDEErrorCode, error) {
	if !dev.inner.Present || !dev.inner.IsATAPI {
		return ErrCodeNoDevice, NewDeviceError("SEND_PACKET", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNoDevice, "no ATAPI device present")
	}
	if direction == DirectionToDevice {
		return ErrCodeNotImplemented, NewDeviceError("SEND_PACKET", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNotImplemented, "host-to-device ATAPI data phase not implemented")
	}
	self := sched.NewThread(sched.NormalPriority)
	start := time.Now()
	out, err := dev.inner.SendPacket(self, packet)
	dev.ctrl.observer.ObservePacket(uint64(time.Since(start)), err == nil)
	if err != nil {
		wrapped := WrapError("SEND_PACKET", err)
		return wrapped.Code, wrapped
	}
	copy(buf, out)
	return "", nil
}
