package ide

import (
	"context"
	"testing"

	"github.com/patax/goide/internal/controller"
	"github.com/patax/goide/internal/portio"
)

// TestHarness wires a Registry to an in-memory SimulatedBus so package
// consumers can exercise Setup/ReadSectors/WriteSectors/Flush/SendPacket
// without real hardware.
type TestHarness struct {
	Bus      *portio.SimulatedBus
	Registry *Registry
	Master   *portio.SimDevice
	Slave    *portio.SimDevice
}

// NewTestHarness attaches a single legacy-mode primary controller with the
// given master/slave simulated devices (either may be nil for an absent
// slot) and probes it, returning a ready-to-use Registry.
func NewTestHarness(t *testing.T, master, slave *portio.SimDevice) *TestHarness {
	t.Helper()

	bus := portio.NewSimulatedBus()
	bus.AttachChannel(0x1F0, 0x3F4, 14, master, slave)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// Setup's no-PCI fallback would also attach a secondary controller that
	// the bus does not simulate. Describe instead one IDE function whose two
	// channels both decode to the primary ports: AttachPCIFunction drops the
	// duplicate, so exactly one controller (0x1F0/0x3F4, IRQ 14) is attached.
	primaryOnly := controller.PCIFunction{
		ClassCode: 0x01, Subclass: 0x01, ProgIF: 0x05,
		BARs:    [6]uint32{0x1F1, 0x3F5, 0x1F1, 0x3F5},
		IRQLine: 14,
	}
	reg, err := Setup(DeviceParams{Bus: bus, PCIFunctions: []controller.PCIFunction{primaryOnly}}, &Options{Context: ctx})
	if err != nil {
		t.Fatalf("ide: test harness setup failed: %v", err)
	}
	t.Cleanup(reg.Close)

	return &TestHarness{Bus: bus, Registry: reg, Master: master, Slave: slave}
}

// PrimaryDevice returns the master device slot on the harness's sole
// controller.
func (h *TestHarness) PrimaryDevice() *Device {
	return h.Registry.Devices[0]
}

// SecondaryDevice returns the slave device slot on the harness's sole
// controller.
func (h *TestHarness) SecondaryDevice() *Device {
	return h.Registry.Devices[1]
}

// NewATADevice builds a SimDevice that answers IDENTIFY DEVICE (not
// IDENTIFY PACKET DEVICE) with the given capacity, for ReadSectors and
// WriteSectors test coverage.
func NewATADevice(totalSectors uint32) *portio.SimDevice {
	return portio.NewSimDevice(totalSectors)
}

// NewATAPIDevice builds a SimDevice that answers IDENTIFY PACKET DEVICE and
// responds to PACKET commands with responder, delivered chunkSize bytes at
// a time (one chunk per interrupt), for SendPacket test coverage.
func NewATAPIDevice(chunkSize int, responder func(packet [12]byte) []byte) *portio.SimDevice {
	dev := portio.NewSimDevice(0)
	dev.IsATAPI = true
	dev.IdentifyData[0] = 1<<15 | 1<<7 // ATAPI device, removable media
	dev.PacketChunkSize = chunkSize
	dev.PacketResponder = responder
	return dev
}
