package probe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patax/goide/internal/controller"
	"github.com/patax/goide/internal/portio"
)

func newTestController(t *testing.T, master, slave *portio.SimDevice) *controller.Controller {
	t.Helper()
	bus := portio.NewSimulatedBus()
	bus.AttachChannel(0x1F0, 0x3F4, 14, master, slave)
	return controller.New(0, 0x1F0, 0x3F4, 0, 14, bus)
}

func TestProbeControllerFindsATADevice(t *testing.T) {
	dev := portio.NewSimDevice(2000)
	ctrl := newTestController(t, dev, nil)

	require.NoError(t, ProbeController(ctrl))
	require.True(t, ctrl.Devices[0].Present)
	require.False(t, ctrl.Devices[0].IsATAPI)
	require.EqualValues(t, 2000, ctrl.Devices[0].TotalSectors)
	require.False(t, ctrl.Devices[1].Present)

	// IDENTIFY word 0 bit 6 (fixed device) drives the HDD flag, not
	// ATA-vs-ATAPI kind alone.
	require.True(t, ctrl.Devices[0].HDD)
	require.False(t, ctrl.Devices[0].Removable)
}

func TestProbeControllerFindsATAPIDevice(t *testing.T) {
	dev := portio.NewSimDevice(0)
	dev.IsATAPI = true
	dev.IdentifyData[0] = 1<<15 | 1<<7
	ctrl := newTestController(t, dev, nil)

	require.NoError(t, ProbeController(ctrl))
	require.True(t, ctrl.Devices[0].Present)
	require.True(t, ctrl.Devices[0].IsATAPI)
	require.True(t, ctrl.Devices[0].Removable)
	require.False(t, ctrl.Devices[0].HDD)
}

func TestProbeControllerATADeviceWithoutFixedBitIsNotHDD(t *testing.T) {
	dev := portio.NewSimDevice(100)
	dev.IdentifyData[0] = 0 // neither fixed nor removable bit set
	ctrl := newTestController(t, dev, nil)

	require.NoError(t, ProbeController(ctrl))
	require.True(t, ctrl.Devices[0].Present)
	require.False(t, ctrl.Devices[0].HDD)
	require.False(t, ctrl.Devices[0].Removable)
}

func TestProbeControllerEmptySlotStaysAbsent(t *testing.T) {
	ctrl := newTestController(t, nil, nil)
	require.NoError(t, ProbeController(ctrl))
	require.False(t, ctrl.Devices[0].Present)
	require.False(t, ctrl.Devices[1].Present)
}
