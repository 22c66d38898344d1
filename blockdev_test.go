package ide

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patax/goide/internal/portio"
)

func TestExportBlockDevicesSkipsATAPIAndAbsent(t *testing.T) {
	h := NewTestHarness(t, NewATADevice(2048), NewATAPIDevice(4, func([12]byte) []byte { return nil }))

	devices := ExportBlockDevices(h.Registry.inner)
	require.Len(t, devices, 1)
	require.Equal(t, KindIDE, devices[0].Kind)
	require.Equal(t, uint8(9), devices[0].SectorSizeLog2)
	require.Equal(t, uint32(2048), devices[0].Length)
}

func TestExportBlockDevicesEmptyWhenNoDisks(t *testing.T) {
	h := NewTestHarness(t, nil, nil)
	devices := ExportBlockDevices(h.Registry.inner)
	require.Empty(t, devices)
}

func TestExportBlockDevicesSkipsATADeviceWithoutHDDFlag(t *testing.T) {
	dev := portio.NewSimDevice(100)
	dev.IdentifyData[0] = 0 // ATA, but IDENTIFY never set the fixed-device bit
	h := NewTestHarness(t, dev, nil)

	devices := ExportBlockDevices(h.Registry.inner)
	require.Empty(t, devices)
}
