package irq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patax/goide/internal/controller"
	"github.com/patax/goide/internal/portio"
	"github.com/patax/goide/internal/sched"
)

func startHandler(t *testing.T, ctrl *controller.Controller, bus portio.IRQWaiter) {
	t.Helper()
	h := New(ctrl, bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
}

func newController(t *testing.T, master, slave *portio.SimDevice) *controller.Controller {
	t.Helper()
	bus := portio.NewSimulatedBus()
	bus.AttachChannel(0x1F0, 0x3F4, 14, master, slave)
	ctrl := controller.New(0, 0x1F0, 0x3F4, 0, 14, bus)
	startHandler(t, ctrl, bus)
	return ctrl
}

func TestReadSectorsRoundTrip(t *testing.T) {
	dev := portio.NewSimDevice(100)
	ctrl := newController(t, dev, nil)
	self := sched.NewThread(sched.NormalPriority)

	writeBuf := make([]byte, 512)
	for i := range writeBuf {
		writeBuf[i] = byte(i)
	}
	require.NoError(t, ctrl.Devices[0].WriteSectors(self, 3, writeBuf, 1))

	readBuf := make([]byte, 512)
	require.NoError(t, ctrl.Devices[0].ReadSectors(self, 3, readBuf, 1))
	require.Equal(t, writeBuf, readBuf)
}

func TestWriteSectorsMultiSectorIteration(t *testing.T) {
	dev := portio.NewSimDevice(100)
	ctrl := newController(t, dev, nil)
	self := sched.NewThread(sched.NormalPriority)

	buf := make([]byte, 512*3)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	require.NoError(t, ctrl.Devices[0].WriteSectors(self, 10, buf, 3))

	for i := 0; i < 3; i++ {
		got := make([]byte, 512)
		require.NoError(t, ctrl.Devices[0].ReadSectors(self, uint32(10+i), got, 1))
		require.Equal(t, buf[i*512:(i+1)*512], got)
	}
}

func TestFlushCompletes(t *testing.T) {
	dev := portio.NewSimDevice(10)
	ctrl := newController(t, dev, nil)
	self := sched.NewThread(sched.NormalPriority)
	require.NoError(t, ctrl.Devices[0].Flush(self))
}

func TestReadSectorsErrorOnAbsentDevice(t *testing.T) {
	ctrl := newController(t, nil, nil)
	self := sched.NewThread(sched.NormalPriority)
	buf := make([]byte, 512)
	err := ctrl.Devices[0].ReadSectors(self, 0, buf, 1)
	require.Error(t, err)
}

func TestUnhandledInterruptPanics(t *testing.T) {
	dev := portio.NewSimDevice(10)
	bus := portio.NewSimulatedBus()
	bus.AttachChannel(0x1F0, 0x3F4, 14, dev, nil)
	ctrl := controller.New(0, 0x1F0, 0x3F4, 0, 14, bus)
	h := New(ctrl, bus)

	require.Panics(t, func() {
		h.onInterrupt()
	})
}

func TestSendPacketChunkedResponse(t *testing.T) {
	dev := portio.NewSimDevice(0)
	dev.IsATAPI = true
	dev.PacketChunkSize = 6
	dev.PacketResponder = func(packet [12]byte) []byte {
		return []byte("hello, atapi world!")
	}
	ctrl := newController(t, dev, nil)
	self := sched.NewThread(sched.NormalPriority)

	var packet [12]byte
	out, err := ctrl.Devices[0].SendPacket(self, packet)
	require.NoError(t, err)
	require.Equal(t, "hello, atapi world!", string(out))
}

func TestSecondCommandWaitsForFirstToFinish(t *testing.T) {
	dev := portio.NewSimDevice(10)
	bus := portio.NewSimulatedBus()
	bus.AttachChannel(0x1F0, 0x3F4, 14, dev, nil)
	ctrl := controller.New(0, 0x1F0, 0x3F4, 0, 14, bus)

	// Only one command is ever in flight on a channel; a second caller
	// must block on the controller lock until the first completes.
	startHandler(t, ctrl, bus)

	self1 := sched.NewThread(sched.NormalPriority)
	self2 := sched.NewThread(sched.NormalPriority)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, ctrl.Devices[0].Flush(self2))
	}()

	require.NoError(t, ctrl.Devices[0].Flush(self1))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Flush never completed")
	}
}
