package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patax/goide/internal/constants"
	"github.com/patax/goide/internal/portio"
	"github.com/patax/goide/internal/uapi"
)

func TestAttachPCIFunctionLegacyCompatibilityMode(t *testing.T) {
	f := PCIFunction{
		ClassCode: 0x01,
		Subclass:  0x01,
		ProgIF:    0x00, // both channels in legacy/compatibility mode
		IRQLine:   11,
	}
	bus := portio.NewSimulatedBus()

	ctrls := AttachPCIFunction(f, bus, nil)
	require.Len(t, ctrls, 2)
	require.EqualValues(t, constants.PrimaryCommandBase, ctrls[0].CommandBase)
	require.EqualValues(t, constants.PrimaryControlBase, ctrls[0].ControlBase)
	require.EqualValues(t, constants.PrimaryIRQ, ctrls[0].IRQ)
	require.EqualValues(t, constants.SecondaryCommandBase, ctrls[1].CommandBase)
	require.EqualValues(t, constants.SecondaryIRQ, ctrls[1].IRQ)
}

func TestAttachPCIFunctionRejectsNonMassStorage(t *testing.T) {
	f := PCIFunction{ClassCode: 0x02, Subclass: 0x00}
	bus := portio.NewSimulatedBus()
	require.Nil(t, AttachPCIFunction(f, bus, nil))
}

func TestAttachPCIFunctionDedupsByBase(t *testing.T) {
	f := PCIFunction{ClassCode: 0x01, Subclass: 0x01, ProgIF: 0x00}
	bus := portio.NewSimulatedBus()
	seen := map[uint16]bool{}

	first := AttachPCIFunction(f, bus, seen)
	require.Len(t, first, 2)

	second := AttachPCIFunction(f, bus, seen)
	require.Len(t, second, 0, "identical legacy ports should be suppressed the second time")
}

func TestAttachPCIFunctionNativeModeUsesBARs(t *testing.T) {
	f := PCIFunction{
		ClassCode: 0x01,
		Subclass:  0x06,
		ProgIF:    0x01 | 0x04, // both channels native
		BARs: [6]uint32{
			0xC000 | uapi.PCIBARIOSpaceBit, 0xC400 | uapi.PCIBARIOSpaceBit,
			0xC800 | uapi.PCIBARIOSpaceBit, 0xCC00 | uapi.PCIBARIOSpaceBit,
			0xD000 | uapi.PCIBARIOSpaceBit, 0,
		},
		IRQLine: 10,
	}
	bus := portio.NewSimulatedBus()
	ctrls := AttachPCIFunction(f, bus, nil)
	require.Len(t, ctrls, 2)
	require.EqualValues(t, 0xC000, ctrls[0].CommandBase)
	require.EqualValues(t, 0xD000, ctrls[0].BusMasterBase)
	require.EqualValues(t, 0xD008, ctrls[1].BusMasterBase)
}
