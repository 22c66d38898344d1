package controller

import (
	"github.com/patax/goide/internal/constants"
	"github.com/patax/goide/internal/portio"
	"github.com/patax/goide/internal/uapi"
)

// PCIFunction is the subset of a PCI configuration-space function header
// this package needs. It is supplied by a PCI enumeration layer that is
// out of scope for this module — this driver only classifies and attaches
// to functions it is handed.
type PCIFunction struct {
	Bus, Device, Function uint8
	ClassCode             uint8
	Subclass              uint8
	ProgIF                uint8
	HeaderType            uint8
	BARs                  [6]uint32
	IRQLine               uint8
}

// IsMassStorage reports whether the function's class code identifies it as
// a mass-storage controller at all (IDE or SATA in legacy/IDE-compatible
// mode), decoding the class/subclass byte pair with a plain bitwise AND.
//
// The original driver this was translated from decoded the class byte with
// `&&` instead of `&`, which short-circuits to a boolean and silently
// misclassifies every function whose class code isn't exactly 1; this is
// the corrected decode.
func (f PCIFunction) IsMassStorage() bool {
	return f.ClassCode&0xFF == uapi.PCIClassMassStorage
}

// IsIDECompatible reports whether the function is a mass-storage PATA
// (subclass 0x01) or SATA (subclass 0x06) controller. Only the class and
// subclass are checked: ProgIF is not consulted, so an AHCI-mode SATA
// function is accepted too, and legacy versus native channel mode is
// decided per channel by channelPorts.
func (f PCIFunction) IsIDECompatible() bool {
	if !f.IsMassStorage() {
		return false
	}
	return f.Subclass == uapi.PCISubclassIDE || f.Subclass == uapi.PCISubclassSATA
}

// channelPorts derives the command-block base, control-block base, and IRQ
// for one of a function's two channels (primary=0, secondary=1). A BAR
// value of 0 (or the channel's own native-mode ProgIF bit clear, see
// progIFNativeBit, meaning the channel runs in legacy/compatibility mode)
// means the legacy fixed ports and IRQ
// are substituted in, exactly as the hardware does when compatibility mode
// is selected.
func channelPorts(f PCIFunction, primary bool) (cmdBase, ctrlBase uint16, irq int) {
	var barIdx int
	var legacyCmd, legacyCtrl uint16
	var legacyIRQ int
	if primary {
		barIdx = 0
		legacyCmd, legacyCtrl, legacyIRQ = constants.PrimaryCommandBase, constants.PrimaryControlBase, constants.PrimaryIRQ
	} else {
		barIdx = 2
		legacyCmd, legacyCtrl, legacyIRQ = constants.SecondaryCommandBase, constants.SecondaryControlBase, constants.SecondaryIRQ
	}

	nativeMode := f.ProgIF&progIFNativeBit(primary) != 0
	if !nativeMode {
		return legacyCmd, legacyCtrl, legacyIRQ
	}

	cmdBAR := f.BARs[barIdx]
	ctrlBAR := f.BARs[barIdx+1]
	if cmdBAR == 0 || ctrlBAR == 0 {
		return legacyCmd, legacyCtrl, legacyIRQ
	}
	cmdBase = uint16(cmdBAR & uapi.PCIBARAddressMask)
	ctrlBase = uint16(ctrlBAR & uapi.PCIBARAddressMask)
	return cmdBase, ctrlBase, int(f.IRQLine)
}

// progIFNativeBit returns the ProgIF bit that indicates the given channel
// is running in native PCI mode rather than legacy/compatibility mode: bit
// 0 for the primary channel, bit 2 for the secondary channel.
func progIFNativeBit(primary bool) uint8 {
	if primary {
		return 1 << 0
	}
	return 1 << 2
}

// busMasterBase derives the bus-master IDE register base for a channel from
// BAR4: the primary channel's bus-master registers live at BAR4+0, the
// secondary channel's at BAR4+8.
func busMasterBase(f PCIFunction, primary bool) uint16 {
	base := uint16(f.BARs[4] & uapi.PCIBARAddressMask)
	if primary {
		return base
	}
	return base + 8
}

// AttachPCIFunction classifies a PCI function and, if it is an IDE-family
// mass-storage controller, derives its primary and secondary channels as
// two logical Controllers sharing the given Bus implementation. Channels
// that end up at the same port base as one previously attached (common
// when two PCI functions both decode to legacy ports) are suppressed.
func AttachPCIFunction(f PCIFunction, bus portio.Bus, seen map[uint16]bool) []*Controller {
	if !f.IsIDECompatible() {
		return nil
	}
	if seen == nil {
		seen = make(map[uint16]bool)
	}

	var out []*Controller
	for i, primary := range []bool{true, false} {
		cmdBase, ctrlBase, irq := channelPorts(f, primary)
		if seen[cmdBase] {
			continue
		}
		seen[cmdBase] = true
		bm := busMasterBase(f, primary)
		out = append(out, New(i, cmdBase, ctrlBase, bm, irq, bus))
	}
	return out
}
