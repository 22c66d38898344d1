// Package probe implements controller/device discovery: the software reset
// sequence, signature-based ATA/ATAPI/SATA classification, and the IDENTIFY
// DEVICE / IDENTIFY PACKET DEVICE issue-and-parse that fills in a Device's
// Identity.
package probe

import (
	"time"

	"github.com/patax/goide/internal/constants"
	"github.com/patax/goide/internal/controller"
	"github.com/patax/goide/internal/logging"
	"github.com/patax/goide/internal/uapi"
)

// Signature classifies what, if anything, a reset left attached to a slot.
type Signature int

const (
	SigAbsent Signature = iota
	SigATA
	SigATAPI
	SigSATA
	SigSATAPI
)

func (s Signature) String() string {
	switch s {
	case SigAbsent:
		return "absent"
	case SigATA:
		return "ata"
	case SigATAPI:
		return "atapi"
	case SigSATA:
		return "sata"
	case SigSATAPI:
		return "satapi"
	default:
		return "unknown"
	}
}

// Reset carries out the software reset sequence on a channel's control
// register: assert nIEN, pulse SRST, release it, each step separated by
// ResetPulseDelay, then poll the alternate status register for BSY to
// clear, bounded by ResetTimeout.
func Reset(ctrl *controller.Controller) error {
	if err := ctrl.Bus.Out8(ctrl.DeviceCtrlPort(), uapi.DevCtrlNIEN); err != nil {
		return err
	}
	time.Sleep(constants.ResetPulseDelay)
	if err := ctrl.Bus.Out8(ctrl.DeviceCtrlPort(), uapi.DevCtrlNIEN|uapi.DevCtrlSRST); err != nil {
		return err
	}
	time.Sleep(constants.ResetPulseDelay)
	if err := ctrl.Bus.Out8(ctrl.DeviceCtrlPort(), uapi.DevCtrlNIEN); err != nil {
		return err
	}
	time.Sleep(constants.ResetPulseDelay)

	return pollBSYClear(ctrl, constants.ResetTimeout)
}

func pollBSYClear(ctrl *controller.Controller, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		status, err := ctrl.ReadAltStatus()
		if err != nil {
			return err
		}
		if status&uapi.StatusBSY == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return errTimeout
		}
		time.Sleep(constants.IdentifyPollInterval)
	}
}

// ClassifySignature selects slot, issues EXECUTE DEVICE DIAGNOSTIC, and
// reads back the LBA-mid/high signature bytes to determine what is
// attached, per the patterns in the ATA/ATAPI register-layout reference.
func ClassifySignature(ctrl *controller.Controller, slot int) (Signature, error) {
	if err := ctrl.SelectDevice(slot); err != nil {
		return SigAbsent, err
	}
	status, err := ctrl.ReadAltStatus()
	if err != nil {
		return SigAbsent, err
	}
	if status == 0 {
		return SigAbsent, nil
	}

	if err := ctrl.Bus.Out8(ctrl.CommandPort(), uapi.CmdExecDeviceDiagnostic); err != nil {
		return SigAbsent, err
	}
	if err := pollBSYClear(ctrl, constants.ResetTimeout); err != nil {
		return SigAbsent, err
	}

	mid, err := ctrl.Bus.In8(ctrl.LBAMidPort())
	if err != nil {
		return SigAbsent, err
	}
	high, err := ctrl.Bus.In8(ctrl.LBAHighPort())
	if err != nil {
		return SigAbsent, err
	}

	switch {
	case mid == uapi.SigATAPILBAMid && high == uapi.SigATAPILBAHigh:
		return SigATAPI, nil
	case mid == uapi.SigSATAPILBAMid && high == uapi.SigSATAPILBAHigh:
		return SigSATAPI, nil
	case mid == uapi.SigSATALBAMid && high == uapi.SigSATALBAHigh:
		return SigSATA, nil
	case mid == uapi.SigATALBAMid && high == uapi.SigATALBAHigh:
		return SigATA, nil
	default:
		return SigATA, nil
	}
}

// Identify issues IDENTIFY DEVICE (or IDENTIFY PACKET DEVICE for an ATAPI
// signature), waits up to IdentifyTimeout for BSY to clear and DRQ to
// assert, reads the 256-word IDENTIFY buffer, and parses it.
func Identify(ctrl *controller.Controller, slot int, isPacket bool) (uapi.Identity, error) {
	if err := ctrl.SelectDevice(slot); err != nil {
		return uapi.Identity{}, err
	}

	cmd := byte(uapi.CmdIdentifyDevice)
	if isPacket {
		cmd = uapi.CmdIdentifyPacketDevice
	}
	if err := ctrl.Bus.Out8(ctrl.CommandPort(), cmd); err != nil {
		return uapi.Identity{}, err
	}

	deadline := time.Now().Add(constants.IdentifyTimeout)
	for {
		status, err := ctrl.ReadAltStatus()
		if err != nil {
			return uapi.Identity{}, err
		}
		if status&uapi.StatusERR != 0 {
			return uapi.Identity{}, errAborted
		}
		if status&uapi.StatusBSY == 0 && status&uapi.StatusDRQ != 0 {
			break
		}
		if time.Now().After(deadline) {
			return uapi.Identity{}, errTimeout
		}
		time.Sleep(constants.IdentifyPollInterval)
	}

	var words [256]uint16
	for i := range words {
		w, err := ctrl.Bus.In16(ctrl.DataPort())
		if err != nil {
			return uapi.Identity{}, err
		}
		words[i] = w
	}

	return uapi.ParseIdentity(words, isPacket), nil
}

// ProbeController resets the channel, classifies and identifies whatever is
// attached to each of its two slots, and fills in ctrl.Devices accordingly.
// A slot that comes back absent, or whose IDENTIFY fails, is left with
// Present == false rather than aborting the other slot's probe.
func ProbeController(ctrl *controller.Controller) error {
	log := logging.Default()
	if err := Reset(ctrl); err != nil {
		return err
	}

	for slot := 0; slot < constants.DevicesPerController; slot++ {
		sig, err := ClassifySignature(ctrl, slot)
		if err != nil {
			log.Warnf("controller %d slot %d: classify failed: %v", ctrl.Index, slot, err)
			continue
		}

		dev := ctrl.Devices[slot]
		switch sig {
		case SigAbsent:
			dev.Present = false
			continue
		case SigSATA, SigSATAPI:
			// Native SATA devices accessed through legacy IDE emulation still
			// speak the same task-file protocol; treat them identically to
			// their PATA counterparts for IDENTIFY purposes.
			fallthrough
		case SigATA, SigATAPI:
			isPacket := sig == SigATAPI || sig == SigSATAPI
			id, err := Identify(ctrl, slot, isPacket)
			if err != nil {
				log.Warnf("controller %d slot %d: identify failed: %v", ctrl.Index, slot, err)
				dev.Present = false
				continue
			}
			dev.Present = true
			dev.IsATAPI = isPacket
			dev.Identity = id
			dev.TotalSectors = id.TotalSectors
			dev.Removable = id.Removable
			dev.HDD = id.HDD
			dev.PowerDownCapable = id.PowerDownCapable
		}
	}
	return nil
}
