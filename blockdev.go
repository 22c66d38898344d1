package ide

import "github.com/patax/goide/internal/controller"

// BlockKind identifies the storage class a BlockDevice was exported from.
type BlockKind int

const (
	// KindIDE marks a block device backed by a non-removable ATA disk.
	KindIDE BlockKind = iota
)

// BlockDevice is the generic shape a higher-level block layer (partition
// parsing, filesystem mounting) consumes; this driver exports it but does
// not interpret it further.
type BlockDevice struct {
	Kind BlockKind

	// SectorSizeLog2 is log2 of the logical sector size; always 9 (512
	// bytes) for the LBA28 sector model this driver implements.
	SectorSizeLog2 uint8

	// Length is the device's capacity in logical sectors.
	Length uint32

	// Device is the underlying drive, for issuing ReadSectors/WriteSectors.
	Device *controller.Device
}

// ExportBlockDevices walks every controller's device slots and returns a
// BlockDevice for each present, non-removable, HDD-flagged ATA disk. ATAPI
// devices and removable media are not block devices in this model, and a
// device that IDENTIFY did not flag as a fixed disk (word 0 bit 6) is
// excluded even if it otherwise looks like plain ATA: partition parsing
// and filesystem mounting are out of scope and operate on whatever the
// caller does with the returned slice.
func ExportBlockDevices(reg *controller.Registry) []BlockDevice {
	var out []BlockDevice
	for _, dev := range reg.AllDevices() {
		if !dev.Present || dev.IsATAPI || dev.Removable || !dev.HDD {
			continue
		}
		out = append(out, BlockDevice{
			Kind:           KindIDE,
			SectorSizeLog2: 9,
			Length:         dev.TotalSectors,
			Device:         dev,
		})
	}
	return out
}
