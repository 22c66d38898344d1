package ide

import (
	"io"

	"github.com/patax/goide/internal/constants"
)

// Backend is the generic storage surface a higher-level consumer
// (partition parsing, a filesystem, a block-copy tool) can drive without
// depending on this package's sector-oriented operations directly.
type Backend interface {
	ReadAt(p []byte, off int64) (n int, err error)
	WriteAt(p []byte, off int64) (n int, err error)
	Size() int64
	Flush() error
}

// BlockDeviceBackend adapts a non-removable ATA Device to the Backend
// interface, translating arbitrary byte offsets into whole-sector
// ReadSectors/WriteSectors calls. Unaligned or partial-sector accesses go
// through a bounce buffer.
type BlockDeviceBackend struct {
	dev *Device
}

// NewBlockDeviceBackend wraps dev for Backend-style access. dev must be
// present and not an ATAPI device; ATAPI access is only exposed through
// SendPacket, not a linear byte address space.
func NewBlockDeviceBackend(dev *Device) (*BlockDeviceBackend, error) {
	if !dev.Present() {
		return nil, NewDeviceError("BACKEND_OPEN", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNoDevice, "no device present")
	}
	if dev.IsATAPI() {
		return nil, NewDeviceError("BACKEND_OPEN", dev.inner.Ctrl.Index, dev.inner.Slot, ErrCodeNotImplemented, "ATAPI devices are not a linear byte address space")
	}
	return &BlockDeviceBackend{dev: dev}, nil
}

const sectorSize = constants.LogicalSectorSize

// Size returns the device's capacity in bytes.
func (b *BlockDeviceBackend) Size() int64 {
	return int64(b.dev.TotalSectors()) * sectorSize
}

// ReadAt reads len(p) bytes starting at byte offset off, reading whatever
// partial sectors touch the range through a bounce buffer.
func (b *BlockDeviceBackend) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= b.Size() {
		return 0, io.EOF
	}
	if int64(len(p)) > b.Size()-off {
		p = p[:b.Size()-off]
	}

	firstLBA := uint32(off / sectorSize)
	lastLBA := uint32((off + int64(len(p)) - 1) / sectorSize)
	count := lastLBA - firstLBA + 1

	bounce := make([]byte, int(count)*sectorSize)
	if _, err := ReadSectors(b.dev, firstLBA, bounce, uint16(count)); err != nil {
		return 0, err
	}

	start := off - int64(firstLBA)*sectorSize
	n := copy(p, bounce[start:])
	return n, nil
}

// WriteAt writes len(p) bytes starting at byte offset off. Sectors that
// are only partially covered by p are read-modify-written through a
// bounce buffer so the untouched bytes in that sector are preserved.
func (b *BlockDeviceBackend) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= b.Size() {
		return 0, NewDeviceError("BACKEND_WRITE", b.dev.inner.Ctrl.Index, b.dev.inner.Slot, ErrCodeInvalidParameters, "offset beyond device size")
	}
	if int64(len(p)) > b.Size()-off {
		p = p[:b.Size()-off]
	}

	firstLBA := uint32(off / sectorSize)
	lastLBA := uint32((off + int64(len(p)) - 1) / sectorSize)
	count := lastLBA - firstLBA + 1

	bounce := make([]byte, int(count)*sectorSize)
	start := off - int64(firstLBA)*sectorSize
	fullyAligned := start == 0 && int64(len(p)) == int64(count)*sectorSize
	if !fullyAligned {
		if _, err := ReadSectors(b.dev, firstLBA, bounce, uint16(count)); err != nil {
			return 0, err
		}
	}
	copy(bounce[start:], p)

	if _, err := WriteSectors(b.dev, firstLBA, bounce, uint16(count)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush issues FLUSH CACHE against the underlying device.
func (b *BlockDeviceBackend) Flush() error {
	_, err := Flush(b.dev)
	return err
}

var _ Backend = (*BlockDeviceBackend)(nil)
