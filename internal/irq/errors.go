package irq

import (
	"fmt"

	"github.com/patax/goide/internal/uapi"
)

// Kind is the internal ATA error-register classification. None of these
// distinctions cross the package boundary uninterpreted — callers only
// ever see a generic I/O error — but they are worth keeping for logging.
type Kind int

const (
	UnknownError Kind = iota
	BadBlock
	Uncorrectable
	IdNotFound
	Aborted
	Track0NotFound
	AddressMarkNotFound
)

func (k Kind) String() string {
	switch k {
	case BadBlock:
		return "bad block"
	case Uncorrectable:
		return "uncorrectable data error"
	case IdNotFound:
		return "sector ID not found"
	case Aborted:
		return "command aborted"
	case Track0NotFound:
		return "track 0 not found"
	case AddressMarkNotFound:
		return "address mark not found"
	default:
		return "unknown error"
	}
}

// CommandError wraps the decoded error-register kind for logging and for
// the command engine to translate into the package's public error type.
type CommandError struct {
	Kind Kind
	Bits byte
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ide: %s (error register %#02x)", e.Kind, e.Bits)
}

// DecodeError classifies the ATA error register's bits into one of the six
// internal kinds, checked in the same priority order ide.cpp's ide_irq
// uses: the lowest-numbered bit that is set wins.
func DecodeError(bits byte) error {
	switch {
	case bits&uapi.ErrAMNF != 0:
		return &CommandError{Kind: AddressMarkNotFound, Bits: bits}
	case bits&uapi.ErrTK0NF != 0:
		return &CommandError{Kind: Track0NotFound, Bits: bits}
	case bits&uapi.ErrABRT != 0:
		return &CommandError{Kind: Aborted, Bits: bits}
	case bits&uapi.ErrIDNF != 0:
		return &CommandError{Kind: IdNotFound, Bits: bits}
	case bits&uapi.ErrUNC != 0:
		return &CommandError{Kind: Uncorrectable, Bits: bits}
	case bits&uapi.ErrBBK != 0:
		return &CommandError{Kind: BadBlock, Bits: bits}
	default:
		return &CommandError{Kind: UnknownError, Bits: bits}
	}
}
