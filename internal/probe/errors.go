package probe

import "errors"

var (
	// errTimeout is returned when BSY fails to clear within the bound the
	// caller (reset or IDENTIFY) allows.
	errTimeout = errors.New("probe: timed out waiting for BSY to clear")

	// errAborted is returned when IDENTIFY sets the ERR status bit.
	errAborted = errors.New("probe: device aborted IDENTIFY command")
)
