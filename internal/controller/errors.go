package controller

import "errors"

var (
	// errDataRequestTimeout is returned when a WRITE SECTORS data phase
	// never asserts DRQ within constants.DataRequestTimeout.
	errDataRequestTimeout = errors.New("controller: timed out waiting for DRQ")

	// errWriteAborted is returned when the ERR status bit is set while
	// polling for a WRITE SECTORS data phase.
	errWriteAborted = errors.New("controller: device aborted WRITE SECTORS")
)
