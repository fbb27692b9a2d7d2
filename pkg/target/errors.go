package target

import "errors"

var (
	// ErrInvalidTargetBin is returned when target_bin does not point to a
	// regular file.
	ErrInvalidTargetBin = errors.New("target: invalid target binary")
	// ErrInvalidWorkingDir is returned when target_wd does not point to an
	// existing directory.
	ErrInvalidWorkingDir = errors.New("target: invalid working directory")
	// ErrTargetSpawnFailed is returned when the target process could not
	// be started.
	ErrTargetSpawnFailed = errors.New("target: spawn failed")
	// ErrTargetWriteFailed is returned when the input file could not be
	// written before spawn.
	ErrTargetWriteFailed = errors.New("target: write input failed")
)
