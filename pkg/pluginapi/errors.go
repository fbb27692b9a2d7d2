package pluginapi

import "errors"

var (
	// ErrLoadError is returned when the OS failed to open the plugin file.
	ErrLoadError = errors.New("pluginapi: load error")
	// ErrAbiMismatch is returned when the plugin's ABIVersion symbol does
	// not match this driver's compiled-in ABIVersion.
	ErrAbiMismatch = errors.New("pluginapi: abi mismatch")
	// ErrMissingSymbol is returned when a required lifecycle symbol is
	// absent or has the wrong type.
	ErrMissingSymbol = errors.New("pluginapi: missing symbol")
)
