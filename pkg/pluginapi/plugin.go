// Package pluginapi implements the plugin loader: resolving a dynamic
// module's lifecycle symbols and gating them by ABI-version string, per
// SPEC_FULL.md §4.C.
//
// Go's only standard mechanism for loading code from a separate compiled
// artifact at runtime is the stdlib "plugin" package (POSIX-only,
// buildmode=plugin). Each fuzzer plugin is therefore a package main built
// with `go build -buildmode=plugin`, exporting the symbols this package
// resolves.
package pluginapi

import (
	"fmt"
	"path/filepath"
	"plugin"
	"strings"

	"crowdfuzz/pkg/valuestore"
)

// ABIVersion is the compile-time ABI contract between the driver and every
// plugin. A plugin's exported ABIVersion symbol must equal this string
// exactly, or it is rejected with ErrAbiMismatch.
const ABIVersion = "crowdfuzz-plugin-abi-v1"

// CoreInterface is the context passed to every lifecycle callback,
// exposing the logging and stat-registration surface a plugin needs. It
// mirrors the original implementation's CoreInterface vtable as a plain
// Go interface instead of a C-style function-pointer struct.
type CoreInterface interface {
	// Info logs an informational message, prefixed with the calling
	// plugin's name by the driver.
	Info(msg string)
	// Error logs an error message, prefixed with the calling plugin's name.
	Error(msg string)
	// NewPlugin opens a new stats-region block for the named plugin.
	// Each plugin calls it itself, from its own Load; the driver does not
	// open a block on a plugin's behalf.
	NewPlugin(name string) (PluginStats, error)
}

// PluginStats is the subset of *statsregion.PluginWriter a plugin needs,
// expressed as an interface so pluginapi does not import statsregion
// directly (kept dependency-free so it can be vendored by plugin builds
// without pulling in mmap code they may not need).
type PluginStats interface {
	NewNumStat(tag string, init uint64) (NumStat, error)
	NewBytesStat(tag string, capacity int, init []byte) (BytesStat, error)
	NewStrStat(tag string, capacity int, init string) (StrStat, error)
}

// NumStat, BytesStat, and StrStat re-export the statsregion stat handles
// plugins are handed back; kept as local interfaces for the same reason as
// PluginStats.
type (
	NumStat interface {
		Get() uint64
		Set(uint64)
		Add(uint64) uint64
	}
	BytesStat interface {
		Get() []byte
		Set([]byte) error
	}
	StrStat interface {
		Get() string
		Set(string) error
	}
)

// LoadFunc is a plugin's load lifecycle callback: constructs plugin state
// and returns an opaque context threaded through the remaining callbacks.
type LoadFunc func(core CoreInterface, store *valuestore.Store) (ctx any, err error)

// StageFunc is a plugin's pre_fuzz, fuzz, or unload lifecycle callback.
type StageFunc func(core CoreInterface, store *valuestore.Store, ctx any) error

// Plugin is a loaded, ABI-checked dynamic module and its resolved
// lifecycle symbols.
type Plugin struct {
	Name       string
	Path       string
	Load       LoadFunc
	PreFuzz    StageFunc
	Fuzz       StageFunc
	Unload     StageFunc
	InitCalled bool
	Ctx        any
}

// Load opens the plugin at path, validates its ABI version, and resolves
// its four lifecycle symbols.
//
// Resolution order mirrors SPEC_FULL.md §4.C: open, check ABIVersion,
// read an optional Name symbol (falling back to the file's base name),
// then resolve Load/PreFuzz/Fuzz/Unload.
func Load(path string) (*Plugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrLoadError, path, err)
	}

	abiSym, err := p.Lookup("ABIVersion")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: missing ABIVersion symbol", ErrMissingSymbol, path)
	}

	abi, ok := abiSym.(*string)
	if !ok {
		return nil, fmt.Errorf("%w: %q: ABIVersion has wrong type", ErrAbiMismatch, path)
	}

	if *abi != ABIVersion {
		return nil, fmt.Errorf("%w: %q: want %q, got %q", ErrAbiMismatch, path, ABIVersion, *abi)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if nameSym, err := p.Lookup("Name"); err == nil {
		if namePtr, ok := nameSym.(*string); ok {
			name = *namePtr
		}
	}

	load, err := lookupLoad(p, path)
	if err != nil {
		return nil, err
	}

	preFuzz, err := lookupStage(p, path, "PreFuzz")
	if err != nil {
		return nil, err
	}

	fuzz, err := lookupStage(p, path, "Fuzz")
	if err != nil {
		return nil, err
	}

	unload, err := lookupStage(p, path, "Unload")
	if err != nil {
		return nil, err
	}

	return &Plugin{Name: name, Path: path, Load: load, PreFuzz: preFuzz, Fuzz: fuzz, Unload: unload}, nil
}

func lookupLoad(p *plugin.Plugin, path string) (LoadFunc, error) {
	sym, err := p.Lookup("Load")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: Load: %v", ErrMissingSymbol, path, err)
	}

	fn, ok := sym.(func(CoreInterface, *valuestore.Store) (any, error))
	if !ok {
		return nil, fmt.Errorf("%w: %q: Load has wrong signature", ErrMissingSymbol, path)
	}

	return LoadFunc(fn), nil
}

func lookupStage(p *plugin.Plugin, path, symName string) (StageFunc, error) {
	sym, err := p.Lookup(symName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s: %v", ErrMissingSymbol, path, symName, err)
	}

	fn, ok := sym.(func(CoreInterface, *valuestore.Store, any) error)
	if !ok {
		return nil, fmt.Errorf("%w: %q: %s has wrong signature", ErrMissingSymbol, path, symName)
	}

	return StageFunc(fn), nil
}
