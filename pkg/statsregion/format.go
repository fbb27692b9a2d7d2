package statsregion

import "encoding/binary"

// magic and version frame the region the same way the teacher's slotcache
// format stamps a fixed magic/version ahead of its own header: a reader
// mapping an arbitrary file can bail out immediately instead of
// misinterpreting garbage as a valid layout. The fields spec.md actually
// names (state, pid, num_plugins) follow immediately after.
const (
	magic        = "CFS1"
	formatVersion = uint16(1)

	offMagic      = 0
	offVersion    = offMagic + 4
	offState      = offVersion + 2
	offPid        = offState + 1
	offNumPlugins = offPid + 4
	headerSize    = offNumPlugins + 2
)

// State is the region's lifecycle phase, stored as a single byte at
// offState.
type State uint8

const (
	// StateInitializing: the writer is still appending plugin/stat blocks.
	StateInitializing State = 0
	// StateFuzzing: structure is frozen; only slot contents mutate.
	StateFuzzing State = 1
	// StateExiting: the driver is tearing down.
	StateExiting State = 2
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "Initializing"
	case StateFuzzing:
		return "Fuzzing"
	case StateExiting:
		return "Exiting"
	default:
		return "Unknown"
	}
}

// StatKind identifies a stat entry's payload encoding.
type StatKind uint8

const (
	// KindNum is a lock-free little-endian uint64.
	KindNum StatKind = 0
	// KindBytes is a spin-locked, length-prefixed byte buffer of fixed capacity.
	KindBytes StatKind = 1
	// KindStr is a KindBytes buffer whose contents are interpreted as UTF-8.
	KindStr StatKind = 2
)

// Layout of a dynamic (Bytes/Str) stat payload, following the tag:
//
//	lockWord(u32) | capacity(u64) | len(u64) | bytes[capacity]
//
// The spec's wire format calls for a 1-byte spin-lock; Go has no atomic CAS
// on a single byte, so the logical lock byte occupies the low byte of a
// 4-byte-aligned uint32 word (see SPEC_FULL.md §4.B). The upper three bytes
// are reserved and always zero.
const (
	dynLockSize     = 4
	dynCapacitySize = 8
	dynLenSize      = 8
	dynHeaderSize   = dynLockSize + dynCapacitySize + dynLenSize
)

func putUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getUint16(b []byte) uint16    { return binary.LittleEndian.Uint16(b) }
func getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }
func getUint64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }

// putStr writes a length-prefixed (u32 length) string/byte slice and
// returns the number of bytes written.
func putStr(b []byte, s []byte) int {
	putUint32(b, uint32(len(s)))
	copy(b[4:], s)

	return 4 + len(s)
}

func getStr(b []byte) (s []byte, n int) {
	l := int(getUint32(b))

	return b[4 : 4+l], 4 + l
}
