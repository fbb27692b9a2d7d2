package statsregion

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Reader is a read-only (structurally) attachment to a stats region,
// mirroring the teacher's doc.go description of slotcache's "multi-reader"
// side. It caches nothing: every Plugins call walks the region again and
// copies the current values out.
type Reader struct {
	data   []byte
	closer func() error
}

// Open mmaps an existing region file for reading. Returns ErrCorrupt or
// ErrIncompatible if the header doesn't validate.
func Open(path string) (*Reader, error) {
	data, closer, err := openFileForRead(path)
	if err != nil {
		return nil, err
	}

	if string(data[offMagic:offMagic+4]) != magic {
		closer()
		return nil, ErrCorrupt
	}

	if getUint16(data[offVersion:]) != formatVersion {
		closer()
		return nil, ErrIncompatible
	}

	return &Reader{data: data, closer: closer}, nil
}

// Close unmaps the region.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer()
}

// State returns the region's current lifecycle phase.
func (r *Reader) State() State { return State(r.data[offState]) }

// Pid returns the writer process's pid.
func (r *Reader) Pid() uint32 { return getUint32(r.data[offPid:]) }

// PluginView describes one plugin's stat block.
type PluginView struct {
	Name  string
	Stats []StatView
}

// StatView is one stat entry as seen by a reader: its tag, kind, and a
// value accessor appropriate to the kind.
type StatView struct {
	Tag  string
	Kind StatKind

	// Num is valid when Kind == KindNum.
	Num uint64

	// Bytes/Str are valid when Kind == KindBytes/KindStr respectively,
	// already copied out under the slot's spin-lock.
	Bytes []byte
	Str   string
}

// Plugins walks the region once and returns every plugin block and its
// stats, in insertion order, satisfying the round-trip property (spec §8.2).
func (r *Reader) Plugins() ([]PluginView, error) {
	numPlugins := int(getUint16(r.data[offNumPlugins:]))
	off := headerSize

	plugins := make([]PluginView, 0, numPlugins)

	for i := 0; i < numPlugins; i++ {
		if off+4 > len(r.data) {
			return nil, fmt.Errorf("%w: plugin %d header truncated", ErrCorrupt, i)
		}

		if off+4+int(getUint32(r.data[off:])) > len(r.data) {
			return nil, fmt.Errorf("%w: plugin %d name truncated", ErrCorrupt, i)
		}

		nameBytes, n := getStr(r.data[off:])
		name := string(nameBytes)
		off += n

		if off+4 > len(r.data) {
			return nil, fmt.Errorf("%w: plugin %d missing num_stats", ErrCorrupt, i)
		}

		numStats := int(getUint32(r.data[off:]))
		off += 4

		stats := make([]StatView, 0, numStats)

		for j := 0; j < numStats; j++ {
			sv, next, err := r.readStat(off)
			if err != nil {
				return nil, fmt.Errorf("plugin %q stat %d: %w", name, j, err)
			}

			stats = append(stats, sv)
			off = next
		}

		plugins = append(plugins, PluginView{Name: name, Stats: stats})
	}

	return plugins, nil
}

func (r *Reader) readStat(off int) (StatView, int, error) {
	if off+1 > len(r.data) {
		return StatView{}, 0, ErrCorrupt
	}

	kind := StatKind(r.data[off])
	off++

	if off+4 > len(r.data) {
		return StatView{}, 0, ErrCorrupt
	}

	if off+4+int(getUint32(r.data[off:])) > len(r.data) {
		return StatView{}, 0, ErrCorrupt
	}

	tagBytes, n := getStr(r.data[off:])
	tag := string(tagBytes)
	off += n

	switch kind {
	case KindNum:
		if off+8 > len(r.data) {
			return StatView{}, 0, ErrCorrupt
		}

		ptr := (*uint64)(unsafe.Pointer(&r.data[off]))
		v := atomic.LoadUint64(ptr)

		return StatView{Tag: tag, Kind: kind, Num: v}, off + 8, nil

	case KindBytes, KindStr:
		if off+dynHeaderSize > len(r.data) {
			return StatView{}, 0, ErrCorrupt
		}

		capacity := int(getUint64(r.data[off+dynLockSize:]))
		end := off + dynHeaderSize + capacity

		if end > len(r.data) {
			return StatView{}, 0, ErrCorrupt
		}

		d := dynStat{
			lock:   (*uint32)(unsafe.Pointer(&r.data[off])),
			data:   r.data[off+dynHeaderSize : end],
			capOff: off + dynLockSize,
			lenOff: off + dynLockSize + dynCapacitySize,
			w:      &Writer{data: r.data},
		}
		raw := d.get()

		sv := StatView{Tag: tag, Kind: kind}
		if kind == KindStr {
			sv.Str = string(raw)
		} else {
			sv.Bytes = raw
		}

		return sv, end, nil

	default:
		return StatView{}, 0, fmt.Errorf("%w: unknown stat kind %d", ErrCorrupt, kind)
	}
}
