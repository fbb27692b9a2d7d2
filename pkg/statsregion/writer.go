package statsregion

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Writer is the single-writer side of a stats region: the core driver and,
// through it, every loaded plugin's add-stat calls. Structural appends
// (NewPlugin and the PluginWriter's NewNumStat/NewBytesStat/NewStrStat)
// are only legal while the region is Initializing; once SetState moves it
// to another state, only slot contents may change.
type Writer struct {
	mu     sync.Mutex
	data   []byte
	closer func() error
	off    int
	state  State

	numPluginsOff int
}

// Create allocates a new stats region backed by a regular file at path,
// sized exactly size bytes, and writes the fixed header.
func Create(path string, size int) (*Writer, error) {
	if size < headerSize {
		return nil, fmt.Errorf("%w: size %d below header size %d", ErrMemoryTooSmall, size, headerSize)
	}

	data, closer, err := mapFile(path, size)
	if err != nil {
		return nil, err
	}

	copy(data[offMagic:], magic)
	putUint16(data[offVersion:], formatVersion)
	data[offState] = byte(StateInitializing)
	putUint32(data[offPid:], uint32(os.Getpid()))
	putUint16(data[offNumPlugins:], 0)

	return &Writer{
		data:          data,
		closer:        closer,
		off:           headerSize,
		state:         StateInitializing,
		numPluginsOff: offNumPlugins,
	}, nil
}

// Close unmaps the region. The backing file is left on disk for readers.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}

	return w.closer()
}

// SetState transitions the region's lifecycle phase.
func (w *Writer) SetState(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state = s
	w.data[offState] = byte(s)
}

func (w *Writer) alloc(n int) (off int, err error) {
	if w.state != StateInitializing {
		return 0, ErrNotInitializing
	}

	if w.off+n > len(w.data) {
		return 0, fmt.Errorf("%w: need %d more bytes, have %d", ErrMemoryTooSmall, n, len(w.data)-w.off)
	}

	off = w.off
	w.off += n

	return off, nil
}

// PluginWriter scopes stat creation to one plugin's block.
type PluginWriter struct {
	w           *Writer
	numStatsOff int
	numStats    uint32
}

// NewPlugin appends a new, empty plugin block named name and returns a
// handle for registering its stats. Must be called in the order plugins
// appear in the chain (§4.D).
func (w *Writer) NewPlugin(name string) (*PluginWriter, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	nameBytes := []byte(name)

	off, err := w.alloc(4 + len(nameBytes) + 4)
	if err != nil {
		return nil, err
	}

	n := putStr(w.data[off:], nameBytes)
	numStatsOff := off + n
	putUint32(w.data[numStatsOff:], 0)

	numPlugins := getUint16(w.data[w.numPluginsOff:]) + 1
	putUint16(w.data[w.numPluginsOff:], numPlugins)

	return &PluginWriter{w: w, numStatsOff: numStatsOff}, nil
}

func (p *PluginWriter) bumpNumStats() {
	p.numStats++
	putUint32(p.w.data[p.numStatsOff:], p.numStats)
}

// NumStat is a handle to a lock-free fixed-width numeric slot.
type NumStat struct{ ptr *uint64 }

// Get atomically loads the current value.
func (s NumStat) Get() uint64 { return atomic.LoadUint64(s.ptr) }

// Set atomically stores v.
func (s NumStat) Set(v uint64) { atomic.StoreUint64(s.ptr, v) }

// Add atomically adds delta and returns the new value.
func (s NumStat) Add(delta uint64) uint64 { return atomic.AddUint64(s.ptr, delta) }

// NewNumStat appends a Num stat entry (KindNum) initialized to init.
func (p *PluginWriter) NewNumStat(tag string, init uint64) (NumStat, error) {
	off, err := p.appendStatHeader(tag, KindNum, 8)
	if err != nil {
		return NumStat{}, err
	}

	ptr := (*uint64)(unsafe.Pointer(&p.w.data[off]))
	atomic.StoreUint64(ptr, init)

	return NumStat{ptr: ptr}, nil
}

// dynStat is shared plumbing for Bytes and Str slots.
type dynStat struct {
	lock *uint32
	data []byte // capacity-sized backing array, immediately after len field
	capOff,
	lenOff int
	w *Writer
}

func (p *PluginWriter) newDynStat(tag string, kind StatKind, capacity int, init []byte) (dynStat, error) {
	if len(init) > capacity {
		return dynStat{}, ErrValueTooLarge
	}

	off, err := p.appendStatHeader(tag, kind, dynHeaderSize+capacity)
	if err != nil {
		return dynStat{}, err
	}

	lockPtr := (*uint32)(unsafe.Pointer(&p.w.data[off]))
	atomic.StoreUint32(lockPtr, 0)

	capOff := off + dynLockSize
	lenOff := capOff + dynCapacitySize
	bufOff := lenOff + dynLenSize

	putUint64(p.w.data[capOff:], uint64(capacity))
	putUint64(p.w.data[lenOff:], uint64(len(init)))
	copy(p.w.data[bufOff:bufOff+capacity], init)

	return dynStat{
		lock:   lockPtr,
		data:   p.w.data[bufOff : bufOff+capacity],
		capOff: capOff,
		lenOff: lenOff,
		w:      p.w,
	}, nil
}

func (d dynStat) withLock(fn func()) {
	for !atomic.CompareAndSwapUint32(d.lock, 0, 1) {
		// spin: writers and readers must not hold the lock across a
		// suspension point, so a tight retry is the correct strategy.
	}

	defer atomic.StoreUint32(d.lock, 0)

	fn()
}

func (d dynStat) set(v []byte) error {
	capacity := int(getUint64(d.w.data[d.capOff:]))
	if len(v) > capacity {
		return ErrValueTooLarge
	}

	d.withLock(func() {
		putUint64(d.w.data[d.lenOff:], uint64(len(v)))
		copy(d.data[:len(v)], v)
	})

	return nil
}

func (d dynStat) get() []byte {
	var out []byte

	d.withLock(func() {
		l := int(getUint64(d.w.data[d.lenOff:]))
		out = make([]byte, l)
		copy(out, d.data[:l])
	})

	return out
}

// BytesStat is a handle to a spin-locked variable-length byte slot.
type BytesStat struct{ dyn dynStat }

// Set overwrites the slot's contents, failing if v exceeds its reserved capacity.
func (s BytesStat) Set(v []byte) error { return s.dyn.set(v) }

// Get returns a copy of the slot's current contents.
func (s BytesStat) Get() []byte { return s.dyn.get() }

// NewBytesStat appends a Bytes stat entry with the given reserved capacity.
func (p *PluginWriter) NewBytesStat(tag string, capacity int, init []byte) (BytesStat, error) {
	d, err := p.newDynStat(tag, KindBytes, capacity, init)
	if err != nil {
		return BytesStat{}, err
	}

	return BytesStat{dyn: d}, nil
}

// StrStat is a handle to a spin-locked variable-length UTF-8 string slot.
type StrStat struct{ dyn dynStat }

// Set overwrites the slot's contents, failing if v exceeds its reserved capacity.
func (s StrStat) Set(v string) error { return s.dyn.set([]byte(v)) }

// Get returns the slot's current contents.
func (s StrStat) Get() string { return string(s.dyn.get()) }

// NewStrStat appends a Str stat entry with the given reserved capacity (in bytes).
func (p *PluginWriter) NewStrStat(tag string, capacity int, init string) (StrStat, error) {
	d, err := p.newDynStat(tag, KindStr, capacity, []byte(init))
	if err != nil {
		return StrStat{}, err
	}

	return StrStat{dyn: d}, nil
}

func (p *PluginWriter) appendStatHeader(tag string, kind StatKind, payloadSize int) (payloadOff int, err error) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()

	tagBytes := []byte(tag)

	off, err := p.w.alloc(1 + 4 + len(tagBytes) + payloadSize)
	if err != nil {
		return 0, err
	}

	p.w.data[off] = byte(kind)
	n := putStr(p.w.data[off+1:], tagBytes)
	p.bumpNumStats()

	return off + 1 + n, nil
}
