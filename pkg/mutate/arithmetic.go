package mutate

// arithWidths are the integer widths (in bytes) the Arithmetic stage
// walks through, in order.
var arithWidths = []int{1, 2, 4}

// arithMax is the largest magnitude arithmetic delta tried at each width
// (AFL's ARITH_MAX).
const arithMax = 35

// arithState applies +1..+arithMax and -1..-arithMax to successive
// little-endian and big-endian integers of each width, skipping deltas
// that could already have been produced by the BitFlip stage.
type arithState struct {
	length int

	widthIdx int
	pos      int
	delta    int // ranges over [-arithMax, arithMax], 0 skipped
	bigEndian bool

	hasApplied    bool
	appliedWidth  int
	appliedPos    int
	appliedDelta  int
	appliedBigEnd bool
}

func newArithState(length int) *arithState {
	return &arithState{length: length, pos: 0, delta: 0, widthIdx: 0}
}

func (a *arithState) next(buf []byte) bool {
	if a.hasApplied {
		applyArith(buf, a.appliedWidth, a.appliedPos, -a.appliedDelta, a.appliedBigEnd)
		a.hasApplied = false
	}

	for {
		if a.widthIdx >= len(arithWidths) {
			return false
		}

		width := arithWidths[a.widthIdx]
		maxPos := a.length - width + 1

		if maxPos <= 0 {
			a.widthIdx++
			a.pos = 0
			a.delta = 0
			a.bigEndian = false

			continue
		}

		if a.pos >= maxPos {
			a.widthIdx++
			a.pos = 0
			a.delta = 0
			a.bigEndian = false

			continue
		}

		d, bigEnd, done := a.advanceDelta(width)
		if done {
			a.pos++
			a.delta = 0
			a.bigEndian = false

			continue
		}

		a.delta = d
		a.bigEndian = bigEnd

		if width == 1 && skipArith1(buf, a.pos, d) {
			continue
		}

		if width > 1 && skipArithWide(buf, width, a.pos, d, bigEnd) {
			continue
		}

		applyArith(buf, width, a.pos, d, bigEnd)
		a.hasApplied = true
		a.appliedWidth = width
		a.appliedPos = a.pos
		a.appliedDelta = d
		a.appliedBigEnd = bigEnd

		return true
	}
}

// advanceDelta walks delta across -arithMax..-1, then +1..+arithMax, and
// for width>1 repeats the positive/negative sweep once for big-endian
// after little-endian is exhausted. done reports the whole (delta,
// endianness) space for this position is exhausted.
func (a *arithState) advanceDelta(width int) (delta int, bigEndian bool, done bool) {
	d := a.delta
	be := a.bigEndian

	if d == 0 && !be {
		d = -arithMax
	} else if d == arithMax && !be {
		if width == 1 {
			return 0, false, true
		}

		d = -arithMax
		be = true
	} else if d == arithMax && be {
		return 0, false, true
	} else {
		d++
		if d == 0 {
			d = 1
		}
	}

	return d, be, false
}

func skipArith1(buf []byte, pos, delta int) bool {
	orig := buf[pos]
	result := byte(int(orig) + delta)

	return couldBeBitflip(uint32(orig ^ result))
}

// skipArithWide reports whether an arithmetic op at width 16/32 would be
// redundant with what the width-8 pass already tried: besides the usual
// dedup predicate, an add/sub that never carries/borrows past the low
// byte only ever touches the byte Arithmetic already walked at width 1.
func skipArithWide(buf []byte, width, pos, delta int, bigEndian bool) bool {
	orig := readUint(buf, pos, width, bigEndian)
	result := uint32(int64(orig) + int64(delta))

	if couldBeBitflip(orig ^ result) {
		return true
	}

	lowByte := orig & 0xFF

	if delta > 0 {
		return lowByte+uint32(delta) <= 0xFF
	}

	return lowByte >= uint32(-delta)
}

func readUint(buf []byte, pos, width int, bigEndian bool) uint32 {
	var v uint32

	switch width {
	case 2:
		if bigEndian {
			v = uint32(buf[pos])<<8 | uint32(buf[pos+1])
		} else {
			v = uint32(buf[pos]) | uint32(buf[pos+1])<<8
		}
	case 4:
		if bigEndian {
			v = uint32(buf[pos])<<24 | uint32(buf[pos+1])<<16 | uint32(buf[pos+2])<<8 | uint32(buf[pos+3])
		} else {
			v = uint32(buf[pos]) | uint32(buf[pos+1])<<8 | uint32(buf[pos+2])<<16 | uint32(buf[pos+3])<<24
		}
	default:
		v = uint32(buf[pos])
	}

	return v
}

func writeUint(buf []byte, pos, width int, v uint32, bigEndian bool) {
	switch width {
	case 2:
		if bigEndian {
			buf[pos] = byte(v >> 8)
			buf[pos+1] = byte(v)
		} else {
			buf[pos] = byte(v)
			buf[pos+1] = byte(v >> 8)
		}
	case 4:
		if bigEndian {
			buf[pos] = byte(v >> 24)
			buf[pos+1] = byte(v >> 16)
			buf[pos+2] = byte(v >> 8)
			buf[pos+3] = byte(v)
		} else {
			buf[pos] = byte(v)
			buf[pos+1] = byte(v >> 8)
			buf[pos+2] = byte(v >> 16)
			buf[pos+3] = byte(v >> 24)
		}
	default:
		buf[pos] = byte(v)
	}
}

func applyArith(buf []byte, width, pos, delta int, bigEndian bool) {
	if width == 1 {
		buf[pos] = byte(int(buf[pos]) + delta)

		return
	}

	orig := readUint(buf, pos, width, bigEndian)
	result := uint32(int64(orig) + int64(delta))
	writeUint(buf, pos, width, result, bigEndian)
}
