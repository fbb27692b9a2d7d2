package mutate

import "math/rand/v2"

// havocCyclesInit and havocCycles are AFL's HAVOC_CYCLES_INIT and
// HAVOC_CYCLES: the cycle-count multiplier applied once an input has run
// the deterministic stages before reaching havoc (_INIT) versus one that
// skips straight to havoc and so needs more randomized attention per
// visit.
const (
	havocCyclesInit = 256
	havocCycles     = 1024
)

// havocMin is AFL's HAVOC_MIN floor on the number of havoc iterations run
// against a single selected input, regardless of how low perfScore comes
// out.
const havocMin = 16

// havocMaxMult100 is HAVOC_MAX_MULT expressed as an integer percentage
// (16.0 * 100); perfScore is clamped to this before computing the
// iteration count.
const havocMaxMult100 = 1600

// havocStackPow2 is AFL's HAVOC_STACK_POW2: the number of primitives
// stacked per havoc iteration is 1 << rand(0..havocStackPow2), a random
// power of two from 1 to 128.
const havocStackPow2 = 7

// havocBlkSmall/Medium/Large/XL are AFL's HAVOC_BLK_* block-length bands
// used by the delete/clone/overwrite primitives.
const (
	havocBlkSmall  = 32
	havocBlkMedium = 128
	havocBlkLarge  = 1500
	havocBlkXL     = 32768
)

// maxFile bounds how large a havoc pass may grow an input, mirroring
// AFL's MAX_FILE guard on the clone/insert primitive.
const maxFile = 1 << 20

// havocState runs perfScore-derived random stacked mutations against the
// selected input. Unlike the deterministic stages it does not undo a
// prior mutation before applying the next one: each iteration continues
// mutating from wherever the previous iteration left off, matching the
// original implementation's havoc_stage.
type havocState struct {
	iterations int
	done       int
}

// newHavocState computes the number of iterations to run from perfScore
// (clamped here to havocMaxMult100, since Score leaves it unclamped) and havocDiv, the
// AFL_HAVOC_DIV the user may configure to stretch out calibration runs.
// isFirstPass selects HAVOC_CYCLES_INIT (this input ran the deterministic
// stages before reaching havoc) versus HAVOC_CYCLES (it skipped straight
// to havoc).
func newHavocState(perfScore int, havocDiv uint32, isFirstPass bool) *havocState {
	if perfScore > havocMaxMult100 {
		perfScore = havocMaxMult100
	}

	div := uint32(1)
	if havocDiv > 0 {
		div = havocDiv
	}

	cycles := havocCycles
	if isFirstPass {
		cycles = havocCyclesInit
	}

	n := cycles * perfScore / 100 / int(div)
	if n < havocMin {
		n = havocMin
	}

	return &havocState{iterations: n}
}

// next runs one havoc iteration: a random power-of-two count of stacked
// primitives applied to *buf, which may grow or shrink in place.
func (h *havocState) next(buf *[]byte) bool {
	if h.done >= h.iterations {
		return false
	}

	h.done++

	stack := 1 << rand.N(havocStackPow2+1)
	for i := 0; i < stack; i++ {
		applyHavocPrimitive(buf)
	}

	return true
}

// applyHavocPrimitive mutates *buf using one of AFL's 15 classic havoc
// primitives: a single bit flip (0), interesting-value writes at
// byte/word/dword width (1-3), byte/word/dword arithmetic (4-9), a bit
// flip inside a random byte (10), block delete (11-12), block clone or
// constant-fill insert (13), and block overwrite (14).
func applyHavocPrimitive(buf *[]byte) {
	b := *buf
	if len(b) == 0 {
		return
	}

	switch rand.N(15) {
	case 0: // flip a single bit anywhere in the buffer
		pos := rand.N(len(b) * 8)
		b[pos/8] ^= 1 << uint(pos%8)

	case 1: // set byte to an interesting 8-bit value
		pos := rand.N(len(b))
		b[pos] = byte(interesting8[rand.N(len(interesting8))])

	case 2: // set a 16-bit word to an interesting value, random endian
		if len(b) >= 2 {
			pos := rand.N(len(b) - 1)
			writeUint(b, pos, 2, uint32(interesting16[rand.N(len(interesting16))])&0xFFFF, rand.N(2) == 0)
		}

	case 3: // set a 32-bit dword to an interesting value, random endian
		if len(b) >= 4 {
			pos := rand.N(len(b) - 3)
			writeUint(b, pos, 4, uint32(interesting32[rand.N(len(interesting32))]), rand.N(2) == 0)
		}

	case 4: // subtract a small random value from a byte
		pos := rand.N(len(b))
		b[pos] = byte(int(b[pos]) - 1 - rand.N(arithMax))

	case 5: // add a small random value to a byte
		pos := rand.N(len(b))
		b[pos] = byte(int(b[pos]) + 1 + rand.N(arithMax))

	case 6: // subtract a small random value from a word, random endian
		if len(b) >= 2 {
			pos := rand.N(len(b) - 1)
			bigEnd := rand.N(2) == 0
			v := readUint(b, pos, 2, bigEnd)
			writeUint(b, pos, 2, v-uint32(1+rand.N(arithMax)), bigEnd)
		}

	case 7: // add a small random value to a word, random endian
		if len(b) >= 2 {
			pos := rand.N(len(b) - 1)
			bigEnd := rand.N(2) == 0
			v := readUint(b, pos, 2, bigEnd)
			writeUint(b, pos, 2, v+uint32(1+rand.N(arithMax)), bigEnd)
		}

	case 8: // subtract a small random value from a dword, random endian
		if len(b) >= 4 {
			pos := rand.N(len(b) - 3)
			bigEnd := rand.N(2) == 0
			v := readUint(b, pos, 4, bigEnd)
			writeUint(b, pos, 4, v-uint32(1+rand.N(arithMax)), bigEnd)
		}

	case 9: // add a small random value to a dword, random endian
		if len(b) >= 4 {
			pos := rand.N(len(b) - 3)
			bigEnd := rand.N(2) == 0
			v := readUint(b, pos, 4, bigEnd)
			writeUint(b, pos, 4, v+uint32(1+rand.N(arithMax)), bigEnd)
		}

	case 10: // flip a random bit within a randomly chosen byte
		pos := rand.N(len(b))
		b[pos] ^= 1 << uint(rand.N(8))

	case 11, 12: // delete a block (tried twice as often as the other primitives)
		deleteBlock(buf)

	case 13: // clone a block, or insert a block of constant bytes
		cloneOrInsertBlock(buf)

	default: // case 14: overwrite a block with another chunk, or with a fixed byte
		overwriteBlock(buf)
	}
}

func deleteBlock(buf *[]byte) {
	b := *buf
	if len(b) < 2 {
		return
	}

	delLen := chooseBlockLen(len(b) - 1)
	if delLen <= 0 {
		return
	}

	delFrom := rand.N(len(b) - delLen + 1)

	*buf = append(b[:delFrom], b[delFrom+delLen:]...)
}

func cloneOrInsertBlock(buf *[]byte) {
	b := *buf
	if len(b)+havocBlkXL >= maxFile {
		return
	}

	actuallyClone := rand.N(4) != 0

	var cloneLen, cloneFrom int

	if actuallyClone {
		cloneLen = chooseBlockLen(len(b))
		if cloneLen <= 0 {
			return
		}

		cloneFrom = rand.N(len(b) - cloneLen + 1)
	} else {
		cloneLen = chooseBlockLen(havocBlkXL)
		if cloneLen <= 0 {
			return
		}

		cloneFrom = 0
	}

	cloneTo := rand.N(len(b))

	newBuf := make([]byte, 0, len(b)+cloneLen)
	newBuf = append(newBuf, b[:cloneTo]...)

	if actuallyClone {
		newBuf = append(newBuf, b[cloneFrom:cloneFrom+cloneLen]...)
	} else {
		fill := byte(rand.N(256))
		if rand.N(2) != 0 {
			fill = b[rand.N(len(b))]
		}

		for i := 0; i < cloneLen; i++ {
			newBuf = append(newBuf, fill)
		}
	}

	newBuf = append(newBuf, b[cloneTo:]...)

	*buf = newBuf
}

func overwriteBlock(buf *[]byte) {
	b := *buf
	if len(b) < 2 {
		return
	}

	copyLen := chooseBlockLen(len(b) - 1)
	if copyLen <= 0 {
		return
	}

	copyFrom := rand.N(len(b) - copyLen + 1)
	copyTo := rand.N(len(b) - copyLen + 1)

	if rand.N(4) != 0 {
		if copyFrom != copyTo {
			copy(b[copyTo:copyTo+copyLen], b[copyFrom:copyFrom+copyLen])
		}

		return
	}

	fill := byte(rand.N(256))
	if rand.N(2) != 0 {
		fill = b[rand.N(len(b))]
	}

	for i := 0; i < copyLen; i++ {
		b[copyTo+i] = fill
	}
}

// chooseBlockLen picks a block length in [1, limit] for the
// delete/clone/overwrite primitives, biased toward AFL's HAVOC_BLK_*
// bands (small/medium/large/extra-large).
func chooseBlockLen(limit int) int {
	if limit <= 0 {
		return 0
	}

	var lo, hi int

	switch rand.N(4) {
	case 0:
		lo, hi = 1, havocBlkSmall
	case 1:
		lo, hi = havocBlkSmall, havocBlkMedium
	case 2:
		lo, hi = havocBlkMedium, havocBlkLarge
	default:
		lo, hi = havocBlkLarge, havocBlkXL
	}

	if lo >= limit {
		lo = 1
	}

	if hi > limit {
		hi = limit
	}

	if hi < lo {
		hi = lo
	}

	return lo + rand.N(hi-lo+1)
}
