package mutate

// bitWidths are the widths (in bits) the BitFlip stage walks through, in
// order, per SPEC_FULL.md §4.H.
var bitWidths = []int{1, 2, 4, 8, 16, 32}

// bitFlipMaxIdx returns the number of distinct positions for widthBits
// over an input of length bytes. Widths under 8 walk individual bit
// offsets; widths 8 and above walk byte offsets.
func bitFlipMaxIdx(widthBits, length int) int {
	if widthBits < 8 {
		n := length*8 - widthBits + 1
		if n < 0 {
			return 0
		}

		return n
	}

	n := length - widthBits/8 + 1
	if n < 0 {
		return 0
	}

	return n
}

// bitFlipState walks byte positions from the end backward at each width,
// per SPEC_FULL.md §4.H.
type bitFlipState struct {
	length int

	widthIdx int
	pos      int // next position to flip, counting down; -1 means "need next width"

	hasApplied   bool
	appliedWidth int
	appliedPos   int
}

func newBitFlipState(length int) *bitFlipState {
	return &bitFlipState{length: length, widthIdx: 0, pos: -1}
}

// next restores the previous flip (XOR is its own inverse), advances to
// the next position, applies the new flip, and returns true. Returns
// false once every width is exhausted (stage Done).
func (b *bitFlipState) next(buf []byte) bool {
	if b.hasApplied {
		flipAt(buf, b.appliedWidth, b.appliedPos)
		b.hasApplied = false
	}

	for {
		if b.widthIdx >= len(bitWidths) {
			return false
		}

		width := bitWidths[b.widthIdx]
		max := bitFlipMaxIdx(width, b.length)

		if b.pos < 0 {
			if max == 0 {
				b.widthIdx++
				continue
			}

			b.pos = max - 1
		} else if b.pos == 0 {
			b.widthIdx++
			b.pos = -1

			continue
		} else {
			b.pos--
		}

		flipAt(buf, width, b.pos)
		b.hasApplied = true
		b.appliedWidth = width
		b.appliedPos = b.pos

		return true
	}
}

// flipAt XORs the bit(s)/byte(s) at idx for widthBits. Widths under 8
// treat idx as a global bit offset; widths 8/16/32 XOR the full
// byte/word/dword at byte offset idx with all-ones (classic AFL "bitflip
// 8/8, 16/8, 32/8" stages).
func flipAt(buf []byte, widthBits, idx int) {
	if widthBits < 8 {
		for i := 0; i < widthBits; i++ {
			bo := idx + i
			buf[bo/8] ^= 1 << uint(bo%8)
		}

		return
	}

	for i := 0; i < widthBits/8; i++ {
		buf[idx+i] ^= 0xFF
	}
}

// couldBeBitflip reports whether the delta xorVal between an old and new
// value could have been produced by the BitFlip stage, the standard AFL
// dedup predicate (used by Arithmetic and Interesting to skip duplicate
// mutations).
func couldBeBitflip(xorVal uint32) bool {
	if xorVal == 0 {
		return true
	}

	sh := 0
	for xorVal&1 == 0 {
		sh++
		xorVal >>= 1
	}

	if xorVal == 1 || xorVal == 3 || xorVal == 15 {
		return true
	}

	if sh&7 != 0 {
		return false
	}

	switch xorVal {
	case 0xff, 0xffff, 0xffffffff:
		return true
	default:
		return false
	}
}
