package mutate

// interesting8/16/32 are AFL's closed tables of boundary-condition values
// known to trigger edge cases in integer handling (off-by-one, sign
// extension, overflow). Each wider table is cumulative: interesting16
// carries every interesting8 value widened to 16 bits plus its own
// extras, and interesting32 carries interesting16 plus its own extras.
var (
	interesting8 = []int8{-128, -1, 0, 1, 16, 32, 64, 100, 127}

	interesting16 = []int16{
		-128, -1, 0, 1, 16, 32, 64, 100, 127,
		-32768, -129, 128, 255, 256, 512, 1000, 1024, 4096, 32767,
	}

	interesting32 = []int32{
		-128, -1, 0, 1, 16, 32, 64, 100, 127,
		-32768, -129, 128, 255, 256, 512, 1000, 1024, 4096, 32767,
		-2147483648, -100663046, -32769, 32768, 65535, 65536, 100663045, 2147483647,
	}
)

type interestWidth struct {
	bytes int
	vals  int
}

var interestWidths = []interestWidth{
	{bytes: 1, vals: len(interesting8)},
	{bytes: 2, vals: len(interesting16)},
	{bytes: 4, vals: len(interesting32)},
}

// interestState walks each width's table at every position. Widths above
// one byte are tried at both endiannesses (indices [0,vals) are
// little-endian, [vals,2*vals) are big-endian for the same position),
// skipping substitutions that BitFlip could already produce. Substitutions
// that the Arithmetic stage could produce are not filtered out.
type interestState struct {
	length int

	widthIdx int
	pos      int
	valIdx   int

	hasApplied   bool
	prevBytes    [4]byte
	appliedPos   int
	appliedWidth int
}

func newInterestState(length int) *interestState {
	return &interestState{length: length}
}

func (s *interestState) passesPerWidth(bytes int) int {
	if bytes == 1 {
		return 1
	}

	return 2
}

func (s *interestState) next(buf []byte) bool {
	if s.hasApplied {
		copy(buf[s.appliedPos:s.appliedPos+s.appliedWidth], s.prevBytes[:s.appliedWidth])
		s.hasApplied = false
	}

	for {
		if s.widthIdx >= len(interestWidths) {
			return false
		}

		w := interestWidths[s.widthIdx]
		maxPos := s.length - w.bytes + 1
		totalVals := w.vals * s.passesPerWidth(w.bytes)

		if maxPos <= 0 {
			s.advanceWidth()
			continue
		}

		if s.pos >= maxPos {
			s.advanceWidth()
			continue
		}

		if s.valIdx >= totalVals {
			s.valIdx = 0
			s.pos++

			continue
		}

		bigEndian := s.valIdx >= w.vals
		tableIdx := s.valIdx % w.vals
		s.valIdx++

		replacement := interestValue(w.bytes, tableIdx)

		if w.bytes == 1 {
			if couldBeBitflip(uint32(buf[s.pos]) ^ uint32(byte(replacement))) {
				continue
			}
		} else {
			orig := readUint(buf, s.pos, w.bytes, bigEndian)
			rv := uint32(replacement) & widthMask(w.bytes)

			if couldBeBitflip(orig ^ rv) {
				continue
			}
		}

		copy(s.prevBytes[:w.bytes], buf[s.pos:s.pos+w.bytes])
		s.appliedPos = s.pos
		s.appliedWidth = w.bytes

		if w.bytes == 1 {
			buf[s.pos] = byte(replacement)
		} else {
			writeUint(buf, s.pos, w.bytes, uint32(replacement)&widthMask(w.bytes), bigEndian)
		}

		s.hasApplied = true

		return true
	}
}

func (s *interestState) advanceWidth() {
	s.widthIdx++
	s.pos = 0
	s.valIdx = 0
}

func widthMask(bytes int) uint32 {
	switch bytes {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

func interestValue(bytes, idx int) int32 {
	switch bytes {
	case 1:
		return int32(interesting8[idx])
	case 2:
		return int32(interesting16[idx])
	default:
		return interesting32[idx]
	}
}
