package mutate

import (
	"bytes"
	"math/rand/v2"
	"testing"
)

func TestBitFlipRestoresBeforeAdvancing(t *testing.T) {
	orig := []byte{0x00, 0x00, 0x00, 0x00}
	buf := append([]byte(nil), orig...)

	b := newBitFlipState(len(buf))

	seen := 0
	for b.next(buf) {
		seen++
		if seen > 1000 {
			t.Fatal("bitflip did not terminate")
		}
	}

	if !bytes.Equal(buf, orig) {
		t.Fatalf("buffer not fully restored after bitflip stage: got %x want %x", buf, orig)
	}

	if seen == 0 {
		t.Fatal("expected at least one bitflip mutation")
	}
}

func TestBitFlipWidth1TouchesEveryBit(t *testing.T) {
	length := 2
	max := bitFlipMaxIdx(1, length)

	if max != length*8 {
		t.Fatalf("bitFlipMaxIdx(1,%d) = %d, want %d", length, max, length*8)
	}
}

func TestBitFlipWidth8TouchesEveryByte(t *testing.T) {
	length := 4
	max := bitFlipMaxIdx(8, length)

	if max != length {
		t.Fatalf("bitFlipMaxIdx(8,%d) = %d, want %d", length, max, length)
	}
}

func TestCouldBeBitflipPredicate(t *testing.T) {
	cases := []struct {
		xor  uint32
		want bool
	}{
		{0x00, true},
		{0x01, true},
		{0x03, true},
		{0xff, true},
		{0xffff, true},
		{0xffffffff, true},
		{0x05, false},
		{0x100, true},
	}

	for _, c := range cases {
		if got := couldBeBitflip(c.xor); got != c.want {
			t.Errorf("couldBeBitflip(0x%x) = %v, want %v", c.xor, got, c.want)
		}
	}
}

func TestArithmeticRestoresBeforeAdvancing(t *testing.T) {
	orig := []byte{0x10, 0x20, 0x30, 0x40}
	buf := append([]byte(nil), orig...)

	a := newArithState(len(buf))

	seen := 0
	for a.next(buf) {
		seen++
		if seen > 100000 {
			t.Fatal("arithmetic stage did not terminate")
		}
	}

	if !bytes.Equal(buf, orig) {
		t.Fatalf("buffer not fully restored after arithmetic stage: got %x want %x", buf, orig)
	}
}

func TestInterestingRestoresBeforeAdvancing(t *testing.T) {
	orig := []byte{0x10, 0x20, 0x30, 0x40}
	buf := append([]byte(nil), orig...)

	s := newInterestState(len(buf))

	seen := 0
	for s.next(buf) {
		seen++
		if seen > 100000 {
			t.Fatal("interesting stage did not terminate")
		}
	}

	if !bytes.Equal(buf, orig) {
		t.Fatalf("buffer not fully restored after interesting stage: got %x want %x", buf, orig)
	}
}

func TestMachineSequencesThroughStages(t *testing.T) {
	global := &GlobalState{}
	m := NewMachine(global)
	m.Reset(4)

	buf := make([]byte, 4)

	stagesSeen := map[Stage]bool{}
	iterations := 0

	for {
		iterations++
		if iterations > 2_000_000 {
			t.Fatal("machine did not reach Done")
		}

		stagesSeen[m.CurrentStage()] = true

		res := m.Next(&buf, 100, true)
		if res == Done {
			break
		}
	}

	for _, s := range []Stage{StageBitFlip, StageArithmetic, StageInteresting, StageHavoc} {
		if !stagesSeen[s] {
			t.Errorf("machine never visited stage %v", s)
		}
	}
}

func TestMachineSkipDeterministicStartsAtHavoc(t *testing.T) {
	global := &GlobalState{SkipDeterministic: true}
	m := NewMachine(global)
	m.Reset(4)

	if m.CurrentStage() != StageHavoc {
		t.Fatalf("CurrentStage() = %v, want StageHavoc", m.CurrentStage())
	}
}

func TestHavocRespectsMinimumIterations(t *testing.T) {
	h := newHavocState(0, 1, true)
	if h.iterations != havocMin {
		t.Fatalf("havoc iterations = %d, want %d (the HAVOC_MIN floor)", h.iterations, havocMin)
	}
}

func TestHavocClampsToMaxMult(t *testing.T) {
	h := newHavocState(1_000_000, 1, true)
	if h.iterations > havocMaxMult100*havocCyclesInit/100 {
		t.Fatalf("havoc iterations = %d, exceeds clamp", h.iterations)
	}
}

func TestHavocCyclesInitMatchesSpecExample(t *testing.T) {
	h := newHavocState(100, 1, true)
	if h.iterations != havocCyclesInit {
		t.Fatalf("havoc iterations = %d, want %d", h.iterations, havocCyclesInit)
	}
}

func TestHavocDistinguishesFirstPass(t *testing.T) {
	first := newHavocState(100, 1, true)
	later := newHavocState(100, 1, false)

	if first.iterations == later.iterations {
		t.Fatalf("first-pass and later-pass iteration counts both %d, want distinct", first.iterations)
	}
}

func TestHavocStackIsPowerOfTwoWithinRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		stack := 1 << rand.N(havocStackPow2+1)
		if stack < 1 || stack > 128 || stack&(stack-1) != 0 {
			t.Fatalf("havoc stack count %d is not a power of two in [1,128]", stack)
		}
	}
}

func TestChooseBlockLenWithinLimit(t *testing.T) {
	for _, limit := range []int{1, 5, 40, 200, 5000} {
		for i := 0; i < 200; i++ {
			got := chooseBlockLen(limit)
			if got < 1 || got > limit {
				t.Fatalf("chooseBlockLen(%d) = %d, out of range", limit, got)
			}
		}
	}
}

func TestHavocBlockPrimitivesStayWithinBounds(t *testing.T) {
	for i := 0; i < 500; i++ {
		buf := append([]byte(nil), "the quick brown fox jumps over the lazy dog"...)
		applyHavocPrimitive(&buf)

		if len(buf) == 0 {
			t.Fatal("havoc primitive produced an empty buffer")
		}
	}
}

func TestScoreAppliesHandicapAndDepth(t *testing.T) {
	global := &GlobalState{TotalCalUs: 100, TotalCalCycles: 1, TotalBitmapSize: 50, TotalBitmapEntries: 1}

	base := Score(100, 50, 0, 0, global)
	handicapped := Score(100, 50, 8, 0, global)
	deep := Score(100, 50, 0, 200, global)

	if handicapped <= base {
		t.Errorf("handicap did not increase score: base=%d handicapped=%d", base, handicapped)
	}

	if deep <= base {
		t.Errorf("depth did not increase score: base=%d deep=%d", base, deep)
	}
}

func TestScoreAppliesHandicapExactlyOnce(t *testing.T) {
	global := &GlobalState{TotalCalUs: 100, TotalCalCycles: 1, TotalBitmapSize: 50, TotalBitmapEntries: 1}

	base := Score(100, 50, 0, 0, global)
	fourPlus := Score(100, 50, 5, 0, global)

	if fourPlus != base*4 {
		t.Fatalf("handicap>=4 with leftover handicap gave %d, want exactly %d (x4, not x8)", fourPlus, base*4)
	}
}

func TestScoreFavorsFasterInputs(t *testing.T) {
	global := &GlobalState{TotalCalUs: 1000, TotalCalCycles: 1}

	slow := Score(10_000, 0, 0, 0, global)
	fast := Score(100, 0, 0, 0, global)

	if fast <= slow {
		t.Fatalf("faster input scored %d, slower input scored %d; faster should score higher", fast, slow)
	}
}

func TestInterestingTablesAreCumulative(t *testing.T) {
	if len(interesting16) != len(interesting8)+10 {
		t.Fatalf("interesting16 has %d entries, want %d", len(interesting16), len(interesting8)+10)
	}

	if len(interesting32) != len(interesting8)+10+8 {
		t.Fatalf("interesting32 has %d entries, want %d", len(interesting32), len(interesting8)+10+8)
	}

	for i, v := range interesting8 {
		if interesting16[i] != int16(v) {
			t.Fatalf("interesting16[%d] = %d, want interesting8 value %d", i, interesting16[i], v)
		}

		if interesting32[i] != int32(v) {
			t.Fatalf("interesting32[%d] = %d, want interesting8 value %d", i, interesting32[i], v)
		}
	}
}
