// Package mutate implements the Mutation State Machine component
// (SPEC_FULL.md §4.H): deterministic BitFlip/Arithmetic/Interesting walks
// followed by randomized Havoc, plus the perf-score formula that drives
// havoc iteration counts. Ported from the original implementation's
// plugins/afl/afl_mutate/src/{bit_flip,arithmetic,interesting,havoc}.rs.
package mutate

// GlobalState is the AFL calibration state shared across the run,
// produced by the afl_state plugin and consumed here for perf scoring.
type GlobalState struct {
	SkipDeterministic   bool
	TotalCalUs          uint64
	TotalCalCycles      uint64
	TotalBitmapSize     uint64
	TotalBitmapEntries  uint64
	HavocDiv            uint32
}

// AvgExecUs returns the run's average per-input execution time in
// microseconds, used by the perf-score formula. Returns 0 before any
// calibration has happened.
func (g *GlobalState) AvgExecUs() uint64 {
	if g.TotalCalCycles == 0 {
		return 0
	}

	return g.TotalCalUs / g.TotalCalCycles
}

// AvgBitmapSize returns the run's average observed bitmap size.
func (g *GlobalState) AvgBitmapSize() uint64 {
	if g.TotalBitmapEntries == 0 {
		return 0
	}

	return g.TotalBitmapSize / g.TotalBitmapEntries
}

// Stage identifies which deterministic stage (or Havoc) is currently
// active for the selected input.
type Stage int

const (
	StageBitFlip Stage = iota
	StageArithmetic
	StageInteresting
	StageHavoc
	StageDone
)

// Result is the outcome of one call to Machine.Next, mirroring the
// original design's explicit {Mutated, AdvanceStage, Done} state values
// instead of an implicit side effect (SPEC_FULL.md §9 Design Notes).
type Result int

const (
	Mutated Result = iota
	AdvanceStage
	Done
)

// Machine walks a selected input through BitFlip -> Arithmetic ->
// Interesting -> Havoc. Reset must be called whenever a fresh input is
// selected.
type Machine struct {
	global *GlobalState

	stage Stage

	bitflip     *bitFlipState
	arithmetic  *arithState
	interesting *interestState
	havoc       *havocState
}

// NewMachine returns a Machine driven by the shared global AFL state.
func NewMachine(global *GlobalState) *Machine {
	return &Machine{global: global}
}

// Reset prepares the machine for a freshly selected input of the given
// length. If global.SkipDeterministic is set, the machine starts directly
// at Havoc.
func (m *Machine) Reset(length int) {
	if m.global != nil && m.global.SkipDeterministic {
		m.stage = StageHavoc
	} else {
		m.stage = StageBitFlip
	}

	m.bitflip = newBitFlipState(length)
	m.arithmetic = newArithState(length)
	m.interesting = newInterestState(length)
	m.havoc = nil
}

// CurrentStage reports the active stage.
func (m *Machine) CurrentStage() Stage { return m.stage }

// Next applies (or undoes-then-applies) the next mutation to *buf.
// perfScore and isFirstPass parameterize the Havoc stage once reached
// (see Score). The deterministic stages mutate *buf in place without
// changing its length; Havoc's block primitives may grow or shrink it,
// so Next takes a pointer to let those primitives reslice or reallocate
// the backing array.
func (m *Machine) Next(buf *[]byte, perfScore int, isFirstPass bool) Result {
	for {
		switch m.stage {
		case StageBitFlip:
			if m.bitflip.next(*buf) {
				return Mutated
			}

			m.stage = StageArithmetic

			return AdvanceStage

		case StageArithmetic:
			if m.arithmetic.next(*buf) {
				return Mutated
			}

			m.stage = StageInteresting

			return AdvanceStage

		case StageInteresting:
			if m.interesting.next(*buf) {
				return Mutated
			}

			m.stage = StageHavoc

			return AdvanceStage

		case StageHavoc:
			if m.havoc == nil {
				havocDiv := uint32(1)
				if m.global != nil && m.global.HavocDiv > 0 {
					havocDiv = m.global.HavocDiv
				}

				m.havoc = newHavocState(perfScore, havocDiv, isFirstPass)
			}

			if m.havoc.next(buf) {
				return Mutated
			}

			m.stage = StageDone

			return Done

		default:
			return Done
		}
	}
}
