// Command aflmutate is a fuzzer plugin driving the Mutation State
// Machine (pkg/mutate) against whichever input selectinput has
// published: it walks BitFlip/Arithmetic/Interesting/Havoc to
// completion for one input before signaling selectinput to move on to
// the next, via the shared no_select flag. Grounded on the original
// implementation's afl_mutate plugin.
package main

import (
	"fmt"

	"crowdfuzz/pkg/corpus"
	"crowdfuzz/pkg/mutate"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/valuestore"
)

var ABIVersion = pluginapi.ABIVersion

var Name = "aflmutate"

type state struct {
	global     *mutate.GlobalState
	machines   map[int]*mutate.Machine
	curIdx     int
	haveIdx    bool
	noSelect   *bool
	mutations  pluginapi.NumStat
}

func Load(core pluginapi.CoreInterface, vs *valuestore.Store) (any, error) {
	v, ok := vs.Get(valuestore.KeyAflState, 0)
	if !ok {
		return nil, fmt.Errorf("aflmutate: %s not published; load aflstate first", valuestore.KeyAflState)
	}

	global, ok := v.(*mutate.GlobalState)
	if !ok {
		return nil, fmt.Errorf("aflmutate: %s has unexpected type %T", valuestore.KeyAflState, v)
	}

	stats, err := core.NewPlugin(Name)
	if err != nil {
		return nil, err
	}

	mutations, err := stats.NewNumStat("total_mutations", 0)
	if err != nil {
		return nil, err
	}

	noSelect := new(bool)
	vs.PushBack(valuestore.KeyNoSelect, noSelect)

	return &state{global: global, machines: make(map[int]*mutate.Machine), noSelect: noSelect, mutations: mutations}, nil
}

func PreFuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	return nil
}

// Fuzz advances the machine for the currently selected input by one
// mutation, or resets a fresh machine when selectinput picked a new
// input this pass.
func Fuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	s := ctx.(*state)

	idxVal, ok := vs.Get(valuestore.KeyInputIdx, 0)
	if !ok {
		return nil
	}

	idxPtr := idxVal.(*int)

	bufVal, ok := vs.Get(valuestore.KeyInput, 0)
	if !ok {
		return nil
	}

	bufPtr := bufVal.(*[]byte)

	newSelection := !s.haveIdx || *idxPtr != s.curIdx

	m := s.machines[*idxPtr]
	if m == nil {
		m = mutate.NewMachine(s.global)
		s.machines[*idxPtr] = m
	}

	if newSelection {
		m.Reset(len(*bufPtr))
		s.curIdx = *idxPtr
		s.haveIdx = true
	}

	perfScore := scoreFor(vs, *idxPtr, s.global)

	isFirstPass := s.global == nil || !s.global.SkipDeterministic
	res := m.Next(bufPtr, perfScore, isFirstPass)

	switch res {
	case mutate.Mutated:
		*s.noSelect = true
		s.mutations.Add(1)
	case mutate.AdvanceStage:
		*s.noSelect = true
	case mutate.Done:
		*s.noSelect = false
		delete(s.machines, *idxPtr)
	}

	return nil
}

// scoreFor computes the perf score for the given corpus index using
// whatever calibration metadata is on its descriptor; inputs with no
// recorded calibration (exec time, handicap and depth all zero) fall back
// to the baseline score of 100.
func scoreFor(vs *valuestore.Store, idx int, global *mutate.GlobalState) int {
	v, ok := vs.Get(valuestore.KeyInputList, 0)
	if !ok {
		return 100
	}

	list, ok := v.(*corpus.List)
	if !ok || idx < 0 || idx >= list.Len() {
		return 100
	}

	d := list.At(idx)
	if d.Meta.ExecUs == 0 && d.Meta.Handicap == 0 && d.Meta.Depth == 0 {
		return 100
	}

	return mutate.Score(d.Meta.ExecUs, uint64(d.Meta.BitmapSize), d.Meta.Handicap, d.Meta.Depth, global)
}

func Unload(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	vs.Remove(valuestore.KeyNoSelect)
	return nil
}
