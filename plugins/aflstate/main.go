// Command aflstate is a fuzzer plugin publishing the shared AFL
// calibration state (pkg/mutate.GlobalState) that afl_mutate's perf-score
// formula reads from. Folding target_exec_us into the running average is
// the only calibration step carried over from the original
// implementation's afl_state plugin: coverage-bitmap calibration is out
// of scope (SPEC_FULL.md Non-goals) since this implementation has no
// instrumented-target bitmap channel.
package main

import (
	"fmt"

	"crowdfuzz/pkg/mutate"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/valuestore"
)

var ABIVersion = pluginapi.ABIVersion

var Name = "aflstate"

type state struct {
	global   *mutate.GlobalState
	execUs   pluginapi.NumStat
	cycles   pluginapi.NumStat
}

func Load(core pluginapi.CoreInterface, vs *valuestore.Store) (any, error) {
	global := &mutate.GlobalState{HavocDiv: 1}

	stats, err := core.NewPlugin(Name)
	if err != nil {
		return nil, err
	}

	execUs, err := stats.NewNumStat("avg_exec_us", 0)
	if err != nil {
		return nil, err
	}

	cycles, err := stats.NewNumStat("total_cal_cycles", 0)
	if err != nil {
		return nil, err
	}

	vs.PushBack(valuestore.KeyAflState, global)

	return &state{global: global, execUs: execUs, cycles: cycles}, nil
}

func PreFuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	return nil
}

func Fuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	s := ctx.(*state)

	v, ok := vs.Get(valuestore.KeyTargetExecUs, 0)
	if !ok {
		return nil
	}

	ptr, ok := v.(*uint64)
	if !ok {
		return fmt.Errorf("aflstate: %s has unexpected type %T", valuestore.KeyTargetExecUs, v)
	}

	s.global.TotalCalUs += *ptr
	s.global.TotalCalCycles++

	s.execUs.Set(s.global.AvgExecUs())
	s.cycles.Set(s.global.TotalCalCycles)

	return nil
}

func Unload(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	vs.Remove(valuestore.KeyAflState)
	return nil
}
