// Command runtarget is a fuzzer plugin that executes the target binary
// against the current mutated input and publishes its exit classification
// and timing. Grounded on the original implementation's run_target
// plugin.
package main

import (
	"context"
	"fmt"
	"time"

	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/target"
	"crowdfuzz/pkg/valuestore"
)

var ABIVersion = pluginapi.ABIVersion

var Name = "runtarget"

const defaultTimeout = 1 * time.Second

type state struct {
	runner   *target.Runner
	execUs   *uint64
	execs    pluginapi.NumStat
	crashes  pluginapi.NumStat
	timeouts pluginapi.NumStat
}

func Load(core pluginapi.CoreInterface, vs *valuestore.Store) (any, error) {
	bin, _ := getString(vs, valuestore.KeyTargetBin)
	stateDir, _ := getString(vs, valuestore.KeyStateDir)

	var args []string
	for i := 0; i < vs.Len(valuestore.KeyTargetArgs); i++ {
		v, _ := vs.Get(valuestore.KeyTargetArgs, i)
		args = append(args, v.(string))
	}

	runner, err := target.New(bin, args, stateDir, target.Options{
		InputFileName: "cur_input",
		WorkingDir:    stateDir,
		Timeout:       defaultTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("runtarget: %w", err)
	}

	stats, err := core.NewPlugin(Name)
	if err != nil {
		return nil, err
	}

	execs, err := stats.NewNumStat("total_execs", 0)
	if err != nil {
		return nil, err
	}

	crashes, err := stats.NewNumStat("total_crashes", 0)
	if err != nil {
		return nil, err
	}

	timeouts, err := stats.NewNumStat("total_timeouts", 0)
	if err != nil {
		return nil, err
	}

	execUsPtr := new(uint64)
	vs.PushBack(valuestore.KeyTargetExecUs, execUsPtr)

	return &state{runner: runner, execUs: execUsPtr, execs: execs, crashes: crashes, timeouts: timeouts}, nil
}

func PreFuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	return nil
}

// Fuzz runs the target once against the current buffer published by the
// selector/mutator. It uses context.Background() rather than the
// driver's run context: per-call timeouts are enforced by target.Runner
// itself, and the outer fuzz-loop cancellation is observed between
// plugin stages by the driver, not mid-execution (see DESIGN.md).
func Fuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	s := ctx.(*state)

	v, ok := vs.Get(valuestore.KeyInput, 0)
	if !ok {
		return nil
	}

	bufPtr, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("runtarget: %s has unexpected type %T", valuestore.KeyInput, v)
	}

	status, elapsed, err := s.runner.Run(context.Background(), *bufPtr)
	if err != nil {
		return fmt.Errorf("run target: %w", err)
	}

	*s.execUs = uint64(elapsed.Microseconds())
	s.execs.Add(1)

	switch status.Kind {
	case target.Crash:
		s.crashes.Add(1)
	case target.Timeout:
		s.timeouts.Add(1)
	}

	vs.Remove(valuestore.KeyExitStatus)
	vs.PushBack(valuestore.KeyExitStatus, &status)

	return nil
}

func Unload(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	vs.Remove(valuestore.KeyTargetExecUs)
	vs.Remove(valuestore.KeyExitStatus)

	return nil
}

func getString(vs *valuestore.Store, key string) (string, bool) {
	v, ok := vs.Get(key, 0)
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	return s, ok
}
