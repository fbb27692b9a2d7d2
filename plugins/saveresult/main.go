// Command saveresult is a fuzzer plugin that persists unique crashing and
// timeout inputs to disk. Grounded on the original implementation's
// save_result plugin.
package main

import (
	"fmt"

	"crowdfuzz/pkg/fs"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/resultsink"
	"crowdfuzz/pkg/target"
	"crowdfuzz/pkg/valuestore"
)

var ABIVersion = pluginapi.ABIVersion

var Name = "saveresult"

type state struct {
	sink         *resultsink.Sink
	newCrashes   pluginapi.NumStat
	newTimeouts  pluginapi.NumStat
}

func Load(core pluginapi.CoreInterface, vs *valuestore.Store) (any, error) {
	resultsDir, _ := getString(vs, valuestore.KeyResultsDir)

	sink, err := resultsink.Open(fs.NewReal(), resultsDir)
	if err != nil {
		return nil, fmt.Errorf("saveresult: %w", err)
	}

	stats, err := core.NewPlugin(Name)
	if err != nil {
		return nil, err
	}

	newCrashes, err := stats.NewNumStat("total_new_crashes", sink.NewCrashes())
	if err != nil {
		return nil, err
	}

	newTimeouts, err := stats.NewNumStat("total_new_timeouts", sink.NewTimeouts())
	if err != nil {
		return nil, err
	}

	return &state{sink: sink, newCrashes: newCrashes, newTimeouts: newTimeouts}, nil
}

func PreFuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	return nil
}

func Fuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	s := ctx.(*state)

	statusVal, ok := vs.Get(valuestore.KeyExitStatus, 0)
	if !ok {
		return nil
	}

	status, ok := statusVal.(*target.ExitStatus)
	if !ok {
		return fmt.Errorf("saveresult: %s has unexpected type %T", valuestore.KeyExitStatus, statusVal)
	}

	inputVal, ok := vs.Get(valuestore.KeyInput, 0)
	if !ok {
		return nil
	}

	bufPtr, ok := inputVal.(*[]byte)
	if !ok {
		return fmt.Errorf("saveresult: %s has unexpected type %T", valuestore.KeyInput, inputVal)
	}

	wrote, err := s.sink.Record(*status, *bufPtr)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	if wrote {
		s.newCrashes.Set(s.sink.NewCrashes())
		s.newTimeouts.Set(s.sink.NewTimeouts())

		if status.Kind == target.Crash {
			core.Info(fmt.Sprintf("new unique crash, signal/code %d", status.Code))
		} else {
			core.Info("new unique timeout")
		}
	}

	return nil
}

func Unload(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
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
