// Command fsstore is a fuzzer plugin (built with `go build
// -buildmode=plugin`) that owns the corpus: it scans the configured
// input and queue directories on Load, publishes the resulting list on
// the value store, and ingests newly discovered inputs every fuzz_loop
// pass. Grounded on the original implementation's fs_store plugin.
package main

import (
	"fmt"

	"crowdfuzz/pkg/corpus"
	"crowdfuzz/pkg/fs"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/valuestore"
)

// ABIVersion and Name are resolved by pluginapi.Load via plugin.Lookup.
var ABIVersion = pluginapi.ABIVersion

var Name = "fsstore"

type state struct {
	store     *corpus.Store
	totalStat pluginapi.NumStat
}

func Load(core pluginapi.CoreInterface, vs *valuestore.Store) (any, error) {
	inputDir, _ := getString(vs, valuestore.KeyInputDir)
	stateDir, _ := getString(vs, valuestore.KeyStateDir)

	cs, err := corpus.Open(fs.NewReal(), inputDir, stateDir, "")
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	stats, err := core.NewPlugin(Name)
	if err != nil {
		return nil, err
	}

	totalStat, err := stats.NewNumStat("total_num_files", uint64(cs.List().Len()))
	if err != nil {
		return nil, err
	}

	vs.PushBack(valuestore.KeyInputList, cs.List())

	core.Info(fmt.Sprintf("loaded %d inputs from %q", cs.List().Len(), inputDir))

	return &state{store: cs, totalStat: totalStat}, nil
}

func PreFuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	return nil
}

// Fuzz drains any NewInput entries queued by downstream plugins (e.g. the
// mutator, on discovering behavior worth keeping) and ingests each one.
func Fuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	s := ctx.(*state)

	for {
		v, ok := vs.PopFront(valuestore.KeyNewInputs)
		if !ok {
			break
		}

		in := v.(corpus.NewInput)

		added, err := s.store.Ingest(in)
		if err != nil {
			core.Error(fmt.Sprintf("ingest failed: %v", err))
			continue
		}

		if added {
			s.totalStat.Set(uint64(s.store.List().Len()))
		}
	}

	return nil
}

func Unload(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	vs.Remove(valuestore.KeyInputList)
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
