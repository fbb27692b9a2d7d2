// Command selectinput is a fuzzer plugin that picks which corpus entry
// each fuzz_loop pass mutates: a favored/priority entry if one is queued,
// otherwise a uniform-random pick. Grounded on the original
// implementation's select_input plugin.
package main

import (
	"fmt"
	"os"

	"crowdfuzz/pkg/corpus"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/selector"
	"crowdfuzz/pkg/valuestore"
)

var ABIVersion = pluginapi.ABIVersion

var Name = "selectinput"

type state struct {
	sel        *selector.Selector
	bufPtr     *[]byte
	idxPtr     *int
	selections pluginapi.NumStat
}

func Load(core pluginapi.CoreInterface, vs *valuestore.Store) (any, error) {
	v, ok := vs.Get(valuestore.KeyInputList, 0)
	if !ok {
		return nil, fmt.Errorf("selectinput: %s not published by a corpus plugin", valuestore.KeyInputList)
	}

	list := v.(*corpus.List)

	pq := &selector.PriorityQueue{}
	sel := selector.New(list, pq)

	stats, err := core.NewPlugin(Name)
	if err != nil {
		return nil, err
	}

	selections, err := stats.NewNumStat("selections", 0)
	if err != nil {
		return nil, err
	}

	return &state{sel: sel, selections: selections, bufPtr: new([]byte), idxPtr: new(int)}, nil
}

func PreFuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	return nil
}

// Fuzz picks the next input unless a downstream plugin set no_select
// (e.g. the mutator, to keep mutating the same input across deterministic
// stage steps), then publishes its index and a working copy of its bytes.
func Fuzz(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	s := ctx.(*state)

	if noSelect, ok := vs.Get(valuestore.KeyNoSelect, 0); ok {
		if b, ok := noSelect.(*bool); ok && *b {
			return nil
		}
	}

	if err := s.sel.Select(loadDescriptor); err != nil {
		return fmt.Errorf("select input: %w", err)
	}

	s.selections.Add(1)

	*s.idxPtr = s.sel.Index()
	*s.bufPtr = append((*s.bufPtr)[:0], s.sel.Input()...)

	vs.Remove(valuestore.KeyInputIdx)
	vs.PushBack(valuestore.KeyInputIdx, s.idxPtr)

	vs.Remove(valuestore.KeyInput)
	vs.PushBack(valuestore.KeyInput, s.bufPtr)

	return nil
}

func Unload(core pluginapi.CoreInterface, vs *valuestore.Store, ctx any) error {
	vs.Remove(valuestore.KeyInputIdx)
	vs.Remove(valuestore.KeyInput)

	return nil
}

// loadDescriptor reads one corpus entry's bytes. selectinput only ever
// sees the *corpus.List the fsstore plugin publishes, not the
// *corpus.Store itself, so it re-implements the inline-or-path read here
// rather than calling corpus.Store.Load.
func loadDescriptor(d *corpus.Descriptor) ([]byte, error) {
	if d.Inline != nil {
		return d.Inline, nil
	}

	return os.ReadFile(d.Path)
}
