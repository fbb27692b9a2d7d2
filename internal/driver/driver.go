// Package driver implements the Core Driver component: it loads the
// configured plugin chain, wires each plugin to the shared value store
// and stats region, and sequences pre_fuzz_loop once followed by
// fuzz_loop repeatedly, tracking a rolling average execution time.
// Grounded on the teacher's internal/cli.Run for its lifecycle and
// signal-driven shutdown shape, generalized from a fixed subcommand
// dispatch to a config-driven plugin chain.
package driver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"crowdfuzz/internal/config"
	"crowdfuzz/internal/logging"
	"crowdfuzz/pkg/pluginapi"
	"crowdfuzz/pkg/statsregion"
	"crowdfuzz/pkg/valuestore"
)

// avgDenominatorMax is the point at which the rolling average's
// denominator stops growing, so old iterations keep losing weight
// evenly instead of the average flattening out over a very long run.
const avgDenominatorMax = 20

var (
	ErrUnknownPlugin = errors.New("unknown plugin referenced in fuzz loop")
	ErrDuplicatePath = errors.New("plugin path loaded under two different names")
)

// Driver owns the loaded plugin set and the shared state every stage
// call sees.
type Driver struct {
	cfg    *config.Config
	log    *logging.Logger
	region *statsregion.Writer
	store  *valuestore.Store

	byName map[string]*pluginapi.Plugin
	loaded []*pluginapi.Plugin // load order, for reverse-order unload

	preChain  []*pluginapi.Plugin
	fuzzChain []*pluginapi.Plugin

	avgExecUs      uint64
	avgDenominator uint64
}

// New loads every plugin referenced by cfg.PreFuzzLoop/FuzzLoop (each
// distinct path exactly once, even if it appears in both chains or more
// than once in the same chain) and resolves the two ordered chains
// against the loaded set.
func New(cfg *config.Config, log *logging.Logger, region *statsregion.Writer, store *valuestore.Store, fuzzerID string) (*Driver, error) {
	d := &Driver{
		cfg:    cfg,
		log:    log,
		region: region,
		store:  store,
		byName: make(map[string]*pluginapi.Plugin),
	}

	d.seedStore(fuzzerID)

	for _, path := range distinctPaths(cfg.PreFuzzLoop, cfg.FuzzLoop) {
		if err := d.load(path); err != nil {
			return nil, err
		}
	}

	preChain, err := d.resolveChain(cfg.PreFuzzLoop)
	if err != nil {
		return nil, err
	}

	fuzzChain, err := d.resolveChain(cfg.FuzzLoop)
	if err != nil {
		return nil, err
	}

	d.preChain = preChain
	d.fuzzChain = fuzzChain

	return d, nil
}

// seedStore pushes the config-derived values every built-in plugin
// expects to find on the store before any plugin's Load runs: the
// directories, target binary/args, this instance's fuzzer id, the
// plugin_conf block, and the shared counters plugins update in place.
func (d *Driver) seedStore(fuzzerID string) {
	d.store.PushBack(valuestore.KeyInputDir, d.cfg.Input)
	d.store.PushBack(valuestore.KeyStateDir, d.cfg.State)
	d.store.PushBack(valuestore.KeyResultsDir, d.cfg.Results)
	d.store.PushBack(valuestore.KeyCwd, d.cfg.Cwd)
	d.store.PushBack(valuestore.KeyTargetBin, d.cfg.Target)
	d.store.PushBack(valuestore.KeyFuzzerID, fuzzerID)
	d.store.PushBack(valuestore.KeyPluginConf, d.cfg.PluginConf)

	for _, a := range d.cfg.TargetArgs {
		d.store.PushBack(valuestore.KeyTargetArgs, a)
	}

	d.store.PushBack(valuestore.KeyAvgDenominator, &d.avgDenominator)
	d.store.PushBack(valuestore.KeyNumExecs, new(uint64))
}

func distinctPaths(chains ...[]string) []string {
	seen := make(map[string]bool)

	var out []string

	for _, chain := range chains {
		for _, p := range chain {
			if seen[p] {
				continue
			}

			seen[p] = true

			out = append(out, p)
		}
	}

	return out
}

// load opens the plugin at path and runs its Load callback, storing the
// result for later chain resolution and ordered teardown. This is pass
// one of the two-pass init: every distinct plugin is loaded before any
// chain is validated, so a typo deep in fuzz_loop is reported before any
// plugin has run PreFuzz/Fuzz.
func (d *Driver) load(path string) error {
	p, err := pluginapi.Load(path)
	if err != nil {
		return fmt.Errorf("load plugin %q: %w", path, err)
	}

	if existing, ok := d.byName[p.Name]; ok {
		return fmt.Errorf("%w: %q loaded from both %q and %q", ErrDuplicatePath, p.Name, existing.Path, path)
	}

	core := newPluginCore(d.region, d.log.Named(p.Name))

	ctx, err := p.Load(core, d.store)
	if err != nil {
		return fmt.Errorf("init plugin %q: %w", p.Name, err)
	}

	p.Ctx = ctx
	p.InitCalled = true

	d.byName[p.Name] = p
	d.loaded = append(d.loaded, p)

	return nil
}

// resolveChain is pass two of init: turns a list of plugin names into
// the ordered *pluginapi.Plugin slice, failing loudly if a name was
// never loaded.
func (d *Driver) resolveChain(names []string) ([]*pluginapi.Plugin, error) {
	chain := make([]*pluginapi.Plugin, 0, len(names))

	for _, name := range names {
		p, ok := d.byName[pluginNameOf(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, name)
		}

		chain = append(chain, p)
	}

	return chain, nil
}

// pluginNameOf extracts the plugin name a config chain entry resolves
// to: the base filename without extension, matching the fallback name
// pluginapi.Load assigns when a plugin exports no Name symbol.
func pluginNameOf(pathOrName string) string {
	base := filepath.Base(pathOrName)
	ext := filepath.Ext(base)

	return base[:len(base)-len(ext)]
}

// Destroy runs every loaded plugin's Unload callback in reverse load
// order, skipping any plugin whose Load never completed. Errors are
// collected, not short-circuited, so one misbehaving plugin does not
// prevent the rest from releasing their resources.
func (d *Driver) Destroy() error {
	var errs []error

	for i := len(d.loaded) - 1; i >= 0; i-- {
		p := d.loaded[i]
		if !p.InitCalled || p.Unload == nil {
			continue
		}

		core := newPluginCore(d.region, d.log.Named(p.Name))
		if err := p.Unload(core, d.store, p.Ctx); err != nil {
			errs = append(errs, fmt.Errorf("unload plugin %q: %w", p.Name, err))
		}
	}

	d.unseedStore()

	return errors.Join(errs...)
}

// unseedStore removes the config-derived keys seedStore pushed, so a
// clean shutdown leaves the value store empty (testable property 6).
// Plugins are still expected to remove everything else they pushed
// during their own Unload.
func (d *Driver) unseedStore() {
	for _, key := range []string{
		valuestore.KeyInputDir,
		valuestore.KeyStateDir,
		valuestore.KeyResultsDir,
		valuestore.KeyCwd,
		valuestore.KeyTargetBin,
		valuestore.KeyTargetArgs,
		valuestore.KeyFuzzerID,
		valuestore.KeyPluginConf,
		valuestore.KeyAvgDenominator,
		valuestore.KeyNumExecs,
	} {
		d.store.Remove(key)
	}
}

// SingleRun executes pre_fuzz_loop once followed by exactly one pass of
// fuzz_loop. It records no timing: neither per-plugin stage times nor the
// rolling average are updated by this pass. Used by the driver's
// single_run mode to warm up and sanity-check a plugin chain without
// entering the infinite fuzz loop.
func (d *Driver) SingleRun(ctx context.Context) error {
	if err := d.runChain(ctx, d.preChain, stagePre); err != nil {
		return err
	}

	return d.runChain(ctx, d.fuzzChain, stageFuzz)
}

// FuzzLoop runs pre_fuzz_loop once, then fuzz_loop repeatedly until ctx
// is cancelled, updating the rolling average execution time after every
// pass.
func (d *Driver) FuzzLoop(ctx context.Context) error {
	if err := d.runChain(ctx, d.preChain, stagePre); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := nowUs()

		if err := d.runChain(ctx, d.fuzzChain, stageFuzz); err != nil {
			return err
		}

		d.recordExecTime(nowUs() - start)
	}
}

// recordExecTime folds one pass's execution time into the rolling
// average, letting the denominator grow up to avgDenominatorMax and
// then holding it there so the average keeps adapting to recent
// behavior instead of flattening out.
func (d *Driver) recordExecTime(elapsedUs uint64) {
	if d.avgDenominator < avgDenominatorMax {
		d.avgDenominator++
	}

	if elapsedUs >= d.avgExecUs {
		d.avgExecUs += (elapsedUs - d.avgExecUs) / d.avgDenominator
	} else {
		d.avgExecUs -= (d.avgExecUs - elapsedUs) / d.avgDenominator
	}
}

// AvgExecUs returns the current rolling-average fuzz_loop pass time in
// microseconds.
func (d *Driver) AvgExecUs() uint64 { return d.avgExecUs }

type stageKind int

const (
	stagePre stageKind = iota
	stageFuzz
)

func (d *Driver) runChain(ctx context.Context, chain []*pluginapi.Plugin, kind stageKind) error {
	for _, p := range chain {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fn := p.Fuzz
		if kind == stagePre {
			fn = p.PreFuzz
		}

		if fn == nil {
			continue
		}

		core := newPluginCore(d.region, d.log.Named(p.Name))
		if err := fn(core, d.store, p.Ctx); err != nil {
			return fmt.Errorf("plugin %q: %w", p.Name, err)
		}
	}

	return nil
}

// LeakReport exposes the value store's outstanding keys, used on
// shutdown to flag plugins that pushed a value nothing ever popped.
func (d *Driver) LeakReport() map[string]int {
	return d.store.LeakReport()
}
