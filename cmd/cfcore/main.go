// Command cfcore is the fuzzing driver binary: it loads a project
// config, opens the shared stats region, builds the configured plugin
// chain, and either runs one warm-up pass (-s/--single_run) or fuzzes
// until interrupted. Flag shape and signal-driven shutdown are grounded
// on the teacher's cmd entrypoint + internal/cli.Run pattern.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	flag "github.com/spf13/pflag"

	"crowdfuzz/internal/config"
	"crowdfuzz/internal/driver"
	"crowdfuzz/internal/logging"
	"crowdfuzz/internal/shutdown"
	"crowdfuzz/pkg/statsregion"
	"crowdfuzz/pkg/valuestore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	flags := flag.NewFlagSet("cfcore", flag.ContinueOnError)

	prefix := flags.StringP("prefix", "p", "fuzzer", "fuzzer id `prefix`")
	instances := flags.Int("instances", 1, "accepted and ignored; this process always runs one instance")
	singleRun := flags.BoolP("single_run", "s", false, "run pre_fuzz_loop and one fuzz_loop pass, then exit")
	bindCPU := flags.Int("bind_cpu", -1, "accepted and ignored; no CPU pinning is applied")
	verbose := flags.BoolP("verbose", "v", false, "accepted and ignored; logging has a single level")

	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: cfcore [flags] <project_config>")
		return 2
	}

	_ = bindCPU  // CPU pinning is a Linux-only affinity syscall the original implementation applies per-instance; here it is a no-op (see DESIGN.md).
	_ = verbose  // logging.Logger has a single level; the flag changes nothing.
	_ = instances // no extra instances are spawned; running several copies of this process is left to the caller's process supervisor (see DESIGN.md).

	cfg, err := config.Load(flags.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	log := logging.New(out)

	fuzzerID := fmt.Sprintf("%s-0", *prefix)

	statsPath := filepath.Join(cfg.State, cfg.StatsFile+"_"+fuzzerID)

	region, err := statsregion.Create(statsPath, cfg.ShmemSize)
	if err != nil {
		fmt.Fprintln(errOut, "error: create stats region:", err)
		return 1
	}
	defer region.Close()

	store := valuestore.New()

	d, err := driver.New(cfg, log, region, store, fuzzerID)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	defer func() {
		if err := d.Destroy(); err != nil {
			fmt.Fprintln(errOut, "error during shutdown:", err)
		}

		if leaks := d.LeakReport(); len(leaks) > 0 {
			fmt.Fprintln(errOut, "warning: value store leaked keys:", leaks)
		}
	}()

	region.SetState(statsregion.StateFuzzing)

	work := d.SingleRun
	if !*singleRun {
		work = d.FuzzLoop
	}

	if err := shutdown.Run(context.Background(), errOut, sigCh, work); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}

	region.SetState(statsregion.StateExiting)

	return 0
}
