// Command cftui is a read-only terminal viewer over one or more running
// fuzzer instances' stats regions: it rescans a project's state
// directory for files matching its configured prefix, opens each as a
// statsregion.Reader, and redraws a plain-text table on an interval.
// SPEC_FULL.md resolves the original's curses-based UI into this
// minimal renderer (no TUI widget library is present anywhere in the
// example pack to ground a richer one on).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"crowdfuzz/pkg/statsregion"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut *os.File) int {
	flags := flag.NewFlagSet("cftui", flag.ContinueOnError)

	statsPrefix := flags.String("stats_prefix", "fuzzer_stats", "stats file `prefix` to look for")
	refreshRate := flags.DurationP("refresh_rate", "r", time.Second, "redraw `interval`")
	dirScanRate := flags.DurationP("dir_scan_rate", "d", 5*time.Second, "rescan `interval` for new/gone stats files")
	verbose := flags.BoolP("verbose", "v", false, "verbose logging")

	if err := flags.Parse(args); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 2
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: cftui [flags] <project_state_dir>")
		return 2
	}

	_ = verbose

	stateDir := flags.Arg(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	readers := map[string]*statsregion.Reader{}
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()

	rescan(stateDir, *statsPrefix, readers, out)

	refreshT := time.NewTicker(*refreshRate)
	defer refreshT.Stop()

	scanT := time.NewTicker(*dirScanRate)
	defer scanT.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case <-scanT.C:
			rescan(stateDir, *statsPrefix, readers, out)
		case <-refreshT.C:
			render(out, readers)
		}
	}
}

func rescan(stateDir, prefix string, readers map[string]*statsregion.Reader, errOut *os.File) {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		fmt.Fprintln(errOut, "error: scan state dir:", err)
		return
	}

	found := map[string]bool{}

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}

		found[e.Name()] = true

		if _, ok := readers[e.Name()]; ok {
			continue
		}

		r, err := statsregion.Open(filepath.Join(stateDir, e.Name()))
		if err != nil {
			continue // plugin hasn't finished writing the header yet; retry next scan.
		}

		readers[e.Name()] = r
	}

	for name, r := range readers {
		if !found[name] {
			_ = r.Close()
			delete(readers, name)
		}
	}
}

func render(out *os.File, readers map[string]*statsregion.Reader) {
	fmt.Fprint(out, "\x1b[2J\x1b[H") // clear screen, home cursor

	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}

	sort.Strings(names)

	if len(names) == 0 {
		fmt.Fprintln(out, "no fuzzer instances found")
		return
	}

	for _, name := range names {
		r := readers[name]

		fmt.Fprintf(out, "=== %s (pid %d, state %s) ===\n", name, r.Pid(), r.State())

		plugins, err := r.Plugins()
		if err != nil {
			fmt.Fprintln(out, "  error reading stats:", err)
			continue
		}

		for _, p := range plugins {
			fmt.Fprintf(out, "  [%s]\n", p.Name)

			for _, s := range p.Stats {
				fmt.Fprintf(out, "    %-20s %s\n", s.Tag, formatStat(s))
			}
		}
	}
}

func formatStat(s statsregion.StatView) string {
	switch s.Kind {
	case statsregion.KindNum:
		return fmt.Sprintf("%d", s.Num)
	case statsregion.KindBytes:
		return fmt.Sprintf("% x", s.Bytes)
	default:
		return s.Str
	}
}
