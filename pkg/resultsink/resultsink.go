// Package resultsink implements the Result Sink component (SPEC_FULL.md
// §4.I): persists unique crashing and timeout inputs to disk, grounded on
// the original implementation's save_result plugin.
package resultsink

import (
	"bytes"
	"fmt"
	"path/filepath"

	"crowdfuzz/pkg/corpus"
	"crowdfuzz/pkg/fs"
	"crowdfuzz/pkg/target"
)

// Sink writes unique crash/timeout inputs and tracks counters for the
// total_new_crashes / total_new_timeouts stats.
type Sink struct {
	fsys        fs.FS
	writer      *fs.AtomicWriter
	crashesDir  string
	timeoutsDir string
	seen        map[[20]byte]struct{}
	newCrashes  uint64
	newTimeouts uint64
}

// Open creates <resultsDir>/crashes and <resultsDir>/timeouts if missing,
// then ingests any pre-existing files there into the seen-uid set so a
// restarted run does not re-report the same crash (scrape_existing_dirs in
// the original implementation).
func Open(fsys fs.FS, resultsDir string) (*Sink, error) {
	crashesDir := filepath.Join(resultsDir, "crashes")
	timeoutsDir := filepath.Join(resultsDir, "timeouts")

	for _, d := range []string{crashesDir, timeoutsDir} {
		if err := fsys.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %q: %w", d, err)
		}
	}

	s := &Sink{
		fsys:        fsys,
		writer:      fs.NewAtomicWriter(fsys),
		crashesDir:  crashesDir,
		timeoutsDir: timeoutsDir,
		seen:        make(map[[20]byte]struct{}),
	}

	if err := s.scrape(crashesDir); err != nil {
		return nil, err
	}

	if err := s.scrape(timeoutsDir); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Sink) scrape(dir string) error {
	entries, err := s.fsys.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scrape %q: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		data, err := s.fsys.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read %q: %w", e.Name(), err)
		}

		s.seen[corpus.Digest(data)] = struct{}{}
	}

	return nil
}

// Record inspects one iteration's exit status and input. If status is a
// Crash or Timeout and the input's digest is new, it is persisted and the
// matching counter incremented. Normal exits are ignored. Returns whether
// a new file was written.
func (s *Sink) Record(status target.ExitStatus, input []byte) (wrote bool, err error) {
	switch status.Kind {
	case target.Crash:
		return s.save(s.crashesDir, fmt.Sprintf("0x%X_%s", status.Code, hexDigest(input)), input, &s.newCrashes)
	case target.Timeout:
		return s.save(s.timeoutsDir, hexDigest(input), input, &s.newTimeouts)
	default:
		return false, nil
	}
}

func (s *Sink) save(dir, name string, input []byte, counter *uint64) (bool, error) {
	uid := corpus.Digest(input)
	if _, ok := s.seen[uid]; ok {
		return false, nil
	}

	path := filepath.Join(dir, name)
	if err := s.writer.Write(path, bytes.NewReader(input), s.writer.DefaultOptions()); err != nil {
		return false, fmt.Errorf("save result %q: %w", path, err)
	}

	s.seen[uid] = struct{}{}
	*counter++

	return true, nil
}

// NewCrashes returns the count of unique crashes persisted this run.
func (s *Sink) NewCrashes() uint64 { return s.newCrashes }

// NewTimeouts returns the count of unique timeouts persisted this run.
func (s *Sink) NewTimeouts() uint64 { return s.newTimeouts }

func hexDigest(input []byte) string {
	uid := corpus.Digest(input)

	return fmt.Sprintf("%X", uid)
}
