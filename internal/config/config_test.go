package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
input: corpus
state: state
results: results
target: /bin/true
fuzz_loop: [runtarget]
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, config.DefaultShmemSize, cfg.ShmemSize)
	require.Equal(t, config.DefaultStatsFile, cfg.StatsFile)
	require.Equal(t, config.DefaultInputFileName, cfg.InputFile)
	require.Equal(t, filepath.Dir(path), cfg.Cwd)
	require.Equal(t, filepath.Join(filepath.Dir(path), "corpus"), cfg.Input)
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeConfig(t, `
input: corpus
state: state
results: results
fuzz_loop: [runtarget]
`)

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrMissingField)
}

func TestLoadRejectsEmptyFuzzLoop(t *testing.T) {
	path := writeConfig(t, `
input: corpus
state: state
results: results
target: /bin/true
`)

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrMissingField)
}
