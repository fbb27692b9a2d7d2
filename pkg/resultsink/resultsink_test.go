package resultsink_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/fs"
	"crowdfuzz/pkg/resultsink"
	"crowdfuzz/pkg/target"
)

func TestRecordCrashAndDedup(t *testing.T) {
	resultsDir := t.TempDir()

	s, err := resultsink.Open(fs.NewReal(), resultsDir)
	require.NoError(t, err)

	wrote, err := s.Record(target.ExitStatus{Kind: target.Crash, Code: 11}, []byte("boom"))
	require.NoError(t, err)
	require.True(t, wrote)
	require.Equal(t, uint64(1), s.NewCrashes())

	wrote, err = s.Record(target.ExitStatus{Kind: target.Crash, Code: 11}, []byte("boom"))
	require.NoError(t, err)
	require.False(t, wrote)
	require.Equal(t, uint64(1), s.NewCrashes())

	entries, err := os.ReadDir(filepath.Join(resultsDir, "crashes"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "0xB_")
}

func TestRecordNormalIsIgnored(t *testing.T) {
	resultsDir := t.TempDir()

	s, err := resultsink.Open(fs.NewReal(), resultsDir)
	require.NoError(t, err)

	wrote, err := s.Record(target.ExitStatus{Kind: target.Normal}, []byte("ok"))
	require.NoError(t, err)
	require.False(t, wrote)
}

func TestOpenScrapesExistingFiles(t *testing.T) {
	resultsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(resultsDir, "timeouts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "timeouts", "preexisting"), []byte("stale"), 0o644))

	s, err := resultsink.Open(fs.NewReal(), resultsDir)
	require.NoError(t, err)

	wrote, err := s.Record(target.ExitStatus{Kind: target.Timeout}, []byte("stale"))
	require.NoError(t, err)
	require.False(t, wrote, "pre-existing timeout must not be re-reported")
}
