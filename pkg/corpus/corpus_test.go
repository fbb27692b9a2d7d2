package corpus_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/corpus"
	"crowdfuzz/pkg/fs"
)

func setup(t *testing.T) (inputDir, stateDir string) {
	t.Helper()

	inputDir = t.TempDir()
	stateDir = t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "seed1"), []byte("AB"), 0o644))

	return inputDir, stateDir
}

func TestOpenScansInputAndQueue(t *testing.T) {
	inputDir, stateDir := setup(t)

	s, err := corpus.Open(fs.NewReal(), inputDir, stateDir, "")
	require.NoError(t, err)
	require.Equal(t, 1, s.List().Len())
	require.DirExists(t, filepath.Join(stateDir, "queue"))
}

func TestOpenFailsWithNoInputs(t *testing.T) {
	_, stateDir := t.TempDir(), t.TempDir()

	_, err := corpus.Open(fs.NewReal(), stateDir, stateDir, "")
	require.ErrorIs(t, err, corpus.ErrNoInputs)
}

func TestIngestDedupesByDigest(t *testing.T) {
	inputDir, stateDir := setup(t)

	s, err := corpus.Open(fs.NewReal(), inputDir, stateDir, "")
	require.NoError(t, err)

	added, err := s.Ingest(corpus.NewInput{Inline: []byte("hello world")})
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.Ingest(corpus.NewInput{Inline: []byte("hello world")})
	require.NoError(t, err)
	require.False(t, added)

	require.Equal(t, 2, s.List().Len()) // seed1 + hello world
	require.Equal(t, uint64(1), s.NumFiles())

	uid := corpus.Digest([]byte("hello world"))
	wantPath := filepath.Join(stateDir, "queue", string(hexUpper(uid[:])))
	require.FileExists(t, wantPath)
}

func TestDigestIsDeterministic(t *testing.T) {
	require.Equal(t, corpus.Digest([]byte("AB")), corpus.Digest([]byte("AB")))
	require.NotEqual(t, corpus.Digest([]byte("AB")), corpus.Digest([]byte("AC")))
}

func hexUpper(b []byte) []byte {
	const hexdigits = "0123456789ABCDEF"

	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexdigits[v>>4]
		out[i*2+1] = hexdigits[v&0xf]
	}

	return out
}
