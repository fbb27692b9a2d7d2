package target_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/target"
)

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()

	path := filepath.Join(dir, "target.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

func TestRunNormalExit(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "exit 0\n")

	r, err := target.New(bin, nil, dir, target.Options{})
	require.NoError(t, err)

	status, _, err := r.Run(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, target.Normal, status.Kind)
	require.Equal(t, 0, status.Code)
}

func TestRunCrashBySignal(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "kill -SEGV $$\n")

	r, err := target.New(bin, nil, dir, target.Options{})
	require.NoError(t, err)

	status, _, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, target.Crash, status.Kind)
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "sleep 5\n")

	r, err := target.New(bin, nil, dir, target.Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	status, _, err := r.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, target.Timeout, status.Kind)
}

func TestArgSentinelUsesFile(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "cat \"$1\" > \"$1.seen\"\n")

	r, err := target.New(bin, []string{"@@"}, dir, target.Options{})
	require.NoError(t, err)
	require.True(t, r.UsesFile())

	_, _, err = r.Run(context.Background(), []byte("payload"))
	require.NoError(t, err)
}

func TestNoSentinelUsesStdin(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "cat > /dev/null\n")

	r, err := target.New(bin, nil, dir, target.Options{})
	require.NoError(t, err)
	require.False(t, r.UsesFile())
}

func TestInvalidTargetBin(t *testing.T) {
	_, err := target.New(filepath.Join(t.TempDir(), "missing"), nil, t.TempDir(), target.Options{})
	require.ErrorIs(t, err, target.ErrInvalidTargetBin)
}
