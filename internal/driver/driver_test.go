package driver_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/internal/config"
	"crowdfuzz/internal/driver"
	"crowdfuzz/internal/logging"
	"crowdfuzz/pkg/statsregion"
	"crowdfuzz/pkg/valuestore"
)

func TestNewRejectsUnknownChainEntry(t *testing.T) {
	dir := t.TempDir()

	region, err := statsregion.Create(dir+"/stats", 4096)
	require.NoError(t, err)

	t.Cleanup(func() { _ = region.Close() })

	cfg := &config.Config{FuzzLoop: []string{"does_not_exist.so"}}
	store := valuestore.New()
	log := logging.New(&bytes.Buffer{})

	_, err = driver.New(cfg, log, region, store, "fuzzer-0")
	require.Error(t, err)
}

func TestSeedAndUnseedLeavesStoreClean(t *testing.T) {
	dir := t.TempDir()

	region, err := statsregion.Create(dir+"/stats", 4096)
	require.NoError(t, err)

	t.Cleanup(func() { _ = region.Close() })

	cfg := &config.Config{
		Input: "in", State: "state", Results: "results", Target: "/bin/true",
		FuzzLoop: nil,
	}
	store := valuestore.New()
	log := logging.New(&bytes.Buffer{})

	d, err := driver.New(cfg, log, region, store, "fuzzer-0")
	require.NoError(t, err)

	require.NotEmpty(t, store.LeakReport())

	require.NoError(t, d.Destroy())
	require.Empty(t, store.LeakReport())
}
