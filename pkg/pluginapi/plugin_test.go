package pluginapi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/pluginapi"
)

// Building and loading an actual buildmode=plugin .so requires invoking the
// Go toolchain, which these tests intentionally never do. Load's error
// path on an unopenable file is still exercised directly.
func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := pluginapi.Load("/nonexistent/path/to/plugin.so")
	require.ErrorIs(t, err, pluginapi.ErrLoadError)
}

func TestABIVersionIsStable(t *testing.T) {
	require.Equal(t, "crowdfuzz-plugin-abi-v1", pluginapi.ABIVersion)
}
