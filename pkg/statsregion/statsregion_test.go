package statsregion_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/statsregion"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzer_stats_0")

	w, err := statsregion.Create(path, 4096)
	require.NoError(t, err)

	core, err := w.NewPlugin("core")
	require.NoError(t, err)

	execs, err := core.NewNumStat("num_execs", 0)
	require.NoError(t, err)

	queueDir, err := core.NewBytesStat("queue_dir_path", 64, []byte("/tmp/queue"))
	require.NoError(t, err)

	fuzzerID, err := core.NewStrStat("fuzzer_id", 32, "fuzzer-0")
	require.NoError(t, err)

	execs.Set(42)
	require.NoError(t, queueDir.Set([]byte("/tmp/queue2")))

	w.SetState(statsregion.StateFuzzing)
	require.NoError(t, w.Close())

	r, err := statsregion.Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, statsregion.StateFuzzing, r.State())

	plugins, err := r.Plugins()
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	require.Equal(t, "core", plugins[0].Name)
	require.Len(t, plugins[0].Stats, 3)

	require.Equal(t, "num_execs", plugins[0].Stats[0].Tag)
	require.Equal(t, uint64(42), plugins[0].Stats[0].Num)

	require.Equal(t, "/tmp/queue2", string(plugins[0].Stats[1].Bytes))
	require.Equal(t, "fuzzer-0", plugins[0].Stats[2].Str)
	require.Equal(t, fuzzerID.Get(), plugins[0].Stats[2].Str)

	want := []statsregion.PluginView{
		{
			Name: "core",
			Stats: []statsregion.StatView{
				{Tag: "num_execs", Kind: statsregion.KindNum, Num: 42},
				{Tag: "queue_dir_path", Kind: statsregion.KindBytes, Bytes: []byte("/tmp/queue2")},
				{Tag: "fuzzer_id", Kind: statsregion.KindStr, Str: "fuzzer-0"},
			},
		},
	}

	if diff := cmp.Diff(want, plugins); diff != "" {
		t.Errorf("Plugins() mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzer_stats_0")

	w, err := statsregion.Create(path, 32)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.NewPlugin("a-plugin-with-a-long-name-that-overflows")
	require.ErrorIs(t, err, statsregion.ErrMemoryTooSmall)
}

func TestStructuralAppendAfterFuzzingFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzer_stats_0")

	w, err := statsregion.Create(path, 4096)
	require.NoError(t, err)
	defer w.Close()

	w.SetState(statsregion.StateFuzzing)

	_, err = w.NewPlugin("late")
	require.ErrorIs(t, err, statsregion.ErrNotInitializing)
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-region")

	_, err := statsregion.Open(path)
	require.Error(t, err)
}
