package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/corpus"
	"crowdfuzz/pkg/selector"
)

func list3(t *testing.T) *corpus.List {
	t.Helper()

	l := corpus.NewList()
	l.Append(&corpus.Descriptor{UID: corpus.Digest([]byte("a")), Inline: []byte("a")})
	l.Append(&corpus.Descriptor{UID: corpus.Digest([]byte("b")), Inline: []byte("b")})
	l.Append(&corpus.Descriptor{UID: corpus.Digest([]byte("c")), Inline: []byte("c")})

	return l
}

func loadInline(d *corpus.Descriptor) ([]byte, error) { return d.Inline, nil }

func TestSelectUsesPriorityQueueFirst(t *testing.T) {
	l := list3(t)

	pq := &selector.PriorityQueue{}
	pq.Push(2)

	s := selector.New(l, pq)
	require.NoError(t, s.Select(loadInline))

	require.Equal(t, 2, s.Index())
	require.Equal(t, []byte("c"), s.Input())
	require.Equal(t, 0, pq.Len())
}

func TestSelectFallsBackToRandom(t *testing.T) {
	l := list3(t)

	s := selector.New(l, nil)
	require.NoError(t, s.Select(loadInline))

	require.GreaterOrEqual(t, s.Index(), 0)
	require.Less(t, s.Index(), l.Len())
}
