package valuestore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"crowdfuzz/pkg/valuestore"
)

func TestPushPopOrder(t *testing.T) {
	s := valuestore.New()

	s.PushBack("k", 1)
	s.PushBack("k", 2)
	s.PushFront("k", 0)

	require.Equal(t, 3, s.Len("k"))

	v, ok := s.PopFront("k")
	require.True(t, ok)
	require.Equal(t, 0, v)

	v, ok = s.PopBack("k")
	require.True(t, ok)
	require.Equal(t, 2, v)

	require.Equal(t, 1, s.Len("k"))
}

func TestAbsentKeyIsEmpty(t *testing.T) {
	s := valuestore.New()

	require.Equal(t, 0, s.Len("missing"))

	_, ok := s.PopFront("missing")
	require.False(t, ok)

	_, ok = s.Get("missing", 0)
	require.False(t, ok)
}

func TestLeakReport(t *testing.T) {
	s := valuestore.New()
	s.PushBack("a", 1)
	s.PushBack("b", 2)

	s.PopFront("a")

	leaks := s.LeakReport()
	require.Len(t, leaks, 1)
	require.Equal(t, 1, leaks["b"])

	s.Remove("b")
	require.Empty(t, s.LeakReport())
}
