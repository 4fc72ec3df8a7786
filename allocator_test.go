// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestNewAndDelete(t *testing.T) {
	m := NewManager()
	region := newRegion(t, 256, 8)
	for i := range region {
		region[i] = 0xFF
	}
	require.NoError(t, m.AddBlock(region))

	type point struct{ X, Y, Z int64 }
	p, err := New[point](m)
	require.NoError(t, err)
	require.Equal(t, point{}, *p, "New zeroes the loan")
	require.Equal(t, addrOf(region), uintptr(unsafe.Pointer(p)))
	require.Equal(t, 24, m.Len())

	p.X = 7
	require.NoError(t, Delete(m, p))
	require.Equal(t, 0, m.Len())
	require.ErrorIs(t, Delete(m, p), ErrUnknownPointer)
}

func TestNewZeroSized(t *testing.T) {
	m := NewManager()
	p, err := New[struct{}](m)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NoError(t, Delete(m, p))
	require.Equal(t, 0, m.Loans())
}

func TestMallocSlice(t *testing.T) {
	m := NewManager(WithAlignment(16))
	region := newRegion(t, 1024, 16)
	for i := range region {
		region[i] = 0xFF
	}
	require.NoError(t, m.AddBlock(region))

	s, err := MallocSlice[uint16](m, 10)
	require.NoError(t, err)
	require.Len(t, s, 10)
	require.Equal(t, 10, cap(s))
	require.Equal(t, make([]uint16, 10), s)
	require.Equal(t, 32, m.Len())

	require.NoError(t, FreeSlice(m, s))
	require.Equal(t, 0, m.Len())

	// A re-sliced tail no longer starts at the loaned address.
	s, err = MallocSlice[uint16](m, 10)
	require.NoError(t, err)
	require.ErrorIs(t, FreeSlice(m, s[1:]), ErrUnknownPointer)
	require.NoError(t, FreeSlice(m, s[:0]))
}

func TestMallocSliceEdgeCases(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddBlock(newRegion(t, 64, 8)))

	s, err := MallocSlice[int](m, 0)
	require.NoError(t, err)
	require.Nil(t, s)
	require.NoError(t, FreeSlice(m, s))

	empty, err := MallocSlice[struct{}](m, 5)
	require.NoError(t, err)
	require.Len(t, empty, 5)
	require.NoError(t, FreeSlice(m, empty))
	require.Equal(t, 0, m.Loans())

	_, err = MallocSlice[uint64](m, int(^uint(0)>>1))
	require.ErrorIs(t, err, ErrOutOfMemory)

	require.Panics(t, func() {
		_, _ = MallocSlice[byte](m, -1)
	})
}

func TestTypedAllocationChecksAlignment(t *testing.T) {
	m := NewManager(WithAlignment(4))
	require.NoError(t, m.AddBlock(newRegion(t, 256, 8)))

	_, err := New[uint64](m)
	require.ErrorIs(t, err, ErrMisalignedPointer)
	_, err = MallocSlice[uint64](m, 2)
	require.ErrorIs(t, err, ErrMisalignedPointer)
	require.Equal(t, 0, m.Loans())

	_, err = MallocSlice[uint32](m, 2)
	require.NoError(t, err)
}

var _ Allocator = (*Manager)(nil)
