// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{nil, KindNone},
		{ErrInvalidBlockSize, KindInvalidBlockSize},
		{fmt.Errorf("%w: 3 bytes", ErrInvalidBlockSize), KindInvalidBlockSize},
		{fmt.Errorf("outer: %w", fmt.Errorf("%w: 0x1", ErrMisalignedPointer)), KindMisalignedPointer},
		{ErrOutOfMemory, KindOutOfMemory},
		{ErrUnknownPointer, KindUnknownPointer},
		{ErrCorruptFreeList, KindCorruptFreeList},
		{errors.New("something else"), KindOther},
	}
	for _, tc := range cases {
		require.Equal(t, tc.kind, KindOf(tc.err), "%v", tc.err)
	}
}

func TestErrorKindNames(t *testing.T) {
	for k := KindNone; k <= KindOther; k++ {
		parsed, ok := ParseErrorKind(k.String())
		require.True(t, ok, k.String())
		require.Equal(t, k, parsed)
	}
	_, ok := ParseErrorKind("nope")
	require.False(t, ok)
	require.Equal(t, "other", ErrorKind(200).String())
}

func TestRetryable(t *testing.T) {
	for k := KindNone; k <= KindOther; k++ {
		require.Equal(t, k == KindOutOfMemory, k.Retryable(), k.String())
	}
}
