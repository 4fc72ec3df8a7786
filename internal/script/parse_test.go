// SPDX-License-Identifier: Apache-2.0

package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wundergraph/go-freelist"
)

func TestParse(t *testing.T) {
	src := `
# set up one region
region r 0x400
add r 0 256      # ordered
addfast r 512 128
malloc a 100
expect-error unknown-pointer
free b
freefast a
defrag
dump
`
	ops, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, ops, 9)

	require.Equal(t, Op{Kind: OpRegion, Line: 3, Name: "r", Size: 1024}, ops[0])
	require.Equal(t, Op{Kind: OpAdd, Line: 4, Name: "r", Offset: 0, Size: 256}, ops[1])
	require.Equal(t, Op{Kind: OpAddFast, Line: 5, Name: "r", Offset: 512, Size: 128}, ops[2])
	require.Equal(t, Op{Kind: OpMalloc, Line: 6, Name: "a", Size: 100}, ops[3])
	require.Equal(t, Op{Kind: OpExpectError, Line: 7, Err: freelist.KindUnknownPointer}, ops[4])
	require.Equal(t, OpFree, ops[5].Kind)
	require.Equal(t, OpFreeFast, ops[6].Kind)
	require.Equal(t, OpDefrag, ops[7].Kind)
	require.Equal(t, OpDump, ops[8].Kind)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown op":      "grow 10",
		"missing args":    "add r 0",
		"extra args":      "defrag now",
		"bad size":        "malloc a ten",
		"negative size":   "malloc a -1",
		"bad error kind":  "expect-error boom",
		"none error kind": "expect-error none",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src))
			require.Error(t, err)
			require.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, "expect-error", OpExpectError.String())
	require.Equal(t, "freefast", OpFreeFast.String())
	require.Equal(t, "unknown", Kind(0).String())
}
