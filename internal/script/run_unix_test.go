// SPDX-License-Identifier: Apache-2.0

//go:build unix

package script

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wundergraph/go-freelist"
	"github.com/wundergraph/go-freelist/internal/region"
)

func TestRunWithMappedRegions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mmap test in short mode")
	}
	m := freelist.NewManager(freelist.WithAlignment(64))
	r, err := runTrace(t, m, `
region a 65536
region b 65536
add a 0 65536
addfast b 0 65536
malloc x 40000
malloc y 40000
freefast x
free y
defrag
`, WithAcquire(region.Map))
	require.NoError(t, err)
	require.NoError(t, m.Verify())
	require.Equal(t, 2*65536, m.FreeBytes())

	a, _ := r.Region("a")
	b, _ := r.Region("b")
	require.NotEqual(t, a.Addr(), b.Addr())
	require.LessOrEqual(t, m.FreeCount(), 2)
}
