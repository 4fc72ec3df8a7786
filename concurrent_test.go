// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentAllocatorConcurrentAccess(t *testing.T) {
	base := NewManager(WithAlignment(16))
	buf := newRegion(t, 1024*1024, 16)
	require.NoError(t, base.AddBlock(buf))
	a := NewConcurrent(base)

	const numGoroutines = 10
	const allocationsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(fast bool) {
			defer wg.Done()
			ptrs := make([]unsafe.Pointer, 0, allocationsPerGoroutine)
			for j := 0; j < allocationsPerGoroutine; j++ {
				ptr, err := a.Malloc(48)
				if !assert.NoError(t, err) {
					return
				}
				ptrs = append(ptrs, ptr)
			}
			for _, ptr := range ptrs {
				if fast {
					assert.NoError(t, a.FreeFast(ptr))
				} else {
					assert.NoError(t, a.Free(ptr))
				}
			}
		}(i%2 == 0)
	}
	wg.Wait()

	require.Equal(t, 0, a.Len())
	require.GreaterOrEqual(t, a.Peak(), allocationsPerGoroutine*48)
	require.Equal(t, 1024*1024, a.Cap())

	a.Defrag()
	require.Equal(t, []Block{{Addr: addrOf(buf), Size: 1024 * 1024}}, a.FreeBlocks())
}

func TestConcurrentAllocatorRegistration(t *testing.T) {
	a := NewConcurrent(NewManager(WithAlignment(16)))
	buf := newRegion(t, 64*256, 16)

	var wg sync.WaitGroup
	wg.Add(64)
	for i := 0; i < 64; i++ {
		go func(i int) {
			defer wg.Done()
			block := buf[i*256 : (i+1)*256]
			if i%2 == 0 {
				assert.NoError(t, a.AddBlock(block))
			} else {
				assert.NoError(t, a.AddBlockFast(block))
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 64*256, a.Cap())
	a.Defrag()
	require.Equal(t, []Block{{Addr: addrOf(buf), Size: 64 * 256}}, a.FreeBlocks())
}

func TestConcurrentAllocatorWithTypes(t *testing.T) {
	base := NewManager(WithAlignment(16))
	require.NoError(t, base.AddBlock(newRegion(t, 1024, 16)))
	a := NewConcurrent(base)
	require.Equal(t, uintptr(16), a.Alignment())

	type TestStruct struct {
		a int64
		b int32
		c int16
	}

	p, err := New[TestStruct](a)
	require.NoError(t, err)
	require.Equal(t, TestStruct{}, *p)
	require.Equal(t, 16, a.Len())

	s, err := MallocSlice[int64](a, 10)
	require.NoError(t, err)
	require.Len(t, s, 10)
	require.Equal(t, 16+80, a.Len())

	require.NoError(t, Delete(a, p))
	require.NoError(t, FreeSlice(a, s))
	require.Equal(t, 0, a.Len())
	require.Equal(t, 96, a.Peak())
}
