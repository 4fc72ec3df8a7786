// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"sync"
	"unsafe"
)

type concurrentAllocator struct {
	mtx sync.Mutex
	a   Allocator
}

// NewConcurrent returns an allocator that is safe to be accessed concurrently
// from multiple goroutines. Every call on the wrapped allocator is serialized
// by a single mutex.
func NewConcurrent(a Allocator) Allocator {
	return &concurrentAllocator{a: a}
}

// AddBlock satisfies the Allocator interface.
func (c *concurrentAllocator) AddBlock(block []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.AddBlock(block)
}

// AddBlockFast satisfies the Allocator interface.
func (c *concurrentAllocator) AddBlockFast(block []byte) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.AddBlockFast(block)
}

// Malloc satisfies the Allocator interface.
func (c *concurrentAllocator) Malloc(size uintptr) (unsafe.Pointer, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Malloc(size)
}

// Free satisfies the Allocator interface.
func (c *concurrentAllocator) Free(ptr unsafe.Pointer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Free(ptr)
}

// FreeFast satisfies the Allocator interface.
func (c *concurrentAllocator) FreeFast(ptr unsafe.Pointer) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.FreeFast(ptr)
}

// Defrag satisfies the Allocator interface.
func (c *concurrentAllocator) Defrag() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.a.Defrag()
}

// Alignment is fixed at construction and needs no locking.
func (c *concurrentAllocator) Alignment() uintptr {
	return c.a.Alignment()
}

// Len satisfies the Allocator interface.
func (c *concurrentAllocator) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Len()
}

// Cap satisfies the Allocator interface.
func (c *concurrentAllocator) Cap() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Cap()
}

// Peak satisfies the Allocator interface.
func (c *concurrentAllocator) Peak() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Peak()
}

// FreeBlocks satisfies the Allocator interface.
func (c *concurrentAllocator) FreeBlocks() []Block {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.FreeBlocks()
}
