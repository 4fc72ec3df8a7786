// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"fmt"
	"io"
	"slices"
)

// Block describes one free-list entry.
type Block struct {
	Addr uintptr `json:"addr"`
	Size uintptr `json:"size"`
}

// End returns the first address past the block.
func (b Block) End() uintptr {
	return b.Addr + b.Size
}

// FreeBlocks satisfies the Allocator interface.
func (m *Manager) FreeBlocks() []Block {
	var blocks []Block
	for cur := m.top; cur != 0; cur = m.header(cur).next() {
		blocks = append(blocks, Block{Addr: cur, Size: m.header(cur).size()})
	}
	return blocks
}

// SortBlocks sorts blocks by address in place.
func SortBlocks(blocks []Block) {
	slices.SortFunc(blocks, func(a, b Block) int {
		return cmpAddr(a.Addr, b.Addr)
	})
}

// FreeBytes returns the number of bytes on the free list.
// It walks the whole list.
func (m *Manager) FreeBytes() int {
	var total uintptr
	for cur := m.top; cur != 0; cur = m.header(cur).next() {
		total += m.header(cur).size()
	}
	return int(total)
}

// FreeCount returns the number of free-list entries.
func (m *Manager) FreeCount() int {
	n := 0
	for cur := m.top; cur != 0; cur = m.header(cur).next() {
		n++
	}
	return n
}

// Dump writes the free list to w in address order, one "address | size" line
// per block. It does not change the allocator state.
func (m *Manager) Dump(w io.Writer) error {
	blocks := m.FreeBlocks()
	SortBlocks(blocks)
	if _, err := fmt.Fprintf(w, "free list: %d blocks, %d bytes\n", len(blocks), m.FreeBytes()); err != nil {
		return err
	}
	for _, b := range blocks {
		if _, err := fmt.Fprintf(w, "%#x | %d\n", b.Addr, b.Size); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the ordered free-list invariant: every entry is aligned and
// large enough to hold a header, entries are sorted by address, and no entry
// overlaps or touches its successor. A list built with the fast paths may
// fail until Defrag is called.
func (m *Manager) Verify() error {
	var prev Block
	for i, b := range m.FreeBlocks() {
		if b.Size < HeaderSize {
			return fmt.Errorf("%w: block %d at %#x has size %d", ErrCorruptFreeList, i, b.Addr, b.Size)
		}
		if b.Addr%m.alignment != 0 {
			return fmt.Errorf("%w: block %d at %#x is not aligned to %d", ErrCorruptFreeList, i, b.Addr, m.alignment)
		}
		if i > 0 {
			switch {
			case b.Addr <= prev.Addr:
				return fmt.Errorf("%w: block %d at %#x is not after %#x", ErrCorruptFreeList, i, b.Addr, prev.Addr)
			case prev.End() > b.Addr:
				return fmt.Errorf("%w: block %d at %#x overlaps %#x", ErrCorruptFreeList, i, b.Addr, prev.Addr)
			case prev.End() == b.Addr:
				return fmt.Errorf("%w: block %d at %#x is contiguous with %#x", ErrCorruptFreeList, i, b.Addr, prev.Addr)
			}
		}
		prev = b
	}
	return nil
}
