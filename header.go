// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"encoding/binary"
	"fmt"
	"slices"
	"unsafe"
)

// HeaderSize is the number of bytes a free block uses for its in-place header:
// an 8 byte address of the next free block followed by an 8 byte block length.
// Blocks smaller than HeaderSize cannot be tracked by the free list.
const HeaderSize = 16

const (
	nextOffset = 0
	sizeOffset = 8
)

// span is a registered region. base is a real pointer to its first byte, so
// it also keeps caller memory reachable for the garbage collector while block
// addresses are stored as integers inside headers.
type span struct {
	base       unsafe.Pointer
	start, end uintptr
}

// at returns a pointer to addr derived from the span base. addr must lie in
// [start, end).
func (s span) at(addr uintptr) unsafe.Pointer {
	return unsafe.Add(s.base, addr-s.start)
}

// tail returns the bytes from addr to the end of the span.
func (s span) tail(addr uintptr) []byte {
	return unsafe.Slice((*byte)(s.at(addr)), s.end-addr)
}

// spans holds every registered region sorted by start address.
type spans []span

func (ss *spans) insert(block []byte) {
	base := unsafe.Pointer(unsafe.SliceData(block))
	s := span{base: base, start: uintptr(base), end: uintptr(base) + uintptr(len(block))}
	i, _ := slices.BinarySearchFunc(*ss, s.start, func(s span, addr uintptr) int {
		return cmpAddr(s.start, addr)
	})
	*ss = slices.Insert(*ss, i, s)
}

// find returns the span containing addr.
func (ss spans) find(addr uintptr) (span, bool) {
	i, found := slices.BinarySearchFunc(ss, addr, func(s span, addr uintptr) int {
		return cmpAddr(s.start, addr)
	})
	if !found {
		i--
	}
	if i < 0 || addr >= ss[i].end {
		return span{}, false
	}
	return ss[i], true
}

// pointer turns a block address back into a pointer. Every address on the
// free list or on loan lies in a registered span; anything else means the
// list was overwritten.
func (ss spans) pointer(addr uintptr) unsafe.Pointer {
	s, ok := ss.find(addr)
	if !ok {
		panic(fmt.Sprintf("%v: %#x is outside every registered region", ErrCorruptFreeList, addr))
	}
	return s.at(addr)
}

// copyOut reads len(dst) bytes starting at addr. Coalesced blocks may cross
// region boundaries, so the copy follows consecutive spans.
func (ss spans) copyOut(addr uintptr, dst []byte) {
	for len(dst) > 0 {
		s, ok := ss.find(addr)
		if !ok {
			panic(fmt.Sprintf("%v: header at %#x is outside every registered region", ErrCorruptFreeList, addr))
		}
		n := copy(dst, s.tail(addr))
		dst = dst[n:]
		addr += uintptr(n)
	}
}

func (ss spans) copyIn(addr uintptr, src []byte) {
	for len(src) > 0 {
		s, ok := ss.find(addr)
		if !ok {
			panic(fmt.Sprintf("%v: header at %#x is outside every registered region", ErrCorruptFreeList, addr))
		}
		n := copy(s.tail(addr), src)
		src = src[n:]
		addr += uintptr(n)
	}
}

func cmpAddr(a, b uintptr) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// header is a view over the first HeaderSize bytes of a free block.
// It is the only code in the package that reads or writes block memory as
// header fields; everything else works with plain addresses.
//
// Fields are encoded with the native byte order through encoding/binary so
// that headers at addresses with an alignment below 8 are still legal.
type header struct {
	mem  spans
	addr uintptr
}

func (m *Manager) header(addr uintptr) header {
	return header{mem: m.mem, addr: addr}
}

func (h header) load() [HeaderSize]byte {
	var b [HeaderSize]byte
	h.mem.copyOut(h.addr, b[:])
	return b
}

// next returns the address of the following free block, or 0 for the tail.
func (h header) next() uintptr {
	b := h.load()
	return uintptr(binary.NativeEndian.Uint64(b[nextOffset:]))
}

func (h header) setNext(next uintptr) {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], uint64(next))
	h.mem.copyIn(h.addr+nextOffset, b[:])
}

func (h header) size() uintptr {
	b := h.load()
	return uintptr(binary.NativeEndian.Uint64(b[sizeOffset:]))
}

// set writes both header fields.
func (h header) set(next, size uintptr) {
	var b [HeaderSize]byte
	binary.NativeEndian.PutUint64(b[nextOffset:], uint64(next))
	binary.NativeEndian.PutUint64(b[sizeOffset:], uint64(size))
	h.mem.copyIn(h.addr, b[:])
}

// end returns the first address past the block.
func (h header) end() uintptr {
	return h.addr + h.size()
}
