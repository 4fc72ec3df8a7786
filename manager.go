// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unsafe"
)

// Manager is the free-list allocator. Free blocks are linked through headers
// stored inside the blocks themselves, so the only memory the Manager owns is
// its map of loaned pointers and the list of registered regions.
//
// A Manager is not safe for concurrent use. Wrap it with NewConcurrent when it
// is shared between goroutines.
type Manager struct {
	top       uintptr // first free block, 0 when the list is empty
	alignment uintptr

	allocs map[uintptr]uintptr // loaned address -> loaned size

	// mem holds every registered region; block pointers are rebuilt from
	// its base pointers.
	mem spans

	inUse    uintptr
	peak     uintptr
	capacity uintptr

	logger *slog.Logger
}

// Option represents a configuration option for a Manager.
type Option func(*Manager)

// WithAlignment sets the byte boundary every block start must satisfy.
func WithAlignment(alignment uintptr) Option {
	return func(m *Manager) {
		m.alignment = alignment
	}
}

// WithAlignmentOf sets the alignment to the size of T.
func WithAlignmentOf[T any]() Option {
	var x T
	return WithAlignment(unsafe.Sizeof(x))
}

// WithLogger sets the logger used for debug output. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty allocator. Without options blocks are aligned
// to the machine word size and nothing is logged.
// It panics if the configured alignment is zero.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		alignment: unsafe.Sizeof(uintptr(0)),
		allocs:    make(map[uintptr]uintptr),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.alignment == 0 {
		panic("freelist: alignment must be positive")
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// AddBlock satisfies the Allocator interface. An empty block is ignored.
func (m *Manager) AddBlock(block []byte) error {
	return m.register(block, false)
}

// AddBlockFast satisfies the Allocator interface. An empty block is ignored.
func (m *Manager) AddBlockFast(block []byte) error {
	return m.register(block, true)
}

// AddRegion registers size bytes starting at ptr through the ordered path.
// The caller keeps ownership of the memory and must keep it mapped for the
// lifetime of the Manager.
func (m *Manager) AddRegion(ptr unsafe.Pointer, size uintptr) error {
	if size == 0 {
		return nil
	}
	if ptr == nil {
		return fmt.Errorf("%w: nil region of %d bytes", ErrMisalignedPointer, size)
	}
	return m.register(unsafe.Slice((*byte)(ptr), size), false)
}

// AddRegionFast is AddRegion through the unordered path.
func (m *Manager) AddRegionFast(ptr unsafe.Pointer, size uintptr) error {
	if size == 0 {
		return nil
	}
	if ptr == nil {
		return fmt.Errorf("%w: nil region of %d bytes", ErrMisalignedPointer, size)
	}
	return m.register(unsafe.Slice((*byte)(ptr), size), true)
}

func (m *Manager) register(block []byte, fast bool) error {
	if len(block) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(block)))
	size := uintptr(len(block))
	if err := m.check(addr, size); err != nil {
		m.logger.Debug("freelist: region rejected", "addr", hexAddr(addr), "size", size, "error", err)
		return err
	}
	m.mem.insert(block)
	if fast {
		m.pushFront(addr, size)
	} else {
		m.insertOrdered(addr, size)
	}
	m.capacity += size
	m.logger.Debug("freelist: region registered", "addr", hexAddr(addr), "size", size, "fast", fast)
	return nil
}

func (m *Manager) check(addr, size uintptr) error {
	if size < HeaderSize {
		return fmt.Errorf("%w: %d bytes at %s, need at least %d", ErrInvalidBlockSize, size, hexAddr(addr), HeaderSize)
	}
	if addr%m.alignment != 0 {
		return fmt.Errorf("%w: %s is not aligned to %d", ErrMisalignedPointer, hexAddr(addr), m.alignment)
	}
	return nil
}

// pushFront links a block as the new list head.
func (m *Manager) pushFront(addr, size uintptr) {
	m.header(addr).set(m.top, size)
	m.top = addr
}

// insertOrdered links a block after its address predecessor, merging with the
// successor and then the predecessor when they are physically contiguous.
func (m *Manager) insertOrdered(addr, size uintptr) {
	if m.top == 0 {
		m.pushFront(addr, size)
		return
	}

	prev := m.predecessor(addr)
	next := m.top
	if prev != 0 {
		next = m.header(prev).next()
	}

	blk := m.header(addr)
	if next != 0 && addr+size == next {
		n := m.header(next)
		blk.set(n.next(), size+n.size())
	} else {
		blk.set(next, size)
	}

	if prev == 0 {
		m.top = addr
		return
	}
	p := m.header(prev)
	if p.end() == addr {
		p.set(blk.next(), p.size()+blk.size())
	} else {
		p.setNext(addr)
	}
}

// predecessor returns the last list entry whose address is <= addr, or 0 when
// addr precedes every entry.
func (m *Manager) predecessor(addr uintptr) uintptr {
	if m.top == 0 || m.top > addr {
		return 0
	}
	cur := m.top
	for {
		next := m.header(cur).next()
		if next == 0 || next > addr {
			return cur
		}
		cur = next
	}
}

// Malloc satisfies the Allocator interface. The request is rounded up to the
// alignment and to at least HeaderSize so the loan can be reinserted on
// release. The first free block large enough is used; when the leftover tail
// could not hold a header the whole block is loaned.
func (m *Manager) Malloc(size uintptr) (unsafe.Pointer, error) {
	req, ok := m.roundUp(size)
	if !ok {
		return nil, fmt.Errorf("%w: request of %d bytes overflows", ErrOutOfMemory, size)
	}
	if minimum, _ := m.roundUp(HeaderSize); req < minimum {
		req = minimum
	}

	var prev uintptr
	cur := m.top
	for cur != 0 && m.header(cur).size() < req {
		prev = cur
		cur = m.header(cur).next()
	}
	if cur == 0 {
		return nil, fmt.Errorf("%w: no free block of %d bytes", ErrOutOfMemory, req)
	}

	blk := m.header(cur)
	blockSize := blk.size()
	var repl uintptr
	if blockSize-req < HeaderSize {
		req = blockSize
		repl = blk.next()
	} else {
		repl = cur + req
		m.header(repl).set(blk.next(), blockSize-req)
	}
	if prev == 0 {
		m.top = repl
	} else {
		m.header(prev).setNext(repl)
	}

	m.allocs[cur] = req
	m.inUse += req
	if m.inUse > m.peak {
		m.peak = m.inUse
	}
	return m.mem.pointer(cur), nil
}

func (m *Manager) roundUp(size uintptr) (uintptr, bool) {
	rem := size % m.alignment
	if rem == 0 {
		return size, true
	}
	pad := m.alignment - rem
	if size > ^uintptr(0)-pad {
		return 0, false
	}
	return size + pad, true
}

// Free satisfies the Allocator interface.
func (m *Manager) Free(ptr unsafe.Pointer) error {
	return m.release(ptr, false)
}

// FreeFast satisfies the Allocator interface.
func (m *Manager) FreeFast(ptr unsafe.Pointer) error {
	return m.release(ptr, true)
}

func (m *Manager) release(ptr unsafe.Pointer, fast bool) error {
	addr := uintptr(ptr)
	size, ok := m.allocs[addr]
	if !ok {
		m.logger.Debug("freelist: release rejected", "addr", hexAddr(addr))
		return fmt.Errorf("%w: %s", ErrUnknownPointer, hexAddr(addr))
	}
	// The record is dropped only after the block is back on the list.
	if err := m.check(addr, size); err != nil {
		return err
	}
	if fast {
		m.pushFront(addr, size)
	} else {
		m.insertOrdered(addr, size)
	}
	delete(m.allocs, addr)
	m.inUse -= size
	return nil
}

// Defrag satisfies the Allocator interface. Every detached block goes back
// through the ordered insertion path, so the cost is quadratic in the list
// length.
func (m *Manager) Defrag() {
	cur := m.top
	m.top = 0
	before := 0
	for cur != 0 {
		blk := m.header(cur)
		next := blk.next()
		m.insertOrdered(cur, blk.size())
		cur = next
		before++
	}
	if m.logger.Enabled(context.Background(), slog.LevelDebug) {
		m.logger.Debug("freelist: defrag", "before", before, "after", m.FreeCount())
	}
}

// Alignment satisfies the Allocator interface.
func (m *Manager) Alignment() uintptr {
	return m.alignment
}

// Len satisfies the Allocator interface.
func (m *Manager) Len() int {
	return int(m.inUse)
}

// Cap satisfies the Allocator interface.
func (m *Manager) Cap() int {
	return int(m.capacity)
}

// Peak satisfies the Allocator interface.
// The value is never lowered by Free.
func (m *Manager) Peak() int {
	return int(m.peak)
}

// Loans returns the number of pointers currently on loan.
func (m *Manager) Loans() int {
	return len(m.allocs)
}

// SizeOf returns the loaned size recorded for ptr.
func (m *Manager) SizeOf(ptr unsafe.Pointer) (uintptr, bool) {
	size, ok := m.allocs[uintptr(ptr)]
	return size, ok
}

func hexAddr(addr uintptr) string {
	return fmt.Sprintf("%#x", addr)
}
