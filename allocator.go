// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"fmt"
	"unsafe"
)

// Allocator is an interface that describes a free-list allocator working on
// memory regions supplied by the caller.
type Allocator interface {
	// AddBlock registers block as free memory, keeping the free list sorted by
	// address and merging it with physically adjacent free blocks.
	AddBlock(block []byte) error

	// AddBlockFast registers block as free memory by pushing it at the head of
	// the free list without searching or merging.
	AddBlockFast(block []byte) error

	// Malloc loans out at least size bytes, rounded up to the alignment.
	// The returned memory is not zeroed.
	Malloc(size uintptr) (unsafe.Pointer, error)

	// Free returns a pointer obtained from Malloc through the ordered,
	// coalescing insertion path.
	Free(ptr unsafe.Pointer) error

	// FreeFast returns a pointer obtained from Malloc through the unordered
	// insertion path.
	FreeFast(ptr unsafe.Pointer) error

	// Defrag sorts and fully coalesces the free list.
	Defrag()

	// Alignment returns the byte boundary every block start satisfies.
	Alignment() uintptr

	// Len returns the number of bytes currently on loan.
	Len() int

	// Cap returns the total number of bytes ever registered with the allocator.
	Cap() int

	// Peak returns the high-water mark of Len.
	Peak() int

	// FreeBlocks returns the free list in list order.
	FreeBlocks() []Block
}

// New allocates a zeroed value of type T from the allocator.
// T must not contain Go pointers: the garbage collector does not scan memory
// handed out by an Allocator.
func New[T any](a Allocator) (*T, error) {
	var x T
	if unsafe.Sizeof(x) == 0 {
		return new(T), nil
	}
	if err := checkElemAlign(a, unsafe.Alignof(x)); err != nil {
		return nil, err
	}
	ptr, err := a.Malloc(unsafe.Sizeof(x))
	if err != nil {
		return nil, err
	}
	p := (*T)(ptr)
	*p = x
	return p, nil
}

// Delete releases a value obtained from New.
func Delete[T any](a Allocator, p *T) error {
	if unsafe.Sizeof(*p) == 0 {
		return nil
	}
	return a.Free(unsafe.Pointer(p))
}

// MallocSlice allocates a zeroed slice of n elements of type T.
// A request for zero bytes returns a nil slice and loans nothing.
// Like New, T must not contain Go pointers.
func MallocSlice[T any](a Allocator, n int) ([]T, error) {
	if n < 0 {
		panic("freelist: negative slice length")
	}
	var x T
	elem := unsafe.Sizeof(x)
	if n == 0 {
		return nil, nil
	}
	if elem == 0 {
		return make([]T, n), nil
	}
	if uintptr(n) > ^uintptr(0)/elem {
		return nil, fmt.Errorf("%w: %d elements of %d bytes overflow", ErrOutOfMemory, n, elem)
	}
	if err := checkElemAlign(a, unsafe.Alignof(x)); err != nil {
		return nil, err
	}
	ptr, err := a.Malloc(uintptr(n) * elem)
	if err != nil {
		return nil, err
	}
	s := unsafe.Slice((*T)(ptr), n)
	clear(s)
	return s, nil
}

// FreeSlice releases a slice obtained from MallocSlice. The slice must still
// start at the loaned address; a re-sliced tail is reported as unknown.
func FreeSlice[T any](a Allocator, s []T) error {
	var x T
	if cap(s) == 0 || unsafe.Sizeof(x) == 0 {
		return nil
	}
	return a.Free(unsafe.Pointer(unsafe.SliceData(s)))
}

func checkElemAlign(a Allocator, align uintptr) error {
	if a.Alignment()%align != 0 {
		return fmt.Errorf("%w: element alignment %d does not divide allocator alignment %d",
			ErrMisalignedPointer, align, a.Alignment())
	}
	return nil
}

// minLoan returns the smallest number of bytes a Malloc of a loans out:
// HeaderSize rounded up to the alignment.
func minLoan(a Allocator) uintptr {
	align := a.Alignment()
	return (HeaderSize + align - 1) / align * align
}
