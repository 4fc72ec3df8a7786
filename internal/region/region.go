// SPDX-License-Identifier: Apache-2.0

// Package region acquires memory that callers hand to a freelist allocator.
// The allocator itself never calls into this package.
package region

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrMapUnsupported is returned by Map on platforms without anonymous mappings.
	ErrMapUnsupported = errors.New("region: anonymous mappings not supported on this platform")

	// ErrOutOfRange indicates a sub-range that does not fit inside the region.
	ErrOutOfRange = errors.New("region: range out of bounds")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("region: closed")
)

// Region is a contiguous range of caller-owned memory.
type Region struct {
	data    []byte
	release func([]byte) error
}

// Heap returns a region of size bytes from the Go heap whose first byte is
// aligned to align.
func Heap(size, align int) (*Region, error) {
	if size < 0 || align <= 0 {
		return nil, fmt.Errorf("region: invalid heap request size=%d align=%d", size, align)
	}
	raw := make([]byte, size+align-1)
	off := 0
	if size > 0 {
		if rem := int(uintptr(unsafe.Pointer(unsafe.SliceData(raw))) % uintptr(align)); rem != 0 {
			off = align - rem
		}
	}
	return &Region{data: raw[off : off+size : off+size]}, nil
}

// Map returns a region of size bytes backed by an anonymous private mapping.
// Mappings are page aligned.
func Map(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region: invalid mapping size %d", size)
	}
	data, err := mapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, release: unmapAnon}, nil
}

// Bytes returns the whole region.
func (r *Region) Bytes() []byte {
	return r.data
}

// Len returns the size of the region in bytes.
func (r *Region) Len() int {
	return len(r.data)
}

// Addr returns the address of the first byte.
func (r *Region) Addr() uintptr {
	if len(r.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.data)))
}

// Slice returns size bytes starting at off.
func (r *Region) Slice(off, size int) ([]byte, error) {
	if r.data == nil {
		return nil, ErrClosed
	}
	if off < 0 || size < 0 || off > len(r.data) || size > len(r.data)-off {
		return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", ErrOutOfRange, off, off+size, len(r.data))
	}
	return r.data[off : off+size : off+size], nil
}

// Close releases a mapped region. Heap regions are left to the garbage
// collector. Closing twice is a no-op.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	if r.release == nil {
		return nil
	}
	return r.release(data)
}
