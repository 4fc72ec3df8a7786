// SPDX-License-Identifier: Apache-2.0

// Package freelist provides a manual memory allocator that hands out aligned
// sub-blocks of memory regions supplied by the caller and reclaims them on
// release.
//
// # Free list
//
// Free blocks are linked through a header stored inside each block:
//
//	[ next address (8 bytes) | size (8 bytes) | unused ... ]
//
// so a region must be at least HeaderSize bytes to be registered. The list can
// be kept in one of two disciplines:
//
//   - Ordered: AddBlock and Free insert by address and merge physically
//     contiguous neighbours, so the list stays sorted and fully coalesced.
//   - Unordered: AddBlockFast and FreeFast push at the head in O(1) without
//     merging. Defrag restores the ordered discipline.
//
// Malloc performs a first-fit scan and splits the chosen block, leaving the
// tail at the same list position.
//
// # Usage Example
//
//	m := freelist.NewManager(freelist.WithAlignment(16))
//	region := make([]byte, 1<<20)
//	if err := m.AddBlock(region); err != nil {
//	    return err
//	}
//
//	ids, err := freelist.MallocSlice[uint64](m, 128)
//	if err != nil {
//	    return err
//	}
//	// use ids...
//	err = freelist.FreeSlice(m, ids)
//
// # Errors
//
// Every failure wraps one of ErrInvalidBlockSize, ErrMisalignedPointer,
// ErrOutOfMemory, ErrUnknownPointer or ErrCorruptFreeList; KindOf maps an
// error to an ErrorKind.
// Only ErrOutOfMemory is retryable, after registering more memory.
//
// # Memory ownership
//
// The allocator never acquires or returns memory to the system. Regions stay
// under its management for its whole lifetime. Values placed in loaned memory
// must not contain Go pointers because the garbage collector does not scan it.
//
// # Thread Safety
//
// Manager is not thread-safe. NewConcurrent wraps any Allocator with a mutex.
package freelist
