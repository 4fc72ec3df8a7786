// SPDX-License-Identifier: Apache-2.0

package freelist

import "errors"

var (
	// ErrInvalidBlockSize indicates a registered region is non-empty but too
	// small to hold a free block header.
	ErrInvalidBlockSize = errors.New("freelist: block too small to hold header")

	// ErrMisalignedPointer indicates a region or allocation base that does not
	// satisfy the alignment requirement.
	ErrMisalignedPointer = errors.New("freelist: misaligned pointer")

	// ErrOutOfMemory indicates that no free block is large enough for a request.
	// Callers may register more memory and retry.
	ErrOutOfMemory = errors.New("freelist: out of memory")

	// ErrUnknownPointer indicates a release of a pointer that is not currently
	// on loan, either a double free or a pointer the allocator never returned.
	ErrUnknownPointer = errors.New("freelist: pointer was not allocated by this allocator")

	// ErrCorruptFreeList is reported by Verify when the free list breaks the
	// ordered invariant.
	ErrCorruptFreeList = errors.New("freelist: corrupt free list")
)

// ErrorKind is the closed set of failure categories an allocator reports.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindInvalidBlockSize
	KindMisalignedPointer
	KindOutOfMemory
	KindUnknownPointer
	KindCorruptFreeList
	KindOther
)

var kindNames = [...]string{
	KindNone:              "none",
	KindInvalidBlockSize:  "invalid-block-size",
	KindMisalignedPointer: "misaligned-pointer",
	KindOutOfMemory:       "out-of-memory",
	KindUnknownPointer:    "unknown-pointer",
	KindCorruptFreeList:   "corrupt-free-list",
	KindOther:             "other",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "other"
}

// Retryable reports whether the failure can go away once the caller registers
// more memory. Every other kind is a logic error in the caller.
func (k ErrorKind) Retryable() bool {
	return k == KindOutOfMemory
}

// ParseErrorKind returns the kind whose String form is name.
func ParseErrorKind(name string) (ErrorKind, bool) {
	for k, n := range kindNames {
		if n == name {
			return ErrorKind(k), true
		}
	}
	return KindOther, false
}

// KindOf classifies err. A nil error is KindNone and errors that do not wrap
// one of the package sentinels are KindOther.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidBlockSize):
		return KindInvalidBlockSize
	case errors.Is(err, ErrMisalignedPointer):
		return KindMisalignedPointer
	case errors.Is(err, ErrOutOfMemory):
		return KindOutOfMemory
	case errors.Is(err, ErrUnknownPointer):
		return KindUnknownPointer
	case errors.Is(err, ErrCorruptFreeList):
		return KindCorruptFreeList
	default:
		return KindOther
	}
}
