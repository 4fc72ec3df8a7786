// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"errors"
	"unsafe"
)

const growThreshold = 256

// SliceAppend appends elements to a slice of type T, moving it to a larger
// loan from a when its capacity is exhausted. s must be nil or a slice
// obtained from the same allocator.
func SliceAppend[T any](a Allocator, s []T, data ...T) ([]T, error) {
	s, err := GrowSlice(a, s, len(data))
	if err != nil {
		return s, err
	}
	return append(s, data...), nil
}

// GrowSlice makes room for n more elements. When the capacity has to grow a
// new loan is taken, the elements are copied and the old loan is released.
// On error s is returned unchanged and still owned by the caller.
func GrowSlice[T any](a Allocator, s []T, n int) ([]T, error) {
	newLen := len(s) + n
	newCap := cap(s)
	if newLen <= newCap {
		return s, nil
	}

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = n
	}
	// Every loan is at least minLoan bytes, so use all of it.
	var x T
	if elem := unsafe.Sizeof(x); elem > 0 {
		if fit := int(minLoan(a) / elem); newCap < fit {
			newCap = fit
		}
	}

	s2, err := MallocSlice[T](a, newCap)
	if err != nil {
		return s, err
	}
	s2 = s2[:len(s)]
	copy(s2, s)
	if err := FreeSlice(a, s); err != nil {
		return s, errors.Join(err, FreeSlice(a, s2))
	}
	return s2, nil
}
