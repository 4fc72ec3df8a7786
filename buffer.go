// SPDX-License-Identifier: Apache-2.0

package freelist

import (
	"io"
)

// Buffer is a bytes.Buffer-like struct whose storage is loaned from an
// Allocator. It implements io.Writer, io.Reader and io.ReaderFrom.
// Call Release to hand the storage back.
type Buffer struct {
	alloc   Allocator
	buf     []byte // unread bytes live in buf[:len(buf)]
	readBuf []byte // intermediate buffer for ReadFrom
}

// NewBuffer creates an empty Buffer backed by a.
func NewBuffer(a Allocator) *Buffer {
	return &Buffer{alloc: a}
}

// Write implements io.Writer interface.
// It fails with ErrOutOfMemory when the allocator cannot grow the buffer.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf, err := SliceAppend(b.alloc, b.buf, p...)
	if err != nil {
		return 0, err
	}
	b.buf = buf
	return len(p), nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	buf, err := SliceAppend(b.alloc, b.buf, c)
	if err != nil {
		return err
	}
	b.buf = buf
	return nil
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) (n int, err error) {
	return b.Write([]byte(s))
}

// Read reads up to len(p) bytes from the buffer into p.
func (b *Buffer) Read(p []byte) (n int, err error) {
	if len(b.buf) == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n = copy(p, b.buf)
	b.discard(n)
	return n, nil
}

// ReadByte reads and returns the next byte from the buffer.
func (b *Buffer) ReadByte() (byte, error) {
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	c := b.buf[0]
	b.discard(1)
	return c, nil
}

// discard drops the first n unread bytes, keeping the loan start in place so
// the storage can still be released.
func (b *Buffer) discard(n int) {
	rest := copy(b.buf, b.buf[n:])
	b.buf = b.buf[:rest]
}

// ReadFrom implements io.ReaderFrom interface.
// The intermediate read buffer is loaned from the allocator as well.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	if b.readBuf == nil {
		const readBufferSize = 4 * 1024
		if b.readBuf, err = MallocSlice[byte](b.alloc, readBufferSize); err != nil {
			return 0, err
		}
	}
	for {
		nr, er := r.Read(b.readBuf)
		if nr > 0 {
			if _, ew := b.Write(b.readBuf[:nr]); ew != nil {
				return n, ew
			}
			n += int64(nr)
		}
		if er != nil {
			if er == io.EOF {
				return n, nil
			}
			return n, er
		}
	}
}

// Bytes returns the unread portion of the buffer.
// The slice is valid for use only until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// String returns the unread portion of the buffer as a string.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len returns the number of bytes of the unread portion of the buffer.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Cap returns the capacity of the loaned storage.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Reset empties the buffer but keeps the storage.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Release returns all storage to the allocator. The buffer can be reused
// afterwards and will take new loans as needed.
func (b *Buffer) Release() error {
	if err := FreeSlice(b.alloc, b.buf); err != nil {
		return err
	}
	b.buf = nil
	if err := FreeSlice(b.alloc, b.readBuf); err != nil {
		return err
	}
	b.readBuf = nil
	return nil
}
