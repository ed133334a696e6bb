// Package buffer implements the owning, NUL-padded byte container used as
// the transport unit for every read/write in acceptord (component A).
package buffer

import "bytes"

// Buffer is a resizable byte sequence with a logical length tracked
// separately from its physical capacity, and a guaranteed zero byte
// immediately past the logical length. The trailing zero lets a Buffer
// double as a C-string-shaped view for syscalls that want a NUL terminator,
// without forcing every caller to allocate one.
//
// The zero value is a valid, empty Buffer.
type Buffer struct {
	data []byte // len(data) >= length+1; data[length] == 0
	length int
}

// New allocates a Buffer with capacity for at least n bytes and zero
// logical length.
func New(n int) *Buffer {
	b := &Buffer{}
	b.Reserve(n)
	return b
}

// FromBytes copies p into a new Buffer.
func FromBytes(p []byte) *Buffer {
	b := &Buffer{}
	b.Append(p)
	return b
}

// Reserve grows the backing array so it can hold at least n logical bytes,
// without changing the logical length. It never shrinks capacity.
func (b *Buffer) Reserve(n int) {
	if cap(b.data) >= n+1 {
		return
	}
	grown := make([]byte, n+1, n+1)
	copy(grown, b.data)
	b.data = grown
	b.ensureTerm()
}

// Resize sets the logical length to n, growing the backing array if
// necessary. Used after a Recv to shrink the visible view to the number of
// bytes actually read.
func (b *Buffer) Resize(n int) {
	b.Reserve(n)
	if len(b.data) < n+1 {
		b.data = append(b.data, make([]byte, n+1-len(b.data))...)
	}
	b.length = n
	b.ensureTerm()
}

// Append adds p to the end of the buffer, growing as needed.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.Reserve(b.length + len(p))
	copy(b.data[b.length:], p)
	b.length += len(p)
	b.ensureTerm()
}

// AppendByte appends a single byte.
func (b *Buffer) AppendByte(c byte) {
	b.Append([]byte{c})
}

// AppendString appends s as bytes.
func (b *Buffer) AppendString(s string) {
	b.Append([]byte(s))
}

// Clear resets the logical length to zero without releasing capacity.
func (b *Buffer) Clear() {
	b.length = 0
	b.ensureTerm()
}

// Bytes returns the logical view of the buffer. The returned slice is only
// valid until the next mutating call.
func (b *Buffer) Bytes() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[:b.length]
}

// Cap returns the writable window, i.e. the buffer sized up to its current
// capacity minus the trailing terminator, for use as a Recv target.
func (b *Buffer) Cap() []byte {
	if b.data == nil {
		return nil
	}
	return b.data[:len(b.data)-1]
}

// Len returns the logical length.
func (b *Buffer) Len() int { return b.length }

// String renders the logical bytes as a string (copies).
func (b *Buffer) String() string { return string(b.Bytes()) }

// Less provides lexicographic ordering with ties broken by length, so a
// Buffer can key a sorted structure.
func (b *Buffer) Less(other *Buffer) bool {
	c := bytes.Compare(b.Bytes(), other.Bytes())
	if c != 0 {
		return c < 0
	}
	return b.length < other.length
}

func (b *Buffer) ensureTerm() {
	if len(b.data) < b.length+1 {
		b.data = append(b.data, make([]byte, b.length+1-len(b.data))...)
	}
	b.data[b.length] = 0
}
