// Package buffer provides the byte storage shared by every stage of the decoder.
//
// A Buffer is a handle onto a reference-counted owner. Slicing or retaining a
// Buffer yields another handle aliasing the same bytes; the owner's release hook
// runs when the last handle is released. Typed views (View) reinterpret the
// bytes as pixel elements without copying unless a byte-order change forces one.
//
// Buffers are safe for concurrent reads. Writers must guarantee that concurrent
// writes target disjoint byte ranges.
package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/arloliu/zisraw/errs"
)

type owner struct {
	refs    atomic.Int64
	release func()
}

// Buffer is a handle onto shared bytes.
type Buffer struct {
	own      *owner
	data     []byte
	released atomic.Bool
}

// New wraps data in a Buffer with a single reference. data must not be
// modified by the caller afterwards.
func New(data []byte) *Buffer {
	return NewWithRelease(data, nil)
}

// NewWithRelease wraps data and calls release once the last handle is released.
// It is used for memory-mapped sources that must be unmapped.
func NewWithRelease(data []byte, release func()) *Buffer {
	own := &owner{release: release}
	own.refs.Store(1)

	return &Buffer{own: own, data: data}
}

// Alloc returns a zero-initialized Buffer of exactly n bytes.
func Alloc(n int) *Buffer {
	if n < 0 {
		n = 0
	}

	return New(make([]byte, n))
}

// Len returns the length of the handle's byte range.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}

	return len(b.data)
}

// Bytes returns the handle's bytes. The slice aliases the shared storage and
// must not be used after Release.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}

	return b.data
}

// Refs returns the number of live handles on the shared storage.
func (b *Buffer) Refs() int64 {
	return b.own.refs.Load()
}

// Retain returns a new handle on the same bytes.
func (b *Buffer) Retain() *Buffer {
	b.own.refs.Add(1)
	return &Buffer{own: b.own, data: b.data}
}

// Slice returns a new handle aliasing [offset, offset+length) of b.
func (b *Buffer) Slice(offset, length int) (*Buffer, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("%w: negative slice bounds offset=%d length=%d", errs.ErrOutOfRange, offset, length)
	}

	if offset > len(b.data) || length > len(b.data)-offset {
		return nil, errs.OutOfRange("slice", int64(offset)+int64(length), int64(len(b.data)))
	}

	end := offset + length
	b.own.refs.Add(1)

	return &Buffer{own: b.own, data: b.data[offset:end:end]}, nil
}

// Clone returns an independent copy of the handle's bytes.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.data))
	copy(data, b.data)

	return New(data)
}

// Release drops this handle. Releasing a handle twice is a no-op.
func (b *Buffer) Release() {
	if b == nil || !b.released.CompareAndSwap(false, true) {
		return
	}

	b.data = nil
	if b.own.refs.Add(-1) == 0 && b.own.release != nil {
		b.own.release()
	}
}
