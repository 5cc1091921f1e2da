package buffer

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
)

// Color elements laid out exactly as the container stores them.
type (
	BGR24  struct{ B, G, R uint8 }
	BGR48  struct{ B, G, R uint16 }
	BGR96  struct{ B, G, R float32 }
	BGRA32 struct{ B, G, R, A uint8 }
	// BGRComplex is one pixel of the complex color type.
	BGRComplex struct{ B, G, R complex64 }
)

// RGB is a packed color element produced by ReinterpretColor.
type RGB[T uint8 | uint16 | float32] struct{ R, G, B T }

// Element is the set of types a View can expose.
type Element interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64 |
		float32 | float64 | complex64 | complex128 |
		BGR24 | BGR48 | BGR96 | BGRA32 | BGRComplex
}

// componentSize returns the width of the scalar unit swapped on byte-order
// conversion.
func componentSize[T Element]() int {
	var zero T
	switch any(zero).(type) {
	case BGR24, BGRA32:
		return 1
	case BGR48:
		return 2
	case BGR96, BGRComplex, complex64:
		return 4
	case complex128:
		return 8
	default:
		return int(unsafe.Sizeof(zero))
	}
}

// View interprets a byte range as consecutive elements of type T.
type View[T Element] struct {
	buf     *Buffer
	elems   []T
	order   binary.ByteOrder
	swapped bool
}

// NewView returns a view of count elements starting at byte offset of b.
//
// order is the byte order the bytes were written in. When it differs from the
// host order the view holds a swapped copy; otherwise it aliases b. The view
// holds its own reference on the storage and must be released.
func NewView[T Element](b *Buffer, offset, count int, order binary.ByteOrder) (*View[T], error) {
	var zero T
	size := int(unsafe.Sizeof(zero))

	if offset < 0 || count < 0 {
		return nil, fmt.Errorf("%w: negative view bounds offset=%d count=%d", errs.ErrOutOfRange, offset, count)
	}

	if offset > b.Len() || count > (b.Len()-offset)/size {
		return nil, errs.OutOfRange("typed view", int64(offset)+int64(count)*int64(size), int64(b.Len()))
	}

	end := offset + count*size
	raw := b.Bytes()[offset:end]
	v := &View[T]{order: order}

	if endian.NeedsSwap(order) && componentSize[T]() > 1 {
		v.buf = New(endian.Swapped(raw, componentSize[T]()))
		v.swapped = true
	} else {
		sub, err := b.Slice(offset, count*size)
		if err != nil {
			return nil, err
		}
		v.buf = sub
	}

	v.elems = asElements[T](v.buf, count)

	return v, nil
}

// asElements reinterprets the handle's bytes in place, falling back to an
// aligned copy when the bytes are not suitably aligned for T.
func asElements[T Element](b *Buffer, count int) []T {
	if count == 0 {
		return []T{}
	}

	data := b.Bytes()
	var zero T
	if uintptr(unsafe.Pointer(&data[0]))%unsafe.Alignof(zero) == 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), count)
	}

	out := make([]T, count)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(data)), data)

	return out
}

// Len returns the number of elements.
func (v *View[T]) Len() int {
	return len(v.elems)
}

// Elements returns the typed elements. For aliasing views the slice shares
// memory with the source buffer and must be treated as read-only.
func (v *View[T]) Elements() []T {
	return v.elems
}

// Swapped reports whether the view holds a byte-swapped copy.
func (v *View[T]) Swapped() bool {
	return v.swapped
}

// Bytes re-encodes the elements in the view's declared byte order.
//
// Without a swap the result is the original byte range itself.
func (v *View[T]) Bytes() []byte {
	if len(v.elems) == 0 {
		return []byte{}
	}

	var zero T
	raw := unsafe.Slice((*byte)(unsafe.Pointer(&v.elems[0])), len(v.elems)*int(unsafe.Sizeof(zero)))
	if v.swapped {
		return endian.Swapped(raw, componentSize[T]())
	}

	return raw
}

// Buffer returns the handle backing the view.
func (v *View[T]) Buffer() *Buffer {
	return v.buf
}

// Release drops the view's reference on the storage.
func (v *View[T]) Release() {
	v.buf.Release()
	v.elems = nil
}

// ReinterpretColor converts B,G,R-interleaved scalars of type T into packed
// RGB elements. The result is always a copy.
func ReinterpretColor[T uint8 | uint16 | float32](b *Buffer, order binary.ByteOrder) ([]RGB[T], error) {
	var zero T
	stride := 3 * int(unsafe.Sizeof(zero))
	if b.Len()%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of the %d-byte color stride", errs.ErrOutOfRange, b.Len(), stride)
	}

	scalars, err := NewView[T](b, 0, b.Len()/int(unsafe.Sizeof(zero)), order)
	if err != nil {
		return nil, err
	}
	defer scalars.Release()

	in := scalars.Elements()
	out := make([]RGB[T], len(in)/3)
	for i := range out {
		out[i] = RGB[T]{R: in[3*i+2], G: in[3*i+1], B: in[3*i]}
	}

	return out, nil
}
