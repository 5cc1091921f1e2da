package decoder

import (
	"fmt"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/compress"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/internal/pool"
)

// decodeRaw reinterprets uncompressed data without copying.
func decodeRaw(req *Request) (*buffer.Buffer, error) {
	if req.Data.Len() < req.Size {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedContainer,
			errs.OutOfRange("uncompressed tile", int64(req.Size), int64(req.Data.Len())))
	}

	return req.Data.Slice(0, req.Size)
}

// decompressFunc decodes into pooled scratch memory that is handed back to the
// pool when the tile buffer is released.
func decompressFunc(d compress.AppendDecompressor) DecodeFunc {
	return func(req *Request) (*buffer.Buffer, error) {
		scratch := pool.GetTileBuffer()
		scratch.Grow(req.Size)

		out, err := d.DecompressAppend(scratch.B[:0], req.Data.Bytes())
		if err != nil {
			pool.PutTileBuffer(scratch)
			return nil, fmt.Errorf("%w: %w", errs.ErrMalformedContainer, err)
		}
		scratch.B = out

		if len(out) < req.Size {
			pool.PutTileBuffer(scratch)
			return nil, fmt.Errorf("%w: %w", errs.ErrMalformedContainer,
				errs.OutOfRange("decompressed tile", int64(req.Size), int64(len(out))))
		}

		return buffer.NewWithRelease(out[:req.Size], func() { pool.PutTileBuffer(scratch) }), nil
	}
}

// jpegxrDecodeFunc wraps an external wavelet decoder. Complex pixel types are
// rejected whether or not fn is set; a nil fn fails with errs.ErrNotImplemented.
func jpegxrDecodeFunc(fn JPEGXRFunc) DecodeFunc {
	return func(req *Request) (*buffer.Buffer, error) {
		if req.Info.Complex {
			return nil, fmt.Errorf("%w: %s is not supported by the wavelet codec", errs.ErrUnsupportedPixelType, req.Info.Name)
		}
		if fn == nil {
			return nil, fmt.Errorf("%w: compression %s without a registered decoder", errs.ErrNotImplemented, format.CompressionJPEGXR)
		}
		if req.Extent.Depth > 1 {
			return nil, fmt.Errorf("%w: wavelet codec with depth %d", errs.ErrNotImplemented, req.Extent.Depth)
		}

		dst := buffer.Alloc(req.Size)
		if err := fn(dst.Bytes(), req.Data.Bytes(), req.Info.Type, req.Extent.Width, req.Extent.Height); err != nil {
			dst.Release()
			return nil, fmt.Errorf("wavelet decode: %w", err)
		}

		return dst, nil
	}
}
