package decoder

import (
	"fmt"
	"maps"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/compress"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/internal/options"
)

// DecodeFunc decodes the data of one sub-block. The returned buffer holds at
// least req.Size bytes of little-endian pixels.
type DecodeFunc func(req *Request) (*buffer.Buffer, error)

// JPEGXRFunc is an external wavelet decoder. It writes the decoded pixel grid
// into dst, which is zeroed and exactly width*height*bytesPerPixel long.
type JPEGXRFunc func(dst, src []byte, pixelType format.PixelType, width, height int) error

// Registry maps compression codes to decode functions. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	codecs map[format.CompressionType]DecodeFunc
	pixels map[format.PixelType]format.PixelInfo
	log    logrus.FieldLogger
}

// Option configures a Registry.
type Option = options.Option[*Registry]

// WithLogger sets the logger used for unknown codes.
func WithLogger(log logrus.FieldLogger) Option {
	return options.NoError(func(r *Registry) {
		if log != nil {
			r.log = log
		}
	})
}

// WithJPEGXR installs the external wavelet decoder for compression code 4.
func WithJPEGXR(fn JPEGXRFunc) Option {
	return options.New(func(r *Registry) error {
		if fn == nil {
			return fmt.Errorf("nil wavelet decoder")
		}
		r.codecs[format.CompressionJPEGXR] = jpegxrDecodeFunc(fn)

		return nil
	})
}

// WithDecodeFunc installs or replaces the decode function for a compression code.
func WithDecodeFunc(code format.CompressionType, fn DecodeFunc) Option {
	return options.New(func(r *Registry) error {
		if fn == nil {
			return fmt.Errorf("nil decode function for compression %s", code)
		}
		r.codecs[code] = fn

		return nil
	})
}

// NewRegistry creates a registry holding the built-in decoders: uncompressed,
// Zstd0 and Zstd1. JPEG, LZW and, unless WithJPEGXR is given, the wavelet codec
// fail with errs.ErrNotImplemented. Complex pixel types under the wavelet codec
// always fail with errs.ErrUnsupportedPixelType.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		codecs: map[format.CompressionType]DecodeFunc{
			format.CompressionNone:   decodeRaw,
			format.CompressionJPEG:   notImplemented(format.CompressionJPEG),
			format.CompressionLZW:    notImplemented(format.CompressionLZW),
			format.CompressionJPEGXR: jpegxrDecodeFunc(nil),
			format.CompressionZstd0:  decompressFunc(compress.NewZstdCompressor()),
			format.CompressionZstd1:  decompressFunc(compress.NewZstd1Compressor(false)),
		},
		pixels: make(map[format.PixelType]format.PixelInfo),
		log:    logrus.StandardLogger(),
	}

	for _, pt := range format.PixelTypes() {
		info, _ := pt.Info()
		r.pixels[pt] = info
	}

	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	return r, nil
}

// MustNewRegistry is NewRegistry that panics on an invalid option.
func MustNewRegistry(opts ...Option) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}

	return r
}

// PixelInfo returns the layout of a pixel type known to the registry.
func (r *Registry) PixelInfo(pt format.PixelType) (format.PixelInfo, bool) {
	info, ok := r.pixels[pt]
	return info, ok
}

// Lookup returns the decode function for a compression code.
func (r *Registry) Lookup(code format.CompressionType) (DecodeFunc, bool) {
	fn, ok := r.codecs[code]
	return fn, ok
}

// Compressions lists the registered compression codes in ascending order.
func (r *Registry) Compressions() []format.CompressionType {
	return slices.Sorted(maps.Keys(r.codecs))
}

// Logger returns the registry's logger.
func (r *Registry) Logger() logrus.FieldLogger {
	return r.log
}

func notImplemented(code format.CompressionType) DecodeFunc {
	return func(*Request) (*buffer.Buffer, error) {
		return nil, fmt.Errorf("%w: compression %s", errs.ErrNotImplemented, code)
	}
}
