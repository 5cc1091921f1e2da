package compress

import (
	"fmt"

	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
)

// Compressor compresses pixel data for storage in a sub-block.
//
// The returned slice is newly allocated unless the codec is a pass-through,
// and the input is never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores the pixel data of a sub-block.
//
// Implementations must be safe for concurrent use. The input is never modified.
// Corrupted input produces an error rather than a partial result.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec creates a Codec for the given compression code.
//
// Codes that are recognized but have no codec here (JPEG, LZW, the wavelet
// codec) return errs.ErrNotImplemented. Unknown codes return
// errs.ErrUnsupportedPixelType with the numeric code in the message.
func CreateCodec(compressionType format.CompressionType) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd0:
		return NewZstdCompressor(), nil
	case format.CompressionZstd1:
		return NewZstd1Compressor(false), nil
	default:
		return nil, unsupported(compressionType)
	}
}

func unsupported(compressionType format.CompressionType) error {
	if compressionType.IsRecognized() {
		return fmt.Errorf("%w: compression %s", errs.ErrNotImplemented, compressionType)
	}

	return fmt.Errorf("%w: compression code %d", errs.ErrUnsupportedPixelType, int32(compressionType))
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone:  NewNoOpCompressor(),
	format.CompressionZstd0: NewZstdCompressor(),
	format.CompressionZstd1: NewZstd1Compressor(false),
}

// GetCodec retrieves a built-in Codec for the specified compression code.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, unsupported(compressionType)
}

// AppendDecompressor decompresses into the spare capacity of dst, appending
// the result. It lets callers decode into pooled scratch memory.
type AppendDecompressor interface {
	DecompressAppend(dst, data []byte) ([]byte, error)
}
