//go:build cgo && gozstd

package compress

import (
	"fmt"

	"github.com/valyala/gozstd"
)

// Compress compresses the input data using Zstandard compression.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

// Decompress decompresses a zstd frame.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out, err := gozstd.Decompress(nil, data)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return out, nil
}

// DecompressAppend decompresses a zstd frame, appending to dst.
func (c ZstdCompressor) DecompressAppend(dst, data []byte) ([]byte, error) {
	out, err := gozstd.Decompress(dst, data)
	if err != nil {
		return dst, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return out, nil
}
