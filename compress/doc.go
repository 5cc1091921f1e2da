// Package compress provides the decompression codecs used by sub-block pixel data.
//
// A sub-block names its compression with a format.CompressionType code. The
// codecs available here cover the codes that have a pure data transform:
//
//   - None: raw pixels, returned as-is.
//   - Zstd0: a single zstd frame holding the pixel bytes.
//   - Zstd1: a small header followed by a zstd frame. The header may request
//     hi/lo byte unpacking, in which case the decompressed 16-bit data holds all
//     low bytes first and all high bytes second.
//
// JPEG, LZW and the wavelet codec are not provided by this package; the decoder
// package decides how to report them.
//
// # Zstd Implementations
//
// By default zstd frames are handled by github.com/klauspost/compress/zstd with
// pooled encoders and decoders. Building with cgo and the gozstd tag switches to
// github.com/valyala/gozstd:
//
//	go build -tags gozstd ./...
//
// All codecs are safe for concurrent use.
package compress
