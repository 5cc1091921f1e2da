package compress

// ZstdCompressor handles sub-blocks stored as a single zstd frame.
//
// The Compress and Decompress methods are provided by one of two build-specific
// files: the default pure Go implementation, or the cgo one behind the gozstd
// build tag.
type ZstdCompressor struct{}

var (
	_ Codec              = (*ZstdCompressor)(nil)
	_ AppendDecompressor = (*ZstdCompressor)(nil)
)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
