package compress

import (
	"fmt"

	"github.com/arloliu/zisraw/errs"
)

const (
	// zstd1ChunkHiLo is the header chunk carrying the byte-packing flag.
	zstd1ChunkHiLo byte = 1
	// zstd1HiLoFlag marks data stored as all low bytes followed by all high bytes.
	zstd1HiLoFlag byte = 0x01
)

// Zstd1Header is the prefix of a Zstd1 sub-block.
//
// Layout: one byte with the header size (including itself), then chunks. Only
// chunk 1 is defined; it is followed by one flag byte.
type Zstd1Header struct {
	Size      int
	HiLoPack  bool
	HasChunks bool
}

// ParseZstd1Header reads the Zstd1 prefix from data.
func ParseZstd1Header(data []byte) (Zstd1Header, error) {
	if len(data) == 0 {
		return Zstd1Header{}, fmt.Errorf("%w: empty zstd1 data", errs.ErrMalformedContainer)
	}

	h := Zstd1Header{Size: int(data[0])}
	if h.Size < 1 || h.Size > len(data) {
		return Zstd1Header{}, fmt.Errorf("%w: zstd1 header size %d with %d bytes", errs.ErrMalformedContainer, h.Size, len(data))
	}

	for pos := 1; pos < h.Size; {
		switch data[pos] {
		case zstd1ChunkHiLo:
			if pos+1 >= h.Size {
				return Zstd1Header{}, fmt.Errorf("%w: truncated zstd1 chunk", errs.ErrMalformedContainer)
			}
			h.HiLoPack = data[pos+1]&zstd1HiLoFlag != 0
			h.HasChunks = true
			pos += 2
		default:
			return Zstd1Header{}, fmt.Errorf("%w: unknown zstd1 chunk %d", errs.ErrMalformedContainer, data[pos])
		}
	}

	return h, nil
}

// Bytes serializes the header. A header without chunks is the single size byte.
func (h Zstd1Header) Bytes() []byte {
	if !h.HasChunks && !h.HiLoPack {
		return []byte{1}
	}

	var flag byte
	if h.HiLoPack {
		flag = zstd1HiLoFlag
	}

	return []byte{3, zstd1ChunkHiLo, flag}
}

// Zstd1Compressor handles the zstd codec with a header prefix.
type Zstd1Compressor struct {
	zstd     ZstdCompressor
	hiLoPack bool
}

var (
	_ Codec              = (*Zstd1Compressor)(nil)
	_ AppendDecompressor = (*Zstd1Compressor)(nil)
)

// NewZstd1Compressor creates a Zstd1 codec. When hiLoPack is set, Compress
// splits 16-bit data into low and high byte planes before compression.
func NewZstd1Compressor(hiLoPack bool) Zstd1Compressor {
	return Zstd1Compressor{zstd: NewZstdCompressor(), hiLoPack: hiLoPack}
}

// Compress writes the header followed by the zstd frame.
func (c Zstd1Compressor) Compress(data []byte) ([]byte, error) {
	h := Zstd1Header{HiLoPack: c.hiLoPack, HasChunks: c.hiLoPack}
	if c.hiLoPack {
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("hi/lo packing needs an even byte count, got %d", len(data))
		}
		data = PackHiLo(data)
	}

	frame, err := c.zstd.Compress(data)
	if err != nil {
		return nil, err
	}

	return append(h.Bytes(), frame...), nil
}

// DecompressAppend is Decompress appending to dst. Without hi/lo packing the
// frame is decoded straight into dst.
func (c Zstd1Compressor) DecompressAppend(dst, data []byte) ([]byte, error) {
	h, err := ParseZstd1Header(data)
	if err != nil {
		return dst, err
	}

	if !h.HiLoPack {
		return c.zstd.DecompressAppend(dst, data[h.Size:])
	}

	out, err := c.Decompress(data)
	if err != nil {
		return dst, err
	}

	return append(dst, out...), nil
}

// Decompress strips the header, decompresses the frame and undoes hi/lo
// packing when the header asks for it.
func (c Zstd1Compressor) Decompress(data []byte) ([]byte, error) {
	h, err := ParseZstd1Header(data)
	if err != nil {
		return nil, err
	}

	out, err := c.zstd.Decompress(data[h.Size:])
	if err != nil {
		return nil, err
	}

	if h.HiLoPack {
		if len(out)%2 != 0 {
			return nil, fmt.Errorf("%w: hi/lo packed data of odd length %d", errs.ErrMalformedContainer, len(out))
		}
		out = UnpackHiLo(out)
	}

	return out, nil
}

// PackHiLo rearranges little-endian 16-bit words into all low bytes followed
// by all high bytes. len(data) must be even.
func PackHiLo(data []byte) []byte {
	half := len(data) / 2
	out := make([]byte, len(data))
	for i := range half {
		out[i] = data[2*i]
		out[half+i] = data[2*i+1]
	}

	return out
}

// UnpackHiLo is the inverse of PackHiLo.
func UnpackHiLo(data []byte) []byte {
	half := len(data) / 2
	out := make([]byte, len(data))
	for i := range half {
		out[2*i] = data[i]
		out[2*i+1] = data[half+i]
	}

	return out
}
