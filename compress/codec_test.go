package compress

import (
	"bytes"
	"testing"

	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/stretchr/testify/require"
)

func samplePixels(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 7)
	}

	return data
}

func TestCreateCodec(t *testing.T) {
	tests := []struct {
		name    string
		code    format.CompressionType
		wantErr error
	}{
		{"none", format.CompressionNone, nil},
		{"zstd0", format.CompressionZstd0, nil},
		{"zstd1", format.CompressionZstd1, nil},
		{"jpeg", format.CompressionJPEG, errs.ErrNotImplemented},
		{"lzw", format.CompressionLZW, errs.ErrNotImplemented},
		{"jpegxr", format.CompressionJPEGXR, errs.ErrNotImplemented},
		{"unknown", format.CompressionType(99), errs.ErrUnsupportedPixelType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := CreateCodec(tt.code)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, codec)

				_, err = GetCodec(tt.code)
				require.ErrorIs(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)
			require.NotNil(t, codec)

			data := samplePixels(4096)
			compressed, err := codec.Compress(data)
			require.NoError(t, err)
			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, data, restored)

			builtin, err := GetCodec(tt.code)
			require.NoError(t, err)
			restored, err = builtin.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, data, restored)
		})
	}
}

func TestNoOpSharesMemory(t *testing.T) {
	data := []byte{1, 2, 3}
	out, err := NewNoOpCompressor().Decompress(data)
	require.NoError(t, err)
	require.Same(t, &data[0], &out[0])
}

func TestZstdCorrupted(t *testing.T) {
	c := NewZstdCompressor()
	_, err := c.Decompress([]byte("definitely not zstd"))
	require.Error(t, err)

	out, err := c.Decompress(nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestZstdCompresses(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB, 0x01}, 8192)
	compressed, err := NewZstdCompressor().Compress(data)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(data))
}

func BenchmarkZstdDecompress(b *testing.B) {
	c := NewZstdCompressor()
	data := samplePixels(256 * 256 * 2)
	compressed, err := c.Compress(data)
	require.NoError(b, err)

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		_, _ = c.Decompress(compressed)
	}
}

func TestDecompressAppend(t *testing.T) {
	data := samplePixels(1024)
	for _, codec := range []Codec{NewZstdCompressor(), NewZstd1Compressor(true)} {
		compressed, err := codec.Compress(data)
		require.NoError(t, err)

		ad, ok := codec.(AppendDecompressor)
		require.True(t, ok)

		prefix := []byte{9, 9}
		out, err := ad.DecompressAppend(prefix, compressed)
		require.NoError(t, err)
		require.Equal(t, prefix, out[:2])
		require.Equal(t, data, out[2:])
	}
}
