package decoder

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/compress"
	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/section"
)

func tileEntry(pt format.PixelType, comp format.CompressionType, w, h int32) *section.DirectoryEntry {
	return &section.DirectoryEntry{
		PixelType:   pt,
		Compression: comp,
		Dimensions: []section.DimensionEntry{
			{Dimension: format.DimX, Size: w},
			{Dimension: format.DimY, Size: h},
			{Dimension: format.DimC, Start: 0, Size: 1},
		},
	}
}

func gray16(w, h int, value uint16) []byte {
	data := make([]byte, 0, w*h*2)
	for range w * h {
		data = binary.LittleEndian.AppendUint16(data, value)
	}

	return data
}

func TestDecodeUncompressed(t *testing.T) {
	reg := MustNewRegistry()
	data := gray16(4, 3, 0x1234)
	src := buffer.New(append(data, 0xEE, 0xEE)) // trailing bytes ignored

	tile, err := reg.Decode(tileEntry(format.PixelGray16, format.CompressionNone, 4, 3), src, Extent{})
	require.NoError(t, err)
	defer tile.Release()

	require.Equal(t, []int{3, 4}, tile.Shape())
	require.Equal(t, data, tile.Buffer.Bytes())
	// no copy on a little-endian host
	if !endian.NeedsSwap(binary.LittleEndian) {
		require.Same(t, &src.Bytes()[0], &tile.Buffer.Bytes()[0])
	}
}

func TestDecodeUncompressedTruncated(t *testing.T) {
	reg := MustNewRegistry()
	src := buffer.New(gray16(4, 2, 1))

	_, err := reg.Decode(tileEntry(format.PixelGray16, format.CompressionNone, 4, 3), src, Extent{})
	require.ErrorIs(t, err, errs.ErrMalformedContainer)
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestDecodeShape(t *testing.T) {
	tests := []struct {
		name  string
		pt    format.PixelType
		depth int32
		want  []int
	}{
		{"gray8", format.PixelGray8, 0, []int{2, 5}},
		{"bgr24", format.PixelBgr24, 0, []int{2, 5, 3}},
		{"bgra32", format.PixelBgra32, 0, []int{2, 5, 4}},
		{"complex gray", format.PixelGray64ComplexFloat, 0, []int{2, 5}},
		{"gray16 stack", format.PixelGray16, 3, []int{3, 2, 5}},
		{"bgr48 stack", format.PixelBgr48, 2, []int{2, 2, 5, 3}},
	}

	reg := MustNewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := tileEntry(tt.pt, format.CompressionNone, 5, 2)
			if tt.depth > 0 {
				entry.Dimensions = append(entry.Dimensions, section.DimensionEntry{Dimension: format.DimZ, Size: tt.depth})
			}
			size := 5 * 2 * int(max(tt.depth, 1)) * tt.pt.BytesPerPixel()

			tile, err := reg.Decode(entry, buffer.Alloc(size), Extent{})
			require.NoError(t, err)
			defer tile.Release()

			require.Equal(t, tt.want, tile.Shape())
			require.Equal(t, size, tile.Buffer.Len())
		})
	}
}

func TestDecodeFallbackExtent(t *testing.T) {
	reg := MustNewRegistry()
	entry := &section.DirectoryEntry{
		PixelType:  format.PixelGray8,
		Dimensions: []section.DimensionEntry{{Dimension: format.DimC, Size: 1}},
	}

	tile, err := reg.Decode(entry, buffer.Alloc(12), Extent{Width: 4, Height: 3})
	require.NoError(t, err)
	defer tile.Release()
	require.Equal(t, []int{3, 4}, tile.Shape())

	_, err = reg.Decode(entry, buffer.Alloc(12), Extent{})
	require.ErrorIs(t, err, errs.ErrMalformedContainer)
}

func TestDecodeStoredSize(t *testing.T) {
	reg := MustNewRegistry()
	entry := tileEntry(format.PixelGray8, format.CompressionNone, 8, 8)
	entry.Dimensions[0].StoredSize = 4
	entry.Dimensions[1].StoredSize = 4

	tile, err := reg.Decode(entry, buffer.Alloc(16), Extent{})
	require.NoError(t, err)
	defer tile.Release()
	require.Equal(t, Extent{Width: 4, Height: 4, Depth: 1}, tile.Extent)
}

func TestDecodeZstd(t *testing.T) {
	reg := MustNewRegistry()
	data := gray16(16, 8, 0xBEEF)

	codecs := map[format.CompressionType]compress.Compressor{
		format.CompressionZstd0: compress.NewZstdCompressor(),
		format.CompressionZstd1: compress.NewZstd1Compressor(false),
	}

	for code, c := range codecs {
		t.Run(code.String(), func(t *testing.T) {
			compressed, err := c.Compress(data)
			require.NoError(t, err)

			tile, err := reg.Decode(tileEntry(format.PixelGray16, code, 16, 8), buffer.New(compressed), Extent{})
			require.NoError(t, err)
			require.Equal(t, data, tile.Buffer.Bytes())
			tile.Release()
		})
	}

	t.Run("hi/lo packed", func(t *testing.T) {
		compressed, err := compress.NewZstd1Compressor(true).Compress(data)
		require.NoError(t, err)

		tile, err := reg.Decode(tileEntry(format.PixelGray16, format.CompressionZstd1, 16, 8), buffer.New(compressed), Extent{})
		require.NoError(t, err)
		defer tile.Release()
		require.Equal(t, data, tile.Buffer.Bytes())
	})

	t.Run("short frame", func(t *testing.T) {
		compressed, err := compress.NewZstdCompressor().Compress(data[:10])
		require.NoError(t, err)

		_, err = reg.Decode(tileEntry(format.PixelGray16, format.CompressionZstd0, 16, 8), buffer.New(compressed), Extent{})
		require.ErrorIs(t, err, errs.ErrOutOfRange)
	})

	t.Run("corrupt frame", func(t *testing.T) {
		_, err := reg.Decode(tileEntry(format.PixelGray16, format.CompressionZstd0, 16, 8), buffer.New([]byte("garbage")), Extent{})
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
	})
}

func TestDecodeNotImplemented(t *testing.T) {
	reg := MustNewRegistry()
	src := buffer.New(gray16(2, 2, 1))

	for _, code := range []format.CompressionType{format.CompressionJPEG, format.CompressionLZW, format.CompressionJPEGXR} {
		t.Run(code.String(), func(t *testing.T) {
			_, err := reg.Decode(tileEntry(format.PixelGray16, code, 2, 2), src, Extent{})
			require.ErrorIs(t, err, errs.ErrNotImplemented)
		})
	}
}

func TestDecodeJPEGXRComplexWithoutDecoder(t *testing.T) {
	reg := MustNewRegistry()

	for _, pt := range []format.PixelType{format.PixelGray64ComplexFloat, format.PixelBgr192ComplexFloat} {
		t.Run(pt.String(), func(t *testing.T) {
			_, err := reg.Decode(tileEntry(pt, format.CompressionJPEGXR, 2, 2), buffer.New([]byte{7}), Extent{})
			require.ErrorIs(t, err, errs.ErrUnsupportedPixelType)
			require.NotErrorIs(t, err, errs.ErrNotImplemented)
		})
	}
}

func TestDecodeOversizedTile(t *testing.T) {
	reg := MustNewRegistry()
	entry := tileEntry(format.PixelBgr48, format.CompressionNone, math.MaxInt32, math.MaxInt32)
	entry.Dimensions = append(entry.Dimensions, section.DimensionEntry{Dimension: format.DimZ, Size: math.MaxInt32})

	_, err := reg.Decode(entry, buffer.New([]byte{1}), Extent{})
	require.ErrorIs(t, err, errs.ErrInvalidDirectoryEntry)
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestDecodeUnknownCodes(t *testing.T) {
	log, hook := test.NewNullLogger()
	reg := MustNewRegistry(WithLogger(log))
	src := buffer.New(gray16(2, 2, 1))

	t.Run("pixel type", func(t *testing.T) {
		hook.Reset()
		tile, err := reg.Decode(tileEntry(format.PixelType(7), format.CompressionNone, 2, 2), src, Extent{})
		require.ErrorIs(t, err, errs.ErrUnsupportedPixelType)
		require.Nil(t, tile)
		require.Equal(t, int64(1), src.Refs(), "no view of the source is taken")

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		require.Equal(t, logrus.WarnLevel, entry.Level)
		require.Equal(t, int32(7), entry.Data["pixel_type"])
	})

	t.Run("compression", func(t *testing.T) {
		hook.Reset()
		_, err := reg.Decode(tileEntry(format.PixelGray16, format.CompressionType(42), 2, 2), src, Extent{})
		require.ErrorIs(t, err, errs.ErrUnsupportedPixelType)
		require.Equal(t, int32(42), hook.LastEntry().Data["compression"])
	})
}

func TestDecodeJPEGXR(t *testing.T) {
	var gotW, gotH int
	wavelet := func(dst, src []byte, pt format.PixelType, width, height int) error {
		gotW, gotH = width, height
		if len(src) == 0 {
			return errors.New("empty stream")
		}
		for i := range dst {
			dst[i] = src[0]
		}

		return nil
	}
	reg := MustNewRegistry(WithJPEGXR(wavelet))

	tile, err := reg.Decode(tileEntry(format.PixelBgr24, format.CompressionJPEGXR, 4, 2), buffer.New([]byte{7}), Extent{})
	require.NoError(t, err)
	defer tile.Release()
	require.Equal(t, 4, gotW)
	require.Equal(t, 2, gotH)
	require.Len(t, tile.Buffer.Bytes(), 4*2*3)
	require.Equal(t, byte(7), tile.Buffer.Bytes()[23])

	_, err = reg.Decode(tileEntry(format.PixelGray64ComplexFloat, format.CompressionJPEGXR, 4, 2), buffer.New([]byte{7}), Extent{})
	require.ErrorIs(t, err, errs.ErrUnsupportedPixelType)
	_, err = reg.Decode(tileEntry(format.PixelBgr192ComplexFloat, format.CompressionJPEGXR, 4, 2), buffer.New([]byte{7}), Extent{})
	require.ErrorIs(t, err, errs.ErrUnsupportedPixelType)

	_, err = reg.Decode(tileEntry(format.PixelGray8, format.CompressionJPEGXR, 4, 2), buffer.New(nil), Extent{})
	require.ErrorContains(t, err, "empty stream")
}

func TestRegistryOptions(t *testing.T) {
	_, err := NewRegistry(WithJPEGXR(nil))
	require.Error(t, err)

	_, err = NewRegistry(WithDecodeFunc(format.CompressionLZW, nil))
	require.Error(t, err)

	called := false
	reg := MustNewRegistry(WithDecodeFunc(format.CompressionLZW, func(req *Request) (*buffer.Buffer, error) {
		called = true
		return buffer.Alloc(req.Size), nil
	}))
	tile, err := reg.Decode(tileEntry(format.PixelGray8, format.CompressionLZW, 3, 3), buffer.New(nil), Extent{})
	require.NoError(t, err)
	tile.Release()
	require.True(t, called)

	require.Equal(t, []format.CompressionType{0, 1, 2, 4, 5, 6}, reg.Compressions())

	info, ok := reg.PixelInfo(format.PixelBgr48)
	require.True(t, ok)
	require.Equal(t, 6, info.BytesPerPixel)
	_, ok = reg.PixelInfo(format.PixelType(5))
	require.False(t, ok)
}

func BenchmarkDecodeZstdTile(b *testing.B) {
	reg := MustNewRegistry()
	data := gray16(512, 512, 0x0102)
	compressed, err := compress.NewZstdCompressor().Compress(data)
	require.NoError(b, err)
	entry := tileEntry(format.PixelGray16, format.CompressionZstd0, 512, 512)
	src := buffer.New(compressed)

	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for b.Loop() {
		tile, err := reg.Decode(entry, src, Extent{})
		if err != nil {
			b.Fatal(err)
		}
		tile.Release()
	}
}
