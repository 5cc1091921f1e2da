package mosaic

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/compress"
	"github.com/arloliu/zisraw/decoder"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/section"
)

// fixture is an in-memory set of sub-blocks keyed by file position.
type fixture struct {
	entries  []directory.Entry
	segments map[int64][]byte
	loads    atomic.Int32
}

func newFixture() *fixture {
	return &fixture{segments: make(map[int64][]byte)}
}

func (f *fixture) add(pt format.PixelType, comp format.CompressionType, x, y, w, h int32, pixels []byte) {
	pos := int64(len(f.segments)+1) * 1000
	entry := directory.Entry{
		PixelType:    pt,
		FilePosition: pos,
		Compression:  comp,
		Dimensions: []section.DimensionEntry{
			{Dimension: format.DimX, Start: x, Size: w},
			{Dimension: format.DimY, Start: y, Size: h},
			{Dimension: format.DimC, Start: 0, Size: 1},
			{Dimension: format.DimM, Start: int32(len(f.entries)), Size: 1}, //nolint: gosec
		},
	}
	f.entries = append(f.entries, entry)
	f.segments[pos] = section.SubBlockPayload(entry, nil, pixels, nil)
}

func (f *fixture) load(entry *directory.Entry) (section.Segment, error) {
	f.loads.Add(1)
	payload, ok := f.segments[entry.FilePosition]
	if !ok {
		return section.Segment{}, fmt.Errorf("%w: no segment at %d", errs.ErrMalformedContainer, entry.FilePosition)
	}

	return section.Segment{
		Header: section.SegmentHeader{
			ID:            section.IDSubBlock,
			AllocatedSize: int64(len(payload)) + 32,
			UsedSize:      int64(len(payload)),
		},
		Offset:  entry.FilePosition,
		Payload: buffer.New(payload),
	}, nil
}

func fill16(w, h int, v uint16) []byte {
	out := make([]byte, 0, w*h*2)
	for range w * h {
		out = binary.LittleEndian.AppendUint16(out, v)
	}

	return out
}

func newAssembler(t testing.TB, f *fixture, opts ...Option) *Assembler {
	log, _ := test.NewNullLogger()
	reg := decoder.MustNewRegistry(decoder.WithLogger(log))
	a, err := New(reg, f.load, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)

	return a
}

func TestAssembleTwoTiles(t *testing.T) {
	f := newFixture()
	f.add(format.PixelGray16, format.CompressionNone, 0, 0, 10, 10, fill16(10, 10, 1))
	f.add(format.PixelGray16, format.CompressionNone, 10, 0, 10, 10, fill16(10, 10, 2))

	plane, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
	require.NoError(t, err)
	defer plane.Release()

	require.Equal(t, []int{10, 20}, plane.Shape())
	require.Equal(t, 2, plane.Tiles)

	view, err := buffer.NewView[uint16](plane.Buffer, 0, 200, binary.LittleEndian)
	require.NoError(t, err)
	px := view.Elements()
	for row := range 10 {
		for col := range 20 {
			want := uint16(1)
			if col >= 10 {
				want = 2
			}
			require.Equal(t, want, px[row*20+col], "row %d col %d", row, col)
		}
	}
}

func TestAssembleSentinelCoverage(t *testing.T) {
	// 2x2 grid of 8x6 tiles with an origin away from zero, mixed codecs
	f := newFixture()
	zstd := compress.NewZstdCompressor()
	for i, pos := range [][2]int32{{100, 50}, {108, 50}, {100, 56}, {108, 56}} {
		pixels := fill16(8, 6, uint16(0xA0+i)) //nolint: gosec
		comp := format.CompressionNone
		if i%2 == 1 {
			var err error
			pixels, err = zstd.Compress(pixels)
			require.NoError(t, err)
			comp = format.CompressionZstd0
		}
		f.add(format.PixelGray16, comp, pos[0], pos[1], 8, 6, pixels)
	}

	var progressed atomic.Int64
	a := newAssembler(t, f, WithWorkers(3), WithProgress(func(n int64) { progressed.Add(n) }))

	plane, err := a.Assemble(context.Background(), f.entries)
	require.NoError(t, err)
	defer plane.Release()

	require.Equal(t, directory.Range{Min: 100, Max: 115}, plane.Box.X)
	require.Equal(t, directory.Range{Min: 50, Max: 61}, plane.Box.Y)

	view, err := buffer.NewView[uint16](plane.Buffer, 0, 16*12, binary.LittleEndian)
	require.NoError(t, err)
	px := view.Elements()
	for row := range 12 {
		for col := range 16 {
			want := uint16(0xA0 + (row/6)*2 + col/8) //nolint: gosec
			require.Equal(t, want, px[row*16+col], "row %d col %d", row, col)
		}
	}

	var total int64
	for _, seg := range f.segments {
		total += int64(len(seg)) + 32
	}
	require.Equal(t, total, progressed.Load())
}

func TestAssembleOverlapDirectoryOrder(t *testing.T) {
	f := newFixture()
	f.add(format.PixelGray8, format.CompressionNone, 0, 0, 4, 4, []byte{
		1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1,
	})
	f.add(format.PixelGray8, format.CompressionNone, 2, 2, 4, 4, []byte{
		2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	})
	require.True(t, overlapping(f.entries))

	plane, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
	require.NoError(t, err)
	defer plane.Release()

	require.Equal(t, []byte{
		1, 1, 1, 1, 0, 0,
		1, 1, 1, 1, 0, 0,
		1, 1, 2, 2, 2, 2,
		1, 1, 2, 2, 2, 2,
		0, 0, 2, 2, 2, 2,
		0, 0, 2, 2, 2, 2,
	}, plane.Buffer.Bytes())
}

func TestAssembleSingleTile(t *testing.T) {
	f := newFixture()
	pixels := []byte{1, 2, 3, 4, 5, 6}
	f.add(format.PixelBgr24, format.CompressionNone, 30, 40, 2, 1, pixels)

	plane, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
	require.NoError(t, err)
	defer plane.Release()

	require.Equal(t, []int{1, 2, 3}, plane.Shape())
	require.Equal(t, pixels, plane.Buffer.Bytes())
	require.Equal(t, directory.Range{Min: 30, Max: 31}, plane.Box.X)
}

func TestAssembleAllOrNothing(t *testing.T) {
	f := newFixture()
	f.add(format.PixelGray16, format.CompressionNone, 0, 0, 10, 10, fill16(10, 10, 1))
	f.add(format.PixelGray16, format.CompressionLZW, 10, 0, 10, 10, fill16(10, 10, 2))

	plane, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
	require.ErrorIs(t, err, errs.ErrNotImplemented)
	require.Nil(t, plane)
}

func TestAssembleErrors(t *testing.T) {
	t.Run("empty plane", func(t *testing.T) {
		_, err := newAssembler(t, newFixture()).Assemble(context.Background(), nil)
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
	})

	t.Run("mixed pixel types", func(t *testing.T) {
		f := newFixture()
		f.add(format.PixelGray8, format.CompressionNone, 0, 0, 1, 1, []byte{1})
		f.add(format.PixelGray16, format.CompressionNone, 1, 0, 1, 1, []byte{1, 0})
		_, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
	})

	t.Run("unknown pixel type", func(t *testing.T) {
		f := newFixture()
		f.add(format.PixelType(99), format.CompressionNone, 0, 0, 1, 1, []byte{1})
		f.add(format.PixelType(99), format.CompressionNone, 1, 0, 1, 1, []byte{1})
		_, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
		require.ErrorIs(t, err, errs.ErrUnsupportedPixelType)
		require.Zero(t, f.loads.Load())
	})

	t.Run("missing segment", func(t *testing.T) {
		f := newFixture()
		f.add(format.PixelGray8, format.CompressionNone, 0, 0, 1, 1, []byte{1})
		f.add(format.PixelGray8, format.CompressionNone, 1, 0, 1, 1, []byte{1})
		f.entries[1].FilePosition = 42
		_, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
	})
}

func TestAssembleCanceled(t *testing.T) {
	f := newFixture()
	for i := range 8 {
		f.add(format.PixelGray8, format.CompressionNone, int32(i*2), 0, 2, 2, []byte{1, 1, 1, 1}) //nolint: gosec
	}

	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newAssembler(t, f).Assemble(ctx, f.entries)
		require.ErrorIs(t, err, errs.ErrCanceled)
	})

	t.Run("between tiles", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		a := newAssembler(t, f, WithWorkers(1), WithProgress(func(int64) { cancel() }))
		plane, err := a.Assemble(ctx, f.entries)
		require.ErrorIs(t, err, errs.ErrCanceled)
		require.True(t, errors.Is(err, context.Canceled))
		require.Nil(t, plane)
	})
}

func TestNewValidation(t *testing.T) {
	reg := decoder.MustNewRegistry()
	_, err := New(nil, newFixture().load)
	require.Error(t, err)
	_, err = New(reg, nil)
	require.Error(t, err)
	_, err = New(reg, newFixture().load, WithWorkers(0))
	require.Error(t, err)
}

func TestCopyTileBounds(t *testing.T) {
	c := &canvas{
		data: make([]byte, 4*4),
		box:  directory.BoundingBox{X: directory.Range{Max: 3}, Y: directory.Range{Max: 3}, Depth: 1},
		bpp:  1,
	}

	require.NoError(t, c.copyTile(2, 2, decoder.Extent{Width: 2, Height: 2, Depth: 1}, []byte{9, 9, 9, 9}))
	require.Equal(t, byte(9), c.data[15])

	err := c.copyTile(3, 0, decoder.Extent{Width: 2, Height: 1, Depth: 1}, []byte{1, 1})
	require.ErrorIs(t, err, errs.ErrOutOfRange)

	err = c.copyTile(-1, 0, decoder.Extent{Width: 1, Height: 1, Depth: 1}, []byte{1})
	require.ErrorIs(t, err, errs.ErrOutOfRange)

	err = c.copyTile(0, 0, decoder.Extent{Width: 2, Height: 2, Depth: 1}, []byte{1})
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func TestAssembleOversizedBox(t *testing.T) {
	t.Run("FarApartTiles", func(t *testing.T) {
		f := newFixture()
		f.add(format.PixelGray8, format.CompressionNone, math.MinInt32, math.MinInt32, 1, 1, []byte{1})
		f.add(format.PixelGray8, format.CompressionNone, math.MaxInt32, math.MaxInt32, 1, 1, []byte{2})

		p, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
		require.ErrorIs(t, err, errs.ErrOutOfRange)
		require.Nil(t, p)
		require.Zero(t, f.loads.Load())
	})

	t.Run("ExtentPastCoordinateRange", func(t *testing.T) {
		f := newFixture()
		f.add(format.PixelGray8, format.CompressionNone, 0, 0, 1, 1, []byte{1})
		f.add(format.PixelGray8, format.CompressionNone, math.MaxInt32, 0, 2, 1, []byte{2, 2})

		_, err := newAssembler(t, f).Assemble(context.Background(), f.entries)
		require.ErrorIs(t, err, errs.ErrInvalidDirectoryEntry)
	})
}

func TestCopyTileShortDestination(t *testing.T) {
	c := &canvas{
		data: make([]byte, 0),
		box:  directory.BoundingBox{X: directory.Range{Max: 3}, Y: directory.Range{Max: 3}, Depth: 1},
		bpp:  1,
	}

	err := c.copyTile(1, 1, decoder.Extent{Width: 1, Height: 1, Depth: 1}, []byte{7})
	require.ErrorIs(t, err, errs.ErrOutOfRange)
}

func BenchmarkAssembleGrid(b *testing.B) {
	f := newFixture()
	for gy := range 4 {
		for gx := range 4 {
			f.add(format.PixelGray16, format.CompressionNone, int32(gx*256), int32(gy*256), 256, 256, //nolint: gosec
				fill16(256, 256, uint16(gy*4+gx))) //nolint: gosec
		}
	}
	a := newAssembler(b, f)

	b.ReportAllocs()
	for b.Loop() {
		plane, err := a.Assemble(context.Background(), f.entries)
		if err != nil {
			b.Fatal(err)
		}
		plane.Release()
	}
}
