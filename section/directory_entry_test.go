package section

import (
	"testing"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/stretchr/testify/require"
)

func sampleEntry() DirectoryEntry {
	return DirectoryEntry{
		PixelType:    format.PixelGray16,
		FilePosition: 4096,
		Compression:  format.CompressionNone,
		Dimensions: []DimensionEntry{
			{Dimension: format.DimX, Start: 5, Size: 100, StoredSize: 100},
			{Dimension: format.DimY, Start: 0, Size: 50, StoredSize: 50},
			{Dimension: format.DimC, Start: 2, Size: 1, StartCoordinate: 1.5},
		},
	}
}

func TestDirectoryEntryParse(t *testing.T) {
	e := sampleEntry()
	data := e.Bytes()
	require.Len(t, data, 32+3*20)
	require.Equal(t, 128, e.PaddedSize())

	parsed, n, err := ParseDirectoryEntry(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, e, parsed)

	c, ok := parsed.Dimension(format.DimC)
	require.True(t, ok)
	require.EqualValues(t, 2, c.Start)
	require.EqualValues(t, 1, c.Extent())

	_, ok = parsed.Dimension(format.DimZ)
	require.False(t, ok)
}

func TestDirectoryEntryErrors(t *testing.T) {
	t.Run("Short", func(t *testing.T) {
		_, _, err := ParseDirectoryEntry(make([]byte, 31))
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
	})

	t.Run("Schema", func(t *testing.T) {
		e := sampleEntry()
		data := e.Bytes()
		data[0] = 'X'
		_, _, err := ParseDirectoryEntry(data)
		require.ErrorIs(t, err, errs.ErrInvalidDirectoryEntry)
	})

	t.Run("DimensionsPastEnd", func(t *testing.T) {
		e := sampleEntry()
		data := e.Bytes()
		_, _, err := ParseDirectoryEntry(data[:len(data)-1])
		require.ErrorIs(t, err, errs.ErrInvalidDirectoryEntry)
		require.ErrorIs(t, err, errs.ErrMalformedContainer)
	})

	t.Run("DuplicateDimension", func(t *testing.T) {
		e := sampleEntry()
		e.Dimensions[2].Dimension = format.DimX
		_, _, err := ParseDirectoryEntry(e.Bytes())
		require.ErrorIs(t, err, errs.ErrDuplicateDimension)
	})
}

func TestIsPyramid(t *testing.T) {
	e := sampleEntry()
	require.False(t, e.IsPyramid())

	e.Dimensions[0].StoredSize = 50
	require.True(t, e.IsPyramid())

	e = sampleEntry()
	e.PyramidType = format.PyramidSingle
	require.True(t, e.IsPyramid())
}

func TestSubBlockRoundTrip(t *testing.T) {
	e := sampleEntry()
	meta := []byte("<METADATA/>")
	pixels := []byte{1, 2, 3, 4, 5, 6}
	attachment := []byte{9, 9}

	payload := buffer.New(SubBlockPayload(e, meta, pixels, attachment))
	require.Equal(t, 256+len(meta)+len(pixels)+len(attachment), payload.Len())

	sb, err := ParseSubBlock(payload)
	require.NoError(t, err)
	defer sb.Release()

	require.Equal(t, e, sb.Header.Entry)
	require.Equal(t, meta, sb.Metadata.Bytes())
	require.Equal(t, pixels, sb.Data.Bytes())
	require.EqualValues(t, len(attachment), sb.Header.AttachmentSize)
}

func TestSubBlockLargeEntryHeader(t *testing.T) {
	e := sampleEntry()
	for _, name := range []string{"Z", "T", "S", "M", "R", "I", "H", "V", "B"} {
		e.Dimensions = append(e.Dimensions, DimensionEntry{Dimension: name, Size: 1})
	}
	h := SubBlockHeader{Entry: e}
	require.Equal(t, 16+32+12*20, h.HeaderSize())

	sb, err := ParseSubBlock(buffer.New(SubBlockPayload(e, nil, []byte{7}, nil)))
	require.NoError(t, err)
	require.Equal(t, []byte{7}, sb.Data.Bytes())
}

func TestSubBlockTruncated(t *testing.T) {
	payload := SubBlockPayload(sampleEntry(), nil, make([]byte, 10), nil)
	_, err := ParseSubBlock(buffer.New(payload[:len(payload)-1]))
	require.ErrorIs(t, err, errs.ErrTruncatedSegment)
}

func TestMetadataPayload(t *testing.T) {
	xml := []byte("<ImageDocument/>")
	got, err := MetadataXML(buffer.New(MetadataPayload(xml)))
	require.NoError(t, err)
	require.Equal(t, xml, got.Bytes())

	_, err = MetadataXML(buffer.New(make([]byte, 100)))
	require.ErrorIs(t, err, errs.ErrTruncatedSegment)
}

func TestDirectoryPayload(t *testing.T) {
	entries := []DirectoryEntry{sampleEntry(), sampleEntry()}
	data := DirectoryPayload(entries)
	require.Len(t, data, 128+2*128)
}
