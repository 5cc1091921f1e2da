package section

import (
	"fmt"
	"math"

	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
)

// DimensionEntry describes one axis of a sub-block. It is 20 bytes on disk.
type DimensionEntry struct {
	Dimension       string  // byte offset 0-3, NUL padded
	Start           int32   // byte offset 4-7
	Size            int32   // byte offset 8-11, logical extent
	StartCoordinate float32 // byte offset 12-15
	StoredSize      int32   // byte offset 16-19, pixels actually stored
}

// Extent returns StoredSize, or Size when StoredSize is not set.
func (d DimensionEntry) Extent() int32 {
	if d.StoredSize != 0 {
		return d.StoredSize
	}

	return d.Size
}

// DirectoryEntry is a DV-schema pointer to a sub-block segment.
type DirectoryEntry struct {
	PixelType    format.PixelType       // byte offset 2-5
	FilePosition int64                  // byte offset 6-13, offset of the sub-block segment
	FilePart     int32                  // byte offset 14-17
	Compression  format.CompressionType // byte offset 18-21
	PyramidType  format.PyramidType     // byte offset 22
	Dimensions   []DimensionEntry       // count at byte offset 28-31, entries from 32
}

// Dimension returns the descriptor named name.
func (e *DirectoryEntry) Dimension(name string) (DimensionEntry, bool) {
	for _, d := range e.Dimensions {
		if d.Dimension == name {
			return d, true
		}
	}

	return DimensionEntry{}, false
}

// Size returns the unpadded byte size of the entry.
func (e *DirectoryEntry) Size() int {
	return DirectoryEntryFixedSize + DimensionEntrySize*len(e.Dimensions)
}

// PaddedSize returns the footprint of the entry inside the directory segment.
func (e *DirectoryEntry) PaddedSize() int {
	return max(e.Size(), DirectoryEntryMinSize)
}

// IsPyramid reports whether the entry holds a downsampled copy of its plane.
func (e *DirectoryEntry) IsPyramid() bool {
	if e.PyramidType != format.PyramidNone {
		return true
	}

	for _, d := range e.Dimensions {
		if format.IsSpatial(d.Dimension) && d.StoredSize != 0 && d.StoredSize != d.Size {
			return true
		}
	}

	return false
}

// ParseDirectoryEntry parses one DV entry from data.
//
// Returns:
//   - DirectoryEntry: the parsed entry
//   - int: unpadded byte size consumed
//   - error: ErrInvalidDirectoryEntry if the schema is wrong or the declared
//     dimensions would read past data, ErrDuplicateDimension on repeated names
func ParseDirectoryEntry(data []byte) (DirectoryEntry, int, error) {
	if len(data) < DirectoryEntryFixedSize {
		return DirectoryEntry{}, 0, fmt.Errorf("%w: %d bytes left, need %d", errs.ErrInvalidDirectoryEntry, len(data), DirectoryEntryFixedSize)
	}

	if string(data[0:2]) != SchemaDV {
		return DirectoryEntry{}, 0, fmt.Errorf("%w: schema %q", errs.ErrInvalidDirectoryEntry, data[0:2])
	}

	engine := endian.GetLittleEndianEngine()
	count := int64(int32(engine.Uint32(data[28:32]))) //nolint: gosec
	size := DirectoryEntryFixedSize + DimensionEntrySize*count
	if count < 0 || size > int64(len(data)) {
		return DirectoryEntry{}, 0, fmt.Errorf("%w: %d dimensions need %d bytes, %d left",
			errs.ErrInvalidDirectoryEntry, count, size, len(data))
	}

	e := DirectoryEntry{
		PixelType:    format.PixelType(int32(engine.Uint32(data[2:6]))),         //nolint: gosec
		FilePosition: int64(engine.Uint64(data[6:14])),                          //nolint: gosec
		FilePart:     int32(engine.Uint32(data[14:18])),                         //nolint: gosec
		Compression:  format.CompressionType(int32(engine.Uint32(data[18:22]))), //nolint: gosec
		PyramidType:  format.PyramidType(data[22]),
		Dimensions:   make([]DimensionEntry, count),
	}

	seen := make(map[string]struct{}, count)
	for i := range e.Dimensions {
		off := DirectoryEntryFixedSize + DimensionEntrySize*i
		d := data[off : off+DimensionEntrySize]
		dim := DimensionEntry{
			Dimension:       trimName(d[0:4]),
			Start:           int32(engine.Uint32(d[4:8])),  //nolint: gosec
			Size:            int32(engine.Uint32(d[8:12])), //nolint: gosec
			StartCoordinate: math.Float32frombits(engine.Uint32(d[12:16])),
			StoredSize:      int32(engine.Uint32(d[16:20])), //nolint: gosec
		}

		if _, dup := seen[dim.Dimension]; dup {
			return DirectoryEntry{}, 0, fmt.Errorf("%w: %q", errs.ErrDuplicateDimension, dim.Dimension)
		}
		seen[dim.Dimension] = struct{}{}
		e.Dimensions[i] = dim
	}

	return e, int(size), nil
}

// AppendTo appends the unpadded entry to b.
func (e *DirectoryEntry) AppendTo(b []byte) []byte {
	engine := endian.GetLittleEndianEngine()

	b = append(b, SchemaDV...)
	b = engine.AppendUint32(b, uint32(e.PixelType))    //nolint: gosec
	b = engine.AppendUint64(b, uint64(e.FilePosition)) //nolint: gosec
	b = engine.AppendUint32(b, uint32(e.FilePart))     //nolint: gosec
	b = engine.AppendUint32(b, uint32(e.Compression))  //nolint: gosec
	b = append(b, byte(e.PyramidType), 0, 0, 0, 0, 0)
	b = engine.AppendUint32(b, uint32(len(e.Dimensions))) //nolint: gosec

	for _, d := range e.Dimensions {
		var name [4]byte
		copy(name[:], d.Dimension)
		b = append(b, name[:]...)
		b = engine.AppendUint32(b, uint32(d.Start)) //nolint: gosec
		b = engine.AppendUint32(b, uint32(d.Size))  //nolint: gosec
		b = engine.AppendUint32(b, math.Float32bits(d.StartCoordinate))
		b = engine.AppendUint32(b, uint32(d.StoredSize)) //nolint: gosec
	}

	return b
}

// Bytes returns the unpadded serialized entry.
func (e *DirectoryEntry) Bytes() []byte {
	return e.AppendTo(make([]byte, 0, e.Size()))
}

func trimName(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 && b[n] != ' ' {
		n++
	}

	return string(b[:n])
}
