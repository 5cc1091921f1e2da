package decoder

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/section"
)

// FileByteOrder is the byte order of pixel data in the container.
var FileByteOrder binary.ByteOrder = binary.LittleEndian

// Extent is the pixel size of a tile.
type Extent struct {
	Width, Height, Depth int
}

// Pixels returns the number of pixels covered.
func (e Extent) Pixels() int {
	return e.Width * e.Height * max(e.Depth, 1)
}

// Request is the input of a DecodeFunc.
type Request struct {
	Entry  *section.DirectoryEntry
	Info   format.PixelInfo
	Extent Extent
	// Size is the decoded byte length, Extent.Pixels() * Info.BytesPerPixel.
	Size int
	// Data is the stored sub-block data. Decode functions must not modify it.
	Data *buffer.Buffer
}

// Tile is a decoded sub-block in host byte order.
type Tile struct {
	PixelType format.PixelType
	Extent    Extent
	Buffer    *buffer.Buffer
}

// Shape returns the row-major shape: [depth,] height, width[, components].
// Depth appears when above one and components for multi-channel pixels.
func (t *Tile) Shape() []int {
	return ShapeOf(t.PixelType, t.Extent)
}

// Release drops the tile's reference to its pixels.
func (t *Tile) Release() {
	if t != nil && t.Buffer != nil {
		t.Buffer.Release()
	}
}

// ShapeOf returns the row-major shape of pixels with the given type and extent.
func ShapeOf(pt format.PixelType, ext Extent) []int {
	shape := make([]int, 0, 4)
	if ext.Depth > 1 {
		shape = append(shape, ext.Depth)
	}
	shape = append(shape, ext.Height, ext.Width)

	if info, ok := pt.Info(); ok && info.Components > 1 && !info.Complex {
		shape = append(shape, info.Components)
	}

	return shape
}

// ExtentOf derives a tile's extent from an entry. Each spatial dimension uses
// its stored size, then its nominal size, then the fallback value.
func ExtentOf(entry *section.DirectoryEntry, fallback Extent) Extent {
	pick := func(name string, def int) int {
		if d, ok := entry.Dimension(name); ok && d.Extent() > 0 {
			return int(d.Extent())
		}

		return def
	}

	return Extent{
		Width:  pick(format.DimX, fallback.Width),
		Height: pick(format.DimY, fallback.Height),
		Depth:  max(pick(format.DimZ, fallback.Depth), 1),
	}
}

// Decode decodes one sub-block's data as described by entry.
//
// An unknown pixel type fails with errs.ErrUnsupportedPixelType before any
// allocation. JPEG and LZW fail with errs.ErrNotImplemented, and an unknown
// compression code with errs.ErrUnsupportedPixelType. The data buffer is not
// modified; the returned tile may alias it.
func (r *Registry) Decode(entry *section.DirectoryEntry, data *buffer.Buffer, fallback Extent) (*Tile, error) {
	info, err := r.ResolvePixelType(entry)
	if err != nil {
		return nil, err
	}

	fn, ok := r.codecs[entry.Compression]
	if !ok {
		r.log.WithFields(logrus.Fields{
			"compression":   int32(entry.Compression),
			"file_position": entry.FilePosition,
		}).Warn("unknown compression code")

		return nil, fmt.Errorf("%w: compression code %d", errs.ErrUnsupportedPixelType, int32(entry.Compression))
	}

	ext := ExtentOf(entry, fallback)
	if ext.Width <= 0 || ext.Height <= 0 {
		return nil, fmt.Errorf("%w: tile at %d has no X/Y size", errs.ErrInvalidDirectoryEntry, entry.FilePosition)
	}

	size, err := buffer.Size(ext.Width, ext.Height, ext.Depth, info.BytesPerPixel)
	if err != nil {
		return nil, fmt.Errorf("%w: tile at %d: %w", errs.ErrInvalidDirectoryEntry, entry.FilePosition, err)
	}

	req := &Request{
		Entry:  entry,
		Info:   info,
		Extent: ext,
		Size:   size,
		Data:   data,
	}

	pixels, err := fn(req)
	if err != nil {
		return nil, err
	}

	if endian.NeedsSwap(FileByteOrder) && info.ComponentSize > 1 {
		swapped := endian.Swapped(pixels.Bytes(), info.ComponentSize)
		pixels.Release()
		pixels = buffer.New(swapped)
	}

	return &Tile{PixelType: info.Type, Extent: ext, Buffer: pixels}, nil
}

// ResolvePixelType returns the layout of the entry's pixel type. Unknown codes
// are logged and fail with errs.ErrUnsupportedPixelType.
func (r *Registry) ResolvePixelType(entry *section.DirectoryEntry) (format.PixelInfo, error) {
	info, ok := r.pixels[entry.PixelType]
	if !ok {
		r.log.WithFields(logrus.Fields{
			"pixel_type":    int32(entry.PixelType),
			"file_position": entry.FilePosition,
		}).Warn("unsupported pixel type")

		return format.PixelInfo{}, fmt.Errorf("%w: pixel type code %d", errs.ErrUnsupportedPixelType, int32(entry.PixelType))
	}

	return info, nil
}
