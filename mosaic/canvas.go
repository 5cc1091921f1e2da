package mosaic

import (
	"fmt"

	"github.com/arloliu/zisraw/decoder"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
)

// canvas is the destination of a mosaic, laid out as [depth][height][width]pixels.
type canvas struct {
	data []byte
	box  directory.BoundingBox
	bpp  int
}

// place copies tile into the sub-rectangle at the entry's start coordinates.
func (c *canvas) place(entry *directory.Entry, tile *decoder.Tile) error {
	x, _ := entry.Dimension(format.DimX)
	y, _ := entry.Dimension(format.DimY)
	offX := int(x.Start) - int(c.box.X.Min)
	offY := int(y.Start) - int(c.box.Y.Min)

	return c.copyTile(offX, offY, tile.Extent, tile.Buffer.Bytes())
}

func (c *canvas) copyTile(offX, offY int, ext decoder.Extent, src []byte) error {
	width, height := c.box.Width(), c.box.Height()
	depth := max(ext.Depth, 1)

	if offX < 0 || offY < 0 || offX+ext.Width > width || offY+ext.Height > height || depth > c.box.Depth {
		return fmt.Errorf("%w: tile %dx%dx%d at (%d,%d) outside %dx%dx%d box", errs.ErrOutOfRange,
			ext.Width, ext.Height, depth, offX, offY, width, height, c.box.Depth)
	}

	rowBytes := ext.Width * c.bpp
	need := rowBytes * ext.Height * depth
	if len(src) < need {
		return errs.OutOfRange("tile pixels", int64(need), int64(len(src)))
	}

	dstRow := width * c.bpp
	dstSlice := dstRow * height
	for z := range depth {
		for row := range ext.Height {
			s := (z*ext.Height + row) * rowBytes
			d := z*dstSlice + (offY+row)*dstRow + offX*c.bpp
			if d+rowBytes > len(c.data) {
				return errs.OutOfRange("mosaic row", int64(d+rowBytes), int64(len(c.data)))
			}
			copy(c.data[d:d+rowBytes], src[s:s+rowBytes])
		}
	}

	return nil
}

// overlapping reports whether any two entries cover a common pixel.
func overlapping(entries []directory.Entry) bool {
	type rect struct{ x0, y0, x1, y1 int32 }

	rects := make([]rect, 0, len(entries))
	for i := range entries {
		x, _ := entries[i].Dimension(format.DimX)
		y, _ := entries[i].Dimension(format.DimY)
		r := rect{x.Start, y.Start, x.Start + x.Extent(), y.Start + y.Extent()}
		for _, o := range rects {
			if r.x0 < o.x1 && o.x0 < r.x1 && r.y0 < o.y1 && o.y0 < r.y1 {
				return true
			}
		}
		rects = append(rects, r)
	}

	return false
}
