package directory

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/internal/hash"
	"github.com/arloliu/zisraw/section"
)

// PlaneID is the canonical identifier of a plane, e.g. "S=0,T=3,C=2,M".
type PlaneID string

// Hash returns the xxHash64 of the identifier.
func (id PlaneID) Hash() uint64 {
	return hash.ID(string(id))
}

// Coordinates returns the dimension start values encoded in the identifier.
func (id PlaneID) Coordinates() map[string]int32 {
	coords := make(map[string]int32)
	for part := range strings.SplitSeq(string(id), ",") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			coords[name] = int32(v)
		}
	}

	return coords
}

// IsMosaic reports whether the plane is assembled from mosaic tiles.
func (id PlaneID) IsMosaic() bool {
	return id == format.DimM || strings.HasSuffix(string(id), ","+format.DimM)
}

// PlaneIDOf builds the plane identifier of an entry. The second result is false
// for entries without dimensions, which are not image planes.
func PlaneIDOf(e *Entry) (PlaneID, bool) {
	if len(e.Dimensions) == 0 {
		return "", false
	}

	var b strings.Builder
	for _, name := range format.PlaneDimensions {
		d, ok := e.Dimension(name)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(int(d.Start)))
	}

	if _, ok := e.Dimension(format.DimM); ok {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(format.DimM)
	}

	return PlaneID(b.String()), true
}

// GroupOptions controls GroupByPlane.
type GroupOptions struct {
	// NoPyramid drops downsampled pyramid sub-blocks.
	NoPyramid bool
}

// GroupByPlane groups entries by plane identifier, preserving directory order
// within each plane. Entries without dimensions are skipped.
func GroupByPlane(entries []Entry, opts GroupOptions) map[PlaneID][]Entry {
	groups := make(map[PlaneID][]Entry)
	for i := range entries {
		e := &entries[i]
		if opts.NoPyramid && e.IsPyramid() {
			continue
		}

		id, ok := PlaneIDOf(e)
		if !ok {
			continue
		}
		groups[id] = append(groups[id], *e)
	}

	return groups
}

// Range is an inclusive coordinate interval.
type Range struct {
	Min, Max int32
}

// Len returns the number of coordinates covered.
func (r Range) Len() int {
	return int(r.Max) - int(r.Min) + 1
}

// BoundingBox is the union of the sub-block placements of a plane.
type BoundingBox struct {
	X, Y Range
	// Depth is the largest Z extent of any sub-block, at least 1.
	Depth int
}

// Width returns the box width in pixels.
func (b BoundingBox) Width() int { return b.X.Len() }

// Height returns the box height in pixels.
func (b BoundingBox) Height() int { return b.Y.Len() }

// Volume returns the number of pixels covered by the box.
func (b BoundingBox) Volume() int {
	return b.Width() * b.Height() * b.Depth
}

// ByteSize returns the byte size of the box at bpp bytes per pixel. Sizes that
// overflow or exceed buffer.MaxSize fail with errs.ErrOutOfRange.
func (b BoundingBox) ByteSize(bpp int) (int, error) {
	return buffer.Size(b.Width(), b.Height(), max(b.Depth, 1), bpp)
}

// BoundingBoxOf computes min(start) and max(start+extent-1) over X and Y of all
// entries. The extent is StoredSize, falling back to Size.
func BoundingBoxOf(entries []Entry) (BoundingBox, error) {
	if len(entries) == 0 {
		return BoundingBox{}, fmt.Errorf("%w: bounding box of an empty plane", errs.ErrMalformedContainer)
	}

	box := BoundingBox{Depth: 1}
	for i := range entries {
		x, okX := entries[i].Dimension(format.DimX)
		y, okY := entries[i].Dimension(format.DimY)
		if !okX || !okY {
			return BoundingBox{}, fmt.Errorf("%w: entry at %d lacks X/Y dimensions", errs.ErrInvalidDirectoryEntry, entries[i].FilePosition)
		}
		if x.Extent() <= 0 || y.Extent() <= 0 {
			return BoundingBox{}, fmt.Errorf("%w: entry at %d has empty extent", errs.ErrInvalidDirectoryEntry, entries[i].FilePosition)
		}

		xr, okX := spanOf(x)
		yr, okY := spanOf(y)
		if !okX || !okY {
			return BoundingBox{}, fmt.Errorf("%w: entry at %d extends past the coordinate range", errs.ErrInvalidDirectoryEntry, entries[i].FilePosition)
		}
		if i == 0 {
			box.X, box.Y = xr, yr
		} else {
			box.X = Range{Min: min(box.X.Min, xr.Min), Max: max(box.X.Max, xr.Max)}
			box.Y = Range{Min: min(box.Y.Min, yr.Min), Max: max(box.Y.Max, yr.Max)}
		}

		if z, ok := entries[i].Dimension(format.DimZ); ok {
			box.Depth = max(box.Depth, int(z.Extent()))
		}
	}

	return box, nil
}

// spanOf returns the inclusive range covered by d. The second result is false
// when the last coordinate does not fit in an int32.
func spanOf(d section.DimensionEntry) (Range, bool) {
	last := int64(d.Start) + int64(d.Extent()) - 1
	if last > math.MaxInt32 {
		return Range{}, false
	}

	return Range{Min: d.Start, Max: int32(last)}, true
}

// Plane is a group of entries sharing a plane identifier.
type Plane struct {
	ID      PlaneID
	Entries []Entry
}

// Planes groups entries and returns the planes sorted by identifier.
func Planes(entries []Entry, opts GroupOptions) []Plane {
	groups := GroupByPlane(entries, opts)
	planes := make([]Plane, 0, len(groups))
	for id, group := range groups {
		planes = append(planes, Plane{ID: id, Entries: group})
	}

	slices.SortFunc(planes, func(a, b Plane) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	return planes
}
