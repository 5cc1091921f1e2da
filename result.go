package zisraw

import (
	"slices"
	"strings"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/internal/collision"
	"github.com/arloliu/zisraw/internal/hash"
	"github.com/arloliu/zisraw/metadata"
)

// Plane is a decoded plane.
type Plane struct {
	ID        directory.PlaneID
	PixelType format.PixelType
	// Shape is row-major: [depth,] height, width[, components].
	Shape  []int
	Box    directory.BoundingBox
	Tiles  int
	Buffer *buffer.Buffer
	// Metadata is the document metadata, shared by all planes. Nil when the
	// container has none.
	Metadata *metadata.PropertyMap
}

// Checksum returns the xxHash64 of the plane's pixels.
func (p *Plane) Checksum() uint64 {
	return hash.Bytes(p.Buffer.Bytes())
}

// Result is the outcome of Reader.Decode.
type Result struct {
	// Planes are sorted by ID.
	Planes []*Plane
	// Failures are sorted by plane ID.
	Failures []*errs.PlaneError
	Metadata *metadata.PropertyMap

	byID    map[directory.PlaneID]*Plane
	byHash  map[uint64]*Plane
	tracker *collision.Tracker
}

func newResult(meta *metadata.PropertyMap) *Result {
	return &Result{Metadata: meta}
}

// finish sorts the result and builds the lookup indexes.
func (r *Result) finish() error {
	slices.SortFunc(r.Planes, func(a, b *Plane) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	slices.SortFunc(r.Failures, func(a, b *errs.PlaneError) int {
		return strings.Compare(a.Plane, b.Plane)
	})

	r.byID = make(map[directory.PlaneID]*Plane, len(r.Planes))
	r.byHash = make(map[uint64]*Plane, len(r.Planes))
	r.tracker = collision.NewTracker()
	for _, p := range r.Planes {
		h := p.ID.Hash()
		if err := r.tracker.Track(string(p.ID), h); err != nil {
			return err
		}
		r.byID[p.ID] = p
		r.byHash[h] = p
	}

	return nil
}

// Plane returns the plane with the given identifier.
func (r *Result) Plane(id directory.PlaneID) (*Plane, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// PlaneByHash returns the plane whose identifier hashes to h. It reports
// false when no plane or more than one plane has that hash.
func (r *Result) PlaneByHash(h uint64) (*Plane, bool) {
	if !r.tracker.Unique(h) {
		return nil, false
	}
	p, ok := r.byHash[h]

	return p, ok
}

// Failure returns the failure recorded for a plane.
func (r *Result) Failure(id directory.PlaneID) (*errs.PlaneError, bool) {
	for _, f := range r.Failures {
		if f.Plane == string(id) {
			return f, true
		}
	}

	return nil, false
}

// Release drops the result's references to the plane buffers.
func (r *Result) Release() {
	for _, p := range r.Planes {
		p.Buffer.Release()
	}
}
