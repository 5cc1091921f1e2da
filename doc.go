// Package zisraw decodes ZISRAW image containers: segmented binary files that
// store microscopy images as many compressed or raw sub-blocks, indexed by a
// directory and described by an XML metadata document.
//
// # Core Features
//
//   - Memory-mapped or in-memory sources, with zero-copy decoding of raw tiles
//     from in-memory data
//   - Plane grouping by channel, z, time, scene and the other non-spatial axes
//   - Concurrent mosaic assembly with all-or-nothing semantics per plane
//   - Per-plane failure reporting: one bad plane never hides the others
//   - Zstd sub-blocks, and an external hook for the wavelet codec
//   - Hash-based plane lookup (64-bit xxHash64)
//
// # Basic Usage
//
//	r, err := zisraw.Open("sample.czi", zisraw.WithNoPyramid())
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	res, err := r.Decode(ctx)
//	if err != nil {
//	    return err // the container could not be indexed
//	}
//	defer res.Release()
//
//	for _, p := range res.Planes {
//	    fmt.Println(p.ID, p.PixelType, p.Shape)
//	}
//	for _, f := range res.Failures {
//	    fmt.Println("failed:", f)
//	}
//
// Synthetic containers are produced with Writer.
//
// # Package Structure
//
// The top-level package drives the decode. The stages live in sub-packages:
// section (segment framing), directory (index and plane grouping), decoder
// (per-tile decode), mosaic (plane assembly) and metadata (XML property maps).
package zisraw
