package mosaic

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/decoder"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/internal/options"
	"github.com/arloliu/zisraw/section"
)

// Loader reads the sub-block segment an entry points at.
type Loader func(entry *directory.Entry) (section.Segment, error)

// ProgressFunc receives the allocated size of each sub-block segment once its
// tile has been placed. Calls are serialized.
type ProgressFunc func(bytes int64)

// Assembler builds plane buffers from sub-blocks. It is safe for concurrent
// use by several planes.
type Assembler struct {
	registry *decoder.Registry
	load     Loader
	workers  int
	progress ProgressFunc
	fallback decoder.Extent
	log      logrus.FieldLogger

	progressMu sync.Mutex
}

// Option configures an Assembler.
type Option = options.Option[*Assembler]

// WithWorkers sets the number of tiles decoded concurrently per plane.
func WithWorkers(n int) Option {
	return options.New(func(a *Assembler) error {
		if n <= 0 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		a.workers = n

		return nil
	})
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return options.NoError(func(a *Assembler) {
		a.progress = fn
	})
}

// WithFallbackExtent sets the tile size used when an entry lacks a spatial dimension.
func WithFallbackExtent(ext decoder.Extent) Option {
	return options.NoError(func(a *Assembler) {
		a.fallback = ext
	})
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return options.NoError(func(a *Assembler) {
		if log != nil {
			a.log = log
		}
	})
}

// New creates an Assembler decoding with registry and reading through load.
func New(registry *decoder.Registry, load Loader, opts ...Option) (*Assembler, error) {
	if registry == nil || load == nil {
		return nil, errors.New("mosaic: registry and loader are required")
	}

	a := &Assembler{
		registry: registry,
		load:     load,
		workers:  runtime.NumCPU(),
		log:      logrus.StandardLogger(),
	}
	if err := options.Apply(a, opts...); err != nil {
		return nil, err
	}

	return a, nil
}

// Plane is an assembled plane.
type Plane struct {
	PixelType format.PixelType
	Box       directory.BoundingBox
	Tiles     int
	Buffer    *buffer.Buffer
}

// Extent returns the pixel size of the plane.
func (p *Plane) Extent() decoder.Extent {
	return decoder.Extent{Width: p.Box.Width(), Height: p.Box.Height(), Depth: p.Box.Depth}
}

// Shape returns the row-major shape of the plane buffer.
func (p *Plane) Shape() []int {
	return decoder.ShapeOf(p.PixelType, p.Extent())
}

// Release drops the plane's reference to its pixels.
func (p *Plane) Release() {
	if p != nil && p.Buffer != nil {
		p.Buffer.Release()
	}
}

// Assemble decodes the entries of one plane into a single buffer.
//
// Errors from any tile abort the whole plane and no buffer is returned.
// Cancellation of ctx surfaces as errs.ErrCanceled.
func (a *Assembler) Assemble(ctx context.Context, entries []directory.Entry) (*Plane, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: plane without sub-blocks", errs.ErrMalformedContainer)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCanceled, err)
	}

	pixelType := entries[0].PixelType
	for i := 1; i < len(entries); i++ {
		if entries[i].PixelType != pixelType {
			return nil, fmt.Errorf("%w: plane mixes pixel types %s and %s",
				errs.ErrMalformedContainer, pixelType, entries[i].PixelType)
		}
	}

	info, err := a.registry.ResolvePixelType(&entries[0])
	if err != nil {
		return nil, err
	}

	if len(entries) == 1 {
		return a.single(&entries[0])
	}

	return a.mosaic(ctx, entries, info)
}

func (a *Assembler) single(entry *directory.Entry) (*Plane, error) {
	tile, alloc, err := a.decodeTile(entry)
	if err != nil {
		return nil, err
	}
	a.report(alloc)

	ext := tile.Extent
	box := directory.BoundingBox{
		X:     directory.Range{Min: 0, Max: int32(ext.Width - 1)},  //nolint: gosec
		Y:     directory.Range{Min: 0, Max: int32(ext.Height - 1)}, //nolint: gosec
		Depth: ext.Depth,
	}
	if x, ok := entry.Dimension(format.DimX); ok {
		box.X = directory.Range{Min: x.Start, Max: x.Start + int32(ext.Width) - 1} //nolint: gosec
	}
	if y, ok := entry.Dimension(format.DimY); ok {
		box.Y = directory.Range{Min: y.Start, Max: y.Start + int32(ext.Height) - 1} //nolint: gosec
	}

	return &Plane{PixelType: tile.PixelType, Box: box, Tiles: 1, Buffer: tile.Buffer}, nil
}

func (a *Assembler) mosaic(ctx context.Context, entries []directory.Entry, info format.PixelInfo) (*Plane, error) {
	box, err := directory.BoundingBoxOf(entries)
	if err != nil {
		return nil, err
	}

	size, err := box.ByteSize(info.BytesPerPixel)
	if err != nil {
		return nil, fmt.Errorf("%w: mosaic bounding box %dx%d: %w", errs.ErrMalformedContainer, box.Width(), box.Height(), err)
	}

	dst := buffer.Alloc(size)
	canvas := &canvas{data: dst.Bytes(), box: box, bpp: info.BytesPerPixel}

	deferred := overlapping(entries)
	var tiles []*decoder.Tile
	if deferred {
		tiles = make([]*decoder.Tile, len(entries))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range entries {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", errs.ErrCanceled, err)
			}

			tile, alloc, err := a.decodeTile(&entries[i])
			if err != nil {
				return err
			}

			if deferred {
				tiles[i] = tile
			} else {
				err = canvas.place(&entries[i], tile)
				tile.Release()
				if err != nil {
					return err
				}
			}
			a.report(alloc)

			return nil
		})
	}

	err = g.Wait()
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", errs.ErrCanceled, ctx.Err())
	}

	if deferred {
		for i, tile := range tiles {
			if tile == nil {
				continue
			}
			if err == nil {
				err = canvas.place(&entries[i], tile)
			}
			tile.Release()
		}
	}

	if err != nil {
		dst.Release()
		if ctx.Err() != nil && !errors.Is(err, errs.ErrCanceled) {
			err = fmt.Errorf("%w: %w", errs.ErrCanceled, err)
		}

		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"tiles":   len(entries),
		"width":   box.Width(),
		"height":  box.Height(),
		"overlap": deferred,
	}).Debug("mosaic assembled")

	return &Plane{PixelType: info.Type, Box: box, Tiles: len(entries), Buffer: dst}, nil
}

// decodeTile loads and decodes one sub-block, returning the tile and the
// segment's allocated size.
func (a *Assembler) decodeTile(entry *directory.Entry) (*decoder.Tile, int64, error) {
	seg, err := a.load(entry)
	if err != nil {
		return nil, 0, err
	}
	defer seg.Release()

	sb, err := section.ParseSubBlock(seg.Payload)
	if err != nil {
		return nil, 0, err
	}
	defer sb.Release()

	tile, err := a.registry.Decode(entry, sb.Data, a.fallback)
	if err != nil {
		return nil, 0, err
	}

	return tile, seg.Header.AllocatedSize, nil
}

func (a *Assembler) report(alloc int64) {
	if a.progress == nil {
		return
	}

	a.progressMu.Lock()
	defer a.progressMu.Unlock()
	a.progress(alloc)
}
