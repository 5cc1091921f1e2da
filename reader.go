package zisraw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/decoder"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/internal/options"
	"github.com/arloliu/zisraw/metadata"
	"github.com/arloliu/zisraw/mosaic"
	"github.com/arloliu/zisraw/section"
)

// ErrClosed is returned by a Reader used after Close.
var ErrClosed = errors.New("zisraw: reader closed")

// Source is a random-access container source. *mmap.ReaderAt and
// *bytes.Reader satisfy it.
type Source interface {
	io.ReaderAt
	Len() int
}

// state tracks the sequential part of a decode.
type state int

const (
	stateUnopened state = iota
	stateHeaderRead
	stateMetadataRead
	stateDirectoryRead
	stateDone
)

func (s state) String() string {
	switch s {
	case stateUnopened:
		return "unopened"
	case stateHeaderRead:
		return "header read"
	case stateMetadataRead:
		return "metadata read"
	case stateDirectoryRead:
		return "directory read"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Index is the sequentially parsed part of a container: file header, document
// metadata and directory.
type Index struct {
	Header section.FileHeader
	// Metadata is nil when the container has no metadata segment or it could
	// not be parsed.
	Metadata *metadata.PropertyMap
	Image    metadata.ImageInfo
	HasImage bool
	Entries  []directory.Entry
}

// Reader decodes one container. Its methods are safe for concurrent use.
type Reader struct {
	src Source
	// buf is set for in-memory sources; segments then alias it.
	buf *buffer.Buffer
	// handle keeps the source alive; its release hook closes the source.
	handle *buffer.Buffer
	cfg    *readerConfig

	mu     sync.Mutex
	state  state
	index  *Index
	err    error
	closed bool
}

// Open memory-maps the file at path.
func Open(path string, opts ...Option) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r, err := newReader(m, nil, func() { _ = m.Close() }, opts)
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	return r, nil
}

// NewReader creates a Reader over src. Segments are copied out of src as they
// are read.
func NewReader(src Source, opts ...Option) (*Reader, error) {
	return newReader(src, nil, nil, opts)
}

// NewBytesReader creates a Reader over an in-memory container. Raw tiles alias
// data, which must not be modified while decoded planes are in use.
func NewBytesReader(data []byte, opts ...Option) (*Reader, error) {
	buf := buffer.New(data)
	return newReader(bytes.NewReader(data), buf, buf.Release, opts)
}

func newReader(src Source, buf *buffer.Buffer, closeFn func(), opts []Option) (*Reader, error) {
	cfg := defaultReaderConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	if cfg.registry == nil {
		reg, err := decoder.NewRegistry(decoder.WithLogger(cfg.log))
		if err != nil {
			return nil, err
		}
		cfg.registry = reg
	}

	return &Reader{
		src:    src,
		buf:    buf,
		handle: buffer.NewWithRelease(nil, closeFn),
		cfg:    cfg,
	}, nil
}

// Close releases the source. A decode in progress keeps the source open until
// it returns.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.handle.Release()

	return nil
}

// acquire keeps the source open for the duration of one operation.
func (r *Reader) acquire() (*buffer.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	return r.handle.Retain(), nil
}

func (r *Reader) readSegment(offset int64) (section.Segment, error) {
	if r.buf != nil {
		return section.ReadSegment(r.buf, offset)
	}

	return section.ReadSegmentAt(r.src, int64(r.src.Len()), offset)
}

func (r *Reader) readSegmentOf(offset int64, id string) (section.Segment, error) {
	seg, err := r.readSegment(offset)
	if err != nil {
		return section.Segment{}, err
	}
	if err := section.ExpectID(seg, id); err != nil {
		seg.Release()
		return section.Segment{}, err
	}

	return seg, nil
}

// ReadIndex parses the file header, the metadata segment and the directory.
//
// Header and directory failures are returned and are final: later calls
// return the same error. A metadata failure is logged and leaves
// Index.Metadata nil.
func (r *Reader) ReadIndex() (*Index, error) {
	handle, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index != nil || r.err != nil {
		return r.index, r.err
	}

	r.index, r.err = r.readIndex()

	return r.index, r.err
}

// readIndex walks the sequential states. r.mu is held.
func (r *Reader) readIndex() (*Index, error) {
	log := r.cfg.log
	idx := &Index{}

	seg, err := r.readSegmentOf(0, section.IDFile)
	if err != nil {
		return nil, fmt.Errorf("file header: %w", err)
	}
	idx.Header, err = section.ParseFileHeader(seg.Payload.Bytes())
	seg.Release()
	if err != nil {
		return nil, fmt.Errorf("file header: %w", err)
	}
	r.state = stateHeaderRead
	log.WithFields(logrus.Fields{
		"version":   fmt.Sprintf("%d.%d", idx.Header.Major, idx.Header.Minor),
		"directory": idx.Header.DirectoryPosition,
		"metadata":  idx.Header.MetadataPosition,
	}).Debug("file header read")

	if idx.Header.MetadataPosition > 0 {
		m, err := r.readMetadata(idx.Header.MetadataPosition)
		if err != nil {
			log.WithError(err).Warn("metadata unavailable, decoding pixels without it")
		} else {
			idx.Metadata = m
			idx.Image, idx.HasImage = metadata.ExtractImageInfo(m)
			r.state = stateMetadataRead
		}
	}

	seg, err = r.readSegmentOf(idx.Header.DirectoryPosition, section.IDDirectory)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	idx.Entries, err = directory.Parse(seg)
	seg.Release()
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	r.state = stateDirectoryRead
	log.WithField("entries", len(idx.Entries)).Debug("directory read")

	return idx, nil
}

func (r *Reader) readMetadata(offset int64) (*metadata.PropertyMap, error) {
	seg, err := r.readSegmentOf(offset, section.IDMetadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMetadataParse, err)
	}
	defer seg.Release()

	xml, err := section.MetadataXML(seg.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMetadataParse, err)
	}
	defer xml.Release()

	if r.cfg.dumpXML != "" {
		path, err := metadata.Dump(r.cfg.dumpXML, xml.Bytes())
		if err != nil {
			r.cfg.log.WithError(err).Warn("metadata dump failed")
		} else {
			r.cfg.log.WithField("path", path).Info("metadata xml dumped")
		}
	}

	return metadata.Parse(xml, 0, xml.Len())
}

// loadSubBlock is the mosaic.Loader of the reader.
func (r *Reader) loadSubBlock(entry *directory.Entry) (section.Segment, error) {
	return r.readSegmentOf(entry.FilePosition, section.IDSubBlock)
}

// Decode decodes every plane of the container.
//
// An error is returned only when the container cannot be indexed. Planes that
// fail, including those abandoned because ctx was canceled, are listed in
// Result.Failures; the others are returned complete.
func (r *Reader) Decode(ctx context.Context) (*Result, error) {
	handle, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}

	cfg := r.cfg
	var fallback decoder.Extent
	if idx.HasImage {
		fallback = decoder.Extent{Width: idx.Image.SizeX, Height: idx.Image.SizeY, Depth: idx.Image.SizeZ}
	}

	asm, err := mosaic.New(cfg.registry, r.loadSubBlock,
		mosaic.WithWorkers(cfg.workers),
		mosaic.WithProgress(cfg.progress),
		mosaic.WithFallbackExtent(fallback),
		mosaic.WithLogger(cfg.log),
	)
	if err != nil {
		return nil, err
	}

	planes := directory.Planes(idx.Entries, directory.GroupOptions{NoPyramid: cfg.noPyramid})
	res := newResult(idx.Metadata)

	var mu sync.Mutex
	record := func(p *Plane, id directory.PlaneID, err error) {
		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			cfg.log.WithFields(logrus.Fields{"plane": string(id)}).WithError(err).Warn("plane failed")
			res.Failures = append(res.Failures, &errs.PlaneError{Plane: string(id), Err: err})

			return
		}
		res.Planes = append(res.Planes, p)
	}

	g := new(errgroup.Group)
	g.SetLimit(cfg.planeWorkers)

	for i := range planes {
		p := &planes[i]
		if err := ctx.Err(); err != nil {
			record(nil, p.ID, fmt.Errorf("%w: %w", errs.ErrCanceled, err))
			continue
		}

		if p.ID.IsMosaic() && idx.Image.SizeM > 0 && len(p.Entries) > idx.Image.SizeM {
			cfg.log.WithFields(logrus.Fields{
				"plane": string(p.ID),
				"tiles": len(p.Entries),
				"sizeM": idx.Image.SizeM,
			}).Warn("plane has more tiles than the declared mosaic size")
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(nil, p.ID, fmt.Errorf("%w: %w", errs.ErrCanceled, err))
				return nil
			}

			assembled, err := asm.Assemble(ctx, p.Entries)
			if err != nil {
				record(nil, p.ID, err)
				return nil
			}

			record(&Plane{
				ID:        p.ID,
				PixelType: assembled.PixelType,
				Shape:     assembled.Shape(),
				Box:       assembled.Box,
				Tiles:     assembled.Tiles,
				Buffer:    assembled.Buffer,
				Metadata:  idx.Metadata,
			}, p.ID, nil)

			return nil
		})
	}
	_ = g.Wait()

	if err := res.finish(); err != nil {
		res.Release()
		return nil, err
	}

	r.mu.Lock()
	r.state = stateDone
	r.mu.Unlock()

	cfg.log.WithFields(logrus.Fields{
		"planes":   len(res.Planes),
		"failures": len(res.Failures),
	}).Debug("decode finished")

	return res, nil
}
