package zisraw

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arloliu/zisraw/compress"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/section"
)

// segmentAlignment is the allocation granularity of written segments.
const segmentAlignment = 32

// Writer builds a container in memory. Sub-blocks are written in the order
// they are added, followed by the directory.
//
// Example:
//
//	w := zisraw.NewWriter()
//	w.SetMetadata([]byte("<ImageDocument>...</ImageDocument>"))
//	_ = w.AddSubBlock(entry, pixels)
//	data, _ := w.Bytes()
type Writer struct {
	major, minor int32
	metadata     []byte
	hasMetadata  bool
	blocks       []pendingBlock
}

type pendingBlock struct {
	entry    directory.Entry
	metadata []byte
	data     []byte
}

// NewWriter creates an empty Writer producing version 1.0 containers.
func NewWriter() *Writer {
	return &Writer{major: 1}
}

// SetVersion sets the format version recorded in the file header.
func (w *Writer) SetVersion(major, minor int32) {
	w.major, w.minor = major, minor
}

// SetMetadata sets the document metadata XML.
func (w *Writer) SetMetadata(xml []byte) {
	w.metadata = xml
	w.hasMetadata = true
}

// AddSubBlock compresses pixels according to entry.Compression and adds the
// sub-block. Only codes with a codec in package compress are accepted.
func (w *Writer) AddSubBlock(entry directory.Entry, pixels []byte) error {
	codec, err := compress.CreateCodec(entry.Compression)
	if err != nil {
		return err
	}

	// 16-bit samples are stored as separate low and high byte planes
	if info, ok := entry.PixelType.Info(); ok && entry.Compression == format.CompressionZstd1 && info.ComponentSize == 2 {
		codec = compress.NewZstd1Compressor(true)
	}

	data, err := codec.Compress(pixels)
	if err != nil {
		return fmt.Errorf("compress sub-block: %w", err)
	}

	return w.AddRawSubBlock(entry, data, nil)
}

// AddRawSubBlock adds a sub-block whose data is stored as given, with optional
// per-sub-block metadata XML.
func (w *Writer) AddRawSubBlock(entry directory.Entry, data, metadata []byte) error {
	for _, d := range entry.Dimensions {
		if len(d.Dimension) == 0 || len(d.Dimension) > 4 {
			return fmt.Errorf("invalid dimension name %q", d.Dimension)
		}
	}

	entry.Dimensions = append([]section.DimensionEntry(nil), entry.Dimensions...)
	w.blocks = append(w.blocks, pendingBlock{entry: entry, metadata: metadata, data: data})

	return nil
}

// Bytes returns the serialized container.
func (w *Writer) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if _, err := w.WriteTo(&b); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// WriteTo writes the container to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var body bytes.Buffer
	header := section.FileHeader{Major: w.major, Minor: w.minor}

	pos := int64(section.SegmentHeaderSize + section.FileHeaderAllocatedSize)
	if w.hasMetadata {
		header.MetadataPosition = pos
		pos += appendSegment(&body, section.IDMetadata, section.MetadataPayload(w.metadata))
	}

	entries := make([]section.DirectoryEntry, len(w.blocks))
	for i, blk := range w.blocks {
		entries[i] = blk.entry
		entries[i].FilePosition = pos
		pos += appendSegment(&body, section.IDSubBlock, section.SubBlockPayload(entries[i], blk.metadata, blk.data, nil))
	}

	header.DirectoryPosition = pos
	appendSegment(&body, section.IDDirectory, section.DirectoryPayload(entries))

	var head bytes.Buffer
	appendSegment(&head, section.IDFile, header.Bytes())

	n, err := out.Write(head.Bytes())
	if err != nil {
		return int64(n), err
	}
	m, err := out.Write(body.Bytes())

	return int64(n + m), err
}

// appendSegment writes a segment with its allocation rounded up to
// segmentAlignment and returns the number of bytes written.
func appendSegment(b *bytes.Buffer, id string, payload []byte) int64 {
	used := int64(len(payload))
	allocated := (used + segmentAlignment - 1) / segmentAlignment * segmentAlignment

	h := section.SegmentHeader{ID: id, AllocatedSize: allocated, UsedSize: used}
	b.Write(h.Bytes())
	b.Write(payload)
	b.Write(make([]byte, allocated-used))

	return section.SegmentHeaderSize + allocated
}
