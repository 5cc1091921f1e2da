package section

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
)

// SegmentHeader is the 32-byte prefix of every segment.
type SegmentHeader struct {
	// ID is the segment type tag with NUL padding removed.
	//
	// Offset: 0, Size: 16 bytes
	ID string
	// AllocatedSize is the payload space reserved on disk.
	//
	// Offset: 16, Size: 8 bytes
	AllocatedSize int64
	// UsedSize is the number of payload bytes in use. It never exceeds AllocatedSize.
	//
	// Offset: 24, Size: 8 bytes
	UsedSize int64
}

// ParseSegmentHeader parses and validates a segment header.
//
// Returns:
//   - SegmentHeader: the parsed header
//   - error: ErrTruncatedSegment, ErrInvalidSegmentID or ErrInvalidSegmentSize
func ParseSegmentHeader(data []byte) (SegmentHeader, error) {
	if len(data) < SegmentHeaderSize {
		return SegmentHeader{}, fmt.Errorf("%w: segment header needs %d bytes, got %d", errs.ErrTruncatedSegment, SegmentHeaderSize, len(data))
	}

	engine := endian.GetLittleEndianEngine()
	h := SegmentHeader{
		ID:            string(bytes.TrimRight(data[:SegmentIDSize], "\x00")),
		AllocatedSize: int64(engine.Uint64(data[16:24])), //nolint: gosec
		UsedSize:      int64(engine.Uint64(data[24:32])), //nolint: gosec
	}

	return h, h.Validate()
}

// Validate checks the id and the size fields.
func (h SegmentHeader) Validate() error {
	if !IsRecognizedID(h.ID) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidSegmentID, h.ID)
	}

	if h.AllocatedSize < 0 || h.UsedSize < 0 {
		return fmt.Errorf("%w: negative size allocated=%d used=%d", errs.ErrMalformedContainer, h.AllocatedSize, h.UsedSize)
	}

	if h.UsedSize > h.AllocatedSize {
		return fmt.Errorf("%w: used=%d allocated=%d", errs.ErrInvalidSegmentSize, h.UsedSize, h.AllocatedSize)
	}

	return nil
}

// Bytes serializes the header.
func (h SegmentHeader) Bytes() []byte {
	b := make([]byte, SegmentHeaderSize)
	copy(b[:SegmentIDSize], h.ID)

	engine := endian.GetLittleEndianEngine()
	engine.PutUint64(b[16:24], uint64(h.AllocatedSize)) //nolint: gosec
	engine.PutUint64(b[24:32], uint64(h.UsedSize))      //nolint: gosec

	return b
}

// Segment is a parsed segment: its header, file offset and payload bytes.
type Segment struct {
	Header SegmentHeader
	Offset int64
	// Payload holds UsedSize bytes starting right after the header.
	Payload *buffer.Buffer
}

// NextOffset returns the file offset of the segment following seg.
func (seg Segment) NextOffset() int64 {
	return NextOffset(seg)
}

// Release drops the segment's reference on its payload.
func (seg Segment) Release() {
	seg.Payload.Release()
}

// NextOffset returns offset + header + AllocatedSize of seg.
func NextOffset(seg Segment) int64 {
	return seg.Offset + SegmentHeaderSize + seg.Header.AllocatedSize
}

// ReadSegment parses the segment starting at offset of buf. The payload is an
// aliasing slice of buf.
func ReadSegment(buf *buffer.Buffer, offset int64) (Segment, error) {
	if offset < 0 || offset > int64(buf.Len())-SegmentHeaderSize {
		return Segment{}, fmt.Errorf("%w: header at %d: %w", errs.ErrTruncatedSegment, offset,
			errs.OutOfRange("segment header", offset+SegmentHeaderSize, int64(buf.Len())))
	}

	h, err := ParseSegmentHeader(buf.Bytes()[offset : offset+SegmentHeaderSize])
	if err != nil {
		return Segment{}, fmt.Errorf("segment at %d: %w", offset, err)
	}

	start := offset + SegmentHeaderSize
	if h.UsedSize > int64(buf.Len())-start {
		return Segment{}, fmt.Errorf("%w: %s at %d: %w", errs.ErrTruncatedSegment, h.ID, offset,
			errs.OutOfRange("payload", start+h.UsedSize, int64(buf.Len())))
	}

	payload, err := buf.Slice(int(start), int(h.UsedSize))
	if err != nil {
		return Segment{}, err
	}

	return Segment{Header: h, Offset: offset, Payload: payload}, nil
}

// ReadSegmentAt reads the segment starting at offset of r, whose total length
// is size. The payload is copied into a new buffer.
func ReadSegmentAt(r io.ReaderAt, size, offset int64) (Segment, error) {
	if offset < 0 || offset > size-SegmentHeaderSize {
		return Segment{}, fmt.Errorf("%w: header at %d: %w", errs.ErrTruncatedSegment, offset,
			errs.OutOfRange("segment header", offset+SegmentHeaderSize, size))
	}

	var hdr [SegmentHeaderSize]byte
	if err := readFull(r, hdr[:], offset); err != nil {
		return Segment{}, fmt.Errorf("%w: reading header at %d: %w", errs.ErrTruncatedSegment, offset, err)
	}

	h, err := ParseSegmentHeader(hdr[:])
	if err != nil {
		return Segment{}, fmt.Errorf("segment at %d: %w", offset, err)
	}

	start := offset + SegmentHeaderSize
	if h.UsedSize > size-start {
		return Segment{}, fmt.Errorf("%w: %s at %d: %w", errs.ErrTruncatedSegment, h.ID, offset,
			errs.OutOfRange("payload", start+h.UsedSize, size))
	}

	payload := make([]byte, h.UsedSize)
	if err := readFull(r, payload, start); err != nil {
		return Segment{}, fmt.Errorf("%w: reading %s payload at %d: %w", errs.ErrTruncatedSegment, h.ID, start, err)
	}

	return Segment{Header: h, Offset: offset, Payload: buffer.New(payload)}, nil
}

// ExpectID returns ErrUnexpectedSegment unless seg has the given id.
func ExpectID(seg Segment, id string) error {
	if seg.Header.ID != id {
		return fmt.Errorf("%w: want %s at %d, got %s", errs.ErrUnexpectedSegment, id, seg.Offset, seg.Header.ID)
	}

	return nil
}

// readFull reads len(p) bytes at off. An io.EOF accompanying a complete read is
// not an error.
func readFull(r io.ReaderAt, p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}

	n, err := r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}

	return err
}
