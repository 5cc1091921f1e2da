package section

import (
	"fmt"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
)

// SubBlockHeader is the fixed part of a ZISRAWSUBBLOCK payload.
type SubBlockHeader struct {
	MetadataSize   int32          // byte offset 0-3
	AttachmentSize int32          // byte offset 4-7
	DataSize       int64          // byte offset 8-15
	Entry          DirectoryEntry // byte offset 16, unpadded
}

// HeaderSize returns the number of payload bytes preceding the sub-block metadata.
func (h *SubBlockHeader) HeaderSize() int {
	return max(SubBlockMinHeaderSize, SubBlockFixedSize+h.Entry.Size())
}

// SubBlock is a parsed sub-block segment. Metadata and Data alias the
// segment payload.
type SubBlock struct {
	Header   SubBlockHeader
	Metadata *buffer.Buffer
	Data     *buffer.Buffer
}

// Release drops the sub-block's references on the segment payload.
func (sb SubBlock) Release() {
	sb.Metadata.Release()
	sb.Data.Release()
}

// ParseSubBlock splits a ZISRAWSUBBLOCK payload into its parts.
func ParseSubBlock(payload *buffer.Buffer) (SubBlock, error) {
	data := payload.Bytes()
	if len(data) < SubBlockFixedSize {
		return SubBlock{}, fmt.Errorf("%w: sub-block payload of %d bytes", errs.ErrTruncatedSegment, len(data))
	}

	engine := endian.GetLittleEndianEngine()
	h := SubBlockHeader{
		MetadataSize:   int32(engine.Uint32(data[0:4])),  //nolint: gosec
		AttachmentSize: int32(engine.Uint32(data[4:8])),  //nolint: gosec
		DataSize:       int64(engine.Uint64(data[8:16])), //nolint: gosec
	}

	entry, _, err := ParseDirectoryEntry(data[SubBlockFixedSize:])
	if err != nil {
		return SubBlock{}, fmt.Errorf("sub-block entry: %w", err)
	}
	h.Entry = entry

	if h.MetadataSize < 0 || h.AttachmentSize < 0 || h.DataSize < 0 {
		return SubBlock{}, fmt.Errorf("%w: negative sub-block part size", errs.ErrMalformedContainer)
	}

	// part sizes may be arbitrary int64 values, so they are compared with the
	// remaining bytes instead of being summed
	metaStart := int64(h.HeaderSize())
	rest := int64(len(data)) - metaStart
	for _, part := range []struct {
		name string
		size int64
	}{
		{"metadata", int64(h.MetadataSize)},
		{"data", h.DataSize},
		{"attachment", int64(h.AttachmentSize)},
	} {
		if rest < 0 || part.size > rest {
			return SubBlock{}, fmt.Errorf("%w: %w: sub-block %s needs %d bytes, %d left",
				errs.ErrTruncatedSegment, errs.ErrOutOfRange, part.name, part.size, max(rest, 0))
		}
		rest -= part.size
	}

	dataStart := metaStart + int64(h.MetadataSize)

	meta, err := payload.Slice(int(metaStart), int(h.MetadataSize))
	if err != nil {
		return SubBlock{}, err
	}

	pixels, err := payload.Slice(int(dataStart), int(h.DataSize))
	if err != nil {
		meta.Release()
		return SubBlock{}, err
	}

	return SubBlock{Header: h, Metadata: meta, Data: pixels}, nil
}

// SubBlockPayload serializes a sub-block payload from its parts.
func SubBlockPayload(entry DirectoryEntry, metadata, data, attachment []byte) []byte {
	h := SubBlockHeader{Entry: entry}
	size := h.HeaderSize() + len(metadata) + len(data) + len(attachment)
	b := make([]byte, 0, size)

	engine := endian.GetLittleEndianEngine()
	b = engine.AppendUint32(b, uint32(len(metadata)))   //nolint: gosec
	b = engine.AppendUint32(b, uint32(len(attachment))) //nolint: gosec
	b = engine.AppendUint64(b, uint64(len(data)))
	b = entry.AppendTo(b)
	b = b[:h.HeaderSize()]
	b = append(b, metadata...)
	b = append(b, data...)
	b = append(b, attachment...)

	return b
}
