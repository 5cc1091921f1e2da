package section

import (
	"fmt"

	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
)

// MetadataXML returns the XML byte range of a ZISRAWMETADATA payload as an
// aliasing buffer.
func MetadataXML(payload *buffer.Buffer) (*buffer.Buffer, error) {
	data := payload.Bytes()
	if len(data) < MetadataHeaderSize {
		return nil, fmt.Errorf("%w: metadata payload of %d bytes", errs.ErrTruncatedSegment, len(data))
	}

	xmlSize := int64(int32(endian.GetLittleEndianEngine().Uint32(data[0:4]))) //nolint: gosec
	if xmlSize < 0 {
		return nil, fmt.Errorf("%w: negative xml size %d", errs.ErrMalformedContainer, xmlSize)
	}

	end := MetadataHeaderSize + xmlSize
	if end > int64(len(data)) {
		return nil, fmt.Errorf("%w: %w", errs.ErrTruncatedSegment, errs.OutOfRange("metadata xml", end, int64(len(data))))
	}

	return payload.Slice(MetadataHeaderSize, int(xmlSize))
}

// MetadataPayload serializes a ZISRAWMETADATA payload.
func MetadataPayload(xml []byte) []byte {
	b := make([]byte, MetadataHeaderSize, MetadataHeaderSize+len(xml))
	endian.GetLittleEndianEngine().PutUint32(b[0:4], uint32(len(xml))) //nolint: gosec

	return append(b, xml...)
}

// DirectoryPayload serializes a ZISRAWDIRECTORY payload, padding every entry
// to DirectoryEntryMinSize.
func DirectoryPayload(entries []DirectoryEntry) []byte {
	b := make([]byte, DirectoryHeaderSize)
	endian.GetLittleEndianEngine().PutUint32(b[0:4], uint32(len(entries))) //nolint: gosec

	for i := range entries {
		start := len(b)
		b = entries[i].AppendTo(b)
		for len(b)-start < entries[i].PaddedSize() {
			b = append(b, 0)
		}
	}

	return b
}
