package directory

import (
	"fmt"

	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
	"github.com/arloliu/zisraw/section"
)

// Entry is one sub-block pointer.
type Entry = section.DirectoryEntry

// Parse parses a ZISRAWDIRECTORY segment into its entries.
func Parse(seg section.Segment) ([]Entry, error) {
	if err := section.ExpectID(seg, section.IDDirectory); err != nil {
		return nil, err
	}

	return ParsePayload(seg.Payload.Bytes())
}

// ParsePayload parses the entries of a directory payload.
//
// Every entry occupies at least section.DirectoryEntryMinSize bytes. An entry
// whose declared dimension count reaches past the payload fails with
// errs.ErrMalformedContainer.
func ParsePayload(data []byte) ([]Entry, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: directory payload of %d bytes", errs.ErrTruncatedSegment, len(data))
	}

	count := int64(int32(endian.GetLittleEndianEngine().Uint32(data[0:4]))) //nolint: gosec
	if count < 0 {
		return nil, fmt.Errorf("%w: negative entry count %d", errs.ErrMalformedContainer, count)
	}

	// every entry needs at least its fixed part; reject absurd counts up front
	offset := min(section.DirectoryHeaderSize, len(data))
	if count*section.DirectoryEntryFixedSize > int64(len(data)-offset) {
		return nil, fmt.Errorf("%w: %d entries do not fit in %d bytes", errs.ErrInvalidDirectoryEntry, count, len(data)-offset)
	}

	entries := make([]Entry, 0, count)
	for i := range count {
		entry, size, err := section.ParseDirectoryEntry(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("directory entry %d: %w", i, err)
		}

		entries = append(entries, entry)
		offset += max(size, section.DirectoryEntryMinSize)
		if offset > len(data) {
			// the last entry may omit its padding
			if i != count-1 {
				return nil, fmt.Errorf("%w: entry %d padding runs past the directory", errs.ErrInvalidDirectoryEntry, i)
			}
			offset = len(data)
		}
	}

	return entries, nil
}
