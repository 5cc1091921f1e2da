// Package section defines the low-level binary structures and constants of the
// ZISRAW container format.
//
// A container is a sequence of segments. Every segment starts with a 32-byte
// header followed by its payload:
//
//	┌─────────────────────────────────────────────────────────┐
//	│ Segment header (32 bytes)                               │
//	│  - Id (16 bytes): ASCII, NUL padded                     │
//	│  - AllocatedSize (8 bytes): payload bytes reserved      │
//	│  - UsedSize (8 bytes): payload bytes in use             │
//	├─────────────────────────────────────────────────────────┤
//	│ Payload (UsedSize bytes, then padding to AllocatedSize) │
//	└─────────────────────────────────────────────────────────┘
//
// The next segment starts AllocatedSize bytes after the end of the header.
//
// # Segment Types
//
//   - ZISRAWFILE: file header with the positions of the directory and metadata
//   - ZISRAWMETADATA: document metadata XML
//   - ZISRAWDIRECTORY: one DV entry per sub-block
//   - ZISRAWSUBBLOCK: a tile: DV entry, metadata XML, pixel data, attachment
//   - ZISRAWATTACH, ZISRAWATTDIR, DELETED: recognized and skipped
//
// # Directory Entries
//
// A DV entry is 32 fixed bytes followed by one 20-byte descriptor per
// dimension. Inside the directory segment every entry occupies at least
// DirectoryEntryMinSize bytes; inside a sub-block the entry is unpadded and the
// whole sub-block header is padded to SubBlockMinHeaderSize.
//
// All integers are little-endian. Parsers in this package never read past the
// given byte range; violations are reported as errs.ErrMalformedContainer.
package section
