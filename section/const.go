package section

// Segment ids. On disk they occupy 16 bytes, NUL padded.
const (
	IDFile          = "ZISRAWFILE"
	IDDirectory     = "ZISRAWDIRECTORY"
	IDSubBlock      = "ZISRAWSUBBLOCK"
	IDMetadata      = "ZISRAWMETADATA"
	IDAttachment    = "ZISRAWATTACH"
	IDAttachmentDir = "ZISRAWATTDIR"
	IDDeleted       = "DELETED"
)

var recognizedIDs = map[string]struct{}{
	IDFile:          {},
	IDDirectory:     {},
	IDSubBlock:      {},
	IDMetadata:      {},
	IDAttachment:    {},
	IDAttachmentDir: {},
	IDDeleted:       {},
}

// IsRecognizedID reports whether id is a known segment type.
func IsRecognizedID(id string) bool {
	_, ok := recognizedIDs[id]
	return ok
}

// offset and section sizes in the container
const (
	SegmentIDSize     = 16                    // segment type tag
	SegmentHeaderSize = SegmentIDSize + 8 + 8 // id + allocated size + used size

	FileHeaderSize          = 80  // meaningful bytes of the ZISRAWFILE payload
	FileHeaderAllocatedSize = 512 // payload bytes reserved for the file header

	MetadataHeaderSize  = 256 // xml size + attachment size + spare
	DirectoryHeaderSize = 128 // entry count + reserved

	DirectoryEntryFixedSize = 32  // DV entry without dimensions
	DimensionEntrySize      = 20  // one dimension descriptor
	DirectoryEntryMinSize   = 128 // minimum footprint of an entry inside the directory

	SubBlockFixedSize     = 16  // metadata size + attachment size + data size
	SubBlockMinHeaderSize = 256 // sub-block header incl. entry, before metadata

	SchemaDV = "DV"
)
