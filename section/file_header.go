package section

import (
	"fmt"

	"github.com/arloliu/zisraw/endian"
	"github.com/arloliu/zisraw/errs"
)

// FileHeader is the payload of the ZISRAWFILE segment, always the first
// segment of a container.
type FileHeader struct {
	Major    int32    // byte offset 0-3
	Minor    int32    // byte offset 4-7
	Primary  [16]byte // byte offset 16-31, GUID of the first file part
	FileGUID [16]byte // byte offset 32-47
	FilePart int32    // byte offset 48-51
	// DirectoryPosition is the file offset of the ZISRAWDIRECTORY segment.
	DirectoryPosition int64 // byte offset 52-59
	// MetadataPosition is the file offset of the ZISRAWMETADATA segment, 0 if absent.
	MetadataPosition int64 // byte offset 60-67
	UpdatePending    bool  // byte offset 68-71
	// AttachmentDirectoryPosition is the file offset of the ZISRAWATTDIR segment, 0 if absent.
	AttachmentDirectoryPosition int64 // byte offset 72-79
}

// ParseFileHeader parses the ZISRAWFILE payload.
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < FileHeaderSize {
		return FileHeader{}, fmt.Errorf("%w: file header needs %d bytes, got %d", errs.ErrTruncatedSegment, FileHeaderSize, len(data))
	}

	engine := endian.GetLittleEndianEngine()
	h := FileHeader{
		Major:                       int32(engine.Uint32(data[0:4])),   //nolint: gosec
		Minor:                       int32(engine.Uint32(data[4:8])),   //nolint: gosec
		FilePart:                    int32(engine.Uint32(data[48:52])), //nolint: gosec
		DirectoryPosition:           int64(engine.Uint64(data[52:60])), //nolint: gosec
		MetadataPosition:            int64(engine.Uint64(data[60:68])), //nolint: gosec
		UpdatePending:               engine.Uint32(data[68:72]) != 0,
		AttachmentDirectoryPosition: int64(engine.Uint64(data[72:80])), //nolint: gosec
	}
	copy(h.Primary[:], data[16:32])
	copy(h.FileGUID[:], data[32:48])

	if h.DirectoryPosition <= 0 {
		return h, errs.ErrNoDirectory
	}

	return h, nil
}

// Bytes serializes the header into a FileHeaderAllocatedSize payload.
func (h FileHeader) Bytes() []byte {
	b := make([]byte, FileHeaderAllocatedSize)
	engine := endian.GetLittleEndianEngine()

	engine.PutUint32(b[0:4], uint32(h.Major)) //nolint: gosec
	engine.PutUint32(b[4:8], uint32(h.Minor)) //nolint: gosec
	copy(b[16:32], h.Primary[:])
	copy(b[32:48], h.FileGUID[:])
	engine.PutUint32(b[48:52], uint32(h.FilePart))          //nolint: gosec
	engine.PutUint64(b[52:60], uint64(h.DirectoryPosition)) //nolint: gosec
	engine.PutUint64(b[60:68], uint64(h.MetadataPosition))  //nolint: gosec
	if h.UpdatePending {
		engine.PutUint32(b[68:72], 1)
	}
	engine.PutUint64(b[72:80], uint64(h.AttachmentDirectoryPosition)) //nolint: gosec

	return b
}
