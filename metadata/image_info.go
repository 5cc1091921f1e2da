package metadata

import "github.com/arloliu/zisraw/format"

// ImagePath is where the document metadata keeps the image description.
const ImagePath = "ImageDocument/Metadata/Information/Image"

// ImageInfo is the image description recovered from document metadata.
// Sizes that the document does not declare are zero.
type ImageInfo struct {
	SizeX, SizeY, SizeZ int
	SizeC, SizeT, SizeS int
	SizeM               int
	PixelType           format.PixelType
	HasPixelType        bool
}

// ExtractImageInfo reads the image description from a document map. The
// second result is false when the document has no image section.
func ExtractImageInfo(m *PropertyMap) (ImageInfo, bool) {
	img, ok := m.Sub(ImagePath)
	if !ok {
		return ImageInfo{}, false
	}

	var info ImageInfo
	for key, dst := range map[string]*int{
		"SizeX": &info.SizeX,
		"SizeY": &info.SizeY,
		"SizeZ": &info.SizeZ,
		"SizeC": &info.SizeC,
		"SizeT": &info.SizeT,
		"SizeS": &info.SizeS,
		"SizeM": &info.SizeM,
	} {
		if v, ok := img.Int(key); ok {
			*dst = v
		}
	}

	if name, ok := img.String("PixelType"); ok {
		info.PixelType, info.HasPixelType = format.ParsePixelType(name)
	}

	return info, true
}
