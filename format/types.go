// Package format defines the numeric codes of the container format: pixel
// types, compression schemes and dimension names.
//
// The numeric values are part of the on-disk format and must never change.
package format

import (
	"maps"
	"slices"
	"strconv"
)

type (
	PixelType       int32
	CompressionType int32
	PyramidType     uint8
)

const (
	PixelGray8              PixelType = 0  // 8-bit gray.
	PixelGray16             PixelType = 1  // 16-bit gray.
	PixelGray32Float        PixelType = 2  // 32-bit float gray.
	PixelBgr24              PixelType = 3  // 3x8-bit color stored B,G,R.
	PixelBgr48              PixelType = 4  // 3x16-bit color stored B,G,R.
	PixelBgr96Float         PixelType = 8  // 3x32-bit float color stored B,G,R.
	PixelBgra32             PixelType = 9  // 4x8-bit color stored B,G,R,A.
	PixelGray64ComplexFloat PixelType = 10 // complex float gray (two float32).
	PixelBgr192ComplexFloat PixelType = 11 // complex float color (three complex64).
	PixelGray32             PixelType = 12 // 32-bit integer gray.
	PixelGray64             PixelType = 13 // 64-bit float gray.
)

const (
	CompressionNone   CompressionType = 0 // CompressionNone stores raw pixels.
	CompressionJPEG   CompressionType = 1 // CompressionJPEG is recognized but not decoded.
	CompressionLZW    CompressionType = 2 // CompressionLZW is recognized but not decoded.
	CompressionJPEGXR CompressionType = 4 // CompressionJPEGXR is the wavelet codec, decoded by an external routine.
	CompressionZstd0  CompressionType = 5 // CompressionZstd0 is a plain zstd frame.
	CompressionZstd1  CompressionType = 6 // CompressionZstd1 is a zstd frame behind a small header.
)

const (
	PyramidNone   PyramidType = 0
	PyramidSingle PyramidType = 1
	PyramidMulti  PyramidType = 2
)

// PixelInfo describes the memory layout of a pixel type.
type PixelInfo struct {
	Type          PixelType
	Name          string
	BytesPerPixel int
	Components    int  // scalar channels per pixel
	ComponentSize int  // byte width swapped as one unit on endian conversion
	Complex       bool // components are real/imaginary pairs
}

var pixelInfos = map[PixelType]PixelInfo{
	PixelGray8:              {PixelGray8, "Gray8", 1, 1, 1, false},
	PixelGray16:             {PixelGray16, "Gray16", 2, 1, 2, false},
	PixelGray32Float:        {PixelGray32Float, "Gray32Float", 4, 1, 4, false},
	PixelBgr24:              {PixelBgr24, "Bgr24", 3, 3, 1, false},
	PixelBgr48:              {PixelBgr48, "Bgr48", 6, 3, 2, false},
	PixelBgr96Float:         {PixelBgr96Float, "Bgr96Float", 12, 3, 4, false},
	PixelBgra32:             {PixelBgra32, "Bgra32", 4, 4, 1, false},
	PixelGray64ComplexFloat: {PixelGray64ComplexFloat, "Gray64ComplexFloat", 8, 1, 4, true},
	PixelBgr192ComplexFloat: {PixelBgr192ComplexFloat, "Bgr192ComplexFloat", 24, 3, 4, true},
	PixelGray32:             {PixelGray32, "Gray32", 4, 1, 4, false},
	PixelGray64:             {PixelGray64, "Gray64", 8, 1, 8, false},
}

// Info returns the layout of p. The second result is false for unknown codes.
func (p PixelType) Info() (PixelInfo, bool) {
	info, ok := pixelInfos[p]
	return info, ok
}

// BytesPerPixel returns the pixel size in bytes, or 0 for unknown codes.
func (p PixelType) BytesPerPixel() int {
	return pixelInfos[p].BytesPerPixel
}

// IsComplex reports whether p stores complex samples.
func (p PixelType) IsComplex() bool {
	return pixelInfos[p].Complex
}

func (p PixelType) String() string {
	if info, ok := pixelInfos[p]; ok {
		return info.Name
	}

	return "Unknown(" + strconv.Itoa(int(p)) + ")"
}

// PixelTypes returns every pixel type with a known layout, in ascending code order.
func PixelTypes() []PixelType {
	return slices.Sorted(maps.Keys(pixelInfos))
}

// ParsePixelType maps the metadata spelling of a pixel type ("Gray16", "Bgr24")
// to its code.
func ParsePixelType(name string) (PixelType, bool) {
	for code, info := range pixelInfos {
		if info.Name == name {
			return code, true
		}
	}

	return 0, false
}

// IsRecognized reports whether c is a compression code of the format, whether
// or not a decoder exists for it.
func (c CompressionType) IsRecognized() bool {
	switch c {
	case CompressionNone, CompressionJPEG, CompressionLZW, CompressionJPEGXR, CompressionZstd0, CompressionZstd1:
		return true
	default:
		return false
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionJPEG:
		return "JPEG"
	case CompressionLZW:
		return "LZW"
	case CompressionJPEGXR:
		return "JPEGXR"
	case CompressionZstd0:
		return "Zstd0"
	case CompressionZstd1:
		return "Zstd1"
	default:
		return "Unknown(" + strconv.Itoa(int(c)) + ")"
	}
}

// Dimension names used by directory entries.
const (
	DimX = "X" // width
	DimY = "Y" // height
	DimZ = "Z" // focus plane
	DimC = "C" // channel
	DimT = "T" // time point
	DimR = "R" // rotation
	DimI = "I" // illumination
	DimH = "H" // phase
	DimV = "V" // view
	DimB = "B" // block (legacy)
	DimS = "S" // scene
	DimM = "M" // mosaic tile index
)

// PlaneDimensions lists the dimensions that identify a plane, in the order they
// appear in plane identifiers.
var PlaneDimensions = []string{DimS, DimT, DimC, DimZ, DimR, DimI, DimH, DimV, DimB}

// IsSpatial reports whether name is one of the in-plane axes.
func IsSpatial(name string) bool {
	return name == DimX || name == DimY
}
