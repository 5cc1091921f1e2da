package main

import (
	"encoding/binary"
	"fmt"
	"math/cmplx"
	"unsafe"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/zisraw"
	"github.com/arloliu/zisraw/buffer"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/internal/pool"
)

// Stats summarizes the sample values of a plane. Color planes are summarized
// over all components; complex planes over magnitudes.
type Stats struct {
	Min, Max     float64
	Mean, StdDev float64
}

// planeStats computes the intensity statistics of p. Decoded planes are in
// host byte order.
func planeStats(p *zisraw.Plane) (Stats, error) {
	switch p.PixelType {
	case format.PixelGray8, format.PixelBgr24, format.PixelBgra32:
		return scalarStats[uint8](p.Buffer)
	case format.PixelGray16, format.PixelBgr48:
		return scalarStats[uint16](p.Buffer)
	case format.PixelGray32Float, format.PixelBgr96Float:
		return scalarStats[float32](p.Buffer)
	case format.PixelGray32:
		return scalarStats[int32](p.Buffer)
	case format.PixelGray64:
		return scalarStats[float64](p.Buffer)
	case format.PixelGray64ComplexFloat, format.PixelBgr192ComplexFloat:
		return complexStats(p.Buffer)
	default:
		return Stats{}, fmt.Errorf("no statistics for %s", p.PixelType)
	}
}

func scalarStats[T uint8 | uint16 | int32 | float32 | float64](b *buffer.Buffer) (Stats, error) {
	var zero T
	count := b.Len() / int(unsafe.Sizeof(zero))

	v, err := buffer.NewView[T](b, 0, count, binary.NativeEndian)
	if err != nil {
		return Stats{}, err
	}
	defer v.Release()

	samples, cleanup := pool.GetFloat64Slice(count)
	defer cleanup()

	for i, e := range v.Elements() {
		samples[i] = float64(e)
	}

	return summarize(samples), nil
}

func complexStats(b *buffer.Buffer) (Stats, error) {
	count := b.Len() / 8

	v, err := buffer.NewView[complex64](b, 0, count, binary.NativeEndian)
	if err != nil {
		return Stats{}, err
	}
	defer v.Release()

	samples, cleanup := pool.GetFloat64Slice(count)
	defer cleanup()

	for i, e := range v.Elements() {
		samples[i] = cmplx.Abs(complex128(e))
	}

	return summarize(samples), nil
}

func summarize(samples []float64) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	mean, std := stat.MeanStdDev(samples, nil)

	return Stats{
		Min:    floats.Min(samples),
		Max:    floats.Max(samples),
		Mean:   mean,
		StdDev: std,
	}
}
