// Command zisraw-mkfixture writes a synthetic mosaic container for manual
// testing of the decoder tools.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/arloliu/zisraw"
	"github.com/arloliu/zisraw/directory"
	"github.com/arloliu/zisraw/format"
	"github.com/arloliu/zisraw/section"
)

// Config describes the generated container.
type Config struct {
	TilesX, TilesY int
	TileWidth      int
	TileHeight     int
	Channels       int
	PixelType      format.PixelType
	Compression    format.CompressionType
	Overlap        int
}

func main() {
	output := flag.String("output", "fixture.czi", "Output container file")
	tilesX := flag.Int("tiles-x", 2, "Mosaic tiles along X")
	tilesY := flag.Int("tiles-y", 2, "Mosaic tiles along Y")
	tileW := flag.Int("tile-width", 256, "Tile width in pixels")
	tileH := flag.Int("tile-height", 256, "Tile height in pixels")
	channels := flag.Int("channels", 1, "Number of channels")
	pixel := flag.String("pixel", "Gray16", "Pixel type name")
	compression := flag.String("compression", "zstd1", "Compression: none, zstd0 or zstd1")
	overlap := flag.Int("overlap", 0, "Pixels shared by neighbouring tiles")

	flag.Parse()

	pt, ok := format.ParsePixelType(*pixel)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown pixel type %q\n", *pixel)
		os.Exit(1)
	}

	comp, ok := parseCompression(*compression)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported compression %q\n", *compression)
		os.Exit(1)
	}

	cfg := Config{
		TilesX:      *tilesX,
		TilesY:      *tilesY,
		TileWidth:   *tileW,
		TileHeight:  *tileH,
		Channels:    *channels,
		PixelType:   pt,
		Compression: comp,
		Overlap:     *overlap,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w, err := Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n, err := w.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s: %d bytes, %d planes, %d tiles each\n", *output, n, cfg.Channels, cfg.TilesX*cfg.TilesY)
}

func parseCompression(name string) (format.CompressionType, bool) {
	switch strings.ToLower(name) {
	case "none", "raw":
		return format.CompressionNone, true
	case "zstd0", "zstd":
		return format.CompressionZstd0, true
	case "zstd1":
		return format.CompressionZstd1, true
	default:
		return 0, false
	}
}

// Validate checks the fixture geometry.
func (c Config) Validate() error {
	if c.TilesX <= 0 || c.TilesY <= 0 {
		return fmt.Errorf("tile counts must be positive, got %dx%d", c.TilesX, c.TilesY)
	}
	if c.TileWidth <= 0 || c.TileHeight <= 0 {
		return fmt.Errorf("tile size must be positive, got %dx%d", c.TileWidth, c.TileHeight)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.Overlap < 0 || c.Overlap >= c.TileWidth || c.Overlap >= c.TileHeight {
		return fmt.Errorf("overlap %d must be smaller than the tile size", c.Overlap)
	}

	return nil
}

// Build lays out the mosaic. Every byte of tile m in channel c is
// (c*16 + m + 1) so tiles are distinguishable after assembly.
func Build(cfg Config) (*zisraw.Writer, error) {
	bpp := cfg.PixelType.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unknown pixel type %d", cfg.PixelType)
	}

	w := zisraw.NewWriter()
	w.SetMetadata(imageMetadata(cfg))

	stepX := cfg.TileWidth - cfg.Overlap
	stepY := cfg.TileHeight - cfg.Overlap
	pixels := make([]byte, cfg.TileWidth*cfg.TileHeight*bpp)

	for c := range cfg.Channels {
		m := 0
		for ty := range cfg.TilesY {
			for tx := range cfg.TilesX {
				value := byte(c*16 + m + 1)
				for i := range pixels {
					pixels[i] = value
				}

				entry := directory.Entry{
					PixelType:   cfg.PixelType,
					Compression: cfg.Compression,
					Dimensions: []section.DimensionEntry{
						{Dimension: format.DimX, Start: int32(tx * stepX), Size: int32(cfg.TileWidth)},
						{Dimension: format.DimY, Start: int32(ty * stepY), Size: int32(cfg.TileHeight)},
						{Dimension: format.DimC, Start: int32(c), Size: 1},
						{Dimension: format.DimM, Start: int32(m), Size: 1},
					},
				}
				if err := w.AddSubBlock(entry, pixels); err != nil {
					return nil, fmt.Errorf("tile %d of channel %d: %w", m, c, err)
				}
				m++
			}
		}
	}

	return w, nil
}

func imageMetadata(cfg Config) []byte {
	info, _ := cfg.PixelType.Info()
	width := cfg.TilesX*(cfg.TileWidth-cfg.Overlap) + cfg.Overlap
	height := cfg.TilesY*(cfg.TileHeight-cfg.Overlap) + cfg.Overlap

	return fmt.Appendf(nil, `<?xml version="1.0"?>
<ImageDocument>
  <Metadata>
    <Information>
      <Image>
        <PixelType>%s</PixelType>
        <SizeX>%d</SizeX>
        <SizeY>%d</SizeY>
        <SizeC>%d</SizeC>
        <SizeM>%d</SizeM>
      </Image>
    </Information>
  </Metadata>
</ImageDocument>
`, info.Name, width, height, cfg.Channels, cfg.TilesX*cfg.TilesY)
}
