// Command zisrawinfo decodes a ZISRAW container and prints its planes,
// per-plane failures and pixel intensity statistics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/arloliu/zisraw"
	"github.com/arloliu/zisraw/config"
	"github.com/arloliu/zisraw/directory"
)

func main() {
	configPath := flag.String("config", "zisraw.yaml", "YAML configuration file")
	input := flag.String("input", "", "Container file to decode")
	noPyramid := flag.Bool("nopyramid", false, "Drop pyramid sub-blocks")
	dumpXML := flag.String("dump-xml", "", "Write the raw metadata XML to this path")
	showStats := flag.Bool("stats", true, "Print intensity statistics per plane")
	indexOnly := flag.Bool("index", false, "Print the directory without decoding")

	flag.Parse()

	if *input == "" && flag.NArg() > 0 {
		*input = flag.Arg(0)
	}
	if *input == "" {
		fmt.Fprintf(os.Stderr, "Error: -input is required\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *noPyramid {
		cfg.Decode.NoPyramid = true
	}
	if *dumpXML != "" {
		cfg.Decode.DumpXML = true
		cfg.Decode.DumpXMLPath = *dumpXML
	}

	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	r, err := zisraw.Open(*input, cfg.ReaderOptions(log)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer r.Close()

	if *indexOnly {
		idx, err := r.ReadIndex()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		printIndex(idx)

		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := r.Decode(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printResult(res, *showStats)

	failed := len(res.Failures) > 0
	res.Release()

	if failed {
		_ = r.Close()
		os.Exit(2)
	}
}

func printIndex(idx *zisraw.Index) {
	fmt.Printf("Version: %d.%d\n", idx.Header.Major, idx.Header.Minor)
	if idx.HasImage {
		fmt.Printf("Image:   %dx%d, %d channels\n", idx.Image.SizeX, idx.Image.SizeY, idx.Image.SizeC)
	}
	fmt.Printf("Entries: %d\n\n", len(idx.Entries))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPixel\tCompression\tPyramid\tDimensions")
	for i := range idx.Entries {
		e := &idx.Entries[i]
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", i, e.PixelType, e.Compression, e.PyramidType, formatDims(e))
	}
	w.Flush()
}

func printResult(res *zisraw.Result, showStats bool) {
	fmt.Printf("Planes:   %d\n", len(res.Planes))
	fmt.Printf("Failures: %d\n\n", len(res.Failures))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	header := "Plane\tPixel\tShape\tTiles\tChecksum"
	if showStats {
		header += "\tMin\tMax\tMean\tStdDev"
	}
	fmt.Fprintln(w, header)

	for _, p := range res.Planes {
		fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%016x", p.ID, p.PixelType, p.Shape, p.Tiles, p.Checksum())
		if showStats {
			s, err := planeStats(p)
			if err != nil {
				fmt.Fprintf(w, "\t%v", err)
			} else {
				fmt.Fprintf(w, "\t%.2f\t%.2f\t%.2f\t%.2f", s.Min, s.Max, s.Mean, s.StdDev)
			}
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	if len(res.Failures) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("Failed planes:")
	for _, f := range res.Failures {
		fmt.Printf("  %s: %v\n", f.Plane, f.Err)
	}
}

func formatDims(e *directory.Entry) string {
	var b strings.Builder
	for i, d := range e.Dimensions {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d:%d", d.Dimension, d.Start, d.Extent())
	}

	return b.String()
}
