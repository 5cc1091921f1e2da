package zisraw

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/arloliu/zisraw/decoder"
	"github.com/arloliu/zisraw/internal/options"
	"github.com/arloliu/zisraw/metadata"
	"github.com/arloliu/zisraw/mosaic"
)

// readerConfig holds the settings of a Reader.
type readerConfig struct {
	noPyramid    bool
	dumpXML      string
	workers      int
	planeWorkers int
	progress     mosaic.ProgressFunc
	log          logrus.FieldLogger
	registry     *decoder.Registry
}

func defaultReaderConfig() *readerConfig {
	return &readerConfig{
		workers:      runtime.NumCPU(),
		planeWorkers: 2,
		log:          logrus.StandardLogger(),
	}
}

// Option configures a Reader.
type Option = options.Option[*readerConfig]

// WithNoPyramid excludes downsampled pyramid sub-blocks from plane grouping.
func WithNoPyramid() Option {
	return options.NoError(func(c *readerConfig) {
		c.noPyramid = true
	})
}

// WithDumpXML writes the raw metadata XML to path before parsing it. An empty
// path selects metadata.DefaultDumpPath.
func WithDumpXML(path string) Option {
	return options.NoError(func(c *readerConfig) {
		if path == "" {
			path = metadata.DefaultDumpPath
		}
		c.dumpXML = path
	})
}

// WithWorkers sets the number of tiles decoded concurrently within a plane.
func WithWorkers(n int) Option {
	return options.New(func(c *readerConfig) error {
		if n <= 0 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		c.workers = n

		return nil
	})
}

// WithPlaneWorkers sets the number of planes assembled concurrently.
func WithPlaneWorkers(n int) Option {
	return options.New(func(c *readerConfig) error {
		if n <= 0 {
			return fmt.Errorf("plane worker count must be positive, got %d", n)
		}
		c.planeWorkers = n

		return nil
	})
}

// WithProgress sets a callback receiving the allocated size of every
// sub-block segment once it has been decoded and placed.
func WithProgress(fn func(bytes int64)) Option {
	return options.NoError(func(c *readerConfig) {
		c.progress = fn
	})
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return options.NoError(func(c *readerConfig) {
		if log != nil {
			c.log = log
		}
	})
}

// WithRegistry sets the decoder registry, for example one carrying a wavelet
// decoder. By default each Reader builds its own.
func WithRegistry(reg *decoder.Registry) Option {
	return options.NoError(func(c *readerConfig) {
		c.registry = reg
	})
}
