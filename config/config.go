// Package config loads decoder settings from YAML files and turns them into
// reader options and a logger.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/arloliu/zisraw"
)

// Config is the YAML configuration of the decoder tools.
type Config struct {
	Decode struct {
		// Workers is the number of tiles decoded concurrently per plane.
		Workers int `yaml:"workers"`
		// PlaneWorkers is the number of planes assembled concurrently.
		PlaneWorkers int `yaml:"planeWorkers"`
		// NoPyramid drops downsampled pyramid sub-blocks.
		NoPyramid bool `yaml:"noPyramid"`
		// DumpXML writes the raw metadata XML to DumpXMLPath before parsing.
		DumpXML     bool   `yaml:"dumpXML"`
		DumpXMLPath string `yaml:"dumpXMLPath"`
	} `yaml:"decode"`

	Log struct {
		// Level is a logrus level name: debug, info, warn, error.
		Level string `yaml:"level"`
		// Format is "text" or "json".
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Decode.Workers = runtime.NumCPU()
	cfg.Decode.PlaneWorkers = 2

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"

	return cfg
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint: gosec
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks value ranges and names.
func (c *Config) Validate() error {
	if c.Decode.Workers <= 0 {
		return fmt.Errorf("decode.workers must be positive, got %d", c.Decode.Workers)
	}
	if c.Decode.PlaneWorkers <= 0 {
		return fmt.Errorf("decode.planeWorkers must be positive, got %d", c.Decode.PlaneWorkers)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// Logger builds a logrus logger writing to out.
func (c *Config) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	if strings.EqualFold(c.Log.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return log, nil
}

// ReaderOptions converts the decode section into reader options.
func (c *Config) ReaderOptions(log logrus.FieldLogger) []zisraw.Option {
	opts := []zisraw.Option{
		zisraw.WithWorkers(c.Decode.Workers),
		zisraw.WithPlaneWorkers(c.Decode.PlaneWorkers),
		zisraw.WithLogger(log),
	}
	if c.Decode.NoPyramid {
		opts = append(opts, zisraw.WithNoPyramid())
	}
	if c.Decode.DumpXML {
		opts = append(opts, zisraw.WithDumpXML(c.Decode.DumpXMLPath))
	}

	return opts
}
