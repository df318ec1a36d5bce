// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

// Package config reads the settings of the tdeflc command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tdefl/tdefl/flate"
)

// Config lists the config fields.
type Config struct {
	Level      int      `yaml:"level"`
	WindowBits int      `yaml:"windowBits"`
	Strategy   string   `yaml:"strategy"`
	ChunkSize  int      `yaml:"chunkSize"`
	OutBufSize int      `yaml:"outBufSize"`
	Zlib       bool     `yaml:"zlib"`
	Verify     bool     `yaml:"verify"`
	Bench      []string `yaml:"bench"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		Level:      flate.DefaultCompression,
		WindowBits: -15,
		Strategy:   "default",
		ChunkSize:  64 << 10,
		OutBufSize: 64 << 10,
	}
}

var strategies = map[string]flate.Strategy{
	"default":     flate.DefaultStrategy,
	"filtered":    flate.Filtered,
	"huffmanonly": flate.HuffmanOnly,
	"rle":         flate.RLE,
	"fixed":       flate.Fixed,
}

// ReadConfig reads the config from the specified file.
// Fields missing from the file keep their default value.
func ReadConfig(path string) (cfg Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a YAML config from r. Unknown fields are an error.
func Decode(r io.Reader) (cfg Config, err error) {
	cfg = Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the ranges of all fields.
func (c Config) Validate() error {
	if c.Level < flate.DefaultCompression || c.Level > flate.UberCompression {
		return fmt.Errorf("config: level %d out of range [-1, 10]", c.Level)
	}
	if _, ok := strategies[c.Strategy]; !ok {
		return fmt.Errorf("config: unknown strategy %q", c.Strategy)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunkSize must be positive, got %d", c.ChunkSize)
	}
	if c.OutBufSize <= 0 {
		return fmt.Errorf("config: outBufSize must be positive, got %d", c.OutBufSize)
	}
	return nil
}

// Flags returns the compressor flags for the config.
// Zlib framing is selected by Zlib or a positive WindowBits.
func (c Config) Flags() flate.Flags {
	wb := c.WindowBits
	if c.Zlib && wb <= 0 {
		wb = 15
	}
	return flate.FlagsFromZipParams(c.Level, wb, strategies[c.Strategy])
}
