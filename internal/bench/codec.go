// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

// Package bench compresses data with this module and with other codecs
// and checks that the output decodes back to the input.
package bench

import (
	"fmt"
	"io"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	kflate "github.com/klauspost/compress/flate"
	kzlib "github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/tdefl/tdefl/flate"
	"github.com/tdefl/tdefl/zlib"
)

// A Codec creates compressing writers and matching readers.
// Levels use the -1 to 10 range of the flate package and are mapped to
// the nearest level the codec supports.
type Codec struct {
	Name      string
	NewWriter func(w io.Writer, level int) (io.WriteCloser, error)
	NewReader func(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]Codec{
	"tdefl": {
		Name: "tdefl",
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return kflate.NewReader(r), nil
		},
	},
	"tdefl-zlib": {
		Name: "tdefl-zlib",
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return zlib.NewWriterLevel(w, level)
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return kzlib.NewReader(r)
		},
	},
	"klauspost": {
		Name: "klauspost",
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			return kflate.NewWriter(w, min(level, kflate.BestCompression))
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return kflate.NewReader(r), nil
		},
	},
	"zstd": {
		Name: "zstd",
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			if level < 0 {
				level = 6
			}
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
	},
	"brotli": {
		Name: "brotli",
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			if level < 0 {
				level = brotli.DefaultCompression
			}
			return brotli.NewWriterLevel(w, level), nil
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(brotli.NewReader(r)), nil
		},
	},
	"snappy": {
		Name: "snappy",
		NewWriter: func(w io.Writer, _ int) (io.WriteCloser, error) {
			return snappy.NewBufferedWriter(w), nil
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(snappy.NewReader(r)), nil
		},
	},
	"lz4": {
		Name: "lz4",
		NewWriter: func(w io.Writer, level int) (io.WriteCloser, error) {
			zw := lz4.NewWriter(w)
			if err := zw.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
				return nil, err
			}
			return zw, nil
		},
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(r)), nil
		},
	},
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func lz4Level(level int) lz4.CompressionLevel {
	switch {
	case level < 0:
		return lz4.Fast
	case level >= len(lz4Levels):
		return lz4Levels[len(lz4Levels)-1]
	}
	return lz4Levels[level]
}

// Lookup returns the codec with the given name.
func Lookup(name string) (Codec, error) {
	c, ok := codecs[name]
	if !ok {
		return Codec{}, fmt.Errorf("bench: unknown codec %q", name)
	}
	return c, nil
}

// Names returns the names of all codecs, sorted.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
