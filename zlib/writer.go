// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zlib implements writing of zlib format compressed data,
// as specified in RFC 1950, on top of the flate compressor.
package zlib

import (
	"fmt"
	"io"

	"github.com/tdefl/tdefl/flate"
)

// These constants are copied from the flate package, so that code that imports
// zlib does not also have to import flate.
const (
	NoCompression      = flate.NoCompression
	BestSpeed          = flate.BestSpeed
	BestCompression    = flate.BestCompression
	UberCompression    = flate.UberCompression
	DefaultCompression = flate.DefaultCompression
)

// A Writer takes data written to it and writes the compressed
// form of that data to an underlying writer (see NewWriter).
type Writer struct {
	fw *flate.Writer
}

// NewWriter creates a new Writer.
// Writes to the returned Writer are compressed and written to w.
//
// It is the caller's responsibility to call Close on the Writer when done.
// Writes may be buffered and not flushed until Close.
func NewWriter(w io.Writer) *Writer {
	z, _ := NewWriterLevel(w, DefaultCompression)
	return z
}

// NewWriterLevel is like NewWriter but specifies the compression level instead
// of assuming DefaultCompression.
//
// The compression level can be DefaultCompression, NoCompression, or any
// integer value between BestSpeed and UberCompression inclusive.
// The error returned will be nil if the level is valid.
func NewWriterLevel(w io.Writer, level int) (*Writer, error) {
	return NewWriterStrategy(w, level, flate.DefaultStrategy)
}

// NewWriterStrategy is like NewWriterLevel but also selects a strategy.
func NewWriterStrategy(w io.Writer, level int, strategy flate.Strategy) (*Writer, error) {
	if level < DefaultCompression || level > UberCompression {
		return nil, fmt.Errorf("zlib: invalid compression level: %d", level)
	}
	flags := flate.FlagsFromZipParams(level, 15, strategy)
	return &Writer{fw: flate.NewWriterFlags(w, flags)}, nil
}

// Reset clears the state of the Writer z such that it is equivalent to its
// initial state from NewWriterLevel, but instead writing to w.
func (z *Writer) Reset(w io.Writer) {
	z.fw.Reset(w)
}

// Write writes a compressed form of p to the underlying io.Writer. The
// compressed bytes are not necessarily flushed until the Writer is closed or
// explicitly flushed.
func (z *Writer) Write(p []byte) (n int, err error) {
	return z.fw.Write(p)
}

// Flush flushes the Writer to its underlying io.Writer.
func (z *Writer) Flush() error {
	return z.fw.Flush()
}

// Close closes the Writer, flushing any unwritten data to the underlying
// io.Writer and writing the Adler-32 trailer, but does not close the
// underlying io.Writer.
func (z *Writer) Close() error {
	return z.fw.Close()
}

// Sum32 returns the Adler-32 checksum of the data written so far.
func (z *Writer) Sum32() uint32 {
	return z.fw.Adler32()
}
