// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

import (
	"fmt"
	"io"
)

// writerSink passes compressor output to an io.Writer.
// The first write error is kept and fails every later PutBuf.
type writerSink struct {
	w   io.Writer
	n   int64
	err error
}

func (s *writerSink) PutBuf(p []byte) bool {
	if s.err != nil {
		return false
	}
	n, err := s.w.Write(p)
	s.n += int64(n)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	s.err = err
	return err == nil
}

// NewWriter returns a new Writer compressing data at the given level.
// Following zlib, levels range from 1 (BestSpeed) to 9 (BestCompression);
// higher levels typically run slower but compress more. Level 10
// (UberCompression) searches even longer hash chains. Level 0
// (NoCompression) does not attempt any compression; it only adds the
// necessary DEFLATE framing. Level -1 (DefaultCompression) uses the default
// compression level.
//
// If level is in the range [-1, 10] then the error returned will be nil.
// Otherwise the error returned will be non-nil.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	if level < DefaultCompression || level > UberCompression {
		return nil, fmt.Errorf("flate: invalid compression level %d: want value in range [-1, 10]", level)
	}
	return NewWriterFlags(w, FlagsFromZipParams(level, -logWindowSize, DefaultStrategy)), nil
}

// NewWriterFlags returns a new Writer using the given Flags.
// With WriteZlibHeader set the output is a zlib stream.
func NewWriterFlags(w io.Writer, flags Flags) *Writer {
	dw := &Writer{flags: flags}
	dw.Reset(w)
	return dw
}

// A Writer takes data written to it and writes the compressed
// form of that data to an underlying writer (see NewWriter).
type Writer struct {
	d      Compressor
	sink   writerSink
	flags  Flags
	closed bool
}

// Write writes data to w, which will eventually write the
// compressed form of data to its underlying writer.
func (w *Writer) Write(data []byte) (n int, err error) {
	if w.closed {
		return 0, ErrClosed
	}
	status, n := w.d.CompressBuffer(data, NoFlush)
	return n, w.err(status)
}

// Flush flushes any pending compressed data to the underlying writer.
// It is useful mainly in compressed network protocols, to ensure that
// a remote reader has enough data to reconstruct a packet.
// Flush does not return until the data has been written.
// If the underlying writer returns an error, Flush returns that error.
//
// In the terminology of the zlib library, Flush is equivalent to Z_SYNC_FLUSH.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	status, _ := w.d.CompressBuffer(nil, SyncFlush)
	return w.err(status)
}

// Close flushes and closes the writer.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	status, _ := w.d.CompressBuffer(nil, Finish)
	if status == StatusDone {
		return nil
	}
	return w.err(status)
}

// Reset discards the writer's state and makes it equivalent to
// the result of NewWriter or NewWriterFlags called with dst
// and w's flags.
func (w *Writer) Reset(dst io.Writer) {
	w.sink = writerSink{w: dst}
	w.closed = false
	w.d.Init(&w.sink, w.flags)
}

// Written returns the number of compressed bytes written to the
// underlying writer since the last Reset.
func (w *Writer) Written() int64 {
	return w.sink.n
}

// Adler32 returns the Adler-32 checksum of the data written so far,
// when the writer produces a zlib stream.
func (w *Writer) Adler32() uint32 {
	return w.d.Adler32()
}

func (w *Writer) err(s Status) error {
	switch {
	case s >= StatusOkay:
		return nil
	case w.sink.err != nil:
		return w.sink.err
	}
	return s.Err()
}
