// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"errors"
	"strconv"
)

// Status is returned by every Compressor call.
type Status int8

const (
	// StatusBadParam is returned for an invalid call.
	// The compressor must be re-initialized after this.
	StatusBadParam Status = -2
	// StatusPutBufFailed is returned when the sink refused output.
	StatusPutBufFailed Status = -1
	// StatusOkay means more input can be supplied or more output drained.
	StatusOkay Status = 0
	// StatusDone means the final block has been written and fully drained.
	StatusDone Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusBadParam:
		return "bad param"
	case StatusPutBufFailed:
		return "put buf failed"
	case StatusOkay:
		return "okay"
	case StatusDone:
		return "done"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Err returns the error matching a terminal failure status, or nil.
func (s Status) Err() error {
	switch s {
	case StatusBadParam:
		return ErrBadParam
	case StatusPutBufFailed:
		return ErrPutBufFailed
	}
	return nil
}

// Flush controls block boundaries and stream termination.
// The values match zlib.
type Flush uint8

const (
	NoFlush   Flush = 0
	SyncFlush Flush = 2
	FullFlush Flush = 3
	Finish    Flush = 4
)

func (f Flush) valid() bool {
	switch f {
	case NoFlush, SyncFlush, FullFlush, Finish:
		return true
	}
	return false
}

func (f Flush) String() string {
	switch f {
	case NoFlush:
		return "none"
	case SyncFlush:
		return "sync"
	case FullFlush:
		return "full"
	case Finish:
		return "finish"
	}
	return "Flush(" + strconv.Itoa(int(f)) + ")"
}

var (
	// ErrBadParam is returned when the compressor was called incorrectly,
	// for instance after the stream was finished.
	ErrBadParam = errors.New("flate: bad parameter")

	// ErrPutBufFailed is returned when the output sink did not accept data.
	ErrPutBufFailed = errors.New("flate: output sink failed")

	// ErrClosed is returned when writing to a closed Writer.
	ErrClosed = errors.New("flate: writer is closed")
)

// A Sink receives compressed output in sink mode.
// PutBuf must consume all of p before returning; it may not retain p.
// Returning false aborts the stream with StatusPutBufFailed.
type Sink interface {
	PutBuf(p []byte) bool
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(p []byte) bool

// PutBuf calls f(p).
func (f SinkFunc) PutBuf(p []byte) bool { return f(p) }
