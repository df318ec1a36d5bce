// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package bench

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Result is the outcome of compressing one input with one codec.
type Result struct {
	Codec    string
	Level    int
	In       int64
	Out      int64
	Encode   time.Duration
	Decode   time.Duration
	Digest   uint64 // xxhash of the input
	Verified bool
}

// Ratio returns the compressed size relative to the input size.
func (r Result) Ratio() float64 {
	if r.In == 0 {
		return 0
	}
	return float64(r.Out) / float64(r.In)
}

// MBPerSec returns the compression speed.
func (r Result) MBPerSec() float64 {
	if r.Encode <= 0 {
		return 0
	}
	return float64(r.In) / r.Encode.Seconds() / (1 << 20)
}

func (r Result) String() string {
	v := "unverified"
	if r.Verified {
		v = "ok"
	}
	return fmt.Sprintf("%-10s level %2d: %d -> %d (%.2f%%) %.1f MB/s digest %016x %s",
		r.Codec, r.Level, r.In, r.Out, 100*r.Ratio(), r.MBPerSec(), r.Digest, v)
}

// Run compresses src with the named codec, writing chunkSize bytes at a time.
// With verify set the output is decoded again and compared with src.
func Run(name string, level int, src []byte, chunkSize int, verify bool) (Result, error) {
	c, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	res := Result{Codec: c.Name, Level: level, In: int64(len(src)), Digest: xxhash.Sum64(src)}

	var buf bytes.Buffer
	start := time.Now()
	w, err := c.NewWriter(&buf, level)
	if err != nil {
		return res, err
	}
	if err := writeChunks(w, src, chunkSize); err != nil {
		return res, fmt.Errorf("%s: %w", c.Name, err)
	}
	if err := w.Close(); err != nil {
		return res, fmt.Errorf("%s: %w", c.Name, err)
	}
	res.Encode = time.Since(start)
	res.Out = int64(buf.Len())

	if !verify {
		return res, nil
	}
	start = time.Now()
	if err := Verify(c, buf.Bytes(), res.Digest); err != nil {
		return res, err
	}
	res.Decode = time.Since(start)
	res.Verified = true
	return res, nil
}

// Verify decodes compressed with c and checks that the xxhash of the
// output equals digest.
func Verify(c Codec, compressed []byte, digest uint64) error {
	r, err := c.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	defer r.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return fmt.Errorf("%s: decode: %w", c.Name, err)
	}
	if got := h.Sum64(); got != digest {
		return fmt.Errorf("%s: digest mismatch: got %016x, want %016x", c.Name, got, digest)
	}
	return nil
}

func writeChunks(w io.Writer, src []byte, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = len(src)
	}
	for len(src) > 0 {
		n := min(chunkSize, len(src))
		if _, err := w.Write(src[:n]); err != nil {
			return err
		}
		src = src[n:]
	}
	return nil
}
