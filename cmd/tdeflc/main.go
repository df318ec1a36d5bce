// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/tdefl/tdefl/flate"
	"github.com/tdefl/tdefl/internal/bench"
	"github.com/tdefl/tdefl/internal/config"
)

var (
	level    = flag.Int("level", flate.DefaultCompression, "Compression level, -1 (default) or 0-10")
	strategy = flag.String("strategy", "default", "Strategy: default, filtered, huffmanonly, rle, fixed")
	zlibOut  = flag.Bool("zlib", false, "Write zlib framing with Adler-32 trailer")
	confFile = flag.String("config", "", "Read settings from this YAML file. Command line flags override it")
	chunk    = flag.String("chunk", "64K", "Input chunk size. Examples: 1, 500, 64K, 1M")
	outBuf   = flag.String("outbuf", "64K", "Output buffer size. Examples: 1, 500, 64K, 1M")
	stdout   = flag.Bool("c", false, "Write all output to stdout. Multiple input files will be concatenated")
	out      = flag.String("o", "", "Write output to another file. Single input file only")
	quiet    = flag.Bool("q", false, "Don't write any output to terminal, except errors")
	benchArg = flag.String("bench", "", "Compare codecs, comma separated, or 'all'. No output will be written")
	verify   = flag.Bool("verify", false, "Decode output and compare with input")
	help     = flag.Bool("help", false, "Display help")
)

const (
	deflateExt = ".deflate"
	zlibExt    = ".zz"
)

func main() {
	log.SetFlags(0)
	flag.Parse()
	cfg, err := loadConfig()
	exitErr(err)
	if *quiet {
		log.SetOutput(io.Discard)
	}

	args := flag.Args()
	if len(args) == 0 || *help {
		_, _ = fmt.Fprintln(os.Stderr, `Usage: tdeflc [options] file1 file2

Compresses all files supplied as input separately.
Output files are written as 'filename.ext`+deflateExt+`' or 'filename.ext`+zlibExt+`' with -zlib.
Use - as the only file name to read from stdin and write to stdout.

Options:`)
		flag.PrintDefaults()
		os.Exit(0)
	}

	if len(cfg.Bench) > 0 {
		for _, name := range args {
			exitErr(runBench(name, cfg))
		}
		return
	}

	if len(args) == 1 && args[0] == "-" {
		var dst io.Writer = os.Stdout
		if *out != "" {
			f, err := os.Create(*out)
			exitErr(err)
			defer f.Close()
			dst = f
		}
		bw := bufio.NewWriter(dst)
		_, _, err := compressFile(bw, os.Stdin, cfg)
		exitErr(err)
		exitErr(bw.Flush())
		return
	}
	if *out != "" && len(args) > 1 {
		exitErr(errors.New("-o cannot be used with multiple input files"))
	}
	ext := deflateExt
	if cfg.Flags()&flate.WriteZlibHeader != 0 {
		ext = zlibExt
	}
	for _, name := range args {
		dstName := name + ext
		switch {
		case *out != "":
			dstName = *out
		case *stdout:
			dstName = "stdout"
		}
		exitErr(compressNamed(name, dstName, cfg))
	}
}

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *confFile != "" {
		var err error
		if cfg, err = config.ReadConfig(*confFile); err != nil {
			return cfg, err
		}
	}
	// Flags given on the command line win over the file.
	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "level":
			cfg.Level = *level
		case "strategy":
			cfg.Strategy = *strategy
		case "zlib":
			cfg.Zlib = *zlibOut
		case "verify":
			cfg.Verify = *verify
		case "chunk":
			cfg.ChunkSize, err = toSize(*chunk)
		case "outbuf":
			cfg.OutBufSize, err = toSize(*outBuf)
		case "bench":
			cfg.Bench = strings.Split(*benchArg, ",")
			if *benchArg == "all" {
				cfg.Bench = bench.Names()
			}
		}
	})
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func compressNamed(srcName, dstName string, cfg config.Config) error {
	src, err := os.Open(srcName)
	if err != nil {
		return err
	}
	defer src.Close()

	var dst io.Writer = os.Stdout
	if dstName != "stdout" {
		f, err := os.Create(dstName)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}
	bw := bufio.NewWriter(dst)
	start := time.Now()
	in, n, err := compressFile(bw, src, cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", srcName, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	elapsed := time.Since(start)
	mbPerSec := float64(in) / elapsed.Seconds() / (1 << 20)
	pct := float64(0)
	if in > 0 {
		pct = float64(n) * 100 / float64(in)
	}
	log.Printf("Compressed %s -> %s: %d -> %d [%.02f%%]; %.01fMB/s", srcName, dstName, in, n, pct, mbPerSec)
	return nil
}

// compressFile compresses src to dst, reading cfg.ChunkSize bytes and
// draining cfg.OutBufSize bytes at a time. With cfg.Verify set the output
// is decoded again and checked.
func compressFile(dst io.Writer, src io.Reader, cfg config.Config) (in, out int64, err error) {
	flags := cfg.Flags()
	var verifyBuf, inCopy *bytes.Buffer
	if cfg.Verify {
		verifyBuf, inCopy = new(bytes.Buffer), new(bytes.Buffer)
		dst = io.MultiWriter(dst, verifyBuf)
		src = io.TeeReader(src, inCopy)
	}
	in, out, err = compressStream(dst, src, flags, cfg.ChunkSize, cfg.OutBufSize)
	if err != nil || !cfg.Verify {
		return in, out, err
	}
	name := "tdefl"
	if flags&flate.WriteZlibHeader != 0 {
		name = "tdefl-zlib"
	}
	c, err := bench.Lookup(name)
	if err != nil {
		return in, out, err
	}
	if err := bench.Verify(c, verifyBuf.Bytes(), xxhash.Sum64(inCopy.Bytes())); err != nil {
		return in, out, err
	}
	log.Printf("Verified %d bytes", in)
	return in, out, nil
}

// compressStream drives a Compressor with caller owned buffers.
func compressStream(dst io.Writer, src io.Reader, flags flate.Flags, chunkSize, outBufSize int) (in, out int64, err error) {
	d := flate.NewCompressor(nil, flags)
	inBuf := make([]byte, chunkSize)
	outBuf := make([]byte, outBufSize)
	var pending []byte
	eof := false
	for {
		if len(pending) == 0 && !eof {
			n, rerr := io.ReadFull(src, inBuf)
			pending = inBuf[:n]
			in += int64(n)
			switch rerr {
			case nil:
			case io.EOF, io.ErrUnexpectedEOF:
				eof = true
			default:
				return in, out, rerr
			}
		}
		flush := flate.NoFlush
		if eof {
			flush = flate.Finish
		}
		status, nIn, nOut := d.Compress(pending, outBuf, flush)
		pending = pending[nIn:]
		if nOut > 0 {
			if _, err := dst.Write(outBuf[:nOut]); err != nil {
				return in, out, err
			}
			out += int64(nOut)
		}
		switch status {
		case flate.StatusDone:
			return in, out, nil
		case flate.StatusOkay:
		default:
			return in, out, status.Err()
		}
	}
}

func runBench(name string, cfg config.Config) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	log.Printf("%s: %d bytes, estimate %.3f, order 0 entropy %d bytes",
		name, len(b), bench.Estimate(b), bench.EntropyBytes(b))
	for _, codec := range cfg.Bench {
		res, err := bench.Run(strings.TrimSpace(codec), cfg.Level, b, cfg.ChunkSize, cfg.Verify)
		if err != nil {
			return err
		}
		log.Println(res)
	}
	return nil
}

func exitErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "\nERROR:", err.Error())
		os.Exit(2)
	}
}

func toSize(size string) (int, error) {
	size = strings.ToUpper(strings.TrimSpace(size))
	firstLetter := strings.IndexFunc(size, unicode.IsLetter)
	if firstLetter == -1 {
		firstLetter = len(size)
	}

	bytesString, multiple := size[:firstLetter], size[firstLetter:]
	sz, err := strconv.Atoi(bytesString)
	if err != nil {
		return 0, fmt.Errorf("unable to parse size: %v", err)
	}

	switch multiple {
	case "M", "MB", "MIB":
		return sz * 1 << 20, nil
	case "K", "KB", "KIB":
		return sz * 1 << 10, nil
	case "B", "":
		return sz, nil
	default:
		return 0, fmt.Errorf("unknown size suffix: %v", multiple)
	}
}
