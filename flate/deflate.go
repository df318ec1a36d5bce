// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import (
	"hash"
	"hash/adler32"
)

// debugDeflate enables internal consistency checks.
const debugDeflate = false

const (
	// A block is closed once it covers more than this many input bytes
	// and its codes take more than ~90% of the input size.
	blockSplitBytes = 31 << 10

	// Matches this long are committed without looking for a longer one.
	lazyCommitLength = 128
)

// Compressor is a streaming deflate compressor.
//
// Input and output are exchanged in arbitrary chunks through Compress,
// or, in sink mode, through CompressBuffer with output delivered to a Sink.
// A Compressor must not be used concurrently.
// The zero value is not usable; call NewCompressor or Init.
type Compressor struct {
	sink   Sink
	flags  Flags
	greedy bool
	adler  hash.Hash32

	dict    dictionary
	lz      lzBuffer
	huff    huffman
	codegen codegen
	w       huffmanBitWriter

	// lzDictPos is the stream position of the first byte of the current block.
	lzDictPos uint32
	blockIdx  uint32

	// A match found at the previous position, waiting to see if the
	// current position has a longer one.
	savedMatchDist uint32
	savedMatchLen  uint32
	savedLit       byte

	// fastPending is set when the fast parser stopped inside a loaded
	// lookahead, which must be finished before more input is loaded.
	fastPending bool

	// Output of the last block that did not fit the caller's buffer,
	// outBuf[flushOfs:flushOfs+flushRemaining].
	flushOfs       int
	flushRemaining int

	finished      bool
	wantsToFinish bool
	prevStatus    Status

	// State of the current call.
	src    []byte
	srcPos int
	out    []byte
	outOfs int
	flush  Flush

	outBuf [outBufSize]byte
}

// NewCompressor returns a Compressor initialized with flags.
// If sink is non-nil the compressor runs in sink mode and must be driven
// with CompressBuffer, otherwise with Compress.
func NewCompressor(sink Sink, flags Flags) *Compressor {
	d := new(Compressor)
	d.Init(sink, flags)
	return d
}

// Init prepares d for a new stream, discarding any previous state.
func (d *Compressor) Init(sink Sink, flags Flags) Status {
	if d == nil {
		return StatusBadParam
	}
	d.sink = sink
	d.flags = flags
	d.greedy = flags&GreedyParsing != 0
	d.dict.maxProbes = flags.probes()
	if flags&NondeterministicParsing == 0 {
		d.dict.clearHashes()
	}
	d.dict.lookaheadPos, d.dict.lookaheadSize, d.dict.size = 0, 0, 0
	d.lz.reset()
	d.w = huffmanBitWriter{}
	d.lzDictPos, d.blockIdx = 0, 0
	d.savedMatchDist, d.savedMatchLen, d.savedLit = 0, 0, 0
	d.fastPending = false
	d.flushOfs, d.flushRemaining = 0, 0
	d.finished, d.wantsToFinish = false, false
	d.prevStatus = StatusOkay
	d.src, d.srcPos, d.out, d.outOfs, d.flush = nil, 0, nil, 0, NoFlush
	d.huff.count[litTable] = [maxNumLit]uint16{}
	d.huff.count[distTable] = [maxNumLit]uint16{}
	if d.adler == nil {
		d.adler = adler32.New()
	} else {
		d.adler.Reset()
	}
	return StatusOkay
}

// Flags returns the flags d was initialized with.
func (d *Compressor) Flags() Flags { return d.flags }

// Adler32 returns the Adler-32 of all input consumed so far.
// It is only maintained when ComputeAdler32 or WriteZlibHeader is set,
// otherwise it stays 1.
func (d *Compressor) Adler32() uint32 { return d.adler.Sum32() }

// PrevReturnStatus returns the status of the last call.
func (d *Compressor) PrevReturnStatus() Status { return d.prevStatus }

// Compress consumes input from in and writes compressed output to out.
// It returns the status, the number of bytes of in consumed and
// the number of bytes written to out.
//
// Unconsumed input must be supplied again on the next call.
// When out is too small for the output of a block the rest is kept and
// handed out by later calls; callers should keep calling until
// StatusDone is returned after a Finish.
// Once Finish has been requested every further call must use Finish.
func (d *Compressor) Compress(in, out []byte, flush Flush) (status Status, inUsed, outUsed int) {
	if d == nil || d.sink != nil {
		return StatusBadParam, 0, 0
	}
	return d.compress(in, out, flush)
}

// CompressBuffer consumes input in sink mode. Every completed block is
// passed to the sink before CompressBuffer returns.
// It returns the status and the number of bytes of in consumed.
func (d *Compressor) CompressBuffer(in []byte, flush Flush) (status Status, inUsed int) {
	if d == nil || d.sink == nil {
		return StatusBadParam, 0
	}
	status, inUsed, _ = d.compress(in, nil, flush)
	return status, inUsed
}

func (d *Compressor) compress(in, out []byte, flush Flush) (Status, int, int) {
	if !flush.valid() || d.prevStatus != StatusOkay || (d.wantsToFinish && flush != Finish) {
		return StatusBadParam, 0, 0
	}
	d.src, d.srcPos = in, 0
	d.out, d.outOfs = out, 0
	d.flush = flush
	d.wantsToFinish = d.wantsToFinish || flush == Finish
	defer func() {
		d.src, d.out = nil, nil
	}()

	if d.flushRemaining != 0 || d.finished {
		d.prevStatus = d.flushOutputBuffer()
		return d.prevStatus, 0, d.outOfs
	}

	var ok bool
	if d.useFast() {
		ok = d.compressFast()
	} else {
		ok = d.compressNormal()
	}
	if !ok {
		return d.prevStatus, d.srcPos, d.outOfs
	}

	if d.flags&(WriteZlibHeader|ComputeAdler32) != 0 {
		_, _ = d.adler.Write(in[:d.srcPos])
	}

	if flush != NoFlush && d.dict.lookaheadSize == 0 && d.srcPos == len(d.src) && d.flushRemaining == 0 {
		if d.flushBlock(flush) < 0 {
			return d.prevStatus, d.srcPos, d.outOfs
		}
		d.finished = flush == Finish
		if flush == FullFlush {
			d.dict.clearHashes()
			d.dict.size = 0
		}
	}

	d.prevStatus = d.flushOutputBuffer()
	return d.prevStatus, d.srcPos, d.outOfs
}

// useFast reports whether the single probe parser can be used.
func (d *Compressor) useFast() bool {
	return d.flags&MaxProbesMask == 1 && d.greedy &&
		d.flags&(FilterMatches|ForceAllRawBlocks|RLEMatches) == 0
}

// flushOutputBuffer copies pending block output to the caller's buffer.
func (d *Compressor) flushOutputBuffer() Status {
	if d.sink == nil {
		n := copy(d.out[d.outOfs:], d.outBuf[d.flushOfs:d.flushOfs+d.flushRemaining])
		d.flushOfs += n
		d.flushRemaining -= n
		d.outOfs += n
	}
	if d.finished && d.flushRemaining == 0 {
		return StatusDone
	}
	return StatusOkay
}

// compressNormal runs the lazy (or greedy) parser over the input of the
// current call. It returns false if the sink failed.
func (d *Compressor) compressNormal() bool {
	dict := &d.dict
	for d.srcPos < len(d.src) || (d.flush != NoFlush && dict.lookaheadSize != 0) {
		d.srcPos += dict.fill(d.src[d.srcPos:])
		if d.flush == NoFlush && dict.lookaheadSize < maxMatchLength {
			break
		}

		lenToMove := uint32(1)
		curDist := uint32(0)
		curLen := d.savedMatchLen
		if curLen == 0 {
			curLen = minMatchLength - 1
		}
		curPos := dict.lookaheadPos & windowMask
		switch {
		case d.flags&ForceAllRawBlocks != 0:
			curLen = 0
		case d.flags&RLEMatches != 0:
			curLen = 0
			if dict.size != 0 {
				if curLen = dict.runLength(); curLen != 0 {
					curDist = 1
				}
			}
		default:
			curDist, curLen = dict.findMatch(dict.lookaheadPos, dict.size, dict.lookaheadSize, 0, curLen)
		}
		if (curLen == minMatchLength && curDist >= maxShortMatchOffset) ||
			curPos == curDist ||
			(d.flags&FilterMatches != 0 && curLen <= 5) {
			curDist, curLen = 0, 0
		}

		switch {
		case d.savedMatchLen != 0:
			if curLen > d.savedMatchLen {
				// The match at this position is better; the saved one
				// is reduced to its first byte.
				d.recordLiteral(d.savedLit)
				if curLen >= lazyCommitLength {
					d.recordMatch(curLen, curDist)
					d.savedMatchLen = 0
					lenToMove = curLen
				} else {
					d.savedLit = dict.window[curPos]
					d.savedMatchDist, d.savedMatchLen = curDist, curLen
				}
			} else {
				d.recordMatch(d.savedMatchLen, d.savedMatchDist)
				lenToMove = d.savedMatchLen - 1
				d.savedMatchLen = 0
			}
		case curDist == 0:
			d.recordLiteral(dict.window[curPos])
		case d.greedy || d.flags&RLEMatches != 0 || curLen >= lazyCommitLength:
			d.recordMatch(curLen, curDist)
			lenToMove = curLen
		default:
			d.savedLit = dict.window[curPos]
			d.savedMatchDist, d.savedMatchLen = curDist, curLen
		}
		dict.advance(lenToMove)

		if d.blockFull() {
			if n := d.flushBlock(NoFlush); n != 0 {
				return n > 0
			}
		}
	}
	return true
}

// blockFull reports whether the pending codes should be written as a block.
func (d *Compressor) blockFull() bool {
	lz := &d.lz
	if lz.full() {
		return true
	}
	return lz.totalBytes > blockSplitBytes &&
		(uint32(lz.pos)*115>>7 >= lz.totalBytes || d.flags&ForceAllRawBlocks != 0)
}

// flushBlock writes the pending codes as one block, followed by the
// marker required by flush, and hands the output to the sink or the
// caller's buffer.
// It returns the number of bytes that did not fit the caller's buffer,
// or -1 if the sink failed.
func (d *Compressor) flushBlock(flush Flush) int {
	// Stored blocks copy from the window, so the block input must still be in it.
	rawAllowed := d.dict.lookaheadPos-d.lzDictPos <= d.dict.size
	useRaw := d.flags&ForceAllRawBlocks != 0 && rawAllowed

	// Write straight into the caller's buffer when a whole block fits.
	direct := d.sink == nil && len(d.out)-d.outOfs >= outBufSize
	if direct {
		d.w.out = d.out[d.outOfs:]
	} else {
		d.w.out = d.outBuf[:]
	}
	d.w.pos, d.w.end = 0, outBufSize-outBufSlack
	d.flushOfs, d.flushRemaining = 0, 0

	d.lz.finishFlags()

	if d.flags&WriteZlibHeader != 0 && d.blockIdx == 0 {
		d.writeZlibHeader()
	}
	if flush == Finish {
		d.w.writeBits(1, 1)
	} else {
		d.w.writeBits(0, 1)
	}

	saved := d.w
	ok := false
	if !useRaw {
		ok = d.writeBlock(d.flags&ForceAllStaticBlocks != 0 || d.lz.totalBytes < minDynamicBlockSize)
	}
	expanded := d.lz.totalBytes != 0 && uint32(d.w.pos-saved.pos+1) >= d.lz.totalBytes
	switch {
	case (useRaw || expanded) && rawAllowed:
		d.w = saved
		d.writeStoredBlock()
	case !ok:
		// The dynamic block did not fit; fixed codes are bounded.
		d.w = saved
		d.writeBlock(true)
	}

	switch flush {
	case NoFlush:
	case Finish:
		d.w.alignByte()
		if d.flags&WriteZlibHeader != 0 {
			a := d.adler.Sum32()
			for i := 0; i < 4; i++ {
				d.w.writeBits((a>>24)&0xff, 8)
				a <<= 8
			}
		}
	default:
		// Empty stored block to reach a byte boundary.
		d.w.writeBits(0, 3)
		d.w.alignByte()
		d.w.writeBits(0, 16)
		d.w.writeBits(0xffff, 16)
	}
	if debugDeflate && !d.w.ok() {
		panic("block exceeded output buffer")
	}

	d.huff.count[litTable] = [maxNumLit]uint16{}
	d.huff.count[distTable] = [maxNumLit]uint16{}
	d.lzDictPos += d.lz.totalBytes
	d.lz.reset()
	d.blockIdx++

	n := d.w.pos
	if n == 0 {
		return 0
	}
	switch {
	case d.sink != nil:
		if !d.sink.PutBuf(d.outBuf[:n]) {
			d.prevStatus = StatusPutBufFailed
			return -1
		}
	case direct:
		d.outOfs += n
	default:
		copied := copy(d.out[d.outOfs:], d.outBuf[:n])
		d.outOfs += copied
		if n > copied {
			d.flushOfs = copied
			d.flushRemaining = n - copied
		}
	}
	return d.flushRemaining
}

// writeStoredBlock writes the input of the current block as a stored block.
func (d *Compressor) writeStoredBlock() {
	w := &d.w
	w.writeBits(0, 2)
	w.alignByte()
	n := d.lz.totalBytes
	w.writeBits(n&0xffff, 16)
	w.writeBits(^n&0xffff, 16)
	for i := uint32(0); i < n; i++ {
		w.writeBits(uint32(d.dict.window[(d.lzDictPos+i)&windowMask]), 8)
	}
}

// writeZlibHeader writes the RFC 1950 stream header.
func (d *Compressor) writeZlibHeader() {
	const cmf = 0x78 // deflate, 32K window
	header := uint32(cmf)<<8 | d.flags.zlibLevel()<<6
	header += 31 - header%31
	d.w.writeBits(cmf, 8)
	d.w.writeBits(header&0xff, 8)
}
