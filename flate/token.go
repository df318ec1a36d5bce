// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

const (
	// lzCodeBufSize is the capacity of the packed code buffer.
	lzCodeBufSize = 64 << 10

	// The buffer is flushed when fewer than this many bytes are free,
	// which leaves room for one match and a new flag byte.
	lzCodeBufSlack = 8

	minMatchLength = 3
	maxMatchLength = 258
)

// The length code for length X (minMatchLength <= X <= maxMatchLength)
// is lengthCodes[X - minMatchLength].
var lengthCodes = [256]uint8{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 12, 12,
	13, 13, 13, 13, 14, 14, 14, 14, 15, 15,
	15, 15, 16, 16, 16, 16, 16, 16, 16, 16,
	17, 17, 17, 17, 17, 17, 17, 17, 18, 18,
	18, 18, 18, 18, 18, 18, 19, 19, 19, 19,
	19, 19, 19, 19, 20, 20, 20, 20, 20, 20,
	20, 20, 20, 20, 20, 20, 20, 20, 20, 20,
	21, 21, 21, 21, 21, 21, 21, 21, 21, 21,
	21, 21, 21, 21, 21, 21, 22, 22, 22, 22,
	22, 22, 22, 22, 22, 22, 22, 22, 22, 22,
	22, 22, 23, 23, 23, 23, 23, 23, 23, 23,
	23, 23, 23, 23, 23, 23, 23, 23, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24, 24, 24,
	24, 24, 24, 24, 24, 24, 24, 24, 24, 24,
	25, 25, 25, 25, 25, 25, 25, 25, 25, 25,
	25, 25, 25, 25, 25, 25, 25, 25, 25, 25,
	25, 25, 25, 25, 25, 25, 25, 25, 25, 25,
	25, 25, 26, 26, 26, 26, 26, 26, 26, 26,
	26, 26, 26, 26, 26, 26, 26, 26, 26, 26,
	26, 26, 26, 26, 26, 26, 26, 26, 26, 26,
	26, 26, 26, 26, 27, 27, 27, 27, 27, 27,
	27, 27, 27, 27, 27, 27, 27, 27, 27, 27,
	27, 27, 27, 27, 27, 27, 27, 27, 27, 27,
	27, 27, 27, 27, 27, 28,
}

// The offset code for offset-1 below 256.
// Larger offsets use offsetCodes[(offset-1)>>7] + 14.
var offsetCodes = [256]uint8{
	0, 1, 2, 3, 4, 4, 5, 5, 6, 6, 6, 6, 7, 7, 7, 7,
	8, 8, 8, 8, 8, 8, 8, 8, 9, 9, 9, 9, 9, 9, 9, 9,
	10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
	11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11, 11,
	12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12,
	12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12,
	13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13,
	13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14, 14,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
	15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15, 15,
}

// The number of extra bits needed by length code X - lengthCodesStart.
var lengthExtraBits = [29]uint8{
	/* 257 */ 0, 0, 0,
	/* 260 */ 0, 0, 0, 0, 0, 1, 1, 1, 1, 2,
	/* 270 */ 2, 2, 2, 3, 3, 3, 3, 4, 4, 4,
	/* 280 */ 4, 5, 5, 5, 5, 0,
}

// offset code word extra bits.
var offsetExtraBits = [offsetCodeCount]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7, 8, 8,
	9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// lengthSymbol returns the literal/length symbol and extra bit count
// for xlength = length - minMatchLength.
func lengthSymbol(xlength uint8) (sym uint32, extra uint8) {
	c := lengthCodes[xlength]
	return lengthCodesStart + uint32(c), lengthExtraBits[c]
}

// offsetSymbol returns the distance symbol and extra bit count
// for xoffset = offset - 1, which must be below the window size.
func offsetSymbol(xoffset uint32) (sym uint32, extra uint8) {
	var c uint8
	if xoffset < 256 {
		c = offsetCodes[xoffset]
	} else {
		c = offsetCodes[uint8(xoffset>>7)] + 14
	}
	return uint32(c), offsetExtraBits[c]
}

// lzBuffer holds the LZ77 output of the current block.
//
// Codes are stored in groups of up to 8, each group preceded by a flag byte.
// Bit i of a flag byte is set when code i of the group is a match.
// A literal occupies one byte, a match three:
// length-minMatchLength, then offset-1 as little endian uint16.
type lzBuffer struct {
	buf       [lzCodeBufSize]byte
	pos       int // next free byte in buf
	flagPos   int // flag byte of the current group
	flagsLeft int // codes left in the current group

	// totalBytes is the number of input bytes the pending codes cover.
	totalBytes uint32
}

func (lz *lzBuffer) reset() {
	lz.buf[0] = 0
	lz.flagPos = 0
	lz.pos = 1
	lz.flagsLeft = 8
	lz.totalBytes = 0
}

// full reports whether the buffer must be flushed before adding more codes.
func (lz *lzBuffer) full() bool {
	return lz.pos > lzCodeBufSize-lzCodeBufSlack
}

func (lz *lzBuffer) nextFlag() {
	lz.flagsLeft--
	if lz.flagsLeft == 0 {
		lz.flagsLeft = 8
		lz.flagPos = lz.pos
		lz.buf[lz.flagPos] = 0
		lz.pos++
	}
}

// recordLiteral appends a literal and counts it in the literal/length histogram.
func (d *Compressor) recordLiteral(lit byte) {
	lz := &d.lz
	lz.totalBytes++
	lz.buf[lz.pos] = lit
	lz.pos++
	lz.buf[lz.flagPos] >>= 1
	lz.nextFlag()
	d.huff.count[litTable][lit]++
}

// recordMatch appends a match of the given length and distance
// and counts its symbols in the histograms.
func (d *Compressor) recordMatch(length, dist uint32) {
	if debugDeflate && (length < minMatchLength || length > maxMatchLength || dist < 1 || dist > windowSize) {
		panic("invalid match")
	}
	lz := &d.lz
	lz.totalBytes += length

	xlength := uint8(length - minMatchLength)
	xoffset := dist - 1
	lz.buf[lz.pos] = xlength
	lz.buf[lz.pos+1] = uint8(xoffset)
	lz.buf[lz.pos+2] = uint8(xoffset >> 8)
	lz.pos += 3
	lz.buf[lz.flagPos] = lz.buf[lz.flagPos]>>1 | 0x80
	lz.nextFlag()

	ds, _ := offsetSymbol(xoffset)
	d.huff.count[distTable][ds]++
	ls, _ := lengthSymbol(xlength)
	d.huff.count[litTable][ls]++
}

// finishFlags aligns the flag byte of a partial group and drops an unused one.
func (lz *lzBuffer) finishFlags() {
	lz.buf[lz.flagPos] >>= uint(lz.flagsLeft)
	if lz.flagsLeft == 8 {
		lz.pos--
	}
}

// lzCode is a decoded entry of the code buffer.
type lzCode struct {
	match   bool
	lit     uint8
	xlength uint8
	xoffset uint32
}

// forEach calls fn for each code in the buffer, in order.
// finishFlags must have been called.
func (lz *lzBuffer) forEach(fn func(c lzCode) bool) bool {
	codes := lz.buf[:lz.pos]
	flags := uint32(1)
	for i := 0; i < len(codes); flags >>= 1 {
		if flags == 1 {
			flags = uint32(codes[i]) | 0x100
			i++
			if i == len(codes) {
				break
			}
		}
		var c lzCode
		if flags&1 != 0 {
			c = lzCode{match: true, xlength: codes[i], xoffset: uint32(codes[i+1]) | uint32(codes[i+2])<<8}
			i += 3
		} else {
			c = lzCode{lit: codes[i]}
			i++
		}
		if !fn(c) {
			return false
		}
	}
	return true
}
