// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flate

const (
	// The special code used to mark the end of a block.
	endBlockMarker = 256

	// The first length code.
	lengthCodesStart = 257

	// Number of literal/length and offset codes that may appear in a header.
	maxLitHeaderCodes = 286
	maxOffHeaderCodes = 30

	// outBufSize is the size of the internal output buffer.
	// A block never encodes to more than this.
	outBufSize = lzCodeBufSize * 13 / 10

	// Output beyond outBufSize-outBufSlack is dropped and the block is
	// reported as failed.
	outBufSlack = 16

	// Blocks with less input than this always use the fixed tables.
	minDynamicBlockSize = 48
)

// The odd order in which the codegen code sizes are written.
var codegenOrder = [codegenCodeCount]uint8{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Extra bits following codegen codes 16, 17 and 18.
var codegenExtraBits = [3]uint8{2, 3, 7}

// huffmanBitWriter packs bits LSB first into out[pos:end].
// bits holds fewer than 8 pending bits between calls.
type huffmanBitWriter struct {
	bits  uint32
	nbits uint32
	out   []byte
	pos   int
	end   int
}

// writeBits appends the low nb bits of b. nb must be at most 16.
// Bytes that do not fit before end are dropped.
func (w *huffmanBitWriter) writeBits(b, nb uint32) {
	if debugDeflate && (nb > 16 || b >= 1<<nb) {
		panic("writeBits: value does not fit")
	}
	w.bits |= b << w.nbits
	w.nbits += nb
	for w.nbits >= 8 {
		if w.pos < w.end {
			w.out[w.pos] = byte(w.bits)
			w.pos++
		}
		w.bits >>= 8
		w.nbits -= 8
	}
}

// alignByte pads with zero bits to the next byte boundary.
func (w *huffmanBitWriter) alignByte() {
	if w.nbits != 0 {
		w.writeBits(0, 8-w.nbits)
	}
}

// ok reports whether everything written so far fit.
func (w *huffmanBitWriter) ok() bool {
	return w.pos < w.end
}

// codegen is the run-length coded description of the literal/length and
// offset code lengths of a dynamic block, RFC 1951 3.2.7.
type codegen struct {
	numLiterals int
	numOffsets  int
	numCodegens int

	// codes 0-15 are single code lengths; 16, 17 and 18 are followed by
	// their extra bits value.
	codes [maxNumLit + offsetCodeCount]uint8
	n     int
}

func (c *codegen) add(code uint8, freq *[maxNumLit]uint16) {
	c.codes[c.n] = code
	c.n++
	freq[code]++
}

func (c *codegen) addRun(code, extra uint8, freq *[maxNumLit]uint16) {
	c.codes[c.n] = code
	c.codes[c.n+1] = extra
	c.n += 2
	freq[code]++
}

// generateCodegen builds the dynamic tables from the block histograms
// and run-length codes their code lengths into c.
// The codegen histogram and table are built as well.
func (h *huffman) generateCodegen(c *codegen) {
	h.count[litTable][endBlockMarker] = 1
	h.optimizeTable(litTable, maxNumLit, maxCodeSize, false)
	h.optimizeTable(distTable, offsetCodeCount, maxCodeSize, false)

	numLit := maxLitHeaderCodes
	for numLit > lengthCodesStart && h.codeSizes[litTable][numLit-1] == 0 {
		numLit--
	}
	numOff := maxOffHeaderCodes
	for numOff > 1 && h.codeSizes[distTable][numOff-1] == 0 {
		numOff--
	}
	c.numLiterals, c.numOffsets, c.n = numLit, numOff, 0

	var sizes [maxNumLit + offsetCodeCount]uint8
	copy(sizes[:numLit], h.codeSizes[litTable][:numLit])
	copy(sizes[numLit:], h.codeSizes[distTable][:numOff])

	freq := &h.count[codegenTable]
	*freq = [maxNumLit]uint16{}
	var zeros, repeats int
	prev := uint8(0xff)

	flushRepeats := func() {
		switch {
		case repeats == 0:
		case repeats < 3:
			for ; repeats > 0; repeats-- {
				c.add(prev, freq)
			}
		default:
			c.addRun(16, uint8(repeats-3), freq)
		}
		repeats = 0
	}
	flushZeros := func() {
		switch {
		case zeros == 0:
		case zeros < 3:
			for ; zeros > 0; zeros-- {
				c.add(0, freq)
			}
		case zeros <= 10:
			c.addRun(17, uint8(zeros-3), freq)
		default:
			c.addRun(18, uint8(zeros-11), freq)
		}
		zeros = 0
	}

	for _, size := range sizes[:numLit+numOff] {
		if size == 0 {
			flushRepeats()
			zeros++
			if zeros == 138 {
				flushZeros()
			}
		} else {
			flushZeros()
			if size != prev {
				flushRepeats()
				c.add(size, freq)
			} else {
				repeats++
				if repeats == 6 {
					flushRepeats()
				}
			}
		}
		prev = size
	}
	if repeats != 0 {
		flushRepeats()
	} else {
		flushZeros()
	}

	h.optimizeTable(codegenTable, codegenCodeCount, maxCodegenCodeSize, false)

	numCodegens := codegenCodeCount
	for numCodegens > 4 && h.codeSizes[codegenTable][codegenOrder[numCodegens-1]] == 0 {
		numCodegens--
	}
	c.numCodegens = numCodegens
}

// setFixedTables loads the RFC 1951 fixed literal/length and offset codes.
func (h *huffman) setFixedTables() {
	sizes := &h.codeSizes[litTable]
	for i := range sizes {
		switch {
		case i < 144:
			sizes[i] = 8
		case i < 256:
			sizes[i] = 9
		case i < 280:
			sizes[i] = 7
		default:
			sizes[i] = 8
		}
	}
	for i := range h.codeSizes[distTable][:offsetCodeCount] {
		h.codeSizes[distTable][i] = 5
	}
	h.optimizeTable(litTable, maxNumLit, maxCodeSize, true)
	h.optimizeTable(distTable, offsetCodeCount, maxCodeSize, true)
}

// extraBitSize returns the number of extra bits written after match symbols.
func (h *huffman) extraBitSize() int {
	total := 0
	for i, n := range h.count[litTable][lengthCodesStart : lengthCodesStart+len(lengthExtraBits)] {
		total += int(n) * int(lengthExtraBits[i])
	}
	for i, n := range h.count[distTable][:maxOffHeaderCodes] {
		total += int(n) * int(offsetExtraBits[i])
	}
	return total
}

// fixedSize returns the size of the block in bits using the fixed tables.
func (h *huffman) fixedSize(extraBits int) int {
	size := 2 + extraBits
	for i, n := range h.count[litTable] {
		switch {
		case i < 144:
			size += int(n) * 8
		case i < 256:
			size += int(n) * 9
		case i < 280:
			size += int(n) * 7
		default:
			size += int(n) * 8
		}
	}
	for _, n := range h.count[distTable][:offsetCodeCount] {
		size += int(n) * 5
	}
	return size
}

// dynamicSize returns the size of the block in bits using the tables
// made by generateCodegen, including the header.
func (h *huffman) dynamicSize(c *codegen, extraBits int) int {
	size := 2 + 5 + 5 + 4 + 3*c.numCodegens + extraBits
	for i := 0; i < c.n; i++ {
		code := c.codes[i]
		size += int(h.codeSizes[codegenTable][code])
		if code >= 16 {
			size += int(codegenExtraBits[code-16])
			i++
		}
	}
	for i, n := range h.count[litTable] {
		size += int(n) * int(h.codeSizes[litTable][i])
	}
	for i, n := range h.count[distTable][:offsetCodeCount] {
		size += int(n) * int(h.codeSizes[distTable][i])
	}
	return size
}

// writeFixedHeader writes the block type of a fixed Huffman block.
// The final block bit has already been written.
func (w *huffmanBitWriter) writeFixedHeader() {
	w.writeBits(1, 2)
}

// writeDynamicHeader writes the block type and table description of a
// dynamic Huffman block.
func (w *huffmanBitWriter) writeDynamicHeader(h *huffman, c *codegen) {
	w.writeBits(2, 2)
	w.writeBits(uint32(c.numLiterals-lengthCodesStart), 5)
	w.writeBits(uint32(c.numOffsets-1), 5)
	w.writeBits(uint32(c.numCodegens-4), 4)
	for _, sym := range codegenOrder[:c.numCodegens] {
		w.writeBits(uint32(h.codeSizes[codegenTable][sym]), 3)
	}
	for i := 0; i < c.n; i++ {
		code := c.codes[i]
		w.writeBits(uint32(h.codes[codegenTable][code]), uint32(h.codeSizes[codegenTable][code]))
		if code >= 16 {
			i++
			w.writeBits(uint32(c.codes[i]), uint32(codegenExtraBits[code-16]))
		}
	}
}

// writeTokens writes the codes of lz followed by an end of block marker,
// using the current tables. It returns false if the output did not fit.
func (w *huffmanBitWriter) writeTokens(h *huffman, lz *lzBuffer) bool {
	litCodes, litSizes := &h.codes[litTable], &h.codeSizes[litTable]
	offCodes, offSizes := &h.codes[distTable], &h.codeSizes[distTable]
	lz.forEach(func(c lzCode) bool {
		if !c.match {
			w.writeBits(uint32(litCodes[c.lit]), uint32(litSizes[c.lit]))
			return true
		}
		sym, extra := lengthSymbol(c.xlength)
		w.writeBits(uint32(litCodes[sym]), uint32(litSizes[sym]))
		w.writeBits(uint32(c.xlength)&(1<<extra-1), uint32(extra))

		sym, extra = offsetSymbol(c.xoffset)
		w.writeBits(uint32(offCodes[sym]), uint32(offSizes[sym]))
		w.writeBits(c.xoffset&(1<<extra-1), uint32(extra))
		return true
	})
	w.writeBits(uint32(litCodes[endBlockMarker]), uint32(litSizes[endBlockMarker]))
	return w.ok()
}

// writeBlock writes the type, tables and codes of a Huffman block.
// Fixed tables are used when static is set or when they are estimated to
// give a smaller block than dynamic tables.
func (d *Compressor) writeBlock(static bool) bool {
	h := &d.huff
	if !static {
		h.generateCodegen(&d.codegen)
		extra := h.extraBitSize()
		static = h.fixedSize(extra) <= h.dynamicSize(&d.codegen, extra)
	}
	if static {
		h.setFixedTables()
		d.w.writeFixedHeader()
	} else {
		d.w.writeDynamicHeader(h, &d.codegen)
	}
	return d.w.writeTokens(h, &d.lz)
}
