// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import "github.com/tdefl/tdefl/internal/le"

const (
	// fastLookahead is the input buffered by the single probe parser
	// before it starts emitting codes.
	fastLookahead = 4096

	fastHashBits = 12
	fastHashMask = 1<<fastHashBits - 1
)

// fastHash hashes the 3 byte prefix u.
func fastHash(u uint32) uint32 {
	return (u ^ u>>(24-(hashBits-8))) & fastHashMask
}

// compressFast is the single probe greedy parser.
// Each position is looked up in a small hash table holding the last
// position with the same prefix; there are no chains.
// A loaded lookahead is always parsed to the end before more input is
// loaded, also when a block flush interrupts it.
// It returns false if the sink failed.
func (d *Compressor) compressFast() bool {
	dict := &d.dict
	win := dict.window[:]
	for d.fastPending || d.srcPos < len(d.src) || (d.flush != NoFlush && dict.lookaheadSize != 0) {
		if !d.fastPending {
			d.srcPos += dict.load(d.src[d.srcPos:], fastLookahead)
			if d.flush == NoFlush && dict.lookaheadSize < fastLookahead {
				break
			}
		}

		for dict.lookaheadSize >= 4 {
			pos := dict.lookaheadPos & windowMask
			first := le.Load32(win, pos) & 0xffffff
			h := fastHash(first)
			candidate := uint32(dict.hashHead[h])
			dict.hashHead[h] = uint16(dict.lookaheadPos)

			n := uint32(1)
			dist := uint32(uint16(dict.lookaheadPos - candidate))
			candidate &= windowMask
			if dist != 0 && dist <= dict.size && le.Load32(win, candidate)&0xffffff == first {
				n = fastMatchLen(win, pos, candidate)
			}
			if n < minMatchLength || (n == minMatchLength && dist >= maxShortMatchOffset) {
				n = 1
				d.recordLiteral(byte(first))
			} else {
				n = min(n, dict.lookaheadSize)
				d.recordMatch(n, dist)
			}
			dict.advance(n)

			if d.lz.full() {
				if n := d.flushBlock(NoFlush); n != 0 {
					d.fastPending = dict.lookaheadSize != 0
					return n > 0
				}
			}
		}

		for dict.lookaheadSize != 0 {
			d.recordLiteral(win[dict.lookaheadPos&windowMask])
			dict.advance(1)
			if d.lz.full() {
				if n := d.flushBlock(NoFlush); n != 0 {
					d.fastPending = dict.lookaheadSize != 0
					return n > 0
				}
			}
		}
		d.fastPending = false
	}
	return true
}

// fastMatchLen returns the match length at a and b, whose first 3 bytes
// are known to be equal. Bytes are compared in pairs from offset 2.
func fastMatchLen(win []byte, a, b uint32) uint32 {
	for i := uint32(2); i < maxMatchLength; i += 2 {
		if le.Load16(win, a+i) != le.Load16(win, b+i) {
			if win[a+i] == win[b+i] {
				return i + 1
			}
			return i
		}
	}
	return maxMatchLength
}
