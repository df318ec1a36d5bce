// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package flate

const (
	logWindowSize = 15
	windowSize    = 1 << logWindowSize
	windowMask    = windowSize - 1

	hashBits  = 15
	hashSize  = 1 << hashBits
	hashShift = (hashBits + 2) / 3

	// Matches of minMatchLength further away than this are not worth it.
	maxShortMatchOffset = 8 << 10
)

// dictionary is the sliding window and its hash chains.
//
// window is circular over windowSize bytes. The first maxMatchLength-1
// bytes are repeated after the end so a match can be compared without
// wrapping.
//
// hashHead[h] holds the most recent position whose 3 byte prefix hashes to h,
// hashPrev[p & windowMask] the previous position with the same hash as p.
// Positions are stored modulo 1<<16 and 0 terminates a chain.
type dictionary struct {
	window   [windowSize + maxMatchLength - 1]byte
	hashHead [hashSize]uint16
	hashPrev [windowSize]uint16

	lookaheadPos  uint32 // stream position of the next byte to encode
	lookaheadSize uint32 // bytes in the window not yet encoded
	size          uint32 // bytes before lookaheadPos usable as match source

	maxProbes [2]uint32
}

// clearHashes forgets all match candidates.
func (d *dictionary) clearHashes() {
	d.hashHead = [hashSize]uint16{}
	d.hashPrev = [windowSize]uint16{}
}

// put stores c at window position pos, mirroring the start of the window.
func (d *dictionary) put(pos uint32, c byte) {
	d.window[pos] = c
	if pos < maxMatchLength-1 {
		d.window[windowSize+pos] = c
	}
}

// insert links stream position pos into the chain for hash h.
func (d *dictionary) insert(pos uint32, h uint32) {
	d.hashPrev[pos&windowMask] = d.hashHead[h]
	d.hashHead[h] = uint16(pos)
}

// fill copies up to maxMatchLength-lookaheadSize bytes of src into the window
// and inserts every position that now has 3 bytes available into the hash chains.
// It returns the number of bytes consumed.
func (d *dictionary) fill(src []byte) int {
	n := len(src)
	if room := int(maxMatchLength - d.lookaheadSize); n > room {
		n = room
	}
	src = src[:n]

	if d.lookaheadSize+d.size >= minMatchLength-1 {
		// At least two bytes are known, so hashing can continue from them.
		dst := (d.lookaheadPos + d.lookaheadSize) & windowMask
		ins := d.lookaheadPos + d.lookaheadSize - 2
		h := uint32(d.window[ins&windowMask])<<hashShift ^ uint32(d.window[(ins+1)&windowMask])
		d.lookaheadSize += uint32(n)
		for _, c := range src {
			d.put(dst, c)
			h = (h<<hashShift ^ uint32(c)) & (hashSize - 1)
			d.insert(ins, h)
			dst = (dst + 1) & windowMask
			ins++
		}
	} else {
		for _, c := range src {
			dst := (d.lookaheadPos + d.lookaheadSize) & windowMask
			d.put(dst, c)
			d.lookaheadSize++
			if d.lookaheadSize+d.size >= minMatchLength {
				ins := d.lookaheadPos + d.lookaheadSize - 1 - 2
				h := (uint32(d.window[ins&windowMask])<<(hashShift*2) ^
					uint32(d.window[(ins+1)&windowMask])<<hashShift ^
					uint32(c)) & (hashSize - 1)
				d.insert(ins, h)
			}
		}
	}
	if limit := windowSize - d.lookaheadSize; d.size > limit {
		d.size = limit
	}
	return n
}

// advance moves the lookahead forward after n bytes were encoded.
func (d *dictionary) advance(n uint32) {
	if debugDeflate && d.lookaheadSize < n {
		panic("advance beyond lookahead")
	}
	d.lookaheadPos += n
	d.lookaheadSize -= n
	d.size += n
	if d.size > windowSize {
		d.size = windowSize
	}
}

// findMatch searches the hash chain of lookaheadPos for a match longer than
// prevLength that is at most maxDist away and at most maxLength long.
// It returns prevDist, prevLength when nothing better is found.
// Candidates are only compared when the bytes at the current best
// length agree, and only a strictly longer match replaces the best one,
// so equal lengths keep the closer match.
func (d *dictionary) findMatch(lookaheadPos, maxDist, maxLength, prevDist, prevLength uint32) (dist, length uint32) {
	dist, length = prevDist, prevLength
	if maxLength <= length {
		return
	}
	pos := lookaheadPos & windowMask
	probePos := pos
	probesLeft := d.maxProbes[0]
	if length >= 32 {
		probesLeft = d.maxProbes[1]
	}
	win := d.window[:]
	c0, c1 := win[pos+length], win[pos+length-1]

	for {
		var probeDist uint32
	search:
		for {
			probesLeft--
			if probesLeft == 0 {
				return
			}
			// Three probes per budget unit.
			for i := 0; i < 3; i++ {
				next := d.hashPrev[probePos]
				probeDist = uint32(uint16(lookaheadPos - uint32(next)))
				if next == 0 || probeDist > maxDist {
					return
				}
				probePos = uint32(next) & windowMask
				if win[probePos+length] == c0 && win[probePos+length-1] == c1 {
					break search
				}
			}
		}
		if probeDist == 0 {
			return
		}
		n := matchLen(win[pos:pos+maxLength], win[probePos:probePos+maxLength])
		if n > length {
			dist, length = probeDist, n
			if n == maxLength {
				return
			}
			c0, c1 = win[pos+length], win[pos+length-1]
		}
	}
}

// runLength returns the length of the run of the byte before lookaheadPos
// starting at lookaheadPos, limited by the lookahead.
// Runs shorter than minMatchLength are reported as 0.
func (d *dictionary) runLength() uint32 {
	pos := d.lookaheadPos & windowMask
	c := d.window[(pos-1)&windowMask]
	n := uint32(0)
	for n < d.lookaheadSize && d.window[pos+n] == c {
		n++
	}
	if n < minMatchLength {
		return 0
	}
	return n
}

// matchLen returns the number of leading bytes a and b have in common.
// b must be at least as long as a.
func matchLen(a, b []byte) uint32 {
	b = b[:len(a)]
	for i := range a {
		if a[i] != b[i] {
			return uint32(i)
		}
	}
	return uint32(len(a))
}

// load copies up to maxLookahead-lookaheadSize bytes of src into the window
// without updating the hash chains. It returns the number of bytes consumed.
func (d *dictionary) load(src []byte, maxLookahead uint32) int {
	n := len(src)
	if room := int(maxLookahead - d.lookaheadSize); n > room {
		n = room
	}
	dst := (d.lookaheadPos + d.lookaheadSize) & windowMask
	for rest := src[:n]; len(rest) > 0; {
		m := copy(d.window[dst:windowSize], rest)
		if dst < maxMatchLength-1 {
			copy(d.window[windowSize+dst:], rest[:min(m, int(maxMatchLength-1-dst))])
		}
		rest = rest[m:]
		dst = (dst + uint32(m)) & windowMask
	}
	d.lookaheadSize += uint32(n)
	if limit := windowSize - d.lookaheadSize; d.size > limit {
		d.size = limit
	}
	return n
}
