// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package flate

import "math/bits"

const (
	litTable     = 0
	distTable    = 1
	codegenTable = 2

	maxNumLit        = 288
	offsetCodeCount  = 32
	codegenCodeCount = 19

	// Longest code enforceMaxCodeSize accepts as input.
	maxSupportedCodeSize = 32

	maxCodeSize        = 15
	maxCodegenCodeSize = 7
)

// symFreq is a symbol and its frequency.
// During calculateMinimumRedundancy key is reused for tree links
// and finally holds the code length.
// The counts of one block sum to less than 1<<16, so merged weights fit in key.
type symFreq struct {
	key uint16
	sym uint16
}

// huffman holds the histograms and codes of the three tables of a block.
type huffman struct {
	count     [3][maxNumLit]uint16
	codes     [3][maxNumLit]uint16
	codeSizes [3][maxNumLit]uint8
}

// radixSortSyms sorts syms by key with a stable two pass LSD radix sort,
// using tmp as scratch. It returns the slice holding the result,
// which is either syms or tmp. The high byte pass is skipped when every key
// is below 256.
func radixSortSyms(syms, tmp []symFreq) []symFreq {
	var hist [2][256]uint32
	for _, s := range syms {
		hist[0][s.key&0xff]++
		hist[1][s.key>>8]++
	}
	passes := 2
	if uint32(len(syms)) == hist[1][0] {
		passes = 1
	}
	cur, next := syms, tmp[:len(syms)]
	for pass := 0; pass < passes; pass++ {
		shift := uint(pass * 8)
		var offsets [256]uint32
		total := uint32(0)
		for i, n := range hist[pass] {
			offsets[i] = total
			total += n
		}
		for _, s := range cur {
			b := (s.key >> shift) & 0xff
			next[offsets[b]] = s
			offsets[b]++
		}
		cur, next = next, cur
	}
	return cur
}

// calculateMinimumRedundancy replaces the keys of a, which must be sorted by
// ascending frequency, with optimal code lengths.
// The tree is built in place: merged node weights and then parent links are
// stored in the key fields of the nodes already consumed, and a final pass
// turns parent depths into leaf depths.
// See Moffat and Katajainen, "In-place calculation of minimum-redundancy codes".
func calculateMinimumRedundancy(a []symFreq) {
	n := len(a)
	switch n {
	case 0:
		return
	case 1:
		a[0].key = 1
		return
	}

	// First pass: left to right, build the tree. Internal node weights
	// replace a[next], consumed internal nodes get their parent index.
	a[0].key += a[1].key
	root, leaf := 0, 2
	for next := 1; next < n-1; next++ {
		if leaf >= n || a[root].key < a[leaf].key {
			a[next].key = a[root].key
			a[root].key = uint16(next)
			root++
		} else {
			a[next].key = a[leaf].key
			leaf++
		}
		if leaf >= n || (root < next && a[root].key < a[leaf].key) {
			a[next].key += a[root].key
			a[root].key = uint16(next)
			root++
		} else {
			a[next].key += a[leaf].key
			leaf++
		}
	}

	// Second pass: right to left, internal node depths.
	a[n-2].key = 0
	for next := n - 3; next >= 0; next-- {
		a[next].key = a[a[next].key].key + 1
	}

	// Third pass: right to left, leaf depths.
	avail, used, depth := 1, 0, 0
	root, next := n-2, n-1
	for avail > 0 {
		for root >= 0 && int(a[root].key) == depth {
			used++
			root--
		}
		for avail > used {
			a[next].key = uint16(depth)
			next--
			avail--
		}
		avail = 2 * used
		depth++
		used = 0
	}
}

// enforceMaxCodeSize limits the code length histogram numCodes
// to maxCodeSize while keeping the code complete.
// All lengths above the limit are moved to the limit, then leaves are
// repeatedly taken from the limit and the deepest shorter leaf is split until
// the Kraft sum is exactly one again.
func enforceMaxCodeSize(numCodes *[maxSupportedCodeSize + 1]int, codeListLen int, maxCodeSize int) {
	if codeListLen <= 1 {
		return
	}
	for i := maxCodeSize + 1; i <= maxSupportedCodeSize; i++ {
		numCodes[maxCodeSize] += numCodes[i]
		numCodes[i] = 0
	}
	total := uint32(0)
	for i := maxCodeSize; i > 0; i-- {
		total += uint32(numCodes[i]) << uint(maxCodeSize-i)
	}
	for total != 1<<uint(maxCodeSize) {
		numCodes[maxCodeSize]--
		for i := maxCodeSize - 1; i > 0; i-- {
			if numCodes[i] != 0 {
				numCodes[i]--
				numCodes[i+1] += 2
				break
			}
		}
		total--
	}
}

// optimizeTable assigns code lengths and canonical codes for table.
// With static set the code lengths already present are kept and only
// the codes are (re)computed.
func (h *huffman) optimizeTable(table, tableLen, codeSizeLimit int, static bool) {
	var numCodes [maxSupportedCodeSize + 1]int
	sizes := h.codeSizes[table][:tableLen]
	codes := h.codes[table][:tableLen]

	if static {
		for _, s := range sizes {
			numCodes[s]++
		}
	} else {
		var syms0, syms1 [maxNumLit]symFreq
		used := 0
		for i, n := range h.count[table][:tableLen] {
			if n != 0 {
				syms0[used] = symFreq{key: n, sym: uint16(i)}
				used++
			}
		}
		syms := radixSortSyms(syms0[:used], syms1[:used])
		calculateMinimumRedundancy(syms)
		for _, s := range syms {
			numCodes[s.key]++
		}
		enforceMaxCodeSize(&numCodes, used, codeSizeLimit)

		for i := range h.codeSizes[table] {
			h.codeSizes[table][i] = 0
			h.codes[table][i] = 0
		}
		// The least frequent symbols get the longest codes.
		j := used
		for l := 1; l <= codeSizeLimit; l++ {
			for k := numCodes[l]; k > 0; k-- {
				j--
				sizes[syms[j].sym] = uint8(l)
			}
		}
	}

	var nextCode [maxSupportedCodeSize + 1]uint32
	code := uint32(0)
	for l := 2; l <= codeSizeLimit; l++ {
		code = (code + uint32(numCodes[l-1])) << 1
		nextCode[l] = code
	}
	for i, size := range sizes {
		if size == 0 {
			continue
		}
		c := nextCode[size]
		nextCode[size]++
		codes[i] = reverseBits(uint16(c), size)
	}
}

// reverseBits reverses the low bitLength bits of number.
// Deflate writes Huffman codes starting with the most significant bit.
func reverseBits(number uint16, bitLength byte) uint16 {
	return bits.Reverse16(number << ((16 - bitLength) & 15))
}
