// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package bench

import (
	"math"
)

// Estimate returns a normalized compressibility estimate of block b.
// Values close to zero are likely uncompressible.
// Values above 0.1 are likely to be compressible.
// Values above 0.5 are very compressible.
// Very small lengths will return 0.
func Estimate(b []byte) float64 {
	if len(b) < 16 {
		return 0
	}

	// Correctly predicted order 1
	hits := 0
	lastMatch := false
	var o1 [256]byte
	var hist [256]int
	c1 := byte(0)
	for _, c := range b {
		if c == o1[c1] {
			// Only two correct predictions in a row count.
			if lastMatch {
				hits++
			}
			lastMatch = true
		} else {
			lastMatch = false
		}
		o1[c1] = c
		c1 = c
		hist[c]++
	}
	prediction := math.Pow(float64(hits)/float64(len(b)), 0.6)

	variance := float64(0)
	avg := float64(len(b)) / 256
	for _, v := range hist {
		d := float64(v) - avg
		variance += d * d
	}
	stddev := math.Sqrt(variance) / float64(len(b))
	exp := math.Sqrt(1 / float64(len(b)))
	stddev = math.Max(stddev-exp, 0) * (1 + exp)
	entropy := math.Pow(stddev, 0.4)

	return math.Pow((prediction+entropy)/2, 0.9)
}

// EntropyBytes returns the order 0 Shannon entropy of b in bytes,
// a lower bound for a Huffman-only encoding of b.
func EntropyBytes(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	var hist [256]int
	for _, c := range b {
		hist[c]++
	}
	bits := float64(0)
	invTotal := 1.0 / float64(len(b))
	for _, v := range hist[:] {
		if v > 0 {
			n := float64(v)
			bits += -math.Log2(n*invTotal) * n
		}
	}
	return int(math.Ceil(bits / 8))
}
