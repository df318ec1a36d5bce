// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

package flate

// Flags selects the behaviour of a Compressor.
// The low 12 bits hold the maximum number of hash chain probes per lookup,
// the remaining bits are the option flags below.
type Flags uint32

const (
	// WriteZlibHeader emits a RFC1950 header and Adler-32 trailer.
	WriteZlibHeader Flags = 0x01000
	// ComputeAdler32 tracks the Adler-32 of the input without writing it.
	ComputeAdler32 Flags = 0x02000
	// GreedyParsing commits to the first match found instead of
	// checking the next position for a longer one.
	GreedyParsing Flags = 0x04000
	// NondeterministicParsing skips clearing the hash table on init.
	NondeterministicParsing Flags = 0x08000
	// RLEMatches only looks for runs of the previous byte.
	RLEMatches Flags = 0x10000
	// FilterMatches discards matches of 5 bytes or less.
	FilterMatches Flags = 0x20000
	// ForceAllStaticBlocks disables dynamic Huffman tables.
	ForceAllStaticBlocks Flags = 0x40000
	// ForceAllRawBlocks writes only stored blocks.
	ForceAllRawBlocks Flags = 0x80000

	// MaxProbesMask extracts the probe count from Flags.
	MaxProbesMask Flags = 0xFFF

	// DefaultProbes is the probe count used by DefaultCompression.
	DefaultProbes = 128
)

const (
	NoCompression      = 0
	BestSpeed          = 1
	BestCompression    = 9
	UberCompression    = 10
	DefaultCompression = -1
	defaultLevel       = 6
)

// Strategy tunes the compressor for particular kinds of input.
// The values match zlib.
type Strategy int

const (
	DefaultStrategy Strategy = iota
	Filtered
	HuffmanOnly
	RLE
	Fixed
)

// numProbes is the hash chain probe budget for each level.
var numProbes = [11]Flags{0, 1, 6, 32, 16, 32, 128, 256, 512, 768, 1500}

// FlagsFromZipParams converts a zlib style level, window bits and strategy
// into Flags.
// Levels above 10 are treated as 10, negative levels as the default level.
// A positive windowBits selects zlib framing, otherwise raw deflate is produced.
func FlagsFromZipParams(level, windowBits int, strategy Strategy) Flags {
	l := level
	switch {
	case l < 0:
		l = defaultLevel
	case l > UberCompression:
		l = UberCompression
	}
	flags := numProbes[l]
	if l <= 3 {
		flags |= GreedyParsing
	}
	if windowBits > 0 {
		flags |= WriteZlibHeader
	}

	switch {
	case l == 0:
		flags |= ForceAllRawBlocks
	case strategy == Filtered:
		flags |= FilterMatches
	case strategy == HuffmanOnly:
		flags &^= MaxProbesMask
	case strategy == Fixed:
		flags |= ForceAllStaticBlocks
	case strategy == RLE:
		flags |= RLEMatches
	}
	return flags
}

// probes returns the probe budgets for short and long (>= 32) prior matches.
func (f Flags) probes() [2]uint32 {
	p := uint32(f & MaxProbesMask)
	return [2]uint32{1 + (p+2)/3, 1 + ((p>>2)+2)/3}
}

// zlibLevel returns the FLEVEL field of the zlib header matching the probe count.
func (f Flags) zlibLevel() uint32 {
	i := 0
	for ; i < len(numProbes); i++ {
		if numProbes[i] == f&MaxProbesMask {
			break
		}
	}
	switch {
	case i < 2:
		return 0
	case i < 6:
		return 1
	case i == 6:
		return 2
	}
	return 3
}
