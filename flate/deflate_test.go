package flate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"io"
	"math/rand"
	"strings"
	"testing"

	kflate "github.com/klauspost/compress/flate"
	kzlib "github.com/klauspost/compress/zlib"
)

// compressChunks compresses in with Compress, passing at most inChunk bytes
// of input and outChunk bytes of output space per call.
func compressChunks(t testing.TB, flags Flags, in []byte, inChunk, outChunk int) []byte {
	t.Helper()
	d := NewCompressor(nil, flags)
	out := make([]byte, outChunk)
	var dst []byte
	for {
		n := min(inChunk, len(in))
		flush := NoFlush
		if n == len(in) {
			flush = Finish
		}
		status, nIn, nOut := d.Compress(in[:n], out, flush)
		in = in[nIn:]
		dst = append(dst, out[:nOut]...)
		switch status {
		case StatusDone:
			if len(in) != 0 {
				t.Fatalf("done with %d bytes of input left", len(in))
			}
			return dst
		case StatusOkay:
		default:
			t.Fatalf("Compress: %v", status)
		}
	}
}

func inflate(t testing.TB, b []byte, zlib bool) []byte {
	t.Helper()
	var r io.Reader
	if zlib {
		zr, err := kzlib.NewReader(bytes.NewReader(b))
		if err != nil {
			t.Fatal(err)
		}
		r = zr
	} else {
		r = kflate.NewReader(bytes.NewReader(b))
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("inflate: %v", err)
	}
	return got
}

func textInput(size int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	words := strings.Fields(`the a window of recent bytes is searched for the longest
		earlier occurrence of the upcoming bytes and each occurrence becomes a length
		and distance pair while everything else is sent as literal bytes through
		canonical huffman codes built for every block`)
	var b bytes.Buffer
	for b.Len() < size {
		b.WriteString(words[rng.Intn(len(words))])
		if rng.Intn(9) == 0 {
			fmt.Fprintf(&b, " %d\n", rng.Intn(1000))
		} else {
			b.WriteByte(' ')
		}
	}
	return b.Bytes()[:size]
}

func randomInput(size int, seed int64) []byte {
	b := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func testInputs() map[string][]byte {
	mixed := append(randomInput(50000, 3), textInput(50000, 4)...)
	mixed = append(mixed, bytes.Repeat([]byte{0}, 70000)...)
	mixed = append(mixed, randomInput(1000, 5)...)
	return map[string][]byte{
		"empty":      {},
		"one byte":   {'x'},
		"short":      []byte("hello hello hello"),
		"repetitive": bytes.Repeat([]byte("All work and no play makes Jack a dull boy. "), 24000),
		"random":     randomInput(300000, 1),
		"text":       textInput(64<<10, 2),
		"mixed":      mixed,
	}
}

func TestRoundTripLevels(t *testing.T) {
	for name, in := range testInputs() {
		for level := NoCompression; level <= UberCompression; level++ {
			t.Run(fmt.Sprintf("%s/level-%d", name, level), func(t *testing.T) {
				flags := FlagsFromZipParams(level, -15, DefaultStrategy)
				out := compressChunks(t, flags, in, 1<<16, 1<<17)
				if got := inflate(t, out, false); !bytes.Equal(got, in) {
					t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(in))
				}
			})
		}
	}
}

func TestRoundTripStrategies(t *testing.T) {
	for name, in := range testInputs() {
		for _, s := range []Strategy{Filtered, HuffmanOnly, RLE, Fixed} {
			for _, level := range []int{1, 6} {
				t.Run(fmt.Sprintf("%s/strategy-%d/level-%d", name, s, level), func(t *testing.T) {
					flags := FlagsFromZipParams(level, 15, s)
					out := compressChunks(t, flags, in, 5000, 3000)
					if got := inflate(t, out, true); !bytes.Equal(got, in) {
						t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(in))
					}
				})
			}
		}
	}
}

func TestCompressionRatio(t *testing.T) {
	in := testInputs()["repetitive"]
	for _, level := range []int{1, 6, 9} {
		out := compressChunks(t, FlagsFromZipParams(level, -15, DefaultStrategy), in, len(in), 1<<20)
		if len(out) > len(in)/100 {
			t.Errorf("level %d: %d -> %d bytes", level, len(in), len(out))
		}
	}
}

func TestChunkedEquivalence(t *testing.T) {
	in := append(textInput(150000, 7), randomInput(40000, 8)...)
	for _, flags := range []Flags{
		FlagsFromZipParams(0, -15, DefaultStrategy),
		FlagsFromZipParams(1, -15, DefaultStrategy),
		FlagsFromZipParams(6, 15, DefaultStrategy),
		FlagsFromZipParams(9, -15, DefaultStrategy),
		FlagsFromZipParams(6, -15, RLE),
	} {
		want := compressChunks(t, flags, in, len(in), 1<<20)
		for _, inChunk := range []int{1, 13, 4096} {
			for _, outChunk := range []int{1, 17, 1 << 20} {
				got := compressChunks(t, flags, in, inChunk, outChunk)
				if !bytes.Equal(got, want) {
					t.Errorf("flags %#x, chunks %d/%d: output differs (%d vs %d bytes)", flags, inChunk, outChunk, len(got), len(want))
				}
			}
		}
	}
}

// TestChunkedEquivalenceLargeBlocks uses enough input to fill the code
// buffer several times, so blocks are flushed into a small output buffer
// while the parser is in the middle of its lookahead.
func TestChunkedEquivalenceLargeBlocks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	var in []byte
	for seed := int64(20); len(in) < 3<<20; seed++ {
		in = append(in, randomInput(20000, seed)...)
		in = append(in, textInput(30000, seed)...)
		in = append(in, bytes.Repeat([]byte{byte(seed)}, 1000)...)
	}
	for _, level := range []int{BestSpeed, 2, DefaultCompression, BestCompression} {
		flags := FlagsFromZipParams(level, -15, DefaultStrategy)
		want := compressChunks(t, flags, in, len(in), 8<<20)
		for _, outChunk := range []int{13, 4096, 65536} {
			got := compressChunks(t, flags, in, len(in), outChunk)
			if !bytes.Equal(got, want) {
				t.Errorf("level %d, out chunk %d: output differs (%d vs %d bytes)", level, outChunk, len(got), len(want))
			}
		}
		got := compressChunks(t, flags, in, 4099, 4096)
		if !bytes.Equal(got, want) {
			t.Errorf("level %d, in/out chunks 4099/4096: output differs (%d vs %d bytes)", level, len(got), len(want))
		}
		if dec := inflate(t, want, false); !bytes.Equal(dec, in) {
			t.Fatalf("level %d: round trip mismatch", level)
		}
	}
}

func TestSyncFlush(t *testing.T) {
	a, b := textInput(20000, 9), textInput(30000, 10)
	for _, level := range []int{0, 1, 6} {
		d := NewCompressor(nil, FlagsFromZipParams(level, -15, DefaultStrategy))
		out := make([]byte, 1<<20)
		status, n, m := d.Compress(a, out, SyncFlush)
		if status != StatusOkay || n != len(a) {
			t.Fatalf("level %d: sync flush: %v, consumed %d", level, status, n)
		}
		if !bytes.HasSuffix(out[:m], []byte{0, 0, 0xff, 0xff}) {
			t.Fatalf("level %d: output does not end with an empty stored block: %x", level, out[max(m-8, 0):m])
		}
		r := kflate.NewReader(bytes.NewReader(out[:m]))
		got := make([]byte, len(a))
		if _, err := io.ReadFull(r, got); err != nil || !bytes.Equal(got, a) {
			t.Fatalf("level %d: flushed prefix does not decode: %v", level, err)
		}

		status, n, m2 := d.Compress(b, out[m:], Finish)
		if status != StatusDone || n != len(b) {
			t.Fatalf("level %d: finish: %v, consumed %d", level, status, n)
		}
		if got := inflate(t, out[:m+m2], false); !bytes.Equal(got, append(a, b...)) {
			t.Fatalf("level %d: stream mismatch", level)
		}
	}
}

func TestFullFlushIndependence(t *testing.T) {
	a := textInput(50000, 11)
	for _, flags := range []Flags{
		FlagsFromZipParams(1, -15, DefaultStrategy),
		FlagsFromZipParams(6, -15, DefaultStrategy),
		FlagsFromZipParams(9, -15, DefaultStrategy),
		FlagsFromZipParams(6, -15, RLE),
	} {
		d := NewCompressor(nil, flags)
		out1 := make([]byte, 1<<20)
		status, n, m1 := d.Compress(a, out1, FullFlush)
		if status != StatusOkay || n != len(a) {
			t.Fatalf("flags %#x: full flush: %v, consumed %d", flags, status, n)
		}
		out2 := make([]byte, 1<<20)
		status, _, m2 := d.Compress(a, out2, Finish)
		if status != StatusDone {
			t.Fatalf("flags %#x: finish: %v", flags, status)
		}
		// The second half must decode on its own.
		if got := inflate(t, out2[:m2], false); !bytes.Equal(got, a) {
			t.Fatalf("flags %#x: output after full flush does not decode alone", flags)
		}
		// The first half, closed with a final empty stored block, decodes alone.
		head := append(bytes.Clone(out1[:m1]), 0x01, 0x00, 0x00, 0xff, 0xff)
		if got := inflate(t, head, false); !bytes.Equal(got, a) {
			t.Fatalf("flags %#x: output before full flush does not decode alone", flags)
		}
		if got := inflate(t, append(out1[:m1], out2[:m2]...), false); !bytes.Equal(got, append(a, a...)) {
			t.Fatalf("flags %#x: full stream mismatch", flags)
		}
	}
}

// storedBlocks parses a stream made only of stored blocks and returns
// the block lengths.
func storedBlocks(t *testing.T, b []byte) []int {
	t.Helper()
	var lens []int
	for {
		if len(b) < 5 {
			t.Fatalf("truncated stream: %x", b)
		}
		final, typ := b[0]&1, (b[0]>>1)&3
		if typ != 0 {
			t.Fatalf("block type %d, want stored", typ)
		}
		n := binary.LittleEndian.Uint16(b[1:])
		if nn := binary.LittleEndian.Uint16(b[3:]); nn != ^n {
			t.Fatalf("LEN %04x NLEN %04x", n, nn)
		}
		lens = append(lens, int(n))
		b = b[5+int(n):]
		if final == 1 {
			break
		}
	}
	if len(b) != 0 {
		t.Fatalf("%d bytes after final block", len(b))
	}
	return lens
}

func TestForcedRawBlocks(t *testing.T) {
	in := append(textInput(100000, 12), randomInput(20000, 13)...)
	out := compressChunks(t, FlagsFromZipParams(NoCompression, -15, DefaultStrategy), in, 777, 1<<20)
	total := 0
	for _, n := range storedBlocks(t, out) {
		if n > windowSize {
			t.Errorf("stored block of %d bytes", n)
		}
		total += n
	}
	if total != len(in) {
		t.Errorf("stored %d bytes, want %d", total, len(in))
	}
	if got := inflate(t, out, false); !bytes.Equal(got, in) {
		t.Fatal("round trip mismatch")
	}
}

func TestIncompressibleStored(t *testing.T) {
	in := randomInput(200000, 14)
	out := compressChunks(t, FlagsFromZipParams(6, -15, DefaultStrategy), in, len(in), 1<<20)
	if limit := len(in) + 5*(len(in)/31744+2); len(out) > limit {
		t.Errorf("random input expanded to %d bytes, limit %d", len(out), limit)
	}
	storedBlocks(t, out)
}

func TestBlockTypes(t *testing.T) {
	text := textInput(10000, 15)
	for _, tc := range []struct {
		name  string
		flags Flags
		in    []byte
		btype byte
	}{
		{"dynamic", FlagsFromZipParams(6, -15, DefaultStrategy), text, 2},
		{"fixed strategy", FlagsFromZipParams(6, -15, Fixed), text, 1},
		{"small input", FlagsFromZipParams(6, -15, DefaultStrategy), []byte("hello hello hello"), 1},
		{"empty", FlagsFromZipParams(6, -15, DefaultStrategy), nil, 1},
		{"raw", FlagsFromZipParams(0, -15, DefaultStrategy), text, 0},
	} {
		out := compressChunks(t, tc.flags, tc.in, len(tc.in), 1<<20)
		if out[0]&1 != 1 {
			t.Errorf("%s: first block is not final", tc.name)
		}
		if got := (out[0] >> 1) & 3; got != tc.btype {
			t.Errorf("%s: block type %d, want %d", tc.name, got, tc.btype)
		}
	}
}

func TestZlibFraming(t *testing.T) {
	in := textInput(40000, 16)
	for _, tc := range []struct {
		level int
		flg   byte
	}{
		{0, 0x01}, {1, 0x01}, {2, 0x5e}, {5, 0x5e}, {6, 0x9c}, {7, 0xda}, {9, 0xda}, {10, 0xda},
	} {
		flags := FlagsFromZipParams(tc.level, 15, DefaultStrategy)
		d := NewCompressor(nil, flags)
		out := make([]byte, 1<<20)
		status, _, m := d.Compress(in, out, Finish)
		if status != StatusDone {
			t.Fatalf("level %d: %v", tc.level, status)
		}
		out = out[:m]
		if out[0] != 0x78 || out[1] != tc.flg {
			t.Errorf("level %d: header %x, want 78%02x", tc.level, out[:2], tc.flg)
		}
		if (uint16(out[0])<<8|uint16(out[1]))%31 != 0 {
			t.Errorf("level %d: header check fails", tc.level)
		}
		want := adler32.Checksum(in)
		if got := binary.BigEndian.Uint32(out[len(out)-4:]); got != want {
			t.Errorf("level %d: trailer %08x, want %08x", tc.level, got, want)
		}
		if got := d.Adler32(); got != want {
			t.Errorf("level %d: Adler32() %08x, want %08x", tc.level, got, want)
		}
		if got := inflate(t, out, true); !bytes.Equal(got, in) {
			t.Errorf("level %d: round trip mismatch", tc.level)
		}
	}
}

func TestAdlerWithoutHeader(t *testing.T) {
	in := textInput(10000, 17)
	d := NewCompressor(nil, FlagsFromZipParams(6, -15, DefaultStrategy)|ComputeAdler32)
	out := make([]byte, 1<<20)
	// Feed in two parts to check the checksum covers all consumed input.
	d.Compress(in[:3000], out, NoFlush)
	if status, _, _ := d.Compress(in[3000:], out, Finish); status != StatusDone {
		t.Fatal(status)
	}
	if got, want := d.Adler32(), adler32.Checksum(in); got != want {
		t.Errorf("Adler32() = %08x, want %08x", got, want)
	}
	if out[0] == 0x78 {
		t.Errorf("raw stream starts with a zlib header")
	}

	d = NewCompressor(nil, FlagsFromZipParams(6, -15, DefaultStrategy))
	d.Compress(in, out, Finish)
	if got := d.Adler32(); got != 1 {
		t.Errorf("untracked Adler32() = %08x, want 1", got)
	}
}

func TestDrainAfterFinish(t *testing.T) {
	in := textInput(30000, 18)
	d := NewCompressor(nil, FlagsFromZipParams(6, -15, DefaultStrategy))
	var dst []byte
	out := make([]byte, 5)
	calls := 0
	for {
		status, n, m := d.Compress(in, out, Finish)
		in = in[n:]
		dst = append(dst, out[:m]...)
		calls++
		if status == StatusDone {
			break
		}
		if status != StatusOkay {
			t.Fatal(status)
		}
	}
	if calls < 100 {
		t.Errorf("only %d calls with a 5 byte buffer", calls)
	}
	if status, n, m := d.Compress(nil, out, Finish); status != StatusBadParam || n != 0 || m != 0 {
		t.Errorf("after done: %v %d %d", status, n, m)
	}
	if got := inflate(t, dst, false); !bytes.Equal(got, textInput(30000, 18)) {
		t.Fatal("round trip mismatch")
	}
}

func TestBadParam(t *testing.T) {
	flags := FlagsFromZipParams(6, -15, DefaultStrategy)
	in := textInput(20000, 23)
	out := make([]byte, 16)

	d := NewCompressor(nil, flags)
	if status, n, m := d.Compress(in, out, Flush(1)); status != StatusBadParam || n != 0 || m != 0 {
		t.Errorf("invalid flush: %v %d %d", status, n, m)
	}
	if d.PrevReturnStatus() != StatusOkay {
		t.Errorf("invalid flush changed the state to %v", d.PrevReturnStatus())
	}
	status, n, _ := d.Compress(in, out, Finish)
	if status != StatusOkay || n != len(in) {
		t.Fatalf("finish with small buffer: %v %d", status, n)
	}
	// Once finishing, only Finish is accepted, and a rejected call changes nothing.
	for _, f := range []Flush{NoFlush, SyncFlush, FullFlush} {
		if status, _, m := d.Compress(nil, out, f); status != StatusBadParam || m != 0 {
			t.Errorf("%v after finish: %v, %d bytes", f, status, m)
		}
	}
	for status == StatusOkay {
		status, _, _ = d.Compress(nil, out, Finish)
	}
	if status != StatusDone {
		t.Fatalf("draining: %v", status)
	}
	// Done is terminal.
	if status, _, _ := d.Compress(nil, out, Finish); status != StatusBadParam {
		t.Errorf("finish after done: %v", status)
	}

	sinkMode := NewCompressor(SinkFunc(func([]byte) bool { return true }), flags)
	if status, _, _ := sinkMode.Compress(in, out, NoFlush); status != StatusBadParam {
		t.Errorf("Compress in sink mode: %v", status)
	}
	if status, _ := NewCompressor(nil, flags).CompressBuffer(in, NoFlush); status != StatusBadParam {
		t.Errorf("CompressBuffer without sink: %v", status)
	}

	var nilComp *Compressor
	if status, _, _ := nilComp.Compress(in, out, NoFlush); status != StatusBadParam {
		t.Errorf("nil compressor: %v", status)
	}
	if status := nilComp.Init(nil, flags); status != StatusBadParam {
		t.Errorf("nil Init: %v", status)
	}
}

func TestSinkMode(t *testing.T) {
	in := append(textInput(120000, 19), randomInput(30000, 20)...)
	for _, level := range []int{0, 1, 6, 10} {
		flags := FlagsFromZipParams(level, 15, DefaultStrategy)
		var got []byte
		calls := 0
		d := NewCompressor(SinkFunc(func(p []byte) bool {
			got = append(got, p...)
			calls++
			return true
		}), flags)
		for rest := in; len(rest) > 0; {
			status, n := d.CompressBuffer(rest[:min(1000, len(rest))], NoFlush)
			if status != StatusOkay {
				t.Fatal(status)
			}
			rest = rest[n:]
		}
		if status, _ := d.CompressBuffer(nil, Finish); status != StatusDone {
			t.Fatalf("level %d: finish: %v", level, status)
		}
		if want := compressChunks(t, flags, in, len(in), 1<<20); !bytes.Equal(got, want) {
			t.Errorf("level %d: sink output differs from buffer output", level)
		}
		if calls == 0 {
			t.Errorf("level %d: sink never called", level)
		}
	}
}

func TestPutBufFailed(t *testing.T) {
	d := NewCompressor(SinkFunc(func([]byte) bool { return false }), FlagsFromZipParams(6, -15, DefaultStrategy))
	if status, _ := d.CompressBuffer([]byte("hello"), Finish); status != StatusPutBufFailed {
		t.Fatalf("got %v, want %v", status, StatusPutBufFailed)
	}
	if d.PrevReturnStatus() != StatusPutBufFailed {
		t.Errorf("PrevReturnStatus = %v", d.PrevReturnStatus())
	}
	if status, _ := d.CompressBuffer(nil, Finish); status != StatusBadParam {
		t.Errorf("after failure: %v", status)
	}

	// Re-initializing makes the compressor usable again.
	var buf bytes.Buffer
	d.Init(SinkFunc(func(p []byte) bool { buf.Write(p); return true }), FlagsFromZipParams(6, -15, DefaultStrategy))
	if status, _ := d.CompressBuffer([]byte("hello"), Finish); status != StatusDone {
		t.Fatalf("after Init: %v", status)
	}
	if got := inflate(t, buf.Bytes(), false); string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestFlagsFromZipParams(t *testing.T) {
	for _, tc := range []struct {
		level, windowBits int
		strategy          Strategy
		want              Flags
	}{
		{-1, 15, DefaultStrategy, 128 | WriteZlibHeader},
		{-1, -15, DefaultStrategy, 128},
		{0, -15, DefaultStrategy, GreedyParsing | ForceAllRawBlocks},
		{1, -15, DefaultStrategy, 1 | GreedyParsing},
		{3, -15, DefaultStrategy, 32 | GreedyParsing},
		{4, -15, DefaultStrategy, 16},
		{9, 15, Filtered, 512 | WriteZlibHeader | FilterMatches},
		{10, -15, DefaultStrategy, 1500},
		{42, -15, DefaultStrategy, 1500},
		{6, -15, HuffmanOnly, 0},
		{6, -15, RLE, 128 | RLEMatches},
		{2, -15, Fixed, 6 | GreedyParsing | ForceAllStaticBlocks},
	} {
		if got := FlagsFromZipParams(tc.level, tc.windowBits, tc.strategy); got != tc.want {
			t.Errorf("FlagsFromZipParams(%d, %d, %d) = %#x, want %#x", tc.level, tc.windowBits, tc.strategy, got, tc.want)
		}
	}
}

func TestProbes(t *testing.T) {
	for _, tc := range []struct {
		f    Flags
		want [2]uint32
	}{
		{0, [2]uint32{1, 1}},
		{1, [2]uint32{2, 1}},
		{128, [2]uint32{44, 12}},
		{1500, [2]uint32{501, 126}},
	} {
		if got := tc.f.probes(); got != tc.want {
			t.Errorf("probes(%d) = %v, want %v", tc.f, got, tc.want)
		}
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{
		StatusBadParam:     "bad param",
		StatusPutBufFailed: "put buf failed",
		StatusOkay:         "okay",
		StatusDone:         "done",
		Status(5):          "Status(5)",
	} {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
	for f, want := range map[Flush]string{NoFlush: "none", SyncFlush: "sync", FullFlush: "full", Finish: "finish", Flush(1): "Flush(1)"} {
		if got := f.String(); got != want {
			t.Errorf("Flush(%d).String() = %q, want %q", int(f), got, want)
		}
	}
	if StatusOkay.Err() != nil || StatusDone.Err() != nil {
		t.Error("non failure status has an error")
	}
	if StatusBadParam.Err() != ErrBadParam || StatusPutBufFailed.Err() != ErrPutBufFailed {
		t.Error("failure status error mismatch")
	}
}

func BenchmarkCompress(b *testing.B) {
	inputs := map[string][]byte{"text": textInput(1<<20, 21), "random": randomInput(1<<20, 22)}
	for name, in := range inputs {
		for _, level := range []int{1, 6, 9} {
			b.Run(fmt.Sprintf("%s/level-%d", name, level), func(b *testing.B) {
				d := NewCompressor(nil, FlagsFromZipParams(level, -15, DefaultStrategy))
				out := make([]byte, len(in)+len(in)/100+1024)
				b.SetBytes(int64(len(in)))
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					d.Init(nil, d.Flags())
					if status, _, _ := d.Compress(in, out, Finish); status != StatusDone {
						b.Fatal(status)
					}
				}
			})
		}
	}
}
