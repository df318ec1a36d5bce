// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

//go:build !(amd64 || arm64 || ppc64le || riscv64) || nounsafe || purego || appengine

package le

import (
	"encoding/binary"
)

func Load16[I Indexer](b []byte, i I) uint16 {
	return binary.LittleEndian.Uint16(b[i:])
}

func Load32[I Indexer](b []byte, i I) uint32 {
	return binary.LittleEndian.Uint32(b[i:])
}
