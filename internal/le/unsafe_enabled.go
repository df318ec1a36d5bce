// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

// We enable 64 bit LE platforms:

//go:build (amd64 || arm64 || ppc64le || riscv64) && !nounsafe && !purego && !appengine

package le

import (
	"unsafe"
)

// Load16 will load from b at index i.
// The caller must ensure b[i+1] is in range.
func Load16[I Indexer](b []byte, i I) uint16 {
	_ = b[i+1]
	return *(*uint16)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)))
}

// Load32 will load from b at index i.
// The caller must ensure b[i+3] is in range.
func Load32[I Indexer](b []byte, i I) uint32 {
	_ = b[i+3]
	return *(*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(&b[0])) + uintptr(i)))
}
