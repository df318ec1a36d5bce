// Copyright 2024+ The tdefl Authors. All rights reserved.
// License information can be found in the LICENSE file.

// Package le provides little endian loads from byte slices.
package le

// Indexer is the set of index types accepted by the load functions.
type Indexer interface {
	int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64
}
