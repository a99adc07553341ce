// Package partition derives stable routing keys from entity identifiers.
//
// The key is the signed 32-bit CRC (polynomial 0xEDB88320, reflected,
// table-driven) of the case-normalized UTF-8 identifier. Any caller in any
// language that computes the same checksum over the same bytes routes to the
// same partition, which is what keeps mixed-stack clients interoperable.
package partition

import (
	"hash/crc32"
	"math"
	"strings"
)

// Canonicalize normalizes identifiers before hashing. Identifiers are
// case-insensitive but case-preserved in storage, so only the routing key
// sees the lowercased form.
func Canonicalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// KeyFor maps an identifier to its partition key.
func KeyFor(identifier string) int32 {
	return int32(crc32.ChecksumIEEE([]byte(Canonicalize(identifier))))
}

// LowKey returns the lowest key of range i when the signed 32-bit key space
// is split into n uniform ranges, mirroring how the cluster lays out
// partitions. The final range absorbs the remainder of the division.
func LowKey(i, n int) int32 {
	width := (int64(1) << 32) / int64(n)
	return int32(math.MinInt32 + int64(i)*width)
}

// IndexFor returns which of n uniform ranges owns key.
func IndexFor(key int32, n int) int {
	width := (int64(1) << 32) / int64(n)
	i := int((int64(key) - math.MinInt32) / width)
	if i >= n {
		i = n - 1
	}
	return i
}
