package wire

import "hash/crc32"

// CRC32 computes the IEEE 802.3 CRC32 over the concatenation of
// buffers (spec.md §8, testable property 6). This is the algorithm
// behind the engine's built-in checksum hook; callers may supply any
// other ChecksumFunc with the same signature instead.
//
// hash/crc32 is used directly rather than a third-party package: no
// dependency retrieved for this spec computes CRC32 (the pack's
// checksum-shaped libraries are xxhash and protobuf's own checksums,
// neither IEEE 802.3 CRC32), so there is no ecosystem library to wire
// here.
func CRC32(buffers [][]byte) uint32 {
	var c uint32
	for _, b := range buffers {
		c = crc32.Update(c, crc32.IEEETable, b)
	}
	return c
}

// ChecksumFunc computes a checksum over a vector of byte ranges
// (spec.md §4.9).
type ChecksumFunc func(buffers [][]byte) uint32
