package enet

// Compressor is the pluggable datagram body codec referenced by
// spec.md §4.9 and the COMPRESSED header flag. A Host with a nil
// Compressor never sets that flag and never attempts decompression.
type Compressor interface {
	// Compress appends the compressed form of src to dst and returns
	// the result. It may return src unchanged (with dst==nil) to
	// signal "not worth compressing"; the caller compares lengths and
	// only sets COMPRESSED when the compressed form is smaller.
	Compress(dst, src []byte) []byte

	// Decompress appends the decompressed form of src to dst.
	Decompress(dst, src []byte) ([]byte, error)
}
