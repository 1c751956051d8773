// Package persistence defines the on-disk layout of a sketch file and the
// helpers that write it safely.
//
// A sketch file is a 128-byte little-endian Header followed by the packed
// counter table, rounded up to whole 64-bit words:
//
//	offset  size  field
//	0       4     magic ("CMSK")
//	4       4     version
//	8       8     width
//	16      8     max value
//	24      4     value size (bits per cell)
//	28      1     mode (0 = exact, 1 = approx)
//	32      8     seed
//	40      8     table size (bits)
//	48      8     file size (bytes)
//	56      4     CRC32C of bytes [0, 56)
//	64      20    random stream state
//	84      44    reserved (zero)
//
// The random stream state is outside the checksummed range: it changes on
// every flush without invalidating the geometry.
//
// Files are written through internal/fs so tests can inject failures.
// SaveToFile writes to a temp file in the target directory, syncs it and
// renames it into place.
package persistence
