package hash

import (
	"hash"

	"github.com/klauspost/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the CRC32-Castagnoli checksum of data. Sketch headers and
// archive headers are sealed with it.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash, used for archive
// payloads that never sit in memory as a whole.
func NewCRC32C() hash.Hash32 {
	return crc32.New(castagnoli)
}
