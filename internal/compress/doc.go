// Package compress frames a byte stream into independently compressed
// blocks.
//
// Each block is [UncompressedSize uint32][CompressedSize uint32][Data...],
// little endian. CompressedSize 0 means the block is stored raw, which the
// writer falls back to whenever compression saves less than 10%. Counter
// tables of fresh sketches are mostly zero and compress very well; dense
// approx tables often do not.
package compress
