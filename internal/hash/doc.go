// Package hash provides the hashing primitives of a sketch file.
//
// # Key placement
//
// [Family] maps a key to one cell per row. The key is hashed once with
// XXH3-128 under the sketch seed and the 128 bits are cut into three 42-bit
// lanes, one per row. Each lane is XORed with a per-row salt drawn from the
// seed's random stream and masked to the table width:
//
//	cell[row] = (lane[row] ^ salt[row]) & (width - 1)
//
// Masking keeps only low bits, so the cell of a key in a table of width w/2
// is always the cell it had in width w with the top bit dropped. Shrinking a
// sketch relies on that to fold cells without replaying keys.
//
// # CRC32-Castagnoli (CRC32C)
//
// Header and archive checksums use CRC32C through github.com/klauspost/crc32,
// which accelerates it with SSE4.2 and the ARM CRC extension.
//
//	checksum := hash.CRC32C(data)
package hash
