package hash

import (
	"github.com/hupe1980/cmsketch/internal/random"
	"github.com/zeebo/xxh3"
)

const (
	// Depth is the number of rows a key is placed in.
	Depth = 3

	// LaneBits is the width of the hash lane each row draws from.
	LaneBits = 128 / Depth

	// LaneMask selects one lane.
	LaneMask = (uint64(1) << LaneBits) - 1
)

// Family places keys in the rows of a table. The zero value is not usable.
type Family struct {
	seed  uint64
	mask  uint64
	salts [Depth]uint64
}

// NewFamily returns the placement for a table of width cells (a power of two
// no larger than 1<<LaneBits) under seed.
func NewFamily(seed, width uint64) Family {
	f := Family{seed: seed, mask: width - 1}
	copy(f.salts[:], random.Salts(seed, Depth))
	return f
}

// Seed returns the seed keys are hashed under.
func (f Family) Seed() uint64 { return f.seed }

// Cells returns the cell of key in each row.
func (f Family) Cells(key []byte) [Depth]uint64 {
	return f.lanes(xxh3.Hash128Seed(key, f.seed))
}

// CellsString is Cells for a string key.
func (f Family) CellsString(key string) [Depth]uint64 {
	return f.lanes(xxh3.HashString128Seed(key, f.seed))
}

func (f Family) lanes(h xxh3.Uint128) [Depth]uint64 {
	return [Depth]uint64{
		(h.Lo ^ f.salts[0]) & LaneMask & f.mask,
		((h.Lo>>LaneBits | h.Hi<<(64-LaneBits)) ^ f.salts[1]) & LaneMask & f.mask,
		((h.Hi >> (2*LaneBits - 64)) ^ f.salts[2]) & LaneMask & f.mask,
	}
}
