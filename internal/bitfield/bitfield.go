package bitfield

import "encoding/binary"

// WordSize is the size in bytes of the words fields are packed into.
const WordSize = 8

// Table is a view of packed fields over a byte slice it does not own.
type Table struct {
	data  []byte
	width uint64
	mask  uint64
}

// New returns a Table of width-bit fields over data.
// len(data) must be a multiple of WordSize.
func New(data []byte, width uint64) Table {
	mask := ^uint64(0)
	if width < 64 {
		mask = (uint64(1) << width) - 1
	}
	return Table{data: data, width: width, mask: mask}
}

// WordsFor returns the number of words needed to hold n fields of width bits.
func WordsFor(n, width uint64) uint64 {
	return (n*width + 63) / 64
}

// Width returns the field width in bits.
func (t Table) Width() uint64 { return t.width }

// Len returns the number of whole fields the region can hold.
func (t Table) Len() uint64 {
	if t.width == 0 {
		return 0
	}
	return uint64(len(t.data)) * 8 / t.width
}

// Bytes returns the underlying region.
func (t Table) Bytes() []byte { return t.data }

// Get returns field index.
func (t Table) Get(index uint64) uint64 {
	pos := index * t.width
	word := pos >> 6
	shift := pos & 63

	v := t.word(word) >> shift
	if shift+t.width > 64 {
		v |= t.word(word+1) << (64 - shift)
	}
	return v & t.mask
}

// Set stores value into field index. Bits of value above the field width
// are discarded.
func (t Table) Set(index, value uint64) {
	value &= t.mask
	pos := index * t.width
	word := pos >> 6
	shift := pos & 63

	lo := t.word(word)
	lo = lo&^(t.mask<<shift) | value<<shift
	t.putWord(word, lo)

	if shift+t.width > 64 {
		spill := 64 - shift
		hi := t.word(word + 1)
		hi = hi&^(t.mask>>spill) | value>>spill
		t.putWord(word+1, hi)
	}
}

// Clear zeroes every field.
func (t Table) Clear() {
	clear(t.data)
}

func (t Table) word(i uint64) uint64 {
	return binary.LittleEndian.Uint64(t.data[i*WordSize:])
}

func (t Table) putWord(i, v uint64) {
	binary.LittleEndian.PutUint64(t.data[i*WordSize:], v)
}
