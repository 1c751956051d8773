package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/hupe1980/cmsketch/internal/approx"
	"github.com/hupe1980/cmsketch/internal/bitfield"
	"github.com/hupe1980/cmsketch/internal/hash"
	"github.com/hupe1980/cmsketch/internal/random"
)

const (
	// MagicNumber identifies sketch files (ASCII: "CMSK").
	MagicNumber = 0x4B534D43
	// Version is the current file format version.
	Version = 1

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = 128

	// Depth is the number of rows in every table.
	Depth = hash.Depth

	// MinWidth and MaxWidth bound the number of cells per row.
	MinWidth = 1
	MaxWidth = uint64(1) << hash.LaneBits

	// MaxExactValueSize is the widest cell stored as a literal count.
	MaxExactValueSize = 16

	// MaxMaxValue is the largest max value a sketch accepts.
	MaxMaxValue = approx.MaxValue
)

const (
	offMagic     = 0
	offVersion   = 4
	offWidth     = 8
	offMaxValue  = 16
	offValueSize = 24
	offMode      = 28
	offSeed      = 32
	offTableSize = 40
	offFileSize  = 48
	offChecksum  = 56
	offState     = 64
)

// ErrInvalidHeader is wrapped by every HeaderError.
var ErrInvalidHeader = errors.New("invalid header")

// HeaderError describes which header field is unusable.
type HeaderError struct {
	Field  string
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("invalid header: %s: %s", e.Field, e.Reason)
}

func (e *HeaderError) Unwrap() error { return ErrInvalidHeader }

// Mode tells how cells encode counts.
type Mode uint8

const (
	// ModeExact cells hold literal counts.
	ModeExact Mode = iota
	// ModeApprox cells hold approx codes.
	ModeApprox
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeApprox:
		return "approx"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Header is the fixed-size record at the start of every sketch file.
type Header struct {
	Magic     uint32
	Version   uint32
	Width     uint64
	MaxValue  uint64
	ValueSize uint32
	Mode      Mode
	Seed      uint64
	TableSize uint64 // bits
	FileSize  uint64
	Checksum  uint32
}

// NewHeader derives the geometry of a sketch with the given width, max value
// and seed.
func NewHeader(width, maxValue, seed uint64) (Header, error) {
	if width < MinWidth || width > MaxWidth || width&(width-1) != 0 {
		return Header{}, &HeaderError{Field: "width", Reason: fmt.Sprintf("%d is not a power of two in [%d, %d]", width, MinWidth, MaxWidth)}
	}
	if maxValue == 0 || maxValue > MaxMaxValue {
		return Header{}, &HeaderError{Field: "max_value", Reason: fmt.Sprintf("%d is not in [1, %d]", maxValue, uint64(MaxMaxValue))}
	}

	mode, valueSize := ModeFor(maxValue)
	cells := Depth * width
	tableSize := cells * uint64(valueSize)
	return Header{
		Magic:     MagicNumber,
		Version:   Version,
		Width:     width,
		MaxValue:  maxValue,
		ValueSize: valueSize,
		Mode:      mode,
		Seed:      seed,
		TableSize: tableSize,
		FileSize:  HeaderSize + bitfield.WordsFor(cells, uint64(valueSize))*bitfield.WordSize,
	}, nil
}

// ModeFor returns the mode and cell width used for maxValue.
func ModeFor(maxValue uint64) (Mode, uint32) {
	if n := bits.Len64(maxValue); n <= MaxExactValueSize {
		return ModeExact, uint32(n)
	}
	return ModeApprox, approx.ValueSize
}

// Encode writes h into dst, which must hold HeaderSize bytes, and sets the
// checksum. The random state slot is left untouched.
func (h *Header) Encode(dst []byte) {
	le := binary.LittleEndian
	le.PutUint32(dst[offMagic:], h.Magic)
	le.PutUint32(dst[offVersion:], h.Version)
	le.PutUint64(dst[offWidth:], h.Width)
	le.PutUint64(dst[offMaxValue:], h.MaxValue)
	le.PutUint32(dst[offValueSize:], h.ValueSize)
	dst[offMode] = byte(h.Mode)
	clear(dst[offMode+1 : offSeed])
	le.PutUint64(dst[offSeed:], h.Seed)
	le.PutUint64(dst[offTableSize:], h.TableSize)
	le.PutUint64(dst[offFileSize:], h.FileSize)
	h.Checksum = hash.CRC32C(dst[:offChecksum])
	le.PutUint32(dst[offChecksum:], h.Checksum)
	clear(dst[offChecksum+4 : offState])
}

// DecodeHeader reads and checks the header at the start of src. It does not
// compare the geometry against a file size; see Validate.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, &HeaderError{Field: "size", Reason: fmt.Sprintf("%d bytes, need %d", len(src), HeaderSize)}
	}
	le := binary.LittleEndian
	h := Header{
		Magic:     le.Uint32(src[offMagic:]),
		Version:   le.Uint32(src[offVersion:]),
		Width:     le.Uint64(src[offWidth:]),
		MaxValue:  le.Uint64(src[offMaxValue:]),
		ValueSize: le.Uint32(src[offValueSize:]),
		Mode:      Mode(src[offMode]),
		Seed:      le.Uint64(src[offSeed:]),
		TableSize: le.Uint64(src[offTableSize:]),
		FileSize:  le.Uint64(src[offFileSize:]),
		Checksum:  le.Uint32(src[offChecksum:]),
	}
	if h.Magic != MagicNumber {
		return Header{}, &HeaderError{Field: "magic", Reason: fmt.Sprintf("0x%08x", h.Magic)}
	}
	if h.Version != Version {
		return Header{}, &HeaderError{Field: "version", Reason: fmt.Sprintf("unsupported version %d", h.Version)}
	}
	if sum := hash.CRC32C(src[:offChecksum]); sum != h.Checksum {
		return Header{}, &HeaderError{Field: "checksum", Reason: fmt.Sprintf("expected 0x%08x, got 0x%08x", h.Checksum, sum)}
	}
	return h, nil
}

// Validate checks that h describes a well-formed sketch occupying exactly
// size bytes.
func (h Header) Validate(size uint64) error {
	want, err := NewHeader(h.Width, h.MaxValue, h.Seed)
	if err != nil {
		return err
	}
	switch {
	case h.Mode != want.Mode:
		return &HeaderError{Field: "mode", Reason: fmt.Sprintf("%s does not match max value %d", h.Mode, h.MaxValue)}
	case h.ValueSize != want.ValueSize:
		return &HeaderError{Field: "value_size", Reason: fmt.Sprintf("%d, expected %d", h.ValueSize, want.ValueSize)}
	case h.TableSize != want.TableSize:
		return &HeaderError{Field: "table_size", Reason: fmt.Sprintf("%d, expected %d", h.TableSize, want.TableSize)}
	case h.FileSize != want.FileSize:
		return &HeaderError{Field: "file_size", Reason: fmt.Sprintf("%d, expected %d", h.FileSize, want.FileSize)}
	case size != h.FileSize:
		return &HeaderError{Field: "file_size", Reason: fmt.Sprintf("file holds %d bytes, header says %d", size, h.FileSize)}
	}
	return nil
}

// StateSlot returns the random stream state slot of a header in src.
func StateSlot(src []byte) []byte {
	return src[offState : offState+random.StateSize : offState+random.StateSize]
}
