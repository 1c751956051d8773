// Package bitfield packs fixed-width unsigned fields into a byte region.
//
// Fields are laid out back to back, field i starting at bit i*width, over
// little-endian 64-bit words. A field may straddle two words; the region must
// therefore be a whole number of words long. Widths from 1 to 64 bits are
// supported.
//
// All bit arithmetic used by the sketch table lives here so the exact and
// approximate codecs never compute offsets themselves.
package bitfield
