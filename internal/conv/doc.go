// Package conv provides safe integer type conversion utilities.
//
// Sketch geometry is carried as uint64 (widths up to 2^42 cells), while
// mappings, slices and os.FileInfo speak int and int64. These helpers check
// the conversions that depend on untrusted header fields or file sizes.
//
// For conversions that are provably safe by domain constraints (e.g., loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
