package cmsketch

import "strings"

// Flags control how a sketch attaches to its region. Bit assignments are
// part of the public contract and never change within a major version.
type Flags uint32

const (
	// FlagReadOnly maps the file read-only. Structural mutations fail with
	// ErrReadOnly and point updates leave the table untouched.
	FlagReadOnly Flags = 1 << iota
	// FlagExclusive requires that the target file does not exist yet.
	FlagExclusive
	// FlagPrivate maps the file copy-on-write; updates never reach the file.
	FlagPrivate
	// FlagPreload asks the kernel to fault the whole region in up front.
	FlagPreload
	// FlagAnonymous keeps the sketch in memory. It is reported by sketches
	// without a backing file and forces an in-memory Create.
	FlagAnonymous
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagReadOnly, "read-only"},
	{FlagExclusive, "exclusive"},
	{FlagPrivate, "private"},
	{FlagPreload, "preload"},
	{FlagAnonymous, "anonymous"},
}

// Has reports whether every bit of flag is set in f.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// String implements fmt.Stringer.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range flagNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
			f &^= n.flag
		}
	}
	if f != 0 {
		parts = append(parts, "unknown")
	}
	return strings.Join(parts, "|")
}
