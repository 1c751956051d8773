package cmsketch

import (
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/cmsketch/internal/compress"
	"github.com/hupe1980/cmsketch/persistence"
)

var (
	// ErrInvalidArgument is returned for out-of-range geometry, option
	// combinations that make no sense, and mismatched operands.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIO is returned when a region cannot be created, opened, read,
	// written or mapped. Existence-flag violations are reported as ErrIO.
	ErrIO = errors.New("i/o failure")

	// ErrFormat is returned when a file or archive fails validation.
	ErrFormat = errors.New("invalid format")

	// ErrGeometryMismatch is returned when two sketches do not share width,
	// seed and value size. It wraps ErrInvalidArgument.
	ErrGeometryMismatch = fmt.Errorf("%w: geometry mismatch", ErrInvalidArgument)

	// ErrOutOfRange is returned by GetCell and SetCell for coordinates
	// outside the table. It wraps ErrInvalidArgument.
	ErrOutOfRange = fmt.Errorf("%w: cell out of range", ErrInvalidArgument)

	// ErrClosed is returned by operations on a closed sketch.
	ErrClosed = errors.New("sketch is closed")

	// ErrReadOnly is returned by structural mutations of a sketch opened
	// with FlagReadOnly.
	ErrReadOnly = errors.New("sketch is read-only")
)

// GeometryMismatchError reports the first field two sketches disagree on.
type GeometryMismatchError struct {
	Field string
	LHS   uint64
	RHS   uint64
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("geometry mismatch: %s %d != %d", e.Field, e.LHS, e.RHS)
}

func (e *GeometryMismatchError) Unwrap() error { return ErrGeometryMismatch }

// checkGeometry returns a GeometryMismatchError unless lhs and rhs can be
// combined cell by cell.
func checkGeometry(lhs, rhs *Sketch) error {
	switch {
	case lhs.header.Width != rhs.header.Width:
		return &GeometryMismatchError{Field: "width", LHS: lhs.header.Width, RHS: rhs.header.Width}
	case lhs.header.Seed != rhs.header.Seed:
		return &GeometryMismatchError{Field: "seed", LHS: lhs.header.Seed, RHS: rhs.header.Seed}
	case lhs.header.ValueSize != rhs.header.ValueSize:
		return &GeometryMismatchError{Field: "value_size", LHS: uint64(lhs.header.ValueSize), RHS: uint64(rhs.header.ValueSize)}
	}
	return nil
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// translateError maps errors of the storage layers onto the three failure
// kinds callers test for. Errors already carrying one of them pass through.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrIO),
		errors.Is(err, ErrFormat), errors.Is(err, ErrClosed), errors.Is(err, ErrReadOnly):
		return err
	case errors.Is(err, persistence.ErrInvalidHeader),
		errors.Is(err, compress.ErrCorrupt),
		errors.Is(err, compress.ErrUnknownKind),
		errors.Is(err, io.ErrUnexpectedEOF),
		persistence.IsChecksumMismatch(err):
		return fmt.Errorf("%w: %s: %w", ErrFormat, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
	}
}
