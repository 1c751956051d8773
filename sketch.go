package cmsketch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hupe1980/cmsketch/internal/approx"
	"github.com/hupe1980/cmsketch/internal/bitfield"
	"github.com/hupe1980/cmsketch/internal/conv"
	"github.com/hupe1980/cmsketch/internal/hash"
	"github.com/hupe1980/cmsketch/internal/mmap"
	"github.com/hupe1980/cmsketch/internal/random"
	"github.com/hupe1980/cmsketch/persistence"
	"github.com/hupe1980/cmsketch/resource"
)

const (
	// Depth is the number of rows, and of cells a key occupies.
	Depth = persistence.Depth

	// MinWidth and MaxWidth bound the number of cells per row.
	MinWidth = persistence.MinWidth
	MaxWidth = persistence.MaxWidth

	// DefaultWidth is a reasonable width for a general purpose sketch.
	DefaultWidth = uint64(1) << 20

	// ApproxValueSize is the cell width of approximate sketches in bits.
	ApproxValueSize = approx.ValueSize

	// MaxMaxValue is the largest max value a sketch accepts.
	MaxMaxValue = uint64(persistence.MaxMaxValue)

	// DefaultMaxValue is MaxMaxValue.
	DefaultMaxValue = MaxMaxValue

	// HeaderSize is the size of the file header in bytes.
	HeaderSize = persistence.HeaderSize
)

// Mode tells how cells encode counts.
type Mode = persistence.Mode

const (
	// ModeExact cells hold literal counts up to the max value.
	ModeExact = persistence.ModeExact
	// ModeApprox cells hold randomized floating-point codes.
	ModeApprox = persistence.ModeApprox
)

// Sketch is a count-min sketch backed by a file or by anonymous memory.
//
// A Sketch is not safe for concurrent use. Point operations (Get, Inc, Add,
// Set) never fail, allocate or perform I/O.
type Sketch struct {
	header   persistence.Header
	mapping  *mmap.Mapping
	table    bitfield.Table
	family   hash.Family
	rnd      *random.Random
	flags    Flags
	writable bool
	maxCode  uint64
	reserved int64
	opts     options
}

// Create returns a zeroed sketch of width cells per row counting up to
// maxValue. width must be a power of two in [MinWidth, MaxWidth] and
// maxValue in [1, MaxMaxValue].
//
// With WithPath the sketch is backed by a new file, which is truncated if
// it exists unless FlagExclusive is set. Otherwise it lives in memory.
func Create(width, maxValue uint64, optFns ...Option) (s *Sketch, err error) {
	o := applyOptions(options{}, optFns...)
	start := time.Now()
	defer func() {
		var size int64
		if s != nil {
			size = int64(s.header.FileSize)
		}
		o.metricsCollector.RecordAttach(OpCreate, size, time.Since(start), err)
		o.logger.LogCreate(context.Background(), o.path, width, maxValue, time.Since(start), err)
	}()

	h, err := persistence.NewHeader(width, maxValue, o.seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return create(h, o)
}

// create maps a fresh region for h and writes the header into it.
func create(h persistence.Header, o options) (*Sketch, error) {
	if o.flags.Has(FlagReadOnly) || o.flags.Has(FlagPrivate) {
		return nil, invalidArgument("cannot create a sketch with flags %s", o.flags)
	}
	m, reserved, err := allocate(h.FileSize, o)
	if err != nil {
		return nil, err
	}
	h.Encode(m.Bytes()[:HeaderSize])
	return newSketch(h, m, random.New(h.Seed), o.flags, reserved, o), nil
}

// Open maps the sketch file at path. By default the mapping is shared and
// updates reach the file; FlagReadOnly and FlagPrivate change that.
// FlagPreload faults the region in.
func Open(path string, optFns ...Option) (s *Sketch, err error) {
	o := applyOptions(options{}, optFns...)
	start := time.Now()
	defer func() {
		var size int64
		if s != nil {
			size = int64(s.header.FileSize)
		}
		o.metricsCollector.RecordAttach(OpOpen, size, time.Since(start), err)
		o.logger.LogOpen(context.Background(), OpOpen, path, o.flags, err)
	}()

	switch {
	case path == "":
		return nil, invalidArgument("open requires a path")
	case o.flags.Has(FlagExclusive), o.flags.Has(FlagAnonymous):
		return nil, invalidArgument("cannot open a sketch with flags %s", o.flags)
	case o.flags.Has(FlagReadOnly | FlagPrivate):
		return nil, invalidArgument("read-only and private are exclusive")
	}

	mode := mmap.ReadWrite
	if o.flags.Has(FlagReadOnly) {
		mode = mmap.ReadOnly
	} else if o.flags.Has(FlagPrivate) {
		mode = mmap.Private
	}
	m, err := mmap.Open(path, mode)
	if err != nil {
		return nil, translateError("open "+path, err)
	}
	s, err = attach(m, o.flags, 0, o)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	if o.flags.Has(FlagPreload) {
		_ = m.Advise(mmap.AccessWillNeed)
	}
	return s, nil
}

// Load reads the sketch file at path into memory. The file is not kept open
// and later updates never reach it; use Save to write them back.
func Load(path string, optFns ...Option) (s *Sketch, err error) {
	o := applyOptions(options{}, optFns...)
	start := time.Now()
	defer func() {
		var size int64
		if s != nil {
			size = int64(s.header.FileSize)
		}
		o.metricsCollector.RecordAttach(OpLoad, size, time.Since(start), err)
		o.logger.LogOpen(context.Background(), OpLoad, path, o.flags, err)
	}()

	switch {
	case path == "":
		return nil, invalidArgument("load requires a path")
	case o.flags.Has(FlagExclusive):
		return nil, invalidArgument("cannot load a sketch with flags %s", o.flags)
	}

	fi, err := o.fs.Stat(path)
	if err != nil {
		return nil, translateError("stat "+path, err)
	}
	size, err := conv.Int64ToUint64(fi.Size())
	if err != nil || size < HeaderSize {
		return nil, fmt.Errorf("%w: %s holds %d bytes, need at least %d", ErrFormat, path, fi.Size(), HeaderSize)
	}

	// Check the header before committing memory to the table.
	var buf [HeaderSize]byte
	if err := persistence.LoadFromFile(o.fs, path, buf[:]); err != nil {
		return nil, translateError("load "+path, err)
	}
	h, err := persistence.DecodeHeader(buf[:])
	if err == nil {
		err = h.Validate(size)
	}
	if err != nil {
		return nil, translateError("load "+path, err)
	}

	mem := o
	mem.path = ""
	m, reserved, err := allocate(size, mem)
	if err != nil {
		return nil, err
	}
	if err := persistence.LoadFromFile(o.fs, path, m.Bytes()); err != nil {
		release(m, reserved, o)
		return nil, translateError("load "+path, err)
	}
	s, err = attach(m, o.flags, reserved, o)
	if err != nil {
		release(m, reserved, o)
		return nil, err
	}
	return s, nil
}

// allocate maps size bytes, backed by o.path or anonymous.
func allocate(size uint64, o options) (*mmap.Mapping, int64, error) {
	n, err := conv.Uint64ToInt(size)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: file size %d: %w", ErrInvalidArgument, size, err)
	}
	if o.path == "" || o.flags.Has(FlagAnonymous) {
		if err := o.resources.TryAcquireMemory(int64(n)); err != nil {
			return nil, 0, translateError("reserve memory", err)
		}
		m, err := mmap.MapAnon(n)
		if err != nil {
			o.resources.ReleaseMemory(int64(n))
			return nil, 0, translateError("map memory", err)
		}
		return m, int64(n), nil
	}

	m, err := mmap.Create(o.path, n, o.flags.Has(FlagExclusive))
	if err != nil {
		return nil, 0, translateError("create "+o.path, err)
	}
	if o.flags.Has(FlagPreload) {
		_ = m.Advise(mmap.AccessWillNeed)
	}
	return m, 0, nil
}

func release(m *mmap.Mapping, reserved int64, o options) {
	_ = m.Close()
	o.resources.ReleaseMemory(reserved)
}

// attach validates the header of an existing region and resumes its
// random stream.
func attach(m *mmap.Mapping, flags Flags, reserved int64, o options) (*Sketch, error) {
	data := m.Bytes()
	h, err := persistence.DecodeHeader(data)
	if err == nil {
		err = h.Validate(uint64(len(data)))
	}
	if err != nil {
		return nil, translateError("attach", err)
	}
	rnd := random.New(h.Seed)
	if err := rnd.UnmarshalState(persistence.StateSlot(data)); err != nil {
		return nil, fmt.Errorf("%w: random state: %w", ErrFormat, err)
	}
	return newSketch(h, m, rnd, flags, reserved, o), nil
}

func newSketch(h persistence.Header, m *mmap.Mapping, rnd *random.Random, flags Flags, reserved int64, o options) *Sketch {
	if m.Anonymous() {
		flags |= FlagAnonymous
	}
	maxCode := h.MaxValue
	if h.Mode == ModeApprox {
		maxCode = approx.Floor(h.MaxValue)
	}
	o.path = m.Path()
	return &Sketch{
		header:   h,
		mapping:  m,
		table:    bitfield.New(m.Bytes()[HeaderSize:], uint64(h.ValueSize)),
		family:   hash.NewFamily(h.Seed, h.Width),
		rnd:      rnd,
		flags:    flags,
		writable: !flags.Has(FlagReadOnly),
		maxCode:  maxCode,
		reserved: reserved,
		opts:     o,
	}
}

// Close writes the random stream position back to the region, releases it
// and resets s to the unopened state. Closing a closed sketch is a no-op.
func (s *Sketch) Close() error {
	if s == nil || s.mapping == nil {
		return nil
	}
	var err error
	if s.writable {
		err = s.storeState()
	}
	if cerr := s.mapping.Close(); err == nil {
		err = cerr
	}
	s.opts.resources.ReleaseMemory(s.reserved)
	*s = Sketch{}
	return translateError("close", err)
}

// Flush writes the random stream position to the header and, for a shared
// file mapping, the whole region to disk.
func (s *Sketch) Flush() error {
	if s.mapping == nil {
		return ErrClosed
	}
	if s.writable {
		if err := s.storeState(); err != nil {
			return translateError("flush", err)
		}
	}
	return translateError("flush", s.mapping.Flush())
}

func (s *Sketch) storeState() error {
	return s.rnd.MarshalState(persistence.StateSlot(s.mapping.Bytes()))
}

// Save writes a copy of the sketch to path.
//
// The file is written in place, truncating an existing one unless
// FlagExclusive is given; a failed save may leave a partial file. With
// WithAtomicSave it is written next to path and renamed over it instead.
// Saving a shared mapping to its own path flushes it.
func (s *Sketch) Save(path string, optFns ...Option) (err error) {
	if s.mapping == nil {
		return ErrClosed
	}
	if path == "" {
		return invalidArgument("save requires a path")
	}
	o := applyOptions(s.opts.inherit(), optFns...)
	start := time.Now()
	var written int64
	defer func() {
		o.metricsCollector.RecordSave(written, time.Since(start), err)
		o.logger.LogSave(context.Background(), path, written, o.atomicSave, err)
	}()

	if s.backedBy(path) {
		if s.mapping.Mode() == mmap.ReadWrite {
			written = int64(s.header.FileSize)
			return s.Flush()
		}
		// Truncating a mapped file would fault the mapping.
		o.atomicSave = true
	}

	writeFunc := func(w io.Writer) error {
		n, err := s.WriteTo(resource.NewRateLimitedWriter(context.Background(), w, o.resources))
		written = n
		return err
	}
	if o.atomicSave {
		err = persistence.SaveToFile(o.fs, path, writeFunc)
	} else {
		err = persistence.WriteFile(o.fs, path, o.flags.Has(FlagExclusive), writeFunc)
	}
	return translateError("save "+path, err)
}

func (s *Sketch) backedBy(path string) bool {
	if s.mapping.Anonymous() {
		return false
	}
	a, err1 := filepath.Abs(path)
	b, err2 := filepath.Abs(s.mapping.Path())
	return err1 == nil && err2 == nil && a == b
}

// WriteTo writes the region, with the current random stream position, to
// w. It implements io.WriterTo.
func (s *Sketch) WriteTo(w io.Writer) (int64, error) {
	if s.mapping == nil {
		return 0, ErrClosed
	}
	data := s.mapping.Bytes()
	var hdr [HeaderSize]byte
	copy(hdr[:], data[:HeaderSize])
	if err := s.rnd.MarshalState(persistence.StateSlot(hdr[:])); err != nil {
		return 0, err
	}
	n, err := w.Write(hdr[:])
	written := int64(n)
	if err != nil {
		return written, err
	}
	n, err = w.Write(data[HeaderSize:])
	written += int64(n)
	if err == nil && written != int64(len(data)) {
		err = io.ErrShortWrite
	}
	return written, err
}

// Width returns the number of cells per row.
func (s *Sketch) Width() uint64 { return s.header.Width }

// WidthMask returns Width()-1, the mask applied to row hashes.
func (s *Sketch) WidthMask() uint64 {
	if s.header.Width == 0 {
		return 0
	}
	return s.header.Width - 1
}

// Depth returns the number of rows.
func (s *Sketch) Depth() uint64 { return Depth }

// MaxValue returns the largest count a cell holds.
func (s *Sketch) MaxValue() uint64 { return s.header.MaxValue }

// ValueSize returns the cell width in bits.
func (s *Sketch) ValueSize() uint32 { return s.header.ValueSize }

// Seed returns the hash seed.
func (s *Sketch) Seed() uint64 { return s.header.Seed }

// TableSize returns the table size in bits.
func (s *Sketch) TableSize() uint64 { return s.header.TableSize }

// FileSize returns the region size in bytes.
func (s *Sketch) FileSize() uint64 { return s.header.FileSize }

// Mode returns the cell encoding.
func (s *Sketch) Mode() Mode { return s.header.Mode }

// Flags returns the attach flags. In-memory sketches report FlagAnonymous.
func (s *Sketch) Flags() Flags { return s.flags }

// Path returns the backing file, or "" for an in-memory sketch.
func (s *Sketch) Path() string {
	if s.mapping == nil {
		return ""
	}
	return s.mapping.Path()
}

// Writable reports whether updates are applied.
func (s *Sketch) Writable() bool { return s.mapping != nil && s.writable }

// Closed reports whether s is unopened or closed.
func (s *Sketch) Closed() bool { return s.mapping == nil }

func (s *Sketch) checkWritable() error {
	switch {
	case s.mapping == nil:
		return ErrClosed
	case !s.writable:
		return ErrReadOnly
	}
	return nil
}
